// Package fsm defines the session lifecycle states and legal transitions.
package fsm

import "fmt"

type State string

type Event string

const (
	// StateIdle means no session exists and START_RECORDING is legal.
	StateIdle State = "idle"
	// StateRecording means capture is active and the queue is draining.
	StateRecording State = "recording"
	// StateStopping means capture has halted and queued chunks are draining.
	StateStopping State = "stopping"
	// StateTerminal means the transcript is fully assembled and awaiting delivery.
	StateTerminal State = "terminal"
)

const (
	EventStart     Event = "start"
	EventStop      Event = "stop"
	EventDrained   Event = "drained"
	EventDelivered Event = "delivered"
	EventAbort     Event = "abort"
)

// Transition applies one event to a state. EventAbort is legal from any
// state and returns to idle; everything else follows the session cycle
// idle -> recording -> stopping -> terminal -> idle.
func Transition(current State, event Event) (State, error) {
	if event == EventAbort {
		return StateIdle, nil
	}

	switch current {
	case StateIdle:
		switch event {
		case EventStart:
			return StateRecording, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateRecording:
		switch event {
		case EventStop:
			return StateStopping, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateStopping:
		switch event {
		case EventDrained:
			return StateTerminal, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateTerminal:
		switch event {
		case EventDelivered:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

// Active reports whether a session currently owns the capture pipeline.
func Active(s State) bool {
	return s == StateRecording || s == StateStopping
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
