package fsm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransitionHappyPath(t *testing.T) {
	s := StateIdle

	next, err := Transition(s, EventStart)
	require.NoError(t, err)
	require.Equal(t, StateRecording, next)

	next, err = Transition(next, EventStop)
	require.NoError(t, err)
	require.Equal(t, StateStopping, next)

	next, err = Transition(next, EventDrained)
	require.NoError(t, err)
	require.Equal(t, StateTerminal, next)

	next, err = Transition(next, EventDelivered)
	require.NoError(t, err)
	require.Equal(t, StateIdle, next)
}

func TestTransitionAbortFromAnyStateGoesIdle(t *testing.T) {
	states := []State{StateIdle, StateRecording, StateStopping, StateTerminal}
	for _, state := range states {
		next, err := Transition(state, EventAbort)
		require.NoError(t, err)
		require.Equal(t, StateIdle, next)
	}
}

func TestTransitionMatrixInvalidTransitions(t *testing.T) {
	tests := []struct {
		name    string
		state   State
		event   Event
		want    State
		wantErr bool
	}{
		{name: "idle stop invalid", state: StateIdle, event: EventStop, want: StateIdle, wantErr: true},
		{name: "idle drained invalid", state: StateIdle, event: EventDrained, want: StateIdle, wantErr: true},
		{name: "recording start invalid", state: StateRecording, event: EventStart, want: StateRecording, wantErr: true},
		{name: "recording delivered invalid", state: StateRecording, event: EventDelivered, want: StateRecording, wantErr: true},
		{name: "stopping start invalid", state: StateStopping, event: EventStart, want: StateStopping, wantErr: true},
		{name: "stopping stop invalid", state: StateStopping, event: EventStop, want: StateStopping, wantErr: true},
		{name: "terminal start invalid", state: StateTerminal, event: EventStart, want: StateTerminal, wantErr: true},
		{name: "terminal drained invalid", state: StateTerminal, event: EventDrained, want: StateTerminal, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			next, err := Transition(tc.state, tc.event)
			require.Equal(t, tc.want, next)
			if tc.wantErr {
				require.Error(t, err)
				require.Contains(t, err.Error(), "invalid transition")
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestTransitionUnknownState(t *testing.T) {
	next, err := Transition(State("mystery"), EventStart)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown state")
	require.Equal(t, State("mystery"), next)
}

func TestActive(t *testing.T) {
	require.False(t, Active(StateIdle))
	require.True(t, Active(StateRecording))
	require.True(t, Active(StateStopping))
	require.False(t, Active(StateTerminal))
}
