// Package ipc carries one-line commands from the hotkey front-end to the
// engine over a local unix socket.
package ipc

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Request is one command delivered by a front-end. Arg is optional and only
// meaningful for commands that take one (TRANSCRIBE_STATIC).
type Request struct {
	Command string `json:"command"`
	Arg     string `json:"arg,omitempty"`
}

// Response is the single JSON line written back per request.
type Response struct {
	OK      bool   `json:"ok"`
	State   string `json:"state,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ParseRequest decodes one wire line. Front-ends send either the bare
// command word (optionally followed by an argument) or a JSON object; both
// forms are accepted so a hotkey script can stay a one-liner.
func ParseRequest(line string) (Request, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Request{}, fmt.Errorf("empty command line")
	}

	if strings.HasPrefix(line, "{") {
		var req Request
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			return Request{}, fmt.Errorf("decode request: %w", err)
		}
		if strings.TrimSpace(req.Command) == "" {
			return Request{}, fmt.Errorf("request has no command")
		}
		return req, nil
	}

	command, arg, _ := strings.Cut(line, " ")
	return Request{Command: command, Arg: strings.TrimSpace(arg)}, nil
}
