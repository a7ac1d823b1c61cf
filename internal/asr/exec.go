package asr

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/quillvoice/quill/internal/config"
)

// Exec runs a local CLI recognizer once per chunk. The configured argv may
// reference {audio}, {language}, and {task} placeholders; {audio} is appended
// when absent. The command must print the transcript on stdout.
type Exec struct {
	argv    []string
	timeout time.Duration
}

// NewExec parses the configured command line into an argv template.
func NewExec(command string, timeout time.Duration) (*Exec, error) {
	argv, err := config.ParseArgv(command)
	if err != nil {
		return nil, fmt.Errorf("parse asr command: %w", err)
	}
	if len(argv) == 0 {
		return nil, errors.New("asr exec backend needs a command")
	}
	return &Exec{argv: argv, timeout: timeout}, nil
}

func (e *Exec) Transcribe(ctx context.Context, req Request) (string, error) {
	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	argv := make([]string, 0, len(e.argv)+1)
	sawAudio := false
	for _, arg := range e.argv {
		switch arg {
		case "{audio}":
			argv = append(argv, req.AudioPath)
			sawAudio = true
		case "{language}":
			argv = append(argv, req.Language)
		case "{task}":
			argv = append(argv, req.Task)
		default:
			argv = append(argv, arg)
		}
	}
	if !sawAudio {
		argv = append(argv, req.AudioPath)
	}

	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...)
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("asr command failed: %s", strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("run asr command: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}
