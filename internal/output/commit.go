// Package output applies transcript commit side effects (clipboard and typing).
package output

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"sync/atomic"
	"time"

	"github.com/quillvoice/quill/internal/config"
)

// Committer delivers a finished transcript: copy to the clipboard, then
// optionally type it into the focused window. autoEnter is atomic because
// the control loop toggles it while static transcription commits run on
// their own goroutines.
type Committer struct {
	clipboard []string
	typeCmd   []string
	autoType  bool
	autoEnter atomic.Bool
	logger    *slog.Logger
}

// NewCommitter parses the configured output commands.
func NewCommitter(cfg config.OutputConfig, logger *slog.Logger) (*Committer, error) {
	clipboard, err := config.ParseArgv(cfg.ClipboardCmd)
	if err != nil {
		return nil, fmt.Errorf("parse clipboard command: %w", err)
	}
	typeCmd, err := config.ParseArgv(cfg.TypeCmd)
	if err != nil {
		return nil, fmt.Errorf("parse type command: %w", err)
	}
	if cfg.AutoType && len(typeCmd) == 0 {
		return nil, fmt.Errorf("auto_type enabled without a type command")
	}

	c := &Committer{
		clipboard: clipboard,
		typeCmd:   typeCmd,
		autoType:  cfg.AutoType,
		logger:    logger,
	}
	c.autoEnter.Store(cfg.AutoEnter)
	return c, nil
}

// SetAutoEnter flips the trailing-newline behavior at runtime.
func (c *Committer) SetAutoEnter(enabled bool) {
	c.autoEnter.Store(enabled)
}

// AutoEnter reports the current trailing-newline behavior.
func (c *Committer) AutoEnter() bool {
	return c.autoEnter.Load()
}

// Commit copies the transcript to the clipboard and optionally types it.
// Typing failures are logged, not returned; the clipboard copy already
// succeeded and the text is recoverable.
func (c *Committer) Commit(ctx context.Context, transcript string) error {
	if transcript == "" {
		return nil
	}

	if len(c.clipboard) > 0 {
		clipboardCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := runCommandWithInput(clipboardCtx, c.clipboard, transcript); err != nil {
			return fmt.Errorf("set clipboard: %w", err)
		}
	}

	if !c.autoType || len(c.typeCmd) == 0 {
		return nil
	}

	payload := transcript
	if c.autoEnter.Load() {
		payload += "\n"
	}

	typeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := runCommandWithInput(typeCtx, c.typeCmd, payload); err != nil {
		if c.logger != nil {
			c.logger.Error("type dispatch failed; clipboard remains set", "error", err.Error())
		}
	}
	return nil
}

// runCommandWithInput executes argv and optionally writes input to stdin.
func runCommandWithInput(ctx context.Context, argv []string, input string) error {
	if len(argv) == 0 {
		return fmt.Errorf("command argv cannot be empty")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("open stdin for %s: %w", argv[0], err)
	}

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return fmt.Errorf("start command %s: %w", argv[0], err)
	}

	if input != "" {
		if _, err := stdin.Write([]byte(input)); err != nil {
			_ = stdin.Close()
			_ = cmd.Wait()
			return fmt.Errorf("write stdin for %s: %w", argv[0], err)
		}
	}
	_ = stdin.Close()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait for %s: %w", argv[0], err)
	}
	return nil
}
