// Package app wires configuration, logging, and the engine into runnable
// top-level commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/quillvoice/quill/internal/asr"
	"github.com/quillvoice/quill/internal/config"
	"github.com/quillvoice/quill/internal/engine"
	"github.com/quillvoice/quill/internal/history"
	"github.com/quillvoice/quill/internal/ipc"
	"github.com/quillvoice/quill/internal/logging"
	"github.com/quillvoice/quill/internal/metrics"
	"github.com/quillvoice/quill/internal/output"
)

// Runner carries shared command context for the CLI layer.
type Runner struct {
	Stdout io.Writer
	Stderr io.Writer

	// ConfigPath is the --config override; empty means XDG resolution.
	ConfigPath string
}

// LoadConfig resolves and parses the runtime configuration.
func (r *Runner) LoadConfig() (config.Loaded, error) {
	return config.Load(r.ConfigPath)
}

// Serve runs the engine until QUIT or signal cancellation.
func (r *Runner) Serve(ctx context.Context) error {
	loaded, err := r.LoadConfig()
	if err != nil {
		return err
	}
	cfg := loaded.Config

	logRuntime, err := logging.New(cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	defer func() { _ = logRuntime.Close() }()
	logger := logRuntime.Logger

	logger.Info("serve starting",
		slog.String("config", loaded.Path),
		slog.Bool("config_exists", loaded.Exists),
		slog.String("log", logRuntime.Path),
	)

	recognizer, err := asr.New(cfg.ASR)
	if err != nil {
		return err
	}

	committer, err := output.NewCommitter(cfg.Output, logger)
	if err != nil {
		return err
	}
	tempDir, err := cfg.TempDir()
	if err != nil {
		return err
	}

	var store *history.Store
	if cfg.History.Enable {
		historyPath, err := cfg.HistoryPath()
		if err != nil {
			return err
		}
		store, err = history.Open(historyPath)
		if err != nil {
			return fmt.Errorf("open history store: %w", err)
		}
		defer func() { _ = store.Close() }()
	}

	socketPath, err := cfg.SocketPath()
	if err != nil {
		return err
	}

	m := metrics.New()

	eng := engine.New(engine.Options{
		Config:       cfg,
		Logger:       logger,
		Metrics:      m,
		Recognizer:   recognizer,
		Committer:    committer,
		History:      store,
		StartCapture: engine.PulseStarter(cfg.Audio, logger),
		TempDir:      tempDir,
	})

	listener, err := ipc.Acquire(ctx, socketPath, 500*time.Millisecond, 2)
	if err != nil {
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			return fmt.Errorf("another quill engine owns %s", socketPath)
		}
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	group, groupCtx := errgroup.WithContext(runCtx)

	group.Go(func() error {
		// Engine exit (QUIT) shuts the socket and metrics listeners down.
		defer cancel()
		return eng.Run(groupCtx)
	})
	group.Go(func() error {
		return ipc.Serve(groupCtx, listener, eng)
	})
	if cfg.Metrics.Enable {
		group.Go(func() error {
			return metrics.Serve(groupCtx, cfg.Metrics.Listen, m)
		})
	}

	fmt.Fprintf(r.Stdout, "quill engine listening on %s\n", socketPath)
	return group.Wait()
}

// Send forwards one command to a running engine and prints the response.
func (r *Runner) Send(ctx context.Context, command, arg string) error {
	loaded, err := r.LoadConfig()
	if err != nil {
		return err
	}
	socketPath, err := loaded.Config.SocketPath()
	if err != nil {
		return err
	}

	resp, err := ipc.Send(ctx, socketPath, ipc.Request{Command: command, Arg: arg}, 5*time.Second)
	if err != nil {
		if errors.Is(err, ipc.ErrNotRunning) {
			return fmt.Errorf("no quill engine running at %s", socketPath)
		}
		return err
	}

	if resp.OK {
		if resp.Message != "" {
			fmt.Fprintf(r.Stdout, "%s (state=%s)\n", resp.Message, resp.State)
		} else {
			fmt.Fprintf(r.Stdout, "ok (state=%s)\n", resp.State)
		}
		return nil
	}
	return fmt.Errorf("%s (state=%s)", resp.Error, resp.State)
}

// History prints the most recent archived sessions.
func (r *Runner) History(ctx context.Context, limit int) error {
	loaded, err := r.LoadConfig()
	if err != nil {
		return err
	}
	historyPath, err := loaded.Config.HistoryPath()
	if err != nil {
		return err
	}

	store, err := history.Open(historyPath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	entries, err := store.Recent(ctx, limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(r.Stdout, "no sessions recorded")
		return nil
	}

	for _, entry := range entries {
		fmt.Fprintf(r.Stdout, "#%d %s lang=%s chunks=%d failed=%d %0.fs\n  %s\n",
			entry.ID,
			entry.CompletedAt.Local().Format("2006-01-02 15:04:05"),
			entry.Language,
			entry.Chunks,
			entry.FailedChunks,
			entry.DurationSec,
			entry.Transcript,
		)
	}
	return nil
}
