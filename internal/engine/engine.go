// Package engine is the serialized control loop behind the command socket.
// It owns the session state machine, feeds sealed chunks to the worker
// pool, and assembles ordered transcripts.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/quillvoice/quill/internal/asr"
	"github.com/quillvoice/quill/internal/audio"
	"github.com/quillvoice/quill/internal/chunker"
	"github.com/quillvoice/quill/internal/config"
	"github.com/quillvoice/quill/internal/fsm"
	"github.com/quillvoice/quill/internal/history"
	"github.com/quillvoice/quill/internal/ipc"
	"github.com/quillvoice/quill/internal/metrics"
	"github.com/quillvoice/quill/internal/output"
	"github.com/quillvoice/quill/internal/pipeline"
)

// CaptureSource is the live audio stream a session records from.
type CaptureSource interface {
	Frames() <-chan []int16
	Stop() error
}

// CaptureStarter opens a capture source. Tests substitute synthetic sources.
type CaptureStarter func(ctx context.Context) (CaptureSource, error)

// PulseStarter resolves the configured device and opens a Pulse stream.
func PulseStarter(cfg config.AudioConfig, logger *slog.Logger) CaptureStarter {
	return func(ctx context.Context) (CaptureSource, error) {
		selection, err := audio.SelectDevice(ctx, cfg.Input, cfg.Fallback)
		if err != nil {
			return nil, err
		}
		if selection.Warning != "" {
			logger.Warn(selection.Warning)
		}
		return audio.StartCapture(ctx, selection.Device)
	}
}

// Options bundles the engine's collaborators.
type Options struct {
	Config       config.Config
	Logger       *slog.Logger
	Metrics      *metrics.Metrics
	Recognizer   asr.Recognizer
	Committer    *output.Committer
	History      *history.Store // nil disables the archive
	StartCapture CaptureStarter
	TempDir      string
}

type commandEnvelope struct {
	req   ipc.Request
	reply chan ipc.Response
}

// sealedEnvelope carries one persisted chunk into the control loop. The
// recorder's exit notice travels as an envelope with recorderExit set, on the
// same channel, so it can never overtake a chunk sealed before it.
type sealedEnvelope struct {
	sessionID  int64
	epoch      int64
	chunk      chunker.Sealed
	path       string
	persistErr error

	recorderExit bool
}

// Engine is the single process-wide control instance. All session and
// assembler state is owned by the Run goroutine; everything else reaches it
// through channels.
type Engine struct {
	cfg     config.Config
	logger  *slog.Logger
	metrics *metrics.Metrics

	recognizer   asr.Recognizer
	pool         *pipeline.Pool
	committer    *output.Committer
	store        *history.Store
	startCapture CaptureStarter
	tempDir      string

	commands chan commandEnvelope
	chunks   chan sealedEnvelope
	epoch    atomic.Int64

	// Run-loop owned state.
	state       fsm.State
	session     *session
	lastSession int64
	languageIdx int
	realtime    bool
}

// New assembles an engine. Run must be called before Handle is useful.
func New(opts Options) *Engine {
	e := &Engine{
		cfg:          opts.Config,
		logger:       opts.Logger,
		metrics:      opts.Metrics,
		recognizer:   opts.Recognizer,
		committer:    opts.Committer,
		store:        opts.History,
		startCapture: opts.StartCapture,
		tempDir:      opts.TempDir,
		commands:     make(chan commandEnvelope),
		chunks:       make(chan sealedEnvelope, 16),
		state:        fsm.StateIdle,
	}
	e.pool = pipeline.NewPool(opts.Recognizer, opts.Config.Pipeline.Workers, opts.Config.Pipeline.QueueSize, opts.Logger, opts.Metrics)
	return e
}

// Handle implements ipc.Handler by forwarding one command into the control
// loop and waiting for its response.
func (e *Engine) Handle(ctx context.Context, req ipc.Request) ipc.Response {
	env := commandEnvelope{req: req, reply: make(chan ipc.Response, 1)}
	select {
	case e.commands <- env:
	case <-ctx.Done():
		return ipc.Response{OK: false, Error: "engine shutting down"}
	}
	select {
	case resp := <-env.reply:
		return resp
	case <-ctx.Done():
		return ipc.Response{OK: false, Error: "engine shutting down"}
	}
}

// Run processes commands, sealed chunks, and worker results until QUIT or
// context cancellation. It is the only goroutine that mutates session state.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("engine started",
		slog.String("language", e.language()),
		slog.Int("workers", e.cfg.Pipeline.Workers),
	)

	defer e.teardown()

	for {
		select {
		case <-ctx.Done():
			return nil

		case env := <-e.commands:
			quit := e.handleCommand(ctx, env)
			if quit {
				return nil
			}

		case sealed := <-e.chunks:
			e.handleSealed(ctx, sealed)

		case result, ok := <-e.pool.Results():
			if !ok {
				continue
			}
			e.handleResult(ctx, result)
		}
	}
}

func (e *Engine) teardown() {
	if e.session != nil {
		_ = e.session.capture.Stop()
		e.session = nil
	}
	// Stop intake; queued chunks are discarded, not awaited.
	e.pool.Close()
	e.logger.Info("engine stopped")
}

// language returns the active transcription language code.
func (e *Engine) language() string {
	languages := e.cfg.ASR.Languages
	if len(languages) == 0 {
		return ""
	}
	return languages[e.languageIdx%len(languages)]
}

// splitInterval returns the live chunk duration cap for the current mode.
func (e *Engine) splitInterval() time.Duration {
	if e.realtime {
		return e.cfg.Chunker.RealtimeSplitIntervalDuration()
	}
	return e.cfg.Chunker.SplitIntervalDuration()
}

func (e *Engine) statusMessage() string {
	sessionID := int64(0)
	pending := 0
	if e.session != nil {
		sessionID = e.session.id
		pending = e.session.pending
	}
	return fmt.Sprintf("session=%d pending=%d language=%s realtime=%t auto_enter=%t",
		sessionID, pending, e.language(), e.realtime, e.committer.AutoEnter())
}

func (e *Engine) ok(message string) ipc.Response {
	return ipc.Response{OK: true, State: string(e.state), Message: message}
}

func (e *Engine) reject(format string, args ...any) ipc.Response {
	err := fmt.Sprintf(format, args...)
	e.logger.Warn("command rejected", slog.String("state", string(e.state)), slog.String("error", err))
	return ipc.Response{OK: false, State: string(e.state), Error: err}
}

// deliver commits the finished transcript and archives the session.
func (e *Engine) deliver(ctx context.Context, s *session) {
	text := s.assembler.Text()
	failed := s.assembler.FailedChunks()

	e.logger.Info("transcript assembled",
		slog.Int64("session", s.id),
		slog.Int("chunks", s.chunks),
		slog.Int("failed_chunks", failed),
		slog.Int("length", len(text)),
	)

	if text != "" {
		if err := e.committer.Commit(ctx, text); err != nil {
			e.logger.Error("transcript delivery failed", slog.Int64("session", s.id), slog.String("error", err.Error()))
		} else if e.metrics != nil {
			e.metrics.TranscriptsDelivered.Inc()
			e.metrics.TranscriptLengthChars.Observe(float64(len(text)))
		}
	}

	if s.chunks == 0 && text == "" {
		return
	}

	if e.store != nil {
		_, err := e.store.Insert(ctx, history.Entry{
			StartedAt:    s.startedAt,
			CompletedAt:  time.Now().UTC(),
			Language:     s.language,
			Chunks:       s.chunks,
			FailedChunks: failed,
			DurationSec:  s.recordedSeconds,
			Transcript:   text,
		})
		if err != nil {
			e.logger.Error("history insert failed", slog.Int64("session", s.id), slog.String("error", err.Error()))
		}
	}

	if e.metrics != nil {
		e.metrics.SessionsCompleted.Inc()
	}
}

// submit hands one persisted chunk to the worker pool. The language is the
// one the session was started with, not the live toggle state.
func (e *Engine) submit(ctx context.Context, s *session, env sealedEnvelope) error {
	language := s.language
	return e.pool.Submit(ctx, pipeline.Job{
		SessionID: env.sessionID,
		Epoch:     env.epoch,
		Seq:       env.chunk.Seq,
		AudioPath: env.path,
		Language:  language,
		Task:      asr.TaskFor(language, e.cfg.ASR.NativeLanguages),
	})
}
