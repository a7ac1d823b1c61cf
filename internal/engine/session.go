package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/quillvoice/quill/internal/asr"
	"github.com/quillvoice/quill/internal/chunker"
	"github.com/quillvoice/quill/internal/fsm"
	"github.com/quillvoice/quill/internal/pipeline"
	"github.com/quillvoice/quill/internal/transcript"
	"github.com/quillvoice/quill/internal/wav"
)

// session is one recording/transcription cycle. Owned by the Run loop.
type session struct {
	id    int64
	epoch int64

	startedAt time.Time
	language  string

	chunker   *chunker.Chunker
	capture   CaptureSource
	assembler *transcript.Assembler

	// pending counts chunks handed to the pool whose results have not come
	// back yet. Drain completes when it hits zero after the recorder exits.
	pending        int
	chunks         int
	recorderExited bool

	recordedSeconds float64
}

// startSession allocates the next session, purges the previous session's
// temp files, and begins capture.
func (e *Engine) startSession(ctx context.Context) error {
	if err := e.purgeTempFiles(); err != nil {
		// Unusable temp storage means no chunk can ever persist.
		return fmt.Errorf("prepare temp storage: %w", err)
	}

	source, err := e.startCapture(ctx)
	if err != nil {
		return fmt.Errorf("open audio capture: %w", err)
	}

	epoch := e.epoch.Add(1)
	e.lastSession++

	s := &session{
		id:        e.lastSession,
		epoch:     epoch,
		startedAt: time.Now().UTC(),
		language:  e.language(),
		capture:   source,
		assembler: transcript.NewAssembler(),
		chunker: chunker.New(chunker.Config{
			SampleRate:    e.cfg.Audio.SampleRate,
			Threshold:     e.cfg.Chunker.Threshold,
			SilenceLimit:  e.cfg.Chunker.SilenceLimitDuration(),
			SplitInterval: e.splitInterval(),
		}),
	}
	e.session = s

	go e.recordLoop(s)

	if e.metrics != nil {
		e.metrics.SessionsStarted.Inc()
	}
	e.logger.Info("session started",
		slog.Int64("session", s.id),
		slog.String("language", s.language),
		slog.Bool("realtime", e.realtime),
	)
	return nil
}

// recordLoop drains capture frames into the chunker and persists sealed
// chunks. It runs outside the control loop so device reads never wait on
// command handling.
func (e *Engine) recordLoop(s *session) {
	for frame := range s.capture.Frames() {
		epoch := e.epoch.Load()
		for _, sealed := range s.chunker.Feed(frame) {
			e.emitChunk(s.id, epoch, sealed)
		}
	}

	// Capture ended. Seal whatever partial chunk remains; a stale epoch
	// (reset or quit raced us) gets the chunk discarded downstream.
	epoch := e.epoch.Load()
	if final := s.chunker.ForceSeal(); final != nil {
		e.emitChunk(s.id, epoch, *final)
	}
	// The exit notice follows the final chunk on the same channel, so the
	// control loop cannot see the recorder as done while a sealed chunk is
	// still in flight.
	e.chunks <- sealedEnvelope{sessionID: s.id, recorderExit: true}
}

// emitChunk persists one sealed chunk and hands it to the control loop.
func (e *Engine) emitChunk(sessionID, epoch int64, sealed chunker.Sealed) {
	path := filepath.Join(e.tempDir, chunkFileName(sessionID, sealed.Seq))
	err := wav.WriteFile(path, sealed.Samples, e.cfg.Audio.SampleRate)
	e.chunks <- sealedEnvelope{
		sessionID:  sessionID,
		epoch:      epoch,
		chunk:      sealed,
		path:       path,
		persistErr: err,
	}
}

func chunkFileName(sessionID int64, seq int) string {
	return fmt.Sprintf("session%d_chunk%d.wav", sessionID, seq)
}

// handleSealed runs in the control loop for every persisted chunk and for
// the recorder's trailing exit notice.
func (e *Engine) handleSealed(ctx context.Context, env sealedEnvelope) {
	if env.recorderExit {
		e.handleRecorderDone(ctx, env.sessionID)
		return
	}

	s := e.session
	if s == nil || env.sessionID != s.id || env.epoch != s.epoch {
		// Sealed after a reset or quit. The file stays on disk until the
		// next session start, like every other dead chunk.
		return
	}

	if env.persistErr != nil {
		// The chunk's audio is gone; resolve its slot with nothing so
		// later chunks are not blocked, and keep the session going.
		e.logger.Error("chunk persist failed",
			slog.Int64("session", s.id),
			slog.Int("seq", env.chunk.Seq),
			slog.String("error", env.persistErr.Error()),
		)
		s.assembler.Add(transcript.Result{Seq: env.chunk.Seq})
		return
	}

	s.chunks++
	s.recordedSeconds = env.chunk.End.Seconds()
	if e.metrics != nil {
		e.metrics.ChunksSealed.WithLabelValues(string(env.chunk.Reason)).Inc()
		e.metrics.ChunkDuration.Observe((env.chunk.End - env.chunk.Start).Seconds())
	}

	if err := e.submit(ctx, s, env); err != nil {
		e.logger.Error("chunk submit failed",
			slog.Int64("session", s.id),
			slog.Int("seq", env.chunk.Seq),
			slog.String("error", err.Error()),
		)
		s.assembler.Add(transcript.Result{Seq: env.chunk.Seq, Failed: true})
		return
	}
	s.pending++
}

// handleResult runs in the control loop for every worker outcome.
func (e *Engine) handleResult(ctx context.Context, result pipeline.Result) {
	s := e.session
	if s == nil || result.SessionID != s.id || result.Epoch != s.epoch {
		if e.metrics != nil {
			e.metrics.StaleResultsDiscarded.Inc()
		}
		e.logger.Debug("stale result discarded",
			slog.Int64("session", result.SessionID),
			slog.Int("seq", result.Seq),
		)
		return
	}

	s.pending--
	s.assembler.Add(transcript.Result{Seq: result.Seq, Text: result.Text, Failed: result.Failed})
	if result.Failed {
		e.logger.Warn("chunk marked inaudible",
			slog.Int64("session", s.id),
			slog.Int("seq", result.Seq),
			slog.String("error", result.Err.Error()),
		)
	}

	e.maybeFinish(ctx)
}

// handleRecorderDone runs once the session's capture goroutine has exited
// and every chunk it sealed has already passed through handleSealed.
func (e *Engine) handleRecorderDone(ctx context.Context, sessionID int64) {
	s := e.session
	if s == nil || sessionID != s.id {
		return
	}
	s.recorderExited = true

	if e.state == fsm.StateRecording {
		// Capture died underneath an active session: device failure.
		e.logger.Error("audio capture ended unexpectedly", slog.Int64("session", s.id))
		e.abortSession()
		return
	}

	e.maybeFinish(ctx)
}

// maybeFinish completes the STOPPING drain once the recorder has exited and
// every submitted chunk has a result.
func (e *Engine) maybeFinish(ctx context.Context) {
	s := e.session
	if s == nil || e.state != fsm.StateStopping || !s.recorderExited || s.pending > 0 {
		return
	}

	next, err := fsm.Transition(e.state, fsm.EventDrained)
	if err != nil {
		e.logger.Error("drain transition failed", slog.String("error", err.Error()))
		return
	}
	e.state = next

	e.deliver(ctx, s)

	next, err = fsm.Transition(e.state, fsm.EventDelivered)
	if err != nil {
		e.logger.Error("delivery transition failed", slog.String("error", err.Error()))
	} else {
		e.state = next
	}
	e.session = nil
}

// resetSession discards everything accumulated for the current session
// without touching capture. Stale chunks and results are fenced off by the
// epoch bump.
func (e *Engine) resetSession(ctx context.Context) {
	s := e.session
	s.epoch = e.epoch.Add(1)
	// Frames still buffered in the capture channel were recorded before the
	// reset and must not surface under the new epoch.
drain:
	for {
		select {
		case _, ok := <-s.capture.Frames():
			if !ok {
				break drain
			}
		default:
			break drain
		}
	}
	s.chunker.Reset()
	s.assembler.Reset()
	s.pending = 0
	s.chunks = 0
	s.recordedSeconds = 0

	if e.metrics != nil {
		e.metrics.SessionsReset.Inc()
	}
	e.logger.Info("transcription reset", slog.Int64("session", s.id))

	// A reset while draining has nothing left to wait for.
	e.maybeFinish(ctx)
}

// abortSession drops the current session and returns to idle.
func (e *Engine) abortSession() {
	s := e.session
	if s == nil {
		return
	}
	e.epoch.Add(1)
	_ = s.capture.Stop()
	e.session = nil

	next, err := fsm.Transition(e.state, fsm.EventAbort)
	if err == nil {
		e.state = next
	}
}

// purgeTempFiles removes every chunk file from previous sessions. Removing
// an already-clean directory is a no-op, so repeated purges are safe.
func (e *Engine) purgeTempFiles() error {
	if err := os.MkdirAll(e.tempDir, 0o700); err != nil {
		return err
	}
	stale, err := filepath.Glob(filepath.Join(e.tempDir, "session*_chunk*.wav"))
	if err != nil {
		return err
	}
	for _, path := range stale {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// runStatic transcribes a pre-existing audio file outside the live session.
// It runs in its own goroutine; completion is logged and committed, never
// blocking the control loop.
func (e *Engine) runStatic(path string) {
	language := e.language()
	task := asr.TaskFor(language, e.cfg.ASR.NativeLanguages)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), e.cfg.ASR.Timeout()+10*time.Second)
		defer cancel()

		text, err := e.recognizer.Transcribe(ctx, asr.Request{AudioPath: path, Language: language, Task: task})
		if err != nil {
			e.logger.Error("static transcription failed",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
			return
		}
		if err := e.committer.Commit(ctx, text); err != nil {
			e.logger.Error("static transcript delivery failed",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
			return
		}
		e.logger.Info("static transcription delivered",
			slog.String("path", path),
			slog.Int("length", len(text)),
		)
	}()
}
