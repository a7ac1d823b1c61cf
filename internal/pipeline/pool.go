// Package pipeline runs the asynchronous chunk transcription worker pool.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/quillvoice/quill/internal/asr"
	"github.com/quillvoice/quill/internal/metrics"
)

// Job is one sealed chunk awaiting recognition. SessionID and Epoch travel
// with the job so the control loop can discard results that outlive their
// session.
type Job struct {
	SessionID int64
	Epoch     int64
	Seq       int
	AudioPath string
	Language  string
	Task      string
}

// Result is the terminal outcome of one job. Failed results occupy their
// sequence slot as a gap rather than blocking assembly.
type Result struct {
	SessionID int64
	Epoch     int64
	Seq       int
	Text      string
	Failed    bool
	Err       error
	Attempts  int
	Elapsed   time.Duration
}

// Pool fans jobs out to a fixed set of recognition workers. Chunk order is
// restored downstream by the assembler, so workers never coordinate.
type Pool struct {
	recognizer asr.Recognizer
	logger     *slog.Logger
	metrics    *metrics.Metrics

	jobs    chan Job
	results chan Result

	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewPool sizes the pool. Workers below one and queue sizes below one are
// clamped rather than rejected.
func NewPool(recognizer asr.Recognizer, workers, queueSize int, logger *slog.Logger, m *metrics.Metrics) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}

	pool := &Pool{
		recognizer: recognizer,
		logger:     logger,
		metrics:    m,
		jobs:       make(chan Job, queueSize),
		results:    make(chan Result, queueSize),
	}

	for i := 0; i < workers; i++ {
		pool.wg.Add(1)
		go pool.worker(i)
	}
	go func() {
		pool.wg.Wait()
		close(pool.results)
	}()

	return pool
}

// Submit enqueues one job, blocking until queue space or cancellation.
func (p *Pool) Submit(ctx context.Context, job Job) error {
	select {
	case p.jobs <- job:
		if p.metrics != nil {
			p.metrics.PipelineQueueDepth.Set(float64(len(p.jobs)))
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("submit chunk %d: %w", job.Seq, ctx.Err())
	}
}

// Results streams worker outcomes. The channel closes after Close once all
// in-flight jobs finish.
func (p *Pool) Results() <-chan Result {
	return p.results
}

// Close stops intake. Workers drain whatever was already queued.
func (p *Pool) Close() {
	p.closeOnce.Do(func() { close(p.jobs) })
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for job := range p.jobs {
		if p.metrics != nil {
			p.metrics.PipelineQueueDepth.Set(float64(len(p.jobs)))
		}
		p.results <- p.run(id, job)
	}
}

// run attempts recognition twice before marking the chunk failed.
func (p *Pool) run(workerID int, job Job) Result {
	const maxAttempts = 2

	start := time.Now()
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if p.metrics != nil {
			p.metrics.TranscriptionAttempts.Inc()
			if attempt > 1 {
				p.metrics.TranscriptionRetries.Inc()
			}
		}

		attemptStart := time.Now()
		text, err := p.recognizer.Transcribe(context.Background(), asr.Request{
			AudioPath: job.AudioPath,
			Language:  job.Language,
			Task:      job.Task,
		})
		elapsed := time.Since(attemptStart)
		if p.metrics != nil {
			p.metrics.TranscriptionDuration.Observe(elapsed.Seconds())
		}

		if err == nil {
			p.logger.Debug("chunk transcribed",
				slog.Int("worker", workerID),
				slog.Int64("session", job.SessionID),
				slog.Int("seq", job.Seq),
				slog.Int("attempt", attempt),
				slog.Duration("elapsed", elapsed),
			)
			return Result{
				SessionID: job.SessionID,
				Epoch:     job.Epoch,
				Seq:       job.Seq,
				Text:      text,
				Attempts:  attempt,
				Elapsed:   time.Since(start),
			}
		}

		lastErr = err
		p.logger.Warn("chunk transcription attempt failed",
			slog.Int("worker", workerID),
			slog.Int64("session", job.SessionID),
			slog.Int("seq", job.Seq),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)
	}

	if p.metrics != nil {
		p.metrics.TranscriptionFailures.Inc()
	}
	return Result{
		SessionID: job.SessionID,
		Epoch:     job.Epoch,
		Seq:       job.Seq,
		Failed:    true,
		Err:       lastErr,
		Attempts:  maxAttempts,
		Elapsed:   time.Since(start),
	}
}
