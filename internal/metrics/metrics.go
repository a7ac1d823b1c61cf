// Package metrics exposes engine counters on an optional Prometheus listener.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every engine collector on its own registry so tests can
// build as many instances as they like.
type Metrics struct {
	registry *prometheus.Registry

	SessionsStarted   prometheus.Counter
	SessionsCompleted prometheus.Counter
	SessionsReset     prometheus.Counter

	ChunksSealed  *prometheus.CounterVec
	ChunkDuration prometheus.Histogram

	TranscriptionAttempts prometheus.Counter
	TranscriptionFailures prometheus.Counter
	TranscriptionRetries  prometheus.Counter
	TranscriptionDuration prometheus.Histogram
	PipelineQueueDepth    prometheus.Gauge
	StaleResultsDiscarded prometheus.Counter
	TranscriptsDelivered  prometheus.Counter
	TranscriptLengthChars prometheus.Histogram
}

// New builds a metrics set on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		SessionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "quill_sessions_started_total",
			Help: "Recording sessions started.",
		}),
		SessionsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "quill_sessions_completed_total",
			Help: "Recording sessions that reached transcript delivery.",
		}),
		SessionsReset: factory.NewCounter(prometheus.CounterOpts{
			Name: "quill_sessions_reset_total",
			Help: "Mid-session transcription resets.",
		}),
		ChunksSealed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "quill_chunks_sealed_total",
			Help: "Chunks sealed, labeled by boundary trigger.",
		}, []string{"reason"}),
		ChunkDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "quill_chunk_duration_seconds",
			Help:    "Sealed chunk durations in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
		TranscriptionAttempts: factory.NewCounter(prometheus.CounterOpts{
			Name: "quill_transcription_attempts_total",
			Help: "Chunk transcription attempts, including retries.",
		}),
		TranscriptionFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "quill_transcription_failures_total",
			Help: "Chunks that exhausted retries and were marked failed.",
		}),
		TranscriptionRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "quill_transcription_retries_total",
			Help: "Chunk transcription retry attempts.",
		}),
		TranscriptionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "quill_transcription_duration_seconds",
			Help:    "Per-chunk recognition latency in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		PipelineQueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "quill_pipeline_queue_depth",
			Help: "Chunks waiting for a transcription worker.",
		}),
		StaleResultsDiscarded: factory.NewCounter(prometheus.CounterOpts{
			Name: "quill_stale_results_discarded_total",
			Help: "Worker results dropped because their session epoch passed.",
		}),
		TranscriptsDelivered: factory.NewCounter(prometheus.CounterOpts{
			Name: "quill_transcripts_delivered_total",
			Help: "Final transcripts handed to the output layer.",
		}),
		TranscriptLengthChars: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "quill_transcript_length_chars",
			Help:    "Delivered transcript lengths in characters.",
			Buckets: prometheus.ExponentialBuckets(16, 2, 12),
		}),
	}
}

// Handler serves this metrics set in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the backing registry for tests and custom handlers.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Serve runs the exposition listener until context cancellation.
func Serve(ctx context.Context, listen string, m *Metrics) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	server := &http.Server{
		Addr:              listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
