// Package asr turns chunk WAV files into text through a pluggable
// speech-recognition backend.
package asr

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/quillvoice/quill/internal/config"
)

// Tasks accepted by whisper-family backends.
const (
	TaskTranscribe = "transcribe"
	TaskTranslate  = "translate"
)

// Request identifies one audio file to recognize.
type Request struct {
	AudioPath string
	Language  string
	Task      string
}

// Recognizer converts one audio file into plain text.
type Recognizer interface {
	Transcribe(ctx context.Context, req Request) (string, error)
}

// TaskFor picks transcribe or translate for a language. Languages outside
// the native set are translated to English, matching whisper task semantics.
func TaskFor(language string, native []string) string {
	if slices.Contains(native, language) {
		return TaskTranscribe
	}
	return TaskTranslate
}

// New builds the configured backend wrapped with hallucination scrubbing.
func New(cfg config.ASRConfig) (Recognizer, error) {
	scrubber, err := NewScrubber(cfg.Hallucinations)
	if err != nil {
		return nil, fmt.Errorf("compile hallucination patterns: %w", err)
	}

	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	var backend Recognizer
	switch cfg.Backend {
	case "http":
		backend = NewHTTP(HTTPConfig{
			Endpoint: cfg.Endpoint,
			APIKey:   cfg.APIKey,
			Model:    cfg.Model,
			Timeout:  timeout,
		})
	case "exec":
		backend, err = NewExec(cfg.Command, timeout)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown asr backend %q", cfg.Backend)
	}

	return &scrubbed{backend: backend, scrubber: scrubber}, nil
}

// scrubbed post-processes backend output before it reaches the assembler.
type scrubbed struct {
	backend  Recognizer
	scrubber *Scrubber
}

func (s *scrubbed) Transcribe(ctx context.Context, req Request) (string, error) {
	text, err := s.backend.Transcribe(ctx, req)
	if err != nil {
		return "", err
	}
	return s.scrubber.Clean(text), nil
}
