package config

import (
	"fmt"
	"regexp"
	"strings"
)

// Validate checks the configuration for values the engine cannot run with.
func (c Config) Validate() error {
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("audio.sample_rate must be positive, got %d", c.Audio.SampleRate)
	}

	if c.Chunker.Threshold < 0 {
		return fmt.Errorf("chunker.threshold must not be negative, got %d", c.Chunker.Threshold)
	}
	if c.Chunker.SilenceLimit <= 0 {
		return fmt.Errorf("chunker.silence_limit must be positive, got %g", c.Chunker.SilenceLimit)
	}
	if c.Chunker.SplitInterval <= 0 {
		return fmt.Errorf("chunker.split_interval must be positive, got %g", c.Chunker.SplitInterval)
	}
	if c.Chunker.RealtimeSplitInterval <= 0 {
		return fmt.Errorf("chunker.realtime_split_interval must be positive, got %g", c.Chunker.RealtimeSplitInterval)
	}

	switch c.ASR.Backend {
	case "http":
		if strings.TrimSpace(c.ASR.Endpoint) == "" {
			return fmt.Errorf("asr.endpoint is required for the http backend")
		}
	case "exec":
		if strings.TrimSpace(c.ASR.Command) == "" {
			return fmt.Errorf("asr.command is required for the exec backend")
		}
	default:
		return fmt.Errorf("asr.backend must be %q or %q, got %q", "http", "exec", c.ASR.Backend)
	}
	if len(c.ASR.Languages) == 0 {
		return fmt.Errorf("asr.languages must list at least one language code")
	}
	for _, pattern := range c.ASR.Hallucinations {
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("asr.hallucinations pattern %q: %w", pattern, err)
		}
	}

	if c.Pipeline.Workers <= 0 {
		return fmt.Errorf("pipeline.workers must be positive, got %d", c.Pipeline.Workers)
	}
	if c.Pipeline.QueueSize <= 0 {
		return fmt.Errorf("pipeline.queue_size must be positive, got %d", c.Pipeline.QueueSize)
	}

	if strings.TrimSpace(c.Output.ClipboardCmd) == "" && !c.Output.AutoType {
		return fmt.Errorf("output requires a clipboard_cmd or auto_type enabled")
	}
	if c.Output.AutoType && strings.TrimSpace(c.Output.TypeCmd) == "" {
		return fmt.Errorf("output.type_cmd is required when auto_type is enabled")
	}

	if c.Metrics.Enable && strings.TrimSpace(c.Metrics.Listen) == "" {
		return fmt.Errorf("metrics.listen is required when metrics are enabled")
	}

	switch strings.ToLower(strings.TrimSpace(c.Logging.Level)) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug/info/warn/error, got %q", c.Logging.Level)
	}

	return nil
}
