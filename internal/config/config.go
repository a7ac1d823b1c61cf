// Package config loads, defaults, and validates the quill runtime
// configuration.
package config

import "time"

// Config is the fully materialized runtime configuration.
type Config struct {
	Socket   string         `yaml:"socket"`
	Audio    AudioConfig    `yaml:"audio"`
	Chunker  ChunkerConfig  `yaml:"chunker"`
	ASR      ASRConfig      `yaml:"asr"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Output   OutputConfig   `yaml:"output"`
	Storage  StorageConfig  `yaml:"storage"`
	History  HistoryConfig  `yaml:"history"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	UI       UIConfig       `yaml:"ui"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// AudioConfig controls input-source selection and capture format.
type AudioConfig struct {
	Input      string `yaml:"input"`
	Fallback   string `yaml:"fallback"`
	SampleRate int    `yaml:"sample_rate"`
}

// ChunkerConfig controls boundary detection. Durations are in seconds.
type ChunkerConfig struct {
	Threshold             int     `yaml:"threshold"`
	SilenceLimit          float64 `yaml:"silence_limit"`
	SplitInterval         float64 `yaml:"split_interval"`
	RealtimeSplitInterval float64 `yaml:"realtime_split_interval"`
}

func (c ChunkerConfig) SilenceLimitDuration() time.Duration {
	return secondsToDuration(c.SilenceLimit)
}

func (c ChunkerConfig) SplitIntervalDuration() time.Duration {
	return secondsToDuration(c.SplitInterval)
}

func (c ChunkerConfig) RealtimeSplitIntervalDuration() time.Duration {
	return secondsToDuration(c.RealtimeSplitInterval)
}

// ASRConfig controls the speech-recognition backend.
type ASRConfig struct {
	Backend string `yaml:"backend"` // "http" or "exec"
	// Endpoint is the whisper-server style HTTP endpoint for the http backend.
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	// Command is the argv line run per chunk by the exec backend.
	Command string `yaml:"command"`
	// Languages is the ordered cycle TOGGLE_LANGUAGE walks through.
	Languages []string `yaml:"languages"`
	// NativeLanguages transcribe as-is; anything else is translated to English.
	NativeLanguages []string `yaml:"native_languages"`
	TimeoutSeconds  int      `yaml:"timeout"`
	// Hallucinations are regex patterns scrubbed from recognized text.
	Hallucinations []string `yaml:"hallucinations"`
	// GRPCHealth, when set, is a host:port the doctor probes with the
	// standard gRPC health service (Riva/Triton style deployments).
	GRPCHealth string `yaml:"grpc_health"`
}

func (c ASRConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// PipelineConfig bounds the transcription worker pool.
type PipelineConfig struct {
	Workers   int `yaml:"workers"`
	QueueSize int `yaml:"queue_size"`
}

// OutputConfig controls transcript delivery side effects.
type OutputConfig struct {
	ClipboardCmd string `yaml:"clipboard_cmd"`
	TypeCmd      string `yaml:"type_cmd"`
	AutoType     bool   `yaml:"auto_type"`
	AutoEnter    bool   `yaml:"auto_enter"`
}

// StorageConfig controls where per-session chunk WAV files live.
type StorageConfig struct {
	TempDir string `yaml:"temp_dir"`
}

// HistoryConfig controls the completed-session store.
type HistoryConfig struct {
	Enable bool   `yaml:"enable"`
	Path   string `yaml:"path"`
}

// MetricsConfig controls the optional Prometheus listener.
type MetricsConfig struct {
	Enable bool   `yaml:"enable"`
	Listen string `yaml:"listen"`
}

// UIConfig names external commands launched for menu/dialog requests.
type UIConfig struct {
	ConfigCmd      string `yaml:"config_cmd"`
	LanguageCmd    string `yaml:"language_cmd"`
	AudioSourceCmd string `yaml:"audio_source_cmd"`
}

// LoggingConfig controls the runtime log sink.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns the canonical configuration used when no file is present.
func Default() Config {
	return Config{
		Audio: AudioConfig{
			Input:      "default",
			Fallback:   "default",
			SampleRate: 16000,
		},
		Chunker: ChunkerConfig{
			Threshold:             500,
			SilenceLimit:          1.5,
			SplitInterval:         60,
			RealtimeSplitInterval: 5,
		},
		ASR: ASRConfig{
			Backend:         "http",
			Endpoint:        "http://127.0.0.1:9090/v1/audio/transcriptions",
			Model:           "Systran/faster-whisper-large-v3",
			Languages:       []string{"el", "en"},
			NativeLanguages: []string{"en", "el"},
			TimeoutSeconds:  60,
		},
		Pipeline: PipelineConfig{
			Workers:   1,
			QueueSize: 32,
		},
		Output: OutputConfig{
			ClipboardCmd: "wl-copy --trim-newline",
			TypeCmd:      "wtype -",
			AutoType:     true,
			AutoEnter:    false,
		},
		History: HistoryConfig{Enable: true},
		Metrics: MetricsConfig{Listen: "127.0.0.1:9109"},
		Logging: LoggingConfig{Level: "info"},
	}
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
