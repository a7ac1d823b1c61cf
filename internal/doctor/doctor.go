// Package doctor runs runtime readiness diagnostics for config, tools,
// audio, storage, and the recognition backend.
package doctor

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/quillvoice/quill/internal/audio"
	"github.com/quillvoice/quill/internal/config"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(ctx context.Context, cfg config.Config, configPath string) Report {
	checks := []Check{}

	checks = append(checks, Check{
		Name:    "config",
		Pass:    true,
		Message: fmt.Sprintf("loaded %q", configPath),
	})

	checks = append(checks, checkArgv(cfg.Output.ClipboardCmd, "output.clipboard_cmd"))
	if cfg.Output.AutoType {
		checks = append(checks, checkArgv(cfg.Output.TypeCmd, "output.type_cmd"))
	}

	if tempDir, err := cfg.TempDir(); err != nil {
		checks = append(checks, Check{Name: "storage.temp_dir", Pass: false, Message: err.Error()})
	} else {
		checks = append(checks, checkTempDir(tempDir))
	}
	checks = append(checks, checkAudioSelection(ctx, cfg))
	checks = append(checks, checkBackend(ctx, cfg.ASR))

	if cfg.ASR.GRPCHealth != "" {
		checks = append(checks, checkGRPCHealth(ctx, cfg.ASR.GRPCHealth))
	}

	return Report{Checks: checks}
}

// checkArgv validates that a configured command parses and is runnable.
func checkArgv(command, name string) Check {
	argv, err := config.ParseArgv(command)
	if err != nil {
		return Check{Name: name, Pass: false, Message: err.Error()}
	}
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}

	path, err := exec.LookPath(argv[0])
	if err != nil {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", argv[0])}
	}
	return Check{Name: name, Pass: true, Message: fmt.Sprintf("found at %s", path)}
}

// checkTempDir verifies chunk storage is writable.
func checkTempDir(dir string) Check {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return Check{Name: "storage.temp_dir", Pass: false, Message: err.Error()}
	}
	probe := filepath.Join(dir, ".doctor-probe")
	if err := os.WriteFile(probe, []byte("ok"), 0o600); err != nil {
		return Check{Name: "storage.temp_dir", Pass: false, Message: err.Error()}
	}
	_ = os.Remove(probe)
	return Check{Name: "storage.temp_dir", Pass: true, Message: fmt.Sprintf("writable at %s", dir)}
}

// checkAudioSelection runs live device selection to surface selection/fallback issues.
func checkAudioSelection(ctx context.Context, cfg config.Config) Check {
	selection, err := audio.SelectDevice(ctx, cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

// checkBackend probes the configured recognition backend.
func checkBackend(ctx context.Context, cfg config.ASRConfig) Check {
	switch cfg.Backend {
	case "http":
		return checkEndpoint(ctx, cfg.Endpoint)
	case "exec":
		return checkArgv(cfg.Command, "asr.command")
	default:
		return Check{Name: "asr.backend", Pass: false, Message: fmt.Sprintf("unknown backend %q", cfg.Backend)}
	}
}

// checkEndpoint verifies the transcription server answers at all. Any HTTP
// status counts as reachable; the endpoint only accepts POSTs.
func checkEndpoint(ctx context.Context, endpoint string) Check {
	parsed, err := url.Parse(endpoint)
	if err != nil || parsed.Host == "" {
		return Check{Name: "asr.endpoint", Pass: false, Message: fmt.Sprintf("invalid endpoint %q", endpoint)}
	}

	probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Check{Name: "asr.endpoint", Pass: false, Message: err.Error()}
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return Check{Name: "asr.endpoint", Pass: false, Message: fmt.Sprintf("request failed: %v", err)}
	}
	defer resp.Body.Close()

	return Check{Name: "asr.endpoint", Pass: true, Message: fmt.Sprintf("HTTP %d from %s", resp.StatusCode, parsed.Host)}
}

// checkGRPCHealth probes a gRPC-fronted ASR deployment with the standard
// health service.
func checkGRPCHealth(ctx context.Context, target string) Check {
	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return Check{Name: "asr.grpc_health", Pass: false, Message: err.Error()}
	}
	defer conn.Close()

	probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	resp, err := grpc_health_v1.NewHealthClient(conn).Check(probeCtx, &grpc_health_v1.HealthCheckRequest{})
	if err != nil {
		return Check{Name: "asr.grpc_health", Pass: false, Message: fmt.Sprintf("health check failed: %v", err)}
	}
	if resp.GetStatus() != grpc_health_v1.HealthCheckResponse_SERVING {
		return Check{Name: "asr.grpc_health", Pass: false, Message: fmt.Sprintf("status %s", resp.GetStatus())}
	}
	return Check{Name: "asr.grpc_health", Pass: true, Message: fmt.Sprintf("serving at %s", target)}
}
