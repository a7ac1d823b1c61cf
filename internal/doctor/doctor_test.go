package doctor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quillvoice/quill/internal/config"
)

func TestReportOKAndString(t *testing.T) {
	report := Report{Checks: []Check{
		{Name: "one", Pass: true, Message: "good"},
		{Name: "two", Pass: false, Message: "bad"},
	}}

	require.False(t, report.OK())
	text := report.String()
	require.Contains(t, text, "[OK] one: good")
	require.Contains(t, text, "[FAIL] two: bad")
}

func TestCheckArgvEmpty(t *testing.T) {
	check := checkArgv("", "output.clipboard_cmd")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "command is empty")
}

func TestCheckArgvMissingBinary(t *testing.T) {
	check := checkArgv("definitely-not-a-real-binary --flag", "output.clipboard_cmd")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "binary not found")
}

func TestCheckArgvUsesBinaryFromPath(t *testing.T) {
	dir := t.TempDir()
	scriptPath := filepath.Join(dir, "fake-bin")
	require.NoError(t, os.WriteFile(scriptPath, []byte("#!/bin/sh\nexit 0\n"), 0o755))
	t.Setenv("PATH", dir+":"+os.Getenv("PATH"))

	check := checkArgv("fake-bin --arg", "output.clipboard_cmd")
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "found at")
}

func TestCheckArgvBadQuoting(t *testing.T) {
	check := checkArgv(`sh "unterminated`, "asr.command")
	require.False(t, check.Pass)
}

func TestCheckTempDirWritable(t *testing.T) {
	check := checkTempDir(filepath.Join(t.TempDir(), "chunks"))
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "writable")
}

func TestCheckEndpointReachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// The transcriptions endpoint rejects GETs; reachability is enough.
		w.WriteHeader(http.StatusMethodNotAllowed)
	}))
	t.Cleanup(server.Close)

	check := checkEndpoint(context.Background(), server.URL+"/v1/audio/transcriptions")
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "HTTP 405")
}

func TestCheckEndpointUnreachable(t *testing.T) {
	check := checkEndpoint(context.Background(), "http://127.0.0.1:1/v1/audio/transcriptions")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "request failed")
}

func TestCheckEndpointInvalid(t *testing.T) {
	check := checkEndpoint(context.Background(), ":::not-a-url")
	require.False(t, check.Pass)
}

func TestCheckBackendExec(t *testing.T) {
	cfg := config.Default().ASR
	cfg.Backend = "exec"
	cfg.Command = "sh -c true"

	check := checkBackend(context.Background(), cfg)
	require.True(t, check.Pass)
}

func TestCheckBackendUnknown(t *testing.T) {
	cfg := config.Default().ASR
	cfg.Backend = "smoke-signals"

	check := checkBackend(context.Background(), cfg)
	require.False(t, check.Pass)
}

func TestCheckGRPCHealthUnreachable(t *testing.T) {
	check := checkGRPCHealth(context.Background(), "127.0.0.1:1")
	require.False(t, check.Pass)
}
