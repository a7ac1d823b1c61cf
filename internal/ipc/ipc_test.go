package ipc

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequest(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    Request
		wantErr bool
	}{
		{name: "bare command", line: "TOGGLE_RECORDING\n", want: Request{Command: "TOGGLE_RECORDING"}},
		{name: "bare command with arg", line: "TRANSCRIBE_STATIC /tmp/audio.wav\n", want: Request{Command: "TRANSCRIBE_STATIC", Arg: "/tmp/audio.wav"}},
		{name: "json form", line: `{"command":"STATUS"}`, want: Request{Command: "STATUS"}},
		{name: "json with arg", line: `{"command":"TRANSCRIBE_STATIC","arg":"a.wav"}`, want: Request{Command: "TRANSCRIBE_STATIC", Arg: "a.wav"}},
		{name: "empty line", line: "   \n", wantErr: true},
		{name: "broken json", line: `{"command":`, wantErr: true},
		{name: "json missing command", line: `{"arg":"a.wav"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRequest(tt.line)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func socketPath(t *testing.T) string {
	t.Helper()
	// Unix socket paths have a tight length limit, so avoid deep tmp dirs.
	dir, err := os.MkdirTemp("", "quill-ipc")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	return filepath.Join(dir, "quill.sock")
}

func TestSendRoundtrip(t *testing.T) {
	path := socketPath(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	listener, err := Acquire(ctx, path, 100*time.Millisecond, 1)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, listener, HandlerFunc(func(_ context.Context, req Request) Response {
			return Response{OK: true, State: "IDLE", Message: req.Command}
		}))
	}()

	resp, err := Send(ctx, path, Request{Command: "STATUS"}, time.Second)
	require.NoError(t, err)
	assert.True(t, resp.OK)
	assert.Equal(t, "IDLE", resp.State)
	assert.Equal(t, "STATUS", resp.Message)

	cancel()
	require.NoError(t, <-done)
}

func TestSendBareLine(t *testing.T) {
	path := socketPath(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	listener, err := Acquire(ctx, path, 100*time.Millisecond, 1)
	require.NoError(t, err)
	go func() {
		_ = Serve(ctx, listener, HandlerFunc(func(_ context.Context, req Request) Response {
			return Response{OK: true, Message: req.Command + "|" + req.Arg}
		}))
	}()

	conn, err := net.Dial("unix", path)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("TRANSCRIBE_STATIC /tmp/a.wav\n"))
	require.NoError(t, err)

	buf := make([]byte, 256)
	n, err := conn.Read(buf)
	require.NoError(t, err)
	assert.Contains(t, string(buf[:n]), "TRANSCRIBE_STATIC|/tmp/a.wav")
}

func TestSendNotRunning(t *testing.T) {
	path := socketPath(t)

	_, err := Send(context.Background(), path, Request{Command: "STATUS"}, 100*time.Millisecond)
	require.ErrorIs(t, err, ErrNotRunning)
}

func TestAcquireReclaimsStaleSocket(t *testing.T) {
	path := socketPath(t)

	// A crashed engine leaves its socket path behind with nothing
	// listening. bind still fails on it, so Acquire must probe and
	// reclaim.
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	ctx := context.Background()
	reclaimed, err := Acquire(ctx, path, 100*time.Millisecond, 2)
	require.NoError(t, err)
	defer reclaimed.Close()
}

func TestAcquireRefusesLiveEngine(t *testing.T) {
	path := socketPath(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	listener, err := Acquire(ctx, path, 200*time.Millisecond, 1)
	require.NoError(t, err)
	go func() {
		_ = Serve(ctx, listener, HandlerFunc(func(context.Context, Request) Response {
			return Response{OK: true, State: "IDLE"}
		}))
	}()

	_, err = Acquire(ctx, path, 200*time.Millisecond, 1)
	require.ErrorIs(t, err, ErrAlreadyRunning)
}
