package asr

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillvoice/quill/internal/config"
)

func TestTaskFor(t *testing.T) {
	native := []string{"en", "el"}

	assert.Equal(t, TaskTranscribe, TaskFor("en", native))
	assert.Equal(t, TaskTranscribe, TaskFor("el", native))
	assert.Equal(t, TaskTranslate, TaskFor("de", native))
	assert.Equal(t, TaskTranslate, TaskFor("", native))
}

func TestScrubberCleansHallucinations(t *testing.T) {
	scrubber, err := NewScrubber([]string{`(?i)custom junk`})
	require.NoError(t, err)

	tests := []struct {
		in   string
		want string
	}{
		{"hello world", "hello world"},
		{"hello Thanks for watching! world", "hello world"},
		{"Υπότιτλοι AUTHORWAVE", ""},
		{"[MUSIC]", ""},
		{"some custom junk here", "some here"},
		{"  spaced   out  text ", "spaced out text"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, scrubber.Clean(tt.in), "input %q", tt.in)
	}
}

func TestNewScrubberRejectsBadPattern(t *testing.T) {
	_, err := NewScrubber([]string{`([`})
	require.Error(t, err)
}

func writeChunk(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session1_chunk0.wav")
	require.NoError(t, os.WriteFile(path, []byte("RIFFfake"), 0o600))
	return path
}

func TestHTTPTranscribe(t *testing.T) {
	var gotModel, gotLanguage, gotTask, gotAuth string
	var gotFile []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotModel = r.FormValue("model")
		gotLanguage = r.FormValue("language")
		gotTask = r.FormValue("task")
		gotAuth = r.Header.Get("Authorization")

		file, _, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		gotFile, err = io.ReadAll(file)
		require.NoError(t, err)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"  γειά σου κόσμε  "}`))
	}))
	defer server.Close()

	backend := NewHTTP(HTTPConfig{
		Endpoint: server.URL,
		APIKey:   "secret",
		Model:    "faster-whisper-large-v3",
		Timeout:  5 * time.Second,
	})

	text, err := backend.Transcribe(context.Background(), Request{
		AudioPath: writeChunk(t),
		Language:  "el",
		Task:      TaskTranscribe,
	})
	require.NoError(t, err)
	assert.Equal(t, "γειά σου κόσμε", text)
	assert.Equal(t, "faster-whisper-large-v3", gotModel)
	assert.Equal(t, "el", gotLanguage)
	assert.Equal(t, TaskTranscribe, gotTask)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, []byte("RIFFfake"), gotFile)
}

func TestHTTPTranscribeServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	backend := NewHTTP(HTTPConfig{Endpoint: server.URL, Timeout: 5 * time.Second})

	_, err := backend.Transcribe(context.Background(), Request{AudioPath: writeChunk(t)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	assert.Contains(t, err.Error(), "model not loaded")
}

func TestHTTPTranscribeMissingFile(t *testing.T) {
	backend := NewHTTP(HTTPConfig{Endpoint: "http://127.0.0.1:0", Timeout: time.Second})

	_, err := backend.Transcribe(context.Background(), Request{AudioPath: "/nonexistent/chunk.wav"})
	require.Error(t, err)
}

func TestExecTranscribe(t *testing.T) {
	backend, err := NewExec(`sh -c "printf ' hello from cli '"`, 5*time.Second)
	require.NoError(t, err)

	text, err := backend.Transcribe(context.Background(), Request{AudioPath: writeChunk(t)})
	require.NoError(t, err)
	assert.Equal(t, "hello from cli", text)
}

func TestExecTranscribePlaceholders(t *testing.T) {
	backend, err := NewExec(`echo {language} {task} {audio}`, 5*time.Second)
	require.NoError(t, err)

	path := writeChunk(t)
	text, err := backend.Transcribe(context.Background(), Request{AudioPath: path, Language: "el", Task: TaskTranslate})
	require.NoError(t, err)
	assert.Equal(t, "el translate "+path, text)
}

func TestExecTranscribeFailureSurfacesStderr(t *testing.T) {
	backend, err := NewExec(`sh -c "echo boom >&2; exit 3"`, 5*time.Second)
	require.NoError(t, err)

	_, err = backend.Transcribe(context.Background(), Request{AudioPath: writeChunk(t)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestNewExecRejectsEmptyCommand(t *testing.T) {
	_, err := NewExec("   ", time.Second)
	require.Error(t, err)
}

func TestNewBuildsScrubbedHTTPBackend(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"text":"real words Thanks for watching!"}`))
	}))
	defer server.Close()

	cfg := config.Default().ASR
	cfg.Endpoint = server.URL
	recognizer, err := New(cfg)
	require.NoError(t, err)

	text, err := recognizer.Transcribe(context.Background(), Request{AudioPath: writeChunk(t), Language: "en", Task: TaskTranscribe})
	require.NoError(t, err)
	assert.Equal(t, "real words", text)
}

func TestNewRejectsUnknownBackend(t *testing.T) {
	cfg := config.Default().ASR
	cfg.Backend = "carrier-pigeon"
	_, err := New(cfg)
	require.Error(t, err)
}
