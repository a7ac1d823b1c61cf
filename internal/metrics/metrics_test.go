package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersCollect(t *testing.T) {
	m := New()

	m.SessionsStarted.Inc()
	m.SessionsStarted.Inc()
	m.ChunksSealed.WithLabelValues("silence").Inc()
	m.ChunksSealed.WithLabelValues("max_duration").Inc()
	m.ChunksSealed.WithLabelValues("silence").Inc()

	assert.Equal(t, float64(2), testutil.ToFloat64(m.SessionsStarted))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.ChunksSealed.WithLabelValues("silence")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ChunksSealed.WithLabelValues("max_duration")))
}

func TestIndependentInstances(t *testing.T) {
	// Two instances must not collide on registration.
	a := New()
	b := New()

	a.SessionsStarted.Inc()
	assert.Equal(t, float64(1), testutil.ToFloat64(a.SessionsStarted))
	assert.Equal(t, float64(0), testutil.ToFloat64(b.SessionsStarted))
}

func TestHandlerExposition(t *testing.T) {
	m := New()
	m.TranscriptsDelivered.Inc()

	server := httptest.NewServer(m.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := make([]byte, 1<<16)
	n, _ := resp.Body.Read(body)
	assert.Contains(t, string(body[:n]), "quill_transcripts_delivered_total 1")
}
