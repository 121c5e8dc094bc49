package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCountEvents(t *testing.T) {
	m := New()

	m.ObserveRequest(http.MethodPost, "/match/swipe_right/:id", http.StatusOK, 20*time.Millisecond)
	m.ObserveRequest(http.MethodPost, "/match/swipe_right/:id", http.StatusOK, 10*time.Millisecond)
	m.ObserveRequest(http.MethodGet, "", http.StatusNotFound, time.Millisecond)
	m.MatchCreated()
	m.ChatMessage(true)
	m.ChatMessage(false)
	m.ChatMessage(false)
	m.ConnectionOpened()
	m.ConnectionOpened()
	m.ConnectionClosed()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("POST", "/match/swipe_right/:id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "unmatched", "404")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.matchesCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.chatMessages.WithLabelValues("true")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.chatMessages.WithLabelValues("false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.wsConnections))
}

func TestMetricsHandlerExposesRegistry(t *testing.T) {
	m := New()
	m.MatchCreated()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "matches_created_total 1")
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveRequest("GET", "/health", 200, time.Millisecond)
		m.ConnectionOpened()
		m.ConnectionClosed()
		m.MatchCreated()
		m.ChatMessage(true)
	})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
