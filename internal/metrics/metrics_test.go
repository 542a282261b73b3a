package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, c *Collector) string {
	t.Helper()
	w := httptest.NewRecorder()
	c.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func TestObserveTransition(t *testing.T) {
	c := New()
	c.ObserveTransition("story", "Approved", OutcomeCommitted)
	c.ObserveTransition("story", "Approved", OutcomeCommitted)
	c.ObserveTransition("story", "Approved", OutcomeRejected)

	body := scrape(t, c)
	assert.Contains(t, body, `tracewell_transitions_total{entity="story",outcome="committed",to="Approved"} 2`)
	assert.Contains(t, body, `tracewell_transitions_total{entity="story",outcome="rejected",to="Approved"} 1`)
}

func TestObserveRequest(t *testing.T) {
	c := New()
	c.ObserveRequest(http.MethodGet, "/api/stories", http.StatusOK, 15*time.Millisecond)

	body := scrape(t, c)
	assert.Contains(t, body, `tracewell_http_requests_total{code="200",method="GET",route="/api/stories"} 1`)
	assert.Contains(t, body, `tracewell_http_request_duration_seconds_count{method="GET",route="/api/stories"} 1`)
	assert.Contains(t, body, "go_goroutines")
}

func TestNew_IndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.ObserveTransition("story", "Draft", OutcomeCommitted)
	assert.NotContains(t, scrape(t, b), `entity="story"`)
}
