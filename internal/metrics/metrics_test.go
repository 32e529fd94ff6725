package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.ObserveRequest("GET", "/", 200, time.Millisecond)
		c.ClueCreated(1)
		c.ClueDeleted(2)
		c.ConnectionCreated(1)
		c.ImportFinished(ImportOK)
	})
	assert.Nil(t, c.Registry())

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCounters(t *testing.T) {
	c := New()
	c.ClueCreated(3)
	c.ClueDeleted(2)
	c.ClueDeleted(0)
	c.ConnectionCreated(4)
	c.ImportFinished(ImportOK)
	c.ImportFinished(ImportRejected)
	c.ImportFinished(ImportRejected)

	assert.Equal(t, 3.0, testutil.ToFloat64(c.CluesCreated))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.CluesDeleted))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.ConnectionsCascaded))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.ConnectionsCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Imports.WithLabelValues(ImportOK)))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.Imports.WithLabelValues(ImportRejected)))
}

func TestHandler_ExposesRegistry(t *testing.T) {
	c := New()
	c.ObserveRequest("POST", "/api/clues", 201, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body,
		`clueboard_http_requests_total{method="POST",route="/api/clues",status="201"} 1`), body)
	assert.Contains(t, body, "clueboard_http_request_duration_seconds_bucket")
	assert.Contains(t, body, "go_goroutines")
}

func TestNew_IndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.ClueCreated(1)
	assert.Equal(t, 0.0, testutil.ToFloat64(b.CluesCreated))
}
