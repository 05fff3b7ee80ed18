package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"wagate/internal/metrics"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T, inner http.HandlerFunc) http.Handler {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return Observability(logger)(inner)
}

func TestObservability_PassesThrough(t *testing.T) {
	handler := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/teapot", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "short and stout", rec.Body.String())
}

func TestObservability_CountsRequests(t *testing.T) {
	metrics.GetRegistry().Reset()
	handler := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/counted", nil))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/counted", nil))

	snap := metrics.GetRegistry().GetSnapshot()
	counter, ok := snap.Counters["http_requests_total,endpoint=/counted,method=GET"]
	require.True(t, ok)
	assert.Equal(t, float64(2), counter.Value)

	_, ok = snap.Timers["http_request_duration,endpoint=/counted,method=GET"]
	assert.True(t, ok)
}

func TestResponseWrapper_FirstStatusWins(t *testing.T) {
	rec := httptest.NewRecorder()
	wrapper := &responseWrapper{ResponseWriter: rec, statusCode: http.StatusOK}

	wrapper.WriteHeader(http.StatusNotFound)
	wrapper.WriteHeader(http.StatusOK)

	assert.Equal(t, http.StatusNotFound, wrapper.statusCode)
}

func TestResponseWrapper_HijackUnsupported(t *testing.T) {
	wrapper := &responseWrapper{ResponseWriter: httptest.NewRecorder()}

	_, _, err := wrapper.Hijack()
	assert.Error(t, err)
}
