package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitIsIdempotent(t *testing.T) {
	Init()
	Init()
	require.NotNil(t, providerRequestsTotal)
	require.NotNil(t, alertsSentTotal)
}

func TestObserveProvider(t *testing.T) {
	Init()
	before := testutil.ToFloat64(providerRequestsTotal.WithLabelValues("birdeye", "429"))
	ObserveProvider("birdeye", http.StatusTooManyRequests, 20*time.Millisecond)
	ObserveProvider("birdeye", http.StatusTooManyRequests, 30*time.Millisecond)
	assert.Equal(t, before+2, testutil.ToFloat64(providerRequestsTotal.WithLabelValues("birdeye", "429")))
}

func TestObserveAlertAndJobs(t *testing.T) {
	Init()
	before := testutil.ToFloat64(alertsSentTotal.WithLabelValues("new_token"))
	ObserveAlert("new_token")
	assert.Equal(t, before+1, testutil.ToFloat64(alertsSentTotal.WithLabelValues("new_token")))

	okBefore := testutil.ToFloat64(jobRunsTotal.WithLabelValues("alert", "ok"))
	errBefore := testutil.ToFloat64(jobRunsTotal.WithLabelValues("alert", "error"))
	ObserveJob("alert", nil)
	ObserveJob("alert", errors.New("boom"))
	assert.Equal(t, okBefore+1, testutil.ToFloat64(jobRunsTotal.WithLabelValues("alert", "ok")))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(jobRunsTotal.WithLabelValues("alert", "error")))

	embBefore := testutil.ToFloat64(tweetsEmbeddedTotal)
	AddTweetsEmbedded(100)
	AddTweetsEmbedded(0)
	assert.Equal(t, embBefore+100, testutil.ToFloat64(tweetsEmbeddedTotal))
}

func TestMiddleware(t *testing.T) {
	Init()
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/missing", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	okBefore := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "200"))
	nfBefore := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "404"))

	for _, path := range []string{"/healthz", "/missing"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, okBefore+1, testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "200")))
	assert.Equal(t, nfBefore+1, testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "404")))
	assert.Positive(t, testutil.CollectAndCount(httpRequestDurationSeconds))
}
