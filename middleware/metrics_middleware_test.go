package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/regit-contracts/regit/internal/observability"
	"github.com/stretchr/testify/assert"
)

func TestMetricsMiddleware(t *testing.T) {
	metrics := observability.NewMetrics()

	r := chi.NewRouter()
	r.Use(MetricsMiddleware(metrics))
	r.Get("/contracts/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	for _, path := range []string{"/contracts/a", "/contracts/b", "/healthz"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	expected := `
# HELP regit_http_requests_total HTTP requests by method, route and status code.
# TYPE regit_http_requests_total counter
regit_http_requests_total{method="GET",route="/contracts/{id}",status="404"} 2
regit_http_requests_total{method="GET",route="/healthz",status="200"} 1
`
	err := testutil.GatherAndCompare(metrics.Registry(), strings.NewReader(expected), "regit_http_requests_total")
	assert.NoError(t, err)
}

func TestMetricsMiddleware_NilMetrics(t *testing.T) {
	handler := MetricsMiddleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, w.Code)
}
