package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddleware_LabelsByRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/api/v1/documents/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"a1", "b2", "c3"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+id, http.NoBody))
	}

	got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/api/v1/documents/{id}", "404"))
	if got < 3 {
		t.Errorf("requests_total = %f, want >= 3", got)
	}
	if testutil.CollectAndCount(httpRequestDuration) == 0 {
		t.Error("expected duration observations")
	}
}

func TestMiddleware_StatusCodes(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Post("/api/v1/chat", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("{}"))
	})
	r.Post("/api/v1/documents", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		path string
		want string
	}{
		{"/api/v1/chat", "200"},
		{"/api/v1/documents", "413"},
	}
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, tc.path, http.NoBody))
			if v := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("POST", tc.path, tc.want)); v < 1 {
				t.Errorf("requests_total{status=%s} = %f", tc.want, v)
			}
		})
	}
}

func TestMiddleware_UnmatchedRoute(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/nope", http.NoBody))

	if v := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "unmatched", "404")); v < 1 {
		t.Errorf("requests_total{route=unmatched} = %f", v)
	}
}

func TestMiddleware_RequestBytesAndInFlight(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	var during float64
	r.Post("/api/v1/documents", func(w http.ResponseWriter, _ *http.Request) {
		during = testutil.ToFloat64(httpInFlight)
	})

	body := strings.NewReader(strings.Repeat("x", 1024))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/documents", body))

	if during < 1 {
		t.Errorf("in_flight during request = %f, want >= 1", during)
	}
	if testutil.CollectAndCount(httpRequestBytes) == 0 {
		t.Error("expected request body observation")
	}
}

func TestRouteLabel_NoRouter(t *testing.T) {
	if got := routeLabel(httptest.NewRequest(http.MethodGet, "/x", http.NoBody)); got != "unmatched" {
		t.Errorf("routeLabel = %q", got)
	}
}

func TestRegisterPipelineMetrics_Idempotent(t *testing.T) {
	RegisterPipelineMetrics()
	RegisterPipelineMetrics()

	FilesIngestedTotal.WithLabelValues("indexed").Inc()
	if v := testutil.ToFloat64(FilesIngestedTotal.WithLabelValues("indexed")); v < 1 {
		t.Errorf("files_ingested_total = %f", v)
	}

	var are prometheus.AlreadyRegisteredError
	if err := prometheus.Register(ChunksIndexedTotal); !errors.As(err, &are) {
		t.Errorf("Register = %v, want AlreadyRegisteredError", err)
	}
}
