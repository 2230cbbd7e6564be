package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestRouter() *chi.Mux {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Post("/search", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(CacheHeader, r.URL.Query().Get("cache"))
		_, _ = w.Write([]byte(`{"results":[]}`))
	})
	r.Get("/suggest", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"suggestions":[]}`))
	})
	r.Get("/products/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	return r
}

func serve(r http.Handler, method, target string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(method, target, http.NoBody))
	return rr
}

func TestMiddleware_LabelsSearchCacheOutcome(t *testing.T) {
	r := newTestRouter()
	hit := httpRequestsTotal.WithLabelValues("POST", "/search", "200", CacheHit)
	miss := httpRequestsTotal.WithLabelValues("POST", "/search", "200", CacheMiss)
	hitBefore, missBefore := testutil.ToFloat64(hit), testutil.ToFloat64(miss)

	serve(r, "POST", "/search?cache=miss")
	serve(r, "POST", "/search?cache=hit")
	serve(r, "POST", "/search?cache=hit")

	if got := testutil.ToFloat64(hit) - hitBefore; got != 2 {
		t.Errorf("hit requests = %v, want 2", got)
	}
	if got := testutil.ToFloat64(miss) - missBefore; got != 1 {
		t.Errorf("miss requests = %v, want 1", got)
	}
}

func TestMiddleware_NonSearchRoutesReportNone(t *testing.T) {
	r := newTestRouter()
	c := httpRequestsTotal.WithLabelValues("GET", "/suggest", "200", "none")
	before := testutil.ToFloat64(c)

	serve(r, "GET", "/suggest?q=mou")

	if got := testutil.ToFloat64(c) - before; got != 1 {
		t.Errorf("suggest requests = %v, want 1", got)
	}
}

func TestMiddleware_UnknownCacheHeaderIsNone(t *testing.T) {
	r := newTestRouter()
	c := httpRequestsTotal.WithLabelValues("POST", "/search", "200", "none")
	before := testutil.ToFloat64(c)

	serve(r, "POST", "/search?cache=bogus")

	if got := testutil.ToFloat64(c) - before; got != 1 {
		t.Errorf("requests = %v, want 1", got)
	}
}

func TestMiddleware_UsesRoutePatternAndStatus(t *testing.T) {
	r := newTestRouter()
	c := httpRequestsTotal.WithLabelValues("GET", "/products/{id}", "404", "none")
	before := testutil.ToFloat64(c)

	serve(r, "GET", "/products/p1")
	serve(r, "GET", "/products/p2")

	if got := testutil.ToFloat64(c) - before; got != 2 {
		t.Errorf("requests = %v, want 2", got)
	}
}

func TestMiddleware_UnmatchedRoute(t *testing.T) {
	r := newTestRouter()
	c := httpRequestsTotal.WithLabelValues("GET", unmatchedRoute, "404", "none")
	before := testutil.ToFloat64(c)

	serve(r, "GET", "/no/such/path")

	if got := testutil.ToFloat64(c) - before; got != 1 {
		t.Errorf("unmatched requests = %v, want 1", got)
	}
}

func TestMiddleware_InFlightReturnsToZero(t *testing.T) {
	r := newTestRouter()
	before := testutil.ToFloat64(httpInFlight)
	serve(r, "GET", "/suggest")
	if got := testutil.ToFloat64(httpInFlight); got != before {
		t.Errorf("in flight = %v, want %v", got, before)
	}
}

func TestCacheLabel(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"hit", "hit"},
		{"miss", "miss"},
		{"", "none"},
		{"HIT", "none"},
	}
	for _, tc := range tests {
		if got := cacheLabel(tc.in); got != tc.want {
			t.Errorf("cacheLabel(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRegisterHTTPMetrics_ExposedViaPromhttp(t *testing.T) {
	RegisterHTTPMetrics()
	RegisterHTTPMetrics()

	r := newTestRouter()
	r.Handle("/metrics", promhttp.Handler())
	serve(r, "POST", "/search?cache=hit")

	rr := serve(r, "GET", "/metrics")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	body, err := io.ReadAll(rr.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	for _, name := range []string{
		`prodsearch_http_requests_total{cache="hit",method="POST",route="/search",status="200"}`,
		"prodsearch_http_response_size_bytes",
		"prodsearch_http_requests_in_flight",
	} {
		if !strings.Contains(string(body), name) {
			t.Errorf("expected %s in metrics output", name)
		}
	}
}
