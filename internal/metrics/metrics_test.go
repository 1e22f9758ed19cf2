package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"booklibrary/pkg/storage"
)

func TestRouteLabel(t *testing.T) {
	cases := map[string]string{
		"/":                              "/",
		"/books":                         "/books",
		"/books/":                        "/books",
		"/books/65a1b2c3d4e5f60718293a4b": "/books/{id}",
		"/uploads/abc_def.pdf":           "/uploads/{id}",
		"/wp-admin/setup.php":            "other",
	}
	for path, want := range cases {
		if got := RouteLabel(path); got != want {
			t.Fatalf("RouteLabel(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestMiddlewareCountsRequests(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "missing") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))

	for _, path := range []string{"/books/abc", "/books/def", "/books/missing"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	expected := `
# HELP library_http_requests_total Total number of HTTP requests
# TYPE library_http_requests_total counter
library_http_requests_total{method="GET",route="/books/{id}",status="200"} 2
library_http_requests_total{method="GET",route="/books/{id}",status="404"} 1
`
	if err := testutil.CollectAndCompare(m.HTTPRequestsTotal, strings.NewReader(expected)); err != nil {
		t.Fatalf("unexpected metrics: %v", err)
	}
	if count := testutil.CollectAndCount(m.HTTPRequestDuration); count != 1 {
		t.Fatalf("expected 1 duration series, got %d", count)
	}
}

func TestAuthAndRateLimitCounters(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())
	m.AuthEvent("login", "success")
	m.AuthEvent("login", "failure")
	m.AuthEvent("login", "failure")
	m.RateLimited("register")

	if got := testutil.ToFloat64(m.AuthEventsTotal.WithLabelValues("login", "failure")); got != 2 {
		t.Fatalf("expected 2 login failures, got %v", got)
	}
	if got := testutil.ToFloat64(m.RateLimitedTotal.WithLabelValues("register")); got != 1 {
		t.Fatalf("expected 1 rate limited, got %v", got)
	}

	var nilMetrics *Metrics
	nilMetrics.AuthEvent("login", "success")
	nilMetrics.RateLimited("login")
}

func TestInstrumentFileStore(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())
	local, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("new local store: %v", err)
	}
	fs := m.InstrumentFileStore(local, "local")
	ctx := context.Background()

	ref, err := fs.Save(ctx, "a.pdf", strings.NewReader("data"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	rc, err := fs.Open(ctx, ref)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_, _ = io.Copy(io.Discard, rc)
	_ = rc.Close()
	if _, err := fs.Open(ctx, "missing.pdf"); err != storage.ErrFileNotFound {
		t.Fatalf("expected ErrFileNotFound, got %v", err)
	}
	if err := fs.Remove(ctx, ref); err != nil {
		t.Fatalf("remove: %v", err)
	}

	if got := testutil.ToFloat64(m.StorageOperationsTotal.WithLabelValues("open", "local", "ok")); got != 2 {
		t.Fatalf("expected 2 ok opens, got %v", got)
	}
	if got := testutil.ToFloat64(m.StorageOperationsTotal.WithLabelValues("save", "local", "ok")); got != 1 {
		t.Fatalf("expected 1 save, got %v", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.AuthEvent("register", "success")
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `library_auth_events_total{event="register",outcome="success"} 1`) {
		t.Fatalf("expected auth counter in exposition")
	}
}
