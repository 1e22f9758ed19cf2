// Package metrics exposes Prometheus instrumentation for the library service.
package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"booklibrary/internal/util"
	"booklibrary/pkg/storage"
)

// Metrics holds all Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	AuthEventsTotal  *prometheus.CounterVec
	RateLimitedTotal *prometheus.CounterVec

	StorageOperationsTotal   *prometheus.CounterVec
	StorageOperationDuration *prometheus.HistogramVec
}

// New creates a registry with process and Go runtime collectors plus the service metrics.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	return NewWithRegistry(registry)
}

// NewWithRegistry registers the service metrics on registry.
func NewWithRegistry(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: registry,
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "library_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "library_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		AuthEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "library_auth_events_total",
				Help: "Authentication events by type and outcome",
			},
			[]string{"event", "outcome"},
		),
		RateLimitedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "library_rate_limited_total",
				Help: "Requests rejected by the rate limiter",
			},
			[]string{"scope"},
		),
		StorageOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "library_storage_operations_total",
				Help: "Total number of file storage operations",
			},
			[]string{"operation", "backend", "status"},
		),
		StorageOperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "library_storage_operation_duration_seconds",
				Help:    "File storage operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "backend"},
		),
	}
	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.AuthEventsTotal,
		m.RateLimitedTotal,
		m.StorageOperationsTotal,
		m.StorageOperationDuration,
	)
	return m
}

// Handler serves the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// AuthEvent counts one login, register or authorize outcome.
func (m *Metrics) AuthEvent(event, outcome string) {
	if m == nil {
		return
	}
	m.AuthEventsTotal.WithLabelValues(event, outcome).Inc()
}

// RateLimited counts one rejected request.
func (m *Metrics) RateLimited(scope string) {
	if m == nil {
		return
	}
	m.RateLimitedTotal.WithLabelValues(scope).Inc()
}

// Middleware instruments HTTP requests. Paths are collapsed to route templates
// so record IDs do not become label values.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &util.StatusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		route := RouteLabel(r.URL.Path)
		m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.StatusCode())).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

var knownRoots = map[string]bool{
	"books":      true,
	"authors":    true,
	"categories": true,
	"users":      true,
	"uploads":    true,
	"me":         true,
	"register":   true,
	"login":      true,
	"healthz":    true,
	"metrics":    true,
}

// RouteLabel maps a request path to a bounded route template.
func RouteLabel(path string) string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return "/"
	}
	root, rest, _ := strings.Cut(trimmed, "/")
	if !knownRoots[root] {
		return "other"
	}
	if rest == "" {
		return "/" + root
	}
	return "/" + root + "/{id}"
}

// InstrumentFileStore wraps fs so every call is counted and timed.
func (m *Metrics) InstrumentFileStore(fs storage.FileStore, backend string) storage.FileStore {
	if m == nil {
		return fs
	}
	return &instrumentedFileStore{next: fs, backend: backend, metrics: m}
}

type instrumentedFileStore struct {
	next    storage.FileStore
	backend string
	metrics *Metrics
}

func (s *instrumentedFileStore) observe(op string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	s.metrics.StorageOperationsTotal.WithLabelValues(op, s.backend, status).Inc()
	s.metrics.StorageOperationDuration.WithLabelValues(op, s.backend).Observe(time.Since(start).Seconds())
}

func (s *instrumentedFileStore) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	start := time.Now()
	ref, err := s.next.Save(ctx, name, r)
	s.observe("save", start, err)
	return ref, err
}

func (s *instrumentedFileStore) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	start := time.Now()
	rc, err := s.next.Open(ctx, ref)
	if errors.Is(err, storage.ErrFileNotFound) {
		s.observe("open", start, nil)
		return nil, err
	}
	s.observe("open", start, err)
	return rc, err
}

func (s *instrumentedFileStore) Exists(ctx context.Context, ref string) (bool, error) {
	start := time.Now()
	ok, err := s.next.Exists(ctx, ref)
	s.observe("exists", start, err)
	return ok, err
}

func (s *instrumentedFileStore) Remove(ctx context.Context, ref string) error {
	start := time.Now()
	err := s.next.Remove(ctx, ref)
	s.observe("remove", start, err)
	return err
}
