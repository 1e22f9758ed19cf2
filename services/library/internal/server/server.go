package server

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"booklibrary/internal/metrics"
	"booklibrary/internal/ratelimit"
	"booklibrary/internal/security"
	"booklibrary/internal/util"
	"booklibrary/pkg/domain"
	"booklibrary/services/library/internal/app"
)

const (
	defaultMaxUploadBytes = 50 << 20
	maxJSONBytes          = 1 << 20
	multipartMemory       = 8 << 20
)

// Limiter decides whether one more request for key fits the current quota.
type Limiter interface {
	Allow(ctx context.Context, key string) ratelimit.Decision
}

// Config wires required dependencies for the HTTP server.
type Config struct {
	App                *app.App
	Metrics            *metrics.Metrics
	LoginLimiter       Limiter
	RegisterLimiter    Limiter
	Alerter            *security.AuditAlerter
	MaxUploadBytes     int64
	CORSAllowedOrigins []string
	TrustedProxies     *util.TrustedProxies
}

// Server exposes the library HTTP API.
type Server struct {
	app             *app.App
	metrics         *metrics.Metrics
	mux             *http.ServeMux
	loginLimiter    Limiter
	registerLimiter Limiter
	alerter         *security.AuditAlerter
	maxUploadBytes  int64
	allowedOrigins  []string
	trustedProxies  *util.TrustedProxies
}

// New constructs the server with routes configured.
// Nil limiters disable rate limiting for their endpoint.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("app is required")
	}
	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = defaultMaxUploadBytes
	}
	s := &Server{
		app:             cfg.App,
		metrics:         cfg.Metrics,
		mux:             http.NewServeMux(),
		loginLimiter:    cfg.LoginLimiter,
		registerLimiter: cfg.RegisterLimiter,
		alerter:         cfg.Alerter,
		maxUploadBytes:  maxUpload,
		allowedOrigins:  cfg.CORSAllowedOrigins,
		trustedProxies:  cfg.TrustedProxies,
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler with the middleware chain applied.
func (s *Server) Router() http.Handler {
	h := util.WithCORS(s.allowedOrigins, s.mux)
	h = util.WithSecurityHeaders(h)
	if s.metrics != nil {
		h = s.metrics.Middleware(h)
	}
	h = util.WithRequestLog("library", h)
	return util.WithRequestID(h)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)
	if s.metrics != nil {
		s.mux.Handle("/metrics", s.metrics.Handler())
	}

	// accounts
	s.mux.HandleFunc("/register", s.handleRegister)
	s.mux.HandleFunc("/login", s.handleLogin)
	s.mux.Handle("/me", s.authenticated(s.handleMe))
	s.mux.HandleFunc("/users/", s.handleUserByID)

	// books
	s.mux.HandleFunc("/books", s.handleBooks)
	s.mux.HandleFunc("/books/", s.handleBookByID)
	s.mux.HandleFunc(domain.UploadsPath, s.handleUpload)

	// catalog
	s.mux.HandleFunc("/authors", s.handleAuthors)
	s.mux.HandleFunc("/authors/", s.handleAuthorByID)
	s.mux.HandleFunc("/categories", s.handleCategories)
	s.mux.HandleFunc("/categories/", s.handleCategoryByID)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	if err := s.app.Ready(r.Context()); err != nil {
		util.LoggerFromContext(r.Context()).Error("health_check_failed", "err", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// auth wrappers
type authHandler func(http.ResponseWriter, *http.Request, domain.User)

func (s *Server) authenticated(next authHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r, user, ok := s.requireUser(w, r)
		if !ok {
			return
		}
		next(w, r, user)
	})
}

type userContextKey struct{}

// contextWithUser stores the resolved user and a logger carrying user_id.
func contextWithUser(ctx context.Context, user domain.User) context.Context {
	ctx = context.WithValue(ctx, userContextKey{}, user)
	return util.ContextWithLogger(ctx, util.LoggerFromContext(ctx).With("user_id", user.ID))
}

func userFromContext(ctx context.Context) (domain.User, bool) {
	user, ok := ctx.Value(userContextKey{}).(domain.User)
	return user, ok
}

// requireUser resolves the bearer token or writes a 401. The returned request
// carries the user in its context.
func (s *Server) requireUser(w http.ResponseWriter, r *http.Request) (*http.Request, domain.User, bool) {
	if user, ok := userFromContext(r.Context()); ok {
		return r, user, true
	}
	token, ok := bearerToken(r)
	if !ok {
		s.audit(r, "authorize", "fail", "reason", "missing_token")
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return r, domain.User{}, false
	}
	user, err := s.app.Authenticate(r.Context(), token)
	if err != nil {
		if !errors.Is(err, app.ErrUnauthenticated) {
			writeAppError(w, r, err)
			return r, domain.User{}, false
		}
		s.audit(r, "authorize", "fail", "reason", "invalid_token")
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return r, domain.User{}, false
	}
	s.audit(r, "authorize", "success", "user_id", user.ID)
	return r.WithContext(contextWithUser(r.Context(), user)), user, true
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// account handlers
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.registerLimiter, "register", "too many registration attempts") {
		s.audit(r, "register", "rate_limited")
		return
	}
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		s.audit(r, "register", "fail", "reason", "invalid_json")
		return
	}
	user, err := s.app.Register(r.Context(), app.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		s.audit(r, "register", "fail", "reason", err.Error())
		writeAppError(w, r, err)
		return
	}
	s.audit(r, "register", "success", "user_id", user.ID)
	writeJSON(w, http.StatusCreated, map[string]string{"message": "user created"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.loginLimiter, "login", "too many login attempts") {
		s.audit(r, "login", "rate_limited")
		return
	}
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		s.audit(r, "login", "fail", "reason", "invalid_json")
		return
	}
	user, token, err := s.app.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.audit(r, "login", "fail", "reason", err.Error())
		writeAppError(w, r, err)
		return
	}
	s.audit(r, "login", "success", "user_id", user.ID)
	writeJSON(w, http.StatusOK, loginResponse{AccessToken: token, TokenType: "bearer"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, user domain.User) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, user.Public())
	case http.MethodPut:
		var patch domain.UserUpdate
		if !decodeJSON(w, r, &patch) {
			return
		}
		updated, err := s.app.UpdateProfile(r.Context(), user, patch)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, updated.Public())
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleUserByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r.URL.Path, "/users/")
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	user, err := s.app.GetUser(r.Context(), id)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user.Public())
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// pathID extracts the single segment after prefix. Nested paths are rejected.
func pathID(path, prefix string) (string, bool) {
	id := strings.TrimPrefix(path, prefix)
	if id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

func (s *Server) allowRate(w http.ResponseWriter, r *http.Request, limiter Limiter, scope, msg string) bool {
	if limiter == nil {
		return true
	}
	decision := limiter.Allow(r.Context(), util.ClientIP(r, s.trustedProxies))
	if decision.Allowed {
		return true
	}
	s.metrics.RateLimited(scope)
	w.Header().Set("Retry-After", retryAfterSeconds(decision.RetryAfter))
	writeError(w, http.StatusTooManyRequests, msg)
	return false
}

func retryAfterSeconds(d time.Duration) string {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

func (s *Server) audit(r *http.Request, event, outcome string, attrs ...any) {
	s.metrics.AuthEvent(event, outcome)
	ip := util.ClientIP(r, s.trustedProxies)
	logAttrs := []any{
		"event", event,
		"outcome", outcome,
		"path", r.URL.Path,
		"method", r.Method,
		"ip", ip,
	}
	logAttrs = append(logAttrs, attrs...)
	logger := util.LoggerFromContext(r.Context())
	if outcome == "success" {
		logger.Info("security_event", logAttrs...)
		return
	}
	logger.Warn("security_event", logAttrs...)

	result, err := s.alerter.Observe(r.Context(), event, outcome, ip)
	if err != nil {
		logger.Warn("security_alert_unavailable", "event", event, "err", err)
		return
	}
	if result.Triggered {
		logger.Error("security_alert",
			"event", event,
			"outcome", outcome,
			"ip", ip,
			"count", result.Count,
			"threshold", result.Threshold,
			"window", result.Window.String(),
		)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// writeAppError maps application errors to HTTP statuses.
func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, app.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, app.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, app.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, app.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, app.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, app.ErrValidation), errors.Is(err, app.ErrInvalidFile):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		util.LoggerFromContext(r.Context()).Error("request_failed", "path", r.URL.Path, "method", r.Method, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
