package api

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	sockaddr "github.com/hashicorp/go-sockaddr"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/khanhnv2901/seca-audit/internal/api/middleware"
	checkapp "github.com/khanhnv2901/seca-audit/internal/application/check"
	networkapp "github.com/khanhnv2901/seca-audit/internal/application/network"
	"github.com/khanhnv2901/seca-audit/internal/domain/check"
	"github.com/khanhnv2901/seca-audit/internal/domain/network"
	"github.com/khanhnv2901/seca-audit/internal/infrastructure/events"
	sharedErrors "github.com/khanhnv2901/seca-audit/internal/shared/errors"
)

type CheckService interface {
	RunCheck(kind check.Kind) (<-chan struct{}, error)
	RunSuite() (<-chan struct{}, error)
	State() checkapp.State
	Result(kind check.Kind) (*check.Result, bool)
}

type ProfileService interface {
	Refresh() (<-chan struct{}, error)
	State() networkapp.State
}

type EventSource interface {
	Subscribe() (<-chan events.Event, func())
	Recent(limit int) []events.Event
}

type Config struct {
	Checks      CheckService
	Profile     ProfileService
	Events      EventSource
	AuthToken   string
	Logger      *zap.Logger
	CORSOrigins []string // Allowed CORS origins (empty = allow all)
	RateLimit   int      // Requests per second per IP (0 = disabled)
	RateBurst   int      // Burst size for rate limiter
	EventsLimit int

	// TrustedProxies lists proxy IPs or CIDRs whose X-Forwarded-For is honoured.
	// Empty means the rate limiter keys on the peer address only.
	TrustedProxies []string
}

type CatalogEntry struct {
	Kind    check.Kind `json:"kind"`
	Title   string     `json:"title"`
	Summary string     `json:"summary"`
}

type ChecksResponse struct {
	Results      []*check.Result `json:"results"`
	Running      []check.Kind    `json:"running"`
	SuiteRunning bool            `json:"suite_running"`
	LastError    string          `json:"last_error,omitempty"`
}

type RunResponse struct {
	Kind         check.Kind `json:"kind,omitempty"`
	Running      bool       `json:"running"`
	SuiteRunning bool       `json:"suite_running,omitempty"`
	Error        string     `json:"error,omitempty"`
}

type ProfileResponse struct {
	Snapshot  network.Snapshot `json:"snapshot"`
	IsLoading bool             `json:"is_loading"`
	Error     string           `json:"error,omitempty"`
}

type Server struct {
	cfg      Config
	router   chi.Router
	limiters *rateLimiterMap
	trusted  []sockaddr.IPAddr
}

func NewServer(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	srv := &Server{cfg: cfg}
	for _, proxy := range cfg.TrustedProxies {
		addr, err := sockaddr.NewIPAddr(strings.TrimSpace(proxy))
		if err != nil {
			cfg.Logger.Warn("ignoring invalid trusted proxy", zap.String("proxy", proxy), zap.Error(err))
			continue
		}
		srv.trusted = append(srv.trusted, addr)
	}
	if cfg.RateLimit > 0 {
		srv.limiters = newRateLimiterMap()
	}
	srv.routes()
	return srv
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close stops background housekeeping.
func (s *Server) Close() {
	if s.limiters != nil {
		s.limiters.stop()
	}
}

func (s *Server) routes() {
	r := chi.NewRouter()
	// RequestID -> Logging -> RateLimit -> CORS -> Auth -> Handler
	r.Use(middleware.RequestID, s.withLogging, s.withRateLimit, s.corsHandler())
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, http.StatusNotFound, errors.New("not found"))
	})
	r.MethodNotAllowed(s.methodNotAllowed)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.withAuth)
		r.Get("/catalog", s.handleCatalog)
		r.Get("/checks", s.handleChecks)
		r.Get("/checks/{kind}", s.handleCheck)
		r.Post("/checks/{kind}/run", s.handleRunCheck)
		r.Post("/suite/run", s.handleRunSuite)
		r.Get("/profile", s.handleProfile)
		r.Post("/profile/refresh", s.handleRefreshProfile)
		r.Get("/events/recent", s.handleRecentEvents)
		r.Get("/events", s.handleEventStream)
	})
	s.router = r
}

func (s *Server) corsHandler() func(http.Handler) http.Handler {
	origins := s.cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Auth-Token", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         3600,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	kinds := check.Kinds()
	out := make([]CatalogEntry, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, CatalogEntry{Kind: k, Title: k.Title(), Summary: k.Summary()})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleChecks(w http.ResponseWriter, r *http.Request) {
	state := s.cfg.Checks.State()
	results := make([]*check.Result, 0, len(state.Results))
	for _, k := range check.Kinds() {
		if res, ok := state.Results[k]; ok {
			results = append(results, res)
		}
	}
	running := state.Running
	if running == nil {
		running = []check.Kind{}
	}
	writeJSON(w, http.StatusOK, ChecksResponse{
		Results:      results,
		Running:      running,
		SuiteRunning: state.SuiteRunning,
		LastError:    state.LastError,
	})
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	kind, err := check.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		s.writeError(w, r, http.StatusNotFound, err)
		return
	}
	res, ok := s.cfg.Checks.Result(kind)
	if !ok {
		s.writeError(w, r, http.StatusNotFound, errors.New("no result yet for "+string(kind)))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleRunCheck(w http.ResponseWriter, r *http.Request) {
	kind, err := check.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		s.writeError(w, r, http.StatusNotFound, err)
		return
	}
	if _, err := s.cfg.Checks.RunCheck(kind); err != nil {
		s.writeError(w, r, statusForRunError(err), err)
		return
	}
	writeJSON(w, http.StatusAccepted, RunResponse{Kind: kind, Running: true})
}

func (s *Server) handleRunSuite(w http.ResponseWriter, r *http.Request) {
	done, err := s.cfg.Checks.RunSuite()
	if done == nil {
		s.writeError(w, r, statusForRunError(err), err)
		return
	}
	resp := RunResponse{Running: true, SuiteRunning: true}
	if err != nil {
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusAccepted, resp)
}

func statusForRunError(err error) int {
	switch {
	case errors.Is(err, sharedErrors.ErrUnknownKind), errors.Is(err, sharedErrors.ErrNoExecutor):
		return http.StatusNotFound
	case errors.Is(err, sharedErrors.ErrOrchestratorClosed), errors.Is(err, sharedErrors.ErrResolverClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, profileResponse(s.cfg.Profile.State()))
}

func (s *Server) handleRefreshProfile(w http.ResponseWriter, r *http.Request) {
	if _, err := s.cfg.Profile.Refresh(); err != nil {
		s.writeError(w, r, statusForRunError(err), err)
		return
	}
	writeJSON(w, http.StatusAccepted, profileResponse(s.cfg.Profile.State()))
}

func profileResponse(state networkapp.State) ProfileResponse {
	return ProfileResponse{Snapshot: state.Snapshot, IsLoading: state.IsLoading, Error: state.Error}
}

func (s *Server) handleRecentEvents(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Events == nil {
		s.writeError(w, r, http.StatusNotFound, errors.New("event stream not available"))
		return
	}
	limit := s.cfg.EventsLimit
	if limit <= 0 {
		limit = 50
	}
	if q := r.URL.Query().Get("limit"); q != "" {
		if parsed, err := strconv.Atoi(q); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	recent := s.cfg.Events.Recent(limit)
	if recent == nil {
		recent = []events.Event{}
	}
	writeJSON(w, http.StatusOK, recent)
}

func (s *Server) handleEventStream(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Events == nil {
		s.writeError(w, r, http.StatusNotFound, errors.New("event stream not available"))
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, r, http.StatusInternalServerError, errors.New("streaming unsupported"))
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	updates, unsubscribe := s.cfg.Events.Subscribe()
	defer unsubscribe()

	if !s.writeStreamChunk(w, []byte(": connected\n\n")) {
		return
	}
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case ev, ok := <-updates:
			if !ok {
				return
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				s.cfg.Logger.Error("failed to marshal event", zap.Error(err))
				continue
			}
			if !s.writeStreamChunk(w, []byte("event: "+string(ev.Type)+"\ndata: ")) {
				return
			}
			if !s.writeStreamChunk(w, payload) {
				return
			}
			if !s.writeStreamChunk(w, []byte("\n\n")) {
				return
			}
			flusher.Flush()
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiters == nil {
			next.ServeHTTP(w, r)
			return
		}

		clientIP := s.clientAddr(r)
		limiter := s.limiters.getLimiter(clientIP, s.cfg.RateLimit, s.cfg.RateBurst)
		if !limiter.Allow() {
			s.requestLogger(r).Warn("rate_limit_exceeded", zap.String("client_ip", clientIP))
			s.writeError(w, r, http.StatusTooManyRequests, errors.New("rate limit exceeded"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientAddr returns the peer IP. When the peer is a trusted proxy, the
// X-Forwarded-For chain is walked from the right and the first untrusted hop wins.
func (s *Server) clientAddr(r *http.Request) string {
	peer := r.RemoteAddr
	if host, _, err := net.SplitHostPort(peer); err == nil {
		peer = host
	}
	if !s.trustedProxy(peer) {
		return peer
	}

	var hops []string
	for _, value := range r.Header.Values("X-Forwarded-For") {
		for _, hop := range strings.Split(value, ",") {
			if hop = strings.TrimSpace(hop); hop != "" {
				hops = append(hops, hop)
			}
		}
	}
	for i := len(hops) - 1; i >= 0; i-- {
		if !s.trustedProxy(hops[i]) {
			return hops[i]
		}
	}
	if len(hops) > 0 {
		return hops[0]
	}
	return peer
}

func (s *Server) trustedProxy(ip string) bool {
	if len(s.trusted) == 0 {
		return false
	}
	addr, err := sockaddr.NewIPAddr(ip)
	if err != nil {
		return false
	}
	for _, proxy := range s.trusted {
		if proxy.Contains(addr) {
			return true
		}
	}
	return false
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(lrw, r)

		s.cfg.Logger.Info("http_request",
			zap.String("request_id", middleware.GetRequestID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote_addr", r.RemoteAddr),
			zap.Int("status", lrw.statusCode),
			zap.Duration("duration", time.Since(start)),
			zap.Int64("bytes", lrw.bytesWritten),
		)
	})
}

func (s *Server) withAuth(next http.Handler) http.Handler {
	if s.cfg.AuthToken == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("X-Auth-Token")
		// Use constant-time comparison to prevent timing attacks
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.AuthToken)) != 1 {
			s.writeError(w, r, http.StatusUnauthorized, errors.New("unauthorized"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// loggingResponseWriter wraps http.ResponseWriter to capture status code and bytes written
type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	n, err := lrw.ResponseWriter.Write(b)
	lrw.bytesWritten += int64(n)
	return n, err
}

func (lrw *loggingResponseWriter) Flush() {
	if f, ok := lrw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}

	// For 5xx errors, return generic message and log details server-side
	if status >= 500 {
		s.requestLogger(r).Error("internal_server_error",
			zap.Error(err),
			zap.Int("status", status),
		)
		msg = "internal server error"
	}

	writeJSON(w, status, map[string]string{"error": msg})
}

// requestLogger creates a logger with request context (request ID, method, path)
func (s *Server) requestLogger(r *http.Request) *zap.Logger {
	if s.cfg.Logger == nil {
		return zap.NewNop()
	}
	if r == nil {
		return s.cfg.Logger
	}
	return s.cfg.Logger.With(
		zap.String("request_id", middleware.GetRequestID(r.Context())),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
	)
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, r, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func (s *Server) writeStreamChunk(w http.ResponseWriter, data []byte) bool {
	if _, err := w.Write(data); err != nil {
		if s.cfg.Logger != nil {
			s.cfg.Logger.Error("failed to write stream chunk", zap.Error(err))
		}
		return false
	}
	return true
}

// rateLimiterMap manages per-IP rate limiters with automatic cleanup
type rateLimiterMap struct {
	mu       sync.Mutex
	limiters map[string]*ipLimiter
	done     chan struct{}
	once     sync.Once
}

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newRateLimiterMap() *rateLimiterMap {
	m := &rateLimiterMap{
		limiters: make(map[string]*ipLimiter),
		done:     make(chan struct{}),
	}
	go m.cleanupLoop()
	return m
}

func (m *rateLimiterMap) getLimiter(ip string, rps, burst int) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	if burst <= 0 {
		burst = rps
	}
	limiter, exists := m.limiters[ip]
	if !exists {
		limiter = &ipLimiter{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
		m.limiters[ip] = limiter
	}
	limiter.lastSeen = time.Now()
	return limiter.limiter
}

// cleanupLoop removes limiters that haven't been used in 5 minutes
func (m *rateLimiterMap) cleanupLoop() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.mu.Lock()
			for ip, limiter := range m.limiters {
				if time.Since(limiter.lastSeen) > 5*time.Minute {
					delete(m.limiters, ip)
				}
			}
			m.mu.Unlock()
		}
	}
}

func (m *rateLimiterMap) stop() {
	m.once.Do(func() { close(m.done) })
}
