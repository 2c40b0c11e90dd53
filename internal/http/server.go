package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"moneyspider/internal/log"
	"moneyspider/internal/metrics"
	"moneyspider/internal/middleware/ratelimit"
	"moneyspider/internal/middleware/security"
	"moneyspider/internal/middleware/trace"
	"moneyspider/internal/services"
)

// API routes. Anything else is reported to metrics as "other".
const (
	routeState        = "/state"
	routeAmount       = "/amount"
	routeDate         = "/date"
	routeCategory     = "/category"
	routeExpenses     = "/expenses"
	routeDelete       = "/expenses/delete"
	routeClear        = "/clear"
	routeClearConfirm = "/clear/confirm"
	routeClearCancel  = "/clear/cancel"
	routeHealth       = "/healthz"
	routeReady        = "/readyz"
	routeMetrics      = "/metrics"
)

var knownRoutes = map[string]bool{
	routeState: true, routeAmount: true, routeDate: true, routeCategory: true,
	routeExpenses: true, routeDelete: true, routeClear: true, routeClearConfirm: true,
	routeClearCancel: true, routeHealth: true, routeReady: true, routeMetrics: true,
}

// ReadinessFunc reports whether the backing store can serve requests.
type ReadinessFunc func(ctx context.Context) error

// Server serves the entry API. The entry service is single-actor, so every
// API handler runs under mu.
type Server struct {
	http.Server

	svc *services.EntryService
	mu  sync.Mutex

	logger   *log.Logger
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	ready    ReadinessFunc

	rateLimit      ratelimit.Config
	limiter        *ratelimit.Limiter
	trustedProxies []string
	resolver       *security.IPResolver

	shutdownOnce sync.Once
}

type Option func(*Server)

func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithMetrics records request metrics in m and exposes g on /metrics.
func WithMetrics(m *metrics.Metrics, g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = m
		s.gatherer = g
	}
}

func WithRateLimit(perMinute int) Option {
	return func(s *Server) { s.rateLimit.RequestsPerMinute = perMinute }
}

func WithReadiness(ready ReadinessFunc) Option {
	return func(s *Server) { s.ready = ready }
}

// WithTrustedProxies adds networks allowed to set forwarding headers.
func WithTrustedProxies(cidrs ...string) Option {
	return func(s *Server) { s.trustedProxies = append(s.trustedProxies, cidrs...) }
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, svc *services.EntryService, opts ...Option) (*Server, error) {
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		svc:       svc,
		rateLimit: ratelimit.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.Discard()
	}
	s.logger = s.logger.WithComponent(log.ComponentHTTP)
	if s.metrics == nil {
		s.metrics = metrics.Nop()
	}
	if s.gatherer == nil {
		s.gatherer = prometheus.NewRegistry()
	}

	resolver, err := security.NewIPResolver(s.trustedProxies...)
	if err != nil {
		return nil, err
	}
	s.resolver = resolver
	s.limiter = ratelimit.NewLimiter(s.rateLimit)

	api := http.NewServeMux()
	api.HandleFunc(routeState, s.serialized(s.handleState))
	api.HandleFunc(routeAmount, s.serialized(s.handleAmount))
	api.HandleFunc(routeDate, s.serialized(s.handleDate))
	api.HandleFunc(routeCategory, s.serialized(s.handleCategory))
	api.HandleFunc(routeExpenses, s.serialized(s.handleRecordExpense))
	api.HandleFunc(routeDelete, s.serialized(s.handleDeleteExpenses))
	api.HandleFunc(routeClear, s.serialized(s.handleClear))
	api.HandleFunc(routeClearConfirm, s.serialized(s.handleClearConfirm))
	api.HandleFunc(routeClearCancel, s.serialized(s.handleClearCancel))
	api.HandleFunc("/", handleNotFound)

	limited := s.limiter.Middleware(s.resolver.ClientIP, s.onRateLimited)(api)

	mux := http.NewServeMux()
	mux.HandleFunc(routeHealth, handleHealth)
	mux.HandleFunc(routeReady, s.handleReady)
	mux.Handle(routeMetrics, promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	mux.Handle("/", limited)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	tracer := trace.NewMiddleware(s.logger, s.resolver.ClientIP, s.recordRequest)
	s.Handler = tracer.Middleware(headers.Middleware(mux))

	return s, nil
}

// Shutdown gracefully shuts down the server and the rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) serialized(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		next(w, r)
	}
}

func (s *Server) recordRequest(method, path, status string, seconds float64) {
	if !knownRoutes[path] {
		path = "other"
	}
	s.metrics.RecordHTTPRequest(method, path, status, seconds)
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	s.metrics.RecordRateLimited()
	log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.resolver.ClientIP(r),
		log.FieldPath, r.URL.Path)
	TooManyRequestsError().Write(w)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	NewHTMXResponse().JSON(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			log.FromContext(r.Context()).WithComponent(log.ComponentHTTP).WarnContext(r.Context(), "Readiness check failed",
				log.FieldError, err.Error())
			NewHTMXResponse().
				Status(http.StatusServiceUnavailable).
				JSON(map[string]string{"status": "unavailable", "error": err.Error()}).
				Write(w)
			return
		}
	}
	NewHTMXResponse().JSON(map[string]string{"status": "ready"}).Write(w)
}

func handleNotFound(w http.ResponseWriter, _ *http.Request) {
	ErrorResponse(http.StatusNotFound, "not found").Write(w)
}
