package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"bountytracker/internal/cache"
	"bountytracker/internal/clock"
	"bountytracker/internal/core"
	applog "bountytracker/internal/log"
	"bountytracker/internal/metrics"
	"bountytracker/internal/middleware/ratelimit"
	"bountytracker/internal/middleware/security"
	"bountytracker/internal/middleware/trace"
	"bountytracker/internal/services"
)

const (
	// readTimeout bounds store reads made by a single request.
	readTimeout = 7 * time.Second

	defaultCacheTTL  = time.Minute
	cacheSize        = 256
	cacheCleanupTick = 5 * time.Minute
)

// SaleService is the mutation and read surface the handlers need.
// *services.SaleService satisfies it.
type SaleService interface {
	List(ctx context.Context) ([]core.Sale, error)
	Get(ctx context.Context, id string) (core.Sale, error)
	Create(ctx context.Context, sale core.Sale) (core.Sale, error)
	Update(ctx context.Context, id string, sale core.Sale) (core.Sale, error)
	Delete(ctx context.Context, id string) error
	ToggleMonthPaid(ctx context.Context, id string, monthNumber int) (core.Sale, error)
	Import(ctx context.Context, sales []core.Sale) services.ImportResult
}

// Options configures NewServer. Sales and Logger are required.
type Options struct {
	Addr               string
	Sales              SaleService
	Clock              clock.Clock
	Logger             *applog.Logger
	Metrics            *metrics.Metrics
	RateLimitPerMinute int
	AlertWindowDays    int
	CacheTTL           time.Duration

	// Ready, when set, replaces the default readiness probe (listing sales).
	Ready func(ctx context.Context) error
}

type Server struct {
	http.Server

	sales      SaleService
	ready      func(ctx context.Context) error
	clock      clock.Clock
	logger     *applog.Logger
	metrics    *metrics.Metrics
	windowDays int

	limiter  *ratelimit.Limiter
	detector *security.Detector

	// Computed views keyed by date and query; purged on every mutation.
	alertCache     *cache.LRUCache[alertsResponse]
	dashboardCache *cache.LRUCache[dashboardResponse]
	cacheManager   *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(opts Options) *Server {
	if opts.Clock == nil {
		opts.Clock = clock.System()
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = defaultCacheTTL
	}
	logger := opts.Logger.WithComponent(applog.ComponentHTTP)

	s := &Server{
		sales:          opts.Sales,
		ready:          opts.Ready,
		clock:          opts.Clock,
		logger:         logger,
		metrics:        opts.Metrics,
		windowDays:     opts.AlertWindowDays,
		limiter:        ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector:       security.NewDetector(),
		alertCache:     cache.NewLRUCache[alertsResponse](cacheSize, opts.CacheTTL),
		dashboardCache: cache.NewLRUCache[dashboardResponse](cacheSize, opts.CacheTTL),
		cacheManager:   cache.NewManager(logger.WithComponent(applog.ComponentCache)),
	}
	s.cacheManager.Register(s.alertCache)
	s.cacheManager.Register(s.dashboardCache)
	s.cacheManager.StartCleanup(context.Background(), cacheCleanupTick)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", s.metrics.Handler())

	mux.HandleFunc("GET /api/sales", s.handleListSales)
	mux.HandleFunc("POST /api/sales", s.handleCreateSale)
	mux.HandleFunc("POST /api/sales/import", s.handleImportSales)
	mux.HandleFunc("GET /api/sales/{id}", s.handleGetSale)
	mux.HandleFunc("PUT /api/sales/{id}", s.handleUpdateSale)
	mux.HandleFunc("DELETE /api/sales/{id}", s.handleDeleteSale)
	mux.HandleFunc("POST /api/sales/{id}/months/{month}/toggle", s.handleToggleMonth)

	mux.HandleFunc("GET /api/alerts", s.handleAlerts)
	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/calendar", s.handleCalendar)
	mux.HandleFunc("GET /api/export.csv", s.handleExportCSV)

	// Outermost first: trace, headers, probe detection, rate limit.
	var handler http.Handler = mux
	handler = s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimited)(handler)
	handler = s.detector.Middleware(s.onSuspicious)(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = trace.NewMiddleware(logger, s.detector.ExtractClientIP, s.metrics.ObserveHTTP).Middleware(handler)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) onRateLimited(r *http.Request) {
	s.metrics.RecordRateLimited()
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
}

func (s *Server) onSuspicious(r *http.Request, clientIP string) {
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Suspicious request rejected",
		applog.FieldClientIP, clientIP,
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
}

// invalidateViews drops every cached view after a mutation.
func (s *Server) invalidateViews() {
	s.alertCache.Purge()
	s.dashboardCache.Purge()
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w)
}

// handleReady checks that the store answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	probe := s.ready
	if probe == nil {
		probe = func(ctx context.Context) error {
			_, err := s.sales.List(ctx)
			return err
		}
	}
	if err := probe(ctx); err != nil {
		s.logger.WarnContext(ctx, "Readiness check failed", applog.FieldError, err)
		ErrorResponse(http.StatusServiceUnavailable, "store unavailable").Write(w)
		return
	}
	NewJSONResponse().Body(map[string]string{"status": "ready"}).Write(w)
}
