package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"budgetflow/internal/cache"
	"budgetflow/internal/chart"
	"budgetflow/internal/core"
	"budgetflow/internal/log"
	"budgetflow/internal/middleware/ratelimit"
	"budgetflow/internal/middleware/security"
	"budgetflow/internal/middleware/trace"
	"budgetflow/internal/services"
)

const (
	readHeaderTimeout = 5 * time.Second
	writeTimeout      = 30 * time.Second
	idleTimeout       = 60 * time.Second
	cacheCleanupEvery = 10 * time.Minute
	chartMaxAge       = 60
)

// ExecutionReader is the read side the handlers serve.
type ExecutionReader interface {
	Execution(ctx context.Context, periodID string, mode core.ViewMode) (*core.ExecutionReport, error)
	Installments(ctx context.Context, periodID string) (*services.PeriodInstallments, error)
	Periods(ctx context.Context) ([]core.Period, error)
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures a Server. Reports may be nil to disable caching.
type Options struct {
	Addr               string
	Execution          ExecutionReader
	Store              Pinger
	Reports            *cache.ReportCache
	RateLimitPerMinute int
	Logger             *log.Logger
}

type Server struct {
	http.Server
	execution ExecutionReader
	store     Pinger
	reports   *cache.ReportCache
	charts    *chart.Renderer
	logger    *log.Logger

	limiter      *ratelimit.Limiter
	cacheManager *cache.Manager
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		execution: opts.Execution,
		store:     opts.Store,
		reports:   opts.Reports,
		charts:    chart.NewRenderer(),
		logger:    logger,
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
		}),
	}

	if s.reports != nil {
		s.cacheManager = cache.NewManager(logger)
		s.cacheManager.Register(s.reports)
		s.cacheManager.StartCleanup(cacheCleanupEvery)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /periods", s.handlePeriods)
	mux.HandleFunc("GET /periods/{periodId}/installments", s.handleInstallments)
	mux.HandleFunc("GET /budget-execution/{periodId}", s.handleExecution)
	mux.Handle("GET /budget-execution/{periodId}/chart.png",
		security.CacheControl(chartMaxAge)(http.HandlerFunc(s.handleExecutionChart)))
	mux.HandleFunc("/", handleNotFound)

	detector := security.NewDetector()
	var handler http.Handler = mux
	handler = s.limiter.Middleware(detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, detector.ExtractClientIP(r),
			log.FieldPath, r.URL.Path)
		TooManyRequestsError().Write(w)
	})(handler)
	handler = detector.Middleware(logger)(handler)
	handler = security.NewHeadersMiddleware(security.APIHeadersConfig()).Middleware(handler)
	handler = trace.NewMiddleware(logger, detector.ExtractClientIP).Middleware(handler)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}
	return s
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.cacheManager != nil {
			s.cacheManager.Stop()
		}
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// report returns the execution report through the cache when one is set.
// The shared computation outlives a single caller's cancellation; the
// service's fetch timeout still bounds it.
func (s *Server) report(ctx context.Context, periodID string, mode core.ViewMode) (*core.ExecutionReport, error) {
	if s.reports == nil {
		return s.execution.Execution(ctx, periodID, mode)
	}

	detached := context.WithoutCancel(ctx)
	report, hit, err := s.reports.GetOrCompute(periodID, mode, func() (*core.ExecutionReport, error) {
		return s.execution.Execution(detached, periodID, mode)
	})
	if hit {
		log.FromContext(ctx).DebugContext(ctx, "Report cache hit", log.FieldPeriodID, periodID, log.FieldViewMode, string(mode))
	}
	return report, err
}
