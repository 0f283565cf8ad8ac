package http

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"dolor/internal/cache"
	"dolor/internal/core"
	"dolor/internal/log"
	"dolor/internal/middleware/ratelimit"
	"dolor/internal/middleware/security"
	"dolor/internal/middleware/trace"
	"dolor/internal/services"
)

// Options tunes the server. Zero values select defaults.
type Options struct {
	RateLimitPerMinute int
	// SummaryCacheTTL of zero disables summary caching.
	SummaryCacheTTL time.Duration
	Logger          *log.Logger
	// Ping checks the record store for /readyz. Nil means always ready.
	Ping func(ctx context.Context) error
}

type appMetrics struct {
	recordsCreated atomic.Int64
	cacheHits      atomic.Int64
	cacheMisses    atomic.Int64
	startedAt      time.Time
}

type Server struct {
	http.Server

	tracker     *services.Tracker
	collections map[string]collectionAPI
	ping        func(ctx context.Context) error
	logger      *log.Logger

	summaryCache *cache.LRUCache[[]core.MonthBucket]
	summary      *cache.Loading[[]core.MonthBucket]
	cacheManager *cache.Manager

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	metrics          *appMetrics

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, tracker *services.Tracker, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	rlCfg := ratelimit.DefaultConfig()
	if opts.RateLimitPerMinute > 0 {
		rlCfg.RequestsPerMinute = opts.RateLimitPerMinute
	}

	summaryCache := cache.NewLRUCache[[]core.MonthBucket](1, opts.SummaryCacheTTL)
	cacheManager := cache.NewManager()
	cacheManager.Register(summaryCache)

	detector := security.NewDetector()
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		tracker:          tracker,
		collections:      collectionsOf(tracker),
		ping:             opts.Ping,
		logger:           logger,
		summaryCache:     summaryCache,
		summary:          cache.NewLoading[[]core.MonthBucket](summaryCache),
		cacheManager:     cacheManager,
		rateLimiter:      ratelimit.NewLimiter(rlCfg),
		securityDetector: detector,
		traceMiddleware:  trace.NewMiddleware(detector.ExtractClientIP),
		metrics:          &appMetrics{startedAt: time.Now()},
	}
	cacheManager.StartCleanup(time.Minute)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /api/expenses/summary", s.handleSummary)
	mux.HandleFunc("GET /api/{collection}", s.handleList)
	mux.HandleFunc("POST /api/{collection}", s.handleCreate)
	mux.HandleFunc("DELETE /api/{collection}", s.handleDelete)
	mux.HandleFunc("PATCH /api/{collection}/{id}", s.handleUpdate)

	s.Handler = s.chain(mux)
	return s
}

// chain wraps h with the middleware stack, outermost first.
func (s *Server) chain(h http.Handler) http.Handler {
	onLimit := func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, please try again later").Write(w)
	}
	h = s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, onLimit)(h)
	h = s.securityDetector.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = log.RequestIDMiddleware(trace.FromRequest)(h)
	h = log.Middleware(s.logger)(h)
	return s.traceMiddleware.Middleware(h)
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// InvalidateSummary drops the cached monthly summary.
func (s *Server) InvalidateSummary() {
	s.summary.Invalidate(summaryCacheKey)
}
