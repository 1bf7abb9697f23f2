package server

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/telephasma/telephasma/internal/config"
	"github.com/telephasma/telephasma/internal/database"
	"github.com/telephasma/telephasma/internal/platform"
	"github.com/telephasma/telephasma/internal/scan"
	"github.com/telephasma/telephasma/internal/session"
)

// Server exposes the scanner over HTTP: a REST surface for auth and graph
// lookups, and a WebSocket per scan run. One Server wraps one platform
// session; concurrent runs share the session but own their stop tokens.
type Server struct {
	cfg      *config.Config
	client   platform.Client
	engine   *scan.Engine
	resolver *scan.Resolver

	store *session.Store
	db    *database.ScanDB

	logger *slog.Logger
	router *gin.Engine

	mu   sync.Mutex
	runs map[string]*scan.Stopper
}

// Option configures a Server.
type Option func(*Server)

// WithSessionStore attaches a session store. Without one, logins are not
// persisted and the dialog cache fallback is disabled.
func WithSessionStore(store *session.Store) Option {
	return func(s *Server) {
		s.store = store
	}
}

// WithScanDB attaches scan-history storage. Without one, runs are not
// recorded and the report endpoint is unavailable.
func WithScanDB(db *database.ScanDB) Option {
	return func(s *Server) {
		s.db = db
	}
}

// WithEngine replaces the default scan engine.
func WithEngine(engine *scan.Engine) Option {
	return func(s *Server) {
		s.engine = engine
	}
}

// WithLogger sets the server's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// New builds a Server over the given platform client.
func New(cfg *config.Config, client platform.Client, opts ...Option) *Server {
	s := &Server{
		cfg:    cfg,
		client: client,
		logger: slog.Default(),
		runs:   make(map[string]*scan.Stopper),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.engine == nil {
		s.engine = scan.New(client,
			scan.WithParticipantLimit(cfg.ParticipantLimit),
			scan.WithLogger(s.logger),
		)
	}
	s.resolver = scan.NewResolver(client,
		scan.WithCacheScanLimit(cfg.DialogCacheScan),
		scan.WithResolverLogger(s.logger),
	)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(s.corsMiddleware())

	router.GET("/health", s.handleHealth)

	api := router.Group("/api")
	{
		api.POST("/login", s.handleLogin)
		api.POST("/verify", s.handleVerify)
		api.GET("/dialogs", s.handleDialogs)
		api.GET("/chat/:chat/members", s.handleChatMembers)
		api.GET("/user/:user/common-groups", s.handleCommonGroups)
		api.POST("/stop-scan", s.handleStopScan)
		api.GET("/runs", s.handleListRuns)
		api.GET("/report/:run", s.handleReport)
	}

	router.GET("/ws/scan/:chat", s.handleScanWebSocket)

	s.router = router
	return s
}

// Handler returns the HTTP handler for mounting in an http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// corsMiddleware implements the CORS policy. An empty allow-list admits
// every origin, which suits the localhost deployments this tool targets.
func (s *Server) corsMiddleware() gin.HandlerFunc {
	allowed := make(map[string]bool, len(s.cfg.AllowedOrigins))
	for _, origin := range s.cfg.AllowedOrigins {
		allowed[origin] = true
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		switch {
		case len(allowed) == 0:
			c.Header("Access-Control-Allow-Origin", "*")
		case allowed[origin]:
			c.Header("Access-Control-Allow-Origin", origin)
		}
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// registerRun tracks a running scan's stop token under its run id.
func (s *Server) registerRun(runID string, st *scan.Stopper) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[runID] = st
}

// unregisterRun forgets a finished run.
func (s *Server) unregisterRun(runID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.runs, runID)
}

// stopRun stops one run by id, reporting whether it was known.
func (s *Server) stopRun(runID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.runs[runID]
	if ok {
		st.Stop()
	}
	return ok
}

// StopAll stops every running scan. Used on shutdown and by the stop
// endpoint when no run id is given.
func (s *Server) StopAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.runs {
		st.Stop()
	}
	return len(s.runs)
}
