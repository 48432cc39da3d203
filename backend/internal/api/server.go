// Package api exposes the social graph over HTTP. Read routes are public;
// POST /nodes and DELETE /nodes/:label/:id sit behind the bearer-token guard
// unless auth is disabled in the configuration.
package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"socialgraph/backend/internal/graph"
	"socialgraph/backend/internal/metrics"
	"socialgraph/backend/pkg/config"
	"go.uber.org/zap"
)

// Store is the graph access the handlers need
type Store interface {
	GetUser(ctx context.Context, id int64) (*graph.User, error)
	TopUsers(ctx context.Context) ([]graph.TopUser, error)
	TopGroups(ctx context.Context) ([]graph.TopGroup, error)
	CountUsers(ctx context.Context) (int64, error)
	CountGroups(ctx context.Context) (int64, error)
	MutualFollowers(ctx context.Context) ([]graph.MutualPair, error)
	RunNamedFlat(ctx context.Context, name string) ([]map[string]any, error)
	ListNodes(ctx context.Context) ([]graph.NodeSummary, error)
	GetNode(ctx context.Context, label graph.Label, id int64) (*graph.NodeDetail, error)
	UpsertNode(ctx context.Context, in graph.NodeInput) (*graph.UpsertResult, error)
	DeleteNode(ctx context.Context, label graph.Label, id int64) error
}

// Pinger reports whether the database is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server wires the routes to a Store
type Server struct {
	cfg     *config.Config
	store   Store
	pinger  Pinger
	metrics *metrics.Collector
	logger  *zap.Logger
	router  *gin.Engine
}

// ServerOption configures a Server
type ServerOption func(*Server)

// WithPinger enables the database check behind GET /ready
func WithPinger(p Pinger) ServerOption {
	return func(s *Server) { s.pinger = p }
}

// WithMetrics records request metrics and serves GET /metrics
func WithMetrics(c *metrics.Collector) ServerOption {
	return func(s *Server) { s.metrics = c }
}

// NewServer builds the router for cfg and store
func NewServer(cfg *config.Config, store Store, logger *zap.Logger, opts ...ServerOption) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		cfg:    cfg,
		store:  store,
		logger: logger.Named("api"),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := registerValidators(); err != nil {
		return nil, err
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	s.router = s.routes()
	return s, nil
}

// Handler returns the HTTP handler serving every route
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *gin.Engine {
	router := gin.New()
	router.Use(requestID())
	router.Use(requestLogger(s.logger))
	router.Use(gin.Recovery())
	router.Use(cors())

	if s.metrics != nil {
		router.Use(instrument(s.metrics))
		router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	router.GET("/health", s.health)
	router.GET("/ready", s.ready)

	// Reads
	router.GET("/user/:id", s.getUser)
	router.GET("/top-users", s.topUsers)
	router.GET("/top-groups", s.topGroups)
	router.GET("/users-count", s.usersCount)
	router.GET("/groups-count", s.groupsCount)
	router.GET("/mutual-followers", s.mutualFollowers)
	router.GET("/queries", s.listQueries)
	router.GET("/queries/:name", s.namedQuery)
	router.GET("/nodes", s.listNodes)
	router.GET("/node/:label/:id", s.getNode)

	// Writes
	guard := s.authGuard()
	router.POST("/nodes", guard, s.createNode)
	router.DELETE("/nodes/:label/:id", guard, s.deleteNode)

	return router
}

func (s *Server) authGuard() gin.HandlerFunc {
	if !s.cfg.AuthEnabled {
		s.logger.Warn("Auth guard disabled; mutating routes are public")
		return func(c *gin.Context) { c.Next() }
	}
	return bearerAuth(s.cfg.AuthToken)
}
