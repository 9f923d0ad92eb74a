// File: internal/app/server.go
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"instauto_backend/internal/access"
	"instauto_backend/internal/auth"
	"instauto_backend/internal/bootstrap"
	"instauto_backend/internal/common"
	"instauto_backend/internal/config"
	"instauto_backend/internal/jobs"
	"instauto_backend/internal/middleware"
	"instauto_backend/internal/notification"
	"instauto_backend/internal/pages"
	"instauto_backend/internal/profile"
	"instauto_backend/internal/search"
	"instauto_backend/internal/session"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handlers groups the HTTP modules mounted by the server. Search is nil when
// no Elasticsearch cluster is configured.
type Handlers struct {
	Auth         *auth.Handler
	Profile      *profile.Handler
	Notification *notification.Handler
	Pages        *pages.Handler
	Search       *search.Handler
}

// Server struct holds the dependencies for the HTTP server.
type Server struct {
	httpServer    *http.Server
	router        *gin.Engine
	cfg           *config.Config
	logger        *zap.Logger
	planExpiryJob *jobs.PlanExpiryJob
}

// NewServer builds the engine and mounts every route. It fails when the
// landing table sends a role somewhere its own route would bounce it from.
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	sessions session.Client,
	resolver bootstrap.Resolver,
	factory *access.GateFactory,
	routes access.Routes,
	handlers Handlers,
	planExpiryJob *jobs.PlanExpiryJob,
) (*Server, error) {
	accessRouter := factory.Router()
	if err := routes.Validate(accessRouter.Table()); err != nil {
		return nil, fmt.Errorf("invalid route table: %w", err)
	}

	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.HandleMethodNotAllowed = true

	// --- Global Middleware ---
	router.Use(middleware.ZapLogger(logger, cfg))
	router.Use(middleware.ErrorHandler(logger))
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.AllowedOrigins()
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{"Content-Length", "Location", middleware.RequestIDHeader}
	// Credentialed CORS cannot be combined with a wildcard origin.
	corsConfig.AllowCredentials = len(corsConfig.AllowOrigins) > 0 && corsConfig.AllowOrigins[0] != "*"
	if len(corsConfig.AllowOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	}
	router.Use(cors.New(corsConfig))

	router.Use(middleware.Session(cfg.SessionCookieName))
	router.NoRoute(middleware.NoRoute)
	router.NoMethod(middleware.NoMethod)

	requireSession := middleware.RequireSession(sessions, logger.Named("RequireSession"))
	requireProfile := middleware.RequireAPI(resolver, accessRouter, access.AnyRole(), logger.Named("RequireProfile"))
	requireAdmin := middleware.RequireAPI(resolver, accessRouter, access.Roles(common.RoleAdmin), logger.Named("RequireAdmin"))

	// --- Setup Routes ---
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP", "message": "Instauto API is healthy!"})
	})

	v1 := router.Group("/api/v1")
	handlers.Auth.RegisterRoutes(v1, requireSession, requireProfile)
	handlers.Profile.RegisterRoutes(v1, requireSession, requireProfile, requireAdmin)
	handlers.Notification.RegisterRoutes(v1, requireProfile)
	handlers.Pages.RegisterRoutes(router, v1)
	if handlers.Search != nil {
		handlers.Search.RegisterRoutes(v1)
	} else {
		logger.Info("Oficina search is disabled (ELASTICSEARCH_URL not set)")
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Streaming endpoints stay open; they end on client disconnect or shutdown.
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer:    httpServer,
		router:        router,
		cfg:           cfg,
		logger:        logger,
		planExpiryJob: planExpiryJob,
	}, nil
}

// Handler exposes the engine, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	if s.planExpiryJob != nil {
		if err := s.planExpiryJob.SetupAndStart(); err != nil {
			s.logger.Error("Failed to setup and start plan expiry job", zap.Error(err))
		}
	}

	s.logger.Info("HTTP Server starting",
		zap.String("address", s.httpServer.Addr),
		zap.String("gin_mode", s.cfg.GinMode),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.logger.Error("Failed to start HTTP server", zap.Error(err))
		return err
	}
	s.logger.Info("HTTP Server stopped")
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Attempting graceful server shutdown...")
	if s.planExpiryJob != nil {
		s.planExpiryJob.Stop()
	}
	return s.httpServer.Shutdown(ctx)
}
