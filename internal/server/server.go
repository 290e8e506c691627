package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/platefeed/backend/config"
	"github.com/platefeed/backend/internal/api"
	"github.com/platefeed/backend/internal/logger"
	"github.com/platefeed/backend/internal/middleware"
	"github.com/platefeed/backend/internal/service"
)

// Server wires the HTTP router to the service layer.
type Server struct {
	router *gin.Engine
	http   *http.Server
	log    *logger.Logger
}

// New assembles the router, middleware and handlers.
func New(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, log *logger.Logger) (*Server, error) {
	if cfg.Mode == "prod" || cfg.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.AllowedOrigins))

	var s3Config *config.S3Config
	if cfg.S3BucketName != "" {
		var err error
		s3Config, err = config.NewS3Config(context.Background(), cfg.S3BucketName)
		if err != nil {
			return nil, err
		}
	}
	imageService := service.NewImageService(cfg.MediaDir, s3Config, log)

	authService := service.NewAuthService(db, redisClient, cfg.JWTSecret, cfg.TokenTTL, log)

	deps := api.Deps{
		Auth:    authService,
		Images:  imageService,
		Recipes: service.NewRecipeService(db, log),
		Markers: service.NewMarkerService(db, log),
		Follows: service.NewFollowService(db, log),
		Users:   service.NewUserService(db, log),
		Catalog: service.NewCatalogService(db, log),
		Limiter: middleware.NewRecipeCreationRateLimiter(redisClient),
		Log:     log,
	}
	api.RegisterRoutes(router, deps)

	// Locally stored recipe images are served straight from disk.
	if cfg.MediaDir != "" {
		router.Static("/media", cfg.MediaDir)
	}

	return &Server{
		router: router,
		http: &http.Server{
			Addr:              ":" + cfg.ServerPort,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: log,
	}, nil
}

// Router exposes the underlying engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start serves until SIGINT or SIGTERM, then shuts down gracefully.
func (s *Server) Start() error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server listening", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		s.log.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.http.Shutdown(ctx)
}

// Stop shuts the server down without waiting for a signal.
func (s *Server) Stop(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
