package server

import (
	"net/http"
	"time"

	"queryhub/internal/cache"
	"queryhub/internal/config"
	"queryhub/internal/crypto"
	"queryhub/internal/handler"
	"queryhub/internal/metrics"
	"queryhub/internal/middleware"
	"queryhub/internal/notifier"
	"queryhub/internal/repository"
	"queryhub/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
)

type Server struct {
	router    *gin.Engine
	db        *sqlx.DB
	cfg       *config.Config
	respCache cache.ResponseCache
	completer service.Completer
	notifier  *notifier.Notifier
	log       *logrus.Logger
	zlog      *zap.Logger
}

func NewServer(db *sqlx.DB, cfg *config.Config, respCache cache.ResponseCache, completer service.Completer, ntf *notifier.Notifier, log *logrus.Logger, zlog *zap.Logger) *Server {
	router := gin.Default()
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS(cfg.CORS.AllowedOrigins))
	router.Use(metrics.GinMiddleware())

	s := &Server{
		router:    router,
		db:        db,
		cfg:       cfg,
		respCache: respCache,
		completer: completer,
		notifier:  ntf,
		log:       log,
		zlog:      zlog,
	}

	// Setup routes
	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	// Initialize Auth components
	userRepo := repository.NewUserRepository(s.db, s.zlog)
	hasher := crypto.NewPasswordHasher(s.cfg.Auth.BcryptCost, s.zlog)
	tokenService := service.NewTokenService(s.cfg.JWT.Secret, time.Duration(s.cfg.JWT.TTLMinutes)*time.Minute, s.zlog)
	authService := service.NewAuthService(userRepo, hasher, tokenService, s.notifier, s.zlog)
	authHandler := handler.NewAuthHandler(authService, s.log)

	// Initialize Query pipeline components
	queryRepo := repository.NewQueryRepository(s.db, s.zlog)
	completionTimeout := time.Duration(s.cfg.OpenAI.TimeoutSeconds) * time.Second
	queryService := service.NewQueryService(queryRepo, s.respCache, s.completer, s.notifier, completionTimeout, s.zlog)
	queryHandler := handler.NewQueryHandler(queryService, s.zlog)

	// Ping route for health check
	s.router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	// Prometheus scrape endpoint
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Authentication routes
	authGroup := s.router.Group("/api/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)

	// Authenticated routes
	authRequired := s.router.Group("/api")
	authRequired.Use(middleware.AuthMiddleware(tokenService, s.zlog))
	{
		authRequired.POST("/query", queryHandler.Submit)
		authRequired.GET("/queries", queryHandler.History)
		authRequired.GET("/queries/:id/response", queryHandler.GetResponse)
	}
}

func (s *Server) Run(addr string) {
	s.log.Infof("Server starting on port %s...", addr)
	if err := s.router.Run(addr); err != nil {
		s.log.Fatalf("Server failed to start: %v", err)
	}
}
