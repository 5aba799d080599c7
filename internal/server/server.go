package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"alphawatch/internal/handler"
	"alphawatch/internal/middleware"
)

// Handlers groups the HTTP handlers the server routes to.
type Handlers struct {
	Auth       handler.AuthHandler
	Onboarding handler.OnboardingHandler
	Watch      handler.WatchHandler
	Groups     handler.GroupsHandler
	Queue      handler.QueueHandler
	Audit      handler.AuditHandler
}

type Server struct {
	router *gin.Engine
	srv    *http.Server
	logger *zap.Logger
}

func NewServer(h Handlers, jwtSecret []byte, logger *zap.Logger) *Server {
	router := gin.Default()

	s := &Server{
		router: router,
		logger: logger,
	}

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	authGroup := router.Group("/api/auth")
	authGroup.POST("/register", h.Auth.Register)
	authGroup.POST("/login", h.Auth.Login)

	api := router.Group("/api")
	api.Use(middleware.AuthMiddleware(jwtSecret, logger))
	{
		api.POST("/init", h.Onboarding.Init)
		api.POST("/verify", h.Onboarding.Verify)

		api.POST("/watch-group", h.Watch.Watch)
		api.POST("/unwatch-group", h.Watch.Unwatch)
		api.GET("/watched-groups", h.Watch.List)

		api.GET("/user-groups", h.Groups.UserGroups)
		api.GET("/get-queue", h.Queue.GetQueue)
		api.GET("/audit", h.Audit.ListRecent)
	}

	return s
}

// Run starts the HTTP server and blocks until it stops.
func (s *Server) Run(addr string) error {
	s.srv = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}
	s.logger.Info("Server starting", zap.String("addr", addr))
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
