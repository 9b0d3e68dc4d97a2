package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	// Observability endpoints (no auth required)
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Auth
	s.echo.POST("/api/auth/login", s.handleLogin)

	// Feed API (authenticated)
	s.echo.GET("/api/feed", s.handleListFeed, s.requireAuth)
	s.echo.POST("/api/posts", s.handleCreatePost, s.requireAuth)
	s.echo.DELETE("/api/posts/:id", s.handleDeletePost, s.requireAuth)
	s.echo.POST("/api/posts/:id/comments", s.handleCreateComment, s.requireAuth)
	s.echo.POST("/api/posts/:id/reactions", s.handleCreateReaction, s.requireAuth)

	// Live feed socket (token passed as query param by browser clients)
	s.echo.GET("/ws/feed", s.handleFeedSocket)
}
