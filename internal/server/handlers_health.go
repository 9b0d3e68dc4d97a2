package server

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/richarrd92/hobbymatch/internal/version"
)

const readinessTimeout = 5 * time.Second

func (s *Server) handleLiveness(c echo.Context) error {
	uptime := s.clock.Since(s.startTime).Seconds()
	return c.JSON(200, map[string]any{
		"status":  "ok",
		"uptime":  uptime,
		"clients": s.hub.ClientCount(),
		"build":   version.Get(),
	})
}

// handleReadiness requires a reachable database. The relay is reported but
// never gates readiness: the broadcaster serves local delivery without it.
func (s *Server) handleReadiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), readinessTimeout)
	defer cancel()

	if err := s.db.Ping(ctx); err != nil {
		return c.JSON(503, map[string]any{
			"status":       "unhealthy",
			"failed_check": "postgres",
			"error":        err.Error(),
		})
	}

	relay := "disabled"
	if s.config.DistributedMode() {
		relay = "degraded"
		if s.broadcaster.DistributedActive() {
			relay = "active"
		}
	}

	return c.JSON(200, map[string]any{
		"status": "ready",
		"relay":  relay,
	})
}
