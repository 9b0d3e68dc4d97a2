package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/richarrd92/hobbymatch/internal/broadcast"
	"github.com/richarrd92/hobbymatch/internal/domain"
	apperrors "github.com/richarrd92/hobbymatch/internal/errors"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // token auth, not origin, gates this endpoint
	},
}

// handleFeedSocket authenticates the client, upgrades the connection, and
// parks it in the hub until it disconnects. Events only flow server to
// client; inbound frames are drained and discarded.
func (s *Server) handleFeedSocket(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return apperrors.Unauthorized("missing token")
	}

	identity, err := s.verifier.Verify(token)
	if err != nil {
		return apperrors.Unauthorized("invalid token")
	}

	ctx := c.Request().Context()
	if _, err := s.users.GetByAuthUID(ctx, identity.AuthUID); errors.Is(err, domain.ErrNotFound) {
		return apperrors.Unauthorized("unknown user")
	} else if err != nil {
		return apperrors.Internal("failed to load user", err)
	}

	ip := c.RealIP()
	if !s.limits.acquire(ip) {
		return echo.NewHTTPError(http.StatusTooManyRequests, "too many connections")
	}
	defer s.limits.release(ip)

	// Cheap pre-upgrade capacity check; the hub enforces the cap
	// authoritatively at register time.
	if count := s.hub.ClientCount(); count >= s.config.MaxFeedClients {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "server at capacity")
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	if err := s.hub.Register(conn); err != nil {
		// On ErrHubFull the hub has already closed the connection.
		if !errors.Is(err, broadcast.ErrHubFull) {
			_ = conn.Close()
		}
		return nil
	}

	// Read pump, blocks until the connection dies
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.hub.Unregister(conn)
	return nil
}
