package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/richarrd92/hobbymatch/internal/config"
	"github.com/richarrd92/hobbymatch/internal/domain"
	apperrors "github.com/richarrd92/hobbymatch/internal/errors"
)

// feedHub is the slice of the connection registry the server needs.
type feedHub interface {
	Register(conn *websocket.Conn) error
	Unregister(conn *websocket.Conn)
	ClientCount() int
}

// eventBroadcaster publishes feed events to all live clients.
type eventBroadcaster interface {
	Broadcast(ctx context.Context, event domain.Event)
	DistributedActive() bool
}

// postgresPinger is the minimal interface for database health checks.
type postgresPinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	echo        *echo.Echo
	config      *config.Config
	users       domain.UserRepository
	posts       domain.PostRepository
	media       domain.MediaStore // nil when media storage is not configured
	verifier    domain.TokenVerifier
	hub         feedHub
	broadcaster eventBroadcaster
	limits      *feedLimits
	clock       clockwork.Clock
	db          postgresPinger
	startTime   time.Time
}

func NewServer(
	cfg *config.Config,
	users domain.UserRepository,
	posts domain.PostRepository,
	media domain.MediaStore,
	verifier domain.TokenVerifier,
	hub feedHub,
	broadcaster eventBroadcaster,
	clock clockwork.Clock,
	db postgresPinger,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(apperrors.Middleware())

	srv := &Server{
		echo:        e,
		config:      cfg,
		users:       users,
		posts:       posts,
		media:       media,
		verifier:    verifier,
		hub:         hub,
		broadcaster: broadcaster,
		limits:      newFeedLimits(cfg.MaxConnsPerIP, cfg.ConnRatePerIP, cfg.ConnBurstPerIP),
		clock:       clock,
		db:          db,
		startTime:   clock.Now(),
	}
	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
