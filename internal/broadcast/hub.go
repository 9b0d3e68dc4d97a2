package broadcast

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/richarrd92/hobbymatch/internal/metrics"
)

const (
	commandTimeout = 5 * time.Second
	stopTimeout    = 10 * time.Second
)

// ErrHubFull is returned by Register when the client cap is reached.
var ErrHubFull = errors.New("hub at max clients")

// hubCmd is the command interface for the Hub actor.
type hubCmd interface{ isHubCmd() }

type baseHubCmd struct{}

func (baseHubCmd) isHubCmd() {}

type registerCmd struct {
	baseHubCmd
	connection   *websocket.Conn
	errorChannel chan error
}

type unregisterCmd struct {
	baseHubCmd
	connection *websocket.Conn
}

type deliverCmd struct {
	baseHubCmd
	data []byte
}

type clientCountCmd struct {
	baseHubCmd
	replyChannel chan int
}

type hubStopCmd struct {
	baseHubCmd
}

// Hub is the live-connection registry. A single goroutine owns the
// connection set and processes commands, so no locking is needed; every
// registered connection is an equal broadcast recipient.
type Hub struct {
	cmdCh      chan hubCmd
	clock      clockwork.Clock
	clients    map[*websocket.Conn]*clientWriter
	maxClients int
	done       chan struct{}
}

// NewHub creates the hub and starts its actor goroutine.
// maxClients caps concurrent connections (prevents resource exhaustion).
func NewHub(clock clockwork.Clock, maxClients int) *Hub {
	h := &Hub{
		cmdCh:      make(chan hubCmd, 256),
		clock:      clock,
		clients:    make(map[*websocket.Conn]*clientWriter),
		maxClients: maxClients,
		done:       make(chan struct{}),
	}
	go h.run()
	return h
}

// Register adds a connection to the live set. The connection must already be
// upgraded and authenticated. Returns an error only when the client cap is
// reached, in which case the connection has been closed.
func (h *Hub) Register(conn *websocket.Conn) error {
	errCh := make(chan error, 1)
	h.cmdCh <- registerCmd{connection: conn, errorChannel: errCh}

	timer := h.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case err := <-errCh:
		return err
	case <-timer.Chan():
		return fmt.Errorf("register command timed out after %v", commandTimeout)
	}
}

// Unregister removes a connection from the live set. Unregistering a
// connection that is not present is a no-op.
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.cmdCh <- unregisterCmd{connection: conn}
}

// Deliver fans out an already-serialized event to every live connection.
// A failed send drops that connection and never affects the others.
func (h *Hub) Deliver(data []byte) {
	h.cmdCh <- deliverCmd{data: data}
}

// ClientCount returns the number of live connections.
// Returns -1 if the command times out.
func (h *Hub) ClientCount() int {
	replyCh := make(chan int, 1)
	h.cmdCh <- clientCountCmd{replyChannel: replyCh}

	timer := h.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case count := <-replyCh:
		return count
	case <-timer.Chan():
		slog.Warn("ClientCount timed out", "timeout", commandTimeout)
		return -1
	}
}

// Stop shuts down the hub, closing all client connections.
// Blocks until the actor goroutine has exited or the timeout is reached.
func (h *Hub) Stop() {
	h.cmdCh <- hubStopCmd{}

	timer := h.clock.NewTimer(stopTimeout)
	defer timer.Stop()

	select {
	case <-h.done:
		slog.Info("Hub stopped gracefully")
	case <-timer.Chan():
		slog.Warn("Hub stop timeout exceeded", "timeout", stopTimeout)
	}
}

func (h *Hub) run() {
	defer close(h.done)

	for cmd := range h.cmdCh {
		switch c := cmd.(type) {
		case registerCmd:
			h.handleRegister(c)
		case unregisterCmd:
			h.handleUnregister(c.connection)
		case deliverCmd:
			h.handleDeliver(c.data)
		case clientCountCmd:
			c.replyChannel <- len(h.clients)
		case hubStopCmd:
			h.handleStop()
			return
		default:
			slog.Warn("Hub received unknown command type", "command_type", fmt.Sprintf("%T", cmd))
		}
	}
}

func (h *Hub) handleRegister(c registerCmd) {
	if len(h.clients) >= h.maxClients {
		slog.Warn("Rejecting client: max clients reached", "max_clients", h.maxClients)
		_ = c.connection.Close()
		c.errorChannel <- fmt.Errorf("%w (%d)", ErrHubFull, h.maxClients)
		return
	}

	h.clients[c.connection] = newClientWriter(c.connection, h.clock)
	metrics.ConnectedClients.Set(float64(len(h.clients)))
	slog.Debug("Client registered", "total_clients", len(h.clients))
	c.errorChannel <- nil
}

func (h *Hub) handleUnregister(conn *websocket.Conn) {
	cw, exists := h.clients[conn]
	if !exists {
		return
	}

	cw.stop()
	delete(h.clients, conn)
	metrics.ConnectedClients.Set(float64(len(h.clients)))
	slog.Debug("Client unregistered", "remaining_clients", len(h.clients))
}

func (h *Hub) handleDeliver(data []byte) {
	var failed []*websocket.Conn
	for conn, writer := range h.clients {
		if !writer.send(data) {
			failed = append(failed, conn)
		}
	}

	for _, conn := range failed {
		slog.Warn("Dropping client after failed send")
		metrics.SendFailures.Inc()
		h.handleUnregister(conn)
	}
}

func (h *Hub) handleStop() {
	slog.Info("Hub shutting down", "clients", len(h.clients))
	for conn, cw := range h.clients {
		cw.stopGraceful("Server shutting down")
		delete(h.clients, conn)
	}
	metrics.ConnectedClients.Set(0)
}
