// Package broadcast implements the live-feed connection registry and fan-out.
//
// The Hub uses the actor pattern: a single goroutine owns the connection set and
// processes commands over a channel (no mutexes). Per-connection write goroutines
// absorb slow clients so one stuck connection never delays the others. The
// Broadcaster layers optional Redis pub/sub on top so multiple instances share one
// broadcast stream, degrading permanently to local-only delivery on relay failure.
package broadcast
