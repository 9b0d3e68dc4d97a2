// Package server exposes the HTTP surface: the REST API, the WebSocket feed
// endpoint, health probes, and Prometheus metrics.
package server
