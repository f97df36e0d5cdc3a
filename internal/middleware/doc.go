// Package middleware provides HTTP middleware for the review server.
//
// It includes:
//   - Request logging in W3C Extended Log Format
//   - Response compression for JSON and text responses
//   - Prometheus request metrics
//
// All response writers pass http.Hijacker through so the player WebSocket
// can be upgraded behind the full chain.
package middleware
