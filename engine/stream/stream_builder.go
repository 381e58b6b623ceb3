package stream

import "time"

// StreamBuilderOption is a function that modifies the stream configuration.
type StreamBuilderOption func(*stream)

// WithAddr sets the listen address for the websocket server.
//
// Parameters:
//   - addr: the address to listen on (e.g. ":8080")
//
// Returns:
//   - StreamBuilderOption: the option function
func WithAddr(addr string) StreamBuilderOption {
	return func(s *stream) {
		if addr != "" {
			s.addr = addr
		}
	}
}

// WithPath sets the URL path the websocket endpoint is served at.
//
// Parameters:
//   - path: the endpoint path (e.g. "/ws")
//
// Returns:
//   - StreamBuilderOption: the option function
func WithPath(path string) StreamBuilderOption {
	return func(s *stream) {
		if path != "" {
			s.path = path
		}
	}
}

// WithWriteTimeout sets the per-client write deadline for broadcasts. Clients
// that miss the deadline are evicted.
//
// Parameters:
//   - d: the write timeout (must be positive)
//
// Returns:
//   - StreamBuilderOption: the option function
func WithWriteTimeout(d time.Duration) StreamBuilderOption {
	return func(s *stream) {
		if d > 0 {
			s.writeTimeout = d
		}
	}
}

// WithDomain sets the domain dimensions advertised in every frame header so
// viewers can scale particle coordinates to their canvas.
//
// Parameters:
//   - width: the domain width
//   - height: the domain height
//
// Returns:
//   - StreamBuilderOption: the option function
func WithDomain(width, height float32) StreamBuilderOption {
	return func(s *stream) {
		if width > 0 && height > 0 {
			s.domainWidth = width
			s.domainHeight = height
		}
	}
}
