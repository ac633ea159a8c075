package api

import "time"

// ServerConfig configures the HTTP server that exposes the randomness
// oracle's request handlers (`/`, `/info`, `/randomness`).
type ServerConfig struct {
	// Listen is the address:port the server binds to.
	Listen string

	// ReadTimeout is the maximum duration for reading the entire request,
	// including the body. Zero selects the default; a negative value means
	// there is no timeout.
	// Default: 10s
	ReadTimeout time.Duration

	// WriteTimeout is the maximum duration before timing out writes of the response.
	// Zero selects the default; a negative value means there is no timeout.
	// Default: 10s
	WriteTimeout time.Duration

	// IdleTimeout is the maximum amount of time to wait for the next request
	// when keep-alives are enabled. Zero selects the default.
	// Default: 60s
	IdleTimeout time.Duration
}

// applyDefaults fills in zero values with sensible defaults.
func (c *ServerConfig) applyDefaults() {
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 60 * time.Second
	}
}
