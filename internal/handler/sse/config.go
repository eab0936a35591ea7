package sse

import "time"

// Config holds configuration for SSE responses
type Config struct {
	// HeartbeatInterval is how often a comment line is written while the
	// upstream is quiet. Proxies such as Vercel's close idle streams.
	HeartbeatInterval time.Duration
}

// DefaultConfig returns a 10 second heartbeat
func DefaultConfig() *Config {
	return &Config{
		HeartbeatInterval: 10 * time.Second,
	}
}
