package sse

import "time"

// Config holds settings for SSE connections.
type Config struct {
	// KeepAliveInterval is how often to send keep-alive pings.
	// 10 seconds is safe for most proxies and edge runtimes.
	KeepAliveInterval time.Duration
}

// DefaultConfig returns the default SSE configuration.
func DefaultConfig() *Config {
	return &Config{
		KeepAliveInterval: 10 * time.Second,
	}
}
