package hub

import (
	"time"

	"github.com/gorilla/websocket"
)

// Config holds the connection and retry policy. Zero fields take the
// defaults from DefaultConfig.
type Config struct {
	// URL is the hub endpoint, ws:// or wss://.
	URL string

	StartAttempts   int
	StartRetryDelay time.Duration

	ReconnectShortDelay  time.Duration
	ReconnectLongDelay   time.Duration
	ReconnectThreshold   time.Duration
	MaxReconnectAttempts int

	KeepAliveInterval time.Duration
	ServerTimeout     time.Duration
	HandshakeTimeout  time.Duration

	// Dialer defaults to websocket.DefaultDialer.
	Dialer *websocket.Dialer
}

func DefaultConfig(url string) Config {
	return Config{
		URL:                  url,
		StartAttempts:        3,
		StartRetryDelay:      2 * time.Second,
		ReconnectShortDelay:  2 * time.Second,
		ReconnectLongDelay:   10 * time.Second,
		ReconnectThreshold:   10 * time.Second,
		MaxReconnectAttempts: 5,
		KeepAliveInterval:    15 * time.Second,
		ServerTimeout:        30 * time.Second,
		HandshakeTimeout:     15 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig(c.URL)
	if c.StartAttempts <= 0 {
		c.StartAttempts = d.StartAttempts
	}
	if c.StartRetryDelay <= 0 {
		c.StartRetryDelay = d.StartRetryDelay
	}
	if c.ReconnectShortDelay <= 0 {
		c.ReconnectShortDelay = d.ReconnectShortDelay
	}
	if c.ReconnectLongDelay <= 0 {
		c.ReconnectLongDelay = d.ReconnectLongDelay
	}
	if c.ReconnectThreshold <= 0 {
		c.ReconnectThreshold = d.ReconnectThreshold
	}
	if c.MaxReconnectAttempts <= 0 {
		c.MaxReconnectAttempts = d.MaxReconnectAttempts
	}
	if c.KeepAliveInterval <= 0 {
		c.KeepAliveInterval = d.KeepAliveInterval
	}
	if c.ServerTimeout <= 0 {
		c.ServerTimeout = d.ServerTimeout
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = d.HandshakeTimeout
	}
	if c.Dialer == nil {
		c.Dialer = websocket.DefaultDialer
	}
	return c
}

// reconnectDelay is the wait before the next attempt, given how long the
// connection has been down.
func (c Config) reconnectDelay(down time.Duration) time.Duration {
	if down < c.ReconnectThreshold {
		return c.ReconnectShortDelay
	}
	return c.ReconnectLongDelay
}
