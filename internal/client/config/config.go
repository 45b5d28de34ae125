package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/learnhub/internal/client/hub"
)

const hubPath = "/hubs/livesession"

// Config holds runtime settings for the LearnHub CLI.
type Config struct {
	APIBaseURL     string
	HubURL         string
	RequestTimeout time.Duration
	DatabasePath   string

	HubStartAttempts        int
	HubStartRetryDelay      time.Duration
	HubReconnectShortDelay  time.Duration
	HubReconnectLongDelay   time.Duration
	HubReconnectThreshold   time.Duration
	HubMaxReconnectAttempts int

	LogLevel string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = "http://localhost:5000/api"
	c.HubURL = ""
	c.RequestTimeout = 10 * time.Second
	c.DatabasePath = "learnhub.db"
	c.HubStartAttempts = 3
	c.HubStartRetryDelay = 2 * time.Second
	c.HubReconnectShortDelay = 2 * time.Second
	c.HubReconnectLongDelay = 10 * time.Second
	c.HubReconnectThreshold = 10 * time.Second
	c.HubMaxReconnectAttempts = 5
	c.LogLevel = "info"
}

// LoadConfig applies defaults, then the JSON file (if any), then the flags
// in args (os.Args[1:] in production). Later sources take precedence.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if cfg.HubURL == "" {
		hubURL, err := DeriveHubURL(cfg.APIBaseURL)
		if err != nil {
			return nil, err
		}
		cfg.HubURL = hubURL
	}
	return cfg, nil
}

// DeriveHubURL maps an API base address to the hub endpoint on the same
// host. A trailing /api path segment is dropped.
func DeriveHubURL(apiBase string) (string, error) {
	u, err := url.Parse(apiBase)
	if err != nil {
		return "", fmt.Errorf("parse api base url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("api base url %q: scheme must be http or https", apiBase)
	}

	p := strings.TrimSuffix(u.Path, "/")
	p = strings.TrimSuffix(p, "/api")
	u.Path = p + hubPath
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}

// Hub returns the hub client settings. Keep-alive and timeouts use the hub
// package defaults.
func (c *Config) Hub() hub.Config {
	cfg := hub.DefaultConfig(c.HubURL)
	cfg.StartAttempts = c.HubStartAttempts
	cfg.StartRetryDelay = c.HubStartRetryDelay
	cfg.ReconnectShortDelay = c.HubReconnectShortDelay
	cfg.ReconnectLongDelay = c.HubReconnectLongDelay
	cfg.ReconnectThreshold = c.HubReconnectThreshold
	cfg.MaxReconnectAttempts = c.HubMaxReconnectAttempts
	return cfg
}
