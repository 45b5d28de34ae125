package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/learnhub/internal/flagx"
	"github.com/dmitrijs2005/learnhub/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Pointer and
// zero-valued fields tell "absent" apart from a configured value.
type JsonConfig struct {
	APIBaseURL     string          `json:"api_base_url"`
	HubURL         string          `json:"hub_url"`
	RequestTimeout *timex.Duration `json:"request_timeout"`
	DatabasePath   string          `json:"database_path"`

	HubStartAttempts        *int            `json:"hub_start_attempts"`
	HubStartRetryDelay      *timex.Duration `json:"hub_start_retry_delay"`
	HubReconnectShortDelay  *timex.Duration `json:"hub_reconnect_short_delay"`
	HubReconnectLongDelay   *timex.Duration `json:"hub_reconnect_long_delay"`
	HubReconnectThreshold   *timex.Duration `json:"hub_reconnect_threshold"`
	HubMaxReconnectAttempts *int            `json:"hub_max_reconnect_attempts"`

	LogLevel string `json:"log_level"`
}

// parseJson overlays cfg with the file named by -c/-config in args or by
// $LEARNHUB_CONFIG. No file means no change.
func parseJson(cfg *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&cfg.APIBaseURL, jc.APIBaseURL)
	setString(&cfg.HubURL, jc.HubURL)
	setString(&cfg.DatabasePath, jc.DatabasePath)
	setString(&cfg.LogLevel, jc.LogLevel)

	setDuration(&cfg.RequestTimeout, jc.RequestTimeout)
	setDuration(&cfg.HubStartRetryDelay, jc.HubStartRetryDelay)
	setDuration(&cfg.HubReconnectShortDelay, jc.HubReconnectShortDelay)
	setDuration(&cfg.HubReconnectLongDelay, jc.HubReconnectLongDelay)
	setDuration(&cfg.HubReconnectThreshold, jc.HubReconnectThreshold)

	if jc.HubStartAttempts != nil {
		cfg.HubStartAttempts = *jc.HubStartAttempts
	}
	if jc.HubMaxReconnectAttempts != nil {
		cfg.HubMaxReconnectAttempts = *jc.HubMaxReconnectAttempts
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v *timex.Duration) {
	if v != nil {
		*dst = v.Duration
	}
}
