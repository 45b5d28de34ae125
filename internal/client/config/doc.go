// Package config loads runtime configuration for the LearnHub CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c/-config, or $LEARNHUB_CONFIG.
//  3. Command-line flags, which override earlier values.
//
// When no hub URL is configured it is derived from the API base address:
// http://host/api becomes ws://host/hubs/livesession.
//
// Supported flags
//
//	-a string   API base address, e.g. https://learnhub.example.com/api
//	-h string   live-session hub URL
//	-t int      request timeout (seconds)
//	-d string   path of the local SQLite database
//	-l string   log level: debug, info, warn, error
//
// # JSON schema
//
// Durations use timex.Duration, so they can be strings like "2s" or integer
// nanoseconds. Absent keys keep their earlier value.
//
//	{
//	  "api_base_url": "https://learnhub.example.com/api",
//	  "hub_url": "wss://learnhub.example.com/hubs/livesession",
//	  "request_timeout": "10s",
//	  "database_path": "learnhub.db",
//	  "hub_start_attempts": 3,
//	  "hub_start_retry_delay": "2s",
//	  "hub_reconnect_short_delay": "2s",
//	  "hub_reconnect_long_delay": "10s",
//	  "hub_reconnect_threshold": "10s",
//	  "hub_max_reconnect_attempts": 5,
//	  "log_level": "info"
//	}
package config
