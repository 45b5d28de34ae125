package config

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/learnhub/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
//	-a string   API base address
//	-h string   hub URL
//	-t int      request timeout in seconds
//	-d string   database path
//	-l string   log level
//
// args is filtered with flagx.FilterArgs first so that flags owned by other
// loaders (-c) do not make parsing fail.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-h", "-t", "-d", "-l"})

	fs := flag.NewFlagSet("learnhub", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.APIBaseURL, "a", cfg.APIBaseURL, "API base address")
	fs.StringVar(&cfg.HubURL, "h", cfg.HubURL, "live-session hub URL")
	timeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "local database path")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	// -t only overrides when given, so a sub-second JSON value survives.
	var err error
	fs.Visit(func(f *flag.Flag) {
		if f.Name != "t" {
			return
		}
		if *timeout <= 0 {
			err = fmt.Errorf("request timeout must be positive, got %d", *timeout)
			return
		}
		cfg.RequestTimeout = time.Duration(*timeout) * time.Second
	})
	return err
}
