package config

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/tokenkeeper/internal/flagx"
)

var ownFlags = []string{"-a", "-i", "-t", "-d", "-l", "-log-file", "-tz"}

// parseFlags populates selected Config fields from command-line flags.
//
//	-a string     admin API base URL
//	-i int        status poll interval (seconds)
//	-t int        per-request timeout (seconds)
//	-d string     local database path
//	-l string     log level (debug, info, warn, error)
//	-log-file     log file path; empty logs to stderr
//	-tz string    IANA zone for displayed times
//
// args is filtered with flagx.FilterArgs first so the -c/-config flag of the
// JSON layer does not trip this flag set.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, ownFlags)

	fs := flag.NewFlagSet("tokenkeeper", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerBaseURL, "a", cfg.ServerBaseURL, "admin API base URL")
	pollInterval := fs.Int("i", int(cfg.StatusPollInterval.Seconds()), "status poll interval (in seconds)")
	timeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "local database path")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "log file path")
	fs.StringVar(&cfg.Timezone, "tz", cfg.Timezone, "time zone for displayed times")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "i":
			cfg.StatusPollInterval = time.Duration(*pollInterval) * time.Second
		case "t":
			cfg.RequestTimeout = time.Duration(*timeout) * time.Second
		}
	})
	return nil
}
