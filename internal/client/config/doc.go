// Package config loads runtime configuration for the tokenkeeper CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c or -config.
//  3. TOKENKEEPER_* environment variables (caarlos0/env).
//  4. Command-line flags, which override everything else.
//
// The result is validated with go-playground/validator before use.
//
// # JSON schema
//
// Durations use timex.Duration, so values can be strings like "60s" or
// integer nanoseconds:
//
//	{
//	  "server_base_url": "https://api.example.com/api",
//	  "status_poll_interval": "60s",
//	  "request_timeout": "30s",
//	  "refresh_threshold": "2h",
//	  "otp_advisory_window": "5m",
//	  "database_path": "~/.tokenkeeper/state.db",
//	  "log_level": "info",
//	  "timezone": "Africa/Accra"
//	}
//
// The operator bearer token can only come from TOKENKEEPER_BEARER_TOKEN or
// the interactive login command.
package config
