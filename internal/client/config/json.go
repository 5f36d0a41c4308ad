package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/tokenkeeper/internal/flagx"
	"github.com/dmitrijs2005/tokenkeeper/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Absent keys
// leave the corresponding Config field untouched. There is deliberately no
// bearer token key.
type JsonConfig struct {
	ServerBaseURL       *string         `json:"server_base_url"`
	StatusPollInterval  *timex.Duration `json:"status_poll_interval"`
	RequestTimeout      *timex.Duration `json:"request_timeout"`
	RefreshThreshold    *timex.Duration `json:"refresh_threshold"`
	OTPAdvisoryWindow   *timex.Duration `json:"otp_advisory_window"`
	OnlineCheckInterval *timex.Duration `json:"online_check_interval"`
	DatabasePath        *string         `json:"database_path"`
	LogLevel            *string         `json:"log_level"`
	LogFile             *string         `json:"log_file"`
	Timezone            *string         `json:"timezone"`
}

// parseJson overlays cfg with the JSON file given by -c or -config in args.
// Without either flag it does nothing.
func parseJson(cfg *Config, args []string) error {
	path := flagx.JsonConfigFlagsFrom(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&cfg.ServerBaseURL, jc.ServerBaseURL)
	setDuration(&cfg.StatusPollInterval, jc.StatusPollInterval)
	setDuration(&cfg.RequestTimeout, jc.RequestTimeout)
	setDuration(&cfg.RefreshThreshold, jc.RefreshThreshold)
	setDuration(&cfg.OTPAdvisoryWindow, jc.OTPAdvisoryWindow)
	setDuration(&cfg.OnlineCheckInterval, jc.OnlineCheckInterval)
	setString(&cfg.DatabasePath, jc.DatabasePath)
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.LogFile, jc.LogFile)
	setString(&cfg.Timezone, jc.Timezone)
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *timex.Duration) {
	if v != nil {
		*dst = v.Duration
	}
}
