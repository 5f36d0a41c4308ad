package sandbox

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(nil)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "123456", cfg.OTPCode)
	assert.Equal(t, 5*time.Minute, cfg.OTPValidity)
	assert.Equal(t, 12*time.Hour, cfg.TokenValidity)
}

func TestLoadConfig_EnvThenFlags(t *testing.T) {
	t.Setenv("SANDBOX_ADDR", ":9000")
	t.Setenv("SANDBOX_OTP", "111111")
	t.Setenv("SANDBOX_TOKEN_VALIDITY", "1h")

	cfg, err := LoadConfig([]string{"-o", "222222", "-mint", "ama", "-c", "x.json"})
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, "222222", cfg.OTPCode)
	assert.Equal(t, time.Hour, cfg.TokenValidity)

	cfg, err = LoadConfig([]string{"-t", "30"})
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, cfg.TokenValidity)
}

func TestLoadConfig_Invalid(t *testing.T) {
	for name, args := range map[string][]string{
		"short otp":     {"-o", "123"},
		"alpha otp":     {"-o", "12345a"},
		"tiny validity": {"-t", "0"},
		"bad level":     {"-l", "loud"},
		"bad int":       {"-t", "soon"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(args)
			require.Error(t, err)
		})
	}
}
