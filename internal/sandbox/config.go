package sandbox

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/dmitrijs2005/tokenkeeper/internal/flagx"
	"github.com/go-playground/validator/v10"
)

// Config holds runtime settings for the sandbox server.
//
// Fields:
//   - Addr: HTTP bind address.
//   - SecretKey: HMAC secret for operator JWTs (HS256). Development only.
//   - OTPCode: the code every OTP request "sends".
//   - OTPValidity: how long a requested OTP is accepted.
//   - TokenValidity: lifetime of each issued Telecel token.
//   - OperatorTokenValidity: lifetime of operator tokens minted with -mint.
type Config struct {
	Addr                  string        `env:"SANDBOX_ADDR"           validate:"required"`
	SecretKey             string        `env:"SANDBOX_SECRET"         validate:"required"`
	OTPCode               string        `env:"SANDBOX_OTP"            validate:"len=6,number"`
	OTPValidity           time.Duration `env:"SANDBOX_OTP_VALIDITY"   validate:"min=1s"`
	TokenValidity         time.Duration `env:"SANDBOX_TOKEN_VALIDITY" validate:"min=1m"`
	OperatorTokenValidity time.Duration `validate:"min=1m"`
	LogLevel              string        `env:"SANDBOX_LOG_LEVEL"      validate:"oneof=debug info warn error"`
}

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.Addr = ":8080"
	c.SecretKey = "sandbox-secret"
	c.OTPCode = "123456"
	c.OTPValidity = 5 * time.Minute
	c.TokenValidity = 12 * time.Hour
	c.OperatorTokenValidity = 24 * time.Hour
	c.LogLevel = "info"
}

// LoadConfig applies defaults, then environment, then flags from args.
//
// Supported flags:
//
//	-a string   bind address (e.g. ":8080")
//	-s string   JWT HMAC secret
//	-o string   fixed OTP code
//	-t int      Telecel token validity, minutes
//	-l string   log level
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	args = flagx.FilterArgs(args, []string{"-a", "-s", "-o", "-t", "-l"})
	fs := flag.NewFlagSet("sandbox", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.Addr, "a", cfg.Addr, "address and port to run server")
	fs.StringVar(&cfg.SecretKey, "s", cfg.SecretKey, "secret key")
	fs.StringVar(&cfg.OTPCode, "o", cfg.OTPCode, "fixed otp code")
	tokenValidity := fs.Int("t", int(cfg.TokenValidity.Minutes()), "token validity (in minutes)")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			cfg.TokenValidity = time.Duration(*tokenValidity) * time.Minute
		}
	})

	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid sandbox config: %w", err)
	}
	return cfg, nil
}
