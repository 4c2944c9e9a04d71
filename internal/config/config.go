package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config holds runtime settings for the sign-in core and its CLI.
type Config struct {
	DatabaseDSN  string `validate:"required_if=StoreBackend sqlite"`
	StoreBackend string `validate:"oneof=sqlite redis"`
	RedisAddr    string `validate:"omitempty,hostname_port"`
	RedisPrefix  string
	LogLevel     string `validate:"oneof=debug info warn warning error"`

	LockoutThreshold int           `validate:"gte=1"`
	LockoutDuration  time.Duration `validate:"gt=0"`

	FormTTL          time.Duration `validate:"gt=0"`
	AutosaveDebounce time.Duration `validate:"gte=0"`

	// SessionLifetime bounds a restored session; zero keeps it until logout.
	SessionLifetime time.Duration `validate:"gte=0"`

	SilentLogin  bool
	VaultService string `validate:"required"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// LoadDefaults populates c with the documented defaults.
func (c *Config) LoadDefaults() {
	c.DatabaseDSN = "signin.db"
	c.StoreBackend = BackendSQLite
	c.RedisAddr = "127.0.0.1:6379"
	c.RedisPrefix = "gophsignin:"
	c.LogLevel = "info"
	c.LockoutThreshold = 5
	c.LockoutDuration = 15 * time.Minute
	c.FormTTL = 24 * time.Hour
	c.AutosaveDebounce = 500 * time.Millisecond
	c.SessionLifetime = 0
	c.SilentLogin = true
	c.VaultService = "gophsignin"
}

// Validate checks value ranges that the loaders cannot enforce. Every
// failing field is reported.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("invalid config: %w", err)
	}

	errs := make([]error, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Param() != "" {
			errs = append(errs, fmt.Errorf("invalid config: %s fails %s=%s (got %v)", fe.Field(), fe.Tag(), fe.Param(), fe.Value()))
			continue
		}
		errs = append(errs, fmt.Errorf("invalid config: %s fails %s (got %v)", fe.Field(), fe.Tag(), fe.Value()))
	}
	return errors.Join(errs...)
}

// LoadConfig builds a Config from defaults, the JSON file (if any), the
// environment (with an optional .env file) and the process flags. It panics
// on an unreadable config file, malformed environment values or flags.
func LoadConfig() *Config {
	return load(os.Args[1:], os.Environ())
}

func load(args, environ []string) *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg, args)
	parseEnv(cfg, envFile, environ)
	parseFlags(cfg, args)
	return cfg
}
