package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "SIGNIN_"

// envFile is read from the working directory when present. Variables set in
// the process environment win over the file.
var envFile = ".env"

// parseEnv overlays cfg with SIGNIN_* variables. Malformed numbers, booleans
// or durations panic, matching parseJson and parseFlags.
func parseEnv(cfg *Config, file string, environ []string) {
	vars := map[string]string{}

	if file != "" {
		fromFile, err := godotenv.Read(file)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			panic(err)
		}
		for k, v := range fromFile {
			vars[k] = v
		}
	}

	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if ok && strings.HasPrefix(k, envPrefix) {
			vars[k] = v
		}
	}

	envString(vars, "DB", &cfg.DatabaseDSN)
	envString(vars, "STORE", &cfg.StoreBackend)
	envString(vars, "REDIS_ADDR", &cfg.RedisAddr)
	envString(vars, "REDIS_PREFIX", &cfg.RedisPrefix)
	envString(vars, "LOG", &cfg.LogLevel)
	envString(vars, "VAULT_SERVICE", &cfg.VaultService)

	if v, ok := vars[envPrefix+"LOCKOUT_MAX"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			panic(fmt.Errorf("%sLOCKOUT_MAX: %w", envPrefix, err))
		}
		cfg.LockoutThreshold = n
	}
	if v, ok := vars[envPrefix+"SILENT"]; ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			panic(fmt.Errorf("%sSILENT: %w", envPrefix, err))
		}
		cfg.SilentLogin = b
	}

	envDuration(vars, "LOCKOUT_DURATION", &cfg.LockoutDuration)
	envDuration(vars, "FORM_TTL", &cfg.FormTTL)
	envDuration(vars, "AUTOSAVE_DEBOUNCE", &cfg.AutosaveDebounce)
	envDuration(vars, "SESSION_LIFETIME", &cfg.SessionLifetime)
}

func envString(vars map[string]string, name string, dst *string) {
	if v, ok := vars[envPrefix+name]; ok {
		*dst = v
	}
}

func envDuration(vars map[string]string, name string, dst *time.Duration) {
	v, ok := vars[envPrefix+name]
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		panic(fmt.Errorf("%s%s: %w", envPrefix, name, err))
	}
	*dst = d
}
