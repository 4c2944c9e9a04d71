package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/gophsignin/internal/flagx"
	"github.com/dmitrijs2005/gophsignin/internal/timex"
)

// JsonConfig is the on-disk shape. Pointer fields distinguish "absent" from
// zero so that a partial file only overrides what it names.
type JsonConfig struct {
	DatabaseDSN      *string         `json:"database_dsn"`
	StoreBackend     *string         `json:"store_backend"`
	RedisAddr        *string         `json:"redis_addr"`
	RedisPrefix      *string         `json:"redis_prefix"`
	LogLevel         *string         `json:"log_level"`
	LockoutThreshold *int            `json:"lockout_threshold"`
	LockoutDuration  *timex.Duration `json:"lockout_duration"`
	FormTTL          *timex.Duration `json:"form_ttl"`
	AutosaveDebounce *timex.Duration `json:"autosave_debounce"`
	SessionLifetime  *timex.Duration `json:"session_lifetime"`
	SilentLogin      *bool           `json:"silent_login"`
	VaultService     *string         `json:"vault_service"`
}

// parseJson overlays cfg with the JSON file named by -c/-config in args.
// Without such a flag it does nothing; read or decode errors panic.
func parseJson(cfg *Config, args []string) {
	path := flagx.ConfigPath(args)
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	setIf(&cfg.DatabaseDSN, jc.DatabaseDSN)
	setIf(&cfg.StoreBackend, jc.StoreBackend)
	setIf(&cfg.RedisAddr, jc.RedisAddr)
	setIf(&cfg.RedisPrefix, jc.RedisPrefix)
	setIf(&cfg.LogLevel, jc.LogLevel)
	setIf(&cfg.LockoutThreshold, jc.LockoutThreshold)
	setIf(&cfg.SilentLogin, jc.SilentLogin)
	setIf(&cfg.VaultService, jc.VaultService)

	if jc.LockoutDuration != nil {
		cfg.LockoutDuration = jc.LockoutDuration.Duration
	}
	if jc.FormTTL != nil {
		cfg.FormTTL = jc.FormTTL.Duration
	}
	if jc.AutosaveDebounce != nil {
		cfg.AutosaveDebounce = jc.AutosaveDebounce.Duration
	}
	if jc.SessionLifetime != nil {
		cfg.SessionLifetime = jc.SessionLifetime.Duration
	}
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
