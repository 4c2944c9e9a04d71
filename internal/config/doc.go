// Package config loads runtime configuration for the gophsignin CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c or -config.
//  3. SIGNIN_* environment variables, also read from a .env file in the
//     working directory. The process environment wins over the file.
//  4. Command-line flags, which override earlier values.
//
// (*Config).Validate rejects out-of-range values after loading.
//
// Supported flags
//
//	-db string          SQLite database file
//	-store string       key/value backend: sqlite | redis
//	-redis string       Redis address (host:port) for the redis backend
//	-log string         log level: debug | info | warn | error
//	-lockout-max int    failed logins before the account is locked
//	-lockout-for int    lockout window (minutes)
//	-silent bool        try saved credentials on start
//
// # JSON schema
//
// Durations use timex.Duration, so values can be strings like "15m" or
// integer nanoseconds:
//
//	{
//	  "database_dsn": "signin.db",
//	  "store_backend": "sqlite",
//	  "redis_addr": "127.0.0.1:6379",
//	  "redis_prefix": "gophsignin:",
//	  "log_level": "info",
//	  "lockout_threshold": 5,
//	  "lockout_duration": "15m",
//	  "form_ttl": "24h",
//	  "autosave_debounce": "500ms",
//	  "session_lifetime": "0s",
//	  "silent_login": true,
//	  "vault_service": "gophsignin"
//	}
//
// Keys missing from the JSON file keep their default values.
//
// # Environment
//
//	SIGNIN_DB, SIGNIN_STORE, SIGNIN_REDIS_ADDR, SIGNIN_REDIS_PREFIX,
//	SIGNIN_LOG, SIGNIN_VAULT_SERVICE          strings
//	SIGNIN_LOCKOUT_MAX                        integer
//	SIGNIN_SILENT                             boolean
//	SIGNIN_LOCKOUT_DURATION, SIGNIN_FORM_TTL,
//	SIGNIN_AUTOSAVE_DEBOUNCE,
//	SIGNIN_SESSION_LIFETIME                   Go durations ("15m")
package config
