package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/gophsignin/internal/flagx"
)

var knownFlags = []string{"-db", "-store", "-redis", "-log", "-lockout-max", "-lockout-for", "-silent"}

// parseFlags populates cfg from the subset of args this package owns (see
// doc.go). Parse errors panic, matching parseJson.
func parseFlags(cfg *Config, args []string) {
	args = flagx.FilterArgs(args, knownFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.DatabaseDSN, "db", cfg.DatabaseDSN, "SQLite database file")
	fs.StringVar(&cfg.StoreBackend, "store", cfg.StoreBackend, "key/value backend: sqlite | redis")
	fs.StringVar(&cfg.RedisAddr, "redis", cfg.RedisAddr, "Redis address")
	fs.StringVar(&cfg.LogLevel, "log", cfg.LogLevel, "log level")
	fs.IntVar(&cfg.LockoutThreshold, "lockout-max", cfg.LockoutThreshold, "failed logins before lockout")
	lockoutFor := fs.Int("lockout-for", int(cfg.LockoutDuration.Minutes()), "lockout window (in minutes)")
	fs.BoolVar(&cfg.SilentLogin, "silent", cfg.SilentLogin, "try saved credentials on start")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.LockoutDuration = time.Duration(*lockoutFor) * time.Minute
}
