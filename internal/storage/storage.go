// Package storage opens the durable key/value store selected by the config:
// a local SQLite file migrated with goose (default) or a Redis database.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	"github.com/dmitrijs2005/gophsignin/internal/config"
	"github.com/dmitrijs2005/gophsignin/internal/filex"
	"github.com/dmitrijs2005/gophsignin/internal/kv"
	"github.com/dmitrijs2005/gophsignin/internal/migrations"
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"

	_ "modernc.org/sqlite"
)

// RunMigrations applies the embedded migrations to db.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// InitDatabase opens the SQLite database at dsn and brings its schema up to date.
func InitDatabase(ctx context.Context, dsn string) (*sql.DB, error) {
	if filex.IsFilePath(dsn) {
		if _, err := filex.EnsureParentDir(dsn); err != nil {
			return nil, fmt.Errorf("failed to prepare database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// SQLite serializes writers; a single connection avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

// Open returns the store chosen by cfg.StoreBackend and a closer releasing
// its connection.
func Open(ctx context.Context, cfg *config.Config) (kv.Store, io.Closer, error) {
	switch cfg.StoreBackend {
	case config.BackendSQLite, "":
		db, err := InitDatabase(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, nil, err
		}
		return kv.NewSQLiteStore(db), db, nil

	case config.BackendRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.RedisAddr, err)
		}
		return kv.NewRedisStore(rdb, cfg.RedisPrefix), rdb, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
