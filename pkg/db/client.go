// Package db opens the gorm connection behind the SQL-backed local state store.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/raamul-storefront/pkg/config"
	"github.com/angelmondragon/raamul-storefront/pkg/logger"
)

// sqlitePragmas let a second CLI invocation wait for the first instead of failing
// with "database is locked".
const sqlitePragmas = "_busy_timeout=5000&_journal_mode=WAL"

type Client struct {
	conn    *gorm.DB
	sqlDB   *sql.DB
	dialect string
}

// New opens and pings the configured sqlite or postgres database.
func New(ctx context.Context, cfg config.StorageConfig, logg *logger.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, errors.New("storage DSN is required")
	}
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 gormlogger.Discard,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", dialector.Name(), err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql db handle: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping %s database: %w", dialector.Name(), err)
	}

	if logg != nil {
		logg.Debug(logg.WithField(ctx, "driver", dialector.Name()), "local state database opened")
	}
	return &Client{conn: conn, sqlDB: sqlDB, dialect: dialector.Name()}, nil
}

func dialectorFor(cfg config.StorageConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case config.StorageDriverPostgres:
		return postgres.New(postgres.Config{DSN: cfg.DSN, PreferSimpleProtocol: true}), nil
	case config.StorageDriverSQLite, "":
		dsn, err := sqliteDSN(cfg.DSN)
		if err != nil {
			return nil, err
		}
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported sql storage driver %q", cfg.Driver)
	}
}

// sqliteDSN creates the parent directory of a file database and appends the pragmas
// unless the DSN already carries query options.
func sqliteDSN(dsn string) (string, error) {
	if dsn == ":memory:" || strings.HasPrefix(dsn, "file::memory:") || strings.Contains(dsn, "?") {
		return dsn, nil
	}
	path := strings.TrimPrefix(dsn, "file:")
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return "", fmt.Errorf("creating state directory: %w", err)
		}
	}
	return "file:" + path + "?" + sqlitePragmas, nil
}

func (c *Client) DB() *gorm.DB {
	return c.conn
}

// SQLDB is the pooled handle goose migrations run on.
func (c *Client) SQLDB() *sql.DB {
	return c.sqlDB
}

// Dialect is the gorm dialector name, "sqlite" or "postgres".
func (c *Client) Dialect() string {
	return c.dialect
}

func (c *Client) Ping(ctx context.Context) error {
	return c.sqlDB.PingContext(ctx)
}

func (c *Client) Close() error {
	return c.sqlDB.Close()
}
