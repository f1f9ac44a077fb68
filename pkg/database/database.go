package database

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/medflow/idscan/pkg/config"
	"github.com/medflow/idscan/pkg/logger"
)

const healthTimeout = time.Second

// DB is the identity record store's PostgreSQL handle
type DB struct {
	*sqlx.DB
	logger *logger.Logger
}

// Pool holds connection pool limits. Zero values keep the database/sql defaults.
type Pool struct {
	MaxOpen     int
	MaxIdle     int
	MaxLifetime time.Duration
}

// New connects using the service database configuration
func New(cfg *config.DatabaseConfig, log *logger.Logger) (*DB, error) {
	db, err := open(cfg.DSN(), Pool{
		MaxOpen:     cfg.MaxOpenConns,
		MaxIdle:     cfg.MaxIdleConns,
		MaxLifetime: cfg.ConnMaxLifetime,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database %s: %w", cfg.Target(), err)
	}

	log.Info().Str("target", cfg.Target()).Int("max_open_conns", cfg.MaxOpenConns).Msg("connected to database")
	return db, nil
}

// NewWithDSN connects to dsn with default pool limits, used by idscanctl and tests
func NewWithDSN(dsn string, log *logger.Logger) (*DB, error) {
	db, err := open(dsn, Pool{}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func open(dsn string, pool Pool, log *logger.Logger) (*DB, error) {
	raw, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if pool.MaxOpen > 0 {
		raw.SetMaxOpenConns(pool.MaxOpen)
	}
	if pool.MaxIdle > 0 {
		raw.SetMaxIdleConns(pool.MaxIdle)
	}
	if pool.MaxLifetime > 0 {
		raw.SetConnMaxLifetime(pool.MaxLifetime)
	}

	return Wrap(raw, log), nil
}

// Wrap adapts an existing sqlx handle, used with sqlmock in tests
func Wrap(db *sqlx.DB, log *logger.Logger) *DB {
	return &DB{DB: db, logger: log.WithComponent("database")}
}

// Ping checks the database connection
func (db *DB) Ping(ctx context.Context) error {
	return db.PingContext(ctx)
}

// Close closes the connection pool
func (db *DB) Close() error {
	return db.DB.Close()
}

// SchemaVersion returns the newest applied migration, or "" before the first migrate
func (db *DB) SchemaVersion(ctx context.Context) (string, error) {
	var version string
	err := db.GetContext(ctx, &version, `SELECT COALESCE(MAX(version), '') FROM schema_migrations`)
	return version, err
}

// Health reports reachability, schema version and open connections for /health
func (db *DB) Health(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return map[string]string{"status": "down", "error": err.Error()}
	}

	status := map[string]string{
		"status":           "up",
		"open_connections": strconv.Itoa(db.Stats().OpenConnections),
	}
	if version, err := db.SchemaVersion(ctx); err == nil && version != "" {
		status["schema_version"] = version
	} else {
		status["schema_version"] = "none"
	}

	return status
}

// Transaction runs fn in a transaction, rolling back when fn returns an error
func (db *DB) Transaction(ctx context.Context, fn func(*sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			db.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
