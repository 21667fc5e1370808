// Package pgstore adapts Postgres to the storage contract through a single
// key-value table. Every write replaces the whole record, matching the
// semantics the reconciliation layer is written against.
package pgstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"conquest-server/internal/shared/config"

	_ "github.com/lib/pq"
)

type Store struct {
	db *sql.DB
}

func Connect() (*Store, error) {
	cfg := config.GlobalConfig
	logger := slog.With("component", "pgstore", "operation", "connect")
	logger.Debug("Initializing database connection")

	logger.Info("Connecting to database",
		"host", cfg.Storage.Database.Host,
		"port", cfg.Storage.Database.Port,
		"user", cfg.Storage.Database.User,
		"database", cfg.Storage.Database.Name,
		"sslmode", cfg.Storage.Database.SSLMode,
		"max_open_conns", cfg.Storage.Database.MaxOpenConns,
		"max_idle_conns", cfg.Storage.Database.MaxIdleConns,
	)

	sqlDB, err := sql.Open("postgres", cfg.ConnectionString())
	if err != nil {
		logger.Error("Failed to open database connection",
			"error", err, "host", cfg.Storage.Database.Host, "database", cfg.Storage.Database.Name)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.Storage.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Storage.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.Storage.Database.ConnMaxLifetime)

	logger.Debug("Testing database connection with ping")
	if err := sqlDB.Ping(); err != nil {
		logger.Error("Failed to ping database",
			"error", err, "host", cfg.Storage.Database.Host, "database", cfg.Storage.Database.Name)
		if closeErr := sqlDB.Close(); closeErr != nil {
			logger.Error("Failed to close database after ping failure", "close_error", closeErr, "ping_error", err)
		}
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &Store{db: sqlDB}
	if err := store.bootstrap(); err != nil {
		logger.Error("Failed to bootstrap storage table", "error", err)
		if closeErr := sqlDB.Close(); closeErr != nil {
			logger.Error("Failed to close database after bootstrap failure", "close_error", closeErr)
		}
		return nil, fmt.Errorf("failed to bootstrap storage table: %w", err)
	}

	logger.Info("Database connection established successfully",
		"host", cfg.Storage.Database.Host, "database", cfg.Storage.Database.Name)

	return store, nil
}

func (s *Store) bootstrap() error {
	logger := slog.With("component", "pgstore", "operation", "bootstrap")
	logger.Debug("Creating kv_records table if not exists")

	query := `
	CREATE TABLE IF NOT EXISTS kv_records (
		key TEXT PRIMARY KEY,
		value BYTEA NOT NULL,
		updated_at TIMESTAMP NOT NULL DEFAULT NOW()
	)`

	_, err := s.db.Exec(query)
	if err != nil {
		logger.Error("Failed to create kv_records table", "error", err)
	} else {
		logger.Debug("kv_records table ready")
	}
	return err
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM kv_records WHERE key = $1`, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres get %s: %w", key, err)
	}
	return value, nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv_records (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`, key, value)
	if err != nil {
		return fmt.Errorf("postgres put %s: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv_records WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("postgres delete %s: %w", key, err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM kv_records WHERE key LIKE $1 || '%'`, prefix,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres list %s: %w", prefix, err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("Failed to close rows", "component", "pgstore", "error", err)
		}
	}()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("postgres list scan: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres list rows: %w", err)
	}
	return keys, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
