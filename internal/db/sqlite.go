package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/acparceria818-png/Transporte-AC-2.0/internal/config"

	_ "modernc.org/sqlite"
)

// ConnectSQLite opens the embedded database that holds per-device session state.
func ConnectSQLite(cfg config.Config) (*sql.DB, error) {
	if cfg.SQLitePath == "" {
		return nil, fmt.Errorf("sqlite path not configured")
	}
	dsn := cfg.SQLitePath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	// SQLite allows a single writer.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(time.Hour)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping sqlite: %w", err)
	}
	return conn, nil
}
