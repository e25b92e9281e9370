package localstate

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"
)

const kvSchema = `CREATE TABLE IF NOT EXISTS kv (
	namespace TEXT NOT NULL,
	key TEXT NOT NULL,
	value TEXT NOT NULL,
	PRIMARY KEY (namespace, key)
)`

const opTimeout = 2 * time.Second

// SQLite persists device state in an embedded database shared by all devices.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(ctx context.Context, db *sql.DB) (*SQLite, error) {
	if _, err := db.ExecContext(ctx, kvSchema); err != nil {
		return nil, err
	}
	return &SQLite{db: db}, nil
}

// For returns the view of one device's keys.
func (s *SQLite) For(namespace string) Store {
	return &namespaced{db: s.db, ns: namespace}
}

type namespaced struct {
	db *sql.DB
	ns string
}

func (n *namespaced) Get(key string) (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	var value string
	err := n.db.QueryRowContext(ctx,
		`SELECT value FROM kv WHERE namespace = ? AND key = ?`, n.ns, key).Scan(&value)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.Printf("localstate: read %s/%s: %v", n.ns, key, err)
		}
		return "", false
	}
	return value, true
}

func (n *namespaced) Set(key, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	_, err := n.db.ExecContext(ctx, `
		INSERT INTO kv (namespace, key, value) VALUES (?, ?, ?)
		ON CONFLICT (namespace, key) DO UPDATE SET value = excluded.value
	`, n.ns, key, value)
	return err
}

func (n *namespaced) Delete(keys ...string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	for _, k := range keys {
		if _, err := n.db.ExecContext(ctx,
			`DELETE FROM kv WHERE namespace = ? AND key = ?`, n.ns, k); err != nil {
			return err
		}
	}
	return nil
}
