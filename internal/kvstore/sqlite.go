package kvstore

import (
	"context"
	"database/sql"
	stderrors "errors"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteBackend persists values in a local SQLite database.
// Watch reports writes made through this backend only.
type SQLiteBackend struct {
	db        *sql.DB
	namespace string
	mu        sync.RWMutex
	fan       *fanout
	closed    bool
}

// NewSQLiteBackend opens (or creates) the database at dbPath.
// Use ":memory:" for a throwaway database.
func NewSQLiteBackend(dbPath, namespace string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, ErrOpenFailed.Wrap(err).WithContext("path", dbPath)
	}
	// A single connection keeps ":memory:" databases shared between calls.
	db.SetMaxOpenConns(1)

	b := &SQLiteBackend{db: db, namespace: namespace, fan: newFanout()}
	if err := b.initialize(); err != nil {
		_ = db.Close()
		return nil, ErrOpenFailed.Wrap(err).WithContext("path", dbPath)
	}
	return b, nil
}

func (b *SQLiteBackend) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS settings (
		namespace TEXT NOT NULL,
		key TEXT NOT NULL,
		value BLOB NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (namespace, key)
	);
	`
	_, err := b.db.Exec(schema)
	return err
}

func (b *SQLiteBackend) Name() string { return "sqlite" }

func (b *SQLiteBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, false, ErrClosed
	}

	var value []byte
	err := b.db.QueryRowContext(ctx,
		"SELECT value FROM settings WHERE namespace = ? AND key = ?",
		b.namespace, key,
	).Scan(&value)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, ErrGetFailed.Wrap(err).WithContext("key", key)
	}
	return value, true, nil
}

func (b *SQLiteBackend) Put(ctx context.Context, key string, value []byte) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	_, err := b.db.ExecContext(ctx,
		`INSERT INTO settings (namespace, key, value, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(namespace, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		b.namespace, key, value, time.Now().Unix(),
	)
	b.mu.Unlock()
	if err != nil {
		return ErrPutFailed.Wrap(err).WithContext("key", key)
	}

	b.fan.publish(Change{Key: key, Value: append([]byte(nil), value...)})
	return nil
}

func (b *SQLiteBackend) Watch(ctx context.Context) (<-chan Change, error) {
	return b.fan.watch(ctx)
}

// Keys lists every stored key in the namespace.
func (b *SQLiteBackend) Keys(ctx context.Context) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, ErrClosed
	}

	rows, err := b.db.QueryContext(ctx,
		"SELECT key FROM settings WHERE namespace = ? ORDER BY key", b.namespace)
	if err != nil {
		return nil, ErrGetFailed.Wrap(err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, ErrGetFailed.Wrap(err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, ErrGetFailed.Wrap(err)
	}
	return keys, nil
}

func (b *SQLiteBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	b.fan.close()
	return b.db.Close()
}
