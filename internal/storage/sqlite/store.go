// Package sqlite persists partition state in a single SQLite database per
// partition replica.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/MarkoKacprzak/ServiceFabricAuction/internal/storage"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS records (
	collection TEXT NOT NULL,
	key TEXT NOT NULL,
	value BLOB NOT NULL,
	PRIMARY KEY (collection, key)
);
`

type Store struct {
	db *sql.DB
}

// Open creates or opens the partition database at path, creating parent
// directories as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir data dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=FULL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Begin(ctx context.Context) (storage.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

type sqliteTx struct {
	tx   *sql.Tx
	done bool
}

func (t *sqliteTx) Get(ctx context.Context, collection, key string) ([]byte, bool, error) {
	row := t.tx.QueryRowContext(ctx,
		`SELECT value FROM records WHERE collection=? AND key=?`, collection, key)
	var value []byte
	err := row.Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (t *sqliteTx) Set(ctx context.Context, collection, key string, value []byte) error {
	_, err := t.tx.ExecContext(ctx, `
INSERT INTO records(collection, key, value) VALUES(?, ?, ?)
ON CONFLICT(collection, key) DO UPDATE SET value=excluded.value`,
		collection, key, value)
	return err
}

func (t *sqliteTx) Delete(ctx context.Context, collection, key string) error {
	_, err := t.tx.ExecContext(ctx,
		`DELETE FROM records WHERE collection=? AND key=?`, collection, key)
	return err
}

func (t *sqliteTx) Enumerate(ctx context.Context, collection string) ([]storage.Pair, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT key, value FROM records WHERE collection=? ORDER BY key ASC`, collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []storage.Pair
	for rows.Next() {
		var p storage.Pair
		if err := rows.Scan(&p.Key, &p.Value); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (t *sqliteTx) Commit() error {
	t.done = true
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	return t.tx.Rollback()
}
