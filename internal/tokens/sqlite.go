package tokens

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// SQLStore persists tokens in a SQLite file so sessions survive restarts of
// the web app and separate invocations of the CLI.
type SQLStore struct{ db *sqlx.DB }

// OpenDB opens (and migrates) the token database at dsn.
func OpenDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// :memory: databases are per connection
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func ensureSchema(db *sqlx.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS token_kv(
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updated_at TEXT DEFAULT CURRENT_TIMESTAMP
);
`
	_, err := db.Exec(schema)
	return err
}

func NewSQLStore(db *sqlx.DB) *SQLStore { return &SQLStore{db: db} }

// OpenSQLStore is OpenDB plus NewSQLStore.
func OpenSQLStore(dsn string) (*SQLStore, error) {
	db, err := OpenDB(dsn)
	if err != nil {
		return nil, err
	}
	log.Printf("[tokens] sqlite store at %s", dsn)
	return NewSQLStore(db), nil
}

func (s *SQLStore) Get(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.GetContext(ctx, &v, `SELECT value FROM token_kv WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return v, err
}

func (s *SQLStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO token_kv(key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, key, value)
	return err
}

func (s *SQLStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`DELETE FROM token_kv WHERE key IN (?)`, keys)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, s.db.Rebind(query), args...)
	return err
}

// sqliteTime matches the CURRENT_TIMESTAMP text stored in updated_at.
const sqliteTime = "2006-01-02 15:04:05"

func (s *SQLStore) Sweep(ctx context.Context, before time.Time, live func(string) bool) (int, error) {
	var keys []string
	err := s.db.SelectContext(ctx, &keys,
		`SELECT key FROM token_kv WHERE updated_at < ? AND key LIKE '%:%'`, before.UTC().Format(sqliteTime))
	if err != nil {
		return 0, err
	}
	stale := keys[:0]
	for _, k := range keys {
		if sweepable(k, live) {
			stale = append(stale, k)
		}
	}
	if err := s.Delete(ctx, stale...); err != nil {
		return 0, err
	}
	return len(stale), nil
}

func (s *SQLStore) Close() error { return s.db.Close() }
