package memory

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore persists memory records in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

const memorySchema = `
CREATE TABLE IF NOT EXISTS memory_records (
	namespace  TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      TEXT NOT NULL,
	expires_at TIMESTAMP,
	updated_at TIMESTAMP NOT NULL,
	PRIMARY KEY (namespace, key)
);
CREATE INDEX IF NOT EXISTS idx_memory_namespace ON memory_records(namespace);
`

// NewSQLiteStore opens (creating if needed) a memory database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening memory db: %w", err)
	}
	if _, err := db.Exec(memorySchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing memory schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Get returns the record for a namespace/key pair.
func (s *SQLiteStore) Get(namespace, key string) (map[string]interface{}, bool, error) {
	var raw string
	err := s.db.QueryRow(
		`SELECT value FROM memory_records WHERE namespace = ? AND key = ?`,
		namespace, key,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading memory record: %w", err)
	}

	var value map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return nil, false, fmt.Errorf("decoding memory record: %w", err)
	}
	return value, true, nil
}

// Put stores a record, replacing any prior value for the key.
func (s *SQLiteStore) Put(namespace, key string, value map[string]interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding memory record: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO memory_records (namespace, key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(namespace, key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`,
		namespace, key, string(raw), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("writing memory record: %w", err)
	}
	return nil
}

// Delete removes a record; deleting an absent key is not an error.
func (s *SQLiteStore) Delete(namespace, key string) error {
	if _, err := s.db.Exec(
		`DELETE FROM memory_records WHERE namespace = ? AND key = ?`,
		namespace, key,
	); err != nil {
		return fmt.Errorf("deleting memory record: %w", err)
	}
	return nil
}

// Keys lists the keys of a namespace in sorted order.
func (s *SQLiteStore) Keys(namespace string) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT key FROM memory_records WHERE namespace = ? ORDER BY key`,
		namespace,
	)
	if err != nil {
		return nil, fmt.Errorf("listing memory keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scanning memory key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
