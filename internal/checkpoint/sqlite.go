package checkpoint

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rivalmap/rivalmap/internal/state"
)

// SQLiteStore persists checkpoints in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

const checkpointSchema = `
CREATE TABLE IF NOT EXISTS checkpoints (
	session_id   TEXT PRIMARY KEY,
	state        TEXT NOT NULL,
	resume_stage TEXT NOT NULL,
	updated_at   TIMESTAMP NOT NULL
);
`

// NewSQLiteStore opens (creating if needed) a checkpoint database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening checkpoint db: %w", err)
	}
	if _, err := db.Exec(checkpointSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing checkpoint schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Save stores a checkpoint, replacing any prior one for the session.
func (s *SQLiteStore) Save(cp *Checkpoint) error {
	if cp.SessionID == "" {
		return fmt.Errorf("checkpoint has no session id")
	}
	raw, err := json.Marshal(cp.State)
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO checkpoints (session_id, state, resume_stage, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			state = excluded.state,
			resume_stage = excluded.resume_stage,
			updated_at = excluded.updated_at`,
		cp.SessionID, string(raw), cp.ResumeStage, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("writing checkpoint: %w", err)
	}
	return nil
}

// Load returns the checkpoint for a session, or ErrSessionNotFound.
func (s *SQLiteStore) Load(sessionID string) (*Checkpoint, error) {
	var raw, resumeStage string
	var updatedAt time.Time
	err := s.db.QueryRow(
		`SELECT state, resume_stage, updated_at FROM checkpoints WHERE session_id = ?`,
		sessionID,
	).Scan(&raw, &resumeStage, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading checkpoint: %w", err)
	}

	var st state.SessionState
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return nil, fmt.Errorf("decoding state: %w", err)
	}
	return &Checkpoint{
		SessionID:   sessionID,
		State:       &st,
		ResumeStage: resumeStage,
		UpdatedAt:   updatedAt,
	}, nil
}

// Delete removes a checkpoint; deleting an absent session is not an error.
func (s *SQLiteStore) Delete(sessionID string) error {
	if _, err := s.db.Exec(`DELETE FROM checkpoints WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("deleting checkpoint: %w", err)
	}
	return nil
}

// Sessions lists checkpointed session ids in sorted order.
func (s *SQLiteStore) Sessions() ([]string, error) {
	rows, err := s.db.Query(`SELECT session_id FROM checkpoints ORDER BY session_id`)
	if err != nil {
		return nil, fmt.Errorf("listing checkpoints: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning session id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
