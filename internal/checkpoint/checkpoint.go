// Package checkpoint persists suspended session state so a pipeline can be
// resumed after a human decision, possibly from another process.
package checkpoint

import (
	"errors"
	"time"

	"github.com/rivalmap/rivalmap/internal/state"
)

// ErrSessionNotFound is returned when no checkpoint exists for a session id.
var ErrSessionNotFound = errors.New("session not found")

// Checkpoint is one suspended session: the full state document plus the
// resume cursor naming the stage group to re-enter.
type Checkpoint struct {
	SessionID   string              `json:"session_id"`
	State       *state.SessionState `json:"state"`
	ResumeStage string              `json:"resume_stage"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// Store persists one checkpoint per session id.
type Store interface {
	Save(cp *Checkpoint) error
	Load(sessionID string) (*Checkpoint, error)
	Delete(sessionID string) error
	Sessions() ([]string, error)
	Close() error
}
