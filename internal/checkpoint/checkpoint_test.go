package checkpoint

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/rivalmap/rivalmap/internal/state"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	sqlite, err := NewSQLiteStore(filepath.Join(t.TempDir(), "checkpoints.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })
	return map[string]Store{
		"inmemory": NewInMemoryStore(),
		"sqlite":   sqlite,
	}
}

func sample(id string) *Checkpoint {
	st := state.New(id, "https://acme.io")
	st.AppendMessage(state.RoleUser, "analyze acme")
	st.ApprovalStatus = state.StatusPendingPlanApproval
	st.ResearchTasks = []state.ResearchTask{
		{Type: state.TaskCompanyProfile, Target: "acme", URL: "https://acme.io"},
	}
	return &Checkpoint{SessionID: id, State: st, ResumeStage: "researcher"}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.Save(sample("s1")); err != nil {
				t.Fatalf("Save: %v", err)
			}

			cp, err := store.Load("s1")
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if cp.ResumeStage != "researcher" {
				t.Errorf("resume_stage = %q", cp.ResumeStage)
			}
			if cp.State.ApprovalStatus != state.StatusPendingPlanApproval {
				t.Errorf("approval_status = %q", cp.State.ApprovalStatus)
			}
			if len(cp.State.ResearchTasks) != 1 || cp.State.ResearchTasks[0].Type != state.TaskCompanyProfile {
				t.Errorf("tasks = %+v", cp.State.ResearchTasks)
			}
			if len(cp.State.Conversation) != 1 {
				t.Errorf("conversation = %+v", cp.State.Conversation)
			}
		})
	}
}

func TestLoadUnknownSession(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Load("nope")
			if !errors.Is(err, ErrSessionNotFound) {
				t.Errorf("want ErrSessionNotFound, got %v", err)
			}
		})
	}
}

func TestSaveReplacesPriorCheckpoint(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			store.Save(sample("s1"))

			cp := sample("s1")
			cp.State.ApprovalStatus = state.StatusApprovedPlan
			cp.ResumeStage = "strategist"
			if err := store.Save(cp); err != nil {
				t.Fatalf("Save replace: %v", err)
			}

			got, err := store.Load("s1")
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if got.State.ApprovalStatus != state.StatusApprovedPlan || got.ResumeStage != "strategist" {
				t.Errorf("checkpoint not replaced: %+v", got)
			}

			ids, _ := store.Sessions()
			if len(ids) != 1 {
				t.Errorf("Sessions = %v", ids)
			}
		})
	}
}

func TestDeleteAndSessions(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			store.Save(sample("b"))
			store.Save(sample("a"))

			ids, err := store.Sessions()
			if err != nil {
				t.Fatalf("Sessions: %v", err)
			}
			if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
				t.Errorf("Sessions = %v", ids)
			}

			if err := store.Delete("a"); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if _, err := store.Load("a"); !errors.Is(err, ErrSessionNotFound) {
				t.Errorf("deleted session still loads")
			}
			if err := store.Delete("never"); err != nil {
				t.Errorf("deleting absent session: %v", err)
			}
		})
	}
}

func TestInMemorySaveIsolatesState(t *testing.T) {
	store := NewInMemoryStore()
	cp := sample("s1")
	store.Save(cp)

	cp.State.AppendMessage(state.RoleUser, "mutated after save")

	got, _ := store.Load("s1")
	if len(got.State.Conversation) != 1 {
		t.Errorf("caller mutation leaked into stored checkpoint")
	}
}
