package pipeline

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rivalmap/rivalmap/internal/checkpoint"
	"github.com/rivalmap/rivalmap/internal/llm"
	"github.com/rivalmap/rivalmap/internal/logging"
	"github.com/rivalmap/rivalmap/internal/memory"
	"github.com/rivalmap/rivalmap/internal/planner"
	"github.com/rivalmap/rivalmap/internal/researcher"
	"github.com/rivalmap/rivalmap/internal/state"
	"github.com/rivalmap/rivalmap/internal/strategist"
	"github.com/rivalmap/rivalmap/internal/tools"
)

func quietLogger() *logging.Logger {
	l := logging.New()
	l.SetLevel(logging.LevelError)
	return l
}

// testController builds a controller with unconfigured LLM and search
// collaborators, so every stage degrades to its deterministic fallback.
func testController() *Controller {
	log := quietLogger()
	mem := memory.New(memory.NewInMemoryStore())
	gen := llm.NewGenerator(nil)
	p := planner.New(gen, mem, log)
	r := researcher.New(tools.NewSearchClient("", ""), tools.NewScraper(5*time.Second, ""), mem, log, researcher.Options{})
	st := strategist.New(gen, mem, log)
	return New(p, r, st, checkpoint.NewInMemoryStore(), log)
}

// scrapeTarget serves a minimal company site so profile tasks succeed.
func scrapeTarget(t *testing.T) *httptest.Server {
	t.Helper()
	page := `<html><head><title>Acme</title></head><body><p>` + strings.Repeat("payments platform ", 40) + `</p></body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(page))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCreateSessionSuspendsAtPlanGate(t *testing.T) {
	c := testController()
	srv := scrapeTarget(t)

	id, s, err := c.CreateSession(context.Background(), srv.URL, nil, "analyze our competitors")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if id == "" || s.SessionID != id {
		t.Errorf("session id = %q, state id = %q", id, s.SessionID)
	}
	if s.ApprovalStatus != state.StatusPendingPlanApproval {
		t.Errorf("status = %q", s.ApprovalStatus)
	}
	if len(s.ResearchTasks) == 0 {
		t.Errorf("no research tasks produced")
	}
	if s.LastAssistantMessage() == "" {
		t.Errorf("no progress message for the human reviewer")
	}

	// The suspension is durable: a fresh load sees the same gate.
	loaded, err := c.GetSessionState(id)
	if err != nil {
		t.Fatalf("GetSessionState: %v", err)
	}
	if loaded.ApprovalStatus != state.StatusPendingPlanApproval {
		t.Errorf("persisted status = %q", loaded.ApprovalStatus)
	}
}

func TestApproveAdvancesToResearchGate(t *testing.T) {
	c := testController()
	srv := scrapeTarget(t)

	id, _, err := c.CreateSession(context.Background(), srv.URL, nil, "")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	s, err := c.ResumeSession(context.Background(), id, ActionApprove, "")
	if err != nil {
		t.Fatalf("ResumeSession: %v", err)
	}
	if s.ApprovalStatus != state.StatusPendingResearchApproval {
		t.Errorf("status = %q", s.ApprovalStatus)
	}
	if len(s.ResearchResults) == 0 {
		t.Errorf("no research results gathered")
	}
}

func TestFullApprovalFlowCompletesSession(t *testing.T) {
	c := testController()
	srv := scrapeTarget(t)

	id, _, err := c.CreateSession(context.Background(), srv.URL, nil, "")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	if _, err := c.ResumeSession(context.Background(), id, ActionApprove, ""); err != nil {
		t.Fatalf("approve plan: %v", err)
	}
	s, err := c.ResumeSession(context.Background(), id, ActionApprove, "")
	if err != nil {
		t.Fatalf("approve research: %v", err)
	}
	if s.ApprovalStatus != state.StatusPendingStrategyApproval {
		t.Fatalf("status after research approval = %q", s.ApprovalStatus)
	}
	if s.StrategicInsights == nil {
		t.Fatalf("strategic insights missing at the strategy gate")
	}

	s, err = c.ResumeSession(context.Background(), id, ActionApprove, "")
	if err != nil {
		t.Fatalf("approve strategy: %v", err)
	}
	if !s.Terminal() {
		t.Errorf("status = %q, want terminal", s.ApprovalStatus)
	}

	// Completed sessions stay readable.
	loaded, err := c.GetSessionState(id)
	if err != nil {
		t.Fatalf("GetSessionState after completion: %v", err)
	}
	if loaded.ApprovalStatus != state.StatusApprovedStrategy {
		t.Errorf("persisted status = %q", loaded.ApprovalStatus)
	}
}

func TestModifyLoopsBackToPlanGate(t *testing.T) {
	c := testController()
	srv := scrapeTarget(t)

	id, _, err := c.CreateSession(context.Background(), srv.URL, nil, "")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	s, err := c.ResumeSession(context.Background(), id, ActionModify, "Also include Adyen in the analysis")
	if err != nil {
		t.Fatalf("ResumeSession: %v", err)
	}
	if s.ApprovalStatus != state.StatusPendingPlanApproval {
		t.Errorf("revision must re-suspend at the plan gate, got %q", s.ApprovalStatus)
	}
	var found bool
	for _, m := range s.Conversation {
		if m.Role == state.RoleUser && strings.Contains(m.Content, "Adyen") {
			found = true
		}
	}
	if !found {
		t.Errorf("revision feedback missing from conversation")
	}
}

func TestRejectAtResearchGateReentersResearch(t *testing.T) {
	c := testController()
	srv := scrapeTarget(t)

	id, _, err := c.CreateSession(context.Background(), srv.URL, nil, "")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if _, err := c.ResumeSession(context.Background(), id, ActionApprove, ""); err != nil {
		t.Fatalf("approve plan: %v", err)
	}

	s, err := c.ResumeSession(context.Background(), id, ActionReject, "")
	if err != nil {
		t.Fatalf("reject research: %v", err)
	}
	if s.ApprovalStatus != state.StatusPendingResearchApproval {
		t.Errorf("reject must re-run research and re-suspend, got %q", s.ApprovalStatus)
	}
}

func TestUnknownActionLeavesSessionSuspended(t *testing.T) {
	c := testController()
	srv := scrapeTarget(t)

	id, _, err := c.CreateSession(context.Background(), srv.URL, nil, "")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	s, err := c.ResumeSession(context.Background(), id, "ponder", "")
	if err != nil {
		t.Fatalf("ResumeSession: %v", err)
	}
	if s.ApprovalStatus != state.StatusPendingPlanApproval {
		t.Errorf("unknown action changed the status: %q", s.ApprovalStatus)
	}

	// The gate still accepts a real decision afterwards.
	s, err = c.ResumeSession(context.Background(), id, ActionApprove, "")
	if err != nil {
		t.Fatalf("approve after unknown action: %v", err)
	}
	if s.ApprovalStatus != state.StatusPendingResearchApproval {
		t.Errorf("status = %q", s.ApprovalStatus)
	}
}

func TestResumeUnknownSession(t *testing.T) {
	c := testController()
	if _, err := c.ResumeSession(context.Background(), "no-such-session", ActionApprove, ""); !errors.Is(err, checkpoint.ErrSessionNotFound) {
		t.Errorf("err = %v, want ErrSessionNotFound", err)
	}
	if _, err := c.GetSessionState("no-such-session"); !errors.Is(err, checkpoint.ErrSessionNotFound) {
		t.Errorf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestSessionsListsCheckpointedIDs(t *testing.T) {
	c := testController()
	srv := scrapeTarget(t)

	id, _, err := c.CreateSession(context.Background(), srv.URL, nil, "")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	ids, err := c.Sessions()
	if err != nil {
		t.Fatalf("Sessions: %v", err)
	}
	if len(ids) != 1 || ids[0] != id {
		t.Errorf("sessions = %v", ids)
	}
}

func TestResolveApproval(t *testing.T) {
	cases := []struct {
		current, action, want string
	}{
		{state.StatusPendingPlanApproval, ActionApprove, state.StatusApprovedPlan},
		{state.StatusPendingResearchApproval, ActionApprove, state.StatusApprovedResearch},
		{state.StatusPendingStrategyApproval, ActionApprove, state.StatusApprovedStrategy},
		{state.StatusPendingPlanApproval, ActionModify, state.StatusRevisionRequested},
		{state.StatusPendingResearchApproval, ActionReject, state.StatusRevisionRequested},
		{state.StatusPendingPlanApproval, "ponder", state.StatusPendingPlanApproval},
		{state.StatusApprovedStrategy, ActionApprove, state.StatusApprovedStrategy},
	}
	for i, c := range cases {
		if got := ResolveApproval(c.current, c.action); got != c.want {
			t.Errorf("case %d: ResolveApproval(%q, %q) = %q, want %q", i, c.current, c.action, got, c.want)
		}
	}
}

func TestUserContextSeedsSession(t *testing.T) {
	c := testController()
	srv := scrapeTarget(t)

	_, s, err := c.CreateSession(context.Background(), srv.URL, map[string]interface{}{"user_id": "u1", "role": "founder"}, "")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if s.UserContext["role"] != "founder" {
		t.Errorf("seeded context lost: %+v", s.UserContext)
	}
}
