// Package pipeline owns the session lifecycle: it drives the stage groups in
// order, suspends at each approval gate by persisting a checkpoint, and
// resumes sessions after a human decision.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rivalmap/rivalmap/internal/checkpoint"
	"github.com/rivalmap/rivalmap/internal/logging"
	"github.com/rivalmap/rivalmap/internal/planner"
	"github.com/rivalmap/rivalmap/internal/researcher"
	"github.com/rivalmap/rivalmap/internal/state"
	"github.com/rivalmap/rivalmap/internal/strategist"
)

// Stage names double as resume cursors in checkpoints. StageDone marks a
// session with nothing left to run.
const (
	StagePlanner    = "planner"
	StageResearcher = "researcher"
	StageStrategist = "strategist"
	StageDone       = ""
)

// Human actions accepted at a gate. Anything else leaves the session
// suspended at the same gate with its status unchanged.
const (
	ActionApprove = "approve"
	ActionModify  = "modify"
	ActionReject  = "reject"
)

// Controller wires the three stage groups to the checkpoint store. Stages
// never talk to each other; all state flows through the session document.
type Controller struct {
	planner     *planner.Planner
	researcher  *researcher.Researcher
	strategist  *strategist.Strategist
	checkpoints checkpoint.Store
	log         *logging.Logger
}

// New creates a session controller.
func New(p *planner.Planner, r *researcher.Researcher, st *strategist.Strategist, cps checkpoint.Store, log *logging.Logger) *Controller {
	return &Controller{
		planner:     p,
		researcher:  r,
		strategist:  st,
		checkpoints: cps,
		log:         log.WithComponent("pipeline"),
	}
}

// CreateSession starts a new session and runs it to the first gate. The
// returned state is always suspended at pending_plan_approval.
func (c *Controller) CreateSession(ctx context.Context, companyURL string, userContext map[string]interface{}, initialMessage string) (string, *state.SessionState, error) {
	id := uuid.NewString()
	s := state.New(id, companyURL)
	for k, v := range userContext {
		s.UserContext[k] = v
	}
	if initialMessage != "" {
		s.AppendMessage(state.RoleUser, initialMessage)
	}

	c.log.WithSession(id).Info("session created", map[string]interface{}{"company_url": companyURL})
	if err := c.runStage(ctx, s, StagePlanner); err != nil {
		return "", nil, err
	}
	return id, s, nil
}

// ResumeSession applies a human decision to a suspended session and runs the
// pipeline until the next gate or completion. Unknown session ids fail with
// checkpoint.ErrSessionNotFound.
func (c *Controller) ResumeSession(ctx context.Context, sessionID, action, message string) (*state.SessionState, error) {
	cp, err := c.checkpoints.Load(sessionID)
	if err != nil {
		return nil, err
	}
	s := cp.State

	resolved := ResolveApproval(s.ApprovalStatus, action)
	gate := gateName(cp.ResumeStage)
	c.log.WithSession(sessionID).GateResolved(gate, action, resolved)

	ctx, span := startGateSpan(ctx, sessionID, gate, action)
	s.ApprovalStatus = resolved
	if message != "" {
		s.AppendMessage(state.RoleUser, message)
	}
	next := routeAfterGate(cp.ResumeStage, resolved)
	endGateSpan(span, resolved)

	if next == StageDone && !s.Terminal() && pending(resolved) {
		// Unrecognized action: stay suspended at the same gate.
		if err := c.suspend(s, cp.ResumeStage); err != nil {
			return nil, err
		}
		return s, nil
	}
	if err := c.runStage(ctx, s, next); err != nil {
		return nil, err
	}
	return s, nil
}

// GetSessionState returns the persisted state of a session, or
// checkpoint.ErrSessionNotFound.
func (c *Controller) GetSessionState(sessionID string) (*state.SessionState, error) {
	cp, err := c.checkpoints.Load(sessionID)
	if err != nil {
		return nil, err
	}
	return cp.State, nil
}

// Sessions lists the ids of all persisted sessions.
func (c *Controller) Sessions() ([]string, error) {
	return c.checkpoints.Sessions()
}

// runStage executes one stage group and suspends at its gate. The gates sit
// between stages, so forward progress across stages only ever happens through
// ResumeSession.
func (c *Controller) runStage(ctx context.Context, s *state.SessionState, stage string) error {
	if stage == StageDone {
		return c.suspend(s, StageDone)
	}

	log := c.log.WithSession(s.SessionID)
	log.StageStart(stage)
	start := time.Now()
	ctx, span := startStageSpan(ctx, s.SessionID, stage)

	switch stage {
	case StagePlanner:
		s.Apply(c.planner.AnalyzeQuery(ctx, s))
		s.Apply(c.planner.CreateResearchTasks(ctx, s))
	case StageResearcher:
		s.Apply(c.researcher.Dispatch(s))
		s.Apply(c.researcher.Execute(ctx, s))
		s.Apply(c.researcher.Aggregate(s))
	case StageStrategist:
		s.Apply(c.strategist.AnalyzeFindings(ctx, s))
		s.Apply(c.strategist.GenerateStrategy(ctx, s))
	default:
		span.End()
		return fmt.Errorf("unknown stage: %s", stage)
	}

	endStageSpan(span, s.ApprovalStatus)
	log.StageComplete(stage, time.Since(start))
	log.GateReached(gateName(stage), s.ApprovalStatus)
	return c.suspend(s, stage)
}

// suspend persists the session with its resume cursor.
func (c *Controller) suspend(s *state.SessionState, resumeStage string) error {
	err := c.checkpoints.Save(&checkpoint.Checkpoint{
		SessionID:   s.SessionID,
		State:       s,
		ResumeStage: resumeStage,
		UpdatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("persisting session %s: %w", s.SessionID, err)
	}
	c.log.CheckpointSaved(s.SessionID, s.ApprovalStatus)
	return nil
}

// ResolveApproval maps a human action at a gate to the next approval status.
// Approve advances the pending status it was issued against; modify and
// reject request a revision; anything else changes nothing.
func ResolveApproval(current, action string) string {
	switch action {
	case ActionApprove:
		switch current {
		case state.StatusPendingPlanApproval:
			return state.StatusApprovedPlan
		case state.StatusPendingResearchApproval:
			return state.StatusApprovedResearch
		case state.StatusPendingStrategyApproval:
			return state.StatusApprovedStrategy
		}
	case ActionModify, ActionReject:
		return state.StatusRevisionRequested
	}
	return current
}

// routeAfterGate picks the stage to run after a gate resolution. Approval
// moves forward, a revision request re-enters the stage that produced the
// gated artifact, and anything else stops the run.
func routeAfterGate(gateStage, status string) string {
	switch gateStage {
	case StagePlanner:
		switch status {
		case state.StatusApprovedPlan:
			return StageResearcher
		case state.StatusRevisionRequested:
			return StagePlanner
		}
	case StageResearcher:
		switch status {
		case state.StatusApprovedResearch:
			return StageStrategist
		case state.StatusRevisionRequested:
			return StageResearcher
		}
	case StageStrategist:
		if status == state.StatusRevisionRequested {
			return StageStrategist
		}
	}
	return StageDone
}

func gateName(stage string) string {
	switch stage {
	case StagePlanner:
		return "plan_approval"
	case StageResearcher:
		return "research_approval"
	case StageStrategist:
		return "strategy_approval"
	}
	return "none"
}

func pending(status string) bool {
	switch status {
	case state.StatusPendingPlanApproval, state.StatusPendingResearchApproval, state.StatusPendingStrategyApproval:
		return true
	}
	return false
}
