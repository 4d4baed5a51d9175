package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rivalmap/rivalmap/internal/api"
	"github.com/rivalmap/rivalmap/internal/render"
	"github.com/rivalmap/rivalmap/internal/state"
)

// Run drives a session from creation to completion, prompting at each gate.
func (c *RunCmd) Run(g *Globals) error {
	rt, err := newRuntime(g)
	if err != nil {
		return err
	}
	defer rt.Close()

	userContext, err := seedContext(c.ContextFile, c.UserID)
	if err != nil {
		return err
	}

	id, s, err := rt.controller.CreateSession(context.Background(), c.URL, userContext, c.Query)
	if err != nil {
		return err
	}
	fmt.Printf("session %s\n\n", id)
	printArtifacts(s)

	for !s.Terminal() {
		d, err := promptDecision(render.Gate(s))
		if err != nil {
			return err
		}
		if d.quit {
			fmt.Printf("session suspended, resume later with: rivalmap resume %s <action>\n", id)
			return nil
		}
		s, err = rt.controller.ResumeSession(context.Background(), id, d.action, d.feedback)
		if err != nil {
			return err
		}
		printArtifacts(s)
	}
	fmt.Println("analysis complete")
	return nil
}

// Run creates a session and prints the plan without entering the loop.
func (c *CreateCmd) Run(g *Globals) error {
	rt, err := newRuntime(g)
	if err != nil {
		return err
	}
	defer rt.Close()

	userContext, err := seedContext(c.ContextFile, c.UserID)
	if err != nil {
		return err
	}

	id, s, err := rt.controller.CreateSession(context.Background(), c.URL, userContext, c.Query)
	if err != nil {
		return err
	}
	fmt.Printf("session %s\n\n", id)
	printArtifacts(s)
	return nil
}

// Run applies one approval decision and prints the resulting artifacts.
func (c *ResumeCmd) Run(g *Globals) error {
	rt, err := newRuntime(g)
	if err != nil {
		return err
	}
	defer rt.Close()

	s, err := rt.controller.ResumeSession(context.Background(), c.Session, c.Action, c.Message)
	if err != nil {
		return err
	}
	printArtifacts(s)
	if s.Terminal() {
		fmt.Println("analysis complete")
	}
	return nil
}

// Run prints a session summary, or the full state document with --full.
func (c *StateCmd) Run(g *Globals) error {
	rt, err := newRuntime(g)
	if err != nil {
		return err
	}
	defer rt.Close()

	s, err := rt.controller.GetSessionState(c.Session)
	if err != nil {
		return err
	}

	if c.Full {
		raw, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(raw))
		return nil
	}

	fmt.Printf("session:          %s\n", s.SessionID)
	fmt.Printf("company:          %s\n", s.CompanyURL)
	fmt.Printf("approval status:  %s\n", s.ApprovalStatus)
	fmt.Printf("research tasks:   %d\n", len(s.ResearchTasks))
	fmt.Printf("research results: %d\n", len(s.ResearchResults))
	fmt.Printf("strategy drafts:  %d\n", len(s.StrategyDrafts))
	fmt.Printf("insights:         %v\n", s.StrategicInsights != nil)
	return nil
}

// Run lists persisted session ids.
func (c *SessionsCmd) Run(g *Globals) error {
	rt, err := newRuntime(g)
	if err != nil {
		return err
	}
	defer rt.Close()

	ids, err := rt.controller.Sessions()
	if err != nil {
		return err
	}
	for _, id := range ids {
		fmt.Println(id)
	}
	return nil
}

// Run starts the HTTP API server.
func (c *ServeCmd) Run(g *Globals) error {
	rt, err := newRuntime(g)
	if err != nil {
		return err
	}
	defer rt.Close()

	addr := c.Addr
	if addr == "" {
		addr = rt.cfg.Server.Addr
	}
	handler := api.NewHandler(rt.controller, rt.log)
	rt.log.Info("listening", map[string]interface{}{"addr": addr})
	return http.ListenAndServe(addr, handler.Routes())
}

// Run prints version information.
func (c *VersionCmd) Run(g *Globals) error {
	fmt.Printf("rivalmap version %s (commit: %s, built: %s)\n", version, commit, buildTime)
	return nil
}

// printArtifacts renders the artifact matching the gate the session is
// suspended at, plus the latest progress message.
func printArtifacts(s *state.SessionState) {
	if msg := render.Assistant(s); msg != "" {
		fmt.Println(msg)
		fmt.Println()
	}
	switch s.ApprovalStatus {
	case state.StatusPendingPlanApproval:
		fmt.Println(render.Plan(s))
	case state.StatusPendingResearchApproval:
		fmt.Println(render.ResearchSummary(s))
	case state.StatusPendingStrategyApproval, state.StatusApprovedStrategy:
		fmt.Println(render.StrategyReport(s))
	}
}

// seedContext builds the initial user context from a YAML file and flags.
func seedContext(contextFile, userID string) (map[string]interface{}, error) {
	userContext := map[string]interface{}{}
	if contextFile != "" {
		loaded, err := loadContextFile(contextFile)
		if err != nil {
			return nil, err
		}
		userContext = loaded
	}
	if userID != "" {
		userContext["user_id"] = userID
	}
	return userContext, nil
}
