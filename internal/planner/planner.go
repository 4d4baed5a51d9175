// Package planner implements the plan stage: query analysis and research
// task generation, ending at the first approval gate.
package planner

import (
	"context"
	"fmt"
	"strings"

	"github.com/rivalmap/rivalmap/internal/llm"
	"github.com/rivalmap/rivalmap/internal/logging"
	"github.com/rivalmap/rivalmap/internal/memory"
	"github.com/rivalmap/rivalmap/internal/prompts"
	"github.com/rivalmap/rivalmap/internal/state"
)

// Keys the planner maintains inside user_context.
const (
	ctxUserID      = "user_id"
	ctxPreferences = "preferences"
	ctxIntent      = "extracted_intent"
)

// defaultFocusAreas is the fallback when intent extraction yields nothing.
var defaultFocusAreas = []string{"overview", "products", "pricing", "competitors"}

// Planner holds the plan stage's collaborators.
type Planner struct {
	gen *llm.Generator
	mem *memory.Memory
	log *logging.Logger
}

// New creates a planner.
func New(gen *llm.Generator, mem *memory.Memory, log *logging.Logger) *Planner {
	return &Planner{gen: gen, mem: mem, log: log.WithComponent("planner")}
}

// intent is the structured interpretation of the user's request.
type intent struct {
	CompanyURL  string   `json:"company_url"`
	CompanyName string   `json:"company_name"`
	FocusAreas  []string `json:"focus_areas"`
	Constraints []string `json:"constraints"`
}

func (in intent) asMap() map[string]interface{} {
	return map[string]interface{}{
		"company_url":  in.CompanyURL,
		"company_name": in.CompanyName,
		"focus_areas":  toInterfaceSlice(in.FocusAreas),
		"constraints":  toInterfaceSlice(in.Constraints),
	}
}

// AnalyzeQuery parses the latest user message into structured intent,
// enriches the user context from memory, and pre-populates known competitors
// from the cache. It never fails: extraction errors degrade to a
// domain-derived default intent.
func (p *Planner) AnalyzeQuery(ctx context.Context, s *state.SessionState) state.Update {
	p.log.Info("analyzing user query", map[string]interface{}{"company_url": s.CompanyURL})

	companyURL := s.CompanyURL
	userMessage := s.LatestUserMessage()
	if userMessage == "" && companyURL != "" {
		userMessage = fmt.Sprintf("Analyze competitors for %s", companyURL)
	}

	userContext := copyContext(s.UserContext)
	userID := contextString(userContext, ctxUserID)
	if userID == "" {
		userID = "default"
	}

	var knownCompetitors []string
	if p.mem != nil {
		p.enrichFromMemory(userContext, userID)
		if companyURL != "" {
			domain := urlDomain(companyURL)
			if matches, err := p.mem.SearchCompetitors(domain, 5); err == nil && len(matches) > 0 {
				p.log.Info("found cached competitors", map[string]interface{}{"count": len(matches)})
				knownCompetitors = matches
			}
		}
	}

	in := p.extractIntent(ctx, userMessage, companyURL)
	if in.CompanyURL != "" {
		companyURL = in.CompanyURL
	}
	userContext[ctxIntent] = in.asMap()

	companyName := in.CompanyName
	if companyName == "" {
		companyName = "the company"
	}

	return state.Update{
		CompanyURL:  state.StringPtr(companyURL),
		UserContext: userContext,
		Competitors: knownCompetitors,
		Conversation: []state.Message{{
			Role:    state.RoleAssistant,
			Content: fmt.Sprintf("Analyzing competitive landscape for %s (%s)...", companyName, companyURL),
		}},
	}
}

// enrichFromMemory loads stored preferences and profile fields into the
// context, and writes seeded profile fields back so later sessions start
// enriched. Existing context keys always win over stored values.
func (p *Planner) enrichFromMemory(userContext map[string]interface{}, userID string) {
	if prefs, err := p.mem.GetUserPreferences(userID); err == nil && prefs != nil {
		userContext[ctxPreferences] = prefs
	} else if seeded, ok := userContext[ctxPreferences].(map[string]interface{}); ok {
		if err := p.mem.PutUserPreferences(userID, seeded); err != nil {
			p.log.Warn("persisting seeded preferences failed", map[string]interface{}{"error": err.Error()})
		}
	}

	stored, err := p.mem.GetUserProfile(userID)
	if err != nil {
		return
	}
	for k, v := range stored {
		if _, exists := userContext[k]; !exists {
			userContext[k] = v
		}
	}

	writeBack := map[string]interface{}{}
	for k, v := range userContext {
		if k == ctxUserID || k == ctxPreferences || k == ctxIntent {
			continue
		}
		if _, cached := stored[k]; !cached {
			writeBack[k] = v
		}
	}
	if len(writeBack) > 0 {
		for k, v := range stored {
			writeBack[k] = v
		}
		if err := p.mem.PutUserProfile(userID, writeBack); err != nil {
			p.log.Warn("persisting user profile failed", map[string]interface{}{"error": err.Error()})
		}
	}
}

// extractIntent asks the LLM for structured intent, falling back to a
// deterministic default on any failure.
func (p *Planner) extractIntent(ctx context.Context, userMessage, companyURL string) intent {
	fallback := intent{
		CompanyURL:  companyURL,
		CompanyName: InferCompanyName(companyURL),
		FocusAreas:  append([]string{}, defaultFocusAreas...),
		Constraints: []string{},
	}
	if !p.gen.IsConfigured() {
		p.log.Warn("llm not configured, using basic intent extraction")
		return fallback
	}

	var in intent
	err := p.gen.GenerateStructured(ctx, prompts.AnalyzeQuery(userMessage, companyURL), llm.GenerateOptions{
		SystemPrompt: prompts.PlannerSystem,
	}, &in)
	if err != nil {
		p.log.Warn("intent extraction failed, using defaults", map[string]interface{}{"error": err.Error()})
		return fallback
	}
	if in.CompanyName == "" {
		in.CompanyName = fallback.CompanyName
	}
	if len(in.FocusAreas) == 0 {
		in.FocusAreas = fallback.FocusAreas
	}
	return in
}

// CreateResearchTasks turns the extracted intent into validated research
// tasks, persists a planning summary, and raises the first approval gate.
func (p *Planner) CreateResearchTasks(ctx context.Context, s *state.SessionState) state.Update {
	p.log.Info("creating research tasks")

	companyURL := s.CompanyURL
	in := intentFromContext(s.UserContext)
	companyName := in.CompanyName
	if companyName == "" {
		companyName = InferCompanyName(companyURL)
	}
	focusAreas := in.FocusAreas
	if len(focusAreas) == 0 {
		focusAreas = append([]string{}, defaultFocusAreas...)
	}

	// Preference focus areas are merged after intent areas, deduplicated and
	// order-preserving.
	if prefs, ok := s.UserContext[ctxPreferences].(map[string]interface{}); ok {
		focusAreas = mergeUnique(focusAreas, toStringSlice(prefs["focus_areas"]))
	}

	var tasks []state.ResearchTask
	if p.gen.IsConfigured() {
		tasks = p.generateTasks(ctx, companyName, companyURL, focusAreas, in.Constraints)
	} else {
		p.log.Warn("llm not configured, using default tasks")
		tasks = defaultTasks(companyURL, focusAreas)
	}

	if p.mem != nil && s.SessionID != "" {
		summary := map[string]interface{}{
			"query":        companyURL,
			"company_name": companyName,
			"phase":        "planning",
			"task_count":   len(tasks),
			"focus_areas":  toInterfaceSlice(focusAreas),
			"constraints":  toInterfaceSlice(in.Constraints),
		}
		if err := p.mem.PutSessionSummary(s.SessionID, summary); err != nil {
			p.log.Warn("saving planning summary failed", map[string]interface{}{"error": err.Error()})
		}
	}

	var lines []string
	for _, t := range tasks {
		lines = append(lines, fmt.Sprintf("• %s: %s", t.Type, t.Target))
	}

	return state.Update{
		ResearchTasks:  tasks,
		ApprovalStatus: state.StringPtr(state.StatusPendingPlanApproval),
		Conversation: []state.Message{{
			Role: state.RoleAssistant,
			Content: fmt.Sprintf(
				"Research plan created with %d tasks:\n\n%s\n\nAwaiting your approval to proceed with research.",
				len(tasks), strings.Join(lines, "\n"),
			),
		}},
	}
}

// generateTasks asks the LLM for a task list and validates it against the
// task-type enum; invalid entries are dropped, never repaired, and an empty
// validated list falls back to the defaults.
func (p *Planner) generateTasks(ctx context.Context, companyName, companyURL string, focusAreas, constraints []string) []state.ResearchTask {
	var out struct {
		Tasks []state.ResearchTask `json:"tasks"`
	}
	err := p.gen.GenerateStructured(ctx, prompts.CreateTasks(companyName, companyURL, focusAreas, constraints), llm.GenerateOptions{
		SystemPrompt: prompts.PlannerSystem,
	}, &out)
	if err != nil {
		p.log.Warn("task generation failed, using defaults", map[string]interface{}{"error": err.Error()})
		return defaultTasks(companyURL, focusAreas)
	}

	var validated []state.ResearchTask
	for _, t := range out.Tasks {
		if !t.ValidType() {
			p.log.Warn("skipping invalid task type", map[string]interface{}{"type": t.Type})
			continue
		}
		if len(t.FocusAreas) == 0 {
			t.FocusAreas = append([]string{}, focusAreas...)
		}
		validated = append(validated, t)
	}
	if len(validated) == 0 {
		return defaultTasks(companyURL, focusAreas)
	}
	return validated
}

// defaultTasks is the deterministic fallback plan.
func defaultTasks(companyURL string, focusAreas []string) []state.ResearchTask {
	return []state.ResearchTask{
		{
			Type:       state.TaskCompanyProfile,
			Target:     companyURL,
			URL:        companyURL,
			FocusAreas: append([]string{}, focusAreas...),
		},
		{
			Type:       state.TaskCompetitorDiscovery,
			Target:     companyURL,
			FocusAreas: []string{"direct_competitors", "indirect_competitors"},
		},
	}
}

// InferCompanyName derives a display name from a URL: strip the scheme and
// "www.", take the first domain label, and title-case it.
func InferCompanyName(url string) string {
	if url == "" {
		return "Unknown"
	}
	domain := urlDomain(url)
	domain = strings.TrimPrefix(domain, "www.")
	name := strings.SplitN(domain, ".", 2)[0]
	if name == "" {
		return "Unknown"
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

func urlDomain(url string) string {
	d := strings.TrimPrefix(strings.TrimPrefix(url, "https://"), "http://")
	return strings.SplitN(d, "/", 2)[0]
}

func intentFromContext(userContext map[string]interface{}) intent {
	raw, ok := userContext[ctxIntent].(map[string]interface{})
	if !ok {
		return intent{}
	}
	return intent{
		CompanyURL:  asString(raw["company_url"]),
		CompanyName: asString(raw["company_name"]),
		FocusAreas:  toStringSlice(raw["focus_areas"]),
		Constraints: toStringSlice(raw["constraints"]),
	}
}

func copyContext(src map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func contextString(m map[string]interface{}, key string) string {
	return asString(m[key])
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func toStringSlice(v interface{}) []string {
	switch vals := v.(type) {
	case []string:
		return append([]string{}, vals...)
	case []interface{}:
		var out []string
		for _, item := range vals {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func toInterfaceSlice(items []string) []interface{} {
	out := make([]interface{}, len(items))
	for i, s := range items {
		out[i] = s
	}
	return out
}

func mergeUnique(first, second []string) []string {
	seen := make(map[string]bool, len(first)+len(second))
	var out []string
	for _, s := range append(append([]string{}, first...), second...) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
