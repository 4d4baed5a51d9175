// Package strategist implements the strategy stage: competitor analysis and
// strategy generation, ending at the final approval gate.
package strategist

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

// strategyMaxTokens allows a longer reply for the final recommendations.
const strategyMaxTokens = 3000

// Strategist holds the strategy stage's collaborators.
type Strategist struct {
	gen *llm.Generator
	mem *memory.Memory
	log *logging.Logger
}

// New creates a strategist.
func New(gen *llm.Generator, mem *memory.Memory, log *logging.Logger) *Strategist {
	return &Strategist{gen: gen, mem: mem, log: log.WithComponent("strategist")}
}

// AnalyzeFindings turns raw research results into per-competitor analyses,
// enriched with cached historical analyses. It never fails: LLM errors
// degrade to placeholder analyses.
func (st *Strategist) AnalyzeFindings(ctx context.Context, s *state.SessionState) state.Update {
	st.log.Info("analyzing findings", map[string]interface{}{"results": len(s.ResearchResults)})

	var analyses []state.CompetitorAnalysis
	if st.gen.IsConfigured() && len(s.ResearchResults) > 0 {
		analyses = st.analyzeWithLLM(ctx, s)
	} else {
		st.log.Warn("llm not configured or no results, using placeholder analyses")
		analyses = placeholderAnalyses(s.ResearchResults)
	}

	historical := st.enrichFromHistory(analyses)
	st.cacheAnalyses(analyses)

	var highlights []string
	for i, a := range analyses {
		if i >= 5 {
			break
		}
		highlights = append(highlights, fmt.Sprintf("• %s: %s (threat: %s)", a.Competitor, a.MarketPosition, a.ThreatLevel))
	}

	return state.Update{
		CompetitorAnalyses: analyses,
		Conversation: []state.Message{{
			Role: state.RoleAssistant,
			Content: fmt.Sprintf(
				"Analyzed %d competitors (%d with historical data).\n\nKey findings:\n%s",
				len(analyses), historical, strings.Join(highlights, "\n"),
			),
		}},
	}
}

func (st *Strategist) analyzeWithLLM(ctx context.Context, s *state.SessionState) []state.CompetitorAnalysis {
	var out struct {
		Analyses []state.CompetitorAnalysis `json:"analyses"`
	}
	prompt := prompts.AnalyzeFindings(formatCompanyProfile(s.CompanyProfile), formatResults(s.ResearchResults))
	err := st.gen.GenerateStructured(ctx, prompt, llm.GenerateOptions{
		SystemPrompt: prompts.StrategistSystem,
	}, &out)
	if err != nil {
		st.log.Warn("llm analysis failed, using placeholder analyses", map[string]interface{}{"error": err.Error()})
		return placeholderAnalyses(s.ResearchResults)
	}

	validated := make([]state.CompetitorAnalysis, 0, len(out.Analyses))
	for _, a := range out.Analyses {
		if a.Competitor == "" {
			a.Competitor = "Unknown"
		}
		if a.MarketPosition == "" {
			a.MarketPosition = "unknown"
		}
		if a.ThreatLevel == "" {
			a.ThreatLevel = "medium"
		}
		a.LLMGenerated = true
		validated = append(validated, a)
	}
	if len(validated) == 0 {
		return placeholderAnalyses(s.ResearchResults)
	}
	return validated
}

// placeholderAnalyses yields one empty analysis per distinct competitor seen
// in the results.
func placeholderAnalyses(results []state.ResearchResult) []state.CompetitorAnalysis {
	seen := make(map[string]bool, len(results))
	var analyses []state.CompetitorAnalysis
	for _, res := range results {
		name := res.Competitor
		if name == "" {
			name = "unknown"
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		analyses = append(analyses, state.CompetitorAnalysis{
			Competitor:     name,
			Strengths:      []string{},
			Weaknesses:     []string{},
			MarketPosition: "unknown",
			ThreatLevel:    "unknown",
			LLMGenerated:   false,
		})
	}
	return analyses
}

// enrichFromHistory merges cached analyses into the current set. Historical
// values overwrite placeholder values but never LLM-generated ones. Returns
// how many analyses had history.
func (st *Strategist) enrichFromHistory(analyses []state.CompetitorAnalysis) int {
	if st.mem == nil {
		return 0
	}
	var count int
	for i := range analyses {
		name := analyses[i].Competitor
		if name == "" {
			continue
		}
		historical, err := st.mem.GetCompetitorAnalysis(name)
		if err != nil || historical == nil {
			analyses[i].HasHistoricalData = false
			continue
		}
		count++
		analyses[i].HasHistoricalData = true

		if !analyses[i].LLMGenerated {
			if v := toStringSlice(historical["strengths"]); v != nil {
				analyses[i].Strengths = v
			}
			if v := toStringSlice(historical["weaknesses"]); v != nil {
				analyses[i].Weaknesses = v
			}
			if v, ok := historical["market_position"].(string); ok && v != "" {
				analyses[i].MarketPosition = v
			}
		}
	}
	if count > 0 {
		st.log.Info("enriched analyses with historical data", map[string]interface{}{"count": count})
	}
	return count
}

// cacheAnalyses writes LLM-generated analyses back to the competitor cache.
func (st *Strategist) cacheAnalyses(analyses []state.CompetitorAnalysis) {
	if st.mem == nil {
		return
	}
	for _, a := range analyses {
		if a.Competitor == "" || !a.LLMGenerated {
			continue
		}
		err := st.mem.PutCompetitorAnalysis(a.Competitor, map[string]interface{}{
			"strengths":       toInterfaceSlice(a.Strengths),
			"weaknesses":      toInterfaceSlice(a.Weaknesses),
			"market_position": a.MarketPosition,
			"threat_level":    a.ThreatLevel,
		})
		if err != nil {
			st.log.Warn("caching analysis failed", map[string]interface{}{
				"competitor": a.Competitor,
				"error":      err.Error(),
			})
		}
	}
}

// strategy is the LLM's recommendation payload.
type strategy struct {
	FeatureGaps            []string `json:"feature_gaps"`
	Opportunities          []string `json:"opportunities"`
	PositioningSuggestions []string `json:"positioning_suggestions"`
	FundraisingIntel       []string `json:"fundraising_intel"`
	Summary                string   `json:"summary"`
	LLMGenerated           bool     `json:"-"`
}

func placeholderStrategy() strategy {
	return strategy{
		FeatureGaps:            []string{},
		Opportunities:          []string{},
		PositioningSuggestions: []string{},
		FundraisingIntel:       []string{},
		Summary:                "Strategic analysis pending full LLM integration.",
		LLMGenerated:           false,
	}
}

// GenerateStrategy packages the analyses into a strategy draft and the final
// strategic insights, persists the completed session summary, and raises the
// final approval gate.
func (st *Strategist) GenerateStrategy(ctx context.Context, s *state.SessionState) state.Update {
	st.log.Info("generating strategy", map[string]interface{}{"analyses": len(s.CompetitorAnalyses)})

	companyName := CompanyName(s)

	var plan strategy
	if st.gen.IsConfigured() && len(s.CompetitorAnalyses) > 0 {
		plan = st.generateWithLLM(ctx, companyName, s)
	} else {
		st.log.Warn("llm not configured or no analyses, using placeholder strategy")
		plan = placeholderStrategy()
	}

	draft := state.StrategyDraft{
		FeatureGaps:            plan.FeatureGaps,
		Opportunities:          plan.Opportunities,
		PositioningSuggestions: plan.PositioningSuggestions,
		FundraisingIntel:       plan.FundraisingIntel,
		Summary:                plan.Summary,
		LLMGenerated:           plan.LLMGenerated,
	}

	insights := &state.StrategicInsights{
		Summary:         plan.Summary,
		Recommendations: append(firstN(plan.PositioningSuggestions, 3), firstN(plan.Opportunities, 2)...),
		CompanyName:     companyName,
		CompetitorCount: len(s.CompetitorAnalyses),
		LLMGenerated:    plan.LLMGenerated,
	}

	st.saveSessionSummary(s, companyName, plan)

	lines := []string{plan.Summary}
	if len(plan.FeatureGaps) > 0 {
		lines = append(lines, fmt.Sprintf("\nFeature gaps identified: %d", len(plan.FeatureGaps)))
	}
	if len(plan.Opportunities) > 0 {
		lines = append(lines, fmt.Sprintf("Opportunities identified: %d", len(plan.Opportunities)))
	}
	if len(plan.PositioningSuggestions) > 0 {
		lines = append(lines, fmt.Sprintf("Positioning suggestions: %d", len(plan.PositioningSuggestions)))
	}

	return state.Update{
		StrategyDrafts:    append(append([]state.StrategyDraft{}, s.StrategyDrafts...), draft),
		StrategicInsights: insights,
		ApprovalStatus:    state.StringPtr(state.StatusPendingStrategyApproval),
		Conversation: []state.Message{{
			Role:    state.RoleAssistant,
			Content: strings.Join(lines, "\n") + "\n\nAwaiting your approval to finalize the report.",
		}},
	}
}

func (st *Strategist) generateWithLLM(ctx context.Context, companyName string, s *state.SessionState) strategy {
	var out strategy
	prompt := prompts.GenerateStrategy(companyName, formatCompanyProfile(s.CompanyProfile), formatAnalyses(s.CompetitorAnalyses))
	err := st.gen.GenerateStructured(ctx, prompt, llm.GenerateOptions{
		SystemPrompt: prompts.StrategistSystem,
		MaxTokens:    strategyMaxTokens,
	}, &out)
	if err != nil {
		st.log.Warn("llm strategy generation failed, using placeholder", map[string]interface{}{"error": err.Error()})
		return placeholderStrategy()
	}
	if out.Summary == "" {
		out.Summary = "Strategy generation completed."
	}
	out.LLMGenerated = true
	return out
}

func (st *Strategist) saveSessionSummary(s *state.SessionState, companyName string, plan strategy) {
	if st.mem == nil || s.SessionID == "" {
		return
	}

	keyFindings := []interface{}{
		fmt.Sprintf("Analyzed %d competitors for %s", len(s.CompetitorAnalyses), companyName),
	}
	var highThreats []string
	for _, a := range s.CompetitorAnalyses {
		if a.ThreatLevel == "high" {
			highThreats = append(highThreats, a.Competitor)
		}
	}
	if len(highThreats) > 0 {
		keyFindings = append(keyFindings, fmt.Sprintf("High-threat competitors: %s", strings.Join(firstN(highThreats, 3), ", ")))
	}
	if len(plan.Opportunities) > 0 {
		keyFindings = append(keyFindings, fmt.Sprintf("Key opportunity: %s", plan.Opportunities[0]))
	}

	summary := map[string]interface{}{
		"query":               s.CompanyURL,
		"company_name":        companyName,
		"phase":               "completed",
		"key_findings":        keyFindings,
		"competitor_count":    len(s.CompetitorAnalyses),
		"decisions":           []interface{}{"Strategy draft generated"},
		"feature_gaps_count":  len(plan.FeatureGaps),
		"opportunities_count": len(plan.Opportunities),
	}
	if err := st.mem.PutSessionSummary(s.SessionID, summary); err != nil {
		st.log.Warn("saving session summary failed", map[string]interface{}{"error": err.Error()})
	}
}

// CompanyName derives the display name from the profile, else from the URL.
func CompanyName(s *state.SessionState) string {
	if s.CompanyProfile != nil {
		if name, ok := s.CompanyProfile["name"].(string); ok && name != "" {
			return name
		}
	}
	if s.CompanyURL != "" {
		domain := strings.TrimPrefix(strings.TrimPrefix(s.CompanyURL, "https://"), "http://")
		domain = strings.SplitN(domain, "/", 2)[0]
		domain = strings.TrimPrefix(domain, "www.")
		name := strings.SplitN(domain, ".", 2)[0]
		if name != "" {
			return strings.ToUpper(name[:1]) + name[1:]
		}
	}
	return "the company"
}

func formatCompanyProfile(profile map[string]interface{}) string {
	if len(profile) == 0 {
		return "No company profile available."
	}
	var lines []string
	addString := func(label, key string) {
		if v, ok := profile[key].(string); ok && v != "" {
			lines = append(lines, fmt.Sprintf("%s: %s", label, v))
		}
	}
	addList := func(label, key string) {
		if v := toStringSlice(profile[key]); len(v) > 0 {
			lines = append(lines, fmt.Sprintf("%s: %s", label, strings.Join(v, ", ")))
		}
	}
	addString("Name", "name")
	addString("Website", "website")
	addString("Description", "description")
	addList("Products", "products")
	addString("Pricing Model", "pricing_model")
	addString("Target Market", "target_market")
	addList("Key Features", "key_features")
	if len(lines) == 0 {
		return "Limited company profile data."
	}
	return strings.Join(lines, "\n")
}

// formatResults renders research results for prompt injection, truncating
// long content.
func formatResults(results []state.ResearchResult) string {
	if len(results) == 0 {
		return "No research results available."
	}
	var sections []string
	for i, res := range results {
		name := res.Competitor
		if name == "" {
			name = fmt.Sprintf("Competitor %d", i+1)
		}
		var b strings.Builder
		fmt.Fprintf(&b, "### %s\n", name)
		fmt.Fprintf(&b, "Source: %s\n", res.Source)
		if res.Failed() {
			fmt.Fprintf(&b, "Error: %v\n", res.Data["error"])
		} else if chunks := toStringSlice(res.Data["content_chunks"]); len(chunks) > 0 {
			content := strings.Join(chunks, "\n")
			if len(content) > 2000 {
				content = content[:2000] + "..."
			}
			fmt.Fprintf(&b, "Content:\n%s\n", content)
		}
		sections = append(sections, b.String())
	}
	return strings.Join(sections, "\n")
}

func formatAnalyses(analyses []state.CompetitorAnalysis) string {
	if len(analyses) == 0 {
		return "No competitor analyses available."
	}
	var sections []string
	for _, a := range analyses {
		var b strings.Builder
		fmt.Fprintf(&b, "### %s\n", a.Competitor)
		if len(a.Strengths) > 0 {
			fmt.Fprintf(&b, "Strengths: %s\n", strings.Join(a.Strengths, ", "))
		}
		if len(a.Weaknesses) > 0 {
			fmt.Fprintf(&b, "Weaknesses: %s\n", strings.Join(a.Weaknesses, ", "))
		}
		fmt.Fprintf(&b, "Market Position: %s\n", a.MarketPosition)
		fmt.Fprintf(&b, "Threat Level: %s\n", a.ThreatLevel)
		sections = append(sections, b.String())
	}
	return strings.Join(sections, "\n")
}

func firstN(items []string, n int) []string {
	if len(items) < n {
		n = len(items)
	}
	return append([]string{}, items[:n]...)
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
