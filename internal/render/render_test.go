package render

import (
	"strings"
	"testing"

	"github.com/rivalmap/rivalmap/internal/state"
)

func TestPlanListsTasks(t *testing.T) {
	s := state.New("s1", "https://acme.io")
	s.ResearchTasks = []state.ResearchTask{
		{Type: state.TaskCompanyProfile, Target: "acme", URL: "https://acme.io"},
		{Type: state.TaskCompetitorDiscovery, Target: "acme", FocusAreas: []string{"pricing"}},
	}

	out := Plan(s)
	if !strings.Contains(out, "company_profile") || !strings.Contains(out, "competitor_discovery") {
		t.Errorf("plan output missing tasks:\n%s", out)
	}
	if !strings.Contains(out, "pricing") {
		t.Errorf("plan output missing focus areas:\n%s", out)
	}
}

func TestResearchSummaryPartitionsFailures(t *testing.T) {
	s := state.New("s1", "https://acme.io")
	s.ResearchResults = []state.ResearchResult{
		{Competitor: "adyen", Source: "company_profile", Data: map[string]interface{}{"chunks": 1}},
		{Competitor: "square", Source: "competitor_discovery", Data: map[string]interface{}{"error": "timeout"}},
	}

	out := ResearchSummary(s)
	if !strings.Contains(out, "adyen") || !strings.Contains(out, "square") {
		t.Errorf("summary missing results:\n%s", out)
	}
	if !strings.Contains(out, "2 results, 1 failed") {
		t.Errorf("summary missing counts:\n%s", out)
	}
}

func TestStrategyReportIncludesInsights(t *testing.T) {
	s := state.New("s1", "https://acme.io")
	s.CompetitorAnalyses = []state.CompetitorAnalysis{
		{Competitor: "adyen", MarketPosition: "leader", ThreatLevel: "high", Strengths: []string{"global reach"}},
	}
	s.StrategicInsights = &state.StrategicInsights{
		Summary:         "Strong position with gaps in retail.",
		Recommendations: []string{"developer first"},
		CompanyName:     "Acme",
		CompetitorCount: 1,
	}

	out := StrategyReport(s)
	for _, want := range []string{"adyen", "threat=high", "global reach", "developer first", "1 competitors analyzed for Acme"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestGateBanner(t *testing.T) {
	s := state.New("s1", "https://acme.io")
	if Gate(s) != "" {
		t.Errorf("banner shown for a non-suspended session")
	}

	s.ApprovalStatus = state.StatusPendingPlanApproval
	if !strings.Contains(Gate(s), "Plan approval required") {
		t.Errorf("banner = %q", Gate(s))
	}
}
