// Package render formats session artifacts for terminal display.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/rivalmap/rivalmap/internal/state"
)

const contentWidth = 80

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")) // White bold - headers

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")) // Gray - labels

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("15")) // White - values

	taskStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")) // Blue - research tasks

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")) // Green

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")) // Red

	gateStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("11")) // Yellow - pending gates

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")) // Gray - metadata

	divider = lipgloss.NewStyle().
		Foreground(lipgloss.Color("8")).
		Render(strings.Repeat("━", 60))
)

// Plan renders the research plan awaiting approval.
func Plan(s *state.SessionState) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Research Plan") + "\n")
	b.WriteString(divider + "\n")
	for i, task := range s.ResearchTasks {
		b.WriteString(fmt.Sprintf("%s %s %s\n",
			dimStyle.Render(fmt.Sprintf("%2d.", i+1)),
			taskStyle.Render(task.Type),
			valueStyle.Render(task.Target)))
		if task.URL != "" {
			b.WriteString("    " + labelStyle.Render("url: ") + dimStyle.Render(task.URL) + "\n")
		}
		if len(task.FocusAreas) > 0 {
			b.WriteString("    " + labelStyle.Render("focus: ") + dimStyle.Render(strings.Join(task.FocusAreas, ", ")) + "\n")
		}
	}
	if len(s.ResearchTasks) == 0 {
		b.WriteString(dimStyle.Render("(no tasks)") + "\n")
	}
	return b.String()
}

// ResearchSummary renders executed research results, failures last.
func ResearchSummary(s *state.SessionState) string {
	var ok, failed []state.ResearchResult
	for _, r := range s.ResearchResults {
		if r.Failed() {
			failed = append(failed, r)
		} else {
			ok = append(ok, r)
		}
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Research Results") + "\n")
	b.WriteString(divider + "\n")
	for _, r := range ok {
		b.WriteString(fmt.Sprintf("%s %s %s\n",
			successStyle.Render("ok"),
			valueStyle.Render(r.Competitor),
			dimStyle.Render("("+r.Source+")")))
	}
	for _, r := range failed {
		reason, _ := r.Data["error"].(string)
		b.WriteString(fmt.Sprintf("%s %s %s\n",
			errorStyle.Render("failed"),
			valueStyle.Render(r.Competitor),
			dimStyle.Render(reason)))
	}
	b.WriteString(labelStyle.Render(fmt.Sprintf("%d results, %d failed\n", len(s.ResearchResults), len(failed))))
	return b.String()
}

// StrategyReport renders the competitor analyses and strategic insights.
func StrategyReport(s *state.SessionState) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Competitive Landscape") + "\n")
	b.WriteString(divider + "\n")
	for _, a := range s.CompetitorAnalyses {
		b.WriteString(fmt.Sprintf("%s %s\n",
			valueStyle.Render(a.Competitor),
			dimStyle.Render(fmt.Sprintf("position=%s threat=%s", a.MarketPosition, a.ThreatLevel))))
		for _, st := range a.Strengths {
			b.WriteString("  " + successStyle.Render("+ ") + wrap(st) + "\n")
		}
		for _, w := range a.Weaknesses {
			b.WriteString("  " + errorStyle.Render("- ") + wrap(w) + "\n")
		}
	}

	if s.StrategicInsights != nil {
		b.WriteString("\n" + titleStyle.Render("Strategic Insights") + "\n")
		b.WriteString(divider + "\n")
		b.WriteString(wordwrap.String(s.StrategicInsights.Summary, contentWidth) + "\n")
		for i, rec := range s.StrategicInsights.Recommendations {
			b.WriteString(fmt.Sprintf("%s %s\n",
				dimStyle.Render(fmt.Sprintf("%2d.", i+1)),
				wrap(rec)))
		}
		b.WriteString(labelStyle.Render(fmt.Sprintf("%d competitors analyzed for %s\n",
			s.StrategicInsights.CompetitorCount, s.StrategicInsights.CompanyName)))
	}
	return b.String()
}

// Gate renders the banner shown when a session suspends for approval.
func Gate(s *state.SessionState) string {
	var label string
	switch s.ApprovalStatus {
	case state.StatusPendingPlanApproval:
		label = "Plan approval required"
	case state.StatusPendingResearchApproval:
		label = "Research approval required"
	case state.StatusPendingStrategyApproval:
		label = "Strategy approval required"
	default:
		return ""
	}
	return gateStyle.Render(label) + " " + dimStyle.Render("(approve / modify / reject)")
}

// Assistant renders the latest assistant progress message.
func Assistant(s *state.SessionState) string {
	msg := s.LastAssistantMessage()
	if msg == "" {
		return ""
	}
	return wordwrap.String(msg, contentWidth)
}

func wrap(text string) string {
	return wordwrap.String(text, contentWidth-4)
}
