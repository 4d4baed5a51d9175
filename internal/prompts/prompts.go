// Package prompts holds the prompt templates used by the stage nodes.
package prompts

import (
	"fmt"
	"strings"
)

// PlannerSystem frames the planner's JSON-only contract.
const PlannerSystem = `You are a competitive intelligence planning agent. Your job is to analyze
the user's request and produce a structured JSON research plan.

Always respond with valid JSON, no markdown fences, no extra text.`

// ResearcherSystem frames the researcher's JSON-only contract.
const ResearcherSystem = `You are a competitive intelligence research agent. You analyze raw data
from web searches and scraped pages to extract structured competitor
intelligence.

Always respond with valid JSON, no markdown fences, no extra text.`

// StrategistSystem frames the strategist's JSON-only contract.
const StrategistSystem = `You are a competitive strategy analyst. You synthesize research findings
into actionable strategic recommendations.

Always respond with valid JSON, no markdown fences, no extra text.`

// AnalyzeQuery asks the planner to extract intent from the user message.
func AnalyzeQuery(userMessage, companyURL string) string {
	return fmt.Sprintf(`Analyze the following request and extract:
- company_url: the URL of the target company
- company_name: inferred company name
- focus_areas: list of research focus areas (e.g. pricing, features, market position)
- constraints: any constraints the user specified

User request:
%s

Company URL provided: %s

Respond with JSON:
{"company_url": "...", "company_name": "...", "focus_areas": [...], "constraints": [...]}`, userMessage, companyURL)
}

// CreateTasks asks the planner to turn intent into concrete research tasks.
func CreateTasks(companyName, companyURL string, focusAreas, constraints []string) string {
	return fmt.Sprintf(`Given the following analysis intent, create a list of concrete research tasks.

Company: %s (%s)
Focus areas: %s
Constraints: %s

Each task should have:
- type: one of "company_profile", "competitor_discovery", "competitor_deep_dive"
- target: what to research (company name or URL)
- url: specific URL to scrape, or null if search-based
- focus_areas: list of specific things to look for

Respond with JSON:
{"tasks": [{...}, ...]}`, companyName, companyURL, joinOrNone(focusAreas), joinOrNone(constraints))
}

// AnalyzeFindings asks the strategist to assess each competitor.
func AnalyzeFindings(companyProfile, formattedResults string) string {
	return fmt.Sprintf(`Analyze the following research data and produce a competitive analysis.

Target company:
%s

Research findings:
%s

For each competitor, assess:
- strengths: what they do well
- weaknesses: where they fall short
- market_position: how they are positioned
- threat_level: high/medium/low

Respond with JSON:
{
  "analyses": [
    {
      "competitor": "name",
      "strengths": [...],
      "weaknesses": [...],
      "market_position": "...",
      "threat_level": "high|medium|low"
    },
    ...
  ]
}`, companyProfile, formattedResults)
}

// GenerateStrategy asks the strategist for the final recommendations.
func GenerateStrategy(companyName, companyProfile, competitiveAnalysis string) string {
	return fmt.Sprintf(`Based on the following competitive analysis, generate strategic
recommendations for %s.

Company profile:
%s

Competitive analysis:
%s

Generate strategic insights as JSON:
{
  "feature_gaps": ["features competitors have that %s lacks"],
  "opportunities": ["market gaps and growth opportunities"],
  "positioning_suggestions": ["how to differentiate"],
  "fundraising_intel": ["competitive fundraising intelligence"],
  "summary": "2-3 paragraph executive summary"
}`, companyName, companyProfile, competitiveAnalysis, companyName)
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}
