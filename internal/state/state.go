// Package state defines the shared session document threaded through the
// pipeline stages, the approval-status vocabulary, and the merge rules for
// stage updates.
package state

import "encoding/json"

// Approval statuses drive the gate state machine. The empty string is the
// initial status of a freshly created session.
const (
	StatusInitial                 = ""
	StatusPendingPlanApproval     = "pending_plan_approval"
	StatusApprovedPlan            = "approved_plan"
	StatusPendingResearchApproval = "pending_research_approval"
	StatusApprovedResearch        = "approved_research"
	StatusPendingStrategyApproval = "pending_strategy_approval"
	StatusApprovedStrategy        = "approved_strategy"
	StatusRevisionRequested       = "revision_requested"
)

// Research task types.
const (
	TaskCompanyProfile      = "company_profile"
	TaskCompetitorDiscovery = "competitor_discovery"
	TaskCompetitorDeepDive  = "competitor_deep_dive"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry in the session conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ResearchTask is a unit of research work produced by the plan stage.
type ResearchTask struct {
	Type       string   `json:"type"`
	Target     string   `json:"target"`
	URL        string   `json:"url,omitempty"`
	FocusAreas []string `json:"focus_areas,omitempty"`
}

// ValidType reports whether the task type is one of the known values.
func (t ResearchTask) ValidType() bool {
	switch t.Type {
	case TaskCompanyProfile, TaskCompetitorDiscovery, TaskCompetitorDeepDive:
		return true
	}
	return false
}

// Dispatchable reports whether the task carries enough information to run.
func (t ResearchTask) Dispatchable() bool {
	return t.Type != "" && t.Target != ""
}

// ResearchResult records the outcome of one executed task. Failures are
// represented as data: a Data map containing an "error" key.
type ResearchResult struct {
	Competitor string                 `json:"competitor"`
	Data       map[string]interface{} `json:"data"`
	Source     string                 `json:"source"`
	Timestamp  string                 `json:"timestamp"`
}

// Failed reports whether the result carries an error marker.
func (r ResearchResult) Failed() bool {
	if r.Data == nil {
		return false
	}
	_, ok := r.Data["error"]
	return ok
}

// CompetitorAnalysis is the strategy stage's per-competitor assessment.
type CompetitorAnalysis struct {
	Competitor        string   `json:"competitor"`
	Strengths         []string `json:"strengths"`
	Weaknesses        []string `json:"weaknesses"`
	MarketPosition    string   `json:"market_position"`
	ThreatLevel       string   `json:"threat_level"`
	LLMGenerated      bool     `json:"llm_generated"`
	HasHistoricalData bool     `json:"has_historical_data,omitempty"`
}

// StrategyDraft holds one generated strategy proposal.
type StrategyDraft struct {
	FeatureGaps            []string `json:"feature_gaps"`
	Opportunities          []string `json:"opportunities"`
	PositioningSuggestions []string `json:"positioning_suggestions"`
	FundraisingIntel       []string `json:"fundraising_intel"`
	Summary                string   `json:"summary"`
	LLMGenerated           bool     `json:"llm_generated"`
}

// StrategicInsights is the final packaged output of the pipeline.
type StrategicInsights struct {
	Summary         string   `json:"summary"`
	Recommendations []string `json:"recommendations"`
	CompanyName     string   `json:"company_name"`
	CompetitorCount int      `json:"competitor_count"`
	LLMGenerated    bool     `json:"llm_generated"`
}

// SessionState is the shared document owned by the session controller. One
// instance exists per session; stages receive it by value and return deltas.
type SessionState struct {
	SessionID          string                 `json:"session_id"`
	Conversation       []Message              `json:"conversation"`
	UserContext        map[string]interface{} `json:"user_context"`
	CompanyURL         string                 `json:"company_url"`
	ResearchTasks      []ResearchTask         `json:"research_tasks"`
	ResearchResults    []ResearchResult       `json:"research_results"`
	StrategyDrafts     []StrategyDraft        `json:"strategy_drafts"`
	CompanyProfile     map[string]interface{} `json:"company_profile,omitempty"`
	Competitors        []string               `json:"competitors,omitempty"`
	CompetitorAnalyses []CompetitorAnalysis   `json:"competitor_analyses,omitempty"`
	StrategicInsights  *StrategicInsights     `json:"strategic_insights,omitempty"`
	ApprovalStatus     string                 `json:"approval_status"`
}

// New builds the initial state for a fresh session.
func New(sessionID, companyURL string) *SessionState {
	return &SessionState{
		SessionID:      sessionID,
		Conversation:   []Message{},
		UserContext:    map[string]interface{}{},
		CompanyURL:     companyURL,
		ApprovalStatus: StatusInitial,
	}
}

// Update is the delta a stage node returns. Nil fields mean "unchanged".
// Conversation entries are appended, UserContext is merged key-by-key, and
// every other field replaces the current value.
type Update struct {
	Conversation       []Message
	UserContext        map[string]interface{}
	CompanyURL         *string
	ResearchTasks      []ResearchTask
	ResearchResults    []ResearchResult
	StrategyDrafts     []StrategyDraft
	CompanyProfile     map[string]interface{}
	Competitors        []string
	CompetitorAnalyses []CompetitorAnalysis
	StrategicInsights  *StrategicInsights
	ApprovalStatus     *string
}

// StringPtr is a convenience for setting Update string fields.
func StringPtr(s string) *string { return &s }

// Apply merges an update into the state document.
func (s *SessionState) Apply(u Update) {
	s.Conversation = append(s.Conversation, u.Conversation...)
	if u.UserContext != nil {
		if s.UserContext == nil {
			s.UserContext = map[string]interface{}{}
		}
		for k, v := range u.UserContext {
			s.UserContext[k] = v
		}
	}
	if u.CompanyURL != nil && *u.CompanyURL != "" {
		s.CompanyURL = *u.CompanyURL
	}
	if u.ResearchTasks != nil {
		s.ResearchTasks = u.ResearchTasks
	}
	if u.ResearchResults != nil {
		s.ResearchResults = u.ResearchResults
	}
	if u.StrategyDrafts != nil {
		s.StrategyDrafts = u.StrategyDrafts
	}
	if u.CompanyProfile != nil {
		s.CompanyProfile = u.CompanyProfile
	}
	if u.Competitors != nil {
		s.Competitors = u.Competitors
	}
	if u.CompetitorAnalyses != nil {
		s.CompetitorAnalyses = u.CompetitorAnalyses
	}
	if u.StrategicInsights != nil {
		s.StrategicInsights = u.StrategicInsights
	}
	if u.ApprovalStatus != nil {
		s.ApprovalStatus = *u.ApprovalStatus
	}
}

// AppendMessage appends one conversation entry.
func (s *SessionState) AppendMessage(role, content string) {
	s.Conversation = append(s.Conversation, Message{Role: role, Content: content})
}

// LatestUserMessage returns the most recent user message, or "".
func (s *SessionState) LatestUserMessage() string {
	for i := len(s.Conversation) - 1; i >= 0; i-- {
		if s.Conversation[i].Role == RoleUser {
			return s.Conversation[i].Content
		}
	}
	return ""
}

// LastAssistantMessage returns the most recent assistant message, or "".
func (s *SessionState) LastAssistantMessage() string {
	for i := len(s.Conversation) - 1; i >= 0; i-- {
		if s.Conversation[i].Role == RoleAssistant {
			return s.Conversation[i].Content
		}
	}
	return ""
}

// Clone returns a deep copy of the state via its JSON form.
func (s *SessionState) Clone() (*SessionState, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	var out SessionState
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Terminal reports whether the session has reached its final status.
func (s *SessionState) Terminal() bool {
	return s.ApprovalStatus == StatusApprovedStrategy
}
