// Package researcher implements the research stage: task dispatch, execution
// against the web collaborators, and result aggregation, ending at the second
// approval gate.
package researcher

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rivalmap/rivalmap/internal/logging"
	"github.com/rivalmap/rivalmap/internal/memory"
	"github.com/rivalmap/rivalmap/internal/state"
	"github.com/rivalmap/rivalmap/internal/tools"
)

// SourceCache tags results served from the competitor cache instead of a
// live execution.
const SourceCache = "cache"

// maxRecordedChunks bounds how many content chunks a result record carries.
const maxRecordedChunks = 3

// deepDiveDefaultSubpaths is used when no focus area maps to a subpage.
var deepDiveDefaultSubpaths = []string{"/", "/about", "/pricing", "/products"}

// Researcher holds the research stage's collaborators.
type Researcher struct {
	search       *tools.SearchClient
	scraper      *tools.Scraper
	mem          *memory.Memory
	log          *logging.Logger
	chunkSize    int
	chunkOverlap int
	maxResults   int
}

// Options tune the researcher; zero values select the defaults.
type Options struct {
	ChunkSize    int
	ChunkOverlap int
	MaxResults   int
}

// New creates a researcher.
func New(search *tools.SearchClient, scraper *tools.Scraper, mem *memory.Memory, log *logging.Logger, opts Options) *Researcher {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = tools.DefaultChunkSize
	}
	if opts.ChunkOverlap <= 0 {
		opts.ChunkOverlap = tools.DefaultChunkOverlap
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = 5
	}
	return &Researcher{
		search:       search,
		scraper:      scraper,
		mem:          mem,
		log:          log.WithComponent("researcher"),
		chunkSize:    opts.ChunkSize,
		chunkOverlap: opts.ChunkOverlap,
		maxResults:   opts.MaxResults,
	}
}

// Dispatch filters the task list down to runnable tasks. Invalid tasks are
// dropped silently; only the count surfaces in the progress message. The
// filter is idempotent.
func (r *Researcher) Dispatch(s *state.SessionState) state.Update {
	valid := FilterTasks(s.ResearchTasks)
	dropped := len(s.ResearchTasks) - len(valid)
	r.log.Info("dispatching research tasks", map[string]interface{}{
		"tasks":   len(valid),
		"dropped": dropped,
	})

	msg := fmt.Sprintf("Dispatching %d research tasks...", len(valid))
	if dropped > 0 {
		msg = fmt.Sprintf("Dispatching %d research tasks (%d invalid tasks skipped)...", len(valid), dropped)
	}

	return state.Update{
		ResearchTasks: valid,
		Conversation:  []state.Message{{Role: state.RoleAssistant, Content: msg}},
	}
}

// FilterTasks keeps tasks with a non-empty type and target.
func FilterTasks(tasks []state.ResearchTask) []state.ResearchTask {
	valid := make([]state.ResearchTask, 0, len(tasks))
	for _, t := range tasks {
		if t.Dispatchable() {
			valid = append(valid, t)
		}
	}
	return valid
}

// Execute runs every task sequentially, routing by type. Collaborator
// failures degrade to error-tagged result records; Execute itself never
// fails.
func (r *Researcher) Execute(ctx context.Context, s *state.SessionState) state.Update {
	tasks := FilterTasks(s.ResearchTasks)
	r.log.Info("executing research tasks", map[string]interface{}{"tasks": len(tasks)})

	results := make([]state.ResearchResult, 0, len(tasks))
	for _, task := range tasks {
		results = append(results, r.executeTask(ctx, task))
	}

	return state.Update{
		ResearchResults: append(append([]state.ResearchResult{}, s.ResearchResults...), results...),
		Conversation: []state.Message{{
			Role:    state.RoleAssistant,
			Content: fmt.Sprintf("Completed %d research tasks.", len(results)),
		}},
	}
}

func (r *Researcher) executeTask(ctx context.Context, task state.ResearchTask) state.ResearchResult {
	start := time.Now()

	// Scrape-backed task types consult the competitor cache first.
	if task.Type == state.TaskCompanyProfile || task.Type == state.TaskCompetitorDeepDive {
		if cached := r.cachedProfile(task.Target); cached != nil {
			r.log.Info("cache hit", map[string]interface{}{"target": task.Target})
			return state.ResearchResult{
				Competitor: task.Target,
				Data:       cached,
				Source:     SourceCache,
				Timestamp:  timestamp(),
			}
		}
	}

	var data map[string]interface{}
	switch task.Type {
	case state.TaskCompanyProfile:
		data = r.scrapeProfile(ctx, task, tools.DefaultSubpaths)
	case state.TaskCompetitorDiscovery:
		data = r.discoverCompetitors(ctx, task)
	case state.TaskCompetitorDeepDive:
		data = r.scrapeProfile(ctx, task, deepDiveSubpaths(task.FocusAreas))
	default:
		data = map[string]interface{}{"error": fmt.Sprintf("unknown task type: %s", task.Type)}
	}

	result := state.ResearchResult{
		Competitor: task.Target,
		Data:       data,
		Source:     task.Type,
		Timestamp:  timestamp(),
	}
	r.log.ToolResult(task.Type, time.Since(start), nil)

	if !result.Failed() && r.mem != nil && (task.Type == state.TaskCompanyProfile || task.Type == state.TaskCompetitorDeepDive) {
		if err := r.mem.PutCompetitorProfile(task.Target, data); err != nil {
			r.log.Warn("caching competitor profile failed", map[string]interface{}{"error": err.Error()})
		}
	}
	return result
}

// cachedProfile returns a usable cached record for a target, or nil.
func (r *Researcher) cachedProfile(target string) map[string]interface{} {
	if r.mem == nil {
		return nil
	}
	cached, err := r.mem.GetCompetitorProfile(target)
	if err != nil || cached == nil {
		return nil
	}
	if _, failed := cached["error"]; failed {
		return nil
	}
	return cached
}

// scrapeProfile fetches a subpage set, combines the page text, and chunks it
// for downstream LLM consumption.
func (r *Researcher) scrapeProfile(ctx context.Context, task state.ResearchTask, subpaths []string) map[string]interface{} {
	url := task.URL
	if url == "" {
		url = task.Target
	}
	if url == "" {
		return map[string]interface{}{"error": "no url or target to scrape"}
	}

	pages := r.scraper.ScrapeDomain(ctx, url, subpaths)
	if len(pages) == 0 {
		return map[string]interface{}{"error": fmt.Sprintf("no pages scraped from %s", url)}
	}

	var combined strings.Builder
	titles := make([]interface{}, 0, len(pages))
	for _, p := range pages {
		combined.WriteString(p.Markdown)
		combined.WriteString("\n\n")
		titles = append(titles, p.Title)
	}
	content := strings.TrimSpace(combined.String())
	chunks := tools.Chunk(content, r.chunkSize, r.chunkOverlap)

	recorded := chunks
	if len(recorded) > maxRecordedChunks {
		recorded = recorded[:maxRecordedChunks]
	}
	recordedAny := make([]interface{}, len(recorded))
	for i, c := range recorded {
		recordedAny[i] = c
	}

	return map[string]interface{}{
		"pages_scraped":  len(pages),
		"total_chars":    len(content),
		"chunks":         len(chunks),
		"content_chunks": recordedAny,
		"page_titles":    titles,
	}
}

// discoverCompetitors searches for competitors of the target.
func (r *Researcher) discoverCompetitors(ctx context.Context, task state.ResearchTask) map[string]interface{} {
	if !r.search.IsConfigured() {
		return map[string]interface{}{"error": "search client not configured"}
	}

	query := fmt.Sprintf("%s competitors alternatives", task.Target)
	if len(task.FocusAreas) > 0 {
		query = fmt.Sprintf("%s %s", query, strings.Join(task.FocusAreas, " "))
	}

	hits, err := r.search.Search(ctx, tools.SearchRequest{
		Query:      query,
		MaxResults: r.maxResults,
	})
	if err != nil {
		return map[string]interface{}{"error": err.Error()}
	}

	searchResults := make([]interface{}, len(hits))
	for i, h := range hits {
		searchResults[i] = map[string]interface{}{
			"title":   h.Title,
			"url":     h.URL,
			"content": h.Content,
			"score":   h.Score,
		}
	}
	return map[string]interface{}{
		"search_results": searchResults,
		"result_count":   len(hits),
	}
}

// deepDiveSubpaths maps focus areas to the subpages worth scraping.
func deepDiveSubpaths(focusAreas []string) []string {
	var paths []string
	seen := map[string]bool{}
	add := func(ps ...string) {
		for _, p := range ps {
			if !seen[p] {
				seen[p] = true
				paths = append(paths, p)
			}
		}
	}
	for _, area := range focusAreas {
		a := strings.ToLower(area)
		switch {
		case strings.Contains(a, "pricing"):
			add("/pricing")
		case strings.Contains(a, "product"), strings.Contains(a, "feature"):
			add("/product", "/products", "/features")
		case strings.Contains(a, "about"), strings.Contains(a, "team"):
			add("/about")
		case strings.Contains(a, "blog"):
			add("/blog")
		}
	}
	if len(paths) == 0 {
		return append([]string{}, deepDiveDefaultSubpaths...)
	}
	return paths
}

// Aggregate deduplicates results by (competitor, source) keeping the first
// occurrence, partitions successes from failures for reporting, and raises
// the second approval gate.
func (r *Researcher) Aggregate(s *state.SessionState) state.Update {
	deduped := DedupeResults(s.ResearchResults)

	var failed int
	for _, res := range deduped {
		if res.Failed() {
			failed++
		}
	}
	r.log.Info("aggregated results", map[string]interface{}{
		"results": len(deduped),
		"failed":  failed,
	})

	msg := fmt.Sprintf("Research complete, %d results gathered. Awaiting your approval to proceed to strategy.", len(deduped))
	if failed > 0 {
		msg = fmt.Sprintf(
			"Research complete, %d results gathered (%d failed). Awaiting your approval to proceed to strategy.",
			len(deduped), failed,
		)
	}

	return state.Update{
		ResearchResults: deduped,
		ApprovalStatus:  state.StringPtr(state.StatusPendingResearchApproval),
		Conversation:    []state.Message{{Role: state.RoleAssistant, Content: msg}},
	}
}

// DedupeResults removes duplicate (competitor, source) pairs, keeping the
// first occurrence.
func DedupeResults(results []state.ResearchResult) []state.ResearchResult {
	seen := make(map[string]bool, len(results))
	out := make([]state.ResearchResult, 0, len(results))
	for _, res := range results {
		key := res.Competitor + "\x00" + res.Source
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, res)
	}
	return out
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
