// Package tools provides the web collaborators used by the research stage:
// a search API client and a page scraper with content chunking.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// SearchResult is one hit from the search collaborator.
type SearchResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// SearchRequest describes one search call.
type SearchRequest struct {
	Query          string
	MaxResults     int
	Depth          string
	IncludeDomains []string
	ExcludeDomains []string
}

// SearchClient calls a Tavily-style search API.
type SearchClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewSearchClient builds a client. An empty apiKey yields an unconfigured
// client whose Search calls fail.
func NewSearchClient(apiKey, baseURL string) *SearchClient {
	if baseURL == "" {
		baseURL = "https://api.tavily.com"
	}
	return &SearchClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// IsConfigured reports whether the client holds credentials.
func (c *SearchClient) IsConfigured() bool {
	return c != nil && c.apiKey != ""
}

type searchAPIRequest struct {
	APIKey         string   `json:"api_key"`
	Query          string   `json:"query"`
	MaxResults     int      `json:"max_results"`
	SearchDepth    string   `json:"search_depth"`
	IncludeDomains []string `json:"include_domains,omitempty"`
	ExcludeDomains []string `json:"exclude_domains,omitempty"`
}

type searchAPIResponse struct {
	Results []SearchResult `json:"results"`
}

// Search runs one query and returns a bounded result list.
func (c *SearchClient) Search(ctx context.Context, req SearchRequest) ([]SearchResult, error) {
	if !c.IsConfigured() {
		return nil, fmt.Errorf("search client not configured")
	}
	if req.MaxResults <= 0 {
		req.MaxResults = 5
	}
	if req.Depth == "" {
		req.Depth = "basic"
	}

	body, err := json.Marshal(searchAPIRequest{
		APIKey:         c.apiKey,
		Query:          req.Query,
		MaxResults:     req.MaxResults,
		SearchDepth:    req.Depth,
		IncludeDomains: req.IncludeDomains,
		ExcludeDomains: req.ExcludeDomains,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding search request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building search request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading search response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	var parsed searchAPIResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}
	if len(parsed.Results) > req.MaxResults {
		parsed.Results = parsed.Results[:req.MaxResults]
	}
	return parsed.Results, nil
}
