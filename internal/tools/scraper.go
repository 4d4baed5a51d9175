package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// DefaultSubpaths is the subpage set scraped for a company profile.
var DefaultSubpaths = []string{"/", "/about", "/pricing", "/product", "/products", "/blog"}

// ScrapeResult is the outcome of fetching one page. Failures are reported via
// Success=false, never as an error return.
type ScrapeResult struct {
	URL      string `json:"url"`
	Markdown string `json:"markdown"`
	Title    string `json:"title"`
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
}

// Scraper fetches pages and extracts readable text.
type Scraper struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
}

// NewScraper builds a scraper with the given timeout and user agent.
func NewScraper(timeout time.Duration, userAgent string) *Scraper {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if userAgent == "" {
		userAgent = "rivalmap/1.0"
	}
	return &Scraper{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
		maxBytes:  5 << 20,
	}
}

// Scrape fetches one URL and extracts its text content.
func (s *Scraper) Scrape(ctx context.Context, url string) ScrapeResult {
	result := ScrapeResult{URL: url}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		result.Error = fmt.Sprintf("status %d", resp.StatusCode)
		return result
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBytes))
	if err != nil {
		result.Error = err.Error()
		return result
	}

	doc, err := html.Parse(strings.NewReader(string(raw)))
	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.Title = extractTitle(doc)
	result.Markdown = extractText(doc)
	result.Success = true
	return result
}

// ScrapeDomain fetches a set of subpaths under a base URL and returns the
// successful pages only. Duplicate subpaths are fetched once.
func (s *Scraper) ScrapeDomain(ctx context.Context, baseURL string, subpaths []string) []ScrapeResult {
	base := strings.TrimRight(baseURL, "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}
	if len(subpaths) == 0 {
		subpaths = DefaultSubpaths
	}

	seen := make(map[string]bool, len(subpaths))
	var results []ScrapeResult
	for _, p := range subpaths {
		if !strings.HasPrefix(p, "/") {
			p = "/" + p
		}
		if seen[p] {
			continue
		}
		seen[p] = true

		url := base + p
		if p == "/" {
			url = base
		}
		r := s.Scrape(ctx, url)
		if r.Success {
			results = append(results, r)
		}
	}
	return results
}

// skipTags holds elements whose text is navigation chrome, not content.
var skipTags = map[string]bool{
	"script":   true,
	"style":    true,
	"nav":      true,
	"footer":   true,
	"header":   true,
	"noscript": true,
}

func extractTitle(doc *html.Node) string {
	var title string
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "title" {
			if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
				title = strings.TrimSpace(n.FirstChild.Data)
			}
			return true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(doc)
	return title
}

func extractText(doc *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skipTags[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				b.WriteString(text)
				b.WriteString("\n")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return strings.TrimSpace(b.String())
}
