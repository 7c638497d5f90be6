package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/fenrirlabs/agentcore/internal/tools"
)

const (
	webSearchTimeout     = 15 * time.Second
	webSearchUserAgent   = "Mozilla/5.0 (compatible; agentcore/1.0)"
	webSearchResultCount = 8
)

// WebSearchTool searches the web and returns a summary of matching results.
// It performs the search itself over HTTP; no provider-native web_search
// tool is used in its place.
//
// Maps to: codex-rs/core/src/tools/handlers/web_search.rs WebSearchHandler
type WebSearchTool struct {
	client *http.Client
}

// NewWebSearchTool creates a new web_search tool handler.
func NewWebSearchTool() *WebSearchTool {
	return &WebSearchTool{client: &http.Client{Timeout: webSearchTimeout}}
}

func (t *WebSearchTool) Name() string { return "web_search" }

func (t *WebSearchTool) Kind() tools.ToolKind { return tools.ToolKindFunction }

func (t *WebSearchTool) IsMutating(invocation *tools.ToolInvocation) bool { return false }

func (t *WebSearchTool) Handle(ctx context.Context, invocation *tools.ToolInvocation) (*tools.ToolOutput, error) {
	queryArg, ok := invocation.Arguments["query"]
	if !ok {
		return nil, tools.NewValidationError("missing required argument: query")
	}
	query, ok := queryArg.(string)
	if !ok || strings.TrimSpace(query) == "" {
		return nil, tools.NewValidationError("query must be a non-empty string")
	}

	results, err := t.search(ctx, query)
	if err != nil {
		success := false
		return &tools.ToolOutput{Content: err.Error(), Success: &success}, nil
	}
	if len(results) == 0 {
		success := false
		return &tools.ToolOutput{Content: "No results found.", Success: &success}, nil
	}

	var sb strings.Builder
	for i, r := range results {
		fmt.Fprintf(&sb, "%d. %s\n%s\n%s\n\n", i+1, r.title, r.url, r.description)
	}

	success := true
	return &tools.ToolOutput{Content: strings.TrimRight(sb.String(), "\n"), Success: &success}, nil
}

type searchResult struct {
	title       string
	url         string
	description string
}

// search queries DuckDuckGo's HTML endpoint, which requires no API key.
func (t *WebSearchTool) search(ctx context.Context, query string) ([]searchResult, error) {
	searchURL := fmt.Sprintf("https://html.duckduckgo.com/html/?q=%s", url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", webSearchUserAgent)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("web search request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}

	return extractResults(string(body), webSearchResultCount), nil
}

var (
	resultLinkRe    = regexp.MustCompile(`<a[^>]*class="[^"]*result__a[^"]*"[^>]*href="([^"]+)"[^>]*>([\s\S]*?)</a>`)
	resultSnippetRe = regexp.MustCompile(`<a class="result__snippet[^"]*".*?>([\s\S]*?)</a>`)
	htmlTagRe       = regexp.MustCompile(`<[^>]+>`)
)

func extractResults(html string, count int) []searchResult {
	linkMatches := resultLinkRe.FindAllStringSubmatch(html, count+5)
	if len(linkMatches) == 0 {
		return nil
	}
	snippetMatches := resultSnippetRe.FindAllStringSubmatch(html, count+5)

	var results []searchResult
	for i := 0; i < len(linkMatches) && i < count; i++ {
		rawURL := linkMatches[i][1]
		title := strings.TrimSpace(htmlTagRe.ReplaceAllString(linkMatches[i][2], ""))

		// DDG wraps result links in a redirect; pull the real target out of
		// the uddg= query parameter.
		if strings.Contains(rawURL, "uddg=") {
			if u, err := url.QueryUnescape(rawURL); err == nil {
				if idx := strings.Index(u, "uddg="); idx != -1 {
					extracted := u[idx+5:]
					if ampIdx := strings.Index(extracted, "&"); ampIdx != -1 {
						extracted = extracted[:ampIdx]
					}
					rawURL = extracted
				}
			}
		}

		desc := ""
		if i < len(snippetMatches) {
			desc = strings.TrimSpace(htmlTagRe.ReplaceAllString(snippetMatches[i][1], ""))
		}

		results = append(results, searchResult{title: title, url: rawURL, description: desc})
	}
	return results
}
