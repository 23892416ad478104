package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rahul/yojana/planner"
)

const wikipediaAPI = "https://en.wikipedia.org/w/api.php"

// WikipediaTool fetches plain-text page extracts from the MediaWiki query API.
type WikipediaTool struct {
	Client *http.Client
}

func NewWikipediaTool() *WikipediaTool {
	return &WikipediaTool{
		Client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (w *WikipediaTool) Capability() planner.Capability {
	return planner.Capability{
		Name:         "wikipedia",
		Description:  "Fetch the plain-text content of a Wikipedia page by topic title.",
		InputSchema:  map[string]any{"topic": "string"},
		OutputSchema: map[string]any{"title": "string", "content": "string"},
		Examples:     []string{"Look up Quantum entanglement", "Get the article on Jazz"},
	}
}

type wikiResponse struct {
	Query struct {
		Pages map[string]struct {
			Title   string `json:"title"`
			Extract string `json:"extract"`
		} `json:"pages"`
	} `json:"query"`
}

func (w *WikipediaTool) Execute(ctx context.Context, input map[string]any) (any, error) {
	topic := stringInput(input, "topic")
	if topic == "" {
		return nil, fmt.Errorf("missing topic")
	}

	params := url.Values{
		"action":          {"query"},
		"format":          {"json"},
		"titles":          {topic},
		"prop":            {"extracts"},
		"explaintext":     {"1"},
		"exsectionformat": {"plain"},
	}

	req, err := http.NewRequestWithContext(ctx, "GET", wikipediaAPI+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}

	resp, err := w.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch page: status code %d", resp.StatusCode)
	}

	var payload wikiResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode response: %v", err)
	}

	for id, page := range payload.Query.Pages {
		if id == "-1" {
			return nil, fmt.Errorf("page not found: %s", topic)
		}
		return map[string]any{
			"title":   page.Title,
			"content": page.Extract,
		}, nil
	}

	return nil, fmt.Errorf("empty response for topic %s", topic)
}
