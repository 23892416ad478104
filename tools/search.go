package tools

import (
	"context"
	"fmt"

	"github.com/rahul/yojana/planner"
	"github.com/tmc/langchaingo/tools/duckduckgo"
)

type SearchTool struct {
	client *duckduckgo.Tool
}

func NewSearchTool() (*SearchTool, error) {
	ddg, err := duckduckgo.New(10, duckduckgo.DefaultUserAgent)
	if err != nil {
		return nil, err
	}
	return &SearchTool{client: ddg}, nil
}

func (s *SearchTool) Capability() planner.Capability {
	return planner.Capability{
		Name:         "web_search",
		Description:  "Search the web using DuckDuckGo for real-time information.",
		InputSchema:  map[string]any{"query": "string"},
		OutputSchema: map[string]any{"results": "string"},
		Examples:     []string{"Look up current events", "Find documentation for a library"},
	}
}

func (s *SearchTool) Execute(ctx context.Context, input map[string]any) (any, error) {
	query := stringInput(input, "query")
	if query == "" {
		return nil, fmt.Errorf("missing query")
	}

	res, err := s.client.Call(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	return res, nil
}
