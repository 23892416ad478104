package planner

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"
)

var errTest = errors.New("boom")

// fakeModel replays canned replies and records the prompts it was given.
type fakeModel struct {
	replies []string
	err     error
	calls   int
	prompts []string
}

func (m *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	if m.err != nil {
		return nil, m.err
	}

	var prompt string
	for _, msg := range messages {
		for _, part := range msg.Parts {
			if text, ok := part.(llms.TextContent); ok {
				prompt += text.Text
			}
		}
	}
	m.prompts = append(m.prompts, prompt)

	idx := m.calls
	if idx >= len(m.replies) {
		idx = len(m.replies) - 1
	}
	m.calls++
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: m.replies[idx]}},
	}, nil
}

func (m *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	resp, err := m.GenerateContent(ctx, []llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, prompt)}, options...)
	if err != nil {
		return "", err
	}
	return resp.Choices[0].Content, nil
}

// fakeEmbedder returns a constant vector for every input.
type fakeEmbedder struct{}

func (fakeEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func (fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

// fakeMemory serves canned topics and facts and records saved facts.
type fakeMemory struct {
	topics  []TopicMatch
	facts   map[string][]Fact
	saved   []Fact
	factErr error
}

func (m *fakeMemory) SearchTopics(ctx context.Context, embedding []float32) ([]TopicMatch, error) {
	return m.topics, nil
}

func (m *fakeMemory) GetFacts(ctx context.Context, topic string) ([]Fact, error) {
	if m.factErr != nil {
		return nil, m.factErr
	}
	return m.facts[topic], nil
}

func (m *fakeMemory) SaveFact(ctx context.Context, topic, factType, fact string) error {
	if m.factErr != nil {
		return m.factErr
	}
	m.saved = append(m.saved, Fact{Type: factType, Content: fact})
	return nil
}

// fakeStore records saved plan records.
type fakeStore struct {
	records []PlanRecord
	err     error
}

func (s *fakeStore) SavePlan(ctx context.Context, rec PlanRecord) error {
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, rec)
	return nil
}

func newTestOrchestrator(model *fakeModel) (*Orchestrator, *fakeStore) {
	st := &fakeStore{}
	mem := &fakeMemory{
		topics: []TopicMatch{
			{Name: "Jazz Guitar", Similarity: 0.92, Description: "Jazz guitar technique"},
			{Name: "Go", Similarity: 0.41, Description: "The Go programming language"},
		},
		facts: map[string][]Fact{
			"Jazz Guitar": {{Type: "WHAT", Content: "User practices daily"}},
		},
	}
	return NewOrchestrator(model, fakeEmbedder{}, mem, st, nil, nil), st
}

var twoStepReply = fmt.Sprintf(`{
	"complexity": "simple",
	"reasoning": "search then summarize",
	"steps": [
		{"id": "step_1", "description": "Search memory for topics", "tool": %q,
		 "tool_input": {"query": "music", "limit": 5}, "depends_on": [], "deferred_requirements": []},
		{"id": "step_2", "description": "Summarize findings", "tool": null,
		 "tool_input": {"prompt": "Summarize the topics found"}, "depends_on": ["step_1"], "deferred_requirements": []}
	]
}`, CapSearchTopics)
