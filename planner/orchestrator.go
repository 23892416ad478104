package planner

import (
	"context"
	"sync"
	"time"

	"github.com/rahul/yojana/observability"
	"github.com/rahul/yojana/policy"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
)

// Built-in capability names. Steps bound to one of these are dispatched by the
// engine itself; anything else needs a registered tool handler.
const (
	CapGenerate     = "llm_generate"
	CapSearchTopics = "memory_search_topics"
	CapGetFacts     = "memory_get_facts"
	CapSaveFact     = "memory_save_fact"
)

// TopicMatch is one ranked result from a memory topic search.
type TopicMatch struct {
	Name        string  `json:"name"`
	Similarity  float64 `json:"similarity"`
	Description string  `json:"description"`
}

// Fact is a single remembered fact under a topic.
type Fact struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	Locked  bool   `json:"locked"`
}

// MemoryService is the memory collaborator consumed by the built-in
// capabilities.
type MemoryService interface {
	SearchTopics(ctx context.Context, embedding []float32) ([]TopicMatch, error)
	GetFacts(ctx context.Context, topic string) ([]Fact, error)
	SaveFact(ctx context.Context, topic, factType, fact string) error
}

// PlanRecord is the persisted shape of a plan.
type PlanRecord struct {
	ID         string
	Goal       string
	Complexity string
	Steps      string
	CreatedAt  time.Time
	Context    string
}

// PlanStore durably records plans. The orchestrator keeps its own in-memory
// plan table for the process lifetime; no read-back is required from the
// store.
type PlanStore interface {
	SavePlan(ctx context.Context, rec PlanRecord) error
}

// Handler executes one step of a plan and returns its output.
type Handler func(ctx context.Context, plan *Plan, step *Step) (any, error)

// Orchestrator owns the capability registry and the in-flight plan table, and
// drives plan generation and execution. Generation and memory calls are
// blocking; an interactive host should run CreatePlan and ExecuteFullPlan off
// its main loop.
type Orchestrator struct {
	Model    llms.Model
	Embedder embeddings.Embedder
	Memory   MemoryService
	Store    PlanStore
	Policy   policy.Engine
	Logger   *observability.Logger

	// Generation knobs for the planning call.
	Temperature float64
	MaxTokens   int

	registry *Registry
	handlers map[string]Handler

	mu    sync.RWMutex
	plans map[string]*Plan
}

func NewOrchestrator(model llms.Model, embedder embeddings.Embedder, mem MemoryService, store PlanStore, gov policy.Engine, logger *observability.Logger) *Orchestrator {
	o := &Orchestrator{
		Model:       model,
		Embedder:    embedder,
		Memory:      mem,
		Store:       store,
		Policy:      gov,
		Logger:      logger,
		Temperature: 0.3,
		MaxTokens:   2000,
		registry:    NewRegistry(),
		handlers:    make(map[string]Handler),
		plans:       make(map[string]*Plan),
	}
	o.registerBuiltins()
	return o
}

// Registry returns the orchestrator's capability registry.
func (o *Orchestrator) Registry() *Registry {
	return o.registry
}

// RegisterCapability registers a capability descriptor. It becomes visible in
// all subsequently generated manifests and unblocks any needs_tool step that
// was waiting on it at the next readiness pass.
func (o *Orchestrator) RegisterCapability(c Capability) {
	o.registry.Register(c)
	o.Logger.LogCapability(c.Name)
}

// RegisterTool registers a capability together with an executable handler, so
// the engine can dispatch steps bound to it.
func (o *Orchestrator) RegisterTool(c Capability, h Handler) {
	o.mu.Lock()
	o.handlers[c.Name] = h
	o.mu.Unlock()
	o.RegisterCapability(c)
}

func (o *Orchestrator) handler(name string) (Handler, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	h, ok := o.handlers[name]
	return h, ok
}

// Plan returns a plan from the in-memory table.
func (o *Orchestrator) Plan(id string) (*Plan, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	p, ok := o.plans[id]
	return p, ok
}

func (o *Orchestrator) addPlan(p *Plan) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.plans[p.ID] = p
}

// registerBuiltins installs the default capability contracts advertised to the
// planning model.
func (o *Orchestrator) registerBuiltins() {
	o.registry.Register(Capability{
		Name:         CapGenerate,
		Description:  "General text generation and reasoning. Use when no specialized tool needed.",
		InputSchema:  map[string]any{"prompt": "string", "context": "optional dict"},
		OutputSchema: map[string]any{"response": "string"},
		Examples:     []string{"Answer a question", "Summarize text", "Analyze and explain"},
	})

	o.registry.Register(Capability{
		Name:         CapSearchTopics,
		Description:  "Search memory for topics by keyword or semantic similarity",
		InputSchema:  map[string]any{"query": "string", "limit": "int (default 5)"},
		OutputSchema: map[string]any{"topics": "list of {name, similarity, description, facts}"},
		Examples:     []string{"Find topics about music", "Search for coding discussions"},
	})

	o.registry.Register(Capability{
		Name:         CapGetFacts,
		Description:  "Get all facts about a specific topic",
		InputSchema:  map[string]any{"topic_name": "string"},
		OutputSchema: map[string]any{"facts": "list of {type, content, locked}"},
		Examples:     []string{"Get facts about Jazz Guitar", "What do I know about Python"},
	})

	o.registry.Register(Capability{
		Name:         CapSaveFact,
		Description:  "Save a new fact to memory under a topic",
		InputSchema:  map[string]any{"topic_name": "string", "fact_type": "WHO|WHAT|WHEN|WHERE|WHY|HOW", "fact": "string"},
		OutputSchema: map[string]any{"success": "boolean"},
		Examples:     []string{"Save that user likes coffee", "Remember user's birthday"},
	})
}
