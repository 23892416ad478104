package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/llms"
)

const planInstructions = `Create a plan with these fields:
- complexity: one of "atomic", "simple", "moderate", "complex"
- reasoning: brief explanation
- steps: array of step objects

Each step object:
- id: "step_1", "step_2", etc
- description: what this step does
- tool: tool name from above OR null for LLM
- tool_input: dict with required inputs for the tool
- expected_output: what you expect back
- depends_on: array of step IDs this depends on (empty array if none)
- deferred_requirements: array of missing requirements (empty array if none)

CRITICAL: Output ONLY the JSON object. No explanation before or after. No markdown.

Example format:
{
    "complexity": "simple",
    "reasoning": "Only needs memory search and summary",
    "steps": [
        {
            "id": "step_1",
            "description": "Search memory for music topics",
            "tool": "memory_search_topics",
            "tool_input": {"query": "music", "limit": 5},
            "expected_output": "List of music-related topics",
            "depends_on": [],
            "deferred_requirements": []
        },
        {
            "id": "step_2",
            "description": "Summarize findings",
            "tool": null,
            "tool_input": {"prompt": "Summarize the music topics found"},
            "expected_output": "Summary text",
            "depends_on": ["step_1"],
            "deferred_requirements": []
        }
    ]
}

Now create the plan as JSON:`

// rawPlan is the wire shape the planning model is asked to emit.
type rawPlan struct {
	Complexity string    `json:"complexity"`
	Reasoning  string    `json:"reasoning"`
	Steps      []rawStep `json:"steps"`
}

type rawStep struct {
	ID             string         `json:"id"`
	Description    string         `json:"description"`
	Tool           *string        `json:"tool"`
	ToolInput      map[string]any `json:"tool_input"`
	ExpectedOutput string         `json:"expected_output"`
	DependsOn      []string       `json:"depends_on"`
	Deferred       []Requirement  `json:"deferred_requirements"`
}

// CreatePlan asks the model to break a goal into steps and returns the
// registered plan. The optional extra context is serialized into the planning
// prompt. The plan is persisted before it is returned; on any generation,
// extraction, schema or persistence failure no plan is registered.
func (o *Orchestrator) CreatePlan(ctx context.Context, goal string, extra map[string]any) (*Plan, error) {
	prompt := o.planningPrompt(goal, extra)

	reply, err := o.generate(ctx, prompt)
	if err != nil {
		return nil, &GenerationError{Err: err}
	}
	if strings.TrimSpace(reply) == "" {
		return nil, &GenerationError{Err: fmt.Errorf("model returned an empty reply")}
	}

	doc, err := extractJSON(reply)
	if err != nil {
		return nil, err
	}

	var raw rawPlan
	if err := json.Unmarshal([]byte(doc), &raw); err != nil {
		return nil, &SchemaError{Reason: fmt.Sprintf("plan payload is not an object: %v", err)}
	}

	plan, err := o.buildPlan(goal, raw)
	if err != nil {
		return nil, err
	}

	o.recompute(plan)

	if err := o.persist(ctx, plan); err != nil {
		return nil, fmt.Errorf("persisting plan: %w", err)
	}
	o.addPlan(plan)

	o.Logger.LogPlan(plan.ID, plan.Goal, string(plan.Complexity), len(plan.Steps))
	return plan, nil
}

func (o *Orchestrator) planningPrompt(goal string, extra map[string]any) string {
	contextStr := "None"
	if len(extra) > 0 {
		if data, err := json.MarshalIndent(extra, "", "  "); err == nil {
			contextStr = string(data)
		}
	}

	return fmt.Sprintf(`You are a task planner. Your ONLY output must be valid JSON.

Goal: %s

Context: %s

Available Tools:
%s

%s`, goal, contextStr, o.registry.Manifest(), planInstructions)
}

// generate runs one planning call against the model at low temperature.
func (o *Orchestrator) generate(ctx context.Context, prompt string) (string, error) {
	messages := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(prompt)},
		},
	}

	resp, err := o.Model.GenerateContent(ctx, messages,
		llms.WithTemperature(o.Temperature),
		llms.WithMaxTokens(o.MaxTokens),
	)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("model returned no choices")
	}

	reply := resp.Choices[0].Content
	o.Logger.LogLLM("", "", prompt, reply)
	return strings.TrimSpace(reply), nil
}

// buildPlan validates and normalizes the raw payload into a Plan. All steps
// start pending.
func (o *Orchestrator) buildPlan(goal string, raw rawPlan) (*Plan, error) {
	complexity, err := ParseComplexity(raw.Complexity)
	if err != nil {
		return nil, &SchemaError{Reason: err.Error()}
	}
	if len(raw.Steps) == 0 {
		return nil, &SchemaError{Reason: "plan has no steps"}
	}

	steps := make([]*Step, 0, len(raw.Steps))
	ids := make(map[string]bool, len(raw.Steps))
	for i, rs := range raw.Steps {
		step := &Step{
			ID:             rs.ID,
			Description:    rs.Description,
			Input:          rs.ToolInput,
			ExpectedOutput: rs.ExpectedOutput,
			Status:         StatusPending,
			DependsOn:      rs.DependsOn,
			Deferred:       rs.Deferred,
		}
		if step.ID == "" {
			step.ID = fmt.Sprintf("step_%d", i+1)
		}
		if rs.Tool != nil {
			step.Capability = *rs.Tool
		}
		if step.DependsOn == nil {
			step.DependsOn = []string{}
		}
		if step.Deferred == nil {
			step.Deferred = []Requirement{}
		}

		// A step bound to a capability nobody has registered is deferred work,
		// whether or not the model said so.
		if step.Capability != "" && !o.registry.Has(step.Capability) && !missingCapability(step, o.registry.Has) {
			step.Deferred = append(step.Deferred, Requirement{Type: "tool", Name: step.Capability})
		}

		steps = append(steps, step)
		ids[step.ID] = true
	}

	// Dependency ids must reference steps within the same plan.
	for _, step := range steps {
		for _, dep := range step.DependsOn {
			if !ids[dep] {
				return nil, &SchemaError{Reason: fmt.Sprintf("step %s depends on unknown step %s", step.ID, dep)}
			}
		}
	}

	return &Plan{
		ID:         fmt.Sprintf("plan_%s", uuid.New().String()[:8]),
		Goal:       goal,
		Complexity: complexity,
		Steps:      steps,
		CreatedAt:  time.Now(),
		Context:    map[string]any{"reasoning": raw.Reasoning},
	}, nil
}

func (o *Orchestrator) persist(ctx context.Context, plan *Plan) error {
	if o.Store == nil {
		return nil
	}
	steps, err := plan.SerializeSteps()
	if err != nil {
		return err
	}
	planCtx, err := plan.SerializeContext()
	if err != nil {
		return err
	}
	return o.Store.SavePlan(ctx, PlanRecord{
		ID:         plan.ID,
		Goal:       plan.Goal,
		Complexity: string(plan.Complexity),
		Steps:      steps,
		CreatedAt:  plan.CreatedAt,
		Context:    planCtx,
	})
}
