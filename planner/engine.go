package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/rahul/yojana/policy"
	"github.com/tmc/langchaingo/llms"
)

// StepResult is the per-step record of one executed step, in execution order.
type StepResult struct {
	StepID      string      `json:"step_id"`
	Description string      `json:"description"`
	Output      *StepOutput `json:"output,omitempty"`
	Error       string      `json:"error,omitempty"`
}

// StuckStep describes a step left non-terminal when the wave loop could not
// progress any further.
type StuckStep struct {
	StepID     string     `json:"step_id"`
	Status     StepStatus `json:"status"`
	Capability string     `json:"capability,omitempty"`
}

// Result is the outcome of driving a plan to exhaustion. A non-empty Stuck
// list means the loop halted with unfinished steps (missing capabilities or
// unsatisfiable dependencies); that is reported as data, never as an error.
type Result struct {
	PlanID  string       `json:"plan_id"`
	Goal    string       `json:"goal"`
	Results []StepResult `json:"results"`
	Stuck   []StuckStep  `json:"stuck,omitempty"`
	Summary string       `json:"summary"`
}

// Deadlocked reports whether execution halted with unfinished steps remaining.
func (r *Result) Deadlocked() bool {
	return len(r.Stuck) > 0
}

func (o *Orchestrator) recompute(plan *Plan) {
	recomputeReadiness(plan, o.registry.Has)
}

// NextSteps runs a readiness pass and returns the steps ready to execute.
func (o *Orchestrator) NextSteps(planID string) []*Step {
	plan, ok := o.Plan(planID)
	if !ok {
		return nil
	}

	o.recompute(plan)

	var ready []*Step
	for _, s := range plan.Steps {
		if s.Status == StatusReady {
			ready = append(ready, s)
		}
	}
	return ready
}

// ExecuteStep runs a single ready step. Handler failures never escape: they
// are recorded on the step as its terminal failed state and ExecuteStep
// returns a nil result. The returned error only reports lookup and state
// problems (unknown plan or step, step not ready).
func (o *Orchestrator) ExecuteStep(ctx context.Context, planID, stepID string) (any, error) {
	plan, ok := o.Plan(planID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPlanNotFound, planID)
	}
	step := plan.Step(stepID)
	if step == nil {
		return nil, fmt.Errorf("%w: %s", ErrStepNotFound, stepID)
	}
	if step.Status != StatusReady {
		return nil, fmt.Errorf("%w: %s is %s", ErrStepNotReady, stepID, step.Status)
	}

	step.Status = StatusExecuting
	o.Logger.LogStep(plan.ID, step.ID, step.Capability, string(StatusExecuting))

	if denied, reason := o.denied(ctx, plan, step); denied {
		step.fail(fmt.Errorf("blocked by policy: %s", reason))
		o.Logger.LogStepResult(plan.ID, step.ID, string(step.Status), step.Error)
		return nil, nil
	}

	result, err := o.dispatch(ctx, plan, step)
	if err != nil {
		step.fail(err)
		o.Logger.LogStepResult(plan.ID, step.ID, string(step.Status), step.Error)
		return nil, nil
	}

	step.complete(result)
	plan.Context["output_"+step.ID] = result
	o.Logger.LogStepResult(plan.ID, step.ID, string(step.Status), step.Output.Preview(200))

	o.recompute(plan)
	return result, nil
}

// dispatch routes a step to its handler by capability name. An empty name
// means generic generation; a registered-but-unhandled capability resolves for
// readiness but lands on the placeholder result here.
func (o *Orchestrator) dispatch(ctx context.Context, plan *Plan, step *Step) (any, error) {
	switch step.Capability {
	case "", CapGenerate:
		return o.execGenerate(ctx, plan, step)
	case CapSearchTopics:
		return o.execSearchTopics(ctx, step)
	case CapGetFacts:
		return o.execGetFacts(ctx, step)
	case CapSaveFact:
		return o.execSaveFact(ctx, step)
	}

	if h, ok := o.handler(step.Capability); ok {
		return h(ctx, plan, step)
	}

	return fmt.Sprintf("Tool '%s' not implemented yet", step.Capability), nil
}

func (o *Orchestrator) denied(ctx context.Context, plan *Plan, step *Step) (bool, string) {
	if o.Policy == nil {
		return false, ""
	}
	args, _ := json.Marshal(step.Input)
	res, err := o.Policy.Evaluate(ctx, policy.Request{
		Capability: step.Capability,
		Arguments:  string(args),
		PlanID:     plan.ID,
	})
	if err != nil {
		log.Printf("policy evaluation error for step %s: %v", step.ID, err)
		return false, ""
	}
	return res.Effect == policy.EffectDeny, res.Reason
}

// ExecuteFullPlan drives the plan in waves until no step is ready. One wave
// completes fully before the next readiness pass; a step that entered
// executing always resolves to completed or failed, and a failed step never
// aborts its siblings.
func (o *Orchestrator) ExecuteFullPlan(ctx context.Context, planID string) (*Result, error) {
	plan, ok := o.Plan(planID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPlanNotFound, planID)
	}

	var results []StepResult
	wave := 0

	for {
		ready := o.NextSteps(planID)
		if len(ready) == 0 {
			break
		}

		wave++
		ids := make([]string, len(ready))
		for i, s := range ready {
			ids[i] = s.ID
		}
		o.Logger.LogWave(plan.ID, wave, ids)

		for _, step := range ready {
			if _, err := o.ExecuteStep(ctx, plan.ID, step.ID); err != nil {
				// Lookup errors only; the step state is untouched.
				return nil, err
			}
			results = append(results, StepResult{
				StepID:      step.ID,
				Description: step.Description,
				Output:      step.Output,
				Error:       step.Error,
			})
		}
	}

	var stuck []StuckStep
	for _, s := range plan.Steps {
		if !s.Status.Terminal() {
			stuck = append(stuck, StuckStep{
				StepID:     s.ID,
				Status:     s.Status,
				Capability: s.Capability,
			})
		}
	}

	if err := o.persist(ctx, plan); err != nil {
		log.Printf("failed to persist plan %s after execution: %v", plan.ID, err)
	}

	return &Result{
		PlanID:  plan.ID,
		Goal:    plan.Goal,
		Results: results,
		Stuck:   stuck,
		Summary: plan.Render(),
	}, nil
}

// execGenerate handles generic generation steps. The prompt is the step's
// explicit prompt input or its description, augmented with the outputs of
// completed dependencies.
func (o *Orchestrator) execGenerate(ctx context.Context, plan *Plan, step *Step) (any, error) {
	prompt := step.Description
	if p, ok := step.Input["prompt"].(string); ok && p != "" {
		prompt = p
	}

	deps := dependencyOutputs(plan, step)
	if len(deps) > 0 {
		data, err := json.MarshalIndent(deps, "", "  ")
		if err == nil {
			prompt += fmt.Sprintf("\n\nContext from previous steps:\n%s", data)
		}
	}

	reply, err := llms.GenerateFromSinglePrompt(ctx, o.Model, prompt)
	if err != nil {
		return nil, err
	}
	o.Logger.LogLLM(plan.ID, step.ID, prompt, reply)
	return reply, nil
}

func (o *Orchestrator) execSearchTopics(ctx context.Context, step *Step) (any, error) {
	if o.Memory == nil {
		return nil, fmt.Errorf("memory service not configured")
	}
	if o.Embedder == nil {
		return nil, fmt.Errorf("embedder not configured")
	}

	query, _ := step.Input["query"].(string)
	limit := intInput(step.Input, "limit", 5)

	embedding, err := o.Embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	matches, err := o.Memory.SearchTopics(ctx, embedding)
	if err != nil {
		return nil, fmt.Errorf("searching topics: %w", err)
	}
	if len(matches) > limit {
		matches = matches[:limit]
	}

	topics := make([]map[string]any, 0, len(matches))
	for _, m := range matches {
		facts, err := o.Memory.GetFacts(ctx, m.Name)
		if err != nil {
			return nil, fmt.Errorf("fetching facts for %s: %w", m.Name, err)
		}
		contents := make([]string, len(facts))
		for i, f := range facts {
			contents[i] = f.Content
		}
		topics = append(topics, map[string]any{
			"name":        m.Name,
			"similarity":  m.Similarity,
			"description": m.Description,
			"facts":       contents,
		})
	}

	return map[string]any{"topics": topics}, nil
}

func (o *Orchestrator) execGetFacts(ctx context.Context, step *Step) (any, error) {
	if o.Memory == nil {
		return nil, fmt.Errorf("memory service not configured")
	}

	topic, _ := step.Input["topic_name"].(string)
	facts, err := o.Memory.GetFacts(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("fetching facts: %w", err)
	}

	return map[string]any{"topic": topic, "facts": facts}, nil
}

func (o *Orchestrator) execSaveFact(ctx context.Context, step *Step) (any, error) {
	if o.Memory == nil {
		return nil, fmt.Errorf("memory service not configured")
	}

	topic, _ := step.Input["topic_name"].(string)
	factType, _ := step.Input["fact_type"].(string)
	if factType == "" {
		factType = "WHAT"
	}
	fact, _ := step.Input["fact"].(string)

	if err := o.Memory.SaveFact(ctx, topic, factType, fact); err != nil {
		return map[string]any{"success": false, "error": err.Error()}, nil
	}
	return map[string]any{"success": true}, nil
}

// dependencyOutputs collects the outputs of a step's completed dependencies.
func dependencyOutputs(plan *Plan, step *Step) map[string]any {
	deps := make(map[string]any)
	for _, depID := range step.DependsOn {
		dep := plan.Step(depID)
		if dep == nil || dep.Output == nil {
			continue
		}
		if dep.Output.Text != "" {
			deps[depID] = dep.Output.Text
		} else {
			deps[depID] = dep.Output.Value
		}
	}
	return deps
}

// intInput reads an integer input parameter, tolerating the float64 that
// JSON decoding produces.
func intInput(input map[string]any, key string, def int) int {
	switch v := input[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return def
	}
}
