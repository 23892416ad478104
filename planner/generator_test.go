package planner

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestCreatePlanSuccess(t *testing.T) {
	model := &fakeModel{replies: []string{twoStepReply}}
	o, st := newTestOrchestrator(model)

	plan, err := o.CreatePlan(context.Background(), "summarize known topics", nil)
	if err != nil {
		t.Fatalf("CreatePlan failed: %v", err)
	}

	if plan.Complexity != ComplexitySimple {
		t.Errorf("Expected simple complexity, got %s", plan.Complexity)
	}
	if len(plan.Steps) != 2 {
		t.Fatalf("Expected 2 steps, got %d", len(plan.Steps))
	}
	if plan.Steps[0].Status != StatusReady {
		t.Errorf("step_1 should be ready after the initial pass, got %s", plan.Steps[0].Status)
	}
	if plan.Steps[1].Status != StatusPending {
		t.Errorf("step_2 should be pending, got %s", plan.Steps[1].Status)
	}
	if plan.Context["reasoning"] != "search then summarize" {
		t.Errorf("Reasoning not captured: %v", plan.Context["reasoning"])
	}

	if _, ok := o.Plan(plan.ID); !ok {
		t.Error("Plan not registered in the plan table")
	}
	if len(st.records) != 1 {
		t.Fatalf("Expected 1 persisted record, got %d", len(st.records))
	}
	if st.records[0].ID != plan.ID || st.records[0].Goal != plan.Goal {
		t.Errorf("Persisted record mismatch: %+v", st.records[0])
	}

	// The planning prompt carries the capability manifest.
	if !strings.Contains(model.prompts[0], "["+CapSearchTopics+"]") {
		t.Error("Planning prompt is missing the capability manifest")
	}
}

func TestCreatePlanExtractionError(t *testing.T) {
	model := &fakeModel{replies: []string{"Sure! Here's your plan for you."}}
	o, st := newTestOrchestrator(model)

	_, err := o.CreatePlan(context.Background(), "do something", nil)
	var exErr *ExtractionError
	if !errors.As(err, &exErr) {
		t.Fatalf("Expected *ExtractionError, got %v", err)
	}
	if exErr.Raw != "Sure! Here's your plan for you." {
		t.Errorf("Raw reply not preserved: %q", exErr.Raw)
	}

	if len(o.plans) != 0 {
		t.Error("A failed plan must not be registered")
	}
	if len(st.records) != 0 {
		t.Error("A failed plan must not be persisted")
	}
}

func TestCreatePlanGenerationError(t *testing.T) {
	model := &fakeModel{err: errTest}
	o, _ := newTestOrchestrator(model)

	_, err := o.CreatePlan(context.Background(), "do something", nil)
	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("Expected *GenerationError, got %v", err)
	}
	if !errors.Is(err, errTest) {
		t.Error("GenerationError should wrap the backend error")
	}
}

func TestCreatePlanSchemaErrors(t *testing.T) {
	cases := map[string]string{
		"bad complexity": `{"complexity": "huge", "steps": [{"id": "step_1", "description": "x", "tool": null}]}`,
		"no steps":       `{"complexity": "simple", "steps": []}`,
		"not an object":  `"just a string"`,
		"unknown dep":    `{"complexity": "simple", "steps": [{"id": "step_1", "description": "x", "tool": null, "depends_on": ["step_9"]}]}`,
	}

	for name, reply := range cases {
		model := &fakeModel{replies: []string{reply}}
		o, _ := newTestOrchestrator(model)

		_, err := o.CreatePlan(context.Background(), "goal", nil)
		var schemaErr *SchemaError
		if !errors.As(err, &schemaErr) {
			t.Errorf("%s: expected *SchemaError, got %v", name, err)
		}
		if len(o.plans) != 0 {
			t.Errorf("%s: failed plan must not be registered", name)
		}
	}
}

func TestCreatePlanNormalizesSteps(t *testing.T) {
	reply := `{"complexity": "atomic", "steps": [{"description": "lone step"}]}`
	model := &fakeModel{replies: []string{reply}}
	o, _ := newTestOrchestrator(model)

	plan, err := o.CreatePlan(context.Background(), "goal", nil)
	if err != nil {
		t.Fatalf("CreatePlan failed: %v", err)
	}

	step := plan.Steps[0]
	if step.ID != "step_1" {
		t.Errorf("Missing id should be synthesized, got %q", step.ID)
	}
	if step.DependsOn == nil || len(step.DependsOn) != 0 {
		t.Errorf("Missing depends_on should default to empty, got %v", step.DependsOn)
	}
	if step.Deferred == nil || len(step.Deferred) != 0 {
		t.Errorf("Missing deferred_requirements should default to empty, got %v", step.Deferred)
	}
	if step.Capability != "" {
		t.Errorf("Absent tool means generic generation, got %q", step.Capability)
	}
}

func TestCreatePlanFlagsUnregisteredCapability(t *testing.T) {
	reply := `{"complexity": "atomic", "steps": [
		{"id": "step_1", "description": "draw it", "tool": "image_gen", "depends_on": []}
	]}`
	model := &fakeModel{replies: []string{reply}}
	o, _ := newTestOrchestrator(model)

	plan, err := o.CreatePlan(context.Background(), "draw a picture", nil)
	if err != nil {
		t.Fatalf("CreatePlan failed: %v", err)
	}

	step := plan.Steps[0]
	if step.Status != StatusNeedsTool {
		t.Errorf("Expected needs_tool for unregistered capability, got %s", step.Status)
	}
	found := false
	for _, req := range step.Deferred {
		if req.Type == "tool" && req.Name == "image_gen" {
			found = true
		}
	}
	if !found {
		t.Error("Deferred requirement for the missing capability was not recorded")
	}
}

func TestCreatePlanPersistFailure(t *testing.T) {
	model := &fakeModel{replies: []string{twoStepReply}}
	o, st := newTestOrchestrator(model)
	st.err = errTest

	_, err := o.CreatePlan(context.Background(), "goal", nil)
	if err == nil {
		t.Fatal("Expected an error when persistence fails")
	}
	if len(o.plans) != 0 {
		t.Error("Plan must not be registered when persistence fails")
	}
}

func TestCreatePlanContextInPrompt(t *testing.T) {
	model := &fakeModel{replies: []string{twoStepReply}}
	o, _ := newTestOrchestrator(model)

	_, err := o.CreatePlan(context.Background(), "goal", map[string]any{"mood": "curious"})
	if err != nil {
		t.Fatalf("CreatePlan failed: %v", err)
	}
	if !strings.Contains(model.prompts[0], "curious") {
		t.Error("Extra context was not serialized into the planning prompt")
	}
}
