package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rahul/yojana/planner"
)

func newTestStore(t *testing.T) *PlanStore {
	t.Helper()
	s, err := NewPlanStore(filepath.Join(t.TempDir(), "plans.db"))
	if err != nil {
		t.Fatalf("NewPlanStore failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndGetPlan(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := planner.PlanRecord{
		ID:         "plan_ab12cd34",
		Goal:       "summarize known topics",
		Complexity: "simple",
		Steps:      `[{"id":"step_1","status":"completed"}]`,
		CreatedAt:  time.Now().UTC(),
		Context:    `{"reasoning":"search then summarize"}`,
	}

	if err := s.SavePlan(ctx, rec); err != nil {
		t.Fatalf("SavePlan failed: %v", err)
	}

	got, err := s.GetPlan(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetPlan failed: %v", err)
	}
	if got.Goal != rec.Goal || got.Complexity != rec.Complexity {
		t.Errorf("Record mismatch: %+v", got)
	}
	if got.Steps != rec.Steps || got.Context != rec.Context {
		t.Errorf("Serialized payloads mismatch: %+v", got)
	}
}

func TestSavePlanReplaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := planner.PlanRecord{
		ID:         "plan_ab12cd34",
		Goal:       "goal",
		Complexity: "atomic",
		Steps:      `[{"id":"step_1","status":"pending"}]`,
		CreatedAt:  time.Now().UTC(),
		Context:    `{}`,
	}
	if err := s.SavePlan(ctx, rec); err != nil {
		t.Fatalf("SavePlan failed: %v", err)
	}

	rec.Steps = `[{"id":"step_1","status":"completed"}]`
	if err := s.SavePlan(ctx, rec); err != nil {
		t.Fatalf("Re-saving the plan failed: %v", err)
	}

	got, err := s.GetPlan(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetPlan failed: %v", err)
	}
	if got.Steps != rec.Steps {
		t.Errorf("Updated steps not persisted: %s", got.Steps)
	}

	recs, err := s.ListPlans(ctx, 10)
	if err != nil {
		t.Fatalf("ListPlans failed: %v", err)
	}
	if len(recs) != 1 {
		t.Errorf("Replace should not duplicate rows, got %d", len(recs))
	}
}
