// Package tools provides capability implementations a host can register with
// the planner's orchestrator.
package tools

import (
	"context"

	"github.com/rahul/yojana/planner"
)

// Tool pairs a capability contract with its executable implementation.
type Tool interface {
	Capability() planner.Capability
	Execute(ctx context.Context, input map[string]any) (any, error)
}

// Install registers each tool's capability and handler with the orchestrator.
func Install(o *planner.Orchestrator, ts ...Tool) {
	for _, t := range ts {
		tool := t
		o.RegisterTool(tool.Capability(), func(ctx context.Context, plan *planner.Plan, step *planner.Step) (any, error) {
			return tool.Execute(ctx, step.Input)
		})
	}
}

func stringInput(input map[string]any, key string) string {
	s, _ := input[key].(string)
	return s
}
