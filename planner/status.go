package planner

// recomputeReadiness re-derives pending-side step statuses from the current
// snapshot: completed dependencies and capability resolution. It is pure over
// the snapshot and idempotent; running it twice with no intervening change
// yields the same assignment. Terminal and executing steps are never touched.
//
// resolved reports whether a capability name is currently registered.
func recomputeReadiness(plan *Plan, resolved func(string) bool) {
	completed := make(map[string]bool)
	for _, s := range plan.Steps {
		if s.Status == StatusCompleted {
			completed[s.ID] = true
		}
	}

	for _, step := range plan.Steps {
		if step.Status != StatusPending && step.Status != StatusNeedsTool {
			continue
		}

		// NEEDS_TOOL is re-derived every pass, not stored history: once the
		// capability is registered the flag simply disappears.
		if missingCapability(step, resolved) {
			step.Status = StatusNeedsTool
			continue
		}

		if depsCompleted(step, completed) {
			step.Status = StatusReady
		} else {
			step.Status = StatusPending
		}
	}
}

// missingCapability reports whether the step references a capability that is
// unregistered and listed among its deferred requirements.
func missingCapability(step *Step, resolved func(string) bool) bool {
	if step.Capability == "" || resolved(step.Capability) {
		return false
	}
	for _, req := range step.Deferred {
		if req.Type == "tool" && req.Name == step.Capability {
			return true
		}
	}
	return false
}

func depsCompleted(step *Step, completed map[string]bool) bool {
	for _, dep := range step.DependsOn {
		if !completed[dep] {
			return false
		}
	}
	return true
}
