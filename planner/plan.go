package planner

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// StepStatus is the lifecycle state of a single plan step.
type StepStatus string

const (
	StatusPending   StepStatus = "pending"
	StatusReady     StepStatus = "ready"
	StatusExecuting StepStatus = "executing"
	StatusCompleted StepStatus = "completed"
	StatusFailed    StepStatus = "failed"
	StatusNeedsTool StepStatus = "needs_tool" // capability not registered yet
)

// Terminal reports whether no further transition is valid from s.
func (s StepStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Complexity classifies how much work a goal needs.
type Complexity string

const (
	ComplexityAtomic   Complexity = "atomic"   // single action
	ComplexitySimple   Complexity = "simple"   // 2-3 steps
	ComplexityModerate Complexity = "moderate" // 4-7 steps
	ComplexityComplex  Complexity = "complex"  // 8+ steps
)

// ParseComplexity maps a raw string to a Complexity enumerator.
func ParseComplexity(s string) (Complexity, error) {
	switch c := Complexity(strings.ToLower(strings.TrimSpace(s))); c {
	case ComplexityAtomic, ComplexitySimple, ComplexityModerate, ComplexityComplex:
		return c, nil
	default:
		return "", fmt.Errorf("unknown complexity %q", s)
	}
}

// Requirement is a declared but currently unsatisfied dependency of a step,
// typically a capability that is not registered yet.
type Requirement struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// StepOutput carries the result of a completed step, tagged with the step that
// produced it. Either Value (structured) or Text (opaque) is set, not both.
type StepOutput struct {
	StepID string `json:"step_id"`
	Value  any    `json:"value,omitempty"`
	Text   string `json:"text,omitempty"`
}

func newStepOutput(stepID string, result any) *StepOutput {
	if s, ok := result.(string); ok {
		return &StepOutput{StepID: stepID, Text: s}
	}
	return &StepOutput{StepID: stepID, Value: result}
}

// Preview returns a truncated rendering of the output for summaries and
// persistence.
func (o *StepOutput) Preview(limit int) string {
	if o == nil {
		return ""
	}
	s := o.Text
	if s == "" && o.Value != nil {
		data, err := json.Marshal(o.Value)
		if err != nil {
			s = fmt.Sprintf("%v", o.Value)
		} else {
			s = string(data)
		}
	}
	if limit > 0 && len(s) > limit {
		return s[:limit]
	}
	return s
}

// Step is a single sub-task in an execution plan.
type Step struct {
	ID             string         `json:"id"`
	Description    string         `json:"description"`
	Capability     string         `json:"tool,omitempty"` // empty = generic generation
	Input          map[string]any `json:"tool_input,omitempty"`
	ExpectedOutput string         `json:"expected_output,omitempty"`
	Status         StepStatus     `json:"status"`
	DependsOn      []string       `json:"depends_on"`
	Output         *StepOutput    `json:"output,omitempty"`
	Error          string         `json:"error,omitempty"`
	Deferred       []Requirement  `json:"deferred_requirements,omitempty"`
}

// complete moves the step to its terminal success state. The output is written
// exactly once; completing a terminal step is a no-op.
func (s *Step) complete(result any) {
	if s.Status.Terminal() {
		return
	}
	s.Status = StatusCompleted
	s.Output = newStepOutput(s.ID, result)
}

// fail moves the step to its terminal failure state, recording the error text.
func (s *Step) fail(err error) {
	if s.Status.Terminal() {
		return
	}
	s.Status = StatusFailed
	s.Error = err.Error()
}

// Plan is a complete execution plan for one goal. Steps are created once by
// the generator and mutated only by the execution engine.
type Plan struct {
	ID         string         `json:"id"`
	Goal       string         `json:"goal"`
	Complexity Complexity     `json:"complexity"`
	Steps      []*Step        `json:"steps"`
	CreatedAt  time.Time      `json:"created_at"`
	Context    map[string]any `json:"context"`
}

// Step returns the step with the given id, or nil.
func (p *Plan) Step(id string) *Step {
	for _, s := range p.Steps {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// Done reports whether every step has reached a terminal state.
func (p *Plan) Done() bool {
	for _, s := range p.Steps {
		if !s.Status.Terminal() {
			return false
		}
	}
	return true
}

var statusIcons = map[StepStatus]string{
	StatusPending:   "○",
	StatusReady:     "◐",
	StatusExecuting: "◑",
	StatusCompleted: "●",
	StatusFailed:    "✗",
	StatusNeedsTool: "?",
}

// Render returns a human-readable dump of the plan and its step states.
func (p *Plan) Render() string {
	lines := []string{
		fmt.Sprintf("Plan: %s", p.Goal),
		fmt.Sprintf("Complexity: %s", p.Complexity),
		fmt.Sprintf("Created: %s", p.CreatedAt.Format("2006-01-02 15:04")),
		fmt.Sprintf("\nSteps (%d):\n", len(p.Steps)),
	}

	for i, step := range p.Steps {
		icon, ok := statusIcons[step.Status]
		if !ok {
			icon = "○"
		}
		tool := "[LLM]"
		if step.Capability != "" {
			tool = fmt.Sprintf("[%s]", step.Capability)
		}

		lines = append(lines, fmt.Sprintf("%s %d. %s", icon, i+1, step.Description))
		lines = append(lines, fmt.Sprintf("   Tool: %s", tool))

		if len(step.DependsOn) > 0 {
			lines = append(lines, fmt.Sprintf("   Depends: %s", strings.Join(step.DependsOn, ", ")))
		}
		if len(step.Deferred) > 0 {
			missing := make([]string, len(step.Deferred))
			for j, r := range step.Deferred {
				missing[j] = r.Name
			}
			lines = append(lines, fmt.Sprintf("   Missing: %s", strings.Join(missing, ", ")))
		}
		if step.Output != nil {
			lines = append(lines, fmt.Sprintf("   Output: %s...", step.Output.Preview(80)))
		}
		if step.Error != "" {
			lines = append(lines, fmt.Sprintf("   Error: %s", step.Error))
		}
		lines = append(lines, "")
	}

	return strings.Join(lines, "\n")
}

// stepSnapshot is the persisted shape of a step. Output is truncated so a
// chatty generation step cannot bloat the plans table.
type stepSnapshot struct {
	ID          string         `json:"id"`
	Description string         `json:"description"`
	Tool        string         `json:"tool,omitempty"`
	ToolInput   map[string]any `json:"tool_input,omitempty"`
	Status      StepStatus     `json:"status"`
	DependsOn   []string       `json:"depends_on"`
	Output      string         `json:"output_data,omitempty"`
	Error       string         `json:"error,omitempty"`
	Deferred    []Requirement  `json:"deferred,omitempty"`
}

// SerializeSteps returns the steps as a JSON document for persistence.
func (p *Plan) SerializeSteps() (string, error) {
	snaps := make([]stepSnapshot, len(p.Steps))
	for i, s := range p.Steps {
		snaps[i] = stepSnapshot{
			ID:          s.ID,
			Description: s.Description,
			Tool:        s.Capability,
			ToolInput:   s.Input,
			Status:      s.Status,
			DependsOn:   s.DependsOn,
			Output:      s.Output.Preview(200),
			Error:       s.Error,
			Deferred:    s.Deferred,
		}
	}
	data, err := json.Marshal(snaps)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// SerializeContext returns the plan context as a JSON document.
func (p *Plan) SerializeContext() (string, error) {
	data, err := json.Marshal(p.Context)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
