package planner

import (
	"errors"
	"fmt"
)

var (
	// ErrPlanNotFound is returned when a plan id is not in the orchestrator's
	// plan table.
	ErrPlanNotFound = errors.New("plan not found")
	// ErrStepNotFound is returned when a step id does not exist in the plan.
	ErrStepNotFound = errors.New("step not found")
	// ErrStepNotReady is returned when a step is executed outside the ready
	// state.
	ErrStepNotReady = errors.New("step is not ready")
)

// GenerationError indicates the generation backend was unreachable or returned
// an unusable reply at the transport level.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// ExtractionError indicates no parseable JSON was found in the model reply.
// Raw preserves the full reply for diagnosis.
type ExtractionError struct {
	Raw string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("no valid JSON found in model reply (%d bytes)", len(e.Raw))
}

// SchemaError indicates the extracted JSON does not describe a valid plan.
type SchemaError struct {
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("invalid plan payload: %s", e.Reason)
}
