package policy

import (
	"context"
	"fmt"
	"regexp"
)

// Effect defines the result of a policy evaluation.
type Effect string

const (
	EffectAllow Effect = "allow"
	EffectDeny  Effect = "deny"
)

// Request contains the context of a step dispatch to be evaluated.
type Request struct {
	Capability string
	Arguments  string
	PlanID     string
}

// Result contains the outcome of a policy evaluation.
type Result struct {
	Effect Effect
	Reason string
}

// Engine evaluates step dispatches against a set of rules.
type Engine interface {
	Evaluate(ctx context.Context, req Request) (Result, error)
}

// DefaultEngine is a basic deny-list implementation of Engine.
type DefaultEngine struct {
	DeniedCapabilities map[string]bool
	DeniedRegex        []*regexp.Regexp
}

func NewDefaultEngine() *DefaultEngine {
	return &DefaultEngine{
		DeniedCapabilities: make(map[string]bool),
		DeniedRegex:        make([]*regexp.Regexp, 0),
	}
}

func (e *DefaultEngine) DenyCapability(name string) {
	e.DeniedCapabilities[name] = true
}

func (e *DefaultEngine) DenyArguments(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	e.DeniedRegex = append(e.DeniedRegex, re)
	return nil
}

func (e *DefaultEngine) Evaluate(ctx context.Context, req Request) (Result, error) {
	if e.DeniedCapabilities[req.Capability] {
		return Result{
			Effect: EffectDeny,
			Reason: fmt.Sprintf("Capability '%s' is restricted by system policy", req.Capability),
		}, nil
	}

	for _, re := range e.DeniedRegex {
		if re.MatchString(req.Arguments) {
			return Result{
				Effect: EffectDeny,
				Reason: fmt.Sprintf("Arguments match restricted pattern: %s", re.String()),
			}, nil
		}
	}

	return Result{
		Effect: EffectAllow,
		Reason: "Approved by default policy",
	}, nil
}
