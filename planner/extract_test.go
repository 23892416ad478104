package planner

import (
	"errors"
	"testing"
)

func TestExtractJSONDirect(t *testing.T) {
	in := `{"complexity": "simple", "steps": []}`
	out, err := extractJSON(in)
	if err != nil {
		t.Fatalf("extractJSON failed: %v", err)
	}
	if out != in {
		t.Errorf("Expected input returned unchanged, got %q", out)
	}
}

func TestExtractJSONFenced(t *testing.T) {
	inner := `{"complexity": "atomic", "steps": [{"id": "step_1"}]}`
	in := "Here is the plan:\n```json\n" + inner + "\n```\nLet me know!"
	out, err := extractJSON(in)
	if err != nil {
		t.Fatalf("extractJSON failed: %v", err)
	}
	if out != inner {
		t.Errorf("Expected fence interior %q, got %q", inner, out)
	}
}

func TestExtractJSONBalancedSpan(t *testing.T) {
	in := `Sure, here you go: {"complexity": "simple"} hope that helps`
	out, err := extractJSON(in)
	if err != nil {
		t.Fatalf("extractJSON failed: %v", err)
	}
	if out != `{"complexity": "simple"}` {
		t.Errorf("Unexpected span: %q", out)
	}
}

func TestExtractJSONSkipsInvalidSpan(t *testing.T) {
	in := `{not json} but later {"ok": true} appears`
	out, err := extractJSON(in)
	if err != nil {
		t.Fatalf("extractJSON failed: %v", err)
	}
	if out != `{"ok": true}` {
		t.Errorf("Expected second span, got %q", out)
	}
}

func TestExtractJSONFirstValidSpanWins(t *testing.T) {
	in := `{"a": 1} and also {"b": 2}`
	out, err := extractJSON(in)
	if err != nil {
		t.Fatalf("extractJSON failed: %v", err)
	}
	if out != `{"a": 1}` {
		t.Errorf("Expected first span, got %q", out)
	}
}

func TestExtractJSONNestedBraces(t *testing.T) {
	in := `Plan follows. {"steps": [{"id": "step_1", "tool_input": {"q": "x"}}]} Done.`
	out, err := extractJSON(in)
	if err != nil {
		t.Fatalf("extractJSON failed: %v", err)
	}
	if out != `{"steps": [{"id": "step_1", "tool_input": {"q": "x"}}]}` {
		t.Errorf("Unexpected span: %q", out)
	}
}

func TestExtractJSONNoBraces(t *testing.T) {
	in := "Sure! Here's your plan for you."
	_, err := extractJSON(in)
	if err == nil {
		t.Fatal("Expected an extraction error")
	}

	var exErr *ExtractionError
	if !errors.As(err, &exErr) {
		t.Fatalf("Expected *ExtractionError, got %T", err)
	}
	if exErr.Raw != in {
		t.Errorf("Expected raw reply preserved, got %q", exErr.Raw)
	}
}
