package planner

import (
	"encoding/json"
	"regexp"
	"strings"
)

var bracePattern = regexp.MustCompile(`(?s)\{.*\}`)

// extractJSON recovers a JSON document from a model reply that may wrap it in
// prose or markdown. Strategies are tried in order, first success wins:
//
//  1. the whole reply parses as JSON
//  2. the interior of markdown code fences parses
//  3. the first balanced top-level {...} span parses
//  4. any regex-matched brace span parses
//
// Returns an *ExtractionError carrying the raw reply when every strategy
// fails.
func extractJSON(text string) (string, error) {
	trimmed := strings.TrimSpace(text)

	// Strategy 1: direct parse.
	if json.Valid([]byte(trimmed)) {
		return trimmed, nil
	}

	// Strategy 2: strip markdown code fences.
	if strings.Contains(trimmed, "```") {
		if inner := fenceInterior(trimmed); inner != "" && json.Valid([]byte(inner)) {
			return inner, nil
		}
	}

	// Strategy 3: scan for balanced top-level brace spans.
	if span := balancedSpan(trimmed); span != "" {
		return span, nil
	}

	// Strategy 4: any brace-delimited substring the regex finds.
	for _, match := range bracePattern.FindAllString(trimmed, -1) {
		if json.Valid([]byte(match)) {
			return match, nil
		}
	}

	return "", &ExtractionError{Raw: text}
}

// fenceInterior joins the lines between ``` markers.
func fenceInterior(text string) string {
	var inner []string
	inCode := false
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inCode = !inCode
			continue
		}
		if inCode {
			inner = append(inner, line)
		}
	}
	return strings.TrimSpace(strings.Join(inner, "\n"))
}

// balancedSpan tracks {/} nesting depth left to right and returns the first
// balanced top-level span that parses as JSON. Braces inside string literals
// are not special-cased; an invalid candidate just fails the parse and the
// scan moves on.
func balancedSpan(text string) string {
	depth := 0
	start := -1
	for i, ch := range text {
		switch ch {
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 && start >= 0 {
				candidate := text[start : i+1]
				if json.Valid([]byte(candidate)) {
					return candidate
				}
			}
		}
	}
	return ""
}
