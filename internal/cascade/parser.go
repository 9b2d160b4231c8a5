package cascade

import (
	"encoding/json"
	"strings"
)

// ValidationResult is the structured decision extracted from a tier's
// free-text output.
type ValidationResult struct {
	Validated            bool
	ConfidenceAdjustment float64
	Rationale            string
	RequiresManualReview bool

	// ManualReviewSet distinguishes an explicit requires_manual_review value
	// from the absent-field default. The last tier defaults review to true
	// only when the model did not set it.
	ManualReviewSet bool
}

// ParseValidation extracts a validation decision from raw model output. The
// scan is permissive: the first {...} span that parses as JSON wins, markdown
// fences and surrounding prose are ignored.
//
// Unparseable output does not fail the cascade. The signal is accepted with a
// zero adjustment instead, so formatting noise never loses a real signal.
func ParseValidation(raw string) ValidationResult {
	fields, ok := firstJSONObject(raw)
	if !ok {
		return ValidationResult{
			Validated: true,
			Rationale: "parse error - accepting",
		}
	}

	// Absent fields keep the accept-biased defaults.
	result := ValidationResult{Validated: true}

	if v, present := fields["validated"]; present {
		if b, isBool := v.(bool); isBool {
			result.Validated = b
		}
	}
	if v, present := fields["confidence_adjustment"]; present {
		result.ConfidenceAdjustment, _ = toFloat64(v)
	}
	if v, present := fields["rationale"]; present {
		result.Rationale, _ = v.(string)
	}
	if v, present := fields["requires_manual_review"]; present {
		if b, isBool := v.(bool); isBool {
			result.RequiresManualReview = b
			result.ManualReviewSet = true
		}
	}

	return result
}

// firstJSONObject scans raw for the first well-formed JSON object. No nested
// object support is attempted beyond what the brace counter gives for free:
// the span from the first '{' to each candidate closing brace is tried in
// order until one parses.
func firstJSONObject(raw string) (map[string]any, bool) {
	start := strings.Index(raw, "{")
	if start < 0 {
		return nil, false
	}

	depth := 0
	for i := start; i < len(raw); i++ {
		switch raw[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth <= 0 {
				var fields map[string]any
				if err := json.Unmarshal([]byte(raw[start:i+1]), &fields); err == nil {
					return fields, true
				}
				// Malformed span; keep scanning from the next '{'.
				next := strings.Index(raw[i+1:], "{")
				if next < 0 {
					return nil, false
				}
				start = i + 1 + next
				i = start - 1
				depth = 0
			}
		}
	}
	return nil, false
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
