package cascade

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseValidation_WellFormed(t *testing.T) {
	raw := `{"validated": true, "confidence_adjustment": 0.15, "rationale": "three independent postings confirm", "requires_manual_review": false}`
	res := ParseValidation(raw)

	assert.True(t, res.Validated)
	assert.InDelta(t, 0.15, res.ConfidenceAdjustment, 1e-9)
	assert.Equal(t, "three independent postings confirm", res.Rationale)
	assert.False(t, res.RequiresManualReview)
	assert.True(t, res.ManualReviewSet)
}

func TestParseValidation_Rejection(t *testing.T) {
	res := ParseValidation(`{"validated": false, "confidence_adjustment": -0.3, "rationale": "posting expired in 2019"}`)
	assert.False(t, res.Validated)
	assert.InDelta(t, -0.3, res.ConfidenceAdjustment, 1e-9)
	assert.False(t, res.ManualReviewSet)
}

func TestParseValidation_EmbeddedInProse(t *testing.T) {
	raw := "Sure, here is my assessment:\n```json\n{\"validated\": true, \"rationale\": \"looks legitimate\"}\n```\nLet me know if you need more."
	res := ParseValidation(raw)
	assert.True(t, res.Validated)
	assert.Equal(t, "looks legitimate", res.Rationale)
}

func TestParseValidation_AbsentFieldsDefault(t *testing.T) {
	res := ParseValidation(`{"rationale": "brief"}`)
	assert.True(t, res.Validated, "absent validated defaults to true")
	assert.Zero(t, res.ConfidenceAdjustment)
	assert.False(t, res.RequiresManualReview)
	assert.False(t, res.ManualReviewSet)
}

// Fail-open policy: unparseable output accepts the signal rather than losing
// it to formatting noise.
func TestParseValidation_FailOpen(t *testing.T) {
	for _, raw := range []string{
		"not json at all",
		"",
		"{broken json",
		"{]",
	} {
		res := ParseValidation(raw)
		assert.True(t, res.Validated, "input %q", raw)
		assert.Zero(t, res.ConfidenceAdjustment, "input %q", raw)
		assert.Equal(t, "parse error - accepting", res.Rationale, "input %q", raw)
	}
}

func TestParseValidation_SkipsMalformedSpan(t *testing.T) {
	// The first brace span does not parse; the scan continues to the next.
	raw := `{oops} then {"validated": false, "rationale": "second object wins"}`
	res := ParseValidation(raw)
	assert.False(t, res.Validated)
	assert.Equal(t, "second object wins", res.Rationale)
}

func TestParseValidation_NumericCoercion(t *testing.T) {
	res := ParseValidation(`{"confidence_adjustment": 1}`)
	assert.InDelta(t, 1.0, res.ConfidenceAdjustment, 1e-9)
}

func TestParseValidation_WrongTypesIgnored(t *testing.T) {
	res := ParseValidation(`{"validated": "yes", "rationale": 42}`)
	assert.True(t, res.Validated, "non-bool validated keeps default")
	assert.Equal(t, "", res.Rationale)
}
