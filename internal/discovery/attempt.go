// Package discovery decides, per candidate organization, whether an RFP
// opportunity exists. A high-precision primary source is consulted first;
// only when it finds nothing does the pipeline fall back to tiered web
// search, and fallback hits must survive cascade validation before they are
// accepted.
package discovery

import (
	"encoding/json"
	"strings"

	"github.com/sells-group/rfp-radar/pkg/brightdata"
)

// AttemptStatus classifies one source lookup.
type AttemptStatus string

const (
	StatusFound AttemptStatus = "FOUND"
	StatusNone  AttemptStatus = "NONE"
	StatusError AttemptStatus = "ERROR"
)

// Attempt records the outcome of querying one source tier. SourceTier is
// "primary" or the name of the fallback query tier that produced it.
type Attempt struct {
	SourceTier string              `json:"source_tier"`
	Status     AttemptStatus       `json:"status"`
	Results    []brightdata.Result `json:"results,omitempty"`
	Err        string              `json:"error,omitempty"`
}

// PrimaryStatus is the self-reported verdict of the primary discovery source.
type PrimaryStatus string

const (
	PrimaryFoundDirect   PrimaryStatus = "FOUND_DIRECT"
	PrimaryFoundIndirect PrimaryStatus = "FOUND_INDIRECT"
	PrimaryNone          PrimaryStatus = "NONE"
)

// parsePrimary extracts the status verdict from the primary source's reply.
// It prefers an embedded JSON object with a "status" field and falls back to
// scanning for the status tokens in plain text. Anything unrecognizable maps
// to NONE so the candidate still gets a fallback pass instead of being lost
// to formatting noise.
func parsePrimary(raw string) (PrimaryStatus, string) {
	var payload struct {
		Status  string `json:"status"`
		Details string `json:"details"`
	}
	if start, end := strings.Index(raw, "{"), strings.LastIndex(raw, "}"); start >= 0 && end > start {
		if err := json.Unmarshal([]byte(raw[start:end+1]), &payload); err == nil {
			if st, ok := primaryStatus(payload.Status); ok {
				return st, payload.Details
			}
		}
	}

	upper := strings.ToUpper(raw)
	switch {
	case strings.Contains(upper, string(PrimaryFoundDirect)):
		return PrimaryFoundDirect, ""
	case strings.Contains(upper, string(PrimaryFoundIndirect)):
		return PrimaryFoundIndirect, ""
	}
	return PrimaryNone, ""
}

func primaryStatus(s string) (PrimaryStatus, bool) {
	switch PrimaryStatus(strings.ToUpper(strings.TrimSpace(s))) {
	case PrimaryFoundDirect:
		return PrimaryFoundDirect, true
	case PrimaryFoundIndirect:
		return PrimaryFoundIndirect, true
	case PrimaryNone:
		return PrimaryNone, true
	}
	return "", false
}
