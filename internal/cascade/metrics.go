package cascade

import "sync"

// TierMetrics accumulates per-tier attempt counts and spend.
type TierMetrics struct {
	Attempts    int64   `json:"attempts"`
	Resolutions int64   `json:"resolutions"`
	Tokens      int64   `json:"tokens"`
	CostUSD     float64 `json:"cost_usd"`
}

// Metrics is an additive accumulator shared across concurrent cascade runs.
// Construct one per runner; there is no process-wide instance, so tests and
// parallel batches stay isolated unless they intentionally share one.
type Metrics struct {
	mu        sync.Mutex
	tiers     map[string]*TierMetrics
	processed int64
	validated int64
	rejected  int64
	errored   int64
}

// NewMetrics creates an empty accumulator.
func NewMetrics() *Metrics {
	return &Metrics{tiers: make(map[string]*TierMetrics)}
}

// MetricsSnapshot is a point-in-time copy for reporting.
type MetricsSnapshot struct {
	Tiers        map[string]TierMetrics `json:"tiers"`
	Processed    int64                  `json:"processed"`
	Validated    int64                  `json:"validated"`
	Rejected     int64                  `json:"rejected"`
	Errored      int64                  `json:"errored"`
	TotalCostUSD float64                `json:"total_cost_usd"`
}

func (m *Metrics) tier(name string) *TierMetrics {
	tm, ok := m.tiers[name]
	if !ok {
		tm = &TierMetrics{}
		m.tiers[name] = tm
	}
	return tm
}

// RecordAttempt adds one tier attempt's tokens and cost.
func (m *Metrics) RecordAttempt(tier string, tokens int, costUSD float64, resolved bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tm := m.tier(tier)
	tm.Attempts++
	tm.Tokens += int64(tokens)
	tm.CostUSD += costUSD
	if resolved {
		tm.Resolutions++
	}
}

// RecordOutcome tallies a terminal outcome.
func (m *Metrics) RecordOutcome(validated bool, errored bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.processed++
	switch {
	case errored:
		m.errored++
	case validated:
		m.validated++
	default:
		m.rejected++
	}
}

// Snapshot returns a copy of the current counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := MetricsSnapshot{
		Tiers:     make(map[string]TierMetrics, len(m.tiers)),
		Processed: m.processed,
		Validated: m.validated,
		Rejected:  m.rejected,
		Errored:   m.errored,
	}
	for name, tm := range m.tiers {
		snap.Tiers[name] = *tm
		snap.TotalCostUSD += tm.CostUSD
	}
	return snap
}
