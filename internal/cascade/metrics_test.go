package cascade

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordAttempt("cheap", 1000, 0.25, false)
	m.RecordAttempt("expensive", 2000, 30.0, true)
	m.RecordOutcome(true, false)
	m.RecordAttempt("cheap", 500, 0.125, true)
	m.RecordOutcome(false, false)
	m.RecordOutcome(false, true)

	snap := m.Snapshot()
	assert.EqualValues(t, 3, snap.Processed)
	assert.EqualValues(t, 1, snap.Validated)
	assert.EqualValues(t, 1, snap.Rejected)
	assert.EqualValues(t, 1, snap.Errored)
	assert.EqualValues(t, 2, snap.Tiers["cheap"].Attempts)
	assert.EqualValues(t, 1500, snap.Tiers["cheap"].Tokens)
	assert.EqualValues(t, 1, snap.Tiers["cheap"].Resolutions)
	assert.InDelta(t, 30.375, snap.TotalCostUSD, 1e-9)
}

func TestMetricsConcurrentRecording(t *testing.T) {
	m := NewMetrics()

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 20 {
				m.RecordAttempt("cheap", 10, 0.01, false)
				m.RecordOutcome(true, false)
			}
		}()
	}
	wg.Wait()

	snap := m.Snapshot()
	assert.EqualValues(t, 1000, snap.Processed)
	assert.EqualValues(t, 1000, snap.Tiers["cheap"].Attempts)
	assert.EqualValues(t, 10000, snap.Tiers["cheap"].Tokens)
}

func TestMetricsSnapshotIsCopy(t *testing.T) {
	m := NewMetrics()
	m.RecordAttempt("cheap", 10, 0.01, false)

	snap := m.Snapshot()
	m.RecordAttempt("cheap", 10, 0.01, false)
	assert.EqualValues(t, 1, snap.Tiers["cheap"].Attempts)
}
