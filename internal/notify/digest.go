package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/sells-group/rfp-radar/internal/model"
)

// DigestChannel buffers low-priority opportunities in memory and delivers
// them as one summary message on Flush. Routing digest-priority items here
// keeps the live channels quiet without dropping anything.
type DigestChannel struct {
	mu     sync.Mutex
	buffer []model.Opportunity
	sink   Channel
}

// BatchNotifier is implemented by channels that can deliver a digest's
// buffered opportunities in one call instead of a rolled-up summary message.
type BatchNotifier interface {
	NotifyBatch(ctx context.Context, opps []model.Opportunity) error
}

// NewDigestChannel creates a digest buffer that flushes through sink.
func NewDigestChannel(sink Channel) *DigestChannel {
	return &DigestChannel{sink: sink}
}

// Name implements Channel.
func (d *DigestChannel) Name() string { return "digest" }

// Notify implements Channel by buffering; nothing is sent until Flush.
func (d *DigestChannel) Notify(_ context.Context, opp model.Opportunity) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.buffer = append(d.buffer, opp)
	return nil
}

// Pending returns how many opportunities are buffered.
func (d *DigestChannel) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.buffer)
}

// Flush sends the buffered summary through the sink and clears the buffer.
// The buffer is cleared only on successful delivery.
func (d *DigestChannel) Flush(ctx context.Context) error {
	d.mu.Lock()
	items := make([]model.Opportunity, len(d.buffer))
	copy(items, d.buffer)
	d.mu.Unlock()

	if len(items) == 0 || d.sink == nil {
		return nil
	}

	if bn, ok := d.sink.(BatchNotifier); ok {
		if err := bn.NotifyBatch(ctx, items); err != nil {
			return err
		}
	} else {
		summary := model.Opportunity{
			Organization: fmt.Sprintf("%d low-priority opportunities", len(items)),
			Priority:     model.PriorityDigest,
			Outcome:      model.CascadeOutcome{Rationale: digestBody(items)},
		}
		if err := d.sink.Notify(ctx, summary); err != nil {
			return err
		}
	}

	d.mu.Lock()
	d.buffer = d.buffer[len(items):]
	d.mu.Unlock()
	return nil
}

func digestBody(items []model.Opportunity) string {
	var b strings.Builder
	for i, opp := range items {
		if i > 0 {
			b.WriteString("; ")
		}
		fmt.Fprintf(&b, "%s (fit %.1f)", opp.Organization, opp.FitScore)
	}
	return b.String()
}
