// Package notify fans validated opportunities out to delivery channels based
// on priority. Channel failures are isolated: one channel's outage never
// blocks delivery to the others, and never affects pipeline correctness.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/rfp-radar/internal/model"
	"github.com/sells-group/rfp-radar/internal/resilience"
)

// Channel delivers one opportunity notification.
type Channel interface {
	Name() string
	Notify(ctx context.Context, opp model.Opportunity) error
}

// SlackChannel posts opportunity summaries to a Slack incoming webhook.
// Transient webhook failures are retried with backoff.
type SlackChannel struct {
	webhookURL string
	client     *http.Client
	retry      resilience.Policy
}

// NewSlackChannel creates a Slack webhook channel.
func NewSlackChannel(webhookURL string) *SlackChannel {
	return &SlackChannel{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		retry: resilience.Policy{
			MaxAttempts:    3,
			InitialBackoff: 500 * time.Millisecond,
			OnRetry:        resilience.RetryLogger("slack", "webhook"),
		},
	}
}

// Name implements Channel.
func (s *SlackChannel) Name() string { return "slack" }

// Notify implements Channel.
func (s *SlackChannel) Notify(ctx context.Context, opp model.Opportunity) error {
	if s.webhookURL == "" {
		return eris.New("notify: slack webhook URL not configured")
	}

	payload, err := json.Marshal(map[string]string{"text": FormatMessage(opp)})
	if err != nil {
		return eris.Wrap(err, "notify: marshal slack payload")
	}

	return resilience.Retry(ctx, s.retry, func(ctx context.Context) error {
		return s.post(ctx, payload)
	})
}

func (s *SlackChannel) post(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "notify: create slack request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "notify: slack request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		err := eris.Errorf("notify: slack webhook returned status %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return resilience.NewTransientError(err, resp.StatusCode)
		}
		return err
	}
	return nil
}

// FormatMessage renders the one-line opportunity summary used by the webhook
// channels.
func FormatMessage(opp model.Opportunity) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s: fit %.1f, confidence %.2f",
		strings.ToUpper(string(opp.Priority)), opp.Organization, opp.FitScore, opp.Confidence)
	if opp.Outcome.ResolvedTier != "" {
		fmt.Fprintf(&b, " (validated at %s)", opp.Outcome.ResolvedTier)
	}
	if opp.Outcome.RequiresManualReview {
		b.WriteString(" [needs review]")
	}
	if opp.Outcome.Rationale != "" {
		rationale := opp.Outcome.Rationale
		if len(rationale) > 200 {
			rationale = rationale[:200] + "..."
		}
		b.WriteString("\n> ")
		b.WriteString(rationale)
	}
	return b.String()
}
