package notify

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/rfp-radar/internal/model"
	"github.com/sells-group/rfp-radar/pkg/salesforce"
)

// SalesforceChannel creates a Lead record per opportunity so the sales team
// picks it up in their existing workflow.
type SalesforceChannel struct {
	client salesforce.Client
	source string
}

// NewSalesforceChannel creates a Salesforce channel. source fills the
// LeadSource field on created records.
func NewSalesforceChannel(client salesforce.Client, source string) *SalesforceChannel {
	if source == "" {
		source = "RFP Radar"
	}
	return &SalesforceChannel{client: client, source: source}
}

// Name implements Channel.
func (s *SalesforceChannel) Name() string { return "salesforce" }

// Notify implements Channel. An existing lead for the same company is
// updated in place rather than duplicated.
func (s *SalesforceChannel) Notify(ctx context.Context, opp model.Opportunity) error {
	fields := s.leadRecord(opp)

	existing, err := salesforce.FindLeadByCompany(ctx, s.client, opp.Organization)
	if err != nil {
		return eris.Wrap(err, "notify: look up salesforce lead")
	}

	if existing != nil {
		if err := s.client.UpdateOne(ctx, "Lead", existing.ID, fields); err != nil {
			return eris.Wrap(err, "notify: update salesforce lead")
		}
		zap.L().Debug("notify: salesforce lead updated",
			zap.String("lead_id", existing.ID),
			zap.String("organization", opp.Organization),
		)
		return nil
	}

	id, err := s.client.InsertOne(ctx, "Lead", fields)
	if err != nil {
		return eris.Wrap(err, "notify: insert salesforce lead")
	}
	zap.L().Debug("notify: salesforce lead created",
		zap.String("lead_id", id),
		zap.String("organization", opp.Organization),
	)
	return nil
}

// NotifyBatch implements BatchNotifier: buffered digest-tier opportunities
// arrive as cold leads in one Collections API round trip. Batch inserts skip
// the per-company dedupe lookup.
func (s *SalesforceChannel) NotifyBatch(ctx context.Context, opps []model.Opportunity) error {
	if len(opps) == 0 {
		return nil
	}

	records := make([]map[string]any, 0, len(opps))
	for _, opp := range opps {
		records = append(records, s.leadRecord(opp))
	}

	results, err := salesforce.BulkInsertLeads(ctx, s.client, records)
	if err != nil {
		return eris.Wrap(err, "notify: bulk insert salesforce leads")
	}
	for _, r := range results {
		if !r.Success {
			zap.L().Warn("notify: salesforce lead rejected in batch",
				zap.String("lead_id", r.ID),
				zap.Strings("errors", r.Errors),
			)
		}
	}
	zap.L().Debug("notify: salesforce lead batch created", zap.Int("count", len(records)))
	return nil
}

func (s *SalesforceChannel) leadRecord(opp model.Opportunity) map[string]any {
	return map[string]any{
		"Company":            opp.Organization,
		"LastName":           opp.Organization, // Lead requires LastName; org-level leads reuse the company name
		"LeadSource":         s.source,
		"Rating":             rating(opp.Priority),
		"Description":        FormatMessage(opp),
		"Fit_Score__c":       opp.FitScore,
		"Confidence__c":      opp.Confidence,
		"Signal_Category__c": string(opp.Signal.Category),
	}
}

func rating(p model.Priority) string {
	switch p {
	case model.PriorityCritical, model.PriorityHigh:
		return "Hot"
	case model.PriorityStandard:
		return "Warm"
	default:
		return "Cold"
	}
}
