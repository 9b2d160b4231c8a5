package salesforce

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
)

// maxBatchSize is the Salesforce Collections API limit per request.
const maxBatchSize = 200

// Lead represents the subset of Salesforce Lead fields the radar reads back.
type Lead struct {
	ID         string `json:"Id" salesforce:"Id"`
	Company    string `json:"Company" salesforce:"Company"`
	LastName   string `json:"LastName" salesforce:"LastName"`
	LeadSource string `json:"LeadSource" salesforce:"LeadSource"`
	Rating     string `json:"Rating" salesforce:"Rating"`
	Status     string `json:"Status" salesforce:"Status"`
}

var leadFields = []string{"Id", "Company", "LastName", "LeadSource", "Rating", "Status"}

// FindLeadByCompany queries Salesforce for a Lead matching the given company
// name. Returns nil if no lead is found.
func FindLeadByCompany(ctx context.Context, c Client, company string) (*Lead, error) {
	soql := "SELECT " + strings.Join(leadFields, ", ") +
		" FROM Lead WHERE Company = '" + escapeSoql(company) + "' LIMIT 1"

	var leads []Lead
	if err := c.Query(ctx, soql, &leads); err != nil {
		return nil, eris.Wrapf(err, "sf: find lead by company %s", company)
	}
	if len(leads) == 0 {
		return nil, nil
	}
	return &leads[0], nil
}

// BulkInsertLeads splits records into batches of 200 (SF Collections API
// limit) and sends them via InsertCollection.
func BulkInsertLeads(ctx context.Context, c Client, records []map[string]any) ([]CollectionResult, error) {
	if len(records) == 0 {
		return nil, nil
	}

	var allResults []CollectionResult
	for start := 0; start < len(records); start += maxBatchSize {
		end := min(start+maxBatchSize, len(records))

		results, err := c.InsertCollection(ctx, "Lead", records[start:end])
		if err != nil {
			return allResults, eris.Wrapf(err, "sf: bulk insert leads batch %d-%d", start, end)
		}
		allResults = append(allResults, results...)
	}
	return allResults, nil
}

// escapeSoql escapes single quotes in SOQL string literals to prevent injection.
func escapeSoql(s string) string {
	return strings.ReplaceAll(s, "'", "\\'")
}
