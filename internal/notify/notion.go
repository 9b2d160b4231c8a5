package notify

import (
	"context"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"

	"github.com/sells-group/rfp-radar/internal/model"
	"github.com/sells-group/rfp-radar/pkg/notion"
)

// NotionChannel maintains one page per organization in the leads database.
// A repeat notification for the same organization updates the existing page
// instead of creating a duplicate lead.
type NotionChannel struct {
	client notion.Client
	dbID   string
}

// NewNotionChannel creates a Notion channel writing to the given database.
func NewNotionChannel(client notion.Client, dbID string) *NotionChannel {
	return &NotionChannel{client: client, dbID: dbID}
}

// Name implements Channel.
func (n *NotionChannel) Name() string { return "notion" }

// Notify implements Channel.
func (n *NotionChannel) Notify(ctx context.Context, opp model.Opportunity) error {
	if n.dbID == "" {
		return eris.New("notify: notion database ID not configured")
	}

	pageID, err := n.findExisting(ctx, opp.Organization)
	if err != nil {
		return err
	}

	props := n.pageProperties(opp)
	if pageID != "" {
		_, err = n.client.UpdatePage(ctx, pageID, &notionapi.PageUpdateRequest{Properties: props})
		return eris.Wrapf(err, "notify: update notion lead page for %s", opp.Organization)
	}

	_, err = n.client.CreatePage(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(n.dbID),
		},
		Properties: props,
	})
	return eris.Wrapf(err, "notify: create notion lead page for %s", opp.Organization)
}

// findExisting returns the page ID for an organization already in the
// database, or "" when none exists.
func (n *NotionChannel) findExisting(ctx context.Context, org string) (string, error) {
	resp, err := n.client.QueryDatabase(ctx, n.dbID, &notionapi.DatabaseQueryRequest{
		Filter: notionapi.PropertyFilter{
			Property: "Name",
			RichText: &notionapi.TextFilterCondition{Equals: org},
		},
		PageSize: 1,
	})
	if err != nil {
		return "", eris.Wrapf(err, "notify: query notion leads for %s", org)
	}
	if len(resp.Results) == 0 {
		return "", nil
	}
	return string(resp.Results[0].ID), nil
}

func (n *NotionChannel) pageProperties(opp model.Opportunity) notionapi.Properties {
	return notionapi.Properties{
		"Name": notionapi.TitleProperty{
			Title: []notionapi.RichText{
				{Text: &notionapi.Text{Content: opp.Organization}},
			},
		},
		"Priority": notionapi.SelectProperty{
			Select: notionapi.Option{Name: string(opp.Priority)},
		},
		"Category": notionapi.SelectProperty{
			Select: notionapi.Option{Name: string(opp.Signal.Category)},
		},
		"Fit Score": notionapi.NumberProperty{
			Number: opp.FitScore,
		},
		"Confidence": notionapi.NumberProperty{
			Number: opp.Confidence,
		},
		"Resolved Tier": notionapi.RichTextProperty{
			RichText: []notionapi.RichText{
				{Text: &notionapi.Text{Content: opp.Outcome.ResolvedTier}},
			},
		},
		"Needs Review": notionapi.CheckboxProperty{
			Checkbox: opp.Outcome.RequiresManualReview,
		},
	}
}
