package cli

import (
	"context"
	"fmt"

	"github.com/semmy-space/vitals/internal/output"
	"github.com/semmy-space/vitals/internal/secrets"
)

// websiteRow is one line of websites output.
type websiteRow struct {
	Name   string `json:"name"`
	ID     string `json:"id"`
	Status string `json:"status,omitempty"`
}

var websiteColumns = []output.Column{
	{Name: "Name", Key: "Name"},
	{Name: "ID", Key: "ID"},
	{Name: "Status", Key: "Status"},
}

// WebsitesDiscoverCmd fetches all websites and stores their IDs.
type WebsitesDiscoverCmd struct{}

// Run executes the discover command
func (cmd *WebsitesDiscoverCmd) Run(ctx context.Context, sp *ServiceProvider, fp *FormatterProvider) error {
	driver, err := sp.Driver()
	if err != nil {
		return err
	}

	sum, err := driver.DiscoverAndSave(ctx)
	if err != nil {
		return classify("Website discovery failed", err)
	}

	rows := make([]websiteRow, 0, len(sum.Added)+len(sum.Skipped))
	for _, e := range sum.Added {
		rows = append(rows, websiteRow{Name: e.Name, ID: e.Value, Status: "added"})
	}
	for _, sk := range sum.Skipped {
		rows = append(rows, websiteRow{Name: sk.Name, ID: sk.Resource.ID, Status: skipStatus(sk.Reason)})
	}

	if err := fp.Formatter.PrintList(rows, websiteColumns); err != nil {
		return err
	}

	if sum.Updated {
		fp.Formatter.PrintHint(fmt.Sprintf("%d of %d websites added to %s", len(sum.Added), sum.Discovered, sum.Path))
	} else {
		fp.Formatter.PrintHint(fmt.Sprintf("No new websites; %s unchanged", sum.Path))
	}
	if n := len(sum.Collisions()); n > 0 {
		fp.Formatter.PrintHint(fmt.Sprintf("%d websites were not stored; rename them in PageVitals to get distinct entries", n))
	}
	return nil
}

func skipStatus(r secrets.SkipReason) string {
	switch r {
	case secrets.SkipExisting:
		return "exists"
	case secrets.SkipCollision:
		return "collision"
	default:
		return "invalid"
	}
}

// WebsitesListCmd lists the websites stored in the credentials file.
type WebsitesListCmd struct{}

// Run executes the list command
func (cmd *WebsitesListCmd) Run(sp *ServiceProvider, fp *FormatterProvider) error {
	snap, err := sp.Store().Load()
	if err != nil {
		return classify("Failed to read credentials", err)
	}

	stored := snap.Websites()
	rows := make([]websiteRow, 0, len(stored))
	for _, e := range stored {
		rows = append(rows, websiteRow{Name: e.Name, ID: e.Value})
	}

	if err := fp.Formatter.PrintList(rows, websiteColumns[:2]); err != nil {
		return err
	}
	if len(rows) == 0 {
		fp.Formatter.PrintHint("Run: vitals websites discover")
	}
	return nil
}
