package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/semmy-space/vitals/internal/output"
	"github.com/semmy-space/vitals/internal/pagevitals"
	"github.com/semmy-space/vitals/internal/secrets"
)

// pageRow is one line of pages output.
type pageRow struct {
	Website string `json:"website"`
	ID      string `json:"id"`
	Alias   string `json:"alias"`
	URL     string `json:"url"`
	Device  string `json:"device"`
}

var pageColumns = []output.Column{
	{Name: "Website", Key: "Website"},
	{Name: "ID", Key: "ID"},
	{Name: "Alias", Key: "Alias", Width: 30},
	{Name: "URL", Key: "URL", Width: 60},
	{Name: "Device", Key: "Device"},
}

// scoreRow is one line of pages scores output.
type scoreRow struct {
	Website       string            `json:"website"`
	ID            string            `json:"id"`
	Alias         string            `json:"alias"`
	URL           string            `json:"url"`
	Device        string            `json:"device"`
	Performance   pagevitals.Metric `json:"performance_score"`
	Accessibility pagevitals.Metric `json:"accessibility_score"`
	BestPractices pagevitals.Metric `json:"best_practices_score"`
	SEO           pagevitals.Metric `json:"seo_score"`
}

var scoreColumns = []output.Column{
	{Name: "Website", Key: "Website"},
	{Name: "ID", Key: "ID"},
	{Name: "Alias", Key: "Alias", Width: 30},
	{Name: "URL", Key: "URL", Width: 50},
	{Name: "Device", Key: "Device"},
	{Name: "Performance", Key: "Performance"},
	{Name: "Accessibility", Key: "Accessibility"},
	{Name: "Best Practices", Key: "BestPractices"},
	{Name: "SEO", Key: "SEO"},
}

// historyRow is one day of one page in pages history output.
type historyRow struct {
	Website string `json:"website"`
	ID      string `json:"id"`
	URL     string `json:"url"`
	Device  string `json:"device"`
	pagevitals.TimelinePoint
}

var historyColumns = []output.Column{
	{Name: "Website", Key: "Website"},
	{Name: "ID", Key: "ID"},
	{Name: "URL", Key: "URL", Width: 40},
	{Name: "Device", Key: "Device"},
	{Name: "Date", Key: "Date"},
	{Name: "LCP", Key: "LCP"},
	{Name: "FCP", Key: "FCP"},
	{Name: "Speed Index", Key: "SpeedIndex"},
	{Name: "TBT", Key: "TBT"},
	{Name: "CLS", Key: "CLS"},
	{Name: "TTFB", Key: "TTFB"},
	{Name: "TTI", Key: "TTI"},
	{Name: "DOM Elements", Key: "DOMElements"},
	{Name: "DOM Max Depth", Key: "DOMMaxDepth"},
	{Name: "DOM Ready", Key: "DOMReady"},
	{Name: "On Load", Key: "OnLoad"},
	{Name: "DNS Time", Key: "DNSTime"},
	{Name: "Connect Time", Key: "ConnectTime"},
	{Name: "Server Time", Key: "ServerTime"},
	{Name: "Transfer Time", Key: "TransferTime"},
}

// PagesListCmd lists pages for every stored website, or just one.
type PagesListCmd struct {
	Website string `help:"Stored website to query (display name, entry name or ID)" short:"w"`
}

// Run executes the list command. A failure for one website is reported and
// the remaining websites are still queried, unless the failure would repeat
// for every website.
func (cmd *PagesListCmd) Run(ctx context.Context, sp *ServiceProvider, fp *FormatterProvider, log zerolog.Logger) error {
	sites, client, err := storedWebsites(sp, cmd.Website)
	if err != nil {
		return err
	}

	fails := &failures{fp: fp, log: log}
	var rows []pageRow
	for _, site := range sites {
		pages, err := client.ListPages(ctx, site.Value)
		if err != nil {
			if fatal := fails.record(fmt.Sprintf("List pages for %s", site.Name), err); fatal != nil {
				return fatal
			}
			continue
		}
		for _, p := range pages {
			rows = append(rows, pageRow{Website: site.Name, ID: p.ID, Alias: p.Alias, URL: p.URL, Device: p.Device})
		}
	}

	if err := fp.Formatter.PrintList(rows, pageColumns); err != nil {
		return err
	}
	return fails.result("Listing pages", len(sites), "websites")
}

// PagesScoresCmd lists the latest Lighthouse scores of every page.
type PagesScoresCmd struct {
	Website string `help:"Stored website to query (display name, entry name or ID)" short:"w"`
}

// Run executes the scores command
func (cmd *PagesScoresCmd) Run(ctx context.Context, sp *ServiceProvider, fp *FormatterProvider, log zerolog.Logger) error {
	sites, client, err := storedWebsites(sp, cmd.Website)
	if err != nil {
		return err
	}

	fails := &failures{fp: fp, log: log}
	var rows []scoreRow
	for _, site := range sites {
		pages, err := client.ListPages(ctx, site.Value)
		if err != nil {
			if fatal := fails.record(fmt.Sprintf("List pages for %s", site.Name), err); fatal != nil {
				return fatal
			}
			continue
		}
		for _, p := range pages {
			s := p.LatestScores()
			rows = append(rows, scoreRow{
				Website:       site.Name,
				ID:            p.ID,
				Alias:         p.Alias,
				URL:           p.URL,
				Device:        p.Device,
				Performance:   s.Performance,
				Accessibility: s.Accessibility,
				BestPractices: s.BestPractices,
				SEO:           s.SEO,
			})
		}
	}

	if err := fp.Formatter.PrintList(rows, scoreColumns); err != nil {
		return err
	}
	return fails.result("Fetching scores", len(sites), "websites")
}

// PagesHistoryCmd lists the daily timeline of every page.
type PagesHistoryCmd struct {
	Website string `help:"Stored website to query (display name, entry name or ID)" short:"w"`
	Days    int    `help:"Number of days to look back" default:"90"`
	Device  string `help:"Device to query instead of each page's own (mobile, desktop)"`

	now func() time.Time
}

// Run executes the history command. Every page costs one call, so large
// accounts spend most of the run waiting on the call budget.
func (cmd *PagesHistoryCmd) Run(ctx context.Context, sp *ServiceProvider, fp *FormatterProvider, log zerolog.Logger) error {
	if cmd.Days <= 0 {
		return output.NewCLIError(output.ExitUsage, fmt.Sprintf("--days must be positive, got %d", cmd.Days))
	}

	sites, client, err := storedWebsites(sp, cmd.Website)
	if err != nil {
		return err
	}

	now := time.Now
	if cmd.now != nil {
		now = cmd.now
	}
	to := now()
	from := to.AddDate(0, 0, -cmd.Days)

	fails := &failures{fp: fp, log: log}
	var rows []historyRow
	requests := 0
	for _, site := range sites {
		requests++
		pages, err := client.ListPages(ctx, site.Value)
		if err != nil {
			if fatal := fails.record(fmt.Sprintf("List pages for %s", site.Name), err); fatal != nil {
				return fatal
			}
			continue
		}

		for _, p := range pages {
			device := p.Device
			if cmd.Device != "" {
				device = cmd.Device
			}

			requests++
			points, err := client.PageTimeline(ctx, site.Value, p.ID, from, to, device)
			if err != nil {
				if fatal := fails.record(fmt.Sprintf("Timeline for %s page %s", site.Name, p.ID), err); fatal != nil {
					return fatal
				}
				continue
			}
			for _, pt := range points {
				rows = append(rows, historyRow{Website: site.Name, ID: p.ID, URL: p.URL, Device: device, TimelinePoint: pt})
			}
		}
	}

	if err := fp.Formatter.PrintList(rows, historyColumns); err != nil {
		return err
	}
	return fails.result("Fetching history", requests, "requests")
}

// storedWebsites loads the selected website entries and the client.
func storedWebsites(sp *ServiceProvider, filter string) ([]secrets.Entry, pagevitals.Service, error) {
	snap, err := sp.Store().Load()
	if err != nil {
		return nil, nil, classify("Failed to read credentials", err)
	}

	sites := selectWebsites(snap.Websites(), filter)
	if len(sites) == 0 {
		if filter != "" {
			return nil, nil, output.NewCLIError(output.ExitNotFound, fmt.Sprintf("No stored website matches %q", filter)).
				WithHint("Run: vitals websites list")
		}
		return nil, nil, output.NewCLIError(output.ExitNotFound, "No websites stored").
			WithHint("Run: vitals websites discover")
	}

	client, err := sp.Client()
	if err != nil {
		return nil, nil, err
	}
	return sites, client, nil
}

// failures counts requests that failed but did not stop the run.
type failures struct {
	fp  *FormatterProvider
	log zerolog.Logger
	n   int
}

// record reports err for label. It returns a CLIError instead when the same
// failure would repeat for every remaining request.
func (f *failures) record(label string, err error) *output.CLIError {
	cliErr := classify(label, err)
	if errors.Is(err, context.Canceled) {
		return cliErr
	}
	switch cliErr.ExitCode {
	case output.ExitAuth, output.ExitNetworkError, output.ExitTimeout:
		return cliErr
	}

	f.n++
	f.log.Error().Err(err).Str("target", label).Msg("request failed")
	f.fp.Formatter.PrintError(cliErr)
	return nil
}

func (f *failures) result(action string, total int, unit string) error {
	if f.n == 0 {
		return nil
	}
	return output.NewCLIError(output.ExitAPIError,
		fmt.Sprintf("%s failed for %d of %d %s", action, f.n, total, unit))
}

// selectWebsites filters stored entries by entry name, ID, or the entry name
// derived from a display name. An empty filter selects everything.
func selectWebsites(stored []secrets.Entry, filter string) []secrets.Entry {
	if filter == "" {
		return stored
	}

	derived := secrets.WebsiteName(filter)
	var out []secrets.Entry
	for _, e := range stored {
		if e.Name == filter || e.Value == filter || (derived != "" && e.Name == derived) {
			out = append(out, e)
		}
	}
	return out
}
