// Package discovery fetches the account's websites from PageVitals and
// records their IDs in the credentials file.
package discovery

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/semmy-space/vitals/internal/pagevitals"
	"github.com/semmy-space/vitals/internal/secrets"
)

// WebsiteLister lists websites. *pagevitals.Client satisfies it.
type WebsiteLister interface {
	ListWebsites(ctx context.Context) ([]pagevitals.Website, error)
}

// Store loads and merges credentials. *secrets.EnvFileStore satisfies it.
type Store interface {
	Path() string
	Load() (*secrets.Snapshot, error)
	MergeAndPersist(snap *secrets.Snapshot, resources []secrets.Resource) (secrets.MergeResult, error)
}

// Summary describes one discovery run.
type Summary struct {
	Path       string
	Discovered int
	Added      []secrets.Entry
	Skipped    []secrets.Skip
	Updated    bool
}

// Collisions returns the skipped resources whose name was taken by another ID.
func (s Summary) Collisions() []secrets.Skip {
	var out []secrets.Skip
	for _, sk := range s.Skipped {
		if sk.Reason != secrets.SkipExisting {
			out = append(out, sk)
		}
	}
	return out
}

// Driver composes the website listing with the credentials store. It keeps
// no state between runs.
type Driver struct {
	websites WebsiteLister
	store    Store
	log      zerolog.Logger
}

// NewDriver creates a Driver.
func NewDriver(websites WebsiteLister, store Store, log zerolog.Logger) *Driver {
	return &Driver{websites: websites, store: store, log: log}
}

// DiscoverAndSave lists websites and merges their IDs into the store. If
// the listing fails the store is not read or written.
func (d *Driver) DiscoverAndSave(ctx context.Context) (Summary, error) {
	sum := Summary{Path: d.store.Path()}

	sites, err := d.websites.ListWebsites(ctx)
	if err != nil {
		return sum, fmt.Errorf("list websites: %w", err)
	}
	sum.Discovered = len(sites)
	d.log.Debug().Int("count", len(sites)).Msg("websites discovered")

	resources := make([]secrets.Resource, 0, len(sites))
	for _, s := range sites {
		resources = append(resources, secrets.Resource{DisplayName: s.Name(), ID: s.ID})
	}

	snap, err := d.store.Load()
	if err != nil {
		return sum, fmt.Errorf("load credentials: %w", err)
	}

	res, err := d.store.MergeAndPersist(snap, resources)
	if err != nil {
		return sum, fmt.Errorf("save credentials: %w", err)
	}

	sum.Added = res.Added
	sum.Skipped = res.Skipped
	sum.Updated = res.Updated

	for _, sk := range sum.Collisions() {
		d.log.Warn().
			Str("name", sk.Name).
			Str("id", sk.Resource.ID).
			Str("display_name", sk.Resource.DisplayName).
			Str("reason", string(sk.Reason)).
			Msg("website not stored")
	}

	return sum, nil
}
