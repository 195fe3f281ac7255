package discovery

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semmy-space/vitals/internal/budget"
	"github.com/semmy-space/vitals/internal/config"
	"github.com/semmy-space/vitals/internal/pagevitals"
	"github.com/semmy-space/vitals/internal/secrets"
)

type fakeLister struct {
	sites []pagevitals.Website
	err   error
}

func (f *fakeLister) ListWebsites(context.Context) ([]pagevitals.Website, error) {
	return f.sites, f.err
}

func newStore(t *testing.T) *secrets.EnvFileStore {
	t.Helper()
	return secrets.NewEnvFileStore(filepath.Join(t.TempDir(), ".env"), zerolog.Nop())
}

func TestDiscoverAndSaveCollision(t *testing.T) {
	store := newStore(t)
	lister := &fakeLister{sites: []pagevitals.Website{
		{DisplayName: "My Site!", ID: "abc123"},
		{DisplayName: "My Site!", ID: "zzz999"},
	}}

	sum, err := NewDriver(lister, store, zerolog.Nop()).DiscoverAndSave(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, sum.Discovered)
	assert.True(t, sum.Updated)
	assert.Equal(t, []secrets.Entry{{Name: "PAGEVITALS_WEBSITE_MYSITE", Value: "abc123"}}, sum.Added)
	require.Len(t, sum.Collisions(), 1)
	assert.Equal(t, "zzz999", sum.Collisions()[0].Resource.ID)

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Equal(t, "PAGEVITALS_WEBSITE_MYSITE=abc123\n", string(data))
}

func TestDiscoverAndSaveUsesDomainFallback(t *testing.T) {
	store := newStore(t)
	lister := &fakeLister{sites: []pagevitals.Website{{Domain: "shop.example.com", ID: "s1"}}}

	sum, err := NewDriver(lister, store, zerolog.Nop()).DiscoverAndSave(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []secrets.Entry{{Name: "PAGEVITALS_WEBSITE_SHOPEXAMPLECOM", Value: "s1"}}, sum.Added)
}

func TestDiscoverAndSaveSecondRunNoChanges(t *testing.T) {
	store := newStore(t)
	lister := &fakeLister{sites: []pagevitals.Website{{DisplayName: "Shop", ID: "s1"}}}
	driver := NewDriver(lister, store, zerolog.Nop())

	first, err := driver.DiscoverAndSave(context.Background())
	require.NoError(t, err)
	assert.True(t, first.Updated)

	second, err := driver.DiscoverAndSave(context.Background())
	require.NoError(t, err)
	assert.False(t, second.Updated)
	assert.Empty(t, second.Added)
	assert.Empty(t, second.Collisions())
}

func TestDiscoverAndSaveListingFailureLeavesStore(t *testing.T) {
	store := newStore(t)
	original := "PAGEVITALS_API_KEY=k\n"
	require.NoError(t, os.WriteFile(store.Path(), []byte(original), 0o600))

	lister := &fakeLister{err: &pagevitals.APIError{StatusCode: http.StatusInternalServerError}}
	_, err := NewDriver(lister, store, zerolog.Nop()).DiscoverAndSave(context.Background())
	require.Error(t, err)

	var apiErr *pagevitals.APIError
	assert.ErrorAs(t, err, &apiErr)

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Equal(t, original, string(data))
}

// TestDiscoverEndToEnd runs the driver against a fake PageVitals server that
// throttles the first call.
func TestDiscoverEndToEnd(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"result":{"list":[{"id":"abc123","displayName":"My Site!"}]}}`))
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.APIBase = srv.URL
	tracker := budget.NewTracker(budget.Window{MaxCalls: 10, Period: cfg.Window()})

	client, err := pagevitals.NewClient(cfg, pagevitals.StaticKey("k"), tracker, zerolog.Nop())
	require.NoError(t, err)

	store := newStore(t)
	sum, err := NewDriver(client, store, zerolog.Nop()).DiscoverAndSave(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
	assert.Equal(t, 2, tracker.Len())
	assert.True(t, sum.Updated)
	assert.Equal(t, store.Path(), sum.Path)
}

func TestDiscoverEndToEndPersistent429(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.APIBase = srv.URL
	client, err := pagevitals.NewClient(cfg, pagevitals.StaticKey("k"), nil, zerolog.Nop())
	require.NoError(t, err)

	store := newStore(t)
	_, err = NewDriver(client, store, zerolog.Nop()).DiscoverAndSave(context.Background())
	require.Error(t, err)

	var apiErr *pagevitals.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.RateLimited())

	_, statErr := os.Stat(store.Path())
	assert.True(t, os.IsNotExist(statErr))
}
