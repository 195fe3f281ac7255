package cli

import (
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/semmy-space/vitals/internal/budget"
	"github.com/semmy-space/vitals/internal/config"
	"github.com/semmy-space/vitals/internal/discovery"
	"github.com/semmy-space/vitals/internal/output"
	"github.com/semmy-space/vitals/internal/pagevitals"
	"github.com/semmy-space/vitals/internal/secrets"
)

// ServiceProvider lazily creates the store, the call budget and the
// PageVitals client for a single invocation.
type ServiceProvider struct {
	cfg         *config.Config
	credentials string
	log         zerolog.Logger

	storeOnce sync.Once
	store     *secrets.EnvFileStore

	clientOnce sync.Once
	client     pagevitals.Service
	clientErr  error

	// newClient is replaced in tests.
	newClient func(apiKey string) (pagevitals.Service, error)
}

// NewServiceProvider creates a ServiceProvider with the given config. The
// credentials file lives at credentials.
func NewServiceProvider(cfg *config.Config, credentials string, log zerolog.Logger) *ServiceProvider {
	sp := &ServiceProvider{cfg: cfg, credentials: credentials, log: log}
	sp.newClient = sp.buildClient
	return sp
}

// Store returns the credentials file store.
func (sp *ServiceProvider) Store() *secrets.EnvFileStore {
	sp.storeOnce.Do(func() {
		sp.store = secrets.NewEnvFileStore(sp.credentials, sp.log)
	})
	return sp.store
}

// APIKey resolves the API key. PAGEVITALS_API_KEY in the environment wins
// over the credentials file. source reports where the key came from.
func (sp *ServiceProvider) APIKey() (key, source string, err error) {
	if v := os.Getenv(secrets.APIKeyName); v != "" {
		return v, "environment", nil
	}

	snap, err := sp.Store().Load()
	if err != nil {
		return "", "", classify("Failed to read credentials", err)
	}
	if k := snap.APIKey(); k != "" {
		return k, sp.Store().Path(), nil
	}

	return "", "", output.NewCLIError(output.ExitConfigError, "No PageVitals API key configured").
		WithHint("Run: vitals key set")
}

// Client returns the PageVitals client, creating it on first call.
func (sp *ServiceProvider) Client() (pagevitals.Service, error) {
	sp.clientOnce.Do(func() {
		key, _, err := sp.APIKey()
		if err != nil {
			sp.clientErr = err
			return
		}
		sp.client, sp.clientErr = sp.newClient(key)
	})
	return sp.client, sp.clientErr
}

// Driver returns a discovery driver over the client and the store.
func (sp *ServiceProvider) Driver() (*discovery.Driver, error) {
	client, err := sp.Client()
	if err != nil {
		return nil, err
	}
	return discovery.NewDriver(client, sp.Store(), sp.log), nil
}

func (sp *ServiceProvider) buildClient(apiKey string) (pagevitals.Service, error) {
	tracker := budget.NewTracker(
		budget.Window{MaxCalls: sp.cfg.MaxCalls, Period: sp.cfg.Window()},
		budget.WithLogger(sp.log),
	)

	client, err := pagevitals.NewClient(sp.cfg, pagevitals.StaticKey(apiKey), tracker, sp.log)
	if err != nil {
		return nil, output.Wrap(output.ExitConfigError, "Failed to create PageVitals client", err).
			WithHint("Check api_base with: vitals config get api_base")
	}
	return client, nil
}
