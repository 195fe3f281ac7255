package cli

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/willabides/kongplete"

	"github.com/semmy-space/vitals/internal/config"
	"github.com/semmy-space/vitals/internal/logging"
	"github.com/semmy-space/vitals/internal/output"
)

// FormatterProvider wraps the formatter interface for Kong binding
type FormatterProvider struct {
	Formatter output.Formatter
}

// CLI is the root command structure
type CLI struct {
	Globals

	Websites WebsitesCmd `cmd:"" help:"Discover and list PageVitals websites"`
	Pages    PagesCmd    `cmd:"" help:"Inspect monitored pages"`
	Key      KeyCmd      `cmd:"" help:"Manage the PageVitals API key"`
	Config   ConfigCmd   `cmd:"" help:"Configuration commands"`
	Version  VersionCmd  `cmd:"" help:"Show version information"`

	InstallCompletions kongplete.InstallCompletions `cmd:"" help:"Install shell completions"`
}

// AfterApply runs once flags are parsed. It loads config, applies flag
// overrides, and binds the dependencies commands ask for.
func (c *CLI) AfterApply(ctx *kong.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return output.Wrap(output.ExitConfigError, "Failed to load config", err).
			WithHint("Run: vitals config path")
	}

	credentials := cfg.CredentialsFile
	if c.Credentials != "" {
		credentials = c.Credentials
	}

	log := logging.FromEnv(os.Stderr, c.Verbose)

	mode := c.ResolvedOutput()
	if c.Output == "auto" && cfg.DefaultOutput != "" && cfg.DefaultOutput != "auto" {
		mode = cfg.DefaultOutput
	}
	formatter := &FormatterProvider{
		Formatter: output.New(mode),
	}

	ctx.Bind(cfg)
	ctx.Bind(formatter)
	ctx.Bind(&c.Globals)
	ctx.Bind(log)
	ctx.Bind(NewServiceProvider(cfg, credentials, log))

	return nil
}

// WebsitesCmd holds website subcommands
type WebsitesCmd struct {
	Discover WebsitesDiscoverCmd `cmd:"" help:"Fetch websites from PageVitals and store their IDs"`
	List     WebsitesListCmd     `cmd:"" help:"List websites stored in the credentials file"`
}

// PagesCmd holds page subcommands
type PagesCmd struct {
	List    PagesListCmd    `cmd:"" help:"List pages of the stored websites"`
	Scores  PagesScoresCmd  `cmd:"" help:"Show the latest Lighthouse scores of every page"`
	History PagesHistoryCmd `cmd:"" help:"Show daily lab measurements of every page"`
}

// KeyCmd holds API key subcommands
type KeyCmd struct {
	Set    KeySetCmd    `cmd:"" help:"Store the API key in the credentials file"`
	Status KeyStatusCmd `cmd:"" help:"Show whether an API key is configured"`
}

// ConfigCmd holds configuration subcommands
type ConfigCmd struct {
	Get   ConfigGetCmd        `cmd:"" help:"Get a configuration value"`
	Set   ConfigSetCmd        `cmd:"" help:"Set a configuration value"`
	Unset ConfigUnsetCmd      `cmd:"" help:"Reset a configuration value to its default"`
	List  ConfigListConfigCmd `cmd:"" name:"list" help:"List all configuration values"`
	Path  ConfigPathCmd       `cmd:"" help:"Show config file path"`
}

// VersionCmd shows version information
type VersionCmd struct{}

func (cmd *VersionCmd) Run(ctx *kong.Context) error {
	fmt.Fprintf(ctx.Stdout, "vitals version %s\n", ctx.Model.Vars()["version"])
	return nil
}
