package cli

import (
	"os"

	"golang.org/x/term"
)

// Globals holds global flags available to all commands
type Globals struct {
	Output      string `help:"Output format" default:"auto" enum:"json,plain,csv,rich,auto" short:"o" env:"VITALS_OUTPUT"`
	Verbose     bool   `help:"Verbose output" short:"v" env:"VITALS_VERBOSE"`
	Credentials string `help:"Credentials file (overrides credentials_file)" type:"path" predictor:"file" env:"VITALS_CREDENTIALS"`
}

// ResolvedOutput returns the effective output mode
// "auto" detects TTY: if stdout is TTY -> rich, else -> plain
func (g *Globals) ResolvedOutput() string {
	if g.Output != "auto" {
		return g.Output
	}

	if term.IsTerminal(int(os.Stdout.Fd())) {
		return "rich"
	}

	return "plain"
}
