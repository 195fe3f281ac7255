package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/alecthomas/kong"
	"github.com/posener/complete"
	"github.com/willabides/kongplete"

	"github.com/semmy-space/vitals/internal/cli"
	"github.com/semmy-space/vitals/internal/output"
)

var (
	version = "dev"
)

func main() {
	cliInstance := &cli.CLI{}
	parser := kong.Must(cliInstance,
		kong.Name("vitals"),
		kong.Description("PageVitals CLI: discover websites and keep their IDs in a local credentials file"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)

	// Answers shell completion requests and exits when COMP_LINE is set
	kongplete.Complete(parser,
		kongplete.WithPredictor("file", complete.PredictFiles("*")),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	kctx, err := parser.Parse(os.Args[1:])
	if err == nil {
		kctx.BindTo(ctx, (*context.Context)(nil))
		err = kctx.Run()
	}
	if err == nil {
		return
	}
	stop()

	// Hooks run during parsing, so CLIErrors can surface from either step
	var cliErr *output.CLIError
	if errors.As(err, &cliErr) {
		formatter := output.New("plain")
		formatter.PrintError(cliErr)
		if cliErr.Hint != "" {
			formatter.PrintHint(cliErr.Hint)
		}
		os.Exit(cliErr.ExitCode)
	}

	var parseErr *kong.ParseError
	if errors.As(err, &parseErr) {
		parser.FatalIfErrorf(err)
	}

	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(output.ExitGeneral)
}
