// Package logging builds the zerolog logger shared by all vitals commands.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// New returns a console logger writing to w. Warnings and errors are always
// shown; verbose adds info and debug messages.
func New(w io.Writer, verbose bool) zerolog.Logger {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}

	console := zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    !isTerminal(w),
		TimeFormat: time.Kitchen,
	}

	return zerolog.New(console).Level(level).With().Timestamp().Logger()
}

// FromEnv is New with verbosity taken from VITALS_VERBOSE as well.
func FromEnv(w io.Writer, verbose bool) zerolog.Logger {
	v := os.Getenv("VITALS_VERBOSE")
	return New(w, verbose || v == "1" || v == "true")
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
