package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/semmy-space/vitals/internal/output"
	"github.com/semmy-space/vitals/internal/secrets"
)

// KeySetCmd stores the API key. The key is write-once.
type KeySetCmd struct {
	Stdin bool `help:"Read the key from stdin instead of prompting"`

	in io.Reader
}

// Run executes the set command
func (cmd *KeySetCmd) Run(sp *ServiceProvider, fp *FormatterProvider) error {
	key, err := cmd.readKey()
	if err != nil {
		return output.Wrap(output.ExitUsage, "Failed to read API key", err)
	}
	if key == "" {
		return output.NewCLIError(output.ExitUsage, "API key must not be empty")
	}

	store := sp.Store()
	snap, err := store.Load()
	if err != nil {
		return classify("Failed to read credentials", err)
	}

	if err := store.SetAPIKey(snap, key); err != nil {
		if errors.Is(err, secrets.ErrKeyExists) {
			return classify("API key already stored", err).
				WithHint(fmt.Sprintf("Remove %s from %s to replace it", secrets.APIKeyName, store.Path()))
		}
		return classify("Failed to store API key", err)
	}

	fp.Formatter.PrintHint(fmt.Sprintf("API key saved to %s", store.Path()))
	return nil
}

func (cmd *KeySetCmd) readKey() (string, error) {
	if cmd.in != nil {
		return readLine(cmd.in)
	}

	fd := int(os.Stdin.Fd())
	if cmd.Stdin || !term.IsTerminal(fd) {
		return readLine(os.Stdin)
	}

	fmt.Fprint(os.Stderr, "PageVitals API key: ")
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// keyStatus is the key status output.
type keyStatus struct {
	Configured bool   `json:"configured"`
	Source     string `json:"source,omitempty"`
	Key        string `json:"key,omitempty"`
}

// KeyStatusCmd reports whether an API key is available.
type KeyStatusCmd struct{}

// Run executes the status command
func (cmd *KeyStatusCmd) Run(sp *ServiceProvider, fp *FormatterProvider) error {
	key, source, err := sp.APIKey()
	if err != nil {
		var cliErr *output.CLIError
		if errors.As(err, &cliErr) && cliErr.ExitCode == output.ExitConfigError {
			if perr := fp.Formatter.Print(keyStatus{}); perr != nil {
				return perr
			}
		}
		return err
	}

	return fp.Formatter.Print(keyStatus{Configured: true, Source: source, Key: maskSecret(key)})
}

// maskSecret masks sensitive values, showing only last 4 characters
func maskSecret(value string) string {
	if value == "" {
		return ""
	}
	if len(value) <= 4 {
		return "****"
	}
	return "****" + value[len(value)-4:]
}
