package cli

import (
	"context"
	"errors"
	"net/http"

	"github.com/semmy-space/vitals/internal/output"
	"github.com/semmy-space/vitals/internal/pagevitals"
	"github.com/semmy-space/vitals/internal/secrets"
)

// classify maps a domain error onto a CLIError with the matching exit code.
// msg prefixes the message.
func classify(msg string, err error) *output.CLIError {
	var cliErr *output.CLIError
	if errors.As(err, &cliErr) {
		return cliErr
	}

	var apiErr *pagevitals.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden:
			return output.Wrap(output.ExitAuth, msg, err).
				WithHint("Check the API key with: vitals key status")
		case apiErr.StatusCode == http.StatusNotFound:
			return output.Wrap(output.ExitNotFound, msg, err)
		case apiErr.RateLimited():
			return output.Wrap(output.ExitRateLimit, msg, err).
				WithHint("PageVitals is still throttling requests. Try again later.")
		default:
			return output.Wrap(output.ExitAPIError, msg, err)
		}
	}

	var transportErr *pagevitals.TransportError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return output.Wrap(output.ExitTimeout, msg, err)
	case errors.As(err, &transportErr):
		return output.Wrap(output.ExitNetworkError, msg, err)
	case errors.Is(err, secrets.ErrOwnership), errors.Is(err, secrets.ErrInsecureMode):
		return output.Wrap(output.ExitForbidden, msg, err)
	case errors.Is(err, secrets.ErrKeyExists):
		return output.Wrap(output.ExitConflict, msg, err)
	case errors.Is(err, secrets.ErrNoAPIKey):
		return output.Wrap(output.ExitConfigError, msg, err).WithHint("Run: vitals key set")
	}

	return output.Wrap(output.ExitGeneral, msg, err)
}
