package pagevitals

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// DefaultRetryAfter is used when a 429 response has no usable Retry-After.
const DefaultRetryAfter = 10 * time.Second

// Waiter is consulted before every physical request.
type Waiter interface {
	Wait(ctx context.Context) error
}

// Executor sends single GET requests to the PageVitals API. A 429 response is
// retried exactly once after the server's Retry-After delay; everything else
// is handed back to the caller untouched.
type Executor struct {
	HTTP       *http.Client
	Budget     Waiter
	RetryAfter time.Duration // fallback delay, DefaultRetryAfter when zero
	Log        zerolog.Logger

	// timer drives the Retry-After sleep. nil means a real timer.
	timer backoff.Timer
}

// errThrottled marks a 429 that is eligible for the single retry.
var errThrottled = errors.New("rate limited by server")

// Do sends req, performing at most two physical calls. Transport failures
// are returned as *TransportError and are not retried. When the retry is
// throttled again its 429 response is returned with a nil error.
func (e *Executor) Do(req *http.Request) (*http.Response, error) {
	client := e.HTTP
	if client == nil {
		client = http.DefaultClient
	}

	delay := &retryAfterBackOff{}
	var pending *http.Response

	attempt := func() (*http.Response, error) {
		if pending != nil {
			discard(pending)
			pending = nil
		}

		if e.Budget != nil {
			if err := e.Budget.Wait(req.Context()); err != nil {
				return nil, backoff.Permanent(err)
			}
		}

		resp, err := client.Do(req)
		if err != nil {
			return nil, backoff.Permanent(&TransportError{Method: req.Method, URL: req.URL.Redacted(), Err: err})
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			delay.next = parseRetryAfter(resp.Header.Get("Retry-After"), e.fallbackDelay(), time.Now())
			pending = resp
			return resp, errThrottled
		}
		return resp, nil
	}

	notify := func(_ error, wait time.Duration) {
		e.Log.Warn().
			Str("url", req.URL.Redacted()).
			Dur("retry_after", wait).
			Msg("rate limit exceeded, retrying once")
	}

	b := backoff.WithContext(backoff.WithMaxRetries(delay, 1), req.Context())
	resp, err := backoff.RetryNotifyWithTimerAndData(attempt, b, notify, e.timer)
	if errors.Is(err, errThrottled) {
		return resp, nil
	}
	if err != nil {
		if pending != nil {
			discard(pending)
		}
		return nil, err
	}
	return resp, nil
}

func (e *Executor) fallbackDelay() time.Duration {
	if e.RetryAfter > 0 {
		return e.RetryAfter
	}
	return DefaultRetryAfter
}

// retryAfterBackOff waits whatever the last 429 asked for.
type retryAfterBackOff struct {
	next time.Duration
}

func (b *retryAfterBackOff) NextBackOff() time.Duration { return b.next }

func (b *retryAfterBackOff) Reset() {}

// parseRetryAfter accepts delay-seconds or an HTTP date. Anything else,
// including negative values, yields fallback.
func parseRetryAfter(value string, fallback time.Duration, now time.Time) time.Duration {
	if value == "" {
		return fallback
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return fallback
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
		return 0
	}
	return fallback
}

func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()
}
