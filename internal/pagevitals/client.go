// Package pagevitals is a small client for the PageVitals API. Every request
// goes through an Executor, which applies the call budget and the single
// 429 retry.
package pagevitals

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/semmy-space/vitals/internal/config"
)

// UserAgent is sent with every request.
const UserAgent = "vitals-cli/1.0"

// Service is the subset of the PageVitals API used by vitals.
type Service interface {
	ListWebsites(ctx context.Context) ([]Website, error)
	ListPages(ctx context.Context, websiteID string) ([]Page, error)
	PageTimeline(ctx context.Context, websiteID, pageID string, from, to time.Time, device string) ([]TimelinePoint, error)
}

// Compile-time interface compliance check
var _ Service = (*Client)(nil)

// Client talks to the PageVitals API.
type Client struct {
	baseURL string
	exec    *Executor
}

// StaticKey returns a token source that authenticates with a fixed API key.
func StaticKey(apiKey string) oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: apiKey, TokenType: "Bearer"})
}

// NewClient creates a client for cfg.APIBase. The token source supplies the
// bearer credential and budget gates every physical request.
func NewClient(cfg *config.Config, tokenSource oauth2.TokenSource, budget Waiter, log zerolog.Logger) (*Client, error) {
	base, err := url.Parse(cfg.APIBase)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid api_base %q", cfg.APIBase)
	}

	httpClient := &http.Client{
		Transport: &oauth2.Transport{
			Source: oauth2.ReuseTokenSource(nil, tokenSource),
			Base:   http.DefaultTransport,
		},
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.APIBase, "/"),
		exec: &Executor{
			HTTP:       httpClient,
			Budget:     budget,
			RetryAfter: time.Duration(cfg.RetryAfterDefault) * time.Second,
			Log:        log,
		},
	}, nil
}

// Do performs a GET on path and returns the raw response.
func (c *Client) Do(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", UserAgent)

	return c.exec.Do(req)
}

// ListWebsites returns every website on the account.
func (c *Client) ListWebsites(ctx context.Context) ([]Website, error) {
	var out listResponse[Website]
	if err := c.getJSON(ctx, "/websites", &out); err != nil {
		return nil, err
	}
	return out.Result.List, nil
}

// ListPages returns the monitored pages of a website.
func (c *Client) ListPages(ctx context.Context, websiteID string) ([]Page, error) {
	var out listResponse[Page]
	path := "/v1/websites/" + url.PathEscape(websiteID) + "/pages"
	if err := c.getJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	return out.Result.List, nil
}

// TimelineDateFormat is the day format of the timeline range parameters.
const TimelineDateFormat = "2006-01-02"

// PageTimeline returns the daily measurements of a page between from and to,
// both inclusive, for one device type.
func (c *Client) PageTimeline(ctx context.Context, websiteID, pageID string, from, to time.Time, device string) ([]TimelinePoint, error) {
	q := url.Values{}
	q.Set("startDate", from.Format(TimelineDateFormat))
	q.Set("endDate", to.Format(TimelineDateFormat))
	if device != "" {
		q.Set("device", device)
	}

	path := "/" + url.PathEscape(websiteID) + "/pages/" + url.PathEscape(pageID) + "/timeline?" + q.Encode()

	var out timelineResponse
	if err := c.getJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	return out.Result, nil
}

func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	resp, err := c.Do(ctx, path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseErrorResponse(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// parseErrorResponse turns a non-2xx response into an *APIError.
func parseErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))

	var errResp errorResponse
	msg := ""
	if json.Unmarshal(body, &errResp) == nil {
		msg = errResp.Message
		if msg == "" {
			msg = errResp.Error
		}
	}
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}

	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}
