package pagevitals

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Website is a site monitored by PageVitals.
type Website struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Domain      string `json:"domain"`
}

// Name returns the human-readable name, falling back to the domain.
func (w Website) Name() string {
	if w.DisplayName != "" {
		return w.DisplayName
	}
	return w.Domain
}

// Page is a monitored URL of a website.
type Page struct {
	ID     string  `json:"id"`
	Alias  string  `json:"alias"`
	URL    string  `json:"url"`
	Device string  `json:"device"`
	Latest *Scores `json:"latest,omitempty"`
}

// Scores are the Lighthouse category scores of the most recent test.
type Scores struct {
	Performance   Metric `json:"performance_score"`
	Accessibility Metric `json:"accessibility_score"`
	BestPractices Metric `json:"best_practices_score"`
	SEO           Metric `json:"seo_score"`
}

// LatestScores returns the page's scores, all unset when the page has not
// been tested yet.
func (p Page) LatestScores() Scores {
	if p.Latest == nil {
		return Scores{}
	}
	return *p.Latest
}

// TimelinePoint is one day of lab measurements for a page.
type TimelinePoint struct {
	Date         string `json:"date"`
	LCP          Metric `json:"lcp"`
	FCP          Metric `json:"fcp"`
	SpeedIndex   Metric `json:"speed_index"`
	TBT          Metric `json:"tbt"`
	CLS          Metric `json:"cls"`
	TTFB         Metric `json:"ttfb"`
	TTI          Metric `json:"tti"`
	DOMElements  Metric `json:"dom_elements"`
	DOMMaxDepth  Metric `json:"dom_max_depth"`
	DOMReady     Metric `json:"dom_ready"`
	OnLoad       Metric `json:"on_load"`
	DNSTime      Metric `json:"dns_time"`
	ConnectTime  Metric `json:"connect_time"`
	ServerTime   Metric `json:"server_time"`
	TransferTime Metric `json:"transfer_time"`
}

// Metric is a number the API may omit or send as null.
type Metric struct {
	Value float64
	Valid bool
}

// String renders the value, or N/A when it is missing.
func (m Metric) String() string {
	if !m.Valid {
		return "N/A"
	}
	return strconv.FormatFloat(m.Value, 'f', -1, 64)
}

func (m Metric) MarshalJSON() ([]byte, error) {
	if !m.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(m.Value)
}

func (m *Metric) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*m = Metric{}
		return nil
	}
	if err := json.Unmarshal(data, &m.Value); err != nil {
		return err
	}
	m.Valid = true
	return nil
}

// listResponse is the envelope PageVitals wraps list results in.
type listResponse[T any] struct {
	Result struct {
		List []T `json:"list"`
	} `json:"result"`
}

// timelineResponse wraps the timeline points, which come without a list
// envelope.
type timelineResponse struct {
	Result []TimelinePoint `json:"result"`
}

// errorResponse is the body PageVitals returns on failures.
type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}
