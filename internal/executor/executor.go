// Package executor runs compiled search documents against a cluster.
//
// The Executor contract is small: plain searches, cursor (scroll) searches
// and cursor release. Instrumentation, response caching and journaling are
// decorators over that contract, and Runner layers the result shaping on
// top: decorated hit lists, pagination, first, count and scans.
package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/esq/internal/querydsl"
)

// ErrNoExecutor is returned when a search is requested without a
// configured cluster.
var ErrNoExecutor = errors.New("executor: no search cluster configured")

// Executor runs search requests.
type Executor interface {
	// Execute runs a single search. Scroll settings on the request are
	// ignored.
	Execute(ctx context.Context, req Request) (*Response, error)

	// ExecuteWithCursor opens a scroll when ScrollID is empty and continues
	// it otherwise. The response carries the cursor for the next page.
	ExecuteWithCursor(ctx context.Context, req Request) (*Response, error)

	// ClearCursor releases a scroll cursor.
	ClearCursor(ctx context.Context, scrollID string) error
}

// Request is one search request.
type Request struct {
	Index    string
	Document querydsl.Document
	Scroll   string // keep-alive, e.g. "2m"
	ScrollID string
	// TrackTotalHits asks for an exact hit count instead of the engine's
	// lower bound.
	TrackTotalHits bool
}

// Mode names the request kind for metrics and the journal.
func (r Request) Mode() string {
	if r.ScrollID != "" {
		return "scroll"
	}
	if r.Scroll != "" {
		return "scroll_open"
	}
	return "search"
}

// Response is a decoded search response.
type Response struct {
	Took         int64                      `json:"took"`
	TimedOut     bool                       `json:"timed_out"`
	ScrollID     string                     `json:"_scroll_id,omitempty"`
	Hits         Hits                       `json:"hits"`
	Aggregations map[string]json.RawMessage `json:"aggregations,omitempty"`
}

// Hits is the hits section of a response.
type Hits struct {
	Total    Total    `json:"total"`
	MaxScore *float64 `json:"max_score"`
	Hits     []Hit    `json:"hits"`
}

// Total is the hit count. Older engines report a bare integer; newer ones
// an object with a relation of "eq" or "gte".
type Total struct {
	Value    int64  `json:"value"`
	Relation string `json:"relation"`
}

// UnmarshalJSON accepts both the object and the integer form.
func (t *Total) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] != '{' {
		if string(data) == "null" {
			*t = Total{}
			return nil
		}
		var n int64
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("hits.total: %w", err)
		}
		*t = Total{Value: n, Relation: "eq"}
		return nil
	}
	type plain Total
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("hits.total: %w", err)
	}
	*t = Total(p)
	return nil
}

// Hit is one search hit.
type Hit struct {
	Index     string              `json:"_index"`
	ID        string              `json:"_id"`
	Score     *float64            `json:"_score"`
	Source    json.RawMessage     `json:"_source,omitempty"`
	Highlight map[string][]string `json:"highlight,omitempty"`
}

// ParseKeepAlive parses a scroll keep-alive such as "30s", "2m" or "1d".
// An empty value means the default of two minutes.
func ParseKeepAlive(s string) (time.Duration, error) {
	if s == "" {
		return 2 * time.Minute, nil
	}
	if n, ok := strings.CutSuffix(s, "d"); ok {
		d, err := time.ParseDuration(n + "h")
		if err != nil {
			return 0, fmt.Errorf("invalid scroll keep-alive %q", s)
		}
		return d * 24, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid scroll keep-alive %q", s)
	}
	return d, nil
}
