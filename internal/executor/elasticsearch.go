package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/roach88/esq/internal/config"
)

// ErrElasticsearch matches every error response returned by the cluster.
var ErrElasticsearch = errors.New("elasticsearch error")

// ElasticsearchError is an error response from the cluster.
type ElasticsearchError struct {
	Status int
	Type   string
	Reason string
}

func (e *ElasticsearchError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("elasticsearch: status %d: %s", e.Status, e.Reason)
	}
	return fmt.Sprintf("elasticsearch: status %d: %s: %s", e.Status, e.Type, e.Reason)
}

// Is reports whether target is ErrElasticsearch.
func (e *ElasticsearchError) Is(target error) bool {
	return target == ErrElasticsearch
}

// Elasticsearch executes requests through the official client.
type Elasticsearch struct {
	client *elasticsearch.Client
}

// NewElasticsearch creates an executor from configuration. A nil transport
// uses the client's default HTTP transport.
func NewElasticsearch(cfg config.ElasticsearchConfig, transport http.RoundTripper) (*Elasticsearch, error) {
	if len(cfg.Addresses) == 0 {
		return nil, ErrNoExecutor
	}
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
		APIKey:    cfg.APIKey,
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}
	return &Elasticsearch{client: client}, nil
}

// Execute runs a single search.
func (e *Elasticsearch) Execute(ctx context.Context, req Request) (*Response, error) {
	opts, err := e.searchOptions(ctx, req)
	if err != nil {
		return nil, err
	}
	return decodeResponse(e.client.Search(opts...))
}

// ExecuteWithCursor opens or continues a scroll.
func (e *Elasticsearch) ExecuteWithCursor(ctx context.Context, req Request) (*Response, error) {
	keepAlive, err := ParseKeepAlive(req.Scroll)
	if err != nil {
		return nil, err
	}

	if req.ScrollID != "" {
		return decodeResponse(e.client.Scroll(
			e.client.Scroll.WithContext(ctx),
			e.client.Scroll.WithScrollID(req.ScrollID),
			e.client.Scroll.WithScroll(keepAlive),
		))
	}

	opts, err := e.searchOptions(ctx, req)
	if err != nil {
		return nil, err
	}
	opts = append(opts, e.client.Search.WithScroll(keepAlive))
	return decodeResponse(e.client.Search(opts...))
}

// ClearCursor releases a scroll cursor.
func (e *Elasticsearch) ClearCursor(ctx context.Context, scrollID string) error {
	if scrollID == "" {
		return nil
	}
	res, err := e.client.ClearScroll(
		e.client.ClearScroll.WithContext(ctx),
		e.client.ClearScroll.WithScrollID(scrollID),
	)
	if err != nil {
		return fmt.Errorf("clear scroll: %w", err)
	}
	defer res.Body.Close()

	// A cursor that already expired is not an error.
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return parseError(res)
	}
	return nil
}

func (e *Elasticsearch) searchOptions(ctx context.Context, req Request) ([]func(*esapi.SearchRequest), error) {
	body, err := req.Document.Bytes()
	if err != nil {
		return nil, fmt.Errorf("encode search body: %w", err)
	}

	opts := []func(*esapi.SearchRequest){
		e.client.Search.WithContext(ctx),
		e.client.Search.WithBody(bytes.NewReader(body)),
	}
	if req.Index != "" {
		opts = append(opts, e.client.Search.WithIndex(splitIndex(req.Index)...))
	}
	if req.TrackTotalHits {
		opts = append(opts, e.client.Search.WithTrackTotalHits(true))
	}
	return opts, nil
}

// splitIndex turns "a, b" into ["a", "b"].
func splitIndex(index string) []string {
	parts := strings.Split(index, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func decodeResponse(res *esapi.Response, err error) (*Response, error) {
	if err != nil {
		return nil, fmt.Errorf("elasticsearch request: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, parseError(res)
	}

	var out Response
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return &out, nil
}

// parseError reads an error body of the form
// {"error":{"type":..., "reason":...}, "status":N}; older clusters send
// "error" as a plain string.
func parseError(res *esapi.Response) error {
	body, _ := io.ReadAll(io.LimitReader(res.Body, 64<<10))
	out := &ElasticsearchError{Status: res.StatusCode}

	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(body, &envelope) == nil && len(envelope.Error) > 0 {
		var detail struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		}
		if json.Unmarshal(envelope.Error, &detail) == nil {
			out.Type, out.Reason = detail.Type, detail.Reason
			return out
		}
		var reason string
		if json.Unmarshal(envelope.Error, &reason) == nil {
			out.Reason = reason
			return out
		}
	}

	out.Reason = strings.TrimSpace(string(body))
	if out.Reason == "" {
		out.Reason = http.StatusText(res.StatusCode)
	}
	return out
}
