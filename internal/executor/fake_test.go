package executor

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// fakeExecutor returns queued responses and records every request.
type fakeExecutor struct {
	mu        sync.Mutex
	responses []*Response
	err       error
	requests  []Request
	cursor    []Request
	cleared   []string
	clearErr  error
}

func (f *fakeExecutor) next() (*Response, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.responses) == 0 {
		return &Response{}, nil
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp, nil
}

func (f *fakeExecutor) Execute(_ context.Context, req Request) (*Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return f.next()
}

func (f *fakeExecutor) ExecuteWithCursor(_ context.Context, req Request) (*Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cursor = append(f.cursor, req)
	return f.next()
}

func (f *fakeExecutor) ClearCursor(_ context.Context, scrollID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared = append(f.cleared, scrollID)
	return f.clearErr
}

// memoryCache is an in-memory Cache.
type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]time.Duration
	err  error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, false, c.err
	}
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *memoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.data[key] = value
	c.ttls[key] = ttl
	return nil
}

// hit builds a hit with a JSON source.
func hit(id string, score float64, source string) Hit {
	return Hit{Index: "users", ID: id, Score: &score, Source: json.RawMessage(source)}
}

// response builds a response with the given total and hits.
func response(total int64, hits ...Hit) *Response {
	return &Response{
		Took: 3,
		Hits: Hits{Total: Total{Value: total, Relation: "eq"}, Hits: hits},
	}
}
