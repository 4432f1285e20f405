package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/roach88/esq/internal/builder"
	"github.com/roach88/esq/internal/logger"
	"github.com/roach88/esq/internal/querydsl"
	"github.com/roach88/esq/internal/queryir"
)

// Record is one flattened hit: _index, _id and _score, the source fields,
// and highlight when present.
type Record map[string]any

// Decorator post-processes each record before it is returned.
type Decorator func(Record) Record

// Result is the outcome of Get.
type Result struct {
	Total    int64                      `json:"total"`
	List     []Record                   `json:"list"`
	Aggs     map[string]json.RawMessage `json:"aggs,omitempty"`
	ScrollID string                     `json:"scroll_id,omitempty"`
}

// Page is the outcome of Paginate. With collapsing, Total counts distinct
// collapse keys and OriginalTotal the raw hits.
type Page struct {
	Total         int64                      `json:"total"`
	OriginalTotal int64                      `json:"original_total"`
	PerPage       int                        `json:"per_page"`
	CurrentPage   int                        `json:"current_page"`
	LastPage      int                        `json:"last_page"`
	List          []Record                   `json:"list"`
	Aggs          map[string]json.RawMessage `json:"aggs,omitempty"`
}

// Runner executes query specs and shapes their responses.
type Runner struct {
	exec     Executor
	compiler *querydsl.Compiler
	decorate Decorator
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithDecorator applies d to every record.
func WithDecorator(d Decorator) RunnerOption {
	return func(r *Runner) { r.decorate = d }
}

// NewRunner creates a runner over exec. A nil exec makes every call fail
// with ErrNoExecutor.
func NewRunner(exec Executor, opts ...RunnerOption) *Runner {
	r := &Runner{exec: exec, compiler: querydsl.NewCompiler()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get runs the spec and returns the total, the decorated records, the
// aggregations and the scroll cursor when one was opened.
func (r *Runner) Get(ctx context.Context, spec *queryir.QuerySpec) (*Result, error) {
	resp, err := r.run(ctx, spec, false)
	if err != nil {
		return nil, err
	}
	list, err := r.records(resp.Hits.Hits)
	if err != nil {
		return nil, err
	}
	return &Result{
		Total:    resp.Hits.Total.Value,
		List:     list,
		Aggs:     resp.Aggregations,
		ScrollID: resp.ScrollID,
	}, nil
}

// Paginate runs page (1-based) of the given size.
//
// When the spec collapses on a field, a <field>_cardinality aggregation is
// added and its value becomes the total.
func (r *Runner) Paginate(ctx context.Context, spec *queryir.QuerySpec, page, size int) (*Page, error) {
	if page < 1 {
		return nil, fmt.Errorf("paginate: page must be >= 1, got %d", page)
	}
	if size < 1 {
		return nil, fmt.Errorf("paginate: size must be >= 1, got %d", size)
	}

	paged := spec.Clone()
	from := (page - 1) * size
	paged.From, paged.Size = &from, &size

	collapseField := paged.CollapseField()
	cardinalityAlias := collapseField + "_cardinality"
	if collapseField != "" {
		paged.Aggregations = append(paged.Aggregations, queryir.Aggregation{
			Alias:  cardinalityAlias,
			Kind:   "cardinality",
			Params: queryir.Params{"field": collapseField},
		})
	}

	resp, err := r.run(ctx, paged, true)
	if err != nil {
		return nil, err
	}

	originalTotal := resp.Hits.Total.Value
	total := originalTotal
	if collapseField != "" {
		if total, err = cardinalityValue(resp.Aggregations, cardinalityAlias); err != nil {
			return nil, fmt.Errorf("paginate: %w", err)
		}
	}

	list, err := r.records(resp.Hits.Hits)
	if err != nil {
		return nil, err
	}
	return &Page{
		Total:         total,
		OriginalTotal: originalTotal,
		PerPage:       size,
		CurrentPage:   page,
		LastPage:      int(math.Ceil(float64(total) / float64(size))),
		List:          list,
		Aggs:          resp.Aggregations,
	}, nil
}

// First returns the first record, or nil when nothing matches.
func (r *Runner) First(ctx context.Context, spec *queryir.QuerySpec) (Record, error) {
	one := spec.Clone()
	size := 1
	one.Size = &size

	resp, err := r.run(ctx, one, false)
	if err != nil {
		return nil, err
	}
	if len(resp.Hits.Hits) == 0 {
		return nil, nil
	}
	list, err := r.records(resp.Hits.Hits[:1])
	if err != nil {
		return nil, err
	}
	return list[0], nil
}

// Count returns the exact number of matching documents.
func (r *Runner) Count(ctx context.Context, spec *queryir.QuerySpec) (int64, error) {
	resp, err := r.run(ctx, spec, true)
	if err != nil {
		return 0, err
	}
	return resp.Hits.Total.Value, nil
}

// Scan walks every matching record through a scroll cursor, calling fn
// for each one, and returns the number of records visited. Pages are
// fetched while hits remain; the cursor is released at the end. A non-nil
// error from fn stops the scan and is returned.
func (r *Runner) Scan(ctx context.Context, spec *queryir.QuerySpec, fn func(Record) error) (int64, error) {
	if r.exec == nil {
		return 0, ErrNoExecutor
	}
	scan := spec.Clone()
	if scan.Scroll == "" {
		scan.Scroll = builder.DefaultScroll
	}

	req := r.request(scan, true)
	resp, err := r.exec.ExecuteWithCursor(ctx, req)
	if err != nil {
		return 0, err
	}

	var seen int64
	cursor := resp.ScrollID
	defer func() {
		if cursor != "" {
			// Release on a fresh context so a cancelled scan still frees it.
			if err := r.exec.ClearCursor(context.WithoutCancel(ctx), cursor); err != nil {
				logger.FromContext(ctx).Warn("scan: clear cursor failed",
					zap.String("scroll_id", cursor), zap.Error(err))
			}
		}
	}()

	for {
		list, err := r.records(resp.Hits.Hits)
		if err != nil {
			return seen, err
		}
		for _, rec := range list {
			if err := fn(rec); err != nil {
				return seen, err
			}
			seen++
		}

		if len(resp.Hits.Hits) == 0 || seen >= resp.Hits.Total.Value || cursor == "" {
			return seen, nil
		}

		resp, err = r.exec.ExecuteWithCursor(ctx, Request{
			Index:    scan.Index,
			Scroll:   scan.Scroll,
			ScrollID: cursor,
		})
		if err != nil {
			return seen, err
		}
		if resp.ScrollID != "" {
			cursor = resp.ScrollID
		}
	}
}

// run compiles spec and dispatches it: specs with a scroll keep-alive
// open or continue a cursor, the rest run as plain searches.
func (r *Runner) run(ctx context.Context, spec *queryir.QuerySpec, trackTotal bool) (*Response, error) {
	if r.exec == nil {
		return nil, ErrNoExecutor
	}
	req := r.request(spec, trackTotal)
	if spec.Scroll != "" {
		return r.exec.ExecuteWithCursor(ctx, req)
	}
	return r.exec.Execute(ctx, req)
}

func (r *Runner) request(spec *queryir.QuerySpec, trackTotal bool) Request {
	return Request{
		Index:          spec.Index,
		Document:       r.compiler.Compile(spec),
		Scroll:         spec.Scroll,
		ScrollID:       spec.ScrollID,
		TrackTotalHits: trackTotal,
	}
}

// records flattens hits and applies the decorator.
func (r *Runner) records(hits []Hit) ([]Record, error) {
	list := make([]Record, 0, len(hits))
	for _, h := range hits {
		rec, err := flatten(h)
		if err != nil {
			return nil, err
		}
		if r.decorate != nil {
			rec = r.decorate(rec)
		}
		list = append(list, rec)
	}
	return list, nil
}

// flatten merges hit metadata with the source fields. Source fields win
// over metadata of the same name; highlight is added last.
func flatten(h Hit) (Record, error) {
	rec := Record{
		"_index": h.Index,
		"_id":    h.ID,
		"_score": nil,
	}
	if h.Score != nil {
		rec["_score"] = *h.Score
	}

	if len(h.Source) > 0 && !bytes.Equal(bytes.TrimSpace(h.Source), []byte("null")) {
		dec := json.NewDecoder(bytes.NewReader(h.Source))
		dec.UseNumber()
		var source map[string]any
		if err := dec.Decode(&source); err != nil {
			return nil, fmt.Errorf("decode _source of %s: %w", h.ID, err)
		}
		for k, v := range source {
			rec[k] = v
		}
	}
	if len(h.Highlight) > 0 {
		rec["highlight"] = h.Highlight
	}
	return rec, nil
}

var errNoCardinality = errors.New("response has no cardinality aggregation")

func cardinalityValue(aggs map[string]json.RawMessage, alias string) (int64, error) {
	raw, ok := aggs[alias]
	if !ok {
		return 0, fmt.Errorf("%w %q", errNoCardinality, alias)
	}
	var agg struct {
		Value float64 `json:"value"`
	}
	if err := json.Unmarshal(raw, &agg); err != nil {
		return 0, fmt.Errorf("decode %s: %w", alias, err)
	}
	return int64(agg.Value), nil
}
