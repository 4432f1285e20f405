package executor

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/roach88/esq/internal/logger"
	"github.com/roach88/esq/internal/store"
)

// Recorder persists executions. *store.Store implements it.
type Recorder interface {
	WriteExecution(ctx context.Context, e store.Execution) (store.Execution, error)
}

type journaled struct {
	next     Executor
	recorder Recorder
}

// Journal writes every execution, successful or not, to rec. A failed
// write is logged and never fails the search.
func Journal(next Executor, rec Recorder) Executor {
	return &journaled{next: next, recorder: rec}
}

func (j *journaled) Execute(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := j.next.Execute(ctx, req)
	j.write(ctx, req, start, resp, err)
	return resp, err
}

func (j *journaled) ExecuteWithCursor(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := j.next.ExecuteWithCursor(ctx, req)
	j.write(ctx, req, start, resp, err)
	return resp, err
}

func (j *journaled) ClearCursor(ctx context.Context, scrollID string) error {
	return j.next.ClearCursor(ctx, scrollID)
}

func (j *journaled) write(ctx context.Context, req Request, start time.Time, resp *Response, execErr error) {
	log := logger.FromContext(ctx)

	doc, err := req.Document.Bytes()
	if err != nil {
		log.Warn("journal: encode document", zap.Error(err))
		return
	}

	e := store.Execution{
		Index:    req.Index,
		Document: json.RawMessage(doc),
		Mode:     req.Mode(),
		Scroll:   req.Scroll,
		ScrollID: req.ScrollID,
		TookMs:   time.Since(start).Milliseconds(),
	}
	if execErr != nil {
		e.Error = execErr.Error()
	}
	if resp != nil {
		e.Total = resp.Hits.Total.Value
		e.TookMs = resp.Took
		if resp.ScrollID != "" {
			e.ScrollID = resp.ScrollID
		}
	}

	written, err := j.recorder.WriteExecution(ctx, e)
	if err != nil {
		log.Warn("journal write failed", zap.Error(err))
		return
	}
	log.Debug("journaled execution",
		zap.String("id", written.ID),
		zap.Int64("seq", written.Seq),
		zap.String("doc_hash", written.DocHash),
	)
}
