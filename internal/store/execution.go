package store

import (
	"encoding/json"
	"errors"
	"time"
)

// Execution statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// ErrNotFound is returned when no execution has the requested ID.
var ErrNotFound = errors.New("execution not found")

// Execution is one journaled search.
//
// ID and Seq are assigned by WriteExecution when left empty. Document is
// the compiled request body; it is stored in canonical form, and DocHash
// is derived from it when not supplied.
type Execution struct {
	ID            string
	Seq           int64
	Index         string
	DocHash       string
	Document      json.RawMessage
	Mode          string
	Scroll        string
	ScrollID      string
	Total         int64
	TookMs        int64
	Status        string
	Error         string
	EngineVersion string
	CreatedAt     time.Time
}

// Filter narrows ListExecutions. Zero fields match everything; Limit <= 0
// means no limit.
type Filter struct {
	DocHash string
	Index   string
	Limit   int
}

// Stats summarizes the journal.
type Stats struct {
	Executions int64
	Errors     int64
	Documents  int64
	LastSeq    int64
}
