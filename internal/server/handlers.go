package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"time"

	"cuelang.org/go/cue/cuecontext"
	"go.uber.org/zap"

	"github.com/roach88/esq/internal/compiler"
	"github.com/roach88/esq/internal/executor"
	"github.com/roach88/esq/internal/ir"
	"github.com/roach88/esq/internal/logger"
	"github.com/roach88/esq/internal/querydsl"
	"github.com/roach88/esq/internal/queryir"
)

const (
	codeBadRequest       = "bad_request"
	codeInvalidQuery     = "invalid_query"
	codeNotFound         = "not_found"
	codeMethodNotAllowed = "method_not_allowed"
	codeUnavailable      = "search_unavailable"
	codeUpstream         = "upstream_error"
	codeInternal         = "internal_error"
)

// Search modes accepted by POST /v1/search.
const (
	ModeGet      = "get"
	ModeFirst    = "first"
	ModeCount    = "count"
	ModePaginate = "paginate"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CompileResponse is the body of POST /v1/compile.
type CompileResponse struct {
	Index    string            `json:"index,omitempty"`
	Scroll   string            `json:"scroll,omitempty"`
	Hash     string            `json:"hash"`
	Document querydsl.Document `json:"document"`
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// handleCompile compiles a posted query spec into its document.
func (s *Server) handleCompile(w http.ResponseWriter, r *http.Request) {
	spec, ok := s.decodeSpec(w, r)
	if !ok {
		return
	}

	doc := querydsl.NewCompiler().Compile(spec)
	hash, err := ir.DocumentHash(doc)
	if err != nil {
		logger.FromContext(r.Context()).Error("hash document", zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, CompileResponse{
		Index:    spec.Index,
		Scroll:   spec.Scroll,
		Hash:     hash,
		Document: doc,
	})
}

// handleSearch compiles a posted query spec and runs it. The mode query
// parameter selects get (default), first, count or paginate; paginate
// reads page and size.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.runner == nil {
		writeError(w, http.StatusServiceUnavailable, codeUnavailable, executor.ErrNoExecutor.Error())
		return
	}

	q := r.URL.Query()
	mode := q.Get("mode")
	if mode == "" {
		mode = ModeGet
	}
	var page, size int
	if mode == ModePaginate {
		var err error
		if page, err = intParam(q.Get("page"), 1); err != nil {
			writeError(w, http.StatusBadRequest, codeBadRequest, "page: "+err.Error())
			return
		}
		if size, err = intParam(q.Get("size"), 10); err != nil {
			writeError(w, http.StatusBadRequest, codeBadRequest, "size: "+err.Error())
			return
		}
		if page < 1 || size < 1 {
			writeError(w, http.StatusBadRequest, codeBadRequest, "page and size must be >= 1")
			return
		}
	}

	spec, ok := s.decodeSpec(w, r)
	if !ok {
		return
	}
	if spec.Index == "" {
		spec.Index = s.defaultIndex
	}

	ctx := r.Context()
	var (
		body any
		err  error
	)
	switch mode {
	case ModeGet:
		body, err = s.runner.Get(ctx, spec)
	case ModeFirst:
		var rec executor.Record
		rec, err = s.runner.First(ctx, spec)
		body = map[string]any{"record": rec}
	case ModeCount:
		var n int64
		n, err = s.runner.Count(ctx, spec)
		body = map[string]int64{"count": n}
	case ModePaginate:
		body, err = s.runner.Paginate(ctx, spec, page, size)
	default:
		writeError(w, http.StatusBadRequest, codeBadRequest, fmt.Sprintf("unknown mode %q", mode))
		return
	}
	if err != nil {
		s.writeSearchError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, body)
}

// handleHealth runs every configured check.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok"}
	if len(s.checks) > 0 {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		names := make([]string, 0, len(s.checks))
		for name := range s.checks {
			names = append(names, name)
		}
		sort.Strings(names)

		resp.Checks = make(map[string]string, len(names))
		for _, name := range names {
			if err := s.checks[name](ctx); err != nil {
				resp.Status = "degraded"
				resp.Checks[name] = err.Error()
				continue
			}
			resp.Checks[name] = "ok"
		}
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// decodeSpec reads the body as a single query spec and builds it.
func (s *Server) decodeSpec(w http.ResponseWriter, r *http.Request) (*queryir.QuerySpec, bool) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "read body: "+err.Error())
		return nil, false
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, codeBadRequest, "request body is empty")
		return nil, false
	}

	q, err := compiler.CompileSingle(cuecontext.New(), data, "request", compiler.FormatJSON)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidQuery, err.Error())
		return nil, false
	}
	return q.Spec, true
}

func (s *Server) writeSearchError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())

	var esErr *executor.ElasticsearchError
	switch {
	case errors.Is(err, executor.ErrNoExecutor):
		writeError(w, http.StatusServiceUnavailable, codeUnavailable, err.Error())
	case errors.As(err, &esErr):
		log.Warn("search rejected", zap.Error(err))
		status := http.StatusBadGateway
		if esErr.Status >= 400 && esErr.Status < 500 {
			status = http.StatusBadRequest
		}
		writeError(w, status, codeUpstream, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, codeUpstream, err.Error())
	default:
		log.Error("search failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, codeUpstream, "search failed")
	}
}

func intParam(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}
