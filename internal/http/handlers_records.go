package http

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"dolor/internal/core"
	"dolor/internal/log"
	"dolor/internal/records"
)

const summaryCacheKey = "expenses:summary"

// collection resolves the {collection} path value or writes a 404.
func (s *Server) collection(w http.ResponseWriter, r *http.Request) (string, collectionAPI, bool) {
	name := r.PathValue("collection")
	api, ok := s.collections[name]
	if !ok {
		ErrorFor(fmt.Errorf("%w: %q", core.ErrUnknownCollection, name)).Write(w)
		return "", nil, false
	}
	return name, api, true
}

// handleList serves GET /api/{collection}.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	name, api, ok := s.collection(w, r)
	if !ok {
		return
	}
	items, err := api.list(r.Context())
	if err != nil {
		s.fail(w, r, err, log.OpList, name)
		return
	}
	NewJSONResponse().Body(items).Write(w)
}

// handleCreate serves POST /api/{collection}.
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	name, api, ok := s.collection(w, r)
	if !ok {
		return
	}
	fields, err := parseFields(w, r)
	if err != nil {
		ErrorFor(err).Write(w)
		return
	}
	item, err := api.create(r.Context(), fields)
	if err != nil {
		s.fail(w, r, err, log.OpCreate, name)
		return
	}
	s.mutated(r.Context(), log.OpCreate, name, recordID(item))
	NewJSONResponse().Status(http.StatusCreated).Body(item).Write(w)
}

// handleUpdate serves PATCH /api/{collection}/{id}.
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	name, api, ok := s.collection(w, r)
	if !ok {
		return
	}
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		BadRequestError("missing record id").Write(w)
		return
	}
	fields, err := parseFields(w, r)
	if err != nil {
		ErrorFor(err).Write(w)
		return
	}
	if err := api.update(r.Context(), id, fields); err != nil {
		s.fail(w, r, err, log.OpUpdate, name)
		return
	}
	s.mutated(r.Context(), log.OpUpdate, name, id)
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

// handleDelete serves DELETE /api/{collection} with {"ids":[...]}.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	name, api, ok := s.collection(w, r)
	if !ok {
		return
	}
	ids, err := parseDeleteIDs(w, r)
	if err != nil {
		ErrorFor(err).Write(w)
		return
	}
	err = api.remove(r.Context(), ids)
	if err != nil {
		// Some ids may be gone even though the call failed.
		if name == core.CollectionExpenses {
			s.InvalidateSummary()
		}
		s.fail(w, r, err, log.OpDelete, name)
		return
	}
	s.mutated(r.Context(), log.OpDelete, name, ids...)
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

// handleSummary serves GET /api/expenses/summary.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	buckets, hit, err := s.summary.Get(r.Context(), summaryCacheKey, s.tracker.MonthlySummary)
	if err != nil {
		s.fail(w, r, err, log.OpSummary, core.CollectionExpenses)
		return
	}
	if hit {
		s.metrics.cacheHits.Add(1)
	} else {
		s.metrics.cacheMisses.Add(1)
	}
	NewJSONResponse().Body(buckets).Write(w)
}

// mutated records a successful mutation and drops the cached summary when
// expenses changed.
func (s *Server) mutated(ctx context.Context, op, collection string, ids ...string) {
	if collection == core.CollectionExpenses {
		s.InvalidateSummary()
	}
	if op == log.OpCreate {
		s.metrics.recordsCreated.Add(1)
	}
	log.NewStructuredLogger(log.FromContext(ctx)).LogMutation(ctx, op, collection, ids...)
}

// fail logs err at a level matching its response and writes the response.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, op, collection string) {
	resp := ErrorFor(err)
	fields := log.NewFields().WithRecords(collection).WithOperation(op).WithError(err)
	if ids, ok := records.FailedIDs(err); ok {
		fields[log.FieldFailedIDs] = ids
	}
	logger := log.FromContext(r.Context())
	if resp.statusCode >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed", fields.ToSlice()...)
	} else {
		logger.WarnContext(r.Context(), "Request rejected", fields.ToSlice()...)
	}
	resp.Write(w)
}

func recordID(item any) string {
	if v, ok := item.(core.Identifiable); ok {
		return v.RecordID()
	}
	return ""
}
