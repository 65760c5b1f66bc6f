package apiserver

import (
	"errors"
	"fmt"
	"net/http"

	"catalogdesk-backend/internal/catalog"
	"catalogdesk-backend/internal/catalog/view"
	"catalogdesk-backend/internal/rowstore"
	"catalogdesk-backend/internal/sheets"
)

var errNotConfigured = errors.New("not configured on this server")

type rowRequest struct {
	Key    rowstore.RowKey `json:"key"`
	Values catalog.Record  `json:"values"`
}

type rowResponse struct {
	Record catalog.Record `json:"record"`
	View   view.View      `json:"view"`
}

func (s *Server) updateRow(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "updateRow")
	defer span.End()

	var req rowRequest
	err := decode(r, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if len(req.Values) == 0 {
		writeError(w, r, fmt.Errorf("%w: no values to update", errBadRequest))
		return
	}

	rec, v, err := s.session(w, r).UpdateRow(ctx, req.Key, req.Values)
	if err != nil {
		span.RecordError(err)
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rowResponse{Record: rec, View: v})
}

func (s *Server) deleteRow(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "deleteRow")
	defer span.End()

	var req rowRequest
	err := decode(r, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	rec, v, err := s.session(w, r).DeleteRow(ctx, req.Key)
	if err != nil {
		span.RecordError(err)
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rowResponse{Record: rec, View: v})
}

type exportRequest struct {
	Key rowstore.RowKey `json:"key"`
	sheets.Target
}

func (s *Server) exportRow(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "exportRow")
	defer span.End()

	if s.exporter == nil {
		writeError(w, r, fmt.Errorf("spreadsheet export: %w", errNotConfigured))
		return
	}
	var req exportRequest
	err := decode(r, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	selector := s.session(w, r).Selector()
	if selector == "" {
		writeError(w, r, view.ErrNoDataset)
		return
	}

	rec, headers, err := s.store.Row(ctx, selector, req.Key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	result, err := s.exporter.Export(ctx, selector, req.Target, headers, rec)
	if err != nil {
		span.RecordError(err)
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
