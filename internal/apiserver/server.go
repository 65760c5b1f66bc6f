// Package apiserver exposes the view pipeline of every operator session
// over HTTP.
package apiserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"catalogdesk-backend/internal/availability"
	"catalogdesk-backend/internal/catalog"
	"catalogdesk-backend/internal/catalog/filter"
	"catalogdesk-backend/internal/catalog/formula"
	"catalogdesk-backend/internal/catalog/view"
	"catalogdesk-backend/internal/rowstore"
	"catalogdesk-backend/internal/sheets"
	"catalogdesk-backend/lib/serviceutil"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.opentelemetry.io/otel"
	"golang.org/x/text/language"
)

var tracer = otel.Tracer("catalogdesk.apiserver")

const SessionCookie = "catalogdesk_session"

var errBadRequest = errors.New("bad request")

// Store is the row store behind every session.
type Store interface {
	view.Store
	availability.Merger
	List(ctx context.Context) ([]rowstore.DatasetInfo, error)
	Row(ctx context.Context, selector string, key rowstore.RowKey) (catalog.Record, []string, error)
}

// Exporter appends rows to a spreadsheet and remembers which were sent.
type Exporter interface {
	Export(ctx context.Context, dataset string, target sheets.Target, headers []string, rec catalog.Record) (sheets.AppendResult, error)
	Exported(ctx context.Context, dataset string) ([]string, error)
}

type Options struct {
	AccessToken string
	SessionTTL  time.Duration
	MaxSessions int
	PageSize    int
	Language    language.Tag
}

type Server struct {
	store        Store
	exporter     Exporter
	availability *availability.Manager
	options      Options
	sessions     *expirable.LRU[string, *view.Controller]
	handler      http.Handler
}

// New creates the server, `exporter` may be nil when no spreadsheet is
// configured.
func New(store Store, exporter Exporter, manager *availability.Manager, options Options) *Server {
	if options.SessionTTL <= 0 {
		options.SessionTTL = time.Hour * 12
	}
	if options.MaxSessions <= 0 {
		options.MaxSessions = 256
	}
	s := &Server{
		store:        store,
		exporter:     exporter,
		availability: manager,
		options:      options,
		sessions:     expirable.NewLRU[string, *view.Controller](options.MaxSessions, nil, options.SessionTTL),
	}
	s.handler = serviceutil.VerifyAccessToken(options.AccessToken)(s.routes())
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/datasets", s.listDatasets).Methods(http.MethodGet)

	api.HandleFunc("/view", s.getView).Methods(http.MethodGet)
	api.HandleFunc("/view", s.patchView).Methods(http.MethodPatch)
	api.HandleFunc("/view/open", s.openDataset).Methods(http.MethodPost)
	api.HandleFunc("/view/refresh", s.refreshDataset).Methods(http.MethodPost)
	api.HandleFunc("/view/exported", s.exportedRows).Methods(http.MethodGet)
	api.HandleFunc("/view/filters", s.clearFilters).Methods(http.MethodDelete)
	api.HandleFunc("/view/filters/{column}", s.setFilter).Methods(http.MethodPut)
	api.HandleFunc("/view/filters/{column}", s.clearFilter).Methods(http.MethodDelete)
	api.HandleFunc("/view/sort", s.sortByColumn).Methods(http.MethodPut)
	api.HandleFunc("/view/sort", s.clearSort).Methods(http.MethodDelete)
	api.HandleFunc("/view/formula", s.applyFormula).Methods(http.MethodPut)
	api.HandleFunc("/view/categories/toggle", s.toggleCategory).Methods(http.MethodPost)
	api.HandleFunc("/view/categories/all", s.selectAllCategories).Methods(http.MethodPost)
	api.HandleFunc("/view/columns", s.setColumns).Methods(http.MethodPut)

	api.HandleFunc("/rows", s.updateRow).Methods(http.MethodPatch)
	api.HandleFunc("/rows", s.deleteRow).Methods(http.MethodDelete)
	api.HandleFunc("/rows/export", s.exportRow).Methods(http.MethodPost)

	api.HandleFunc("/availability", s.availabilityStatus).Methods(http.MethodGet)
	api.HandleFunc("/availability", s.startAvailability).Methods(http.MethodPost)
	api.HandleFunc("/availability", s.cancelAvailability).Methods(http.MethodDelete)
	api.HandleFunc("/availability/stream", s.streamAvailability).Methods(http.MethodGet)

	return r
}

// session returns the controller of the caller, creating a session (and
// setting its cookie) when the request carries none or an expired one.
func (s *Server) session(w http.ResponseWriter, r *http.Request) *view.Controller {
	cookie, err := r.Cookie(SessionCookie)
	if err == nil {
		if c, ok := s.sessions.Get(cookie.Value); ok {
			return c
		}
	}

	id := uuid.NewString()
	c := view.NewController(s.store, view.Options{
		PageSize: s.options.PageSize,
		Language: s.options.Language,
	})
	s.sessions.Add(id, c)
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.options.SessionTTL.Seconds()),
	})
	slog.DebugContext(r.Context(), "created session", "session", id)
	return c
}

func (s *Server) controllers() []*view.Controller {
	return s.sessions.Values()
}

type errorResponse struct {
	Error string `json:"error"`
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, view.ErrUnknownColumn),
		errors.Is(err, view.ErrUnknownCategory),
		errors.Is(err, view.ErrInvalidParam),
		errors.Is(err, filter.ErrInvalid),
		errors.Is(err, formula.ErrUnknownColumn),
		errors.Is(err, formula.ErrDivisionByZero),
		errors.Is(err, formula.ErrSyntax),
		errors.Is(err, formula.ErrNaN):
		return http.StatusBadRequest
	case errors.Is(err, sheets.ErrAuthRequired):
		return http.StatusUnauthorized
	case errors.Is(err, sheets.ErrAccessDenied):
		return http.StatusForbidden
	case errors.Is(err, rowstore.ErrNotFound),
		errors.Is(err, sheets.ErrNotFound),
		errors.Is(err, availability.ErrNoJob):
		return http.StatusNotFound
	case errors.Is(err, view.ErrNoDataset),
		errors.Is(err, view.ErrSuperseded),
		errors.Is(err, availability.ErrAlreadyRunning):
		return http.StatusConflict
	case errors.Is(err, rowstore.ErrIO):
		return http.StatusBadGateway
	case errors.Is(err, errNotConfigured):
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Warn("failed to write response", "err", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status >= 500 {
		slog.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "err", err)
	} else {
		slog.DebugContext(r.Context(), "request rejected", "path", r.URL.Path, "status", status, "err", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func decode(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err != nil {
		return fmt.Errorf("%w: %w", errBadRequest, err)
	}
	return nil
}

// ServeHTTP serves the api behind bearer token verification.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) listDatasets(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "listDatasets")
	defer span.End()

	datasets, err := s.store.List(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, datasets)
}
