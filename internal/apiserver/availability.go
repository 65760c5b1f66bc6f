package apiserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"catalogdesk-backend/internal/availability"
	"catalogdesk-backend/internal/catalog"
	"catalogdesk-backend/internal/catalog/view"
	"catalogdesk-backend/internal/rowstore"

	"github.com/gorilla/websocket"
)

const wsPingPeriod = time.Second * 15

var upgrader = websocket.Upgrader{
	CheckOrigin: func(_ *http.Request) bool { return true },
}

// dataset is the `dataset` query parameter, defaulting to the dataset open
// in the caller's session.
func (s *Server) dataset(w http.ResponseWriter, r *http.Request) (string, error) {
	if s.availability == nil {
		return "", fmt.Errorf("availability refresh: %w", errNotConfigured)
	}
	if selector := r.URL.Query().Get("dataset"); selector != "" {
		return selector, nil
	}
	selector := s.session(w, r).Selector()
	if selector == "" {
		return "", view.ErrNoDataset
	}
	return selector, nil
}

func productURLs(ds catalog.Dataset) []string {
	column, ok := ds.Column(catalog.URLColumn)
	if !ok {
		return nil
	}
	seen := map[string]bool{}
	var urls []string
	for _, row := range ds.Rows {
		u := row[column]
		key := rowstore.CanonicalURL(u)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		urls = append(urls, u)
	}
	return urls
}

type availabilityRequest struct {
	// URLs limits the refresh to these products, every product of the
	// dataset is refreshed when empty.
	URLs []string `json:"urls"`
}

// targetURLs picks the dataset urls named by `requested`, matched by
// canonical form.
func targetURLs(ds catalog.Dataset, requested []string) ([]string, error) {
	all := productURLs(ds)
	if len(requested) == 0 {
		return all, nil
	}

	byKey := map[string]string{}
	for _, u := range all {
		byKey[rowstore.CanonicalURL(u)] = u
	}
	seen := map[string]bool{}
	var urls []string
	for _, u := range requested {
		key := rowstore.CanonicalURL(u)
		target, ok := byKey[key]
		if !ok {
			return nil, fmt.Errorf("product %q: %w", u, rowstore.ErrNotFound)
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		urls = append(urls, target)
	}
	return urls, nil
}

func (s *Server) startAvailability(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "startAvailability")
	defer span.End()

	selector, err := s.dataset(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req availabilityRequest
	err = json.NewDecoder(r.Body).Decode(&req)
	if err != nil && !errors.Is(err, io.EOF) {
		writeError(w, r, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}
	ds, err := s.store.Fetch(ctx, selector)
	if err != nil {
		writeError(w, r, err)
		return
	}
	urls, err := targetURLs(ds, req.URLs)
	if err != nil {
		writeError(w, r, err)
		return
	}

	job, err := s.availability.Start(ctx, selector, urls, func(updates map[string]catalog.Record) {
		for _, c := range s.controllers() {
			c.ApplyAvailability(context.Background(), selector, updates)
		}
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, job.Status())
}

func (s *Server) availabilityStatus(w http.ResponseWriter, r *http.Request) {
	selector, err := s.dataset(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	job, ok := s.availability.Job(selector)
	if !ok {
		writeError(w, r, availability.ErrNoJob)
		return
	}
	writeJSON(w, http.StatusOK, job.Status())
}

func (s *Server) cancelAvailability(w http.ResponseWriter, r *http.Request) {
	selector, err := s.dataset(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	err = s.availability.Cancel(selector)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// streamAvailability forwards the events of a running job over a websocket
// until the job ends or the client goes away.
func (s *Server) streamAvailability(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	selector, err := s.dataset(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	job, ok := s.availability.Job(selector)
	if !ok {
		writeError(w, r, availability.ErrNoJob)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.WarnContext(ctx, "failed to upgrade websocket", "err", err)
		return
	}
	defer conn.Close()

	events, unsubscribe := job.Events()
	defer unsubscribe()

	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			_, _, err := conn.ReadMessage()
			if err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case e, ok := <-events:
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			err := conn.WriteJSON(e)
			if err != nil {
				slog.WarnContext(ctx, "failed to write availability event", "err", err)
				return
			}
		case <-ticker.C:
			err := conn.WriteMessage(websocket.PingMessage, nil)
			if err != nil {
				return
			}
		case <-clientGone:
			return
		}
	}
}
