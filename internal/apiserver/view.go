package apiserver

import (
	"context"
	"net/http"

	"catalogdesk-backend/internal/catalog/filter"
	"catalogdesk-backend/internal/catalog/view"

	"github.com/gorilla/mux"
)

// handle runs one controller operation for the session of the request and
// writes the resulting view.
func (s *Server) handle(w http.ResponseWriter, r *http.Request, name string, op func(ctx context.Context, c *view.Controller) (view.View, error)) {
	ctx, span := tracer.Start(r.Context(), name)
	defer span.End()

	c := s.session(w, r)
	v, err := op(ctx, c)
	if err != nil {
		span.RecordError(err)
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) getView(w http.ResponseWriter, r *http.Request) {
	s.handle(w, r, "getView", func(ctx context.Context, c *view.Controller) (view.View, error) {
		return c.View(), nil
	})
}

type openRequest struct {
	Dataset string `json:"dataset"`
}

func (s *Server) openDataset(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	err := decode(r, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.handle(w, r, "openDataset", func(ctx context.Context, c *view.Controller) (view.View, error) {
		return c.Open(ctx, req.Dataset)
	})
}

func (s *Server) refreshDataset(w http.ResponseWriter, r *http.Request) {
	s.handle(w, r, "refreshDataset", func(ctx context.Context, c *view.Controller) (view.View, error) {
		return c.Refresh(ctx)
	})
}

// patchRequest changes any subset of the scalar view parameters, a page
// change is applied after a page size change.
type patchRequest struct {
	Search       *string `json:"search"`
	HideSentinel *bool   `json:"hide_sentinel"`
	PageSize     *int    `json:"page_size"`
	Page         *int    `json:"page"`
}

func (s *Server) patchView(w http.ResponseWriter, r *http.Request) {
	var req patchRequest
	err := decode(r, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.handle(w, r, "patchView", func(ctx context.Context, c *view.Controller) (view.View, error) {
		v := c.View()
		var err error
		if req.Search != nil {
			v, err = c.SetSearch(ctx, *req.Search)
			if err != nil {
				return v, err
			}
		}
		if req.HideSentinel != nil {
			v, err = c.SetHideSentinel(ctx, *req.HideSentinel)
			if err != nil {
				return v, err
			}
		}
		if req.PageSize != nil {
			v, err = c.SetPageSize(ctx, *req.PageSize)
			if err != nil {
				return v, err
			}
		}
		if req.Page != nil {
			v, err = c.SetPage(ctx, *req.Page)
			if err != nil {
				return v, err
			}
		}
		return v, nil
	})
}

func (s *Server) exportedRows(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "exportedRows")
	defer span.End()

	if s.exporter == nil {
		writeJSON(w, http.StatusOK, []string{})
		return
	}
	selector := s.session(w, r).Selector()
	if selector == "" {
		writeError(w, r, view.ErrNoDataset)
		return
	}
	urls, err := s.exporter.Exported(ctx, selector)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if urls == nil {
		urls = []string{}
	}
	writeJSON(w, http.StatusOK, urls)
}

func (s *Server) setFilter(w http.ResponseWriter, r *http.Request) {
	var spec filter.Spec
	err := decode(r, &spec)
	if err != nil {
		writeError(w, r, err)
		return
	}
	column := mux.Vars(r)["column"]
	s.handle(w, r, "setFilter", func(ctx context.Context, c *view.Controller) (view.View, error) {
		return c.SetFilter(ctx, column, spec)
	})
}

func (s *Server) clearFilter(w http.ResponseWriter, r *http.Request) {
	column := mux.Vars(r)["column"]
	s.handle(w, r, "clearFilter", func(ctx context.Context, c *view.Controller) (view.View, error) {
		return c.ClearFilter(ctx, column)
	})
}

func (s *Server) clearFilters(w http.ResponseWriter, r *http.Request) {
	s.handle(w, r, "clearFilters", func(ctx context.Context, c *view.Controller) (view.View, error) {
		return c.ClearFilters(ctx)
	})
}

type sortRequest struct {
	Column     string `json:"column"`
	Descending bool   `json:"descending"`
}

func (s *Server) sortByColumn(w http.ResponseWriter, r *http.Request) {
	var req sortRequest
	err := decode(r, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.handle(w, r, "sortByColumn", func(ctx context.Context, c *view.Controller) (view.View, error) {
		return c.SortByColumn(ctx, req.Column, req.Descending)
	})
}

type formulaRequest struct {
	Formula    string `json:"formula"`
	Descending bool   `json:"descending"`
}

func (s *Server) applyFormula(w http.ResponseWriter, r *http.Request) {
	var req formulaRequest
	err := decode(r, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.handle(w, r, "applyFormula", func(ctx context.Context, c *view.Controller) (view.View, error) {
		return c.ApplyFormula(ctx, req.Formula, req.Descending)
	})
}

func (s *Server) clearSort(w http.ResponseWriter, r *http.Request) {
	s.handle(w, r, "clearSort", func(ctx context.Context, c *view.Controller) (view.View, error) {
		return c.ClearSort(ctx)
	})
}

type toggleRequest struct {
	Path string `json:"path"`
}

func (s *Server) toggleCategory(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	err := decode(r, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.handle(w, r, "toggleCategory", func(ctx context.Context, c *view.Controller) (view.View, error) {
		return c.ToggleCategory(ctx, req.Path)
	})
}

func (s *Server) selectAllCategories(w http.ResponseWriter, r *http.Request) {
	s.handle(w, r, "selectAllCategories", func(ctx context.Context, c *view.Controller) (view.View, error) {
		return c.SelectAllCategories(ctx)
	})
}

func (s *Server) setColumns(w http.ResponseWriter, r *http.Request) {
	var layout view.Layout
	err := decode(r, &layout)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.handle(w, r, "setColumns", func(ctx context.Context, c *view.Controller) (view.View, error) {
		return c.SetColumns(ctx, layout)
	})
}
