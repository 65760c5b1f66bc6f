// Package view owns the view parameters of one operator session and turns
// them, together with the active dataset, into the page to render.
package view

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"catalogdesk-backend/internal/catalog"
	"catalogdesk-backend/internal/catalog/category"
	"catalogdesk-backend/internal/catalog/filter"
	"catalogdesk-backend/internal/catalog/order"
	"catalogdesk-backend/internal/rowstore"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/text/language"
)

var tracer = otel.Tracer("catalogdesk.view")
var meter = otel.Meter("catalogdesk.view")
var recomputeCounter, _ = meter.Int64Counter("recomputes")
var recomputeDuration, _ = meter.Float64Histogram("recompute_duration_ms")

var (
	ErrUnknownColumn   = errors.New("unknown column")
	ErrUnknownCategory = errors.New("unknown category")
	ErrInvalidParam    = errors.New("invalid view parameter")
	ErrNoDataset       = errors.New("no dataset is open")
	// ErrSuperseded is returned by a load whose result was discarded because
	// a newer load started while it was in flight.
	ErrSuperseded = errors.New("superseded by a newer load")
)

// Store is the row store the controller reads datasets from and forwards
// row edits to.
type Store interface {
	Fetch(ctx context.Context, selector string) (catalog.Dataset, error)
	UpdateRow(ctx context.Context, selector string, key rowstore.RowKey, partial catalog.Record) (catalog.Record, error)
	DeleteRow(ctx context.Context, selector string, key rowstore.RowKey) (catalog.Record, error)
}

type Options struct {
	PageSize int
	Language language.Tag
}

const DefaultPageSize = 50

// Controller is safe for concurrent use. One mutex guards the dataset and
// the params, fetches run without holding it.
type Controller struct {
	store    Store
	pageSize int
	lang     language.Tag

	mu         sync.Mutex
	generation uint64
	loading    bool
	selector   string
	loaded     bool
	ds         catalog.Dataset
	idx        category.Index
	params     Params
	view       View
}

func NewController(store Store, opts Options) *Controller {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.Language == language.Und {
		opts.Language = order.DefaultLanguage
	}
	c := &Controller{
		store:    store,
		pageSize: opts.PageSize,
		lang:     opts.Language,
	}
	c.view = c.emptyView()
	return c
}

func (c *Controller) emptyView() View {
	return View{
		Headers:  []string{},
		Rows:     []Row{},
		Page:     1,
		PageSize: c.pageSize,
		Tree:     []*category.Node{},
		Selected: []string{},
		Columns:  Layout{},
		Filters:  map[string]filter.Spec{},
		Sort:     describeSort(order.Spec{}),
	}
}

// View returns the last computed view.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current()
}

// Selector is the dataset currently shown, empty before the first load.
func (c *Controller) Selector() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selector
}

func (c *Controller) current() View {
	v := c.view
	v.Loading = c.loading
	return v
}

// recompute must be called with mu held. It stores the clamped page back
// into the params.
func (c *Controller) recompute(ctx context.Context, next Params) View {
	start := time.Now()
	v := Compute(c.ds, c.idx, next)
	next.Page = v.Page
	c.params = next
	v.Dataset = c.selector
	c.view = v

	elapsed := float64(time.Since(start).Microseconds()) / 1000
	attrs := metric.WithAttributes(attribute.String("dataset", c.selector))
	recomputeCounter.Add(ctx, 1, attrs)
	recomputeDuration.Record(ctx, elapsed, attrs)
	return c.current()
}

// Open switches to the dataset at `selector` and resets every view
// parameter.
func (c *Controller) Open(ctx context.Context, selector string) (View, error) {
	return c.load(ctx, selector, true)
}

// Refresh re-fetches the current dataset keeping the view parameters, the
// category selection is reconciled against the new tree.
func (c *Controller) Refresh(ctx context.Context) (View, error) {
	c.mu.Lock()
	selector, loaded := c.selector, c.loaded
	c.mu.Unlock()
	if !loaded {
		return c.View(), ErrNoDataset
	}
	return c.load(ctx, selector, false)
}

func (c *Controller) load(ctx context.Context, selector string, reset bool) (View, error) {
	ctx, span := tracer.Start(ctx, "load")
	defer span.End()
	span.SetAttributes(
		attribute.String("selector", selector),
		attribute.Bool("reset", reset),
	)

	c.mu.Lock()
	c.generation++
	generation := c.generation
	c.loading = true
	c.mu.Unlock()

	ds, err := c.store.Fetch(ctx, selector)

	c.mu.Lock()
	defer c.mu.Unlock()

	if generation != c.generation {
		slog.DebugContext(ctx, "discarding superseded dataset load", "selector", selector)
		return c.current(), ErrSuperseded
	}
	c.loading = false

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.WarnContext(ctx, "failed to load dataset", "selector", selector, "err", err)
		return c.current(), err
	}

	switched := reset || !c.loaded || selector != c.selector
	c.ds = ds
	c.idx = category.Build(ds)
	c.selector = selector
	c.loaded = true

	var next Params
	if switched {
		next = DefaultParams(ds, c.idx, c.pageSize, c.lang)
	} else {
		next = c.params.clone()
		next.Categories = category.Reconcile(c.idx, next.Categories)
		next.Columns = next.Columns.Reconcile(ds.Headers)
		for column := range next.Filters {
			if _, ok := catalog.FindColumn(ds.Headers, column); !ok {
				delete(next.Filters, column)
			}
		}
		if next.Sort.Mode == order.ByColumn {
			if _, ok := catalog.FindColumn(ds.Headers, next.Sort.Column); !ok {
				next.Sort = order.Spec{}
			}
		}
	}
	return c.recompute(ctx, next), nil
}

// update applies `change` to a copy of the params and recomputes. When
// change fails the params stay as they were.
func (c *Controller) update(ctx context.Context, change func(p *Params) error) (View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.loaded {
		return c.current(), ErrNoDataset
	}
	next := c.params.clone()
	err := change(&next)
	if err != nil {
		return c.current(), err
	}
	return c.recompute(ctx, next), nil
}

func (c *Controller) column(name string) (string, error) {
	raw, ok := catalog.FindColumn(c.ds.Headers, name)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownColumn, name)
	}
	return raw, nil
}

func (c *Controller) SetSearch(ctx context.Context, query string) (View, error) {
	return c.update(ctx, func(p *Params) error {
		p.Search = query
		return nil
	})
}

func (c *Controller) SetHideSentinel(ctx context.Context, hide bool) (View, error) {
	return c.update(ctx, func(p *Params) error {
		p.HideSentinel = hide
		return nil
	})
}

// SetFilter replaces the filter of `column`. The filter kind must match the
// kind of the column.
func (c *Controller) SetFilter(ctx context.Context, column string, spec filter.Spec) (View, error) {
	return c.update(ctx, func(p *Params) error {
		raw, err := c.column(column)
		if err != nil {
			return err
		}
		f, err := spec.Build(catalog.KindOf(raw))
		if err != nil {
			return err
		}
		p.Filters[raw] = f
		return nil
	})
}

func (c *Controller) ClearFilter(ctx context.Context, column string) (View, error) {
	return c.update(ctx, func(p *Params) error {
		raw, err := c.column(column)
		if err != nil {
			return err
		}
		delete(p.Filters, raw)
		return nil
	})
}

func (c *Controller) ClearFilters(ctx context.Context) (View, error) {
	return c.update(ctx, func(p *Params) error {
		p.Filters = map[string]filter.ColumnFilter{}
		return nil
	})
}

// SortByColumn sorts by a column, replacing any formula sort.
func (c *Controller) SortByColumn(ctx context.Context, column string, descending bool) (View, error) {
	return c.update(ctx, func(p *Params) error {
		raw, err := c.column(column)
		if err != nil {
			return err
		}
		p.Sort = order.Spec{Mode: order.ByColumn, Column: raw, Descending: descending}
		return nil
	})
}

// ApplyFormula compiles `src` against the current headers, smoke tests it
// on a representative row and sorts by it. A rejected formula leaves the
// previous sort in place.
func (c *Controller) ApplyFormula(ctx context.Context, src string, descending bool) (View, error) {
	return c.update(ctx, func(p *Params) error {
		f, err := compileFormula(c.ds, *p, src)
		if err != nil {
			slog.DebugContext(ctx, "rejected formula", "formula", src, "err", err)
			return err
		}
		p.Sort = order.Spec{Mode: order.ByFormula, Formula: f, Descending: descending}
		return nil
	})
}

func (c *Controller) ClearSort(ctx context.Context) (View, error) {
	return c.update(ctx, func(p *Params) error {
		p.Sort = order.Spec{}
		return nil
	})
}

// SetPage moves to `page`, out of range pages are clamped.
func (c *Controller) SetPage(ctx context.Context, page int) (View, error) {
	return c.update(ctx, func(p *Params) error {
		p.Page = page
		return nil
	})
}

// SetPageSize changes the page size and goes back to the first page.
func (c *Controller) SetPageSize(ctx context.Context, size int) (View, error) {
	return c.update(ctx, func(p *Params) error {
		if size < 1 {
			return fmt.Errorf("%w: page size %d", ErrInvalidParam, size)
		}
		p.PageSize = size
		p.Page = 1
		return nil
	})
}

// ToggleCategory flips the selection of `path` with the cascade rules of
// category.Toggle. The empty path toggles uncategorized rows.
func (c *Controller) ToggleCategory(ctx context.Context, path string) (View, error) {
	return c.update(ctx, func(p *Params) error {
		canonical := category.CanonicalPath(path)
		if _, ok := c.ds.Column(catalog.CategoryColumn); !ok {
			return fmt.Errorf("%w: dataset has no category column", ErrUnknownCategory)
		}
		if canonical != "" && !c.idx.Has(canonical) {
			return fmt.Errorf("%w: %q", ErrUnknownCategory, path)
		}
		p.Categories = category.Toggle(c.idx, p.Categories, canonical)
		return nil
	})
}

// SelectAllCategories restores the default selection of every node.
func (c *Controller) SelectAllCategories(ctx context.Context) (View, error) {
	return c.update(ctx, func(p *Params) error {
		p.Categories = category.All(c.idx)
		return nil
	})
}

// SetColumns replaces the column order and visibility.
func (c *Controller) SetColumns(ctx context.Context, columns Layout) (View, error) {
	return c.update(ctx, func(p *Params) error {
		layout, err := resolveLayout(c.ds.Headers, columns)
		if err != nil {
			return err
		}
		p.Columns = layout
		return nil
	})
}

// UpdateRow writes `partial` through the store and refreshes the view.
func (c *Controller) UpdateRow(ctx context.Context, key rowstore.RowKey, partial catalog.Record) (catalog.Record, View, error) {
	selector := c.Selector()
	if selector == "" {
		return nil, c.View(), ErrNoDataset
	}
	rec, err := c.store.UpdateRow(ctx, selector, key, partial)
	if err != nil {
		return nil, c.View(), err
	}
	v, err := c.refreshAfterWrite(ctx)
	return rec, v, err
}

// refreshAfterWrite reloads the view once a write is committed. A newer load
// already reflects the write, so being superseded is not a failure.
func (c *Controller) refreshAfterWrite(ctx context.Context) (View, error) {
	v, err := c.Refresh(ctx)
	if errors.Is(err, ErrSuperseded) {
		return c.View(), nil
	}
	return v, err
}

// DeleteRow deletes a row through the store and refreshes the view.
func (c *Controller) DeleteRow(ctx context.Context, key rowstore.RowKey) (catalog.Record, View, error) {
	selector := c.Selector()
	if selector == "" {
		return nil, c.View(), ErrNoDataset
	}
	rec, err := c.store.DeleteRow(ctx, selector, key)
	if err != nil {
		return nil, c.View(), err
	}
	v, err := c.refreshAfterWrite(ctx)
	return rec, v, err
}

// ApplyAvailability merges confirmed availability updates, keyed by
// product url, into the active dataset and recomputes once. Updates for
// another dataset are ignored.
func (c *Controller) ApplyAvailability(ctx context.Context, selector string, updates map[string]catalog.Record) View {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.loaded || selector != c.selector || len(updates) == 0 {
		return c.current()
	}
	column, ok := c.ds.Column(catalog.URLColumn)
	if !ok {
		return c.current()
	}

	canonical := make(map[string]catalog.Record, len(updates))
	for u, partial := range updates {
		canonical[rowstore.CanonicalURL(u)] = partial
	}

	next := catalog.Dataset{
		Headers: append([]string(nil), c.ds.Headers...),
		Rows:    make([]catalog.Record, len(c.ds.Rows)),
	}
	for i, row := range c.ds.Rows {
		partial, ok := canonical[rowstore.CanonicalURL(row[column])]
		if !ok {
			next.Rows[i] = row
			continue
		}
		merged := row.Clone()
		for name, value := range partial {
			raw, ok := catalog.FindColumn(next.Headers, name)
			if !ok {
				raw = name
				next.Headers = append(next.Headers, name)
			}
			merged[raw] = value
		}
		next.Rows[i] = merged
	}

	c.ds = next
	c.idx = category.Build(next)
	params := c.params.clone()
	params.Categories = category.Reconcile(c.idx, params.Categories)
	params.Columns = params.Columns.Reconcile(next.Headers)
	return c.recompute(ctx, params)
}
