package view

import (
	"catalogdesk-backend/internal/catalog"
	"catalogdesk-backend/internal/catalog/category"
	"catalogdesk-backend/internal/catalog/filter"
	"catalogdesk-backend/internal/catalog/formula"
	"catalogdesk-backend/internal/catalog/order"

	"golang.org/x/text/language"
)

// Params are the view parameters of one pipeline run. A Params value is
// never modified in place, the controller builds a new one per change.
type Params struct {
	Categories   category.Selection
	Search       string
	HideSentinel bool
	// Filters maps raw column names to their filter.
	Filters  map[string]filter.ColumnFilter
	Sort     order.Spec
	Page     int
	PageSize int
	Columns  Layout
	Language language.Tag
}

func (p Params) clone() Params {
	next := p
	next.Filters = make(map[string]filter.ColumnFilter, len(p.Filters))
	for k, v := range p.Filters {
		next.Filters[k] = v
	}
	next.Columns = append(Layout(nil), p.Columns...)
	return next
}

// DefaultParams are the parameters right after a dataset switch.
func DefaultParams(ds catalog.Dataset, idx category.Index, pageSize int, lang language.Tag) Params {
	return Params{
		Categories: category.All(idx),
		Filters:    map[string]filter.ColumnFilter{},
		Page:       1,
		PageSize:   pageSize,
		Columns:    DefaultLayout(ds.Headers),
		Language:   lang,
	}
}

// Row is a record of the page together with its position in the dataset.
type Row struct {
	Index  int            `json:"index"`
	Record catalog.Record `json:"record"`
}

// SortState is the serializable form of an order.Spec.
type SortState struct {
	Mode       string `json:"mode"`
	Column     string `json:"column,omitempty"`
	Formula    string `json:"formula,omitempty"`
	Descending bool   `json:"descending"`
}

// View is everything needed to render one page.
type View struct {
	Dataset      string                 `json:"dataset"`
	Headers      []string               `json:"headers"`
	Rows         []Row                  `json:"rows"`
	Page         int                    `json:"page"`
	PageSize     int                    `json:"page_size"`
	TotalRows    int                    `json:"total_rows"`
	TotalPages   int                    `json:"total_pages"`
	Tree         []*category.Node       `json:"tree"`
	Selected     []string               `json:"selected"`
	Columns      Layout                 `json:"columns"`
	Search       string                 `json:"search"`
	HideSentinel bool                   `json:"hide_sentinel"`
	Filters      map[string]filter.Spec `json:"filters"`
	Sort         SortState              `json:"sort"`
	Formula      string                 `json:"formula,omitempty"`
	Loading      bool                   `json:"loading"`
}

func describeSort(spec order.Spec) SortState {
	state := SortState{Mode: spec.Mode.String(), Descending: spec.Descending}
	switch spec.Mode {
	case order.ByColumn:
		state.Column = spec.Column
	case order.ByFormula:
		if spec.Formula != nil {
			state.Formula = spec.Formula.String()
		}
	}
	return state
}

func filterParams(ds catalog.Dataset, p Params) filter.Params {
	fp := filter.Params{
		Search:        p.Search,
		SearchColumns: p.Columns.Visible(),
		HideSentinel:  p.HideSentinel,
		Columns:       p.Filters,
	}
	if _, ok := ds.Column(catalog.CategoryColumn); ok {
		selection := p.Categories
		fp.Categories = &selection
	}
	return fp
}

// Compute runs the whole pipeline: category, search, sentinel and column
// filters, then sort and pagination. It has no side effects.
func Compute(ds catalog.Dataset, idx category.Index, p Params) View {
	filtered := filter.Apply(ds, filterParams(ds, p))
	sorted := order.Sort(ds, filtered, p.Sort, p.Language)
	window := order.Paginate(len(sorted), p.Page, p.PageSize)

	rows := []Row{}
	for _, i := range window.Slice(sorted) {
		rows = append(rows, Row{Index: i, Record: ds.Rows[i]})
	}

	filters := make(map[string]filter.Spec, len(p.Filters))
	for column, f := range p.Filters {
		filters[column] = filter.Describe(f)
	}

	v := View{
		Headers:      ds.Headers,
		Rows:         rows,
		Page:         window.Page,
		PageSize:     window.Size,
		TotalRows:    len(sorted),
		TotalPages:   window.Pages,
		Tree:         idx.Roots,
		Selected:     p.Categories.Paths(),
		Columns:      p.Columns,
		Search:       p.Search,
		HideSentinel: p.HideSentinel,
		Filters:      filters,
		Sort:         describeSort(p.Sort),
	}
	if p.Sort.Mode == order.ByFormula && p.Sort.Formula != nil {
		v.Formula = p.Sort.Formula.String()
	}
	if v.Tree == nil {
		v.Tree = []*category.Node{}
	}
	return v
}

// representative picks the record a new formula is smoke tested on: the
// first row passing the current filters, else the first row of the dataset.
func representative(ds catalog.Dataset, p Params) (catalog.Record, bool) {
	filtered := filter.Apply(ds, filterParams(ds, p))
	if len(filtered) > 0 {
		return ds.Rows[filtered[0]], true
	}
	if len(ds.Rows) > 0 {
		return ds.Rows[0], true
	}
	return nil, false
}

func compileFormula(ds catalog.Dataset, p Params, src string) (*formula.Formula, error) {
	f, err := formula.Compile(src, ds.Headers)
	if err != nil {
		return nil, err
	}
	sample, ok := representative(ds, p)
	if ok {
		err = formula.Validate(f, sample)
		if err != nil {
			return nil, err
		}
	}
	return f, nil
}
