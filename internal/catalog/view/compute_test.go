package view

import (
	"testing"

	"catalogdesk-backend/internal/catalog"
	"catalogdesk-backend/internal/catalog/category"
	"catalogdesk-backend/internal/catalog/filter"
	"catalogdesk-backend/internal/catalog/order"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

var shelf = catalog.Dataset{
	Headers: []string{"url", "name", "price", "calories", "category", "imgUrl"},
	Rows: []catalog.Record{
		{"url": "https://s.example/1", "name": "Cold brew", "price": "10", "calories": "5", "category": "Drinks#Coffee", "imgUrl": "a.png"},
		{"url": "https://s.example/2", "name": "Green tea", "price": "7", "calories": "0", "category": "Drinks#Tea", "imgUrl": "b.png"},
		{"url": "https://s.example/3", "name": "Chips", "price": "3", "calories": "100500", "category": "Snacks", "imgUrl": "c.png"},
		{"url": "https://s.example/4", "name": "Crackers", "price": "4", "calories": "420", "category": "Snacks", "imgUrl": "d.png"},
	},
}

func rowNames(v View) []string {
	out := []string{}
	for _, r := range v.Rows {
		out = append(out, r.Record["name"])
	}
	return out
}

func TestComputeDefaults(t *testing.T) {
	idx := category.Build(shelf)
	v := Compute(shelf, idx, DefaultParams(shelf, idx, 10, language.Russian))

	require.Equal(t, []string{"Cold brew", "Green tea", "Chips", "Crackers"}, rowNames(v))
	require.Equal(t, 4, v.TotalRows)
	require.Equal(t, 1, v.TotalPages)
	require.Equal(t, []string{"Drinks", "Drinks#Coffee", "Drinks#Tea", "Snacks"}, v.Selected)
	require.Equal(t, "none", v.Sort.Mode)
	require.Len(t, v.Tree, 2)
}

func TestComputePipeline(t *testing.T) {
	idx := category.Build(shelf)
	p := DefaultParams(shelf, idx, 1, language.Russian)
	p.Categories = category.Toggle(idx, p.Categories, "Drinks#Coffee")
	p.HideSentinel = true
	p.Filters["name"] = filter.Text{Exclude: []string{"brew"}}
	p.Sort = order.Spec{Mode: order.ByColumn, Column: "price", Descending: true}
	p.Page = 7

	v := Compute(shelf, idx, p)
	require.Equal(t, 2, v.TotalRows)
	require.Equal(t, 2, v.TotalPages)
	require.Equal(t, 2, v.Page)
	require.Equal(t, []string{"Crackers"}, rowNames(v))
	require.Equal(t, 3, v.Rows[0].Index)
	require.Equal(t, filter.Spec{Kind: filter.KindText, Exclude: []string{"brew"}}, v.Filters["name"])
	require.Equal(t, SortState{Mode: "column", Column: "price", Descending: true}, v.Sort)
}

func TestComputeSearchUsesVisibleColumns(t *testing.T) {
	idx := category.Build(shelf)
	p := DefaultParams(shelf, idx, 10, language.Russian)

	// url is hidden by default
	p.Search = "s.example/3"
	require.Empty(t, Compute(shelf, idx, p).Rows)

	p.Columns = Layout{{Name: "url", Visible: true}}
	require.Equal(t, []string{"Chips"}, rowNames(Compute(shelf, idx, p)))
}

func TestComputeWithoutCategoryColumn(t *testing.T) {
	ds := catalog.Dataset{
		Headers: []string{"name"},
		Rows:    []catalog.Record{{"name": "a"}, {"name": "b"}},
	}
	idx := category.Build(ds)
	v := Compute(ds, idx, DefaultParams(ds, idx, 10, language.Russian))
	require.Equal(t, 2, v.TotalRows)
	require.Empty(t, v.Tree)
}
