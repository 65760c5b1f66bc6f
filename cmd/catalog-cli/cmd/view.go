package cmd

import (
	"context"
	"fmt"
	"log"
	"strings"

	"catalogdesk-backend/cmd/catalog-cli/utils"
	"catalogdesk-backend/internal/catalog"
	"catalogdesk-backend/internal/catalog/category"
	"catalogdesk-backend/internal/catalog/filter"
	"catalogdesk-backend/internal/catalog/view"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var viewFlags struct {
	search       string
	filters      []string
	sortColumn   string
	formula      string
	descending   bool
	page         int
	pageSize     int
	toggles      []string
	hideSentinel bool
	columns      []string
	tree         bool
}

func init() {
	flags := viewCmd.Flags()
	flags.StringVarP(&viewFlags.search, "search", "s", "", "Only show rows containing this text in a visible column.")
	flags.StringArrayVarP(&viewFlags.filters, "filter", "f", nil, "Column filter as column=expr, numbers take 10, 5..20, 5.. or ..20, text takes patterns like milk,!kefir.")
	flags.StringVar(&viewFlags.sortColumn, "sort", "", "Sort by this column.")
	flags.StringVar(&viewFlags.formula, "formula", "", "Sort by an arithmetic formula over numeric columns, e.g. \"price / weight\".")
	flags.BoolVar(&viewFlags.descending, "desc", false, "Sort in descending order.")
	flags.IntVarP(&viewFlags.page, "page", "p", 1, "Page to show.")
	flags.IntVar(&viewFlags.pageSize, "page-size", view.DefaultPageSize, "Rows per page.")
	flags.StringArrayVar(&viewFlags.toggles, "toggle", nil, "Toggle the selection of a category path (# delimited), may be repeated.")
	flags.BoolVar(&viewFlags.hideSentinel, "hide-sentinel", false, "Hide rows whose nutrition could not be computed.")
	flags.StringSliceVar(&viewFlags.columns, "columns", nil, "Comma separated list of the columns to show, in order.")
	flags.BoolVar(&viewFlags.tree, "tree", false, "Print the category tree instead of the rows.")

	rootCmd.AddCommand(viewCmd)
}

func applyViewFlags(ctx context.Context, c *view.Controller, v view.View) (view.View, error) {
	var err error
	if viewFlags.search != "" {
		v, err = c.SetSearch(ctx, viewFlags.search)
		if err != nil {
			return v, err
		}
	}
	if viewFlags.hideSentinel {
		v, err = c.SetHideSentinel(ctx, true)
		if err != nil {
			return v, err
		}
	}
	for _, path := range viewFlags.toggles {
		v, err = c.ToggleCategory(ctx, path)
		if err != nil {
			return v, err
		}
	}
	for _, f := range viewFlags.filters {
		column, expr, ok := strings.Cut(f, "=")
		if !ok {
			return v, fmt.Errorf("filter %q is not of the form column=expr", f)
		}
		parsed, err := filter.ParseExpr(catalog.KindOf(column), expr)
		if err != nil {
			return v, fmt.Errorf("filter %q: %w", f, err)
		}
		v, err = c.SetFilter(ctx, column, filter.Describe(parsed))
		if err != nil {
			return v, err
		}
	}
	if len(viewFlags.columns) > 0 {
		layout := make(view.Layout, len(viewFlags.columns))
		for i, name := range viewFlags.columns {
			layout[i] = view.Column{Name: strings.TrimSpace(name), Visible: true}
		}
		v, err = c.SetColumns(ctx, layout)
		if err != nil {
			return v, err
		}
	}
	switch {
	case viewFlags.formula != "":
		v, err = c.ApplyFormula(ctx, viewFlags.formula, viewFlags.descending)
	case viewFlags.sortColumn != "":
		v, err = c.SortByColumn(ctx, viewFlags.sortColumn, viewFlags.descending)
	}
	if err != nil {
		return v, err
	}
	v, err = c.SetPageSize(ctx, viewFlags.pageSize)
	if err != nil {
		return v, err
	}
	return c.SetPage(ctx, viewFlags.page)
}

func printTree(nodes []*category.Node, selected map[string]bool, depth int) {
	for _, node := range nodes {
		mark := "[ ]"
		if selected[node.Path] {
			mark = "[x]"
		}
		fmt.Printf("%s%s %s\n", strings.Repeat("  ", depth), mark, node.Name)
		printTree(node.Children, selected, depth+1)
	}
}

var viewCmd = &cobra.Command{
	Use:   "view <dataset>",
	Short: "Prints one page of a dataset after search, filters and sorting.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		c := view.NewController(store, view.Options{PageSize: viewFlags.pageSize, Language: lang})

		v, err := c.Open(ctx, args[0])
		if err != nil {
			log.Fatal(err)
		}
		v, err = applyViewFlags(ctx, c, v)
		if err != nil {
			log.Fatal(err)
		}

		if viewFlags.tree {
			selected := map[string]bool{}
			for _, path := range v.Selected {
				selected[path] = true
			}
			printTree(v.Tree, selected, 0)
			return
		}

		columns := v.Columns.Visible()
		t := utils.NewTable()
		header := table.Row{"#"}
		for _, column := range columns {
			header = append(header, column)
		}
		t.AppendHeader(header)
		for _, row := range v.Rows {
			r := table.Row{row.Index}
			for _, column := range columns {
				r = append(r, row.Record[column])
			}
			t.AppendRow(r)
		}
		t.AppendFooter(table.Row{"", fmt.Sprintf("page %d/%d, %d rows", v.Page, max(v.TotalPages, 1), v.TotalRows)})
		utils.LimitWidth(t, len(header))
		t.Render()
	},
}
