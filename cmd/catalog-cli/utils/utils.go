package utils

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
)

const maxCellWidth = 40

func NewTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

// LimitWidth wraps every one of `columns` cells at a readable width.
func LimitWidth(t table.Writer, columns int) {
	configs := make([]table.ColumnConfig, columns)
	for i := range configs {
		configs[i] = table.ColumnConfig{Number: i + 1, WidthMax: maxCellWidth}
	}
	t.SetColumnConfigs(configs)
}
