package cmd

import (
	"log"
	"time"

	"catalogdesk-backend/cmd/catalog-cli/utils"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(datasetsCmd)
}

var datasetsCmd = &cobra.Command{
	Use:   "datasets",
	Short: "Lists every dataset under the data directory.",
	Run: func(cmd *cobra.Command, args []string) {
		infos, err := store.List(cmd.Context())
		if err != nil {
			log.Fatal(err)
		}

		t := utils.NewTable()
		t.AppendHeader(table.Row{"Dataset", "Shop", "Name", "Size", "Modified"})
		for _, info := range infos {
			t.AppendRow(table.Row{
				info.Selector,
				info.Shop,
				info.Name,
				info.Size,
				info.Modified.Format(time.DateTime),
			})
		}
		t.Render()
	},
}
