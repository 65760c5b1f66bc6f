package cmd

import (
	"context"
	"fmt"
	"log"

	"catalogdesk-backend/internal/rowstore"
	"catalogdesk-backend/internal/sheets"
	"catalogdesk-backend/lib/restyutil"

	"github.com/spf13/cobra"
)

var exportFlags struct {
	index       int
	url         string
	spreadsheet string
	tab         string
}

func init() {
	flags := exportCmd.Flags()
	flags.IntVar(&exportFlags.index, "index", -1, "Position of the row in the dataset.")
	flags.StringVar(&exportFlags.url, "url", "", "Product url of the row, preferred over --index.")
	flags.StringVar(&exportFlags.spreadsheet, "spreadsheet", "", "Spreadsheet id, defaults to the configured one.")
	flags.StringVar(&exportFlags.tab, "tab", "", "Destination tab, defaults to the dataset name.")

	rootCmd.AddCommand(exportCmd)
}

func openSheets(ctx context.Context) (*sheets.Client, error) {
	database, err := config.Journal.OpenDB()
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	journal, err := sheets.OpenJournal(ctx, database)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if verbose {
		sheets.SetRestyInstrumentOutput(restyutil.NewFilesystemOutput("<dev_state>/resty_telemetry/catalog-cli"))
	}
	return sheets.NewClient(config.Sheets, journal), nil
}

var exportCmd = &cobra.Command{
	Use:   "export <dataset>",
	Short: "Appends one row of a dataset to the spreadsheet.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		key := rowstore.ByIndex(exportFlags.index)
		if exportFlags.url != "" {
			key = rowstore.ByURL(exportFlags.url)
		}
		rec, headers, err := store.Row(ctx, args[0], key)
		if err != nil {
			log.Fatal(err)
		}

		client, err := openSheets(ctx)
		if err != nil {
			log.Fatal(err)
		}
		result, err := client.Export(ctx, args[0], sheets.Target{
			SpreadsheetId: exportFlags.spreadsheet,
			Tab:           exportFlags.tab,
		}, headers, rec)
		if err != nil {
			log.Fatal(err)
		}

		if result.Created {
			fmt.Printf("created tab %q\n", result.Tab)
		}
		fmt.Printf("appended to %q, %d of %d columns matched\n", result.Tab, result.Mapped, len(headers))
	},
}
