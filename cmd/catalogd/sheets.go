package main

import (
	"context"
	"log/slog"

	"catalogdesk-backend/internal/apiserver"
	"catalogdesk-backend/internal/sheets"
	configlibsql "catalogdesk-backend/lib/configutil/libsql"
)

type SheetsConfig struct {
	sheets.Config
	Enabled bool `json:"enabled"`
}

// InitSheets opens the export journal and the spreadsheet client, a nil
// exporter disables row export.
func InitSheets(ctx context.Context, journalCfg configlibsql.Struct, cfg SheetsConfig) (apiserver.Exporter, error) {
	if !cfg.Enabled {
		slog.InfoContext(ctx, "spreadsheet export disabled")
		return nil, nil
	}

	database, err := journalCfg.OpenDB()
	if err != nil {
		return nil, err
	}
	journal, err := sheets.OpenJournal(ctx, database)
	if err != nil {
		return nil, err
	}
	return sheets.NewClient(cfg.Config, journal), nil
}
