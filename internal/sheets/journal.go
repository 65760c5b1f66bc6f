package sheets

import (
	"context"
	"database/sql"
	"time"

	"catalogdesk-backend/internal/rowstore"
	"catalogdesk-backend/internal/sheets/db"
)

// Journal records which rows were exported where.
type Journal struct {
	db  *sql.DB
	qry *db.Queries
}

// OpenJournal applies the schema to `database` and wraps it.
func OpenJournal(ctx context.Context, database *sql.DB) (*Journal, error) {
	_, err := database.ExecContext(ctx, db.Schema)
	if err != nil {
		return nil, err
	}
	return &Journal{db: database, qry: db.New(database)}, nil
}

type ExportRecord struct {
	Time        time.Time `json:"time"`
	Dataset     string    `json:"dataset"`
	Url         string    `json:"url"`
	Spreadsheet string    `json:"spreadsheet"`
	Tab         string    `json:"tab"`
}

func (j *Journal) Record(ctx context.Context, rec ExportRecord) error {
	return j.qry.CreateExport(ctx, db.CreateExportParams{
		Time:        rec.Time.Unix(),
		Dataset:     rec.Dataset,
		Url:         rowstore.CanonicalURL(rec.Url),
		Spreadsheet: rec.Spreadsheet,
		Tab:         rec.Tab,
	})
}

// History lists the exports of `dataset`, newest first.
func (j *Journal) History(ctx context.Context, dataset string) ([]ExportRecord, error) {
	rows, err := j.qry.GetExports(ctx, dataset)
	if err != nil {
		return nil, err
	}
	out := make([]ExportRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, ExportRecord{
			Time:        time.Unix(r.Time, 0),
			Dataset:     r.Dataset,
			Url:         r.Url,
			Spreadsheet: r.Spreadsheet,
			Tab:         r.Tab,
		})
	}
	return out, nil
}

// Exported returns the distinct canonical urls exported from `dataset`.
func (j *Journal) Exported(ctx context.Context, dataset string) ([]string, error) {
	rows, err := j.qry.GetExports(ctx, dataset)
	if err != nil {
		return nil, err
	}
	seen := map[string]struct{}{}
	out := []string{}
	for _, r := range rows {
		if _, ok := seen[r.Url]; ok || r.Url == "" {
			continue
		}
		seen[r.Url] = struct{}{}
		out = append(out, r.Url)
	}
	return out, nil
}
