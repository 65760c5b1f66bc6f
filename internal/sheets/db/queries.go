package db

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type Export struct {
	ID          int64
	Time        int64
	Dataset     string
	Url         string
	Spreadsheet string
	Tab         string
}

type OauthToken struct {
	Name      string
	Token     string
	ExpiresAt int64
}

const createExport = `insert into export (time, dataset, url, spreadsheet, tab) values (?, ?, ?, ?, ?)`

type CreateExportParams struct {
	Time        int64
	Dataset     string
	Url         string
	Spreadsheet string
	Tab         string
}

func (q *Queries) CreateExport(ctx context.Context, arg CreateExportParams) error {
	_, err := q.db.ExecContext(ctx, createExport,
		arg.Time,
		arg.Dataset,
		arg.Url,
		arg.Spreadsheet,
		arg.Tab,
	)
	return err
}

const getExports = `select id, time, dataset, url, spreadsheet, tab from export
where dataset = ?
order by time desc, id desc`

func (q *Queries) GetExports(ctx context.Context, dataset string) ([]Export, error) {
	rows, err := q.db.QueryContext(ctx, getExports, dataset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Export
	for rows.Next() {
		var i Export
		if err := rows.Scan(
			&i.ID,
			&i.Time,
			&i.Dataset,
			&i.Url,
			&i.Spreadsheet,
			&i.Tab,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getOAuthToken = `select name, token, expires_at from oauth_token where name = ?`

func (q *Queries) GetOAuthToken(ctx context.Context, name string) (OauthToken, error) {
	row := q.db.QueryRowContext(ctx, getOAuthToken, name)
	var i OauthToken
	err := row.Scan(&i.Name, &i.Token, &i.ExpiresAt)
	return i, err
}

const saveOAuthToken = `insert into oauth_token (name, token, expires_at) values (?, ?, ?)
on conflict (name) do update set token = excluded.token, expires_at = excluded.expires_at`

type SaveOAuthTokenParams struct {
	Name      string
	Token     string
	ExpiresAt int64
}

func (q *Queries) SaveOAuthToken(ctx context.Context, arg SaveOAuthTokenParams) error {
	_, err := q.db.ExecContext(ctx, saveOAuthToken, arg.Name, arg.Token, arg.ExpiresAt)
	return err
}
