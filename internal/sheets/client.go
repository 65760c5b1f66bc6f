// Package sheets appends catalog rows to Google Sheets tabs and keeps a
// journal of what was exported.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"catalogdesk-backend/internal/catalog"
	"catalogdesk-backend/lib/restyutil"
	"catalogdesk-backend/lib/textutil"
	"catalogdesk-backend/lib/timezone"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("catalogdesk.sheets")

var (
	ErrAuthRequired = errors.New("spreadsheet authorization required")
	ErrAccessDenied = errors.New("spreadsheet access denied")
	ErrNotFound     = errors.New("spreadsheet not found")
)

const DefaultBaseUrl = "https://sheets.googleapis.com"

type Config struct {
	BaseUrl string      `json:"base_url"`
	OAuth   OAuthConfig `json:"oauth"`
	// Spreadsheet is used when an export does not name one.
	Spreadsheet string `json:"spreadsheet"`
}

type Target struct {
	SpreadsheetId string `json:"spreadsheet_id"`
	// Tab defaults to the dataset name.
	Tab string `json:"tab"`
}

type AppendResult struct {
	Tab string `json:"tab"`
	// Created is set when the tab did not exist and was created with the
	// source header row.
	Created bool `json:"created"`
	// Mapped is the number of source columns that found a destination column.
	Mapped int `json:"mapped"`
}

type Client struct {
	http    *resty.Client
	tokens  *TokenSource
	journal *Journal
	config  Config
}

func NewClient(config Config, journal *Journal) *Client {
	if config.BaseUrl == "" {
		config.BaseUrl = DefaultBaseUrl
	}
	client := resty.New()
	client.SetBaseURL(strings.TrimRight(config.BaseUrl, "/"))
	client.SetTimeout(time.Second * 30)
	restyutil.InstrumentClient(client, tracer, restyInstrumentOutput)

	return &Client{
		http:    client,
		tokens:  NewTokenSource(client, config.OAuth, journal),
		journal: journal,
		config:  config,
	}
}

func (c *Client) Tokens() *TokenSource {
	return c.tokens
}

// Exported lists the product urls of `dataset` that were exported before.
func (c *Client) Exported(ctx context.Context, dataset string) ([]string, error) {
	return c.journal.Exported(ctx, dataset)
}

func (c *Client) Journal() *Journal {
	return c.journal
}

// quoteTab renders a tab name for use in an A1 range.
func quoteTab(tab string) string {
	return "'" + strings.ReplaceAll(tab, "'", "''") + "'"
}

func (c *Client) request(ctx context.Context) (*resty.Request, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}
	return c.http.R().SetContext(ctx).SetAuthToken(token), nil
}

func (c *Client) check(ctx context.Context, res *resty.Response, err error) error {
	if err != nil {
		return err
	}
	switch res.StatusCode() {
	case http.StatusUnauthorized:
		c.tokens.Invalidate(ctx)
		return fmt.Errorf("%w: %s", ErrAuthRequired, res.Status())
	case http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrAccessDenied, res.Status())
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, res.Status())
	}
	if res.IsError() {
		return fmt.Errorf("sheets api: %s", res.Status())
	}
	return nil
}

type spreadsheetResponse struct {
	Sheets []struct {
		Properties struct {
			Title string `json:"title"`
		} `json:"properties"`
	} `json:"sheets"`
}

type valuesBody struct {
	Values [][]string `json:"values"`
}

func (c *Client) tabs(ctx context.Context, spreadsheet string) ([]string, error) {
	req, err := c.request(ctx)
	if err != nil {
		return nil, err
	}
	var body spreadsheetResponse
	res, err := req.
		SetPathParam("id", spreadsheet).
		SetQueryParam("fields", "sheets.properties.title").
		SetResult(&body).
		Get("/v4/spreadsheets/{id}")
	err = c.check(ctx, res, err)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, s := range body.Sheets {
		out = append(out, s.Properties.Title)
	}
	return out, nil
}

func (c *Client) addTab(ctx context.Context, spreadsheet, tab string) error {
	req, err := c.request(ctx)
	if err != nil {
		return err
	}
	res, err := req.
		SetPathParam("id", spreadsheet).
		SetBody(map[string]any{
			"requests": []any{
				map[string]any{
					"addSheet": map[string]any{
						"properties": map[string]any{"title": tab},
					},
				},
			},
		}).
		Post("/v4/spreadsheets/{id}:batchUpdate")
	return c.check(ctx, res, err)
}

func (c *Client) headerRow(ctx context.Context, spreadsheet, tab string) ([]string, error) {
	req, err := c.request(ctx)
	if err != nil {
		return nil, err
	}
	var body valuesBody
	res, err := req.
		SetPathParams(map[string]string{
			"id":    spreadsheet,
			"range": quoteTab(tab) + "!1:1",
		}).
		SetResult(&body).
		Get("/v4/spreadsheets/{id}/values/{range}")
	err = c.check(ctx, res, err)
	if err != nil {
		return nil, err
	}
	if len(body.Values) == 0 {
		return nil, nil
	}
	return body.Values[0], nil
}

func (c *Client) writeHeaderRow(ctx context.Context, spreadsheet, tab string, headers []string) error {
	req, err := c.request(ctx)
	if err != nil {
		return err
	}
	res, err := req.
		SetPathParams(map[string]string{
			"id":    spreadsheet,
			"range": quoteTab(tab) + "!1:1",
		}).
		SetQueryParam("valueInputOption", "RAW").
		SetBody(valuesBody{Values: [][]string{headers}}).
		Put("/v4/spreadsheets/{id}/values/{range}")
	return c.check(ctx, res, err)
}

func (c *Client) appendValues(ctx context.Context, spreadsheet, tab string, row []string) error {
	req, err := c.request(ctx)
	if err != nil {
		return err
	}
	res, err := req.
		SetPathParams(map[string]string{
			"id":    spreadsheet,
			"range": quoteTab(tab) + "!A1",
		}).
		SetQueryParams(map[string]string{
			"valueInputOption": "USER_ENTERED",
			"insertDataOption": "INSERT_ROWS",
		}).
		SetBody(valuesBody{Values: [][]string{row}}).
		Post("/v4/spreadsheets/{id}/values/{range}:append")
	return c.check(ctx, res, err)
}

// AppendRow appends one row given in source column order. The destination
// tab's header row decides the final column order, a missing tab is
// created with the source headers.
func (c *Client) AppendRow(ctx context.Context, target Target, values []string, headers []string) (AppendResult, error) {
	ctx, span := tracer.Start(ctx, "AppendRow")
	defer span.End()
	span.SetAttributes(
		attribute.String("spreadsheet", target.SpreadsheetId),
		attribute.String("tab", target.Tab),
	)

	result, err := c.appendRow(ctx, target, values, headers)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return AppendResult{}, err
	}
	return result, nil
}

func (c *Client) appendRow(ctx context.Context, target Target, values []string, headers []string) (AppendResult, error) {
	if target.SpreadsheetId == "" {
		target.SpreadsheetId = c.config.Spreadsheet
	}
	if target.SpreadsheetId == "" || target.Tab == "" {
		return AppendResult{}, fmt.Errorf("%w: spreadsheet and tab are required", ErrNotFound)
	}

	source := make([]string, len(headers))
	for i, h := range headers {
		source[i] = textutil.NormalizeHeader(h)
	}

	tabs, err := c.tabs(ctx, target.SpreadsheetId)
	if err != nil {
		return AppendResult{}, err
	}
	exists := false
	for _, t := range tabs {
		if t == target.Tab {
			exists = true
			break
		}
	}

	result := AppendResult{Tab: target.Tab}
	var dest []string
	if exists {
		dest, err = c.headerRow(ctx, target.SpreadsheetId, target.Tab)
		if err != nil {
			return AppendResult{}, err
		}
	} else {
		err = c.addTab(ctx, target.SpreadsheetId, target.Tab)
		if err != nil {
			return AppendResult{}, err
		}
		result.Created = true
		slog.InfoContext(ctx, "created spreadsheet tab", "spreadsheet", target.SpreadsheetId, "tab", target.Tab)
	}
	if len(dest) == 0 {
		err = c.writeHeaderRow(ctx, target.SpreadsheetId, target.Tab, source)
		if err != nil {
			return AppendResult{}, err
		}
		dest = source
	}

	row, mapped := arrange(dest, source, values)
	result.Mapped = mapped
	if mapped < len(source) {
		slog.DebugContext(ctx, "some columns have no destination", "tab", target.Tab, "mapped", mapped, "columns", len(source))
	}

	err = c.appendValues(ctx, target.SpreadsheetId, target.Tab, row)
	if err != nil {
		return AppendResult{}, err
	}
	return result, nil
}

// DatasetTab is the tab a dataset exports to when none is given.
func DatasetTab(dataset string) string {
	return strings.TrimSuffix(path.Base(dataset), ".csv")
}

// Export appends one record of `dataset`, with `headers` giving the column
// order, and records the export in the journal.
func (c *Client) Export(ctx context.Context, dataset string, target Target, headers []string, rec catalog.Record) (AppendResult, error) {
	if target.Tab == "" {
		target.Tab = DatasetTab(dataset)
	}
	values := make([]string, len(headers))
	for i, h := range headers {
		values[i] = rec[h]
	}

	result, err := c.AppendRow(ctx, target, values, headers)
	if err != nil {
		return AppendResult{}, err
	}

	spreadsheet := target.SpreadsheetId
	if spreadsheet == "" {
		spreadsheet = c.config.Spreadsheet
	}
	url := ""
	if column, ok := catalog.FindColumn(headers, catalog.URLColumn); ok {
		url = rec[column]
	}
	err = c.journal.Record(ctx, ExportRecord{
		Time:        timezone.Now(),
		Dataset:     dataset,
		Url:         url,
		Spreadsheet: spreadsheet,
		Tab:         result.Tab,
	})
	if err != nil {
		slog.WarnContext(ctx, "failed to journal export", "dataset", dataset, "err", err)
	}
	return result, nil
}
