package sheets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"catalogdesk-backend/internal/catalog"
	"catalogdesk-backend/internal/sheets/db"
	"catalogdesk-backend/lib/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSheets is a minimal in-memory stand-in for the Sheets v4 REST API
// and the oauth token endpoint.
type fakeSheets struct {
	t  *testing.T
	mu sync.Mutex
	// spreadsheets maps spreadsheet id -> tab -> rows
	spreadsheets map[string]map[string][][]string
	tokenCalls   int
	rejectGrant  bool
	rejectToken  bool
}

func newFakeSheets(t *testing.T) (*fakeSheets, *httptest.Server) {
	f := &fakeSheets{t: t, spreadsheets: map[string]map[string][][]string{}}
	server := httptest.NewServer(f)
	t.Cleanup(server.Close)
	return f, server
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.URL.Path == "/token" {
		f.tokenCalls++
		if f.rejectGrant {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Write([]byte(`{"access_token":"access","expires_in":3600,"token_type":"Bearer"}`))
		return
	}

	if r.Header.Get("authorization") != "Bearer access" || f.rejectToken {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	rest, ok := strings.CutPrefix(r.URL.Path, "/v4/spreadsheets/")
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	id, rest, _ := strings.Cut(rest, "/")
	id, action, _ := strings.Cut(id, ":")
	if id == "forbidden" {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	tabs, ok := f.spreadsheets[id]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch {
	case rest == "" && action == "" && r.Method == http.MethodGet:
		sheets := []map[string]any{}
		for title := range tabs {
			sheets = append(sheets, map[string]any{
				"properties": map[string]any{"title": title},
			})
		}
		body := map[string]any{"sheets": sheets}
		json.NewEncoder(w).Encode(body)
	case action == "batchUpdate":
		var body struct {
			Requests []struct {
				AddSheet struct {
					Properties struct {
						Title string `json:"title"`
					} `json:"properties"`
				} `json:"addSheet"`
			} `json:"requests"`
		}
		assert.NoError(f.t, json.NewDecoder(r.Body).Decode(&body))
		tabs[body.Requests[0].AddSheet.Properties.Title] = [][]string{}
		w.Write([]byte(`{}`))
	case strings.HasPrefix(rest, "values/"):
		rng := strings.TrimPrefix(rest, "values/")
		rng, appending := strings.CutSuffix(rng, ":append")
		tab := strings.ReplaceAll(strings.Trim(rng[:strings.LastIndex(rng, "!")], "'"), "''", "'")
		rows := tabs[tab]

		var body valuesBody
		switch {
		case r.Method == http.MethodGet:
			if len(rows) > 0 {
				body.Values = rows[:1]
			}
			json.NewEncoder(w).Encode(body)
		case r.Method == http.MethodPut:
			assert.NoError(f.t, json.NewDecoder(r.Body).Decode(&body))
			if len(rows) == 0 {
				rows = append(rows, body.Values[0])
			} else {
				rows[0] = body.Values[0]
			}
			tabs[tab] = rows
			w.Write([]byte(`{}`))
		case appending:
			assert.Equal(f.t, "INSERT_ROWS", r.URL.Query().Get("insertDataOption"))
			assert.NoError(f.t, json.NewDecoder(r.Body).Decode(&body))
			tabs[tab] = append(rows, body.Values...)
			w.Write([]byte(`{}`))
		}
	default:
		w.WriteHeader(http.StatusBadRequest)
	}
}

func setupClient(t *testing.T, server *httptest.Server, refreshToken string) (*Client, *Journal) {
	setup, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "internal/sheets",
		DbSchema: db.Schema,
	})
	t.Cleanup(cleanup)

	journal, err := OpenJournal(context.Background(), setup.DB)
	require.NoError(t, err)

	client := NewClient(Config{
		BaseUrl: server.URL,
		OAuth: OAuthConfig{
			TokenUrl:     server.URL + "/token",
			ClientId:     "client",
			RefreshToken: refreshToken,
		},
	}, journal)
	return client, journal
}

func TestAppendCreatesTab(t *testing.T) {
	fake, server := newFakeSheets(t)
	fake.spreadsheets["book"] = map[string][][]string{}
	client, _ := setupClient(t, server, "refresh")

	result, err := client.AppendRow(
		context.Background(),
		Target{SpreadsheetId: "book", Tab: "Pete's"},
		[]string{"https://s.example/1", "Oats", "120"},
		[]string{"\ufeffurl", "name", "price"},
	)
	require.NoError(t, err)
	require.Equal(t, AppendResult{Tab: "Pete's", Created: true, Mapped: 3}, result)
	require.Equal(t, [][]string{
		{"url", "name", "price"},
		{"https://s.example/1", "Oats", "120"},
	}, fake.spreadsheets["book"]["Pete's"])
}

func TestAppendReconcilesHeaders(t *testing.T) {
	fake, server := newFakeSheets(t)
	fake.spreadsheets["book"] = map[string][][]string{
		"oats": {{"Name", "price", "url", "Notes"}},
	}
	client, _ := setupClient(t, server, "refresh")

	result, err := client.AppendRow(
		context.Background(),
		Target{SpreadsheetId: "book", Tab: "oats"},
		[]string{"https://s.example/1", "Oats", "120", "360"},
		[]string{"url", "name", "price", "calories"},
	)
	require.NoError(t, err)
	require.False(t, result.Created)
	require.Equal(t, 3, result.Mapped)
	require.Equal(t, []string{"Oats", "120", "https://s.example/1", ""}, fake.spreadsheets["book"]["oats"][1])
}

func TestAppendErrors(t *testing.T) {
	fake, server := newFakeSheets(t)
	fake.spreadsheets["book"] = map[string][][]string{}
	ctx := context.Background()
	values, headers := []string{"x"}, []string{"name"}

	client, _ := setupClient(t, server, "refresh")
	_, err := client.AppendRow(ctx, Target{SpreadsheetId: "forbidden", Tab: "t"}, values, headers)
	require.ErrorIs(t, err, ErrAccessDenied)
	_, err = client.AppendRow(ctx, Target{SpreadsheetId: "missing", Tab: "t"}, values, headers)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = client.AppendRow(ctx, Target{Tab: "t"}, values, headers)
	require.ErrorIs(t, err, ErrNotFound)

	fake.mu.Lock()
	fake.rejectToken = true
	fake.mu.Unlock()
	_, err = client.AppendRow(ctx, Target{SpreadsheetId: "book", Tab: "t"}, values, headers)
	require.ErrorIs(t, err, ErrAuthRequired)

	fake.mu.Lock()
	fake.rejectToken = false
	fake.rejectGrant = true
	fake.mu.Unlock()
	_, err = client.AppendRow(ctx, Target{SpreadsheetId: "book", Tab: "t"}, values, headers)
	require.ErrorIs(t, err, ErrAuthRequired)

	unconfigured, _ := setupClient(t, server, "")
	_, err = unconfigured.AppendRow(ctx, Target{SpreadsheetId: "book", Tab: "t"}, values, headers)
	require.ErrorIs(t, err, ErrAuthRequired)
}

func TestExportJournals(t *testing.T) {
	fake, server := newFakeSheets(t)
	fake.spreadsheets["book"] = map[string][][]string{}
	client, journal := setupClient(t, server, "refresh")
	ctx := context.Background()

	headers := []string{"url", "name"}
	for _, rec := range []catalog.Record{
		{"url": "https://s.example/1?ref=x", "name": "Oats"},
		{"url": "https://s.example/2", "name": "Rice"},
		{"url": "https://s.example/1/", "name": "Oats again"},
	} {
		result, err := client.Export(ctx, "Lavka/groats.csv", Target{SpreadsheetId: "book"}, headers, rec)
		require.NoError(t, err)
		require.Equal(t, "groats", result.Tab)
	}
	require.Len(t, fake.spreadsheets["book"]["groats"], 4)

	exported, err := journal.Exported(ctx, "Lavka/groats.csv")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"https://s.example/1", "https://s.example/2"}, exported)

	history, err := journal.History(ctx, "Lavka/groats.csv")
	require.NoError(t, err)
	require.Len(t, history, 3)

	// the access token was fetched once and is reused
	require.Equal(t, 1, fake.tokenCalls)
}
