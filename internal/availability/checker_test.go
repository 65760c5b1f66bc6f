package availability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	testCases := []struct {
		line     string
		expected Result
		fails    bool
	}{
		{line: "https://shop.test/p/1 12", expected: Result{URL: "https://shop.test/p/1", Availability: 12}},
		{line: "  https://shop.test/p/2\t3.0  ", expected: Result{URL: "https://shop.test/p/2", Availability: 3}},
		{line: "https://shop.test/p/3 0", expected: Result{URL: "https://shop.test/p/3", Availability: 0}},
		{line: "https://shop.test/p/4", fails: true},
		{line: "https://shop.test/p/5 lots", fails: true},
		{line: "a b c", fails: true},
	}

	for _, test := range testCases {
		result, err := ParseLine(test.line)
		if test.fails {
			require.Error(t, err, test.line)
			continue
		}
		require.NoError(t, err, test.line)
		require.Equal(t, test.expected, result)
		require.Equal(t, test.expected, must(ParseLine(FormatLine(result))))
	}
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func TestParseQuantity(t *testing.T) {
	testCases := []struct {
		name     string
		html     string
		expected int
	}{
		{
			name:     "data attribute",
			html:     `<div id="product-quantity-block" data-quantity="7.0">В наличии 7 шт</div>`,
			expected: 7,
		},
		{
			name:     "text fallback",
			html:     `<div id="product-quantity-block"><span>В наличии</span> 15 шт</div>`,
			expected: 15,
		},
		{
			name:     "not available",
			html:     `<div id="product-quantity-block" class="ProductQuantity not_avail" data-quantity="4">Нет в наличии</div>`,
			expected: 0,
		},
		{
			name:     "tomorrow",
			html:     `<div id="product-quantity-block" data-quantity="20"><span>Завтра</span> будет 20 шт</div>`,
			expected: 0,
		},
		{
			name:     "missing block",
			html:     `<div class="product">Сыр</div>`,
			expected: 0,
		},
		{
			name:     "bad attribute uses text",
			html:     `<div id="product-quantity-block" data-quantity="?">осталось 2</div>`,
			expected: 2,
		},
		{
			name:     "no digits",
			html:     `<div id="product-quantity-block">Мало</div>`,
			expected: 0,
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			doc, err := goquery.NewDocumentFromReader(strings.NewReader(test.html))
			require.NoError(t, err)
			require.Equal(t, test.expected, ParseQuantity(doc))
		})
	}
}

type collector struct {
	mutex   sync.Mutex
	results []Result
}

func (c *collector) report(r Result) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.results = append(c.results, r)
}

func (c *collector) sorted() []Result {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	out := append([]Result(nil), c.results...)
	sort.Slice(out, func(i, j int) bool {
		return out[i].URL < out[j].URL
	})
	return out
}

func TestPageChecker(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/p/1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><div id="product-quantity-block" data-quantity="3">3 шт</div></body></html>`))
	})
	mux.HandleFunc("/p/2", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><div id="product-quantity-block" class="not_avail">Нет</div></body></html>`))
	})
	mux.HandleFunc("/p/3", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	urls := []string{server.URL + "/p/1", server.URL + "/p/2", server.URL + "/p/3"}
	c := &collector{}
	err := NewPageChecker(2, time.Second*5).Check(context.Background(), urls, c.report)
	require.NoError(t, err)

	expected := []Result{
		{URL: urls[0], Availability: 3},
		{URL: urls[1], Availability: 0},
		{URL: urls[2], Availability: 0},
	}
	if diff := cmp.Diff(expected, c.sorted()); diff != "" {
		t.Fatal("unexpected results", diff)
	}
}

func TestScriptChecker(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh is not available")
	}

	// echoes every url of the csv (skipping the header) with a count of 5
	script := `tail -n +2 "$1" | while read -r url; do echo "$url 5"; done; echo "checked" >&2; echo garbage`
	checker := ScriptChecker{Command: []string{"sh", "-c", script, "sh", FilePlaceholder}}

	c := &collector{}
	urls := []string{"https://shop.test/p/1", "https://shop.test/p/2"}
	err := checker.Check(context.Background(), urls, c.report)
	require.NoError(t, err)
	require.Equal(t, []Result{
		{URL: "https://shop.test/p/1", Availability: 5},
		{URL: "https://shop.test/p/2", Availability: 5},
	}, c.sorted())
}

func TestScriptCheckerFailure(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh is not available")
	}

	err := ScriptChecker{Command: []string{"sh", "-c", "exit 3"}}.Check(context.Background(), []string{"x"}, func(Result) {})
	require.ErrorContains(t, err, "exited with 3")

	err = ScriptChecker{}.Check(context.Background(), nil, func(Result) {})
	require.Error(t, err)
}

func TestScriptCheckerCancelKillsChildren(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh is not available")
	}

	// the background sleep inherits stdout and outlives a killed shell
	script := `echo "https://shop.test/p/1 4"; sleep 30 & wait`
	checker := ScriptChecker{Command: []string{"sh", "-c", script}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reported := make(chan Result, 1)
	finished := make(chan error, 1)
	go func() {
		finished <- checker.Check(ctx, []string{"https://shop.test/p/1"}, func(r Result) {
			reported <- r
		})
	}()

	require.Equal(t, Result{URL: "https://shop.test/p/1", Availability: 4}, <-reported)
	cancel()

	select {
	case err := <-finished:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(scriptWaitDelay - time.Second):
		t.Fatal("script checker did not return after cancellation")
	}
}
