package rowstore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"catalogdesk-backend/internal/catalog"

	"github.com/stretchr/testify/require"
)

const sample = "\ufeffurl,name,price,category\n" +
	"https://shop.example/p/1?ref=ad,Cold brew,10,Drinks#Coffee\n" +
	"https://shop.example/p/2/,Green tea,\"12,5\",Drinks#Tea\n" +
	"https://shop.example/p/3,Chips,3\n"

func setup(t *testing.T) *Store {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "Lavka"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "Lavka", "drinks.csv"), []byte(sample), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("ignored"), 0644))
	return New(root, Options{})
}

func read(t *testing.T, s *Store, selector string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(s.Root(), filepath.FromSlash(selector)))
	require.NoError(t, err)
	return string(data)
}

func TestCanonicalURL(t *testing.T) {
	cases := []struct {
		in, expected string
	}{
		{in: "https://a.example/p/1", expected: "https://a.example/p/1"},
		{in: "https://a.example/p/1/", expected: "https://a.example/p/1"},
		{in: " https://a.example/p/1?x=1#top ", expected: "https://a.example/p/1"},
		{in: "https://a.example/p/1/?x=1", expected: "https://a.example/p/1"},
	}
	for _, test := range cases {
		require.Equal(t, test.expected, CanonicalURL(test.in))
	}
}

func TestList(t *testing.T) {
	s := setup(t)
	infos, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, infos, 1)
	require.Equal(t, "Lavka/drinks.csv", infos[0].Selector)
	require.Equal(t, "Lavka", infos[0].Shop)
	require.Equal(t, "drinks", infos[0].Name)
}

func TestFetch(t *testing.T) {
	s := setup(t)
	ds, err := s.Fetch(context.Background(), "Lavka/drinks.csv")
	require.NoError(t, err)
	require.Equal(t, []string{"\ufeffurl", "name", "price", "category"}, ds.Headers)
	require.Len(t, ds.Rows, 3)
	require.Equal(t, "12,5", ds.Rows[1]["price"])
	// short rows are padded
	require.Equal(t, "", ds.Rows[2]["category"])

	// callers get their own copy
	ds.Rows[0]["name"] = "changed"
	again, err := s.Fetch(context.Background(), "Lavka/drinks.csv")
	require.NoError(t, err)
	require.Equal(t, "Cold brew", again.Rows[0]["name"])
}

func TestFetchNotFound(t *testing.T) {
	s := setup(t)
	for _, selector := range []string{
		"Lavka/missing.csv",
		"../etc/passwd",
		"../../Lavka/drinks",
		"",
		"Lavka",
	} {
		_, err := s.Fetch(context.Background(), selector)
		require.ErrorIs(t, err, ErrNotFound, selector)
	}

	// parent references are clamped at the root
	ds, err := s.Fetch(context.Background(), "../Lavka/drinks.csv")
	require.NoError(t, err)
	require.Len(t, ds.Rows, 3)
}

func TestFetchSeesExternalWrites(t *testing.T) {
	s := setup(t)
	_, err := s.Fetch(context.Background(), "Lavka/drinks.csv")
	require.NoError(t, err)

	file := filepath.Join(s.Root(), "Lavka", "drinks.csv")
	require.NoError(t, os.WriteFile(file, []byte("url,name\nhttps://x.example/1,Only one row here\n"), 0644))

	ds, err := s.Fetch(context.Background(), "Lavka/drinks.csv")
	require.NoError(t, err)
	require.Len(t, ds.Rows, 1)
}

func TestUpdateRow(t *testing.T) {
	s := setup(t)
	ctx := context.Background()

	rec, err := s.UpdateRow(ctx, "Lavka/drinks.csv", ByURL("https://shop.example/p/2?utm=1"), catalog.Record{
		"price":        "13",
		"availability": "4",
	})
	require.NoError(t, err)
	require.Equal(t, "Green tea", rec["name"])
	require.Equal(t, "13", rec["price"])
	require.Equal(t, "4", rec["availability"])

	// the byte order mark survives the rewrite
	content := read(t, s, "Lavka/drinks.csv")
	require.True(t, strings.HasPrefix(content, "\ufeffurl,name,price,category,availability\n"))

	// normalized names address raw headers
	rec, err = s.UpdateRow(ctx, "Lavka/drinks.csv", ByIndex(0), catalog.Record{" url ": "https://shop.example/p/9"})
	require.NoError(t, err)
	require.Equal(t, "https://shop.example/p/9", rec["\ufeffurl"])

	ds, err := s.Fetch(ctx, "Lavka/drinks.csv")
	require.NoError(t, err)
	require.Equal(t, "", ds.Rows[0]["availability"])
	require.Equal(t, "4", ds.Rows[1]["availability"])
}

func TestUpdateRowNotFound(t *testing.T) {
	s := setup(t)
	ctx := context.Background()

	_, err := s.UpdateRow(ctx, "Lavka/drinks.csv", ByURL("https://shop.example/p/404"), catalog.Record{"price": "1"})
	require.ErrorIs(t, err, ErrNotFound)
	_, err = s.UpdateRow(ctx, "Lavka/drinks.csv", ByIndex(3), catalog.Record{"price": "1"})
	require.ErrorIs(t, err, ErrNotFound)
	_, err = s.UpdateRow(ctx, "Lavka/drinks.csv", ByIndex(-1), catalog.Record{"price": "1"})
	require.ErrorIs(t, err, ErrNotFound)

	require.Equal(t, sample, read(t, s, "Lavka/drinks.csv"))
}

func TestDeleteRow(t *testing.T) {
	s := setup(t)
	ctx := context.Background()

	deleted, err := s.DeleteRow(ctx, "Lavka/drinks.csv", ByURL("https://shop.example/p/1/"))
	require.NoError(t, err)
	require.Equal(t, "Cold brew", deleted["name"])

	ds, err := s.Fetch(ctx, "Lavka/drinks.csv")
	require.NoError(t, err)
	require.Len(t, ds.Rows, 2)
	require.Equal(t, "Green tea", ds.Rows[0]["name"])

	_, err = s.DeleteRow(ctx, "Lavka/drinks.csv", ByURL("https://shop.example/p/1"))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMergeByURL(t *testing.T) {
	s := setup(t)
	ctx := context.Background()

	changed, err := s.MergeByURL(ctx, "Lavka/drinks.csv", map[string]catalog.Record{
		"https://shop.example/p/1":    {"availability": "0"},
		"https://shop.example/p/2":    {"availability": "7"},
		"https://shop.example/p/404/": {"availability": "1"},
	})
	require.NoError(t, err)
	require.Equal(t, 2, changed)

	ds, err := s.Fetch(ctx, "Lavka/drinks.csv")
	require.NoError(t, err)
	require.Equal(t, "0", ds.Rows[0]["availability"])
	require.Equal(t, "7", ds.Rows[1]["availability"])
	require.Equal(t, "", ds.Rows[2]["availability"])

	changed, err = s.MergeByURL(ctx, "Lavka/drinks.csv", nil)
	require.NoError(t, err)
	require.Zero(t, changed)
}

func TestRow(t *testing.T) {
	s := setup(t)

	rec, headers, err := s.Row(context.Background(), "Lavka/drinks.csv", ByURL("https://shop.example/p/2"))
	require.NoError(t, err)
	require.Equal(t, "Green tea", rec["name"])
	require.Len(t, headers, 4)

	rec["name"] = "changed"
	again, _, err := s.Row(context.Background(), "Lavka/drinks.csv", ByIndex(1))
	require.NoError(t, err)
	require.Equal(t, "Green tea", again["name"])

	_, _, err = s.Row(context.Background(), "Lavka/drinks.csv", ByIndex(7))
	require.ErrorIs(t, err, ErrNotFound)
}
