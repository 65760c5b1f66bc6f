package view

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestDefaultLayout(t *testing.T) {
	headers := []string{
		"url", "name", "pri/we", "pro/cal", "weight", "price", "calories",
		"proteins", "fats", "carbohydrates", "content", "description",
		"availability", "last_upd_time", "category", "average_rating",
		"rating_count", "imgUrl", "brand",
	}
	expected := Layout{
		{Name: "name", Visible: true},
		{Name: "price", Visible: true},
		{Name: "weight", Visible: true},
		{Name: "calories", Visible: true},
		{Name: "proteins", Visible: true},
		{Name: "fats", Visible: true},
		{Name: "carbohydrates", Visible: true},
		{Name: "pri/we", Visible: true},
		{Name: "pro/cal", Visible: true},
		{Name: "availability", Visible: true},
		{Name: "average_rating", Visible: true},
		{Name: "category", Visible: true},
		{Name: "url", Visible: false},
		{Name: "content", Visible: false},
		{Name: "description", Visible: false},
		{Name: "rating_count", Visible: false},
		{Name: "last_upd_time", Visible: false},
		{Name: "brand", Visible: true},
	}

	diff := cmp.Diff(expected, DefaultLayout(headers))
	if diff != "" {
		t.Fatal(diff)
	}
}

func TestDefaultLayoutRawNames(t *testing.T) {
	layout := DefaultLayout([]string{"\ufeffurl", "name ", "imgUrl", "extra"})
	diff := cmp.Diff(Layout{
		{Name: "name ", Visible: true},
		{Name: "\ufeffurl", Visible: false},
		{Name: "extra", Visible: true},
	}, layout)
	if diff != "" {
		t.Fatal(diff)
	}
	require.Equal(t, []string{"name ", "extra"}, layout.Visible())
}

func TestLayoutReconcile(t *testing.T) {
	layout := Layout{
		{Name: "price", Visible: false},
		{Name: "name", Visible: true},
		{Name: "gone", Visible: true},
	}
	got := layout.Reconcile([]string{"name", "price", "availability", "url"})
	diff := cmp.Diff(Layout{
		{Name: "price", Visible: false},
		{Name: "name", Visible: true},
		{Name: "availability", Visible: true},
		{Name: "url", Visible: false},
	}, got)
	if diff != "" {
		t.Fatal(diff)
	}
}

func TestResolveLayout(t *testing.T) {
	headers := []string{"\ufeffurl", "name", "price", "imgUrl"}

	got, err := resolveLayout(headers, Layout{
		{Name: "price", Visible: true},
		{Name: "url", Visible: true},
	})
	require.NoError(t, err)
	diff := cmp.Diff(Layout{
		{Name: "price", Visible: true},
		{Name: "\ufeffurl", Visible: true},
		{Name: "name", Visible: false},
	}, got)
	if diff != "" {
		t.Fatal(diff)
	}

	_, err = resolveLayout(headers, Layout{{Name: "imgUrl", Visible: true}})
	require.ErrorIs(t, err, ErrUnknownColumn)
	_, err = resolveLayout(headers, Layout{{Name: "sugar", Visible: true}})
	require.ErrorIs(t, err, ErrUnknownColumn)
	_, err = resolveLayout(headers, Layout{{Name: "name"}, {Name: "name "}})
	require.ErrorIs(t, err, ErrInvalidParam)
}
