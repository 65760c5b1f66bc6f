// Package rowstore reads and writes the scraped product tables kept as
// `<root>/<shop>/<name>.csv`.
package rowstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"catalogdesk-backend/internal/catalog"

	"github.com/google/renameio/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("catalogdesk.rowstore")

var (
	ErrNotFound = errors.New("not found")
	ErrIO       = errors.New("storage failure")
)

// DatasetInfo describes one csv file under the store root.
type DatasetInfo struct {
	Selector string    `json:"selector"`
	Shop     string    `json:"shop"`
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

type Options struct {
	// CacheSize is the number of parsed datasets kept in memory.
	CacheSize int
	CacheTTL  time.Duration
}

type cached struct {
	ds      catalog.Dataset
	modTime time.Time
	size    int64
}

// Store is safe for concurrent use. Writes are serialized, readers never
// observe a partially written file.
type Store struct {
	root  string
	mu    sync.Mutex
	cache *expirable.LRU[string, cached]
}

func New(root string, opts Options) *Store {
	if opts.CacheSize <= 0 {
		opts.CacheSize = 32
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = time.Minute * 15
	}
	return &Store{
		root:  root,
		cache: expirable.NewLRU[string, cached](opts.CacheSize, nil, opts.CacheTTL),
	}
}

func (s *Store) Root() string {
	return s.root
}

// resolve maps a selector to a file path, selectors can never leave root.
func (s *Store) resolve(selector string) (string, string, error) {
	clean := strings.TrimPrefix(path.Clean("/"+strings.TrimSpace(selector)), "/")
	if clean == "" || !strings.HasSuffix(clean, ".csv") {
		return "", "", fmt.Errorf("dataset %q: %w", selector, ErrNotFound)
	}
	return clean, filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

func ioErr(op string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrIO, err)
}

// List returns every dataset grouped by shop directory, sorted by selector.
func (s *Store) List(ctx context.Context) ([]DatasetInfo, error) {
	_, span := tracer.Start(ctx, "List")
	defer span.End()

	var out []DatasetInfo
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".csv") {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		selector := filepath.ToSlash(rel)
		shop := path.Dir(selector)
		if shop == "." {
			shop = ""
		}
		out = append(out, DatasetInfo{
			Selector: selector,
			Shop:     shop,
			Name:     strings.TrimSuffix(path.Base(selector), ".csv"),
			Size:     info.Size(),
			Modified: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, ioErr("list datasets", err)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Selector < out[j].Selector
	})
	return out, nil
}

func cloneDataset(ds catalog.Dataset) catalog.Dataset {
	out := catalog.Dataset{
		Headers: append([]string(nil), ds.Headers...),
		Rows:    make([]catalog.Record, len(ds.Rows)),
	}
	for i, r := range ds.Rows {
		out.Rows[i] = r.Clone()
	}
	return out
}

// load returns the store's own copy of a dataset, callers must clone before
// handing it out.
func (s *Store) load(ctx context.Context, selector string) (catalog.Dataset, string, error) {
	key, file, err := s.resolve(selector)
	if err != nil {
		return catalog.Dataset{}, "", err
	}

	info, err := os.Stat(file)
	if err != nil {
		return catalog.Dataset{}, "", ioErr(fmt.Sprintf("stat %s", key), err)
	}
	if info.IsDir() {
		return catalog.Dataset{}, "", fmt.Errorf("dataset %q: %w", selector, ErrNotFound)
	}

	entry, hit := s.cache.Get(key)
	if hit && entry.modTime.Equal(info.ModTime()) && entry.size == info.Size() {
		return entry.ds, key, nil
	}

	f, err := os.Open(file)
	if err != nil {
		return catalog.Dataset{}, "", ioErr(fmt.Sprintf("open %s", key), err)
	}
	defer f.Close()

	ds, err := decode(f)
	if err != nil {
		return catalog.Dataset{}, "", fmt.Errorf("parse %s: %w: %w", key, ErrIO, err)
	}
	s.cache.Add(key, cached{ds: ds, modTime: info.ModTime(), size: info.Size()})

	slog.DebugContext(ctx, "loaded dataset", "selector", key, "rows", len(ds.Rows))
	return ds, key, nil
}

// Fetch returns a private copy of the dataset at `selector`.
func (s *Store) Fetch(ctx context.Context, selector string) (catalog.Dataset, error) {
	ctx, span := tracer.Start(ctx, "Fetch")
	defer span.End()
	span.SetAttributes(attribute.String("selector", selector))

	ds, _, err := s.load(ctx, selector)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return catalog.Dataset{}, err
	}
	return cloneDataset(ds), nil
}

func (s *Store) write(ctx context.Context, key string, ds catalog.Dataset) error {
	_, file, err := s.resolve(key)
	if err != nil {
		return err
	}
	data, err := encode(ds)
	if err != nil {
		return fmt.Errorf("encode %s: %w: %w", key, ErrIO, err)
	}
	err = renameio.WriteFile(file, data, 0644)
	if err != nil {
		s.cache.Remove(key)
		return ioErr(fmt.Sprintf("write %s", key), err)
	}

	info, err := os.Stat(file)
	if err != nil {
		s.cache.Remove(key)
		return nil
	}
	s.cache.Add(key, cached{ds: ds, modTime: info.ModTime(), size: info.Size()})
	slog.DebugContext(ctx, "wrote dataset", "selector", key, "rows", len(ds.Rows))
	return nil
}

func findRow(ds catalog.Dataset, key RowKey) (int, error) {
	if key.URL != "" {
		column, ok := ds.Column(catalog.URLColumn)
		if !ok {
			return -1, fmt.Errorf("%s: dataset has no url column: %w", key, ErrNotFound)
		}
		want := CanonicalURL(key.URL)
		for i, r := range ds.Rows {
			if CanonicalURL(r[column]) == want {
				return i, nil
			}
		}
		return -1, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	if key.Index < 0 || key.Index >= len(ds.Rows) {
		return -1, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	return key.Index, nil
}

// Row returns a copy of the row addressed by `key` together with the
// dataset headers.
func (s *Store) Row(ctx context.Context, selector string, key RowKey) (catalog.Record, []string, error) {
	ctx, span := tracer.Start(ctx, "Row")
	defer span.End()

	ds, _, err := s.load(ctx, selector)
	if err != nil {
		span.RecordError(err)
		return nil, nil, err
	}
	i, err := findRow(ds, key)
	if err != nil {
		return nil, nil, err
	}
	return ds.Rows[i].Clone(), append([]string(nil), ds.Headers...), nil
}

// assign writes `partial` into `rec`, names are matched against the headers
// after normalization and unknown names become new columns.
func assign(ds *catalog.Dataset, rec catalog.Record, partial catalog.Record) {
	for name, value := range partial {
		column, ok := catalog.FindColumn(ds.Headers, name)
		if !ok {
			column = name
			ds.Headers = append(ds.Headers, name)
		}
		rec[column] = value
	}
}

// UpdateRow merges `partial` into the row addressed by `key` and returns the
// row as written.
func (s *Store) UpdateRow(ctx context.Context, selector string, key RowKey, partial catalog.Record) (catalog.Record, error) {
	ctx, span := tracer.Start(ctx, "UpdateRow")
	defer span.End()
	span.SetAttributes(
		attribute.String("selector", selector),
		attribute.String("key", key.String()),
	)

	s.mu.Lock()
	defer s.mu.Unlock()

	current, resolved, err := s.load(ctx, selector)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	i, err := findRow(current, key)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	next := cloneDataset(current)
	assign(&next, next.Rows[i], partial)
	err = s.write(ctx, resolved, next)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return next.Rows[i].Clone(), nil
}

// DeleteRow removes the row addressed by `key` and returns it.
func (s *Store) DeleteRow(ctx context.Context, selector string, key RowKey) (catalog.Record, error) {
	ctx, span := tracer.Start(ctx, "DeleteRow")
	defer span.End()
	span.SetAttributes(
		attribute.String("selector", selector),
		attribute.String("key", key.String()),
	)

	s.mu.Lock()
	defer s.mu.Unlock()

	current, resolved, err := s.load(ctx, selector)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	i, err := findRow(current, key)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	next := cloneDataset(current)
	deleted := next.Rows[i]
	next.Rows = append(next.Rows[:i], next.Rows[i+1:]...)
	err = s.write(ctx, resolved, next)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return deleted, nil
}

// MergeByURL applies `updates`, keyed by canonical url, to every matching
// row in one write and reports how many rows changed.
func (s *Store) MergeByURL(ctx context.Context, selector string, updates map[string]catalog.Record) (int, error) {
	ctx, span := tracer.Start(ctx, "MergeByURL")
	defer span.End()
	span.SetAttributes(
		attribute.String("selector", selector),
		attribute.Int("updates", len(updates)),
	)

	if len(updates) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, resolved, err := s.load(ctx, selector)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	column, ok := current.Column(catalog.URLColumn)
	if !ok {
		return 0, fmt.Errorf("dataset %s has no url column: %w", resolved, ErrNotFound)
	}

	canonical := make(map[string]catalog.Record, len(updates))
	for u, partial := range updates {
		canonical[CanonicalURL(u)] = partial
	}

	next := cloneDataset(current)
	changed := 0
	for _, row := range next.Rows {
		partial, ok := canonical[CanonicalURL(row[column])]
		if !ok {
			continue
		}
		assign(&next, row, partial)
		changed++
	}
	if changed == 0 {
		return 0, nil
	}

	err = s.write(ctx, resolved, next)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}
	slog.InfoContext(ctx, "merged row updates", "selector", resolved, "rows", changed)
	return changed, nil
}
