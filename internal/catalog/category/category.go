// Package category derives the category forest from a dataset's category
// column and implements the cascading selection rules over it.
package category

import (
	"strings"

	"catalogdesk-backend/internal/catalog"
)

// Delimiter separates the segments of a category path.
const Delimiter = "#"

// Node is one category in the forest. Path is the Delimiter joined names of
// every ancestor and the node itself.
type Node struct {
	Name     string  `json:"name"`
	Path     string  `json:"path"`
	Children []*Node `json:"children,omitempty"`
}

// Index is the forest built from one record set.
type Index struct {
	Roots []*Node
	// AllPaths holds the distinct canonical row paths in first-seen order.
	AllPaths []string
	// Uncategorized is set when at least one row had a blank category.
	Uncategorized bool

	nodePaths []string
	known     map[string]struct{}
}

// CanonicalPath trims every segment of `raw`, drops the blank ones and joins
// the rest back together. A value without any named segment has the
// canonical path "", so no node can share the uncategorized key.
func CanonicalPath(raw string) string {
	var segments []string
	for _, s := range strings.Split(raw, Delimiter) {
		if s = strings.TrimSpace(s); s != "" {
			segments = append(segments, s)
		}
	}
	return strings.Join(segments, Delimiter)
}

// Build walks `ds` once and derives its category forest. Datasets without a
// category column produce an empty index.
func Build(ds catalog.Dataset) Index {
	idx := Index{known: map[string]struct{}{}}
	column, ok := ds.Column(catalog.CategoryColumn)
	if !ok {
		return idx
	}

	nodes := map[string]*Node{}
	seenRowPaths := map[string]struct{}{}

	for _, row := range ds.Rows {
		path := CanonicalPath(row[column])
		if path == "" {
			idx.Uncategorized = true
			continue
		}
		if _, seen := seenRowPaths[path]; !seen {
			seenRowPaths[path] = struct{}{}
			idx.AllPaths = append(idx.AllPaths, path)
		}

		var parent *Node
		prefix := ""
		for i, name := range strings.Split(path, Delimiter) {
			if i == 0 {
				prefix = name
			} else {
				prefix = prefix + Delimiter + name
			}

			node, exists := nodes[prefix]
			if !exists {
				node = &Node{Name: name, Path: prefix}
				nodes[prefix] = node
				idx.nodePaths = append(idx.nodePaths, prefix)
				idx.known[prefix] = struct{}{}
				if parent == nil {
					idx.Roots = append(idx.Roots, node)
				} else {
					parent.Children = append(parent.Children, node)
				}
			}
			parent = node
		}
	}

	return idx
}

// NodePaths lists the path of every node in creation order.
func (idx Index) NodePaths() []string {
	out := make([]string, len(idx.nodePaths))
	copy(out, idx.nodePaths)
	return out
}

// Has reports whether `path` names a node of the forest.
func (idx Index) Has(path string) bool {
	_, ok := idx.known[path]
	return ok
}

func (idx Index) descendants(path string) []string {
	prefix := path + Delimiter
	var out []string
	for _, p := range idx.nodePaths {
		if strings.HasPrefix(p, prefix) {
			out = append(out, p)
		}
	}
	return out
}

func ancestors(path string) []string {
	segments := strings.Split(path, Delimiter)
	out := make([]string, 0, len(segments)-1)
	for i := 1; i < len(segments); i++ {
		out = append(out, strings.Join(segments[:i], Delimiter))
	}
	return out
}
