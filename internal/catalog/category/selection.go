package category

import "sort"

// Selection is an immutable set of selected category paths. Every operation
// returns a new Selection and leaves its input untouched.
type Selection struct {
	paths map[string]struct{}
}

// NewSelection builds a selection out of `paths` as is, without cascading.
func NewSelection(paths ...string) Selection {
	s := Selection{paths: make(map[string]struct{}, len(paths))}
	for _, p := range paths {
		s.paths[p] = struct{}{}
	}
	return s
}

// All selects every node of the forest, it is the default selection after a
// dataset switch.
func All(idx Index) Selection {
	return NewSelection(idx.nodePaths...)
}

func (s Selection) Contains(path string) bool {
	_, ok := s.paths[path]
	return ok
}

func (s Selection) Len() int {
	return len(s.paths)
}

// Paths returns the selected paths sorted.
func (s Selection) Paths() []string {
	out := make([]string, 0, len(s.paths))
	for p := range s.paths {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func (s Selection) with(add []string, remove []string) Selection {
	next := Selection{paths: make(map[string]struct{}, len(s.paths)+len(add))}
	for p := range s.paths {
		next.paths[p] = struct{}{}
	}
	for _, p := range add {
		next.paths[p] = struct{}{}
	}
	for _, p := range remove {
		delete(next.paths, p)
	}
	return next
}

// Select adds `path` together with all of its descendants and ancestors.
func Select(idx Index, s Selection, path string) Selection {
	if path == "" {
		return s.with([]string{""}, nil)
	}
	add := []string{path}
	add = append(add, idx.descendants(path)...)
	add = append(add, ancestors(path)...)
	return s.with(add, nil)
}

// Deselect removes `path` and all of its descendants. Ancestors stay
// selected since they may still have other selected children.
func Deselect(idx Index, s Selection, path string) Selection {
	if path == "" {
		return s.with(nil, []string{""})
	}
	remove := []string{path}
	remove = append(remove, idx.descendants(path)...)
	return s.with(nil, remove)
}

// Toggle deselects `path` when it is selected and selects it otherwise.
func Toggle(idx Index, s Selection, path string) Selection {
	if s.Contains(path) {
		return Deselect(idx, s, path)
	}
	return Select(idx, s, path)
}

// Reconcile drops selected paths that no longer exist in `idx`, the empty
// path survives as long as some row is still uncategorized.
func Reconcile(idx Index, s Selection) Selection {
	next := Selection{paths: make(map[string]struct{}, len(s.paths))}
	for p := range s.paths {
		if idx.Has(p) || (p == "" && idx.Uncategorized) {
			next.paths[p] = struct{}{}
		}
	}
	return next
}
