// Package formula compiles operator-authored arithmetic over quoted column
// references, e.g. `"calories" / "price"`, into a per-row evaluator.
package formula

import (
	"errors"
	"fmt"
	"math"

	"catalogdesk-backend/internal/catalog"
)

var (
	ErrUnknownColumn  = errors.New("unknown column")
	ErrDivisionByZero = errors.New("division by zero")
	ErrSyntax         = errors.New("syntax error")
	ErrNaN            = errors.New("formula result is NaN")
)

// Formula is a compiled expression, it is immutable and safe for concurrent
// use.
type Formula struct {
	src     string
	root    node
	columns []string
}

// Compile parses `src` against the current header set. Unknown column
// references are reported first, then literal division by zero, then any
// remaining syntax error. Malformed tokens (unterminated quotes, stray
// characters) are syntax errors reported before either.
func Compile(src string, headers []string) (*Formula, error) {
	tokens, err := lex(src)
	if err != nil {
		return nil, err
	}

	columns := make(map[string]string)
	seen := make(map[string]struct{})
	var ordered []string
	for _, t := range tokens {
		if t.kind != tokenColumn {
			continue
		}
		if _, ok := columns[t.text]; ok {
			continue
		}
		raw, ok := catalog.FindColumn(headers, t.text)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, t.text)
		}
		columns[t.text] = raw
		if _, dup := seen[raw]; !dup {
			seen[raw] = struct{}{}
			ordered = append(ordered, raw)
		}
	}

	if pos, ok := literalZeroDivisor(tokens); ok {
		return nil, fmt.Errorf("%w at position %d", ErrDivisionByZero, pos)
	}

	p := &parser{tokens: tokens, columns: columns}
	root, err := p.parse()
	if err != nil {
		return nil, err
	}

	return &Formula{src: src, root: root, columns: ordered}, nil
}

// Eval computes the formula for one row. Runtime division by zero is not
// trapped and yields ±Inf or NaN.
func (f *Formula) Eval(rec catalog.Record) float64 {
	return f.root.eval(rec)
}

func (f *Formula) String() string {
	return f.src
}

// Columns returns the raw headers the formula reads, in order of first
// reference.
func (f *Formula) Columns() []string {
	out := make([]string, len(f.columns))
	copy(out, f.columns)
	return out
}

// Validate is a smoke test of the formula on a representative row, it
// rejects formulas whose result there is NaN.
func Validate(f *Formula, sample catalog.Record) error {
	if math.IsNaN(f.Eval(sample)) {
		return ErrNaN
	}
	return nil
}
