package formula

import (
	"catalogdesk-backend/internal/catalog"
)

type node interface {
	eval(rec catalog.Record) float64
}

type literal struct {
	value float64
}

func (n literal) eval(catalog.Record) float64 {
	return n.value
}

// columnRef reads a cell by its raw header name, cells that do not parse
// count as 0.
type columnRef struct {
	column string
}

func (n columnRef) eval(rec catalog.Record) float64 {
	v, ok := catalog.ParseNumber(rec[n.column])
	if !ok {
		return 0
	}
	return v
}

type negate struct {
	operand node
}

func (n negate) eval(rec catalog.Record) float64 {
	return -n.operand.eval(rec)
}

type binary struct {
	op          tokenKind
	left, right node
}

// eval follows IEEE-754, x/0 yields ±Inf or NaN.
func (n binary) eval(rec catalog.Record) float64 {
	l := n.left.eval(rec)
	r := n.right.eval(rec)
	switch n.op {
	case tokenPlus:
		return l + r
	case tokenMinus:
		return l - r
	case tokenStar:
		return l * r
	case tokenSlash:
		return l / r
	}
	panic("unreachable")
}
