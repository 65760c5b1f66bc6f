package formula

import (
	"fmt"
	"strconv"
	"unicode/utf8"
)

type tokenKind int

const (
	tokenNumber tokenKind = iota
	tokenColumn
	tokenPlus
	tokenMinus
	tokenStar
	tokenSlash
	tokenLParen
	tokenRParen
	tokenEOF
)

func (k tokenKind) String() string {
	switch k {
	case tokenNumber:
		return "number"
	case tokenColumn:
		return "column reference"
	case tokenPlus:
		return "'+'"
	case tokenMinus:
		return "'-'"
	case tokenStar:
		return "'*'"
	case tokenSlash:
		return "'/'"
	case tokenLParen:
		return "'('"
	case tokenRParen:
		return "')'"
	case tokenEOF:
		return "end of formula"
	}
	return "unknown token"
}

type token struct {
	kind tokenKind
	// pos is the byte offset of the token in the source.
	pos int
	// text holds the column name for tokenColumn and the literal for
	// tokenNumber.
	text  string
	value float64
}

func syntaxErr(pos int, format string, args ...any) error {
	return fmt.Errorf("%w at position %d: %s", ErrSyntax, pos, fmt.Sprintf(format, args...))
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func lex(src string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '+':
			tokens = append(tokens, token{kind: tokenPlus, pos: i})
			i++
		case c == '-':
			tokens = append(tokens, token{kind: tokenMinus, pos: i})
			i++
		case c == '*':
			tokens = append(tokens, token{kind: tokenStar, pos: i})
			i++
		case c == '/':
			tokens = append(tokens, token{kind: tokenSlash, pos: i})
			i++
		case c == '(':
			tokens = append(tokens, token{kind: tokenLParen, pos: i})
			i++
		case c == ')':
			tokens = append(tokens, token{kind: tokenRParen, pos: i})
			i++
		case c == '"':
			start := i
			i++
			for i < len(src) && src[i] != '"' {
				i++
			}
			if i >= len(src) {
				return nil, syntaxErr(start, "unterminated column reference")
			}
			name := src[start+1 : i]
			if name == "" {
				return nil, syntaxErr(start, "empty column reference")
			}
			tokens = append(tokens, token{kind: tokenColumn, pos: start, text: name})
			i++
		case isDigit(c) || c == '.':
			start := i
			seenDot := false
			for i < len(src) && (isDigit(src[i]) || src[i] == '.') {
				if src[i] == '.' {
					if seenDot {
						return nil, syntaxErr(i, "malformed number")
					}
					seenDot = true
				}
				i++
			}
			literal := src[start:i]
			if literal == "." {
				return nil, syntaxErr(start, "malformed number")
			}
			v, err := strconv.ParseFloat(literal, 64)
			if err != nil {
				return nil, syntaxErr(start, "malformed number %q", literal)
			}
			tokens = append(tokens, token{kind: tokenNumber, pos: start, text: literal, value: v})
		default:
			r, _ := utf8.DecodeRuneInString(src[i:])
			return nil, syntaxErr(i, "unexpected character %q", r)
		}
	}
	tokens = append(tokens, token{kind: tokenEOF, pos: len(src)})
	return tokens, nil
}
