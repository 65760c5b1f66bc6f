package formula

// expr    := term (("+"|"-") term)*
// term    := unary (("*"|"/") unary)*
// unary   := ("+"|"-") unary | primary
// primary := number | column | "(" expr ")"
type parser struct {
	tokens []token
	pos    int
	// columns maps every referenced name to its raw header.
	columns map[string]string
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	t := p.tokens[p.pos]
	if t.kind != tokenEOF {
		p.pos++
	}
	return t
}

func (p *parser) parse() (node, error) {
	if p.peek().kind == tokenEOF {
		return nil, syntaxErr(0, "empty formula")
	}
	n, err := p.expr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokenEOF {
		return nil, syntaxErr(t.pos, "unexpected %s", t.kind)
	}
	return n, nil
}

func (p *parser) expr() (node, error) {
	left, err := p.term()
	if err != nil {
		return nil, err
	}
	for {
		op := p.peek().kind
		if op != tokenPlus && op != tokenMinus {
			return left, nil
		}
		p.next()
		right, err := p.term()
		if err != nil {
			return nil, err
		}
		left = binary{op: op, left: left, right: right}
	}
}

func (p *parser) term() (node, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		op := p.peek().kind
		if op != tokenStar && op != tokenSlash {
			return left, nil
		}
		p.next()
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		left = binary{op: op, left: left, right: right}
	}
}

func (p *parser) unary() (node, error) {
	switch p.peek().kind {
	case tokenPlus:
		p.next()
		return p.unary()
	case tokenMinus:
		p.next()
		operand, err := p.unary()
		if err != nil {
			return nil, err
		}
		return negate{operand: operand}, nil
	}
	return p.primary()
}

func (p *parser) primary() (node, error) {
	t := p.next()
	switch t.kind {
	case tokenNumber:
		return literal{value: t.value}, nil
	case tokenColumn:
		return columnRef{column: p.columns[t.text]}, nil
	case tokenLParen:
		inner, err := p.expr()
		if err != nil {
			return nil, err
		}
		closing := p.next()
		if closing.kind != tokenRParen {
			return nil, syntaxErr(closing.pos, "expected ')' but found %s", closing.kind)
		}
		return inner, nil
	}
	return nil, syntaxErr(t.pos, "expected a number, column or '(' but found %s", t.kind)
}

// literalZeroDivisor reports the position of the first '/' whose right
// operand is the literal 0, possibly wrapped in parentheses.
func literalZeroDivisor(tokens []token) (int, bool) {
	for i, t := range tokens {
		if t.kind != tokenSlash {
			continue
		}
		j := i + 1
		depth := 0
		for j < len(tokens) && tokens[j].kind == tokenLParen {
			depth++
			j++
		}
		if j >= len(tokens) || tokens[j].kind != tokenNumber || tokens[j].value != 0 {
			continue
		}
		j++
		closed := 0
		for closed < depth && j < len(tokens) && tokens[j].kind == tokenRParen {
			closed++
			j++
		}
		if closed == depth {
			return t.pos, true
		}
	}
	return 0, false
}
