package parse

import (
	"github.com/arrlang/nial/internal/array"
)

// parseIf parses `IF test THEN body (ELSEIF test THEN body)* (ELSE body)? ENDIF`,
// producing the TagIfexpr layout of section 6: [tag, test1, then1,
// (test2, then2)..., (else)?].
func (p *Parser) parseIf() (*array.Array, error) {
	p.advance() // IF
	var fields []*array.Array
	test, err := p.ParseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("THEN"); err != nil {
		return nil, err
	}
	body, err := p.parseExprSeqUntil("ELSEIF", "ELSE", "ENDIF")
	if err != nil {
		return nil, err
	}
	fields = append(fields, test, body)
	for p.atKeyword("ELSEIF") {
		p.advance()
		t2, err := p.ParseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expectKeyword("THEN"); err != nil {
			return nil, err
		}
		b2, err := p.parseExprSeqUntil("ELSEIF", "ELSE", "ENDIF")
		if err != nil {
			return nil, err
		}
		fields = append(fields, t2, b2)
	}
	if p.atKeyword("ELSE") {
		p.advance()
		eb, err := p.parseExprSeqUntil("ENDIF")
		if err != nil {
			return nil, err
		}
		fields = append(fields, eb)
	}
	if err := p.expectKeyword("ENDIF"); err != nil {
		return nil, err
	}
	return NewNode(p.h, TagIfexpr, fields...)
}

// parseWhile parses `WHILE test DO body ENDWHILE`.
func (p *Parser) parseWhile() (*array.Array, error) {
	p.advance() // WHILE
	test, err := p.ParseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("DO"); err != nil {
		return nil, err
	}
	body, err := p.parseExprSeqUntil("ENDWHILE")
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("ENDWHILE"); err != nil {
		return nil, err
	}
	return NewNode(p.h, TagWhileexpr, test, body)
}

// parseRepeat parses `REPEAT body UNTIL test ENDREPEAT`.
func (p *Parser) parseRepeat() (*array.Array, error) {
	p.advance() // REPEAT
	body, err := p.parseExprSeqUntil("UNTIL")
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("UNTIL"); err != nil {
		return nil, err
	}
	test, err := p.ParseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("ENDREPEAT"); err != nil {
		return nil, err
	}
	return NewNode(p.h, TagRepeatexpr, body, test)
}

// parseFor parses `FOR id WITH iter DO body ENDFOR`, the section 6
// TagForexpr layout [tag, idlist, iter, body].
func (p *Parser) parseFor() (*array.Array, error) {
	p.advance() // FOR
	idlist, err := p.tryParseIdList()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("WITH"); err != nil {
		return nil, err
	}
	iter, err := p.ParseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("DO"); err != nil {
		return nil, err
	}
	body, err := p.parseExprSeqUntil("ENDFOR")
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("ENDFOR"); err != nil {
		return nil, err
	}
	return NewNode(p.h, TagForexpr, idlist, iter, body)
}

// parseCase parses `CASE selector FROM v1 : b1 FROM v2 : b2 ... (ELSE be)? ENDCASE`,
// the section 6 TagCaseexpr layout [tag, selector, values, source-exprs, bodies].
// source-exprs mirrors values here (both hold the pre-evaluated case
// constants as they were written); a richer implementation would keep
// the two distinct when constants can themselves be expressions.
func (p *Parser) parseCase() (*array.Array, error) {
	p.advance() // CASE
	selector, err := p.ParseExpr()
	if err != nil {
		return nil, err
	}
	var values, bodies []*array.Array
	var elseBody *array.Array
	for p.atKeyword("FROM") {
		p.advance()
		v, err := p.ParseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expectDelim(":"); err != nil {
			return nil, err
		}
		b, err := p.parseExprSeqUntil("FROM", "ELSE", "ENDCASE")
		if err != nil {
			return nil, err
		}
		values = append(values, v)
		bodies = append(bodies, b)
	}
	if p.atKeyword("ELSE") {
		p.advance()
		eb, err := p.parseExprSeqUntil("ENDCASE")
		if err != nil {
			return nil, err
		}
		elseBody = eb
	} else {
		elseBody, err = NewNode(p.h, TagNulltree)
		if err != nil {
			return nil, err
		}
	}
	if err := p.expectKeyword("ENDCASE"); err != nil {
		return nil, err
	}
	valuesNode, err := NewNode(p.h, TagList, values...)
	if err != nil {
		return nil, err
	}
	bodiesNode, err := NewNode(p.h, TagList, append(bodies, elseBody)...)
	if err != nil {
		return nil, err
	}
	return NewNode(p.h, TagCaseexpr, selector, valuesNode, valuesNode, bodiesNode)
}

// parseExit parses `EXIT expr`.
func (p *Parser) parseExit() (*array.Array, error) {
	p.advance() // EXIT
	val, err := p.ParseExpr()
	if err != nil {
		return nil, err
	}
	return NewNode(p.h, TagExitexpr, val)
}

// parseExprSeqUntil parses a TagExprseq body, stopping before any token
// that matches one of the given terminator keywords.
func (p *Parser) parseExprSeqUntil(terminators ...string) (*array.Array, error) {
	var items []*array.Array
	for {
		if p.atEOF() {
			break
		}
		stop := false
		for _, kw := range terminators {
			if p.atKeyword(kw) {
				stop = true
				break
			}
		}
		if stop {
			break
		}
		item, err := p.ParseStatementExpr()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return NewNode(p.h, TagExprseq, items...)
}
