// Copyright (C) 2024 NoWDB Authors.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package sql implements NoWDB's statement frontend (spec §4.9): a
// table-driven lexer, a recursive-descent parser playing the role of
// the original's table-driven LALR grammar, an immutable AST, and the
// length-prefixed streaming frame reader used over a socket.
package sql

import (
	"fmt"

	"github.com/nowdb/nowdb/xerror"
)

const stackDepth = 8

// Parser holds the scanner over one statement plus the small node
// stack grammar actions combine children through (spec §4.9's "parser
// state carries an 8-slot stack used by grammar actions"). A Parser is
// reused across statements via Reset (soft reinit, between statements)
// or Recreate (hard reinit, after a parse error tears the whole thing
// down and rebuilds it) rather than allocated fresh each time.
type Parser struct {
	lex   *Lexer
	tok   Token
	stack [stackDepth]*Node
	sp    int
}

// NewParser creates a parser over src.
func NewParser(src []byte) *Parser {
	p := &Parser{lex: NewLexer(src)}
	p.advance()
	return p
}

// Reset performs the soft reinit used between statements read off the
// same connection: the node stack is cleared and a fresh lexer takes
// over src, but the Parser value itself is kept.
func (p *Parser) Reset(src []byte) {
	p.lex = NewLexer(src)
	p.sp = 0
	for i := range p.stack {
		p.stack[i] = nil
	}
	p.advance()
}

// Recreate performs the hard reinit used after a parse error: the
// caller discards the old Parser and gets a fresh one back, mirroring
// the original lemon-parser tear-down-and-rebuild.
func (p *Parser) Recreate(src []byte) *Parser {
	return NewParser(src)
}

func (p *Parser) advance() {
	p.tok = p.lex.Next()
}

func (p *Parser) push(n *Node) *xerror.Error {
	if p.sp >= len(p.stack) {
		return xerror.Get(xerror.TooBig, 0, "sql.parser", "node stack overflow")
	}
	p.stack[p.sp] = n
	p.sp++
	return nil
}

func (p *Parser) pop() *Node {
	p.sp--
	n := p.stack[p.sp]
	p.stack[p.sp] = nil
	return n
}

func (p *Parser) expect(k Kind) (Token, *xerror.Error) {
	if p.tok.Kind != k {
		return Token{}, xerror.Get(xerror.Parser, 0, "sql.parser",
			fmt.Sprintf("expected %s, got %s %q at offset %d", k, p.tok.Kind, p.tok.Text, p.tok.Pos))
	}
	t := p.tok
	p.advance()
	return t, nil
}

// ParseStatement parses exactly one statement and returns its root
// NQuery node.
func (p *Parser) ParseStatement() (*Node, *xerror.Error) {
	if _, err := p.expect(SELECT); err != nil {
		return nil, err
	}
	proj, err := p.parseSelectList()
	if err != nil {
		return nil, err
	}
	if err := p.push(proj); err != nil {
		return nil, err
	}

	if _, err := p.expect(FROM); err != nil {
		return nil, err
	}
	tableTok, err := p.expect(IDENT)
	if err != nil {
		return nil, err
	}
	if err := p.push(&Node{NType: NFrom, Value: tableTok.Text}); err != nil {
		return nil, err
	}

	var where *Node
	if p.tok.Kind == WHERE {
		p.advance()
		where, err = p.parseOrExpr()
		if err != nil {
			return nil, err
		}
	}

	var order *Node
	if p.tok.Kind == ORDER {
		p.advance()
		if _, err := p.expect(BY); err != nil {
			return nil, err
		}
		colTok, err := p.expect(IDENT)
		if err != nil {
			return nil, err
		}
		// SLt/SGt double as the ascending/descending tag; the planner
		// reads this node's SType to pick sort direction, not a compare.
		dir := SLt
		if p.tok.Kind == DESC {
			dir = SGt
			p.advance()
		} else if p.tok.Kind == ASC {
			p.advance()
		}
		order = &Node{NType: NIdent, Value: colTok.Text, SType: dir}
	}

	if p.tok.Kind == SEMI {
		p.advance()
	}

	fromNode := p.pop()
	projNode := p.pop()

	kids := []*Node{projNode, fromNode}
	if where != nil {
		kids = append(kids, &Node{NType: NWhere, Kids: []*Node{where}})
	}
	if order != nil {
		kids = append(kids, order)
	}

	return &Node{NType: NQuery, Kids: kids}, nil
}

func (p *Parser) parseSelectList() (*Node, *xerror.Error) {
	var items []*Node
	for {
		item, err := p.parseSelectItem()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		if p.tok.Kind != COMMA {
			break
		}
		p.advance()
	}
	return &Node{NType: NProjection, Kids: items}, nil
}

func (p *Parser) parseSelectItem() (*Node, *xerror.Error) {
	if aggregateKinds[p.tok.Kind] {
		fn := aggregateSType(p.tok.Kind)
		p.advance()
		if _, err := p.expect(LPAREN); err != nil {
			return nil, err
		}
		var arg *Node
		if p.tok.Kind == STAR {
			arg = &Node{NType: NStar}
			p.advance()
		} else {
			colTok, err := p.expect(IDENT)
			if err != nil {
				return nil, err
			}
			arg = &Node{NType: NColumn, Value: colTok.Text}
		}
		if _, err := p.expect(RPAREN); err != nil {
			return nil, err
		}
		return &Node{NType: NAggregate, SType: fn, Kids: []*Node{arg}}, nil
	}

	colTok, err := p.expect(IDENT)
	if err != nil {
		return nil, err
	}
	return &Node{NType: NColumn, Value: colTok.Text}, nil
}

// parseOrExpr implements OR over AND-chains (spec scenario 3 only
// exercises AND, but the grammar supports both).
func (p *Parser) parseOrExpr() (*Node, *xerror.Error) {
	left, err := p.parseAndExpr()
	if err != nil {
		return nil, err
	}
	for p.tok.Kind == OR {
		p.advance()
		right, err := p.parseAndExpr()
		if err != nil {
			return nil, err
		}
		if err := p.push(left); err != nil {
			return nil, err
		}
		if err := p.push(right); err != nil {
			return nil, err
		}
		r := p.pop()
		l := p.pop()
		left = &Node{NType: NOr, Kids: []*Node{l, r}}
	}
	return left, nil
}

func (p *Parser) parseAndExpr() (*Node, *xerror.Error) {
	left, err := p.parseCompare()
	if err != nil {
		return nil, err
	}
	for p.tok.Kind == AND {
		p.advance()
		right, err := p.parseCompare()
		if err != nil {
			return nil, err
		}
		if err := p.push(left); err != nil {
			return nil, err
		}
		if err := p.push(right); err != nil {
			return nil, err
		}
		r := p.pop()
		l := p.pop()
		left = &Node{NType: NAnd, Kids: []*Node{l, r}}
	}
	return left, nil
}

func (p *Parser) parseCompare() (*Node, *xerror.Error) {
	colTok, err := p.expect(IDENT)
	if err != nil {
		return nil, err
	}
	op := p.tok.Kind
	switch op {
	case EQ, NE, LT, LE, GT, GE:
		p.advance()
	default:
		return nil, xerror.Get(xerror.Parser, 0, "sql.parser",
			fmt.Sprintf("expected comparison operator, got %s at offset %d", p.tok.Kind, p.tok.Pos))
	}

	lit, err := p.parseLiteral()
	if err != nil {
		return nil, err
	}

	left := &Node{NType: NColumn, Value: colTok.Text}
	return &Node{NType: NCompare, SType: compareSType(op), Kids: []*Node{left, lit}}, nil
}

func (p *Parser) parseLiteral() (*Node, *xerror.Error) {
	switch p.tok.Kind {
	case NUMBER:
		t := p.tok
		p.advance()
		return &Node{NType: NConst, VType: VInt, Value: t.Text}, nil
	case STRING:
		t := p.tok
		p.advance()
		return &Node{NType: NConst, VType: VString, Value: t.Text}, nil
	default:
		return nil, xerror.Get(xerror.Parser, 0, "sql.parser",
			fmt.Sprintf("expected literal, got %s at offset %d", p.tok.Kind, p.tok.Pos))
	}
}

// Parse parses src as a single statement, returning its AST root.
func Parse(src []byte) (*Node, *xerror.Error) {
	p := NewParser(src)
	return p.ParseStatement()
}
