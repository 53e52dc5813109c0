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

package sql

// Kind is a lexer token code.
type Kind int

const (
	ILLEGAL Kind = iota
	EOF

	IDENT
	NUMBER
	STRING

	STAR   // *
	COMMA  // ,
	LPAREN // (
	RPAREN // )
	SEMI   // ;

	EQ // =
	NE // !=, <>
	LT // <
	LE // <=
	GT // >
	GE // >=

	// keywords
	SELECT
	FROM
	WHERE
	AND
	OR
	ORDER
	BY
	ASC
	DESC
	AS

	// aggregate function names
	COUNT
	SUM
	MAX
	MIN
	AVG
)

// keywords maps a case-folded identifier to its keyword token, mirroring
// the lexer's table-driven keyword lookup (spec §4.9's "table-driven
// scanner"): identifiers not present here are returned as plain IDENT.
var keywords = map[string]Kind{
	"select": SELECT,
	"from":   FROM,
	"where":  WHERE,
	"and":    AND,
	"or":     OR,
	"order":  ORDER,
	"by":     BY,
	"asc":    ASC,
	"desc":   DESC,
	"as":     AS,
	"count":  COUNT,
	"sum":    SUM,
	"max":    MAX,
	"min":    MIN,
	"avg":    AVG,
}

// aggregateKinds is the subset of keywords that name an aggregate
// function, used by the parser to recognise `NAME(...)` as an
// aggregate expression rather than a plain column reference.
var aggregateKinds = map[Kind]bool{
	COUNT: true, SUM: true, MAX: true, MIN: true, AVG: true,
}

// Token is one lexical unit: its kind, and for IDENT/NUMBER/STRING the
// literal text that produced it.
type Token struct {
	Kind Kind
	Text string
	Pos  int
}

func (k Kind) String() string {
	switch k {
	case ILLEGAL:
		return "illegal"
	case EOF:
		return "eof"
	case IDENT:
		return "ident"
	case NUMBER:
		return "number"
	case STRING:
		return "string"
	case STAR:
		return "*"
	case COMMA:
		return ","
	case LPAREN:
		return "("
	case RPAREN:
		return ")"
	case SEMI:
		return ";"
	case EQ:
		return "="
	case NE:
		return "!="
	case LT:
		return "<"
	case LE:
		return "<="
	case GT:
		return ">"
	case GE:
		return ">="
	case SELECT:
		return "select"
	case FROM:
		return "from"
	case WHERE:
		return "where"
	case AND:
		return "and"
	case OR:
		return "or"
	case ORDER:
		return "order"
	case BY:
		return "by"
	case ASC:
		return "asc"
	case DESC:
		return "desc"
	case AS:
		return "as"
	case COUNT:
		return "count"
	case SUM:
		return "sum"
	case MAX:
		return "max"
	case MIN:
		return "min"
	case AVG:
		return "avg"
	default:
		return "?"
	}
}
