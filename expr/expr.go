package expr

import (
	"fmt"
	"strings"

	"github.com/leftmike/sqlscope/sql"
)

type Op int

const (
	AddOp Op = iota
	AndOp
	ConcatOp
	DivideOp
	EqualOp
	GreaterEqualOp
	GreaterThanOp
	LessEqualOp
	LessThanOp
	ModuloOp
	MultiplyOp
	NegateOp
	NoOp
	NotEqualOp
	NotOp
	OrOp
	SubtractOp
)

var ops = [...]struct {
	name       string
	precedence int
}{
	AddOp:          {"+", 7},
	AndOp:          {"AND", 2},
	ConcatOp:       {"||", 10},
	DivideOp:       {"/", 8},
	EqualOp:        {"==", 4},
	GreaterEqualOp: {">=", 5},
	GreaterThanOp:  {">", 5},
	LessEqualOp:    {"<=", 5},
	LessThanOp:     {"<", 5},
	ModuloOp:       {"%", 8},
	MultiplyOp:     {"*", 8},
	NegateOp:       {"-", 9},
	NoOp:           {"", 11},
	NotEqualOp:     {"!=", 4},
	NotOp:          {"NOT", 3},
	OrOp:           {"OR", 1},
	SubtractOp:     {"-", 7},
}

func (op Op) Precedence() int {
	return ops[op].precedence
}

func (op Op) String() string {
	return ops[op].name
}

// IsComparison is true for operators which produce a boolean from two operands of the
// same kind.
func (op Op) IsComparison() bool {
	switch op {
	case EqualOp, GreaterEqualOp, GreaterThanOp, LessEqualOp, LessThanOp, NotEqualOp:
		return true
	}
	return false
}

type Expr interface {
	fmt.Stringer
	Position() sql.Position
}

// Query is a nested query expression; it is implemented by *query.Select.
type Query interface {
	fmt.Stringer
}

type Literal struct {
	Value sql.Value
	Pos   sql.Position
}

func (l *Literal) String() string {
	return sql.Format(l.Value)
}

func (l *Literal) Position() sql.Position {
	return l.Pos
}

type Unary struct {
	Op   Op
	Expr Expr
	Pos  sql.Position
}

func (u *Unary) String() string {
	if ops[u.Op].name == "" {
		return u.Expr.String()
	}
	return fmt.Sprintf("(%s %s)", ops[u.Op].name, u.Expr)
}

func (u *Unary) Position() sql.Position {
	return u.Pos
}

type Binary struct {
	Op    Op
	Left  Expr
	Right Expr
	Pos   sql.Position
}

func (b *Binary) String() string {
	return fmt.Sprintf("(%s %s %s)", b.Left, ops[b.Op].name, b.Right)
}

func (b *Binary) Position() sql.Position {
	return b.Pos
}

// Ref is a possibly qualified name: column, table.column, schema.table.column, or
// column.field for a column of ROW type.
type Ref struct {
	Names []sql.Identifier
	Pos   sql.Position
}

func (r *Ref) String() string {
	return sql.Path(r.Names).String()
}

func (r *Ref) Position() sql.Position {
	return r.Pos
}

func (r *Ref) Path() sql.Path {
	return sql.Path(r.Names)
}

type Call struct {
	Name     sql.Identifier
	Args     []Expr
	Distinct bool
	Star     bool // COUNT(*)
	Pos      sql.Position
}

func (c *Call) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s(", c.Name)
	if c.Distinct {
		b.WriteString("DISTINCT ")
	}
	if c.Star {
		b.WriteByte('*')
	}
	for i, a := range c.Args {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(a.String())
	}
	b.WriteByte(')')
	return b.String()
}

func (c *Call) Position() sql.Position {
	return c.Pos
}

type Subquery struct {
	Query  Query
	Exists bool
	Pos    sql.Position
}

func (sq *Subquery) String() string {
	if sq.Exists {
		return fmt.Sprintf("EXISTS (%s)", sq.Query)
	}
	return fmt.Sprintf("(%s)", sq.Query)
}

func (sq *Subquery) Position() sql.Position {
	return sq.Pos
}

// Multiset is either MULTISET[e1, e2, ...] or MULTISET(query).
type Multiset struct {
	Values []Expr
	Query  Query
	Pos    sql.Position
}

func (ms *Multiset) String() string {
	if ms.Query != nil {
		return fmt.Sprintf("MULTISET(%s)", ms.Query)
	}

	var b strings.Builder
	b.WriteString("MULTISET[")
	for i, v := range ms.Values {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(v.String())
	}
	b.WriteByte(']')
	return b.String()
}

func (ms *Multiset) Position() sql.Position {
	return ms.Pos
}

// Walk calls fn for e and then, if fn returns true, for each of its operands. Nested
// queries are not entered.
func Walk(e Expr, fn func(e Expr) bool) {
	if e == nil || !fn(e) {
		return
	}

	switch e := e.(type) {
	case *Unary:
		Walk(e.Expr, fn)
	case *Binary:
		Walk(e.Left, fn)
		Walk(e.Right, fn)
	case *Call:
		for _, a := range e.Args {
			Walk(a, fn)
		}
	case *Multiset:
		for _, v := range e.Values {
			Walk(v, fn)
		}
	}
}

// Rewrite returns a copy of e with every sub-expression replaced by fn, applied top down.
// When fn returns true, the returned expression is used as is and not descended into.
func Rewrite(e Expr, fn func(e Expr) (Expr, bool)) Expr {
	if e == nil {
		return nil
	}
	if ne, done := fn(e); done {
		return ne
	}

	switch e := e.(type) {
	case *Unary:
		return &Unary{Op: e.Op, Expr: Rewrite(e.Expr, fn), Pos: e.Pos}
	case *Binary:
		return &Binary{Op: e.Op, Left: Rewrite(e.Left, fn), Right: Rewrite(e.Right, fn),
			Pos: e.Pos}
	case *Call:
		var args []Expr
		for _, a := range e.Args {
			args = append(args, Rewrite(a, fn))
		}
		return &Call{Name: e.Name, Args: args, Distinct: e.Distinct, Star: e.Star, Pos: e.Pos}
	case *Multiset:
		if e.Query != nil {
			return e
		}
		var vals []Expr
		for _, v := range e.Values {
			vals = append(vals, Rewrite(v, fn))
		}
		return &Multiset{Values: vals, Pos: e.Pos}
	}
	return e
}
