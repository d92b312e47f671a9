package query

import (
	"fmt"
	"strings"

	"github.com/leftmike/sqlscope/expr"
	"github.com/leftmike/sqlscope/sql"
)

type FromItem interface {
	fmt.Stringer
}

type FromTableAlias struct {
	Path  sql.Path
	Alias sql.Identifier
	Pos   sql.Position
}

func (fta *FromTableAlias) String() string {
	s := fta.Path.String()
	if fta.Alias != 0 && fta.Alias != fta.Path.Last() {
		s += fmt.Sprintf(" AS %s", fta.Alias)
	}
	return s
}

// Name is the name the table is known by in the enclosing query.
func (fta *FromTableAlias) Name() sql.Identifier {
	if fta.Alias != 0 {
		return fta.Alias
	}
	return fta.Path.Last()
}

type FromStmt struct {
	Stmt          *Select
	Alias         sql.Identifier
	ColumnAliases []sql.Identifier
	Lateral       bool
	Pos           sql.Position
}

func (fs *FromStmt) String() string {
	var b strings.Builder
	if fs.Lateral {
		b.WriteString("LATERAL ")
	}
	fmt.Fprintf(&b, "(%s)", fs.Stmt)
	if fs.Alias != 0 {
		fmt.Fprintf(&b, " AS %s", fs.Alias)
	}
	if fs.ColumnAliases != nil {
		b.WriteString(" (")
		for i, col := range fs.ColumnAliases {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(col.String())
		}
		b.WriteByte(')')
	}
	return b.String()
}

type JoinType int

const (
	NoJoin JoinType = iota
	Join
	InnerJoin
	LeftJoin
	CrossJoin
)

var joinType = map[JoinType]string{
	Join:      "JOIN",
	InnerJoin: "INNER JOIN",
	LeftJoin:  "LEFT JOIN",
	CrossJoin: "CROSS JOIN",
}

func (jt JoinType) String() string {
	return joinType[jt]
}

type FromJoin struct {
	Left  FromItem
	Right FromItem
	Type  JoinType
	On    expr.Expr
	Using []sql.Identifier
}

func (fj *FromJoin) String() string {
	if fj.Type == NoJoin {
		return fmt.Sprintf("%s, %s", fj.Left, fj.Right)
	}

	s := fmt.Sprintf("%s %s %s", fj.Left, fj.Type, fj.Right)
	if fj.On != nil {
		s += fmt.Sprintf(" ON %s", fj.On)
	}
	if len(fj.Using) > 0 {
		s += " USING ("
		for i, id := range fj.Using {
			if i > 0 {
				s += ", "
			}
			s += id.String()
		}
		s += ")"
	}
	return s
}
