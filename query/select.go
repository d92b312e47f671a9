package query

import (
	"fmt"
	"strings"

	"github.com/leftmike/sqlscope/expr"
	"github.com/leftmike/sqlscope/sql"
)

type SelectResult interface {
	fmt.Stringer
}

// TableResult is table.*
type TableResult struct {
	Table sql.Identifier
	Pos   sql.Position
}

type ExprResult struct {
	Expr  expr.Expr
	Alias sql.Identifier
}

type GroupList struct {
	Exprs []expr.Expr
	Pos   sql.Position
}

type OrderBy struct {
	Expr expr.Expr
	Desc bool
}

type Select struct {
	Distinct bool
	Results  []SelectResult // nil is *
	From     FromItem
	Where    expr.Expr
	GroupBy  *GroupList
	Having   expr.Expr
	OrderBy  []OrderBy
	Pos      sql.Position
}

func (tr TableResult) String() string {
	return fmt.Sprintf("%s.*", tr.Table)
}

func (er ExprResult) String() string {
	s := er.Expr.String()
	if er.Alias != 0 {
		s += fmt.Sprintf(" AS %s", er.Alias)
	}
	return s
}

func (stmt *Select) String() string {
	var b strings.Builder
	b.WriteString("SELECT ")
	if stmt.Distinct {
		b.WriteString("DISTINCT ")
	}
	if stmt.Results == nil {
		b.WriteByte('*')
	} else {
		for i, sr := range stmt.Results {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(sr.String())
		}
	}
	if stmt.From != nil {
		fmt.Fprintf(&b, " FROM %s", stmt.From)
	}
	if stmt.Where != nil {
		fmt.Fprintf(&b, " WHERE %s", stmt.Where)
	}
	if stmt.GroupBy != nil {
		b.WriteString(" GROUP BY ")
		for i, e := range stmt.GroupBy.Exprs {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(e.String())
		}
	}
	if stmt.Having != nil {
		fmt.Fprintf(&b, " HAVING %s", stmt.Having)
	}
	if stmt.OrderBy != nil {
		b.WriteString(" ORDER BY ")
		for i, ob := range stmt.OrderBy {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(ob.Expr.String())
			if ob.Desc {
				b.WriteString(" DESC")
			}
		}
	}
	return b.String()
}
