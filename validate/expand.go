package validate

import (
	"github.com/cockroachdb/errors"

	"github.com/leftmike/sqlscope/expr"
	"github.com/leftmike/sqlscope/flags"
	"github.com/leftmike/sqlscope/query"
	"github.com/leftmike/sqlscope/sql"
)

// ExpandGroupByOrHavingExpr replaces references to select list aliases in e by the select
// items they name; a GROUP BY ordinal is replaced by the select item at that position. Every
// other column reference is fully qualified using s. Each name is expanded at most once: the
// select item which replaces an alias is not itself searched for aliases.
func (v *Validator) ExpandGroupByOrHavingExpr(e expr.Expr, s *Scope, sel *query.Select,
	having bool) (expr.Expr, error) {

	allowAlias := v.flags.GetFlag(flags.GroupByAlias)
	clause := "GROUP BY"
	if having {
		allowAlias = v.flags.GetFlag(flags.HavingAlias)
		clause = "HAVING"
	}
	items := v.selectItems[sel]

	var err error
	expanded := expr.Rewrite(e, func(ex expr.Expr) (expr.Expr, bool) {
		if err != nil {
			return ex, true
		}

		switch ex := ex.(type) {
		case *expr.Literal:
			if having || ex != e || !v.flags.GetFlag(flags.GroupByOrdinal) {
				return ex, true
			}
			var to expr.Expr
			to, err = v.expandOrdinal(ex, s, items, clause)
			return to, true
		case *expr.Ref:
			var to expr.Expr
			to, err = v.expandGroupByRef(ex, s, items, clause, allowAlias)
			if err != nil && !having && errors.Is(err, ErrNameNotFound) {
				err = unknownIdentifier(err, ex)
			}
			return to, true
		case *expr.Call:
			if having && isAggregate(ex) {
				return ex, true
			}
		}
		return ex, false
	})
	if err != nil {
		return nil, err
	}
	return expanded, nil
}

func (v *Validator) expandGroupByRef(ref *expr.Ref, s *Scope, items []selectItem,
	clause string, allowAlias bool) (expr.Expr, error) {

	if allowAlias && len(ref.Names) == 1 {
		var match *selectItem
		for idx := range items {
			if items[idx].alias == ref.Names[0] {
				if match != nil {
					return nil, ambiguousName("column %s is ambiguous", ref)
				}
				match = &items[idx]
			}
		}
		if match != nil {
			to, err := v.qualifySelectItem(match.expr, s)
			if err != nil {
				return nil, err
			}
			v.expansions = append(v.expansions, Expansion{Clause: clause, From: ref, To: to})
			return to, nil
		}
	}

	return v.qualifyRef(ref, s)
}

func (v *Validator) expandOrdinal(lit *expr.Literal, s *Scope, items []selectItem,
	clause string) (expr.Expr, error) {

	n, ok := lit.Value.(sql.Int64Value)
	if !ok || n < 0 {
		return lit, nil
	}
	if n < 1 || int(n) > len(items) {
		return nil, invalidQuery("%s ordinal %d is out of range; it must be between 1 and %d",
			clause, n, len(items))
	}

	to, err := v.qualifySelectItem(items[n-1].expr, s)
	if err != nil {
		return nil, err
	}
	v.expansions = append(v.expansions, Expansion{Clause: clause, From: lit, To: to})
	return to, nil
}

// qualifySelectItem returns a fully qualified copy of e if it is a column reference and e
// itself otherwise.
func (v *Validator) qualifySelectItem(e expr.Expr, s *Scope) (expr.Expr, error) {
	if ref, ok := e.(*expr.Ref); ok {
		return v.qualifyRef(ref, s)
	}
	return e, nil
}

func (v *Validator) qualifyRef(ref *expr.Ref, s *Scope) (expr.Expr, error) {
	q, err := s.FullyQualify(ref)
	if err != nil {
		return nil, err
	}
	return &expr.Ref{Names: q.Names, Pos: ref.Pos}, nil
}

// expandOrderExpr replaces ORDER BY ordinals and references to output column names by the
// select items they name. Nested queries are not expanded.
func (v *Validator) expandOrderExpr(e expr.Expr, s *Scope, sel *query.Select) (expr.Expr,
	error) {

	items := v.selectItems[sel]
	allowAlias := v.flags.GetFlag(flags.OrderByAlias)

	var err error
	expanded := expr.Rewrite(e, func(ex expr.Expr) (expr.Expr, bool) {
		if err != nil {
			return ex, true
		}

		switch ex := ex.(type) {
		case *expr.Literal:
			if ex != e || !v.flags.GetFlag(flags.OrderByOrdinal) {
				return ex, true
			}
			n, ok := ex.Value.(sql.Int64Value)
			if !ok || n < 0 {
				return ex, true
			}
			if n < 1 || int(n) > len(items) {
				err = invalidQuery(
					"ORDER BY ordinal %d is out of range; it must be between 1 and %d", n,
					len(items))
				return ex, true
			}
			to := items[n-1].expr
			v.expansions = append(v.expansions, Expansion{Clause: "ORDER BY", From: ex, To: to})
			return to, true
		case *expr.Ref:
			if allowAlias && len(ex.Names) == 1 {
				for _, item := range items {
					if item.name == ex.Names[0] {
						v.expansions = append(v.expansions,
							Expansion{Clause: "ORDER BY", From: ex, To: item.expr})
						return item.expr, true
					}
				}
			}
			var to expr.Expr
			to, err = v.qualifyRef(ex, s)
			return to, true
		}
		return ex, false
	})
	if err != nil {
		return nil, err
	}
	return expanded, nil
}
