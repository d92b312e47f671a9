package validate

import (
	"github.com/cockroachdb/errors"

	"github.com/leftmike/sqlscope/expr"
	"github.com/leftmike/sqlscope/query"
	"github.com/leftmike/sqlscope/sql"
)

func (v *Validator) validateExpr(e expr.Expr, s *Scope) (sql.ColumnType, error) {
	if e == nil {
		return sql.UnknownColType, errors.AssertionFailedf("validate: missing expression")
	}

	v.enter(e.Position())
	ct, err := v.typeExpr(e, s)
	return ct, v.leave(err)
}

func (v *Validator) typeExpr(e expr.Expr, s *Scope) (sql.ColumnType, error) {
	switch e := e.(type) {
	case *expr.Literal:
		return sql.TypeOf(e.Value), nil
	case *expr.Ref:
		return v.validateRef(e, s)
	case *expr.Unary:
		return v.validateUnary(e, s)
	case *expr.Binary:
		return v.validateBinary(e, s)
	case *expr.Call:
		return v.validateCall(e, s)
	case *expr.Subquery:
		return v.validateSubquery(e, s)
	case *expr.Multiset:
		return v.validateMultiset(e, s)
	}
	return sql.UnknownColType, errors.AssertionFailedf("unexpected expression: %T: %s", e, e)
}

func (v *Validator) validateRef(ref *expr.Ref, s *Scope) (sql.ColumnType, error) {
	q, err := s.FullyQualify(ref)
	if err != nil {
		return sql.UnknownColType, err
	}
	ct, err := q.Type()
	if err != nil {
		return sql.UnknownColType, err
	}

	correlated := false
	if sel := v.currentSelect(); sel != nil {
		if ss := v.SelectScope(sel); ss != nil {
			correlated = !q.Scope.IsWithin(ss)
		}
	}
	v.resolutions = append(v.resolutions, Resolution{
		Ref:        ref,
		Names:      q.Names,
		Type:       ct,
		Scope:      q.Scope,
		Clause:     v.clause,
		Correlated: correlated,
	})
	return ct, nil
}

func (v *Validator) validateUnary(u *expr.Unary, s *Scope) (sql.ColumnType, error) {
	ct, err := v.validateExpr(u.Expr, s)
	if err != nil {
		return sql.UnknownColType, err
	}

	switch u.Op {
	case expr.NoOp:
		return ct, nil
	case expr.NotOp:
		if ct.Type != sql.BooleanType && ct.Type != sql.UnknownType {
			return sql.UnknownColType, typeMismatch("NOT expects a boolean, not %s",
				ct.DataType())
		}
		return sql.ColumnType{Type: sql.BooleanType, NotNull: ct.NotNull}, nil
	case expr.NegateOp:
		if !ct.Type.IsNumeric() && ct.Type != sql.UnknownType {
			return sql.UnknownColType, typeMismatch("- expects a number, not %s",
				ct.DataType())
		}
		return ct, nil
	}
	return sql.UnknownColType, errors.AssertionFailedf("unexpected unary operator: %s", u.Op)
}

func (v *Validator) validateBinary(b *expr.Binary, s *Scope) (sql.ColumnType, error) {
	lct, err := v.validateExpr(b.Left, s)
	if err != nil {
		return sql.UnknownColType, err
	}
	rct, err := v.validateExpr(b.Right, s)
	if err != nil {
		return sql.UnknownColType, err
	}
	notNull := lct.NotNull && rct.NotNull

	switch b.Op {
	case expr.AndOp, expr.OrOp:
		for _, ct := range []sql.ColumnType{lct, rct} {
			if ct.Type != sql.BooleanType && ct.Type != sql.UnknownType {
				return sql.UnknownColType, typeMismatch("%s expects booleans, not %s", b.Op,
					ct.DataType())
			}
		}
		return sql.ColumnType{Type: sql.BooleanType, NotNull: notNull}, nil
	case expr.ConcatOp:
		for _, ct := range []sql.ColumnType{lct, rct} {
			if ct.Type != sql.StringType && ct.Type != sql.UnknownType {
				return sql.UnknownColType, typeMismatch("|| expects strings, not %s",
					ct.DataType())
			}
		}
		return sql.ColumnType{Type: sql.StringType, Size: sql.MaxColumnSize, NotNull: notNull},
			nil
	case expr.AddOp, expr.SubtractOp, expr.MultiplyOp, expr.DivideOp, expr.ModuloOp:
		for _, ct := range []sql.ColumnType{lct, rct} {
			if !ct.Type.IsNumeric() && ct.Type != sql.UnknownType {
				return sql.UnknownColType, typeMismatch("%s expects numbers, not %s", b.Op,
					ct.DataType())
			}
		}
		return widen(lct, rct), nil
	}

	if b.Op.IsComparison() {
		if !comparable(lct, rct) {
			return sql.UnknownColType, typeMismatch("%s can not compare %s and %s", b.Op,
				lct.DataType(), rct.DataType())
		}
		return sql.ColumnType{Type: sql.BooleanType, NotNull: notNull}, nil
	}
	return sql.UnknownColType, errors.AssertionFailedf("unexpected binary operator: %s", b.Op)
}

func (v *Validator) validateSubquery(sq *expr.Subquery, s *Scope) (sql.ColumnType, error) {
	sel, ok := sq.Query.(*query.Select)
	if !ok {
		return sql.UnknownColType, errors.AssertionFailedf("unexpected query: %T", sq.Query)
	}
	rt, err := v.validateSelect(sel, s.id)
	if err != nil {
		return sql.UnknownColType, err
	}

	if sq.Exists {
		return sql.BoolColType, nil
	}
	if len(rt.Fields) != 1 {
		return sql.UnknownColType, invalidQuery(
			"scalar subquery must return exactly one column, not %d", len(rt.Fields))
	}
	return rt.Fields[0].Type.Nullable(), nil
}

func (v *Validator) validateMultiset(ms *expr.Multiset, s *Scope) (sql.ColumnType, error) {
	cs := v.newScope(CollectScope, s.id, ms)

	if ms.Query != nil {
		sel, ok := ms.Query.(*query.Select)
		if !ok {
			return sql.UnknownColType, errors.AssertionFailedf("unexpected query: %T", ms.Query)
		}
		rt, err := v.validateSelect(sel, cs.id)
		if err != nil {
			return sql.UnknownColType, err
		}
		if len(rt.Fields) == 1 {
			return sql.MultisetOf(rt.Fields[0].Type), nil
		}
		return sql.MultisetOf(rt), nil
	}

	elem := sql.UnknownColType
	notNull := true
	for _, e := range ms.Values {
		ct, err := cs.ValidateExpr(e)
		if err != nil {
			return sql.UnknownColType, err
		}
		notNull = notNull && ct.NotNull
		if elem.Type == sql.UnknownType {
			elem = ct
		} else if ct.Type != sql.UnknownType && !elem.Equal(ct) &&
			!(elem.Type.IsNumeric() && ct.Type.IsNumeric()) &&
			!(elem.Type == sql.StringType && ct.Type == sql.StringType) {

			return sql.UnknownColType, typeMismatch(
				"MULTISET elements must have the same type: %s and %s", elem.DataType(),
				ct.DataType())
		} else if ct.Type.IsNumeric() {
			elem = widen(elem, ct)
		}
	}
	elem.NotNull = notNull
	return sql.MultisetOf(elem), nil
}

// comparable is true if values of the two types can be compared without coercion.
func comparable(ct1, ct2 sql.ColumnType) bool {
	if ct1.Type == sql.UnknownType || ct2.Type == sql.UnknownType {
		return true
	}
	if ct1.Type.IsNumeric() && ct2.Type.IsNumeric() {
		return true
	}
	if ct1.Type == sql.RowType || ct1.Type == sql.MultisetType {
		return false
	}
	return ct1.Type == ct2.Type
}

// widen returns the type of an arithmetic expression over the two types.
func widen(ct1, ct2 sql.ColumnType) sql.ColumnType {
	if ct1.Type == sql.UnknownType {
		ct2.NotNull = false
		return ct2
	} else if ct2.Type == sql.UnknownType {
		ct1.NotNull = false
		return ct1
	}

	notNull := ct1.NotNull && ct2.NotNull
	if ct1.Type == sql.FloatType || ct2.Type == sql.FloatType {
		return sql.ColumnType{Type: sql.FloatType, Size: 8, NotNull: notNull}
	}
	size := ct1.Size
	if ct2.Size > size {
		size = ct2.Size
	}
	return sql.ColumnType{Type: sql.IntegerType, Size: size, NotNull: notNull}
}
