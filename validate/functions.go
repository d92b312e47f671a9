package validate

import (
	"github.com/cockroachdb/errors"

	"github.com/leftmike/sqlscope/expr"
	"github.com/leftmike/sqlscope/sql"
)

type function struct {
	aggregate bool
	star      bool // allows *
	minArgs   int
	maxArgs   int // -1 for any number
	typ       func(name sql.Identifier, args []sql.ColumnType) (sql.ColumnType, error)
}

var functions = map[sql.Identifier]function{
	sql.ABS:         {minArgs: 1, maxArgs: 1, typ: numericType},
	sql.UPPER:       {minArgs: 1, maxArgs: 1, typ: stringType},
	sql.LOWER:       {minArgs: 1, maxArgs: 1, typ: stringType},
	sql.CHAR_LENGTH: {minArgs: 1, maxArgs: 1, typ: charLengthType},
	sql.COALESCE:    {minArgs: 1, maxArgs: -1, typ: coalesceType},
	sql.CARDINALITY: {minArgs: 1, maxArgs: 1, typ: cardinalityType},

	sql.COUNT:   {aggregate: true, star: true, minArgs: 1, maxArgs: 1, typ: countType},
	sql.SUM:     {aggregate: true, minArgs: 1, maxArgs: 1, typ: nullable(numericType)},
	sql.AVG:     {aggregate: true, minArgs: 1, maxArgs: 1, typ: nullable(numericType)},
	sql.MIN:     {aggregate: true, minArgs: 1, maxArgs: 1, typ: nullable(orderedType)},
	sql.MAX:     {aggregate: true, minArgs: 1, maxArgs: 1, typ: nullable(orderedType)},
	sql.COLLECT: {aggregate: true, minArgs: 1, maxArgs: 1, typ: collectType},
}

func isAggregate(c *expr.Call) bool {
	return functions[c.Name].aggregate
}

func (v *Validator) validateCall(c *expr.Call, s *Scope) (sql.ColumnType, error) {
	fn, ok := functions[c.Name]
	if !ok {
		return sql.UnknownColType, errors.Mark(errors.Newf("function %s not found", c.Name),
			ErrUnknownFunction)
	}
	if c.Distinct && !fn.aggregate {
		return sql.UnknownColType, invalidQuery("%s: DISTINCT is only allowed in aggregates",
			c.Name)
	}
	if c.Star {
		if !fn.star {
			return sql.UnknownColType, invalidQuery("%s(*) is not allowed", c.Name)
		}
	} else if len(c.Args) < fn.minArgs {
		return sql.UnknownColType, invalidQuery("%s: expected at least %d argument(s), got %d",
			c.Name, fn.minArgs, len(c.Args))
	} else if fn.maxArgs >= 0 && len(c.Args) > fn.maxArgs {
		return sql.UnknownColType, invalidQuery("%s: expected at most %d argument(s), got %d",
			c.Name, fn.maxArgs, len(c.Args))
	}

	if fn.aggregate {
		if v.noAgg != "" {
			return sql.UnknownColType,
				invalidQuery("aggregate function %s is not allowed in %s", c.Name, v.noAgg)
		}
		noAgg := v.noAgg
		v.noAgg = "the arguments of an aggregate function"
		defer func() {
			v.noAgg = noAgg
		}()
	}

	os := s.OperandScope(c)
	if c.Name == sql.COLLECT {
		os = v.newScope(CollectScope, s.id, c)
	}

	var args []sql.ColumnType
	for _, a := range c.Args {
		ct, err := os.ValidateExpr(a)
		if err != nil {
			return sql.UnknownColType, err
		}
		args = append(args, ct)
	}
	return fn.typ(c.Name, args)
}

func nullable(typ func(sql.Identifier, []sql.ColumnType) (sql.ColumnType, error)) func(
	sql.Identifier, []sql.ColumnType) (sql.ColumnType, error) {

	return func(nam sql.Identifier, args []sql.ColumnType) (sql.ColumnType, error) {
		ct, err := typ(nam, args)
		ct.NotNull = false
		return ct, err
	}
}

func numericType(nam sql.Identifier, args []sql.ColumnType) (sql.ColumnType, error) {
	if !args[0].Type.IsNumeric() && args[0].Type != sql.UnknownType {
		return sql.UnknownColType, typeMismatch("%s expects a number, not %s", nam,
			args[0].DataType())
	}
	return args[0], nil
}

func stringType(nam sql.Identifier, args []sql.ColumnType) (sql.ColumnType, error) {
	switch args[0].Type {
	case sql.StringType:
		return args[0], nil
	case sql.UnknownType:
		return sql.NullStringColType, nil
	}
	return sql.UnknownColType, typeMismatch("%s expects a string, not %s", nam,
		args[0].DataType())
}

func charLengthType(nam sql.Identifier, args []sql.ColumnType) (sql.ColumnType, error) {
	ct, err := stringType(nam, args)
	if err != nil {
		return sql.UnknownColType, err
	}
	return sql.ColumnType{Type: sql.IntegerType, Size: 4, NotNull: ct.NotNull}, nil
}

func coalesceType(nam sql.Identifier, args []sql.ColumnType) (sql.ColumnType, error) {
	ct := sql.UnknownColType
	notNull := false
	for _, arg := range args {
		if !comparable(ct, arg) {
			return sql.UnknownColType, typeMismatch("%s: arguments of types %s and %s",
				nam, ct.DataType(), arg.DataType())
		}
		if ct.Type == sql.UnknownType {
			ct = arg
		} else if ct.Type.IsNumeric() && arg.Type.IsNumeric() {
			ct = widen(ct, arg)
		}
		notNull = notNull || arg.NotNull
	}
	ct.NotNull = notNull
	return ct, nil
}

func cardinalityType(nam sql.Identifier, args []sql.ColumnType) (sql.ColumnType, error) {
	if args[0].Type != sql.MultisetType && args[0].Type != sql.UnknownType {
		return sql.UnknownColType, typeMismatch("%s expects a multiset, not %s", nam,
			args[0].DataType())
	}
	return sql.ColumnType{Type: sql.IntegerType, Size: 4, NotNull: args[0].NotNull}, nil
}

func countType(nam sql.Identifier, args []sql.ColumnType) (sql.ColumnType, error) {
	return sql.Int64ColType, nil
}

func orderedType(nam sql.Identifier, args []sql.ColumnType) (sql.ColumnType, error) {
	if args[0].Type == sql.RowType || args[0].Type == sql.MultisetType {
		return sql.UnknownColType, typeMismatch("%s can not order values of type %s", nam,
			args[0].DataType())
	}
	return args[0], nil
}

func collectType(nam sql.Identifier, args []sql.ColumnType) (sql.ColumnType, error) {
	return sql.MultisetOf(args[0]), nil
}
