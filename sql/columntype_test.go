package sql_test

import (
	"testing"

	"github.com/leftmike/sqlscope/sql"
)

func TestColumnType(t *testing.T) {
	row := sql.RowOf(
		sql.Field{Name: sql.ID("a"), Type: sql.Int32ColType},
		sql.Field{Name: sql.ID("b"), Type: sql.ColumnType{Type: sql.StringType, Size: 20}})

	cases := []struct {
		ct  sql.ColumnType
		dt  string
		str string
	}{
		{sql.Int32ColType, "INT", "INT NOT NULL"},
		{sql.NullInt64ColType, "BIGINT", "BIGINT"},
		{sql.BoolColType, "BOOL", "BOOL NOT NULL"},
		{sql.FloatColType, "DOUBLE", "DOUBLE NOT NULL"},
		{sql.NullStringColType, "TEXT", "TEXT"},
		{sql.ColumnType{Type: sql.StringType, Size: 10, Fixed: true}, "CHAR(10)", "CHAR(10)"},
		{sql.ColumnType{Type: sql.StringType, Size: 20}, "VARCHAR(20)", "VARCHAR(20)"},
		{row, "ROW(a INT, b VARCHAR(20))", "ROW(a INT, b VARCHAR(20))"},
		{sql.MultisetOf(sql.Int32ColType), "INT MULTISET", "INT MULTISET"},
		{sql.UnknownColType, "UNKNOWN", "UNKNOWN"},
	}

	for _, c := range cases {
		if c.ct.DataType() != c.dt {
			t.Errorf("DataType() got %s want %s", c.ct.DataType(), c.dt)
		}
		if c.ct.String() != c.str {
			t.Errorf("String() got %s want %s", c.ct.String(), c.str)
		}
	}

	fdx, f, ok := row.Field(sql.ID("b"))
	if !ok || fdx != 1 || f.Type.Type != sql.StringType {
		t.Errorf("Field(b) got %d %v %v", fdx, f, ok)
	}
	if _, _, ok := row.Field(sql.ID("c")); ok {
		t.Errorf("Field(c) succeeded")
	}
	if _, _, ok := sql.Int32ColType.Field(sql.ID("a")); ok {
		t.Errorf("INT.Field(a) succeeded")
	}
	if _, ok := row.FieldFold(sql.QuotedID("B")); !ok {
		t.Errorf("FieldFold(B) failed")
	}

	nrow := row.Nullable()
	if nrow.Fields[0].Type.NotNull {
		t.Errorf("Nullable() field a is still NOT NULL")
	}
	if row.Fields[0].Type.NotNull != true {
		t.Errorf("Nullable() modified the original row")
	}
	if !nrow.Equal(row) {
		t.Errorf("Nullable() not Equal to original: %s %s", nrow, row)
	}
	if sql.Int32ColType.Equal(sql.Int64ColType) {
		t.Errorf("INT Equal BIGINT")
	}
}

func TestValue(t *testing.T) {
	cases := []struct {
		v   sql.Value
		s   string
		typ string
	}{
		{nil, "NULL", "UNKNOWN"},
		{sql.BoolValue(true), "true", "BOOL NOT NULL"},
		{sql.Int64Value(123), "123", "BIGINT NOT NULL"},
		{sql.Float64Value(1.5), "1.5", "DOUBLE NOT NULL"},
		{sql.StringValue("it's"), "'it''s'", "CHAR(4) NOT NULL"},
	}

	for _, c := range cases {
		if sql.Format(c.v) != c.s {
			t.Errorf("Format(%v) got %s want %s", c.v, sql.Format(c.v), c.s)
		}
		if sql.TypeOf(c.v).String() != c.typ {
			t.Errorf("TypeOf(%v) got %s want %s", c.v, sql.TypeOf(c.v), c.typ)
		}
	}
}
