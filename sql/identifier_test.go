package sql_test

import (
	"testing"

	"github.com/leftmike/sqlscope/sql"
)

func TestUnquotedID(t *testing.T) {
	equal := []struct{ s1, s2 string }{
		{"abc", "abc"},
		{"Abc", "abc"},
		{"abC", "abc"},
		{"ABC", "abc"},
		{"select", "SELECT"},
		{"Lateral", "LATERAL"},
	}

	for _, c := range equal {
		if sql.UnquotedID(c.s1) != sql.UnquotedID(c.s2) {
			t.Errorf("UnquotedID(%q) != UnquotedID(%q)", c.s1, c.s2)
		}
	}

	notEqual := []struct{ s1, s2 string }{
		{"abc", "abcd"},
		{"abcd", "abc"},
		{"abc", "ABCD"},
	}

	for _, c := range notEqual {
		if sql.UnquotedID(c.s1) == sql.UnquotedID(c.s2) {
			t.Errorf("UnquotedID(%q) == UnquotedID(%q)", c.s1, c.s2)
		}
	}

	if sql.UnquotedID("select") != sql.SELECT {
		t.Errorf("UnquotedID(select) got %s want SELECT", sql.UnquotedID("select"))
	}
	if !sql.UnquotedID("From").IsReserved() {
		t.Errorf("UnquotedID(From) is not reserved")
	}
	if sql.UnquotedID("Count") != sql.COUNT {
		t.Errorf("UnquotedID(Count) got %s want count", sql.UnquotedID("Count"))
	}
}

func TestQuotedID(t *testing.T) {
	equal := []struct{ s1, s2 string }{
		{"abc", "abc"},
		{"Abc", "abc"},
		{"ABC", "abc"},
	}

	for _, c := range equal {
		if sql.UnquotedID(c.s1) != sql.QuotedID(c.s2) {
			t.Errorf("UnquotedID(%q) != QuotedID(%q)", c.s1, c.s2)
		}
	}

	notEqual := []struct{ s1, s2 string }{
		{"abc", "Abc"},
		{"abc", "ABC"},
		{"select", "select"},
		{"select", "SELECT"},
	}

	for _, c := range notEqual {
		if sql.UnquotedID(c.s1) == sql.QuotedID(c.s2) {
			t.Errorf("UnquotedID(%q) == QuotedID(%q)", c.s1, c.s2)
		}
	}

	if sql.QuotedID("SELECT").IsReserved() {
		t.Errorf("QuotedID(SELECT) is reserved")
	}
}

func TestEqualFold(t *testing.T) {
	cases := []struct {
		id1, id2 sql.Identifier
		ret      bool
	}{
		{sql.ID("empno"), sql.QuotedID("EMPNO"), true},
		{sql.ID("empno"), sql.QuotedID("EmpNo"), true},
		{sql.ID("empno"), sql.ID("empno"), true},
		{sql.ID("empno"), sql.ID("deptno"), false},
	}

	for _, c := range cases {
		if c.id1.EqualFold(c.id2) != c.ret {
			t.Errorf("EqualFold(%s, %s) got %v want %v", c.id1, c.id2, !c.ret, c.ret)
		}
	}
}

func TestString(t *testing.T) {
	id := sql.ID("abc")
	for _, s := range []string{"abc", "defg", "hijk", "lmnop", "qrstuv"} {
		sql.ID(s)
	}
	if id.String() != "abc" {
		t.Errorf("ID(abc).String() got %s want abc", id)
	}
	if sql.SELECT.String() != "SELECT" {
		t.Errorf("SELECT.String() got %s want SELECT", sql.SELECT)
	}
	if sql.QuotedID("MixedCase").String() != "MixedCase" {
		t.Errorf("QuotedID(MixedCase).String() got %s", sql.QuotedID("MixedCase"))
	}
}
