package sql_test

import (
	"testing"

	"github.com/leftmike/sqlscope/sql"
)

func TestPath(t *testing.T) {
	cases := []struct {
		s   string
		p   sql.Path
		str string
	}{
		{"", nil, ""},
		{"emp", sql.Path{sql.ID("emp")}, "emp"},
		{"sales.emp", sql.Path{sql.ID("sales"), sql.ID("emp")}, "sales.emp"},
		{"Sales.EMP.EmpNo", sql.Path{sql.ID("sales"), sql.ID("emp"), sql.ID("empno")},
			"sales.emp.empno"},
	}

	for _, c := range cases {
		p := sql.ParsePath(c.s)
		if !p.Equal(c.p) {
			t.Errorf("ParsePath(%q) got %s want %s", c.s, p, c.p)
		}
		if p.String() != c.str {
			t.Errorf("ParsePath(%q).String() got %s want %s", c.s, p.String(), c.str)
		}
	}

	p := sql.ParsePath("sales.emp.empno")
	if !p.HasPrefix(sql.ParsePath("sales.emp")) {
		t.Errorf("%s.HasPrefix(sales.emp) failed", p)
	}
	if p.HasPrefix(sql.ParsePath("emp")) {
		t.Errorf("%s.HasPrefix(emp) succeeded", p)
	}
	if !p.HasSuffix(sql.ParsePath("emp.empno")) {
		t.Errorf("%s.HasSuffix(emp.empno) failed", p)
	}
	if p.Last() != sql.ID("empno") {
		t.Errorf("%s.Last() got %s want empno", p, p.Last())
	}
	if sql.Path(nil).Last() != 0 {
		t.Errorf("empty path Last() got %s", sql.Path(nil).Last())
	}

	base := sql.ParsePath("sales")
	np := base.Append(sql.ID("emp"))
	if len(base) != 1 || np.String() != "sales.emp" {
		t.Errorf("Append got %s and %s", base, np)
	}
}
