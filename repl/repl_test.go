package repl_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/andreyvit/diff"

	"github.com/leftmike/sqlscope/catalog"
	"github.com/leftmike/sqlscope/flags"
	"github.com/leftmike/sqlscope/parser"
	"github.com/leftmike/sqlscope/repl"
)

const testHCL = `
default_schema = "sales"

schema "sales" {
  table "emp" {
    column "empno" {
      type = "INTEGER"
      not_null = true
    }
    column "ename" {
      type = "VARCHAR(20)"
    }
  }
}
`

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()

	cat, err := catalog.Parse(testHCL, "test.hcl")
	if err != nil {
		t.Fatalf("Parse(test.hcl) failed with %s", err)
	}
	return cat
}

func TestReplSQLErrors(t *testing.T) {
	cat := testCatalog(t)

	input := `SELECT "EMPNO" FROM emp;
SELECT * FROM bogus;
SELECT ename FROM emp WHERE empno;
`
	want := `repl:1:8: column EMPNO not found in any table
hint: did you mean emp.empno?
repl:2:15: table bogus not found
repl:3:29: WHERE must be a boolean expression, not INT
`

	var b bytes.Buffer
	failed := repl.ReplSQL(cat, flags.Default(), parser.NewParser(strings.NewReader(input),
		"repl"), &b)
	if failed != 3 {
		t.Errorf("ReplSQL() got %d failed want 3", failed)
	}
	if got := b.String(); got != want {
		t.Errorf("ReplSQL() got:\n%s", diff.LineDiff(want, got))
	}
}

func TestReplSQL(t *testing.T) {
	cat := testCatalog(t)

	input := "SELECT empno AS x, e.ename FROM emp e ORDER BY x"

	var b bytes.Buffer
	failed := repl.ReplSQL(cat, flags.Default(), parser.NewParser(strings.NewReader(input),
		"repl"), &b)
	if failed != 0 {
		t.Fatalf("ReplSQL() failed with:\n%s", b.String())
	}

	out := b.String()
	for _, s := range []string{
		"ROW(x INT, ename VARCHAR(20))\n",
		"ORDER BY",
		"e.empno",
		"e.ename",
		"VARCHAR(20)",
		"INT NOT NULL",
		"(3 identifiers)",
	} {
		if !strings.Contains(out, s) {
			t.Errorf("ReplSQL() output missing %q:\n%s", s, out)
		}
	}
}

func TestListCatalog(t *testing.T) {
	cat := testCatalog(t)

	var b bytes.Buffer
	repl.ListCatalog(cat, &b)
	out := b.String()
	for _, s := range []string{
		"sales.emp",
		"empno",
		"INT NOT NULL",
		"default schema: sales\n",
		"schemas: sales\n",
	} {
		if !strings.Contains(out, s) {
			t.Errorf("ListCatalog() output missing %q:\n%s", s, out)
		}
	}
}
