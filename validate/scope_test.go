package validate

import (
	"reflect"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"

	"github.com/leftmike/sqlscope/catalog"
	"github.com/leftmike/sqlscope/expr"
	"github.com/leftmike/sqlscope/parser"
	"github.com/leftmike/sqlscope/query"
	"github.com/leftmike/sqlscope/sql"
)

func loadCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()

	cat, err := catalog.Load("testdata/sales.hcl")
	if err != nil {
		t.Fatalf("Load(testdata/sales.hcl) failed with %s", err)
	}
	return cat
}

func parseSelect(t *testing.T, s string) *query.Select {
	t.Helper()

	stmt, err := parser.NewParser(strings.NewReader(s), "test").Parse()
	if err != nil {
		t.Fatalf("Parse(%q) failed with %s", s, err)
	}
	return stmt
}

func mustValidate(t *testing.T, v *Validator, s string) *query.Select {
	t.Helper()

	sel := parseSelect(t, s)
	_, err := v.Validate(sel)
	if err != nil {
		t.Fatalf("Validate(%q) failed with %s", s, err)
	}
	return sel
}

func ref(s string) *expr.Ref {
	return &expr.Ref{Names: sql.ParsePath(s)}
}

func findScope(v *Validator, kind ScopeKind) *Scope {
	for _, s := range v.scopes {
		if s.kind == kind {
			return s
		}
	}
	return nil
}

func TestDelegation(t *testing.T) {
	cat := loadCatalog(t)
	v := New(cat, nil)

	emp, _ := cat.LookupTable(sql.ParsePath("emp"))
	dept, _ := cat.LookupTable(sql.ParsePath("dept"))

	root := v.newScope(GenericScope, noScope, nil)
	err := root.AddChild(v.newTableNamespace(emp, nil), sql.ID("e"), false)
	if err != nil {
		t.Fatalf("AddChild(e) failed with %s", err)
	}
	s := v.newScope(GenericScope, root.id, nil)
	err = s.AddChild(v.newTableNamespace(dept, nil), sql.ID("d"), false)
	if err != nil {
		t.Fatalf("AddChild(d) failed with %s", err)
	}

	if s.Parent() != root {
		t.Errorf("Parent() got %v want %v", s.Parent(), root)
	}
	if root.Parent() != nil {
		t.Errorf("Parent() of a root scope got %v want nil", root.Parent())
	}

	for _, nam := range []string{"e", "x"} {
		id := sql.ID(nam)
		b1, err1 := s.Resolve(id)
		b2, err2 := root.Resolve(id)
		if (err1 == nil) != (err2 == nil) {
			t.Errorf("Resolve(%s) got %v and %v from the parent", nam, err1, err2)
		} else if err1 != nil {
			if !errors.Is(err1, ErrNameNotFound) {
				t.Errorf("Resolve(%s) got %s want name not found", nam, err1)
			}
		} else if b1.Scope != b2.Scope || b1.Namespace != b2.Namespace ||
			!b1.Type.Equal(b2.Type) {

			t.Errorf("Resolve(%s) got %v want %v", nam, b1, b2)
		}
	}

	b, err := s.Resolve(sql.ID("d"))
	if err != nil {
		t.Errorf("Resolve(d) failed with %s", err)
	} else if b.Scope != s || b.Namespace.Table() != dept {
		t.Errorf("Resolve(d) got %v want local table dept", b)
	}
	if _, err := root.Resolve(sql.ID("d")); !errors.Is(err, ErrNameNotFound) {
		t.Errorf("Resolve(d) in the parent got %v want name not found", err)
	}

	err = s.AddChild(v.newTableNamespace(emp, nil), sql.ID("d"), false)
	if !errors.Is(err, ErrAmbiguousName) {
		t.Errorf("AddChild(d) twice got %v want ambiguous name", err)
	}
	err = s.AddChild(v.newTableNamespace(emp, nil), sql.ID("e"), false)
	if err != nil {
		t.Errorf("AddChild(e) shadowing the parent failed with %s", err)
	}
}

func TestFullyQualify(t *testing.T) {
	v := New(loadCatalog(t), nil)
	sel := mustValidate(t, v, "SELECT 1 FROM emp e, dept")
	s := v.SelectScope(sel)
	if s == nil {
		t.Fatal("SelectScope() got nil")
	}

	cases := []struct {
		ref   string
		names string
		typ   string
	}{
		{"empno", "e.empno", "INT NOT NULL"},
		{"e.empno", "e.empno", "INT NOT NULL"},
		{"dname", "dept.dname", "VARCHAR(20)"},
		{"dept.deptno", "dept.deptno", "INT NOT NULL"},
		{"sales.dept.deptno", "dept.deptno", "INT NOT NULL"},
		{"e.addr.city", "e.addr.city", "VARCHAR(20)"},
		{"addr.zip", "e.addr.zip", "INT"},
		{"e.addr", "e.addr", "ROW(city VARCHAR(20), zip INT)"},
	}

	for _, c := range cases {
		q, err := s.FullyQualify(ref(c.ref))
		if err != nil {
			t.Errorf("FullyQualify(%s) failed with %s", c.ref, err)
			continue
		}
		if q.Names.String() != c.names {
			t.Errorf("FullyQualify(%s) got %s want %s", c.ref, q.Names, c.names)
		}
		if q.PrefixLength != 1 || q.Scope != s {
			t.Errorf("FullyQualify(%s) got prefix %d in scope %d", c.ref, q.PrefixLength,
				q.Scope.id)
		}
		ct, err := q.Type()
		if err != nil {
			t.Errorf("FullyQualify(%s).Type() failed with %s", c.ref, err)
		} else if ct.String() != c.typ {
			t.Errorf("FullyQualify(%s).Type() got %s want %s", c.ref, ct, c.typ)
		}
	}

	fail := []struct {
		ref  *expr.Ref
		err  error
		hint string
	}{
		{ref: ref("deptno"), err: ErrAmbiguousName},
		{ref: ref("bogus"), err: ErrNameNotFound},
		{ref: ref("bogus.empno"), err: ErrNameNotFound},
		{ref: ref("e.bogus"), err: ErrNameNotFound},
		{ref: ref("e.addr.bogus"), err: ErrNameNotFound},
		{ref: ref("sales.emp.empno"), err: ErrNameNotFound},
		{ref: ref("db.hr.emp.id"), err: ErrNameNotFound},
		{
			ref:  &expr.Ref{Names: []sql.Identifier{sql.QuotedID("E"), sql.ID("empno")}},
			err:  ErrNameNotFound,
			hint: "did you mean e?",
		},
		{
			ref:  &expr.Ref{Names: []sql.Identifier{sql.QuotedID("EMPNO")}},
			err:  ErrNameNotFound,
			hint: "did you mean e.empno?",
		},
		{
			ref:  &expr.Ref{Names: []sql.Identifier{sql.ID("e"), sql.QuotedID("Ename")}},
			err:  ErrNameNotFound,
			hint: "did you mean ename?",
		},
		{ref: &expr.Ref{}, err: ErrNullReference},
		{ref: nil, err: ErrNullReference},
	}

	for _, f := range fail {
		_, err := s.FullyQualify(f.ref)
		if err == nil {
			t.Errorf("FullyQualify(%v) did not fail", f.ref)
			continue
		}
		if !errors.Is(err, f.err) {
			t.Errorf("FullyQualify(%v) got %s want %s", f.ref, err, f.err)
		}
		if f.hint != "" {
			hints := errors.GetAllHints(err)
			if len(hints) != 1 || hints[0] != f.hint {
				t.Errorf("FullyQualify(%v) got hints %v want %s", f.ref, hints, f.hint)
			}
		}
	}
}

func TestTableScope(t *testing.T) {
	v := New(loadCatalog(t), nil)
	sel := mustValidate(t, v,
		"SELECT * FROM emp e, LATERAL (SELECT d.dname FROM dept d WHERE d.deptno = e.deptno) x")

	ts := findScope(v, TableScope)
	if ts == nil {
		t.Fatal("no table scope")
	}
	fs := sel.From.(*query.FromJoin).Right.(*query.FromStmt)
	if ts.Node() != fs {
		t.Errorf("Node() got %v want %s", ts.Node(), fs)
	}
	if !ts.IsWithin(ts) {
		t.Error("IsWithin(self) got false")
	}
	if !ts.IsWithin(v.SelectScope(sel)) {
		t.Error("IsWithin(owning select scope) got false")
	}
	inner := v.SelectScope(fs.Stmt)
	if ts.IsWithin(inner) {
		t.Error("IsWithin(lateral select scope) got true")
	}
	if inner.IsWithin(ts) {
		t.Error("generic IsWithin(other) got true")
	}

	if b, err := ts.Resolve(sql.ID("e")); err != nil {
		t.Errorf("Resolve(e) failed with %s", err)
	} else if b.Scope != ts {
		t.Errorf("Resolve(e) got scope %d want %d", b.Scope.id, ts.id)
	}
	if _, err := ts.Resolve(sql.ID("x")); !errors.Is(err, ErrNameNotFound) {
		t.Errorf("Resolve(x) got %v want name not found", err)
	}

	var correlated []string
	for _, r := range v.Resolutions() {
		if r.Correlated {
			correlated = append(correlated, r.Names.String()+" in "+r.Clause)
		}
	}
	if len(correlated) != 1 || correlated[0] != "e.deptno in WHERE" {
		t.Errorf("Resolutions() got correlated %v want e.deptno in WHERE", correlated)
	}

	_, err := v.Validate(parseSelect(t,
		"SELECT * FROM emp e, (SELECT d.dname FROM dept d WHERE d.deptno = e.deptno) x"))
	if !errors.Is(err, ErrNameNotFound) {
		t.Errorf("Validate(not lateral) got %v want name not found", err)
	}
}

func TestGroupByScope(t *testing.T) {
	v := New(loadCatalog(t), nil)
	sel := mustValidate(t, v, "SELECT empno AS x FROM emp GROUP BY x")

	gs := findScope(v, GroupByScope)
	if gs == nil {
		t.Fatal("no group by scope")
	}
	if gs.Node() != sel.GroupBy {
		t.Errorf("Node() got %v want %v", gs.Node(), sel.GroupBy)
	}
	if gs.Parent() != v.SelectScope(sel) {
		t.Errorf("Parent() got %v want the select scope", gs.Parent())
	}

	exps := v.Expansions()
	if len(exps) != 1 || exps[0].Clause != "GROUP BY" || exps[0].From.String() != "x" ||
		exps[0].To.String() != "emp.empno" {

		t.Errorf("Expansions() got %v want x to emp.empno", exps)
	}

	e, err := v.ExpandGroupByOrHavingExpr(ref("x"), gs, sel, false)
	if err != nil {
		t.Errorf("ExpandGroupByOrHavingExpr(x) failed with %s", err)
	} else if e.String() != "emp.empno" {
		t.Errorf("ExpandGroupByOrHavingExpr(x) got %s want emp.empno", e)
	}
	e, err = v.ExpandGroupByOrHavingExpr(ref("ename"), gs, sel, false)
	if err != nil {
		t.Errorf("ExpandGroupByOrHavingExpr(ename) failed with %s", err)
	} else if e.String() != "emp.ename" {
		t.Errorf("ExpandGroupByOrHavingExpr(ename) got %s want emp.ename", e)
	}

	// The select item replaces the alias as is.
	sel = mustValidate(t, v, "SELECT empno + 1 AS x FROM emp GROUP BY x")
	exps = v.Expansions()
	item := sel.Results[0].(query.ExprResult).Expr
	if len(exps) != 1 || exps[0].To != item {
		t.Errorf("Expansions() got %v want %s", exps, item)
	}

	// An alias is expanded once: empno is not expanded again to deptno.
	mustValidate(t, v, "SELECT deptno AS empno, empno AS x FROM emp GROUP BY x")
	exps = v.Expansions()
	if len(exps) != 1 || exps[0].To.String() != "emp.empno" {
		t.Errorf("Expansions() got %v want x to emp.empno", exps)
	}

	_, err = v.Validate(parseSelect(t, "SELECT empno AS x FROM emp GROUP BY y"))
	if !errors.Is(err, ErrUnknownIdentifier) {
		t.Errorf("Validate(GROUP BY y) got %v want unknown identifier", err)
	}
	if !errors.Is(err, ErrNameNotFound) {
		t.Errorf("Validate(GROUP BY y) got %v want name not found", err)
	}
}

func TestParameterScope(t *testing.T) {
	v := New(nil, nil)
	params := map[sql.Identifier]sql.ColumnType{
		sql.ID("a"): sql.Int32ColType,
		sql.ID("b"): {Type: sql.StringType, Size: 20},
	}
	ps := v.NewParameterScope(params, nil)

	if ps.Parent() != nil {
		t.Errorf("Parent() got %v want nil", ps.Parent())
	}
	c := &expr.Call{Name: sql.UPPER}
	if ps.OperandScope(c) != ps {
		t.Errorf("OperandScope() got %v want itself", ps.OperandScope(c))
	}

	q, err := ps.FullyQualify(ref("a.b.c"))
	if err != nil {
		t.Fatalf("FullyQualify(a.b.c) failed with %s", err)
	}
	if q.Scope != ps || q.Namespace != nil || q.PrefixLength != 1 {
		t.Errorf("FullyQualify(a.b.c) got scope %d prefix %d", q.Scope.id, q.PrefixLength)
	}
	if q.Names.String() != "a.b.c" || q.Suffix().String() != "b.c" {
		t.Errorf("FullyQualify(a.b.c) got %s suffix %s want a.b.c suffix b.c", q.Names,
			q.Suffix())
	}

	b, err := ps.Resolve(sql.ID("b"))
	if err != nil {
		t.Errorf("Resolve(b) failed with %s", err)
	} else if b.Type.String() != "VARCHAR(20)" || b.Namespace != nil {
		t.Errorf("Resolve(b) got %s want VARCHAR(20)", b.Type)
	}
	if _, err := ps.Resolve(sql.ID("z")); !errors.Is(err, ErrNameNotFound) {
		t.Errorf("Resolve(z) got %v want name not found", err)
	}

	cases := []struct {
		e   string
		typ string
	}{
		{"a", "INT NOT NULL"},
		{"a + 1", "BIGINT NOT NULL"},
		{"upper(b) || 'x'", "TEXT"},
		{"a = char_length(b)", "BOOL"},
		{"(SELECT b)", "VARCHAR(20)"},
	}

	for _, c := range cases {
		e, err := parser.NewParser(strings.NewReader(c.e), c.e).ParseExpr()
		if err != nil {
			t.Fatalf("ParseExpr(%q) failed with %s", c.e, err)
		}
		ct, err := v.ValidateParameterizedExpr(e, params)
		if err != nil {
			t.Errorf("ValidateParameterizedExpr(%s) failed with %s", c.e, err)
		} else if ct.String() != c.typ {
			t.Errorf("ValidateParameterizedExpr(%s) got %s want %s", c.e, ct, c.typ)
		}
	}

	fail := []struct {
		e   string
		err error
	}{
		{"z", ErrNameNotFound},
		{"a.b", ErrTypeMismatch},
		{"a + b", ErrTypeMismatch},
		{"count(a)", ErrInvalidQuery},
		{"foo(a)", ErrUnknownFunction},
	}

	for _, f := range fail {
		e, err := parser.NewParser(strings.NewReader(f.e), f.e).ParseExpr()
		if err != nil {
			t.Fatalf("ParseExpr(%q) failed with %s", f.e, err)
		}
		_, err = v.ValidateParameterizedExpr(e, params)
		if err == nil {
			t.Errorf("ValidateParameterizedExpr(%s) did not fail", f.e)
		} else if !errors.Is(err, f.err) {
			t.Errorf("ValidateParameterizedExpr(%s) got %s want %s", f.e, err, f.err)
		}
	}
}

func TestSchemaNamespace(t *testing.T) {
	v := New(loadCatalog(t), nil)

	ns, err := v.NewSchemaNamespace(sql.ParsePath("db.hr"))
	if err != nil {
		t.Fatalf("NewSchemaNamespace(db.hr) failed with %s", err)
	}
	if ns.Kind() != SchemaNamespace || ns.Node() != nil || !ns.IsValidated() {
		t.Errorf("NewSchemaNamespace(db.hr) got kind %s node %v", ns.Kind(), ns.Node())
	}
	if ns.Path().String() != "db.hr" {
		t.Errorf("Path() got %s want db.hr", ns.Path())
	}

	types := []sql.ColumnType{
		sql.UnknownColType,
		sql.Int32ColType,
		sql.NullStringColType,
		sql.RowOf(sql.Field{Name: sql.ID("a"), Type: sql.BoolColType}),
		sql.MultisetOf(sql.FloatColType),
	}
	for _, typ := range types {
		ct, err := ns.Validate(typ)
		if err != nil {
			t.Errorf("Validate(%s) failed with %s", typ, err)
		} else if !reflect.DeepEqual(ct, typ) {
			t.Errorf("Validate(%s) got %s", typ, ct)
		}
	}

	for _, p := range []sql.Path{nil, {}} {
		_, err := v.NewSchemaNamespace(p)
		if !errors.Is(err, ErrNullPath) {
			t.Errorf("NewSchemaNamespace(%v) got %v want null path", p, err)
		}
	}
}

func TestMoniker(t *testing.T) {
	r := ref("sales.emp.empno")
	m, err := NewMoniker(r)
	if err != nil {
		t.Fatalf("NewMoniker(%s) failed with %s", r, err)
	}
	if m.Type() != ColumnMoniker || m.Type().String() != "column" {
		t.Errorf("Type() got %s want column", m.Type())
	}
	fqn := m.FullyQualifiedNames()
	if len(fqn) != len(r.Names) || &fqn[0] != &r.Names[0] {
		t.Errorf("FullyQualifiedNames() got %v want %v", fqn, r.Names)
	}
	if m.ID() != "sales.emp.empno" || m.String() != "sales.emp.empno" {
		t.Errorf("ID() got %s want sales.emp.empno", m.ID())
	}

	m, err = NewMoniker(ref("sales"))
	if err != nil {
		t.Fatalf("NewMoniker(sales) failed with %s", err)
	}
	if m.Type() != ColumnMoniker {
		t.Errorf("Type() of a schema name got %s want column", m.Type())
	}

	_, err = NewMoniker(nil)
	if !errors.Is(err, ErrNullReference) {
		t.Errorf("NewMoniker(nil) got %v want null reference", err)
	}

	v := New(loadCatalog(t), nil)
	sel := mustValidate(t, v, "SELECT 1 FROM dept d")
	var ids []string
	for _, m := range v.SelectScope(sel).FindAllColumnNames() {
		ids = append(ids, m.ID())
	}
	if strings.Join(ids, " ") != "d.deptno d.dname" {
		t.Errorf("FindAllColumnNames() got %v want d.deptno d.dname", ids)
	}
}

func TestCollectScope(t *testing.T) {
	v := New(loadCatalog(t), nil)
	sel := mustValidate(t, v,
		"SELECT MULTISET(SELECT d.dname FROM dept d WHERE d.deptno = e.deptno) FROM emp e")

	cs := findScope(v, CollectScope)
	if cs == nil {
		t.Fatal("no collect scope")
	}
	ms := sel.Results[0].(query.ExprResult).Expr.(*expr.Multiset)
	if cs.Node() != ms {
		t.Errorf("Node() got %v want %s", cs.Node(), ms)
	}

	// Names of the parent are visible inside the multiset.
	if b, err := cs.Resolve(sql.ID("e")); err != nil {
		t.Errorf("Resolve(e) failed with %s", err)
	} else if b.Scope != v.SelectScope(sel) {
		t.Errorf("Resolve(e) got scope %d want the select scope", b.Scope.id)
	}
	inner := v.SelectScope(ms.Query.(*query.Select))
	if _, err := inner.Resolve(sql.ID("d")); err != nil {
		t.Errorf("Resolve(d) failed with %s", err)
	}

	// Names bound inside the multiset are not visible outside it.
	if _, err := cs.Resolve(sql.ID("d")); !errors.Is(err, ErrNameNotFound) {
		t.Errorf("Resolve(d) got %v want name not found", err)
	}
	if _, err := v.SelectScope(sel).Resolve(sql.ID("d")); !errors.Is(err, ErrNameNotFound) {
		t.Errorf("Resolve(d) in the parent got %v want name not found", err)
	}

	_, err := v.Validate(parseSelect(t,
		"SELECT MULTISET(SELECT d.dname FROM dept d), d.dname FROM emp e"))
	if !errors.Is(err, ErrNameNotFound) {
		t.Errorf("Validate(d outside multiset) got %v want name not found", err)
	}

	rt, err := v.Validate(parseSelect(t, "SELECT collect(e.ename) AS names FROM emp e"))
	if err != nil {
		t.Fatalf("Validate(collect) failed with %s", err)
	}
	if rt.String() != "ROW(names VARCHAR(20) MULTISET)" {
		t.Errorf("Validate(collect) got %s", rt)
	}
	cs = findScope(v, CollectScope)
	if c, ok := cs.Node().(*expr.Call); !ok || c.Name != sql.COLLECT {
		t.Errorf("Node() got %v want collect(e.ename)", cs.Node())
	}
}

func TestNamespace(t *testing.T) {
	v := New(loadCatalog(t), nil)
	sel := mustValidate(t, v, "SELECT x.n FROM (SELECT count(*) AS n FROM emp) x")

	var ns *Namespace
	for _, n := range v.namespaces {
		if n.Kind() == SelectNamespace {
			ns = n
		}
	}
	if ns == nil {
		t.Fatal("no select namespace")
	}
	if !ns.IsValidated() || ns.Node() != sel.From {
		t.Errorf("select namespace got validated %v node %v", ns.IsValidated(), ns.Node())
	}
	rt1, _ := ns.RowType()
	rt2, _ := ns.Validate(sql.UnknownColType)
	if rt1.String() != "ROW(n BIGINT)" || !rt1.Equal(rt2) {
		t.Errorf("RowType() got %s and %s want ROW(n BIGINT)", rt1, rt2)
	}
	for _, n := range v.namespaces {
		if n.Kind() == TableNamespace && n.Enclosing() != ns {
			t.Errorf("Enclosing() of %s got %v want %d", n.Path(), n.Enclosing(), ns.ID())
		}
	}
	if ns.Enclosing() != nil {
		t.Errorf("Enclosing() got %v want nil", ns.Enclosing())
	}
}
