package validate

import (
	"fmt"
	"strconv"

	"github.com/cockroachdb/errors"
	log "github.com/sirupsen/logrus"

	"github.com/leftmike/sqlscope/catalog"
	"github.com/leftmike/sqlscope/expr"
	"github.com/leftmike/sqlscope/flags"
	"github.com/leftmike/sqlscope/query"
	"github.com/leftmike/sqlscope/sql"
)

// Catalog is the metadata the validator needs; *catalog.Catalog implements it.
type Catalog interface {
	LookupTable(p sql.Path) (*catalog.Table, bool)
	IsSchema(p sql.Path) bool
}

// Resolution records how one identifier was resolved.
type Resolution struct {
	Ref        *expr.Ref
	Names      sql.Path // fully qualified
	Type       sql.ColumnType
	Scope      *Scope // scope which the first name was resolved in
	Clause     string
	Correlated bool // refers to a relation of an enclosing select
}

// Expansion records a select list alias or ordinal which was replaced by the select item it
// refers to.
type Expansion struct {
	Clause string
	From   expr.Expr
	To     expr.Expr
}

type selectItem struct {
	expr  expr.Expr
	alias sql.Identifier // explicit alias, or the last name of a column reference
	name  sql.Identifier // unique name of the output column
}

// Validator resolves the names of one query at a time. Each call to Validate or
// ValidateParameterizedExpr starts over with no scopes and no namespaces; a Validator must
// not be used concurrently.
type Validator struct {
	cat   Catalog
	flags flags.Flags

	scopes         []*Scope
	namespaces     []*Namespace
	namespaceStack []NamespaceID
	selectScopes   map[*query.Select]ScopeID
	owners         map[interface{}]*query.Select // LATERAL subquery to the select owning it
	selectItems    map[*query.Select][]selectItem
	resolutions    []Resolution
	expansions     []Expansion

	nodes   []sql.Position
	errPos  sql.Position
	selects []*query.Select
	clause  string
	noAgg   string // aggregates are not allowed here
}

func New(cat Catalog, flgs flags.Flags) *Validator {
	if flgs == nil {
		flgs = flags.Default()
	}
	v := &Validator{
		cat:   cat,
		flags: flgs,
	}
	v.reset()
	return v
}

func (v *Validator) reset() {
	v.scopes = nil
	v.namespaces = nil
	v.namespaceStack = nil
	v.selectScopes = map[*query.Select]ScopeID{}
	v.owners = map[interface{}]*query.Select{}
	v.selectItems = map[*query.Select][]selectItem{}
	v.resolutions = nil
	v.expansions = nil
	v.nodes = nil
	v.errPos = sql.Position{}
	v.selects = nil
	v.clause = ""
	v.noAgg = ""
}

// Validate resolves every name in sel and returns the row type of the query.
func (v *Validator) Validate(sel *query.Select) (sql.ColumnType, error) {
	v.reset()

	rt, err := v.validateSelect(sel, noScope)
	if err != nil {
		log.WithFields(log.Fields{
			"query": sel,
			"error": err,
		}).Debug("validate failed")
		return sql.UnknownColType, v.wrapError(err)
	}

	log.WithFields(log.Fields{
		"query":       sel,
		"scopes":      len(v.scopes),
		"namespaces":  len(v.namespaces),
		"resolutions": len(v.resolutions),
	}).Debug("validate")
	return rt, nil
}

// ValidateParameterizedExpr validates e, such as the body of a routine, where the only names
// visible are params.
func (v *Validator) ValidateParameterizedExpr(e expr.Expr,
	params map[sql.Identifier]sql.ColumnType) (sql.ColumnType, error) {

	v.reset()

	s := v.NewParameterScope(params, e)
	v.noAgg = "a parameterized expression"
	ct, err := s.ValidateExpr(e)
	if err != nil {
		return sql.UnknownColType, v.wrapError(err)
	}
	return ct, nil
}

func (v *Validator) wrapError(err error) error {
	if v.errPos.IsValid() {
		return errors.Wrapf(err, "%s", v.errPos)
	}
	return err
}

// SelectScope returns the scope of the FROM clause of sel.
func (v *Validator) SelectScope(sel *query.Select) *Scope {
	sid, ok := v.selectScopes[sel]
	if !ok {
		return nil
	}
	return v.scopes[sid]
}

func (v *Validator) Resolutions() []Resolution {
	return v.resolutions
}

func (v *Validator) Expansions() []Expansion {
	return v.expansions
}

func (v *Validator) enclosing() NamespaceID {
	if len(v.namespaceStack) == 0 {
		return noNamespace
	}
	return v.namespaceStack[len(v.namespaceStack)-1]
}

func (v *Validator) currentSelect() *query.Select {
	if len(v.selects) == 0 {
		return nil
	}
	return v.selects[len(v.selects)-1]
}

func (v *Validator) enter(pos sql.Position) {
	v.nodes = append(v.nodes, pos)
}

// leave pops the current node; the position of the innermost node is kept for the first
// error.
func (v *Validator) leave(err error) error {
	if err != nil && !v.errPos.IsValid() {
		for ndx := len(v.nodes) - 1; ndx >= 0; ndx -= 1 {
			if v.nodes[ndx].IsValid() {
				v.errPos = v.nodes[ndx]
				break
			}
		}
	}
	v.nodes = v.nodes[:len(v.nodes)-1]
	return err
}

func (v *Validator) validateSelect(sel *query.Select, parent ScopeID) (sql.ColumnType, error) {
	v.enter(sel.Pos)
	rt, err := v.validateSelectClauses(sel, parent)
	return rt, v.leave(err)
}

func (v *Validator) validateSelectClauses(sel *query.Select, parent ScopeID) (sql.ColumnType,
	error) {

	s := v.newScope(GenericScope, parent, sel)
	v.selectScopes[sel] = s.id

	v.selects = append(v.selects, sel)
	clause, noAgg := v.clause, v.noAgg
	defer func() {
		v.selects = v.selects[:len(v.selects)-1]
		v.clause, v.noAgg = clause, noAgg
	}()

	if sel.From != nil {
		v.clause = "FROM"
		v.noAgg = "FROM"
		err := v.registerFrom(s, sel, sel.From, false)
		if err != nil {
			return sql.UnknownColType, err
		}
	}

	items, err := v.expandSelectList(s, sel)
	if err != nil {
		return sql.UnknownColType, err
	}
	v.selectItems[sel] = items

	if sel.Where != nil {
		v.clause = "WHERE"
		v.noAgg = "WHERE"
		err := v.validateCondition(s, sel.Where, sel.Where)
		if err != nil {
			return sql.UnknownColType, err
		}
	}

	if sel.GroupBy != nil {
		v.clause = "GROUP BY"
		v.noAgg = "GROUP BY"
		gs := v.newScope(GroupByScope, s.id, sel.GroupBy)
		gs.sel = sel
		for _, e := range sel.GroupBy.Exprs {
			_, err := gs.ValidateExpr(e)
			if err != nil {
				return sql.UnknownColType, err
			}
		}
	}

	v.clause = "SELECT"
	v.noAgg = ""
	fields := make([]sql.Field, 0, len(items))
	for _, item := range items {
		ct, err := s.ValidateExpr(item.expr)
		if err != nil {
			return sql.UnknownColType, err
		}
		fields = append(fields, sql.Field{Name: item.name, Type: ct})
	}

	if sel.Having != nil {
		v.clause = "HAVING"
		v.enter(sel.Having.Position())
		expanded, err := v.ExpandGroupByOrHavingExpr(sel.Having, s, sel, true)
		if err = v.leave(err); err != nil {
			return sql.UnknownColType, err
		}
		err = v.validateCondition(s, sel.Having, expanded)
		if err != nil {
			return sql.UnknownColType, err
		}
	}

	if sel.OrderBy != nil {
		v.clause = "ORDER BY"
		os := v.newScope(OrderByScope, s.id, sel.OrderBy)
		os.sel = sel
		for _, ob := range sel.OrderBy {
			_, err := os.ValidateExpr(ob.Expr)
			if err != nil {
				return sql.UnknownColType, err
			}
		}
	}

	// Subqueries in FROM which were never referenced still have to be valid.
	for _, c := range s.children {
		_, err := s.namespace(c).RowType()
		if err != nil {
			return sql.UnknownColType, err
		}
	}

	return sql.RowOf(fields...), nil
}

func (v *Validator) registerFrom(s *Scope, sel *query.Select, fi query.FromItem,
	nullable bool) error {

	switch fi := fi.(type) {
	case *query.FromTableAlias:
		v.enter(fi.Pos)
		return v.leave(v.registerTable(s, fi, nullable))
	case *query.FromStmt:
		v.enter(fi.Pos)
		return v.leave(v.registerSubquery(s, sel, fi, nullable))
	case *query.FromJoin:
		return v.registerJoin(s, sel, fi, nullable)
	}
	return errors.AssertionFailedf("unexpected from item: %T: %s", fi, fi)
}

func (v *Validator) registerTable(s *Scope, fta *query.FromTableAlias, nullable bool) error {
	var tbl *catalog.Table
	ok := false
	if v.cat != nil {
		tbl, ok = v.cat.LookupTable(fta.Path)
	}
	if !ok {
		err := nameNotFound("table %s not found", fta.Path)
		if v.cat != nil && v.cat.IsSchema(fta.Path) {
			err = errors.WithDetailf(err, "%s is a schema", fta.Path)
		}
		return err
	}
	return s.AddChild(v.newTableNamespace(tbl, fta), fta.Name(), nullable)
}

func (v *Validator) registerSubquery(s *Scope, sel *query.Select, fs *query.FromStmt,
	nullable bool) error {

	if fs.Alias == 0 {
		return invalidQuery("subquery in FROM must have an alias")
	}

	var ns *Namespace
	if fs.Lateral {
		// The relations to the left are visible to a LATERAL subquery.
		ts := v.newScope(TableScope, s.parent, fs)
		ts.children = append(ts.children, s.children...)
		v.owners[fs] = sel
		ns = v.newSelectNamespace(fs, ts.id)
	} else {
		ns = v.newSelectNamespace(fs, s.parent)
	}
	return s.AddChild(ns, fs.Alias, nullable)
}

func (v *Validator) registerJoin(s *Scope, sel *query.Select, fj *query.FromJoin,
	nullable bool) error {

	start := len(s.children)
	err := v.registerFrom(s, sel, fj.Left, nullable)
	if err != nil {
		return err
	}
	mid := len(s.children)
	err = v.registerFrom(s, sel, fj.Right, nullable || fj.Type == query.LeftJoin)
	if err != nil {
		return err
	}

	if fj.On != nil {
		v.clause = "ON"
		err := v.validateCondition(s, fj.On, fj.On)
		v.clause = "FROM"
		if err != nil {
			return err
		}
	}

	for _, col := range fj.Using {
		left, lct, err := s.usingColumn(col, start, mid, "left")
		if err != nil {
			return err
		}
		_, rct, err := s.usingColumn(col, mid, len(s.children), "right")
		if err != nil {
			return err
		}
		if !comparable(lct, rct) {
			return typeMismatch("USING column %s has type %s on the left and %s on the right",
				col, lct.DataType(), rct.DataType())
		}
		if s.using == nil {
			s.using = map[sql.Identifier]int{}
		}
		s.using[col] = left
	}
	return nil
}

// usingColumn returns the index of the one child in s.children[start:end] with a column
// named col.
func (s *Scope) usingColumn(col sql.Identifier, start, end int, side string) (int,
	sql.ColumnType, error) {

	cdx := -1
	var ct sql.ColumnType
	for ndx := start; ndx < end; ndx += 1 {
		rt, err := s.childRowType(s.children[ndx])
		if err != nil {
			return -1, sql.UnknownColType, err
		}
		if _, f, ok := rt.Field(col); ok {
			if cdx >= 0 {
				return -1, sql.UnknownColType,
					ambiguousName("USING column %s is ambiguous on the %s side", col, side)
			}
			cdx = ndx
			ct = f.Type
		}
	}
	if cdx < 0 {
		return -1, sql.UnknownColType,
			nameNotFound("USING column %s not found on the %s side", col, side)
	}
	return cdx, ct, nil
}

// expandSelectList replaces * and table.* by the columns they stand for and names every
// item.
func (v *Validator) expandSelectList(s *Scope, sel *query.Select) ([]selectItem, error) {
	var items []selectItem
	expandStar := func(c child) error {
		rt, err := s.childRowType(c)
		if err != nil {
			return err
		}
		for _, f := range rt.Fields {
			items = append(items, selectItem{
				expr:  &expr.Ref{Names: []sql.Identifier{c.alias, f.Name}, Pos: sel.Pos},
				alias: f.Name,
				name:  f.Name,
			})
		}
		return nil
	}

	if sel.Results == nil {
		if len(s.children) == 0 {
			return nil, invalidQuery("SELECT * with no tables specified is not valid")
		}
		for _, c := range s.children {
			err := expandStar(c)
			if err != nil {
				return nil, err
			}
		}
	}

	for _, sr := range sel.Results {
		switch sr := sr.(type) {
		case query.TableResult:
			c, ok := s.findChild(sr.Table)
			if !ok {
				return nil, s.didYouMeanTable(nameNotFound("table %s not found", sr.Table),
					sr.Table)
			}
			err := expandStar(c)
			if err != nil {
				return nil, err
			}
		case query.ExprResult:
			item := selectItem{expr: sr.Expr, alias: sr.Alias}
			if item.alias == 0 {
				if ref, ok := sr.Expr.(*expr.Ref); ok {
					item.alias = ref.Path().Last()
				}
			}
			item.name = item.alias
			if item.name == 0 {
				item.name = sql.QuotedID(fmt.Sprintf("EXPR$%d", len(items)))
			}
			items = append(items, item)
		default:
			return nil, errors.AssertionFailedf("unexpected select result: %T: %s", sr, sr)
		}
	}

	used := map[sql.Identifier]struct{}{}
	for idx := range items {
		nam := items[idx].name
		for cnt := 0; ; cnt += 1 {
			if _, ok := used[nam]; !ok {
				break
			}
			nam = sql.QuotedID(items[idx].name.String() + strconv.Itoa(cnt))
		}
		used[nam] = struct{}{}
		items[idx].name = nam
	}
	return items, nil
}

// validateCondition validates e, which is cond after alias expansion, as the condition of
// the current clause.
func (v *Validator) validateCondition(s *Scope, cond, e expr.Expr) error {
	v.enter(cond.Position())
	ct, err := s.ValidateExpr(e)
	if err == nil && ct.Type != sql.BooleanType && ct.Type != sql.UnknownType {
		err = typeMismatch("%s must be a boolean expression, not %s", v.clause, ct.DataType())
	}
	return v.leave(err)
}
