package validate

import (
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	log "github.com/sirupsen/logrus"

	"github.com/leftmike/sqlscope/expr"
	"github.com/leftmike/sqlscope/query"
	"github.com/leftmike/sqlscope/sql"
)

type ScopeID int

const noScope ScopeID = -1

type ScopeKind int

const (
	GenericScope ScopeKind = iota
	CollectScope
	GroupByScope
	OrderByScope
	ParameterScope
	TableScope
)

func (sk ScopeKind) String() string {
	switch sk {
	case GenericScope:
		return "generic"
	case CollectScope:
		return "collect"
	case GroupByScope:
		return "group by"
	case OrderByScope:
		return "order by"
	case ParameterScope:
		return "parameter"
	case TableScope:
		return "table"
	}
	return ""
}

type child struct {
	alias    sql.Identifier
	ns       NamespaceID
	nullable bool // right side of a LEFT JOIN
}

// Scope is a name lookup context. Every kind shares the parent link, the node and the
// visible namespaces; the kind decides how resolve, validateExpr and isWithin behave.
type Scope struct {
	v        *Validator
	id       ScopeID
	kind     ScopeKind
	parent   ScopeID
	node     interface{}
	children []child
	using    map[sql.Identifier]int // USING columns: name to child index

	sel    *query.Select                     // GroupByScope and OrderByScope
	params map[sql.Identifier]sql.ColumnType // ParameterScope
}

// Binding is the result of resolving a relation or parameter name.
type Binding struct {
	Scope     *Scope
	Namespace *Namespace // nil for a parameter
	Name      sql.Identifier
	Type      sql.ColumnType
}

// Qualified is a fully qualified identifier: Names[:PrefixLength] was resolved by scope
// lookup to Namespace (nil for a parameter) in Scope; the rest of the names are looked up
// within the type of the prefix.
type Qualified struct {
	Scope        *Scope
	Namespace    *Namespace
	PrefixLength int
	Names        sql.Path

	prefixType sql.ColumnType
}

func (q *Qualified) Suffix() sql.Path {
	return q.Names[q.PrefixLength:]
}

func (v *Validator) newScope(kind ScopeKind, parent ScopeID, node interface{}) *Scope {
	s := &Scope{
		v:      v,
		id:     ScopeID(len(v.scopes)),
		kind:   kind,
		parent: parent,
		node:   node,
	}
	v.scopes = append(v.scopes, s)

	log.WithFields(log.Fields{
		"scope":  s.id,
		"kind":   kind,
		"parent": parent,
	}).Trace("new scope")
	return s
}

// NewParameterScope returns a scope with no parent which resolves names from params only.
func (v *Validator) NewParameterScope(params map[sql.Identifier]sql.ColumnType,
	node interface{}) *Scope {

	s := v.newScope(ParameterScope, noScope, node)
	s.params = make(map[sql.Identifier]sql.ColumnType, len(params))
	for nam, ct := range params {
		s.params[nam] = ct
	}
	return s
}

func (s *Scope) ID() ScopeID {
	return s.id
}

func (s *Scope) Kind() ScopeKind {
	return s.kind
}

func (s *Scope) Parent() *Scope {
	if s.parent == noScope {
		return nil
	}
	return s.v.scopes[s.parent]
}

// Node is the query node the scope was created for: the select, the GROUP BY list, the
// MULTISET or COLLECT call, or the LATERAL subquery.
func (s *Scope) Node() interface{} {
	return s.node
}

// AddChild makes ns visible in s as alias. Relation names must be unique within a scope;
// duplicate column names are only reported when an ambiguous column is referenced.
func (s *Scope) AddChild(ns *Namespace, alias sql.Identifier, nullable bool) error {
	for _, c := range s.children {
		if c.alias == alias {
			return ambiguousName("duplicate relation name %s in FROM clause", alias)
		}
	}
	s.children = append(s.children, child{alias: alias, ns: ns.id, nullable: nullable})
	return nil
}

func (s *Scope) namespace(c child) *Namespace {
	return s.v.namespaces[c.ns]
}

func (s *Scope) childRowType(c child) (sql.ColumnType, error) {
	rt, err := s.namespace(c).RowType()
	if err != nil {
		return sql.UnknownColType, err
	}
	if c.nullable {
		rt = rt.Nullable()
	}
	return rt, nil
}

func (s *Scope) findChild(alias sql.Identifier) (child, bool) {
	for _, c := range s.children {
		if c.alias == alias {
			return c, true
		}
	}
	return child{}, false
}

// Resolve finds the relation or parameter called name in this scope, and then in each
// parent in turn.
func (s *Scope) Resolve(name sql.Identifier) (*Binding, error) {
	switch s.kind {
	case ParameterScope:
		ct, ok := s.params[name]
		if !ok {
			return nil, nameNotFound("parameter %s not found", name)
		}
		return &Binding{Scope: s, Name: name, Type: ct}, nil
	}

	if c, ok := s.findChild(name); ok {
		rt, err := s.childRowType(c)
		if err != nil {
			return nil, err
		}
		return &Binding{Scope: s, Namespace: s.namespace(c), Name: name, Type: rt}, nil
	}
	if p := s.Parent(); p != nil {
		return p.Resolve(name)
	}
	return nil, nameNotFound("table %s not found", name)
}

type columnMatch struct {
	scope *Scope
	child child
	field sql.Field
}

// findQualifyingTables returns the relations which have a column called col, at the
// nearest level of the scope chain with any. A parameter scope in the chain returns a match
// with no child.
func (s *Scope) findQualifyingTables(col sql.Identifier, fold bool) ([]columnMatch, error) {
	for sc := s; sc != nil; sc = sc.Parent() {
		if sc.kind == ParameterScope {
			for nam, ct := range sc.params {
				if nam == col || (fold && nam.EqualFold(col)) {
					return []columnMatch{{scope: sc, field: sql.Field{Name: nam, Type: ct}}},
						nil
				}
			}
			return nil, nil
		}

		var matches []columnMatch
		for _, c := range sc.children {
			rt, err := sc.childRowType(c)
			if err != nil {
				return nil, err
			}
			if fold {
				if f, ok := rt.FieldFold(col); ok {
					matches = append(matches, columnMatch{scope: sc, child: c, field: f})
				}
			} else if _, f, ok := rt.Field(col); ok {
				matches = append(matches, columnMatch{scope: sc, child: c, field: f})
			}
		}
		if len(matches) > 1 && !fold {
			if cdx, ok := sc.using[col]; ok {
				c := sc.children[cdx]
				for _, m := range matches {
					if m.child.alias == c.alias {
						return []columnMatch{m}, nil
					}
				}
			}
		}
		if len(matches) > 0 {
			return matches, nil
		}
	}
	return nil, nil
}

// FindAllColumnNames returns a moniker for every column visible from s, nearest scope
// first.
func (s *Scope) FindAllColumnNames() []*Moniker {
	var monikers []*Moniker
	add := func(names ...sql.Identifier) {
		m, _ := NewMoniker(&expr.Ref{Names: names})
		monikers = append(monikers, m)
	}

	for sc := s; sc != nil; sc = sc.Parent() {
		if sc.kind == ParameterScope {
			var names []string
			for nam := range sc.params {
				names = append(names, nam.String())
			}
			sort.Strings(names)
			for _, nam := range names {
				add(sql.QuotedID(nam))
			}
			continue
		}

		for _, c := range sc.children {
			rt, err := sc.childRowType(c)
			if err != nil {
				continue
			}
			for _, f := range rt.Fields {
				add(c.alias, f.Name)
			}
		}
	}
	return monikers
}

func (s *Scope) didYouMean(err error, name sql.Identifier) error {
	var names []string
	for _, m := range s.FindAllColumnNames() {
		fqn := m.FullyQualifiedNames()
		if fqn[len(fqn)-1].EqualFold(name) {
			names = append(names, m.ID())
		}
	}
	if len(names) == 0 {
		return err
	}
	sort.Strings(names)
	return errors.WithHintf(err, "did you mean %s?", strings.Join(names, ", "))
}

// FullyQualify resolves the leading names of ref to a relation and returns the canonical
// names: a single column name gets the name of its relation in front of it, and a
// schema qualified table name is replaced by the name of the relation in scope.
func (s *Scope) FullyQualify(ref *expr.Ref) (*Qualified, error) {
	if ref == nil || len(ref.Names) == 0 {
		return nil, errors.Mark(errors.New("fully qualify: identifier must not be empty"),
			ErrNullReference)
	}

	switch s.kind {
	case ParameterScope:
		ct := s.params[ref.Names[0]]
		return &Qualified{Scope: s, PrefixLength: 1, Names: ref.Names, prefixType: ct}, nil
	}

	names := sql.Path(ref.Names)
	if len(names) == 1 {
		return s.qualifyColumn(names)
	}

	var schema *Namespace
	for i := len(names) - 1; i > 0; i-- {
		prefix := names[:i]
		q, err := s.qualifyPrefix(prefix, names)
		if err != nil {
			return nil, err
		} else if q != nil {
			return q, nil
		}

		if s.v.cat != nil && s.v.cat.IsSchema(prefix) {
			schema, err = s.v.NewSchemaNamespace(prefix)
			if err != nil {
				return nil, err
			}
			break
		}
	}

	// No relation matches a prefix: the first name must be a column of ROW type.
	q, err := s.qualifyColumn(names)
	if err != nil && errors.Is(err, ErrNameNotFound) {
		if schema != nil {
			err = errors.WithDetailf(nameNotFound("table %s not found", names[:len(schema.path)+1]),
				"%s is a schema; tables must be named in the FROM clause", schema.path)
		} else if len(names) > 2 {
			err = nameNotFound("table %s not found", names[:len(names)-1])
		} else {
			err = s.didYouMeanTable(nameNotFound("table %s not found", names[0]), names[0])
		}
	}
	return q, err
}

func (s *Scope) didYouMeanTable(err error, name sql.Identifier) error {
	var names []string
	for sc := s; sc != nil; sc = sc.Parent() {
		for _, c := range sc.children {
			if c.alias.EqualFold(name) {
				names = append(names, c.alias.String())
			}
		}
	}
	if len(names) == 0 {
		return err
	}
	sort.Strings(names)
	return errors.WithHintf(err, "did you mean %s?", strings.Join(names, ", "))
}

// qualifyColumn qualifies names where names[0] is a column; any further names must be fields
// of a ROW column.
func (s *Scope) qualifyColumn(names sql.Path) (*Qualified, error) {
	matches, err := s.findQualifyingTables(names[0], false)
	if err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, s.didYouMean(nameNotFound("column %s not found in any table", names[0]),
			names[0])
	case 1:
	default:
		return nil, ambiguousName("column %s is ambiguous", names[0])
	}

	m := matches[0]
	if m.scope.kind == ParameterScope {
		return &Qualified{Scope: m.scope, PrefixLength: 1, Names: names,
			prefixType: m.field.Type}, nil
	}
	if len(names) > 1 && m.field.Type.Type != sql.RowType {
		return nil, nameNotFound("table %s not found", names[:len(names)-1])
	}

	rt, err := m.scope.childRowType(m.child)
	if err != nil {
		return nil, err
	}
	q := &Qualified{
		Scope:        m.scope,
		Namespace:    m.scope.namespace(m.child),
		PrefixLength: 1,
		Names:        sql.Path{m.child.alias}.Append(names...),
		prefixType:   rt,
	}
	return q, q.checkSuffix()
}

// qualifyPrefix returns nil if prefix does not name a relation visible from s.
func (s *Scope) qualifyPrefix(prefix, names sql.Path) (*Qualified, error) {
	for sc := s; sc != nil; sc = sc.Parent() {
		if sc.kind == ParameterScope {
			if len(prefix) > 1 {
				return nil, nil
			}
			if _, ok := sc.params[prefix[0]]; !ok {
				return nil, nil
			}
			return sc.FullyQualify(&expr.Ref{Names: names})
		}

		var matches []child
		for _, c := range sc.children {
			if len(prefix) == 1 {
				if c.alias == prefix[0] {
					matches = append(matches, c)
				}
			} else if ns := sc.namespace(c); ns.kind == TableNamespace &&
				c.alias == ns.path.Last() && ns.path.HasSuffix(prefix) {

				matches = append(matches, c)
			}
		}

		switch len(matches) {
		case 0:
			continue
		case 1:
		default:
			return nil, ambiguousName("table %s is ambiguous", prefix)
		}

		c := matches[0]
		rt, err := sc.childRowType(c)
		if err != nil {
			return nil, err
		}
		q := &Qualified{
			Scope:        sc,
			Namespace:    sc.namespace(c),
			PrefixLength: 1,
			Names:        sql.Path{c.alias}.Append(names[len(prefix):]...),
			prefixType:   rt,
		}
		return q, q.checkSuffix()
	}

	if len(prefix) == 1 {
		// A relation name in the wrong case is an error rather than a column.
		err := s.didYouMeanTable(nameNotFound("table %s not found", prefix), prefix[0])
		if len(errors.GetAllHints(err)) > 0 {
			return nil, err
		}
	}
	return nil, nil
}

// checkSuffix makes sure that the suffix names a column of the relation and, after that,
// fields of ROW columns.
func (q *Qualified) checkSuffix() error {
	ct := q.prefixType
	suffix := q.Suffix()
	for i, nam := range suffix {
		if _, f, ok := ct.Field(nam); ok {
			ct = f.Type
			continue
		}

		var err error
		if i == 0 {
			err = nameNotFound("column %s not found in table %s", nam,
				q.Names[:q.PrefixLength])
		} else {
			err = nameNotFound("column %s not found in table %s", suffix[:i+1],
				q.Names[:q.PrefixLength])
		}
		if f, ok := ct.FieldFold(nam); ok {
			err = errors.WithHintf(err, "did you mean %s?", f.Name)
		}
		return err
	}
	return nil
}

// Type is the type of the whole identifier; for a parameter, the remaining names must be
// fields of a ROW parameter.
func (q *Qualified) Type() (sql.ColumnType, error) {
	ct := q.prefixType
	if q.Namespace == nil {
		b, err := q.Scope.Resolve(q.Names[0])
		if err != nil {
			return sql.UnknownColType, err
		}
		ct = b.Type
	}

	notNull := ct.NotNull
	for _, nam := range q.Suffix() {
		_, f, ok := ct.Field(nam)
		if !ok {
			if ct.Type != sql.RowType {
				return sql.UnknownColType, typeMismatch("%s has type %s which has no fields",
					q.Names[:len(q.Names)-1], ct.DataType())
			}
			return sql.UnknownColType, nameNotFound("field %s not found in %s", nam,
				ct.DataType())
		}
		ct = f.Type
		notNull = notNull && ct.NotNull
	}
	ct.NotNull = notNull
	return ct, nil
}

// ValidateExpr validates e against the names visible from s and returns its type.
func (s *Scope) ValidateExpr(e expr.Expr) (sql.ColumnType, error) {
	switch s.kind {
	case GroupByScope:
		s.v.enter(e.Position())
		expanded, err := s.v.ExpandGroupByOrHavingExpr(e, s, s.sel, false)
		if err = s.v.leave(err); err != nil {
			return sql.UnknownColType, err
		}
		return s.Parent().ValidateExpr(expanded)
	case OrderByScope:
		s.v.enter(e.Position())
		expanded, err := s.v.expandOrderExpr(e, s, s.sel)
		if err = s.v.leave(err); err != nil {
			return sql.UnknownColType, err
		}
		return s.Parent().ValidateExpr(expanded)
	}

	return s.v.validateExpr(e, s)
}

// IsWithin is true if s is other or, for a LATERAL table scope, if the scope of the select
// that owns it is within other.
func (s *Scope) IsWithin(other *Scope) bool {
	if s == other {
		return true
	}

	switch s.kind {
	case TableScope:
		sel, ok := s.v.owners[s.node]
		if !ok {
			return false
		}
		ss := s.v.SelectScope(sel)
		if ss == nil {
			return false
		}
		return ss.IsWithin(other)
	}
	return false
}

// OperandScope is the scope used to resolve the operands of c.
func (s *Scope) OperandScope(c *expr.Call) *Scope {
	return s
}
