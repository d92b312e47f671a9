package validate

import (
	"github.com/cockroachdb/errors"
	log "github.com/sirupsen/logrus"

	"github.com/leftmike/sqlscope/catalog"
	"github.com/leftmike/sqlscope/query"
	"github.com/leftmike/sqlscope/sql"
)

type NamespaceID int

const noNamespace NamespaceID = -1

type NamespaceKind int

const (
	TableNamespace NamespaceKind = iota
	SelectNamespace
	SchemaNamespace
)

func (nk NamespaceKind) String() string {
	switch nk {
	case TableNamespace:
		return "table"
	case SelectNamespace:
		return "select"
	case SchemaNamespace:
		return "schema"
	}
	return ""
}

type nsState int

const (
	unvalidated nsState = iota
	validating
	validated
	failed
)

// Namespace is a relation visible to a scope: a catalog table, a subquery in FROM, or a
// bare schema path. Its row type is computed on first demand and then never changes.
type Namespace struct {
	v         *Validator
	id        NamespaceID
	kind      NamespaceKind
	enclosing NamespaceID
	node      interface{}

	state   nsState
	rowType sql.ColumnType
	err     error

	table         *catalog.Table
	sel           *query.Select
	parent        ScopeID // scope enclosing the subquery
	columnAliases []sql.Identifier
	path          sql.Path
}

func (v *Validator) newNamespace(ns *Namespace) *Namespace {
	ns.v = v
	ns.id = NamespaceID(len(v.namespaces))
	ns.enclosing = v.enclosing()
	v.namespaces = append(v.namespaces, ns)

	log.WithFields(log.Fields{
		"namespace": ns.id,
		"kind":      ns.kind,
		"enclosing": ns.enclosing,
	}).Trace("new namespace")
	return ns
}

func (v *Validator) newTableNamespace(tbl *catalog.Table, node *query.FromTableAlias) *Namespace {
	return v.newNamespace(&Namespace{kind: TableNamespace, table: tbl, node: node,
		path: tbl.Path})
}

func (v *Validator) newSelectNamespace(fs *query.FromStmt, parent ScopeID) *Namespace {
	return v.newNamespace(&Namespace{kind: SelectNamespace, sel: fs.Stmt, node: fs,
		parent: parent, columnAliases: fs.ColumnAliases})
}

// NewSchemaNamespace returns a namespace for a path which names a schema rather than a
// relation.
func (v *Validator) NewSchemaNamespace(p sql.Path) (*Namespace, error) {
	if len(p) == 0 {
		return nil, errors.Mark(errors.New("schema namespace: path must not be empty"),
			ErrNullPath)
	}
	return v.newNamespace(&Namespace{kind: SchemaNamespace, path: p, state: validated}), nil
}

func (ns *Namespace) ID() NamespaceID {
	return ns.id
}

func (ns *Namespace) Kind() NamespaceKind {
	return ns.kind
}

// Node is the FROM item for the namespace; it is nil for a schema namespace.
func (ns *Namespace) Node() interface{} {
	return ns.node
}

// Enclosing is the namespace whose validation created this one, if any.
func (ns *Namespace) Enclosing() *Namespace {
	if ns.enclosing == noNamespace {
		return nil
	}
	return ns.v.namespaces[ns.enclosing]
}

// Path is the path of a table or schema namespace.
func (ns *Namespace) Path() sql.Path {
	return ns.path
}

func (ns *Namespace) Table() *catalog.Table {
	return ns.table
}

func (ns *Namespace) IsValidated() bool {
	return ns.state == validated
}

// Validate computes the row type of the namespace once. A schema namespace has no row type
// of its own and returns target unchanged.
func (ns *Namespace) Validate(target sql.ColumnType) (sql.ColumnType, error) {
	if ns.kind == SchemaNamespace {
		return target, nil
	}

	switch ns.state {
	case validated:
		return ns.rowType, nil
	case failed:
		return sql.UnknownColType, ns.err
	case validating:
		return sql.UnknownColType,
			errors.AssertionFailedf("namespace %d: validation is already in progress", ns.id)
	}

	ns.state = validating
	rt, err := ns.validate()
	if err != nil {
		ns.state = failed
		ns.err = err
		return sql.UnknownColType, err
	}
	ns.state = validated
	ns.rowType = rt
	return rt, nil
}

func (ns *Namespace) RowType() (sql.ColumnType, error) {
	return ns.Validate(sql.UnknownColType)
}

func (ns *Namespace) validate() (sql.ColumnType, error) {
	switch ns.kind {
	case TableNamespace:
		return ns.table.RowType(), nil
	case SelectNamespace:
		ns.v.namespaceStack = append(ns.v.namespaceStack, ns.id)
		defer func() {
			ns.v.namespaceStack = ns.v.namespaceStack[:len(ns.v.namespaceStack)-1]
		}()

		rt, err := ns.v.validateSelect(ns.sel, ns.parent)
		if err != nil {
			return sql.UnknownColType, err
		}
		if ns.columnAliases == nil {
			return rt, nil
		}
		if len(ns.columnAliases) != len(rt.Fields) {
			return sql.UnknownColType, invalidQuery(
				"subquery has %d columns but %d column aliases were given", len(rt.Fields),
				len(ns.columnAliases))
		}
		fields := make([]sql.Field, len(rt.Fields))
		for fdx, f := range rt.Fields {
			for _, f2 := range fields[:fdx] {
				if f2.Name == ns.columnAliases[fdx] {
					return sql.UnknownColType, ambiguousName("duplicate column alias %s",
						f2.Name)
				}
			}
			fields[fdx] = sql.Field{Name: ns.columnAliases[fdx], Type: f.Type}
		}
		return sql.RowOf(fields...), nil
	}
	return sql.UnknownColType, errors.AssertionFailedf("namespace %d: unexpected kind %s",
		ns.id, ns.kind)
}
