package catalog

import (
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/google/btree"
	log "github.com/sirupsen/logrus"

	"github.com/leftmike/sqlscope/sql"
)

type Column struct {
	Name sql.Identifier
	Type sql.ColumnType
}

type Table struct {
	Path    sql.Path
	Columns []Column
}

// Name is the last segment of the table's path.
func (tbl *Table) Name() sql.Identifier {
	return tbl.Path.Last()
}

func (tbl *Table) Column(nam sql.Identifier) (int, Column, bool) {
	for cdx, col := range tbl.Columns {
		if col.Name == nam {
			return cdx, col, true
		}
	}
	return -1, Column{}, false
}

// RowType returns the columns of the table as a row type.
func (tbl *Table) RowType() sql.ColumnType {
	fields := make([]sql.Field, 0, len(tbl.Columns))
	for _, col := range tbl.Columns {
		fields = append(fields, sql.Field{Name: col.Name, Type: col.Type})
	}
	return sql.RowOf(fields...)
}

type Catalog struct {
	mutex         sync.RWMutex
	defaultSchema sql.Path
	tree          *btree.BTree
}

type entry struct {
	key   string
	path  sql.Path
	table *Table // nil for a schema
}

func (e entry) Less(item btree.Item) bool {
	return e.key < item.(entry).key
}

func makeKey(p sql.Path) string {
	var b strings.Builder
	for _, id := range p {
		b.WriteString(id.String())
		b.WriteByte(0)
	}
	return b.String()
}

func New(defaultSchema sql.Path) *Catalog {
	cat := &Catalog{
		defaultSchema: defaultSchema,
		tree:          btree.New(16),
	}
	if len(defaultSchema) > 0 {
		cat.tree.ReplaceOrInsert(entry{key: makeKey(defaultSchema), path: defaultSchema})
	}
	return cat
}

func (cat *Catalog) DefaultSchema() sql.Path {
	return cat.defaultSchema
}

func (cat *Catalog) lookup(p sql.Path) (entry, bool) {
	item := cat.tree.Get(entry{key: makeKey(p)})
	if item == nil {
		return entry{}, false
	}
	return item.(entry), true
}

func (cat *Catalog) CreateSchema(p sql.Path) error {
	if len(p) == 0 {
		return errors.New("catalog: schema name must not be empty")
	}

	cat.mutex.Lock()
	defer cat.mutex.Unlock()

	if e, ok := cat.lookup(p); ok {
		if e.table != nil {
			return errors.Newf("catalog: %s is a table", p)
		}
		return errors.Newf("catalog: schema %s already exists", p)
	}
	cat.tree.ReplaceOrInsert(entry{key: makeKey(p), path: p})
	log.WithField("schema", p).Trace("create schema")
	return nil
}

// CreateTable adds a table; a one segment path is put in the default schema.
func (cat *Catalog) CreateTable(p sql.Path, cols []Column) error {
	if len(p) == 0 {
		return errors.New("catalog: table name must not be empty")
	}
	if len(p) == 1 {
		p = cat.defaultSchema.Append(p...)
	}

	for cdx, col := range cols {
		for _, col2 := range cols[:cdx] {
			if col.Name == col2.Name {
				return errors.Newf("catalog: table %s: duplicate column %s", p, col.Name)
			}
		}
	}

	cat.mutex.Lock()
	defer cat.mutex.Unlock()

	if e, ok := cat.lookup(p); ok {
		if e.table == nil {
			return errors.Newf("catalog: %s is a schema", p)
		}
		return errors.Newf("catalog: table %s already exists", p)
	}
	cat.tree.ReplaceOrInsert(entry{key: makeKey(p), path: p, table: &Table{Path: p, Columns: cols}})
	log.WithFields(log.Fields{"table": p, "columns": len(cols)}).Trace("create table")
	return nil
}

// LookupTable finds a table by its full path or, for a single name, in the default schema.
func (cat *Catalog) LookupTable(p sql.Path) (*Table, bool) {
	if len(p) == 0 {
		return nil, false
	}

	cat.mutex.RLock()
	defer cat.mutex.RUnlock()

	if len(p) == 1 {
		if e, ok := cat.lookup(cat.defaultSchema.Append(p...)); ok && e.table != nil {
			return e.table, true
		}
	}
	if e, ok := cat.lookup(p); ok && e.table != nil {
		return e.table, true
	}
	return nil, false
}

// IsSchema is true if p was created as a schema or has tables below it.
func (cat *Catalog) IsSchema(p sql.Path) bool {
	if len(p) == 0 {
		return false
	}

	cat.mutex.RLock()
	defer cat.mutex.RUnlock()

	key := makeKey(p)
	if e, ok := cat.lookup(p); ok {
		return e.table == nil
	}

	var found bool
	cat.tree.AscendGreaterOrEqual(entry{key: key},
		func(item btree.Item) bool {
			found = strings.HasPrefix(item.(entry).key, key)
			return false
		})
	return found
}

// Tables returns every table in path order.
func (cat *Catalog) Tables() []*Table {
	cat.mutex.RLock()
	defer cat.mutex.RUnlock()

	var tbls []*Table
	cat.tree.Ascend(
		func(item btree.Item) bool {
			if e := item.(entry); e.table != nil {
				tbls = append(tbls, e.table)
			}
			return true
		})
	return tbls
}

// Schemas returns the path of every schema, including those only implied by tables.
func (cat *Catalog) Schemas() []sql.Path {
	cat.mutex.RLock()
	defer cat.mutex.RUnlock()

	seen := map[string]struct{}{}
	var schemas []sql.Path
	add := func(p sql.Path) {
		key := makeKey(p)
		if _, ok := seen[key]; !ok {
			seen[key] = struct{}{}
			schemas = append(schemas, p)
		}
	}

	cat.tree.Ascend(
		func(item btree.Item) bool {
			e := item.(entry)
			if e.table == nil {
				add(e.path)
			} else if len(e.path) > 1 {
				add(e.path[:len(e.path)-1])
			}
			return true
		})
	return schemas
}
