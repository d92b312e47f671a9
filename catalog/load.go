package catalog

import (
	"io/ioutil"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/hashicorp/hcl"
	log "github.com/sirupsen/logrus"

	"github.com/leftmike/sqlscope/parser"
	"github.com/leftmike/sqlscope/sql"
)

type catalogFile struct {
	DefaultSchema string      `hcl:"default_schema"`
	Schemas       []schemaDef `hcl:"schema,expand"`
}

type schemaDef struct {
	Name   string     `hcl:",key"`
	Tables []tableDef `hcl:"table,expand"`
}

type tableDef struct {
	Name    string      `hcl:",key"`
	Columns []columnDef `hcl:"column,expand"`
}

type columnDef struct {
	Name    string `hcl:",key"`
	Type    string `hcl:"type"`
	NotNull bool   `hcl:"not_null"`
}

func parseName(s string) (sql.Identifier, error) {
	id := sql.UnquotedID(strings.TrimSpace(s))
	if id.IsReserved() {
		return 0, errors.Newf("catalog: %s is a reserved word", s)
	} else if id.String() == "" {
		return 0, errors.New("catalog: name must not be empty")
	}
	return id, nil
}

func parsePath(s string) (sql.Path, error) {
	var p sql.Path
	for _, n := range strings.Split(s, ".") {
		id, err := parseName(n)
		if err != nil {
			return nil, err
		}
		p = append(p, id)
	}
	return p, nil
}

// Parse builds a catalog from the HCL text in s; fn is used in error messages.
func Parse(s, fn string) (*Catalog, error) {
	var cf catalogFile
	err := hcl.Decode(&cf, s)
	if err != nil {
		return nil, errors.Wrapf(err, "catalog: %s", fn)
	}

	var def sql.Path
	if cf.DefaultSchema != "" {
		def, err = parsePath(cf.DefaultSchema)
		if err != nil {
			return nil, errors.Wrapf(err, "%s: default_schema", fn)
		}
	}
	cat := New(def)

	for _, sd := range cf.Schemas {
		sp, err := parsePath(sd.Name)
		if err != nil {
			return nil, errors.Wrapf(err, "%s: schema %q", fn, sd.Name)
		}
		if !sp.Equal(def) {
			err = cat.CreateSchema(sp)
			if err != nil {
				return nil, errors.Wrap(err, fn)
			}
		}

		for _, td := range sd.Tables {
			tn, err := parseName(td.Name)
			if err != nil {
				return nil, errors.Wrapf(err, "%s: schema %s: table %q", fn, sp, td.Name)
			}
			tp := sp.Append(tn)

			var cols []Column
			for _, cd := range td.Columns {
				cn, err := parseName(cd.Name)
				if err != nil {
					return nil, errors.Wrapf(err, "%s: table %s: column %q", fn, tp, cd.Name)
				}
				ct, err := parser.NewParser(strings.NewReader(cd.Type),
					fn+":"+tp.String()+"."+cn.String()).ParseType()
				if err != nil {
					return nil, err
				}
				ct.NotNull = cd.NotNull
				cols = append(cols, Column{Name: cn, Type: ct})
			}

			err = cat.CreateTable(tp, cols)
			if err != nil {
				return nil, errors.Wrap(err, fn)
			}
		}
	}

	log.WithFields(log.Fields{
		"file":           fn,
		"default_schema": def,
		"tables":         len(cat.Tables()),
	}).Debug("loaded catalog")
	return cat, nil
}

func Load(fn string) (*Catalog, error) {
	b, err := ioutil.ReadFile(fn)
	if err != nil {
		return nil, errors.Wrap(err, "catalog")
	}
	return Parse(string(b), fn)
}
