package repl

import (
	"fmt"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/olekukonko/tablewriter"
	log "github.com/sirupsen/logrus"

	"github.com/leftmike/sqlscope/catalog"
	"github.com/leftmike/sqlscope/flags"
	"github.com/leftmike/sqlscope/parser"
	"github.com/leftmike/sqlscope/validate"
)

// ReplSQL validates each query read by p and writes its row type and how every identifier
// resolved to w. It returns the number of queries which failed.
func ReplSQL(cat *catalog.Catalog, flgs flags.Flags, p parser.Parser, w io.Writer) int {
	var failed int
	v := validate.New(cat, flgs)
	for {
		stmt, err := p.Parse()
		if err == io.EOF {
			return failed
		}
		if err != nil {
			fmt.Fprintln(w, err)
			failed += 1
			continue
		}

		rt, err := v.Validate(stmt)
		if err != nil {
			log.WithField("query", stmt.String()).Debug(err)
			fmt.Fprintln(w, err)
			for _, h := range errors.GetAllHints(err) {
				fmt.Fprintf(w, "hint: %s\n", h)
			}
			failed += 1
			continue
		}

		fmt.Fprintln(w, rt)
		Report(v, w)
	}
}

func correlated(b bool) string {
	if b {
		return "yes"
	}
	return ""
}

// Report writes the expansions and resolutions of the last query validated by v as tables.
func Report(v *validate.Validator, w io.Writer) {
	if exps := v.Expansions(); len(exps) > 0 {
		tw := tablewriter.NewWriter(w)
		tw.SetAutoFormatHeaders(false)
		tw.SetAutoWrapText(false)
		tw.SetHeader([]string{"clause", "expression", "expanded"})
		for _, exp := range exps {
			tw.Append([]string{exp.Clause, exp.From.String(), exp.To.String()})
		}
		tw.Render()
	}

	tw := tablewriter.NewWriter(w)
	tw.SetAutoFormatHeaders(false)
	tw.SetAutoWrapText(false)
	tw.SetHeader([]string{"clause", "identifier", "qualified", "type", "correlated"})
	for _, r := range v.Resolutions() {
		tw.Append([]string{r.Clause, r.Ref.String(), r.Names.String(), r.Type.String(),
			correlated(r.Correlated)})
	}
	tw.Render()
	fmt.Fprintf(w, "(%d identifiers)\n", tw.NumLines())
}

// ListCatalog writes every table of cat along with its columns.
func ListCatalog(cat *catalog.Catalog, w io.Writer) {
	tw := tablewriter.NewWriter(w)
	tw.SetAutoFormatHeaders(false)
	tw.SetAutoWrapText(false)
	tw.SetHeader([]string{"table", "column", "type"})
	for _, tbl := range cat.Tables() {
		for _, col := range tbl.Columns {
			tw.Append([]string{tbl.Path.String(), col.Name.String(), col.Type.String()})
		}
	}
	tw.Render()

	var schemas []string
	for _, p := range cat.Schemas() {
		schemas = append(schemas, p.String())
	}
	fmt.Fprintf(w, "default schema: %s\n", cat.DefaultSchema())
	if len(schemas) > 0 {
		fmt.Fprintf(w, "schemas: %s\n", strings.Join(schemas, ", "))
	}
}
