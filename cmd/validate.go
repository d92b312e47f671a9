package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/leftmike/sqlscope/parser"
	"github.com/leftmike/sqlscope/repl"
)

var (
	validateCmd = &cobra.Command{
		Use:   "validate [query ...]",
		Short: "Validate queries and report how their identifiers resolve",
		Long: "Validate each query given as an argument, or read from --file, or, with " +
			"neither, from standard input.",
		RunE: validateRun,
	}

	sqlFiles = []string{}
)

func init() {
	validateCmd.Flags().StringSliceVarP(&sqlFiles, "file", "f", sqlFiles,
		"`file` of queries to validate; multiple allowed")

	sqlscopeCmd.AddCommand(validateCmd)
}

func validateRun(cmd *cobra.Command, args []string) error {
	cat, err := loadCatalog()
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	var failed int
	for adx, arg := range args {
		failed += repl.ReplSQL(cat, flgs,
			parser.NewParser(strings.NewReader(arg), fmt.Sprintf("arg%d", adx+1)), w)
	}
	for _, fn := range sqlFiles {
		f, err := os.Open(fn)
		if err != nil {
			return err
		}
		failed += repl.ReplSQL(cat, flgs, parser.NewParser(bufio.NewReader(f), fn), w)
		f.Close()
	}
	if len(args) == 0 && len(sqlFiles) == 0 {
		var r io.RuneReader = bufio.NewReader(cmd.InOrStdin())
		failed += repl.ReplSQL(cat, flgs, parser.NewParser(r, "stdin"), w)
	}

	if failed > 0 {
		return errors.Newf("%d queries failed validation", failed)
	}
	return nil
}
