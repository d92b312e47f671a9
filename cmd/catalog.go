package cmd

import (
	"github.com/spf13/cobra"

	"github.com/leftmike/sqlscope/repl"
)

func init() {
	sqlscopeCmd.AddCommand(
		&cobra.Command{
			Use:   "catalog",
			Short: "List the tables and columns of the catalog",
			RunE: func(cmd *cobra.Command, args []string) error {
				cat, err := loadCatalog()
				if err != nil {
					return err
				}
				repl.ListCatalog(cat, cmd.OutOrStdout())
				return nil
			},
		})
}
