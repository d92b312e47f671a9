package cmd

import (
	"github.com/spf13/cobra"

	"github.com/leftmike/sqlscope/repl"
)

var (
	replCmd = &cobra.Command{
		Use:   "repl",
		Short: "Validate queries from an interactive console session",
		RunE:  replRun,
	}
)

func init() {
	sqlscopeCmd.AddCommand(replCmd)
}

func replRun(cmd *cobra.Command, args []string) error {
	cat, err := loadCatalog()
	if err != nil {
		return err
	}

	repl.Interact(cat, flgs)
	return nil
}
