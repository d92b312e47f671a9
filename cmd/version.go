package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "sqlscope 0.1.0"

func init() {
	sqlscopeCmd.AddCommand(
		&cobra.Command{
			Use:   "version",
			Short: "Print the version number of sqlscope",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintln(cmd.OutOrStdout(), version)
			},
		})
}
