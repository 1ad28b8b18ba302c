package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/msto63/bankprobe/internal/catalog"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List the operations in run order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		for i, op := range catalog.Default(catalog.Fixtures{}).Operations() {
			if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%d. %-20s %s\n", i+1, op.Name, op.Method); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(catalogCmd)
}
