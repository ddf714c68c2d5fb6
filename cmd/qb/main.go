// Command qb manages database migrations for projects built on the qb
// statement builders.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:           "qb",
		Short:         "Database migration manager",
		Long:          "qb maintains a migration history table and applies SQL migration scripts.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML)")

	root.AddCommand(newInitCmd(&cfgFile))
	root.AddCommand(newStatusCmd(&cfgFile))
	root.AddCommand(newMigrateCmd(&cfgFile))
	return root
}
