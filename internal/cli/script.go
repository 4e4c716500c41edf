package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var scriptCmd = &cobra.Command{
	Use:   "script <file.sql>",
	Short: "Run a multi-statement SQL script verbatim",
	Long: `Send a SQL file to the server for verbatim execution, statements and all.
Intended for DDL and migrations; no parameter binding, no structured
output.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sql, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading script: %w", err)
		}

		pool, err := openPool(cmd)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := pool.ExecuteRaw(context.Background(), string(sql)); err != nil {
			return err
		}

		fmt.Fprintf(os.Stderr, "Executed %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scriptCmd)
}
