package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var execCmd = &cobra.Command{
	Use:   "exec <sql> [param...]",
	Short: "Run a statement and print the affected-row count",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pool, err := openPool(cmd)
		if err != nil {
			return err
		}
		defer pool.Close()

		count, err := pool.Execute(context.Background(), args[0], paramArgs(args[1:])...)
		if err != nil {
			return err
		}

		fmt.Printf("%d\n", count)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(execCmd)
}
