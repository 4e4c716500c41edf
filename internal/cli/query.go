package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var queryCmd = &cobra.Command{
	Use:   "query <sql> [param...]",
	Short: "Run a query and print rows as JSON lines",
	Long: `Run a query and print each result row as a JSON object on its own line.

Positional parameters after the SQL bind to $1, $2, ... and are classified
the same way library parameters are (numbers, booleans, UUIDs, JSON).`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pool, err := openPool(cmd)
		if err != nil {
			return err
		}
		defer pool.Close()

		rows, err := pool.Query(context.Background(), args[0], paramArgs(args[1:])...)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		for _, row := range rows {
			if err := enc.Encode(row.Native()); err != nil {
				return err
			}
		}
		fmt.Fprintf(os.Stderr, "(%d rows)\n", len(rows))
		return nil
	},
}

// paramArgs converts CLI string arguments into parameters, letting JSON
// syntax express non-string kinds: 42, 4.2, true, null, [1,2], {"a":1}.
// Anything that is not valid JSON binds as text.
func paramArgs(args []string) []any {
	params := make([]any, len(args))
	for i, a := range args {
		var v any
		if err := json.Unmarshal([]byte(a), &v); err == nil {
			params[i] = v
		} else {
			params[i] = a
		}
	}
	return params
}

func init() {
	rootCmd.AddCommand(queryCmd)
}
