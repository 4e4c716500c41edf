package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vvka-141/pgdock/pkg/pgdock"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check database health and show pool occupancy",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pool, err := openPool(cmd)
		if err != nil {
			return err
		}
		defer pool.Close()

		healthy := pool.IsHealthy(context.Background())
		status := pool.Status()
		fmt.Printf("healthy=%t size=%d available=%d waiting=%d\n",
			healthy, status.Size, status.Available, status.Waiting)

		if !healthy {
			return fmt.Errorf("health check failed: %w", pgdock.ErrConnection)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pingCmd)
}
