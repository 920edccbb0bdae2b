package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conorfennell/flashsync/internal/app"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push local changes and pull the question set",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			res, pushErr := a.Sync.Push(ctx)
			fmt.Fprintf(cmd.OutOrStdout(), "Pushed %d new, %d updated, %d attempts\n", res.Created, res.Updated, res.Attempts)

			n, pullErr := a.Sync.InitialSync(ctx)
			if pullErr == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Pulled %d questions\n", n)
			}
			return errors.Join(pushErr, pullErr)
		})
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
