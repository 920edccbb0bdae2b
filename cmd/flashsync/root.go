package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/conorfennell/flashsync/internal/app"
	"github.com/conorfennell/flashsync/internal/config"
	"github.com/conorfennell/flashsync/internal/logging"
)

var (
	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "flashsync",
	Short: "Spaced repetition flashcards with an offline-first replica",
	Long: `flashsync keeps a local replica of your question set, scores your
answers offline and pushes the results to the record store in the
background.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(cmd.Flags())
		if err != nil {
			return err
		}
		cfg = c
		logger = logging.New(os.Stderr, c.LogLevel, c.LogFormat)
		slog.SetDefault(logger)
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	config.RegisterFlags(rootCmd.PersistentFlags())
}

// withApp opens the client session for the duration of fn.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	ctx := cmd.Context()
	a, err := app.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("Failed to close session", "error", err)
		}
	}()
	return fn(ctx, a)
}

// refresh pushes queued changes and then pulls the question set. The pull
// is attempted even when the push failed; rows still dirty then take the
// remote values.
func refresh(ctx context.Context, a *app.App) {
	if _, err := a.Sync.Push(ctx); err != nil {
		logger.Warn("Push failed, pulling anyway", "error", err)
	}
	if _, err := a.Sync.InitialSync(ctx); err != nil {
		logger.Warn("Initial sync failed, using local replica", "error", err)
	}
}

// pushOrWarn flushes pending changes before exit.
func pushOrWarn(ctx context.Context, cmd *cobra.Command, a *app.App) {
	res, err := a.Sync.Push(ctx)
	if err != nil {
		logger.Warn("Push incomplete, changes stay queued", "error", err)
	}
	if res.Created+res.Updated+res.Attempts > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "Synced %d new, %d updated, %d attempts\n", res.Created, res.Updated, res.Attempts)
	}
}
