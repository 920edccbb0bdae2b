package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/conorfennell/flashsync/internal/recordstore"
	"github.com/conorfennell/flashsync/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the record store API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := recordstore.Open(cfg.RecordDriver, cfg.RecordDSN, logger)
		if err != nil {
			return err
		}
		defer store.Close()

		srv := web.NewServer(store, web.Options{Logger: logger, CORSOrigins: cfg.CORSOrigins})
		server := &http.Server{
			Addr:              cfg.Listen,
			Handler:           srv,
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info("Server listening", "addr", cfg.Listen, "driver", cfg.RecordDriver)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("could not listen on %s: %w", cfg.Listen, err)
			}
			return nil
		case <-cmd.Context().Done():
		}

		logger.Info("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Server forced to shutdown", "error", err)
			return err
		}
		logger.Info("Server exiting")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
