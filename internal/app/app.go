// Package app wires the client session: the local replica, the remote
// store, the sync coordinator and the selection engine.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/conorfennell/flashsync/internal/config"
	"github.com/conorfennell/flashsync/internal/recordstore"
	"github.com/conorfennell/flashsync/internal/remote"
	"github.com/conorfennell/flashsync/internal/selection"
	"github.com/conorfennell/flashsync/internal/storage"
	"github.com/conorfennell/flashsync/internal/sync"
)

// App is the explicit context a client command runs against.
type App struct {
	Replica  *storage.DB
	Remote   remote.Client
	Sync     *sync.Coordinator
	Selector *selection.Engine
	Logger   *slog.Logger

	closers []func() error
}

// Open builds an App from cfg. With a RemoteURL the remote is the server
// API; otherwise the record store is opened in-process.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	replica, err := storage.Open(ctx, cfg.ReplicaPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open replica: %w", err)
	}
	a := &App{Replica: replica, Logger: logger}
	a.closers = append(a.closers, replica.Close)

	if cfg.RemoteURL != "" {
		a.Remote = remote.NewHTTPClient(cfg.RemoteURL, http.DefaultClient)
	} else {
		store, err := recordstore.Open(cfg.RecordDriver, cfg.RecordDSN, logger)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to open record store: %w", err)
		}
		a.Remote = store
		a.closers = append(a.closers, store.Close)
	}

	a.Sync = sync.New(replica, a.Remote, sync.Options{
		Interval: cfg.SyncInterval,
		PageSize: cfg.PageSize,
		Logger:   logger,
	})
	a.Selector = selection.New(replica)
	return a, nil
}

// Close releases everything Open acquired, in reverse order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
