package main

import (
	"context"

	"github.com/clearframe/forensics-cli/internal/store"
)

// initStore opens the configured run-history backend, migrated and ready.
func initStore(ctx context.Context) (store.Store, error) {
	return store.Open(ctx, cfg.Store)
}
