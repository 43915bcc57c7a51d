package main

import (
	"context"
	"os"

	"mycloud/pkg/log"
)

type roleCache interface {
	InvalidateAll()
}

// invalidateOnSignal drops every cached role when a signal arrives, so role
// changes made with mycloud-admin apply without waiting for the cache TTL.
func invalidateOnSignal(ctx context.Context, signals <-chan os.Signal, cache roleCache) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-signals:
			cache.InvalidateAll()
			log.Info().Str("signal", sig.String()).Msg("Role cache invalidated")
		}
	}
}
