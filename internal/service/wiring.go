package service

import (
	"context"
	"log/slog"

	"github.com/fjod/storefront/internal/domain"
)

type Loader interface {
	Load(ctx context.Context) error
}

type IdentityPublisher interface {
	Subscribe(h func(ctx context.Context, ev domain.IdentityChanged)) func()
}

// Wire re-syncs every loader whenever the published identity changes.
// Loaders run in order; a failing loader does not stop the others.
func Wire(pub IdentityPublisher, logger *slog.Logger, loaders ...Loader) func() {
	if logger == nil {
		logger = slog.Default()
	}
	return pub.Subscribe(func(ctx context.Context, ev domain.IdentityChanged) {
		for _, l := range loaders {
			if err := l.Load(ctx); err != nil {
				logger.WarnContext(ctx, "re-sync after identity change failed",
					"identity", ev.Current.String(), "error", err)
			}
		}
	})
}
