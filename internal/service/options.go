package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/fjod/storefront/internal/domain"
)

// IdentitySource reports the identity mutations are issued for.
type IdentitySource interface {
	Current() domain.Identity
}

type options struct {
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

type Option func(*options)

func WithNotifier(n Notifier) Option {
	return func(o *options) { o.notifier = n }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.notifier == nil {
		o.notifier = LogNotifier{Logger: o.logger}
	}
	return o
}

func (o options) fail(ctx context.Context, op string, id domain.Identity, productID string, err error) error {
	o.logger.DebugContext(ctx, "gateway call failed", "op", op, "user_id", id.UserID, "error", err)
	o.notifier.Notify(Failure{
		Op:        op,
		UserID:    id.UserID,
		ProductID: productID,
		Err:       err,
		At:        o.now(),
	})
	return &RemoteError{Op: op, Err: err}
}
