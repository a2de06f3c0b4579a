package gateway

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/sony/gobreaker/v2"
)

type BreakerSettings struct {
	Name        string
	MaxFailures uint32
	OpenTimeout time.Duration
}

// Breaker wraps a Gateway so that a failing backend is rejected fast
// instead of every caller waiting on it.
type Breaker struct {
	next Gateway
	cb   *gobreaker.CircuitBreaker[any]
}

func NewBreaker(next Gateway, s BreakerSettings) *Breaker {
	if s.Name == "" {
		s.Name = "remote-gateway"
	}
	if s.MaxFailures == 0 {
		s.MaxFailures = 5
	}
	if s.OpenTimeout <= 0 {
		s.OpenTimeout = 30 * time.Second
	}
	maxFailures := s.MaxFailures

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: 1,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			// caller cancellation and duplicate inserts say nothing about backend health
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, ErrDuplicateLine)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &Breaker{next: next, cb: cb}
}

func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

func (b *Breaker) exec(fn func() error) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, fn()
	})
	return translate(err)
}

func translate(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrBreakerOpen
	}
	return err
}

func (b *Breaker) ListCartLines(ctx context.Context, userID string) ([]domain.CartLine, error) {
	v, err := b.cb.Execute(func() (any, error) {
		return b.next.ListCartLines(ctx, userID)
	})
	if err != nil {
		return nil, translate(err)
	}
	return v.([]domain.CartLine), nil
}

func (b *Breaker) InsertCartLine(ctx context.Context, userID, productID string, quantity int) error {
	return b.exec(func() error {
		return b.next.InsertCartLine(ctx, userID, productID, quantity)
	})
}

func (b *Breaker) UpdateCartLineQuantity(ctx context.Context, userID, productID string, quantity int, modifiedAt time.Time) error {
	return b.exec(func() error {
		return b.next.UpdateCartLineQuantity(ctx, userID, productID, quantity, modifiedAt)
	})
}

func (b *Breaker) DeleteCartLine(ctx context.Context, userID, productID string) error {
	return b.exec(func() error {
		return b.next.DeleteCartLine(ctx, userID, productID)
	})
}

func (b *Breaker) DeleteAllCartLines(ctx context.Context, userID string) error {
	return b.exec(func() error {
		return b.next.DeleteAllCartLines(ctx, userID)
	})
}

func (b *Breaker) ListFavorites(ctx context.Context, userID string) ([]domain.FavoriteEntry, error) {
	v, err := b.cb.Execute(func() (any, error) {
		return b.next.ListFavorites(ctx, userID)
	})
	if err != nil {
		return nil, translate(err)
	}
	return v.([]domain.FavoriteEntry), nil
}

func (b *Breaker) InsertFavorite(ctx context.Context, userID, productID string) error {
	return b.exec(func() error {
		return b.next.InsertFavorite(ctx, userID, productID)
	})
}

func (b *Breaker) DeleteFavorite(ctx context.Context, userID, productID string) error {
	return b.exec(func() error {
		return b.next.DeleteFavorite(ctx, userID, productID)
	})
}

func (b *Breaker) Close(ctx context.Context) error {
	return b.next.Close(ctx)
}
