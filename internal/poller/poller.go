// Package poller consumes checkout-completed events and clears the local
// user's cart once their checkout has gone through.
package poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/segmentio/kafka-go"
)

var ErrInvalidEvent = errors.New("invalid checkout event")

type CartClearer interface {
	Clear(ctx context.Context) error
}

type IdentitySource interface {
	Current() domain.Identity
}

// CheckoutEvent is the payload written to the checkout outbox topic.
type CheckoutEvent struct {
	CheckoutID  string    `json:"checkout_id"`
	UserID      string    `json:"user_id"`
	TotalAmount string    `json:"total_amount,omitempty"`
	Currency    string    `json:"currency,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

type Config struct {
	Brokers []string
	Topic   string
	GroupID string
}

type CheckoutPoller struct {
	reader *kafka.Reader
	cart   CartClearer
	ids    IdentitySource
	logger *slog.Logger
}

func NewCheckoutPoller(cfg Config, cart CartClearer, ids IdentitySource, logger *slog.Logger) *CheckoutPoller {
	if logger == nil {
		logger = slog.Default()
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MaxBytes: 10e6, // 10MB
	})
	return &CheckoutPoller{
		reader: reader,
		cart:   cart,
		ids:    ids,
		logger: logger.With("component", "checkout-poller", "topic", cfg.Topic),
	}
}

// Run reads until ctx is cancelled.
func (p *CheckoutPoller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		m, err := p.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Warn("error reading message", "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
			continue
		}
		if err := p.handle(ctx, m.Value); err != nil {
			p.logger.Warn("checkout event not applied",
				"offset", m.Offset, "partition", m.Partition, "error", err)
		}
	}
}

func (p *CheckoutPoller) Close() {
	if err := p.reader.Close(); err != nil {
		p.logger.Error("error closing reader", "error", err)
	}
}

// handle clears the cart when the event belongs to the signed-in user.
// Events for anyone else are ignored.
func (p *CheckoutPoller) handle(ctx context.Context, value []byte) error {
	var ev CheckoutEvent
	if err := json.Unmarshal(value, &ev); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}
	if ev.UserID == "" {
		return fmt.Errorf("%w: missing user_id", ErrInvalidEvent)
	}

	current := p.ids.Current()
	if current.IsAnonymous() || current.UserID != ev.UserID {
		return nil
	}

	if err := p.cart.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear cart after checkout %s: %w", ev.CheckoutID, err)
	}
	p.logger.InfoContext(ctx, "cart cleared after checkout", "checkout_id", ev.CheckoutID, "user_id", ev.UserID)
	return nil
}
