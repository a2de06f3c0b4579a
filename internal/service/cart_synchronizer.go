// Package service keeps local mirrors of a user's cart and favorites in
// step with the remote data gateway.
package service

import (
	"context"
	"errors"
	"sync"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/gateway"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

type CartView struct {
	Lines      []domain.CartLine `json:"items"`
	TotalItems int               `json:"total_items"`
	TotalPrice decimal.Decimal   `json:"total_price"`
	Loading    bool              `json:"loading"`
}

// CartSynchronizer owns the cart mirror. Every mutation goes to the gateway
// first and is followed by a full reload, so the mirror only ever holds
// what the remote store returned. Gateway calls are made without holding
// the mirror lock; concurrent mutations resolve last-reload-wins.
type CartSynchronizer struct {
	gw  gateway.CartGateway
	ids IdentitySource
	options
	sfg singleflight.Group // collapses overlapping identity loads

	mu       sync.RWMutex
	owner    string
	lines    []domain.CartLine
	inflight int
}

func NewCartSynchronizer(gw gateway.CartGateway, ids IdentitySource, opts ...Option) *CartSynchronizer {
	return &CartSynchronizer{
		gw:      gw,
		ids:     ids,
		options: buildOptions(opts),
	}
}

func (s *CartSynchronizer) View() CartView {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lines := make([]domain.CartLine, len(s.lines))
	copy(lines, s.lines)
	return CartView{
		Lines:      lines,
		TotalItems: domain.TotalItems(lines),
		TotalPrice: domain.TotalPrice(lines),
		Loading:    s.inflight > 0,
	}
}

// Load replaces the mirror with the current identity's remote cart. For an
// anonymous identity the mirror is cleared without a remote call.
func (s *CartSynchronizer) Load(ctx context.Context) error {
	id := s.ids.Current()
	if id.IsAnonymous() {
		s.apply(id, nil)
		return nil
	}
	return s.reload(ctx, id, "load cart", true)
}

// AddItem adds quantity of productID, incrementing an existing line.
// A quantity below 1 adds one unit.
func (s *CartSynchronizer) AddItem(ctx context.Context, productID string, quantity int) error {
	if quantity <= 0 {
		quantity = 1
	}
	id := s.ids.Current()
	if id.IsAnonymous() {
		return ErrNotAuthenticated
	}

	if line, ok := s.lineFor(id, productID); ok {
		return s.SetQuantity(ctx, productID, line.Quantity+quantity)
	}

	err := s.gw.InsertCartLine(ctx, id.UserID, productID, quantity)
	if errors.Is(err, gateway.ErrDuplicateLine) {
		// another client added it since our last read
		if errReload := s.reload(ctx, id, "add item", false); errReload != nil {
			return errReload
		}
		if line, ok := s.lineFor(id, productID); ok {
			return s.SetQuantity(ctx, productID, line.Quantity+quantity)
		}
	}
	if err != nil {
		return s.fail(ctx, "add item", id, productID, err)
	}

	return s.reload(ctx, id, "add item", false)
}

// SetQuantity overwrites the line quantity; quantity <= 0 removes the line.
// Stock is not checked here.
func (s *CartSynchronizer) SetQuantity(ctx context.Context, productID string, quantity int) error {
	id := s.ids.Current()
	if id.IsAnonymous() {
		return ErrNotAuthenticated
	}
	if quantity <= 0 {
		return s.RemoveItem(ctx, productID)
	}

	if err := s.gw.UpdateCartLineQuantity(ctx, id.UserID, productID, quantity, s.now()); err != nil {
		return s.fail(ctx, "set quantity", id, productID, err)
	}

	return s.reload(ctx, id, "set quantity", false)
}

func (s *CartSynchronizer) RemoveItem(ctx context.Context, productID string) error {
	id := s.ids.Current()
	if id.IsAnonymous() {
		return ErrNotAuthenticated
	}

	if err := s.gw.DeleteCartLine(ctx, id.UserID, productID); err != nil {
		return s.fail(ctx, "remove item", id, productID, err)
	}

	return s.reload(ctx, id, "remove item", false)
}

// Clear deletes every remote line. The postcondition is known, so the
// mirror is emptied without a reload.
func (s *CartSynchronizer) Clear(ctx context.Context) error {
	id := s.ids.Current()
	if id.IsAnonymous() {
		return ErrNotAuthenticated
	}

	if err := s.gw.DeleteAllCartLines(ctx, id.UserID); err != nil {
		return s.fail(ctx, "clear cart", id, "", err)
	}

	s.apply(id, nil)
	return nil
}

func (s *CartSynchronizer) reload(ctx context.Context, id domain.Identity, op string, shared bool) error {
	s.claim(id)
	s.setLoading(1)
	defer s.setLoading(-1)

	var lines []domain.CartLine
	var err error
	if shared {
		var v any
		v, err, _ = s.sfg.Do(id.UserID, func() (any, error) {
			return s.gw.ListCartLines(ctx, id.UserID)
		})
		if err == nil {
			lines = v.([]domain.CartLine)
		}
	} else {
		// a reload after a write must not share a read issued before it
		lines, err = s.gw.ListCartLines(ctx, id.UserID)
	}
	if err != nil {
		return s.fail(ctx, op, id, "", err)
	}

	s.apply(id, lines)
	return nil
}

// apply installs lines as the mirror unless the identity has changed
// since the read was issued.
func (s *CartSynchronizer) apply(id domain.Identity, lines []domain.CartLine) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ids.Current() != id {
		s.logger.Debug("discarding cart read for stale identity", "user_id", id.UserID)
		return
	}
	s.owner = id.UserID
	s.lines = append([]domain.CartLine(nil), lines...)
}

// claim empties a mirror held for another identity so a failed read never
// leaves the previous user's lines visible.
func (s *CartSynchronizer) claim(id domain.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.owner == id.UserID || s.ids.Current() != id {
		return
	}
	s.owner = id.UserID
	s.lines = nil
}

func (s *CartSynchronizer) lineFor(id domain.Identity, productID string) (domain.CartLine, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.owner != id.UserID {
		return domain.CartLine{}, false
	}
	return domain.FindLine(s.lines, productID)
}

func (s *CartSynchronizer) setLoading(delta int) {
	s.mu.Lock()
	s.inflight += delta
	s.mu.Unlock()
}
