package http

import (
	"context"
	"sync"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/service"
	"github.com/shopspring/decimal"
)

type cartCall struct {
	op        string
	productID string
	quantity  int
}

type CartMock struct {
	mu    sync.Mutex
	lines []domain.CartLine
	err   error
	calls []cartCall
}

func (c *CartMock) record(op, productID string, qty int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, cartCall{op: op, productID: productID, quantity: qty})
	return c.err
}

func (c *CartMock) lastCall() cartCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.calls) == 0 {
		return cartCall{}
	}
	return c.calls[len(c.calls)-1]
}

func (c *CartMock) View() service.CartView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return service.CartView{
		Lines:      c.lines,
		TotalItems: domain.TotalItems(c.lines),
		TotalPrice: domain.TotalPrice(c.lines),
	}
}

func (c *CartMock) Load(context.Context) error { return c.record("load", "", 0) }

func (c *CartMock) AddItem(_ context.Context, productID string, quantity int) error {
	return c.record("add", productID, quantity)
}

func (c *CartMock) SetQuantity(_ context.Context, productID string, quantity int) error {
	return c.record("set", productID, quantity)
}

func (c *CartMock) RemoveItem(_ context.Context, productID string) error {
	return c.record("remove", productID, 0)
}

func (c *CartMock) Clear(context.Context) error { return c.record("clear", "", 0) }

func line(productID string, qty, stock int, price string) domain.CartLine {
	return domain.CartLine{
		ID:        "line-" + productID,
		ProductID: productID,
		Quantity:  qty,
		Product: domain.Product{
			ID:            productID,
			Name:          "Product " + productID,
			Price:         decimal.RequireFromString(price),
			StockQuantity: stock,
			IsAvailable:   true,
		},
	}
}

type FavoritesMock struct {
	mu  sync.Mutex
	set map[string]bool
	err error
}

func newFavoritesMock(ids ...string) *FavoritesMock {
	m := &FavoritesMock{set: map[string]bool{}}
	for _, id := range ids {
		m.set[id] = true
	}
	return m
}

func (f *FavoritesMock) View() service.FavoritesView {
	f.mu.Lock()
	defer f.mu.Unlock()
	var products []domain.Product
	for id := range f.set {
		products = append(products, domain.Product{ID: id})
	}
	return service.FavoritesView{Products: products}
}

func (f *FavoritesMock) IsFavorite(productID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.set[productID]
}

func (f *FavoritesMock) Load(context.Context) error { return f.err }

func (f *FavoritesMock) Add(_ context.Context, productID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.set[productID] = true
	return nil
}

func (f *FavoritesMock) Remove(_ context.Context, productID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	delete(f.set, productID)
	return nil
}

func (f *FavoritesMock) Toggle(ctx context.Context, productID string) (bool, error) {
	if f.IsFavorite(productID) {
		return false, f.Remove(ctx, productID)
	}
	return true, f.Add(ctx, productID)
}

type SessionsMock struct {
	mu      sync.Mutex
	current domain.Identity
	tokens  map[string]string
	signOut error
}

func (s *SessionsMock) Current() domain.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *SessionsMock) SignIn(_ context.Context, token string) (domain.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	userID, ok := s.tokens[token]
	if !ok {
		return s.current, errUnknownToken
	}
	s.current = domain.Identity{UserID: userID}
	return s.current, nil
}

func (s *SessionsMock) SignOut(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = domain.Anonymous
	return s.signOut
}
