package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/gateway"
	"github.com/shopspring/decimal"
)

type fakeIdentity struct {
	m  sync.RWMutex
	id domain.Identity
}

func (f *fakeIdentity) Current() domain.Identity {
	f.m.RLock()
	defer f.m.RUnlock()
	return f.id
}

func (f *fakeIdentity) set(userID string) {
	f.m.Lock()
	defer f.m.Unlock()
	f.id = domain.Identity{UserID: userID}
}

func signedIn(userID string) *fakeIdentity {
	return &fakeIdentity{id: domain.Identity{UserID: userID}}
}

// mockGateway is an in-memory remote store keyed by user and product.
type mockGateway struct {
	m         sync.RWMutex
	products  map[string]domain.Product
	lines     map[string]map[string]domain.CartLine
	favorites map[string]map[string]domain.FavoriteEntry
	calls     []string
	errs      map[string]error
	seq       int

	// listGate, when set, blocks list calls until it is closed
	listGate chan struct{}
}

func newMockGateway() *mockGateway {
	g := &mockGateway{
		products:  map[string]domain.Product{},
		lines:     map[string]map[string]domain.CartLine{},
		favorites: map[string]map[string]domain.FavoriteEntry{},
		errs:      map[string]error{},
	}
	for i, price := range []string{"10.00", "20.00", "5.50"} {
		id := []string{"prod-1", "prod-2", "prod-3"}[i]
		g.products[id] = domain.Product{ID: id, Name: id, Price: decimal.RequireFromString(price), StockQuantity: 3}
	}
	g.products["prod-9"] = domain.Product{
		ID:            "prod-9",
		Name:          "prod-9",
		Price:         decimal.RequireFromString("99.00"),
		DiscountPrice: decimal.NewNullDecimal(decimal.RequireFromString("79.00")),
		StockQuantity: 1,
		Brand:         &domain.Brand{ID: "b1", Name: "Acme"},
	}
	return g
}

func (g *mockGateway) failOn(op string, err error) {
	g.m.Lock()
	defer g.m.Unlock()
	g.errs[op] = err
}

func (g *mockGateway) record(op string) error {
	g.calls = append(g.calls, op)
	return g.errs[op]
}

func (g *mockGateway) callLog() []string {
	g.m.RLock()
	defer g.m.RUnlock()
	return append([]string(nil), g.calls...)
}

func (g *mockGateway) seed(userID, productID string, qty int) {
	g.m.Lock()
	defer g.m.Unlock()
	g.seq++
	if g.lines[userID] == nil {
		g.lines[userID] = map[string]domain.CartLine{}
	}
	g.lines[userID][productID] = domain.CartLine{
		ID:        "line-" + productID,
		ProductID: productID,
		Quantity:  qty,
		Product:   g.products[productID],
	}
}

func (g *mockGateway) remoteLines(userID string) []domain.CartLine {
	g.m.RLock()
	defer g.m.RUnlock()
	return g.sortedLines(userID)
}

func (g *mockGateway) sortedLines(userID string) []domain.CartLine {
	out := []domain.CartLine{}
	for _, l := range g.lines[userID] {
		l.Product = g.products[l.ProductID]
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

func (g *mockGateway) waitGate() {
	g.m.RLock()
	gate := g.listGate
	g.m.RUnlock()
	if gate != nil {
		<-gate
	}
}

func (g *mockGateway) ListCartLines(_ context.Context, userID string) ([]domain.CartLine, error) {
	g.m.Lock()
	err := g.record("list")
	g.m.Unlock()
	g.waitGate()

	if err != nil {
		return nil, err
	}
	g.m.RLock()
	defer g.m.RUnlock()
	return g.sortedLines(userID), nil
}

func (g *mockGateway) InsertCartLine(_ context.Context, userID, productID string, quantity int) error {
	g.m.Lock()
	defer g.m.Unlock()
	if err := g.record("insert"); err != nil {
		return err
	}
	if _, exists := g.lines[userID][productID]; exists {
		return gateway.ErrDuplicateLine
	}
	if g.lines[userID] == nil {
		g.lines[userID] = map[string]domain.CartLine{}
	}
	g.seq++
	g.lines[userID][productID] = domain.CartLine{ID: "line-" + productID, ProductID: productID, Quantity: quantity}
	return nil
}

func (g *mockGateway) UpdateCartLineQuantity(_ context.Context, userID, productID string, quantity int, _ time.Time) error {
	g.m.Lock()
	defer g.m.Unlock()
	if err := g.record("update"); err != nil {
		return err
	}
	if l, ok := g.lines[userID][productID]; ok {
		l.Quantity = quantity
		g.lines[userID][productID] = l
	}
	return nil
}

func (g *mockGateway) DeleteCartLine(_ context.Context, userID, productID string) error {
	g.m.Lock()
	defer g.m.Unlock()
	if err := g.record("delete"); err != nil {
		return err
	}
	delete(g.lines[userID], productID)
	return nil
}

func (g *mockGateway) DeleteAllCartLines(_ context.Context, userID string) error {
	g.m.Lock()
	defer g.m.Unlock()
	if err := g.record("deleteAll"); err != nil {
		return err
	}
	delete(g.lines, userID)
	return nil
}

func (g *mockGateway) ListFavorites(_ context.Context, userID string) ([]domain.FavoriteEntry, error) {
	g.m.Lock()
	err := g.record("listFav")
	g.m.Unlock()
	g.waitGate()

	if err != nil {
		return nil, err
	}
	g.m.RLock()
	defer g.m.RUnlock()
	out := []domain.FavoriteEntry{}
	for _, f := range g.favorites[userID] {
		f.Product = g.products[f.ProductID]
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

func (g *mockGateway) InsertFavorite(_ context.Context, userID, productID string) error {
	g.m.Lock()
	defer g.m.Unlock()
	if err := g.record("insertFav"); err != nil {
		return err
	}
	if g.favorites[userID] == nil {
		g.favorites[userID] = map[string]domain.FavoriteEntry{}
	}
	g.favorites[userID][productID] = domain.FavoriteEntry{ID: "fav-" + productID, UserID: userID, ProductID: productID}
	return nil
}

func (g *mockGateway) DeleteFavorite(_ context.Context, userID, productID string) error {
	g.m.Lock()
	defer g.m.Unlock()
	if err := g.record("deleteFav"); err != nil {
		return err
	}
	delete(g.favorites[userID], productID)
	return nil
}

type mockNotifier struct {
	m        sync.Mutex
	failures []Failure
}

func (n *mockNotifier) Notify(f Failure) {
	n.m.Lock()
	defer n.m.Unlock()
	n.failures = append(n.failures, f)
}

func (n *mockNotifier) all() []Failure {
	n.m.Lock()
	defer n.m.Unlock()
	return append([]Failure(nil), n.failures...)
}
