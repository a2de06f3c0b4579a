package service

import (
	"context"
	"sync"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/gateway"
	"golang.org/x/sync/singleflight"
)

type FavoritesView struct {
	Products []domain.Product `json:"favorites"`
	Loading  bool             `json:"loading"`
}

// FavoritesSynchronizer mirrors the favorites set with the same
// write-then-reload discipline as the cart.
type FavoritesSynchronizer struct {
	gw  gateway.FavoritesGateway
	ids IdentitySource
	options
	sfg singleflight.Group

	mu       sync.RWMutex
	owner    string
	entries  []domain.FavoriteEntry
	inflight int
}

func NewFavoritesSynchronizer(gw gateway.FavoritesGateway, ids IdentitySource, opts ...Option) *FavoritesSynchronizer {
	return &FavoritesSynchronizer{
		gw:      gw,
		ids:     ids,
		options: buildOptions(opts),
	}
}

func (s *FavoritesSynchronizer) View() FavoritesView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return FavoritesView{
		Products: domain.FavoriteProducts(s.entries),
		Loading:  s.inflight > 0,
	}
}

// IsFavorite checks the local mirror only.
func (s *FavoritesSynchronizer) IsFavorite(productID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entries {
		if e.ProductID == productID {
			return true
		}
	}
	return false
}

func (s *FavoritesSynchronizer) Load(ctx context.Context) error {
	id := s.ids.Current()
	if id.IsAnonymous() {
		s.apply(id, nil)
		return nil
	}
	return s.reload(ctx, id, "load favorites", true)
}

func (s *FavoritesSynchronizer) Add(ctx context.Context, productID string) error {
	id := s.ids.Current()
	if id.IsAnonymous() {
		return ErrNotAuthenticated
	}

	if err := s.gw.InsertFavorite(ctx, id.UserID, productID); err != nil {
		return s.fail(ctx, "add favorite", id, productID, err)
	}
	return s.reload(ctx, id, "add favorite", false)
}

func (s *FavoritesSynchronizer) Remove(ctx context.Context, productID string) error {
	id := s.ids.Current()
	if id.IsAnonymous() {
		return ErrNotAuthenticated
	}

	if err := s.gw.DeleteFavorite(ctx, id.UserID, productID); err != nil {
		return s.fail(ctx, "remove favorite", id, productID, err)
	}
	return s.reload(ctx, id, "remove favorite", false)
}

// Toggle flips membership based on the mirror and reports the new state.
func (s *FavoritesSynchronizer) Toggle(ctx context.Context, productID string) (bool, error) {
	if s.IsFavorite(productID) {
		if err := s.Remove(ctx, productID); err != nil {
			return true, err
		}
		return false, nil
	}
	if err := s.Add(ctx, productID); err != nil {
		return false, err
	}
	return true, nil
}

func (s *FavoritesSynchronizer) reload(ctx context.Context, id domain.Identity, op string, shared bool) error {
	s.claim(id)
	s.setLoading(1)
	defer s.setLoading(-1)

	var entries []domain.FavoriteEntry
	var err error
	if shared {
		var v any
		v, err, _ = s.sfg.Do(id.UserID, func() (any, error) {
			return s.gw.ListFavorites(ctx, id.UserID)
		})
		if err == nil {
			entries = v.([]domain.FavoriteEntry)
		}
	} else {
		entries, err = s.gw.ListFavorites(ctx, id.UserID)
	}
	if err != nil {
		return s.fail(ctx, op, id, "", err)
	}

	s.apply(id, entries)
	return nil
}

func (s *FavoritesSynchronizer) apply(id domain.Identity, entries []domain.FavoriteEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ids.Current() != id {
		s.logger.Debug("discarding favorites read for stale identity", "user_id", id.UserID)
		return
	}
	s.owner = id.UserID
	s.entries = append([]domain.FavoriteEntry(nil), entries...)
}

// claim empties a mirror held for another identity.
func (s *FavoritesSynchronizer) claim(id domain.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.owner == id.UserID || s.ids.Current() != id {
		return
	}
	s.owner = id.UserID
	s.entries = nil
}

func (s *FavoritesSynchronizer) setLoading(delta int) {
	s.mu.Lock()
	s.inflight += delta
	s.mu.Unlock()
}
