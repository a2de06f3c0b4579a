// Package session tracks the current identity and announces every change
// of it to subscribers.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/fjod/storefront/internal/domain"
)

type Handler = func(ctx context.Context, ev domain.IdentityChanged)

type Provider struct {
	store  Store
	logger *slog.Logger

	// transitions are serialized so subscribers see events in order
	switchMu sync.Mutex

	mu       sync.RWMutex
	current  domain.Identity
	token    string
	handlers map[int]Handler
	nextID   int
}

func NewProvider(store Store, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{
		store:    store,
		logger:   logger,
		handlers: make(map[int]Handler),
	}
}

func (p *Provider) Current() domain.Identity {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// Subscribe registers h for every future identity change and returns a
// function that removes it.
func (p *Provider) Subscribe(h Handler) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.handlers[id] = h
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.handlers, id)
		p.mu.Unlock()
	}
}

// SignIn resolves token to a user and makes it the current identity.
func (p *Provider) SignIn(ctx context.Context, token string) (domain.Identity, error) {
	p.switchMu.Lock()
	defer p.switchMu.Unlock()

	userID, err := p.store.Resolve(ctx, token)
	if err != nil {
		return p.Current(), fmt.Errorf("failed to resolve session: %w", err)
	}

	id := domain.Identity{UserID: userID}
	p.transition(ctx, id, token)
	return id, nil
}

// Restore is SignIn for a token persisted by a previous run. An expired or
// unknown token leaves the client anonymous instead of failing.
func (p *Provider) Restore(ctx context.Context, token string) (domain.Identity, error) {
	if token == "" {
		return p.Current(), nil
	}
	id, err := p.SignIn(ctx, token)
	if errors.Is(err, ErrSessionNotFound) {
		p.logger.Info("persisted session expired, continuing anonymously")
		return domain.Anonymous, nil
	}
	return id, err
}

// SignOut drops the session and switches to the anonymous identity.
func (p *Provider) SignOut(ctx context.Context) error {
	p.switchMu.Lock()
	defer p.switchMu.Unlock()

	p.mu.RLock()
	token := p.token
	p.mu.RUnlock()

	var err error
	if token != "" {
		if errDelete := p.store.Delete(ctx, token); errDelete != nil {
			// the local sign-out still happens
			err = fmt.Errorf("failed to delete session: %w", errDelete)
		}
	}

	p.transition(ctx, domain.Anonymous, "")
	return err
}

func (p *Provider) transition(ctx context.Context, next domain.Identity, token string) {
	p.mu.Lock()
	prev := p.current
	p.current = next
	p.token = token
	handlers := make([]Handler, 0, len(p.handlers))
	for i := 0; i < p.nextID; i++ {
		if h, ok := p.handlers[i]; ok {
			handlers = append(handlers, h)
		}
	}
	p.mu.Unlock()

	if prev == next {
		return
	}

	p.logger.Info("identity changed", "from", prev.String(), "to", next.String())
	ev := domain.IdentityChanged{Previous: prev, Current: next}
	for _, h := range handlers {
		h(ctx, ev)
	}
}
