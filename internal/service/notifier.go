package service

import (
	"log/slog"
	"sync"
	"time"
)

// Failure describes a mutation or load that did not reach the remote store.
type Failure struct {
	Op        string
	UserID    string
	ProductID string
	Err       error
	At        time.Time
}

type Notifier interface {
	Notify(f Failure)
}

type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Notify(f Failure) {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn("remote operation failed",
		"op", f.Op,
		"user_id", f.UserID,
		"product_id", f.ProductID,
		"error", f.Err,
	)
}

// RecentFailures keeps the last few failures for the presentation layer.
type RecentFailures struct {
	mu    sync.Mutex
	limit int
	items []Failure
}

func NewRecentFailures(limit int) *RecentFailures {
	if limit <= 0 {
		limit = 20
	}
	return &RecentFailures{limit: limit}
}

func (r *RecentFailures) Notify(f Failure) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, f)
	if len(r.items) > r.limit {
		r.items = r.items[len(r.items)-r.limit:]
	}
}

// List returns failures newest first.
func (r *RecentFailures) List() []Failure {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Failure, 0, len(r.items))
	for i := len(r.items) - 1; i >= 0; i-- {
		out = append(out, r.items[i])
	}
	return out
}

type MultiNotifier []Notifier

func (m MultiNotifier) Notify(f Failure) {
	for _, n := range m {
		n.Notify(f)
	}
}
