package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/storefront/internal/domain"
)

var (
	ErrBreakerOpen = errors.New("remote gateway unavailable: circuit open")
	// ErrDuplicateLine is returned by InsertCartLine when the user already
	// has a line for the product.
	ErrDuplicateLine = errors.New("cart line already exists for product")
)

// CartGateway is the remote store for cart_items records. Updating or
// deleting a record that does not exist is not an error.
type CartGateway interface {
	ListCartLines(ctx context.Context, userID string) ([]domain.CartLine, error)
	InsertCartLine(ctx context.Context, userID, productID string, quantity int) error
	UpdateCartLineQuantity(ctx context.Context, userID, productID string, quantity int, modifiedAt time.Time) error
	DeleteCartLine(ctx context.Context, userID, productID string) error
	DeleteAllCartLines(ctx context.Context, userID string) error
}

// FavoritesGateway is the remote store for favorites records. Inserting an
// existing (user, product) pair is a no-op.
type FavoritesGateway interface {
	ListFavorites(ctx context.Context, userID string) ([]domain.FavoriteEntry, error)
	InsertFavorite(ctx context.Context, userID, productID string) error
	DeleteFavorite(ctx context.Context, userID, productID string) error
}

// Gateway is the full Remote Data Gateway surface.
type Gateway interface {
	CartGateway
	FavoritesGateway
	Close(ctx context.Context) error
}
