package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/storefront/internal/service"
	"github.com/go-chi/chi/v5"
)

type FavoritesService interface {
	View() service.FavoritesView
	IsFavorite(productID string) bool
	Load(ctx context.Context) error
	Add(ctx context.Context, productID string) error
	Remove(ctx context.Context, productID string) error
	Toggle(ctx context.Context, productID string) (bool, error)
}

type FavoritesHandler struct {
	favorites FavoritesService
	timeout   time.Duration
}

func NewFavoritesHandler(favorites FavoritesService, timeout time.Duration) *FavoritesHandler {
	return &FavoritesHandler{
		favorites: favorites,
		timeout:   timeout,
	}
}

type FavoriteStatusDTO struct {
	ProductID  string `json:"product_id"`
	IsFavorite bool   `json:"is_favorite"`
}

func (h *FavoritesHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("refresh") == "true" {
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		defer cancel()
		if err := h.favorites.Load(ctx); err != nil {
			handleServiceError(w, err)
			return
		}
	}
	respondJSON(w, http.StatusOK, h.favorites.View())
}

// Check answers from the local mirror only.
func (h *FavoritesHandler) Check(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "product_id")
	respondJSON(w, http.StatusOK, FavoriteStatusDTO{
		ProductID:  productID,
		IsFavorite: h.favorites.IsFavorite(productID),
	})
}

func (h *FavoritesHandler) Add(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, http.StatusCreated, h.favorites.Add)
}

func (h *FavoritesHandler) Remove(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, http.StatusOK, h.favorites.Remove)
}

func (h *FavoritesHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID := chi.URLParam(r, "product_id")
	on, err := h.favorites.Toggle(ctx, productID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, FavoriteStatusDTO{ProductID: productID, IsFavorite: on})
}

func (h *FavoritesHandler) mutate(w http.ResponseWriter, r *http.Request, status int, fn func(context.Context, string) error) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := fn(ctx, chi.URLParam(r, "product_id")); err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, status, h.favorites.View())
}
