package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/service"
	"github.com/go-chi/chi/v5"
)

const maxLineQuantity = 99

type CartService interface {
	View() service.CartView
	Load(ctx context.Context) error
	AddItem(ctx context.Context, productID string, quantity int) error
	SetQuantity(ctx context.Context, productID string, quantity int) error
	RemoveItem(ctx context.Context, productID string) error
	Clear(ctx context.Context) error
}

type CartHandler struct {
	cart    CartService
	timeout time.Duration
}

func NewCartHandler(cart CartService, timeout time.Duration) *CartHandler {
	return &CartHandler{
		cart:    cart,
		timeout: timeout,
	}
}

type AddItemRequestDTO struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

// GetCart returns the mirror as it is. Pass ?refresh=true to reload it
// from the remote store first.
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("refresh") == "true" {
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		defer cancel()
		if err := h.cart.Load(ctx); err != nil {
			handleServiceError(w, err)
			return
		}
	}
	respondJSON(w, http.StatusOK, h.cart.View())
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	req.ProductID = strings.TrimSpace(req.ProductID)
	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if req.Quantity < 0 || req.Quantity > maxLineQuantity {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	// the cart page never lets an increment pass available stock
	if line, ok := domain.FindLine(h.cart.View().Lines, req.ProductID); ok {
		if line.AtStockLimit() {
			respondError(w, http.StatusConflict, "stock_limit", "no more stock available for this product")
			return
		}
		if left := line.Product.StockQuantity - line.Quantity; req.Quantity > left {
			req.Quantity = left
		}
	}

	if err := h.cart.AddItem(ctx, req.ProductID, req.Quantity); err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, h.cart.View())
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID := chi.URLParam(r, "product_id")
	if productID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	// zero removes the line
	if req.Quantity < 0 || req.Quantity > maxLineQuantity {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 0 and 99")
		return
	}

	if line, ok := domain.FindLine(h.cart.View().Lines, productID); ok {
		// stock unknown or sold out: leave the quantity to the store
		if line.Product.InStock() && req.Quantity > line.Product.StockQuantity {
			req.Quantity = line.Product.StockQuantity
		}
	}

	if err := h.cart.SetQuantity(ctx, productID, req.Quantity); err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, h.cart.View())
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID := chi.URLParam(r, "product_id")
	if productID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	if err := h.cart.RemoveItem(ctx, productID); err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, h.cart.View())
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.cart.Clear(ctx); err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, h.cart.View())
}
