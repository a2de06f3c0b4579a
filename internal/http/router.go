package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Handlers struct {
	Session   *SessionHandler
	Cart      *CartHandler
	Favorites *FavoritesHandler
	Failures  FailureLister
}

// NewRouter mounts the API under /api/v1 with the global middleware stack.
func NewRouter(hs Handlers, logger *slog.Logger, timeout time.Duration) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))
	r.Use(middleware.Timeout(timeout))
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/session", func(r chi.Router) {
			r.Get("/", hs.Session.Get)
			r.Post("/", hs.Session.SignIn)
			r.Delete("/", hs.Session.SignOut)
		})
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", hs.Cart.GetCart)
			r.Delete("/", hs.Cart.ClearCart)
			r.Post("/items", hs.Cart.AddItem)
			r.Put("/items/{product_id}", hs.Cart.UpdateQuantity)
			r.Delete("/items/{product_id}", hs.Cart.RemoveItem)
		})
		r.Route("/favorites", func(r chi.Router) {
			r.Get("/", hs.Favorites.List)
			r.Get("/{product_id}", hs.Favorites.Check)
			r.Post("/{product_id}", hs.Favorites.Add)
			r.Delete("/{product_id}", hs.Favorites.Remove)
			r.Put("/{product_id}/toggle", hs.Favorites.Toggle)
		})
		r.Get("/failures", func(w http.ResponseWriter, r *http.Request) {
			if hs.Failures == nil {
				respondJSON(w, http.StatusOK, []failureDTO{})
				return
			}
			respondJSON(w, http.StatusOK, toFailureDTOs(hs.Failures.List()))
		})
	})

	return r
}
