package domain

import "time"

// FavoriteEntry is one user/product membership in the favorites set.
type FavoriteEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ProductID string    `json:"product_id"`
	Product   Product   `json:"product"`
	CreatedAt time.Time `json:"created_at"`
}

// FavoriteProducts flattens entries to their joined products.
func FavoriteProducts(entries []FavoriteEntry) []Product {
	products := make([]Product, 0, len(entries))
	for _, e := range entries {
		products = append(products, e.Product)
	}
	return products
}
