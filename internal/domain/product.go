package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Brand struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
	Logo string `json:"logo,omitempty"`
}

type Category struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	ParentID string `json:"parent_id,omitempty"`
}

// Product is the live catalog record joined onto cart lines and favorites.
// Brand and Category are only populated by the favorites join.
type Product struct {
	ID            string              `json:"id"`
	Name          string              `json:"name"`
	Slug          string              `json:"slug"`
	Description   string              `json:"description,omitempty"`
	Price         decimal.Decimal     `json:"price"`
	DiscountPrice decimal.NullDecimal `json:"discount_price"`
	StockQuantity int                 `json:"stock_quantity"`
	IsAvailable   bool                `json:"is_available"`
	Images        []string            `json:"images"`
	Brand         *Brand              `json:"brand,omitempty"`
	Category      *Category           `json:"category,omitempty"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// EffectivePrice is the discount price when one is set and positive,
// otherwise the list price.
func (p Product) EffectivePrice() decimal.Decimal {
	if p.DiscountPrice.Valid && p.DiscountPrice.Decimal.IsPositive() {
		return p.DiscountPrice.Decimal
	}
	return p.Price
}

func (p Product) InStock() bool {
	return p.StockQuantity > 0
}
