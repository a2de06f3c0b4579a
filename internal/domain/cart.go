package domain

import "github.com/shopspring/decimal"

// CartLine is one product/quantity pairing in a user's cart, carrying a
// snapshot of the product as it was when the cart was last read.
type CartLine struct {
	ID        string  `json:"id"`
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Product   Product `json:"product"`
}

// Subtotal is the effective unit price times quantity.
func (l CartLine) Subtotal() decimal.Decimal {
	return l.Product.EffectivePrice().Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// AtStockLimit reports whether the line already holds all available stock.
func (l CartLine) AtStockLimit() bool {
	return l.Quantity >= l.Product.StockQuantity
}

func TotalItems(lines []CartLine) int {
	total := 0
	for _, l := range lines {
		total += l.Quantity
	}
	return total
}

func TotalPrice(lines []CartLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// FindLine returns the line for productID, if any.
func FindLine(lines []CartLine, productID string) (CartLine, bool) {
	for _, l := range lines {
		if l.ProductID == productID {
			return l, true
		}
	}
	return CartLine{}, false
}
