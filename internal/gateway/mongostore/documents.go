package mongostore

import (
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type brandDoc struct {
	ID   string `bson:"_id"`
	Name string `bson:"name"`
	Slug string `bson:"slug"`
	Logo string `bson:"logo,omitempty"`
}

type categoryDoc struct {
	ID       string `bson:"_id"`
	Name     string `bson:"name"`
	Slug     string `bson:"slug"`
	ParentID string `bson:"parent_id,omitempty"`
}

type productDoc struct {
	ID            string                `bson:"_id"`
	Name          string                `bson:"name"`
	Slug          string                `bson:"slug"`
	Description   string                `bson:"description,omitempty"`
	Price         primitive.Decimal128  `bson:"price"`
	DiscountPrice *primitive.Decimal128 `bson:"discount_price,omitempty"`
	StockQuantity int                   `bson:"stock_quantity"`
	IsAvailable   bool                  `bson:"is_available"`
	Images        []string              `bson:"images"`
	BrandID       string                `bson:"brand_id,omitempty"`
	CategoryID    string                `bson:"category_id,omitempty"`
	UpdatedAt     time.Time             `bson:"updated_at"`
}

type cartItemDoc struct {
	ID        string    `bson:"_id"`
	UserID    string    `bson:"user_id"`
	ProductID string    `bson:"product_id"`
	Quantity  int       `bson:"quantity"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

type favoriteDoc struct {
	ID        string    `bson:"_id"`
	UserID    string    `bson:"user_id"`
	ProductID string    `bson:"product_id"`
	CreatedAt time.Time `bson:"created_at"`
}

// cartLineRow and favoriteRow are the shapes produced by the $lookup pipelines.
type cartLineRow struct {
	Item    cartItemDoc `bson:",inline"`
	Product productDoc  `bson:"product"`
}

type favoriteRow struct {
	Favorite favoriteDoc  `bson:",inline"`
	Product  productDoc   `bson:"product"`
	Brand    *brandDoc    `bson:"brand,omitempty"`
	Category *categoryDoc `bson:"category,omitempty"`
}

func toDecimal(d primitive.Decimal128) decimal.Decimal {
	v, err := decimal.NewFromString(d.String())
	if err != nil {
		return decimal.Zero
	}
	return v
}

func fromDecimal(d decimal.Decimal) primitive.Decimal128 {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.NewDecimal128(0, 0)
	}
	return v
}

func (p productDoc) toDomain() domain.Product {
	product := domain.Product{
		ID:            p.ID,
		Name:          p.Name,
		Slug:          p.Slug,
		Description:   p.Description,
		Price:         toDecimal(p.Price),
		StockQuantity: p.StockQuantity,
		IsAvailable:   p.IsAvailable,
		Images:        p.Images,
		UpdatedAt:     p.UpdatedAt,
	}
	if p.DiscountPrice != nil {
		product.DiscountPrice = decimal.NewNullDecimal(toDecimal(*p.DiscountPrice))
	}
	return product
}

func productFromDomain(p domain.Product) productDoc {
	doc := productDoc{
		ID:            p.ID,
		Name:          p.Name,
		Slug:          p.Slug,
		Description:   p.Description,
		Price:         fromDecimal(p.Price),
		StockQuantity: p.StockQuantity,
		IsAvailable:   p.IsAvailable,
		Images:        p.Images,
		UpdatedAt:     p.UpdatedAt,
	}
	if p.DiscountPrice.Valid {
		d := fromDecimal(p.DiscountPrice.Decimal)
		doc.DiscountPrice = &d
	}
	if p.Brand != nil {
		doc.BrandID = p.Brand.ID
	}
	if p.Category != nil {
		doc.CategoryID = p.Category.ID
	}
	if doc.Images == nil {
		doc.Images = []string{}
	}
	return doc
}

func (r cartLineRow) toDomain() domain.CartLine {
	return domain.CartLine{
		ID:        r.Item.ID,
		ProductID: r.Item.ProductID,
		Quantity:  r.Item.Quantity,
		Product:   r.Product.toDomain(),
	}
}

func (r favoriteRow) toDomain() domain.FavoriteEntry {
	product := r.Product.toDomain()
	if r.Brand != nil {
		product.Brand = &domain.Brand{ID: r.Brand.ID, Name: r.Brand.Name, Slug: r.Brand.Slug, Logo: r.Brand.Logo}
	}
	if r.Category != nil {
		product.Category = &domain.Category{ID: r.Category.ID, Name: r.Category.Name, Slug: r.Category.Slug, ParentID: r.Category.ParentID}
	}
	return domain.FavoriteEntry{
		ID:        r.Favorite.ID,
		UserID:    r.Favorite.UserID,
		ProductID: r.Favorite.ProductID,
		Product:   product,
		CreatedAt: r.Favorite.CreatedAt,
	}
}
