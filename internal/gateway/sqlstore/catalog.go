package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/fjod/storefront/internal/domain"
)

// UpsertProduct writes a catalog record, together with its brand and
// category when present.
func (s *Store) UpsertProduct(ctx context.Context, p domain.Product) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var brandID, categoryID sql.NullString
	if p.Brand != nil {
		brandID = sql.NullString{String: p.Brand.ID, Valid: true}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO brands (id, name, slug, logo) VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE SET name = excluded.name, slug = excluded.slug, logo = excluded.logo`,
			p.Brand.ID, p.Brand.Name, p.Brand.Slug, nullString(p.Brand.Logo))
		if err != nil {
			return fmt.Errorf("upsert brand: %w", err)
		}
	}
	if p.Category != nil {
		categoryID = sql.NullString{String: p.Category.ID, Valid: true}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO categories (id, name, slug, parent_id) VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE SET name = excluded.name, slug = excluded.slug, parent_id = excluded.parent_id`,
			p.Category.ID, p.Category.Name, p.Category.Slug, nullString(p.Category.ParentID))
		if err != nil {
			return fmt.Errorf("upsert category: %w", err)
		}
	}

	images := p.Images
	if images == nil {
		images = []string{}
	}
	imagesJSON, err := json.Marshal(images)
	if err != nil {
		return fmt.Errorf("failed to marshal product images: %w", err)
	}

	updatedAt := p.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = s.now()
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO products (id, name, slug, description, price, discount_price, stock_quantity,
			is_available, images, brand_id, category_id, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name, slug = excluded.slug, description = excluded.description,
			price = excluded.price, discount_price = excluded.discount_price,
			stock_quantity = excluded.stock_quantity, is_available = excluded.is_available,
			images = excluded.images, brand_id = excluded.brand_id,
			category_id = excluded.category_id, updated_at = excluded.updated_at`,
		p.ID, p.Name, p.Slug, nullString(p.Description), p.Price.String(), p.DiscountPrice,
		p.StockQuantity, p.IsAvailable, string(imagesJSON), brandID, categoryID, updatedAt.UTC())
	if err != nil {
		return fmt.Errorf("upsert product: %w", err)
	}

	return tx.Commit()
}

func (s *Store) DeleteProduct(ctx context.Context, productID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, productID); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return nil
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
