package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/gateway"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var _ gateway.Gateway = (*Store)(nil)

const productColumns = `p.id, p.name, p.slug, p.description, p.price, p.discount_price,
	p.stock_quantity, p.is_available, p.images, p.updated_at`

type productRow struct {
	id            string
	name          string
	slug          string
	description   sql.NullString
	price         decimal.Decimal
	discountPrice decimal.NullDecimal
	stockQuantity int
	isAvailable   bool
	images        string
	updatedAt     time.Time
}

func (r *productRow) dest() []any {
	return []any{
		&r.id, &r.name, &r.slug, &r.description, &r.price, &r.discountPrice,
		&r.stockQuantity, &r.isAvailable, &r.images, &r.updatedAt,
	}
}

func (r *productRow) toDomain() (domain.Product, error) {
	p := domain.Product{
		ID:            r.id,
		Name:          r.name,
		Slug:          r.slug,
		Description:   r.description.String,
		Price:         r.price,
		DiscountPrice: r.discountPrice,
		StockQuantity: r.stockQuantity,
		IsAvailable:   r.isAvailable,
		UpdatedAt:     r.updatedAt,
	}
	if err := json.Unmarshal([]byte(r.images), &p.Images); err != nil {
		return domain.Product{}, fmt.Errorf("failed to decode images of product %s: %w", r.id, err)
	}
	return p, nil
}

func (s *Store) ListCartLines(ctx context.Context, userID string) ([]domain.CartLine, error) {
	query := `
		SELECT c.id, c.product_id, c.quantity, ` + productColumns + `
		FROM cart_items c
		JOIN products p ON p.id = c.product_id
		WHERE c.user_id = $1
		ORDER BY c.created_at, c.id
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cart lines: %w", err)
	}
	defer rows.Close()

	lines := []domain.CartLine{}
	for rows.Next() {
		var l domain.CartLine
		var pr productRow
		dest := append([]any{&l.ID, &l.ProductID, &l.Quantity}, pr.dest()...)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan cart line: %w", err)
		}
		if l.Product, err = pr.toDomain(); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return lines, nil
}

func (s *Store) InsertCartLine(ctx context.Context, userID, productID string, quantity int) error {
	query := `INSERT INTO cart_items (id, user_id, product_id, quantity, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6)`

	now := s.now().UTC()
	_, err := s.db.ExecContext(ctx, query, uuid.New().String(), userID, productID, quantity, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return gateway.ErrDuplicateLine
		}
		return fmt.Errorf("insert cart line: %w", err)
	}
	return nil
}

func (s *Store) UpdateCartLineQuantity(ctx context.Context, userID, productID string, quantity int, modifiedAt time.Time) error {
	query := `UPDATE cart_items SET quantity = $1, updated_at = $2
	          WHERE user_id = $3 AND product_id = $4`

	if _, err := s.db.ExecContext(ctx, query, quantity, modifiedAt.UTC(), userID, productID); err != nil {
		return fmt.Errorf("update cart line quantity: %w", err)
	}
	return nil
}

func (s *Store) DeleteCartLine(ctx context.Context, userID, productID string) error {
	query := `DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`
	if _, err := s.db.ExecContext(ctx, query, userID, productID); err != nil {
		return fmt.Errorf("delete cart line: %w", err)
	}
	return nil
}

func (s *Store) DeleteAllCartLines(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete cart lines: %w", err)
	}
	return nil
}

func (s *Store) ListFavorites(ctx context.Context, userID string) ([]domain.FavoriteEntry, error) {
	query := `
		SELECT f.id, f.user_id, f.product_id, f.created_at, ` + productColumns + `,
			b.id, b.name, b.slug, b.logo,
			cat.id, cat.name, cat.slug, cat.parent_id
		FROM favorites f
		JOIN products p ON p.id = f.product_id
		LEFT JOIN brands b ON b.id = p.brand_id
		LEFT JOIN categories cat ON cat.id = p.category_id
		WHERE f.user_id = $1
		ORDER BY f.created_at, f.id
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query favorites: %w", err)
	}
	defer rows.Close()

	entries := []domain.FavoriteEntry{}
	for rows.Next() {
		var e domain.FavoriteEntry
		var pr productRow
		var brandID, brandName, brandSlug, brandLogo sql.NullString
		var catID, catName, catSlug, catParent sql.NullString

		dest := []any{&e.ID, &e.UserID, &e.ProductID, &e.CreatedAt}
		dest = append(dest, pr.dest()...)
		dest = append(dest, &brandID, &brandName, &brandSlug, &brandLogo, &catID, &catName, &catSlug, &catParent)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan favorite: %w", err)
		}

		if e.Product, err = pr.toDomain(); err != nil {
			return nil, err
		}
		if brandID.Valid {
			e.Product.Brand = &domain.Brand{ID: brandID.String, Name: brandName.String, Slug: brandSlug.String, Logo: brandLogo.String}
		}
		if catID.Valid {
			e.Product.Category = &domain.Category{ID: catID.String, Name: catName.String, Slug: catSlug.String, ParentID: catParent.String}
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return entries, nil
}

func (s *Store) InsertFavorite(ctx context.Context, userID, productID string) error {
	query := `INSERT INTO favorites (id, user_id, product_id, created_at)
	          VALUES ($1, $2, $3, $4)
	          ON CONFLICT (user_id, product_id) DO NOTHING`

	if _, err := s.db.ExecContext(ctx, query, uuid.New().String(), userID, productID, s.now().UTC()); err != nil {
		return fmt.Errorf("insert favorite: %w", err)
	}
	return nil
}

func (s *Store) DeleteFavorite(ctx context.Context, userID, productID string) error {
	query := `DELETE FROM favorites WHERE user_id = $1 AND product_id = $2`
	if _, err := s.db.ExecContext(ctx, query, userID, productID); err != nil {
		return fmt.Errorf("delete favorite: %w", err)
	}
	return nil
}
