package mongostore

import (
	"context"
	"fmt"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/gateway"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	productsCollection   = "products"
	brandsCollection     = "brands"
	categoriesCollection = "categories"
	cartItemsCollection  = "cart_items"
	favoritesCollection  = "favorites"
)

type Gateway struct {
	db        *mongo.Database
	products  *mongo.Collection
	cartItems *mongo.Collection
	favorites *mongo.Collection
	now       func() time.Time
}

func NewGateway(db *mongo.Database) *Gateway {
	return &Gateway{
		db:        db,
		products:  db.Collection(productsCollection),
		cartItems: db.Collection(cartItemsCollection),
		favorites: db.Collection(favoritesCollection),
		now:       time.Now,
	}
}

var _ gateway.Gateway = (*Gateway)(nil)

func (g *Gateway) ListCartLines(ctx context.Context, userID string) ([]domain.CartLine, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"user_id": userID}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         productsCollection,
			"localField":   "product_id",
			"foreignField": "_id",
			"as":           "product",
		}}},
		// lines whose product was removed from the catalog are not shown
		{{Key: "$unwind", Value: "$product"}},
		{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}}},
	}

	cursor, err := g.cartItems.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart lines: %w", err)
	}

	var rows []cartLineRow
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode cart lines: %w", err)
	}

	lines := make([]domain.CartLine, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, r.toDomain())
	}
	return lines, nil
}

func (g *Gateway) InsertCartLine(ctx context.Context, userID, productID string, quantity int) error {
	now := g.now()
	doc := cartItemDoc{
		ID:        uuid.New().String(),
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := g.cartItems.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return gateway.ErrDuplicateLine
		}
		return fmt.Errorf("failed to insert cart line: %w", err)
	}
	return nil
}

func (g *Gateway) UpdateCartLineQuantity(ctx context.Context, userID, productID string, quantity int, modifiedAt time.Time) error {
	filter := bson.M{"user_id": userID, "product_id": productID}
	update := bson.M{
		"$set": bson.M{
			"quantity":   quantity,
			"updated_at": modifiedAt,
		},
	}

	if _, err := g.cartItems.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("failed to update cart line quantity: %w", err)
	}
	return nil
}

func (g *Gateway) DeleteCartLine(ctx context.Context, userID, productID string) error {
	filter := bson.M{"user_id": userID, "product_id": productID}
	if _, err := g.cartItems.DeleteOne(ctx, filter); err != nil {
		return fmt.Errorf("failed to delete cart line: %w", err)
	}
	return nil
}

func (g *Gateway) DeleteAllCartLines(ctx context.Context, userID string) error {
	if _, err := g.cartItems.DeleteMany(ctx, bson.M{"user_id": userID}); err != nil {
		return fmt.Errorf("failed to delete cart lines: %w", err)
	}
	return nil
}

func (g *Gateway) ListFavorites(ctx context.Context, userID string) ([]domain.FavoriteEntry, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"user_id": userID}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         productsCollection,
			"localField":   "product_id",
			"foreignField": "_id",
			"as":           "product",
		}}},
		{{Key: "$unwind", Value: "$product"}},
		{{Key: "$lookup", Value: bson.M{
			"from":         brandsCollection,
			"localField":   "product.brand_id",
			"foreignField": "_id",
			"as":           "brand",
		}}},
		{{Key: "$unwind", Value: bson.M{"path": "$brand", "preserveNullAndEmptyArrays": true}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         categoriesCollection,
			"localField":   "product.category_id",
			"foreignField": "_id",
			"as":           "category",
		}}},
		{{Key: "$unwind", Value: bson.M{"path": "$category", "preserveNullAndEmptyArrays": true}}},
		{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}}},
	}

	cursor, err := g.favorites.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}

	var rows []favoriteRow
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode favorites: %w", err)
	}

	entries := make([]domain.FavoriteEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, r.toDomain())
	}
	return entries, nil
}

func (g *Gateway) InsertFavorite(ctx context.Context, userID, productID string) error {
	filter := bson.M{"user_id": userID, "product_id": productID}
	update := bson.M{
		"$setOnInsert": bson.M{
			"_id":        uuid.New().String(),
			"user_id":    userID,
			"product_id": productID,
			"created_at": g.now(),
		},
	}
	opts := options.Update().SetUpsert(true)

	if _, err := g.favorites.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to insert favorite: %w", err)
	}
	return nil
}

func (g *Gateway) DeleteFavorite(ctx context.Context, userID, productID string) error {
	filter := bson.M{"user_id": userID, "product_id": productID}
	if _, err := g.favorites.DeleteOne(ctx, filter); err != nil {
		return fmt.Errorf("failed to delete favorite: %w", err)
	}
	return nil
}

// UpsertProduct writes a catalog record, together with its brand and
// category when present.
func (g *Gateway) UpsertProduct(ctx context.Context, p domain.Product) error {
	opts := options.Replace().SetUpsert(true)

	if p.Brand != nil {
		b := brandDoc{ID: p.Brand.ID, Name: p.Brand.Name, Slug: p.Brand.Slug, Logo: p.Brand.Logo}
		if _, err := g.db.Collection(brandsCollection).ReplaceOne(ctx, bson.M{"_id": b.ID}, b, opts); err != nil {
			return fmt.Errorf("failed to upsert brand: %w", err)
		}
	}
	if p.Category != nil {
		c := categoryDoc{ID: p.Category.ID, Name: p.Category.Name, Slug: p.Category.Slug, ParentID: p.Category.ParentID}
		if _, err := g.db.Collection(categoriesCollection).ReplaceOne(ctx, bson.M{"_id": c.ID}, c, opts); err != nil {
			return fmt.Errorf("failed to upsert category: %w", err)
		}
	}

	doc := productFromDomain(p)
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = g.now()
	}
	if _, err := g.products.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, opts); err != nil {
		return fmt.Errorf("failed to upsert product: %w", err)
	}
	return nil
}

func (g *Gateway) DeleteProduct(ctx context.Context, productID string) error {
	if _, err := g.products.DeleteOne(ctx, bson.M{"_id": productID}); err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return nil
}

// CreateIndexes enforces one cart line and one favorite per (user, product).
func (g *Gateway) CreateIndexes(ctx context.Context) error {
	pair := bson.D{{Key: "user_id", Value: 1}, {Key: "product_id", Value: 1}}

	_, err := g.cartItems.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: pair, Options: options.Index().SetUnique(true)},
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(90 * 24 * 60 * 60), // 90 days TTL
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create cart_items indexes: %w", err)
	}

	_, err = g.favorites.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    pair,
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create favorites indexes: %w", err)
	}
	return nil
}

func (g *Gateway) Close(ctx context.Context) error {
	return g.db.Client().Disconnect(ctx)
}
