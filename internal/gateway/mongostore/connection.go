package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConnectOptions tunes the client pool. Zero values take the defaults.
type ConnectOptions struct {
	MaxPoolSize            uint64
	MinPoolSize            uint64
	ConnectTimeout         time.Duration
	ServerSelectionTimeout time.Duration
}

func (o ConnectOptions) withDefaults() ConnectOptions {
	if o.MaxPoolSize == 0 {
		o.MaxPoolSize = 100
	}
	if o.MinPoolSize > o.MaxPoolSize {
		o.MinPoolSize = o.MaxPoolSize
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = 10 * time.Second
	}
	if o.ServerSelectionTimeout <= 0 {
		o.ServerSelectionTimeout = 5 * time.Second
	}
	return o
}

func clientOptions(uri string, o ConnectOptions) *options.ClientOptions {
	o = o.withDefaults()
	return options.Client().
		ApplyURI(uri).
		SetAppName("storefront").
		SetConnectTimeout(o.ConnectTimeout).
		SetServerSelectionTimeout(o.ServerSelectionTimeout).
		SetMaxPoolSize(o.MaxPoolSize).
		SetMinPoolSize(o.MinPoolSize)
}

// Connect opens a client and pings it. The client is disconnected again if
// the ping fails.
func Connect(ctx context.Context, uri, database string, opts ConnectOptions) (*mongo.Database, error) {
	client, err := mongo.Connect(ctx, clientOptions(uri, opts))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client.Database(database), nil
}
