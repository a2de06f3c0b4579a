package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/storefront/internal/config"
	"github.com/fjod/storefront/internal/gateway"
	"github.com/fjod/storefront/internal/gateway/mongostore"
	"github.com/fjod/storefront/internal/gateway/sqlstore"
	h "github.com/fjod/storefront/internal/http"
	"github.com/fjod/storefront/internal/logger"
	"github.com/fjod/storefront/internal/poller"
	"github.com/fjod/storefront/internal/service"
	"github.com/fjod/storefront/internal/session"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	if err := run(); err != nil {
		slog.Error("storefront exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.New(logger.Config{
		Environment: cfg.Environment,
		Level:       logger.ParseLevel(cfg.LogLevel),
	})
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	remote, err := openGateway(ctx, cfg, log)
	if err != nil {
		return err
	}
	gw := gateway.NewBreaker(remote, gateway.BreakerSettings{
		Name:        "remote-gateway",
		MaxFailures: cfg.BreakerMaxFailures,
		OpenTimeout: cfg.BreakerOpenTimeout,
	})
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := gw.Close(closeCtx); err != nil {
			log.Error("failed to close gateway", "error", err)
		}
	}()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis connection failed: %w", err)
	}
	log.Info("redis ping succeeded", "addr", cfg.RedisAddr)

	sessions := session.NewProvider(session.NewRedisStore(redisClient, cfg.SessionTTL), log)

	failures := service.NewRecentFailures(20)
	opts := []service.Option{
		service.WithLogger(log),
		service.WithNotifier(service.MultiNotifier{service.LogNotifier{Logger: log}, failures}),
	}
	cart := service.NewCartSynchronizer(gw, sessions, opts...)
	favorites := service.NewFavoritesSynchronizer(gw, sessions, opts...)
	unsubscribe := service.Wire(sessions, log, cart, favorites)
	defer unsubscribe()

	if _, err := sessions.Restore(ctx, cfg.SessionToken); err != nil {
		log.Warn("failed to restore session", "error", err)
	}

	if len(cfg.KafkaBrokers) > 0 {
		p := poller.NewCheckoutPoller(poller.Config{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.CheckoutTopic,
			GroupID: cfg.ConsumerGroup,
		}, cart, sessions, log)
		defer p.Close()
		go p.Run(ctx)
		log.Info("checkout poller started", "topic", cfg.CheckoutTopic)
	}

	router := h.NewRouter(h.Handlers{
		Session:   h.NewSessionHandler(sessions, cfg.RequestTimeout, log),
		Cart:      h.NewCartHandler(cart, cfg.RequestTimeout),
		Favorites: h.NewFavoritesHandler(favorites, cfg.RequestTimeout),
		Failures:  failures,
	}, log, cfg.RequestTimeout)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(router, "storefront"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("storefront starting", "port", cfg.HTTPPort, "driver", cfg.GatewayDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("server exited")
	return nil
}

func openGateway(ctx context.Context, cfg *config.Config, log *slog.Logger) (gateway.Gateway, error) {
	switch cfg.GatewayDriver {
	case config.DriverSQLite, config.DriverPostgres:
		dialect := sqlstore.DialectSQLite
		if cfg.GatewayDriver == config.DriverPostgres {
			dialect = sqlstore.DialectPostgres
		}
		store, err := sqlstore.Open(dialect, cfg.SQLDSN)
		if err != nil {
			return nil, err
		}
		if err := store.RunMigrations(); err != nil {
			store.Close(ctx)
			return nil, err
		}
		log.Info("connected to SQL store", "dialect", cfg.GatewayDriver)
		return store, nil
	default:
		db, err := mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDBName, mongostore.ConnectOptions{
			MaxPoolSize:    cfg.MongoMaxPoolSize,
			MinPoolSize:    cfg.MongoMinPoolSize,
			ConnectTimeout: cfg.MongoConnectTimeout,
		})
		if err != nil {
			return nil, err
		}
		gw := mongostore.NewGateway(db)
		if err := gw.CreateIndexes(ctx); err != nil {
			gw.Close(ctx)
			return nil, err
		}
		log.Info("connected to MongoDB", "uri", cfg.MongoURI, "database", cfg.MongoDBName)
		return gw, nil
	}
}
