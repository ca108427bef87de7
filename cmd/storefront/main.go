package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cwesi-djin/storefront-go/internal/account"
	"github.com/cwesi-djin/storefront-go/internal/cache"
	"github.com/cwesi-djin/storefront-go/internal/cart"
	"github.com/cwesi-djin/storefront-go/internal/catalog"
	"github.com/cwesi-djin/storefront-go/internal/checkout"
	"github.com/cwesi-djin/storefront-go/internal/config"
	"github.com/cwesi-djin/storefront-go/internal/db"
	"github.com/cwesi-djin/storefront-go/internal/events"
	httpapi "github.com/cwesi-djin/storefront-go/internal/http"
	"github.com/cwesi-djin/storefront-go/internal/logger"
	"github.com/cwesi-djin/storefront-go/internal/memstore"
	"github.com/cwesi-djin/storefront-go/internal/metrics"
	"github.com/cwesi-djin/storefront-go/internal/order"
	"github.com/cwesi-djin/storefront-go/internal/payment"
	"github.com/cwesi-djin/storefront-go/internal/postgres"
	"github.com/cwesi-djin/storefront-go/internal/review"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("storefront stopped", zap.Error(err))
	}
}

type stores struct {
	carts    cart.Store
	products catalog.Repository
	orders   order.Repository
	checkout checkout.Store
	accounts account.Repository
	payments payment.Repository
	reviews  review.Repository
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.NewDefault()
	var closers []func()
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}()

	var st stores
	switch cfg.StoreDriver {
	case config.DriverMemory:
		mem := memstore.New()
		st = stores{
			carts:    mem.Carts(),
			products: mem.Products(),
			orders:   mem.Orders(),
			checkout: mem.Checkout(),
			accounts: mem.Accounts(),
			payments: mem.Payments(),
			reviews:  mem.Reviews(),
		}
		log.Warn("using in-memory store, data is lost on restart")
	default:
		if cfg.RunMigrations {
			if err := db.RunMigrations(cfg.DatabaseDSN, log); err != nil {
				return err
			}
		}
		pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
		if err != nil {
			return err
		}
		closers = append(closers, pool.Close)
		st = stores{
			carts:    postgres.NewCartStore(pool),
			products: postgres.NewProductStore(pool),
			orders:   postgres.NewOrderStore(pool),
			checkout: postgres.NewCheckoutStore(pool),
			accounts: postgres.NewAccountStore(pool),
			payments: postgres.NewPaymentStore(pool),
			reviews:  postgres.NewReviewStore(pool),
		}
	}

	var viewCache cart.ViewCache = cache.Nop{}
	if cfg.CacheEnabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		closers = append(closers, func() { _ = rdb.Close() })
		rc := cache.NewRedisCache(rdb, cfg.CartCacheTTL)
		if err := rc.Ping(ctx); err != nil {
			log.Warn("redis unreachable, cart reads will go to the store until it recovers",
				zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		viewCache = rc
	}

	var publisher checkout.Publisher
	if cfg.EventsEnabled() {
		p, closePublisher, err := newPublisher(ctx, cfg)
		if err != nil {
			return err
		}
		closers = append(closers, closePublisher)
		publisher = p
	}

	carts := cart.NewService(st.carts, st.products, viewCache, m, log)
	products := catalog.NewService(st.products, log)
	products.Notify(carts)
	handler := httpapi.NewRouter(httpapi.Deps{
		Logger:         log,
		Metrics:        m,
		Carts:          carts,
		Checkout:       checkout.NewService(st.checkout, carts, publisher, m, log),
		Orders:         order.NewService(st.orders),
		Catalog:        products,
		Accounts:       account.NewService(st.accounts, log),
		Payments:       payment.NewService(st.payments, log),
		Reviews:        review.NewService(st.reviews, st.products),
		SessionCookie:  cfg.SessionCookie,
		AllowedOrigins: cfg.CORSAllowOrigins,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("storefront listening",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("store", cfg.StoreDriver),
			zap.Bool("cache", cfg.CacheEnabled()),
			zap.Bool("events", cfg.EventsEnabled()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// newPublisher dials RabbitMQ and opens the database/sql handle that backs
// event sequence numbers.
func newPublisher(ctx context.Context, cfg config.Config) (*events.Publisher, func(), error) {
	sqlDB, err := db.OpenSQL(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, nil, err
	}
	conn, err := events.Dial(cfg.RabbitMQURL)
	if err != nil {
		_ = sqlDB.Close()
		return nil, nil, err
	}
	p, err := events.NewPublisher(conn, events.NewSequenceRepository(sqlDB))
	if err != nil {
		_ = conn.Close()
		_ = sqlDB.Close()
		return nil, nil, err
	}
	closeAll := func() {
		_ = p.Close()
		_ = conn.Close()
		_ = sqlDB.Close()
	}
	return p, closeAll, nil
}
