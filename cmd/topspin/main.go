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

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/Skotchmaster/topspin/internal/cart"
	"github.com/Skotchmaster/topspin/internal/catalog"
	"github.com/Skotchmaster/topspin/internal/config"
	"github.com/Skotchmaster/topspin/internal/events"
	"github.com/Skotchmaster/topspin/internal/httpserver"
	"github.com/Skotchmaster/topspin/internal/logging"
	"github.com/Skotchmaster/topspin/internal/mocknet"
	"github.com/Skotchmaster/topspin/internal/search"
	"github.com/Skotchmaster/topspin/internal/session"
	"github.com/Skotchmaster/topspin/internal/storage"
)

// migrations run once per storage backend, in version order.
var migrations = []storage.Migration{
	{Version: 1, Up: func(ctx context.Context, s *storage.Store) error {
		_, err := s.Cleanup(ctx)
		return err
	}},
}

func main() {
	cfg := config.Load()
	config.MustNonEmptyBytes(cfg.SessionSecret, "SESSION_SECRET")

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("service_failed", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func run(cfg config.Config, l *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logging.IntoContext(ctx, l)

	backend, db, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	if db != nil {
		defer func() {
			if err := storage.Close(db); err != nil {
				l.Error("db_close_error", "error", err)
			}
		}()
	}

	kv := storage.New(backend, storage.WithPrefix(cfg.StoragePrefix), storage.WithMaxSize(cfg.StorageMaxBytes))
	applied, err := kv.Migrate(ctx, migrations)
	if err != nil {
		return fmt.Errorf("storage migrate: %w", err)
	}
	l.Info("storage_ready", "driver", cfg.StorageDriver, "migrations_applied", applied)

	gen := catalog.NewGenerator(cfg.CatalogSeed)
	cat := catalog.New(gen.Generate())
	l.Info("catalog_generated", "products", cat.Len(), "seed", cfg.CatalogSeed)

	searcher, err := openSearch(ctx, cfg, cat, l)
	if err != nil {
		return err
	}

	var producer events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		producer = events.NewProducer(cfg.KafkaBrokers)
		l.Info("kafka_enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.CartTopic)
	}
	defer func() {
		if err := producer.Close(); err != nil {
			l.Error("kafka_close_error", "error", err)
		}
	}()

	accounts := mocknet.NewAccounts(mocknet.New(cfg.MockMinDelay, cfg.MockMaxDelay, cfg.MockFailureRate))

	registry := session.NewRegistry(session.RegistryConfig{
		Catalog: cat,
		KV:      kv,
		Pricing: cart.Pricing{
			TaxRate:               cfg.TaxRate,
			FreeShippingThreshold: cfg.FreeShippingThreshold,
			ShippingFee:           cfg.ShippingFee,
		},
		PageSize:    cfg.PageSize,
		MaxSessions: cfg.SessionMax,
		IdleTTL:     cfg.SessionIdleTTL,
	})

	e := echo.New()
	e.HideBanner = true
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), httpserver.RequestLogger(l))

	var csrf echo.MiddlewareFunc
	if cfg.CSRFEnabled {
		csrf = httpserver.CSRF(cfg.CookieSecure)
	}

	httpserver.Register(e, &httpserver.Deps{
		ProductHandler: &httpserver.ProductHTTP{Catalog: cat, Searcher: searcher, PageSize: cfg.PageSize},
		CartHandler:    &httpserver.CartHTTP{Catalog: cat, Producer: producer, Topic: cfg.CartTopic, Remote: accounts},
		QueryHandler:   &httpserver.QueryHTTP{},
		Sessions:       &httpserver.SessionMiddleware{Secret: cfg.SessionSecret, Registry: registry, Secure: cfg.CookieSecure},
		CSRF:           csrf,
		Ready:          readiness(db),
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		l.Info("http_listen", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		l.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// openBackend picks the key-value backend. db is nil for the memory driver.
func openBackend(ctx context.Context, cfg config.Config) (storage.Backend, *gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)
	switch cfg.StorageDriver {
	case "memory", "":
		return storage.NewMemoryBackend(0), nil, nil
	case "sqlite":
		db, err = storage.OpenSQLite(cfg.SQLitePath)
	case "postgres":
		db, err = storage.OpenPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, nil, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}
	if err != nil {
		return nil, nil, err
	}

	repo, err := storage.NewGormRepo(db)
	if err != nil {
		_ = storage.Close(db)
		return nil, nil, err
	}
	return repo, db, nil
}

// openSearch indexes the catalog into Elasticsearch when ES_URL is set and
// falls back to in-memory search otherwise.
func openSearch(ctx context.Context, cfg config.Config, cat *catalog.Catalog, l *slog.Logger) (search.Searcher, error) {
	if cfg.ESURL == "" {
		l.Info("search_local")
		return search.Local{Catalog: cat}, nil
	}

	client, err := search.NewClient(search.Config{
		URL:      cfg.ESURL,
		User:     cfg.ESUser,
		Password: cfg.ESPassword,
		Index:    cfg.ESIndex,
	}, l)
	if err != nil {
		return nil, err
	}
	es := search.NewElastic(client, cfg.ESIndex)

	initCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := es.EnsureIndex(initCtx); err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(initCtx)
	products := cat.All()
	const batches = 4
	chunk := (len(products) + batches - 1) / batches
	for start := 0; start < len(products); start += chunk {
		part := products[start:min(start+chunk, len(products))]
		g.Go(func() error {
			n, err := es.IndexProducts(gctx, part)
			if err != nil {
				return err
			}
			l.Debug("es_batch_indexed", "count", n)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("index catalog: %w", err)
	}
	l.Info("es_catalog_indexed", "index", cfg.ESIndex, "products", len(products))
	return es, nil
}

func readiness(db *gorm.DB) func() error {
	if db == nil {
		return nil
	}
	return func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return sqlDB.PingContext(ctx)
	}
}
