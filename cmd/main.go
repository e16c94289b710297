package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"pantry/internal/catalog"
	"pantry/internal/config"
	"pantry/internal/domain"
	"pantry/internal/events"
	httpapi "pantry/internal/http"
	"pantry/internal/observability"
	"pantry/internal/repository"
	"pantry/internal/service"

	_ "pantry/docs"
)

// @title Pantry API
// @version 0.3.0
// @description Per-user kitchen inventory grouped by category and subcategory, with barcode lookup.
// @host localhost:9091
// @BasePath /
func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// подменяется в тестах
var setupTracing = observability.SetupTracing

func newApp() *cli.App {
	return &cli.App{
		Name:    config.ServiceName,
		Usage:   "kitchen inventory service",
		Version: config.ServiceVersion,
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "run the HTTP API",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "addr", Usage: "listen address, overrides PANTRY_HTTP_ADDR"},
				},
				Action: serve,
			},
			{
				Name:      "lookup",
				Usage:     "resolve a barcode into an add-item draft",
				ArgsUsage: "<barcode>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "category", Value: string(domain.CategoryVeg)},
					&cli.StringFlag{Name: "subcategory", Value: string(domain.SubVegetables)},
				},
				Action: lookup,
			},
			{
				Name:  "categories",
				Usage: "print the category taxonomy",
				Action: func(c *cli.Context) error {
					return printCategories(c.App.Writer)
				},
			},
		},
	}
}

func serve(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if addr := c.String("addr"); addr != "" {
		cfg.HTTPAddr = addr
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx := c.Context
	tracer, shutdownTracing, err := setupTracing(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			logger.Error("tracer shutdown error", zap.Error(err))
		}
	}()

	store, closeStore, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	resolver, err := buildCatalog(cfg)
	if err != nil {
		return err
	}

	publisher := newPublisher(cfg, logger)
	defer publisher.Close()

	var opts []service.Option
	if cfg.FutureExpiryOnly {
		opts = append(opts, service.WithFutureExpiryOnly())
	}
	svc := service.NewInventoryService(store, resolver, publisher, logger, tracer, opts...)
	srv := httpapi.NewServer(svc, logger)

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: srv.Handler(),
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", httpServer.Addr), zap.String("storage", cfg.StorageDriver))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-serveErr:
		// store, publisher and tracer are released by the defers above
		logger.Error("server error", zap.Error(err))
		return fmt.Errorf("http server: %w", err)
	case <-quit:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
	logger.Info("HTTP server shutdown complete")
	return nil
}

func lookup(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: pantry lookup <barcode>", 2)
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	resolver, err := buildCatalog(cfg)
	if err != nil {
		return err
	}
	svc := service.NewInventoryService(repository.NewMemoryStore(), resolver, nil, zap.NewNop(), nil)
	flow := service.NewAddItemFlow(svc, domain.Category(c.String("category")), domain.Subcategory(c.String("subcategory")))

	state, err := flow.Scan(c.Context, c.Args().First())
	if err != nil {
		return err
	}
	draft, cat, sub := flow.Draft()
	out := struct {
		State       string             `json:"state"`
		Category    domain.Category    `json:"category"`
		Subcategory domain.Subcategory `json:"subcategory"`
		Draft       domain.Draft       `json:"draft"`
	}{state.String(), cat, sub, draft}

	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func printCategories(w io.Writer) error {
	for _, g := range domain.Taxonomy() {
		if _, err := fmt.Fprintln(w, g.Category); err != nil {
			return err
		}
		for _, s := range g.Subcategories {
			if _, err := fmt.Fprintf(w, "  %s\n", s); err != nil {
				return err
			}
		}
	}
	return nil
}

func openStore(cfg *config.Config, logger *zap.Logger) (repository.ItemRepository, func(), error) {
	switch cfg.StorageDriver {
	case config.DriverSQLite:
		s, err := repository.OpenSQLite(repository.SQLiteConfig{
			Path:     cfg.SQLitePath,
			PoolSize: cfg.SQLitePoolSize,
			Logger:   logger,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, func() {
			if err := s.Close(); err != nil {
				logger.Error("close sqlite store", zap.Error(err))
			}
		}, nil
	default:
		return repository.NewMemoryStore(), func() {}, nil
	}
}

func buildCatalog(cfg *config.Config) (catalog.Resolver, error) {
	var base catalog.Resolver = catalog.Default()
	if cfg.CatalogFile != "" {
		s, err := catalog.LoadFile(cfg.CatalogFile)
		if err != nil {
			return nil, err
		}
		base = s
	}
	if cfg.CatalogCacheTTL > 0 {
		return catalog.NewCached(base, cfg.CatalogCacheSize, cfg.CatalogCacheTTL), nil
	}
	return base, nil
}

func newPublisher(cfg *config.Config, logger *zap.Logger) events.Publisher {
	if cfg.KafkaBroker == "" {
		return events.Nop{}
	}
	logger.Info("publishing item events", zap.String("broker", cfg.KafkaBroker), zap.String("topic", cfg.KafkaTopic))
	return events.NewKafkaPublisher(events.NewKafkaWriter(cfg.KafkaBroker, cfg.KafkaTopic))
}
