package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/atlekbai/query_forge/internal/compiler"
	"github.com/atlekbai/query_forge/internal/config"
	"github.com/atlekbai/query_forge/internal/edition"
	"github.com/atlekbai/query_forge/internal/fragment"
	"github.com/atlekbai/query_forge/internal/handler"
	"github.com/atlekbai/query_forge/internal/logging"
	"github.com/atlekbai/query_forge/internal/metrics"
	"github.com/atlekbai/query_forge/internal/middleware"
	"github.com/atlekbai/query_forge/internal/schema"
	"github.com/atlekbai/query_forge/internal/server"
	"github.com/atlekbai/query_forge/internal/service"
	"github.com/atlekbai/query_forge/internal/source"
	"github.com/atlekbai/query_forge/internal/store"
	"github.com/atlekbai/query_forge/internal/telemetry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTLPEndpoint, "queryforge")
	if err != nil {
		return err
	}
	defer shutdownTracing(context.Background())

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	catalog := schema.NewCatalog()
	loadTaxonomies := schema.PoolLoader(pool)
	if err := catalog.Load(ctx, loadTaxonomies); err != nil {
		return err
	}
	logger.Info("catalog loaded",
		zap.Int("taxonomies", catalog.TaxonomyCount()),
		zap.Duration("refresh", cfg.CatalogRefresh))

	decoder, err := schema.NewDecoder(cfg.SchemaCacheSize)
	if err != nil {
		return err
	}

	gate := edition.NewEnvGate()
	st := store.New(pool, cfg.TablePrefix)
	registry := fragment.NewRegistry(cfg.TablePrefix)
	m := metrics.New(registry.Len)

	remote := source.NewRemoteClient(
		source.WithTimeout(cfg.RemoteTimeout),
		source.WithMetrics(m),
		source.WithLogger(logger),
	)
	comp := compiler.New(compiler.Deps{
		Decoder:  decoder,
		Registry: registry,
		Router:   source.NewRouter(source.StoreBackends(st), remote, gate, logger),
		Gate:     gate,
		Metrics:  m,
		Log:      logger,
	})

	r := mux.NewRouter()
	handler.New(handler.Deps{
		Executor:   comp,
		Saved:      st,
		Fields:     st,
		Lookups:    st,
		Taxonomies: catalog,
		Log:        logger,
	}).Register(r)
	r.Handle("/metrics", m.Handler()).Methods(http.MethodGet)

	services := []server.ConnectService{
		service.NewQueryService(comp, st, catalog, logger),
	}
	for _, path := range server.Mount(r, services, server.LoggingInterceptor(logger)) {
		logger.Info("connect service mounted", zap.String("path", path))
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           middleware.Recovery(logger)(middleware.Logging(logger)(r)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.Addr()))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return catalog.Refresh(gctx, loadTaxonomies, cfg.CatalogRefresh, func(err error) {
			logger.Warn("catalog refresh failed", zap.Error(err))
		})
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
