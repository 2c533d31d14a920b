package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"

	"github.com/vitaliisemenov/streamrouter/internal/admin"
	"github.com/vitaliisemenov/streamrouter/internal/business/catalogue"
	"github.com/vitaliisemenov/streamrouter/internal/business/routing"
	"github.com/vitaliisemenov/streamrouter/internal/config"
	"github.com/vitaliisemenov/streamrouter/pkg/logger"
)

// newServeCommand builds the long-running router process: catalogue
// connection, Compiled Engine, background Updater, and the admin HTTP
// surface (spec.md §6.2). Grounded on the teacher's cmd/server/main.go
// for the connect-migrate-serve-graceful-shutdown shape, generalized
// from a fixed Postgres pool + http.ServeMux to a pluggable Catalogue +
// gorilla/mux admin router.
func newServeCommand() *cobra.Command {
	var devMode bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the stream router service",
		Long:  "Connects to the catalogue, starts the Engine Updater, and serves the admin HTTP surface (/healthz, /metrics, /testmatch).",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cfgFile, devMode)
		},
	}
	cmd.Flags().BoolVar(&devMode, "dev", false, "use an empty in-memory catalogue instead of connecting to Postgres")
	return cmd
}

func runServe(cfgPath string, devMode bool) error {
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if devMode {
		cfg.Catalogue.Backend = "memory"
	}

	log := logger.NewLogger(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		Filename:   cfg.Log.Filename,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	})
	slog.SetDefault(log)

	log.Info("starting streamrouter", "version", version, "catalogue_backend", cfg.Catalogue.Backend)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store routing.Catalogue
	switch cfg.Catalogue.Backend {
	case "postgres":
		pool, err := catalogue.Connect(ctx, cfg.Catalogue.Postgres, log)
		if err != nil {
			return fmt.Errorf("connect catalogue: %w", err)
		}
		defer pool.Close()

		if err := catalogue.RunMigrations(cfg.Catalogue.Postgres, log); err != nil {
			log.Warn("catalogue migrations failed, continuing with existing schema", "error", err)
		}
		store = catalogue.NewPostgresCatalogue(pool, log)
	default:
		store = catalogue.NewMemoryCatalogue(nil)
	}

	regexCache := routing.NewRegexCache(cfg.Router.RegexCacheSize)
	engineMetrics := routing.NewEngineMetrics()
	builder := routing.NewEngineBuilder(routing.BuildOptions{
		RegexCache: regexCache,
		Metrics:    engineMetrics,
		Logger:     log,
	})

	initial, err := builder.Build(nil)
	if err != nil {
		return fmt.Errorf("build initial engine: %w", err)
	}

	manager, err := routing.NewEngineManager(initial, builder)
	if err != nil {
		return fmt.Errorf("create engine manager: %w", err)
	}

	faults := routing.NewFaultManager(cfg.Router.StreamProcessingMaxFaults)

	updater := routing.NewUpdater(store, manager, cfg.Router.EngineRebuildPeriod, log)
	updater = updater.WithFaultManager(faults)

	if cfg.Cluster.FingerprintCache.Enabled {
		fpCacheCfg := routing.DefaultFingerprintCacheConfig()
		fpCacheCfg.Addr = cfg.Cluster.FingerprintCache.Addr
		fpCacheCfg.Password = cfg.Cluster.FingerprintCache.Password
		fpCacheCfg.DB = cfg.Cluster.FingerprintCache.DB
		fpCacheCfg.PoolSize = cfg.Cluster.FingerprintCache.PoolSize
		fpCacheCfg.DialTimeout = cfg.Cluster.FingerprintCache.DialTimeout
		fpCacheCfg.ReadTimeout = cfg.Cluster.FingerprintCache.ReadTimeout
		fpCacheCfg.WriteTimeout = cfg.Cluster.FingerprintCache.WriteTimeout

		fpCache, err := routing.NewFingerprintCache(fpCacheCfg, log)
		if err != nil {
			log.Warn("fingerprint cache unavailable, every replica will reload independently", "error", err)
		} else {
			defer fpCache.Close()
			manager = manager.WithFingerprintCache(fpCache)
			updater = updater.WithFingerprintCache(fpCache)
		}
	}

	harness := routing.NewTimeoutHarness(cfg.Router.TimeoutWorkers, cfg.Router.StreamProcessingTimeout)
	routerOpts := routing.DefaultRouterOptions()
	routerOpts.RecordingStrategy = routing.ParseRecordingStrategy(cfg.Router.DetailedMessageRecordingStrategy)
	router := routing.NewRouter(manager, faults, harness, routerOpts)

	if cfg.Cluster.CoordinationEnabled {
		coordCfg := routing.DefaultClusterCoordinatorConfig()
		coordCfg.Namespace = cfg.Cluster.Namespace
		coordCfg.LeaseName = cfg.Cluster.LeaseName
		coordinator, err := routing.NewClusterCoordinator(coordCfg, log)
		if err != nil {
			log.Warn("cluster coordination unavailable, running the updater unconditionally", "error", err)
			updater.Start(ctx)
		} else {
			go func() {
				if err := coordinator.Run(ctx, updater.Start, updater.Stop); err != nil {
					log.Error("cluster coordinator exited", "error", err)
				}
			}()
		}
	} else {
		updater.Start(ctx)
	}
	defer updater.Stop()

	admin.Version = version
	handlers := admin.NewHandlers(router, log)
	muxRouter := mux.NewRouter()
	handlers.RegisterRoutes(muxRouter)

	server := &http.Server{
		Addr:         cfg.Admin.Addr,
		Handler:      muxRouter,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("admin http server listening", "addr", cfg.Admin.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		log.Error("admin http server failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("admin http server forced shutdown", "error", err)
	}

	log.Info("streamrouter stopped")
	return nil
}
