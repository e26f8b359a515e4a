package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sunpath-tracker/backend/internal/api"
	"github.com/sunpath-tracker/backend/internal/config"
	"github.com/sunpath-tracker/backend/internal/dataset"
	"github.com/sunpath-tracker/backend/internal/eventloop"
	"github.com/sunpath-tracker/backend/internal/loader"
	"github.com/sunpath-tracker/backend/internal/logger"
	"github.com/sunpath-tracker/backend/internal/metrics"
	"github.com/sunpath-tracker/backend/internal/playback"
	"github.com/sunpath-tracker/backend/internal/storage"
	"github.com/sunpath-tracker/backend/internal/web"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "sunpath: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Get the executable's directory for config resolution
	exePath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}
	configPath := flag.String("config", filepath.Join(filepath.Dir(exePath), "sunpath.yaml"), "path to the YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Flush(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.New(reg)

	fileStore, err := storage.NewLocalStore(cfg.GetUploadDir())
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	series := dataset.New().Primary()
	settings := playback.NewSettings(cfg.PlaybackSettings(), cfg.ChartStyle())
	loop := eventloop.New(cfg.Loader.UIQueueSize, log.Named("ui"))
	hub := api.NewHub(log.Named("ws"))

	ldr := loader.New(ctx, series, loop,
		loader.WithLogger(log.Named("loader")),
		loader.WithMetrics(rec),
		loader.WithStartFunc(hub.LoadStarted),
		loader.WithMaxReportedErrors(cfg.Loader.MaxReportedErrors),
	)

	if cfg.Loader.InitialFile != "" {
		result := ldr.BulkLoad(cfg.Loader.InitialFile)
		if result.Err != nil {
			log.Warn("initial file not loaded", zap.String("path", cfg.Loader.InitialFile), zap.Error(result.Err))
		}
	}

	e := echo.New()
	api.SetupMiddleware(e, cfg, log.Named("http"))

	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		metricsHandler = rec.Handler()
	}
	handlers := api.NewHandlers(&api.Dependencies{
		Config:   cfg,
		Store:    fileStore,
		Loader:   ldr,
		Settings: settings,
		Series:   series,
		Hub:      hub,
		Metrics:  metricsHandler,
		Log:      log,
		Version:  Version,
	})
	api.RegisterRoutes(e, handlers, cfg.Metrics.Path)

	// Register embedded viewer if available
	if web.HasEmbeddedFiles() {
		if err := web.RegisterStaticRoutes(e); err != nil {
			log.Warn("failed to register static routes", zap.Error(err))
		}
	}

	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	log.Info("sun path tracker starting",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("config", *configPath),
		zap.String("listen", "http://"+cfg.GetServerAddr()),
		zap.String("data_dir", cfg.Storage.DataDirectory),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := loop.Run(gctx); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, eventloop.ErrClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := e.StartServer(s); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
		defer cancel()

		if err := ldr.Shutdown(shutdownCtx); err != nil {
			log.Warn("loader did not stop in time", zap.Error(err))
		}
		loop.Close()
		return e.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
