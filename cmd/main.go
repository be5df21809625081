package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"tableside/internal/api"
	"tableside/internal/auth"
	"tableside/internal/config"
	"tableside/internal/database"
	"tableside/internal/monitoring"
	"tableside/internal/notify"
	"tableside/internal/ordering"
	"tableside/internal/telemetry"
)

var configFile = flag.String("config", "configs/config.yaml", "Path to configuration file")

// store is everything the service and the API need from persistence
type store interface {
	ordering.Store
	api.Database
	database.MenuSeeder
	io.Closer
}

func main() {
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Log.Level)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing := telemetry.Setup(ctx, cfg.Telemetry, logger)
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("tracing shutdown", "error", err)
		}
	}()

	loc, err := cfg.Server.Location()
	if err != nil {
		return err
	}

	st, err := openStore(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()
	logger.Info("store ready", "driver", cfg.Database.Driver)

	if err := seed(ctx, cfg, st, logger); err != nil {
		return err
	}

	sender, err := notify.New(cfg.Notify, logger)
	if err != nil {
		return fmt.Errorf("notifier: %w", err)
	}
	if closer, ok := sender.(io.Closer); ok {
		defer closer.Close()
	}

	pricer, err := ordering.NewPricer(cfg.Orders.Pricing, st)
	if err != nil {
		return err
	}

	metrics := monitoring.NewMetrics()
	board := api.NewBoard(logger, cfg.Server.AllowedOrigin)
	defer board.Close()

	svc := ordering.NewService(st, ordering.Options{
		Pricer:        pricer,
		Notifier:      sender,
		Events:        board,
		Metrics:       metrics,
		Logger:        logger,
		Location:      loc,
		NotifyTimeout: cfg.Notify.Timeout,
	})

	gin.SetMode(gin.ReleaseMode)
	server := api.NewServer(svc, st, auth.NewIssuer(cfg.Auth.JWTSecret), api.Options{
		Auth:    cfg.Auth,
		Orders:  cfg.Orders,
		Board:   board,
		Metrics: metrics,
		Logger:  logger,
	})

	apiServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      otelhttp.NewHandler(server.Router, "tableside-api"),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	metricsRouter := gin.New()
	metricsRouter.GET("/metrics", gin.WrapH(metrics.Handler()))
	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler: metricsRouter,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("api listening", "addr", apiServer.Addr)
		return serve(apiServer)
	})
	g.Go(func() error {
		logger.Info("metrics listening", "addr", metricsServer.Addr)
		return serve(metricsServer)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down servers")
		board.Close()

		sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return errors.Join(apiServer.Shutdown(sctx), metricsServer.Shutdown(sctx))
	})

	return g.Wait()
}

func serve(srv *http.Server) error {
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func openStore(ctx context.Context, cfg config.DatabaseConfig) (store, error) {
	if cfg.Driver == "mongo" {
		cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		return database.ConnectMongo(cctx, cfg.MongoURI, cfg.MongoDatabase)
	}

	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return database.NewGormStore(db), nil
}

func seed(ctx context.Context, cfg *config.Config, st store, logger *slog.Logger) error {
	if cfg.Database.SeedMenu {
		added, err := database.SeedMenu(ctx, st)
		if err != nil {
			return fmt.Errorf("seed menu: %w", err)
		}
		if added > 0 {
			logger.Info("menu seeded", "items", added)
		}
	}

	if cfg.Auth.AdminPhone == "" || cfg.Auth.AdminPassword == "" {
		return nil
	}
	hash, err := auth.HashPassword(cfg.Auth.AdminPassword)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	created, err := database.SeedAdmin(ctx, st, cfg.Auth.AdminName, cfg.Auth.AdminPhone, hash)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if created {
		logger.Info("admin account created", "phone", cfg.Auth.AdminPhone)
	}
	return nil
}
