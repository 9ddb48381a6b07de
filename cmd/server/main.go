// Package main is the entry point for the Staybook booking server.
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
	"strings"
	"syscall"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"github.com/staybook/backend/internal/api"
	"github.com/staybook/backend/internal/calendar"
	"github.com/staybook/backend/internal/config"
	"github.com/staybook/backend/internal/logging"
	"github.com/staybook/backend/internal/occupancy"
	"github.com/staybook/backend/internal/session"
	"github.com/staybook/backend/internal/storage"
	"github.com/staybook/backend/internal/storage/models"
	"github.com/staybook/backend/internal/websocket"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
// Defaults to "dev" when not provided.
var version = "dev"

func main() {
	configPath := flag.String("config", "", "Path to the YAML config file (default <data>/config.yaml)")
	addr := flag.String("addr", "", "HTTP server address (overrides config)")
	dataDir := flag.String("data", "", "Data directory for the SQLite database (overrides config)")
	staticDir := flag.String("static", "", "Directory for static frontend files (overrides config)")
	addUser := flag.String("add-user", "", "Create a user given as email:password and exit")
	healthCheck := flag.Bool("health-check", false, "Run health check and exit")
	flag.Parse()

	// Health check mode for Docker HEALTHCHECK
	if *healthCheck {
		listen := *addr
		if listen == "" {
			listen = config.DefaultConfig().Listen
		}
		if err := runHealthCheck(listen); err != nil {
			fmt.Fprintf(os.Stderr, "health check failed: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	cfg, err := loadConfig(*configPath, *dataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Listen = *addr
	}
	if *staticDir != "" {
		cfg.StaticDir = *staticDir
	}

	logger := logging.NewJSON(os.Stdout, cfg.LogLevel)

	// Allow overriding version via environment (e.g., injected by container build/runtime)
	if envVer := os.Getenv("VERSION"); envVer != "" {
		version = envVer
	}

	if err := run(cfg, logger, *addUser); err != nil {
		logger.Error(context.Background(), "server exited", "err", err)
		os.Exit(1)
	}
}

func loadConfig(path, dataDir string) (*config.Config, error) {
	if path == "" {
		dir := dataDir
		if dir == "" {
			dir = config.DefaultConfig().DataDir
		}
		path = filepath.Join(dir, "config.yaml")
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	return cfg, nil
}

func run(cfg *config.Config, logger logging.Logger, addUser string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info(ctx, "starting staybook", "version", version, "listen", cfg.Listen, "data_dir", cfg.DataDir)

	db, err := storage.NewDB(cfg.DBPath())
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if err := storage.RunMigrations(ctx, db, logger); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info(ctx, "database migrations complete")

	if addUser != "" {
		return createUser(ctx, db, addUser, logger)
	}

	hub := websocket.NewHub(logger.With("component", "websocket"))
	broadcaster := websocket.NewEventBroadcaster(hub, logger)

	fetcher := calendar.NewFetcher(cfg.Sync.FetchTimeout, cfg.Sync.ValidateTimeout, cfg.Sync.MaxFeedBytes)
	syncService := calendar.NewSyncService(
		db,
		fetcher,
		calendar.NewNormalizer(cfg.Sync.RecurrenceHorizonDays),
		calendar.NewReconciler(db, cfg.Sync.StalePolicy),
		broadcaster,
		logger.With("component", "sync"),
	)
	scheduler := calendar.NewScheduler(syncService, cfg.Sync.Interval, logger.With("component", "scheduler"))

	router := api.NewRouter(api.Services{
		Config:      cfg,
		DB:          db,
		Hub:         hub,
		Broadcaster: broadcaster,
		Sessions:    session.NewMemoryStore(),
		Syncer:      syncService,
		Scheduler:   scheduler,
		Occupancy:   occupancy.NewService(storage.NewReservationRepository(db), occupancy.ParseWeekStart(cfg.Calendar.WeekStart)),
		Validator:   fetcher,
		Logger:      logger.With("component", "http"),
	})

	server := &http.Server{
		Addr:         cfg.Listen,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Sync.FetchTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})

	g.Go(func() error {
		if err := scheduler.Start(gctx); err != nil {
			return fmt.Errorf("starting scheduler: %w", err)
		}
		<-gctx.Done()
		scheduler.Stop()
		return nil
	})

	g.Go(func() error {
		logger.Info(gctx, "server listening", "addr", cfg.Listen)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving http: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info(context.Background(), "shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	logger.Info(context.Background(), "server stopped")
	return err
}

// createUser adds a login from an "email:password" flag value.
func createUser(ctx context.Context, db *storage.DB, credentials string, logger logging.Logger) error {
	email, password, ok := strings.Cut(credentials, ":")
	email = strings.TrimSpace(email)
	if !ok || email == "" || password == "" {
		return errors.New("add-user expects email:password")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	u := &models.User{Email: email, PasswordHash: string(hash)}
	if err := storage.NewUserRepository(db).Create(ctx, u); err != nil {
		return err
	}
	logger.Info(ctx, "user created", "user_id", u.ID, "email", email)
	return nil
}

// runHealthCheck performs a health check against the running server.
func runHealthCheck(addr string) error {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get("http://" + addr + "/api/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}
