package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"secretsanta/internal/config"
	"secretsanta/internal/handlers"
	"secretsanta/internal/services"
	"secretsanta/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// 1. Load configuration from .env, the environment and flags
	dotEnvErr := config.LoadDotEnv()
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}

	// 2. Initialize logging
	var logFile io.Writer = io.Discard
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			logger.Fatalf("Failed to open log file: %v", err)
		}
		defer f.Close()
		logFile = f
	}
	defer logger.Init("secretsanta", cfg.Verbose, false, logFile).Close()
	if dotEnvErr != nil {
		logger.Warningf("%v", dotEnvErr)
	}

	// 3. Open the external draw store, falling back to memory only
	var primary storage.Store
	if cfg.StoreDriver != storage.DriverMemory {
		primary = openStore(cfg.StoreDriver, cfg.StoreDSN)
	}

	// 4. Initialize the draw registry and service
	registry := storage.NewRegistry(primary, storage.NewMemoryStore(), storage.WithTTL(cfg.DrawTTL))
	if !registry.Durable() {
		logger.Warningf("Draws are kept in memory only and are lost on restart.")
	}
	drawService := services.NewDrawService(registry, nil)

	// 5. Start the background janitor to remove expired draws
	sched, err := drawService.StartJanitor(cfg.SweepInterval)
	if err != nil {
		logger.Fatalf("Failed to start janitor: %v", err)
	}

	// 6. Initialize the HTTP handler and router
	gin.SetMode(gin.ReleaseMode)
	router := handlers.NewRouter(handlers.NewHTTPHandler(drawService, cfg.BaseURL))

	// 7. Run the server until interrupted
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Infof("Server starting on http://localhost%s", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("Failed to run server: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Infof("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server shutdown failed: %v", err)
	}
	if err := sched.Shutdown(); err != nil {
		logger.Errorf("Janitor shutdown failed: %v", err)
	}
}

// openStore returns nil when the store cannot be reached so the service can
// keep running on memory.
func openStore(driver, dsn string) storage.Store {
	db, err := storage.OpenSQL(driver, dsn)
	if err != nil {
		logger.Warningf("Could not open %s store, using memory only: %v", driver, err)
		return nil
	}
	store, err := storage.NewSQLStore(db)
	if err != nil {
		logger.Warningf("Could not prepare %s store, using memory only: %v", driver, err)
		return nil
	}
	logger.Infof("Using %s draw store.", driver)
	return store
}
