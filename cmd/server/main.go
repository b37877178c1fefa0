/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the perks redemption engine. Handles configuration,
  dependency wiring, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration from environment variables
  2. Initialize the usage store (memory, sqlite, or postgres)
  3. Build the authorization engine, evaluator, and coordinator
  4. Configure the HTTP router
  5. Start the server with graceful shutdown

CONFIGURATION (environment):
  SERVER_HOST / SERVER_PORT          Listen address (default 0.0.0.0:8080)
  SERVER_READ_TIMEOUT / SERVER_WRITE_TIMEOUT  Seconds (default 15)
  STORE_BACKEND                      memory | sqlite | postgres (default sqlite)
  STORE_SQLITE_PATH                  SQLite file, ":memory:" for throwaway
  STORE_POSTGRES_DSN                 Required for the postgres backend
  APP_ENVIRONMENT                    development | production

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close the store
  4. Exit

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Environment schema
*/
package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/perks-engine/api"
	"github.com/warp/perks-engine/authz"
	"github.com/warp/perks-engine/config"
	"github.com/warp/perks-engine/discount"
	"github.com/warp/perks-engine/eligibility"
	"github.com/warp/perks-engine/redemption"
	"github.com/warp/perks-engine/store/postgres"
	"github.com/warp/perks-engine/store/sqlite"
	"github.com/warp/perks-engine/usage"
	memstore "github.com/warp/perks-engine/usage/store"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Printf("Starting perks engine in %s mode (%s store)", cfg.App.Environment, cfg.Store.Backend)

	store, closer, err := newStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize usage store: %v", err)
	}
	if closer != nil {
		defer func() {
			if err := closer.Close(); err != nil {
				log.Printf("Error closing store: %v", err)
			}
		}()
	}

	engine := authz.NewEngine()
	evaluator := eligibility.NewEvaluator(store)
	coordinator := redemption.NewCoordinator(engine, evaluator, discount.NewGenerator(), store)
	handler := api.NewHandler(engine, evaluator, coordinator, store, cfg.App.IsProduction())

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      api.NewRouter(handler),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on http://%s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// newStore builds the configured usage store. The returned closer is nil for
// the memory backend.
func newStore(ctx context.Context, cfg *config.Config) (usage.Store, io.Closer, error) {
	switch cfg.Store.Backend {
	case "memory":
		return memstore.NewMemory(), nil, nil
	case "sqlite":
		s, err := sqlite.New(cfg.Store.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case "postgres":
		opts := postgres.DefaultOptions
		opts.MaxOpenConns = cfg.Store.PostgresMax
		opts.MaxIdleConns = cfg.Store.PostgresIdle
		s, err := postgres.New(ctx, cfg.Store.PostgresDSN, opts)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	}
	// config.Load validated the backend already.
	return memstore.NewMemory(), nil, nil
}
