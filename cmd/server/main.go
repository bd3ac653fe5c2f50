// Path: cmd/server/main.go
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"recipe-finder/internal/client"
	"recipe-finder/internal/config"
	"recipe-finder/internal/delivery/rest"
	"recipe-finder/internal/delivery/ui"
	"recipe-finder/internal/domain"
	"recipe-finder/internal/service"
	"recipe-finder/internal/storage"
	"recipe-finder/internal/upstream"
)

func main() {
	// 1. Load Configuration
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("Could not read .env file", "error", err)
	}
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	log := newLogger(cfg.Log.Level)

	// 2. Setup Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Open the preferences store
	kv, closeStore, err := openStore(ctx, cfg.Store, log)
	if err != nil {
		log.Error("Failed to open preferences store", "driver", cfg.Store.Driver, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	// 4. Initialize Components
	log.Info("Initializing components...")
	provider := upstream.NewClient(cfg.Upstream, log)
	if !provider.HasCredential() {
		log.Warn("Upstream credential not set; proxy requests will fail", "credential", provider.CredentialName())
	}
	proxy := rest.NewProxyHandlers(provider, log)
	fetcher := client.NewAdapter(cfg.Client.ProxyURL, time.Duration(cfg.Client.FetchTimeoutSecs)*time.Second, log)

	// 5. Initialize the page registry; each page load gets its own service
	pages := service.NewSessions(ctx, cfg.Client, kv, fetcher, log)

	// 6. Start the HTTP server; pages fetch through it
	apiServer := rest.NewServer(cfg.Server, proxy, log, ui.NewHandlers(pages, log))
	go func() {
		log.Info("API server starting", "port", cfg.Server.Port)
		if err := apiServer.Start(); err != nil && err != http.ErrServerClosed {
			log.Error("API server failed", "error", err)
			cancel()
		}
	}()

	// 7. Reap idle pages in the background
	go pages.Run(ctx)

	// 8. Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
		log.Info("Shutdown signal received. Shutting down gracefully...")
	case <-ctx.Done():
	}

	cancel()
	pages.StopAll()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := apiServer.Stop(shutdownCtx); err != nil {
		log.Error("Error during API server shutdown", "error", err)
	}

	log.Info("Server shut down successfully.")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// openStore selects the preferences backend named by cfg.Driver.
func openStore(ctx context.Context, cfg config.StoreConfig, log *slog.Logger) (domain.KeyValueStore, func(), error) {
	switch cfg.Driver {
	case "mongo":
		log.Info("Connecting to MongoDB...", "uri", cfg.URI)
		mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
		if err != nil {
			return nil, nil, err
		}
		if err := mongoClient.Ping(ctx, nil); err != nil {
			mongoClient.Disconnect(ctx)
			return nil, nil, err
		}
		db := mongoClient.Database(cfg.Database)
		return storage.NewMongoKV(db, cfg.Collection), func() { mongoClient.Disconnect(context.Background()) }, nil
	case "memory":
		return storage.NewMemoryKV(), func() {}, nil
	default:
		kv, err := storage.NewFileKV(cfg.Path)
		if err != nil {
			// The store is still usable; unreadable content counts as empty.
			log.Warn("Preferences file unreadable, starting with defaults", "path", cfg.Path, "error", err)
		}
		return kv, func() {}, nil
	}
}
