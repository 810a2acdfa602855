package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rzpsarthak13/rowmap/pkg/rowmap"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML or JSON config file (default: sqlite blog.db)")
	addr := flag.String("addr", ":8080", "HTTP listen address")
	flag.Parse()

	// 1. Configure rowmap
	config, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Open the client (ROWMAP_* environment variables override the file)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := rowmap.Open(ctx, config)
	if err != nil {
		log.Fatalf("Failed to open rowmap client: %v", err)
	}
	defer client.Close()

	srv := newServer(client)
	if err := srv.migrate(ctx); err != nil {
		log.Fatalf("Failed to create tables: %v", err)
	}

	// 3. Log every persisted change through the journal, if one is configured
	if client.Journal() != nil {
		srv.drainer, err = client.Drainer(func(ctx context.Context, event *rowmap.ChangeEvent) error {
			log.Printf("[CHANGE] %s %s %v (rows: %d)", event.Operation, event.Table, event.Key, event.Affected)
			return nil
		})
		if err != nil {
			log.Fatalf("Failed to create drainer: %v", err)
		}
		srv.drainer.Start(ctx)
		defer srv.drainer.Stop()
	}

	log.Println("")
	log.Println("╔════════════════════════════════════════════════════════════╗")
	log.Println("║                     ROWMAP BLOG SERVER                     ║")
	log.Println("╠════════════════════════════════════════════════════════════╣")
	log.Println("║  API Endpoints:                                            ║")
	log.Println("║    GET    /api/users?page=N         - List users           ║")
	log.Println("║    POST   /api/users                - Register a user      ║")
	log.Println("║    GET    /api/blogs?page=N         - List blogs           ║")
	log.Println("║    POST   /api/blogs                - Create/update a blog ║")
	log.Println("║    GET    /api/blogs/{id}           - Get a blog           ║")
	log.Println("║    POST   /api/blogs/{id}/delete    - Delete a blog        ║")
	log.Println("║    GET    /api/blogs/{id}/comments  - Comments of a blog   ║")
	log.Println("║    POST   /api/blogs/{id}/comments  - Comment on a blog    ║")
	log.Println("║    GET    /api/comments?page=N      - List comments        ║")
	log.Println("║    POST   /api/comments/{id}/delete - Delete a comment     ║")
	log.Println("║    GET    /health                   - Health check         ║")
	log.Println("╠════════════════════════════════════════════════════════════╣")
	log.Printf("║  Dialect: %-48s ║\n", client.Dialect())
	log.Printf("║  Journal: %-48s ║\n", journalType(config))
	log.Println("╚════════════════════════════════════════════════════════════╝")
	log.Println("")

	// 4. Serve until SIGINT/SIGTERM
	httpServer := &http.Server{
		Addr:              *addr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Printf("Starting HTTP server on %s", *addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Received shutdown signal...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown failed: %v", err)
	}
}

func loadConfig(path string) (*rowmap.Config, error) {
	if path != "" {
		return rowmap.LoadConfig(path)
	}
	config := rowmap.DefaultConfig()
	config.Database.Driver = "sqlite"
	config.Database.Database = "blog.db"
	config.Database.MaxSize = 4
	config.Journal.Type = "memory"
	return config, nil
}

func journalType(config *rowmap.Config) string {
	if config.Journal.Type == "" {
		return "disabled"
	}
	return config.Journal.Type
}
