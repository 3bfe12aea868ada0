package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/condensedtea/turf-ratings/internal/catalog"
	"github.com/condensedtea/turf-ratings/internal/db"
	"github.com/condensedtea/turf-ratings/internal/http"
	"github.com/condensedtea/turf-ratings/internal/logging"
)

func main() {
	_ = godotenv.Load()

	logging.Setup(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	dbClient, err := db.NewClient(ctx, os.Getenv("DB_DSN"))
	if err != nil {
		log.Fatal(err)
	}
	defer dbClient.Close()

	server := http.NewServer(dbClient, catalog.Default())

	go func() {
		<-ctx.Done()
		slog.Info("shutting down")
		if err := server.Shutdown(); err != nil {
			slog.Error("failed to shut down server", "error", err)
		}
	}()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	slog.Info("serving leaderboards", "port", port)

	if err = server.Run(port); err != nil {
		log.Fatalf("failed to run server: %s", err)
	}
}
