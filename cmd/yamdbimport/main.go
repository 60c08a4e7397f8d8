// cmd/yamdbimport/main.go
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/MaxRadzey/api-yamdb/internal/config"
	"github.com/MaxRadzey/api-yamdb/internal/importer"
	"github.com/MaxRadzey/api-yamdb/internal/store"
)

func main() {
	dir := flag.String("dir", "static/data", "directory with category.csv, genre.csv, users.csv, titles.csv, genre_title.csv, review.csv, comments.csv")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx := context.Background()
	db, err := store.Open(ctx, cfg.Database.Driver, cfg.Database.URL, cfg.Database.MaxOpenConns, logger)
	if err != nil {
		os.Exit(1)
	}
	defer db.Close()

	if err := store.Migrate(ctx, db); err != nil {
		logger.Error("Failed to migrate database", slog.String("error", err.Error()))
		db.Close()
		os.Exit(1)
	}

	logger.Info("Importing CSV data", slog.String("dir", *dir))
	stats, err := importer.New(db, logger).Run(ctx, *dir)
	if err != nil {
		logger.Error("Import failed, nothing was written", slog.String("error", err.Error()))
		db.Close()
		os.Exit(1)
	}
	logger.Info("Import finished",
		slog.Int("categories", stats.Rows["categories"]),
		slog.Int("genres", stats.Rows["genres"]),
		slog.Int("users", stats.Rows["users"]),
		slog.Int("titles", stats.Rows["titles"]),
		slog.Int("reviews", stats.Rows["reviews"]),
		slog.Int("comments", stats.Rows["comments"]),
		slog.Int("ratings", stats.Ratings))
}
