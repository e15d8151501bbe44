package main

import (
	"context"
	"flag"
	"log"
	"time"

	"memorylens/internal/config"
	"memorylens/internal/database"
	"memorylens/internal/journal"
)

func main() {
	keep := flag.Duration("keep", 30*24*time.Hour, "keep journal entries that finished within this window")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}

	cutoff := time.Now().UTC().Add(-*keep)
	n, err := journal.NewRepository(db).Prune(context.Background(), cutoff)
	if err != nil {
		log.Fatalf("cleanup upload_journal failed: %v", err)
	}

	log.Printf("journal cleanup completed: upload_journal=%d before=%s", n, cutoff.Format(time.RFC3339))
}
