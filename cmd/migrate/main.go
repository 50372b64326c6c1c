package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pratik-mahalle/gw2ledger/internal/config"
	"github.com/pratik-mahalle/gw2ledger/internal/repository/postgres"
	"github.com/pratik-mahalle/gw2ledger/migrations"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Connect to database
	db, err := postgres.New(cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	fmt.Printf("Connected to %s database successfully\n", cfg.Database.Driver)

	applied, err := postgres.RunMigrations(context.Background(), db, migrations.GetFS())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
		os.Exit(1)
	}

	if len(applied) == 0 {
		fmt.Println("Database is up to date")
		return
	}
	for _, name := range applied {
		fmt.Printf("✓ Applied %s\n", name)
	}
	fmt.Printf("\nApplied %d migration(s)\n", len(applied))
}
