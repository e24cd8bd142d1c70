// Command migrate applies or rolls back the schema revision chain.
//
//	migrate up [revision|head]
//	migrate down <revision|base>
//	migrate current
//	migrate history
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/Arize-ai/phoenix-sub001/internal/db"
	"github.com/Arize-ai/phoenix-sub001/internal/logger"
	"github.com/Arize-ai/phoenix-sub001/internal/migrations"
)

func main() {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "production"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if len(os.Args) < 2 {
		usage()
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL must be set")
		os.Exit(1)
	}
	dbService, err := db.New(db.Config{
		URL:    dbURL,
		Schema: os.Getenv("DATABASE_SCHEMA"),
	}, log)
	if err != nil {
		log.Fatal("database init failed", "error", err)
	}

	ctx := context.Background()
	engine := migrations.NewEngine(dbService, log)

	switch os.Args[1] {
	case "up":
		target := migrations.Head
		if len(os.Args) > 2 {
			target = os.Args[2]
		}
		if err := engine.Upgrade(ctx, target); err != nil {
			log.Fatal("upgrade failed", "error", err)
		}
	case "down":
		if len(os.Args) < 3 {
			usage()
		}
		if err := engine.Downgrade(ctx, os.Args[2]); err != nil {
			log.Fatal("downgrade failed", "error", err)
		}
	case "current":
		current, err := engine.Current(ctx)
		if err != nil {
			log.Fatal("could not read version", "error", err)
		}
		fmt.Println(current)
	case "history":
		current, err := engine.Current(ctx)
		if err != nil {
			log.Fatal("could not read version", "error", err)
		}
		for _, rev := range engine.Revisions() {
			marker := "  "
			if rev.ID == current {
				marker = "* "
			}
			fmt.Printf("%s%s  %s\n", marker, rev.ID, rev.Name)
		}
	default:
		usage()
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: migrate up [revision|head] | down <revision|base> | current | history")
	os.Exit(1)
}
