package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"backoffice-service/config"
	"backoffice-service/internal/store"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: migrate [up | down N | version]")
	}
	flag.Parse()

	cfg := config.Load()
	url := cfg.Database.URL

	switch flag.Arg(0) {
	case "", "up":
		if err := store.Migrate(url); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Println("Migrations applied")
	case "down":
		steps := 1
		if arg := flag.Arg(1); arg != "" {
			n, err := strconv.Atoi(arg)
			if err != nil || n <= 0 {
				log.Fatalf("Invalid step count %q", arg)
			}
			steps = n
		}
		if err := store.Rollback(url, steps); err != nil {
			log.Fatalf("Rollback failed: %v", err)
		}
		log.Printf("Rolled back %d migration(s)", steps)
	case "version":
		version, dirty, err := store.MigrationVersion(url)
		if err != nil {
			log.Fatalf("Failed to read version: %v", err)
		}
		log.Printf("Schema version %d (dirty=%t)", version, dirty)
	default:
		flag.Usage()
		os.Exit(2)
	}
}
