package main

import (
	"log"

	"examgate.org/internal/config"
	"examgate.org/internal/migrate"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.PGDSN == "" {
		log.Fatal("EXAMGATE_PG_DSN is required")
	}
	if err := migrate.Up(cfg.PGDSN, cfg.MigrationsDir); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	log.Println("migrations applied")
}
