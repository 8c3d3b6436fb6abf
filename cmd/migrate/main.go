package main

import (
	"context"
	"flag"
	"log"
	"time"

	"content-entitlement/internal/config"
	pg "content-entitlement/internal/infra/db/postgres"
)

// Applies the embedded migrations and reports the resulting version.
func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := pg.Migrate(ctx, cfg.Database.URL); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	v, err := pg.MigrationVersion(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatalf("migration version: %v", err)
	}
	log.Printf("database at migration version %d", v)
}
