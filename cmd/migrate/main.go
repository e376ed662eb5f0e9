package main

import (
	"flag"

	"github.com/joho/godotenv"
	"github.com/rensmac/go-api-starter/internal/config"
	"github.com/rensmac/go-api-starter/internal/repository/postgres"
	"github.com/rs/zerolog/log"
)

func main() {
	source := flag.String("source", "file://migrations", "migration source URL")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().
		Str("host", cfg.Database.Host).
		Int("port", cfg.Database.Port).
		Str("database", cfg.Database.Database).
		Msg("Applying migrations")

	if err := postgres.RunMigrations(cfg.Database.DSN(), *source); err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}
}
