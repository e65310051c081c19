// Command migrate applies or rolls back the database schema.
//
// Usage:
//
//	migrate up    apply all pending migrations
//	migrate down  roll back the most recent migration
package main

import (
	"context"
	"os"
	"time"

	"SynthLedger/internal/observability"
	"SynthLedger/internal/store"
)

func main() {
	log := observability.NewLogger("migrate")

	if len(os.Args) < 2 {
		log.Fatal().Msg("usage: migrate [up|down]")
	}
	direction := os.Args[1]

	dsn := os.Getenv("SYNTH_POSTGRES_DSN")
	if dsn == "" {
		log.Fatal().Msg("SYNTH_POSTGRES_DSN is required")
	}
	dir := os.Getenv("SYNTH_MIGRATIONS_DIR")
	if dir == "" {
		dir = "migrations"
	}

	pg, err := store.OpenPostgres(dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open postgres")
	}
	defer pg.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	m := store.NewMigrator(pg.DB(), dir, log)

	switch direction {
	case "up":
		err = m.Up(ctx)
	case "down":
		err = m.Down(ctx)
	default:
		log.Fatal().Str("direction", direction).Msg("unknown direction, want up or down")
	}
	if err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	log.Info().Str("direction", direction).Msg("migration complete")
}
