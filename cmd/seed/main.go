// Command seed fills the configured database with development data.
package main

import (
	"context"
	"flag"
	"time"

	"recipehub/config"
	"recipehub/db"
	"recipehub/logging"
	"recipehub/seed"

	"github.com/rs/zerolog/log"
)

func main() {
	numUsers := flag.Int("users", 20, "Number of users to create")
	numRecipes := flag.Int("recipes", 100, "Number of recipes to create")
	clean := flag.Bool("clean", false, "Delete existing users and recipes first")
	seedValue := flag.Int64("seed", 0, "Generator seed, 0 for random")
	maxDays := flag.Int("days", 90, "Spread createdAt over this many days")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	store, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to mongodb")
	}
	defer store.Disconnect(context.Background())

	if err := store.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to create indexes")
	}

	s, err := seed.NewSeeder(store, *seedValue)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build seeder")
	}
	if err := s.Run(ctx, seed.Options{
		Users:   *numUsers,
		Recipes: *numRecipes,
		Clean:   *clean,
		MaxDays: *maxDays,
	}); err != nil {
		log.Fatal().Err(err).Msg("seeding failed")
	}

	log.Info().Str("password", seed.DefaultPassword).Msg("seeding complete, every user shares this password")
}
