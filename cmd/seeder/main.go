// Command seeder registers a roster of players, one name per line, read from the file
// given as the only argument or from stdin. Blank lines and lines starting with # are
// skipped. Seeding is idempotent: existing players keep their ratings.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/shuttle-league/internal/config"
	"github.com/mauv0809/shuttle-league/internal/database"
	"github.com/mauv0809/shuttle-league/internal/league"
)

func main() {
	log.Info("Starting roster seeder...")
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %s", err)
	}

	var in io.Reader = os.Stdin
	if len(os.Args) > 1 && os.Args[1] != "-" {
		f, err := os.Open(os.Args[1])
		if err != nil {
			log.Fatalf("Failed to open roster: %s", err)
		}
		defer f.Close()
		in = f
	}

	db, teardown, err := database.InitDB(cfg.DBName, cfg.Turso.PrimaryURL, cfg.Turso.AuthToken)
	if err != nil {
		log.Fatalf("Failed to initialize database: %s", err)
	}
	defer teardown()

	store := league.New(db, league.WithPrior(cfg.Rating.NewRating()))
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	start := time.Now()
	n, err := seed(ctx, store, in)
	if err != nil {
		log.Fatalf("Seeding failed: %s", err)
	}
	log.Info("Roster seeded", "players", n, "duration", time.Since(start))
}

func seed(ctx context.Context, store league.LeagueStore, r io.Reader) (int, error) {
	players, err := readRoster(r)
	if err != nil {
		return 0, fmt.Errorf("read roster: %w", err)
	}
	if len(players) == 0 {
		log.Warn("Roster is empty, nothing to seed")
		return 0, nil
	}
	if err := store.UpsertPlayers(ctx, players); err != nil {
		return 0, err
	}
	return len(players), nil
}
