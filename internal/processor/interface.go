package processor

import (
	"context"

	"github.com/mauv0809/shuttle-league/internal/league"
	"github.com/mauv0809/shuttle-league/internal/notifier"
	"github.com/mauv0809/shuttle-league/internal/standings"
)

// Store defines the database operations required by the processor.
type Store interface {
	ApplyMatch(ctx context.Context, in league.MatchInput, rate league.RateFunc, dryRun bool) (*league.MatchRecord, error)
	GetMatchesByWeek(ctx context.Context, week int) ([]league.MatchRecord, error)
	GetWeekPlayers(ctx context.Context, week int) ([]league.PlayerInfo, error)
	UpsertStandings(ctx context.Context, snap *standings.Snapshot) error
	GetStandings(ctx context.Context, week int) (*standings.Snapshot, error)
}

// Notifier defines the notification operations required by the processor.
type Notifier interface {
	notifier.Notifier
}
