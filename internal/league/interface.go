package league

import (
	"context"

	"github.com/mauv0809/shuttle-league/internal/rating"
	"github.com/mauv0809/shuttle-league/internal/standings"
)

// RateFunc computes new ratings for a finished doubles match. rating.Env.Update
// satisfies it.
type RateFunc func(team1, team2 rating.Team, winner rating.Winner) (rating.Result, error)

// LeagueStore defines the interface for interacting with the league's data.
type LeagueStore interface {
	AddPlayer(ctx context.Context, name string) (*PlayerInfo, error)
	UpsertPlayers(ctx context.Context, players []PlayerInfo) error
	GetAllPlayers(ctx context.Context) ([]PlayerInfo, error)
	GetPlayerByName(ctx context.Context, query string) (*PlayerInfo, error)
	ApplyMatch(ctx context.Context, in MatchInput, rate RateFunc, dryRun bool) (*MatchRecord, error)
	GetMatchesByWeek(ctx context.Context, week int) ([]MatchRecord, error)
	GetWeeks(ctx context.Context) ([]int, error)
	GetWeekPlayers(ctx context.Context, week int) ([]PlayerInfo, error)
	UpsertStandings(ctx context.Context, snap *standings.Snapshot) error
	GetStandings(ctx context.Context, week int) (*standings.Snapshot, error)
	GetAllStandings(ctx context.Context) ([]standings.Snapshot, error)
	Clear(ctx context.Context) error
}
