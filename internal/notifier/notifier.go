package notifier

import (
	"github.com/mauv0809/shuttle-league/internal/ingest"
	"github.com/mauv0809/shuttle-league/internal/league"
	"github.com/mauv0809/shuttle-league/internal/standings"
)

// Notifier defines a high-level interface for sending notifications about league events.
// This decouples the rest of the application from the specific notification provider (e.g., Slack).
type Notifier interface {
	// After an upload
	SendWeeklyStandings(snap *standings.Snapshot, dryRun bool) error
	SendUploadSummary(report *ingest.Report, dryRun bool) error
	SendLeaderboard(players []league.PlayerInfo, dryRun bool) error

	// For formatting responses for slash commands
	FormatLeaderboardResponse(players []league.PlayerInfo) (any, error)
	FormatPlayerStatsResponse(player *league.PlayerInfo, query string) (any, error)
	FormatPlayerNotFoundResponse(query string) (any, error)
	FormatWeeklyStandingsResponse(snap *standings.Snapshot) (any, error)
}
