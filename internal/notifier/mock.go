package notifier

import (
	"sync"

	"github.com/mauv0809/shuttle-league/internal/ingest"
	"github.com/mauv0809/shuttle-league/internal/league"
	"github.com/mauv0809/shuttle-league/internal/standings"
)

// Mock is a mock implementation of the Notifier interface for testing.
// It is safe for concurrent use.
type Mock struct {
	mu sync.Mutex

	// Spies for send functions
	SendWeeklyStandingsFunc func(snap *standings.Snapshot, dryRun bool) error
	SendUploadSummaryFunc   func(report *ingest.Report, dryRun bool) error
	SendLeaderboardFunc     func(players []league.PlayerInfo, dryRun bool) error

	// Call records
	SendWeeklyStandingsCalls []*standings.Snapshot
	SendUploadSummaryCalls   []*ingest.Report
	SendLeaderboardCalls     [][]league.PlayerInfo

	// Spies for format functions
	FormatLeaderboardResponseFunc     func(players []league.PlayerInfo) (any, error)
	FormatPlayerStatsResponseFunc     func(player *league.PlayerInfo, query string) (any, error)
	FormatPlayerNotFoundResponseFunc  func(query string) (any, error)
	FormatWeeklyStandingsResponseFunc func(snap *standings.Snapshot) (any, error)

	// Call records for format functions
	LastLeaderboardResponse     any
	LastPlayerStatsResponse     any
	LastPlayerNotFoundResponse  any
	LastWeeklyStandingsResponse any
}

// NewMock creates a new mock instance.
func NewMock() *Mock {
	return &Mock{}
}

// Reset clears all call records.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SendWeeklyStandingsCalls = nil
	m.SendUploadSummaryCalls = nil
	m.SendLeaderboardCalls = nil
	m.LastLeaderboardResponse = nil
	m.LastPlayerStatsResponse = nil
	m.LastPlayerNotFoundResponse = nil
	m.LastWeeklyStandingsResponse = nil
}

func (m *Mock) SendWeeklyStandings(snap *standings.Snapshot, dryRun bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SendWeeklyStandingsCalls = append(m.SendWeeklyStandingsCalls, snap)
	if m.SendWeeklyStandingsFunc != nil {
		return m.SendWeeklyStandingsFunc(snap, dryRun)
	}
	return nil
}

func (m *Mock) SendUploadSummary(report *ingest.Report, dryRun bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SendUploadSummaryCalls = append(m.SendUploadSummaryCalls, report)
	if m.SendUploadSummaryFunc != nil {
		return m.SendUploadSummaryFunc(report, dryRun)
	}
	return nil
}

func (m *Mock) SendLeaderboard(players []league.PlayerInfo, dryRun bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SendLeaderboardCalls = append(m.SendLeaderboardCalls, players)
	if m.SendLeaderboardFunc != nil {
		return m.SendLeaderboardFunc(players, dryRun)
	}
	return nil
}

func (m *Mock) FormatLeaderboardResponse(players []league.PlayerInfo) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FormatLeaderboardResponseFunc != nil {
		resp, err := m.FormatLeaderboardResponseFunc(players)
		m.LastLeaderboardResponse = resp
		return resp, err
	}
	return "formatted_leaderboard", nil
}

func (m *Mock) FormatPlayerStatsResponse(player *league.PlayerInfo, query string) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FormatPlayerStatsResponseFunc != nil {
		resp, err := m.FormatPlayerStatsResponseFunc(player, query)
		m.LastPlayerStatsResponse = resp
		return resp, err
	}
	return "formatted_player_stats", nil
}

func (m *Mock) FormatPlayerNotFoundResponse(query string) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FormatPlayerNotFoundResponseFunc != nil {
		resp, err := m.FormatPlayerNotFoundResponseFunc(query)
		m.LastPlayerNotFoundResponse = resp
		return resp, err
	}
	return "formatted_player_not_found", nil
}

func (m *Mock) FormatWeeklyStandingsResponse(snap *standings.Snapshot) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FormatWeeklyStandingsResponseFunc != nil {
		resp, err := m.FormatWeeklyStandingsResponseFunc(snap)
		m.LastWeeklyStandingsResponse = resp
		return resp, err
	}
	return "formatted_weekly_standings", nil
}
