package league

import (
	"context"
	"sync"

	"github.com/mauv0809/shuttle-league/internal/standings"
)

// MockStore is a mock implementation of the LeagueStore interface for testing.
// It is safe for concurrent use.
type MockStore struct {
	mu sync.Mutex

	AddPlayerFunc        func(ctx context.Context, name string) (*PlayerInfo, error)
	UpsertPlayersFunc    func(ctx context.Context, players []PlayerInfo) error
	GetAllPlayersFunc    func(ctx context.Context) ([]PlayerInfo, error)
	GetPlayerByNameFunc  func(ctx context.Context, query string) (*PlayerInfo, error)
	ApplyMatchFunc       func(ctx context.Context, in MatchInput, rate RateFunc, dryRun bool) (*MatchRecord, error)
	GetMatchesByWeekFunc func(ctx context.Context, week int) ([]MatchRecord, error)
	GetWeeksFunc         func(ctx context.Context) ([]int, error)
	GetWeekPlayersFunc   func(ctx context.Context, week int) ([]PlayerInfo, error)
	UpsertStandingsFunc  func(ctx context.Context, snap *standings.Snapshot) error
	GetStandingsFunc     func(ctx context.Context, week int) (*standings.Snapshot, error)
	GetAllStandingsFunc  func(ctx context.Context) ([]standings.Snapshot, error)
	ClearFunc            func(ctx context.Context) error

	// Call records
	AddPlayerCalls       []string
	UpsertPlayersCalls   [][]PlayerInfo
	GetPlayerByNameCalls []string
	ApplyMatchCalls      []struct {
		Input  MatchInput
		DryRun bool
	}
	GetWeekPlayersCalls  []int
	UpsertStandingsCalls []*standings.Snapshot
	GetStandingsCalls    []int
	ClearCalls           int
}

// NewMock creates a new mock instance.
func NewMock() *MockStore {
	return &MockStore{}
}

// Reset clears all call records.
func (m *MockStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AddPlayerCalls = nil
	m.UpsertPlayersCalls = nil
	m.GetPlayerByNameCalls = nil
	m.ApplyMatchCalls = nil
	m.GetWeekPlayersCalls = nil
	m.UpsertStandingsCalls = nil
	m.GetStandingsCalls = nil
	m.ClearCalls = 0
}

func (m *MockStore) AddPlayer(ctx context.Context, name string) (*PlayerInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AddPlayerCalls = append(m.AddPlayerCalls, name)
	if m.AddPlayerFunc != nil {
		return m.AddPlayerFunc(ctx, name)
	}
	return &PlayerInfo{ID: NewPlayerID(name), Name: name}, nil
}

func (m *MockStore) UpsertPlayers(ctx context.Context, players []PlayerInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpsertPlayersCalls = append(m.UpsertPlayersCalls, players)
	if m.UpsertPlayersFunc != nil {
		return m.UpsertPlayersFunc(ctx, players)
	}
	return nil
}

func (m *MockStore) GetAllPlayers(ctx context.Context) ([]PlayerInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetAllPlayersFunc != nil {
		return m.GetAllPlayersFunc(ctx)
	}
	return nil, nil
}

func (m *MockStore) GetPlayerByName(ctx context.Context, query string) (*PlayerInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetPlayerByNameCalls = append(m.GetPlayerByNameCalls, query)
	if m.GetPlayerByNameFunc != nil {
		return m.GetPlayerByNameFunc(ctx, query)
	}
	return nil, ErrPlayerNotFound
}

func (m *MockStore) ApplyMatch(ctx context.Context, in MatchInput, rate RateFunc, dryRun bool) (*MatchRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ApplyMatchCalls = append(m.ApplyMatchCalls, struct {
		Input  MatchInput
		DryRun bool
	}{in, dryRun})
	if m.ApplyMatchFunc != nil {
		return m.ApplyMatchFunc(ctx, in, rate, dryRun)
	}
	return &MatchRecord{Week: in.Week, MatchID: in.MatchID, Team1Score: in.Team1Score, Team2Score: in.Team2Score, Winner: in.Winner()}, nil
}

func (m *MockStore) GetMatchesByWeek(ctx context.Context, week int) ([]MatchRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetMatchesByWeekFunc != nil {
		return m.GetMatchesByWeekFunc(ctx, week)
	}
	return nil, nil
}

func (m *MockStore) GetWeeks(ctx context.Context) ([]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetWeeksFunc != nil {
		return m.GetWeeksFunc(ctx)
	}
	return nil, nil
}

func (m *MockStore) GetWeekPlayers(ctx context.Context, week int) ([]PlayerInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetWeekPlayersCalls = append(m.GetWeekPlayersCalls, week)
	if m.GetWeekPlayersFunc != nil {
		return m.GetWeekPlayersFunc(ctx, week)
	}
	return nil, nil
}

func (m *MockStore) UpsertStandings(ctx context.Context, snap *standings.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpsertStandingsCalls = append(m.UpsertStandingsCalls, snap)
	if m.UpsertStandingsFunc != nil {
		return m.UpsertStandingsFunc(ctx, snap)
	}
	return nil
}

func (m *MockStore) GetStandings(ctx context.Context, week int) (*standings.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetStandingsCalls = append(m.GetStandingsCalls, week)
	if m.GetStandingsFunc != nil {
		return m.GetStandingsFunc(ctx, week)
	}
	return nil, ErrStandingsNotFound
}

func (m *MockStore) GetAllStandings(ctx context.Context) ([]standings.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetAllStandingsFunc != nil {
		return m.GetAllStandingsFunc(ctx)
	}
	return nil, nil
}

func (m *MockStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ClearCalls++
	if m.ClearFunc != nil {
		return m.ClearFunc(ctx)
	}
	return nil
}
