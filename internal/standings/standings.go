// Package standings derives weekly leaderboard snapshots from player statistics.
package standings

import (
	"slices"
)

const (
	defaultTopN                 = 3
	defaultMinMatchesForWinRate = 3
)

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithTopN sets how many players the snapshot ranks. Values below 1 are ignored.
func WithTopN(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.topN = n
		}
	}
}

// WithMinMatchesForWinRate sets the sample size a player needs to be eligible for the
// best win rate. Values below 1 are ignored.
func WithMinMatchesForWinRate(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.minMatchesForWinRate = n
		}
	}
}

// Aggregator computes weekly snapshots. It holds no state besides its settings and is
// safe for concurrent use.
type Aggregator struct {
	topN                 int
	minMatchesForWinRate int
}

// NewAggregator returns an Aggregator ranking the top 3 with a 3 match win rate minimum
// unless overridden.
func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{
		topN:                 defaultTopN,
		minMatchesForWinRate: defaultMinMatchesForWinRate,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate computes a snapshot with the default settings.
func Aggregate(players []PlayerWeekStats, week int) (*Snapshot, error) {
	return NewAggregator().Aggregate(players, week)
}

// Aggregate ranks players by conservative rating and picks the weekly superlatives.
// Every tie is resolved in favour of the player that comes first in players.
func (a *Aggregator) Aggregate(players []PlayerWeekStats, week int) (*Snapshot, error) {
	if week < 1 {
		return nil, ErrInvalidWeek
	}
	if len(players) == 0 {
		return nil, ErrNoPlayers
	}

	return &Snapshot{
		Week:       week,
		TopPlayers: a.topPlayers(players),
		Stats: Stats{
			MostMatches:        mostMatches(players),
			BestWinRate:        a.bestWinRate(players),
			MostPoints:         mostPoints(players),
			LeastPointsAgainst: leastPointsAgainst(players),
		},
	}, nil
}

func (a *Aggregator) topPlayers(players []PlayerWeekStats) []PlayerWeekStats {
	ranked := slices.Clone(players)
	slices.SortStableFunc(ranked, func(x, y PlayerWeekStats) int {
		switch {
		case x.Rating > y.Rating:
			return -1
		case x.Rating < y.Rating:
			return 1
		}
		return 0
	})
	if len(ranked) > a.topN {
		ranked = ranked[:a.topN]
	}
	return slices.Clip(ranked)
}

func mostMatches(players []PlayerWeekStats) *MatchesLeader {
	best := players[0]
	for _, p := range players[1:] {
		if p.MatchesPlayed > best.MatchesPlayed {
			best = p
		}
	}
	return &MatchesLeader{ID: best.ID, Name: best.Name, Matches: best.MatchesPlayed}
}

func (a *Aggregator) bestWinRate(players []PlayerWeekStats) *WinRateLeader {
	var best *WinRateLeader
	for _, p := range players {
		if p.MatchesPlayed < a.minMatchesForWinRate {
			continue
		}
		rate := p.WinRate()
		if best == nil || rate > best.WinRate {
			best = &WinRateLeader{ID: p.ID, Name: p.Name, WinRate: rate}
		}
	}
	return best
}

func mostPoints(players []PlayerWeekStats) *PointsLeader {
	best := players[0]
	for _, p := range players[1:] {
		if p.PointsFor > best.PointsFor {
			best = p
		}
	}
	return &PointsLeader{ID: best.ID, Name: best.Name, Points: best.PointsFor}
}

func leastPointsAgainst(players []PlayerWeekStats) *PointsAgainstLeader {
	var best *PointsAgainstLeader
	for _, p := range players {
		if p.MatchesPlayed == 0 {
			continue
		}
		if best == nil || p.PointsAgainst < best.PointsAgainst {
			best = &PointsAgainstLeader{ID: p.ID, Name: p.Name, PointsAgainst: p.PointsAgainst}
		}
	}
	return best
}

// FoldWeek replaces the counters of players with totals folded from matches only.
// Ratings, names and order are kept; players without a match in matches are dropped.
func FoldWeek(players []PlayerWeekStats, matches []MatchLine) []PlayerWeekStats {
	index := make(map[string]int, len(players))
	folded := make([]PlayerWeekStats, len(players))
	for i, p := range players {
		index[p.ID] = i
		folded[i] = PlayerWeekStats{ID: p.ID, Name: p.Name, Rating: p.Rating}
	}

	credit := func(ids [2]string, scored, conceded int, won bool) {
		for _, id := range ids {
			i, ok := index[id]
			if !ok {
				continue
			}
			folded[i].MatchesPlayed++
			folded[i].PointsFor += scored
			folded[i].PointsAgainst += conceded
			if won {
				folded[i].Wins++
			}
		}
	}

	for _, m := range matches {
		team1Won := m.Team1Score > m.Team2Score
		credit(m.Team1, m.Team1Score, m.Team2Score, team1Won)
		credit(m.Team2, m.Team2Score, m.Team1Score, !team1Won)
	}

	return slices.DeleteFunc(folded, func(p PlayerWeekStats) bool {
		return p.MatchesPlayed == 0
	})
}
