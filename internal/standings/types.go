package standings

// PlayerWeekStats is one player's line in a weekly standings computation.
type PlayerWeekStats struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Rating        float64 `json:"rating"`
	MatchesPlayed int     `json:"matches_played"`
	Wins          int     `json:"wins"`
	PointsFor     int     `json:"points_for"`
	PointsAgainst int     `json:"points_against"`
}

// WinRate returns wins/matches_played, or 0 for a player without matches.
func (p PlayerWeekStats) WinRate() float64 {
	if p.MatchesPlayed == 0 {
		return 0
	}
	return float64(p.Wins) / float64(p.MatchesPlayed)
}

type MatchesLeader struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Matches int    `json:"matches"`
}

type WinRateLeader struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	WinRate float64 `json:"winRate"`
}

type PointsLeader struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Points int    `json:"points"`
}

type PointsAgainstLeader struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	PointsAgainst int    `json:"pointsAgainst"`
}

// Stats holds the weekly superlatives. A nil entry means no player qualified.
type Stats struct {
	MostMatches        *MatchesLeader       `json:"mostMatches"`
	BestWinRate        *WinRateLeader       `json:"bestWinRate"`
	MostPoints         *PointsLeader        `json:"mostPoints"`
	LeastPointsAgainst *PointsAgainstLeader `json:"leastPointsAgainst"`
}

// Snapshot is the standings of one week.
type Snapshot struct {
	Week       int               `json:"week"`
	TopPlayers []PlayerWeekStats `json:"top_players"`
	Stats      Stats             `json:"stats"`
}

// MatchLine is the minimal view of a recorded match needed to fold per-week counters.
type MatchLine struct {
	Team1      [2]string
	Team2      [2]string
	Team1Score int
	Team2Score int
}
