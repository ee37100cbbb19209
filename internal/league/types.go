package league

import (
	"database/sql"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mauv0809/shuttle-league/internal/rating"
	"github.com/mauv0809/shuttle-league/internal/standings"
)

// store handles all database operations for the league.
type store struct {
	db    *sql.DB
	mu    sync.RWMutex
	prior rating.Rating
	now   func() time.Time
}

// playerNamespace scopes the name based player IDs.
var playerNamespace = uuid.MustParse("6f0c6a53-5d3e-4b0e-9a0c-2f63a1c1b7e4")

// NewPlayerID derives a stable ID from a player's name, ignoring case and surrounding
// whitespace, so the same roster always seeds the same IDs.
func NewPlayerID(name string) string {
	return uuid.NewSHA1(playerNamespace, []byte(strings.ToLower(strings.TrimSpace(name)))).String()
}

// PlayerInfo represents a player in the store.
type PlayerInfo struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Mu            float64 `json:"mu"`
	Sigma         float64 `json:"sigma"`
	MatchesPlayed int     `json:"matches_played"`
	Wins          int     `json:"wins"`
	PointsFor     int     `json:"points_for"`
	PointsAgainst int     `json:"points_against"`
	Version       int64   `json:"-"`
	CreatedAt     int64   `json:"created_at"`
	UpdatedAt     int64   `json:"updated_at"`
}

func (p PlayerInfo) Rating() rating.Rating {
	return rating.Rating{Mu: p.Mu, Sigma: p.Sigma}
}

// ConservativeRating is mu - 3 sigma, the value standings are ranked by.
func (p PlayerInfo) ConservativeRating() float64 {
	return p.Rating().Conservative()
}

// WinRate returns wins / matches played, or 0 for a player without matches.
func (p PlayerInfo) WinRate() float64 {
	if p.MatchesPlayed == 0 {
		return 0
	}
	return float64(p.Wins) / float64(p.MatchesPlayed)
}

// WeekStats converts the player's lifetime counters into a standings entry.
func (p PlayerInfo) WeekStats() standings.PlayerWeekStats {
	return standings.PlayerWeekStats{
		ID:            p.ID,
		Name:          p.Name,
		Rating:        p.ConservativeRating(),
		MatchesPlayed: p.MatchesPlayed,
		Wins:          p.Wins,
		PointsFor:     p.PointsFor,
		PointsAgainst: p.PointsAgainst,
	}
}

// MatchInput is a validated match ready to be applied to the ratings.
type MatchInput struct {
	Week       int
	MatchID    string
	Team1      [2]string
	Team2      [2]string
	Team1Score int
	Team2Score int
	UploadID   string
}

func (m MatchInput) Winner() rating.Winner {
	if m.Team1Score > m.Team2Score {
		return rating.Team1
	}
	return rating.Team2
}

func (m MatchInput) names() [4]string {
	return [4]string{m.Team1[0], m.Team1[1], m.Team2[0], m.Team2[1]}
}

// MatchPlayer identifies one participant of a stored match.
type MatchPlayer struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RatingChange is one player's rating before and after a match.
type RatingChange struct {
	PlayerID string        `json:"player_id"`
	Before   rating.Rating `json:"before"`
	After    rating.Rating `json:"after"`
}

// MatchRecord is a match as stored.
type MatchRecord struct {
	ID         int64          `json:"id"`
	Week       int            `json:"week"`
	MatchID    string         `json:"match_id"`
	Team1      [2]MatchPlayer `json:"team1"`
	Team2      [2]MatchPlayer `json:"team2"`
	Team1Score int            `json:"team1_score"`
	Team2Score int            `json:"team2_score"`
	Winner     rating.Winner  `json:"winner_team"`
	UploadID   string         `json:"upload_id,omitempty"`
	CreatedAt  int64          `json:"created_at"`
	// Changes is only filled in by ApplyMatch.
	Changes []RatingChange `json:"changes,omitempty"`
}

// Line reduces the match to what the weekly fold needs.
func (m MatchRecord) Line() standings.MatchLine {
	return standings.MatchLine{
		Team1:      [2]string{m.Team1[0].ID, m.Team1[1].ID},
		Team2:      [2]string{m.Team2[0].ID, m.Team2[1].ID},
		Team1Score: m.Team1Score,
		Team2Score: m.Team2Score,
	}
}
