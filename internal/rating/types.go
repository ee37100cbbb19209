package rating

import "fmt"

// Rating is a player's skill belief: a Gaussian with mean Mu and standard deviation Sigma.
type Rating struct {
	Mu    float64 `json:"mu" msgpack:"mu"`
	Sigma float64 `json:"sigma" msgpack:"sigma"`
}

// Conservative returns the pessimistic skill estimate mu - 3*sigma used for ranking.
func (r Rating) Conservative() float64 {
	return r.Mu - 3*r.Sigma
}

func (r Rating) String() string {
	return fmt.Sprintf("N(%.3f, %.3f)", r.Mu, r.Sigma)
}

// Team is a doubles pair. Partners keep individual ratings.
type Team [2]Rating

// Winner identifies the team that won a match. There is no draw value.
type Winner int

const (
	Team1 Winner = 1
	Team2 Winner = 2
)

func (w Winner) String() string {
	switch w {
	case Team1:
		return "team1"
	case Team2:
		return "team2"
	default:
		return fmt.Sprintf("Winner(%d)", int(w))
	}
}

// Valid reports whether w is Team1 or Team2.
func (w Winner) Valid() bool {
	return w == Team1 || w == Team2
}

// Result holds the updated ratings, positionally matching the input teams.
type Result struct {
	Team1 Team `json:"team1"`
	Team2 Team `json:"team2"`
}

// Env holds the constants of the rating model.
type Env struct {
	// Mu and Sigma are the prior of a new player.
	Mu    float64
	Sigma float64
	// Beta is the per-player performance noise.
	Beta float64
	// Tau is added to every sigma before an update. Zero keeps sigma non-increasing.
	Tau float64
}
