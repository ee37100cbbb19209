package http

import (
	"net/http"

	"github.com/mauv0809/shuttle-league/internal/config"
	"github.com/mauv0809/shuttle-league/internal/league"
	"github.com/mauv0809/shuttle-league/internal/notifier"
	"github.com/mauv0809/shuttle-league/internal/processor"
	"github.com/mauv0809/shuttle-league/internal/pubsub"
)

type Server struct {
	Store          league.LeagueStore
	MetricsHandler http.Handler
	Cfg            config.Config
	Notifier       notifier.Notifier
	Processor      *processor.Processor
	Router         *http.ServeMux
	pubsub         pubsub.PubSubClient
	handler        http.Handler
}

// LeaderboardEntry is one row of the /leaderboard response.
type LeaderboardEntry struct {
	Rank          int     `json:"rank"`
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Rating        float64 `json:"rating"`
	Mu            float64 `json:"mu"`
	Sigma         float64 `json:"sigma"`
	MatchesPlayed int     `json:"matches_played"`
	Wins          int     `json:"wins"`
	WinRate       float64 `json:"win_rate"`
}

type addPlayerRequest struct {
	Name string `json:"name"`
}
