package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/shuttle-league/internal/league"
	"github.com/mauv0809/shuttle-league/internal/standings"
	"github.com/slack-go/slack"
)

// respondWithSlackMsg is a helper to format and write a Slack message as an HTTP response.
func respondWithSlackMsg(w http.ResponseWriter, msg slack.Message) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(msg); err != nil {
		log.Error("Failed to encode slack message to JSON", "error", err)
	}
}

// respondWithFormatted writes the output of a notifier Format method.
func respondWithFormatted(w http.ResponseWriter, msg any, err error) {
	if err != nil {
		http.Error(w, "Failed to format response", http.StatusInternalServerError)
		log.Error("Failed to format Slack response", "error", err)
		return
	}
	slackMsg, ok := msg.(slack.Message)
	if !ok {
		http.Error(w, "Invalid message format for Slack", http.StatusInternalServerError)
		log.Error("Failed to cast message to slack.Message")
		return
	}
	respondWithSlackMsg(w, slackMsg)
}

// LeaderboardCommandHandler returns a handler for the /leaderboard Slack command.
func (s *Server) LeaderboardCommandHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		players, err := s.Store.GetAllPlayers(r.Context())
		if err != nil {
			http.Error(w, "Failed to get players", http.StatusInternalServerError)
			log.Error("Failed to get players from store", "error", err)
			return
		}
		sortByRating(players)

		msg, err := s.Notifier.FormatLeaderboardResponse(players)
		respondWithFormatted(w, msg, err)
	}
}

// PlayerStatsCommandHandler returns a handler for the /player-stats Slack command.
func (s *Server) PlayerStatsCommandHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cmd, err := slack.SlashCommandParse(r)
		if err != nil {
			http.Error(w, "Error parsing form", http.StatusBadRequest)
			return
		}
		playerName := strings.TrimSpace(cmd.Text)
		if playerName == "" {
			http.Error(w, "Player name is required.", http.StatusBadRequest)
			return
		}

		log.Info("Received player stats command", "player", playerName, "user", cmd.UserName)
		player, err := s.Store.GetPlayerByName(r.Context(), playerName)
		var msg any
		switch {
		case errors.Is(err, league.ErrPlayerNotFound):
			log.Warn("Could not find player", "player", playerName)
			msg, err = s.Notifier.FormatPlayerNotFoundResponse(playerName)
		case err != nil:
			http.Error(w, "Failed to get player", http.StatusInternalServerError)
			log.Error("Failed to get player from store", "player", playerName, "error", err)
			return
		default:
			msg, err = s.Notifier.FormatPlayerStatsResponse(player, playerName)
		}
		respondWithFormatted(w, msg, err)
	}
}

// StandingsCommandHandler returns a handler for the /standings Slack command. Without a
// week it shows the latest stored week.
func (s *Server) StandingsCommandHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cmd, err := slack.SlashCommandParse(r)
		if err != nil {
			http.Error(w, "Error parsing form", http.StatusBadRequest)
			return
		}

		var snap *standings.Snapshot
		if text := strings.TrimSpace(cmd.Text); text != "" {
			week, err := parseWeek(text)
			if err != nil {
				respondWithSlackMsg(w, textMessage(fmt.Sprintf("%q is not a week number.", text)))
				return
			}
			snap, err = s.Store.GetStandings(r.Context(), week)
			if errors.Is(err, league.ErrStandingsNotFound) {
				respondWithSlackMsg(w, textMessage(fmt.Sprintf("No standings for week %d yet.", week)))
				return
			}
			if err != nil {
				http.Error(w, "Failed to get standings", http.StatusInternalServerError)
				log.Error("Failed to get standings from store", "week", week, "error", err)
				return
			}
		} else {
			all, err := s.Store.GetAllStandings(r.Context())
			if err != nil {
				http.Error(w, "Failed to get standings", http.StatusInternalServerError)
				log.Error("Failed to get standings from store", "error", err)
				return
			}
			if len(all) == 0 {
				respondWithSlackMsg(w, textMessage("No standings yet. Upload some results!"))
				return
			}
			snap = &all[len(all)-1]
		}

		msg, err := s.Notifier.FormatWeeklyStandingsResponse(snap)
		respondWithFormatted(w, msg, err)
	}
}

func textMessage(text string) slack.Message {
	return slack.NewBlockMessage(
		slack.NewSectionBlock(slack.NewTextBlockObject("mrkdwn", text, false, false), nil, nil),
	)
}
