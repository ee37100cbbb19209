package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/shuttle-league/internal/league"
	"github.com/mauv0809/shuttle-league/internal/processor"
	"github.com/mauv0809/shuttle-league/internal/pubsub"
)

// maxUploadSize bounds a results upload.
const maxUploadSize = 10 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Failed to write response", "error", err)
	}
}

// parseWeek reads a week number, which must be >= 1.
func parseWeek(s string) (int, error) {
	week, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || week < 1 {
		return 0, fmt.Errorf("invalid week %q", s)
	}
	return week, nil
}

func (s *Server) HealthCheckHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Received health check request")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK!")
	}
}

func (s *Server) ClearStoreHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Info("Received request to clear entire store")
		if err := s.Store.Clear(r.Context()); err != nil {
			log.Error("Failed to clear store", "error", err)
			http.Error(w, "Failed to clear store", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "Store cleared!")
		log.Info("Store cleared successfully")
	}
}

func (s *Server) ListPlayersHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		players, err := s.Store.GetAllPlayers(r.Context())
		if err != nil {
			http.Error(w, "Failed to get players", http.StatusInternalServerError)
			log.Error("Failed to get players from store", "error", err)
			return
		}
		if players == nil {
			players = []league.PlayerInfo{}
		}
		writeJSON(w, http.StatusOK, players)
	}
}

func (s *Server) AddPlayerHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addPlayerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}

		player, err := s.Store.AddPlayer(r.Context(), req.Name)
		switch {
		case errors.Is(err, league.ErrEmptyName):
			http.Error(w, "Player name is required.", http.StatusBadRequest)
			return
		case errors.Is(err, league.ErrDuplicatePlayerName):
			http.Error(w, fmt.Sprintf("Player %q already exists.", strings.TrimSpace(req.Name)), http.StatusConflict)
			return
		case err != nil:
			http.Error(w, "Failed to add player", http.StatusInternalServerError)
			log.Error("Failed to add player", "name", req.Name, "error", err)
			return
		}
		log.Info("Added player", "id", player.ID, "name", player.Name)
		writeJSON(w, http.StatusCreated, player)
	}
}

// sortByRating orders players by conservative rating, highest first. Ties keep the
// store order.
func sortByRating(players []league.PlayerInfo) {
	slices.SortStableFunc(players, func(a, b league.PlayerInfo) int {
		ra, rb := a.ConservativeRating(), b.ConservativeRating()
		switch {
		case ra > rb:
			return -1
		case ra < rb:
			return 1
		}
		return 0
	})
}

// LeaderboardHandler serves every player ranked by mu, or by conservative rating
// with ?order=rating.
func (s *Server) LeaderboardHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order := r.URL.Query().Get("order")
		if order != "" && order != "mu" && order != "rating" {
			http.Error(w, "order must be 'mu' or 'rating'", http.StatusBadRequest)
			return
		}

		players, err := s.Store.GetAllPlayers(r.Context())
		if err != nil {
			http.Error(w, "Failed to get players", http.StatusInternalServerError)
			log.Error("Failed to get players from store", "error", err)
			return
		}
		if order == "rating" {
			sortByRating(players)
		}

		entries := make([]LeaderboardEntry, len(players))
		for i, p := range players {
			entries[i] = LeaderboardEntry{
				Rank:          i + 1,
				ID:            p.ID,
				Name:          p.Name,
				Rating:        p.ConservativeRating(),
				Mu:            p.Mu,
				Sigma:         p.Sigma,
				MatchesPlayed: p.MatchesPlayed,
				Wins:          p.Wins,
				WinRate:       p.WinRate(),
			}
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

// NotifyLeaderboardHandler posts the leaderboard, ranked by conservative rating, to the
// Slack channel.
func (s *Server) NotifyLeaderboardHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		players, err := s.Store.GetAllPlayers(r.Context())
		if err != nil {
			http.Error(w, "Failed to get players", http.StatusInternalServerError)
			log.Error("Failed to get players from store", "error", err)
			return
		}
		sortByRating(players)

		if err := s.Notifier.SendLeaderboard(players, isDryRunFromContext(r)); err != nil {
			http.Error(w, "Failed to send leaderboard", http.StatusInternalServerError)
			log.Error("Failed to send leaderboard", "error", err)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "Leaderboard sent!")
	}
}

// ListWeeksHandler lists the weeks with recorded matches, ascending.
func (s *Server) ListWeeksHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		weeks, err := s.Store.GetWeeks(r.Context())
		if err != nil {
			http.Error(w, "Failed to get weeks", http.StatusInternalServerError)
			log.Error("Failed to get weeks from store", "error", err)
			return
		}
		if weeks == nil {
			weeks = []int{}
		}
		writeJSON(w, http.StatusOK, weeks)
	}
}

func (s *Server) ListMatchesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		week, err := parseWeek(r.URL.Query().Get("week"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		matches, err := s.Store.GetMatchesByWeek(r.Context(), week)
		if err != nil {
			http.Error(w, "Failed to get matches", http.StatusInternalServerError)
			log.Error("Failed to get matches from store", "week", week, "error", err)
			return
		}
		if matches == nil {
			matches = []league.MatchRecord{}
		}
		writeJSON(w, http.StatusOK, matches)
	}
}

// UploadHandler ingests a results CSV sent either as the multipart field "file" or as
// the raw request body.
func (s *Server) UploadHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.FromContext(r.Context())
		isDryRun := isDryRunFromContext(r)
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

		var body io.Reader = r.Body
		mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if mediaType == "multipart/form-data" {
			file, header, err := r.FormFile("file")
			if err != nil {
				if isTooLarge(err) {
					http.Error(w, "Upload too large", http.StatusRequestEntityTooLarge)
					return
				}
				http.Error(w, "Missing multipart field 'file'", http.StatusBadRequest)
				return
			}
			defer file.Close()
			logger.Info("Received results upload", "filename", header.Filename, "size", header.Size, "dry_run", isDryRun)
			body = file
		} else {
			logger.Info("Received raw results upload", "dry_run", isDryRun)
		}

		report, err := s.Processor.ProcessUpload(r.Context(), body, isDryRun)
		if err != nil {
			if isTooLarge(err) {
				http.Error(w, "Upload too large", http.StatusRequestEntityTooLarge)
				return
			}
			logger.Warn("Rejected upload", "error", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}

func isTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	return errors.As(err, &tooLarge)
}

func (s *Server) ListStandingsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snaps, err := s.Store.GetAllStandings(r.Context())
		if err != nil {
			http.Error(w, "Failed to get standings", http.StatusInternalServerError)
			log.Error("Failed to get standings from store", "error", err)
			return
		}
		if snaps == nil {
			writeJSON(w, http.StatusOK, []any{})
			return
		}
		writeJSON(w, http.StatusOK, snaps)
	}
}

func (s *Server) GetStandingsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		week, err := parseWeek(r.PathValue("week"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		snap, err := s.Store.GetStandings(r.Context(), week)
		if errors.Is(err, league.ErrStandingsNotFound) {
			http.Error(w, fmt.Sprintf("No standings for week %d", week), http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, "Failed to get standings", http.StatusInternalServerError)
			log.Error("Failed to get standings from store", "week", week, "error", err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

func (s *Server) RecomputeStandingsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		week, err := parseWeek(r.PathValue("week"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		snap, err := s.Processor.RecomputeWeek(r.Context(), week, isDryRunFromContext(r))
		if errors.Is(err, processor.ErrNoMatches) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, "Failed to recompute standings", http.StatusInternalServerError)
			log.Error("Failed to recompute standings", "week", week, "error", err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

// NotifyStandingsHandler is the push endpoint of the standings-updated subscription.
// A missing snapshot is acknowledged so Pub/Sub does not redeliver it.
func (s *Server) NotifyStandingsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rawData, err := pubsub.DecodePush(r.Body)
		if err != nil {
			log.Error("Failed to decode push message", "error", err)
			http.Error(w, "Invalid push message", http.StatusBadRequest)
			return
		}

		var event pubsub.StandingsUpdated
		if err := s.pubsub.ProcessMessage(rawData, &event); err != nil {
			log.Error("Failed to decode standings event", "error", err)
			http.Error(w, "Invalid standings event", http.StatusBadRequest)
			return
		}
		log.Info("Received standings update", "week", event.Week, "upload_id", event.UploadID)

		isDryRun := isDryRunFromContext(r) || event.DryRun
		err = s.Processor.NotifyStandings(r.Context(), event.Week, isDryRun)
		if errors.Is(err, league.ErrStandingsNotFound) {
			log.Warn("No standings to notify", "week", event.Week)
		} else if err != nil {
			log.Error("Failed to notify standings", "week", event.Week, "error", err)
			http.Error(w, "Failed to notify standings", http.StatusInternalServerError)
			return
		}
		w.Write([]byte("OK"))
	}
}
