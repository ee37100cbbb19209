package league

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/shuttle-league/internal/rating"
	"github.com/mauv0809/shuttle-league/internal/standings"
)

// Option configures the store.
type Option func(*store)

// WithPrior sets the rating given to newly added players.
func WithPrior(r rating.Rating) Option {
	return func(s *store) {
		s.prior = r
	}
}

// WithClock replaces time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *store) {
		s.now = now
	}
}

// New creates a new LeagueStore.
func New(db *sql.DB, opts ...Option) LeagueStore {
	s := &store{
		db:    db,
		prior: rating.DefaultEnv().NewRating(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

const playerColumns = `id, name, mu, sigma, matches_played, wins, points_for, points_against, version, created_at, updated_at`

type scanner interface{ Scan(...any) error }

func scanPlayer(row scanner) (PlayerInfo, error) {
	var p PlayerInfo
	err := row.Scan(&p.ID, &p.Name, &p.Mu, &p.Sigma, &p.MatchesPlayed, &p.Wins, &p.PointsFor,
		&p.PointsAgainst, &p.Version, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// AddPlayer registers a new player with the prior rating.
func (s *store) AddPlayer(ctx context.Context, name string) (*PlayerInfo, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin add player: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM players WHERE name = ? COLLATE NOCASE`, name).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check player name: %w", err)
	}
	if exists > 0 {
		return nil, fmt.Errorf("%w: %s", ErrDuplicatePlayerName, name)
	}

	now := s.now().Unix()
	p := PlayerInfo{
		ID:        NewPlayerID(name),
		Name:      name,
		Mu:        s.prior.Mu,
		Sigma:     s.prior.Sigma,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO players (id, name, mu, sigma, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Mu, p.Sigma, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert player %s: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit add player: %w", err)
	}
	log.Info("Added player", "id", p.ID, "name", p.Name)
	return &p, nil
}

// UpsertPlayers inserts players in bulk. A player that already exists keeps its rating
// and counters; only the name is refreshed. Missing IDs and ratings are filled in.
func (s *store) UpsertPlayers(ctx context.Context, players []PlayerInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert players: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO players (id, name, mu, sigma, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			updated_at = excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("prepare upsert players: %w", err)
	}
	defer stmt.Close()

	now := s.now().Unix()
	for _, p := range players {
		p.Name = strings.TrimSpace(p.Name)
		if p.Name == "" {
			return ErrEmptyName
		}
		if p.ID == "" {
			p.ID = NewPlayerID(p.Name)
		}
		if p.Sigma <= 0 {
			p.Mu, p.Sigma = s.prior.Mu, s.prior.Sigma
		}
		if _, err := stmt.ExecContext(ctx, p.ID, p.Name, p.Mu, p.Sigma, now, now); err != nil {
			return fmt.Errorf("upsert player %s: %w", p.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert players: %w", err)
	}
	log.Debug("Upserted players", "count", len(players))
	return nil
}

// GetAllPlayers returns every player ordered by mu, highest first.
func (s *store) GetAllPlayers(ctx context.Context) ([]PlayerInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT `+playerColumns+` FROM players ORDER BY mu DESC, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("query players: %w", err)
	}
	defer rows.Close()

	var players []PlayerInfo
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

// GetPlayerByName finds a player by name. An exact case-insensitive match wins,
// otherwise the first name containing the query (e.g. "morten" matches "Morten Voss").
func (s *store) GetPlayerByName(ctx context.Context, query string) (*PlayerInfo, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyName
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT `+playerColumns+`
		FROM players
		WHERE name LIKE ? COLLATE NOCASE
		ORDER BY (name = ? COLLATE NOCASE) DESC, name ASC
		LIMIT 1`, "%"+query+"%", query)
	p, err := scanPlayer(row)
	if errors.Is(err, sql.ErrNoRows) {
		log.Debug("No player matches query", "query", query)
		return nil, fmt.Errorf("%w: %s", ErrPlayerNotFound, query)
	}
	if err != nil {
		return nil, fmt.Errorf("query player %s: %w", query, err)
	}
	return &p, nil
}

// ApplyMatch rates one match and records it. Reading the four players, writing their new
// ratings and inserting the match happen in a single transaction. Player rows are
// updated only if their version is unchanged since the read, otherwise the whole match
// is rolled back with ErrVersionConflict and may be retried. In dry-run mode the
// transaction is always rolled back.
func (s *store) ApplyMatch(ctx context.Context, in MatchInput, rate RateFunc, dryRun bool) (*MatchRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin apply match: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM matches WHERE week = ? AND match_id = ?`, in.Week, in.MatchID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check match %s: %w", in.MatchID, err)
	}
	if exists > 0 {
		return nil, fmt.Errorf("%w: week %d match %s", ErrDuplicateMatch, in.Week, in.MatchID)
	}

	players, err := s.resolvePlayers(ctx, tx, in)
	if err != nil {
		return nil, err
	}

	team1 := rating.Team{players[0].Rating(), players[1].Rating()}
	team2 := rating.Team{players[2].Rating(), players[3].Rating()}
	winner := in.Winner()
	result, err := rate(team1, team2, winner)
	if err != nil {
		return nil, fmt.Errorf("rate match %s: %w", in.MatchID, err)
	}
	after := [4]rating.Rating{result.Team1[0], result.Team1[1], result.Team2[0], result.Team2[1]}

	now := s.now().Unix()
	rec := &MatchRecord{
		Week:       in.Week,
		MatchID:    in.MatchID,
		Team1Score: in.Team1Score,
		Team2Score: in.Team2Score,
		Winner:     winner,
		UploadID:   in.UploadID,
		CreatedAt:  now,
	}
	for i, p := range players {
		onTeam1 := i < 2
		pointsFor, pointsAgainst := in.Team1Score, in.Team2Score
		if !onTeam1 {
			pointsFor, pointsAgainst = in.Team2Score, in.Team1Score
		}
		won := 0
		if (onTeam1 && winner == rating.Team1) || (!onTeam1 && winner == rating.Team2) {
			won = 1
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE players SET
				mu = ?, sigma = ?,
				matches_played = matches_played + 1,
				wins = wins + ?,
				points_for = points_for + ?,
				points_against = points_against + ?,
				version = version + 1,
				updated_at = ?
			WHERE id = ? AND version = ?`,
			after[i].Mu, after[i].Sigma, won, pointsFor, pointsAgainst, now, p.ID, p.Version)
		if err != nil {
			return nil, fmt.Errorf("update player %s: %w", p.Name, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("update player %s: %w", p.Name, err)
		}
		if n == 0 {
			return nil, fmt.Errorf("%w: %s", ErrVersionConflict, p.Name)
		}

		mp := MatchPlayer{ID: p.ID, Name: p.Name}
		if onTeam1 {
			rec.Team1[i] = mp
		} else {
			rec.Team2[i-2] = mp
		}
		rec.Changes = append(rec.Changes, RatingChange{PlayerID: p.ID, Before: p.Rating(), After: after[i]})
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO matches (week, match_id, player1_id, player2_id, player3_id, player4_id,
			team1_score, team2_score, winner_team, upload_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.Week, in.MatchID, players[0].ID, players[1].ID, players[2].ID, players[3].ID,
		in.Team1Score, in.Team2Score, int(winner), nullString(in.UploadID), now)
	if err != nil {
		return nil, fmt.Errorf("insert match %s: %w", in.MatchID, err)
	}
	if rec.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("insert match %s: %w", in.MatchID, err)
	}

	if dryRun {
		log.Debug("Dry run: rolling back match", "week", in.Week, "match_id", in.MatchID)
		return rec, nil
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit match %s: %w", in.MatchID, err)
	}
	return rec, nil
}

func (s *store) resolvePlayers(ctx context.Context, tx *sql.Tx, in MatchInput) ([4]PlayerInfo, error) {
	var (
		players [4]PlayerInfo
		missing []string
	)
	for i, name := range in.names() {
		row := tx.QueryRowContext(ctx, `SELECT `+playerColumns+` FROM players WHERE name = ? COLLATE NOCASE`, strings.TrimSpace(name))
		p, err := scanPlayer(row)
		if errors.Is(err, sql.ErrNoRows) {
			missing = append(missing, name)
			continue
		}
		if err != nil {
			return players, fmt.Errorf("lookup player %s: %w", name, err)
		}
		players[i] = p
	}
	if len(missing) > 0 {
		return players, &LookupError{Week: in.Week, MatchID: in.MatchID, Names: missing, Err: ErrPlayerNotFound}
	}

	seen := make(map[string]bool, len(players))
	for _, p := range players {
		if seen[p.ID] {
			names := in.names()
			return players, &LookupError{Week: in.Week, MatchID: in.MatchID, Names: names[:], Err: ErrNotFourPlayers}
		}
		seen[p.ID] = true
	}
	return players, nil
}

const matchSelect = `
	SELECT m.id, m.week, m.match_id,
		m.player1_id, p1.name, m.player2_id, p2.name,
		m.player3_id, p3.name, m.player4_id, p4.name,
		m.team1_score, m.team2_score, m.winner_team, m.upload_id, m.created_at
	FROM matches m
	JOIN players p1 ON p1.id = m.player1_id
	JOIN players p2 ON p2.id = m.player2_id
	JOIN players p3 ON p3.id = m.player3_id
	JOIN players p4 ON p4.id = m.player4_id`

func scanMatch(row scanner) (MatchRecord, error) {
	var (
		m        MatchRecord
		uploadID sql.NullString
	)
	err := row.Scan(&m.ID, &m.Week, &m.MatchID,
		&m.Team1[0].ID, &m.Team1[0].Name, &m.Team1[1].ID, &m.Team1[1].Name,
		&m.Team2[0].ID, &m.Team2[0].Name, &m.Team2[1].ID, &m.Team2[1].Name,
		&m.Team1Score, &m.Team2Score, &m.Winner, &uploadID, &m.CreatedAt)
	m.UploadID = uploadID.String
	return m, err
}

// GetMatchesByWeek returns the week's matches in the order they were applied.
func (s *store) GetMatchesByWeek(ctx context.Context, week int) ([]MatchRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, matchSelect+` WHERE m.week = ? ORDER BY m.id ASC`, week)
	if err != nil {
		return nil, fmt.Errorf("query matches for week %d: %w", week, err)
	}
	defer rows.Close()

	var matches []MatchRecord
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// GetWeeks returns every week with at least one match, ascending.
func (s *store) GetWeeks(ctx context.Context) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT week FROM matches ORDER BY week ASC`)
	if err != nil {
		return nil, fmt.Errorf("query weeks: %w", err)
	}
	defer rows.Close()

	var weeks []int
	for rows.Next() {
		var w int
		if err := rows.Scan(&w); err != nil {
			return nil, fmt.Errorf("scan week: %w", err)
		}
		weeks = append(weeks, w)
	}
	return weeks, rows.Err()
}

// GetWeekPlayers returns the players who played in the week, in order of first
// appearance (match order, then team1 before team2).
func (s *store) GetWeekPlayers(ctx context.Context, week int) ([]PlayerInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+prefixed("p", playerColumns)+`, MIN(slot.id * 4 + slot.n) AS first_seen
		FROM (
			SELECT id, player1_id AS player_id, 0 AS n FROM matches WHERE week = ?
			UNION ALL SELECT id, player2_id, 1 FROM matches WHERE week = ?
			UNION ALL SELECT id, player3_id, 2 FROM matches WHERE week = ?
			UNION ALL SELECT id, player4_id, 3 FROM matches WHERE week = ?
		) slot
		JOIN players p ON p.id = slot.player_id
		GROUP BY p.id
		ORDER BY first_seen ASC`, week, week, week, week)
	if err != nil {
		return nil, fmt.Errorf("query players for week %d: %w", week, err)
	}
	defer rows.Close()

	var players []PlayerInfo
	for rows.Next() {
		var (
			p         PlayerInfo
			firstSeen int64
		)
		err := rows.Scan(&p.ID, &p.Name, &p.Mu, &p.Sigma, &p.MatchesPlayed, &p.Wins, &p.PointsFor,
			&p.PointsAgainst, &p.Version, &p.CreatedAt, &p.UpdatedAt, &firstSeen)
		if err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

// UpsertStandings stores the snapshot, replacing any earlier one for the same week.
func (s *store) UpsertStandings(ctx context.Context, snap *standings.Snapshot) error {
	topJSON, err := json.Marshal(snap.TopPlayers)
	if err != nil {
		return fmt.Errorf("marshal top players: %w", err)
	}
	statsJSON, err := json.Marshal(snap.Stats)
	if err != nil {
		return fmt.Errorf("marshal stats: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO weekly_standings (week, top_players_json, stats_json, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(week) DO UPDATE SET
			top_players_json = excluded.top_players_json,
			stats_json = excluded.stats_json,
			updated_at = excluded.updated_at`,
		snap.Week, string(topJSON), string(statsJSON), s.now().Unix())
	if err != nil {
		return fmt.Errorf("upsert standings for week %d: %w", snap.Week, err)
	}
	return nil
}

func scanSnapshot(row scanner) (*standings.Snapshot, error) {
	var (
		snap               standings.Snapshot
		topJSON, statsJSON string
	)
	if err := row.Scan(&snap.Week, &topJSON, &statsJSON); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(topJSON), &snap.TopPlayers); err != nil {
		return nil, fmt.Errorf("unmarshal top players for week %d: %w", snap.Week, err)
	}
	if err := json.Unmarshal([]byte(statsJSON), &snap.Stats); err != nil {
		return nil, fmt.Errorf("unmarshal stats for week %d: %w", snap.Week, err)
	}
	return &snap, nil
}

// GetStandings loads the stored snapshot for a week.
func (s *store) GetStandings(ctx context.Context, week int) (*standings.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `SELECT week, top_players_json, stats_json FROM weekly_standings WHERE week = ?`, week)
	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w %d", ErrStandingsNotFound, week)
	}
	if err != nil {
		return nil, fmt.Errorf("query standings for week %d: %w", week, err)
	}
	return snap, nil
}

// GetAllStandings returns every stored snapshot, ascending by week.
func (s *store) GetAllStandings(ctx context.Context) ([]standings.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT week, top_players_json, stats_json FROM weekly_standings ORDER BY week ASC`)
	if err != nil {
		return nil, fmt.Errorf("query standings: %w", err)
	}
	defer rows.Close()

	var snaps []standings.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, *snap)
	}
	return snaps, rows.Err()
}

// Clear removes all data from the store.
func (s *store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin clear: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"weekly_standings", "matches", "players"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit clear: %w", err)
	}
	log.Info("Store cleared")
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func prefixed(alias, columns string) string {
	parts := strings.Split(columns, ", ")
	for i, c := range parts {
		parts[i] = alias + "." + c
	}
	return strings.Join(parts, ", ")
}
