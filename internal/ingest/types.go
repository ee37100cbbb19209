package ingest

import (
	"time"

	"github.com/mauv0809/shuttle-league/internal/rating"
)

// Row is one validated match from an upload.
type Row struct {
	Line       int
	Week       int
	MatchID    string
	Team1      [2]string
	Team2      [2]string
	Team1Score int
	Team2Score int
	// DeclaredWinner is the optional winner_team column, zero when absent.
	DeclaredWinner rating.Winner
}

// Winner derives the winning team from the scores.
func (r Row) Winner() rating.Winner {
	if r.Team1Score > r.Team2Score {
		return rating.Team1
	}
	return rating.Team2
}

// Players returns the four names in team order.
func (r Row) Players() [4]string {
	return [4]string{r.Team1[0], r.Team1[1], r.Team2[0], r.Team2[1]}
}

// Report summarises one upload.
type Report struct {
	UploadID   string     `json:"upload_id"`
	DryRun     bool       `json:"dry_run"`
	Rows       int        `json:"rows"`
	Processed  int        `json:"processed"`
	Duplicates int        `json:"duplicates"`
	Upsets     int        `json:"upsets"`
	Failed     int        `json:"failed"`
	Errors     []RowError `json:"errors,omitempty"`
	Weeks      []int      `json:"weeks"`
	StartedAt  time.Time  `json:"started_at"`
	Duration   int64      `json:"duration_ms"`
}

// Fail records a rejected row.
func (r *Report) Fail(err RowError) {
	r.Failed++
	r.Errors = append(r.Errors, err)
}

// OK reports whether every row was applied or skipped as a duplicate.
func (r *Report) OK() bool {
	return r.Failed == 0
}
