package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrEmptyFile       = errors.New("csv has no header row")
	ErrMissingColumn   = errors.New("csv is missing required columns")
	ErrMalformedCSV    = errors.New("csv is malformed")
	ErrInvalidWeek     = errors.New("week must be an integer >= 1")
	ErrMissingMatchID  = errors.New("match id is empty")
	ErrMissingPlayer   = errors.New("player name is empty")
	ErrDuplicatePlayer = errors.New("player appears more than once in the match")
	ErrInvalidScore    = errors.New("score must be a non-negative integer")
	ErrTiedScore       = errors.New("scores are tied; a completed match has a winner")
	ErrInvalidWinner   = errors.New("winner_team must be 1 or 2")
	ErrWinnerMismatch  = errors.New("winner_team disagrees with the scores")
)

// RowError is a problem with one data row. Row is the 1-based data row number, not
// counting the header.
type RowError struct {
	Row     int
	Week    int
	MatchID string
	Err     error
}

func (e *RowError) Error() string {
	switch {
	case e.MatchID != "" && e.Week > 0:
		return fmt.Sprintf("row %d (week %d, match %s): %v", e.Row, e.Week, e.MatchID, e.Err)
	case e.MatchID != "":
		return fmt.Sprintf("row %d (match %s): %v", e.Row, e.MatchID, e.Err)
	default:
		return fmt.Sprintf("row %d: %v", e.Row, e.Err)
	}
}

func (e *RowError) Unwrap() error {
	return e.Err
}

func (e RowError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Row     int    `json:"row"`
		Week    int    `json:"week,omitempty"`
		MatchID string `json:"match_id,omitempty"`
		Error   string `json:"error"`
	}{
		Row:     e.Row,
		Week:    e.Week,
		MatchID: e.MatchID,
		Error:   e.Err.Error(),
	})
}
