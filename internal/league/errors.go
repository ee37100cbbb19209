package league

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrPlayerNotFound      = errors.New("player not found")
	ErrNotFourPlayers      = errors.New("match does not resolve to four distinct players")
	ErrDuplicatePlayerName = errors.New("a player with that name already exists")
	ErrEmptyName           = errors.New("player name is empty")
	ErrDuplicateMatch      = errors.New("match already recorded for this week")
	ErrVersionConflict     = errors.New("player was updated concurrently")
	ErrStandingsNotFound   = errors.New("no standings stored for week")
)

// LookupError reports player names in a match that could not be resolved.
type LookupError struct {
	Week    int
	MatchID string
	Names   []string
	Err     error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("week %d match %s: %v: %s", e.Week, e.MatchID, e.Err, strings.Join(e.Names, ", "))
}

func (e *LookupError) Unwrap() error {
	return e.Err
}
