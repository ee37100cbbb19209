package standings

import "errors"

var (
	ErrNoPlayers   = errors.New("standings: no players to aggregate")
	ErrInvalidWeek = errors.New("standings: week must be >= 1")
)
