package rating

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidSigma  = errors.New("sigma must be a positive finite number")
	ErrInvalidMu     = errors.New("mu must be a finite number")
	ErrInvalidWinner = errors.New("winner must be team1 or team2")
	ErrInvalidEnv    = errors.New("invalid rating environment")
)

// ValidationError reports which input of an update was rejected.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("rating: invalid %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
