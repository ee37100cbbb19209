package processor

import (
	"errors"
	"fmt"

	"github.com/mauv0809/shuttle-league/internal/metrics"
	"github.com/mauv0809/shuttle-league/internal/pubsub"
	"github.com/mauv0809/shuttle-league/internal/rating"
	"github.com/mauv0809/shuttle-league/internal/standings"
	"golang.org/x/sync/singleflight"
)

// MaxApplyAttempts bounds how often a match is retried after a version conflict.
const MaxApplyAttempts = 3

var ErrNoMatches = errors.New("no matches recorded for week")

// Scope selects which counters feed a week's standings.
type Scope string

const (
	// ScopeCumulative uses each player's lifetime counters.
	ScopeCumulative Scope = "cumulative"
	// ScopeWeek folds the counters from that week's matches only.
	ScopeWeek Scope = "week"
)

// ParseScope validates a configured scope name.
func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case ScopeCumulative, ScopeWeek:
		return Scope(s), nil
	case "":
		return ScopeCumulative, nil
	}
	return "", fmt.Errorf("unknown standings scope %q", s)
}

// Processor handles the business logic of ingesting uploads and maintaining standings.
type Processor struct {
	store      Store
	pubsub     pubsub.PubSubClient
	notifier   Notifier
	metrics    metrics.Metrics
	env        rating.Env
	aggregator *standings.Aggregator
	scope      Scope
	// notifyDirect sends standings to Slack right after a recompute instead of relying
	// on the Pub/Sub push subscription.
	notifyDirect bool
	recomputes   singleflight.Group
	newUploadID  func() string
}

// Option configures a Processor.
type Option func(*Processor)

// WithEnv sets the rating constants.
func WithEnv(env rating.Env) Option {
	return func(p *Processor) {
		p.env = env
	}
}

// WithScope sets the standings scope.
func WithScope(scope Scope) Option {
	return func(p *Processor) {
		p.scope = scope
	}
}

// WithAggregator replaces the default standings aggregator.
func WithAggregator(a *standings.Aggregator) Option {
	return func(p *Processor) {
		p.aggregator = a
	}
}

// WithDirectNotify makes the processor post standings itself after each recompute.
func WithDirectNotify(enabled bool) Option {
	return func(p *Processor) {
		p.notifyDirect = enabled
	}
}

// WithUploadIDs replaces the upload ID generator.
func WithUploadIDs(newID func() string) Option {
	return func(p *Processor) {
		p.newUploadID = newID
	}
}
