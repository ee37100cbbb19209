package processor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/mauv0809/shuttle-league/internal/ingest"
	"github.com/mauv0809/shuttle-league/internal/league"
	"github.com/mauv0809/shuttle-league/internal/metrics"
	"github.com/mauv0809/shuttle-league/internal/pubsub"
	"github.com/mauv0809/shuttle-league/internal/rating"
	"github.com/mauv0809/shuttle-league/internal/standings"
)

// New creates a new Processor.
func New(store Store, notifier Notifier, metrics metrics.Metrics, pubsub pubsub.PubSubClient, opts ...Option) *Processor {
	p := &Processor{
		store:       store,
		pubsub:      pubsub,
		notifier:    notifier,
		metrics:     metrics,
		env:         rating.DefaultEnv(),
		aggregator:  standings.NewAggregator(),
		scope:       ScopeCumulative,
		newUploadID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessUpload reads a CSV of match results and applies every valid row in file order.
// Rows that fail are recorded in the report and skipped. Once all rows are handled, the
// standings of every touched week are recomputed once, in ascending week order.
//
// If the file becomes unreadable or ctx is cancelled after some rows were applied, those
// rows stay applied: the next row is recorded as failed, reading stops, and the touched
// weeks are still recomputed. A returned error means nothing was applied.
//
// In dry-run mode every match is rolled back on its own, so later rows are rated against
// the stored ratings rather than those of earlier rows in the same file, and a match ID
// repeated within the file counts as processed each time.
func (p *Processor) ProcessUpload(ctx context.Context, r io.Reader, dryRun bool) (*ingest.Report, error) {
	start := time.Now()
	p.metrics.IncUploads()

	report := &ingest.Report{
		UploadID:  p.newUploadID(),
		DryRun:    dryRun,
		StartedAt: start.UTC(),
	}
	logger := log.FromContext(ctx).With("upload_id", report.UploadID)
	logger.Info("Starting upload processing", "dry_run", dryRun)

	reader := ingest.NewReader(r)
	touched := make(map[int]bool)
	for {
		row, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		var rowErr *ingest.RowError
		if errors.As(err, &rowErr) {
			report.Rows++
			logger.Warn("Rejected row", "error", rowErr)
			report.Fail(*rowErr)
			p.metrics.IncRowsRejected(metrics.ReasonInvalid)
			continue
		}
		if err != nil {
			if report.Processed == 0 {
				logger.Error("Upload rejected", "error", err)
				return nil, err
			}
			logger.Error("Upload truncated", "error", err)
			report.Fail(ingest.RowError{Row: report.Rows + 1, Err: err})
			p.metrics.IncRowsRejected(metrics.ReasonInvalid)
			break
		}

		report.Rows++
		if err := ctx.Err(); err != nil {
			if report.Processed == 0 {
				logger.Warn("Upload cancelled before any match was applied", "error", err)
				return nil, err
			}
			logger.Warn("Upload cancelled", "row", row.Line, "processed", report.Processed, "error", err)
			report.Fail(ingest.RowError{Row: row.Line, Week: row.Week, MatchID: row.MatchID, Err: err})
			p.metrics.IncRowsRejected(metrics.ReasonCancelled)
			break
		}
		if p.applyRow(ctx, logger, report, row, dryRun) {
			touched[row.Week] = true
		}
	}

	for week := range touched {
		report.Weeks = append(report.Weeks, week)
	}
	slices.Sort(report.Weeks)

	if dryRun {
		logger.Info("Dry run: skipping standings recompute", "weeks", report.Weeks)
	} else {
		// Applied rows are committed, so their weeks are recomputed even if the caller
		// has gone away.
		p.recomputeWeeks(context.WithoutCancel(ctx), report)
	}

	elapsed := time.Since(start)
	report.Duration = elapsed.Milliseconds()
	p.metrics.ObserveProcessingDuration(elapsed.Seconds())
	logger.Info("Upload processed", "rows", report.Rows, "processed", report.Processed,
		"duplicates", report.Duplicates, "upsets", report.Upsets, "failed", report.Failed, "duration", elapsed)

	if report.Rows > 0 {
		if err := p.notifier.SendUploadSummary(report, dryRun); err != nil {
			logger.Error("Failed to send upload summary", "error", err)
		}
	}
	return report, nil
}

// applyRow applies one match, retrying on version conflicts. It reports whether the
// match was applied.
func (p *Processor) applyRow(ctx context.Context, logger *log.Logger, report *ingest.Report, row ingest.Row, dryRun bool) bool {
	in := league.MatchInput{
		Week:       row.Week,
		MatchID:    row.MatchID,
		Team1:      row.Team1,
		Team2:      row.Team2,
		Team1Score: row.Team1Score,
		Team2Score: row.Team2Score,
		UploadID:   report.UploadID,
	}

	var (
		rec *league.MatchRecord
		err error
	)
	for attempt := 1; attempt <= MaxApplyAttempts; attempt++ {
		rec, err = p.store.ApplyMatch(ctx, in, p.env.Update, dryRun)
		if !errors.Is(err, league.ErrVersionConflict) {
			break
		}
		logger.Warn("Version conflict applying match, retrying", "week", row.Week, "match_id", row.MatchID, "attempt", attempt)
	}

	var (
		lookupErr *league.LookupError
		validErr  *rating.ValidationError
		reason    string
	)
	switch {
	case err == nil:
		report.Processed++
		p.metrics.IncMatchesProcessed()
		if prob, ok := p.winnerOdds(rec); ok && prob < 0.5 {
			report.Upsets++
			logger.Info("Upset", "week", row.Week, "match_id", row.MatchID, "winner_odds", prob)
		}
		logger.Debug("Applied match", "week", row.Week, "match_id", row.MatchID)
		return true
	case errors.Is(err, league.ErrDuplicateMatch):
		report.Duplicates++
		p.metrics.IncRowsRejected(metrics.ReasonDuplicate)
		logger.Info("Skipping duplicate match", "week", row.Week, "match_id", row.MatchID)
		return false
	case errors.As(err, &lookupErr):
		reason = metrics.ReasonLookup
	case errors.As(err, &validErr):
		reason = metrics.ReasonInvalid
	case errors.Is(err, league.ErrVersionConflict):
		reason = metrics.ReasonConflict
	default:
		reason = metrics.ReasonStore
	}

	logger.Warn("Failed to apply match", "week", row.Week, "match_id", row.MatchID, "reason", reason, "error", err)
	report.Fail(ingest.RowError{Row: row.Line, Week: row.Week, MatchID: row.MatchID, Err: err})
	p.metrics.IncRowsRejected(reason)
	return false
}

// winnerOdds returns the chance the winning team had before the match, from the ratings
// the match was rated with.
func (p *Processor) winnerOdds(rec *league.MatchRecord) (float64, bool) {
	if rec == nil || len(rec.Changes) != 4 {
		return 0, false
	}
	team1 := rating.Team{rec.Changes[0].Before, rec.Changes[1].Before}
	team2 := rating.Team{rec.Changes[2].Before, rec.Changes[3].Before}
	prob := p.env.WinProbability(team1, team2)
	if rec.Winner == rating.Team2 {
		prob = 1 - prob
	}
	return prob, true
}

func (p *Processor) recomputeWeeks(ctx context.Context, report *ingest.Report) {
	logger := log.FromContext(ctx)
	for _, week := range report.Weeks {
		snap, err := p.RecomputeWeek(ctx, week, false)
		if err != nil {
			logger.Error("Failed to recompute standings", "week", week, "error", err)
			continue
		}

		event := pubsub.StandingsUpdated{Week: week, UploadID: report.UploadID}
		if err := p.pubsub.SendMessage(pubsub.EventStandingsUpdated, event); err != nil {
			logger.Error("Failed to publish standings update", "week", week, "error", err)
		}
		if p.notifyDirect {
			if err := p.notifier.SendWeeklyStandings(snap, false); err != nil {
				logger.Error("Failed to send weekly standings", "week", week, "error", err)
			}
		}
	}
}

// RecomputeWeek aggregates the standings for one week from the stored matches and, unless
// dryRun is set, stores the snapshot. Concurrent calls for the same week share one run.
func (p *Processor) RecomputeWeek(ctx context.Context, week int, dryRun bool) (*standings.Snapshot, error) {
	key := strconv.Itoa(week) + "/" + strconv.FormatBool(dryRun)
	v, err, shared := p.recomputes.Do(key, func() (any, error) {
		return p.recompute(ctx, week, dryRun)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		log.FromContext(ctx).Debug("Shared standings recompute", "week", week)
	}
	return v.(*standings.Snapshot), nil
}

func (p *Processor) recompute(ctx context.Context, week int, dryRun bool) (*standings.Snapshot, error) {
	logger := log.FromContext(ctx)
	matches, err := p.store.GetMatchesByWeek(ctx, week)
	if err != nil {
		return nil, fmt.Errorf("load matches for week %d: %w", week, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w %d", ErrNoMatches, week)
	}

	players, err := p.store.GetWeekPlayers(ctx, week)
	if err != nil {
		return nil, fmt.Errorf("load players for week %d: %w", week, err)
	}
	stats := make([]standings.PlayerWeekStats, len(players))
	for i, pl := range players {
		stats[i] = pl.WeekStats()
	}
	if p.scope == ScopeWeek {
		lines := make([]standings.MatchLine, len(matches))
		for i, m := range matches {
			lines[i] = m.Line()
		}
		stats = standings.FoldWeek(stats, lines)
	}

	snap, err := p.aggregator.Aggregate(stats, week)
	if err != nil {
		return nil, fmt.Errorf("aggregate week %d: %w", week, err)
	}

	if dryRun {
		logger.Info("Dry run: not storing standings", "week", week)
		return snap, nil
	}
	if err := p.store.UpsertStandings(ctx, snap); err != nil {
		return nil, err
	}
	p.metrics.IncStandingsRecomputed()
	logger.Info("Recomputed standings", "week", week, "players", len(stats), "scope", p.scope)
	return snap, nil
}

// NotifyStandings posts a stored week's standings to Slack.
func (p *Processor) NotifyStandings(ctx context.Context, week int, dryRun bool) error {
	snap, err := p.store.GetStandings(ctx, week)
	if err != nil {
		return err
	}
	return p.notifier.SendWeeklyStandings(snap, dryRun)
}
