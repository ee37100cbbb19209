package processor

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/mauv0809/shuttle-league/internal/database"
	"github.com/mauv0809/shuttle-league/internal/ingest"
	"github.com/mauv0809/shuttle-league/internal/league"
	"github.com/mauv0809/shuttle-league/internal/metrics"
	"github.com/mauv0809/shuttle-league/internal/notifier"
	"github.com/mauv0809/shuttle-league/internal/pubsub"
	"github.com/mauv0809/shuttle-league/internal/standings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const header = "week,match_id,player1,player2,player3,player4,team1_score,team2_score\n"

type fixture struct {
	store  league.LeagueStore
	notif  *notifier.Mock
	metr   *metrics.Mock
	pubsub *pubsub.MockPubSubClient
	p      *Processor
}

// setup wires a processor to an in-memory league with the given players.
func setup(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	db, teardown, err := database.InitDB(":memory:", "", "")
	require.NoError(t, err)
	t.Cleanup(teardown)

	store := league.New(db)
	for _, name := range []string{"Alice", "Bob", "Carol", "Dan", "Erin", "Frank"} {
		_, err := store.AddPlayer(context.Background(), name)
		require.NoError(t, err)
	}

	f := &fixture{
		store:  store,
		notif:  notifier.NewMock(),
		metr:   metrics.NewMock(),
		pubsub: pubsub.NewMock(),
	}
	opts = append([]Option{WithUploadIDs(func() string { return "upload-1" })}, opts...)
	f.p = New(store, f.notif, f.metr, f.pubsub, opts...)
	return f
}

func (f *fixture) upload(t *testing.T, csv string, dryRun bool) *ingest.Report {
	t.Helper()
	report, err := f.p.ProcessUpload(context.Background(), strings.NewReader(csv), dryRun)
	require.NoError(t, err)
	return report
}

func TestProcessUpload_AppliesRowsAndRecomputesWeeks(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	report := f.upload(t, header+
		"2,m1,Alice,Bob,Carol,Dan,21,15\n"+
		"1,m1,Alice,Carol,Bob,Dan,21,19\n"+
		"2,m2,Alice,Erin,Bob,Frank,18,21\n", false)

	assert.Equal(t, "upload-1", report.UploadID)
	assert.Equal(t, 3, report.Rows)
	assert.Equal(t, 3, report.Processed)
	assert.Zero(t, report.Failed)
	assert.Equal(t, []int{1, 2}, report.Weeks)

	// One event per week, ascending.
	require.Len(t, f.pubsub.SendMessageCalls, 2)
	assert.Equal(t, pubsub.EventStandingsUpdated, f.pubsub.SendMessageCalls[0].Topic)
	assert.Equal(t, pubsub.StandingsUpdated{Week: 1, UploadID: "upload-1"}, f.pubsub.SendMessageCalls[0].Data)
	assert.Equal(t, pubsub.StandingsUpdated{Week: 2, UploadID: "upload-1"}, f.pubsub.SendMessageCalls[1].Data)

	require.Len(t, f.notif.SendUploadSummaryCalls, 1)
	assert.Same(t, report, f.notif.SendUploadSummaryCalls[0])
	assert.Empty(t, f.notif.SendWeeklyStandingsCalls)

	assert.Equal(t, 1, f.metr.Uploads())
	assert.Equal(t, 3, f.metr.MatchesProcessed())
	assert.Equal(t, 2, f.metr.StandingsRecomputed())
	assert.Len(t, f.metr.ProcessingDurations(), 1)

	week2, err := f.store.GetStandings(ctx, 2)
	require.NoError(t, err)
	require.Len(t, week2.TopPlayers, 3)
	require.NotNil(t, week2.Stats.MostMatches)
	assert.Equal(t, "Alice", week2.Stats.MostMatches.Name, "Alice played all three matches")
	assert.Equal(t, 3, week2.Stats.MostMatches.Matches, "cumulative scope uses lifetime counters")
	require.NotNil(t, week2.Stats.BestWinRate)

	all, err := f.store.GetAllStandings(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestProcessUpload_RowIsolation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	report := f.upload(t, header+
		"1,m1,Alice,Bob,Carol,Dan,21,21\n"+
		"1,m2,Alice,Bob,Carol,Dan,21,12\n"+
		"1,m3,Alice,Zed,Carol,Dan,21,12\n"+
		"1,m4,Erin,Bob,Carol,Frank,5,21\n", false)

	assert.Equal(t, 4, report.Rows)
	assert.Equal(t, 2, report.Processed)
	assert.Equal(t, 2, report.Failed)
	require.Len(t, report.Errors, 2)

	assert.Equal(t, 1, report.Errors[0].Row)
	assert.ErrorIs(t, report.Errors[0].Err, ingest.ErrTiedScore)

	assert.Equal(t, 3, report.Errors[1].Row)
	assert.Equal(t, "m3", report.Errors[1].MatchID)
	var lookupErr *league.LookupError
	require.True(t, errors.As(report.Errors[1].Err, &lookupErr))
	assert.Equal(t, []string{"Zed"}, lookupErr.Names)

	assert.Equal(t, 1, f.metr.RowsRejected(metrics.ReasonInvalid))
	assert.Equal(t, 1, f.metr.RowsRejected(metrics.ReasonLookup))

	matches, err := f.store.GetMatchesByWeek(ctx, 1)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "m2", matches[0].MatchID)
	assert.Equal(t, "m4", matches[1].MatchID)
}

func TestProcessUpload_ReuploadCountsDuplicates(t *testing.T) {
	f := setup(t)
	csv := header + "1,m1,Alice,Bob,Carol,Dan,21,15\n1,m2,Alice,Carol,Bob,Dan,21,19\n"

	first := f.upload(t, csv, false)
	require.Equal(t, 2, first.Processed)

	f.pubsub.Reset()
	second := f.upload(t, csv, false)
	assert.Equal(t, 0, second.Processed)
	assert.Equal(t, 2, second.Duplicates)
	assert.Zero(t, second.Failed)
	assert.True(t, second.OK())
	assert.Empty(t, second.Weeks)
	assert.Empty(t, f.pubsub.SendMessageCalls, "nothing changed, nothing to announce")
	assert.Equal(t, 2, f.metr.RowsRejected(metrics.ReasonDuplicate))

	alice, err := f.store.GetPlayerByName(context.Background(), "Alice")
	require.NoError(t, err)
	assert.Equal(t, 2, alice.MatchesPlayed)
}

func TestProcessUpload_DryRun(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	report := f.upload(t, header+"1,m1,Alice,Bob,Carol,Dan,21,15\n", true)
	assert.True(t, report.DryRun)
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, []int{1}, report.Weeks)

	assert.Empty(t, f.pubsub.SendMessageCalls)
	assert.Zero(t, f.metr.StandingsRecomputed())

	weeks, err := f.store.GetWeeks(ctx)
	require.NoError(t, err)
	assert.Empty(t, weeks)
	_, err = f.store.GetStandings(ctx, 1)
	assert.ErrorIs(t, err, league.ErrStandingsNotFound)
}

func TestProcessUpload_DryRunRatesRowsIndependently(t *testing.T) {
	f := setup(t)

	report := f.upload(t, header+
		"1,m1,Alice,Bob,Carol,Dan,21,15\n"+
		"1,m1,Alice,Bob,Carol,Dan,21,15\n"+
		"1,m2,Alice,Bob,Carol,Dan,12,21\n", true)
	assert.Equal(t, 3, report.Processed, "each match is rolled back before the next row")
	assert.Zero(t, report.Duplicates)
	assert.Zero(t, report.Upsets, "every row is rated against the stored ratings")
}

func TestProcessUpload_CountsUpsets(t *testing.T) {
	f := setup(t)

	report := f.upload(t, header+
		"1,m1,Alice,Bob,Carol,Dan,21,15\n"+
		"1,m2,Alice,Bob,Carol,Dan,12,21\n", false)
	assert.Equal(t, 2, report.Processed)
	assert.Equal(t, 1, report.Upsets, "even odds are no upset, beating the favourites is")
}

// lineReader returns one line per Read and calls before[i] ahead of returning line i.
type lineReader struct {
	lines  []string
	next   int
	before map[int]func()
}

func (r *lineReader) Read(p []byte) (int, error) {
	if r.next >= len(r.lines) {
		return 0, io.EOF
	}
	if fn := r.before[r.next]; fn != nil {
		fn()
	}
	n := copy(p, r.lines[r.next])
	r.next++
	return n, nil
}

func TestProcessUpload_CancelledMidUpload(t *testing.T) {
	f := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := &lineReader{
		lines: []string{
			header,
			"1,m1,Alice,Bob,Carol,Dan,21,15\n",
			"1,m2,Alice,Carol,Bob,Dan,21,19\n",
		},
		before: map[int]func(){2: cancel},
	}
	report, err := f.p.ProcessUpload(ctx, r, false)
	require.NoError(t, err, "applied rows must be reported")

	assert.Equal(t, 2, report.Rows)
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, 2, report.Errors[0].Row)
	assert.Equal(t, "m2", report.Errors[0].MatchID)
	assert.ErrorIs(t, report.Errors[0].Err, context.Canceled)
	assert.Equal(t, []int{1}, report.Weeks)
	assert.Equal(t, 1, f.metr.RowsRejected(metrics.ReasonCancelled))

	matches, err := f.store.GetMatchesByWeek(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	_, err = f.store.GetStandings(context.Background(), 1)
	assert.NoError(t, err, "the touched week is recomputed despite the cancellation")
	assert.Len(t, f.pubsub.SendMessageCalls, 1)
	assert.Len(t, f.notif.SendUploadSummaryCalls, 1)
}

func TestProcessUpload_CancelledBeforeAnyRow(t *testing.T) {
	f := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.p.ProcessUpload(ctx, strings.NewReader(header+"1,m1,Alice,Bob,Carol,Dan,21,15\n"), false)
	assert.ErrorIs(t, err, context.Canceled)

	weeks, err := f.store.GetWeeks(context.Background())
	require.NoError(t, err)
	assert.Empty(t, weeks)
	assert.Empty(t, f.notif.SendUploadSummaryCalls)
}

func TestProcessUpload_HeaderErrorAbortsBeforeWrites(t *testing.T) {
	store := league.NewMock()
	notif := notifier.NewMock()
	p := New(store, notif, metrics.NewMock(), pubsub.NewMock())

	_, err := p.ProcessUpload(context.Background(), strings.NewReader("week,player1\n1,Alice\n"), false)
	assert.ErrorIs(t, err, ingest.ErrMissingColumn)

	_, err = p.ProcessUpload(context.Background(), strings.NewReader(""), false)
	assert.ErrorIs(t, err, ingest.ErrEmptyFile)

	assert.Empty(t, store.ApplyMatchCalls)
	assert.Empty(t, notif.SendUploadSummaryCalls)
}

func TestProcessUpload_RetriesVersionConflicts(t *testing.T) {
	t.Run("succeeds within the attempt budget", func(t *testing.T) {
		store := league.NewMock()
		calls := 0
		store.ApplyMatchFunc = func(ctx context.Context, in league.MatchInput, rate league.RateFunc, dryRun bool) (*league.MatchRecord, error) {
			calls++
			if calls < MaxApplyAttempts {
				return nil, league.ErrVersionConflict
			}
			return &league.MatchRecord{Week: in.Week, MatchID: in.MatchID}, nil
		}
		store.GetMatchesByWeekFunc = func(ctx context.Context, week int) ([]league.MatchRecord, error) {
			return []league.MatchRecord{{Week: week}}, nil
		}
		store.GetWeekPlayersFunc = func(ctx context.Context, week int) ([]league.PlayerInfo, error) {
			return []league.PlayerInfo{{ID: "a", Name: "Alice", Mu: 25, Sigma: 8, MatchesPlayed: 1}}, nil
		}

		metr := metrics.NewMock()
		p := New(store, notifier.NewMock(), metr, pubsub.NewMock())
		report, err := p.ProcessUpload(context.Background(), strings.NewReader(header+"1,m1,Alice,Bob,Carol,Dan,21,15\n"), false)
		require.NoError(t, err)

		assert.Equal(t, 1, report.Processed)
		assert.Len(t, store.ApplyMatchCalls, MaxApplyAttempts)
		require.Len(t, store.UpsertStandingsCalls, 1)
		assert.Equal(t, 1, store.UpsertStandingsCalls[0].Week)
	})

	t.Run("gives up after the attempt budget", func(t *testing.T) {
		store := league.NewMock()
		store.ApplyMatchFunc = func(ctx context.Context, in league.MatchInput, rate league.RateFunc, dryRun bool) (*league.MatchRecord, error) {
			return nil, league.ErrVersionConflict
		}

		metr := metrics.NewMock()
		p := New(store, notifier.NewMock(), metr, pubsub.NewMock())
		report, err := p.ProcessUpload(context.Background(), strings.NewReader(header+"1,m1,Alice,Bob,Carol,Dan,21,15\n"), false)
		require.NoError(t, err)

		assert.Equal(t, 1, report.Failed)
		assert.ErrorIs(t, report.Errors[0].Err, league.ErrVersionConflict)
		assert.Len(t, store.ApplyMatchCalls, MaxApplyAttempts)
		assert.Equal(t, 1, metr.RowsRejected(metrics.ReasonConflict))
		assert.Empty(t, store.UpsertStandingsCalls)
	})
}

func TestProcessUpload_StoreFailureIsIsolated(t *testing.T) {
	store := league.NewMock()
	store.ApplyMatchFunc = func(ctx context.Context, in league.MatchInput, rate league.RateFunc, dryRun bool) (*league.MatchRecord, error) {
		if in.MatchID == "bad" {
			return nil, errors.New("disk full")
		}
		return &league.MatchRecord{}, nil
	}
	store.GetMatchesByWeekFunc = func(ctx context.Context, week int) ([]league.MatchRecord, error) {
		return []league.MatchRecord{{Week: week}}, nil
	}
	store.GetWeekPlayersFunc = func(ctx context.Context, week int) ([]league.PlayerInfo, error) {
		return []league.PlayerInfo{{ID: "a", MatchesPlayed: 1}}, nil
	}

	metr := metrics.NewMock()
	p := New(store, notifier.NewMock(), metr, pubsub.NewMock())
	report, err := p.ProcessUpload(context.Background(), strings.NewReader(header+
		"1,bad,Alice,Bob,Carol,Dan,21,15\n"+
		"1,good,Alice,Bob,Carol,Dan,21,15\n"), false)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, metr.RowsRejected(metrics.ReasonStore))
	assert.Len(t, store.ApplyMatchCalls, 2, "store errors are not retried")
}

func TestProcessUpload_DirectNotify(t *testing.T) {
	f := setup(t, WithDirectNotify(true))

	f.upload(t, header+"3,m1,Alice,Bob,Carol,Dan,21,15\n", false)
	require.Len(t, f.notif.SendWeeklyStandingsCalls, 1)
	assert.Equal(t, 3, f.notif.SendWeeklyStandingsCalls[0].Week)
}

func TestProcessUpload_PublishFailureDoesNotFailUpload(t *testing.T) {
	f := setup(t)
	f.pubsub.SendMessageFunc = func(topic pubsub.EventType, data any) error {
		return errors.New("pubsub unavailable")
	}

	report := f.upload(t, header+"1,m1,Alice,Bob,Carol,Dan,21,15\n", false)
	assert.Equal(t, 1, report.Processed)

	_, err := f.store.GetStandings(context.Background(), 1)
	assert.NoError(t, err)
}

func TestRecomputeWeek(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.p.RecomputeWeek(ctx, 1, false)
	assert.ErrorIs(t, err, ErrNoMatches)

	f.upload(t, header+"1,m1,Alice,Bob,Carol,Dan,21,15\n", false)
	stored, err := f.store.GetStandings(ctx, 1)
	require.NoError(t, err)

	again, err := f.p.RecomputeWeek(ctx, 1, false)
	require.NoError(t, err)
	assert.Equal(t, stored, again, "recomputing unchanged data is idempotent")

	_, err = f.p.RecomputeWeek(ctx, 2, false)
	assert.ErrorIs(t, err, ErrNoMatches)
	_, err = f.store.GetStandings(ctx, 2)
	assert.ErrorIs(t, err, league.ErrStandingsNotFound, "empty weeks are never written")
}

func TestRecomputeWeek_DryRunDoesNotStore(t *testing.T) {
	store := league.NewMock()
	store.GetMatchesByWeekFunc = func(ctx context.Context, week int) ([]league.MatchRecord, error) {
		return []league.MatchRecord{{Week: week}}, nil
	}
	store.GetWeekPlayersFunc = func(ctx context.Context, week int) ([]league.PlayerInfo, error) {
		return []league.PlayerInfo{{ID: "a", Name: "Alice", Mu: 25, Sigma: 5, MatchesPlayed: 1}}, nil
	}
	p := New(store, notifier.NewMock(), metrics.NewMock(), pubsub.NewMock())

	snap, err := p.RecomputeWeek(context.Background(), 4, true)
	require.NoError(t, err)
	assert.Equal(t, 4, snap.Week)
	assert.Equal(t, 10.0, snap.TopPlayers[0].Rating)
	assert.Empty(t, store.UpsertStandingsCalls)
}

func TestRecomputeWeek_ConcurrentCallsAgree(t *testing.T) {
	f := setup(t)
	f.upload(t, header+"1,m1,Alice,Bob,Carol,Dan,21,15\n", false)

	var wg sync.WaitGroup
	results := make([]*standings.Snapshot, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			snap, err := f.p.RecomputeWeek(context.Background(), 1, false)
			assert.NoError(t, err)
			results[i] = snap
		}(i)
	}
	wg.Wait()

	for _, snap := range results[1:] {
		assert.Equal(t, results[0], snap)
	}
}

func TestStandingsScope(t *testing.T) {
	csv := header +
		"1,m1,Alice,Bob,Carol,Dan,21,15\n" +
		"1,m2,Alice,Bob,Carol,Dan,21,17\n" +
		"2,m1,Alice,Carol,Bob,Dan,21,19\n"

	t.Run("cumulative", func(t *testing.T) {
		f := setup(t, WithScope(ScopeCumulative))
		f.upload(t, csv, false)

		snap, err := f.store.GetStandings(context.Background(), 2)
		require.NoError(t, err)
		assert.Equal(t, 3, snap.Stats.MostMatches.Matches)
		assert.Equal(t, 63, snap.Stats.MostPoints.Points)
	})

	t.Run("week", func(t *testing.T) {
		f := setup(t, WithScope(ScopeWeek))
		f.upload(t, csv, false)

		snap, err := f.store.GetStandings(context.Background(), 2)
		require.NoError(t, err)
		assert.Equal(t, 1, snap.Stats.MostMatches.Matches)
		assert.Equal(t, 21, snap.Stats.MostPoints.Points)
		assert.Nil(t, snap.Stats.BestWinRate, "nobody has three matches in a single week")
	})
}

func TestNotifyStandings(t *testing.T) {
	store := league.NewMock()
	notif := notifier.NewMock()
	p := New(store, notif, metrics.NewMock(), pubsub.NewMock())

	err := p.NotifyStandings(context.Background(), 5, false)
	assert.ErrorIs(t, err, league.ErrStandingsNotFound)
	assert.Empty(t, notif.SendWeeklyStandingsCalls)

	snap := &standings.Snapshot{Week: 5}
	store.GetStandingsFunc = func(ctx context.Context, week int) (*standings.Snapshot, error) {
		return snap, nil
	}
	require.NoError(t, p.NotifyStandings(context.Background(), 5, true))
	require.Len(t, notif.SendWeeklyStandingsCalls, 1)
	assert.Same(t, snap, notif.SendWeeklyStandingsCalls[0])
}

func TestParseScope(t *testing.T) {
	s, err := ParseScope("")
	require.NoError(t, err)
	assert.Equal(t, ScopeCumulative, s)

	s, err = ParseScope("week")
	require.NoError(t, err)
	assert.Equal(t, ScopeWeek, s)

	_, err = ParseScope("season")
	assert.Error(t, err)
}
