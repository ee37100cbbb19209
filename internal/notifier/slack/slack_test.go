package slack

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/mauv0809/shuttle-league/internal/ingest"
	"github.com/mauv0809/shuttle-league/internal/league"
	"github.com/mauv0809/shuttle-league/internal/metrics"
	"github.com/mauv0809/shuttle-league/internal/standings"
	slackapi "github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockSlackAPI is a mock implementation of the parts of the slack.Client that we use.
type mockSlackAPI struct {
	postMessageContextFunc func(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error)
}

func (m *mockSlackAPI) PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error) {
	if m.postMessageContextFunc != nil {
		return m.postMessageContextFunc(ctx, channelID, options...)
	}
	return "C12345", "123456789.12345", nil
}

func sectionText(t *testing.T, block slackapi.Block) string {
	t.Helper()
	s, ok := block.(*slackapi.SectionBlock)
	require.True(t, ok, "expected a section block, got %T", block)
	return s.Text.Text
}

func headerText(t *testing.T, block slackapi.Block) string {
	t.Helper()
	h, ok := block.(*slackapi.HeaderBlock)
	require.True(t, ok, "expected a header block, got %T", block)
	return h.Text.Text
}

func TestSendMessage_DryRun(t *testing.T) {
	metrics := metrics.NewMock()
	// Pass nil for the api, as it shouldn't be called in dry-run mode.
	notifier := NewNotifierWithAPI(nil, "C123", metrics)

	_, _, err := notifier.sendMessage(slackapi.NewBlockMessage(), true)
	require.NoError(t, err)
	assert.Equal(t, 0, metrics.SlackNotifSent())
}

func TestNewNotifier_WithoutTokenOnlyLogs(t *testing.T) {
	metrics := metrics.NewMock()
	notifier := NewNotifier("", "C123", metrics)

	err := notifier.SendLeaderboard(nil, false)
	require.NoError(t, err)
	assert.Equal(t, 0, metrics.SlackNotifSent())
	assert.Equal(t, 0, metrics.SlackNotifFailed())
}

func TestSendMessage_Success(t *testing.T) {
	postMessageCalled := false
	api := &mockSlackAPI{
		postMessageContextFunc: func(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error) {
			postMessageCalled = true
			assert.Equal(t, "C123", channelID)
			_, hasDeadline := ctx.Deadline()
			assert.True(t, hasDeadline, "posts are bounded by a timeout")
			return "C123", "ts123", nil
		},
	}

	metrics := metrics.NewMock()
	notifier := NewNotifierWithAPI(api, "C123", metrics)

	message := slackapi.NewBlockMessage(slackapi.NewSectionBlock(slackapi.NewTextBlockObject("plain_text", "hello", false, false), nil, nil))
	_, _, err := notifier.sendMessage(message, false)

	require.NoError(t, err)
	assert.True(t, postMessageCalled, "PostMessageContext should have been called")
	assert.Equal(t, 1, metrics.SlackNotifSent())
	assert.Equal(t, 0, metrics.SlackNotifFailed())
}

func TestSendMessage_Failure(t *testing.T) {
	expectedErr := errors.New("slack API is down")
	api := &mockSlackAPI{
		postMessageContextFunc: func(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error) {
			return "", "", expectedErr
		},
	}

	metrics := metrics.NewMock()
	notifier := NewNotifierWithAPI(api, "C123", metrics)

	_, _, err := notifier.sendMessage(slackapi.NewBlockMessage(), false)

	require.Error(t, err)
	assert.ErrorIs(t, err, expectedErr)
	assert.Equal(t, 0, metrics.SlackNotifSent())
	assert.Equal(t, 1, metrics.SlackNotifFailed())
}

func TestSendWeeklyStandings_CallsSender(t *testing.T) {
	calls := 0
	api := &mockSlackAPI{
		postMessageContextFunc: func(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error) {
			calls++
			return "C123", "ts123", nil
		},
	}
	notifier := NewNotifierWithAPI(api, "C123", metrics.NewMock())

	require.NoError(t, notifier.SendWeeklyStandings(&standings.Snapshot{Week: 1}, false))
	require.NoError(t, notifier.SendUploadSummary(&ingest.Report{}, false))
	assert.Equal(t, 2, calls)
}

func TestFormatWeeklyStandings(t *testing.T) {
	snap, err := standings.Aggregate([]standings.PlayerWeekStats{
		{ID: "a", Name: "Alice", Rating: 10.5, MatchesPlayed: 5, Wins: 3, PointsFor: 50, PointsAgainst: 20},
		{ID: "b", Name: "Bob", Rating: 12.1, MatchesPlayed: 2, Wins: 2, PointsFor: 30, PointsAgainst: 10},
	}, 3)
	require.NoError(t, err)

	client := &Notifier{channelID: "C123"}
	msg := client.formatWeeklyStandings(snap)
	require.Len(t, msg.Blocks.BlockSet, 4)

	assert.Contains(t, headerText(t, msg.Blocks.BlockSet[0]), "Week 3 Standings")

	top := sectionText(t, msg.Blocks.BlockSet[1])
	assert.Contains(t, top, "1. :first_place_medal: *Bob*  rating 12.10  (2/2 won)")
	assert.Contains(t, top, "2. :second_place_medal: *Alice*")

	_, ok := msg.Blocks.BlockSet[2].(*slackapi.DividerBlock)
	assert.True(t, ok)

	stats := sectionText(t, msg.Blocks.BlockSet[3])
	assert.Contains(t, stats, "*Most matches*: Alice (5)")
	assert.Contains(t, stats, "*Best win rate*: Alice (60%)")
	assert.Contains(t, stats, "*Most points*: Alice (50)")
	assert.Contains(t, stats, "*Fewest points conceded*: Bob (10)")
}

func TestFormatWeeklyStandings_NoWinRateQualifier(t *testing.T) {
	snap, err := standings.Aggregate([]standings.PlayerWeekStats{{ID: "a", Name: "Alice", MatchesPlayed: 1, Wins: 1}}, 1)
	require.NoError(t, err)

	msg := (&Notifier{}).formatWeeklyStandings(snap)
	assert.Contains(t, sectionText(t, msg.Blocks.BlockSet[3]), "*Best win rate*: n/a")
}

func TestFormatWeeklyStandings_Empty(t *testing.T) {
	msg := (&Notifier{}).formatWeeklyStandings(&standings.Snapshot{Week: 9})
	require.Len(t, msg.Blocks.BlockSet, 2)
	assert.Equal(t, "No matches were played this week.", sectionText(t, msg.Blocks.BlockSet[1]))
}

func TestFormatUploadSummary(t *testing.T) {
	report := &ingest.Report{Rows: 10, Processed: 2, Duplicates: 1, Upsets: 1, Weeks: []int{1, 2}}
	for i := 0; i < 7; i++ {
		report.Fail(ingest.RowError{Row: i + 1, Week: 1, MatchID: fmt.Sprintf("m%d", i), Err: ingest.ErrTiedScore})
	}

	msg := (&Notifier{}).formatUploadSummary(report)
	require.Len(t, msg.Blocks.BlockSet, 3)
	assert.Contains(t, headerText(t, msg.Blocks.BlockSet[0]), "with errors")

	summary := sectionText(t, msg.Blocks.BlockSet[1])
	assert.Contains(t, summary, "*Processed*: 2 of 10")
	assert.Contains(t, summary, "*Upsets*: 1")
	assert.Contains(t, summary, "*Failed*: 7")
	assert.Contains(t, summary, "*Weeks updated*: 1, 2")

	errs := sectionText(t, msg.Blocks.BlockSet[2])
	assert.Contains(t, errs, "row 1 (week 1, match m0)")
	assert.NotContains(t, errs, "match m5")
	assert.Contains(t, errs, "and 2 more")
}

func TestFormatUploadSummary_Clean(t *testing.T) {
	msg := (&Notifier{}).formatUploadSummary(&ingest.Report{Rows: 1, Processed: 1})
	require.Len(t, msg.Blocks.BlockSet, 2)
	assert.Contains(t, headerText(t, msg.Blocks.BlockSet[0]), "Results uploaded")
	assert.Contains(t, sectionText(t, msg.Blocks.BlockSet[1]), "*Weeks updated*: none")
}

func TestFormatLeaderboard(t *testing.T) {
	players := []league.PlayerInfo{
		{Name: "Alice", Mu: 30, Sigma: 5, MatchesPlayed: 4, Wins: 3},
		{Name: "Bob", Mu: 25, Sigma: 8.333, MatchesPlayed: 0},
	}
	msg := (&Notifier{}).formatLeaderboard(players)
	require.Len(t, msg.Blocks.BlockSet, 3)
	assert.Equal(t, "1. :first_place_medal: Alice\n> *Rating*: 15.00 (μ 30.00, σ 5.00) | *Won*: 3/4", sectionText(t, msg.Blocks.BlockSet[1]))

	empty := (&Notifier{}).formatLeaderboard(nil)
	require.Len(t, empty.Blocks.BlockSet, 2)
	assert.Contains(t, sectionText(t, empty.Blocks.BlockSet[1]), "No players found")
}

func TestFormatPlayerStatsAndNotFound(t *testing.T) {
	n := &Notifier{}
	resp, err := n.FormatPlayerStatsResponse(&league.PlayerInfo{Name: "Alice", Mu: 28, Sigma: 6, MatchesPlayed: 4, Wins: 1, PointsFor: 70, PointsAgainst: 80}, "ali")
	require.NoError(t, err)
	msg := resp.(slackapi.Message)
	assert.Contains(t, headerText(t, msg.Blocks.BlockSet[0]), "Stats for Alice")
	assert.Contains(t, sectionText(t, msg.Blocks.BlockSet[1]), "*Match Win %*: 25.00% (1/4)")
	assert.Contains(t, sectionText(t, msg.Blocks.BlockSet[1]), "*Points*: 70 for, 80 against")

	resp, err = n.FormatPlayerNotFoundResponse("zed")
	require.NoError(t, err)
	msg = resp.(slackapi.Message)
	assert.Contains(t, sectionText(t, msg.Blocks.BlockSet[0]), "*zed*")
}
