package slack

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/shuttle-league/internal/ingest"
	"github.com/mauv0809/shuttle-league/internal/league"
	"github.com/mauv0809/shuttle-league/internal/metrics"
	"github.com/mauv0809/shuttle-league/internal/notifier"
	"github.com/mauv0809/shuttle-league/internal/standings"
	"github.com/slack-go/slack"
)

// maxReportErrors caps how many rejected rows an upload summary lists.
const maxReportErrors = 5

// slackClient is an interface that contains the methods from the slack.Client that we use.
// This allows for easy mocking in tests.
type slackClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

var _ notifier.Notifier = &Notifier{}

// Notifier handles sending notifications to Slack.
type Notifier struct {
	api       slackClient
	channelID string
	metrics   metrics.Metrics
}

// NewNotifier creates a new Notifier. Without a token or channel, messages are only logged.
func NewNotifier(token, channelID string, metrics metrics.Metrics) *Notifier {
	n := &Notifier{
		channelID: channelID,
		metrics:   metrics,
	}
	if token != "" && channelID != "" {
		n.api = slack.New(token)
	}
	return n
}

// NewNotifierWithAPI creates a new Notifier with a specific slack.Client instance.
// Useful for tests that need to intercept API calls.
func NewNotifierWithAPI(api slackClient, channelID string, metrics metrics.Metrics) *Notifier {
	return &Notifier{
		api:       api,
		channelID: channelID,
		metrics:   metrics,
	}
}

func (s *Notifier) sendMessage(message slack.Message, dryRun bool) (string, string, error) {
	if dryRun || s.api == nil {
		jsonMsg, _ := json.MarshalIndent(message, "", "  ")
		log.Info("[Dry Run] Would send Slack message", "channel", s.channelID, "message", string(jsonMsg))
		return "dry-run-channel", "dry-run-ts", nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	channelID, timestamp, err := s.api.PostMessageContext(
		ctx,
		s.channelID,
		slack.MsgOptionBlocks(message.Blocks.BlockSet...),
		slack.MsgOptionAsUser(true),
	)
	if err != nil {
		s.metrics.IncSlackNotifFailed()
		log.Error("Failed to send Slack message", "error", err, "channel", s.channelID)
		return "", "", fmt.Errorf("failed to post message: %w", err)
	}

	s.metrics.IncSlackNotifSent()
	log.Info("Successfully sent Slack message", "channel", channelID, "timestamp", timestamp)
	return channelID, timestamp, nil
}

func (s *Notifier) SendWeeklyStandings(snap *standings.Snapshot, dryRun bool) error {
	_, _, err := s.sendMessage(s.formatWeeklyStandings(snap), dryRun)
	return err
}

func (s *Notifier) SendUploadSummary(report *ingest.Report, dryRun bool) error {
	_, _, err := s.sendMessage(s.formatUploadSummary(report), dryRun)
	return err
}

func (s *Notifier) SendLeaderboard(players []league.PlayerInfo, dryRun bool) error {
	_, _, err := s.sendMessage(s.formatLeaderboard(players), dryRun)
	return err
}

// FormatLeaderboardResponse formats a leaderboard message for a slash command response.
func (s *Notifier) FormatLeaderboardResponse(players []league.PlayerInfo) (any, error) {
	return s.formatLeaderboard(players), nil
}

// FormatPlayerStatsResponse formats a player stats message for a slash command response.
func (s *Notifier) FormatPlayerStatsResponse(player *league.PlayerInfo, query string) (any, error) {
	return s.formatPlayerStats(player, query), nil
}

// FormatPlayerNotFoundResponse formats a player not found message for a slash command response.
func (s *Notifier) FormatPlayerNotFoundResponse(query string) (any, error) {
	return s.formatPlayerNotFound(query), nil
}

// FormatWeeklyStandingsResponse formats a week's standings for a slash command response.
func (s *Notifier) FormatWeeklyStandingsResponse(snap *standings.Snapshot) (any, error) {
	return s.formatWeeklyStandings(snap), nil
}

func medal(rank int) string {
	switch rank {
	case 1:
		return ":first_place_medal:"
	case 2:
		return ":second_place_medal:"
	case 3:
		return ":third_place_medal:"
	}
	return ""
}

func header(text string) slack.Block {
	return slack.NewHeaderBlock(slack.NewTextBlockObject("plain_text", text, true, false))
}

func section(text string) slack.Block {
	return slack.NewSectionBlock(slack.NewTextBlockObject("mrkdwn", text, false, false), nil, nil)
}

// formatWeeklyStandings creates the Block Kit message for one week's standings.
func (s *Notifier) formatWeeklyStandings(snap *standings.Snapshot) slack.Message {
	blocks := []slack.Block{header(fmt.Sprintf(":trophy: Week %d Standings :trophy:", snap.Week))}

	if len(snap.TopPlayers) == 0 {
		blocks = append(blocks, section("No matches were played this week."))
		return slack.NewBlockMessage(blocks...)
	}

	var top strings.Builder
	for i, p := range snap.TopPlayers {
		fmt.Fprintf(&top, "%d. %s *%s*  rating %.2f  (%d/%d won)\n",
			i+1, medal(i+1), p.Name, p.Rating, p.Wins, p.MatchesPlayed)
	}
	blocks = append(blocks, section(strings.TrimRight(top.String(), "\n")), slack.NewDividerBlock())

	stats := snap.Stats
	lines := []string{
		"*Most matches*: " + leader(stats.MostMatches != nil, func() string {
			return fmt.Sprintf("%s (%d)", stats.MostMatches.Name, stats.MostMatches.Matches)
		}),
		"*Best win rate*: " + leader(stats.BestWinRate != nil, func() string {
			return fmt.Sprintf("%s (%.0f%%)", stats.BestWinRate.Name, stats.BestWinRate.WinRate*100)
		}),
		"*Most points*: " + leader(stats.MostPoints != nil, func() string {
			return fmt.Sprintf("%s (%d)", stats.MostPoints.Name, stats.MostPoints.Points)
		}),
		"*Fewest points conceded*: " + leader(stats.LeastPointsAgainst != nil, func() string {
			return fmt.Sprintf("%s (%d)", stats.LeastPointsAgainst.Name, stats.LeastPointsAgainst.PointsAgainst)
		}),
	}
	blocks = append(blocks, section(strings.Join(lines, "\n")))

	return slack.NewBlockMessage(blocks...)
}

func leader(ok bool, format func() string) string {
	if !ok {
		return "n/a"
	}
	return format()
}

// formatUploadSummary reports the outcome of a CSV upload.
func (s *Notifier) formatUploadSummary(report *ingest.Report) slack.Message {
	title := ":white_check_mark: Results uploaded"
	if !report.OK() {
		title = ":warning: Results uploaded with errors"
	}
	blocks := []slack.Block{header(title)}

	weeks := make([]string, len(report.Weeks))
	for i, w := range report.Weeks {
		weeks[i] = fmt.Sprint(w)
	}
	weekText := strings.Join(weeks, ", ")
	if weekText == "" {
		weekText = "none"
	}
	summary := fmt.Sprintf("> *Processed*: %d of %d\n> *Duplicates skipped*: %d\n> *Upsets*: %d\n> *Failed*: %d\n> *Weeks updated*: %s",
		report.Processed, report.Rows, report.Duplicates, report.Upsets, report.Failed, weekText)
	blocks = append(blocks, section(summary))

	if len(report.Errors) > 0 {
		var errs strings.Builder
		for i, e := range report.Errors {
			if i == maxReportErrors {
				fmt.Fprintf(&errs, "_...and %d more_", len(report.Errors)-maxReportErrors)
				break
			}
			fmt.Fprintf(&errs, "• %s\n", e.Error())
		}
		blocks = append(blocks, section(strings.TrimRight(errs.String(), "\n")))
	}

	return slack.NewBlockMessage(blocks...)
}

// formatLeaderboard creates a Slack message ranking players in the given order.
func (s *Notifier) formatLeaderboard(players []league.PlayerInfo) slack.Message {
	blocks := []slack.Block{header(":trophy: Player Leaderboard :trophy:")}

	if len(players) == 0 {
		blocks = append(blocks, section("No players found. Upload some results!"))
		return slack.NewBlockMessage(blocks...)
	}

	for i, p := range players {
		rank := i + 1
		text := fmt.Sprintf("%d. %s %s\n> *Rating*: %.2f (μ %.2f, σ %.2f) | *Won*: %d/%d",
			rank,
			medal(rank),
			p.Name,
			p.ConservativeRating(),
			p.Mu,
			p.Sigma,
			p.Wins,
			p.MatchesPlayed,
		)
		blocks = append(blocks, section(text))
	}

	return slack.NewBlockMessage(blocks...)
}

// formatPlayerStats creates a Slack message to display a single player's stats.
func (s *Notifier) formatPlayerStats(p *league.PlayerInfo, query string) slack.Message {
	blocks := []slack.Block{header(fmt.Sprintf(":badminton_racquet_and_shuttlecock: Stats for %s", p.Name))}

	text := fmt.Sprintf("> *Rating*: %.2f (μ %.2f, σ %.2f)\n> *Match Win %%*: %.2f%% (%d/%d)\n> *Points*: %d for, %d against",
		p.ConservativeRating(),
		p.Mu,
		p.Sigma,
		p.WinRate()*100,
		p.Wins,
		p.MatchesPlayed,
		p.PointsFor,
		p.PointsAgainst,
	)
	blocks = append(blocks, section(text))

	return slack.NewBlockMessage(blocks...)
}

// formatPlayerNotFound creates a Slack message for when a player's stats are not found.
func (s *Notifier) formatPlayerNotFound(query string) slack.Message {
	text := fmt.Sprintf("Sorry, I couldn't find a player matching *%s*. Try a different name.", query)
	return slack.NewBlockMessage(section(text))
}
