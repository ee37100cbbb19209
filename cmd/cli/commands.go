package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/mauv0809/shuttle-league/internal/ingest"
	"github.com/spf13/cobra"
)

var (
	leaderboardOrder string
	uploadDryRun     bool
	notifyDryRun     bool
)

var client = &http.Client{Timeout: 60 * time.Second}

func init() {
	leaderboardCmd.Flags().StringVar(&leaderboardOrder, "order", "", "Ranking order: 'mu' (default) or 'rating' (mu - 3 sigma)")
	uploadCmd.Flags().BoolVar(&uploadDryRun, "dry-run", false, "Validate and rate the upload without storing anything")
	notifyLeaderboardCmd.Flags().BoolVar(&notifyDryRun, "dry-run", false, "Log the Slack message instead of posting it")

	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(playersCmd)
	rootCmd.AddCommand(addPlayerCmd)
	rootCmd.AddCommand(leaderboardCmd)
	rootCmd.AddCommand(notifyLeaderboardCmd)
	rootCmd.AddCommand(weeksCmd)
	rootCmd.AddCommand(standingsCmd)
	rootCmd.AddCommand(recomputeCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(metricsCmd)
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the health of the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodGet, "/health", "", nil)
	},
}

var playersCmd = &cobra.Command{
	Use:   "players",
	Short: "List every player in the league",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodGet, "/players", "", nil)
	},
}

var addPlayerCmd = &cobra.Command{
	Use:   "add-player NAME",
	Short: "Register a new player with the default rating",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := json.Marshal(map[string]string{"name": args[0]})
		if err != nil {
			return err
		}
		return performRequest(http.MethodPost, "/players", "application/json", bytes.NewReader(body))
	},
}

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Show the player leaderboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		endpoint := "/leaderboard"
		if leaderboardOrder != "" {
			endpoint += "?order=" + url.QueryEscape(leaderboardOrder)
		}
		return performRequest(http.MethodGet, endpoint, "", nil)
	},
}

var notifyLeaderboardCmd = &cobra.Command{
	Use:   "notify-leaderboard",
	Short: "Post the leaderboard to the Slack channel",
	RunE: func(cmd *cobra.Command, args []string) error {
		endpoint := "/leaderboard/notify"
		if notifyDryRun {
			endpoint += "?dry_run=true"
		}
		return performRequest(http.MethodPost, endpoint, "", nil)
	},
}

var weeksCmd = &cobra.Command{
	Use:   "weeks",
	Short: "List the weeks that have recorded matches",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodGet, "/weeks", "", nil)
	},
}

var standingsCmd = &cobra.Command{
	Use:   "standings [WEEK]",
	Short: "Show the stored standings of one week, or of every week",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return performRequest(http.MethodGet, "/standings", "", nil)
		}
		week, err := parseWeekArg(args[0])
		if err != nil {
			return err
		}
		return performRequest(http.MethodGet, fmt.Sprintf("/standings/%d", week), "", nil)
	},
}

var recomputeCmd = &cobra.Command{
	Use:   "recompute WEEK",
	Short: "Recompute and store the standings of a week",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		week, err := parseWeekArg(args[0])
		if err != nil {
			return err
		}
		return performRequest(http.MethodPost, fmt.Sprintf("/standings/%d/recompute", week), "", nil)
	},
}

var uploadCmd = &cobra.Command{
	Use:   "upload FILE",
	Short: "Upload a CSV of match results",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open results file: %w", err)
		}
		defer f.Close()

		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		part, err := mw.CreateFormFile("file", filepath.Base(args[0]))
		if err != nil {
			return err
		}
		if _, err := io.Copy(part, f); err != nil {
			return fmt.Errorf("failed to read results file: %w", err)
		}
		if err := mw.Close(); err != nil {
			return err
		}

		endpoint := "/upload"
		if uploadDryRun {
			endpoint += "?dry_run=true"
		}
		return performRequest(http.MethodPost, endpoint, mw.FormDataContentType(), &buf)
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate FILE",
	Short: "Check a results CSV locally without contacting the server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open results file: %w", err)
		}
		defer f.Close()

		rows, invalid, err := ingest.NewReader(f).ReadAll()
		if err != nil {
			return err
		}
		fmt.Printf("%d valid rows, %d rejected\n", len(rows), len(invalid))
		for _, rowErr := range invalid {
			fmt.Println("  " + rowErr.Error())
		}
		if len(invalid) > 0 {
			return fmt.Errorf("%d rows would be rejected", len(invalid))
		}
		return nil
	},
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Get application metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(http.MethodGet, "/metrics", "", nil)
	},
}

func parseWeekArg(s string) (int, error) {
	week, err := strconv.Atoi(s)
	if err != nil || week < 1 {
		return 0, fmt.Errorf("week must be a positive integer, got %q", s)
	}
	return week, nil
}

func performRequest(method, endpoint, contentType string, body io.Reader) error {
	url := host + endpoint
	fmt.Printf("Making %s request to %s\n", method, url)

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	fmt.Printf("Status Code: %d\n", resp.StatusCode)
	fmt.Println("Response Body:")
	fmt.Println(string(respBody))

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("server returned %s", resp.Status)
	}
	return nil
}
