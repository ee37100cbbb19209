// Package ingest reads match results from CSV uploads and validates them before they
// reach the rating engine.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mauv0809/shuttle-league/internal/rating"
)

const (
	colWeek       = "week"
	colMatchID    = "matchid"
	colPlayer1    = "player1"
	colPlayer2    = "player2"
	colPlayer3    = "player3"
	colPlayer4    = "player4"
	colTeam1Score = "team1score"
	colTeam2Score = "team2score"
	colWinnerTeam = "winnerteam"
)

var requiredColumns = []string{
	colWeek, colMatchID,
	colPlayer1, colPlayer2, colPlayer3, colPlayer4,
	colTeam1Score, colTeam2Score,
}

var columnAliases = map[string]string{
	"match":       colMatchID,
	"team1points": colTeam1Score,
	"team2points": colTeam2Score,
	"winner":      colWinnerTeam,
}

// Reader turns CSV records into validated rows.
type Reader struct {
	csv     *csv.Reader
	columns map[string]int
	row     int
}

// NewReader returns a Reader over r. The first record is the header.
func NewReader(r io.Reader) *Reader {
	c := csv.NewReader(r)
	c.FieldsPerRecord = -1
	c.TrimLeadingSpace = true
	return &Reader{csv: c}
}

func normalizeColumn(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.TrimPrefix(name, "\ufeff")
	name = strings.NewReplacer("_", "", "-", "", " ", "").Replace(name)
	if alias, ok := columnAliases[name]; ok {
		return alias
	}
	return name
}

func (r *Reader) readHeader() error {
	header, err := r.csv.Read()
	if errors.Is(err, io.EOF) {
		return ErrEmptyFile
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedCSV, err)
	}

	r.columns = make(map[string]int, len(header))
	for i, name := range header {
		key := normalizeColumn(name)
		if _, dup := r.columns[key]; !dup {
			r.columns[key] = i
		}
	}

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := r.columns[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return nil
}

// Next returns the next data row. It returns io.EOF after the last row, a *RowError for
// a row that fails validation (reading may continue), and any other error for a file
// that cannot be read further.
func (r *Reader) Next() (Row, error) {
	if r.columns == nil {
		if err := r.readHeader(); err != nil {
			return Row{}, err
		}
	}

	for {
		record, err := r.csv.Read()
		if errors.Is(err, io.EOF) {
			return Row{}, io.EOF
		}
		if err != nil {
			return Row{}, fmt.Errorf("%w: %w", ErrMalformedCSV, err)
		}
		if blank(record) {
			continue
		}
		r.row++
		return r.parse(record)
	}
}

// ReadAll reads every row, separating valid rows from rejected ones. A non-nil error
// means the upload as a whole is unusable.
func (r *Reader) ReadAll() ([]Row, []RowError, error) {
	var (
		rows    []Row
		invalid []RowError
	)
	for {
		row, err := r.Next()
		if errors.Is(err, io.EOF) {
			return rows, invalid, nil
		}
		var rowErr *RowError
		if errors.As(err, &rowErr) {
			invalid = append(invalid, *rowErr)
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		rows = append(rows, row)
	}
}

func (r *Reader) field(record []string, col string) string {
	i, ok := r.columns[col]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func (r *Reader) parse(record []string) (Row, error) {
	row := Row{
		Line:    r.row,
		MatchID: r.field(record, colMatchID),
		Team1:   [2]string{r.field(record, colPlayer1), r.field(record, colPlayer2)},
		Team2:   [2]string{r.field(record, colPlayer3), r.field(record, colPlayer4)},
	}
	fail := func(err error) (Row, error) {
		return Row{}, &RowError{Row: row.Line, Week: row.Week, MatchID: row.MatchID, Err: err}
	}

	week, err := strconv.Atoi(r.field(record, colWeek))
	if err != nil || week < 1 {
		return fail(ErrInvalidWeek)
	}
	row.Week = week

	if row.MatchID == "" {
		return fail(ErrMissingMatchID)
	}

	names := row.Players()
	for i, name := range names {
		if name == "" {
			return fail(fmt.Errorf("%w: player%d", ErrMissingPlayer, i+1))
		}
		for _, other := range names[:i] {
			if strings.EqualFold(name, other) {
				return fail(fmt.Errorf("%w: %s", ErrDuplicatePlayer, name))
			}
		}
	}

	if row.Team1Score, err = parseScore(r.field(record, colTeam1Score)); err != nil {
		return fail(fmt.Errorf("team1_score: %w", err))
	}
	if row.Team2Score, err = parseScore(r.field(record, colTeam2Score)); err != nil {
		return fail(fmt.Errorf("team2_score: %w", err))
	}
	if row.Team1Score == row.Team2Score {
		return fail(ErrTiedScore)
	}

	if declared := r.field(record, colWinnerTeam); declared != "" {
		switch declared {
		case "1":
			row.DeclaredWinner = rating.Team1
		case "2":
			row.DeclaredWinner = rating.Team2
		default:
			return fail(ErrInvalidWinner)
		}
		if row.DeclaredWinner != row.Winner() {
			return fail(ErrWinnerMismatch)
		}
	}

	return row, nil
}

func parseScore(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, ErrInvalidScore
	}
	return n, nil
}

func blank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
