package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitDB_CreatesTables(t *testing.T) {
	db, teardown, err := InitDB(":memory:", "", "")
	require.NoError(t, err, "InitDB should not return an error")
	defer teardown()

	for _, table := range []string{"players", "matches", "weekly_standings"} {
		var name string
		err = db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

func TestInitDB_ForeignKeysEnabled(t *testing.T) {
	db, teardown, err := InitDB(":memory:", "", "")
	require.NoError(t, err)
	defer teardown()

	var enabled int
	require.NoError(t, db.QueryRow("PRAGMA foreign_keys").Scan(&enabled))
	assert.Equal(t, 1, enabled)

	_, err = db.Exec(`INSERT INTO matches (week, match_id, player1_id, player2_id, player3_id, player4_id,
		team1_score, team2_score, winner_team, created_at) VALUES (1, 'm1', 'a', 'b', 'c', 'd', 21, 10, 1, 0)`)
	assert.Error(t, err, "matches must reference existing players")
}

func TestInitDB_FileIsReopenable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "league.db")

	db, teardown, err := InitDB(path, "", "")
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO players (id, name, mu, sigma, created_at, updated_at) VALUES ('p1', 'Alice', 25, 8.3, 0, 0)`)
	require.NoError(t, err)
	teardown()

	db, teardown, err = InitDB(path, "", "")
	require.NoError(t, err, "migrations are idempotent")
	defer teardown()

	var name string
	require.NoError(t, db.QueryRow("SELECT name FROM players WHERE name = 'alice'").Scan(&name))
	assert.Equal(t, "Alice", name, "names compare case-insensitively")
}
