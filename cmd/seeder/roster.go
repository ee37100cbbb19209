package main

import (
	"bufio"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/shuttle-league/internal/league"
)

// readRoster parses one player per line. Names that differ only in case are the same
// player and are kept once.
func readRoster(r io.Reader) ([]league.PlayerInfo, error) {
	var players []league.PlayerInfo
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		name := strings.TrimSpace(scanner.Text())
		if name == "" || strings.HasPrefix(name, "#") {
			continue
		}
		id := league.NewPlayerID(name)
		if seen[id] {
			log.Warn("Skipping repeated roster entry", "name", name)
			continue
		}
		seen[id] = true
		players = append(players, league.PlayerInfo{ID: id, Name: name})
	}
	return players, scanner.Err()
}
