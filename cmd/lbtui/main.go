// lbtui is a terminal leaderboard watcher: point it at a running
// server and a room id and it keeps the standings on screen.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	serverURL := flag.String("server", "http://localhost:8080", "server base URL")
	roomID := flag.String("room", "", "room id to watch")
	interval := flag.Duration("interval", 2*time.Second, "refresh interval")
	flag.Parse()

	if *roomID == "" {
		fmt.Fprintln(os.Stderr, "usage: lbtui -room <room-id> [-server url] [-interval 2s]")
		os.Exit(2)
	}

	m := initialModel(*serverURL, *roomID, *interval)
	if _, err := tea.NewProgram(m).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "lbtui failed: %v\n", err)
		os.Exit(1)
	}
}

type lbEntry struct {
	Name     string `json:"name"`
	Score    int    `json:"score"`
	Accepted int    `json:"accepted"`
}

type lbResponse struct {
	Status string    `json:"status"`
	Data   []lbEntry `json:"data"`
	ErrMsg string    `json:"message"`
}

func fetchLeaderboard(serverURL, roomID string) ([]lbEntry, error) {
	resp, err := http.Get(fmt.Sprintf("%s/rooms/%s/leaderboard", serverURL, roomID))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var parsed lbResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	if parsed.Status != "success" {
		return nil, fmt.Errorf("server said: %s", parsed.ErrMsg)
	}
	return parsed.Data, nil
}
