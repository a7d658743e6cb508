package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// AuthResult is a login response
type AuthResult struct {
	Token    string `json:"token"`
	PlayerID string `json:"player_id"`
}

// Identity is a player account as returned by the API
type Identity struct {
	PlayerID  string    `json:"player_id"`
	Rating    int       `json:"rating"`
	CreatedAt time.Time `json:"created_at"`
}

// LeaderboardEntry is one row of the standings
type LeaderboardEntry struct {
	PlayerID string `json:"player_id"`
	Rating   int    `json:"rating"`
	Rank     int    `json:"rank"`
}

// LeaderboardResult is the standings response
type LeaderboardResult struct {
	Entries []LeaderboardEntry `json:"entries"`
}

// HealthResult is the health check response
type HealthResult struct {
	Status string `json:"status"`
}

// Output handles formatting output based on the configured format
type Output struct {
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(format string) *Output {
	return &Output{format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Println(string(data))
	} else {
		fmt.Println(msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case AuthResult:
		fmt.Printf("Logged in as %s\n", v.PlayerID)
	case Identity:
		fmt.Printf("Player:  %s\n", v.PlayerID)
		fmt.Printf("Rating:  %d\n", v.Rating)
		fmt.Printf("Joined:  %s\n", v.CreatedAt.Format(time.RFC3339))
	case LeaderboardResult:
		if len(v.Entries) == 0 {
			fmt.Println("No players yet")
			return
		}
		fmt.Printf("%-5s %-40s %s\n", "RANK", "PLAYER", "RATING")
		for _, entry := range v.Entries {
			fmt.Printf("%-5d %-40s %d\n", entry.Rank, entry.PlayerID, entry.Rating)
		}
	case HealthResult:
		fmt.Printf("Status: %s\n", v.Status)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}
