package model

// LeaderboardEntry is one row of the rating standings.
type LeaderboardEntry struct {
	PlayerID PlayerID `json:"player_id"`
	Rating   int      `json:"rating"`
	Rank     int      `json:"rank"` // 1-based position
}
