// Package scoreboard ranks players by score, keeps the recent match
// history and mirrors both into an optional external store.
package scoreboard

import "time"

// Entry is one player's row on the scoreboard.
type Entry struct {
	ID          uint32 `json:"id"`
	Name        string `json:"name"`
	Team        int    `json:"team"`
	Kills       int    `json:"kills"`
	Deaths      int    `json:"deaths"`
	DamageDealt int    `json:"damageDealt"`
	MoneySpent  int    `json:"moneySpent"`
	Score       int    `json:"score"`
	Rank        int    `json:"rank,omitempty"`
}

// MatchResult is the outcome of one finished match.
type MatchResult struct {
	ID        string    `json:"id"`
	Loser     int       `json:"loser"`
	Winner    int       `json:"winner"`
	Ticks     uint64    `json:"ticks"`
	EndedAt   time.Time `json:"endedAt"`
	Standings []Entry   `json:"standings"`
}

// Score computes the ranking score from the raw counters.
func Score(damageDealt, kills, moneySpent int) int {
	return damageDealt + kills*100 + moneySpent*10
}
