package chat

import (
	"sync"
	"time"
)

// RateLimiter implements per-player chat rate limiting
type RateLimiter struct {
	mu         sync.Mutex
	userCounts map[uint32]*userLimit
	config     RateLimitConfig
}

type userLimit struct {
	count     int
	windowEnd time.Time
	lastCmd   time.Time
}

// RateLimitConfig configures rate limiting behavior
type RateLimitConfig struct {
	// MaxPerWindow is max messages per window
	MaxPerWindow int
	// WindowDuration is the window size
	WindowDuration time.Duration
	// CooldownDuration is minimum time between messages
	CooldownDuration time.Duration
}

// DefaultRateLimitConfig for chat messages
var DefaultRateLimitConfig = RateLimitConfig{
	MaxPerWindow:     5,                      // 5 messages
	WindowDuration:   5 * time.Second,        // per 5 seconds
	CooldownDuration: 500 * time.Millisecond, // 500ms between messages
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		userCounts: make(map[uint32]*userLimit),
		config:     cfg,
	}
}

// Allow checks if a player can send a message at now
func (rl *RateLimiter) Allow(id uint32, now time.Time) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limit, exists := rl.userCounts[id]
	if !exists {
		rl.userCounts[id] = &userLimit{
			count:     1,
			windowEnd: now.Add(rl.config.WindowDuration),
			lastCmd:   now,
		}
		return true
	}

	// Check cooldown
	if now.Sub(limit.lastCmd) < rl.config.CooldownDuration {
		return false
	}

	// Check/reset window
	if now.After(limit.windowEnd) {
		limit.count = 1
		limit.windowEnd = now.Add(rl.config.WindowDuration)
		limit.lastCmd = now
		return true
	}

	if limit.count >= rl.config.MaxPerWindow {
		return false
	}

	limit.count++
	limit.lastCmd = now
	return true
}

// Forget drops a player's state when they leave
func (rl *RateLimiter) Forget(id uint32) {
	rl.mu.Lock()
	delete(rl.userCounts, id)
	rl.mu.Unlock()
}

// Prune removes entries idle since before cutoff
func (rl *RateLimiter) Prune(cutoff time.Time) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	n := 0
	for key, limit := range rl.userCounts {
		if limit.lastCmd.Before(cutoff) {
			delete(rl.userCounts, key)
			n++
		}
	}
	return n
}

// Len returns the number of tracked players
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.userCounts)
}
