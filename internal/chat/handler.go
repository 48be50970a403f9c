package chat

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Outgoing is an accepted chat message ready to broadcast.
type Outgoing struct {
	Line     string
	TeamOnly bool
	Team     int
	// Text is the body shown floating above the sender.
	Text string
}

// Handler validates chat messages and turns them into broadcasts
type Handler struct {
	rateLimiter *RateLimiter
	log         logrus.FieldLogger
}

// NewHandler creates a new chat handler
func NewHandler(cfg RateLimitConfig, log logrus.FieldLogger) *Handler {
	return &Handler{
		rateLimiter: NewRateLimiter(cfg),
		log:         log,
	}
}

// Handle processes one chat line. Empty and rate limited messages are
// dropped silently.
func (h *Handler) Handle(from Sender, text string, now time.Time) (Outgoing, bool) {
	msg := Parse(text)
	if msg.Text == "" {
		return Outgoing{}, false
	}
	if !h.rateLimiter.Allow(from.ID, now) {
		h.log.WithField("player", from.Name).Debug("🚫 Chat rate limited")
		return Outgoing{}, false
	}
	return Outgoing{
		Line:     Format(from, msg),
		TeamOnly: msg.TeamOnly,
		Team:     from.Team,
		Text:     msg.Text,
	}, true
}

// Leave forgets a player's rate limit state
func (h *Handler) Leave(id uint32) {
	h.rateLimiter.Forget(id)
}

// Prune drops rate limit state idle for longer than idle
func (h *Handler) Prune(now time.Time, idle time.Duration) int {
	return h.rateLimiter.Prune(now.Add(-idle))
}
