package scoreboard

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Store persists scoreboard rows and match results outside the process.
type Store interface {
	SaveEntry(ctx context.Context, e Entry) error
	SaveMatch(ctx context.Context, m MatchResult) error
	Matches(ctx context.Context, n int) ([]MatchResult, error)
}

// Defaults for NewBoard.
const (
	DefaultHistory    = 50
	DefaultWriteQueue = 1024
	storeTimeout      = 2 * time.Second
)

type write struct {
	entry *Entry
	match *MatchResult
}

// Board is the live scoreboard of the running match plus the recent match
// history. Update and RecordMatch never block on the store: writes are
// queued and applied by Run.
type Board struct {
	mu      sync.RWMutex
	entries map[uint32]Entry
	ranks   *ranking
	matches []MatchResult // Newest first
	history int

	store   Store
	writes  chan write
	dropped atomic.Uint64
	log     logrus.FieldLogger
}

// Option configures a Board.
type Option func(*Board)

// WithStore mirrors every change into s.
func WithStore(s Store) Option {
	return func(b *Board) { b.store = s }
}

// WithHistory keeps the last n match results in memory.
func WithHistory(n int) Option {
	return func(b *Board) {
		if n > 0 {
			b.history = n
		}
	}
}

// WithLogger sets the board logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(b *Board) { b.log = l }
}

// NewBoard creates an empty scoreboard.
func NewBoard(opts ...Option) *Board {
	b := &Board{
		entries: make(map[uint32]Entry),
		ranks:   newRanking(time.Now().UnixNano()),
		history: DefaultHistory,
		writes:  make(chan write, DefaultWriteQueue),
		log:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Update sets a player's row.
func (b *Board) Update(e Entry) {
	b.mu.Lock()
	b.entries[e.ID] = e
	b.ranks.set(e.ID, e.Score)
	b.mu.Unlock()
	b.enqueue(write{entry: &e})
}

// Remove drops a player from the live board.
func (b *Board) Remove(id uint32) {
	b.mu.Lock()
	delete(b.entries, id)
	b.ranks.remove(id)
	b.mu.Unlock()
}

// Get returns one player's row with its rank.
func (b *Board) Get(id uint32) (Entry, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	e, ok := b.entries[id]
	if ok {
		e.Rank = b.ranks.rank(id)
	}
	return e, ok
}

// Rank returns the 1-based rank of a player, or 0 if unknown.
func (b *Board) Rank(id uint32) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.ranks.rank(id)
}

// Top returns the best n players, best first.
func (b *Board) Top(n int) []Entry {
	return b.Range(1, n)
}

// Range returns the players ranked start..end (1-based, inclusive).
func (b *Board) Range(start, end int) []Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ids := b.ranks.rangeIDs(start, end)
	if start < 1 {
		start = 1
	}
	out := make([]Entry, len(ids))
	for i, id := range ids {
		e := b.entries[id]
		e.Rank = start + i
		out[i] = e
	}
	return out
}

// Around returns a player with up to above better and below worse
// neighbours.
func (b *Board) Around(id uint32, above, below int) []Entry {
	r := b.Rank(id)
	if r == 0 {
		return nil
	}
	return b.Range(max(r-above, 1), r+below)
}

// Len returns the number of ranked players.
func (b *Board) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.ranks.len()
}

// RecordMatch stores the final standings and clears the live board for
// the next match.
func (b *Board) RecordMatch(m MatchResult) {
	if m.EndedAt.IsZero() {
		m.EndedAt = time.Now()
	}
	b.mu.Lock()
	b.matches = append([]MatchResult{m}, b.matches...)
	if len(b.matches) > b.history {
		b.matches = b.matches[:b.history]
	}
	clear(b.entries)
	b.ranks.clear()
	b.mu.Unlock()

	b.log.WithFields(logrus.Fields{"match": m.ID, "winner": m.Winner, "players": len(m.Standings)}).Info("🏆 Match recorded")
	b.enqueue(write{match: &m})
}

// Matches returns up to n recent match results, newest first.
func (b *Board) Matches(n int) []MatchResult {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if n <= 0 || n > len(b.matches) {
		n = len(b.matches)
	}
	return append([]MatchResult(nil), b.matches[:n]...)
}

// LoadHistory seeds the match history from the store.
func (b *Board) LoadHistory(ctx context.Context) error {
	if b.store == nil {
		return nil
	}
	ms, err := b.store.Matches(ctx, b.history)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.matches = append(b.matches, ms...)
	if len(b.matches) > b.history {
		b.matches = b.matches[:b.history]
	}
	b.mu.Unlock()
	return nil
}

// Dropped returns how many store writes were discarded on a full queue.
func (b *Board) Dropped() uint64 { return b.dropped.Load() }

func (b *Board) enqueue(w write) {
	if b.store == nil {
		return
	}
	select {
	case b.writes <- w:
	default:
		b.dropped.Add(1)
	}
}

// Run applies queued store writes until ctx is done.
func (b *Board) Run(ctx context.Context) {
	if b.store == nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case w := <-b.writes:
			b.apply(ctx, w)
		}
	}
}

func (b *Board) apply(ctx context.Context, w write) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	switch {
	case w.entry != nil:
		if err := b.store.SaveEntry(ctx, *w.entry); err != nil {
			b.log.WithError(err).WithField("player", w.entry.Name).Debug("Scoreboard store write failed")
		}
	case w.match != nil:
		if err := b.store.SaveMatch(ctx, *w.match); err != nil {
			b.log.WithError(err).WithField("match", w.match.ID).Warn("⚠️ Failed to store match result")
		}
	}
}
