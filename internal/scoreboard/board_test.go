package scoreboard

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/pixil98/go-testutil"
	"github.com/sirupsen/logrus"
)

type memStore struct {
	mu      sync.Mutex
	entries []Entry
	matches []MatchResult
	saved   chan struct{}
	err     error
}

func newMemStore() *memStore {
	return &memStore{saved: make(chan struct{}, 64)}
}

func (s *memStore) SaveEntry(_ context.Context, e Entry) error {
	s.mu.Lock()
	s.entries = append(s.entries, e)
	s.mu.Unlock()
	s.saved <- struct{}{}
	return s.err
}

func (s *memStore) SaveMatch(_ context.Context, m MatchResult) error {
	s.mu.Lock()
	s.matches = append([]MatchResult{m}, s.matches...)
	s.mu.Unlock()
	s.saved <- struct{}{}
	return s.err
}

func (s *memStore) Matches(_ context.Context, n int) ([]MatchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if n > len(s.matches) {
		n = len(s.matches)
	}
	return append([]MatchResult(nil), s.matches[:n]...), nil
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestBoardRanking(t *testing.T) {
	b := NewBoard(WithLogger(quietLogger()))
	b.Update(Entry{ID: 1, Name: "alice", Score: 300})
	b.Update(Entry{ID: 2, Name: "bob", Score: 500})
	b.Update(Entry{ID: 3, Name: "carol", Score: 300})
	b.Update(Entry{ID: 4, Name: "dave", Score: 100})

	t.Run("top order with id tiebreak", func(t *testing.T) {
		top := b.Top(10)
		testutil.AssertEqual(t, "count", len(top), 4)
		want := []string{"bob", "alice", "carol", "dave"}
		for i, e := range top {
			if e.Name != want[i] {
				t.Errorf("Expected %s at rank %d, got %s", want[i], i+1, e.Name)
			}
			if e.Rank != i+1 {
				t.Errorf("Expected rank %d, got %d", i+1, e.Rank)
			}
		}
	})

	t.Run("rank", func(t *testing.T) {
		testutil.AssertEqual(t, "bob", b.Rank(2), 1)
		testutil.AssertEqual(t, "carol", b.Rank(3), 3)
		testutil.AssertEqual(t, "unknown", b.Rank(99), 0)
	})

	t.Run("update moves player", func(t *testing.T) {
		b.Update(Entry{ID: 4, Name: "dave", Score: 1000})
		testutil.AssertEqual(t, "dave", b.Rank(4), 1)
		testutil.AssertEqual(t, "bob", b.Rank(2), 2)
		testutil.AssertEqual(t, "len", b.Len(), 4)
	})

	t.Run("remove", func(t *testing.T) {
		b.Remove(2)
		testutil.AssertEqual(t, "len", b.Len(), 3)
		testutil.AssertEqual(t, "removed", b.Rank(2), 0)
		testutil.AssertEqual(t, "alice", b.Rank(1), 2)
		b.Remove(2)
		testutil.AssertEqual(t, "len after double remove", b.Len(), 3)
	})

	t.Run("around", func(t *testing.T) {
		got := b.Around(1, 1, 1)
		testutil.AssertEqual(t, "count", len(got), 3)
		testutil.AssertEqual(t, "first", got[0].Name, "dave")
		testutil.AssertEqual(t, "last", got[2].Name, "carol")
	})

	t.Run("get", func(t *testing.T) {
		e, ok := b.Get(3)
		if !ok {
			t.Fatal("Expected carol to be on the board")
		}
		testutil.AssertEqual(t, "rank", e.Rank, 3)
	})
}

func TestRankingMany(t *testing.T) {
	r := newRanking(1)
	for i := uint32(1); i <= 500; i++ {
		r.set(i, int(i%37))
	}
	for i := uint32(1); i <= 500; i += 3 {
		r.remove(i)
	}
	ids := r.rangeIDs(1, r.len())
	if len(ids) != r.len() {
		t.Fatalf("Expected %d ids, got %d", r.len(), len(ids))
	}
	for i := 1; i < len(ids); i++ {
		a, b := ids[i-1], ids[i]
		if !before(r.scores[a], a, r.scores[b], b) {
			t.Fatalf("Expected %d before %d", a, b)
		}
	}
	for i, id := range ids {
		if got := r.rank(id); got != i+1 {
			t.Fatalf("Expected rank %d for %d, got %d", i+1, id, got)
		}
	}
	sub := r.rangeIDs(10, 19)
	for i, id := range sub {
		if id != ids[9+i] {
			t.Errorf("Expected %d at %d, got %d", ids[9+i], 10+i, id)
		}
	}
}

func TestRecordMatch(t *testing.T) {
	b := NewBoard(WithHistory(2), WithLogger(quietLogger()))
	b.Update(Entry{ID: 1, Name: "alice", Score: 10})

	for i, id := range []string{"m1", "m2", "m3"} {
		b.RecordMatch(MatchResult{ID: id, Loser: 1, Winner: 2, Ticks: uint64(i)})
	}

	ms := b.Matches(0)
	testutil.AssertEqual(t, "history", len(ms), 2)
	testutil.AssertEqual(t, "newest", ms[0].ID, "m3")
	testutil.AssertEqual(t, "oldest", ms[1].ID, "m2")
	testutil.AssertEqual(t, "board cleared", b.Len(), 0)
	if ms[0].EndedAt.IsZero() {
		t.Error("Expected EndedAt to be set")
	}
}

func TestStoreMirror(t *testing.T) {
	store := newMemStore()
	b := NewBoard(WithStore(store), WithLogger(quietLogger()))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)

	b.Update(Entry{ID: 1, Name: "alice", Score: 10})
	b.RecordMatch(MatchResult{ID: "m1"})

	for i := 0; i < 2; i++ {
		select {
		case <-store.saved:
		case <-time.After(2 * time.Second):
			t.Fatal("Timed out waiting for store write")
		}
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	testutil.AssertEqual(t, "entries", len(store.entries), 1)
	testutil.AssertEqual(t, "matches", len(store.matches), 1)
	testutil.AssertEqual(t, "match id", store.matches[0].ID, "m1")
}

func TestLoadHistory(t *testing.T) {
	store := newMemStore()
	store.matches = []MatchResult{{ID: "old2"}, {ID: "old1"}}
	b := NewBoard(WithStore(store), WithLogger(quietLogger()))

	if err := b.LoadHistory(context.Background()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	ms := b.Matches(10)
	testutil.AssertEqual(t, "loaded", len(ms), 2)
	testutil.AssertEqual(t, "newest", ms[0].ID, "old2")

	store.err = errors.New("down")
	if err := b.LoadHistory(context.Background()); err == nil {
		t.Error("Expected store error to be returned")
	}
}

func TestScore(t *testing.T) {
	testutil.AssertEqual(t, "score", Score(50, 2, 3), 50+200+30)
}
