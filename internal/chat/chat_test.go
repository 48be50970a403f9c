package chat

import (
	"io"
	"testing"
	"time"

	"github.com/pixil98/go-testutil"
	"github.com/sirupsen/logrus"
)

func TestParse(t *testing.T) {
	tests := map[string]struct {
		in   string
		want Message
	}{
		"everyone":        {in: "hello there", want: Message{Text: "hello there"}},
		"team":            {in: "/t attack", want: Message{TeamOnly: true, Text: "attack"}},
		"trimmed":         {in: "  hi  ", want: Message{Text: "hi"}},
		"prefix only":     {in: "/t", want: Message{TeamOnly: true}},
		"not a prefix":    {in: "/teleport", want: Message{Text: "/teleport"}},
		"prefix and pads": {in: "/t   go  ", want: Message{TeamOnly: true, Text: "go"}},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			testutil.AssertEqual(t, "message", Parse(tc.in), tc.want)
		})
	}
}

func TestFormat(t *testing.T) {
	from := Sender{ID: 7, Name: "sir lancelot", Team: 2}

	got := Format(from, Message{Text: "for the king"})
	testutil.AssertEqual(t, "everyone", got, "CH E 2 2sir lancelot 3 for the king")

	got = Format(from, Message{TeamOnly: true, Text: "hold"})
	testutil.AssertEqual(t, "team", got, "CH T 2 2sir lancelot 1 hold")
}

func TestRateLimiter(t *testing.T) {
	cfg := RateLimitConfig{MaxPerWindow: 2, WindowDuration: time.Second, CooldownDuration: 100 * time.Millisecond}
	now := time.Unix(1000, 0)

	t.Run("cooldown", func(t *testing.T) {
		rl := NewRateLimiter(cfg)
		if !rl.Allow(1, now) {
			t.Fatal("Expected first message to pass")
		}
		if rl.Allow(1, now.Add(50*time.Millisecond)) {
			t.Error("Expected message inside the cooldown to be refused")
		}
		if !rl.Allow(2, now) {
			t.Error("Expected other players to be unaffected")
		}
	})

	t.Run("window", func(t *testing.T) {
		rl := NewRateLimiter(cfg)
		rl.Allow(1, now)
		if !rl.Allow(1, now.Add(200*time.Millisecond)) {
			t.Fatal("Expected second message to pass")
		}
		if rl.Allow(1, now.Add(400*time.Millisecond)) {
			t.Error("Expected third message in the window to be refused")
		}
		if !rl.Allow(1, now.Add(1100*time.Millisecond)) {
			t.Error("Expected a new window to allow messages")
		}
	})

	t.Run("forget and prune", func(t *testing.T) {
		rl := NewRateLimiter(cfg)
		rl.Allow(1, now)
		rl.Allow(2, now.Add(time.Minute))
		testutil.AssertEqual(t, "tracked", rl.Len(), 2)

		testutil.AssertEqual(t, "pruned", rl.Prune(now.Add(time.Second)), 1)
		testutil.AssertEqual(t, "tracked", rl.Len(), 1)

		rl.Forget(2)
		testutil.AssertEqual(t, "tracked", rl.Len(), 0)
	})
}

func TestHandler(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	h := NewHandler(DefaultRateLimitConfig, log)
	from := Sender{ID: 3, Name: "alice", Team: 1}
	now := time.Unix(1000, 0)

	if _, ok := h.Handle(from, "   ", now); ok {
		t.Error("Expected empty message to be dropped")
	}

	out, ok := h.Handle(from, "/t rally", now)
	if !ok {
		t.Fatal("Expected message to be accepted")
	}
	testutil.AssertEqual(t, "line", out.Line, "CH T 1 1alice 1 rally")
	testutil.AssertEqual(t, "team only", out.TeamOnly, true)
	testutil.AssertEqual(t, "team", out.Team, 1)
	testutil.AssertEqual(t, "text", out.Text, "rally")

	if _, ok := h.Handle(from, "again", now.Add(10*time.Millisecond)); ok {
		t.Error("Expected rate limited message to be dropped")
	}

	h.Leave(from.ID)
	if _, ok := h.Handle(from, "back", now.Add(20*time.Millisecond)); !ok {
		t.Error("Expected state to reset after leave")
	}

	if n := h.Prune(now.Add(time.Hour), time.Minute); n != 1 {
		t.Errorf("Expected 1 pruned entry, got %d", n)
	}
}
