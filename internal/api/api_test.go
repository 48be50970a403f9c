package api

import (
	"context"
	"encoding/json"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pixil98/go-testutil"
	"github.com/sirupsen/logrus"

	"castle-wars/internal/game"
	"castle-wars/internal/scoreboard"
	"castle-wars/internal/session"
)

// ============================================================================
// Mock Implementations
// ============================================================================

// mockEngine implements EngineInterface for testing
type mockEngine struct {
	snap     game.GameSnapshot
	tileMap  *game.TileMap
	sessions int
}

func newMockEngine() *mockEngine {
	return &mockEngine{
		tileMap: game.GenerateTileMap(20, 40, 32),
		snap: game.GameSnapshot{
			Sequence: 9,
			Tick:     120,
			Castles: [2]game.CastleStatus{
				{Team: "red", HP: 900, MaxHP: 1000, Tier: 1, Money: 40},
				{Team: "blue", HP: 1000, MaxHP: 1000, Tier: 2, Money: 75},
			},
			Players: []game.PlayerSnapshot{
				{ID: 1, Name: "alice", Team: "red", Alive: true, Score: 300},
				{ID: 2, Name: "bob", Team: "blue", Alive: true, Score: 120},
			},
			Dots: []game.DotSnapshot{
				{X: 100, Y: 400, W: 32, H: 64, Team: game.Red},
				{X: 900, Y: 400, W: 32, H: 64, Team: game.Blue},
			},
			Entities:    14,
			Units:       3,
			Projectiles: 2,
			MapWidth:    1280,
			MapHeight:   640,
		},
		sessions: 2,
	}
}

func (m *mockEngine) Snapshot() game.GameSnapshot { return m.snap }
func (m *mockEngine) Map() *game.TileMap          { return m.tileMap }
func (m *mockEngine) TickRate() int               { return 60 }
func (m *mockEngine) Overruns() uint64            { return 4 }
func (m *mockEngine) SessionCount() int           { return m.sessions }

// mockScores implements ScoreboardInterface for testing
type mockScores struct {
	entries []scoreboard.Entry
	matches []scoreboard.MatchResult
}

func (m *mockScores) Top(n int) []scoreboard.Entry {
	return m.entries[:min(n, len(m.entries))]
}

func (m *mockScores) Matches(n int) []scoreboard.MatchResult {
	return m.matches[:min(n, len(m.matches))]
}

// mockEvents implements EventSource for testing
type mockEvents struct{}

func (mockEvents) Recent(n int) []game.Event {
	return []game.Event{{Version: 1, Type: game.EventTypeKill, Tick: 10, Actor: "alice"}}
}

func (mockEvents) Stats() game.EventLogStats {
	return game.EventLogStats{Total: 1}
}

// mockAdmin implements AdminVerifier for testing
type mockAdmin struct {
	secret string
}

func (m mockAdmin) AdminEnabled() bool             { return m.secret != "" }
func (m mockAdmin) CheckAdmin(bearer string) bool { return bearer == m.secret }

// echoSessions implements SessionServer by echoing every line once
type echoSessions struct {
	mu       sync.Mutex
	acquired int
	limit    int
	served   chan string
}

func (s *echoSessions) AcquireIP(string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.acquired >= s.limit {
		return false
	}
	s.acquired++
	return true
}

func (s *echoSessions) ReleaseIP(string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.acquired--
}

func (s *echoSessions) MaxLineLength() int { return 256 }

// waitIdle blocks until every slot has been released
func (s *echoSessions) waitIdle() {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		s.mu.Lock()
		n := s.acquired
		s.mu.Unlock()
		if n == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func (s *echoSessions) Serve(ctx context.Context, conn session.LineConn, transport string) {
	defer conn.Close()
	line, err := conn.ReadLine()
	if err != nil {
		return
	}
	s.served <- transport
	conn.WriteLines([][]byte{[]byte("echo " + line)})
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func testConfig() RouterConfig {
	return RouterConfig{
		Engine: newMockEngine(),
		Scores: &mockScores{
			entries: []scoreboard.Entry{
				{Name: "alice", Score: 300, Rank: 1},
				{Name: "bob", Score: 120, Rank: 2},
				{Name: "carol", Score: 50, Rank: 3},
			},
			matches: []scoreboard.MatchResult{{ID: "m1", Loser: int(game.Blue), Winner: int(game.Red)}},
		},
		Events: mockEvents{},
		Admin:  mockAdmin{secret: "hunter2"},
		RateLimitConfig: &RateLimitConfig{
			RequestsPerSecond: 1000, // High limit for tests
			Burst:             1000,
		},
		DisableLogging: true,
		Log:            quietLogger(),
	}
}

func get(t *testing.T, h http.Handler, path string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// ============================================================================
// Router Tests
// ============================================================================

func TestNewRouterIsPure(t *testing.T) {
	// Constructing many routers must not leak listeners or goroutines that
	// would make the rest of the suite flaky.
	for i := 0; i < 10; i++ {
		r := NewRouter(testConfig())
		if r == nil {
			t.Fatal("Expected router, got nil")
		}
	}
}

func TestGetState(t *testing.T) {
	r := NewRouter(testConfig())
	rec := get(t, r, "/api/state")

	testutil.AssertEqual(t, "status", rec.Code, http.StatusOK)
	testutil.AssertEqual(t, "content type", rec.Header().Get("Content-Type"), "application/json")

	var state StateResponse
	if err := json.NewDecoder(rec.Body).Decode(&state); err != nil {
		t.Fatalf("Expected JSON body, got error: %v", err)
	}
	testutil.AssertEqual(t, "tick", state.Tick, uint64(120))
	testutil.AssertEqual(t, "tick rate", state.TickRate, 60)
	testutil.AssertEqual(t, "overruns", state.Overruns, uint64(4))
	testutil.AssertEqual(t, "sessions", state.Sessions, 2)
	testutil.AssertEqual(t, "players", state.Players, 2)
	testutil.AssertEqual(t, "units", state.Units, 3)
	testutil.AssertEqual(t, "game over", state.GameOver, false)
}

func TestGetCastlesAndPlayers(t *testing.T) {
	r := NewRouter(testConfig())

	t.Run("castles", func(t *testing.T) {
		rec := get(t, r, "/api/castles")
		var castles []game.CastleStatus
		if err := json.NewDecoder(rec.Body).Decode(&castles); err != nil {
			t.Fatalf("Expected JSON body, got error: %v", err)
		}
		testutil.AssertEqual(t, "count", len(castles), 2)
		testutil.AssertEqual(t, "red hp", castles[0].HP, 900)
		testutil.AssertEqual(t, "blue tier", castles[1].Tier, 2)
	})

	t.Run("players", func(t *testing.T) {
		rec := get(t, r, "/api/players")
		var players []game.PlayerSnapshot
		if err := json.NewDecoder(rec.Body).Decode(&players); err != nil {
			t.Fatalf("Expected JSON body, got error: %v", err)
		}
		testutil.AssertEqual(t, "count", len(players), 2)
		testutil.AssertEqual(t, "leader", players[0].Name, "alice")
	})
}

func TestScoreboardRoutes(t *testing.T) {
	r := NewRouter(testConfig())

	t.Run("limit", func(t *testing.T) {
		rec := get(t, r, "/api/scoreboard?n=2")
		var entries []scoreboard.Entry
		json.NewDecoder(rec.Body).Decode(&entries)
		testutil.AssertEqual(t, "entries", len(entries), 2)
		testutil.AssertEqual(t, "first", entries[0].Name, "alice")
	})

	t.Run("bad limit uses default", func(t *testing.T) {
		rec := get(t, r, "/api/scoreboard?n=abc")
		var entries []scoreboard.Entry
		json.NewDecoder(rec.Body).Decode(&entries)
		testutil.AssertEqual(t, "entries", len(entries), 3)
	})

	t.Run("matches", func(t *testing.T) {
		rec := get(t, r, "/api/matches")
		var matches []scoreboard.MatchResult
		json.NewDecoder(rec.Body).Decode(&matches)
		testutil.AssertEqual(t, "matches", len(matches), 1)
		testutil.AssertEqual(t, "id", matches[0].ID, "m1")
	})

	t.Run("unavailable", func(t *testing.T) {
		cfg := testConfig()
		cfg.Scores = nil
		rec := get(t, NewRouter(cfg), "/api/scoreboard")
		testutil.AssertEqual(t, "status", rec.Code, http.StatusServiceUnavailable)
	})
}

func TestMinimap(t *testing.T) {
	r := NewRouter(testConfig())

	t.Run("scaled", func(t *testing.T) {
		rec := get(t, r, "/api/map.png?w=200")
		testutil.AssertEqual(t, "status", rec.Code, http.StatusOK)
		testutil.AssertEqual(t, "content type", rec.Header().Get("Content-Type"), "image/png")

		img, err := png.Decode(rec.Body)
		if err != nil {
			t.Fatalf("Expected PNG, got error: %v", err)
		}
		testutil.AssertEqual(t, "width", img.Bounds().Dx(), 200)
		testutil.AssertEqual(t, "height", img.Bounds().Dy(), 100)
	})

	t.Run("clamped", func(t *testing.T) {
		rec := get(t, r, "/api/map.png?w=99999")
		img, err := png.Decode(rec.Body)
		if err != nil {
			t.Fatalf("Expected PNG, got error: %v", err)
		}
		testutil.AssertEqual(t, "width", img.Bounds().Dx(), MaxMinimapWidth)
	})

	t.Run("default", func(t *testing.T) {
		rec := get(t, r, "/api/map.png")
		img, err := png.Decode(rec.Body)
		if err != nil {
			t.Fatalf("Expected PNG, got error: %v", err)
		}
		testutil.AssertEqual(t, "width", img.Bounds().Dx(), DefaultMinimapWidth)
	})
}

func TestAdminRoutes(t *testing.T) {
	r := NewRouter(testConfig())

	t.Run("missing token", func(t *testing.T) {
		rec := get(t, r, "/api/admin/events")
		testutil.AssertEqual(t, "status", rec.Code, http.StatusUnauthorized)
		if rec.Header().Get("WWW-Authenticate") == "" {
			t.Error("Expected WWW-Authenticate header, got none")
		}
	})

	t.Run("wrong token", func(t *testing.T) {
		rec := get(t, r, "/api/admin/events", "Authorization", "Bearer nope")
		testutil.AssertEqual(t, "status", rec.Code, http.StatusUnauthorized)
	})

	t.Run("events", func(t *testing.T) {
		rec := get(t, r, "/api/admin/events?n=5", "Authorization", "Bearer hunter2")
		testutil.AssertEqual(t, "status", rec.Code, http.StatusOK)
		var events []game.Event
		if err := json.NewDecoder(rec.Body).Decode(&events); err != nil {
			t.Fatalf("Expected JSON body, got error: %v", err)
		}
		testutil.AssertEqual(t, "events", len(events), 1)
		testutil.AssertEqual(t, "actor", events[0].Actor, "alice")
	})

	t.Run("stats", func(t *testing.T) {
		rec := get(t, r, "/api/admin/stats", "Authorization", "Bearer hunter2")
		testutil.AssertEqual(t, "status", rec.Code, http.StatusOK)
		if !strings.Contains(rec.Body.String(), `"eventLog"`) {
			t.Errorf("Expected eventLog in stats, got %s", rec.Body.String())
		}
	})

	t.Run("disabled", func(t *testing.T) {
		cfg := testConfig()
		cfg.Admin = mockAdmin{}
		rec := get(t, NewRouter(cfg), "/api/admin/events", "Authorization", "Bearer hunter2")
		testutil.AssertEqual(t, "status", rec.Code, http.StatusNotFound)
	})
}

func TestHealth(t *testing.T) {
	rec := get(t, NewRouter(testConfig()), "/health")
	testutil.AssertEqual(t, "status", rec.Code, http.StatusOK)
	if !strings.Contains(rec.Body.String(), "ok") {
		t.Errorf("Expected ok body, got %s", rec.Body.String())
	}
}

func TestWSRouteDisabledWithoutSessions(t *testing.T) {
	rec := get(t, NewRouter(testConfig()), "/ws")
	testutil.AssertEqual(t, "status", rec.Code, http.StatusNotFound)
}

// ============================================================================
// Rate Limiting and Origin Tests
// ============================================================================

func TestRateLimitMiddleware(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitConfig = &RateLimitConfig{RequestsPerSecond: 0.001, Burst: 2}
	r := NewRouter(cfg)

	for i := 0; i < 2; i++ {
		rec := get(t, r, "/health")
		testutil.AssertEqual(t, "status within burst", rec.Code, http.StatusOK)
	}
	rec := get(t, r, "/health")
	testutil.AssertEqual(t, "status over burst", rec.Code, http.StatusTooManyRequests)
	testutil.AssertEqual(t, "retry after", rec.Header().Get("Retry-After"), "1")

	// Another client has its own bucket
	rec = get(t, r, "/health", "X-Forwarded-For", "198.51.100.7")
	testutil.AssertEqual(t, "other ip", rec.Code, http.StatusOK)
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewIPRateLimiter(DefaultRateLimitConfig)
	rl.Allow("192.0.2.1")
	rl.Allow("192.0.2.2")

	testutil.AssertEqual(t, "nothing stale", rl.cleanup(time.Now().Add(-time.Minute)), 0)
	testutil.AssertEqual(t, "all stale", rl.cleanup(time.Now().Add(time.Minute)), 2)
	testutil.AssertEqual(t, "allowed", rl.Stats().Allowed, uint64(2))
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name   string
		remote string
		header [2]string
		want   string
	}{
		{"remote addr", "192.0.2.1:5555", [2]string{}, "192.0.2.1"},
		{"forwarded chain", "10.0.0.1:80", [2]string{"X-Forwarded-For", "203.0.113.9, 10.0.0.1"}, "203.0.113.9"},
		{"real ip", "10.0.0.1:80", [2]string{"X-Real-IP", " 203.0.113.4 "}, "203.0.113.4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.header[0] != "" {
				req.Header.Set(tt.header[0], tt.header[1])
			}
			testutil.AssertEqual(t, "ip", GetClientIP(req), tt.want)
		})
	}
}

func TestIsAllowedOrigin(t *testing.T) {
	allowed := []string{"http://localhost:*", "https://castle.example"}
	tests := []struct {
		origin string
		want   bool
	}{
		{"http://localhost:3000", true},
		{"http://localhost:8080", true},
		{"https://castle.example", true},
		{"https://castle.example.evil", false},
		{"http://localhost.evil:80", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsAllowedOrigin(tt.origin, allowed); got != tt.want {
			t.Errorf("Expected IsAllowedOrigin(%q) = %v, got %v", tt.origin, tt.want, got)
		}
	}
	if !IsAllowedOrigin("https://anything", []string{"*"}) {
		t.Error("Expected wildcard to allow any origin")
	}
}

// ============================================================================
// WebSocket Tests
// ============================================================================

func TestWebSocketSession(t *testing.T) {
	sessions := &echoSessions{limit: 1, served: make(chan string, 1)}
	cfg := testConfig()
	cfg.Sessions = sessions
	ts := httptest.NewServer(NewRouter(cfg))
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Expected dial to succeed, got %v", err)
	}
	defer conn.Close()

	if err := conn.WriteMessage(websocket.TextMessage, []byte("token alice")); err != nil {
		t.Fatalf("Expected write to succeed, got %v", err)
	}
	select {
	case transport := <-sessions.served:
		testutil.AssertEqual(t, "transport", transport, "ws")
	case <-time.After(2 * time.Second):
		t.Fatal("Expected session to be served, got timeout")
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Expected echo, got %v", err)
	}
	testutil.AssertEqual(t, "echo", string(msg), "echo token alice")

	t.Run("rejected origin", func(t *testing.T) {
		sessions.waitIdle()
		header := http.Header{"Origin": []string{"https://evil.example"}}
		_, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
		if err == nil {
			t.Fatal("Expected dial to fail for foreign origin")
		}
		testutil.AssertEqual(t, "status", resp.StatusCode, http.StatusForbidden)
	})

	t.Run("per-ip limit", func(t *testing.T) {
		sessions.waitIdle()
		first, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		if err != nil {
			t.Fatalf("Expected dial to succeed, got %v", err)
		}
		defer first.Close()

		_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
		if err == nil {
			t.Fatal("Expected second dial to fail")
		}
		testutil.AssertEqual(t, "status", resp.StatusCode, http.StatusTooManyRequests)
	})
}

func TestHandlersDirect(t *testing.T) {
	h := newRouterHandlers(newMockEngine())
	rec := httptest.NewRecorder()
	h.handleGetState(rec, httptest.NewRequest(http.MethodGet, "/api/state", nil))
	testutil.AssertEqual(t, "status", rec.Code, http.StatusOK)

	rec = httptest.NewRecorder()
	h.handleGetScoreboard(rec, httptest.NewRequest(http.MethodGet, "/api/scoreboard", nil))
	testutil.AssertEqual(t, "no scores", rec.Code, http.StatusServiceUnavailable)
}
