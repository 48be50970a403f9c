package game

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"castle-wars/internal/protocol"
)

func newTestEngine(cfg EngineConfig) *Engine {
	if cfg.Seed == 0 {
		cfg.Seed = 1
	}
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewEngine(GenerateTileMap(60, 300, 32), cfg, WithLogger(log))
}

// joinEngine joins through the intent queue, ticking until the reply
// arrives.
func joinEngine(t *testing.T, e *Engine, name string) (JoinResult, *protocol.Outbox, error) {
	t.Helper()
	out := protocol.NewOutbox(0)
	type reply struct {
		res JoinResult
		err error
	}
	ch := make(chan reply, 1)
	go func() {
		res, err := e.Join(context.Background(), name, "", out)
		ch <- reply{res, err}
	}()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case r := <-ch:
			return r.res, out, r.err
		case <-deadline:
			t.Fatal("Timed out waiting for join")
		default:
			e.TickOnce()
			time.Sleep(time.Millisecond)
		}
	}
}

// lastBatch returns the final batch line taken from out.
func lastBatch(t *testing.T, out *protocol.Outbox) (string, bool) {
	t.Helper()
	lines, done, err := out.Take()
	if err != nil {
		t.Fatalf("Expected no outbox error, got %v", err)
	}
	if len(lines) == 0 {
		return "", done
	}
	return string(lines[len(lines)-1]), done
}

func TestEngineJoinAndLeave(t *testing.T) {
	e := newTestEngine(EngineConfig{})

	res, out, err := joinEngine(t, e, "alice")
	if err != nil {
		t.Fatalf("Expected join to succeed, got %v", err)
	}
	if res.Team != Red {
		t.Errorf("Expected red, got %s", res.Team)
	}
	if e.SessionCount() != 1 {
		t.Errorf("Expected 1 session, got %d", e.SessionCount())
	}

	e.TickOnce()
	batch, done := lastBatch(t, out)
	if done {
		t.Error("Expected session to stay open")
	}
	if !strings.HasSuffix(batch, " U") {
		t.Errorf("Expected batch to end with U, got %q", batch)
	}

	if err := e.Submit(LeaveIntent(res.ID)); err != nil {
		t.Fatalf("Expected leave to queue, got %v", err)
	}
	e.TickOnce()
	if e.SessionCount() != 0 {
		t.Errorf("Expected 0 sessions, got %d", e.SessionCount())
	}
}

func TestEngineServerFull(t *testing.T) {
	e := newTestEngine(EngineConfig{MaxPlayers: 1})

	if _, _, err := joinEngine(t, e, "alice"); err != nil {
		t.Fatalf("Expected first join to succeed, got %v", err)
	}
	if _, _, err := joinEngine(t, e, "bob"); err != ErrServerFull {
		t.Errorf("Expected ErrServerFull, got %v", err)
	}
}

func TestEngineSubmitBusy(t *testing.T) {
	e := newTestEngine(EngineConfig{IntentQueue: 1})
	cmd := protocol.Command{Op: protocol.OpJump}

	if err := e.Submit(CommandIntent(1, cmd)); err != nil {
		t.Fatalf("Expected first submit to succeed, got %v", err)
	}
	if err := e.Submit(CommandIntent(1, cmd)); err != ErrBusy {
		t.Errorf("Expected ErrBusy, got %v", err)
	}

	e.TickOnce()
	if err := e.Submit(CommandIntent(1, cmd)); err != nil {
		t.Errorf("Expected queue to drain after a tick, got %v", err)
	}
}

func TestEngineJoinCancelled(t *testing.T) {
	e := newTestEngine(EngineConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Join(ctx, "alice", "", protocol.NewOutbox(0))
	if err != context.Canceled {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}

	// The queued join completes and is immediately torn down.
	for i := 0; i < 3; i++ {
		e.TickOnce()
		time.Sleep(5 * time.Millisecond)
	}
	if e.SessionCount() != 0 {
		t.Errorf("Expected cancelled join to leave, got %d sessions", e.SessionCount())
	}
}

func TestEngineChatBeforeTrailer(t *testing.T) {
	e := newTestEngine(EngineConfig{})
	res, out, err := joinEngine(t, e, "alice")
	if err != nil {
		t.Fatalf("Expected join to succeed, got %v", err)
	}
	e.TickOnce()
	out.Take()

	if err := e.Submit(CommandIntent(res.ID, protocol.Command{Op: protocol.OpChat, Text: "hello world"})); err != nil {
		t.Fatalf("Expected chat to queue, got %v", err)
	}
	e.TickOnce()

	batch, _ := lastBatch(t, out)
	ch := strings.Index(batch, "CH E 1 1alice 2 hello world")
	if ch < 0 {
		t.Fatalf("Expected chat record, got %q", batch)
	}
	if trailer := strings.LastIndex(batch, " T "); trailer < ch {
		t.Errorf("Expected chat before the tick trailer, got %q", batch)
	}

	var text string
	e.Read(func(w *World) { text = w.Entity(res.ID).Player.ChatText })
	if text != "hello_world" {
		t.Errorf("Expected floating text hello_world, got %q", text)
	}
}

func TestEngineTeamChat(t *testing.T) {
	e := newTestEngine(EngineConfig{})
	alice, redOut, _ := joinEngine(t, e, "alice")
	_, blueOut, _ := joinEngine(t, e, "bob")
	e.TickOnce()
	redOut.Take()
	blueOut.Take()

	e.Submit(CommandIntent(alice.ID, protocol.Command{Op: protocol.OpChat, Text: "/t push left"}))
	e.TickOnce()

	red, _ := lastBatch(t, redOut)
	blue, _ := lastBatch(t, blueOut)
	if !strings.Contains(red, "CH T 1 1alice 2 push left") {
		t.Errorf("Expected team chat for red, got %q", red)
	}
	if strings.Contains(blue, "push left") {
		t.Errorf("Expected no team chat for blue, got %q", blue)
	}
}

func TestEngineGameOver(t *testing.T) {
	e := newTestEngine(EngineConfig{})
	_, out, err := joinEngine(t, e, "alice")
	if err != nil {
		t.Fatalf("Expected join to succeed, got %v", err)
	}
	e.TickOnce()
	out.Take()

	e.mu.Lock()
	castle := e.world.Entity(e.world.Team(Blue).Castle.Entity)
	e.world.inflictDamage(castle, 1<<30, nil)
	e.mu.Unlock()
	e.TickOnce()

	batch, done := lastBatch(t, out)
	if !done {
		t.Error("Expected session to close after game over")
	}
	if !strings.Contains(" "+batch+" ", " B 2 ") {
		t.Errorf("Expected game over record, got %q", batch)
	}

	snap := e.Snapshot()
	if !snap.GameOver || snap.Loser != Blue.String() {
		t.Errorf("Expected snapshot to report blue lost, got over=%v loser=%q", snap.GameOver, snap.Loser)
	}

	if _, _, err := joinEngine(t, e, "late"); err != ErrGameOver {
		t.Errorf("Expected ErrGameOver, got %v", err)
	}
}

func TestEngineSnapshot(t *testing.T) {
	e := newTestEngine(EngineConfig{})
	if _, _, err := joinEngine(t, e, "alice"); err != nil {
		t.Fatalf("Expected join to succeed, got %v", err)
	}
	for i := 0; i < 5; i++ {
		e.TickOnce()
	}

	snap := e.Snapshot()
	var tick uint64
	e.Read(func(w *World) { tick = w.Tick() })
	if snap.Tick != tick {
		t.Errorf("Expected snapshot tick %d, got %d", tick, snap.Tick)
	}
	if len(snap.Players) != 1 || snap.Players[0].Name != "alice" {
		t.Errorf("Expected alice in snapshot, got %+v", snap.Players)
	}
	if snap.MapWidth != 9600 || snap.MapHeight != 1920 {
		t.Errorf("Expected 9600x1920 map, got %vx%v", snap.MapWidth, snap.MapHeight)
	}
	if snap.GameOver {
		t.Error("Expected game in progress")
	}
}

func TestEngineStartStop(t *testing.T) {
	e := newTestEngine(EngineConfig{TickRate: 200})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e.Start(ctx)
	e.Start(ctx)

	res, err := e.Join(ctx, "alice", "", protocol.NewOutbox(0))
	if err != nil {
		t.Fatalf("Expected join through the running loop, got %v", err)
	}
	if res.ID == NoEntity {
		t.Error("Expected a player id")
	}

	e.Stop()
	e.Stop()
}
