package game

import (
	"strings"
	"testing"

	"castle-wars/internal/protocol"
)

func TestViewerRemovesOnce(t *testing.T) {
	w := newTestWorld(WorldOptions{})
	e := joinAt(t, w, "alice", 2000)

	u := creature(Blue, e.X+100, e.Y)
	id := w.store.Add(u)
	w.store.Flush()
	b94 := protocol.EncodeB94(int(id))

	v := NewViewer()
	batch, res := v.Sync(w, e)
	if !strings.Contains(" "+string(batch), " O "+b94+" ") {
		t.Errorf("Expected create record for %s, got %q", b94, batch)
	}
	if !v.Sees(id) {
		t.Fatal("Expected viewer to track the unit")
	}
	if res.Removed != 0 {
		t.Errorf("Expected no removals on first sync, got %d", res.Removed)
	}

	// Far outside the view box
	u.X = e.X + 5000
	w.store.Moved(u)

	batch, res = v.Sync(w, e)
	if res.Removed != 1 {
		t.Errorf("Expected 1 removal, got %d", res.Removed)
	}
	if !strings.Contains(string(batch), "R "+b94) {
		t.Errorf("Expected removal record for %s, got %q", b94, batch)
	}
	if v.Sees(id) {
		t.Error("Expected viewer to stop tracking the unit")
	}

	batch, res = v.Sync(w, e)
	if res.Removed != 0 {
		t.Errorf("Expected no repeated removal, got %d", res.Removed)
	}
	if strings.Contains(string(batch), "R "+b94) {
		t.Errorf("Expected no removal record on the next sync, got %q", batch)
	}
}

func TestViewerBatchTrailer(t *testing.T) {
	w := newTestWorld(WorldOptions{})
	e := joinAt(t, w, "alice", 2000)

	batch, res := NewViewer().Sync(w, e)
	if !strings.HasSuffix(string(batch), "T 0 U") {
		t.Errorf("Expected batch to end with the tick trailer, got %q", batch)
	}
	if res.Bytes != len(batch) {
		t.Errorf("Expected %d bytes, got %d", len(batch), res.Bytes)
	}
	if res.Visible == 0 {
		t.Error("Expected the player to see itself")
	}
}

func TestViewBoxFollowsScreenSize(t *testing.T) {
	e := &Entity{X: 1000, Y: 500, W: 40, H: 100, Player: &Player{ViewW: 800, ViewH: 600}}

	box := ViewBox(e)
	if box.X != 1020-800 || box.W != 1600 {
		t.Errorf("Expected x range [220, 1820], got [%v, %v]", box.X, box.X+box.W)
	}
	if box.Y != 550-600 || box.H != 1200 {
		t.Errorf("Expected y range [-50, 1150], got [%v, %v]", box.Y, box.Y+box.H)
	}
}

func TestWorldSyncQueuesBatches(t *testing.T) {
	w := newTestWorld(WorldOptions{})
	out := protocol.NewOutbox(0)
	if _, err := w.Join("alice", "", out); err != nil {
		t.Fatalf("Expected join to succeed, got %v", err)
	}
	w.Step()
	out.Take()

	var results []SyncResult
	w.Sync(func(r SyncResult) { results = append(results, r) })
	if len(results) != 1 {
		t.Fatalf("Expected one viewer result, got %d", len(results))
	}

	out.RequestFlush()
	lines, _, err := out.Take()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(lines) != 1 || !strings.HasSuffix(string(lines[0]), " U") {
		t.Errorf("Expected a single batch line, got %q", lines)
	}
}
