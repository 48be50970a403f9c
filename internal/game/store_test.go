package game

import (
	"testing"

	"castle-wars/internal/game/spatial"
)

func newTestStore() *Store {
	return NewStore(spatial.NewGrid(2048, 1024, 64), 0)
}

func creature(team Team, x, y float64) *Entity {
	return &Entity{
		Kind:    KindUnit,
		X:       x,
		Y:       y,
		W:       30,
		H:       60,
		Visible: true,
		Life:    &Creature{HP: 10, MaxHP: 10, Team: team, Alive: true, Attackable: true},
		Unit:    &Unit{Kind: UnitGoblin},
	}
}

// TestStoreIDsAreMonotonic verifies ids are never reused
func TestStoreIDsAreMonotonic(t *testing.T) {
	s := newTestStore()
	a := s.Add(creature(Red, 0, 0))
	s.Flush()
	s.Destroy(a)
	s.Flush()
	b := s.Add(creature(Red, 0, 0))

	if b <= a {
		t.Errorf("Expected id after %d, got %d", a, b)
	}
	if s.Get(a) != nil {
		t.Error("destroyed entity still reachable after flush")
	}
}

// TestStoreAddIsDeferred verifies additions wait for Flush
func TestStoreAddIsDeferred(t *testing.T) {
	s := newTestStore()
	id := s.Add(creature(Blue, 100, 100))

	if s.Grid().Contains(uint32(id)) {
		t.Error("entity indexed before flush")
	}
	visited := 0
	s.Each(func(*Entity) { visited++ })
	if visited != 0 {
		t.Errorf("Expected no updates before flush, got %d", visited)
	}

	s.Flush()
	if !s.Grid().Contains(uint32(id)) {
		t.Error("entity not indexed after flush")
	}
	if len(s.Roster(Blue)) != 1 {
		t.Errorf("Expected 1 blue roster entry, got %d", len(s.Roster(Blue)))
	}
}

// TestStoreDestroyIdempotent verifies a double destroy changes nothing
func TestStoreDestroyIdempotent(t *testing.T) {
	s := newTestStore()
	id := s.Add(creature(Red, 10, 10))
	s.Add(creature(Red, 20, 10))
	s.Flush()

	removed := 0
	s.OnRemove = func(*Entity) { removed++ }

	if !s.Destroy(id) {
		t.Fatal("first destroy should succeed")
	}
	if s.Destroy(id) {
		t.Error("second destroy should report false")
	}
	s.Flush()
	if s.Destroy(id) {
		t.Error("destroy after removal should report false")
	}
	s.Flush()

	if removed != 1 {
		t.Errorf("Expected exactly one removal, got %d", removed)
	}
	if len(s.Roster(Red)) != 1 {
		t.Errorf("Expected 1 red roster entry, got %d", len(s.Roster(Red)))
	}
	if s.Grid().Len() != 1 {
		t.Errorf("Expected 1 indexed entity, got %d", s.Grid().Len())
	}
}

// TestStoreEachCreationOrder verifies updates run in creation order
func TestStoreEachCreationOrder(t *testing.T) {
	s := newTestStore()
	var ids []EntityID
	for i := 0; i < 5; i++ {
		ids = append(ids, s.Add(creature(Red, float64(i*100), 0)))
	}
	s.Flush()
	s.Destroy(ids[2])
	s.Flush()

	var got []EntityID
	s.Each(func(e *Entity) { got = append(got, e.ID) })

	want := []EntityID{ids[0], ids[1], ids[3], ids[4]}
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Expected %v, got %v", want, got)
			break
		}
	}
}

// TestStoreDestroyDuringWalk verifies mid-walk destruction is skipped and
// mid-walk additions wait
func TestStoreDestroyDuringWalk(t *testing.T) {
	s := newTestStore()
	a := s.Add(creature(Red, 0, 0))
	b := s.Add(creature(Red, 0, 0))
	s.Flush()

	var visited []EntityID
	s.Each(func(e *Entity) {
		visited = append(visited, e.ID)
		if e.ID == a {
			s.Destroy(b)
			s.Add(creature(Blue, 0, 0))
		}
	})

	if len(visited) != 1 || visited[0] != a {
		t.Errorf("Expected only %d visited, got %v", a, visited)
	}
}

// TestStoreAddThenDestroyBeforeFlush verifies a stillborn entity never
// reaches the grid
func TestStoreAddThenDestroyBeforeFlush(t *testing.T) {
	s := newTestStore()
	id := s.Add(creature(Red, 0, 0))
	s.Destroy(id)
	s.Flush()

	if s.Grid().Contains(uint32(id)) {
		t.Error("stillborn entity indexed")
	}
	if len(s.Roster(Red)) != 0 {
		t.Error("stillborn entity on roster")
	}
	if s.Len() != 0 {
		t.Errorf("Expected empty store, got %d", s.Len())
	}
}
