package game

import (
	"castle-wars/internal/game/spatial"
)

// Store owns every entity. It assigns ids, keeps the spatial grid and the
// team rosters consistent with entity existence, and defers structural
// changes requested mid-tick until the next Flush.
type Store struct {
	grid *spatial.Grid

	next     EntityID
	entities map[EntityID]*Entity
	order    []EntityID // flushed entities in creation order

	pendingAdd    []*Entity
	pendingRemove []EntityID

	rosters map[Team][]EntityID

	// OnRemove runs for every entity as its removal is applied.
	OnRemove func(*Entity)
}

// NewStore creates an empty store indexing into grid.
func NewStore(grid *spatial.Grid, capacity int) *Store {
	if capacity <= 0 {
		capacity = 256
	}
	return &Store{
		grid:     grid,
		entities: make(map[EntityID]*Entity, capacity),
		order:    make([]EntityID, 0, capacity),
		rosters:  make(map[Team][]EntityID, 2),
	}
}

// Add assigns the next id to e and queues it for insertion. The entity
// is reachable through Get immediately but joins the grid, the rosters
// and the update order at the next Flush.
func (s *Store) Add(e *Entity) EntityID {
	s.next++
	e.ID = s.next
	e.Exists = true
	s.entities[e.ID] = e
	s.pendingAdd = append(s.pendingAdd, e)
	return e.ID
}

// Destroy marks the entity as gone and queues its removal. Destroying an
// unknown or already destroyed id returns false and changes nothing.
func (s *Store) Destroy(id EntityID) bool {
	e, ok := s.entities[id]
	if !ok || !e.Exists {
		return false
	}
	e.Exists = false
	s.pendingRemove = append(s.pendingRemove, id)
	return true
}

// Flush applies queued additions, then queued removals.
func (s *Store) Flush() {
	if len(s.pendingAdd) > 0 {
		for _, e := range s.pendingAdd {
			if !e.Exists {
				continue
			}
			s.grid.Insert(uint32(e.ID), e.Box())
			s.order = append(s.order, e.ID)
			if t := e.Team(); t != Neutral && e.Kind.IsCreature() {
				s.rosters[t] = append(s.rosters[t], e.ID)
			}
		}
		s.pendingAdd = s.pendingAdd[:0]
	}

	if len(s.pendingRemove) == 0 {
		return
	}
	removed := make(map[EntityID]struct{}, len(s.pendingRemove))
	for _, id := range s.pendingRemove {
		e := s.entities[id]
		removed[id] = struct{}{}
		s.grid.Remove(uint32(id))
		delete(s.entities, id)
		if s.OnRemove != nil && e != nil {
			s.OnRemove(e)
		}
	}
	s.pendingRemove = s.pendingRemove[:0]

	s.order = filterIDs(s.order, removed)
	for t, ids := range s.rosters {
		s.rosters[t] = filterIDs(ids, removed)
	}
}

func filterIDs(ids []EntityID, drop map[EntityID]struct{}) []EntityID {
	out := ids[:0]
	for _, id := range ids {
		if _, ok := drop[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

// Get returns the entity with id, including one destroyed this tick.
func (s *Store) Get(id EntityID) *Entity {
	return s.entities[id]
}

// Live returns the entity with id only if it still exists.
func (s *Store) Live(id EntityID) *Entity {
	e := s.entities[id]
	if e == nil || !e.Exists {
		return nil
	}
	return e
}

// Each calls fn for every flushed, existing entity in creation order.
// Entities added during the walk wait for the next Flush; entities
// destroyed during the walk are skipped.
func (s *Store) Each(fn func(*Entity)) {
	n := len(s.order)
	for i := 0; i < n && i < len(s.order); i++ {
		e := s.entities[s.order[i]]
		if e == nil || !e.Exists {
			continue
		}
		fn(e)
	}
}

// Roster returns the creatures of team t in creation order. The slice is
// owned by the store and valid until the next Flush.
func (s *Store) Roster(t Team) []EntityID {
	return s.rosters[t]
}

// Moved re-indexes e after its position or size changed.
func (s *Store) Moved(e *Entity) {
	if e.Exists && s.grid.Contains(uint32(e.ID)) {
		s.grid.Relocate(uint32(e.ID), e.Box())
	}
}

// Grid exposes the spatial index for queries.
func (s *Store) Grid() *spatial.Grid { return s.grid }

// Len returns the number of entities known to the store, including ones
// waiting for Flush.
func (s *Store) Len() int { return len(s.entities) }

// Pending returns the queued addition and removal counts.
func (s *Store) Pending() (adds, removes int) {
	return len(s.pendingAdd), len(s.pendingRemove)
}

// LastID returns the most recently assigned id.
func (s *Store) LastID() EntityID { return s.next }
