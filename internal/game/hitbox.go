package game

import "castle-wars/internal/game/spatial"

// MeleeBox is the area a melee attack of e covers. The box is one and a
// half bodies wide but is not mirrored: facing left it reaches half a
// body behind and a full body forward from the left edge, facing right
// it starts at the left edge.
func MeleeBox(e *Entity) spatial.Box {
	if e.Life != nil && e.Life.Facing == FacingLeft {
		return spatial.Box{X: e.X - e.W/2, Y: e.Y, W: e.W * 1.5, H: e.H}
	}
	return spatial.Box{X: e.X, Y: e.Y, W: e.W * 1.5, H: e.H}
}

// meleeHit damages every enemy creature in the attacker's melee box once.
// Grid queries can return a target once per shared cell, so hits are
// deduplicated through the world's visited set.
func (w *World) meleeHit(attacker *Entity, damage int) int {
	box := MeleeBox(attacker)
	team := attacker.Team()
	hits := 0
	w.eachInBox(box, func(t *Entity) {
		if t == attacker || t.Life == nil || !t.Life.Damageable(team) {
			return
		}
		if !box.Intersects(t.Box()) {
			return
		}
		w.inflictDamage(t, damage, attacker)
		hits++
	})
	return hits
}

// eachInBox calls fn once for every existing entity whose grid cells
// overlap box.
func (w *World) eachInBox(box spatial.Box, fn func(*Entity)) {
	w.scratch = w.store.Grid().AppendQuery(w.scratch[:0], w.store.Grid().CellRange(box))
	clear(w.visited)
	for _, raw := range w.scratch {
		id := EntityID(raw)
		if _, seen := w.visited[id]; seen {
			continue
		}
		w.visited[id] = struct{}{}
		if e := w.store.Live(id); e != nil {
			fn(e)
		}
	}
}
