package game

import (
	"castle-wars/internal/game/spatial"
	"castle-wars/internal/protocol"
)

// Viewer remembers which entities one player was last told about, so each
// sync emits exactly one removal for every id that left the view.
type Viewer struct {
	prev map[EntityID]struct{}
	cur  map[EntityID]struct{}
	cues map[EntityID]struct{}

	scratch  []uint32
	line     protocol.Line
	hologram bool
}

// NewViewer creates a viewer that has seen nothing yet.
func NewViewer() *Viewer {
	return &Viewer{
		prev: make(map[EntityID]struct{}, 64),
		cur:  make(map[EntityID]struct{}, 64),
		cues: make(map[EntityID]struct{}, 16),
	}
}

// Visible returns the number of tracked entities after the last sync.
func (v *Viewer) Visible() int { return len(v.prev) }

// Sees reports whether id was in the last synced view.
func (v *Viewer) Sees(id EntityID) bool {
	_, ok := v.prev[id]
	return ok
}

// SyncResult counts what one viewer sync produced.
type SyncResult struct {
	Visible int
	Removed int
	Bytes   int
}

// ViewBox is the world window a player is synced: the player's centre
// plus and minus the declared screen size.
func ViewBox(e *Entity) spatial.Box {
	p := e.Player
	w, h := float64(p.ViewW), float64(p.ViewH)
	return spatial.Box{X: e.CenterX() - w, Y: e.CenterY() - h, W: 2 * w, H: 2 * h}
}

// Sync builds the batch for player e: personal records queued this tick,
// entity creates and updates, removals, the hologram preview, the stat
// block and the tick trailer. The returned bytes are valid until the next
// Sync on this viewer.
func (v *Viewer) Sync(w *World, e *Entity) ([]byte, SyncResult) {
	p := e.Player
	l := &v.line
	l.Reset()
	if p.pending.Len() > 0 {
		l.Op(string(p.pending.Bytes()))
		p.pending.Reset()
	}

	grid := w.store.Grid()
	v.scratch = grid.AppendQuery(v.scratch[:0], grid.CellRange(ViewBox(e)))
	clear(v.cur)
	clear(v.cues)
	for _, raw := range v.scratch {
		id := EntityID(raw)
		if _, seen := v.cur[id]; seen {
			continue
		}
		if _, seen := v.cues[id]; seen {
			continue
		}
		o := w.store.Get(id)
		if o == nil || !o.Exists || !o.Visible || o.Kind == KindHologram {
			continue
		}
		if o.Kind.Cue() {
			v.cues[id] = struct{}{}
			encodeCue(l, o)
			continue
		}
		v.cur[id] = struct{}{}
		encodeObject(l, o)
	}

	var res SyncResult
	for id := range v.prev {
		if _, ok := v.cur[id]; !ok {
			l.Op(protocol.RecRemove).B94(int(id))
			res.Removed++
		}
	}
	v.prev, v.cur = v.cur, v.prev
	res.Visible = len(v.prev)

	if h := w.store.Live(p.Hologram); h != nil {
		l.Op(protocol.RecHologram).Int(hologramImage(h)).Int(h.Hologram.ClientY)
		v.hologram = true
	} else if v.hologram {
		l.Op(protocol.RecHologramEnd)
		v.hologram = false
	}

	w.statBlock(l, e)
	l.Op(protocol.RecTick).Int(int(w.tick))
	l.Op(protocol.RecRepaint)
	res.Bytes = l.Len()
	return l.Bytes(), res
}

// Forget drops every tracked id without emitting removals. A player that
// left is never synced again.
func (v *Viewer) Forget() {
	clear(v.prev)
	v.hologram = false
}

func encodeCue(l *protocol.Line, o *Entity) {
	if o.Kind == KindText {
		l.Op(protocol.RecText).B94(int(o.ID)).B94(round(o.X)).B94(round(o.Y)).Str(o.Cue.Text)
		return
	}
	l.Op(protocol.RecSound).Int(o.Cue.Sound).B94(round(o.X)).B94(round(o.Y))
}

// encodeObject appends the create/update record of a tracked entity:
// id, draw position, image, team and type code, then the type extras.
func encodeObject(l *protocol.Line, o *Entity) {
	l.Op(protocol.RecObject).B94(int(o.ID)).B94(o.DrawX()).B94(o.DrawY()).B94(o.Image).
		Int(int(o.Team())).Str(o.Code)
	switch {
	case o.Player != nil:
		name := o.Name()
		l.Int(protocol.WordCount(name)).Str(name).Raw("`" + o.Player.ChatText).B94(o.Life.HPPercent())
	case o.Life != nil && o.Kind != KindVendor:
		l.Str("{").B94(o.Life.HPPercent())
	default:
		l.Str("{").B94(0)
	}
}

// Sync runs every connected player's viewer and queues the batches on
// their outboxes. observe, when set, is told about each viewer's result.
func (w *World) Sync(observe func(SyncResult)) {
	w.eachPlayer(func(e *Entity) {
		p := e.Player
		if p.viewer == nil {
			p.viewer = NewViewer()
		}
		batch, res := p.viewer.Sync(w, e)
		if p.Out != nil {
			p.Out.Queue(batch)
		}
		if observe != nil {
			observe(res)
		}
	})
}
