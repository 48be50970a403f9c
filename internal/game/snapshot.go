package game

import (
	"sort"
	"sync/atomic"
	"time"
)

// SnapshotLimits caps what a snapshot copies out of the world.
type SnapshotLimits struct {
	MaxPlayers int // Players listed, best first
	MaxDots    int // Entities drawn on the minimap
}

// DefaultSnapshotLimits provides production-safe default limits
var DefaultSnapshotLimits = SnapshotLimits{
	MaxPlayers: 200,
	MaxDots:    4096,
}

// CastleStatus is the public state of one team's castle.
type CastleStatus struct {
	Team       string `json:"team"`
	HP         int    `json:"hp"`
	MaxHP      int    `json:"maxHp"`
	Tier       int    `json:"tier"`
	XP         int    `json:"xp"`
	Money      int    `json:"money"`
	Population int    `json:"population"`
	PopLimit   int    `json:"popLimit"`
	Barracks   int    `json:"barracks"`
	Arrow      string `json:"arrow"`
	Players    int    `json:"players"`
	Kills      int    `json:"kills"`
}

// PlayerSnapshot is an immutable copy of player state
// Uses value types (not pointers) to ensure immutability
type PlayerSnapshot struct {
	ID          EntityID `json:"id"`
	Name        string   `json:"name"`
	Team        string   `json:"team"`
	X           float64  `json:"x"`
	Y           float64  `json:"y"`
	HP          int      `json:"hp"`
	MaxHP       int      `json:"maxHp"`
	Alive       bool     `json:"alive"`
	Kills       int      `json:"kills"`
	Deaths      int      `json:"deaths"`
	Score       int      `json:"score"`
	Money       int      `json:"money"`
	Weapon      string   `json:"weapon,omitempty"`
	Action      string   `json:"action"`
	Ping        int      `json:"ping"`
	VisibleObjs int      `json:"visible"`
}

// DotSnapshot is one entity on the minimap.
type DotSnapshot struct {
	X, Y, W, H float64
	Kind       Kind
	Team       Team
}

// GameSnapshot is a complete immutable game state for HTTP readers
// All slices are pre-allocated and capped to prevent memory attacks
type GameSnapshot struct {
	Sequence  uint64    `json:"sequence"`
	Timestamp time.Time `json:"timestamp"`
	Tick      uint64    `json:"tick"`

	Castles [2]CastleStatus  `json:"castles"`
	Players []PlayerSnapshot `json:"players"`
	Dots    []DotSnapshot    `json:"-"`

	Entities      int    `json:"entities"`
	Units         int    `json:"units"`
	Projectiles   int    `json:"projectiles"`
	SpawnRejected int    `json:"spawnRejected"`
	GameOver      bool   `json:"gameOver"`
	Loser         string `json:"loser,omitempty"`

	MapWidth  float64 `json:"mapWidth"`
	MapHeight float64 `json:"mapHeight"`
}

// SnapshotPool pre-allocates snapshots to avoid GC pressure
// Uses triple buffering so HTTP readers never take the engine lock
type SnapshotPool struct {
	snapshots [3]GameSnapshot
	limits    SnapshotLimits
	writeIdx  uint32 // atomic - producer index
	readIdx   uint32 // atomic - consumer index
	sequence  uint64 // atomic - monotonic sequence
}

// NewSnapshotPool creates a pool with pre-allocated slices
func NewSnapshotPool(limits SnapshotLimits) *SnapshotPool {
	pool := &SnapshotPool{limits: limits}
	for i := 0; i < 3; i++ {
		pool.snapshots[i] = GameSnapshot{
			Players: make([]PlayerSnapshot, 0, limits.MaxPlayers),
			Dots:    make([]DotSnapshot, 0, limits.MaxDots),
		}
	}
	return pool
}

// AcquireWrite gets the next write slot (producer only, called from the tick)
// Returns a snapshot with reset slices but preserved capacity
func (p *SnapshotPool) AcquireWrite() *GameSnapshot {
	idx := atomic.AddUint32(&p.writeIdx, 1) % 3
	snap := &p.snapshots[idx]

	players, dots := snap.Players[:0], snap.Dots[:0]
	*snap = GameSnapshot{Players: players, Dots: dots}

	snap.Sequence = atomic.AddUint64(&p.sequence, 1)
	snap.Timestamp = time.Now()
	return snap
}

// PublishWrite marks write complete and advances read pointer
func (p *SnapshotPool) PublishWrite() {
	atomic.StoreUint32(&p.readIdx, atomic.LoadUint32(&p.writeIdx))
}

// AcquireRead gets the latest complete snapshot
func (p *SnapshotPool) AcquireRead() *GameSnapshot {
	idx := atomic.LoadUint32(&p.readIdx) % 3
	return &p.snapshots[idx]
}

// Copy returns a deep copy safe to keep past the next tick.
func (s *GameSnapshot) Copy() GameSnapshot {
	out := *s
	out.Players = append([]PlayerSnapshot(nil), s.Players...)
	out.Dots = append([]DotSnapshot(nil), s.Dots...)
	return out
}

// CastleStatus returns the public state of a team castle.
func (w *World) CastleStatus(t Team) CastleStatus {
	ts := w.team(t)
	if ts == nil || ts.Castle == nil {
		return CastleStatus{Team: t.String()}
	}
	c := ts.Castle
	return CastleStatus{
		Team:       t.String(),
		HP:         max(c.HP(), 0),
		MaxHP:      c.MaxHP(),
		Tier:       c.Tier,
		XP:         c.XP,
		Money:      c.Money,
		Population: c.Population,
		PopLimit:   c.PopLimit,
		Barracks:   len(c.Barracks()),
		Arrow:      c.Arrow.Spec().Code,
		Players:    ts.Players,
		Kills:      ts.Kills,
	}
}

// fillSnapshot copies the world into snap.
func (w *World) fillSnapshot(snap *GameSnapshot, limits SnapshotLimits) {
	snap.Tick = w.tick
	snap.Castles = [2]CastleStatus{w.CastleStatus(Red), w.CastleStatus(Blue)}
	snap.Entities = w.store.Len()
	snap.Projectiles = w.projectiles
	snap.SpawnRejected = w.spawnRejected
	snap.GameOver = w.over
	if w.over {
		snap.Loser = w.loser.String()
	}
	snap.MapWidth, snap.MapHeight = w.Map.Width(), w.Map.Height()

	var players []*Entity
	w.eachPlayer(func(e *Entity) { players = append(players, e) })

	// Alive first, then score, then name for a deterministic order
	sort.Slice(players, func(i, j int) bool {
		a, b := players[i], players[j]
		if a.Life.Alive != b.Life.Alive {
			return a.Life.Alive
		}
		if sa, sb := a.Player.Score(), b.Player.Score(); sa != sb {
			return sa > sb
		}
		return a.Name() < b.Name()
	})
	for _, e := range players {
		if len(snap.Players) >= limits.MaxPlayers {
			break
		}
		p := e.Player
		ps := PlayerSnapshot{
			ID:     e.ID,
			Name:   e.Name(),
			Team:   e.Team().String(),
			X:      e.X,
			Y:      e.Y,
			HP:     e.Life.HP,
			MaxHP:  e.Life.MaxHP,
			Alive:  e.Life.Alive,
			Kills:  p.Kills,
			Deaths: p.Deaths,
			Score:  p.Score(),
			Money:  e.Life.Inventory.Money(),
			Weapon: p.SelectedWeapon().Spec().Name,
			Action: p.Action.Kind.String(),
			Ping:   p.Ping,
		}
		if p.viewer != nil {
			ps.VisibleObjs = p.viewer.Visible()
		}
		snap.Players = append(snap.Players, ps)
	}

	w.store.Each(func(e *Entity) {
		if e.Kind == KindUnit {
			snap.Units++
		}
		if !e.Visible || e.Kind.Cue() || len(snap.Dots) >= limits.MaxDots {
			return
		}
		snap.Dots = append(snap.Dots, DotSnapshot{X: e.X, Y: e.Y, W: e.W, H: e.H, Kind: e.Kind, Team: e.Team()})
	})
}
