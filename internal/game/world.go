package game

import (
	"errors"
	"io"
	"math/rand"
	"strconv"

	"github.com/sirupsen/logrus"

	"castle-wars/internal/game/spatial"
	"castle-wars/internal/protocol"
	"castle-wars/internal/scoreboard"
)

var (
	ErrGameOver   = errors.New("game over")
	ErrServerFull = errors.New("server full")
)

// Scheduled event periods in ticks.
const (
	ScoreInterval = 60
	SpawnerGap    = 40
)

// Broadcaster fans a record out to every session, or to one team.
type Broadcaster interface {
	Broadcast(line string)
	BroadcastTeam(team Team, line string)
}

// ScoreSink receives scoreboard changes and the final match result.
type ScoreSink interface {
	Update(entry scoreboard.Entry)
	Remove(id uint32)
	RecordMatch(result scoreboard.MatchResult)
}

// WorldOptions configures a new world. Zero values select defaults.
type WorldOptions struct {
	Seed        int64
	CellSize    float64
	Capacity    int
	Broadcaster Broadcaster
	Events      *EventLog
	Scores      ScoreSink
	Log         logrus.FieldLogger
}

// World is the whole simulation state. It is owned by a single goroutine:
// every method must be called from the tick loop.
type World struct {
	Map *TileMap

	store *Store
	tick  uint64
	rng   *rand.Rand
	teams [3]*TeamState

	log    logrus.FieldLogger
	bcast  Broadcaster
	events *EventLog
	scores ScoreSink

	// eachInBox scratch space
	scratch []uint32
	visited map[EntityID]struct{}

	projectiles   int
	spawnRejected int

	vendor  EntityID
	over    bool
	loser   Team
	matchID string
}

// NewWorld builds the battlefield on m: a castle with its turrets and
// spawners at each end and a vendor in the middle.
func NewWorld(m *TileMap, opts WorldOptions) *World {
	if opts.CellSize <= 0 {
		opts.CellSize = 256
	}
	if opts.Log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		opts.Log = l
	}

	grid := spatial.NewGrid(m.Width(), m.Height(), opts.CellSize)
	w := &World{
		Map:     m,
		store:   NewStore(grid, opts.Capacity),
		rng:     rand.New(rand.NewSource(opts.Seed)),
		log:     opts.Log,
		bcast:   opts.Broadcaster,
		events:  opts.Events,
		scores:  opts.Scores,
		visited: make(map[EntityID]struct{}, 64),
	}
	w.store.OnRemove = w.onRemove

	castleW := BuildingCastle.Spec().W
	for _, t := range Teams {
		ts := newTeamState(t)
		w.teams[t] = ts

		x := 0.0
		if t == Blue {
			x = m.Width() - castleW
		}
		w.buildCastle(ts, x)
	}

	vx := m.Width()/2 - VendorWidth/2
	v := newVendorEntity(vx, m.GroundY(vx+VendorWidth/2)-VendorHeight)
	w.vendor = w.store.Add(v)

	w.store.Flush()
	return w
}

func (w *World) buildCastle(ts *TeamState, x float64) {
	spec := BuildingCastle.Spec()
	ground := w.Map.GroundY(x + spec.W/2)
	e := newBuildingEntity(BuildingCastle, ts.Team, x, ground-spec.H)
	w.store.Add(e)

	c := NewCastle(ts.Team, e.Life)
	c.Entity = e.ID
	ts.Castle = c
	w.rebuildCastleTurrets(c)

	// One spawner inside the walls, one in front of the gate.
	front := x + spec.W + SpawnerGap
	if ts.Team == Blue {
		front = x - SpawnerGap - SpawnerWidth
	}
	for _, sx := range []float64{x + spec.W/2, front} {
		gy := w.Map.GroundY(sx + SpawnerWidth/2)
		c.Spawners = append(c.Spawners, w.addSpawner(ts.Team, sx, gy-SpawnerHeight))
	}
}

// Tick returns the current world counter.
func (w *World) Tick() uint64 { return w.tick }

// Over reports whether a castle has fallen, and which team lost.
func (w *World) Over() (bool, Team) { return w.over, w.loser }

// Team returns the state of a playing team, nil for Neutral.
func (w *World) Team(t Team) *TeamState { return w.team(t) }

// Entity returns a live entity.
func (w *World) Entity(id EntityID) *Entity { return w.store.Live(id) }

// Store exposes the entity store.
func (w *World) Store() *Store { return w.store }

func (w *World) team(t Team) *TeamState {
	if t != Red && t != Blue {
		return nil
	}
	return w.teams[t]
}

// Step advances the world by one tick: queued additions and removals are
// applied, every entity updates in creation order, then the team
// economies and scheduled events run. A finished match no longer
// advances.
func (w *World) Step() {
	if w.over {
		return
	}
	w.tick++
	w.store.Flush()
	w.store.Each(w.updateEntity)
	for _, t := range Teams {
		w.updateEconomy(w.teams[t])
	}
	if w.tick%ScoreInterval == 0 {
		w.publishScores()
	}
}

func (w *World) updateEntity(e *Entity) {
	switch e.Kind {
	case KindPlayer:
		w.updatePlayer(e)
	case KindUnit:
		w.updateUnit(e)
	case KindBuilding:
		w.updateBuilding(e)
	case KindVendor:
		w.updateVendor(e)
	case KindItem:
		w.updateItem(e)
	case KindProjectile:
		w.updateProjectile(e)
	case KindText, KindSound:
		w.updateCue(e)
	case KindTurret:
		w.updateTurret(e)
	case KindHeld:
		w.updateHeld(e)
	}
}

func (w *World) updateEconomy(ts *TeamState) {
	if ts == nil || ts.Castle == nil {
		return
	}
	for _, k := range ts.Castle.Update(w.tick, w.rng, w.barracksUnits) {
		w.spawnUnit(ts, k)
	}
}

func (w *World) barracksUnits(id EntityID) []UnitKind {
	b := w.store.Live(id)
	if b == nil || b.Building == nil {
		return nil
	}
	return b.Building.Kind.Spec().Units
}

// onRemove runs as the store drops an entity.
func (w *World) onRemove(e *Entity) {
	switch e.Kind {
	case KindUnit:
		if e.Unit.Admitted {
			if ts := w.team(e.Team()); ts != nil && ts.Castle != nil {
				ts.Castle.Release(e.Unit.Housing)
			}
		}
	case KindProjectile:
		w.projectiles--
	}
}

func (w *World) broadcast(line string) {
	if w.bcast != nil {
		w.bcast.Broadcast(line)
	}
}

func (w *World) emit(t EventType, actor string, payload any) {
	if w.events != nil {
		w.events.EmitSimple(t, w.tick, actor, payload)
	}
}

func (w *World) scoreEntry(e *Entity) scoreboard.Entry {
	p := e.Player
	return scoreboard.Entry{
		ID:          uint32(e.ID),
		Name:        e.Name(),
		Team:        int(e.Team()),
		Kills:       p.Kills,
		Deaths:      p.Deaths,
		DamageDealt: p.DamageDealt,
		MoneySpent:  p.MoneySpent,
		Score:       p.Score(),
	}
}

// publishScores broadcasts the scoreboard rows and mirrors them to the
// score sink.
func (w *World) publishScores() {
	w.eachPlayer(func(e *Entity) {
		p := e.Player
		var l protocol.Line
		l.Op(protocol.RecScoreUpdate).B94(int(e.ID)).Int(p.Kills).Int(p.Deaths).Int(p.Score())
		w.broadcast(l.String())
		if w.scores != nil {
			w.scores.Update(w.scoreEntry(e))
		}
	})
}

// eachPlayer calls fn for every flushed player on either team.
func (w *World) eachPlayer(fn func(*Entity)) {
	for _, t := range Teams {
		for _, id := range w.store.Roster(t) {
			if e := w.store.Live(id); e != nil && e.Player != nil {
				fn(e)
			}
		}
	}
}

// castleFell ends the match with loser as the losing team.
func (w *World) castleFell(loser Team) {
	if w.over {
		return
	}
	w.over = true
	w.loser = loser
	w.broadcast(protocol.Record(protocol.RecGameOver, strconv.Itoa(int(loser))))
	w.log.WithFields(logrus.Fields{"loser": loser.String(), "tick": w.tick}).Info("🏁 Castle destroyed, game over")
	w.emit(EventTypeGameOver, "", GameOverPayload{Loser: loser.String(), Ticks: w.tick})

	if w.scores == nil {
		return
	}
	var standings []scoreboard.Entry
	w.eachPlayer(func(e *Entity) {
		standings = append(standings, w.scoreEntry(e))
	})
	w.scores.RecordMatch(scoreboard.MatchResult{
		ID:        w.matchID,
		Loser:     int(loser),
		Winner:    int(loser.Enemy()),
		Ticks:     w.tick,
		Standings: standings,
	})
}

// SetMatchID labels the match for its recorded result.
func (w *World) SetMatchID(id string) { w.matchID = id }

// Join creates a player on the smaller team, queues the handshake reply
// (map header, map rows, player line) on out and announces the player on
// the scoreboard.
func (w *World) Join(name, subject string, out *protocol.Outbox) (*Entity, error) {
	if w.over {
		return nil, ErrGameOver
	}
	team := pickTeam(w.teams[Red], w.teams[Blue])
	ts := w.teams[team]

	e := newPlayerEntity(name, team, ts.Config)
	p := e.Player
	p.Subject = subject
	p.Out = out
	p.viewer = NewViewer()
	w.store.Add(e)
	ts.Players++

	w.giveStartWeapon(e)
	w.addItem(e, ItemMoney, StartMoney)
	w.placeAtCastle(e)

	if out != nil {
		w.sendHandshake(e, out)
	}

	w.eachPlayer(func(o *Entity) {
		p.queue(protocol.RecScoreJoin).B94(int(o.ID)).Int(int(o.Team())).
			Int(protocol.WordCount(o.Name())).Str(o.Name())
	})
	var l protocol.Line
	l.Op(protocol.RecScoreJoin).B94(int(e.ID)).Int(int(team)).Int(protocol.WordCount(name)).Str(name)
	w.broadcast(l.String())

	w.log.WithFields(logrus.Fields{"player": name, "team": team.String(), "id": e.ID}).Info("👤 Player joined")
	w.emit(EventTypePlayerJoin, subject, PlayerPayload{ID: e.ID, Name: name, Team: team.String(), X: e.X, Y: e.Y})
	return e, nil
}

func (w *World) sendHandshake(e *Entity, out *protocol.Outbox) {
	m := w.Map
	out.Send(strconv.Itoa(m.Rows) + " " + strconv.Itoa(m.Cols) + " " + strconv.Itoa(int(m.TileSize)))
	for _, row := range m.Lines() {
		out.Send(row)
	}
	var l protocol.Line
	l.Raw(protocol.EncodeB94(int(e.ID))).B94(round(e.X)).B94(round(e.Y)).Int(e.Image).Int(int(e.Team()))
	out.Send(l.String())
}

// Leave tears a player down: shops released, held action ended,
// everything dropped, scoreboard row removed and the entity destroyed.
func (w *World) Leave(id EntityID) {
	e := w.store.Live(id)
	if e == nil || e.Player == nil {
		return
	}
	w.releaseShops(e)
	w.endAction(e)
	w.clearHologram(e)
	if e.Life.Alive {
		w.dropAll(e)
	}
	if n := e.Life.Inventory.Remove(ItemMoney, e.Life.Inventory.Count(ItemMoney)); n > 0 {
		w.dropItem(e, ItemMoney, n)
	}
	if ts := w.team(e.Team()); ts != nil {
		ts.Players--
	}
	e.Player.Out = nil
	if e.Player.viewer != nil {
		e.Player.viewer.Forget()
	}
	w.store.Destroy(id)

	w.broadcast(protocol.Record(protocol.RecScoreLeave, protocol.EncodeB94(int(id))))
	if w.scores != nil {
		w.scores.Remove(uint32(id))
	}
	w.log.WithFields(logrus.Fields{"player": e.Name(), "id": id}).Info("👋 Player left")
	w.emit(EventTypePlayerLeave, e.Player.Subject, PlayerPayload{ID: id, Name: e.Name(), Team: e.Team().String()})
}

// Say shows chat text above the player and returns who said it.
func (w *World) Say(id EntityID, text string) (name string, team Team, ok bool) {
	e := w.store.Live(id)
	if e == nil || e.Player == nil {
		return "", Neutral, false
	}
	w.setChatText(e, text)
	return e.Name(), e.Team(), true
}

// Apply carries out one client command for player id. It reports false
// when the command was invalid in the current state and changed nothing.
func (w *World) Apply(id EntityID, cmd protocol.Command) bool {
	e := w.store.Live(id)
	if e == nil || e.Player == nil {
		return false
	}
	p := e.Player

	switch cmd.Op {
	case protocol.OpMoveRight:
		p.MovingRight = true
	case protocol.OpStopRight:
		p.MovingRight = false
	case protocol.OpMoveLeft:
		p.MovingLeft = true
	case protocol.OpStopLeft:
		p.MovingLeft = false
	case protocol.OpJump:
		p.jump = true
	case protocol.OpDrop:
		p.Dropping = true
	case protocol.OpStopDrop:
		p.Dropping = false
	case protocol.OpPrimary:
		p.MouseX, p.MouseY = cmd.X, cmd.Y
		if cmd.Trigger {
			return w.startPrimary(e, cmd.X, cmd.Y)
		}
	case protocol.OpSecondary:
		p.MouseX, p.MouseY = cmd.X, cmd.Y
		return w.startBlock(e, cmd.X, cmd.Y)
	case protocol.OpForceEnd:
		w.endAction(e)
	case protocol.OpFaceRight:
		e.Life.Facing = FacingRight
	case protocol.OpFaceLeft:
		e.Life.Facing = FacingLeft
	case protocol.OpDropItem:
		k, ok := ItemByCode(cmd.Code)
		return ok && w.dropInventoryItem(e, k)
	case protocol.OpDropWeapon:
		return w.dropWeapon(e, cmd.Slot)
	case protocol.OpUsePotion:
		k, ok := ItemByCode(cmd.Code)
		return ok && w.usePotion(e, k)
	case protocol.OpUnequip:
		return w.unequip(e, cmd.Slot)
	case protocol.OpEquipWeapon:
		k, ok := ItemByCode(cmd.Code)
		return ok && w.equipWeapon(e, k)
	case protocol.OpEquipArmour:
		k, ok := ItemByCode(cmd.Code)
		return ok && w.equipArmour(e, k)
	case protocol.OpSelectSlot:
		return w.selectSlot(e, cmd.Slot)
	case protocol.OpBuy:
		return w.buy(e, cmd.Code)
	case protocol.OpBuyCastle:
		return w.buyCastle(e, cmd.Code)
	case protocol.OpSell:
		return w.sell(e, cmd.Code)
	case protocol.OpInteract:
		return w.interact(e)
	case protocol.OpSetName:
		e.Life.Name = cmd.Text
	case protocol.OpScreen:
		p.ViewW = clampView(cmd.X)
		p.ViewH = clampView(cmd.Y)
	case protocol.OpPosition:
		// The server owns positions; reports are accepted and ignored.
	case protocol.OpPingReport:
		p.Ping = cmd.Slot
	default:
		return false
	}
	return true
}

func clampView(v float64) int {
	return max(1, min(int(v), MaxViewSize))
}

// WorldStats is a cheap summary for metrics.
type WorldStats struct {
	Tick          uint64 `json:"tick"`
	Entities      int    `json:"entities"`
	Projectiles   int    `json:"projectiles"`
	SpawnRejected int    `json:"spawnRejected"`
	RedPlayers    int    `json:"redPlayers"`
	BluePlayers   int    `json:"bluePlayers"`
}

// Stats returns the current world counters.
func (w *World) Stats() WorldStats {
	return WorldStats{
		Tick:          w.tick,
		Entities:      w.store.Len(),
		Projectiles:   w.projectiles,
		SpawnRejected: w.spawnRejected,
		RedPlayers:    w.teams[Red].Players,
		BluePlayers:   w.teams[Blue].Players,
	}
}
