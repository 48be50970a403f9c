package game

import (
	"math"
)

// Unit behaviour constants.
const (
	UnitLeash      = 1.5 // multiple of acquisition range before giving up
	UnitReach      = 8
	unitRetargetIv = 15
)

// Unit is the payload of an AI creature.
type Unit struct {
	Kind       UnitKind
	Target     EntityID
	NextAttack uint64
	Admitted   bool
	Housing    int
	Speed      float64
	Jump       float64
}

func newUnitEntity(k UnitKind, team Team, cfg TeamConfig) *Entity {
	spec := k.Spec()
	hp := spec.HP + cfg.StartHP - PlayerBaseHP
	return &Entity{
		Kind:    KindUnit,
		W:       spec.W,
		H:       spec.H,
		Visible: true,
		Solid:   true,
		Gravity: DefaultGravity,
		Image:   spec.Image,
		Code:    spec.Code,
		Life: &Creature{
			HP:         hp,
			MaxHP:      hp,
			Team:       team,
			Alive:      true,
			Attackable: true,
			BaseDamage: cfg.BaseDamage,
			Name:       spec.Name,
		},
		Unit: &Unit{
			Kind:    k,
			Housing: spec.Housing,
			Speed:   spec.Speed,
			Jump:    spec.Jump,
		},
	}
}

// spawnUnit creates a unit at one of the team's spawners. The castle
// admits it against the population limit first; a unit that does not fit
// is destroyed at once and the population is left unchanged.
func (w *World) spawnUnit(ts *TeamState, k UnitKind) *Entity {
	castle := ts.Castle
	if castle == nil || len(castle.Spawners) == 0 {
		return nil
	}
	sp := w.store.Live(castle.Spawners[w.rng.Intn(len(castle.Spawners))])
	if sp == nil {
		return nil
	}

	e := newUnitEntity(k, ts.Team, ts.Config)
	e.X = sp.X
	e.Y = sp.Y - e.H - w.Map.TileSize
	w.store.Add(e)

	if !castle.Admit(e.Unit.Housing) {
		w.store.Destroy(e.ID)
		w.spawnRejected++
		w.emit(EventTypeSpawnRejected, "", SpawnRejectedPayload{
			Team:       ts.Team.String(),
			Unit:       k.String(),
			Population: castle.Population,
			Limit:      castle.PopLimit,
		})
		return nil
	}
	e.Unit.Admitted = true
	return e
}

// updateUnit runs the unit AI: keep or acquire a target, walk toward it
// and hit it on cooldown; without a target march on the enemy castle.
func (w *World) updateUnit(e *Entity) {
	u := e.Unit
	spec := u.Kind.Spec()

	target := w.store.Live(u.Target)
	if target != nil && (!target.Life.Damageable(e.Team()) || dist(e, target) > spec.Range*UnitLeash) {
		target = nil
	}
	if target == nil && (w.tick+uint64(e.ID))%unitRetargetIv == 0 {
		target = w.findTarget(e.Team(), e.CenterX(), e.CenterY(), spec.Range)
	}
	if target == nil {
		u.Target = NoEntity
		if c := w.enemyCastle(e.Team()); c != nil {
			target = c
		}
	} else {
		u.Target = target.ID
	}

	e.VX = 0
	if target != nil {
		reach := MeleeBox(e)
		reach.X -= UnitReach
		reach.W += 2 * UnitReach
		if reach.Intersects(target.Box()) {
			if target.CenterX() < e.CenterX() {
				e.Life.Facing = FacingLeft
			} else {
				e.Life.Facing = FacingRight
			}
			if w.tick >= u.NextAttack && target.Life.Damageable(e.Team()) {
				u.NextAttack = w.tick + uint64(spec.Cooldown)
				w.inflictDamage(target, scaled(spec.Damage, e.Life.BaseDamage), e)
			}
		} else if target.CenterX() < e.CenterX() {
			e.VX = -u.Speed
			e.Life.Facing = FacingLeft
		} else {
			e.VX = u.Speed
			e.Life.Facing = FacingRight
		}
	}

	walking := e.VX != 0
	w.Map.Move(e, false)
	if walking && e.VX == 0 && e.OnSurface {
		e.VY = -u.Jump
	}
	w.store.Moved(e)
	e.Image = unitImage(e, w.tick)
}

func (w *World) enemyCastle(team Team) *Entity {
	ts := w.team(team.Enemy())
	if ts == nil || ts.Castle == nil {
		return nil
	}
	c := w.store.Live(ts.Castle.Entity)
	if c == nil || !c.Life.Damageable(team) {
		return nil
	}
	return c
}

func dist(a, b *Entity) float64 {
	return math.Hypot(a.CenterX()-b.CenterX(), a.CenterY()-b.CenterY())
}
