package game

import (
	"castle-wars/internal/protocol"
)

// Building and turret constants.
const (
	GoldMineInterval = 600
	TurretCooldown   = 60
	TurretSize       = 16
	SpawnerWidth     = 32
	SpawnerHeight    = 64
	HologramSnap     = 6
	HologramBadImage = 1
)

// Building is the payload of castles and player-placed structures.
type Building struct {
	Kind    BuildingKind
	Turrets []EntityID
}

// Turret is an invisible arrow source mounted on a castle or tower.
type Turret struct {
	Owner    EntityID
	Range    float64
	Arrow    ProjectileKind
	NextShot uint64
}

// Spawner marks where a team's units appear.
type Spawner struct {
	Team Team
}

// Hologram is the placement preview of a building item. Only its owner
// sees it.
type Hologram struct {
	Owner    EntityID
	Building BuildingKind
	CanPlace bool
	ClientY  int
}

func newBuildingEntity(k BuildingKind, team Team, x, y float64) *Entity {
	spec := k.Spec()
	return &Entity{
		Kind:    KindBuilding,
		X:       x,
		Y:       y,
		W:       spec.W,
		H:       spec.H,
		Visible: true,
		Image:   spec.Image,
		Code:    spec.Code,
		Life: &Creature{
			HP:         spec.HP,
			MaxHP:      spec.HP,
			Team:       team,
			Alive:      true,
			Attackable: true,
			Name:       spec.Name,
		},
		Building: &Building{Kind: k},
	}
}

// addBuilding puts a building into the world and hooks it into its team's
// economy.
func (w *World) addBuilding(k BuildingKind, team Team, x, y float64) *Entity {
	e := newBuildingEntity(k, team, x, y)
	w.store.Add(e)

	ts := w.team(team)
	spec := k.Spec()
	if ts != nil && ts.Castle != nil {
		if len(spec.Units) > 0 {
			ts.Castle.AddBarracks(e.ID)
		}
		if spec.PopBonus > 0 {
			ts.Castle.RaisePopLimit(spec.PopBonus)
		}
	}
	if k == BuildingTower {
		arrow := ProjWoodArrow
		if ts != nil && ts.Castle != nil {
			arrow = ts.Castle.Arrow
		}
		w.addTurret(e, e.W/2, 0, spec.TurretRange, arrow)
	}
	return e
}

// buildingDestroyed unhooks a building from its team's economy. A fallen
// castle ends the match.
func (w *World) buildingDestroyed(e *Entity) {
	b := e.Building
	for _, id := range b.Turrets {
		w.store.Destroy(id)
	}
	b.Turrets = nil

	ts := w.team(e.Team())
	if ts == nil || ts.Castle == nil {
		return
	}
	spec := b.Kind.Spec()
	if b.Kind == BuildingCastle {
		w.castleFell(ts.Team)
		return
	}
	if len(spec.Units) > 0 {
		ts.Castle.RemoveBarracks(e.ID)
	}
	if spec.PopBonus > 0 {
		ts.Castle.LowerPopLimit(spec.PopBonus)
	}
	w.emit(EventTypeBuildingDestroyed, "", BuildingPayload{ID: e.ID, Building: spec.Name, Team: ts.Team.String()})
}

func (w *World) updateBuilding(e *Entity) {
	if e.Building.Kind == BuildingGoldMine && w.tick%GoldMineInterval == 0 {
		if ts := w.team(e.Team()); ts != nil && ts.Castle != nil {
			ts.Castle.AddMoney(1)
		}
	}
}

func (w *World) addTurret(owner *Entity, dx, dy, rng float64, arrow ProjectileKind) EntityID {
	t := &Entity{
		Kind: KindTurret,
		X:    owner.X + dx,
		Y:    owner.Y + dy,
		W:    TurretSize,
		H:    TurretSize,
		Code: "TU",
		Turret: &Turret{
			Owner: owner.ID,
			Range: rng,
			Arrow: arrow,
		},
	}
	id := w.store.Add(t)
	owner.Building.Turrets = append(owner.Building.Turrets, id)
	return id
}

// rebuildCastleTurrets replaces the castle's arrow sources so they shoot
// the castle's current arrow type.
func (w *World) rebuildCastleTurrets(c *Castle) {
	castle := w.store.Live(c.Entity)
	if castle == nil {
		return
	}
	for _, id := range castle.Building.Turrets {
		w.store.Destroy(id)
	}
	castle.Building.Turrets = nil
	rng := BuildingCastle.Spec().TurretRange
	w.addTurret(castle, CastleTurretDX1, CastleTurretDY, rng, c.Arrow)
	w.addTurret(castle, CastleTurretDX2, CastleTurretDY, rng, c.Arrow)
	c.Turrets = castle.Building.Turrets
}

func (w *World) updateTurret(e *Entity) {
	t := e.Turret
	owner := w.store.Live(t.Owner)
	if owner == nil {
		w.store.Destroy(e.ID)
		return
	}
	if w.tick < t.NextShot {
		return
	}
	target := w.findTarget(owner.Team(), e.CenterX(), e.CenterY(), t.Range)
	if target == nil {
		return
	}
	t.NextShot = w.tick + TurretCooldown
	w.fireProjectileFrom(e, owner, t.Arrow, target.CenterX(), target.CenterY())
}

// fireProjectileFrom shoots from a turret; the kill is credited to the
// building it sits on.
func (w *World) fireProjectileFrom(turret, owner *Entity, k ProjectileKind, tx, ty float64) {
	before := w.store.LastID()
	w.fireProjectile(turret, k, tx, ty, 0)
	if id := w.store.LastID(); id != before {
		if pr := w.store.Get(id); pr != nil && pr.Projectile != nil {
			pr.Projectile.Owner = owner.ID
			pr.Projectile.Team = owner.Team()
		}
	}
}

func (w *World) addSpawner(team Team, x, y float64) EntityID {
	return w.store.Add(&Entity{
		Kind:    KindSpawner,
		X:       x,
		Y:       y,
		W:       SpawnerWidth,
		H:       SpawnerHeight,
		Code:    "SP",
		Spawner: &Spawner{Team: team},
	})
}

// createHologram starts a placement preview for building k.
func (w *World) createHologram(e *Entity, k BuildingKind) {
	spec := k.Spec()
	h := &Entity{
		Kind:     KindHologram,
		X:        e.X,
		Y:        e.Y,
		W:        spec.W,
		H:        spec.H,
		Image:    spec.Image,
		Code:     "HO",
		Hologram: &Hologram{Owner: e.ID, Building: k},
	}
	e.Player.Hologram = w.store.Add(h)
}

func (w *World) clearHologram(e *Entity) {
	p := e.Player
	if p.Hologram != NoEntity {
		w.store.Destroy(p.Hologram)
		p.Hologram = NoEntity
	}
}

// updateHologram positions the owner's placement preview under the cursor,
// snapped to the nearest standable ground in view, and checks it does not
// overlap another building.
func (w *World) updateHologram(e *Entity) {
	p := e.Player
	if p.Hologram == NoEntity {
		return
	}
	h := w.store.Live(p.Hologram)
	if h == nil {
		p.Hologram = NoEntity
		return
	}
	if p.SelectedWeapon().Spec().Category != CatBuilding {
		w.clearHologram(e)
		return
	}

	ts := w.Map.TileSize
	viewH := float64(p.ViewH)
	x := p.MouseX - h.W/2 + e.X - float64(p.ViewW)/2
	y := p.MouseY - h.H/2 + e.Y - viewH/2
	h.X = x

	col := int(floorDiv(x, ts))
	bottom := int((e.CenterY() + viewH/2) / ts)
	top := int((e.CenterY() - viewH/2) / ts)
	clientY := 0
	snapped := false
	for row := int((y+h.H)/ts) + 1; row <= bottom; row++ {
		if w.Map.SurfaceRow(row, col, h.W) {
			y = float64(row)*ts - h.H - HologramSnap
			snapped = true
			break
		}
	}
	if !snapped {
		for row := int((y + h.H) / ts); row >= top; row-- {
			if w.Map.SurfaceRow(row, col, h.W) {
				y = float64(row)*ts - h.H - HologramSnap
				snapped = true
				break
			}
		}
	}
	if snapped {
		clientY = int(y + h.H/2 - e.Y + viewH/2)
	}
	h.Y = y
	w.store.Moved(h)

	hg := h.Hologram
	hg.ClientY = clientY
	hg.CanPlace = snapped && x >= 0 && x+h.W <= w.Map.Width() && !w.overlapsBuilding(h)
}

func (w *World) overlapsBuilding(h *Entity) bool {
	hit := false
	box := h.Box()
	w.eachInBox(box, func(o *Entity) {
		if o.Building != nil && box.Intersects(o.Box()) {
			hit = true
		}
	})
	return hit
}

// placeBuilding turns a valid hologram into a building of the player's
// team and consumes the building item.
func (w *World) placeBuilding(e *Entity) bool {
	p := e.Player
	h := w.store.Live(p.Hologram)
	if h == nil || !h.Hologram.CanPlace {
		return false
	}
	b := w.addBuilding(h.Hologram.Building, e.Team(), h.X, h.Y)
	p.Weapons[p.Selected] = ItemNone
	w.clearHologram(e)
	p.queue(protocol.RecPlaced)
	w.playSound(b, SoundPlace)
	w.emit(EventTypeBuildingPlaced, "", BuildingPayload{ID: b.ID, Building: b.Building.Kind.String(), Team: e.Team().String()})
	return true
}

// hologramImage is the image the owner's client draws for the preview.
func hologramImage(h *Entity) int {
	if h.Hologram.CanPlace {
		return h.Image
	}
	return HologramBadImage
}
