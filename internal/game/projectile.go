package game

import (
	"math"
)

// MaxProjectiles caps live projectiles; shots past the cap are dropped.
const MaxProjectiles = 512

// Projectile is the payload of an arrow, bullet or spell in flight.
type Projectile struct {
	Kind   ProjectileKind
	Owner  EntityID
	Team   Team
	Damage int
	Until  uint64
}

// fireProjectile launches a projectile of kind k from e's centre toward
// (tx, ty). baseDamage scales the projectile's damage.
func (w *World) fireProjectile(e *Entity, k ProjectileKind, tx, ty float64, baseDamage int) {
	if w.projectiles >= MaxProjectiles {
		return
	}
	spec := k.Spec()
	ox, oy := e.CenterX(), e.CenterY()
	dx, dy := tx-ox, ty-oy
	dist := math.Hypot(dx, dy)
	if dist == 0 {
		dist = 1
		dx = 1
	}

	w.projectiles++
	w.store.Add(&Entity{
		Kind:    KindProjectile,
		X:       ox - spec.Size/2,
		Y:       oy - spec.Size/2,
		W:       spec.Size,
		H:       spec.Size,
		VX:      spec.Speed * dx / dist,
		VY:      spec.Speed * dy / dist,
		Visible: true,
		Gravity: spec.Gravity,
		Image:   spec.Image,
		Code:    spec.Code,
		Projectile: &Projectile{
			Kind:   k,
			Owner:  e.ID,
			Team:   e.Team(),
			Damage: scaled(spec.Damage, baseDamage),
			Until:  w.tick + uint64(spec.Life),
		},
	})
}

// updateProjectile moves a projectile and resolves its first hit. Terrain
// and expiry destroy it without damage.
func (w *World) updateProjectile(e *Entity) {
	pr := e.Projectile
	if w.tick > pr.Until {
		w.store.Destroy(e.ID)
		return
	}

	e.VY += e.Gravity
	e.X += e.VX
	e.Y += e.VY
	if e.X < 0 || e.X > w.Map.Width() || e.Y > w.Map.Height() {
		w.store.Destroy(e.ID)
		return
	}
	ts := w.Map.TileSize
	if w.Map.Solid(int((e.CenterY())/ts), int((e.CenterX())/ts)) {
		w.store.Destroy(e.ID)
		return
	}
	w.store.Moved(e)

	box := e.Box()
	var target *Entity
	w.eachInBox(box, func(t *Entity) {
		if target != nil || t.Life == nil || !t.Life.Damageable(pr.Team) {
			return
		}
		if box.Intersects(t.Box()) {
			target = t
		}
	})
	if target == nil {
		return
	}
	w.store.Destroy(e.ID)
	w.inflictDamage(target, pr.Damage, w.store.Get(pr.Owner))
}
