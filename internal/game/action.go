package game

import (
	"math"
)

// ActionKind is what a player is currently doing.
type ActionKind uint8

const (
	ActionNone ActionKind = iota
	ActionSwing
	ActionPunch
	ActionShoot
	ActionCast
	ActionBlock
)

func (k ActionKind) String() string {
	switch k {
	case ActionSwing:
		return "swing"
	case ActionPunch:
		return "punch"
	case ActionShoot:
		return "shoot"
	case ActionCast:
		return "cast"
	case ActionBlock:
		return "block"
	default:
		return "idle"
	}
}

// Action timings in ticks.
const (
	PunchDelay    = 16
	PunchHitFrame = 5
	BlockDelay    = 300
)

// NoManaText floats over a player who cannot afford a spell.
const NoManaText = "!M"

// Action is the Idle → Acting → Idle state of a player. The zero value is
// Idle.
type Action struct {
	Kind     ActionKind
	Progress int
	Delay    int
	Weapon   ItemKind
	TargetX  float64
	TargetY  float64
	hit      bool
}

// Idle reports whether a new action may start.
func (a Action) Idle() bool { return a.Kind == ActionNone }

// cursorWorld converts the client cursor, given relative to the player's
// screen, to world coordinates.
func cursorWorld(e *Entity, mx, my float64) (float64, float64) {
	p := e.Player
	return e.X + mx - float64(p.ViewW)/2, e.Y + my - float64(p.ViewH)/2
}

// startPrimary begins the primary action of the selected weapon toward
// the cursor. Building items place their hologram instead.
func (w *World) startPrimary(e *Entity, mx, my float64) bool {
	p := e.Player
	if !e.Life.Alive || !p.Action.Idle() {
		return false
	}
	tx, ty := cursorWorld(e, mx, my)
	face(e, tx)

	k := p.SelectedWeapon()
	spec := k.Spec()
	switch spec.Category {
	case CatNone:
		p.Action = Action{Kind: ActionPunch, Delay: PunchDelay, TargetX: tx, TargetY: ty}
		w.playSound(e, SoundPunch)
	case CatMelee:
		p.Action = Action{Kind: ActionSwing, Delay: spec.Delay, Weapon: k, TargetX: tx, TargetY: ty}
		w.holdWeapon(e, k)
		w.playSound(e, SoundSwing)
	case CatRanged:
		if p.Mana < spec.Mana {
			w.floatText(e.CenterX(), e.Y-e.H/2, TextPurple, NoManaText)
			return true
		}
		p.Mana -= spec.Mana
		kind := ActionShoot
		if spec.Mana > 0 {
			kind = ActionCast
		}
		p.Action = Action{Kind: kind, Delay: spec.Delay, Weapon: k, TargetX: tx, TargetY: ty}
		w.holdWeapon(e, k)
		w.fireProjectile(e, spec.Projectile, tx, ty, e.Life.BaseDamage)
		w.playSound(e, SoundShoot)
	case CatBuilding:
		return w.placeBuilding(e)
	default:
		return false
	}
	return true
}

// startBlock begins blocking; incoming damage is nullified until it ends.
func (w *World) startBlock(e *Entity, mx, my float64) bool {
	p := e.Player
	if !e.Life.Alive || !p.Action.Idle() {
		return false
	}
	tx, _ := cursorWorld(e, mx, my)
	face(e, tx)
	p.Action = Action{Kind: ActionBlock, Delay: BlockDelay}
	return true
}

func face(e *Entity, tx float64) {
	if tx < e.CenterX() {
		e.Life.Facing = FacingLeft
	} else {
		e.Life.Facing = FacingRight
	}
}

// updateAction advances the current action by one tick.
func (w *World) updateAction(e *Entity) {
	a := &e.Player.Action
	if a.Idle() {
		return
	}
	a.Progress++

	switch a.Kind {
	case ActionPunch:
		if !a.hit && a.Progress >= PunchHitFrame {
			a.hit = true
			w.meleeHit(e, scaled(PunchDamage, e.Life.BaseDamage))
		}
	case ActionSwing:
		if !a.hit && a.Progress >= a.Delay/2 {
			a.hit = true
			w.meleeHit(e, scaled(a.Weapon.Spec().Damage, e.Life.BaseDamage))
		}
	}

	if a.Progress >= a.Delay {
		w.endAction(e)
	}
}

// endAction forces the current action to complete.
func (w *World) endAction(e *Entity) {
	p := e.Player
	p.Action = Action{}
	if p.HeldItem != NoEntity {
		w.store.Destroy(p.HeldItem)
		p.HeldItem = NoEntity
	}
}

// scaled applies the base damage bonus as a percentage.
func scaled(damage, baseDamage int) int {
	return int(math.Ceil(float64(damage) * (1 + float64(baseDamage)/100)))
}
