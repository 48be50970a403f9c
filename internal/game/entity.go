package game

import (
	"castle-wars/internal/game/spatial"
)

// EntityID identifies an entity for its whole lifetime. Ids are assigned
// in increasing order and never reused.
type EntityID uint32

// NoEntity is the zero id, never assigned.
const NoEntity EntityID = 0

// Team is a creature's allegiance. The numeric values are the wire values.
type Team uint8

const (
	Neutral Team = iota
	Red
	Blue
)

// Teams lists the two playing teams in processing order.
var Teams = [2]Team{Red, Blue}

func (t Team) String() string {
	switch t {
	case Red:
		return "red"
	case Blue:
		return "blue"
	default:
		return "neutral"
	}
}

// Enemy returns the opposing team; Neutral has none.
func (t Team) Enemy() Team {
	switch t {
	case Red:
		return Blue
	case Blue:
		return Red
	default:
		return Neutral
	}
}

// Facing is the horizontal direction a creature looks at.
type Facing uint8

const (
	FacingRight Facing = iota
	FacingLeft
)

// Kind selects which payload an Entity carries.
type Kind uint8

const (
	KindNone Kind = iota
	KindPlayer
	KindUnit
	KindBuilding
	KindVendor
	KindItem
	KindProjectile
	KindText
	KindSound
	KindTurret
	KindHeld
	KindSpawner
	KindHologram
)

var kindNames = [...]string{
	KindNone:       "none",
	KindPlayer:     "player",
	KindUnit:       "unit",
	KindBuilding:   "building",
	KindVendor:     "vendor",
	KindItem:       "item",
	KindProjectile: "projectile",
	KindText:       "text",
	KindSound:      "sound",
	KindTurret:     "turret",
	KindHeld:       "held",
	KindSpawner:    "spawner",
	KindHologram:   "hologram",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// IsCreature reports whether entities of this kind carry a Creature.
func (k Kind) IsCreature() bool {
	switch k {
	case KindPlayer, KindUnit, KindBuilding, KindVendor:
		return true
	}
	return false
}

// Cue reports whether the kind is a stateless one-shot visual or audio
// cue that is never tracked by viewers.
func (k Kind) Cue() bool {
	return k == KindText || k == KindSound
}

// Creature is the living part of players, units, buildings and vendors.
type Creature struct {
	HP, MaxHP  int
	Team       Team
	Inventory  Inventory
	Alive      bool
	Attackable bool
	BaseDamage int
	Facing     Facing
	Name       string
}

// Damageable reports whether the creature can take a hit from team t.
func (c *Creature) Damageable(t Team) bool {
	return c.Attackable && c.Alive && c.Team != t
}

// HPPercent returns HP as a rounded percentage of MaxHP, never negative.
func (c *Creature) HPPercent() int {
	if c.MaxHP <= 0 || c.HP <= 0 {
		return 0
	}
	return (200*c.HP + c.MaxHP) / (2 * c.MaxHP)
}

// Entity is the arena record for every object in the world. Exactly one
// payload pointer matching Kind is set; creatures also carry Life.
type Entity struct {
	ID   EntityID
	Kind Kind

	X, Y   float64
	W, H   float64
	VX, VY float64

	OnSurface bool
	Visible   bool
	Exists    bool
	Solid     bool // collides with terrain
	Gravity   float64
	Image     int
	Code      string // wire type code

	// Draw offset from X,Y for the client sprite.
	DrawDX, DrawDY float64

	Life *Creature

	Player     *Player
	Unit       *Unit
	Building   *Building
	Vendor     *Vendor
	Item       *GroundItem
	Projectile *Projectile
	Cue        *Cue
	Turret     *Turret
	Held       *Held
	Spawner    *Spawner
	Hologram   *Hologram
}

// Box returns the entity bounding box.
func (e *Entity) Box() spatial.Box {
	return spatial.Box{X: e.X, Y: e.Y, W: e.W, H: e.H}
}

// CenterX returns the horizontal center.
func (e *Entity) CenterX() float64 { return e.X + e.W/2 }

// CenterY returns the vertical center.
func (e *Entity) CenterY() float64 { return e.Y + e.H/2 }

// DrawX returns the rounded x the client draws the sprite at.
func (e *Entity) DrawX() int { return round(e.X + e.DrawDX) }

// DrawY returns the rounded y the client draws the sprite at.
func (e *Entity) DrawY() int { return round(e.Y + e.DrawDY) }

// Team returns the creature team, or Neutral for non-creatures.
func (e *Entity) Team() Team {
	if e.Life != nil {
		return e.Life.Team
	}
	return Neutral
}

// Collides reports whether two entity boxes overlap.
func (e *Entity) Collides(o *Entity) bool {
	return e.Box().Intersects(o.Box())
}

// Name returns the display name of creatures.
func (e *Entity) Name() string {
	if e.Life != nil {
		return e.Life.Name
	}
	return ""
}

// IsAgent reports whether the entity can earn castle XP for its team.
func (e *Entity) IsAgent() bool {
	return e.Kind == KindPlayer
}

func round(f float64) int {
	if f < 0 {
		return int(f - 0.5)
	}
	return int(f + 0.5)
}
