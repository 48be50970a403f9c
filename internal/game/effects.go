package game

// Sound cue indices understood by the client.
const (
	SoundLevelUp = iota
	SoundPunch
	SoundSwing
	SoundShoot
	SoundHit
	SoundPlace
	SoundCoin
)

// Cue lifetimes in ticks. A sound lives for exactly one sync.
const (
	TextLife  = 40
	SoundLife = 1
)

// Cue is the payload of one-shot text and sound entities. Viewers emit
// them while in range but never track or remove them.
type Cue struct {
	Text  string
	Sound int
	Until uint64
}

// Held is the visual of a weapon in a player's hand while acting.
type Held struct {
	Owner EntityID
	Item  ItemKind
}

// HeldImageOffset maps an item image to its in-hand image.
const HeldImageOffset = 500

func (w *World) floatText(x, y float64, colour byte, text string) {
	w.store.Add(&Entity{
		Kind:    KindText,
		X:       x,
		Y:       y,
		Visible: true,
		Code:    "TX",
		Cue:     &Cue{Text: string(colour) + text, Until: w.tick + TextLife},
	})
}

func (w *World) playSound(at *Entity, sound int) {
	w.store.Add(&Entity{
		Kind:    KindSound,
		X:       at.CenterX(),
		Y:       at.CenterY(),
		Visible: true,
		Code:    "SN",
		Cue:     &Cue{Sound: sound, Until: w.tick + SoundLife},
	})
}

func (w *World) updateCue(e *Entity) {
	if w.tick > e.Cue.Until {
		w.store.Destroy(e.ID)
	}
}

// holdWeapon shows k in the player's hand until the action ends.
func (w *World) holdWeapon(e *Entity, k ItemKind) {
	p := e.Player
	if p.HeldItem != NoEntity {
		w.store.Destroy(p.HeldItem)
	}
	h := &Entity{
		Kind:    KindHeld,
		W:       e.W,
		H:       e.H / 2,
		Visible: true,
		Image:   k.Spec().Image + HeldImageOffset,
		Code:    "HW",
		Held:    &Held{Owner: e.ID, Item: k},
	}
	w.placeHeld(h, e)
	p.HeldItem = w.store.Add(h)
}

func (w *World) placeHeld(h, owner *Entity) {
	h.Y = owner.Y + owner.H/4
	if owner.Life.Facing == FacingLeft {
		h.X = owner.X - h.W/2
	} else {
		h.X = owner.X + h.W/2
	}
}

func (w *World) updateHeld(e *Entity) {
	owner := w.store.Live(e.Held.Owner)
	if owner == nil || owner.Player == nil || owner.Player.HeldItem != e.ID {
		w.store.Destroy(e.ID)
		return
	}
	w.placeHeld(e, owner)
	w.store.Moved(e)
}
