package game

import (
	"castle-wars/internal/protocol"
)

// Ground item constants.
const (
	ItemSize         = 32
	PickupCooldown   = 40
	ItemHSpeedMin    = 3
	ItemHSpeedRandom = 5
	ItemFriction     = 0.9
)

// GroundItem is the payload of an item lying in the world.
type GroundItem struct {
	Kind    ItemKind
	Amount  int
	Source  EntityID
	Dropped uint64
}

// dropItem throws amount units of k out of e's centre.
func (w *World) dropItem(e *Entity, k ItemKind, amount int) {
	if !k.Valid() || amount <= 0 {
		return
	}
	spec := k.Spec()
	item := &Entity{
		Kind:    KindItem,
		X:       e.CenterX(),
		Y:       e.CenterY() - ItemSize,
		W:       ItemSize,
		H:       ItemSize,
		VY:      -(w.rng.Float64()*10 + 5),
		Visible: true,
		Solid:   true,
		Gravity: DefaultGravity,
		Image:   spec.Image,
		Code:    spec.Code,
		Item:    &GroundItem{Kind: k, Amount: amount, Source: e.ID, Dropped: w.tick},
	}
	speed := w.rng.Float64()*ItemHSpeedRandom + ItemHSpeedMin
	if e.Life != nil && e.Life.HP <= 0 && k != ItemMoney && w.rng.Intn(2) == 0 {
		speed = -speed
	} else if e.Life != nil && e.Life.Facing == FacingLeft {
		speed = -speed
	}
	item.VX = speed
	w.store.Add(item)
}

func (w *World) updateItem(e *Entity) {
	w.Map.Move(e, false)
	if e.OnSurface {
		e.VX *= ItemFriction
		if e.VX > -0.1 && e.VX < 0.1 {
			e.VX = 0
		}
	}
	w.store.Moved(e)
}

// pickUpItems moves touching ground items into a living player's
// inventory. Fresh drops cannot be picked up by whoever dropped them.
func (w *World) pickUpItems(e *Entity) {
	if e.Life.Inventory.Entries() >= MaxInventory {
		return
	}
	box := e.Box()
	w.eachInBox(box, func(it *Entity) {
		g := it.Item
		if g == nil || !box.Intersects(it.Box()) {
			return
		}
		if g.Source == e.ID && w.tick-g.Dropped < PickupCooldown {
			return
		}
		if e.Life.Inventory.Full(g.Kind) {
			return
		}
		w.addItem(e, g.Kind, g.Amount)
		w.store.Destroy(it.ID)
	})
}

// donate puts money dropped by a player standing on its own castle into
// the castle treasury.
func (w *World) donate(e *Entity, amount int) bool {
	ts := w.team(e.Team())
	if ts == nil || ts.Castle == nil {
		return false
	}
	castle := w.store.Live(ts.Castle.Entity)
	if castle == nil || !e.Collides(castle) {
		return false
	}
	ts.Castle.AddMoney(amount)
	e.Player.MoneySpent += amount
	w.playSound(e, SoundCoin)
	return true
}

// spendMoney takes money from a player's inventory.
func spendMoney(e *Entity, amount int) bool {
	if amount < 0 || e.Life.Inventory.Money() < amount {
		return false
	}
	e.Life.Inventory.Remove(ItemMoney, amount)
	return true
}

// vendorListing appends the VB record for a vendor's stock.
func vendorListing(l *protocol.Line, stock Inventory) {
	l.Op(protocol.RecVendorOpen).Int(len(stock))
	for _, s := range stock {
		spec := s.Kind.Spec()
		l.Int(spec.Image).Str(spec.Code).Int(s.Amount).Int(spec.Cost)
	}
}
