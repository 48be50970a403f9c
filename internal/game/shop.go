package game

import (
	"castle-wars/internal/protocol"
)

// Vendor constants.
const (
	VendorWidth  = 80
	VendorHeight = 120
	VendorImage  = 250
	VendorCode   = "VE"
	MercCode     = "MRC"
)

// Vendor is a neutral shopkeeper. Only one player shops at a time.
type Vendor struct {
	BusyWith EntityID
}

var vendorStock = []ItemStack{
	{ItemHPPotion, 10}, {ItemManaPotion, 10}, {ItemMaxHPPotion, 3}, {ItemMaxManaPotion, 3},
	{ItemDamagePotion, 2}, {ItemSpeedPotion, 2}, {ItemJumpPotion, 2},
	{ItemIronSword, 2}, {ItemGoldSword, 1}, {ItemIronAxe, 2}, {ItemGoldAxe, 1},
	{ItemWoodBow, 2}, {ItemSteelBow, 1}, {ItemMegaBow, 1},
	{ItemFireWand, 1}, {ItemIceWand, 1}, {ItemDarkWand, 1},
	{ItemSteelArmour, 2}, {ItemBlueArmour, 1}, {ItemRedArmour, 1}, {ItemGreyArmour, 1},
}

func newVendorEntity(x, y float64) *Entity {
	life := &Creature{HP: 1, MaxHP: 1, Team: Neutral, Alive: true, Name: "Vendor"}
	for _, s := range vendorStock {
		life.Inventory = append(life.Inventory, s)
	}
	return &Entity{
		Kind:    KindVendor,
		X:       x,
		Y:       y,
		W:       VendorWidth,
		H:       VendorHeight,
		Visible: true,
		Solid:   true,
		Gravity: DefaultGravity,
		Image:   VendorImage,
		Code:    VendorCode,
		Life:    life,
		Vendor:  &Vendor{},
	}
}

func (w *World) updateVendor(e *Entity) {
	w.Map.Move(e, false)
	w.store.Moved(e)
}

// interact opens or closes the vendor or own castle shop the player is
// touching.
func (w *World) interact(e *Entity) bool {
	p := e.Player
	if !e.Life.Alive {
		return false
	}
	handled := false
	box := e.Box()
	w.eachInBox(box, func(o *Entity) {
		if handled || !box.Intersects(o.Box()) {
			return
		}
		switch {
		case o.Vendor != nil:
			handled = true
			switch {
			case p.Vendor == NoEntity && o.Vendor.BusyWith == NoEntity:
				o.Vendor.BusyWith = e.ID
				p.Vendor = o.ID
				vendorListing(&p.pending, o.Life.Inventory)
			case p.Vendor != NoEntity:
				w.closeVendor(e)
			}
		case o.Building != nil && o.Building.Kind == BuildingCastle && o.Team() == e.Team():
			handled = true
			castle := w.teams[e.Team()].Castle
			switch {
			case castle.OpenedBy == NoEntity:
				castle.OpenedBy = e.ID
				p.CastleOpen = true
				p.queue(protocol.RecCastleShop)
			case castle.OpenedBy == e.ID:
				w.closeCastle(e, false)
			}
		}
	})
	return handled
}

func (w *World) closeVendor(e *Entity) {
	p := e.Player
	if v := w.store.Get(p.Vendor); v != nil && v.Vendor != nil && v.Vendor.BusyWith == e.ID {
		v.Vendor.BusyWith = NoEntity
	}
	p.Vendor = NoEntity
}

func (w *World) closeCastle(e *Entity, notify bool) {
	p := e.Player
	if castle := w.teams[e.Team()].Castle; castle != nil && castle.OpenedBy == e.ID {
		castle.OpenedBy = NoEntity
	}
	p.CastleOpen = false
	if notify {
		p.queue(protocol.RecClose)
	}
}

// checkShops closes shops the player walked away from.
func (w *World) checkShops(e *Entity) {
	p := e.Player
	if p.Vendor != NoEntity {
		v := w.store.Live(p.Vendor)
		if v == nil || !e.Collides(v) {
			w.closeVendor(e)
			p.queue(protocol.RecClose)
		}
	}
	if p.CastleOpen {
		c := w.store.Live(w.teams[e.Team()].Castle.Entity)
		if c == nil || !e.Collides(c) {
			w.closeCastle(e, true)
		}
	}
}

// releaseShops drops every shop lock the player holds.
func (w *World) releaseShops(e *Entity) {
	p := e.Player
	if p.Vendor != NoEntity {
		w.closeVendor(e)
		p.queue(protocol.RecClose)
	}
	if p.CastleOpen {
		w.closeCastle(e, true)
	}
}

// buy purchases one unit of code from the open vendor.
func (w *World) buy(e *Entity, code string) bool {
	p := e.Player
	k, ok := ItemByCode(code)
	if !ok || p.Vendor == NoEntity {
		return false
	}
	v := w.store.Live(p.Vendor)
	if v == nil || !v.Life.Inventory.Has(k) || e.Life.Inventory.Full(k) {
		return false
	}
	cost := k.Spec().Cost
	if !spendMoney(e, cost) {
		return false
	}
	v.Life.Inventory.Remove(k, 1)
	w.addItem(e, k, 1)
	p.MoneySpent += cost
	w.emit(EventTypePurchase, "", PurchasePayload{Buyer: e.ID, Item: code, Cost: cost})
	return true
}

// sell sells one unit of code to the open vendor for half its cost.
// Money and building items cannot be sold.
func (w *World) sell(e *Entity, code string) bool {
	p := e.Player
	k, ok := ItemByCode(code)
	if !ok || p.Vendor == NoEntity || k == ItemMoney || k.Spec().Category == CatBuilding {
		return false
	}
	v := w.store.Live(p.Vendor)
	if v == nil || e.Life.Inventory.Remove(k, 1) == 0 {
		return false
	}
	spec := k.Spec()
	v.Life.Inventory.Add(k, 1)
	p.queue(protocol.RecVendorSold).Int(spec.Image).Str(spec.Code).Int(1).Int(spec.Cost)
	w.addItem(e, ItemMoney, k.SalePrice())
	p.queue(protocol.RecSoldItem).Str(spec.Code)
	return true
}

// buyCastle spends castle money on a building item or a mercenary band.
// The player must have the castle shop open.
func (w *World) buyCastle(e *Entity, code string) bool {
	p := e.Player
	if !p.CastleOpen {
		return false
	}
	ts := w.teams[e.Team()]
	castle := ts.Castle

	if code == MercCode {
		units, ok := castle.HireMercs()
		if !ok {
			return false
		}
		for _, k := range units {
			w.spawnUnit(ts, k)
		}
		w.emit(EventTypePurchase, "", PurchasePayload{Buyer: e.ID, Item: code, Cost: MercCost, Castle: true})
		return true
	}

	k, ok := ItemByCode(code)
	if !ok || k.Spec().Category != CatBuilding || e.Life.Inventory.Full(k) {
		return false
	}
	cost := k.Spec().Cost
	if !castle.Spend(cost) {
		return false
	}
	w.addItem(e, k, 1)
	w.emit(EventTypePurchase, "", PurchasePayload{Buyer: e.ID, Item: code, Cost: cost, Castle: true})
	return true
}
