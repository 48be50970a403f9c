package game

import (
	"strings"

	"castle-wars/internal/protocol"
	"castle-wars/internal/scoreboard"
)

// Player stats and limits.
const (
	PlayerBaseHP    = 100
	PlayerBaseMana  = 100
	PlayerMoveSpeed = 5
	PlayerJumpSpeed = 20

	MaxMoveSpeed  = 8
	MaxJumpSpeed  = 24
	MaxDamageAdd  = 50
	MaxPlayerHP   = 250
	MaxPlayerMana = 250

	PlayerWidth  = 34
	PlayerHeight = 90
	PlayerDrawDX = -14
	PlayerDrawDY = -38
	PlayerImage  = 300
	PlayerCode   = "CP"

	MaxWeapons = 4
	FistsSlot  = 9
	ArmourSlot = -1

	PunchDamage    = 5
	ManaRegenTicks = 40
	HPRegenTicks   = 80
	RespawnTicks   = 600
	StartMoney     = 10

	ChatTextBase    = 180
	ChatTextPerChar = 6

	DefaultViewW = 1024
	DefaultViewH = 768
	MaxViewSize  = 4096
)

var startWeapons = [...]ItemKind{ItemStoneSword, ItemStoneAxe, ItemSlingshot}

// Player is the payload of a connected human.
type Player struct {
	Weapons  [MaxWeapons]ItemKind
	Selected int
	Armour   ItemKind

	Mana, MaxMana int

	MoveSpeed float64
	JumpSpeed float64

	Action Action

	ViewW, ViewH   int
	MouseX, MouseY float64

	MovingRight bool
	MovingLeft  bool
	Dropping    bool
	jump        bool

	Kills       int
	Deaths      int
	DamageDealt int
	MoneySpent  int

	DeathTick uint64

	Vendor     EntityID
	CastleOpen bool
	HeldItem   EntityID
	Hologram   EntityID

	ChatText  string
	TextUntil uint64

	Ping    int
	Subject string

	// Out receives this player's batches; nil for players without a
	// connection (tests, bots).
	Out *protocol.Outbox

	viewer  *Viewer
	pending protocol.Line
}

// Score is the scoreboard score.
func (p *Player) Score() int {
	return scoreboard.Score(p.DamageDealt, p.Kills, p.MoneySpent)
}

// SelectedWeapon returns the weapon in the selected slot, ItemNone for fists.
func (p *Player) SelectedWeapon() ItemKind {
	if p.Selected < 0 || p.Selected >= MaxWeapons {
		return ItemNone
	}
	return p.Weapons[p.Selected]
}

// ArmourValue is the fraction of damage the equipped armour absorbs.
func (p *Player) ArmourValue() float64 {
	return p.Armour.Spec().Armour
}

// queue appends a record to the player's next batch.
func (p *Player) queue(op string) *protocol.Line {
	return p.pending.Op(op)
}

func newPlayerEntity(name string, team Team, cfg TeamConfig) *Entity {
	life := &Creature{
		Team:       team,
		Alive:      true,
		Attackable: true,
		Name:       name,
	}
	p := &Player{
		Selected: FistsSlot,
		ViewW:    DefaultViewW,
		ViewH:    DefaultViewH,
	}
	p.applyConfig(cfg, life)
	return &Entity{
		Kind:    KindPlayer,
		W:       PlayerWidth,
		H:       PlayerHeight,
		DrawDX:  PlayerDrawDX,
		DrawDY:  PlayerDrawDY,
		Visible: true,
		Solid:   true,
		Gravity: DefaultGravity,
		Image:   PlayerImage,
		Code:    PlayerCode,
		Life:    life,
		Player:  p,
	}
}

func (p *Player) applyConfig(cfg TeamConfig, life *Creature) {
	p.MoveSpeed = cfg.MoveSpeed
	p.JumpSpeed = cfg.JumpSpeed
	p.Mana = cfg.StartMana
	p.MaxMana = cfg.StartMana
	life.MaxHP = cfg.StartHP
	life.HP = cfg.StartHP
	life.BaseDamage = cfg.BaseDamage
}

// addItem gives a creature items. Players are told about the grant.
func (w *World) addItem(e *Entity, k ItemKind, amount int) {
	if e.Life == nil || amount <= 0 || !k.Valid() {
		return
	}
	e.Life.Inventory.Add(k, amount)
	if e.Player != nil {
		spec := k.Spec()
		e.Player.queue(protocol.RecItem).Int(spec.Image).Str(spec.Code).Int(amount).Int(spec.Cost)
	}
}

func (w *World) giveStartWeapon(e *Entity) {
	w.addItem(e, startWeapons[w.rng.Intn(len(startWeapons))], 1)
}

// placeAtCastle puts e on the ground in front of its team castle.
func (w *World) placeAtCastle(e *Entity) {
	ts := w.team(e.Team())
	if ts == nil || ts.Castle == nil {
		return
	}
	c := w.store.Get(ts.Castle.Entity)
	if c == nil {
		return
	}
	e.X = c.CenterX() - e.W/2
	e.Y = c.Y + c.H - e.H
	e.VX, e.VY = 0, 0
}

func (w *World) updatePlayer(e *Entity) {
	p := e.Player
	life := e.Life

	if !life.Alive {
		if w.tick-p.DeathTick >= RespawnTicks {
			w.respawn(e)
		}
		w.movePlayer(e, false)
		e.Image = playerImage(e, w.tick)
		return
	}

	switch {
	case p.MovingRight && !p.MovingLeft:
		e.VX = p.MoveSpeed
	case p.MovingLeft && !p.MovingRight:
		e.VX = -p.MoveSpeed
	default:
		e.VX = 0
	}
	if p.jump {
		if e.OnSurface {
			e.VY = -p.JumpSpeed
		}
		p.jump = false
	}
	w.movePlayer(e, p.Dropping)

	w.updateAction(e)

	if w.tick%ManaRegenTicks == 0 && p.Mana < p.MaxMana {
		p.Mana++
	}
	if w.tick%HPRegenTicks == 0 && life.HP < life.MaxHP && life.HP > 0 {
		life.HP++
	}
	if p.ChatText != "" && w.tick > p.TextUntil {
		p.ChatText = ""
	}

	w.pickUpItems(e)
	w.checkShops(e)
	w.updateHologram(e)
	e.Image = playerImage(e, w.tick)
}

func (w *World) movePlayer(e *Entity, dropping bool) {
	w.Map.Move(e, dropping)
	w.store.Moved(e)
}

func (w *World) respawn(e *Entity) {
	p := e.Player
	life := e.Life
	w.giveStartWeapon(e)

	cfg := w.team(life.Team).Config
	p.MoveSpeed = cfg.MoveSpeed
	p.JumpSpeed = cfg.JumpSpeed
	life.Alive = true
	life.Attackable = true
	life.HP = life.MaxHP
	p.Mana = p.MaxMana
	p.Action = Action{}
	w.placeAtCastle(e)
	w.store.Moved(e)
	p.queue(protocol.RecForcePos).Int(round(e.X)).Int(round(e.Y))
}

// kill marks a player dead; it stays in the world until respawn.
func (w *World) killPlayer(e *Entity) {
	p := e.Player
	e.Life.Alive = false
	e.Life.Attackable = false
	p.DeathTick = w.tick
	p.Deaths++
	p.MovingLeft, p.MovingRight, p.Dropping = false, false, false
	e.VX, e.VY = 0, 0
	w.endAction(e)
	w.dropAll(e)
	w.releaseShops(e)
	w.clearHologram(e)
}

// dropAll drops everything a creature carries. Players keep their money.
func (w *World) dropAll(e *Entity) {
	inv := e.Life.Inventory
	e.Life.Inventory = nil
	for _, s := range inv {
		if s.Kind == ItemMoney && e.Player != nil {
			e.Life.Inventory = append(e.Life.Inventory, s)
			continue
		}
		w.dropItem(e, s.Kind, s.Amount)
	}
	if p := e.Player; p != nil {
		for i, k := range p.Weapons {
			if k != ItemNone {
				w.dropItem(e, k, 1)
				p.Weapons[i] = ItemNone
			}
		}
		if p.Armour != ItemNone {
			w.dropItem(e, p.Armour, 1)
			p.Armour = ItemNone
		}
		p.Selected = FistsSlot
	}
}

// chat shows text above the player for a time proportional to its length.
func (w *World) setChatText(e *Entity, text string) {
	p := e.Player
	p.ChatText = strings.ReplaceAll(text, " ", "_")
	p.TextUntil = w.tick + ChatTextBase + uint64(len(text))*ChatTextPerChar
}

// usePotion drinks one potion of kind k from the inventory.
func (w *World) usePotion(e *Entity, k ItemKind) bool {
	spec := k.Spec()
	if spec.Category != CatPotion || !e.Life.Alive || e.Life.Inventory.Remove(k, 1) == 0 {
		return false
	}
	p, life := e.Player, e.Life
	switch spec.Potion {
	case PotionHeal:
		life.HP = min(life.HP+HealAmount, life.MaxHP)
	case PotionMana:
		p.Mana = min(p.Mana+ManaAmount, p.MaxMana)
	case PotionMaxHP:
		life.MaxHP = min(life.MaxHP+MaxHPIncrease, MaxPlayerHP)
		life.HP = min(life.HP+MaxHPIncrease, life.MaxHP)
	case PotionMaxMana:
		p.MaxMana = min(p.MaxMana+MaxManaIncrease, MaxPlayerMana)
		p.Mana = min(p.Mana+MaxManaIncrease, p.MaxMana)
	case PotionDamage:
		life.BaseDamage = min(life.BaseDamage+DamageIncrease, MaxDamageAdd)
	case PotionSpeed:
		p.MoveSpeed = min(p.MoveSpeed+SpeedIncrease, MaxMoveSpeed)
	case PotionJump:
		p.JumpSpeed = min(p.JumpSpeed+JumpIncrease, MaxJumpSpeed)
	}
	return true
}

// buffPlayer applies a castle upgrade's permanent bonus.
func (w *World) buffPlayer(e *Entity) {
	p, life := e.Player, e.Life
	life.BaseDamage = min(life.BaseDamage+DamageIncrease, MaxDamageAdd)
	life.MaxHP = min(life.MaxHP+MaxHPIncrease, MaxPlayerHP)
	life.HP = life.MaxHP
	p.MaxMana = min(p.MaxMana+MaxManaIncrease, MaxPlayerMana)
	p.MoveSpeed = min(p.MoveSpeed+SpeedIncrease, MaxMoveSpeed)
	p.JumpSpeed = min(p.JumpSpeed+JumpIncrease, MaxJumpSpeed)
}

func (w *World) equipWeapon(e *Entity, k ItemKind) bool {
	p := e.Player
	if !k.Weapon() {
		return false
	}
	slot := -1
	for i, held := range p.Weapons {
		if held == ItemNone {
			slot = i
			break
		}
	}
	if slot < 0 || e.Life.Inventory.Remove(k, 1) == 0 {
		return false
	}
	p.Weapons[slot] = k
	return true
}

func (w *World) equipArmour(e *Entity, k ItemKind) bool {
	p := e.Player
	if k.Spec().Category != CatArmour || e.Life.Inventory.Remove(k, 1) == 0 {
		return false
	}
	if p.Armour != ItemNone {
		e.Life.Inventory.Add(p.Armour, 1)
	}
	p.Armour = k
	return true
}

// unequip moves a weapon slot, or the armour with ArmourSlot, back into
// the inventory.
func (w *World) unequip(e *Entity, slot int) bool {
	p := e.Player
	if e.Life.Inventory.Entries() >= MaxInventory {
		return false
	}
	if slot == ArmourSlot {
		if p.Armour == ItemNone {
			return false
		}
		e.Life.Inventory.Add(p.Armour, 1)
		p.Armour = ItemNone
		return true
	}
	if slot < 0 || slot >= MaxWeapons || p.Weapons[slot] == ItemNone {
		return false
	}
	e.Life.Inventory.Add(p.Weapons[slot], 1)
	p.Weapons[slot] = ItemNone
	if p.Selected == slot {
		w.clearHologram(e)
	}
	return true
}

func (w *World) selectSlot(e *Entity, slot int) bool {
	if slot != FistsSlot && (slot < 0 || slot >= MaxWeapons) {
		return false
	}
	p := e.Player
	if p.Selected == slot {
		return true
	}
	p.Selected = slot
	w.clearHologram(e)
	if k := p.SelectedWeapon(); k.Spec().Category == CatBuilding {
		w.createHologram(e, k.Spec().Building)
	}
	return true
}

// dropInventoryItem drops one unit of k, or the whole stack for money.
func (w *World) dropInventoryItem(e *Entity, k ItemKind) bool {
	inv := &e.Life.Inventory
	n := 1
	if k == ItemMoney {
		n = inv.Count(k)
	}
	n = inv.Remove(k, n)
	if n == 0 {
		return false
	}
	if k == ItemMoney && w.donate(e, n) {
		return true
	}
	w.dropItem(e, k, n)
	return true
}

func (w *World) dropWeapon(e *Entity, slot int) bool {
	p := e.Player
	if slot < 0 || slot >= MaxWeapons || p.Weapons[slot] == ItemNone {
		return false
	}
	w.dropItem(e, p.Weapons[slot], 1)
	p.Weapons[slot] = ItemNone
	if p.Selected == slot {
		w.clearHologram(e)
	}
	return true
}

// statBlock appends the per-player stat records.
func (w *World) statBlock(l *protocol.Line, e *Entity) {
	p, life := e.Player, e.Life
	red, blue := w.teams[Red].Castle, w.teams[Blue].Castle

	l.Op(protocol.RecMana).Int(p.Mana)
	l.Op(protocol.RecMaxMana).Int(p.MaxMana)
	l.Op(protocol.RecHP).Int(max(life.HP, 0))
	l.Op(protocol.RecMaxHP).Int(life.MaxHP)
	l.Op(protocol.RecRedXP).Int(red.XP)
	l.Op(protocol.RecBlueXP).Int(blue.XP)
	if life.Alive {
		l.Op(protocol.RecMoveSpeed).Int(int(p.MoveSpeed))
		l.Op(protocol.RecJumpSpeed).Int(int(p.JumpSpeed))
	}
	l.Op(protocol.RecBlueCastle).Int(max(blue.HP(), 0)).Int(blue.Tier).Int(blue.Money).Int(blue.MaxHP())
	l.Op(protocol.RecRedCastle).Int(max(red.HP(), 0)).Int(red.Tier).Int(red.Money).Int(red.MaxHP())
	l.Op(protocol.RecArmour).Fixed2(p.ArmourValue())
	l.Op(protocol.RecDamage).Int(weaponDamage(p.SelectedWeapon())).Int(life.BaseDamage)
	l.Op(protocol.RecRedPop).Int(red.Population).Int(red.PopLimit)
	l.Op(protocol.RecBluePop).Int(blue.Population).Int(blue.PopLimit)
}

func weaponDamage(k ItemKind) int {
	spec := k.Spec()
	switch spec.Category {
	case CatMelee:
		return spec.Damage
	case CatRanged:
		return spec.Projectile.Spec().Damage
	case CatNone:
		return PunchDamage
	}
	return 0
}
