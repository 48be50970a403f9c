package game

import (
	"math/rand"
)

// Castle economy constants.
const (
	SpawnDelay      = 1000
	SpawnOffset     = SpawnDelay / 4 // no spawn right at game start
	RandomSpawns    = 7
	StartPopLimit   = 20
	IncomeCap       = 50
	TierHPBonus     = 1250
	TierPopBonus    = 10
	GoblinTierStep  = 2
	MercCost        = 10
	MercBundle      = 5
	TicksPerIncome  = 3600.0
	CastleTurretDX1 = 25
	CastleTurretDX2 = 815
	CastleTurretDY  = 225
)

// TierXP is the XP needed to leave each tier. Its length is the last tier.
var TierXP = [...]int{1000, 2500, 3500, 5000, 7500, 10000}

// TierIncome is the money earned per TicksPerIncome ticks at each tier.
var TierIncome = [...]int{10, 10, 10, 10, 10, 10, 10}

// MaxTier is the terminal tier.
const MaxTier = len(TierXP)

// TierUp describes the side effects of an upgrade that the world applies.
type TierUp struct {
	Team  Team
	Tier  int
	Arrow ProjectileKind
}

// Castle is the per-team economy: money, XP and tiers, population
// admission and spawn scheduling. Its HP lives on the castle entity.
type Castle struct {
	Team   Team
	Entity EntityID
	life   *Creature

	Money  int
	income float64

	Tier int
	XP   int

	// PopLimit never drops below Population. When housing is lost while
	// full, it shrinks back to housing as admitted units die.
	Population int
	PopLimit   int
	housing    int

	GoblinTierLimit int
	Arrow           ProjectileKind

	barracks []EntityID
	toAdd    []EntityID
	toRemove []EntityID

	// OpenedBy is the player whose castle shop is open, if any.
	OpenedBy EntityID
	Turrets  []EntityID
	Spawners []EntityID
}

// NewCastle creates a tier 0 castle whose hit points are life.
func NewCastle(team Team, life *Creature) *Castle {
	return &Castle{
		Team:     team,
		life:     life,
		PopLimit: StartPopLimit,
		housing:  StartPopLimit,
		Arrow:    ProjWoodArrow,
	}
}

// HP returns the castle hit points.
func (c *Castle) HP() int { return c.life.HP }

// MaxHP returns the castle maximum hit points.
func (c *Castle) MaxHP() int { return c.life.MaxHP }

// Destroyed reports whether the castle has fallen.
func (c *Castle) Destroyed() bool { return c.life.HP <= 0 }

// AddXP grants XP. A grant crossing the current threshold upgrades at most
// one tier, even if the XP would cover several.
func (c *Castle) AddXP(amount int) (TierUp, bool) {
	if amount <= 0 {
		return TierUp{}, false
	}
	c.XP += amount
	if c.Tier < len(TierXP) && c.XP >= TierXP[c.Tier] {
		return c.upgrade(), true
	}
	return TierUp{}, false
}

func (c *Castle) upgrade() TierUp {
	c.XP -= TierXP[c.Tier]
	c.life.MaxHP += TierHPBonus
	c.life.HP += TierHPBonus
	c.Tier++

	c.GoblinTierLimit += GoblinTierStep
	if c.GoblinTierLimit >= RandomUnitKinds {
		c.GoblinTierLimit = RandomUnitKinds - 1
	}

	switch c.Tier {
	case 2:
		c.Arrow = ProjSteelArrow
	case 4:
		c.Arrow = ProjMegaArrow
	}

	c.RaisePopLimit(TierPopBonus)
	return TierUp{Team: c.Team, Tier: c.Tier, Arrow: c.Arrow}
}

// Accrue adds one tick of passive income. Income only gathers while the
// castle holds less than IncomeCap.
func (c *Castle) Accrue() {
	if c.Money < IncomeCap {
		c.income += float64(TierIncome[c.Tier]) / TicksPerIncome
	}
	if c.income >= 1 {
		c.Money++
		c.income = 0
	}
}

// SpawnWindow reports whether tick opens a spawn window.
func SpawnWindow(tick uint64) bool {
	return tick%SpawnDelay == SpawnOffset
}

// Update runs one tick of the economy: pending barracks changes are
// applied, and on spawn windows the units to spawn are returned: every
// barracks' list, then RandomSpawns random kinds up to GoblinTierLimit.
func (c *Castle) Update(tick uint64, rng *rand.Rand, unitsOf func(EntityID) []UnitKind) []UnitKind {
	c.drainBarracks()

	var spawns []UnitKind
	if SpawnWindow(tick) {
		for _, id := range c.barracks {
			spawns = append(spawns, unitsOf(id)...)
		}
		for i := 0; i < RandomSpawns; i++ {
			spawns = append(spawns, UnitKind(rng.Intn(c.GoblinTierLimit+1)))
		}
	}

	c.Accrue()
	return spawns
}

func (c *Castle) drainBarracks() {
	for _, id := range c.toRemove {
		for i, b := range c.barracks {
			if b == id {
				c.barracks = append(c.barracks[:i], c.barracks[i+1:]...)
				break
			}
		}
	}
	c.toRemove = c.toRemove[:0]
	c.barracks = append(c.barracks, c.toAdd...)
	c.toAdd = c.toAdd[:0]
}

// AddBarracks queues a barracks to contribute from the next update.
func (c *Castle) AddBarracks(id EntityID) { c.toAdd = append(c.toAdd, id) }

// RemoveBarracks queues a barracks to stop contributing.
func (c *Castle) RemoveBarracks(id EntityID) { c.toRemove = append(c.toRemove, id) }

// Barracks returns the contributing barracks.
func (c *Castle) Barracks() []EntityID { return c.barracks }

// Admit takes housing for a new unit. When the unit does not fit the
// population is left unchanged and the caller destroys the unit.
func (c *Castle) Admit(housing int) bool {
	if c.Population+housing > c.PopLimit {
		return false
	}
	c.Population += housing
	return true
}

// Release returns the housing of an admitted unit that died.
func (c *Castle) Release(housing int) {
	c.Population -= housing
	if c.Population < 0 {
		c.Population = 0
	}
	c.settleLimit()
}

// AddMoney credits the castle treasury.
func (c *Castle) AddMoney(n int) {
	if n > 0 {
		c.Money += n
	}
}

// Spend debits n if the treasury can afford it.
func (c *Castle) Spend(n int) bool {
	if n < 0 || c.Money < n {
		return false
	}
	c.Money -= n
	return true
}

// HireMercs buys the mercenary bundle when affordable and the population
// is below its limit.
func (c *Castle) HireMercs() ([]UnitKind, bool) {
	if c.Money < MercCost || c.Population >= c.PopLimit {
		return nil, false
	}
	c.Money -= MercCost
	units := make([]UnitKind, 0, 2*MercBundle)
	for i := 0; i < MercBundle; i++ {
		units = append(units, UnitNinja, UnitSamurai)
	}
	return units, true
}

// RaisePopLimit applies a housing building.
func (c *Castle) RaisePopLimit(n int) {
	c.housing += n
	c.settleLimit()
}

// LowerPopLimit removes a housing building. Units already admitted keep
// their place.
func (c *Castle) LowerPopLimit(n int) {
	c.housing -= n
	if c.housing < 0 {
		c.housing = 0
	}
	c.settleLimit()
}

func (c *Castle) settleLimit() {
	c.PopLimit = max(c.housing, c.Population)
}
