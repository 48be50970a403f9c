package game

import (
	"math/rand"
	"testing"
)

func newTestCastle() *Castle {
	life := &Creature{HP: 10000, MaxHP: 10000, Team: Red, Alive: true, Attackable: true}
	return NewCastle(Red, life)
}

func TestCastleTierUp(t *testing.T) {
	c := newTestCastle()

	up, ok := c.AddXP(1000)
	if !ok {
		t.Fatal("Expected tier up at threshold")
	}
	if c.Tier != 1 || up.Tier != 1 {
		t.Errorf("Expected tier 1, got %d", c.Tier)
	}
	if c.MaxHP() != 11250 {
		t.Errorf("Expected max HP 11250, got %d", c.MaxHP())
	}
	if c.HP() != 11250 {
		t.Errorf("Expected HP 11250, got %d", c.HP())
	}
	if c.PopLimit != StartPopLimit+10 {
		t.Errorf("Expected pop limit %d, got %d", StartPopLimit+10, c.PopLimit)
	}
	if c.Arrow != ProjWoodArrow {
		t.Errorf("Expected wood arrows at tier 1, got %d", c.Arrow)
	}
	if c.XP != 0 {
		t.Errorf("Expected XP reset to 0, got %d", c.XP)
	}
}

func TestCastleOneUpgradePerGrant(t *testing.T) {
	c := newTestCastle()

	c.AddXP(100000)
	if c.Tier != 1 {
		t.Fatalf("Expected a single tier per grant, got tier %d", c.Tier)
	}
	if c.XP != 99000 {
		t.Errorf("Expected remaining XP 99000, got %d", c.XP)
	}

	// next grant moves one more tier
	c.AddXP(1)
	if c.Tier != 2 {
		t.Errorf("Expected tier 2, got %d", c.Tier)
	}
	if c.Arrow != ProjSteelArrow {
		t.Errorf("Expected steel arrows at tier 2, got %d", c.Arrow)
	}
}

func TestCastleTerminalTier(t *testing.T) {
	c := newTestCastle()
	for i := 0; i < 20; i++ {
		c.AddXP(20000)
	}
	if c.Tier != MaxTier {
		t.Fatalf("Expected terminal tier %d, got %d", MaxTier, c.Tier)
	}
	if _, ok := c.AddXP(20000); ok {
		t.Error("Expected no upgrade past the terminal tier")
	}
	if c.Arrow != ProjMegaArrow {
		t.Errorf("Expected mega arrows, got %d", c.Arrow)
	}
	if c.GoblinTierLimit != RandomUnitKinds-1 {
		t.Errorf("Expected goblin tier limit capped at %d, got %d", RandomUnitKinds-1, c.GoblinTierLimit)
	}
}

func TestCastleAdmission(t *testing.T) {
	tests := []struct {
		name      string
		pop       int
		housing   int
		want      bool
		wantAfter int
	}{
		{"fits", 15, 5, true, 20},
		{"over limit", 15, 10, false, 15},
		{"full", 20, 1, false, 20},
		{"empty", 0, 3, true, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCastle()
			c.Population = tt.pop
			got := c.Admit(tt.housing)
			if got != tt.want {
				t.Errorf("Expected admit %v, got %v", tt.want, got)
			}
			if c.Population != tt.wantAfter {
				t.Errorf("Expected population %d, got %d", tt.wantAfter, c.Population)
			}
			if c.Population > c.PopLimit {
				t.Errorf("Population %d exceeds limit %d", c.Population, c.PopLimit)
			}
		})
	}
}

func TestCastleRelease(t *testing.T) {
	c := newTestCastle()
	c.Admit(3)
	c.Release(2)
	if c.Population != 1 {
		t.Errorf("Expected population 1, got %d", c.Population)
	}
	c.Release(5)
	if c.Population != 0 {
		t.Errorf("Expected population floored at 0, got %d", c.Population)
	}
}

func TestCastleHousingLoss(t *testing.T) {
	c := newTestCastle()
	c.RaisePopLimit(10)
	if !c.Admit(29) {
		t.Fatal("Expected 29 housing to fit a limit of 30")
	}

	c.LowerPopLimit(10)
	if c.PopLimit != 29 {
		t.Errorf("Expected limit held at population 29, got %d", c.PopLimit)
	}
	if c.Admit(1) {
		t.Error("Expected no admission while over housing")
	}

	c.Release(4)
	if c.PopLimit != 25 {
		t.Errorf("Expected limit to follow population down to 25, got %d", c.PopLimit)
	}
	c.Release(10)
	if c.PopLimit != StartPopLimit {
		t.Errorf("Expected limit back at housing %d, got %d", StartPopLimit, c.PopLimit)
	}
	if !c.Admit(5) {
		t.Error("Expected admission once below housing")
	}
}

func TestCastleIncome(t *testing.T) {
	c := newTestCastle()

	// 10 per 3600 ticks: one coin every 360 ticks
	for i := 0; i < 359; i++ {
		c.Accrue()
	}
	if c.Money != 0 {
		t.Fatalf("Expected no money before 360 ticks, got %d", c.Money)
	}
	for i := 0; i < 2; i++ {
		c.Accrue()
	}
	if c.Money != 1 {
		t.Errorf("Expected 1 money after 361 ticks, got %d", c.Money)
	}

	c.Money = IncomeCap
	for i := 0; i < 1000; i++ {
		c.Accrue()
	}
	if c.Money != IncomeCap {
		t.Errorf("Expected no income at the cap, got %d", c.Money)
	}
}

func TestCastleMercs(t *testing.T) {
	c := newTestCastle()

	if _, ok := c.HireMercs(); ok {
		t.Error("Expected hire to fail without money")
	}

	c.Money = MercCost + 3
	units, ok := c.HireMercs()
	if !ok {
		t.Fatal("Expected hire to succeed")
	}
	if len(units) != 2*MercBundle {
		t.Errorf("Expected %d units, got %d", 2*MercBundle, len(units))
	}
	if c.Money != 3 {
		t.Errorf("Expected 3 money left, got %d", c.Money)
	}

	c.Money = MercCost
	c.Population = c.PopLimit
	if _, ok := c.HireMercs(); ok {
		t.Error("Expected hire to fail at the population limit")
	}
	if c.Money != MercCost {
		t.Errorf("Expected money untouched, got %d", c.Money)
	}
}

func TestCastleSpawnWindow(t *testing.T) {
	c := newTestCastle()
	rng := rand.New(rand.NewSource(1))
	units := func(EntityID) []UnitKind { return []UnitKind{UnitGoblin, UnitGoblin, UnitGuard} }

	if got := c.Update(1, rng, units); len(got) != 0 {
		t.Errorf("Expected no spawns off-window, got %d", len(got))
	}

	c.AddBarracks(7)
	got := c.Update(SpawnOffset, rng, units)
	want := 3 + RandomSpawns
	if len(got) != want {
		t.Fatalf("Expected %d spawns, got %d", want, len(got))
	}
	for _, k := range got[3:] {
		if int(k) > c.GoblinTierLimit {
			t.Errorf("Random unit %v above tier limit %d", k, c.GoblinTierLimit)
		}
	}

	c.RemoveBarracks(7)
	got = c.Update(SpawnDelay+SpawnOffset, rng, units)
	if len(got) != RandomSpawns {
		t.Errorf("Expected barracks removed before spawning, got %d spawns", len(got))
	}
}

func TestCastleSpend(t *testing.T) {
	c := newTestCastle()
	c.AddMoney(5)
	c.AddMoney(-3)
	if c.Money != 5 {
		t.Errorf("Expected 5 money, got %d", c.Money)
	}
	if c.Spend(6) {
		t.Error("Expected overspend to fail")
	}
	if !c.Spend(5) || c.Money != 0 {
		t.Errorf("Expected spend to empty the treasury, got %d", c.Money)
	}
}
