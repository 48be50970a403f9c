package game

import "testing"

// TestInventoryStacking verifies stackable kinds merge into one entry
func TestInventoryStacking(t *testing.T) {
	var inv Inventory
	inv.Add(ItemHPPotion, 2)
	inv.Add(ItemHPPotion, 3)
	inv.Add(ItemStoneSword, 2)

	if inv.Entries() != 3 {
		t.Errorf("Expected 3 entries (1 potion stack + 2 swords), got %d", inv.Entries())
	}
	if inv.Count(ItemHPPotion) != 5 {
		t.Errorf("Expected 5 potions, got %d", inv.Count(ItemHPPotion))
	}
}

// TestInventoryRemove verifies partial and full removal
func TestInventoryRemove(t *testing.T) {
	var inv Inventory
	inv.Add(ItemMoney, 10)
	inv.Add(ItemIronSword, 1)

	if got := inv.Remove(ItemMoney, 4); got != 4 {
		t.Errorf("Expected to remove 4, got %d", got)
	}
	if inv.Money() != 6 {
		t.Errorf("Expected 6 money, got %d", inv.Money())
	}
	if got := inv.Remove(ItemMoney, 100); got != 6 {
		t.Errorf("Expected to remove remaining 6, got %d", got)
	}
	if inv.Has(ItemMoney) {
		t.Error("money stack should be gone")
	}
	if got := inv.Remove(ItemGoldAxe, 1); got != 0 {
		t.Errorf("Expected nothing removed for absent kind, got %d", got)
	}
	if inv.Entries() != 1 {
		t.Errorf("Expected 1 entry left, got %d", inv.Entries())
	}
}

// TestInventoryIgnoresInvalid verifies bogus adds are dropped
func TestInventoryIgnoresInvalid(t *testing.T) {
	var inv Inventory
	inv.Add(ItemNone, 1)
	inv.Add(ItemWoodBow, 0)
	if inv.Entries() != 0 {
		t.Errorf("Expected empty inventory, got %v", inv)
	}
}

// TestItemByCode verifies every catalog code resolves to its kind
func TestItemByCode(t *testing.T) {
	for k := ItemKind(1); k < itemKindCount; k++ {
		code := k.Spec().Code
		got, ok := ItemByCode(code)
		if !ok || got != k {
			t.Errorf("code %s resolved to %v (ok=%v), want %v", code, got, ok, k)
		}
	}
	if _, ok := ItemByCode("NOPE"); ok {
		t.Error("unknown code should not resolve")
	}
}

// TestSalePrice verifies vendors pay half the cost rounded up
func TestSalePrice(t *testing.T) {
	tests := []struct {
		kind ItemKind
		want int
	}{
		{ItemStoneSword, 3}, // cost 5
		{ItemWoodBow, 5},    // cost 10
		{ItemHPPotion, 2},   // cost 3
	}
	for _, tt := range tests {
		if got := tt.kind.SalePrice(); got != tt.want {
			t.Errorf("%s: Expected %d, got %d", tt.kind, tt.want, got)
		}
	}
}
