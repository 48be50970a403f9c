package game

// ItemStack is one inventory entry.
type ItemStack struct {
	Kind   ItemKind
	Amount int
}

// Inventory is an ordered list of stacks. Stackable kinds occupy at most
// one entry; other kinds take one entry per unit.
type Inventory []ItemStack

// MaxInventory bounds the number of entries a player can carry.
const MaxInventory = 32

// Add inserts amount units of k, merging with an existing stack when k is
// stackable.
func (inv *Inventory) Add(k ItemKind, amount int) {
	if amount <= 0 || !k.Valid() {
		return
	}
	if k.Spec().Stackable {
		for i := range *inv {
			if (*inv)[i].Kind == k {
				(*inv)[i].Amount += amount
				return
			}
		}
		*inv = append(*inv, ItemStack{Kind: k, Amount: amount})
		return
	}
	for i := 0; i < amount; i++ {
		*inv = append(*inv, ItemStack{Kind: k, Amount: 1})
	}
}

// Count returns how many units of k are held.
func (inv Inventory) Count(k ItemKind) int {
	n := 0
	for _, s := range inv {
		if s.Kind == k {
			n += s.Amount
		}
	}
	return n
}

// Has reports whether at least one unit of k is held.
func (inv Inventory) Has(k ItemKind) bool {
	return inv.Count(k) > 0
}

// Remove takes up to amount units of k and returns how many were taken.
func (inv *Inventory) Remove(k ItemKind, amount int) int {
	taken := 0
	for i := 0; i < len(*inv) && taken < amount; {
		s := &(*inv)[i]
		if s.Kind != k {
			i++
			continue
		}
		n := amount - taken
		if n > s.Amount {
			n = s.Amount
		}
		s.Amount -= n
		taken += n
		if s.Amount == 0 {
			*inv = append((*inv)[:i], (*inv)[i+1:]...)
			continue
		}
		i++
	}
	return taken
}

// Entries returns the number of stacks.
func (inv Inventory) Entries() int { return len(inv) }

// Full reports whether a new entry for k would exceed MaxInventory.
func (inv Inventory) Full(k ItemKind) bool {
	if k.Spec().Stackable && inv.Has(k) {
		return false
	}
	return len(inv) >= MaxInventory
}

// Money returns the gold coins held.
func (inv Inventory) Money() int { return inv.Count(ItemMoney) }
