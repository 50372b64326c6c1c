package account

import (
	"sort"

	"github.com/pratik-mahalle/gw2ledger/internal/domain/catalog"
)

// OwnedCounts sums item quantities across bags, shared inventory, bank,
// material storage and equipment. Upgrades and infusions slotted into an
// item count as one owned unit each.
func (s *Snapshot) OwnedCounts() map[catalog.ResourceID]int {
	return s.counts(false)
}

// TradableCounts is OwnedCounts without account- or character-bound copies.
// Slotted upgrades and infusions are always included.
func (s *Snapshot) TradableCounts() map[catalog.ResourceID]int {
	return s.counts(true)
}

func (s *Snapshot) counts(tradableOnly bool) map[catalog.ResourceID]int {
	counts := make(map[catalog.ResourceID]int)
	if s == nil {
		return counts
	}
	skip := func(binding string) bool { return tradableOnly && binding != "" }

	addSlot := func(slot *Slot) {
		if slot == nil || slot.ID <= 0 {
			return
		}
		if !skip(slot.Binding) {
			counts[slot.ID] += slot.Count
		}
		for _, id := range slot.Upgrades {
			if id > 0 {
				counts[id]++
			}
		}
		for _, id := range slot.Infusions {
			if id > 0 {
				counts[id]++
			}
		}
	}

	for _, ch := range s.Characters {
		for _, bag := range ch.Bags {
			if bag == nil {
				continue
			}
			for _, slot := range bag.Inventory {
				addSlot(slot)
			}
		}
		for _, eq := range ch.Equipment {
			if eq.ID <= 0 {
				continue
			}
			if !skip(eq.Binding) {
				counts[eq.ID]++
			}
			for _, id := range eq.Upgrades {
				if id > 0 {
					counts[id]++
				}
			}
			for _, id := range eq.Infusions {
				if id > 0 {
					counts[id]++
				}
			}
		}
	}
	for _, slot := range s.SharedInventory {
		addSlot(slot)
	}
	for _, slot := range s.Bank {
		addSlot(slot)
	}
	for _, m := range s.Materials {
		if m.ID > 0 && m.Count > 0 && !skip(m.Binding) {
			counts[m.ID] += m.Count
		}
	}
	return counts
}

// OwnedStacks returns OwnedCounts as stacks ordered by id
func (s *Snapshot) OwnedStacks() []OwnedStack {
	return StacksFromCounts(s.OwnedCounts())
}

// TradableStacks returns TradableCounts as stacks ordered by id. Account
// valuation uses these since bound copies cannot be sold.
func (s *Snapshot) TradableStacks() []OwnedStack {
	return StacksFromCounts(s.TradableCounts())
}

// StacksFromCounts converts a count map into stacks ordered by id
func StacksFromCounts(counts map[catalog.ResourceID]int) []OwnedStack {
	stacks := make([]OwnedStack, 0, len(counts))
	for id, n := range counts {
		if n <= 0 {
			continue
		}
		stacks = append(stacks, OwnedStack{ID: id, Count: n})
	}
	sort.Slice(stacks, func(i, j int) bool { return stacks[i].ID < stacks[j].ID })
	return stacks
}
