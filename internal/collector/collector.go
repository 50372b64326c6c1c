// Package collector walks account holdings and fetched records and produces
// the deduplicated id sets that drive bulk fetches. Nothing here does I/O and
// nothing here fails: nil or malformed input contributes no ids.
package collector

import (
	"github.com/pratik-mahalle/gw2ledger/internal/domain/account"
	"github.com/pratik-mahalle/gw2ledger/internal/domain/catalog"
)

// Set is an insertion-ordered set of positive resource ids
type Set struct {
	ids  []catalog.ResourceID
	seen map[catalog.ResourceID]struct{}
}

// NewSet creates a set holding the given ids
func NewSet(ids ...catalog.ResourceID) *Set {
	s := &Set{seen: make(map[catalog.ResourceID]struct{})}
	s.Add(ids...)
	return s
}

// Add inserts ids not yet present; non-positive ids are ignored
func (s *Set) Add(ids ...catalog.ResourceID) {
	if s.seen == nil {
		s.seen = make(map[catalog.ResourceID]struct{})
	}
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, ok := s.seen[id]; ok {
			continue
		}
		s.seen[id] = struct{}{}
		s.ids = append(s.ids, id)
	}
}

// Has reports whether id is in the set
func (s *Set) Has(id catalog.ResourceID) bool {
	if s == nil {
		return false
	}
	_, ok := s.seen[id]
	return ok
}

// Len returns the number of ids
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.ids)
}

// IDs returns a copy of the ids in insertion order
func (s *Set) IDs() []catalog.ResourceID {
	if s == nil {
		return nil
	}
	out := make([]catalog.ResourceID, len(s.ids))
	copy(out, s.ids)
	return out
}

// Without returns the ids of s in order, minus those drop reports true for
func (s *Set) Without(drop func(catalog.ResourceID) bool) []catalog.ResourceID {
	var out []catalog.ResourceID
	for _, id := range s.IDs() {
		if !drop(id) {
			out = append(out, id)
		}
	}
	return out
}

// Collector accumulates id sets per resource type
type Collector struct {
	sets map[catalog.ResourceType]*Set
}

// New creates an empty collector
func New() *Collector {
	c := &Collector{sets: make(map[catalog.ResourceType]*Set, len(catalog.AllTypes))}
	for _, rt := range catalog.AllTypes {
		c.sets[rt] = NewSet()
	}
	return c
}

// Set returns the id set collected for rt
func (c *Collector) Set(rt catalog.ResourceType) *Set {
	s, ok := c.sets[rt]
	if !ok {
		s = NewSet()
		c.sets[rt] = s
	}
	return s
}

func (c *Collector) Items() []catalog.ResourceID     { return c.Set(catalog.TypeItems).IDs() }
func (c *Collector) Recipes() []catalog.ResourceID   { return c.Set(catalog.TypeRecipes).IDs() }
func (c *Collector) ItemStats() []catalog.ResourceID { return c.Set(catalog.TypeItemStats).IDs() }
func (c *Collector) Prices() []catalog.ResourceID    { return c.Set(catalog.TypePrices).IDs() }

// tradable items are queued for a price quote as well
func (c *Collector) addItem(id catalog.ResourceID, tradable bool) {
	c.Set(catalog.TypeItems).Add(id)
	if tradable {
		c.Set(catalog.TypePrices).Add(id)
	}
}

// AddSlots collects ids from bank, shared inventory or bag slots.
// Nil slots are empty and skipped.
func (c *Collector) AddSlots(slots []*account.Slot) *Collector {
	for _, slot := range slots {
		if slot == nil || slot.ID <= 0 {
			continue
		}
		c.addItem(slot.ID, slot.Binding == "")
		for _, id := range slot.Upgrades {
			c.addItem(id, true)
		}
		for _, id := range slot.Infusions {
			c.addItem(id, true)
		}
		if slot.Stats != nil {
			c.Set(catalog.TypeItemStats).Add(slot.Stats.ID)
		}
	}
	return c
}

// AddBags collects ids from every bag; nil bags are unequipped bag slots
func (c *Collector) AddBags(bags []*account.Bag) *Collector {
	for _, bag := range bags {
		if bag == nil {
			continue
		}
		c.addItem(bag.ID, false)
		c.AddSlots(bag.Inventory)
	}
	return c
}

// AddEquipment collects equipped items with their upgrades, infusions and stat sets
func (c *Collector) AddEquipment(items []account.EquipmentItem) *Collector {
	for _, eq := range items {
		if eq.ID <= 0 {
			continue
		}
		c.addItem(eq.ID, eq.Binding == "")
		for _, id := range eq.Upgrades {
			c.addItem(id, true)
		}
		for _, id := range eq.Infusions {
			c.addItem(id, true)
		}
		if eq.Stats != nil {
			c.Set(catalog.TypeItemStats).Add(eq.Stats.ID)
		}
	}
	return c
}

// AddMaterials collects material storage stacks; empty stacks are skipped
func (c *Collector) AddMaterials(materials []account.MaterialStack) *Collector {
	for _, m := range materials {
		if m.Count <= 0 {
			continue
		}
		c.addItem(m.ID, m.Binding == "")
	}
	return c
}

// AddRecipeIDs collects recipe ids, e.g. the account's unlocked recipes
func (c *Collector) AddRecipeIDs(ids []catalog.ResourceID) *Collector {
	c.Set(catalog.TypeRecipes).Add(ids...)
	return c
}

// AddRecipes collects the output and ingredient items of fetched recipes
func (c *Collector) AddRecipes(recipes []*catalog.Recipe) *Collector {
	for _, r := range recipes {
		if r == nil {
			continue
		}
		c.addItem(r.OutputItemID, true)
		for _, ing := range r.Ingredients {
			c.addItem(ing.ItemID, true)
		}
	}
	return c
}

// AddItems collects ids nested inside fetched item records: the infix stat
// set, the selectable stat choices and the suffix upgrade item.
func (c *Collector) AddItems(items []*catalog.Item) *Collector {
	for _, it := range items {
		if it == nil || it.Details == nil {
			continue
		}
		d := it.Details
		if d.InfixUpgrade != nil {
			c.Set(catalog.TypeItemStats).Add(d.InfixUpgrade.ID)
		}
		c.Set(catalog.TypeItemStats).Add(d.StatChoices...)
		if d.SuffixItemID > 0 {
			c.addItem(d.SuffixItemID, true)
		}
	}
	return c
}

// AddAccount collects everything held by an account snapshot
func (c *Collector) AddAccount(snap *account.Snapshot) *Collector {
	if snap == nil {
		return c
	}
	for _, ch := range snap.Characters {
		c.AddBags(ch.Bags)
		c.AddEquipment(ch.Equipment)
	}
	c.AddSlots(snap.SharedInventory)
	c.AddSlots(snap.Bank)
	c.AddMaterials(snap.Materials)
	c.AddRecipeIDs(snap.Recipes)
	return c
}

// FromAccount is shorthand for New().AddAccount(snap)
func FromAccount(snap *account.Snapshot) *Collector {
	return New().AddAccount(snap)
}

// ItemsOf extracts item records from a collection, skipping other types
func ItemsOf(c catalog.Collection) []*catalog.Item {
	out := make([]*catalog.Item, 0, len(c))
	for _, rec := range c.Records() {
		if it, ok := rec.(*catalog.Item); ok {
			out = append(out, it)
		}
	}
	return out
}

// RecipesOf extracts recipe records from a collection, skipping other types
func RecipesOf(c catalog.Collection) []*catalog.Recipe {
	out := make([]*catalog.Recipe, 0, len(c))
	for _, rec := range c.Records() {
		if r, ok := rec.(*catalog.Recipe); ok {
			out = append(out, r)
		}
	}
	return out
}
