// Package join resolves ids against the record store and computes derived
// views: valuations, ingredient coverage and hydrated equipment. Every join is
// a read over whatever the store currently holds. Unresolved ids are never an
// error; they contribute zero and are reported so callers can show them as
// still loading.
package join

import (
	"math"

	"github.com/pratik-mahalle/gw2ledger/internal/collector"
	"github.com/pratik-mahalle/gw2ledger/internal/domain/account"
	"github.com/pratik-mahalle/gw2ledger/internal/domain/catalog"
)

// Engine answers join queries over a record reader
type Engine struct {
	records catalog.Reader
}

// New creates a join engine
func New(records catalog.Reader) *Engine {
	return &Engine{records: records}
}

func (e *Engine) item(id catalog.ResourceID) (*catalog.Item, bool) {
	rec, ok := e.records.Get(catalog.TypeItems, id)
	if !ok {
		return nil, false
	}
	it, ok := rec.(*catalog.Item)
	return it, ok
}

func (e *Engine) price(id catalog.ResourceID) (*catalog.PriceQuote, bool) {
	rec, ok := e.records.Get(catalog.TypePrices, id)
	if !ok {
		return nil, false
	}
	q, ok := rec.(*catalog.PriceQuote)
	return q, ok
}

func (e *Engine) stats(id catalog.ResourceID) (*catalog.ItemStats, bool) {
	rec, ok := e.records.Get(catalog.TypeItemStats, id)
	if !ok {
		return nil, false
	}
	s, ok := rec.(*catalog.ItemStats)
	return s, ok
}

func (e *Engine) recipe(id catalog.ResourceID) (*catalog.Recipe, bool) {
	rec, ok := e.records.Get(catalog.TypeRecipes, id)
	if !ok {
		return nil, false
	}
	r, ok := rec.(*catalog.Recipe)
	return r, ok
}

// ValuedStack is one owned stack with the price applied to it
type ValuedStack struct {
	ID        catalog.ResourceID `json:"id"`
	Name      string             `json:"name,omitempty"`
	Count     int                `json:"count"`
	UnitPrice int64              `json:"unit_price"`
	Value     int64              `json:"value"`
}

// Valuation is the sell value of a set of owned stacks, in copper
type Valuation struct {
	Total    int64                `json:"total"`
	Stacks   []ValuedStack        `json:"stacks"`
	Unpriced []catalog.ResourceID `json:"unpriced,omitempty"`
}

// Valuation sums unit sell price times count over every stack whose quote is
// cached and whitelisted. Other stacks add nothing and are listed as unpriced.
func (e *Engine) Valuation(stacks []account.OwnedStack) *Valuation {
	v := &Valuation{Stacks: make([]ValuedStack, 0, len(stacks))}
	unpriced := collector.NewSet()

	for _, st := range stacks {
		if st.ID <= 0 || st.Count <= 0 {
			continue
		}
		line := ValuedStack{ID: st.ID, Count: st.Count}
		if it, ok := e.item(st.ID); ok {
			line.Name = it.Name
		}
		if q, ok := e.price(st.ID); ok && q.Whitelisted {
			line.UnitPrice = q.Sells.UnitPrice
			line.Value = q.Sells.UnitPrice * int64(st.Count)
		} else {
			unpriced.Add(st.ID)
		}
		v.Total += line.Value
		v.Stacks = append(v.Stacks, line)
	}

	v.Unpriced = unpriced.IDs()
	return v
}

// IngredientStatus is the coverage of a single recipe input
type IngredientStatus struct {
	ItemID    catalog.ResourceID `json:"item_id"`
	Name      string             `json:"name,omitempty"`
	Required  int                `json:"required"`
	Owned     int                `json:"owned"`
	Satisfied int                `json:"satisfied"`
}

// Completion is the coverage of an ingredient list by owned items.
// The exact ratio is Satisfied/Required; Percent is its rounded display form.
type Completion struct {
	RecipeID    catalog.ResourceID `json:"recipe_id,omitempty"`
	Ingredients []IngredientStatus `json:"ingredients"`
	Satisfied   int                `json:"satisfied"`
	Required    int                `json:"required"`
	Percent     int                `json:"percent"`
}

// Ratio returns Satisfied/Required, or 0 when nothing is required
func (c *Completion) Ratio() float64 {
	if c.Required == 0 {
		return 0
	}
	return float64(c.Satisfied) / float64(c.Required)
}

// IngredientCompletion computes sum(min(owned, required)) / sum(required).
// Untracked ingredients count as zero owned.
func (e *Engine) IngredientCompletion(ingredients []catalog.Ingredient, owned map[catalog.ResourceID]int) *Completion {
	c := &Completion{Ingredients: make([]IngredientStatus, 0, len(ingredients))}

	for _, ing := range ingredients {
		required := ing.Count
		if required < 0 {
			required = 0
		}
		have := owned[ing.ItemID]
		if have < 0 {
			have = 0
		}
		st := IngredientStatus{
			ItemID:    ing.ItemID,
			Required:  required,
			Owned:     have,
			Satisfied: min(have, required),
		}
		if it, ok := e.item(ing.ItemID); ok {
			st.Name = it.Name
		}
		c.Satisfied += st.Satisfied
		c.Required += st.Required
		c.Ingredients = append(c.Ingredients, st)
	}

	if c.Required > 0 {
		c.Percent = int(math.Round(100 * float64(c.Satisfied) / float64(c.Required)))
	}
	return c
}

// RecipeCompletion resolves the recipe from the store and computes its
// ingredient completion. ok is false when the recipe is not cached yet.
func (e *Engine) RecipeCompletion(recipeID catalog.ResourceID, owned map[catalog.ResourceID]int) (*Completion, bool) {
	r, ok := e.recipe(recipeID)
	if !ok {
		return nil, false
	}
	c := e.IngredientCompletion(r.Ingredients, owned)
	c.RecipeID = recipeID
	return c, true
}

// HydratedItem is a held or equipped item resolved against the store
type HydratedItem struct {
	ID        catalog.ResourceID  `json:"id"`
	Slot      string              `json:"slot,omitempty"`
	Count     int                 `json:"count"`
	Item      *catalog.Item       `json:"item,omitempty"`
	Stats     *catalog.ItemStats  `json:"stats,omitempty"`
	Upgrades  []*catalog.Item     `json:"upgrades,omitempty"`
	Infusions []*catalog.Item     `json:"infusions,omitempty"`
	Price     *catalog.PriceQuote `json:"price,omitempty"`
}

// Hydrated is a list of resolved items plus the ids that could not be resolved yet
type Hydrated struct {
	Items   []HydratedItem       `json:"items"`
	Pending []catalog.ResourceID `json:"pending,omitempty"`
}

type holding struct {
	id        catalog.ResourceID
	slot      string
	count     int
	upgrades  []catalog.ResourceID
	infusions []catalog.ResourceID
	stats     *account.SelectedStats
}

// HydrateEquipment resolves equipped items with their stat set and sub-items
func (e *Engine) HydrateEquipment(items []account.EquipmentItem) *Hydrated {
	hs := make([]holding, 0, len(items))
	for _, eq := range items {
		hs = append(hs, holding{
			id:        eq.ID,
			slot:      eq.Slot,
			count:     1,
			upgrades:  eq.Upgrades,
			infusions: eq.Infusions,
			stats:     eq.Stats,
		})
	}
	return e.hydrate(hs)
}

// HydrateSlots resolves inventory or bank slots; empty slots are skipped
func (e *Engine) HydrateSlots(slots []*account.Slot) *Hydrated {
	hs := make([]holding, 0, len(slots))
	for _, s := range slots {
		if s == nil {
			continue
		}
		hs = append(hs, holding{
			id:        s.ID,
			count:     s.Count,
			upgrades:  s.Upgrades,
			infusions: s.Infusions,
			stats:     s.Stats,
		})
	}
	return e.hydrate(hs)
}

func (e *Engine) hydrate(hs []holding) *Hydrated {
	out := &Hydrated{Items: make([]HydratedItem, 0, len(hs))}
	pending := collector.NewSet()

	subItems := func(ids []catalog.ResourceID) []*catalog.Item {
		var resolved []*catalog.Item
		for _, id := range ids {
			if it, ok := e.item(id); ok {
				resolved = append(resolved, it)
			} else {
				pending.Add(id)
			}
		}
		return resolved
	}

	for _, h := range hs {
		if h.id <= 0 {
			continue
		}
		hi := HydratedItem{ID: h.id, Slot: h.slot, Count: h.count}
		if it, ok := e.item(h.id); ok {
			hi.Item = it
		} else {
			pending.Add(h.id)
		}

		statsID := catalog.ResourceID(0)
		if h.stats != nil {
			statsID = h.stats.ID
		} else if hi.Item != nil && hi.Item.Details != nil && hi.Item.Details.InfixUpgrade != nil {
			statsID = hi.Item.Details.InfixUpgrade.ID
		}
		if statsID > 0 {
			if st, ok := e.stats(statsID); ok {
				hi.Stats = st
			}
		}

		hi.Upgrades = subItems(h.upgrades)
		hi.Infusions = subItems(h.infusions)
		if q, ok := e.price(h.id); ok {
			hi.Price = q
		}
		out.Items = append(out.Items, hi)
	}

	out.Pending = pending.IDs()
	return out
}
