package catalog

import (
	"sort"
	"time"
)

// ResourceID identifies a record within one resource type
type ResourceID int64

// ResourceType names a remote collection addressable by id
type ResourceType string

// Resource types
const (
	TypeItems     ResourceType = "items"
	TypeRecipes   ResourceType = "recipes"
	TypeItemStats ResourceType = "itemstats"
	TypePrices    ResourceType = "prices"
)

// AllTypes lists every resource type the store keeps a collection for
var AllTypes = []ResourceType{TypeItems, TypeRecipes, TypeItemStats, TypePrices}

// IsValid checks if the resource type is known
func (rt ResourceType) IsValid() bool {
	switch rt {
	case TypeItems, TypeRecipes, TypeItemStats, TypePrices:
		return true
	default:
		return false
	}
}

// String returns the string representation of the resource type
func (rt ResourceType) String() string {
	return string(rt)
}

// Endpoint returns the remote API path serving this resource type
func (rt ResourceType) Endpoint() string {
	if rt == TypePrices {
		return "/v2/commerce/prices"
	}
	return "/v2/" + string(rt)
}

// Record is a fetched resource keyed by its own id
type Record interface {
	RecordID() ResourceID
	Type() ResourceType
}

// Item represents an item definition
type Item struct {
	ID          ResourceID   `json:"id"`
	Name        string       `json:"name"`
	Icon        string       `json:"icon,omitempty"`
	Rarity      string       `json:"rarity"`
	Level       int          `json:"level"`
	ItemType    string       `json:"type"`
	Description string       `json:"description,omitempty"`
	Flags       []string     `json:"flags,omitempty"`
	Details     *ItemDetails `json:"details,omitempty"`
}

// ItemDetails holds the optional type-specific attribute set of an item
type ItemDetails struct {
	Type         string        `json:"type,omitempty"`
	InfixUpgrade *InfixUpgrade `json:"infix_upgrade,omitempty"`
	SuffixItemID ResourceID    `json:"suffix_item_id,omitempty"`
	StatChoices  []ResourceID  `json:"stat_choices,omitempty"`
}

// InfixUpgrade is the fixed stat set baked into an item
type InfixUpgrade struct {
	ID         ResourceID  `json:"id"`
	Attributes []Attribute `json:"attributes,omitempty"`
}

// Attribute is a single stat modifier
type Attribute struct {
	Attribute  string  `json:"attribute"`
	Modifier   int     `json:"modifier,omitempty"`
	Multiplier float64 `json:"multiplier,omitempty"`
	Value      int     `json:"value,omitempty"`
}

func (i *Item) RecordID() ResourceID { return i.ID }
func (i *Item) Type() ResourceType   { return TypeItems }

// Ingredient is one required input of a recipe
type Ingredient struct {
	ItemID ResourceID `json:"item_id"`
	Count  int        `json:"count"`
}

// Recipe represents a crafting recipe
type Recipe struct {
	ID              ResourceID   `json:"id"`
	RecipeType      string       `json:"type"`
	OutputItemID    ResourceID   `json:"output_item_id"`
	OutputItemCount int          `json:"output_item_count"`
	MinRating       int          `json:"min_rating"`
	Disciplines     []string     `json:"disciplines"`
	Ingredients     []Ingredient `json:"ingredients"`
}

func (r *Recipe) RecordID() ResourceID { return r.ID }
func (r *Recipe) Type() ResourceType   { return TypeRecipes }

// ItemStats is a named stat combination that items can reference
type ItemStats struct {
	ID         ResourceID  `json:"id"`
	Name       string      `json:"name"`
	Attributes []Attribute `json:"attributes"`
}

func (s *ItemStats) RecordID() ResourceID { return s.ID }
func (s *ItemStats) Type() ResourceType   { return TypeItemStats }

// PriceLevel is one side of the trading post order book
type PriceLevel struct {
	Quantity  int   `json:"quantity"`
	UnitPrice int64 `json:"unit_price"`
}

// PriceQuote represents trading post prices for an item, in copper
type PriceQuote struct {
	ID          ResourceID `json:"id"`
	Whitelisted bool       `json:"whitelisted"`
	Buys        PriceLevel `json:"buys"`
	Sells       PriceLevel `json:"sells"`
}

func (p *PriceQuote) RecordID() ResourceID { return p.ID }
func (p *PriceQuote) Type() ResourceType   { return TypePrices }

// Collection maps ids to records of a single resource type
type Collection map[ResourceID]Record

// Merge copies every record of other into c, replacing existing ids
func (c Collection) Merge(other Collection) {
	for id, rec := range other {
		c[id] = rec
	}
}

// IDs returns the collection keys in ascending order
func (c Collection) IDs() []ResourceID {
	ids := make([]ResourceID, 0, len(c))
	for id := range c {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Records returns the collection values ordered by id
func (c Collection) Records() []Record {
	out := make([]Record, 0, len(c))
	for _, id := range c.IDs() {
		out = append(out, c[id])
	}
	return out
}

// NewCollection builds a collection keyed by each record's own id
func NewCollection(records []Record) Collection {
	c := make(Collection, len(records))
	for _, rec := range records {
		if rec == nil {
			continue
		}
		c[rec.RecordID()] = rec
	}
	return c
}

// Metadata describes the persisted snapshot
type Metadata struct {
	LastUpdated time.Time            `json:"lastUpdated"`
	ItemCount   int                  `json:"itemCount"`
	RecipeCount int                  `json:"recipeCount"`
	Counts      map[ResourceType]int `json:"counts,omitempty"`
}

// Snapshot is the full point-in-time state: one collection per type plus metadata
type Snapshot struct {
	Collections map[ResourceType]Collection
	Meta        Metadata
}

// NewSnapshot builds a snapshot and fills the metadata counts from the collections
func NewSnapshot(collections map[ResourceType]Collection, lastUpdated time.Time) *Snapshot {
	meta := Metadata{LastUpdated: lastUpdated, Counts: make(map[ResourceType]int, len(collections))}
	for rt, c := range collections {
		meta.Counts[rt] = len(c)
	}
	meta.ItemCount = meta.Counts[TypeItems]
	meta.RecipeCount = meta.Counts[TypeRecipes]
	return &Snapshot{Collections: collections, Meta: meta}
}
