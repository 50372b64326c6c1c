package account

import (
	"time"

	"github.com/pratik-mahalle/gw2ledger/internal/domain/catalog"
)

// Slot is an occupied inventory or bank slot
type Slot struct {
	ID        catalog.ResourceID   `json:"id"`
	Count     int                  `json:"count"`
	Charges   int                  `json:"charges,omitempty"`
	Skin      catalog.ResourceID   `json:"skin,omitempty"`
	Upgrades  []catalog.ResourceID `json:"upgrades,omitempty"`
	Infusions []catalog.ResourceID `json:"infusions,omitempty"`
	Stats     *SelectedStats       `json:"stats,omitempty"`
	Binding   string               `json:"binding,omitempty"`
	BoundTo   string               `json:"bound_to,omitempty"`
}

// SelectedStats is the stat set chosen for an item with selectable stats
type SelectedStats struct {
	ID         catalog.ResourceID `json:"id"`
	Attributes map[string]int     `json:"attributes,omitempty"`
}

// Bag is a character bag; nil entries in Inventory are empty slots
type Bag struct {
	ID        catalog.ResourceID `json:"id"`
	Size      int                `json:"size"`
	Inventory []*Slot            `json:"inventory"`
}

// EquipmentItem is an item equipped on a character
type EquipmentItem struct {
	ID        catalog.ResourceID   `json:"id"`
	Slot      string               `json:"slot"`
	Upgrades  []catalog.ResourceID `json:"upgrades,omitempty"`
	Infusions []catalog.ResourceID `json:"infusions,omitempty"`
	Skin      catalog.ResourceID   `json:"skin,omitempty"`
	Stats     *SelectedStats       `json:"stats,omitempty"`
	Binding   string               `json:"binding,omitempty"`
	BoundTo   string               `json:"bound_to,omitempty"`
}

// Character holds the parts of a character relevant to holdings
type Character struct {
	Name       string          `json:"name"`
	Race       string          `json:"race,omitempty"`
	Profession string          `json:"profession,omitempty"`
	Level      int             `json:"level"`
	Bags       []*Bag          `json:"bags"`
	Equipment  []EquipmentItem `json:"equipment"`
}

// MaterialStack is one entry of material storage
type MaterialStack struct {
	ID       catalog.ResourceID `json:"id"`
	Category int                `json:"category"`
	Count    int                `json:"count"`
	Binding  string             `json:"binding,omitempty"`
}

// Snapshot is the latest fetched account state
type Snapshot struct {
	Name            string               `json:"name,omitempty"`
	Characters      []Character          `json:"characters"`
	Bank            []*Slot              `json:"bank"`
	SharedInventory []*Slot              `json:"shared_inventory"`
	Materials       []MaterialStack      `json:"materials"`
	Recipes         []catalog.ResourceID `json:"recipes"`
	FetchedAt       time.Time            `json:"fetched_at"`
}

// OwnedStack is the total quantity of an item held across all locations
type OwnedStack struct {
	ID    catalog.ResourceID `json:"id" validate:"required,gt=0"`
	Count int                `json:"count" validate:"gte=0"`
}

// Character returns the character with the given name
func (s *Snapshot) Character(name string) (*Character, bool) {
	if s == nil {
		return nil, false
	}
	for i := range s.Characters {
		if s.Characters[i].Name == name {
			return &s.Characters[i], true
		}
	}
	return nil, false
}
