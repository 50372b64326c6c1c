package collector

import (
	"reflect"
	"testing"

	"github.com/pratik-mahalle/gw2ledger/internal/domain/account"
	"github.com/pratik-mahalle/gw2ledger/internal/domain/catalog"
)

func ids(v ...int64) []catalog.ResourceID {
	out := make([]catalog.ResourceID, len(v))
	for i, n := range v {
		out[i] = catalog.ResourceID(n)
	}
	return out
}

func TestSet_Add(t *testing.T) {
	tests := []struct {
		name  string
		input []catalog.ResourceID
		want  []catalog.ResourceID
	}{
		{name: "empty", input: nil, want: []catalog.ResourceID{}},
		{name: "keeps insertion order", input: ids(5, 3, 9), want: ids(5, 3, 9)},
		{name: "drops duplicates", input: ids(4, 4, 2, 4, 2), want: ids(4, 2)},
		{name: "drops non-positive", input: ids(0, -1, 7), want: ids(7)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSet(tt.input...)
			if got := s.IDs(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("IDs() = %v, want %v", got, tt.want)
			}
			if s.Len() != len(tt.want) {
				t.Errorf("Len() = %d, want %d", s.Len(), len(tt.want))
			}
		})
	}
}

func TestSet_NilSafe(t *testing.T) {
	var s *Set
	if s.Has(1) {
		t.Error("nil set should not contain anything")
	}
	if s.Len() != 0 || s.IDs() != nil {
		t.Error("nil set should be empty")
	}
}

func TestCollector_AddBags(t *testing.T) {
	bags := []*account.Bag{
		{
			ID:   8932,
			Size: 4,
			Inventory: []*account.Slot{
				{ID: 19721, Count: 250},
				nil,
				{ID: 24, Count: 1, Upgrades: []catalog.ResourceID{24836}, Infusions: []catalog.ResourceID{49424}},
				{ID: 19721, Count: 12},
			},
		},
		nil,
		{ID: 8932, Size: 2, Inventory: []*account.Slot{nil, nil}},
	}

	c := New().AddBags(bags)

	wantItems := ids(8932, 19721, 24, 24836, 49424)
	if got := c.Items(); !reflect.DeepEqual(got, wantItems) {
		t.Errorf("Items() = %v, want %v", got, wantItems)
	}
	// bags themselves are account bound once equipped
	if c.Set(catalog.TypePrices).Has(8932) {
		t.Error("bag id should not be queued for pricing")
	}
	if !c.Set(catalog.TypePrices).Has(24836) {
		t.Error("upgrade id should be queued for pricing")
	}
}

func TestCollector_BoundSlotsNotPriced(t *testing.T) {
	c := New().AddSlots([]*account.Slot{
		{ID: 100, Count: 1, Binding: "Account"},
		{ID: 200, Count: 3},
	})

	if !reflect.DeepEqual(c.Items(), ids(100, 200)) {
		t.Errorf("Items() = %v", c.Items())
	}
	if !reflect.DeepEqual(c.Prices(), ids(200)) {
		t.Errorf("Prices() = %v, want [200]", c.Prices())
	}
}

func TestCollector_AddEquipment(t *testing.T) {
	c := New().AddEquipment([]account.EquipmentItem{
		{ID: 30698, Slot: "WeaponA1", Upgrades: []catalog.ResourceID{24615}, Stats: &account.SelectedStats{ID: 161}, Binding: "Character"},
		{ID: 0, Slot: "Helm"},
		{ID: 48081, Slot: "Coat", Infusions: []catalog.ResourceID{37125, 37125}},
	})

	if want := ids(30698, 24615, 48081, 37125); !reflect.DeepEqual(c.Items(), want) {
		t.Errorf("Items() = %v, want %v", c.Items(), want)
	}
	if want := ids(161); !reflect.DeepEqual(c.ItemStats(), want) {
		t.Errorf("ItemStats() = %v, want %v", c.ItemStats(), want)
	}
	if c.Set(catalog.TypePrices).Has(30698) {
		t.Error("soulbound weapon should not be priced")
	}
}

func TestCollector_AddMaterials(t *testing.T) {
	c := New().AddMaterials([]account.MaterialStack{
		{ID: 19697, Category: 5, Count: 250},
		{ID: 19699, Category: 5, Count: 0},
		{ID: 19697, Category: 5, Count: 1},
	})
	if want := ids(19697); !reflect.DeepEqual(c.Items(), want) {
		t.Errorf("Items() = %v, want %v", c.Items(), want)
	}
}

func TestCollector_AddRecipes(t *testing.T) {
	recipes := []*catalog.Recipe{
		{ID: 1, OutputItemID: 46742, Ingredients: []catalog.Ingredient{{ItemID: 19721, Count: 10}, {ItemID: 24, Count: 1}}},
		nil,
		{ID: 2, OutputItemID: 46742, Ingredients: []catalog.Ingredient{{ItemID: 19721, Count: 3}}},
		{ID: 3},
	}

	c := New().AddRecipes(recipes)
	if want := ids(46742, 19721, 24); !reflect.DeepEqual(c.Items(), want) {
		t.Errorf("Items() = %v, want %v", c.Items(), want)
	}
	if len(c.Recipes()) != 0 {
		t.Errorf("AddRecipes should not collect recipe ids, got %v", c.Recipes())
	}
}

func TestCollector_AddItemsNested(t *testing.T) {
	items := []*catalog.Item{
		{ID: 1, Details: &catalog.ItemDetails{InfixUpgrade: &catalog.InfixUpgrade{ID: 584}, SuffixItemID: 24836}},
		{ID: 2, Details: &catalog.ItemDetails{StatChoices: ids(161, 584, 1130)}},
		{ID: 3},
		nil,
	}

	c := New().AddItems(items)
	if want := ids(584, 161, 1130); !reflect.DeepEqual(c.ItemStats(), want) {
		t.Errorf("ItemStats() = %v, want %v", c.ItemStats(), want)
	}
	if want := ids(24836); !reflect.DeepEqual(c.Items(), want) {
		t.Errorf("Items() = %v, want %v", c.Items(), want)
	}
}

func TestFromAccount(t *testing.T) {
	snap := &account.Snapshot{
		Characters: []account.Character{
			{
				Name:      "Ash Legion Scout",
				Bags:      []*account.Bag{{ID: 9, Inventory: []*account.Slot{{ID: 10, Count: 1}}}},
				Equipment: []account.EquipmentItem{{ID: 11, Slot: "Boots"}},
			},
		},
		SharedInventory: []*account.Slot{nil, {ID: 12, Count: 1}},
		Bank:            []*account.Slot{{ID: 10, Count: 5}, nil},
		Materials:       []account.MaterialStack{{ID: 13, Count: 2}},
		Recipes:         ids(7, 8, 7),
	}

	c := FromAccount(snap)
	if want := ids(9, 10, 11, 12, 13); !reflect.DeepEqual(c.Items(), want) {
		t.Errorf("Items() = %v, want %v", c.Items(), want)
	}
	if want := ids(7, 8); !reflect.DeepEqual(c.Recipes(), want) {
		t.Errorf("Recipes() = %v, want %v", c.Recipes(), want)
	}

	if got := FromAccount(nil).Items(); len(got) != 0 {
		t.Errorf("FromAccount(nil) collected %v", got)
	}
}

func TestItemsOf(t *testing.T) {
	col := catalog.NewCollection([]catalog.Record{
		&catalog.Item{ID: 2},
		&catalog.Recipe{ID: 3},
		&catalog.Item{ID: 1},
	})
	got := ItemsOf(col)
	if len(got) != 2 || got[0].ID != 1 || got[1].ID != 2 {
		t.Errorf("ItemsOf() = %v", got)
	}
	if rs := RecipesOf(col); len(rs) != 1 || rs[0].ID != 3 {
		t.Errorf("RecipesOf() = %v", rs)
	}
}
