package npc_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/waystone-mud/waystone/internal/game/npc"
)

// lowSrc always returns 0, so every chance roll passes and every range
// resolves to its minimum.
type lowSrc struct{}

func (lowSrc) Intn(_ int) int { return 0 }

// highSrc returns n-1, so every chance roll fails and ranges resolve to max.
type highSrc struct{}

func (highSrc) Intn(n int) int { return n - 1 }

func TestLootTable_Validate(t *testing.T) {
	cases := []struct {
		name string
		lt   npc.LootTable
		ok   bool
	}{
		{"empty", npc.LootTable{}, true},
		{"currency inverted", npc.LootTable{Currency: &npc.CurrencyDrop{Min: 5, Max: 1}}, false},
		{"chance too high", npc.LootTable{Items: []npc.ItemDrop{{ItemID: "x", Chance: 1.5, MinQty: 1, MaxQty: 1}}}, false},
		{"qty zero", npc.LootTable{Items: []npc.ItemDrop{{ItemID: "x", Chance: 0.5, MinQty: 0, MaxQty: 1}}}, false},
		{"valid", npc.LootTable{Items: []npc.ItemDrop{{ItemID: "x", Chance: 0.5, MinQty: 1, MaxQty: 3}}}, true},
	}
	for _, tc := range cases {
		err := tc.lt.Validate()
		if tc.ok {
			require.NoError(t, err, tc.name)
		} else {
			require.Error(t, err, tc.name)
		}
	}
}

func TestGenerateLoot_AllDropsAtMinimum(t *testing.T) {
	lt := npc.LootTable{
		Currency: &npc.CurrencyDrop{Min: 2, Max: 8},
		Items: []npc.ItemDrop{
			{ItemID: "rat_pelt", Chance: 0.5, MinQty: 1, MaxQty: 3},
		},
	}

	result := npc.GenerateLoot(lt, lowSrc{})
	require.Equal(t, 2, result.Currency)
	require.Len(t, result.Items, 1)
	require.Equal(t, "rat_pelt", result.Items[0].ItemDefID)
	require.Equal(t, 1, result.Items[0].Quantity)
	require.NotEmpty(t, result.Items[0].InstanceID)
}

func TestGenerateLoot_NoDropsWhenChanceFails(t *testing.T) {
	lt := npc.LootTable{
		Items: []npc.ItemDrop{
			{ItemID: "rat_pelt", Chance: 0.5, MinQty: 1, MaxQty: 3},
		},
	}

	result := npc.GenerateLoot(lt, highSrc{})
	require.Empty(t, result.Items)
}
