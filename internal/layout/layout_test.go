package layout

import (
	"testing"

	"mod-localizer/internal/unit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func units() []unit.TranslationUnit {
	return []unit.TranslationUnit{
		{Key: "ThingDef/Pear.label", Text: "pear", Tag: "label", SourceFile: "Things/Food.xml", DefType: "ThingDef"},
		{Key: "ThingDef/Apple.label", Text: "apple", Tag: "label", SourceFile: "Things/Food.xml", DefType: "ThingDef"},
		{Key: "PawnKindDef/Trader.label", Text: "trader", Tag: "label", SourceFile: "Pawns/Kinds.xml", DefType: "PawnKindDef"},
		{Key: "ThingDef/Sword.description", Text: "sharp", Tag: "description", SourceFile: "Things/Weapons.xml", DefType: "ThingDef"},
	}
}

func groupPaths(groups []Group) []string {
	out := make([]string, len(groups))
	for i, g := range groups {
		out[i] = g.Path
	}
	return out
}

func TestPartition_ByType(t *testing.T) {
	groups := Partition(FromUnits(units()), ByType)

	assert.Equal(t, []string{"PawnKindDef/PawnKindDef.xml", "ThingDef/ThingDef.xml"}, groupPaths(groups))
	assert.Equal(t, "ThingDef", groups[1].Name)

	var keys []string
	for _, e := range groups[1].Entries {
		keys = append(keys, e.Key)
	}
	assert.Equal(t, []string{"Apple.label", "Pear.label", "Sword.description"}, keys)
}

func TestPartition_ByTypeFallsBackToKeyPrefix(t *testing.T) {
	groups := Partition([]Entry{{Key: "HediffDef/Flu.label", Text: "flu"}, {Key: "Loose.label", Text: "x"}}, ByType)
	assert.Equal(t, []string{"HediffDef/HediffDef.xml", "UnknownDef/UnknownDef.xml"}, groupPaths(groups))
}

func TestPartition_ByDirectory(t *testing.T) {
	groups := Partition(FromUnits(units()), ByDirectory)
	assert.Equal(t, []string{"Pawns/Kinds.xml", "Things/Food.xml", "Things/Weapons.xml"}, groupPaths(groups))
	assert.Equal(t, "Apple.label", groups[1].Entries[0].Key)
}

func TestPartition_ByDirectorySanitisesKeys(t *testing.T) {
	groups := Partition([]Entry{{Key: "ThingDef/9mm-round.label", File: "a.xml"}}, ByDirectory)
	require.Len(t, groups, 1)
	assert.Equal(t, "_9mm.round.label", groups[0].Entries[0].Key)
}

func TestPartition_Original(t *testing.T) {
	groups := Partition([]Entry{
		{Key: "Greeting", File: "Misc.xml"},
		{Key: "Farewell", File: "Misc.xml"},
		{Key: "Title", File: "UI/Menu.xml"},
	}, Original)

	assert.Equal(t, []string{"Misc.xml", "UI/Menu.xml"}, groupPaths(groups))
	assert.Equal(t, "Farewell", groups[0].Entries[0].Key)
}

// Groups are disjoint and their union is the input key set.
func TestPartition_CoversInputExactlyOnce(t *testing.T) {
	for _, s := range []Strategy{Original, ByDirectory, ByType} {
		groups := Partition(FromUnits(units()), s)

		seen := make(map[string]int)
		total := 0
		for _, g := range groups {
			for _, e := range g.Entries {
				seen[g.Path+"|"+e.Key]++
				total++
			}
		}
		assert.Equal(t, len(units()), total, s.String())
		for k, n := range seen {
			assert.Equal(t, 1, n, k)
		}
	}
}

func TestPartition_Deterministic(t *testing.T) {
	a := Partition(FromUnits(units()), ByType)
	b := Partition(FromUnits(units()), ByType)
	assert.Equal(t, a, b)
}

func TestPartition_Collision(t *testing.T) {
	groups := Partition([]Entry{
		{Key: "ThingDef/Apple.label", Text: "first", DefType: "ThingDef"},
		{Key: "Apple.label", Text: "second", DefType: "ThingDef"},
	}, ByType)

	require.Len(t, groups, 1)
	require.Len(t, groups[0].Entries, 1)
	assert.Equal(t, "second", groups[0].Entries[0].Text)
	assert.Equal(t, 1, groups[0].Collisions)
}

func TestFromRecords_PinsExisting(t *testing.T) {
	entries := FromRecords([]unit.MergeRecord{
		{Key: "Apple.label", CurrentText: "red apple", RelativePath: "Food/Fruit.xml", HistoryText: "苹果", DefType: "ThingDef", Existing: true},
		{Key: "Pear.label", CurrentText: "pear", RelativePath: "Things/Food.xml", DefType: "ThingDef"},
	})
	groups := Partition(entries, ByType)

	assert.Equal(t, []string{"Food/Fruit.xml", "ThingDef/ThingDef.xml"}, groupPaths(groups))
	assert.Equal(t, "苹果", groups[0].Entries[0].History)
	assert.Equal(t, "Food/Fruit.xml", groups[0].Name)
}

func TestFromRecords_PinnedAndNewShareDocument(t *testing.T) {
	entries := FromRecords([]unit.MergeRecord{
		{Key: "Apple.label", CurrentText: "apple", RelativePath: "ThingDef/ThingDef.xml", DefType: "ThingDef", Existing: true},
		{Key: "Pear.label", CurrentText: "pear", RelativePath: "Things/Food.xml", DefType: "ThingDef"},
	})
	groups := Partition(entries, ByType)

	require.Len(t, groups, 1)
	assert.Equal(t, "ThingDef", groups[0].Name)
	assert.Len(t, groups[0].Entries, 2)
}

func TestParseStrategy(t *testing.T) {
	tests := map[string]Strategy{
		"":                       ByType,
		"by-type":                ByType,
		"defs_by_type":           ByType,
		"original":               Original,
		"original_structure":     Original,
		"By-Directory":           ByDirectory,
		"defs_by_file_structure": ByDirectory,
	}
	for in, want := range tests {
		got, err := ParseStrategy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseStrategy("flat")
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestKeyFunc(t *testing.T) {
	tests := []struct {
		strategy Strategy
		want     string
	}{
		{Original, "Gun-M4.label"},
		{ByType, "Gun-M4.label"},
		{ByDirectory, "Gun.M4.label"},
	}
	for _, tt := range tests {
		t.Run(tt.strategy.String(), func(t *testing.T) {
			keyOf := KeyFunc(tt.strategy)
			assert.Equal(t, tt.want, keyOf("ThingDef/Gun-M4.label"))
			assert.Equal(t, tt.want, keyOf(tt.want), "keys already written map onto themselves")
		})
	}
}
