package merge

import (
	"errors"
	"strings"
	"testing"

	"mod-localizer/internal/unit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tu(key, text string) unit.TranslationUnit {
	return unit.TranslationUnit{Key: key, Text: text, Tag: "label", SourceFile: "Things/Food.xml", DefType: "ThingDef"}
}

func bu(key, text, english string) unit.BaselineUnit {
	return unit.BaselineUnit{Key: key, Text: text, Tag: "label", RelativePath: "ThingDef/Food.xml", EnglishText: english}
}

func TestMerge_NewKey(t *testing.T) {
	res := Merge([]unit.TranslationUnit{tu("ThingDef/Apple.label", "apple")}, nil, Options{})

	require.Len(t, res.Records, 1)
	r := res.Records[0]
	assert.Equal(t, "Apple.label", r.Key)
	assert.Equal(t, "apple", r.CurrentText)
	assert.Equal(t, "apple", r.BaselineEnglishText)
	assert.Empty(t, r.HistoryText)
	assert.False(t, r.Existing)
	assert.Equal(t, "Things/Food.xml", r.RelativePath)
	assert.Equal(t, Stats{Input: 1, New: 1}, res.Stats)
}

func TestMerge_UnchangedSkipped(t *testing.T) {
	res := Merge(
		[]unit.TranslationUnit{tu("ThingDef/Apple.label", "apple")},
		[]unit.BaselineUnit{bu("Apple.label", "苹果", "apple")},
		Options{},
	)

	assert.Empty(t, res.Records)
	assert.Empty(t, res.Orphans)
	assert.Equal(t, 1, res.Stats.Unchanged)
}

func TestMerge_IncludeUnchanged(t *testing.T) {
	res := Merge(
		[]unit.TranslationUnit{tu("ThingDef/Apple.label", "apple")},
		[]unit.BaselineUnit{bu("Apple.label", "苹果", "apple")},
		Options{IncludeUnchanged: true},
	)

	require.Len(t, res.Records, 1)
	r := res.Records[0]
	assert.Equal(t, "苹果", r.CurrentText)
	assert.Empty(t, r.HistoryText)
	assert.True(t, r.Existing)
	assert.Equal(t, "ThingDef/Food.xml", r.RelativePath)
}

func TestMerge_ChangedKeepsHistory(t *testing.T) {
	res := Merge(
		[]unit.TranslationUnit{tu("ThingDef/Apple.label", "red apple")},
		[]unit.BaselineUnit{bu("Apple.label", "苹果", "apple")},
		Options{},
	)

	require.Len(t, res.Records, 1)
	r := res.Records[0]
	assert.Equal(t, "red apple", r.CurrentText)
	assert.Equal(t, "苹果", r.HistoryText)
	assert.Equal(t, "red apple", r.BaselineEnglishText)
	assert.True(t, r.Changed())
	assert.True(t, r.Existing)
	assert.Equal(t, "ThingDef/Food.xml", r.RelativePath)
	assert.Equal(t, 1, res.Stats.Changed)
}

func TestMerge_NormalisedComparison(t *testing.T) {
	res := Merge(
		[]unit.TranslationUnit{tu("ThingDef/Cafe.label", "  cafe\u0301 ")},
		[]unit.BaselineUnit{bu("Cafe.label", "咖啡馆", "caf\u00e9")},
		Options{},
	)
	assert.Empty(t, res.Records)
	assert.Equal(t, 1, res.Stats.Unchanged)
}

func TestMerge_MissingEnglishCountsAsChanged(t *testing.T) {
	res := Merge(
		[]unit.TranslationUnit{tu("ThingDef/Apple.label", "apple")},
		[]unit.BaselineUnit{bu("Apple.label", "苹果", "")},
		Options{},
	)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "苹果", res.Records[0].HistoryText)
}

func TestMerge_Orphans(t *testing.T) {
	res := Merge(
		[]unit.TranslationUnit{tu("ThingDef/Apple.label", "apple")},
		[]unit.BaselineUnit{
			bu("Apple.label", "苹果", "apple"),
			bu("Pear.label", "梨", "pear"),
		},
		Options{},
	)

	require.Len(t, res.Orphans, 1)
	assert.Equal(t, "Pear.label", res.Orphans[0].Key)
	assert.Equal(t, 1, res.Stats.Orphaned)
}

// Every baseline translation is either left in place, carried as history,
// or reported as an orphan.
func TestMerge_NoTranslationLost(t *testing.T) {
	baseline := []unit.BaselineUnit{
		bu("A.label", "甲", "a"),
		bu("B.label", "乙", "b"),
		bu("C.label", "丙", "c"),
	}
	units := []unit.TranslationUnit{
		tu("ThingDef/A.label", "a"),
		tu("ThingDef/B.label", "b changed"),
		tu("ThingDef/D.label", "d"),
	}
	res := Merge(units, baseline, Options{})

	records := make(map[string]unit.MergeRecord)
	for _, r := range res.Records {
		records[r.Key] = r
	}
	orphans := make(map[string]bool)
	for _, o := range res.Orphans {
		orphans[o.Key] = true
	}

	for _, b := range baseline {
		r, hasRecord := records[b.Key]
		switch {
		case orphans[b.Key]:
		case !hasRecord:
		default:
			assert.Equal(t, b.Text, r.HistoryText, b.Key)
		}
	}
	assert.Equal(t, Stats{Input: 3, New: 1, Changed: 1, Unchanged: 1, Orphaned: 1}, res.Stats)
}

func TestMerge_SortedAndDeduplicated(t *testing.T) {
	res := Merge([]unit.TranslationUnit{
		tu("ThingDef/Pear.label", "pear"),
		tu("ThingDef/Apple.label", "apple"),
		tu("ThingDef/Apple.label", "green apple"),
	}, nil, Options{})

	require.Len(t, res.Records, 2)
	assert.Equal(t, "Apple.label", res.Records[0].Key)
	assert.Equal(t, "green apple", res.Records[0].CurrentText)
	assert.Equal(t, "Pear.label", res.Records[1].Key)
}

func TestMerge_ExplicitEnglishText(t *testing.T) {
	u := tu("Greeting", "你好")
	u.EnglishText = "Hello"
	res := Merge([]unit.TranslationUnit{u}, []unit.BaselineUnit{bu("Greeting", "嗨", "Hello")}, Options{})
	assert.Empty(t, res.Records)
}

func TestParseOrphanPolicy(t *testing.T) {
	for name, want := range map[string]OrphanPolicy{"": Retain, "retain": Retain, "FLAG": Flag, " prune ": Prune} {
		got, err := ParseOrphanPolicy(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseOrphanPolicy("delete")
	assert.True(t, errors.Is(err, ErrUnknownOrphanPolicy))
	assert.Equal(t, "flag", Flag.String())
}

func TestMerge_KeyFunction(t *testing.T) {
	// The baseline was written with element names that had invalid characters replaced.
	sanitise := func(k string) string {
		_, rest, _ := strings.Cut(k, "/")
		if rest == "" {
			rest = k
		}
		return strings.ReplaceAll(rest, "-", ".")
	}

	res := Merge(
		[]unit.TranslationUnit{tu("ThingDef/Gun-M4.label", "rifle"), tu("ThingDef/Gun-M4.description", "loud now")},
		[]unit.BaselineUnit{bu("Gun.M4.label", "步枪", "rifle"), bu("Gun.M4.description", "很响", "loud")},
		Options{Key: sanitise},
	)

	assert.Equal(t, Stats{Input: 2, Changed: 1, Unchanged: 1}, res.Stats)
	assert.Empty(t, res.Orphans)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "Gun.M4.description", res.Records[0].Key)
	assert.Equal(t, "很响", res.Records[0].HistoryText)
	assert.True(t, res.Records[0].Existing)
}
