package merge

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"mod-localizer/internal/keypath"
	"mod-localizer/internal/unit"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/unicode/norm"
)

// ErrUnknownOrphanPolicy is returned by ParseOrphanPolicy for unrecognised names.
var ErrUnknownOrphanPolicy = errors.New("unknown orphan policy")

// OrphanPolicy decides what happens to baseline keys no longer produced by extraction.
type OrphanPolicy int

const (
	// Retain leaves orphaned translations untouched.
	Retain OrphanPolicy = iota
	// Flag keeps them but marks them for manual review.
	Flag
	// Prune removes them from the written output.
	Prune
)

// ParseOrphanPolicy maps a config value onto an OrphanPolicy.
func ParseOrphanPolicy(name string) (OrphanPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "retain":
		return Retain, nil
	case "flag":
		return Flag, nil
	case "prune":
		return Prune, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownOrphanPolicy, name)
}

func (p OrphanPolicy) String() string {
	switch p {
	case Flag:
		return "flag"
	case Prune:
		return "prune"
	default:
		return "retain"
	}
}

// Options tunes a merge.
type Options struct {
	// IncludeUnchanged emits unchanged keys carrying the existing translation.
	IncludeUnchanged bool
	// Key maps raw keys from both sides onto the key the output documents
	// use. Defaults to keypath.Canonical.
	Key func(string) string
}

// Stats counts merge outcomes.
type Stats struct {
	Input     int
	New       int
	Changed   int
	Unchanged int
	Orphaned  int
}

// Result is the output of a merge.
type Result struct {
	// Records are ordered by key.
	Records []unit.MergeRecord
	// Orphans are baseline units whose keys the new extraction no longer produces.
	Orphans []unit.BaselineUnit
	Stats   Stats
}

// Merge reconciles freshly extracted units against a baseline. Keys on both
// sides go through opts.Key, so a baseline written with sanitised element
// names still matches the raw extracted keys. A translation in the
// baseline is never dropped: it is either left alone (no record) or carried
// into the record's HistoryText.
func Merge(newUnits []unit.TranslationUnit, baseline []unit.BaselineUnit, opts Options) Result {
	keyOf := opts.Key
	if keyOf == nil {
		keyOf = keypath.Canonical
	}

	baseMap := make(map[string]unit.BaselineUnit, len(baseline))
	for _, b := range baseline {
		baseMap[keyOf(b.Key)] = b
	}

	newMap := make(map[string]unit.TranslationUnit, len(newUnits))
	for _, u := range newUnits {
		k := keyOf(u.Key)
		if _, dup := newMap[k]; dup {
			log.Warn().Str("key", k).Str("file", u.SourceFile).Msg("Duplicate key in extraction, last one wins")
		}
		newMap[k] = u
	}

	res := Result{Stats: Stats{Input: len(newUnits)}}
	for k, u := range newMap {
		base, ok := baseMap[k]
		rec := unit.MergeRecord{
			Key:                 k,
			CurrentText:         u.Text,
			Tag:                 u.Tag,
			RelativePath:        u.SourceFile,
			BaselineEnglishText: u.English(),
			DefType:             u.DefType,
			Kind:                u.Kind,
		}

		switch {
		case !ok:
			res.Stats.New++
		case sameText(u.English(), base.EnglishText):
			res.Stats.Unchanged++
			if !opts.IncludeUnchanged {
				continue
			}
			rec.CurrentText = base.Text
			rec.RelativePath = base.RelativePath
			rec.Existing = true
		default:
			res.Stats.Changed++
			rec.HistoryText = base.Text
			rec.RelativePath = base.RelativePath
			rec.Existing = true
		}
		res.Records = append(res.Records, rec)
	}

	for k, b := range baseMap {
		if _, ok := newMap[k]; !ok {
			res.Orphans = append(res.Orphans, b)
		}
	}
	res.Stats.Orphaned = len(res.Orphans)

	slices.SortFunc(res.Records, func(a, b unit.MergeRecord) int { return strings.Compare(a.Key, b.Key) })
	slices.SortFunc(res.Orphans, func(a, b unit.BaselineUnit) int { return strings.Compare(a.Key, b.Key) })

	log.Info().
		Int("input", res.Stats.Input).
		Int("new", res.Stats.New).
		Int("changed", res.Stats.Changed).
		Int("unchanged", res.Stats.Unchanged).
		Int("orphaned", res.Stats.Orphaned).
		Msg("Merge complete")

	return res
}

// sameText compares English texts after trimming and NFC normalisation.
func sameText(a, b string) bool {
	return norm.NFC.String(strings.TrimSpace(a)) == norm.NFC.String(strings.TrimSpace(b))
}
