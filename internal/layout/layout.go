package layout

import (
	"errors"
	"fmt"
	"path"
	"slices"
	"strings"

	"mod-localizer/internal/keypath"
	"mod-localizer/internal/unit"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// ErrUnknownStrategy is returned by ParseStrategy for unrecognised names.
var ErrUnknownStrategy = errors.New("unknown output layout")

// Strategy selects how entries are partitioned into output documents.
type Strategy int

const (
	// Original groups by the source-relative file path of a reference translation tree.
	Original Strategy = iota
	// ByDirectory mirrors the Defs file layout one-to-one.
	ByDirectory
	// ByType writes one document per DefType.
	ByType
)

// ParseStrategy maps a config value onto a Strategy.
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "original", "original_structure":
		return Original, nil
	case "by-directory", "defs_by_file_structure":
		return ByDirectory, nil
	case "by-type", "defs_by_type", "":
		return ByType, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
}

func (s Strategy) String() string {
	switch s {
	case Original:
		return "original"
	case ByDirectory:
		return "by-directory"
	default:
		return "by-type"
	}
}

// Entry is one unit or merge record ready for serialisation.
type Entry struct {
	// Key is the canonical key or, for DefInjected entries still carrying it, DefType/key.
	Key string
	// Text is the element content to write.
	Text string
	Tag  string
	// File is the source-relative document path.
	File    string
	DefType string
	// English is written as the EN: annotation.
	English string
	// History, when set, is written as a HISTORY: annotation.
	History string
	// Pinned forces the entry into an existing document regardless of strategy.
	Pinned string
}

// Group is one output document.
type Group struct {
	// Name is the grouping key.
	Name string
	// Path is the document path relative to the language subtree.
	Path string
	// Entries are ordered by key and carry unique keys.
	Entries []Entry
	// Collisions counts entries overwritten by a later one with the same key.
	Collisions int
}

// FromUnits converts extracted units.
func FromUnits(units []unit.TranslationUnit) []Entry {
	return lo.Map(units, func(u unit.TranslationUnit, _ int) Entry {
		return Entry{
			Key:     u.Key,
			Text:    u.Text,
			Tag:     u.Tag,
			File:    u.SourceFile,
			DefType: u.DefType,
			English: u.English(),
		}
	})
}

// FromRecords converts merge records. Records that already exist in the
// baseline are pinned to the baseline document.
func FromRecords(records []unit.MergeRecord) []Entry {
	return lo.Map(records, func(r unit.MergeRecord, _ int) Entry {
		e := Entry{
			Key:     r.Key,
			Text:    r.CurrentText,
			Tag:     r.Tag,
			File:    r.RelativePath,
			DefType: r.DefType,
			English: r.BaselineEnglishText,
			History: r.HistoryText,
		}
		if r.Existing {
			e.Pinned = r.RelativePath
		}
		return e
	})
}

// Partition splits entries into groups under s. Every entry lands in exactly
// one group; groups and their entries are sorted so repeated runs produce
// identical output. Within a group a repeated key keeps the last entry.
func Partition(entries []Entry, s Strategy) []Group {
	byPath := lo.GroupBy(entries, func(e Entry) string { return documentPath(groupName(e, s), s) })

	paths := lo.Keys(byPath)
	slices.Sort(paths)

	keyOf := KeyFunc(s)
	groups := make([]Group, 0, len(paths))
	for _, p := range paths {
		members := byPath[p]
		named := lo.FindOrElse(members, members[0], func(e Entry) bool { return e.Pinned == "" })
		g := Group{Name: groupName(named, s), Path: p}

		index := make(map[string]int)
		for _, e := range members {
			e.Key = keyOf(e.Key)
			if i, dup := index[e.Key]; dup {
				log.Warn().Str("group", g.Name).Str("key", e.Key).Msg("Key collision, last entry wins")
				g.Entries[i] = e
				g.Collisions++
				continue
			}
			index[e.Key] = len(g.Entries)
			g.Entries = append(g.Entries, e)
		}
		slices.SortFunc(g.Entries, func(a, b Entry) int { return strings.Compare(a.Key, b.Key) })
		groups = append(groups, g)
	}
	return groups
}

func groupName(e Entry, s Strategy) string {
	if e.Pinned != "" {
		return e.Pinned
	}
	switch s {
	case ByType:
		if e.DefType != "" {
			return e.DefType
		}
		defType, _ := keypath.Split(e.Key)
		return defType
	default:
		return e.File
	}
}

// documentPath maps a group name onto a file below the language subtree.
func documentPath(name string, s Strategy) string {
	if s == ByType && path.Ext(name) == "" {
		return path.Join(name, name+".xml")
	}
	return name
}

// KeyFunc returns the mapping from a raw unit key to the element name s
// writes. The DefType/ prefix is always dropped; ByDirectory output also
// sanitises keys into valid element names.
func KeyFunc(s Strategy) func(string) string {
	if s == ByDirectory {
		return keypath.SanitizeTag
	}
	return keypath.Canonical
}
