package extract

import (
	"iter"
	"maps"
	"strconv"

	"mod-localizer/internal/classify"
	"mod-localizer/internal/doctree"

	"github.com/rs/zerolog/log"
)

// UniqueNameTag is the child element that identifies a definition root.
const UniqueNameTag = "defName"

// Candidate is a raw text node found under a definition, before classification.
type Candidate struct {
	// Path is the raw traversal path rooted at the definition tag, e.g. ThingDef.rulesStrings.0.
	Path string
	// Text is the trimmed node text.
	Text      string
	Tag       string
	ParentTag string
	ListItem  bool
	DefType   string
	DefName   string
}

type counterKey struct {
	parent string
	tag    string
}

// Counters hands out list-item indices per (parent path, tag). Recursion into a
// repeated sibling shares the same Counters; every other edge gets a Clone.
type Counters map[counterKey]int

// Next returns the next zero-based index for tag under parent.
func (c Counters) Next(parent, tag string) int {
	k := counterKey{parent: parent, tag: tag}
	i := c[k]
	c[k] = i + 1
	return i
}

// Clone returns an independent copy.
func (c Counters) Clone() Counters {
	if c == nil {
		return Counters{}
	}
	return maps.Clone(c)
}

// Walker finds definition roots in a document tree and yields their text nodes.
type Walker struct {
	rules      *classify.RuleSet
	uniqueName string
}

// NewWalker creates a Walker that uses rules to recognise repeated-sibling tags.
func NewWalker(rules *classify.RuleSet) *Walker {
	return &Walker{rules: rules, uniqueName: UniqueNameTag}
}

// IsDefinition reports whether n carries a non-empty unique-name child.
func (w *Walker) IsDefinition(n *doctree.Node) bool {
	name := n.Child(w.uniqueName)
	return name != nil && name.TrimmedText() != ""
}

// Walk returns a lazy, restartable sequence of candidates in document order.
// All traversal state lives inside a single iteration.
func (w *Walker) Walk(root *doctree.Node) iter.Seq[Candidate] {
	return func(yield func(Candidate) bool) {
		if root == nil {
			return
		}
		w.search(root, root, yield)
	}
}

// search looks for definition roots outside of any definition namespace.
func (w *Walker) search(n, docRoot *doctree.Node, yield func(Candidate) bool) bool {
	if w.IsDefinition(n) {
		return w.walkDefinition(n, yield)
	}
	for _, child := range n.Children {
		if n == docRoot && n.Tag == "Defs" && !w.IsDefinition(child) {
			log.Debug().Str("tag", child.Tag).Msg("Skipped definition without defName")
			continue
		}
		if !w.search(child, docRoot, yield) {
			return false
		}
	}
	return true
}

func (w *Walker) walkDefinition(def *doctree.Node, yield func(Candidate) bool) bool {
	d := defScope{
		defType: def.Tag,
		defName: def.Child(w.uniqueName).TrimmedText(),
	}
	return w.walkNode(d, def, "", "", false, Counters{}, yield)
}

type defScope struct {
	defType string
	defName string
}

func (w *Walker) walkNode(d defScope, n *doctree.Node, parentPath, parentTag string, listItem bool, counters Counters, yield func(Candidate) bool) bool {
	if n.Tag == w.uniqueName {
		return true
	}

	var path string
	if listItem {
		path = join(parentPath, strconv.Itoa(counters.Next(parentPath, n.Tag)))
	} else {
		path = join(parentPath, n.Tag)
	}

	if text := n.TrimmedText(); text != "" {
		c := Candidate{
			Path:      path,
			Text:      text,
			Tag:       n.Tag,
			ParentTag: parentTag,
			ListItem:  listItem,
			DefType:   d.defType,
			DefName:   d.defName,
		}
		if !yield(c) {
			return false
		}
	}

	for _, child := range n.Children {
		var ok bool
		switch {
		case w.IsDefinition(child):
			// A nested definition opens its own namespace.
			ok = w.walkDefinition(child, yield)
		case w.rules.Repeated(child.Tag):
			ok = w.walkNode(d, child, path, n.Tag, true, counters, yield)
		default:
			ok = w.walkNode(d, child, path, n.Tag, false, counters.Clone(), yield)
		}
		if !ok {
			return false
		}
	}
	return true
}

func join(parent, seg string) string {
	if parent == "" {
		return seg
	}
	return parent + "." + seg
}
