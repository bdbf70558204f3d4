package extract

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"mod-localizer/internal/classify"
	"mod-localizer/internal/doctree"
	"mod-localizer/internal/filewalker"
	"mod-localizer/internal/keypath"
	"mod-localizer/internal/unit"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog/log"
)

// EnglishPrefix marks the comment that carries the English source text.
const EnglishPrefix = "EN:"

// entry is one keyed element of a LanguageData document.
type entry struct {
	key     string
	text    string
	tag     string
	english string
}

// languageEntries flattens a LanguageData document. Nested list elements are
// keyed by their container plus a zero-based index.
func (e *Extractor) languageEntries(root *doctree.Node) []entry {
	var out []entry
	for _, child := range root.Children {
		out = e.appendEntries(out, child, child.Tag, englishOf(child.Comments), Counters{})
	}
	return out
}

func (e *Extractor) appendEntries(out []entry, n *doctree.Node, key, english string, counters Counters) []entry {
	if len(n.Children) == 0 {
		return append(out, entry{key: key, text: n.TrimmedText(), tag: n.Tag, english: english})
	}
	for _, child := range n.Children {
		childKey := key + "." + child.Tag
		if e.walker.rules.Repeated(child.Tag) {
			childKey = key + "." + strconv.Itoa(counters.Next(key, child.Tag))
		}
		childEnglish := englishOf(child.Comments)
		if childEnglish == "" {
			childEnglish = english
		}
		out = e.appendEntries(out, child, childKey, childEnglish, counters.Clone())
	}
	return out
}

// englishOf returns the text of the last EN: comment immediately preceding an element.
func englishOf(comments []string) string {
	for i := len(comments) - 1; i >= 0; i-- {
		if rest, ok := strings.CutPrefix(comments[i], EnglishPrefix); ok {
			return strings.TrimSpace(rest)
		}
	}
	return ""
}

// Keyed extracts a Keyed text bundle. Keys are the element tags and no
// allow-list applies.
func (e *Extractor) Keyed(root *doctree.Node, relPath string) []unit.TranslationUnit {
	var units []unit.TranslationUnit
	for _, en := range e.languageEntries(root) {
		ctx := classify.Context{Path: en.key, Tag: en.tag, Mode: classify.Bundle}
		if !e.classifier.IsTranslatable(en.text, ctx) {
			continue
		}
		units = append(units, unit.TranslationUnit{
			Key:         en.key,
			Text:        en.text,
			Tag:         en.tag,
			SourceFile:  relPath,
			EnglishText: en.text,
			Kind:        unit.Keyed,
		})
	}
	return units
}

// Injected reads a source-language DefInjected document. The DefType comes from
// the first directory of relPath, as laid out under DefInjected/<DefType>/.
func (e *Extractor) Injected(root *doctree.Node, relPath string) []unit.TranslationUnit {
	defType := defTypeFromPath(relPath)
	var units []unit.TranslationUnit
	for _, en := range e.languageEntries(root) {
		if en.text == "" {
			continue
		}
		units = append(units, unit.TranslationUnit{
			Key:         defType + "/" + en.key,
			Text:        en.text,
			Tag:         keypath.FieldName(en.key),
			SourceFile:  relPath,
			DefType:     defType,
			EnglishText: en.text,
			Kind:        unit.DefInjected,
		})
	}
	return units
}

// Baseline reads a previously exported target-language document. The English
// text of each unit is taken from its EN: annotation.
func (e *Extractor) Baseline(root *doctree.Node, relPath string, kind unit.Kind) []unit.BaselineUnit {
	var units []unit.BaselineUnit
	for _, en := range e.languageEntries(root) {
		units = append(units, unit.BaselineUnit{
			Key:          en.key,
			Text:         en.text,
			Tag:          en.tag,
			RelativePath: relPath,
			EnglishText:  en.english,
			Kind:         kind,
		})
	}
	return units
}

// BaselineDir reads every document under dir. Unreadable documents contribute
// no units, so their keys look brand new to the merge.
func (e *Extractor) BaselineDir(ctx context.Context, dir string, kind unit.Kind) ([]unit.BaselineUnit, error) {
	files, err := filewalker.XMLFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("list baseline documents: %w", err)
	}

	var (
		units []unit.BaselineUnit
		errs  *multierror.Error
	)
	for _, p := range files {
		if err := ctx.Err(); err != nil {
			return units, err
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			rel = filepath.Base(p)
		}
		rel = filepath.ToSlash(rel)

		root, err := doctree.ParseFile(p)
		if err != nil {
			log.Warn().Err(err).Str("file", rel).Msg("Baseline unreadable, treating its units as new")
			errs = multierror.Append(errs, err)
			continue
		}
		units = append(units, e.Baseline(root, rel, kind)...)
	}
	return units, errs.ErrorOrNil()
}

func defTypeFromPath(relPath string) string {
	dir := path.Dir(filepath.ToSlash(relPath))
	if dir == "." || dir == "" {
		return keypath.UnknownDefType
	}
	first, _, _ := strings.Cut(dir, "/")
	// Older packs use plural directory names such as ThingDefs/.
	if strings.HasSuffix(first, "Defs") {
		first = strings.TrimSuffix(first, "s")
	}
	return first
}
