package extract

import (
	"context"
	"fmt"
	"path/filepath"

	"mod-localizer/internal/classify"
	"mod-localizer/internal/doctree"
	"mod-localizer/internal/filewalker"
	"mod-localizer/internal/keypath"
	"mod-localizer/internal/unit"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog/log"
)

// Source selects which kind of document tree an extraction reads.
type Source int

const (
	// SourceDefs walks definition documents under Defs/.
	SourceDefs Source = iota
	// SourceDefInjected reads an existing source-language DefInjected tree.
	SourceDefInjected
	// SourceKeyed reads a Keyed text bundle tree.
	SourceKeyed
)

// ParseSource maps a CLI/config name onto a primary Source. Keyed bundles
// are always an additional source, never the primary one.
func ParseSource(name string) (Source, error) {
	switch name {
	case "defs", "":
		return SourceDefs, nil
	case "definjected":
		return SourceDefInjected, nil
	}
	return 0, fmt.Errorf("unknown extraction source %q", name)
}

// Extractor turns parsed documents into classified translation units.
type Extractor struct {
	walker     *Walker
	classifier *classify.Classifier
}

// New creates an Extractor bound to one classifier and its rule set.
func New(c *classify.Classifier) *Extractor {
	return &Extractor{
		walker:     NewWalker(c.Rules()),
		classifier: c,
	}
}

// Definitions extracts accepted units from one definition document.
func (e *Extractor) Definitions(root *doctree.Node, relPath string) []unit.TranslationUnit {
	var units []unit.TranslationUnit
	for c := range e.walker.Walk(root) {
		ctx := classify.Context{
			Path:      c.Path,
			Tag:       c.Tag,
			ParentTag: c.ParentTag,
			ListItem:  c.ListItem,
			Mode:      classify.Definition,
		}
		if !e.classifier.IsTranslatable(c.Text, ctx) {
			continue
		}
		units = append(units, unit.TranslationUnit{
			Key:         keypath.Full(c.DefType, c.DefName, c.Path),
			Text:        c.Text,
			Tag:         c.Tag,
			SourceFile:  relPath,
			DefType:     c.DefType,
			EnglishText: c.Text,
			Kind:        unit.DefInjected,
		})
	}
	return units
}

// Document dispatches a parsed document to the extractor for src.
func (e *Extractor) Document(root *doctree.Node, relPath string, src Source) []unit.TranslationUnit {
	switch src {
	case SourceDefInjected:
		return e.Injected(root, relPath)
	case SourceKeyed:
		return e.Keyed(root, relPath)
	default:
		return e.Definitions(root, relPath)
	}
}

// Dir extracts every XML document under dir. A document that fails to parse is
// logged and skipped; the returned error aggregates those failures while the
// units from every readable document are still returned. Cancellation is
// checked between documents.
func (e *Extractor) Dir(ctx context.Context, dir string, src Source) ([]unit.TranslationUnit, error) {
	files, err := filewalker.XMLFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	var (
		units []unit.TranslationUnit
		errs  *multierror.Error
	)
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return units, err
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			rel = filepath.Base(path)
		}
		rel = filepath.ToSlash(rel)

		root, err := doctree.ParseFile(path)
		if err != nil {
			log.Error().Err(err).Str("file", rel).Msg("Skipping unparseable document")
			errs = multierror.Append(errs, err)
			continue
		}

		found := e.Document(root, rel, src)
		log.Debug().Str("file", rel).Int("units", len(found)).Msg("Extracted document")
		units = append(units, found...)
	}

	return units, errs.ErrorOrNil()
}
