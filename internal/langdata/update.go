package langdata

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"mod-localizer/internal/filewalker"
	"mod-localizer/internal/merge"
	"mod-localizer/internal/unit"

	"github.com/beevik/etree"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// ApplyOrphans applies policy to orphaned baseline units found under dir, the
// language subtree the baseline was read from. It returns how many elements
// were flagged or pruned. A container left without items by pruning is
// removed as well.
func (w *Writer) ApplyOrphans(dir string, orphans []unit.BaselineUnit, policy merge.OrphanPolicy) (int, error) {
	if policy == merge.Retain || len(orphans) == 0 {
		return 0, nil
	}

	var (
		touched int
		errs    *multierror.Error
	)
	for rel, units := range lo.GroupBy(orphans, func(b unit.BaselineUnit) string { return b.RelativePath }) {
		file := filepath.Join(dir, filepath.FromSlash(rel))
		doc := etree.NewDocument()
		if err := doc.ReadFromFile(file); err != nil || doc.Root() == nil {
			log.Warn().Str("file", file).Msg("Cannot open baseline document for orphan handling")
			errs = multierror.Append(errs, fmt.Errorf("open %s: %w", file, err))
			continue
		}
		root := doc.Root()

		// Resolve every key before changing the tree, so pruning one list
		// item does not shift the index of the next.
		var targets []*etree.Element
		for _, b := range units {
			el := w.lookup(root, b.Key)
			if el == nil {
				log.Debug().Str("key", b.Key).Msg("Orphan not found in document")
				continue
			}
			targets = append(targets, el)
		}

		for _, el := range targets {
			parent := el.Parent()
			switch policy {
			case merge.Flag:
				if flagged(parent, el) {
					continue
				}
				parent.InsertChildAt(el.Index(), etree.NewComment(annotation(OrphanPrefix, "no longer present in source definitions")))
			case merge.Prune:
				remove(parent, el)
				if parent != root && len(parent.ChildElements()) == 0 {
					remove(parent.Parent(), parent)
				}
			}
		}
		if len(targets) == 0 {
			continue
		}

		doc.Indent(2)
		if err := save(doc, file); err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		touched += len(targets)
		log.Info().Str("file", file).Int("orphans", len(targets)).Str("policy", policy.String()).Msg("Handled orphaned translations")
	}
	return touched, errs.ErrorOrNil()
}

// remove drops el and the annotations in front of it.
func remove(parent, el *etree.Element) {
	for _, c := range leadingComments(parent, el) {
		parent.RemoveChild(c)
	}
	parent.RemoveChild(el)
}

func flagged(root, el *etree.Element) bool {
	return lo.ContainsBy(leadingComments(root, el), func(c *etree.Comment) bool {
		return strings.HasPrefix(strings.TrimSpace(c.Data), OrphanPrefix)
	})
}

// Apply writes translations into every LanguageData document under dir.
// Keys follow the extraction scheme: top-level tags, container.tag for
// nested elements and container.N for list items. It returns the number of
// elements whose text changed.
func (w *Writer) Apply(dir string, translations map[string]string) (int, error) {
	files, err := filewalker.XMLFiles(dir)
	if err != nil {
		return 0, fmt.Errorf("list language documents: %w", err)
	}

	var (
		updated int
		errs    *multierror.Error
	)
	for _, file := range files {
		doc := etree.NewDocument()
		if err := doc.ReadFromFile(file); err != nil || doc.Root() == nil {
			log.Warn().Str("file", file).Msg("Skipping unreadable language document")
			errs = multierror.Append(errs, fmt.Errorf("open %s: %w", file, err))
			continue
		}

		n := 0
		for _, el := range doc.Root().ChildElements() {
			n += w.applyElement(el, el.Tag, translations)
		}
		if n == 0 {
			continue
		}

		doc.Indent(2)
		if err := save(doc, file); err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		updated += n
		log.Debug().Str("file", file).Int("updated", n).Msg("Applied translations")
	}
	return updated, errs.ErrorOrNil()
}

func (w *Writer) applyElement(el *etree.Element, key string, translations map[string]string) int {
	children := el.ChildElements()
	if len(children) == 0 {
		text, ok := translations[key]
		if !ok || text == "" || text == strings.TrimSpace(el.Text()) {
			return 0
		}
		el.SetText(sanitizeText(text))
		return 1
	}

	n := 0
	seen := make(map[string]int)
	for _, c := range children {
		childKey := key + "." + c.Tag
		if w.repeated(c.Tag) {
			childKey = key + "." + strconv.Itoa(seen[c.Tag])
			seen[c.Tag]++
		}
		n += w.applyElement(c, childKey, translations)
	}
	return n
}
