package langdata

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"mod-localizer/internal/classify"
	"mod-localizer/internal/layout"

	"github.com/beevik/etree"
	"github.com/rs/zerolog/log"
)

// RootTag is the document element of every language file.
const RootTag = "LanguageData"

// Annotation prefixes written as XML comments.
const (
	EnglishPrefix = "EN:"
	HistoryPrefix = "HISTORY:"
	OrphanPrefix  = "ORPHAN:"
)

// Writer serialises output groups into LanguageData documents.
type Writer struct {
	now func() time.Time
	// repeated reports list item tags, which flattened keys address by index.
	repeated func(tag string) bool
}

// NewWriter creates a Writer that stamps history annotations with the current
// date and resolves list items with the repeated tags of rules.
func NewWriter(rules *classify.RuleSet) *Writer {
	return &Writer{now: time.Now, repeated: rules.Repeated}
}

// WithClock returns a copy of w that uses now for history timestamps.
func (w *Writer) WithClock(now func() time.Time) *Writer {
	cp := *w
	cp.now = now
	return &cp
}

// Document builds a fresh document for g: each entry is preceded by its
// HISTORY annotation (if any) and its EN annotation.
func (w *Writer) Document(g layout.Group) *etree.Document {
	doc := newDocument()
	root := doc.CreateElement(RootTag)
	for _, e := range g.Entries {
		w.appendEntry(root, e)
	}
	doc.Indent(2)
	return doc
}

// WriteGroup writes g as a new document under dir, replacing any existing file.
func (w *Writer) WriteGroup(dir string, g layout.Group) error {
	out := filepath.Join(dir, filepath.FromSlash(g.Path))
	if err := save(w.Document(g), out); err != nil {
		return err
	}
	log.Info().Str("file", out).Int("entries", len(g.Entries)).Msg("Wrote language file")
	return nil
}

// MergeGroup folds g into the document at dir/g.Path. Existing elements get
// their text replaced, with the superseded text kept in a HISTORY annotation
// when the entry carries one; missing elements are appended. Keys of list
// items resolve into nested containers as well as flat elements. An
// unreadable document is recreated.
func (w *Writer) MergeGroup(dir string, g layout.Group) error {
	out := filepath.Join(dir, filepath.FromSlash(g.Path))
	doc, root := openOrCreate(out)

	for _, e := range g.Entries {
		el := w.lookup(root, e.Key)
		if el == nil {
			w.appendEntry(root, e)
			continue
		}
		parent := el.Parent()
		if el.Text() != e.Text && e.History != "" {
			parent.InsertChildAt(el.Index(), etree.NewComment(w.historyComment(e.History)))
		}
		setEnglish(parent, el, e.English)
		el.SetText(sanitizeText(e.Text))
	}

	doc.Indent(2)
	if err := save(doc, out); err != nil {
		return err
	}
	log.Info().Str("file", out).Int("entries", len(g.Entries)).Msg("Merged language file")
	return nil
}

func (w *Writer) appendEntry(root *etree.Element, e layout.Entry) {
	if strings.TrimSpace(e.History) != "" {
		root.CreateComment(w.historyComment(e.History))
	}
	if e.English != "" {
		root.CreateComment(annotation(EnglishPrefix, e.English))
	}
	root.CreateElement(e.Key).SetText(sanitizeText(e.Text))
}

func (w *Writer) historyComment(previous string) string {
	return annotation(HistoryPrefix, fmt.Sprintf("previous translation: %s | replaced %s, review needed",
		previous, w.now().Format(time.DateOnly)))
}

// lookup finds the leaf element a flattened key names: a direct child of
// root, or an element nested under a container through container.tag and
// container.N segments, N counting the repeated tag within its parent.
func (w *Writer) lookup(root *etree.Element, key string) *etree.Element {
	if el := root.SelectElement(key); el != nil {
		return el
	}
	for _, c := range root.ChildElements() {
		rest, ok := strings.CutPrefix(key, c.Tag+".")
		if !ok {
			continue
		}
		if el := w.descend(c, strings.Split(rest, ".")); el != nil {
			return el
		}
	}
	return nil
}

func (w *Writer) descend(el *etree.Element, segs []string) *etree.Element {
	children := el.ChildElements()
	if len(segs) == 0 {
		if len(children) == 0 {
			return el
		}
		return nil
	}

	n, err := strconv.Atoi(segs[0])
	if err != nil {
		if c := el.SelectElement(segs[0]); c != nil {
			return w.descend(c, segs[1:])
		}
		return nil
	}
	seen := make(map[string]int)
	for _, c := range children {
		if !w.repeated(c.Tag) {
			continue
		}
		if seen[c.Tag] == n {
			return w.descend(c, segs[1:])
		}
		seen[c.Tag]++
	}
	return nil
}

// setEnglish rewrites the EN annotation in front of el, or inserts one.
func setEnglish(parent, el *etree.Element, english string) {
	if english == "" {
		return
	}
	for _, c := range leadingComments(parent, el) {
		if strings.HasPrefix(strings.TrimSpace(c.Data), EnglishPrefix) {
			c.Data = annotation(EnglishPrefix, english)
			return
		}
	}
	parent.InsertChildAt(el.Index(), etree.NewComment(annotation(EnglishPrefix, english)))
}

// leadingComments returns the comments between el and the previous element.
func leadingComments(parent, el *etree.Element) []*etree.Comment {
	var out []*etree.Comment
	for i := el.Index() - 1; i >= 0; i-- {
		switch t := parent.Child[i].(type) {
		case *etree.Comment:
			out = append(out, t)
		case *etree.CharData:
			continue
		default:
			return out
		}
	}
	return out
}

func newDocument() *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="utf-8"`)
	return doc
}

func openOrCreate(path string) (*etree.Document, *etree.Element) {
	if _, err := os.Stat(path); err == nil {
		doc := etree.NewDocument()
		if err := doc.ReadFromFile(path); err == nil && doc.Root() != nil {
			return doc, doc.Root()
		}
		log.Warn().Str("file", path).Msg("Existing language file unreadable, recreating")
	}
	doc := newDocument()
	return doc, doc.CreateElement(RootTag)
}

func save(doc *etree.Document, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := doc.WriteToFile(path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func annotation(prefix, text string) string {
	return " " + prefix + " " + sanitizeComment(text) + " "
}

var invalidXMLChars = regexp.MustCompile(`[^\x{9}\x{A}\x{D}\x{20}-\x{D7FF}\x{E000}-\x{FFFD}\x{10000}-\x{10FFFF}]`)

func sanitizeText(s string) string {
	return invalidXMLChars.ReplaceAllString(s, "")
}

// sanitizeComment makes s legal inside <!-- -->: no "--" and no trailing "-".
func sanitizeComment(s string) string {
	s = sanitizeText(s)
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	return strings.TrimSuffix(s, "-")
}
