package rows

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"mod-localizer/internal/keypath"
	"mod-localizer/internal/unit"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// ErrMissingColumn is returned when an imported file lacks a required column.
var ErrMissingColumn = errors.New("missing required column")

// Column names of the interchange format.
const (
	ColKey        = "key"
	ColText       = "text"
	ColTranslated = "translated"
	ColTag        = "tag"
	ColFile       = "file"
)

var exportHeader = []string{ColKey, ColText, ColTag, ColFile}

// Row is one line of the interchange format.
type Row struct {
	Key        string
	Text       string
	Translated string
	Tag        string
	File       string
}

// Value is the text to import: Translated when present, Text otherwise.
func (r Row) Value() string {
	if r.Translated != "" {
		return r.Translated
	}
	return r.Text
}

// Kind infers the language subtree from the key shape. DefInjected keys
// carry a DefType/ prefix or a dotted field path; Keyed keys are bare tags.
func (r Row) Kind() unit.Kind {
	if strings.Contains(r.Key, "/") || strings.Contains(r.Key, ".") {
		return unit.DefInjected
	}
	return unit.Keyed
}

// FromUnits converts units to rows, keys unchanged.
func FromUnits(units []unit.TranslationUnit) []Row {
	return lo.Map(units, func(u unit.TranslationUnit, _ int) Row {
		return Row{Key: u.Key, Text: u.Text, Tag: u.Tag, File: u.SourceFile}
	})
}

// Write emits rows as key,text,tag,file with a header line.
func Write(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write([]string{r.Key, r.Text, r.Tag, r.File}); err != nil {
			return fmt.Errorf("write row %s: %w", r.Key, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes rows to path, creating parent directories.
func WriteFile(path string, rows []Row) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer f.Close()

	if err := Write(f, rows); err != nil {
		return err
	}
	log.Info().Str("file", path).Int("rows", len(rows)).Msg("Exported rows")
	return nil
}

// Read parses an interchange file. Columns are located by header name, so
// any order and extra columns are accepted; key and text are required.
// Rows with an empty key are skipped.
func Read(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty file", ErrMissingColumn)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, req := range []string{ColKey, ColText} {
		if _, ok := cols[req]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, req)
		}
	}

	field := func(rec []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var out []Row
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return out, fmt.Errorf("read row: %w", err)
		}
		row := Row{
			Key:        field(rec, ColKey),
			Text:       field(rec, ColText),
			Translated: field(rec, ColTranslated),
			Tag:        field(rec, ColTag),
			File:       field(rec, ColFile),
		}
		if row.Key == "" {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

// ReadFile opens and parses path.
func ReadFile(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open import file: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Translations builds the key → value map for one language subtree. Keys go
// through keyOf, keypath.Canonical when nil, so DefType/defName.field matches
// the element the layout wrote.
func Translations(rows []Row, kind unit.Kind, keyOf func(string) string) map[string]string {
	if keyOf == nil {
		keyOf = keypath.Canonical
	}
	out := make(map[string]string)
	for _, r := range rows {
		if r.Kind() != kind || r.Value() == "" {
			continue
		}
		out[keyOf(r.Key)] = r.Value()
	}
	return out
}
