package pipeline

import (
	"fmt"
	"path/filepath"
	"strings"

	"mod-localizer/internal/layout"
	"mod-localizer/internal/placeholder"
	"mod-localizer/internal/rows"
	"mod-localizer/internal/unit"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog/log"
)

// ImportReport summarises an import.
type ImportReport struct {
	Rows    int
	Updated int
	// PlaceholderWarnings counts rows whose translation dropped a placeholder.
	PlaceholderWarnings int
}

// Import applies the translations of a row interchange file to the
// language tree at langDir. Row keys are mapped onto element names with the
// same layout rules Write uses.
func (r *Runner) Import(path, langDir string) (ImportReport, error) {
	rs, err := rows.ReadFile(path)
	if err != nil {
		return ImportReport{}, fmt.Errorf("import %s: %w", path, err)
	}
	report := ImportReport{Rows: len(rs)}

	for _, row := range rs {
		if row.Translated == "" {
			continue
		}
		if missing := placeholder.Missing(row.Text, row.Translated); len(missing) > 0 {
			report.PlaceholderWarnings++
			log.Warn().Str("key", row.Key).Str("missing", strings.Join(missing, " ")).Msg("Translation drops placeholders")
		}
	}

	var errs *multierror.Error
	for _, kind := range []unit.Kind{unit.DefInjected, unit.Keyed} {
		translations := rows.Translations(rs, kind, layout.KeyFunc(r.strategy(kind)))
		if len(translations) == 0 {
			continue
		}
		n, err := r.writer.Apply(filepath.Join(langDir, kind.SubDir()), translations)
		if err != nil {
			errs = multierror.Append(errs, err)
		}
		report.Updated += n
	}

	log.Info().
		Int("rows", report.Rows).
		Int("updated", report.Updated).
		Int("placeholder_warnings", report.PlaceholderWarnings).
		Msg("Import complete")
	return report, errs.ErrorOrNil()
}
