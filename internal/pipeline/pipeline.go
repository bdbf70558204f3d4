package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"mod-localizer/internal/extract"
	"mod-localizer/internal/filewalker"
	"mod-localizer/internal/langdata"
	"mod-localizer/internal/layout"
	"mod-localizer/internal/merge"
	"mod-localizer/internal/rows"
	"mod-localizer/internal/unit"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog/log"
)

// Options configures every run of a Runner.
type Options struct {
	Source extract.Source
	Layout layout.Strategy
	// Keyed also processes Languages/<SourceLanguage>/Keyed.
	Keyed            bool
	SourceLanguage   string
	Orphans          merge.OrphanPolicy
	IncludeUnchanged bool
}

// Recorder persists merge outcomes. *store.Store satisfies it.
type Recorder interface {
	SaveBaseline(ctx context.Context, mod string, kind unit.Kind, units []unit.BaselineUnit) error
	RecordMerge(ctx context.Context, mod string, res merge.Result) (uuid.UUID, error)
}

// Runner drives extraction, merge and import for one mod at a time.
type Runner struct {
	extractor *extract.Extractor
	writer    *langdata.Writer
	opts      Options
	recorder  Recorder
}

// New creates a Runner.
func New(ex *extract.Extractor, w *langdata.Writer, opts Options) *Runner {
	return &Runner{extractor: ex, writer: w, opts: opts}
}

// WithRecorder returns a copy of r that records merges to rec.
func (r *Runner) WithRecorder(rec Recorder) *Runner {
	cp := *r
	cp.recorder = rec
	return &cp
}

// Extraction is the output of one extraction pass over a mod.
type Extraction struct {
	Mod      filewalker.Mod
	Injected []unit.TranslationUnit
	Keyed    []unit.TranslationUnit
	// Failed counts documents that could not be parsed.
	Failed int
}

// All returns every unit, DefInjected first.
func (x Extraction) All() []unit.TranslationUnit {
	out := make([]unit.TranslationUnit, 0, len(x.Injected)+len(x.Keyed))
	out = append(out, x.Injected...)
	return append(out, x.Keyed...)
}

// Units returns the units of one kind.
func (x Extraction) Units(kind unit.Kind) []unit.TranslationUnit {
	if kind == unit.Keyed {
		return x.Keyed
	}
	return x.Injected
}

// Extract reads the mod's configured sources.
func (r *Runner) Extract(ctx context.Context, mod filewalker.Mod) (Extraction, error) {
	x := Extraction{Mod: mod}

	var dir string
	switch r.opts.Source {
	case extract.SourceDefInjected:
		dir = mod.KindDir(r.opts.SourceLanguage, unit.DefInjected)
	default:
		dir = mod.DefsDir()
	}

	units, err := r.extractor.Dir(ctx, dir, r.opts.Source)
	if x.Failed, err = documentFailures(err); err != nil {
		return x, fmt.Errorf("extract %s: %w", mod.Name, err)
	}
	x.Injected = units

	if r.opts.Keyed {
		keyed, err := r.extractor.Dir(ctx, mod.KindDir(r.opts.SourceLanguage, unit.Keyed), extract.SourceKeyed)
		failed, err := documentFailures(err)
		if err != nil {
			return x, fmt.Errorf("extract %s keyed: %w", mod.Name, err)
		}
		x.Keyed = keyed
		x.Failed += failed
	}

	log.Info().
		Str("mod", mod.Name).
		Int("definjected", len(x.Injected)).
		Int("keyed", len(x.Keyed)).
		Int("failed_documents", x.Failed).
		Msg("Extraction complete")
	return x, nil
}

// documentFailures separates per-document failures, which are counted, from
// errors that abort the run.
func documentFailures(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	var merr *multierror.Error
	if errors.As(err, &merr) {
		return len(merr.Errors), nil
	}
	return 0, err
}

// Write serialises x into fresh documents under langDir/DefInjected and
// langDir/Keyed. Existing files at the same paths are replaced.
func (r *Runner) Write(langDir string, x Extraction) (int, error) {
	var (
		written int
		errs    *multierror.Error
	)
	for _, kind := range []unit.Kind{unit.DefInjected, unit.Keyed} {
		units := x.Units(kind)
		if len(units) == 0 {
			continue
		}
		dir := filepath.Join(langDir, kind.SubDir())
		for _, g := range layout.Partition(layout.FromUnits(units), r.strategy(kind)) {
			if err := r.writer.WriteGroup(dir, g); err != nil {
				errs = multierror.Append(errs, err)
				continue
			}
			written++
		}
	}
	return written, errs.ErrorOrNil()
}

// Export writes every extracted unit to a row interchange file.
func (r *Runner) Export(path string, x Extraction) error {
	return rows.WriteFile(path, rows.FromUnits(x.All()))
}

// strategy picks the layout for kind. Keyed bundles always keep their file layout.
func (r *Runner) strategy(kind unit.Kind) layout.Strategy {
	if kind == unit.Keyed {
		return layout.Original
	}
	return r.opts.Layout
}
