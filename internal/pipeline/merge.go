package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"mod-localizer/internal/filewalker"
	"mod-localizer/internal/layout"
	"mod-localizer/internal/merge"
	"mod-localizer/internal/unit"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog/log"
)

// KindReport summarises the merge of one language subtree.
type KindReport struct {
	Kind     unit.Kind
	Stats    merge.Stats
	Files    int
	Orphaned int
	RunID    uuid.UUID
}

// MergeReport summarises a merge run over one mod.
type MergeReport struct {
	Mod   string
	Kinds []KindReport
}

// Merge extracts mod and folds the result into the existing translation
// tree at langDir. Superseded translations are kept as HISTORY annotations;
// orphaned ones are handled per the configured policy.
func (r *Runner) Merge(ctx context.Context, mod filewalker.Mod, langDir string) (MergeReport, error) {
	report := MergeReport{Mod: mod.Name}

	x, err := r.Extract(ctx, mod)
	if err != nil {
		return report, err
	}

	kinds := []unit.Kind{unit.DefInjected}
	if r.opts.Keyed {
		kinds = append(kinds, unit.Keyed)
	}

	var errs *multierror.Error
	for _, kind := range kinds {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		kr, err := r.mergeKind(ctx, mod, filepath.Join(langDir, kind.SubDir()), kind, x.Units(kind))
		if err != nil {
			errs = multierror.Append(errs, err)
		}
		report.Kinds = append(report.Kinds, kr)
	}
	return report, errs.ErrorOrNil()
}

func (r *Runner) mergeKind(ctx context.Context, mod filewalker.Mod, dir string, kind unit.Kind, units []unit.TranslationUnit) (KindReport, error) {
	kr := KindReport{Kind: kind}

	baseline, err := r.extractor.BaselineDir(ctx, dir, kind)
	if _, err = documentFailures(err); err != nil {
		return kr, fmt.Errorf("read %s baseline: %w", kind, err)
	}

	res := merge.Merge(units, baseline, merge.Options{
		IncludeUnchanged: r.opts.IncludeUnchanged,
		Key:              layout.KeyFunc(r.strategy(kind)),
	})
	kr.Stats = res.Stats

	var errs *multierror.Error
	for _, g := range layout.Partition(layout.FromRecords(res.Records), r.strategy(kind)) {
		if err := r.writer.MergeGroup(dir, g); err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		kr.Files++
	}

	if kr.Orphaned, err = r.writer.ApplyOrphans(dir, res.Orphans, r.opts.Orphans); err != nil {
		errs = multierror.Append(errs, err)
	}

	if r.recorder != nil {
		if err := r.record(ctx, mod, dir, kind, res, &kr); err != nil {
			errs = multierror.Append(errs, err)
		}
	}

	log.Info().
		Str("mod", mod.Name).
		Str("kind", kind.String()).
		Int("files", kr.Files).
		Int("orphans_handled", kr.Orphaned).
		Msg("Merged language subtree")
	return kr, errs.ErrorOrNil()
}

// record stores the run and a snapshot of the tree as written.
func (r *Runner) record(ctx context.Context, mod filewalker.Mod, dir string, kind unit.Kind, res merge.Result, kr *KindReport) error {
	id, err := r.recorder.RecordMerge(ctx, mod.Name, res)
	if err != nil {
		return err
	}
	kr.RunID = id

	snapshot, err := r.extractor.BaselineDir(ctx, dir, kind)
	if _, err = documentFailures(err); err != nil {
		return fmt.Errorf("read %s snapshot: %w", kind, err)
	}
	return r.recorder.SaveBaseline(ctx, mod.Name, kind, snapshot)
}
