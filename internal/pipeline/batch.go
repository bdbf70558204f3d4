package pipeline

import (
	"context"
	"path/filepath"

	"mod-localizer/internal/filewalker"
	"mod-localizer/internal/worker"

	"github.com/rs/zerolog/log"
)

// BatchResult is the outcome of one mod in a batch run.
type BatchResult struct {
	Mod   string
	Units int
	Files int
	Err   error
}

// Batch extracts every mod under root on a pool of workers, writing each
// mod's tree to outRoot/<mod name>. Results follow the discovery order.
func (r *Runner) Batch(ctx context.Context, root, outRoot string, workers int) ([]BatchResult, error) {
	mods, err := filewalker.Discover(root)
	if err != nil {
		return nil, err
	}

	pool := worker.NewPool[filewalker.Mod, BatchResult](workers, func(ctx context.Context, mod filewalker.Mod) (BatchResult, error) {
		res := BatchResult{Mod: mod.Name}
		x, err := r.Extract(ctx, mod)
		if err != nil {
			return res, err
		}
		res.Units = len(x.Injected) + len(x.Keyed)
		res.Files, err = r.Write(filepath.Join(outRoot, mod.Name), x)
		return res, err
	})

	outcomes := pool.Run(ctx, mods)
	results := make([]BatchResult, len(outcomes))
	failed := 0
	for i, o := range outcomes {
		results[i] = o.Result
		results[i].Mod = o.Input.Name
		results[i].Err = o.Err
		if o.Err != nil {
			failed++
		}
	}

	log.Info().Int("mods", len(mods)).Int("failed", failed).Msg("Batch complete")
	return results, ctx.Err()
}
