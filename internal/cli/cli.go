package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"mod-localizer/internal/classify"
	"mod-localizer/internal/config"
	"mod-localizer/internal/extract"
	"mod-localizer/internal/langdata"
	"mod-localizer/internal/layout"
	"mod-localizer/internal/merge"
	"mod-localizer/internal/pipeline"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Execute runs the CLI application.
func Execute() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	rootCmd := &cobra.Command{
		Use:           "mod-localizer",
		Short:         "Extract and maintain translation files for game mod definitions",
		Long:          "Walks mod definition documents, extracts translatable text, and writes or merges LanguageData trees with change history.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(extractCmd())
	rootCmd.AddCommand(mergeCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(batchCmd())
	rootCmd.AddCommand(indexCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(historyCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}

// runFlags are shared by the commands that run the pipeline.
type runFlags struct {
	source           string
	layout           string
	keyed            bool
	orphans          string
	includeUnchanged bool
}

func (f *runFlags) register(cmd *cobra.Command, withMerge bool) {
	cmd.Flags().StringVar(&f.source, "source", "defs", "Extraction source: defs or definjected")
	cmd.Flags().StringVar(&f.layout, "layout", "", "Output layout: original, by-directory or by-type (default from OUTPUT_LAYOUT)")
	cmd.Flags().BoolVar(&f.keyed, "keyed", false, "Also process the Keyed text bundles")
	if withMerge {
		cmd.Flags().StringVar(&f.orphans, "orphans", "", "Orphan policy: retain, flag or prune (default from ORPHAN_POLICY)")
		cmd.Flags().BoolVar(&f.includeUnchanged, "include-unchanged", false, "Rewrite unchanged keys with their existing translation")
	}
}

// setupContext creates a cancellable context with signal handling.
func setupContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
			log.Warn().Msg("Received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// loadConfig reads the configuration and applies the log level.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("parse LOG_LEVEL: %w", err)
	}
	zerolog.SetGlobalLevel(level)
	return cfg, nil
}

// newRunner builds the pipeline from config plus command flags. Flags win
// over the environment.
func newRunner(cfg *config.Config, f runFlags) (*pipeline.Runner, error) {
	rules, err := config.LoadRules(cfg.RulesPath)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}

	src, err := extract.ParseSource(f.source)
	if err != nil {
		return nil, err
	}
	strategy, err := layout.ParseStrategy(firstNonEmpty(f.layout, cfg.OutputLayout))
	if err != nil {
		return nil, err
	}
	policy, err := merge.ParseOrphanPolicy(firstNonEmpty(f.orphans, cfg.OrphanPolicy))
	if err != nil {
		return nil, err
	}

	ex := extract.New(classify.New(rules))
	return pipeline.New(ex, langdata.NewWriter(rules), pipeline.Options{
		Source:           src,
		Layout:           strategy,
		Keyed:            f.keyed,
		SourceLanguage:   cfg.SourceLanguage,
		Orphans:          policy,
		IncludeUnchanged: f.includeUnchanged,
	}), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
