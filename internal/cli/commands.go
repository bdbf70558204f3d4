package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"mod-localizer/internal/filewalker"
	"mod-localizer/internal/graph"
	"mod-localizer/internal/store"
	"mod-localizer/internal/textutil"
	"mod-localizer/internal/unit"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func extractCmd() *cobra.Command {
	var (
		f       runFlags
		csvPath string
	)
	cmd := &cobra.Command{
		Use:   "extract <mod-dir> <out-dir>",
		Short: "Extract translatable text into fresh LanguageData files",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := setupContext()
			defer cancel()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			runner, err := newRunner(cfg, f)
			if err != nil {
				return err
			}
			mod, err := filewalker.OpenMod(args[0])
			if err != nil {
				return err
			}

			x, err := runner.Extract(ctx, mod)
			if err != nil {
				return err
			}
			files, err := runner.Write(args[1], x)
			if err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			if csvPath != "" {
				if err := runner.Export(csvPath, x); err != nil {
					return err
				}
			}

			log.Info().Str("mod", mod.Name).Int("units", len(x.All())).Int("files", files).Msg("Extract complete")
			return nil
		},
	}
	f.register(cmd, false)
	cmd.Flags().StringVar(&csvPath, "csv", "", "Also export units to this CSV file")
	return cmd
}

func mergeCmd() *cobra.Command {
	var (
		f      runFlags
		record bool
	)
	cmd := &cobra.Command{
		Use:   "merge <mod-dir> <out-dir>",
		Short: "Merge fresh extraction into an existing translation tree",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := setupContext()
			defer cancel()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			runner, err := newRunner(cfg, f)
			if err != nil {
				return err
			}
			mod, err := filewalker.OpenMod(args[0])
			if err != nil {
				return err
			}

			if record {
				if !cfg.StoreEnabled() {
					return fmt.Errorf("--record needs DATABASE_URL")
				}
				pool, err := store.Connect(ctx, cfg.DatabaseURL)
				if err != nil {
					return err
				}
				defer pool.Close()
				runner = runner.WithRecorder(store.New(pool))
			}

			report, err := runner.Merge(ctx, mod, args[1])
			for _, k := range report.Kinds {
				log.Info().
					Str("kind", k.Kind.String()).
					Int("new", k.Stats.New).
					Int("changed", k.Stats.Changed).
					Int("unchanged", k.Stats.Unchanged).
					Int("orphaned", k.Stats.Orphaned).
					Int("files", k.Files).
					Msg("Merge summary")
			}
			return err
		},
	}
	f.register(cmd, true)
	cmd.Flags().BoolVar(&record, "record", false, "Record the run and a baseline snapshot in PostgreSQL")
	return cmd
}

func importCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "import <csv-file> <out-dir>",
		Short: "Apply translated rows to a LanguageData tree",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			runner, err := newRunner(cfg, f)
			if err != nil {
				return err
			}
			_, err = runner.Import(args[0], args[1])
			return err
		},
	}
	cmd.Flags().StringVar(&f.layout, "layout", "", "Layout the tree was written with (default from OUTPUT_LAYOUT)")
	return cmd
}

func batchCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "batch <mods-root> <out-root>",
		Short: "Extract every mod under a directory in parallel",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := setupContext()
			defer cancel()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			runner, err := newRunner(cfg, f)
			if err != nil {
				return err
			}

			results, err := runner.Batch(ctx, args[0], args[1], cfg.WorkerCount)
			failed := 0
			for _, r := range results {
				if r.Err != nil {
					failed++
					log.Error().Err(r.Err).Str("mod", r.Mod).Msg("Mod failed")
					continue
				}
				log.Info().Str("mod", r.Mod).Int("units", r.Units).Int("files", r.Files).Msg("Mod done")
			}
			if err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d mods failed", failed, len(results))
			}
			return nil
		},
	}
	f.register(cmd, false)
	return cmd
}

func indexCmd() *cobra.Command {
	var (
		f   runFlags
		def string
	)
	cmd := &cobra.Command{
		Use:   "index <mod-dir>",
		Short: "Index a mod's definitions and translatable fields in Neo4j",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := setupContext()
			defer cancel()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if !cfg.GraphEnabled() {
				return fmt.Errorf("index needs NEO4J_URI")
			}
			runner, err := newRunner(cfg, f)
			if err != nil {
				return err
			}
			mod, err := filewalker.OpenMod(args[0])
			if err != nil {
				return err
			}

			driver, err := graph.Connect(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword)
			if err != nil {
				return err
			}
			defer driver.Close(ctx)

			indexer := graph.NewIndexer(driver)
			if err := indexer.EnsureSchema(ctx); err != nil {
				return fmt.Errorf("ensure graph schema: %w", err)
			}

			x, err := runner.Extract(ctx, mod)
			if err != nil {
				return err
			}
			if _, err := indexer.IndexUnits(ctx, mod.Name, x.Injected); err != nil {
				return err
			}

			querier := graph.NewQuerier(driver)
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)

			if def != "" {
				defType, defName, ok := strings.Cut(def, "/")
				if !ok {
					return fmt.Errorf("--def wants DefType/defName, got %q", def)
				}
				fields, err := querier.FieldsOfDef(ctx, defType, defName)
				if err != nil {
					return err
				}
				fmt.Fprintln(w, "KEY\tTAG\tTEXT\tFILE")
				for _, fd := range fields {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", fd.Key, fd.Tag, textutil.Truncate(fd.Text, 60), fd.File)
				}
				return w.Flush()
			}

			defs, err := querier.DefsOfMod(ctx, mod.Name)
			if err != nil {
				return err
			}
			fmt.Fprintln(w, "DEF TYPE\tDEF NAME\tFIELDS")
			for _, d := range defs {
				fmt.Fprintf(w, "%s\t%s\t%d\n", d.DefType, d.DefName, d.Fields)
			}
			return w.Flush()
		},
	}
	f.register(cmd, false)
	cmd.Flags().StringVar(&def, "def", "", "List the indexed fields of one definition, as DefType/defName")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if !cfg.StoreEnabled() {
				return fmt.Errorf("migrate needs DATABASE_URL")
			}
			return store.Migrate(cfg.DatabaseURL)
		},
	}
}

func historyCmd() *cobra.Command {
	var (
		limit    uint64
		snapshot bool
	)
	cmd := &cobra.Command{
		Use:   "history <mod> [key]",
		Short: "Show recorded merge runs and superseded translations",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := setupContext()
			defer cancel()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if !cfg.StoreEnabled() {
				return fmt.Errorf("history needs DATABASE_URL")
			}
			pool, err := store.Connect(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer pool.Close()
			st := store.New(pool)

			mod, key := args[0], ""
			if len(args) == 2 {
				key = args[1]
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			defer w.Flush()

			if snapshot {
				for _, kind := range []unit.Kind{unit.DefInjected, unit.Keyed} {
					units, err := st.LoadBaseline(ctx, mod, kind)
					if err != nil {
						return err
					}
					for _, u := range units {
						if key != "" && u.Key != key {
							continue
						}
						fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", kind, u.Key, textutil.Truncate(u.Text, 60), textutil.Truncate(u.EnglishText, 60))
					}
				}
				return nil
			}

			if key == "" {
				runs, err := st.Runs(ctx, mod, limit)
				if err != nil {
					return err
				}
				fmt.Fprintln(w, "RUN\tWHEN\tNEW\tCHANGED\tUNCHANGED\tORPHANED")
				for _, r := range runs {
					fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\n", r.ID, r.CreatedAt.Format("2006-01-02 15:04"),
						r.Stats.New, r.Stats.Changed, r.Stats.Unchanged, r.Stats.Orphaned)
				}
				fmt.Fprintln(w)
			}

			entries, err := st.History(ctx, mod, key, limit)
			if err != nil {
				return err
			}
			fmt.Fprintln(w, "WHEN\tKEY\tPREVIOUS\tCURRENT")
			for _, h := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", h.CreatedAt.Format("2006-01-02 15:04"), h.Key,
					textutil.Truncate(h.PreviousText, 60), textutil.Truncate(h.CurrentText, 60))
			}
			return nil
		},
	}
	cmd.Flags().Uint64Var(&limit, "limit", 20, "Maximum rows to show (0 for all)")
	cmd.Flags().BoolVar(&snapshot, "snapshot", false, "Show the stored baseline snapshot instead")
	return cmd
}
