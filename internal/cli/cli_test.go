package cli

import (
	"os"
	"path/filepath"
	"testing"

	"mod-localizer/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		WorkerCount:    1,
		SourceLanguage: "English",
		TargetLanguage: "German",
		OutputLayout:   "by-type",
		OrphanPolicy:   "retain",
		LogLevel:       "info",
	}
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "flag", firstNonEmpty("flag", "env"))
	assert.Equal(t, "env", firstNonEmpty("", "env"))
	assert.Empty(t, firstNonEmpty("", ""))
}

func TestNewRunner(t *testing.T) {
	r, err := newRunner(testConfig(), runFlags{source: "defs"})
	require.NoError(t, err)
	assert.NotNil(t, r)

	tests := []struct {
		name  string
		flags runFlags
		cfg   func(*config.Config)
	}{
		{"bad source", runFlags{source: "keyed"}, nil},
		{"bad layout flag", runFlags{layout: "sideways"}, nil},
		{"bad layout env", runFlags{}, func(c *config.Config) { c.OutputLayout = "sideways" }},
		{"bad orphan policy", runFlags{orphans: "shred"}, nil},
		{"missing rules file", runFlags{}, func(c *config.Config) { c.RulesPath = filepath.Join(t.TempDir(), "none.toml") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			if tt.cfg != nil {
				tt.cfg(cfg)
			}
			_, err := newRunner(cfg, tt.flags)
			assert.Error(t, err)
		})
	}
}

func TestCommandFlags(t *testing.T) {
	extract := extractCmd()
	assert.NotNil(t, extract.Flags().Lookup("csv"))
	assert.NotNil(t, extract.Flags().Lookup("keyed"))
	assert.Nil(t, extract.Flags().Lookup("orphans"))

	merge := mergeCmd()
	assert.NotNil(t, merge.Flags().Lookup("orphans"))
	assert.NotNil(t, merge.Flags().Lookup("include-unchanged"))
	assert.NotNil(t, merge.Flags().Lookup("record"))

	history := historyCmd()
	assert.NotNil(t, history.Flags().Lookup("limit"))
	assert.NotNil(t, history.Flags().Lookup("snapshot"))

	imp := importCmd()
	assert.NotNil(t, imp.Flags().Lookup("layout"))

	index := indexCmd()
	assert.NotNil(t, index.Flags().Lookup("def"))
}

func TestExtractCmd(t *testing.T) {
	t.Setenv("RULES_PATH", "")
	t.Setenv("OUTPUT_LAYOUT", "by-type")

	mod := filepath.Join(t.TempDir(), "FruitMod")
	require.NoError(t, os.MkdirAll(filepath.Join(mod, "Defs"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(mod, "Defs", "Food.xml"),
		[]byte("<Defs><ThingDef><defName>Apple</defName><label>apple</label></ThingDef></Defs>"), 0644))
	out := t.TempDir()
	csvPath := filepath.Join(out, "units.csv")

	cmd := extractCmd()
	cmd.SetArgs([]string{mod, out, "--csv", csvPath})
	require.NoError(t, cmd.Execute())

	assert.FileExists(t, filepath.Join(out, "DefInjected", "ThingDef", "ThingDef.xml"))
	assert.FileExists(t, csvPath)
}

func TestMergeCmd_RecordNeedsDatabase(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	dir := t.TempDir()

	cmd := mergeCmd()
	cmd.SetArgs([]string{dir, dir, "--record"})
	assert.ErrorContains(t, cmd.Execute(), "DATABASE_URL")
}
