package config

import (
	_ "embed"
	"fmt"
	"os"
	"slices"

	"mod-localizer/internal/classify"

	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

//go:embed rules.default.toml
var defaultRules []byte

// category is one named group of fields or patterns.
type category struct {
	Fields []string `toml:"fields"`
}

type section struct {
	Categories map[string]category `toml:"categories"`
}

// RuleFile mirrors the TOML rule catalogue.
type RuleFile struct {
	TranslationFields section  `toml:"translation_fields"`
	IgnoreFields      section  `toml:"ignore_fields"`
	NonTextPatterns   section  `toml:"non_text_patterns"`
	RepeatedFields    []string `toml:"repeated_fields"`
}

// values flattens all categories, in category-name order.
func (s section) values() []string {
	names := lo.Keys(s.Categories)
	slices.Sort(names)
	return lo.FlatMap(names, func(n string, _ int) []string { return s.Categories[n].Fields })
}

// ParseRules decodes a rule catalogue.
func ParseRules(data []byte) (*RuleFile, error) {
	var rf RuleFile
	if err := toml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("decode rule file: %w", err)
	}
	return &rf, nil
}

// RuleSet compiles the catalogue. A bad pattern yields *classify.PatternError.
func (rf *RuleFile) RuleSet() (*classify.RuleSet, error) {
	return classify.NewRuleSet(
		rf.TranslationFields.values(),
		rf.IgnoreFields.values(),
		rf.NonTextPatterns.values(),
		rf.RepeatedFields,
	)
}

// LoadRules reads the rule file at path, or the embedded default when path is empty.
func LoadRules(path string) (*classify.RuleSet, error) {
	data := defaultRules
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read rule file: %w", err)
		}
		data = b
	}

	rf, err := ParseRules(data)
	if err != nil {
		return nil, err
	}
	rs, err := rf.RuleSet()
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("source", lo.Ternary(path == "", "embedded", path)).
		Int("translation_fields", len(rf.TranslationFields.values())).
		Int("ignore_fields", len(rf.IgnoreFields.values())).
		Int("patterns", rs.PatternCount()).
		Msg("Loaded classification rules")
	return rs, nil
}
