package placeholder

import (
	"regexp"
	"slices"

	"github.com/samber/lo"
)

// Token is one interpolation token found in a string.
type Token struct {
	Value string
	Start int
	End   int
}

// patterns detect the interpolation forms used in game text.
var patterns = []*regexp.Regexp{
	regexp.MustCompile(`\{[A-Za-z0-9_]+\}`),                    // {0}, {PAWN_label}
	regexp.MustCompile(`\[[A-Za-z_][A-Za-z0-9_]*\]`),           // [PAWN_nameDef]
	regexp.MustCompile(`%[-+0-9]*\.?[0-9]*[dsfieEgGxXoubcpq]`), // %d, %s, %2d
	regexp.MustCompile(`%%`),
}

// Find returns the tokens in text ordered by position. Overlapping matches
// keep the earliest, longest one.
func Find(text string) []Token {
	var all []Token
	for _, p := range patterns {
		for _, loc := range p.FindAllStringIndex(text, -1) {
			all = append(all, Token{Value: text[loc[0]:loc[1]], Start: loc[0], End: loc[1]})
		}
	}
	if len(all) == 0 {
		return nil
	}

	slices.SortFunc(all, func(a, b Token) int {
		if a.Start != b.Start {
			return a.Start - b.Start
		}
		return (b.End - b.Start) - (a.End - a.Start)
	})

	var out []Token
	lastEnd := -1
	for _, t := range all {
		if t.Start >= lastEnd {
			out = append(out, t)
			lastEnd = t.End
		}
	}
	return out
}

// Values returns just the token strings of text.
func Values(text string) []string {
	return lo.Map(Find(text), func(t Token, _ int) string { return t.Value })
}

// Missing lists tokens of source that translated lacks, counting repeats.
func Missing(source, translated string) []string {
	have := lo.CountValues(Values(translated))
	var missing []string
	for _, v := range Values(source) {
		if have[v] > 0 {
			have[v]--
			continue
		}
		missing = append(missing, v)
	}
	return missing
}

// Extra lists tokens of translated that source does not contain.
func Extra(source, translated string) []string {
	return Missing(translated, source)
}
