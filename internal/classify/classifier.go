package classify

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"mod-localizer/internal/keypath"

	"github.com/rs/zerolog/log"
)

// Mode selects how the allow-list applies.
type Mode int

const (
	// Definition mode requires the field (or the list item's container) to be allow-listed.
	Definition Mode = iota
	// Bundle mode is for loosely keyed text bundles: anything not rejected is accepted.
	Bundle
)

// Context describes one candidate text node.
type Context struct {
	// Path is the raw traversal path or key of the node.
	Path string
	// Tag is the node's own tag.
	Tag string
	// ParentTag is the tag of the enclosing element.
	ParentTag string
	// ListItem is set for repeated-sibling nodes.
	ListItem bool
	Mode     Mode
}

// Classifier decides which candidate texts need translation.
type Classifier struct {
	rules *RuleSet
}

// New creates a Classifier over an immutable rule set.
func New(rules *RuleSet) *Classifier {
	return &Classifier{rules: rules}
}

// Rules returns the rule set the classifier was built with.
func (c *Classifier) Rules() *RuleSet {
	return c.rules
}

// IsTranslatable applies the rules in order; the first one that decides wins.
func (c *Classifier) IsTranslatable(text string, ctx Context) bool {
	trimmed := strings.TrimSpace(text)

	if !isTextual(trimmed) {
		log.Debug().Str("path", ctx.Path).Msg("Rejected: empty or not textual")
		return false
	}

	if c.rules.MatchesNonText(trimmed) {
		log.Debug().Str("path", ctx.Path).Str("text", trimmed).Msg("Rejected: non-text content")
		return false
	}

	field := fieldOf(ctx)
	if c.rules.Ignored(field) {
		log.Debug().Str("path", ctx.Path).Str("field", field).Msg("Rejected: ignored field")
		return false
	}

	if ctx.Mode == Bundle {
		return true
	}

	if ctx.ListItem {
		if c.rules.Allowed(ctx.ParentTag) {
			return true
		}
		log.Debug().Str("path", ctx.Path).Str("parent", ctx.ParentTag).Msg("Rejected: list container not allowed")
		return false
	}

	if c.rules.Allowed(ctx.Tag) {
		return true
	}
	log.Debug().Str("path", ctx.Path).Str("tag", ctx.Tag).Msg("Rejected: field not allowed")
	return false
}

// fieldOf picks the field name used for the ignore-list check.
func fieldOf(ctx Context) string {
	if ctx.Path != "" {
		if f := keypath.FieldName(ctx.Path); f != "" {
			return f
		}
	}
	return ctx.Tag
}

// isTextual requires valid UTF-8 with at least one letter, so bare numbers and
// punctuation never reach the pattern rules.
func isTextual(s string) bool {
	if s == "" || !utf8.ValidString(s) {
		return false
	}
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
