package unit

// Kind tells which language subtree a unit belongs to.
type Kind int

const (
	// DefInjected units come from Defs/ (or a DefInjected tree) and are keyed by defName.field.
	DefInjected Kind = iota
	// Keyed units come from Languages/<lang>/Keyed and use the element tag as key.
	Keyed
)

// SubDir returns the language subdirectory name used on disk for this kind.
func (k Kind) SubDir() string {
	if k == Keyed {
		return "Keyed"
	}
	return "DefInjected"
}

func (k Kind) String() string {
	return k.SubDir()
}

// TranslationUnit is a single translatable string produced by one extraction pass.
type TranslationUnit struct {
	// Key is DefType/DefName.field during extraction and DefName.field once grouped.
	Key string
	// Text is the trimmed source text.
	Text string
	// Tag is the field tag the text was found under.
	Tag string
	// SourceFile is the path of the originating document, relative to its scan root.
	SourceFile string
	// DefType is the definition type for DefInjected units, empty for Keyed.
	DefType string
	// EnglishText is the source text captured for drift detection. Defaults to Text.
	EnglishText string
	// Kind selects the language subtree.
	Kind Kind
}

// English returns the captured English text, falling back to Text.
func (u TranslationUnit) English() string {
	if u.EnglishText != "" {
		return u.EnglishText
	}
	return u.Text
}

// BaselineUnit is a previously exported translation with the English text it was made from.
type BaselineUnit struct {
	Key          string
	Text         string
	Tag          string
	RelativePath string
	EnglishText  string
	Kind         Kind
}

// MergeRecord is the reconciled state of one key after a merge.
type MergeRecord struct {
	Key                 string
	CurrentText         string
	Tag                 string
	RelativePath        string
	BaselineEnglishText string
	// HistoryText is empty when the unit is new or unchanged; otherwise the superseded translation.
	HistoryText string
	DefType     string
	Kind        Kind
	// Existing is set when the key was already present in the baseline, in
	// which case RelativePath names the baseline file.
	Existing bool
}

// Changed reports whether the record demotes a previous translation to history.
func (r MergeRecord) Changed() bool {
	return r.HistoryText != ""
}
