package keypath

import (
	"regexp"
	"strings"
)

// UnknownDefType is used when a key carries no DefType/ prefix.
const UnknownDefType = "UnknownDef"

// Full builds DefType/DefName.fieldPath from a raw traversal path. A raw path
// that re-includes the definition's own tag has that prefix removed first.
func Full(defType, defName, rawPath string) string {
	return defType + "/" + defName + "." + Field(defType, rawPath)
}

// Field strips a duplicated "DefType." prefix from a raw traversal path.
func Field(defType, rawPath string) string {
	return strings.TrimPrefix(rawPath, defType+".")
}

// Canonical strips a leading DefType/ prefix, leaving DefName.fieldPath.
// Keys without a prefix are returned unchanged.
func Canonical(key string) string {
	if _, rest, ok := strings.Cut(key, "/"); ok {
		return rest
	}
	return key
}

// Split separates a full key into its DefType and canonical key. Dotted
// DefType prefixes (namespaced class names) keep only the last segment.
func Split(key string) (defType, canonical string) {
	prefix, rest, ok := strings.Cut(key, "/")
	if !ok {
		return UnknownDefType, key
	}
	if i := strings.LastIndex(prefix, "."); i >= 0 {
		prefix = prefix[i+1:]
	}
	return prefix, rest
}

// DefName returns the DefName part of a canonical or full key.
func DefName(key string) string {
	name, _, _ := strings.Cut(Canonical(key), ".")
	return name
}

// FieldName returns the last non-numeric segment of a dotted path, so
// "Apple.rulesStrings.0" yields "rulesStrings".
func FieldName(path string) string {
	parts := strings.Split(path, ".")
	for i := len(parts) - 1; i >= 0; i-- {
		if parts[i] != "" && !isDigits(parts[i]) {
			return parts[i]
		}
	}
	return path
}

var invalidTagChars = regexp.MustCompile(`[^A-Za-z0-9_.]`)

// SanitizeTag turns a key into a valid XML element name: characters outside
// [A-Za-z0-9_.] become dots and a leading non-letter gets an underscore.
func SanitizeTag(key string) string {
	tag := invalidTagChars.ReplaceAllString(Canonical(key), ".")
	if tag == "" {
		return "_"
	}
	c := tag[0]
	if !(c == '_' || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')) {
		tag = "_" + tag
	}
	return tag
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
