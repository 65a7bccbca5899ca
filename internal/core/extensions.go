package core

import (
	"path/filepath"
	"sort"
	"strings"
)

// DefaultImageExtensions is the fixed set of formats the media library
// accepts, independent of what a caller allows.
var DefaultImageExtensions = []string{".jpg", ".jpeg", ".png", ".webp"}

// ExtensionSet is a set of lower-case extensions including the leading dot.
type ExtensionSet map[string]struct{}

// NewExtensionSet lower-cases and collects exts.
func NewExtensionSet(exts ...string) ExtensionSet {
	set := make(ExtensionSet, len(exts))
	for _, e := range exts {
		set[strings.ToLower(strings.TrimSpace(e))] = struct{}{}
	}
	return set
}

// Has reports whether ext (any case) is in the set.
func (s ExtensionSet) Has(ext string) bool {
	_, ok := s[strings.ToLower(ext)]
	return ok
}

// Sorted returns the members in sorted order.
func (s ExtensionSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for e := range s {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}

// imageExtension returns the lower-cased extension of an image path. Both
// separators are accepted so Windows-style paths from spreadsheets work.
func imageExtension(path string) string {
	path = strings.ReplaceAll(path, `\`, "/")
	return strings.ToLower(filepath.Ext(path))
}

// baseName returns the final element of a path with either separator.
func baseName(path string) string {
	path = strings.ReplaceAll(path, `\`, "/")
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}
