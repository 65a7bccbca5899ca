package core

import "strings"

// DuplicateIndex is the set of item names already present under a section.
// It grows as rows are accepted and is owned by a single import run.
type DuplicateIndex struct {
	names map[string]struct{}
}

// NewDuplicateIndex builds an index from existing names.
func NewDuplicateIndex(names ...string) *DuplicateIndex {
	idx := &DuplicateIndex{names: make(map[string]struct{}, len(names))}
	for _, n := range names {
		idx.Add(n)
	}
	return idx
}

// indexFromNodes builds an index from the children of a section.
func indexFromNodes(nodes []Node) *DuplicateIndex {
	names := make([]string, len(nodes))
	for i, n := range nodes {
		names[i] = n.Name
	}
	return NewDuplicateIndex(names...)
}

// Contains reports whether name is already taken.
func (d *DuplicateIndex) Contains(name string) bool {
	_, ok := d.names[normalizeName(name)]
	return ok
}

// Add records name as taken.
func (d *DuplicateIndex) Add(name string) {
	d.names[normalizeName(name)] = struct{}{}
}

// Len is the number of distinct names.
func (d *DuplicateIndex) Len() int {
	return len(d.names)
}

// normalizeName trims surrounding whitespace. Names stay case-sensitive,
// matching how the content tree compares them.
func normalizeName(name string) string {
	return strings.TrimSpace(name)
}
