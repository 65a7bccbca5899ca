package core

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// RowReader yields the data rows of one file, one at a time. The header row
// is consumed by the parser and never returned.
//
//	for rd.Next() {
//	    row := rd.Row()
//	}
//	if err := rd.Err(); err != nil { ... }
type RowReader interface {
	Next() bool
	Row() ImportRow
	Err() error
	Close() error
}

// RowParser opens a source file of one format. Format-level failures are
// returned as *ImportError with KindEmptyOrInvalidFile.
type RowParser interface {
	Open(ctx context.Context, path string) (RowReader, error)
}

// ParserRegistry maps lower-case file extensions to parsers.
type ParserRegistry struct {
	mu      sync.RWMutex
	parsers map[string]RowParser
}

// NewParserRegistry returns an empty registry.
func NewParserRegistry() *ParserRegistry {
	return &ParserRegistry{parsers: make(map[string]RowParser)}
}

// DefaultParsers returns a registry with the CSV and spreadsheet parsers.
func DefaultParsers() *ParserRegistry {
	r := NewParserRegistry()
	r.Register(".csv", CSVParser{})
	r.Register(".xlsx", SpreadsheetParser{})
	r.Register(".xlsm", SpreadsheetParser{})
	r.Register(".xls", SpreadsheetParser{})
	return r
}

// Register adds a parser for ext. Panics if ext is already registered.
func (r *ParserRegistry) Register(ext string, p RowParser) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ext = strings.ToLower(ext)
	if _, exists := r.parsers[ext]; exists {
		panic(fmt.Sprintf("parser already registered: %s", ext))
	}
	r.parsers[ext] = p
}

// Lookup returns the parser for path's extension along with the extension.
func (r *ParserRegistry) Lookup(path string) (RowParser, string, bool) {
	ext := strings.ToLower(filepath.Ext(path))

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.parsers[ext]
	return p, ext, ok
}

// Extensions lists the registered extensions in sorted order.
func (r *ParserRegistry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exts := make([]string, 0, len(r.parsers))
	for ext := range r.parsers {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

func invalidFile(path, detail string, err error) *ImportError {
	return &ImportError{Kind: KindEmptyOrInvalidFile, File: path, Detail: detail, Err: err}
}
