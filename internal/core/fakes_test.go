package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/xuri/excelize/v2"
)

// memContent is an in-memory ContentRepository. Saved items become nodes
// straight away, published or not.
type memContent struct {
	mu        sync.Mutex
	nodes     []Node
	items     []*Item
	nextID    int
	saveErr   error
	publishFn func(*Item) error
	deleted   []string
}

func newSite() *memContent {
	return &memContent{nodes: []Node{
		{ID: "home", Name: "Home", TypeAlias: "homePage"},
		{ID: "articles", ParentID: "home", Name: "Articles", TypeAlias: "article"},
	}}
}

func (m *memContent) RootNodes(context.Context) ([]Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Node
	for _, n := range m.nodes {
		if n.ParentID == "" {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *memContent) Children(_ context.Context, parentID string) ([]Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Node
	for _, n := range m.nodes {
		if n.ParentID == parentID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *memContent) Save(_ context.Context, item *Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	if item.ID == "" {
		m.nextID++
		item.ID = fmt.Sprintf("item-%d", m.nextID)
		m.nodes = append(m.nodes, Node{ID: item.ID, ParentID: item.ParentID, Name: item.Name, TypeAlias: item.TypeAlias})
	}
	return nil
}

func (m *memContent) SaveAndPublish(_ context.Context, item *Item) error {
	if m.publishFn != nil {
		if err := m.publishFn(item); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if item.ID == "" {
		m.nextID++
		item.ID = fmt.Sprintf("item-%d", m.nextID)
		m.nodes = append(m.nodes, Node{ID: item.ID, ParentID: item.ParentID, Name: item.Name, TypeAlias: item.TypeAlias})
	}
	item.Published = true
	m.items = append(m.items, item)
	return nil
}

func (m *memContent) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, id)
	kept := m.nodes[:0]
	for _, n := range m.nodes {
		if n.ID != id {
			kept = append(kept, n)
		}
	}
	m.nodes = kept
	return nil
}

// childNames lists the names of every node under parentID.
func (m *memContent) childNames(parentID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, n := range m.nodes {
		if n.ParentID == parentID {
			out = append(out, n.Name)
		}
	}
	return out
}

func (m *memContent) names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.items))
	for i, it := range m.items {
		out[i] = it.Name
	}
	return out
}

// memMedia is an in-memory MediaRepository.
type memMedia struct {
	mu      sync.Mutex
	media   map[string]*Media
	nextID  int
	lose    bool // GetByID never finds anything
	deleted []string
}

func newMemMedia() *memMedia {
	return &memMedia{media: make(map[string]*Media)}
}

func (m *memMedia) CreateMedia(_ context.Context, md *Media) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	md.ID = fmt.Sprintf("media-%d", m.nextID)
	m.media[md.ID] = md
	return nil
}

func (m *memMedia) GetByID(_ context.Context, id string) (*Media, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	md, ok := m.media[id]
	if !ok || m.lose {
		return nil, ErrMediaNotFound
	}
	return md, nil
}

func (m *memMedia) DeleteMedia(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.media, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *memMedia) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.media)
}

// memBlobs is an in-memory BlobStore.
type memBlobs struct {
	mu    sync.Mutex
	blobs map[string][]byte
	err   error
}

func newMemBlobs() *memBlobs {
	return &memBlobs{blobs: make(map[string][]byte)}
}

func (b *memBlobs) Put(_ context.Context, key string, r io.Reader) error {
	if b.err != nil {
		return b.err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.blobs[key] = data
	return nil
}

func (b *memBlobs) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.blobs[key]; !ok {
		return errors.New("no such blob")
	}
	delete(b.blobs, key)
	return nil
}

func (b *memBlobs) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.blobs)
}

// fixture bundles an importer with its fakes.
type fixture struct {
	content *memContent
	media   *memMedia
	blobs   *memBlobs
	imp     *Importer
	dir     string
}

func newFixture(t *testing.T, mutate ...func(*Options)) *fixture {
	t.Helper()
	opts := DefaultOptions()
	for _, fn := range mutate {
		fn(&opts)
	}
	f := &fixture{
		content: newSite(),
		media:   newMemMedia(),
		blobs:   newMemBlobs(),
		dir:     t.TempDir(),
	}
	f.imp = NewImporter(f.content, f.media, f.blobs, opts, testLogger())
	return f
}

// image writes a small file named name and returns its path.
func (f *fixture) image(t *testing.T, name string) string {
	t.Helper()
	p := filepath.Join(f.dir, name)
	if err := os.WriteFile(p, []byte("img:"+name), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

// writeCSV writes a header plus rows, one record per line.
func writeCSV(t *testing.T, dir, name string, rows ...string) string {
	t.Helper()
	lines := append([]string{"Name,Title,Description,Image"}, rows...)
	return writeFile(t, dir, name, strings.Join(lines, "\n")+"\n")
}

// writeXLSX writes a workbook whose first sheet holds a header and rows.
func writeXLSX(t *testing.T, dir, name string, rows ...[]any) string {
	t.Helper()
	wb := excelize.NewFile()
	defer wb.Close()

	sheet := wb.GetSheetName(0)
	all := append([][]any{{"Name", "Title", "Description", "Image"}}, rows...)
	for i, r := range all {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := wb.SetSheetRow(sheet, cell, &r); err != nil {
			t.Fatal(err)
		}
	}

	p := filepath.Join(dir, name)
	if err := wb.SaveAs(p); err != nil {
		t.Fatal(err)
	}
	return p
}

// emptyWorkbook writes a workbook with no cells at all.
func emptyWorkbook(t *testing.T, dir string) string {
	t.Helper()
	wb := excelize.NewFile()
	defer wb.Close()
	p := filepath.Join(dir, "empty.xlsx")
	if err := wb.SaveAs(p); err != nil {
		t.Fatal(err)
	}
	return p
}

func readAll(t *testing.T, rd RowReader) []ImportRow {
	t.Helper()
	defer rd.Close()
	var rows []ImportRow
	for rd.Next() {
		rows = append(rows, rd.Row())
	}
	if err := rd.Err(); err != nil {
		t.Fatalf("Err() = %v", err)
	}
	return rows
}

func errorKinds(errs []*ImportError) []ErrorKind {
	out := make([]ErrorKind, len(errs))
	for i, e := range errs {
		out[i] = e.Kind
	}
	return out
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
