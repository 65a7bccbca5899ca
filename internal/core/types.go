package core

import (
	"strings"
	"time"
)

// RowWidth is the number of leading columns an import row is built from:
// item name, title, description, image path.
const RowWidth = 4

// ImportRow is one record read from a source file. It is consumed once by the
// importer and never persisted.
type ImportRow struct {
	Line        int // 1-indexed row or line in the source file
	Columns     int // fields actually present in the source record
	Name        string
	Title       string
	Description string
	ImagePath   string

	// Err is set when the record could not be tokenized; the other fields
	// are then empty.
	Err error
}

// IsBlank reports whether all four target fields are empty.
func (r ImportRow) IsBlank() bool {
	return r.Name == "" && r.Title == "" && r.Description == "" && r.ImagePath == ""
}

// rowFromFields maps the leading columns of a record onto an ImportRow.
// Missing columns are left empty; values are trimmed.
func rowFromFields(line int, fields []string) ImportRow {
	row := ImportRow{Line: line, Columns: len(fields)}
	targets := []*string{&row.Name, &row.Title, &row.Description, &row.ImagePath}
	for i, dst := range targets {
		if i < len(fields) {
			*dst = strings.TrimSpace(fields[i])
		}
	}
	return row
}

// Node is a content tree node as the importer sees it.
type Node struct {
	ID        string
	ParentID  string // empty for root nodes
	Name      string
	TypeAlias string
}

// ParentContext identifies where new items attach. Resolved once per file.
type ParentContext struct {
	HomeID    string
	SectionID string
}

// Item is a content item being created. ID is assigned by the repository on
// first save.
type Item struct {
	ID        string
	ParentID  string
	Name      string
	TypeAlias string
	Fields    map[string]any
	Published bool
}

// NewItem returns an unsaved item of the given type under parentID.
func NewItem(name, parentID, typeAlias string) *Item {
	return &Item{
		Name:      name,
		ParentID:  parentID,
		TypeAlias: typeAlias,
		Fields:    make(map[string]any),
	}
}

// SetValue sets a named field on the item.
func (i *Item) SetValue(alias string, value any) {
	if i.Fields == nil {
		i.Fields = make(map[string]any)
	}
	i.Fields[alias] = value
}

// MediaTypeImage is the media type alias given to ingested images.
const MediaTypeImage = "Image"

// Media is an entry in the media library.
type Media struct {
	ID        string
	ParentID  string // empty means the media root
	Name      string
	TypeAlias string
	Path      string // stored location, e.g. "/media/cat.png"
	CreatedAt time.Time
}

// ImageRef is the durable reference returned after an image is stored.
type ImageRef struct {
	MediaID string
	Key     string // blob key the binary was written under
	Path    string
}

// URI is the value written into an item's image field.
func (r ImageRef) URI() string {
	return "media://" + r.MediaID
}
