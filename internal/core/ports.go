package core

import (
	"context"
	"io"
)

// ContentRepository is the content tree the importer writes into.
type ContentRepository interface {
	// RootNodes returns the nodes that have no parent.
	RootNodes(ctx context.Context) ([]Node, error)

	// Children returns every direct child of parentID in display order.
	Children(ctx context.Context, parentID string) ([]Node, error)

	// Save persists the item, assigning item.ID when it is new.
	Save(ctx context.Context, item *Item) error

	// SaveAndPublish persists the item and marks it published.
	SaveAndPublish(ctx context.Context, item *Item) error

	// Delete removes an item. Deleting an unknown id is not an error.
	Delete(ctx context.Context, id string) error
}

// MediaRepository records stored binaries.
type MediaRepository interface {
	// CreateMedia persists m, assigning m.ID.
	CreateMedia(ctx context.Context, m *Media) error

	// GetByID returns ErrMediaNotFound when id is unknown.
	GetByID(ctx context.Context, id string) (*Media, error)

	DeleteMedia(ctx context.Context, id string) error
}

// BlobStore holds the image binaries. Keys use forward slashes.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader) error
	Delete(ctx context.Context, key string) error
}
