package core

import (
	"context"
	"errors"
	"fmt"
)

// ContentFields names the item type and fields populated for each row.
type ContentFields struct {
	ItemType    string
	Title       string
	Description string
	Image       string
}

// ContentWriter creates and publishes imported items.
type ContentWriter struct {
	repo   ContentRepository
	fields ContentFields
}

// NewContentWriter returns a writer using repo.
func NewContentWriter(repo ContentRepository, fields ContentFields) *ContentWriter {
	return &ContentWriter{repo: repo, fields: fields}
}

// CreateAndPublish creates a typed item named name under parentID, sets its
// title, description and image fields, saves it and publishes it. If
// publishing fails the saved item is deleted again, so a rejected row leaves
// nothing under the parent. A panic inside the repository is returned as an
// error.
func (w *ContentWriter) CreateAndPublish(ctx context.Context, parentID, name, title, description string, image ImageRef) (*Item, error) {
	item := NewItem(name, parentID, w.fields.ItemType)
	item.SetValue(w.fields.Title, title)
	item.SetValue(w.fields.Description, description)
	item.SetValue(w.fields.Image, image.URI())

	if err := guard(func() error { return w.repo.Save(ctx, item) }); err != nil {
		return nil, fmt.Errorf("save item: %w", err)
	}
	if err := guard(func() error { return w.repo.SaveAndPublish(ctx, item) }); err != nil {
		err = fmt.Errorf("publish item: %w", err)
		if item.ID != "" {
			if derr := guard(func() error { return w.repo.Delete(ctx, item.ID) }); derr != nil {
				err = errors.Join(err, fmt.Errorf("remove unpublished item %s: %w", item.ID, derr))
			}
		}
		return nil, err
	}
	return item, nil
}

// guard runs fn, turning a panic into an error.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("content repository panic: %v", r)
		}
	}()
	return fn()
}
