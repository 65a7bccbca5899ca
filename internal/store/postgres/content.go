package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/JonMunkholm/ContentImport/internal/core"
)

const nodeColumns = `id::text, COALESCE(parent_id::text, ''), name, type_alias`

// RootNodes returns nodes without a parent in creation order.
func (s *Store) RootNodes(ctx context.Context) ([]core.Node, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+nodeColumns+`
		FROM content_nodes
		WHERE parent_id IS NULL
		ORDER BY sort_order
	`)
	if err != nil {
		return nil, fmt.Errorf("query root nodes: %w", err)
	}
	return collectNodes(rows)
}

// Children returns all direct children of parentID in creation order.
func (s *Store) Children(ctx context.Context, parentID string) ([]core.Node, error) {
	id, err := uuid.Parse(parentID)
	if err != nil {
		return nil, fmt.Errorf("parent id %q: %w", parentID, err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+nodeColumns+`
		FROM content_nodes
		WHERE parent_id = $1
		ORDER BY sort_order
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query children of %s: %w", parentID, err)
	}
	return collectNodes(rows)
}

func collectNodes(rows pgx.Rows) ([]core.Node, error) {
	nodes, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Node, error) {
		var n core.Node
		err := row.Scan(&n.ID, &n.ParentID, &n.Name, &n.TypeAlias)
		return n, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan nodes: %w", err)
	}
	return nodes, nil
}

// Save inserts a new item, assigning its ID, or updates an existing one.
// The publish flag is left untouched.
func (s *Store) Save(ctx context.Context, item *core.Item) error {
	return saveItem(ctx, s.pool, item)
}

// SaveAndPublish saves the item and marks it published in one transaction.
func (s *Store) SaveAndPublish(ctx context.Context, item *core.Item) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if err := saveItem(ctx, tx, item); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE content_nodes SET published = TRUE, updated_at = now() WHERE id = $1
	`, item.ID); err != nil {
		return fmt.Errorf("publish %s: %w", item.ID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	item.Published = true
	return nil
}

// Delete removes the item and, through the foreign key, its descendants.
func (s *Store) Delete(ctx context.Context, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM content_nodes WHERE id = $1`, uid); err != nil {
		return fmt.Errorf("delete item %s: %w", id, err)
	}
	return nil
}

func saveItem(ctx context.Context, q querier, item *core.Item) error {
	parent, err := nullableUUID(item.ParentID)
	if err != nil {
		return fmt.Errorf("parent id %q: %w", item.ParentID, err)
	}
	fields := item.Fields
	if fields == nil {
		fields = map[string]any{}
	}

	if item.ID == "" {
		id := uuid.New()
		_, err := q.Exec(ctx, `
			INSERT INTO content_nodes (id, parent_id, name, type_alias, fields)
			VALUES ($1, $2, $3, $4, $5)
		`, id, parent, item.Name, item.TypeAlias, fields)
		if err != nil {
			if IsPgForeignKeyError(err) {
				return fmt.Errorf("parent %s does not exist: %w", item.ParentID, err)
			}
			if IsPgDuplicateError(err) {
				return fmt.Errorf("item %q: %w", item.Name, core.ErrDuplicateItem)
			}
			return fmt.Errorf("insert item %q: %w", item.Name, err)
		}
		item.ID = id.String()
		return nil
	}

	tag, err := q.Exec(ctx, `
		UPDATE content_nodes
		SET parent_id = $2, name = $3, type_alias = $4, fields = $5, updated_at = now()
		WHERE id = $1
	`, item.ID, parent, item.Name, item.TypeAlias, fields)
	if err != nil {
		return fmt.Errorf("update item %s: %w", item.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update item %s: %w", item.ID, pgx.ErrNoRows)
	}
	return nil
}

// nullableUUID maps "" to NULL.
func nullableUUID(s string) (*uuid.UUID, error) {
	if s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
