package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/JonMunkholm/ContentImport/internal/core"
)

// CreateMedia inserts m and assigns m.ID.
func (s *Store) CreateMedia(ctx context.Context, m *core.Media) error {
	parent, err := nullableUUID(m.ParentID)
	if err != nil {
		return fmt.Errorf("media parent %q: %w", m.ParentID, err)
	}

	id := uuid.New()
	err = s.pool.QueryRow(ctx, `
		INSERT INTO media_items (id, parent_id, name, type_alias, path)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, id, parent, m.Name, m.TypeAlias, m.Path).Scan(&m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert media %q: %w", m.Name, err)
	}

	m.ID = id.String()
	return nil
}

// GetByID returns core.ErrMediaNotFound for unknown or malformed ids.
func (s *Store) GetByID(ctx context.Context, id string) (*core.Media, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, core.ErrMediaNotFound
	}

	var m core.Media
	err = s.pool.QueryRow(ctx, `
		SELECT id::text, COALESCE(parent_id::text, ''), name, type_alias, path, created_at
		FROM media_items
		WHERE id = $1
	`, uid).Scan(&m.ID, &m.ParentID, &m.Name, &m.TypeAlias, &m.Path, &m.CreatedAt)
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, core.ErrMediaNotFound
		}
		return nil, fmt.Errorf("get media %s: %w", id, err)
	}
	return &m, nil
}

// DeleteMedia removes the entry. Missing ids return core.ErrMediaNotFound.
func (s *Store) DeleteMedia(ctx context.Context, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return core.ErrMediaNotFound
	}

	tag, err := s.pool.Exec(ctx, `DELETE FROM media_items WHERE id = $1`, uid)
	if err != nil {
		return fmt.Errorf("delete media %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrMediaNotFound
	}
	return nil
}
