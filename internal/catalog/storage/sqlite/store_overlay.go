package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/indexshell/internal/catalog/storage"
)

// GetCatalog returns the overlay catalog for an identity.
func (s *Store) GetCatalog(ctx context.Context, identity string) (storage.UserCatalog, error) {
	if err := ctx.Err(); err != nil {
		return storage.UserCatalog{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.UserCatalog{}, fmt.Errorf("storage is not configured")
	}
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return storage.UserCatalog{}, fmt.Errorf("identity is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT identity, entries, version, created_at, updated_at
		   FROM user_catalogs
		  WHERE identity = ?`,
		identity,
	)

	var catalog storage.UserCatalog
	var entries string
	var createdAt int64
	var updatedAt int64
	err := row.Scan(&catalog.Identity, &entries, &catalog.Version, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.UserCatalog{}, storage.ErrNotFound
		}
		return storage.UserCatalog{}, fmt.Errorf("get user catalog: %w", err)
	}
	if err := json.Unmarshal([]byte(entries), &catalog.Entries); err != nil {
		return storage.UserCatalog{}, fmt.Errorf("unmarshal catalog entries: %w", err)
	}
	catalog.CreatedAt = fromMillis(createdAt)
	catalog.UpdatedAt = fromMillis(updatedAt)
	return catalog, nil
}

// PutCatalog writes an overlay catalog at whole-collection granularity. The
// write carries the version read at load time; a stored version that moved in
// the meantime yields ErrVersionConflict and leaves the row untouched, which
// keeps concurrent submits by the same identity from silently clobbering each
// other. Version 0 means the catalog is new.
func (s *Store) PutCatalog(ctx context.Context, catalog storage.UserCatalog) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	catalog.Identity = strings.TrimSpace(catalog.Identity)
	if catalog.Identity == "" {
		return fmt.Errorf("identity is required")
	}
	if catalog.Version < 0 {
		return fmt.Errorf("catalog version must not be negative")
	}

	if catalog.Entries == nil {
		catalog.Entries = []storage.OverlayEntry{}
	}
	entries, err := json.Marshal(catalog.Entries)
	if err != nil {
		return fmt.Errorf("marshal catalog entries: %w", err)
	}
	now := time.Now().UTC()

	if catalog.Version == 0 {
		createdAt := catalog.CreatedAt.UTC()
		if createdAt.IsZero() {
			createdAt = now
		}
		_, err := s.sqlDB.ExecContext(
			ctx,
			`INSERT INTO user_catalogs (identity, entries, version, created_at, updated_at)
			 VALUES (?, ?, 1, ?, ?)`,
			catalog.Identity,
			string(entries),
			toMillis(createdAt),
			toMillis(now),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return storage.ErrVersionConflict
			}
			return fmt.Errorf("create user catalog: %w", err)
		}
		return nil
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE user_catalogs
		    SET entries = ?, version = version + 1, updated_at = ?
		  WHERE identity = ? AND version = ?`,
		string(entries),
		toMillis(now),
		catalog.Identity,
		catalog.Version,
	)
	if err != nil {
		return fmt.Errorf("update user catalog: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user catalog: %w", err)
	}
	if affected == 0 {
		return storage.ErrVersionConflict
	}
	return nil
}

var _ storage.OverlayStore = (*Store)(nil)
