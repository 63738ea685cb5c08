package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/indexshell/internal/catalog/storage"
)

// GetByNormalizedCommand returns the canonical snippet for a normalized
// command key.
func (s *Store) GetByNormalizedCommand(ctx context.Context, key string) (storage.CanonicalSnippet, error) {
	if err := ctx.Err(); err != nil {
		return storage.CanonicalSnippet{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.CanonicalSnippet{}, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(key) == "" {
		return storage.CanonicalSnippet{}, fmt.Errorf("normalized command is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT snippet_id, command_text, tags, summary, created_at
		   FROM canonical_snippets
		  WHERE normalized_command = ?`,
		key,
	)
	return scanCanonicalSnippet(row)
}

// CreateIfAbsent inserts a canonical snippet keyed by normalized command
// text. A concurrent writer that creates the same key first wins; the losing
// insert is reported with created == false and the winner's record, never an
// overwrite. The UNIQUE index on normalized_command is the serialization
// point.
func (s *Store) CreateIfAbsent(ctx context.Context, key string, snippet storage.CanonicalSnippet) (bool, storage.CanonicalSnippet, error) {
	if err := ctx.Err(); err != nil {
		return false, storage.CanonicalSnippet{}, err
	}
	if s == nil || s.sqlDB == nil {
		return false, storage.CanonicalSnippet{}, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(key) == "" {
		return false, storage.CanonicalSnippet{}, fmt.Errorf("normalized command is required")
	}
	if strings.TrimSpace(snippet.SnippetID) == "" {
		return false, storage.CanonicalSnippet{}, fmt.Errorf("snippet id is required")
	}
	if strings.TrimSpace(snippet.CommandText) == "" {
		return false, storage.CanonicalSnippet{}, fmt.Errorf("command text is required")
	}
	createdAt := snippet.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	tags, err := encodeStrings(snippet.Tags)
	if err != nil {
		return false, storage.CanonicalSnippet{}, err
	}

	_, err = s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO canonical_snippets (
		   snippet_id, normalized_command, command_text, tags, summary, created_at
		 ) VALUES (?, ?, ?, ?, ?, ?)`,
		snippet.SnippetID,
		key,
		snippet.CommandText,
		tags,
		snippet.Summary,
		toMillis(createdAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			winner, readErr := s.GetByNormalizedCommand(ctx, key)
			if readErr != nil {
				return false, storage.CanonicalSnippet{}, fmt.Errorf("read winning snippet: %w", readErr)
			}
			return false, winner, nil
		}
		return false, storage.CanonicalSnippet{}, fmt.Errorf("create canonical snippet: %w", err)
	}

	snippet.CreatedAt = createdAt
	return true, snippet, nil
}

// SearchByTag returns canonical snippets whose tag sequence contains any of
// the terms by exact string match. Matching is against the tag collection,
// not against command or summary text; canonical search is deliberately
// coarser than overlay search because tags are curated for it.
func (s *Store) SearchByTag(ctx context.Context, terms []string) ([]storage.CanonicalSnippet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if len(terms) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?, ", len(terms)-1) + "?"
	args := make([]any, len(terms))
	for i, term := range terms {
		args[i] = term
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT snippet_id, command_text, tags, summary, created_at
		   FROM canonical_snippets
		  WHERE EXISTS (
		          SELECT 1 FROM json_each(canonical_snippets.tags)
		           WHERE json_each.value IN (`+placeholders+`)
		        )
		  ORDER BY created_at ASC, snippet_id ASC`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("search canonical snippets: %w", err)
	}
	defer rows.Close()

	var snippets []storage.CanonicalSnippet
	for rows.Next() {
		snippet, err := scanCanonicalSnippet(rows)
		if err != nil {
			return nil, fmt.Errorf("search canonical snippets: %w", err)
		}
		snippets = append(snippets, snippet)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search canonical snippets: %w", err)
	}
	return snippets, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCanonicalSnippet(row rowScanner) (storage.CanonicalSnippet, error) {
	var snippet storage.CanonicalSnippet
	var tags string
	var createdAt int64
	err := row.Scan(
		&snippet.SnippetID,
		&snippet.CommandText,
		&tags,
		&snippet.Summary,
		&createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.CanonicalSnippet{}, storage.ErrNotFound
		}
		return storage.CanonicalSnippet{}, fmt.Errorf("scan canonical snippet: %w", err)
	}
	snippet.Tags, err = decodeStrings(tags)
	if err != nil {
		return storage.CanonicalSnippet{}, err
	}
	snippet.CreatedAt = fromMillis(createdAt)
	return snippet, nil
}

var _ storage.CanonicalStore = (*Store)(nil)
