package db

import (
	"context"
	"database/sql"

	"github.com/hpungsan/triage/internal/errors"
)

// StructureRow is a persisted path-tree artifact.
type StructureRow struct {
	ProjectID string
	Structure string
	PathCount int
	UpdatedAt int64
}

// UpsertStructure replaces the project's structure artifact.
func UpsertStructure(ctx context.Context, db *sql.DB, row StructureRow) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO project_structures (project_id, structure, path_count, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(project_id) DO UPDATE SET
		  structure  = excluded.structure,
		  path_count = excluded.path_count,
		  updated_at = excluded.updated_at
	`, row.ProjectID, row.Structure, row.PathCount, row.UpdatedAt)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// GetStructure reads the project's structure artifact.
func GetStructure(ctx context.Context, db *sql.DB, projectID string) (*StructureRow, error) {
	var row StructureRow
	err := db.QueryRowContext(ctx, `
		SELECT project_id, structure, path_count, updated_at
		FROM project_structures
		WHERE project_id = ?
	`, projectID).Scan(&row.ProjectID, &row.Structure, &row.PathCount, &row.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("structure", projectID)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return &row, nil
}

// PublishedDoc is a parent project's consolidated document.
type PublishedDoc struct {
	ProjectID string
	Content   string
	UpdatedAt int64
}

// UpsertPublished replaces the parent's published document.
func UpsertPublished(ctx context.Context, db *sql.DB, doc PublishedDoc) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO published_docs (project_id, content, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(project_id) DO UPDATE SET
		  content    = excluded.content,
		  updated_at = excluded.updated_at
	`, doc.ProjectID, doc.Content, doc.UpdatedAt)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// GetPublished reads the parent's published document.
func GetPublished(ctx context.Context, db *sql.DB, projectID string) (*PublishedDoc, error) {
	var doc PublishedDoc
	err := db.QueryRowContext(ctx, `
		SELECT project_id, content, updated_at
		FROM published_docs
		WHERE project_id = ?
	`, projectID).Scan(&doc.ProjectID, &doc.Content, &doc.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("published document", projectID)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return &doc, nil
}
