package db

import (
	"context"
	"database/sql"

	"github.com/hpungsan/triage/internal/errors"
	"github.com/hpungsan/triage/internal/triage"
)

const projectColumns = `id, name, slug, is_parent, parent_id, table_prefix, database_schema, is_active, created_at`

// InsertProject stores a new project.
func InsertProject(ctx context.Context, db *sql.DB, p *triage.Project) error {
	var isParent sql.NullBool
	if v := p.ParentFlag.Ptr(); v != nil {
		isParent = sql.NullBool{Bool: *v, Valid: true}
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO projects (`+projectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		p.ID, p.Name, p.Slug, isParent, toNullString(p.ParentID),
		toNullString(p.TablePrefix), toNullString(p.DatabaseSchema), p.IsActive, p.CreatedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return errors.NewConflict("project already exists: " + p.ID)
		}
		return errors.NewInternal(err)
	}
	return nil
}

// GetProject reads exactly one project row.
func GetProject(ctx context.Context, db *sql.DB, id string) (*triage.Project, error) {
	row := db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	p, err := scanProject(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("project", id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return p, nil
}

// ListChildProjects returns the active projects whose parent_id is parentID,
// ordered by name.
func ListChildProjects(ctx context.Context, db *sql.DB, parentID string) ([]triage.Project, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+projectColumns+`
		FROM projects
		WHERE parent_id = ? AND is_active = 1
		ORDER BY name, id
	`, parentID)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var out []triage.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*triage.Project, error) {
	var (
		p              triage.Project
		isParent       sql.NullBool
		parentID       sql.NullString
		tablePrefix    sql.NullString
		databaseSchema sql.NullString
	)
	err := row.Scan(
		&p.ID, &p.Name, &p.Slug, &isParent, &parentID,
		&tablePrefix, &databaseSchema, &p.IsActive, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	var flag *bool
	if isParent.Valid {
		flag = &isParent.Bool
	}
	p.ParentFlag = triage.ParentFlagFrom(flag)
	p.ParentID = fromNullString(parentID)
	p.TablePrefix = fromNullString(tablePrefix)
	p.DatabaseSchema = fromNullString(databaseSchema)
	return &p, nil
}
