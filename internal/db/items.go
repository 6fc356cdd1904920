package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hpungsan/triage/internal/bucket"
	"github.com/hpungsan/triage/internal/errors"
	"github.com/hpungsan/triage/internal/triage"
)

const itemColumns = `id, project_id, category, status, title, content, priority, source_session_id, metadata, created_at, updated_at`

// ItemRef addresses one item by collection and id.
type ItemRef struct {
	Collection string `json:"collection"`
	ID         string `json:"id"`
}

// ItemFilters narrows ListItems. Nil fields are ignored.
type ItemFilters struct {
	ProjectID *string
	Status    *string
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// bucketWhere returns the discriminator predicate for b, prefixed with AND.
func bucketWhere(alias string, b bucket.Bucket) (string, []any) {
	if b.Discriminator.IsZero() {
		return "", nil
	}
	return fmt.Sprintf(" AND %s%s = ?", alias, b.Discriminator.Column), []any{b.Discriminator.Value}
}

// InsertItems stores extracted items atomically. Each item's Collection must
// be set; Category is written as given.
func InsertItems(ctx context.Context, db *sql.DB, items []triage.Item) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback()

	for i := range items {
		it := &items[i]
		tbl, err := table(it.Collection)
		if err != nil {
			return errors.NewInvalidRequest(err.Error())
		}
		meta := it.Metadata
		if meta == nil {
			meta = triage.Metadata{}
		}
		metaJSON, err := json.Marshal(meta)
		if err != nil {
			return errors.NewInternal(err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO `+tbl+` (`+itemColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			it.ID, it.ProjectID, toNullString(it.Category), it.Status, it.Title, it.Content,
			toNullString(it.Priority), toNullString(it.SourceSessionID), string(metaJSON),
			it.CreatedAt, it.UpdatedAt,
		)
		if err != nil {
			if isUniqueConstraintError(err) {
				return errors.NewConflict(fmt.Sprintf("item already exists in %s: %s", tbl, it.ID))
			}
			return errors.NewInternal(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// ListItems returns the items of one bucket, newest first.
func ListItems(ctx context.Context, db *sql.DB, b bucket.Bucket, f ItemFilters, limit int) ([]triage.Item, error) {
	tbl, err := table(b.Collection)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	disc, args := bucketWhere("", b)
	query := "SELECT " + itemColumns + " FROM " + tbl + " WHERE 1=1" + disc
	if f.ProjectID != nil {
		query += " AND project_id = ?"
		args = append(args, *f.ProjectID)
	}
	if f.Status != nil {
		query += " AND status = ?"
		args = append(args, *f.Status)
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	return queryItems(ctx, db, tbl, query, args...)
}

// SetReadyForPublish merges ready_for_publish into the metadata of items that
// belong to projectID and whose id is in ids, across the given collections.
// All collections are updated in one transaction; the returned refs are
// exactly the rows that matched.
func SetReadyForPublish(ctx context.Context, db *sql.DB, projectID string, collections, ids []string, ready bool, now int64) ([]ItemRef, error) {
	if len(ids) == 0 || len(collections) == 0 {
		return nil, nil
	}

	readyJSON := "false"
	if ready {
		readyJSON = "true"
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer tx.Rollback()

	var updated []ItemRef
	for _, coll := range collections {
		tbl, err := table(coll)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		query := `
			UPDATE ` + tbl + `
			SET metadata = json_set(COALESCE(NULLIF(metadata, ''), '{}'), '$.` + triage.MetaReadyForPublish + `', json(?)),
			    updated_at = ?
			WHERE project_id = ? AND id IN (` + placeholders(len(ids)) + `)
			RETURNING id
		`
		args := append([]any{readyJSON, now, projectID}, stringArgs(ids)...)
		refs, err := returningRefs(ctx, tx, coll, query, args...)
		if err != nil {
			return nil, err
		}
		updated = append(updated, refs...)
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return updated, nil
}

// ListPromotable returns items of the given child projects that are ready
// for publish and not already promoted to parentID, newest first.
func ListPromotable(ctx context.Context, db *sql.DB, parentID string, childIDs []string, limit int) ([]triage.Item, error) {
	if len(childIDs) == 0 {
		return nil, nil
	}

	var (
		parts []string
		args  []any
	)
	for _, coll := range bucket.Collections() {
		tbl, err := table(coll)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		parts = append(parts, `
			SELECT '`+tbl+`' AS collection, `+itemColumns+`
			FROM `+tbl+`
			WHERE project_id IN (`+placeholders(len(childIDs))+`)
			  AND json_extract(metadata, '$.`+triage.MetaReadyForPublish+`') = 1
			  AND COALESCE(json_extract(metadata, '$.`+triage.MetaPromotedToParentID+`'), '') <> ?`)
		args = append(args, stringArgs(childIDs)...)
		args = append(args, parentID)
	}
	query := strings.Join(parts, "\nUNION ALL") + "\nORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	return queryItems(ctx, db, "", query, args...)
}

// MarkPromoted records promoted_to_parent_id on ready items of the given
// child projects. Refs are grouped by collection and written in one
// transaction; the returned refs are the rows that matched.
func MarkPromoted(ctx context.Context, db *sql.DB, parentID string, childIDs []string, refs []ItemRef, now int64) ([]ItemRef, error) {
	if len(refs) == 0 || len(childIDs) == 0 {
		return nil, nil
	}

	byColl := make(map[string][]string)
	var order []string
	for _, r := range refs {
		if _, ok := byColl[r.Collection]; !ok {
			order = append(order, r.Collection)
		}
		byColl[r.Collection] = append(byColl[r.Collection], r.ID)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer tx.Rollback()

	var updated []ItemRef
	for _, coll := range order {
		tbl, err := table(coll)
		if err != nil {
			return nil, errors.NewInvalidRequest(err.Error())
		}
		ids := byColl[coll]
		query := `
			UPDATE ` + tbl + `
			SET metadata = json_set(COALESCE(NULLIF(metadata, ''), '{}'),
			        '$.` + triage.MetaPromotedToParentID + `', ?,
			        '$.` + triage.MetaPromotedAt + `', ?),
			    updated_at = ?
			WHERE project_id IN (` + placeholders(len(childIDs)) + `)
			  AND id IN (` + placeholders(len(ids)) + `)
			  AND json_extract(metadata, '$.` + triage.MetaReadyForPublish + `') = 1
			RETURNING id
		`
		args := []any{parentID, now, now}
		args = append(args, stringArgs(childIDs)...)
		args = append(args, stringArgs(ids)...)
		got, err := returningRefs(ctx, tx, coll, query, args...)
		if err != nil {
			return nil, err
		}
		updated = append(updated, got...)
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return updated, nil
}

// ListItemsForProjects returns one bucket's items across several projects,
// newest first.
func ListItemsForProjects(ctx context.Context, db *sql.DB, b bucket.Bucket, projectIDs []string, limit int) ([]triage.Item, error) {
	if len(projectIDs) == 0 {
		return nil, nil
	}
	tbl, err := table(b.Collection)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	disc, args := bucketWhere("", b)
	query := "SELECT " + itemColumns + " FROM " + tbl +
		" WHERE project_id IN (" + placeholders(len(projectIDs)) + ")" + disc +
		" ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(stringArgs(projectIDs), args...)
	args = append(args, limit)
	return queryItems(ctx, db, tbl, query, args...)
}

// CountItemsBySession counts items per bucket label whose source session is sessionID.
func CountItemsBySession(ctx context.Context, db *sql.DB, sessionID string) (map[string]int, error) {
	out := make(map[string]int)
	for _, coll := range bucket.Collections() {
		tbl, err := table(coll)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		rows, err := db.QueryContext(ctx, `
			SELECT COALESCE(category, ''), COUNT(*)
			FROM `+tbl+`
			WHERE source_session_id = ?
			GROUP BY category
		`, sessionID)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		for rows.Next() {
			var (
				category string
				n        int
			)
			if err := rows.Scan(&category, &n); err != nil {
				rows.Close()
				return nil, errors.NewInternal(err)
			}
			out[bucket.LabelFor(coll, category)] += n
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, errors.NewInternal(err)
		}
	}
	return out, nil
}

// returningRefs runs an UPDATE ... RETURNING id and collects the ids.
func returningRefs(ctx context.Context, q queryer, coll, query string, args ...any) ([]ItemRef, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var refs []ItemRef
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.NewInternal(err)
		}
		refs = append(refs, ItemRef{Collection: coll, ID: id})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return refs, nil
}

// queryItems scans item rows. When coll is empty the first selected column
// must be the collection name.
func queryItems(ctx context.Context, q queryer, coll, query string, args ...any) ([]triage.Item, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var out []triage.Item
	for rows.Next() {
		var (
			it        triage.Item
			rowColl   = coll
			category  sql.NullString
			priority  sql.NullString
			sessionID sql.NullString
			metaJSON  string
		)
		dest := []any{
			&it.ID, &it.ProjectID, &category, &it.Status, &it.Title, &it.Content,
			&priority, &sessionID, &metaJSON, &it.CreatedAt, &it.UpdatedAt,
		}
		if coll == "" {
			dest = append([]any{&rowColl}, dest...)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, errors.NewInternal(err)
		}

		it.Collection = rowColl
		it.Category = fromNullString(category)
		it.Priority = fromNullString(priority)
		it.SourceSessionID = fromNullString(sessionID)
		it.Bucket = bucket.LabelFor(rowColl, category.String)
		it.Metadata = triage.Metadata{}
		if metaJSON != "" {
			if err := json.Unmarshal([]byte(metaJSON), &it.Metadata); err != nil {
				return nil, errors.NewInternal(fmt.Errorf("item %s: bad metadata: %w", it.ID, err))
			}
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return out, nil
}
