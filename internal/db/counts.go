package db

import (
	"context"
	"database/sql"

	"github.com/hpungsan/triage/internal/bucket"
	"github.com/hpungsan/triage/internal/errors"
	"github.com/hpungsan/triage/internal/triage"
)

// CountFilter scopes a per-bucket count. Nil fields are ignored.
type CountFilter struct {
	ProjectID *string
	// Since keeps items created at or after this unix time.
	Since *int64
	// ExcludeExited drops items whose source session is cleaned or archived.
	ExcludeExited bool
}

// StatusCounts is the lifecycle partition of one bucket.
type StatusCounts struct {
	Flagged   int `json:"flagged"`
	Pending   int `json:"pending"`
	Finalized int `json:"finalized"`
}

// Add accumulates o into c.
func (c *StatusCounts) Add(o StatusCounts) {
	c.Flagged += o.Flagged
	c.Pending += o.Pending
	c.Finalized += o.Finalized
}

// CountByStatus partitions one bucket's items into flagged, pending and
// finalized. Finalized is everything outside the two triage statuses, so new
// status vocabularies need no registry change.
func CountByStatus(ctx context.Context, db *sql.DB, b bucket.Bucket, f CountFilter) (StatusCounts, error) {
	tbl, err := table(b.Collection)
	if err != nil {
		return StatusCounts{}, errors.NewInternal(err)
	}

	query := `
		SELECT
		  COALESCE(SUM(CASE WHEN i.status = ? THEN 1 ELSE 0 END), 0),
		  COALESCE(SUM(CASE WHEN i.status = ? THEN 1 ELSE 0 END), 0),
		  COALESCE(SUM(CASE WHEN i.status NOT IN (?, ?) THEN 1 ELSE 0 END), 0)
		FROM ` + tbl + ` i`
	args := []any{
		triage.StatusFlagged, triage.StatusPending,
		triage.StatusFlagged, triage.StatusPending,
	}
	if f.ExcludeExited {
		query += ` LEFT JOIN sessions s ON s.id = i.source_session_id`
	}
	query += ` WHERE 1=1`

	disc, dargs := bucketWhere("i.", b)
	query += disc
	args = append(args, dargs...)

	if f.ProjectID != nil {
		query += ` AND i.project_id = ?`
		args = append(args, *f.ProjectID)
	}
	if f.Since != nil {
		query += ` AND i.created_at >= ?`
		args = append(args, *f.Since)
	}
	if f.ExcludeExited {
		query += ` AND (s.status IS NULL OR s.status NOT IN (?, ?))`
		args = append(args, triage.SessionCleaned, triage.SessionArchived)
	}

	var c StatusCounts
	if err := db.QueryRowContext(ctx, query, args...).Scan(&c.Flagged, &c.Pending, &c.Finalized); err != nil {
		return StatusCounts{}, errors.NewInternal(err)
	}
	return c, nil
}

// CountItemsSince counts items created at or after since across every
// collection.
func CountItemsSince(ctx context.Context, db *sql.DB, since int64) (int, error) {
	total := 0
	for _, coll := range bucket.Collections() {
		tbl, err := table(coll)
		if err != nil {
			return 0, errors.NewInternal(err)
		}
		var n int
		if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+tbl+` WHERE created_at >= ?`, since).Scan(&n); err != nil {
			return 0, errors.NewInternal(err)
		}
		total += n
	}
	return total, nil
}
