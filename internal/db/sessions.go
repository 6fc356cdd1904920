package db

import (
	"context"
	"database/sql"

	"github.com/hpungsan/triage/internal/errors"
	"github.com/hpungsan/triage/internal/triage"
)

const sessionColumns = `id, project_id, status, source, message_count, started_at, ended_at, created_at`

// SessionFilters narrows ListSessions. Nil fields are ignored.
type SessionFilters struct {
	Status    *string
	ProjectID *string
}

// insertSession stores one session inside q.
func insertSession(ctx context.Context, q queryer, s *triage.Session) error {
	var endedAt sql.NullInt64
	if s.EndedAt != nil {
		endedAt = sql.NullInt64{Int64: *s.EndedAt, Valid: true}
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		s.ID, toNullString(s.ProjectID), s.Status, s.Source, s.MessageCount,
		s.StartedAt, endedAt, s.CreatedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return errors.NewConflict("session already exists: " + s.ID)
		}
		return errors.NewInternal(err)
	}
	return nil
}

// InsertSessions stores sessions atomically: either all rows land or none.
func InsertSessions(ctx context.Context, db *sql.DB, sessions []triage.Session) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback()

	for i := range sessions {
		if err := insertSession(ctx, tx, &sessions[i]); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// GetSession retrieves a session by id.
func GetSession(ctx context.Context, db *sql.DB, id string) (*triage.Session, error) {
	row := db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	s, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("session", id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return s, nil
}

// ListSessions returns sessions newest first with the total matching count.
func ListSessions(ctx context.Context, db *sql.DB, f SessionFilters, limit, offset int) ([]triage.Session, int, error) {
	where := " WHERE 1=1"
	var args []any
	if f.Status != nil {
		where += " AND status = ?"
		args = append(args, *f.Status)
	}
	if f.ProjectID != nil {
		where += " AND project_id = ?"
		args = append(args, *f.ProjectID)
	}

	var total int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sessions"+where, args...).Scan(&total); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	query := "SELECT " + sessionColumns + " FROM sessions" + where + " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	rows, err := db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	defer rows.Close()

	var out []triage.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, 0, errors.NewInternal(err)
		}
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	return out, total, nil
}

// CountSessionsByStatus counts sessions per status, optionally only those
// created at or after since.
func CountSessionsByStatus(ctx context.Context, db *sql.DB, since *int64) (map[string]int, error) {
	query := "SELECT status, COUNT(*) FROM sessions"
	var args []any
	if since != nil {
		query += " WHERE created_at >= ?"
		args = append(args, *since)
	}
	query += " GROUP BY status"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	out := make(map[string]int, len(triage.SessionStatuses))
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, errors.NewInternal(err)
		}
		out[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return out, nil
}

func scanSession(row rowScanner) (*triage.Session, error) {
	var (
		s         triage.Session
		projectID sql.NullString
		endedAt   sql.NullInt64
	)
	err := row.Scan(
		&s.ID, &projectID, &s.Status, &s.Source, &s.MessageCount,
		&s.StartedAt, &endedAt, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.ProjectID = fromNullString(projectID)
	if endedAt.Valid {
		s.EndedAt = &endedAt.Int64
	}
	return &s, nil
}
