package ops

import (
	"context"
	"database/sql"
	"strings"

	"github.com/hpungsan/triage/internal/db"
	"github.com/hpungsan/triage/internal/errors"
	"github.com/hpungsan/triage/internal/triage"
)

// ListSessionsInput contains parameters for the ListSessions operation.
type ListSessionsInput struct {
	Status    string // optional
	ProjectID string // optional
	Limit     int    // default 50, max 500
	Offset    int
}

// ListSessionsOutput contains the result of the ListSessions operation.
type ListSessionsOutput struct {
	Sessions   []triage.Session `json:"sessions"`
	Pagination Pagination       `json:"pagination"`
}

// ListSessions returns ledger rows newest first.
func ListSessions(ctx context.Context, database *sql.DB, input ListSessionsInput) (*ListSessionsOutput, error) {
	var f db.SessionFilters
	if s := strings.TrimSpace(input.Status); s != "" {
		if !triage.ValidSessionStatus(s) {
			return nil, errors.NewInvalidRequest("status must be one of: " + strings.Join(triage.SessionStatuses, ", "))
		}
		f.Status = &s
	}
	if p := strings.TrimSpace(input.ProjectID); p != "" {
		f.ProjectID = &p
	}

	limit := clampLimit(input.Limit, DefaultListLimit, MaxListLimit)
	offset := max(input.Offset, 0)

	sessions, total, err := db.ListSessions(ctx, database, f, limit, offset)
	if err != nil {
		return nil, err
	}
	if sessions == nil {
		sessions = []triage.Session{}
	}

	return &ListSessionsOutput{
		Sessions: sessions,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(sessions) < total,
			Total:   total,
		},
	}, nil
}

// GetSessionInput contains parameters for the GetSession operation.
type GetSessionInput struct {
	ID string // required
}

// GetSessionOutput is a session with its downstream item counts.
type GetSessionOutput struct {
	triage.Session
	// Items maps bucket label to the number of items extracted from this session.
	Items      map[string]int `json:"items"`
	TotalItems int            `json:"total_items"`
	Exited     bool           `json:"exited"`
}

// GetSession retrieves a session and counts the items linked to it.
func GetSession(ctx context.Context, database *sql.DB, input GetSessionInput) (*GetSessionOutput, error) {
	id := strings.TrimSpace(input.ID)
	if id == "" {
		return nil, errors.NewInvalidRequest("id is required")
	}

	s, err := db.GetSession(ctx, database, id)
	if err != nil {
		return nil, err
	}
	counts, err := db.CountItemsBySession(ctx, database, id)
	if err != nil {
		return nil, err
	}

	out := &GetSessionOutput{Session: *s, Items: counts, Exited: triage.SessionExited(s.Status)}
	for _, n := range counts {
		out.TotalItems += n
	}
	return out, nil
}
