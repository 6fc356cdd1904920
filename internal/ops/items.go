package ops

import (
	"context"
	"database/sql"
	"slices"
	"strings"

	"github.com/hpungsan/triage/internal/bucket"
	"github.com/hpungsan/triage/internal/db"
	"github.com/hpungsan/triage/internal/errors"
	"github.com/hpungsan/triage/internal/triage"
)

// ListItemsInput contains parameters for the ListItems operation.
type ListItemsInput struct {
	ProjectID string // required
	Bucket    string // required label
	Status    string // optional; "finalized" is not a stored value and is rejected
	Limit     int    // default 50, max 500
}

// ListItemsOutput contains the result of the ListItems operation.
type ListItemsOutput struct {
	ProjectID string        `json:"project_id"`
	Bucket    string        `json:"bucket"`
	Statuses  []string      `json:"statuses"`
	Items     []triage.Item `json:"items"`
}

// ListItems returns one bucket's items for a project, newest first.
func ListItems(ctx context.Context, database *sql.DB, input ListItemsInput) (*ListItemsOutput, error) {
	projectID, err := requireProjectID(input.ProjectID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Bucket) == "" {
		return nil, errors.NewInvalidRequest("bucket is required")
	}
	b, err := lookupBucket(input.Bucket)
	if err != nil {
		return nil, err
	}

	f := db.ItemFilters{ProjectID: &projectID}
	if s := strings.TrimSpace(input.Status); s != "" {
		if triage.Phase(s) == triage.PhaseFinalized {
			return nil, errors.NewInvalidRequest("status filters on stored values; use the bucket counts for finalized totals")
		}
		f.Status = &s
	}

	items, err := db.ListItems(ctx, database, b, f, clampLimit(input.Limit, DefaultListLimit, MaxListLimit))
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []triage.Item{}
	}
	return &ListItemsOutput{
		ProjectID: projectID,
		Bucket:    b.Label,
		Statuses:  filterStatuses(b),
		Items:     items,
	}, nil
}

// filterStatuses lists the stored values a status filter can match for b.
func filterStatuses(b bucket.Bucket) []string {
	out := []string{string(triage.PhaseFlagged), string(triage.PhasePending)}
	for _, s := range b.Statuses {
		if !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}
