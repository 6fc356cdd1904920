package ops

import (
	"context"
	"database/sql"
	"strings"

	"github.com/hpungsan/triage/internal/config"
	"github.com/hpungsan/triage/internal/db"
	"github.com/hpungsan/triage/internal/errors"
)

// PromoteRef addresses one queue item by bucket label and id.
type PromoteRef struct {
	Bucket string `json:"bucket"`
	ID     string `json:"id"`
}

// PromoteInput contains parameters for the Promote operation.
type PromoteInput struct {
	ProjectID string       // required, must be a parent
	Items     []PromoteRef // required
}

// PromoteOutput contains the result of the Promote operation.
type PromoteOutput struct {
	ProjectID string       `json:"project_id"`
	Promoted  []db.ItemRef `json:"promoted"`
	// Skipped lists refs that were not ready or not owned by an active child.
	Skipped []PromoteRef `json:"skipped"`
}

// Promote marks ready child items as promoted to this parent, which removes
// them from its promotion queue.
func Promote(ctx context.Context, database *sql.DB, cfg *config.Config, input PromoteInput) (*PromoteOutput, error) {
	projectID, err := requireProjectID(input.ProjectID)
	if err != nil {
		return nil, err
	}
	if len(input.Items) == 0 {
		return nil, errors.NewInvalidRequest("items must not be empty")
	}
	if limit := pageSize(cfg); len(input.Items) > limit {
		return nil, errors.NewTooManyIDs(limit, len(input.Items))
	}

	refs := make([]db.ItemRef, 0, len(input.Items))
	for _, it := range input.Items {
		id := strings.TrimSpace(it.ID)
		if id == "" {
			return nil, errors.NewInvalidRequest("item id must not be empty")
		}
		b, err := lookupBucket(it.Bucket)
		if err != nil {
			return nil, err
		}
		refs = append(refs, db.ItemRef{Collection: b.Collection, ID: id})
	}

	if err := requireParent(ctx, database, projectID); err != nil {
		return nil, err
	}
	childIDs, _, err := activeChildren(ctx, database, projectID)
	if err != nil {
		return nil, err
	}

	out := &PromoteOutput{ProjectID: projectID, Promoted: []db.ItemRef{}, Skipped: []PromoteRef{}}
	if len(childIDs) > 0 {
		promoted, err := db.MarkPromoted(ctx, database, projectID, childIDs, refs, now().Unix())
		if err != nil {
			return nil, err
		}
		out.Promoted = append(out.Promoted, promoted...)
	}

	done := make(map[db.ItemRef]bool, len(out.Promoted))
	for _, r := range out.Promoted {
		done[r] = true
	}
	for i, r := range refs {
		if !done[r] {
			out.Skipped = append(out.Skipped, input.Items[i])
		}
	}
	return out, nil
}
