package ops

import (
	"context"
	"database/sql"
	"strings"

	"github.com/hpungsan/triage/internal/bucket"
	"github.com/hpungsan/triage/internal/config"
	"github.com/hpungsan/triage/internal/db"
	"github.com/hpungsan/triage/internal/errors"
)

// SetReadyInput contains parameters for the SetReady operation.
type SetReadyInput struct {
	ProjectID string   // required
	ItemIDs   []string // required, at most the promotion page size
	Ready     *bool    // required
	Bucket    string   // optional; narrows the update to one collection
}

// SetReadyOutput contains the result of the SetReady operation.
type SetReadyOutput struct {
	ProjectID  string       `json:"project_id"`
	Ready      bool         `json:"ready"`
	Updated    []db.ItemRef `json:"updated"`
	UpdatedIDs []string     `json:"updated_ids"`
	// Missing lists requested ids that matched no item of the project.
	Missing []string `json:"missing"`
}

// SetReady toggles ready_for_publish on a batch of one project's items.
// Only that metadata key changes; other keys are preserved. The update is
// scoped by project so a colliding id in another project is never touched.
func SetReady(ctx context.Context, database *sql.DB, cfg *config.Config, input SetReadyInput) (*SetReadyOutput, error) {
	projectID, err := requireProjectID(input.ProjectID)
	if err != nil {
		return nil, err
	}
	if input.Ready == nil {
		return nil, errors.NewInvalidRequest("ready is required")
	}

	ids := make([]string, 0, len(input.ItemIDs))
	seen := make(map[string]bool, len(input.ItemIDs))
	for _, id := range input.ItemIDs {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, errors.NewInvalidRequest("item_ids must not be empty")
	}
	if limit := pageSize(cfg); len(ids) > limit {
		return nil, errors.NewTooManyIDs(limit, len(ids))
	}

	collections := bucket.Collections()
	if input.Bucket != "" {
		b, err := lookupBucket(input.Bucket)
		if err != nil {
			return nil, err
		}
		collections = []string{b.Collection}
	}

	if _, err := db.GetProject(ctx, database, projectID); err != nil {
		return nil, err
	}

	updated, err := db.SetReadyForPublish(ctx, database, projectID, collections, ids, *input.Ready, now().Unix())
	if err != nil {
		return nil, err
	}

	out := &SetReadyOutput{
		ProjectID:  projectID,
		Ready:      *input.Ready,
		Updated:    []db.ItemRef{},
		UpdatedIDs: []string{},
		Missing:    []string{},
	}
	hit := make(map[string]bool, len(updated))
	for _, ref := range updated {
		out.Updated = append(out.Updated, ref)
		if !hit[ref.ID] {
			out.UpdatedIDs = append(out.UpdatedIDs, ref.ID)
		}
		hit[ref.ID] = true
	}
	for _, id := range ids {
		if !hit[id] {
			out.Missing = append(out.Missing, id)
		}
	}
	return out, nil
}
