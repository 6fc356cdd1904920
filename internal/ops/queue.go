package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/triage/internal/config"
	"github.com/hpungsan/triage/internal/db"
	"github.com/hpungsan/triage/internal/triage"
)

// PromotionQueueInput contains parameters for the PromotionQueue operation.
type PromotionQueueInput struct {
	ProjectID string // required, must be a parent
}

// QueueItem is one promotable item enriched with its owning child project.
type QueueItem struct {
	ID               string          `json:"id"`
	ChildProjectID   string          `json:"child_project_id"`
	ChildProjectName string          `json:"child_project_name"`
	Bucket           string          `json:"bucket"`
	Status           string          `json:"status"`
	Title            string          `json:"title"`
	Content          string          `json:"content"`
	Priority         *string         `json:"priority"`
	SourceSessionID  *string         `json:"source_session_id"`
	CreatedAt        int64           `json:"created_at"`
	Metadata         triage.Metadata `json:"metadata"`
}

// PromotionQueueOutput contains the result of the PromotionQueue operation.
type PromotionQueueOutput struct {
	Items      []QueueItem `json:"items"`
	ChildCount int         `json:"child_count"`
}

// PromotionQueue lists child-project items that are ready for publish and
// not yet promoted to this parent, newest first, capped at the page size.
func PromotionQueue(ctx context.Context, database *sql.DB, cfg *config.Config, input PromotionQueueInput) (*PromotionQueueOutput, error) {
	projectID, err := requireProjectID(input.ProjectID)
	if err != nil {
		return nil, err
	}
	if err := requireParent(ctx, database, projectID); err != nil {
		return nil, err
	}

	childIDs, names, err := activeChildren(ctx, database, projectID)
	if err != nil {
		return nil, err
	}

	out := &PromotionQueueOutput{Items: []QueueItem{}, ChildCount: len(childIDs)}
	if len(childIDs) == 0 {
		return out, nil
	}

	items, err := db.ListPromotable(ctx, database, projectID, childIDs, pageSize(cfg))
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		if !it.Metadata.Promotable(projectID) {
			continue
		}
		out.Items = append(out.Items, QueueItem{
			ID:               it.ID,
			ChildProjectID:   it.ProjectID,
			ChildProjectName: names[it.ProjectID],
			Bucket:           it.Bucket,
			Status:           it.Status,
			Title:            it.Title,
			Content:          it.Content,
			Priority:         it.Priority,
			SourceSessionID:  it.SourceSessionID,
			CreatedAt:        it.CreatedAt,
			Metadata:         it.Metadata,
		})
	}
	return out, nil
}
