package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/triage/internal/bucket"
	"github.com/hpungsan/triage/internal/db"
	"github.com/hpungsan/triage/internal/errors"
	"github.com/hpungsan/triage/internal/triage"
)

// JournalInput contains parameters for the ConsolidatedJournal operation.
type JournalInput struct {
	ProjectID string // required, must be a parent
	Limit     int    // default 100, max 500
}

// JournalEntry is one child journal item.
type JournalEntry struct {
	triage.Item
	ChildProjectName string `json:"child_project_name"`
}

// JournalOutput contains the result of the ConsolidatedJournal operation.
type JournalOutput struct {
	Entries    []JournalEntry `json:"entries"`
	ChildCount int            `json:"child_count"`
}

// ConsolidatedJournal merges the journal bucket of every active child,
// newest first.
func ConsolidatedJournal(ctx context.Context, database *sql.DB, input JournalInput) (*JournalOutput, error) {
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
	out := &JournalOutput{Entries: []JournalEntry{}, ChildCount: len(childIDs)}
	if len(childIDs) == 0 {
		return out, nil
	}

	journal, ok := bucket.Lookup(bucket.Journal)
	if !ok {
		return nil, errors.NewInternal(nil)
	}
	limit := clampLimit(input.Limit, DefaultJournalLimit, MaxJournalLimit)
	items, err := db.ListItemsForProjects(ctx, database, journal, childIDs, limit)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		out.Entries = append(out.Entries, JournalEntry{Item: it, ChildProjectName: names[it.ProjectID]})
	}
	return out, nil
}
