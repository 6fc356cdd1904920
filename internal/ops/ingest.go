package ops

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hpungsan/triage/internal/db"
	"github.com/hpungsan/triage/internal/errors"
	"github.com/hpungsan/triage/internal/triage"
)

// MaxIngestBatch caps the number of rows accepted by one ingest call.
const MaxIngestBatch = 1000

// SessionRecord is one session handed over by the capture process.
type SessionRecord struct {
	ID           string  `json:"id"`
	ProjectID    *string `json:"project_id"`
	Status       string  `json:"status"`
	Source       string  `json:"source"`
	MessageCount int     `json:"message_count"`
	StartedAt    int64   `json:"started_at"`
	EndedAt      *int64  `json:"ended_at"`
}

// IngestSessionsInput contains parameters for the IngestSessions operation.
type IngestSessionsInput struct {
	Sessions []SessionRecord
}

// IngestOutput reports the ids written by an ingest call.
type IngestOutput struct {
	Inserted int      `json:"inserted"`
	IDs      []string `json:"ids"`
}

// IngestSessions stores captured sessions in one transaction. Missing ids
// are assigned a ULID; a missing status defaults to active.
func IngestSessions(ctx context.Context, database *sql.DB, input IngestSessionsInput) (*IngestOutput, error) {
	if len(input.Sessions) == 0 {
		return nil, errors.NewInvalidRequest("sessions must not be empty")
	}
	if len(input.Sessions) > MaxIngestBatch {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("at most %d sessions per call", MaxIngestBatch))
	}

	ts := now().Unix()
	rows := make([]triage.Session, 0, len(input.Sessions))
	for i, rec := range input.Sessions {
		id := strings.TrimSpace(rec.ID)
		if id == "" {
			var err error
			if id, err = generateULID(); err != nil {
				return nil, errors.NewInternal(err)
			}
		}
		status := strings.TrimSpace(rec.Status)
		if status == "" {
			status = triage.SessionActive
		}
		if !triage.ValidSessionStatus(status) {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("sessions[%d]: invalid status %q", i, rec.Status))
		}
		if rec.MessageCount < 0 {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("sessions[%d]: message_count must be >= 0", i))
		}
		startedAt := rec.StartedAt
		if startedAt == 0 {
			startedAt = ts
		}
		rows = append(rows, triage.Session{
			ID:           id,
			ProjectID:    rec.ProjectID,
			Status:       status,
			Source:       rec.Source,
			MessageCount: rec.MessageCount,
			StartedAt:    startedAt,
			EndedAt:      rec.EndedAt,
			CreatedAt:    ts,
		})
	}

	if err := db.InsertSessions(ctx, database, rows); err != nil {
		return nil, err
	}
	out := &IngestOutput{Inserted: len(rows), IDs: make([]string, len(rows))}
	for i, s := range rows {
		out.IDs[i] = s.ID
	}
	return out, nil
}

// ItemRecord is one item handed over by the extraction process.
type ItemRecord struct {
	ID              string          `json:"id"`
	ProjectID       string          `json:"project_id"`
	Bucket          string          `json:"bucket"`
	Status          string          `json:"status"`
	Title           string          `json:"title"`
	Content         string          `json:"content"`
	Priority        *string         `json:"priority"`
	SourceSessionID *string         `json:"source_session_id"`
	Metadata        triage.Metadata `json:"metadata"`
	CreatedAt       int64           `json:"created_at"`
}

// IngestItemsInput contains parameters for the IngestItems operation.
type IngestItemsInput struct {
	Items []ItemRecord
}

// IngestItems stores extracted items in one transaction. Every item must
// name a registered bucket and an existing project. A missing status
// defaults to flagged.
func IngestItems(ctx context.Context, database *sql.DB, input IngestItemsInput) (*IngestOutput, error) {
	if len(input.Items) == 0 {
		return nil, errors.NewInvalidRequest("items must not be empty")
	}
	if len(input.Items) > MaxIngestBatch {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("at most %d items per call", MaxIngestBatch))
	}

	ts := now().Unix()
	checked := make(map[string]bool)
	rows := make([]triage.Item, 0, len(input.Items))
	for i, rec := range input.Items {
		projectID := strings.TrimSpace(rec.ProjectID)
		if projectID == "" {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("items[%d]: project_id is required", i))
		}
		if !checked[projectID] {
			if _, err := db.GetProject(ctx, database, projectID); err != nil {
				return nil, err
			}
			checked[projectID] = true
		}
		b, err := lookupBucket(rec.Bucket)
		if err != nil {
			return nil, err
		}

		id := strings.TrimSpace(rec.ID)
		if id == "" {
			if id, err = generateULID(); err != nil {
				return nil, errors.NewInternal(err)
			}
		}
		status := strings.TrimSpace(rec.Status)
		if status == "" {
			status = triage.StatusFlagged
		}
		createdAt := rec.CreatedAt
		if createdAt == 0 {
			createdAt = ts
		}
		meta := rec.Metadata
		if meta == nil {
			meta = triage.Metadata{}
		}

		it := triage.Item{
			ID:              id,
			ProjectID:       projectID,
			Bucket:          b.Label,
			Collection:      b.Collection,
			Status:          status,
			Title:           rec.Title,
			Content:         rec.Content,
			Priority:        rec.Priority,
			SourceSessionID: rec.SourceSessionID,
			Metadata:        meta,
			CreatedAt:       createdAt,
			UpdatedAt:       ts,
		}
		if c := b.Category(); c != "" {
			it.Category = &c
		}
		rows = append(rows, it)
	}

	if err := db.InsertItems(ctx, database, rows); err != nil {
		return nil, err
	}
	out := &IngestOutput{Inserted: len(rows), IDs: make([]string, len(rows))}
	for i, it := range rows {
		out.IDs[i] = it.ID
	}
	return out, nil
}
