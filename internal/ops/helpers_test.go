package ops

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/triage/internal/db"
	"github.com/hpungsan/triage/internal/triage"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

// fixedTime is an arbitrary clock reading for deterministic timestamps.
var fixedTime = time.Unix(1_700_000_000, 0)

func stringPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }

// fixClock pins now() for the duration of the test.
func fixClock(t *testing.T, at time.Time) {
	t.Helper()
	prev := now
	now = func() time.Time { return at }
	t.Cleanup(func() { now = prev })
}

func addProject(t *testing.T, database *sql.DB, id string, flag triage.ParentFlag, parentID *string) {
	t.Helper()
	require.NoError(t, db.InsertProject(context.Background(), database, &triage.Project{
		ID:         id,
		Name:       "Project " + id,
		Slug:       id,
		ParentFlag: flag,
		ParentID:   parentID,
		IsActive:   true,
		CreatedAt:  1,
	}))
}

func addItems(t *testing.T, database *sql.DB, recs ...ItemRecord) []string {
	t.Helper()
	out, err := IngestItems(context.Background(), database, IngestItemsInput{Items: recs})
	require.NoError(t, err)
	return out.IDs
}

// addN ingests n items of one bucket and status for a project.
func addN(t *testing.T, database *sql.DB, projectID, label, status string, n int) {
	t.Helper()
	recs := make([]ItemRecord, n)
	for i := range recs {
		recs[i] = ItemRecord{
			ProjectID: projectID,
			Bucket:    label,
			Status:    status,
			Title:     fmt.Sprintf("%s %s %d", label, status, i),
		}
	}
	addItems(t, database, recs...)
}
