package ops

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/triage/internal/bucket"
	"github.com/hpungsan/triage/internal/config"
	"github.com/hpungsan/triage/internal/db"
	"github.com/hpungsan/triage/internal/errors"
	"github.com/hpungsan/triage/internal/triage"
)

func statFor(t *testing.T, out *BucketCountsOutput, label string) BucketStat {
	t.Helper()
	for _, b := range out.Buckets {
		if b.Label == label {
			return b
		}
	}
	t.Fatalf("bucket %q missing from output", label)
	return BucketStat{}
}

func TestBucketCounts_Scenario(t *testing.T) {
	database := setupDB(t)
	cfg := config.DefaultConfig()
	addProject(t, database, "p", triage.FlagParent, nil)
	addN(t, database, "p", "Todos", "flagged", 3)
	addN(t, database, "p", "Todos", "pending", 2)
	addN(t, database, "p", "Todos", "open", 5)

	out, err := BucketCounts(context.Background(), database, cfg, BucketCountsInput{ProjectID: "p"})
	require.NoError(t, err)

	todos := statFor(t, out, "Todos")
	assert.Equal(t, db.StatusCounts{Flagged: 3, Pending: 2, Finalized: 5}, todos.StatusCounts)
	assert.Equal(t, 5, out.Total)
	assert.Len(t, out.Buckets, len(bucket.All()))
	assert.Empty(t, out.Degraded)
}

func TestBucketCounts_TotalSumsFinalizedAcrossBuckets(t *testing.T) {
	database := setupDB(t)
	addProject(t, database, "p", triage.FlagParent, nil)
	addN(t, database, "p", "Todos", "open", 2)
	addN(t, database, "p", "Decisions", "decided", 3)
	addN(t, database, "p", "Snippets", "flagged", 4)

	out, err := BucketCounts(context.Background(), database, config.DefaultConfig(), BucketCountsInput{ProjectID: "p"})
	require.NoError(t, err)
	assert.Equal(t, 5, out.Total)
}

func TestBucketCounts_DegradedBucketIsZero(t *testing.T) {
	database := setupDB(t)
	addProject(t, database, "p", triage.FlagParent, nil)
	addN(t, database, "p", "Todos", "flagged", 2)
	addN(t, database, "p", "Lessons", "flagged", 2)

	_, err := database.Exec("DROP TABLE lessons")
	require.NoError(t, err)

	out, err := BucketCounts(context.Background(), database, config.DefaultConfig(), BucketCountsInput{ProjectID: "p"})
	require.NoError(t, err)

	lessons := statFor(t, out, "Lessons")
	assert.True(t, lessons.Degraded)
	assert.Equal(t, db.StatusCounts{}, lessons.StatusCounts)
	assert.Equal(t, []string{"Lessons"}, out.Degraded)
	assert.Equal(t, 2, statFor(t, out, "Todos").Flagged)
}

func TestBucketCounts_PendingViewExcludesExitedSessions(t *testing.T) {
	database := setupDB(t)
	ctx := context.Background()
	addProject(t, database, "p", triage.FlagParent, nil)
	_, err := IngestSessions(ctx, database, IngestSessionsInput{Sessions: []SessionRecord{
		{ID: "live", Status: triage.SessionProcessed},
		{ID: "done", Status: triage.SessionArchived},
	}})
	require.NoError(t, err)
	addItems(t, database,
		ItemRecord{ProjectID: "p", Bucket: "Todos", Status: "flagged", SourceSessionID: stringPtr("live")},
		ItemRecord{ProjectID: "p", Bucket: "Todos", Status: "flagged", SourceSessionID: stringPtr("done")},
	)

	pending, err := BucketCounts(ctx, database, config.DefaultConfig(), BucketCountsInput{ProjectID: "p"})
	require.NoError(t, err)
	assert.Equal(t, 1, statFor(t, pending, "Todos").Flagged)

	published, err := BucketCounts(ctx, database, config.DefaultConfig(), BucketCountsInput{ProjectID: "p", View: ViewPublished})
	require.NoError(t, err)
	assert.Equal(t, 2, statFor(t, published, "Todos").Flagged)
}

func TestBucketCounts_Validation(t *testing.T) {
	database := setupDB(t)
	cfg := config.DefaultConfig()
	ctx := context.Background()

	_, err := BucketCounts(ctx, database, cfg, BucketCountsInput{})
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))

	_, err = BucketCounts(ctx, database, cfg, BucketCountsInput{ProjectID: "p", Window: "7d"})
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))

	_, err = BucketCounts(ctx, database, cfg, BucketCountsInput{ProjectID: "p", View: "everything"})
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestBucketCounts_Window(t *testing.T) {
	database := setupDB(t)
	at := time.Unix(1_700_000_000, 0)
	fixClock(t, at)
	addProject(t, database, "p", triage.FlagParent, nil)
	addItems(t, database,
		ItemRecord{ProjectID: "p", Bucket: "Todos", Status: "flagged", CreatedAt: at.Add(-30 * time.Minute).Unix()},
		ItemRecord{ProjectID: "p", Bucket: "Todos", Status: "flagged", CreatedAt: at.Add(-3 * time.Hour).Unix()},
		ItemRecord{ProjectID: "p", Bucket: "Todos", Status: "flagged", CreatedAt: at.Add(-48 * time.Hour).Unix()},
	)

	for window, want := range map[string]int{WindowHour: 1, WindowDay: 2, WindowAll: 3} {
		out, err := BucketCounts(context.Background(), database, config.DefaultConfig(), BucketCountsInput{ProjectID: "p", Window: window})
		require.NoError(t, err)
		assert.Equal(t, want, statFor(t, out, "Todos").Flagged, "window %q", window)
	}
}

func TestBucketSummary(t *testing.T) {
	database := setupDB(t)
	addProject(t, database, "p", triage.FlagParent, nil)
	addProject(t, database, "q", triage.FlagParent, nil)
	addN(t, database, "p", "Todos", "flagged", 2)
	addN(t, database, "p", "Bugs Open", "flagged", 1)
	addN(t, database, "q", "Todos", "flagged", 4)
	addN(t, database, "p", "Todos", "pending", 7)

	all, err := BucketSummary(context.Background(), database, config.DefaultConfig(), BucketSummaryInput{})
	require.NoError(t, err)
	assert.Equal(t, 6, all.Buckets["Todos"])
	assert.Equal(t, 7, all.TotalFlagged)
	assert.Contains(t, all.Buckets, "Decisions")

	scoped, err := BucketSummary(context.Background(), database, config.DefaultConfig(), BucketSummaryInput{ProjectID: "p"})
	require.NoError(t, err)
	assert.Equal(t, 3, scoped.TotalFlagged)
}

func TestSystemBuckets(t *testing.T) {
	database := setupDB(t)
	ctx := context.Background()
	addProject(t, database, "p", triage.FlagParent, nil)
	_, err := IngestSessions(ctx, database, IngestSessionsInput{Sessions: []SessionRecord{
		{Status: triage.SessionActive},
		{Status: triage.SessionActive},
		{Status: triage.SessionProcessed},
		{Status: triage.SessionArchived},
	}})
	require.NoError(t, err)
	addN(t, database, "p", "Todos", "flagged", 1)
	addN(t, database, "p", "Decisions", "pending", 2)
	addN(t, database, "p", "Knowledge", "cataloged", 3)

	out, err := SystemBuckets(ctx, database, config.DefaultConfig(), SystemBucketsInput{})
	require.NoError(t, err)
	assert.Equal(t, SystemTotals{Active: 2, Processed: 1, Flagged: 1, Pending: 2, Published: 3}, out.Buckets)
	assert.Equal(t, 1, out.Stats.Sessions[triage.SessionArchived])
	assert.Equal(t, 0, out.Stats.Sessions[triage.SessionCleaned])
	assert.Empty(t, out.Stats.Degraded)
}

func TestSystemBuckets_SessionsDegrade(t *testing.T) {
	database := setupDB(t)
	addProject(t, database, "p", triage.FlagParent, nil)
	addN(t, database, "p", "Todos", "flagged", 1)
	_, err := database.Exec("DROP TABLE sessions")
	require.NoError(t, err)

	out, err := SystemBuckets(context.Background(), database, config.DefaultConfig(), SystemBucketsInput{})
	require.NoError(t, err)
	assert.Equal(t, 0, out.Buckets.Active)
	assert.Equal(t, 1, out.Buckets.Flagged)
	assert.Contains(t, out.Stats.Degraded, "sessions")
}

func TestActivity(t *testing.T) {
	database := setupDB(t)
	ctx := context.Background()
	at := time.Unix(1_700_000_000, 0)
	addProject(t, database, "p", triage.FlagParent, nil)

	fixClock(t, at.Add(-2*time.Hour))
	addN(t, database, "p", "Todos", "flagged", 2)
	_, err := IngestSessions(ctx, database, IngestSessionsInput{Sessions: []SessionRecord{{Status: triage.SessionActive}}})
	require.NoError(t, err)

	fixClock(t, at.Add(-10*time.Minute))
	addN(t, database, "p", "Todos", "pending", 1)

	fixClock(t, at)
	hour, err := Activity(ctx, database, config.DefaultConfig(), ActivityInput{Window: WindowHour})
	require.NoError(t, err)
	assert.Equal(t, 1, hour.Items)
	assert.Equal(t, 1, hour.Pending)
	assert.Equal(t, 0, hour.Flagged)
	assert.Equal(t, 0, hour.Sessions[triage.SessionActive])

	day, err := Activity(ctx, database, config.DefaultConfig(), ActivityInput{})
	require.NoError(t, err)
	assert.Equal(t, WindowDay, day.Window)
	assert.Equal(t, 3, day.Items)
	assert.Equal(t, 2, day.Flagged)
	assert.Equal(t, 1, day.Sessions[triage.SessionActive])
	assert.False(t, day.Degraded)
}
