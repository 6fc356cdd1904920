package db

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/triage/internal/bucket"
	"github.com/hpungsan/triage/internal/errors"
	"github.com/hpungsan/triage/internal/triage"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Init(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func strPtr(s string) *string { return &s }

func seedProject(t *testing.T, db *sql.DB, id string, flag triage.ParentFlag, parentID *string) {
	t.Helper()
	require.NoError(t, InsertProject(context.Background(), db, &triage.Project{
		ID:         id,
		Name:       "Project " + id,
		Slug:       id,
		ParentFlag: flag,
		ParentID:   parentID,
		IsActive:   true,
		CreatedAt:  1000,
	}))
}

func seedItem(t *testing.T, db *sql.DB, label, id, projectID, status string, createdAt int64, meta triage.Metadata) {
	t.Helper()
	b, ok := bucket.Lookup(label)
	require.True(t, ok, "unknown label %q", label)
	it := triage.Item{
		ID:         id,
		ProjectID:  projectID,
		Collection: b.Collection,
		Status:     status,
		Title:      "title " + id,
		Content:    "content " + id,
		Metadata:   meta,
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	}
	if c := b.Category(); c != "" {
		it.Category = &c
	}
	require.NoError(t, InsertItems(context.Background(), db, []triage.Item{it}))
}

func TestGetProject_NotFound(t *testing.T) {
	db := setupDB(t)
	_, err := GetProject(context.Background(), db, "missing")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestProject_RoundTripParentFlag(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	seedProject(t, db, "p", triage.FlagParent, nil)
	seedProject(t, db, "c", triage.FlagChild, strPtr("p"))
	seedProject(t, db, "u", triage.FlagUnspecified, nil)

	for id, want := range map[string]triage.ParentFlag{
		"p": triage.FlagParent,
		"c": triage.FlagChild,
		"u": triage.FlagUnspecified,
	} {
		p, err := GetProject(ctx, db, id)
		require.NoError(t, err)
		assert.Equal(t, want, p.ParentFlag, id)
	}

	children, err := ListChildProjects(ctx, db, "p")
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "c", children[0].ID)
}

func TestInsertProject_DuplicateConflict(t *testing.T) {
	db := setupDB(t)
	seedProject(t, db, "p", triage.FlagParent, nil)
	err := InsertProject(context.Background(), db, &triage.Project{ID: "p", Name: "x", Slug: "other", IsActive: true})
	assert.True(t, errors.Is(err, errors.ErrConflict))
}

func TestListItems_DiscriminatorSplitsCollection(t *testing.T) {
	db := setupDB(t)
	seedProject(t, db, "p", triage.FlagParent, nil)
	seedItem(t, db, "Conventions", "c1", "p", "active", 10, nil)
	seedItem(t, db, bucket.FileStructure, "f1", "p", "active", 20, nil)
	seedItem(t, db, bucket.FileStructure, "f2", "p", "active", 30, nil)

	fs, _ := bucket.Lookup(bucket.FileStructure)
	items, err := ListItems(context.Background(), db, fs, ItemFilters{ProjectID: strPtr("p")}, 100)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "f2", items[0].ID, "newest first")
	assert.Equal(t, bucket.FileStructure, items[0].Bucket)
	assert.NotNil(t, items[0].Metadata)
}

func TestInsertItems_Atomic(t *testing.T) {
	db := setupDB(t)
	seedProject(t, db, "p", triage.FlagParent, nil)
	seedItem(t, db, "Todos", "dup", "p", "flagged", 1, nil)

	err := InsertItems(context.Background(), db, []triage.Item{
		{ID: "fresh", ProjectID: "p", Collection: "todos", Status: "flagged", CreatedAt: 2, UpdatedAt: 2},
		{ID: "dup", ProjectID: "p", Collection: "todos", Status: "flagged", CreatedAt: 2, UpdatedAt: 2},
	})
	assert.True(t, errors.Is(err, errors.ErrConflict))

	todos, _ := bucket.Lookup("Todos")
	items, err := ListItems(context.Background(), db, todos, ItemFilters{}, 10)
	require.NoError(t, err)
	assert.Len(t, items, 1, "failed batch must not leave partial rows")
}

func TestSetReadyForPublish_ScopedAndMerging(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	seedProject(t, db, "a", triage.FlagParent, nil)
	seedProject(t, db, "b", triage.FlagParent, nil)
	seedItem(t, db, "Todos", "t1", "a", "open", 1, triage.Metadata{"keep": "me"})
	seedItem(t, db, "Decisions", "d1", "a", "decided", 2, nil)
	seedItem(t, db, "Todos", "t2", "b", "open", 3, nil)

	updated, err := SetReadyForPublish(ctx, db, "a", bucket.Collections(), []string{"t1", "d1", "t2", "nope"}, true, 50)
	require.NoError(t, err)
	assert.ElementsMatch(t, []ItemRef{{"todos", "t1"}, {"decisions", "d1"}}, updated)

	todos, _ := bucket.Lookup("Todos")
	items, err := ListItems(ctx, db, todos, ItemFilters{ProjectID: strPtr("a")}, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, true, items[0].Metadata[triage.MetaReadyForPublish])
	assert.Equal(t, "me", items[0].Metadata["keep"])
	assert.Equal(t, int64(50), items[0].UpdatedAt)

	other, err := ListItems(ctx, db, todos, ItemFilters{ProjectID: strPtr("b")}, 10)
	require.NoError(t, err)
	assert.False(t, other[0].Metadata.ReadyForPublish(), "other project's item untouched")
}

func TestSetReadyForPublish_Idempotent(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	seedProject(t, db, "a", triage.FlagParent, nil)
	seedItem(t, db, "Todos", "t1", "a", "open", 1, nil)

	first, err := SetReadyForPublish(ctx, db, "a", []string{"todos"}, []string{"t1"}, true, 10)
	require.NoError(t, err)
	second, err := SetReadyForPublish(ctx, db, "a", []string{"todos"}, []string{"t1"}, true, 10)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Contains(t, second, ItemRef{Collection: "todos", ID: "t1"})
}

func TestListPromotable_ExcludesPromotedToThisParent(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	seedProject(t, db, "P", triage.FlagParent, nil)
	seedProject(t, db, "Q", triage.FlagParent, nil)
	seedProject(t, db, "child", triage.FlagUnspecified, strPtr("P"))

	ready := triage.Metadata{triage.MetaReadyForPublish: true}
	seedItem(t, db, "Todos", "fresh", "child", "open", 10, ready)
	seedItem(t, db, "Lessons", "toP", "child", "active", 20, triage.Metadata{
		triage.MetaReadyForPublish:    true,
		triage.MetaPromotedToParentID: "P",
	})
	seedItem(t, db, "Snippets", "notready", "child", "active", 30, nil)

	forP, err := ListPromotable(ctx, db, "P", []string{"child"}, 200)
	require.NoError(t, err)
	require.Len(t, forP, 1)
	assert.Equal(t, "fresh", forP[0].ID)
	assert.Equal(t, "Todos", forP[0].Bucket)

	forQ, err := ListPromotable(ctx, db, "Q", []string{"child"}, 200)
	require.NoError(t, err)
	ids := []string{}
	for _, it := range forQ {
		ids = append(ids, it.ID)
	}
	assert.Equal(t, []string{"toP", "fresh"}, ids, "newest first, promoted elsewhere still eligible")
}

func TestListPromotable_Limit(t *testing.T) {
	db := setupDB(t)
	seedProject(t, db, "P", triage.FlagParent, nil)
	seedProject(t, db, "child", triage.FlagChild, strPtr("P"))
	for i := 0; i < 5; i++ {
		seedItem(t, db, "Todos", fmt.Sprintf("t%d", i), "child", "open", int64(i), triage.Metadata{triage.MetaReadyForPublish: true})
	}
	items, err := ListPromotable(context.Background(), db, "P", []string{"child"}, 3)
	require.NoError(t, err)
	assert.Len(t, items, 3)
	assert.Equal(t, "t4", items[0].ID)
}

func TestMarkPromoted_OnlyReadyItems(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	seedProject(t, db, "P", triage.FlagParent, nil)
	seedProject(t, db, "child", triage.FlagChild, strPtr("P"))
	seedItem(t, db, "Todos", "ready", "child", "open", 1, triage.Metadata{triage.MetaReadyForPublish: true})
	seedItem(t, db, "Todos", "idle", "child", "open", 2, nil)

	got, err := MarkPromoted(ctx, db, "P", []string{"child"}, []ItemRef{{"todos", "ready"}, {"todos", "idle"}}, 99)
	require.NoError(t, err)
	assert.Equal(t, []ItemRef{{"todos", "ready"}}, got)

	queue, err := ListPromotable(ctx, db, "P", []string{"child"}, 200)
	require.NoError(t, err)
	assert.Empty(t, queue)
}

func TestCountItemsBySession(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	seedProject(t, db, "p", triage.FlagParent, nil)
	require.NoError(t, InsertSessions(ctx, db, []triage.Session{
		{ID: "s1", Status: triage.SessionProcessed, StartedAt: 1, CreatedAt: 1},
	}))

	for i, label := range []string{"Todos", "Todos", bucket.FileStructure, "Conventions"} {
		b, _ := bucket.Lookup(label)
		it := triage.Item{
			ID: fmt.Sprintf("i%d", i), ProjectID: "p", Collection: b.Collection, Status: "flagged",
			SourceSessionID: strPtr("s1"), CreatedAt: 1, UpdatedAt: 1,
		}
		if c := b.Category(); c != "" {
			it.Category = &c
		}
		require.NoError(t, InsertItems(ctx, db, []triage.Item{it}))
	}

	counts, err := CountItemsBySession(ctx, db, "s1")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Todos": 2, bucket.FileStructure: 1, "Conventions": 1}, counts)
}
