package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/triage/internal/config"
	"github.com/hpungsan/triage/internal/db"
	"github.com/hpungsan/triage/internal/logging"
	"github.com/hpungsan/triage/internal/ops"
	"github.com/hpungsan/triage/internal/triage"
	"github.com/hpungsan/triage/internal/upstream"
)

func stringPtr(s string) *string { return &s }

type testEnv struct {
	h       *Handlers
	handler http.Handler
}

func setupTest(t *testing.T) *testEnv {
	t.Helper()
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	cfg := config.DefaultConfig()
	h := &Handlers{db: database, cfg: cfg, services: upstream.New(cfg), version: "test"}
	return &testEnv{
		h:       h,
		handler: requestID(logRequests(logging.Discard(), securityHeaders(h.Routes()))),
	}
}

func (e *testEnv) addProject(t *testing.T, id string, flag triage.ParentFlag, parentID *string) {
	t.Helper()
	require.NoError(t, db.InsertProject(context.Background(), e.h.db, &triage.Project{
		ID: id, Name: "Project " + id, Slug: id, ParentFlag: flag, ParentID: parentID, IsActive: true, CreatedAt: 1,
	}))
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec, out
}

func errorCode(t *testing.T, body map[string]any) string {
	t.Helper()
	e, ok := body["error"].(map[string]any)
	require.True(t, ok, "missing error object: %v", body)
	return e["code"].(string)
}

func TestMiddleware_HeadersAndRequestID(t *testing.T) {
	env := setupTest(t)
	rec, body := env.do(t, http.MethodGet, "/api/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	_, err := uuid.Parse(rec.Header().Get(RequestIDHeader))
	assert.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	given := uuid.NewString()
	req.Header.Set(RequestIDHeader, given)
	rec2 := httptest.NewRecorder()
	env.handler.ServeHTTP(rec2, req)
	assert.Equal(t, given, rec2.Header().Get(RequestIDHeader))
}

func TestUnknownRoute(t *testing.T) {
	env := setupTest(t)
	rec, body := env.do(t, http.MethodGet, "/api/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "NOT_FOUND", errorCode(t, body))
}

func TestProjectBuckets(t *testing.T) {
	env := setupTest(t)
	env.addProject(t, "p1", triage.FlagChild, nil)
	_, err := ops.IngestItems(context.Background(), env.h.db, ops.IngestItemsInput{Items: []ops.ItemRecord{
		{ProjectID: "p1", Bucket: "Bugs Open", Title: "a"},
		{ProjectID: "p1", Bucket: "Bugs Open", Status: "pending", Title: "b"},
		{ProjectID: "p1", Bucket: "Bugs Open", Status: "fixed", Title: "c"},
	}})
	require.NoError(t, err)

	rec, body := env.do(t, http.MethodGet, "/api/projects/p1/buckets", nil)
	require.Equal(t, http.StatusOK, rec.Code, body)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(1), body["total"])

	buckets := body["buckets"].([]any)
	var bugs map[string]any
	for _, b := range buckets {
		m := b.(map[string]any)
		if m["bucket"] == "Bugs Open" {
			bugs = m
		}
	}
	require.NotNil(t, bugs)
	assert.Equal(t, float64(1), bugs["flagged"])
	assert.Equal(t, float64(1), bugs["pending"])
	assert.Equal(t, float64(1), bugs["finalized"])

	rec, body = env.do(t, http.MethodGet, "/api/projects/p1/buckets?window=7d", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_REQUEST", errorCode(t, body))
}

func TestDashboardReads(t *testing.T) {
	env := setupTest(t)
	for _, path := range []string{"/api/buckets", "/api/system/buckets", "/api/activity?window=1h"} {
		t.Run(path, func(t *testing.T) {
			rec, body := env.do(t, http.MethodGet, path, nil)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, true, body["success"])
		})
	}
}

func TestParentOnlyRoutes(t *testing.T) {
	env := setupTest(t)
	env.addProject(t, "child", triage.FlagChild, nil)

	cases := []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodGet, "/api/projects/child/promotion-queue", nil},
		{http.MethodPost, "/api/projects/child/promote", map[string]any{"items": []map[string]string{{"bucket": "Bugs Open", "id": "x"}}}},
		{http.MethodGet, "/api/projects/child/published", nil},
		{http.MethodPut, "/api/projects/child/published", map[string]any{"content": "# Hi"}},
		{http.MethodGet, "/api/projects/child/journal", nil},
		{http.MethodGet, "/api/projects/missing/promotion-queue", nil},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			rec, body := env.do(t, tc.method, tc.path, tc.body)
			assert.Equal(t, http.StatusForbidden, rec.Code)
			assert.Equal(t, "NOT_PARENT", errorCode(t, body))
		})
	}
}

func TestReadyAndPromoteFlow(t *testing.T) {
	env := setupTest(t)
	env.addProject(t, "parent", triage.FlagParent, nil)
	env.addProject(t, "child", triage.FlagChild, stringPtr("parent"))

	ingested, err := ops.IngestItems(context.Background(), env.h.db, ops.IngestItemsInput{Items: []ops.ItemRecord{
		{ProjectID: "child", Bucket: "Knowledge", Title: "k1"},
		{ProjectID: "child", Bucket: "Decisions", Title: "d1"},
	}})
	require.NoError(t, err)

	rec, body := env.do(t, http.MethodPost, "/api/projects/child/ready", map[string]any{
		"item_ids": ingested.IDs,
		"ready":    true,
	})
	require.Equal(t, http.StatusOK, rec.Code, body)
	assert.Len(t, body["updated"], 2)

	rec, body = env.do(t, http.MethodGet, "/api/projects/parent/promotion-queue", nil)
	require.Equal(t, http.StatusOK, rec.Code, body)
	assert.Len(t, body["items"], 2)

	rec, body = env.do(t, http.MethodPost, "/api/projects/parent/promote", map[string]any{
		"items": []map[string]string{{"bucket": "Knowledge", "id": ingested.IDs[0]}},
	})
	require.Equal(t, http.StatusOK, rec.Code, body)
	assert.Len(t, body["promoted"], 1)

	_, body = env.do(t, http.MethodGet, "/api/projects/parent/promotion-queue", nil)
	assert.Len(t, body["items"], 1)
}

func TestSetReady_BadBodies(t *testing.T) {
	env := setupTest(t)
	env.addProject(t, "p1", triage.FlagChild, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/projects/p1/ready", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec2, body := env.do(t, http.MethodPost, "/api/projects/p1/ready", map[string]any{"item_ids": []string{"a"}})
	assert.Equal(t, http.StatusBadRequest, rec2.Code)
	assert.Equal(t, "INVALID_REQUEST", errorCode(t, body))

	ids := make([]string, env.h.cfg.PromotionPageSize+1)
	for i := range ids {
		ids[i] = uuid.NewString()
	}
	rec3, body := env.do(t, http.MethodPost, "/api/projects/p1/ready", map[string]any{"item_ids": ids, "ready": true})
	assert.Equal(t, http.StatusBadRequest, rec3.Code)
	assert.Equal(t, "TOO_MANY_IDS", errorCode(t, body))
}

func TestPublishedRoundTrip(t *testing.T) {
	env := setupTest(t)
	env.addProject(t, "parent", triage.FlagParent, nil)

	rec, body := env.do(t, http.MethodPut, "/api/projects/parent/published", map[string]any{"content": "# Notes\n\nhello"})
	require.Equal(t, http.StatusOK, rec.Code, body)

	rec, body = env.do(t, http.MethodGet, "/api/projects/parent/published", nil)
	require.Equal(t, http.StatusOK, rec.Code, body)
	assert.Equal(t, "# Notes\n\nhello", body["content"])
	assert.Contains(t, body["html"], "<h1>Notes</h1>")
}

func TestSessionsAndIngest(t *testing.T) {
	env := setupTest(t)
	env.addProject(t, "p1", triage.FlagChild, nil)

	rec, body := env.do(t, http.MethodPost, "/api/ingest/sessions", map[string]any{
		"sessions": []map[string]any{{"project_id": "p1", "source": "cli", "message_count": 3}},
	})
	require.Equal(t, http.StatusOK, rec.Code, body)
	ids := body["ids"].([]any)
	require.Len(t, ids, 1)
	sessionID := ids[0].(string)

	rec, body = env.do(t, http.MethodPost, "/api/ingest/items", map[string]any{
		"items": []map[string]any{{"project_id": "p1", "bucket": "Lessons", "title": "t", "source_session_id": sessionID}},
	})
	require.Equal(t, http.StatusOK, rec.Code, body)

	rec, body = env.do(t, http.MethodGet, "/api/sessions?status=active", nil)
	require.Equal(t, http.StatusOK, rec.Code, body)
	assert.Len(t, body["sessions"], 1)

	rec, body = env.do(t, http.MethodGet, "/api/sessions/"+sessionID, nil)
	require.Equal(t, http.StatusOK, rec.Code, body)
	assert.Equal(t, float64(1), body["total_items"])

	rec, body = env.do(t, http.MethodGet, "/api/sessions/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", errorCode(t, body))
}

func TestStructureRoutes(t *testing.T) {
	env := setupTest(t)
	env.addProject(t, "p1", triage.FlagChild, nil)
	_, err := ops.IngestItems(context.Background(), env.h.db, ops.IngestItemsInput{Items: []ops.ItemRecord{
		{ProjectID: "p1", Bucket: "File Structure", Title: "src/main.go"},
	}})
	require.NoError(t, err)

	rec, body := env.do(t, http.MethodPost, "/api/projects/p1/structure/rebuild", nil)
	require.Equal(t, http.StatusOK, rec.Code, body)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, float64(1), body["paths"])

	rec, body = env.do(t, http.MethodGet, "/api/projects/p1/structure", nil)
	require.Equal(t, http.StatusOK, rec.Code, body)
	assert.NotNil(t, body["structure"])
}

func TestServicesHealth_Unconfigured(t *testing.T) {
	env := setupTest(t)
	env.h.cfg.UpstreamTimeoutMS = 50
	env.h.services = upstream.New(env.h.cfg)

	start := time.Now()
	rec, body := env.do(t, http.MethodGet, "/api/services/health", nil)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["success"])
	services := body["services"].(map[string]any)
	assert.Contains(t, services, upstream.ServiceOps)
	assert.Contains(t, services, upstream.ServiceTerminal)
}
