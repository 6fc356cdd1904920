package web

import (
	"database/sql"
	"net/http"

	"github.com/hpungsan/triage/internal/config"
	"github.com/hpungsan/triage/internal/ops"
	"github.com/hpungsan/triage/internal/upstream"
)

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	db       *sql.DB
	cfg      *config.Config
	services *upstream.Services
	version  string
}

// HandleHealth reports liveness.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	renderOK(w, map[string]any{"status": "ok", "version": h.version})
}

// Dashboard reads

// HandleBucketSummary handles GET /api/buckets.
func (h *Handlers) HandleBucketSummary(w http.ResponseWriter, r *http.Request) {
	out, err := ops.BucketSummary(r.Context(), h.db, h.cfg, ops.BucketSummaryInput{
		ProjectID: queryParam(r, "project_id"),
		Window:    queryParam(r, "window"),
	})
	if err != nil {
		renderError(w, r, err)
		return
	}
	renderOK(w, out)
}

// HandleProjectBuckets handles GET /api/projects/{id}/buckets.
func (h *Handlers) HandleProjectBuckets(w http.ResponseWriter, r *http.Request) {
	out, err := ops.BucketCounts(r.Context(), h.db, h.cfg, ops.BucketCountsInput{
		ProjectID: r.PathValue("id"),
		Window:    queryParam(r, "window"),
		View:      queryParam(r, "view"),
	})
	if err != nil {
		renderError(w, r, err)
		return
	}
	renderOK(w, out)
}

// HandleSystemBuckets handles GET /api/system/buckets.
func (h *Handlers) HandleSystemBuckets(w http.ResponseWriter, r *http.Request) {
	out, err := ops.SystemBuckets(r.Context(), h.db, h.cfg, ops.SystemBucketsInput{
		Window: queryParam(r, "window"),
	})
	if err != nil {
		renderError(w, r, err)
		return
	}
	renderOK(w, out)
}

// HandleActivity handles GET /api/activity.
func (h *Handlers) HandleActivity(w http.ResponseWriter, r *http.Request) {
	out, err := ops.Activity(r.Context(), h.db, h.cfg, ops.ActivityInput{
		Window: queryParam(r, "window"),
	})
	if err != nil {
		renderError(w, r, err)
		return
	}
	renderOK(w, out)
}

// Items

// HandleListItems handles GET /api/projects/{id}/items?bucket=&status=&limit=.
func (h *Handlers) HandleListItems(w http.ResponseWriter, r *http.Request) {
	out, err := ops.ListItems(r.Context(), h.db, ops.ListItemsInput{
		ProjectID: r.PathValue("id"),
		Bucket:    queryParam(r, "bucket"),
		Status:    queryParam(r, "status"),
		Limit:     parseIntParam(r, "limit", 0),
	})
	if err != nil {
		renderError(w, r, err)
		return
	}
	renderOK(w, out)
}

type setReadyRequest struct {
	ItemIDs []string `json:"item_ids"`
	Ready   *bool    `json:"ready"`
	Bucket  string   `json:"bucket"`
}

// HandleSetReady handles POST /api/projects/{id}/ready.
func (h *Handlers) HandleSetReady(w http.ResponseWriter, r *http.Request) {
	var req setReadyRequest
	if err := decodeBody(w, r, &req); err != nil {
		renderError(w, r, err)
		return
	}
	out, err := ops.SetReady(r.Context(), h.db, h.cfg, ops.SetReadyInput{
		ProjectID: r.PathValue("id"),
		ItemIDs:   req.ItemIDs,
		Ready:     req.Ready,
		Bucket:    req.Bucket,
	})
	if err != nil {
		renderError(w, r, err)
		return
	}
	renderOK(w, out)
}

// Promotion gate

// HandlePromotionQueue handles GET /api/projects/{id}/promotion-queue.
func (h *Handlers) HandlePromotionQueue(w http.ResponseWriter, r *http.Request) {
	out, err := ops.PromotionQueue(r.Context(), h.db, h.cfg, ops.PromotionQueueInput{
		ProjectID: r.PathValue("id"),
	})
	if err != nil {
		renderError(w, r, err)
		return
	}
	renderOK(w, out)
}

type promoteRequest struct {
	Items []ops.PromoteRef `json:"items"`
}

// HandlePromote handles POST /api/projects/{id}/promote.
func (h *Handlers) HandlePromote(w http.ResponseWriter, r *http.Request) {
	var req promoteRequest
	if err := decodeBody(w, r, &req); err != nil {
		renderError(w, r, err)
		return
	}
	out, err := ops.Promote(r.Context(), h.db, h.cfg, ops.PromoteInput{
		ProjectID: r.PathValue("id"),
		Items:     req.Items,
	})
	if err != nil {
		renderError(w, r, err)
		return
	}
	renderOK(w, out)
}

// HandleGetPublished handles GET /api/projects/{id}/published.
func (h *Handlers) HandleGetPublished(w http.ResponseWriter, r *http.Request) {
	out, err := ops.GetPublished(r.Context(), h.db, ops.PublishedInput{
		ProjectID: r.PathValue("id"),
	})
	if err != nil {
		renderError(w, r, err)
		return
	}
	renderOK(w, out)
}

type savePublishedRequest struct {
	Content *string `json:"content"`
}

// HandleSavePublished handles PUT /api/projects/{id}/published.
func (h *Handlers) HandleSavePublished(w http.ResponseWriter, r *http.Request) {
	var req savePublishedRequest
	if err := decodeBody(w, r, &req); err != nil {
		renderError(w, r, err)
		return
	}
	out, err := ops.SavePublished(r.Context(), h.db, ops.SavePublishedInput{
		ProjectID: r.PathValue("id"),
		Content:   req.Content,
	})
	if err != nil {
		renderError(w, r, err)
		return
	}
	renderOK(w, out)
}

// HandleJournal handles GET /api/projects/{id}/journal.
func (h *Handlers) HandleJournal(w http.ResponseWriter, r *http.Request) {
	out, err := ops.ConsolidatedJournal(r.Context(), h.db, ops.JournalInput{
		ProjectID: r.PathValue("id"),
		Limit:     parseIntParam(r, "limit", 0),
	})
	if err != nil {
		renderError(w, r, err)
		return
	}
	renderOK(w, out)
}

// Path tree

// HandleRebuildStructure handles POST /api/projects/{id}/structure/rebuild.
func (h *Handlers) HandleRebuildStructure(w http.ResponseWriter, r *http.Request) {
	out, err := ops.RebuildStructure(r.Context(), h.db, h.cfg, ops.RebuildStructureInput{
		ProjectID: r.PathValue("id"),
	})
	if err != nil {
		renderError(w, r, err)
		return
	}
	renderOK(w, out)
}

// HandleGetStructure handles GET /api/projects/{id}/structure.
func (h *Handlers) HandleGetStructure(w http.ResponseWriter, r *http.Request) {
	out, err := ops.GetStructure(r.Context(), h.db, ops.GetStructureInput{
		ProjectID: r.PathValue("id"),
	})
	if err != nil {
		renderError(w, r, err)
		return
	}
	renderOK(w, out)
}

// Session ledger

// HandleListSessions handles GET /api/sessions?status=&project_id=&limit=&offset=.
func (h *Handlers) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	out, err := ops.ListSessions(r.Context(), h.db, ops.ListSessionsInput{
		Status:    queryParam(r, "status"),
		ProjectID: queryParam(r, "project_id"),
		Limit:     parseIntParam(r, "limit", 0),
		Offset:    parseIntParam(r, "offset", 0),
	})
	if err != nil {
		renderError(w, r, err)
		return
	}
	renderOK(w, out)
}

// HandleGetSession handles GET /api/sessions/{id}.
func (h *Handlers) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	out, err := ops.GetSession(r.Context(), h.db, ops.GetSessionInput{ID: r.PathValue("id")})
	if err != nil {
		renderError(w, r, err)
		return
	}
	renderOK(w, out)
}

// Ingest

type ingestSessionsRequest struct {
	Sessions []ops.SessionRecord `json:"sessions"`
}

// HandleIngestSessions handles POST /api/ingest/sessions.
func (h *Handlers) HandleIngestSessions(w http.ResponseWriter, r *http.Request) {
	var req ingestSessionsRequest
	if err := decodeBody(w, r, &req); err != nil {
		renderError(w, r, err)
		return
	}
	out, err := ops.IngestSessions(r.Context(), h.db, ops.IngestSessionsInput{Sessions: req.Sessions})
	if err != nil {
		renderError(w, r, err)
		return
	}
	renderOK(w, out)
}

type ingestItemsRequest struct {
	Items []ops.ItemRecord `json:"items"`
}

// HandleIngestItems handles POST /api/ingest/items.
func (h *Handlers) HandleIngestItems(w http.ResponseWriter, r *http.Request) {
	var req ingestItemsRequest
	if err := decodeBody(w, r, &req); err != nil {
		renderError(w, r, err)
		return
	}
	out, err := ops.IngestItems(r.Context(), h.db, ops.IngestItemsInput{Items: req.Items})
	if err != nil {
		renderError(w, r, err)
		return
	}
	renderOK(w, out)
}

// HandleServicesHealth handles GET /api/services/health. Sibling failures
// are reported in the body; the endpoint itself always answers 200.
func (h *Handlers) HandleServicesHealth(w http.ResponseWriter, r *http.Request) {
	if h.services == nil {
		renderJSON(w, http.StatusOK, upstream.HealthReport{Services: map[string]upstream.Result{}})
		return
	}
	renderJSON(w, http.StatusOK, h.services.Health(r.Context()))
}
