package mcp

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/triage/internal/config"
	"github.com/hpungsan/triage/internal/errors"
	"github.com/hpungsan/triage/internal/ops"
	"github.com/hpungsan/triage/internal/upstream"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db       *sql.DB
	cfg      *config.Config
	services *upstream.Services
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *sql.DB, cfg *config.Config, services *upstream.Services) *Handlers {
	if services == nil {
		services = upstream.New(cfg)
	}
	return &Handlers{db: db, cfg: cfg, services: services}
}

// Request types for each tool

// BucketCountsRequest represents the arguments for triage_bucket_counts.
type BucketCountsRequest struct {
	ProjectID string `json:"project_id"`
	Window    string `json:"window,omitempty"`
	View      string `json:"view,omitempty"`
}

// WindowRequest represents the arguments for the window-only dashboard tools.
type WindowRequest struct {
	ProjectID string `json:"project_id,omitempty"`
	Window    string `json:"window,omitempty"`
}

// ListItemsRequest represents the arguments for triage_list_items.
type ListItemsRequest struct {
	ProjectID string `json:"project_id"`
	Bucket    string `json:"bucket"`
	Status    string `json:"status,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

// SetReadyRequest represents the arguments for triage_set_ready.
type SetReadyRequest struct {
	ProjectID string   `json:"project_id"`
	ItemIDs   []string `json:"item_ids"`
	Ready     *bool    `json:"ready"`
	Bucket    string   `json:"bucket,omitempty"`
}

// ProjectRequest represents the arguments for tools keyed by one project.
type ProjectRequest struct {
	ProjectID string `json:"project_id"`
	Limit     int    `json:"limit,omitempty"`
}

// PromoteRequest represents the arguments for triage_promote.
type PromoteRequest struct {
	ProjectID string           `json:"project_id"`
	Items     []ops.PromoteRef `json:"items"`
}

// ListSessionsRequest represents the arguments for triage_list_sessions.
type ListSessionsRequest struct {
	Status    string `json:"status,omitempty"`
	ProjectID string `json:"project_id,omitempty"`
	Limit     int    `json:"limit,omitempty"`
	Offset    int    `json:"offset,omitempty"`
}

// GetSessionRequest represents the arguments for triage_get_session.
type GetSessionRequest struct {
	ID string `json:"id"`
}

// ImportRequest represents the arguments for triage_import.
type ImportRequest struct {
	Path string `json:"path"`
}

// Handler implementations

// HandleBucketCounts handles the triage_bucket_counts tool call.
func (h *Handlers) HandleBucketCounts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[BucketCountsRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	result, err := ops.BucketCounts(ctx, h.db, h.cfg, ops.BucketCountsInput{
		ProjectID: input.ProjectID,
		Window:    input.Window,
		View:      input.View,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleBucketSummary handles the triage_bucket_summary tool call.
func (h *Handlers) HandleBucketSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[WindowRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	result, err := ops.BucketSummary(ctx, h.db, h.cfg, ops.BucketSummaryInput{
		ProjectID: input.ProjectID,
		Window:    input.Window,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleSystemBuckets handles the triage_system_buckets tool call.
func (h *Handlers) HandleSystemBuckets(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[WindowRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	result, err := ops.SystemBuckets(ctx, h.db, h.cfg, ops.SystemBucketsInput{Window: input.Window})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleActivity handles the triage_activity tool call.
func (h *Handlers) HandleActivity(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[WindowRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	result, err := ops.Activity(ctx, h.db, h.cfg, ops.ActivityInput{Window: input.Window})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleListItems handles the triage_list_items tool call.
func (h *Handlers) HandleListItems(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListItemsRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	result, err := ops.ListItems(ctx, h.db, ops.ListItemsInput{
		ProjectID: input.ProjectID,
		Bucket:    input.Bucket,
		Status:    input.Status,
		Limit:     input.Limit,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleSetReady handles the triage_set_ready tool call.
func (h *Handlers) HandleSetReady(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SetReadyRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	result, err := ops.SetReady(ctx, h.db, h.cfg, ops.SetReadyInput{
		ProjectID: input.ProjectID,
		ItemIDs:   input.ItemIDs,
		Ready:     input.Ready,
		Bucket:    input.Bucket,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandlePromotionQueue handles the triage_promotion_queue tool call.
func (h *Handlers) HandlePromotionQueue(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ProjectRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	result, err := ops.PromotionQueue(ctx, h.db, h.cfg, ops.PromotionQueueInput{ProjectID: input.ProjectID})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandlePromote handles the triage_promote tool call.
func (h *Handlers) HandlePromote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PromoteRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	result, err := ops.Promote(ctx, h.db, h.cfg, ops.PromoteInput{
		ProjectID: input.ProjectID,
		Items:     input.Items,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleJournal handles the triage_journal tool call.
func (h *Handlers) HandleJournal(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ProjectRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	result, err := ops.ConsolidatedJournal(ctx, h.db, ops.JournalInput{
		ProjectID: input.ProjectID,
		Limit:     input.Limit,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleRebuildStructure handles the triage_rebuild_structure tool call.
func (h *Handlers) HandleRebuildStructure(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ProjectRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	result, err := ops.RebuildStructure(ctx, h.db, h.cfg, ops.RebuildStructureInput{ProjectID: input.ProjectID})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleGetStructure handles the triage_get_structure tool call.
func (h *Handlers) HandleGetStructure(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ProjectRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	result, err := ops.GetStructure(ctx, h.db, ops.GetStructureInput{ProjectID: input.ProjectID})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleListSessions handles the triage_list_sessions tool call.
func (h *Handlers) HandleListSessions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListSessionsRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	result, err := ops.ListSessions(ctx, h.db, ops.ListSessionsInput{
		Status:    input.Status,
		ProjectID: input.ProjectID,
		Limit:     input.Limit,
		Offset:    input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleGetSession handles the triage_get_session tool call.
func (h *Handlers) HandleGetSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[GetSessionRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	result, err := ops.GetSession(ctx, h.db, ops.GetSessionInput{ID: input.ID})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleImport handles the triage_import tool call.
func (h *Handlers) HandleImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ImportRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	result, err := ops.ImportFile(ctx, h.db, ops.ImportFileInput{Path: input.Path})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleServicesHealth handles the triage_services_health tool call.
// Sibling failures are data, not tool errors.
func (h *Handlers) HandleServicesHealth(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return successResult(h.services.Health(ctx))
}

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are not exposed.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if tErr, ok := err.(*errors.TriageError); ok {
		errorObj := map[string]any{
			"code":    tErr.Code,
			"message": tErr.Message,
			"status":  tErr.Status,
		}
		if tErr.Code != errors.ErrInternal && tErr.Details != nil {
			errorObj["details"] = tErr.Details
		}
		payload = map[string]any{"success": false, "error": errorObj}
	} else {
		payload = map[string]any{
			"success": false,
			"error": map[string]any{
				"code":    errors.ErrInternal,
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
