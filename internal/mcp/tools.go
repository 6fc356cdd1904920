package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/triage/internal/bucket"
)

var windowEnum = mcp.Enum("1h", "24h")

var bucketCountsToolDef = mcp.NewTool("triage_bucket_counts",
	mcp.WithDescription("Count one project's items per bucket as flagged, pending and finalized. Buckets that fail to count are listed under degraded and reported as zero."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("project_id", mcp.Required(), mcp.Description("Project id")),
	mcp.WithString("window", windowEnum, mcp.Description("Only count items created within this window")),
	mcp.WithString("view", mcp.Enum("pending", "published"), mcp.Description("pending (default) or published (items marked ready)")),
)

var bucketSummaryToolDef = mcp.NewTool("triage_bucket_summary",
	mcp.WithDescription("Flagged item count per bucket, excluding items from cleaned or archived sessions."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("project_id", mcp.Description("Limit to one project")),
	mcp.WithString("window", windowEnum),
)

var systemBucketsToolDef = mcp.NewTool("triage_system_buckets",
	mcp.WithDescription("System-wide session lifecycle counts and flagged, pending and finalized sums."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("window", windowEnum),
)

var activityToolDef = mcp.NewTool("triage_activity",
	mcp.WithDescription("Sessions and items created in the last hour or day."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("window", windowEnum, mcp.Description("Defaults to 24h")),
)

var listItemsToolDef = mcp.NewTool("triage_list_items",
	mcp.WithDescription("List one project's items in a bucket, newest first."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("project_id", mcp.Required()),
	mcp.WithString("bucket", mcp.Required(), mcp.Enum(bucket.Labels()...)),
	mcp.WithString("status", mcp.Description("Exact stored status, e.g. flagged or pending")),
	mcp.WithNumber("limit", mcp.Description("Default 50, max 500")),
)

var setReadyToolDef = mcp.NewTool("triage_set_ready",
	mcp.WithDescription("Mark a batch of one project's items ready (or not ready) for publishing. Other metadata keys are preserved."),
	mcp.WithString("project_id", mcp.Required()),
	mcp.WithArray("item_ids", mcp.Required(), mcp.Items(map[string]any{"type": "string"})),
	mcp.WithBoolean("ready", mcp.Required()),
	mcp.WithString("bucket", mcp.Description("Restrict the update to one bucket"), mcp.Enum(bucket.Labels()...)),
)

var promotionQueueToolDef = mcp.NewTool("triage_promotion_queue",
	mcp.WithDescription("Ready items from a parent's active children that the parent has not promoted yet."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("project_id", mcp.Required(), mcp.Description("Parent project id")),
)

var promoteToolDef = mcp.NewTool("triage_promote",
	mcp.WithDescription("Promote ready child items to a parent, removing them from its queue."),
	mcp.WithString("project_id", mcp.Required(), mcp.Description("Parent project id")),
	mcp.WithArray("items", mcp.Required(), mcp.Items(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"bucket": map[string]any{"type": "string"},
			"id":     map[string]any{"type": "string"},
		},
		"required": []string{"bucket", "id"},
	})),
)

var journalToolDef = mcp.NewTool("triage_journal",
	mcp.WithDescription("Journal entries of a parent's active children, newest first."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("project_id", mcp.Required(), mcp.Description("Parent project id")),
	mcp.WithNumber("limit", mcp.Description("Default 100, max 500")),
)

var rebuildStructureToolDef = mcp.NewTool("triage_rebuild_structure",
	mcp.WithDescription("Rebuild a project's path tree from its File Structure items."),
	mcp.WithString("project_id", mcp.Required()),
)

var getStructureToolDef = mcp.NewTool("triage_get_structure",
	mcp.WithDescription("Return a project's stored path tree."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("project_id", mcp.Required()),
)

var listSessionsToolDef = mcp.NewTool("triage_list_sessions",
	mcp.WithDescription("List captured sessions, newest first."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("status", mcp.Description("Filter by lifecycle status")),
	mcp.WithString("project_id"),
	mcp.WithNumber("limit"),
	mcp.WithNumber("offset"),
)

var getSessionToolDef = mcp.NewTool("triage_get_session",
	mcp.WithDescription("Return one session with per-bucket counts of the items extracted from it."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("id", mcp.Required()),
)

var importToolDef = mcp.NewTool("triage_import",
	mcp.WithDescription("Import sessions and items from a JSONL file. Any invalid line aborts the whole import."),
	mcp.WithString("path", mcp.Required(), mcp.Description("Path to a .jsonl file")),
)

var servicesHealthToolDef = mcp.NewTool("triage_services_health",
	mcp.WithDescription("Probe the sibling ops and terminal services."),
	mcp.WithReadOnlyHintAnnotation(true),
)
