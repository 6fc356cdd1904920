package mcp

import (
	"context"
	"database/sql"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/triage/internal/config"
	"github.com/hpungsan/triage/internal/upstream"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"triage_bucket_counts": {
		def:     bucketCountsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleBucketCounts },
	},
	"triage_bucket_summary": {
		def:     bucketSummaryToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleBucketSummary },
	},
	"triage_system_buckets": {
		def:     systemBucketsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSystemBuckets },
	},
	"triage_activity": {
		def:     activityToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleActivity },
	},
	"triage_list_items": {
		def:     listItemsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleListItems },
	},
	"triage_set_ready": {
		def:     setReadyToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSetReady },
	},
	"triage_promotion_queue": {
		def:     promotionQueueToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePromotionQueue },
	},
	"triage_promote": {
		def:     promoteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePromote },
	},
	"triage_journal": {
		def:     journalToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleJournal },
	},
	"triage_rebuild_structure": {
		def:     rebuildStructureToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRebuildStructure },
	},
	"triage_get_structure": {
		def:     getStructureToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleGetStructure },
	},
	"triage_list_sessions": {
		def:     listSessionsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleListSessions },
	},
	"triage_get_session": {
		def:     getSessionToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleGetSession },
	},
	"triage_import": {
		def:     importToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleImport },
	},
	"triage_services_health": {
		def:     servicesHealthToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleServicesHealth },
	},
}

// AllToolNames returns every registered tool name, sorted.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates a new MCP server with triage tools registered.
// Tools listed in cfg.DisabledTools are excluded from registration.
func NewServer(db *sql.DB, cfg *config.Config, services *upstream.Services, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"triage",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(db, cfg, services)

	disabled := make(map[string]bool, len(cfg.DisabledTools))
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(db *sql.DB, cfg *config.Config, services *upstream.Services, version string) error {
	s := NewServer(db, cfg, services, version)
	return server.ServeStdio(s)
}

// ToolHandlerFunc is the signature for tool handlers.
type ToolHandlerFunc func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
