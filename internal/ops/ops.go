package ops

import (
	"context"
	"crypto/rand"
	"database/sql"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/triage/internal/bucket"
	"github.com/hpungsan/triage/internal/config"
	"github.com/hpungsan/triage/internal/db"
	"github.com/hpungsan/triage/internal/errors"
)

// Pagination limits
const (
	DefaultListLimit    = 50
	MaxListLimit        = 500
	DefaultJournalLimit = 100
	MaxJournalLimit     = 500
)

// Trailing windows accepted by the aggregation views.
const (
	WindowAll  = ""
	WindowHour = "1h"
	WindowDay  = "24h"
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// now is swapped by tests that need a fixed clock.
var now = time.Now

// ParseWindow validates a window string and returns its duration.
// The empty window means no time restriction and returns 0.
func ParseWindow(w string) (time.Duration, error) {
	switch strings.TrimSpace(w) {
	case WindowAll:
		return 0, nil
	case WindowHour:
		return time.Hour, nil
	case WindowDay:
		return 24 * time.Hour, nil
	default:
		return 0, errors.NewInvalidRequest("window must be one of: 1h, 24h")
	}
}

// windowSince converts a window to the unix cutoff it implies, or nil.
func windowSince(w string) (*int64, error) {
	d, err := ParseWindow(w)
	if err != nil {
		return nil, err
	}
	if d == 0 {
		return nil, nil
	}
	since := now().Add(-d).Unix()
	return &since, nil
}

// clampLimit applies a default and an upper bound to a requested limit.
func clampLimit(limit, def, maxLimit int) int {
	if limit <= 0 {
		return def
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

// requireProjectID trims and validates a project id argument.
func requireProjectID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", errors.NewInvalidRequest("project_id is required")
	}
	return id, nil
}

// lookupBucket resolves a label against the registry.
func lookupBucket(label string) (bucket.Bucket, error) {
	b, ok := bucket.Lookup(strings.TrimSpace(label))
	if !ok {
		return bucket.Bucket{}, errors.NewInvalidRequest("unknown bucket: " + label)
	}
	return b, nil
}

// activeChildren returns the active child projects of parentID.
func activeChildren(ctx context.Context, database *sql.DB, parentID string) ([]string, map[string]string, error) {
	children, err := db.ListChildProjects(ctx, database, parentID)
	if err != nil {
		return nil, nil, err
	}
	ids := make([]string, len(children))
	names := make(map[string]string, len(children))
	for i, c := range children {
		ids[i] = c.ID
		names[c.ID] = c.Name
	}
	return ids, names, nil
}

// pageSize returns the configured promotion page size.
func pageSize(cfg *config.Config) int {
	if cfg == nil || cfg.PromotionPageSize <= 0 {
		return config.DefaultConfig().PromotionPageSize
	}
	return cfg.PromotionPageSize
}

// queryContext bounds a dashboard read by the configured query timeout.
func queryContext(ctx context.Context, cfg *config.Config) (context.Context, context.CancelFunc) {
	if cfg == nil || cfg.QueryTimeoutMS <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, cfg.QueryTimeout())
}

// generateULID generates a new ULID.
func generateULID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(now()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
