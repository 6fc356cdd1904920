package ops

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/hpungsan/triage/internal/config"
	"github.com/hpungsan/triage/internal/db"
	"github.com/hpungsan/triage/internal/errors"
)

// ActivityInput contains parameters for the Activity operation.
type ActivityInput struct {
	Window string // "1h" or "24h"; defaults to "24h"
}

// ActivityOutput contains the result of the Activity operation.
type ActivityOutput struct {
	Window   string         `json:"window"`
	Since    int64          `json:"since"`
	Sessions map[string]int `json:"sessions"`
	Items    int            `json:"items"`
	Flagged  int            `json:"flagged"`
	Pending  int            `json:"pending"`
	Degraded bool           `json:"degraded,omitempty"`
}

// Activity summarizes sessions and items created within a trailing window.
func Activity(ctx context.Context, database *sql.DB, cfg *config.Config, input ActivityInput) (*ActivityOutput, error) {
	window := input.Window
	if window == WindowAll {
		window = WindowDay
	}
	since, err := windowSince(window)
	if err != nil {
		return nil, err
	}
	if since == nil {
		return nil, errors.NewInvalidRequest("window is required")
	}

	out := &ActivityOutput{Window: window, Since: *since, Sessions: map[string]int{}}

	qctx, cancel := queryContext(ctx, cfg)
	defer cancel()

	sessions, err := db.CountSessionsByStatus(qctx, database, since)
	if err != nil {
		slog.WarnContext(ctx, "activity session counts degraded", "error", err)
		out.Degraded = true
	} else {
		out.Sessions = sessions
	}

	items, err := db.CountItemsSince(qctx, database, *since)
	if err != nil {
		slog.WarnContext(ctx, "activity item count degraded", "error", err)
		out.Degraded = true
	} else {
		out.Items = items
	}

	for _, r := range countBuckets(ctx, database, cfg, db.CountFilter{Since: since, ExcludeExited: true}) {
		out.Flagged += r.Counts.Flagged
		out.Pending += r.Counts.Pending
		if r.Degraded() {
			out.Degraded = true
		}
	}
	return out, nil
}
