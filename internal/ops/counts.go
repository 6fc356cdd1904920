package ops

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/sourcegraph/conc/iter"

	"github.com/hpungsan/triage/internal/bucket"
	"github.com/hpungsan/triage/internal/config"
	"github.com/hpungsan/triage/internal/db"
	"github.com/hpungsan/triage/internal/errors"
)

// Views select which items an aggregation counts.
const (
	// ViewPending drops items whose source session has exited the pipeline.
	ViewPending = "pending"
	// ViewPublished counts every item regardless of its session.
	ViewPublished = "published"
)

// BucketResult is one bucket's contribution to an aggregation. A non-nil
// Cause marks the bucket degraded; its counts are then zero.
type BucketResult struct {
	Label  string
	Counts db.StatusCounts
	Cause  error
}

// Degraded reports whether the bucket query failed.
func (r BucketResult) Degraded() bool { return r.Cause != nil }

// countBuckets runs one count per registry bucket in parallel. Failures are
// logged and reported as degraded zero results; they never fail the batch.
func countBuckets(ctx context.Context, database *sql.DB, cfg *config.Config, f db.CountFilter) []BucketResult {
	ctx, cancel := queryContext(ctx, cfg)
	defer cancel()

	return iter.Map(bucket.All(), func(b *bucket.Bucket) BucketResult {
		counts, err := db.CountByStatus(ctx, database, *b, f)
		if err != nil {
			slog.WarnContext(ctx, "bucket count degraded", "bucket", b.Label, "collection", b.Collection, "error", err)
			return BucketResult{Label: b.Label, Cause: err}
		}
		return BucketResult{Label: b.Label, Counts: counts}
	})
}

// BucketCountsInput contains parameters for the BucketCounts operation.
type BucketCountsInput struct {
	ProjectID string // required
	Window    string // "", "1h" or "24h"
	View      string // "pending" (default) or "published"
}

// BucketStat is one bucket row in BucketCountsOutput.
type BucketStat struct {
	Label string `json:"bucket"`
	db.StatusCounts
	Degraded bool `json:"degraded,omitempty"`
}

// BucketCountsOutput contains the result of the BucketCounts operation.
type BucketCountsOutput struct {
	ProjectID string       `json:"project_id"`
	View      string       `json:"view"`
	Window    string       `json:"window,omitempty"`
	Buckets   []BucketStat `json:"buckets"`
	// Total is the sum of per-bucket finalized counts.
	Total    int      `json:"total"`
	Degraded []string `json:"degraded"`
}

// BucketCounts partitions every bucket of one project into flagged, pending
// and finalized.
func BucketCounts(ctx context.Context, database *sql.DB, cfg *config.Config, input BucketCountsInput) (*BucketCountsOutput, error) {
	projectID, err := requireProjectID(input.ProjectID)
	if err != nil {
		return nil, err
	}
	since, err := windowSince(input.Window)
	if err != nil {
		return nil, err
	}
	view := input.View
	switch view {
	case "":
		view = ViewPending
	case ViewPending, ViewPublished:
	default:
		return nil, errors.NewInvalidRequest("view must be one of: pending, published")
	}

	results := countBuckets(ctx, database, cfg, db.CountFilter{
		ProjectID:     &projectID,
		Since:         since,
		ExcludeExited: view == ViewPending,
	})

	out := &BucketCountsOutput{
		ProjectID: projectID,
		View:      view,
		Window:    input.Window,
		Buckets:   make([]BucketStat, 0, len(results)),
		Degraded:  []string{},
	}
	for _, r := range results {
		out.Buckets = append(out.Buckets, BucketStat{Label: r.Label, StatusCounts: r.Counts, Degraded: r.Degraded()})
		out.Total += r.Counts.Finalized
		if r.Degraded() {
			out.Degraded = append(out.Degraded, r.Label)
		}
	}
	return out, nil
}

// BucketSummaryInput contains parameters for the BucketSummary operation.
type BucketSummaryInput struct {
	ProjectID string // optional
	Window    string
}

// BucketSummaryOutput maps each label to its flagged count.
type BucketSummaryOutput struct {
	Buckets      map[string]int `json:"buckets"`
	TotalFlagged int            `json:"totalFlagged"`
}

// BucketSummary reports items still waiting to be triaged, per label.
func BucketSummary(ctx context.Context, database *sql.DB, cfg *config.Config, input BucketSummaryInput) (*BucketSummaryOutput, error) {
	since, err := windowSince(input.Window)
	if err != nil {
		return nil, err
	}
	f := db.CountFilter{Since: since, ExcludeExited: true}
	if input.ProjectID != "" {
		f.ProjectID = &input.ProjectID
	}

	out := &BucketSummaryOutput{Buckets: make(map[string]int)}
	for _, r := range countBuckets(ctx, database, cfg, f) {
		out.Buckets[r.Label] = r.Counts.Flagged
		out.TotalFlagged += r.Counts.Flagged
	}
	return out, nil
}
