package ops

import (
	"context"
	"database/sql"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/hpungsan/triage/internal/config"
	"github.com/hpungsan/triage/internal/db"
	"github.com/hpungsan/triage/internal/triage"
)

// SystemBucketsInput contains parameters for the SystemBuckets operation.
type SystemBucketsInput struct {
	Window string
}

// SystemTotals is the headline row of the system dashboard.
type SystemTotals struct {
	Active    int `json:"active"`
	Processed int `json:"processed"`
	Flagged   int `json:"flagged"`
	Pending   int `json:"pending"`
	Published int `json:"published"`
}

// SystemStats carries the breakdown behind SystemTotals.
type SystemStats struct {
	Sessions map[string]int            `json:"sessions"`
	Buckets  map[string]db.StatusCounts `json:"buckets"`
	Degraded []string                  `json:"degraded"`
}

// SystemBucketsOutput contains the result of the SystemBuckets operation.
type SystemBucketsOutput struct {
	Buckets SystemTotals `json:"buckets"`
	Stats   SystemStats  `json:"stats"`
}

// sessionsDegraded labels the session ledger in SystemStats.Degraded.
const sessionsDegraded = "sessions"

// SystemBuckets reports session lifecycle counts alongside flagged, pending
// and finalized sums across every collection. Session and bucket queries run
// concurrently; either side degrades to zero on failure.
func SystemBuckets(ctx context.Context, database *sql.DB, cfg *config.Config, input SystemBucketsInput) (*SystemBucketsOutput, error) {
	since, err := windowSince(input.Window)
	if err != nil {
		return nil, err
	}

	var (
		sessions map[string]int
		results  []BucketResult
	)
	// Plain Group: a failed session count must not cancel the bucket counts.
	var g errgroup.Group
	g.Go(func() error {
		qctx, cancel := queryContext(ctx, cfg)
		defer cancel()
		var err error
		sessions, err = db.CountSessionsByStatus(qctx, database, since)
		return err
	})
	g.Go(func() error {
		results = countBuckets(ctx, database, cfg, db.CountFilter{Since: since})
		return nil
	})
	sessErr := g.Wait()
	if sessErr != nil {
		slog.WarnContext(ctx, "session counts degraded", "error", sessErr)
	}

	out := &SystemBucketsOutput{
		Stats: SystemStats{
			Sessions: make(map[string]int, len(triage.SessionStatuses)),
			Buckets:  make(map[string]db.StatusCounts, len(results)),
			Degraded: []string{},
		},
	}
	for _, s := range triage.SessionStatuses {
		out.Stats.Sessions[s] = sessions[s]
	}
	if sessErr != nil {
		out.Stats.Degraded = append(out.Stats.Degraded, sessionsDegraded)
	}
	out.Buckets.Active = sessions[triage.SessionActive]
	out.Buckets.Processed = sessions[triage.SessionProcessed]

	for _, r := range results {
		out.Stats.Buckets[r.Label] = r.Counts
		out.Buckets.Flagged += r.Counts.Flagged
		out.Buckets.Pending += r.Counts.Pending
		out.Buckets.Published += r.Counts.Finalized
		if r.Degraded() {
			out.Stats.Degraded = append(out.Stats.Degraded, r.Label)
		}
	}
	return out, nil
}
