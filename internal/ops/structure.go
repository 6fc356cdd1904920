package ops

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"

	"github.com/hpungsan/triage/internal/bucket"
	"github.com/hpungsan/triage/internal/config"
	"github.com/hpungsan/triage/internal/db"
	"github.com/hpungsan/triage/internal/errors"
	"github.com/hpungsan/triage/internal/structure"
)

// RebuildStructureInput contains parameters for the RebuildStructure operation.
type RebuildStructureInput struct {
	ProjectID string // required
}

// RebuildStructureOutput contains the result of the RebuildStructure operation.
type RebuildStructureOutput struct {
	OK        bool   `json:"ok"`
	ProjectID string `json:"project_id"`
	Paths     int    `json:"paths"`
}

// RebuildStructure parses the project's File Structure rows into a path tree
// and replaces the stored artifact.
func RebuildStructure(ctx context.Context, database *sql.DB, cfg *config.Config, input RebuildStructureInput) (*RebuildStructureOutput, error) {
	projectID, err := requireProjectID(input.ProjectID)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if _, err := db.GetProject(ctx, database, projectID); err != nil {
		return nil, err
	}

	fs, ok := bucket.Lookup(bucket.FileStructure)
	if !ok {
		return nil, errors.NewInternal(nil)
	}
	limit := cfg.StructureRowLimit
	if limit <= 0 {
		limit = config.DefaultConfig().StructureRowLimit
	}
	rows, err := db.ListItems(ctx, database, fs, db.ItemFilters{ProjectID: &projectID}, limit)
	if err != nil {
		return nil, err
	}

	texts := make([]string, 0, 2*len(rows))
	for _, r := range rows {
		texts = append(texts, r.Title, r.Content)
	}
	s := structure.NewPipeline(cfg.RootPrefixes).Build(texts)

	data, err := json.Marshal(s)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := db.UpsertStructure(ctx, database, db.StructureRow{
		ProjectID: projectID,
		Structure: string(data),
		PathCount: len(s.Paths),
		UpdatedAt: now().Unix(),
	}); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "structure rebuilt", "project_id", projectID, "rows", len(rows), "paths", len(s.Paths))
	return &RebuildStructureOutput{OK: true, ProjectID: projectID, Paths: len(s.Paths)}, nil
}

// GetStructureInput contains parameters for the GetStructure operation.
type GetStructureInput struct {
	ProjectID string // required
}

// GetStructureOutput is the stored artifact for a project.
type GetStructureOutput struct {
	ProjectID string               `json:"project_id"`
	Structure *structure.Structure `json:"structure"`
	PathCount int                  `json:"path_count"`
	UpdatedAt int64                `json:"updated_at"`
}

// GetStructure reads the last rebuilt tree for a project.
func GetStructure(ctx context.Context, database *sql.DB, input GetStructureInput) (*GetStructureOutput, error) {
	projectID, err := requireProjectID(input.ProjectID)
	if err != nil {
		return nil, err
	}
	row, err := db.GetStructure(ctx, database, projectID)
	if err != nil {
		return nil, err
	}
	var s structure.Structure
	if err := json.Unmarshal([]byte(row.Structure), &s); err != nil {
		return nil, errors.NewInternal(err)
	}
	return &GetStructureOutput{
		ProjectID: projectID,
		Structure: &s,
		PathCount: row.PathCount,
		UpdatedAt: row.UpdatedAt,
	}, nil
}
