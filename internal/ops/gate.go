package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/triage/internal/db"
	"github.com/hpungsan/triage/internal/errors"
)

// IsParent reports whether projectID may use parent-only operations.
// A missing project is not a parent; it is not an error.
func IsParent(ctx context.Context, database *sql.DB, projectID string) (bool, error) {
	p, err := db.GetProject(ctx, database, projectID)
	if errors.Is(err, errors.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return p.IsParent(), nil
}

// requireParent fails with NOT_PARENT unless projectID is a parent project.
func requireParent(ctx context.Context, database *sql.DB, projectID string) error {
	ok, err := IsParent(ctx, database, projectID)
	if err != nil {
		return err
	}
	if !ok {
		return errors.NewNotParent(projectID)
	}
	return nil
}
