package ops

import (
	"bytes"
	"context"
	"database/sql"

	"github.com/yuin/goldmark"

	"github.com/hpungsan/triage/internal/db"
	"github.com/hpungsan/triage/internal/errors"
)

// MaxPublishedBytes caps the size of a published document.
const MaxPublishedBytes = 1 << 20

// PublishedInput contains parameters for the GetPublished operation.
type PublishedInput struct {
	ProjectID string // required, must be a parent
}

// PublishedOutput is a parent's consolidated document.
type PublishedOutput struct {
	ProjectID string `json:"project_id"`
	Content   string `json:"content"`
	HTML      string `json:"html"`
	UpdatedAt int64  `json:"updated_at"`
}

// GetPublished returns the parent's published document rendered to HTML.
// A parent that never published gets an empty document.
func GetPublished(ctx context.Context, database *sql.DB, input PublishedInput) (*PublishedOutput, error) {
	projectID, err := requireProjectID(input.ProjectID)
	if err != nil {
		return nil, err
	}
	if err := requireParent(ctx, database, projectID); err != nil {
		return nil, err
	}

	doc, err := db.GetPublished(ctx, database, projectID)
	if errors.Is(err, errors.ErrNotFound) {
		return &PublishedOutput{ProjectID: projectID}, nil
	}
	if err != nil {
		return nil, err
	}

	html, err := renderMarkdown(doc.Content)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return &PublishedOutput{
		ProjectID: projectID,
		Content:   doc.Content,
		HTML:      html,
		UpdatedAt: doc.UpdatedAt,
	}, nil
}

// SavePublishedInput contains parameters for the SavePublished operation.
type SavePublishedInput struct {
	ProjectID string  // required, must be a parent
	Content   *string // required
}

// SavePublishedOutput contains the result of the SavePublished operation.
type SavePublishedOutput struct {
	ProjectID string `json:"project_id"`
	UpdatedAt int64  `json:"updated_at"`
}

// SavePublished replaces the parent's published document.
func SavePublished(ctx context.Context, database *sql.DB, input SavePublishedInput) (*SavePublishedOutput, error) {
	projectID, err := requireProjectID(input.ProjectID)
	if err != nil {
		return nil, err
	}
	if input.Content == nil {
		return nil, errors.NewInvalidRequest("content is required")
	}
	if len(*input.Content) > MaxPublishedBytes {
		return nil, errors.NewInvalidRequest("content exceeds 1 MiB")
	}
	if err := requireParent(ctx, database, projectID); err != nil {
		return nil, err
	}

	ts := now().Unix()
	if err := db.UpsertPublished(ctx, database, db.PublishedDoc{
		ProjectID: projectID,
		Content:   *input.Content,
		UpdatedAt: ts,
	}); err != nil {
		return nil, err
	}
	return &SavePublishedOutput{ProjectID: projectID, UpdatedAt: ts}, nil
}

// renderMarkdown converts markdown text to HTML using goldmark.
// Raw HTML in the source is dropped by goldmark's default renderer.
func renderMarkdown(md string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
