package triage

// Metadata keys written by the promotion gate.
const (
	MetaReadyForPublish    = "ready_for_publish"
	MetaPromotedToParentID = "promoted_to_parent_id"
	MetaPromotedAt         = "promoted_at"
)

// Metadata is the free-form JSON object stored with every item.
type Metadata map[string]any

// ReadyForPublish reports the ready_for_publish flag.
func (m Metadata) ReadyForPublish() bool {
	v, _ := m[MetaReadyForPublish].(bool)
	return v
}

// PromotedTo returns the parent the item was last promoted to, if any.
func (m Metadata) PromotedTo() (string, bool) {
	v, ok := m[MetaPromotedToParentID].(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Promotable reports whether the item belongs in parentID's promotion queue.
// An item promoted to a different parent stays eligible.
func (m Metadata) Promotable(parentID string) bool {
	if !m.ReadyForPublish() {
		return false
	}
	to, ok := m.PromotedTo()
	return !ok || to != parentID
}

// Item is one extracted row in a bucket collection.
type Item struct {
	ID              string   `json:"id"`
	ProjectID       string   `json:"project_id"`
	Bucket          string   `json:"bucket"`
	Collection      string   `json:"-"`
	Category        *string  `json:"category,omitempty"`
	Status          string   `json:"status"`
	Title           string   `json:"title"`
	Content         string   `json:"content"`
	Priority        *string  `json:"priority,omitempty"`
	SourceSessionID *string  `json:"source_session_id,omitempty"`
	Metadata        Metadata `json:"metadata"`
	CreatedAt       int64    `json:"created_at"`
	UpdatedAt       int64    `json:"updated_at"`
}
