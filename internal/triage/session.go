package triage

// Session statuses. Transitions happen outside this service.
const (
	SessionActive    = "active"
	SessionProcessed = "processed"
	SessionCleaned   = "cleaned"
	SessionArchived  = "archived"
)

// SessionStatuses lists every valid session status.
var SessionStatuses = []string{SessionActive, SessionProcessed, SessionCleaned, SessionArchived}

// ValidSessionStatus reports whether s is a known session status.
func ValidSessionStatus(s string) bool {
	for _, v := range SessionStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// SessionExited reports whether a session has left the triage pipeline.
// Items of exited sessions do not count as work waiting to be triaged.
func SessionExited(status string) bool {
	return status == SessionCleaned || status == SessionArchived
}

// Session is a captured raw work session.
type Session struct {
	ID           string  `json:"id"`
	ProjectID    *string `json:"project_id,omitempty"`
	Status       string  `json:"status"`
	Source       string  `json:"source"`
	MessageCount int     `json:"message_count"`
	StartedAt    int64   `json:"started_at"`
	EndedAt      *int64  `json:"ended_at,omitempty"`
	CreatedAt    int64   `json:"created_at"`
}
