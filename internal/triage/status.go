package triage

// Triage statuses shared by every collection. Anything else is finalized.
const (
	StatusFlagged = "flagged"
	StatusPending = "pending"
)

// Phase is the lifecycle partition an item status falls into.
type Phase string

const (
	PhaseFlagged   Phase = "flagged"
	PhasePending   Phase = "pending"
	PhaseFinalized Phase = "finalized"
)

// Classify maps a collection-specific status onto its phase. Unknown
// vocabularies are finalized, mirroring the NOT IN predicate used in SQL.
func Classify(status string) Phase {
	switch status {
	case StatusFlagged:
		return PhaseFlagged
	case StatusPending:
		return PhasePending
	default:
		return PhaseFinalized
	}
}
