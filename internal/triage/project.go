package triage

// ParentFlag is the stored tri-state is_parent column.
type ParentFlag int

const (
	FlagUnspecified ParentFlag = iota
	FlagParent
	FlagChild
)

// ParentFlagFrom converts a nullable is_parent column value.
func ParentFlagFrom(isParent *bool) ParentFlag {
	switch {
	case isParent == nil:
		return FlagUnspecified
	case *isParent:
		return FlagParent
	default:
		return FlagChild
	}
}

// Ptr returns the nullable column value for the flag.
func (f ParentFlag) Ptr() *bool {
	switch f {
	case FlagParent:
		v := true
		return &v
	case FlagChild:
		v := false
		return &v
	default:
		return nil
	}
}

// ResolveParent is the single parent predicate: an explicit flag wins,
// otherwise a project is a parent iff it has no parent_id.
func ResolveParent(flag ParentFlag, parentID *string) bool {
	switch flag {
	case FlagParent:
		return true
	case FlagChild:
		return false
	default:
		return parentID == nil || *parentID == ""
	}
}

// Project is a row of the projects table.
type Project struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Slug           string     `json:"slug"`
	ParentFlag     ParentFlag `json:"-"`
	ParentID       *string    `json:"parent_id,omitempty"`
	TablePrefix    *string    `json:"table_prefix,omitempty"`
	DatabaseSchema *string    `json:"database_schema,omitempty"`
	IsActive       bool       `json:"is_active"`
	CreatedAt      int64      `json:"created_at"`
}

// IsParent reports whether the project may use parent-only operations.
func (p *Project) IsParent() bool {
	return ResolveParent(p.ParentFlag, p.ParentID)
}
