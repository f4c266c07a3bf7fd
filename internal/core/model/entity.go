package model

import "time"

// EntityKind is the category of a canonical reference entity.
type EntityKind string

const (
	KindCompany     EntityKind = "company"
	KindSkill       EntityKind = "skill"
	KindInstitution EntityKind = "institution"
)

// CanonicalEntity is a deduplicated reference record keyed by normalized
// name. There is exactly one row per (kind, normalized name).
type CanonicalEntity struct {
	ID             string                 `json:"id"`
	Kind           EntityKind             `json:"kind"`
	Name           string                 `json:"name"`
	NormalizedName string                 `json:"normalized_name"`
	Attributes     map[string]interface{} `json:"attributes,omitempty"`
	Verified       bool                   `json:"verified"`
	CreatedAt      time.Time              `json:"created_at"`
}
