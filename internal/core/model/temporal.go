package model

import "time"

// Relation types recorded in the temporal event log.
const (
	RelationHasSkill  = "HAS_SKILL"
	RelationWorkedAt  = "WORKED_AT"
	RelationStudiedAt = "STUDIED_AT"
	RelationPursues   = "PURSUES"
)

// KindForRelation maps a relation type to the entity kind it targets.
func KindForRelation(relation string) (EntityKind, bool) {
	switch relation {
	case RelationWorkedAt:
		return KindCompany, true
	case RelationStudiedAt:
		return KindInstitution, true
	case RelationHasSkill, RelationPursues:
		return KindSkill, true
	}
	return "", false
}

// TemporalEvent is a bi-temporal record of when a relationship between a
// user and a canonical entity was or is valid. For a given
// (user, entity, relation) at most one event is open (ValidTo == nil).
type TemporalEvent struct {
	ID           string                 `json:"id"`
	UserID       string                 `json:"user_id"`
	EntityID     string                 `json:"entity_id"`
	RelationType string                 `json:"relation_type"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	ValidFrom    time.Time              `json:"t_valid"`
	ValidTo      *time.Time             `json:"t_invalid,omitempty"`
	CreatedAt    time.Time              `json:"t_created"`
}

// Open reports whether the event is still valid.
func (e *TemporalEvent) Open() bool {
	return e.ValidTo == nil
}

// TimelineNode aggregates the validity intervals of one entity on the
// derived timeline view.
type TimelineNode struct {
	EntityID       string     `json:"entity_id"`
	EntityName     string     `json:"entity_name"`
	RelationType   string     `json:"relation_type"`
	ValidFrom      time.Time  `json:"t_valid"`
	ValidTo        *time.Time `json:"t_invalid,omitempty"`
	IsActive       bool       `json:"is_active"`
	DurationMonths int        `json:"duration_months"`
}

// TimelineLink connects two temporally overlapping timeline nodes.
// Strength grows with overlap duration.
type TimelineLink struct {
	SourceEntityID string  `json:"source"`
	TargetEntityID string  `json:"target"`
	OverlapMonths  int     `json:"overlap_months"`
	Strength       float64 `json:"strength"`
}

// Timeline is the derived view served to visualization clients.
type Timeline struct {
	Nodes     []TimelineNode `json:"nodes"`
	Links     []TimelineLink `json:"links"`
	TimeRange *TimeRange     `json:"timeRange,omitempty"`
}

type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// ProgressionStep is one chronological step in a user's career.
type ProgressionStep struct {
	Order        int                    `json:"order"`
	RelationType string                 `json:"relation_type"`
	EntityName   string                 `json:"entity_name"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	ValidFrom    time.Time              `json:"t_valid"`
	ValidTo      *time.Time             `json:"t_invalid,omitempty"`
}

// SkillJobOverlap reports how strongly a skill tracked with a job.
type SkillJobOverlap struct {
	Skill         string  `json:"skill"`
	Company       string  `json:"company"`
	OverlapMonths int     `json:"overlap_months"`
	Strength      float64 `json:"strength"`
}

// CareerProgression is the chronological analytics view over a user's events.
type CareerProgression struct {
	Steps    []ProgressionStep `json:"steps"`
	Overlaps []SkillJobOverlap `json:"skill_job_overlaps"`
}
