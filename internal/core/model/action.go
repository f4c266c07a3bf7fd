package model

// ActionType classifies what a parsed span of conversation text describes.
type ActionType string

const (
	ActionSkill      ActionType = "skill"
	ActionExperience ActionType = "experience"
	ActionEducation  ActionType = "education"
	ActionObjective  ActionType = "objective"
	ActionKeyResult  ActionType = "key_result"
	ActionNone       ActionType = "none"
)

// ExtractedAction is one typed candidate fact produced by a parse call.
// Actions are transient: they only exist between parsing and commit creation.
type ExtractedAction struct {
	Type    ActionType             `json:"type"`
	Entity  string                 `json:"entity"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// TargetLayer maps an action type to the profile layer its commit writes to.
func (t ActionType) TargetLayer() string {
	switch t {
	case ActionSkill:
		return "skills"
	case ActionExperience:
		return "experience"
	case ActionEducation:
		return "education"
	case ActionObjective, ActionKeyResult:
		return "objectives"
	default:
		return ""
	}
}

// RelationType maps an action type to the temporal relation it opens.
func (t ActionType) RelationType() string {
	switch t {
	case ActionSkill:
		return RelationHasSkill
	case ActionExperience:
		return RelationWorkedAt
	case ActionEducation:
		return RelationStudiedAt
	case ActionObjective, ActionKeyResult:
		return RelationPursues
	default:
		return ""
	}
}

// EntityKind maps an action type to the canonical entity kind it references.
func (t ActionType) EntityKind() EntityKind {
	switch t {
	case ActionExperience:
		return KindCompany
	case ActionEducation:
		return KindInstitution
	default:
		return KindSkill
	}
}
