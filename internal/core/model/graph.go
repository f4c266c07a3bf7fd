package model

// EntityRelation pairs a temporal event with the entity it points at. The
// professional snapshot handed to graph sync is a list of these.
type EntityRelation struct {
	Event  TemporalEvent   `json:"event"`
	Entity CanonicalEntity `json:"entity"`
}

// ProfessionalSnapshot is one user's full canonical relational state, the
// unit of an idempotent graph resync.
type ProfessionalSnapshot struct {
	UserID    string           `json:"user_id"`
	Relations []EntityRelation `json:"relations"`
}

// NetworkNode and NetworkEdge mirror graph store records in read payloads.
type NetworkNode struct {
	ID         string                 `json:"id"`
	Label      string                 `json:"label"`
	Kind       string                 `json:"kind"`
	Properties map[string]interface{} `json:"properties,omitempty"`
}

type NetworkEdge struct {
	ID       string `json:"id"`
	SourceID string `json:"source"`
	TargetID string `json:"target"`
	Type     string `json:"type"`
}

type ProfessionalNetwork struct {
	Nodes []NetworkNode `json:"nodes"`
	Edges []NetworkEdge `json:"edges"`
}

// Colleague is another user who shared an employer with overlapping tenure.
type Colleague struct {
	UserID        string `json:"user_id"`
	Company       string `json:"company"`
	OverlapMonths int    `json:"overlap_months"`
}

// CareerPath is one graph path between two role titles.
type CareerPath struct {
	Roles []string `json:"roles"`
	Hops  int      `json:"hops"`
}

// SkillMigration is an aggregate transition observed across users.
type SkillMigration struct {
	FromSkill string `json:"from_skill"`
	ToSkill   string `json:"to_skill"`
	Count     int64  `json:"count"`
}

// GraphStats summarizes the projection for diagnostics.
type GraphStats struct {
	NodeCounts map[string]int64 `json:"node_counts"`
	EdgeCounts map[string]int64 `json:"edge_counts"`
}

// DeltaType enumerates the graph change notifications.
type DeltaType string

const (
	DeltaNodeAdded         DeltaType = "node_added"
	DeltaRelationshipAdded DeltaType = "relationship_added"
	DeltaNodeUpdated       DeltaType = "node_updated"
	DeltaNodeRemoved       DeltaType = "node_removed"
)

// GraphDelta is one change broadcast to live subscribers.
type GraphDelta struct {
	Type    DeltaType              `json:"type"`
	UserID  string                 `json:"user_id"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}
