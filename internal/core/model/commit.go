package model

import "time"

// CommitStatus is the review state of a conversation commit.
type CommitStatus string

const (
	StatusPending   CommitStatus = "pending"
	StatusApproved  CommitStatus = "approved"
	StatusRejected  CommitStatus = "rejected"
	StatusCommitted CommitStatus = "committed"
)

// Terminal reports whether a status permits no further transitions.
func (s CommitStatus) Terminal() bool {
	return s == StatusRejected || s == StatusCommitted
}

// Valid reports whether s is a known status value.
func (s CommitStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusCommitted:
		return true
	}
	return false
}

// ConversationCommit is a proposed, reviewable structured update derived
// from one parsed conversation action.
type ConversationCommit struct {
	ID             string                 `json:"id"`
	UserID         string                 `json:"user_id"`
	BatchID        *string                `json:"batch_id,omitempty"`
	ExtractionType ActionType             `json:"extraction_type"`
	Confidence     float64                `json:"confidence"`
	OriginalText   string                 `json:"original_text_snippet"`
	ExtractedData  map[string]interface{} `json:"extracted_data"`
	TargetLayer    string                 `json:"target_layer"`
	Status         CommitStatus           `json:"status"`
	ReviewNotes    string                 `json:"review_notes,omitempty"`
	ReviewedAt     *time.Time             `json:"reviewed_at,omitempty"`
	CommittedAt    *time.Time             `json:"committed_at,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

// EntityName returns the canonical entity name the commit refers to.
func (c *ConversationCommit) EntityName() string {
	if c.ExtractedData == nil {
		return ""
	}
	if v, ok := c.ExtractedData["entity"].(string); ok {
		return v
	}
	return ""
}

// CommitBatch groups the commits of one conversation with aggregated
// status counters. total == pending+approved+rejected+committed always.
type CommitBatch struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	ConversationID   string    `json:"conversation_id,omitempty"`
	TotalCommits     int       `json:"total_commits"`
	PendingCommits   int       `json:"pending_commits"`
	ApprovedCommits  int       `json:"approved_commits"`
	RejectedCommits  int       `json:"rejected_commits"`
	CommittedCommits int       `json:"committed_commits"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
