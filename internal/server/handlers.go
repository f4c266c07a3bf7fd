package server

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vitaegraph/vitae/internal/core/community"
	"github.com/vitaegraph/vitae/internal/core/ledger"
	"github.com/vitaegraph/vitae/internal/core/model"
	"github.com/vitaegraph/vitae/internal/core/resolver"
	"github.com/vitaegraph/vitae/internal/core/summary"
)

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type ExtractRequest struct {
	ConversationText string `json:"conversationText" binding:"required"`
	ConversationID   string `json:"conversationId"`
	BatchID          string `json:"batchId"`
	ExtractionMode   string `json:"extractionMode"`
}

// Extract parses one message and records its actions as commits.
// extractionMode=auto commits high-confidence actions immediately.
func (s *Server) Extract(c *gin.Context) {
	var req ExtractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "conversationText is required"})
		return
	}

	result, err := s.engine.ProcessMessage(c.Request.Context(), userID(c),
		req.ConversationID, req.BatchID, req.ConversationText, req.ExtractionMode == "auto")
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type CreateBatchRequest struct {
	ConversationID string `json:"conversation_id"`
}

func (s *Server) CreateBatch(c *gin.Context) {
	var req CreateBatchRequest
	_ = c.ShouldBindJSON(&req)

	batch, err := s.engine.Ledger().CreateBatch(c.Request.Context(), userID(c), req.ConversationID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, batch)
}

func (s *Server) ListBatches(c *gin.Context) {
	batches, err := s.engine.Ledger().ListBatches(c.Request.Context(), userID(c), intQuery(c, "limit"))
	if err != nil {
		s.fail(c, err)
		return
	}
	if batches == nil {
		batches = []*model.CommitBatch{}
	}
	c.JSON(http.StatusOK, gin.H{"batches": batches})
}

func (s *Server) GetBatch(c *gin.Context) {
	batch, err := s.engine.Ledger().GetBatch(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, batch)
}

type UpdateBatchRequest struct {
	ConversationID string `json:"conversationId" binding:"required"`
}

func (s *Server) UpdateBatch(c *gin.Context) {
	var req UpdateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "conversationId is required"})
		return
	}

	batch, err := s.engine.Ledger().UpdateBatch(c.Request.Context(), userID(c), c.Param("id"), req.ConversationID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, batch)
}

func (s *Server) DeleteBatch(c *gin.Context) {
	if err := s.engine.Ledger().DeleteBatch(c.Request.Context(), userID(c), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

type CreateCommitRequest struct {
	BatchID      string                 `json:"batchId"`
	Type         string                 `json:"type" binding:"required"`
	Entity       string                 `json:"entity" binding:"required"`
	Details      map[string]interface{} `json:"details"`
	OriginalText string                 `json:"originalText"`
}

// CreateCommit records a commit directly, without going through
// extraction. It enters the ledger pending like any extracted one.
func (s *Server) CreateCommit(c *gin.Context) {
	var req CreateCommitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type and entity are required"})
		return
	}

	actionType := model.ActionType(req.Type)
	if actionType.TargetLayer() == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown commit type"})
		return
	}

	var batchID *string
	if req.BatchID != "" {
		batchID = &req.BatchID
	}

	commit, err := s.engine.Ledger().CreateCommit(c.Request.Context(), userID(c), batchID,
		model.ExtractedAction{Type: actionType, Entity: req.Entity, Details: req.Details},
		req.OriginalText, model.StatusPending)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, commit)
}

func (s *Server) ListCommits(c *gin.Context) {
	filter := ledger.CommitFilter{
		Status:  model.CommitStatus(c.Query("status")),
		BatchID: c.Query("batch_id"),
		Type:    model.ActionType(c.Query("type")),
		Limit:   intQuery(c, "limit"),
	}

	commits, err := s.engine.Ledger().ListCommits(c.Request.Context(), userID(c), filter)
	if err != nil {
		s.fail(c, err)
		return
	}
	if commits == nil {
		commits = []*model.ConversationCommit{}
	}
	c.JSON(http.StatusOK, gin.H{"commits": commits})
}

func (s *Server) GetCommit(c *gin.Context) {
	commit, err := s.engine.Ledger().GetCommit(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, commit)
}

type ReviewRequest struct {
	Status      string                 `json:"status"`
	ReviewNotes string                 `json:"review_notes"`
	Edits       map[string]interface{} `json:"edits"`
}

// ReviewCommit applies a reviewer decision, optionally editing the
// extracted data before it lands.
func (s *Server) ReviewCommit(c *gin.Context) {
	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	commit, err := s.engine.ReviewCommit(c.Request.Context(), userID(c), c.Param("id"), ledger.CommitUpdate{
		Status:      model.CommitStatus(req.Status),
		ReviewNotes: req.ReviewNotes,
		Edits:       req.Edits,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, commit)
}

func (s *Server) DeleteCommit(c *gin.Context) {
	if err := s.engine.Ledger().DeleteCommit(c.Request.Context(), userID(c), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// Timeline returns the node/link career view, optionally windowed by
// startDate and endDate query params (RFC3339 or YYYY-MM-DD).
func (s *Server) Timeline(c *gin.Context) {
	rng, err := timeRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	timeline, err := s.engine.Temporal().Timeline(c.Request.Context(), userID(c), rng)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, timeline)
}

// TimelineClusters groups the timeline's entities by temporal overlap
// using weighted label propagation.
func (s *Server) TimelineClusters(c *gin.Context) {
	rng, err := timeRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	timeline, err := s.engine.Temporal().Timeline(c.Request.Context(), userID(c), rng)
	if err != nil {
		s.fail(c, err)
		return
	}

	clusters := community.NewLabelPropagation().Detect(timeline.Nodes, timeline.Links)
	if clusters == nil {
		clusters = [][]model.TimelineNode{}
	}
	c.JSON(http.StatusOK, gin.H{
		"clusters":  clusters,
		"summaries": summary.Summarize(clusters),
	})
}

type AddTimelineEventRequest struct {
	Type       string                 `json:"type" binding:"required"`
	EntityID   string                 `json:"entityId"`
	EntityName string                 `json:"entityName"`
	Metadata   map[string]interface{} `json:"metadata"`
	ValidFrom  string                 `json:"t_valid" binding:"required"`
	ValidTo    string                 `json:"t_invalid"`
}

// AddTimelineEvent appends a temporal event directly. The entity is
// addressed by id or by name (resolved canonically); an open event for
// the same relation is closed at the new valid-from time.
func (s *Server) AddTimelineEvent(c *gin.Context) {
	var req AddTimelineEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type and t_valid are required"})
		return
	}
	if req.EntityID == "" && req.EntityName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "entityId or entityName is required"})
		return
	}

	if _, ok := model.KindForRelation(req.Type); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown relation type"})
		return
	}

	validFrom, err := parseTime(req.ValidFrom)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid t_valid"})
		return
	}
	var validTo *time.Time
	if req.ValidTo != "" {
		t, err := parseTime(req.ValidTo)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid t_invalid"})
			return
		}
		validTo = &t
	}

	event, err := s.engine.AddTimelineEvent(c.Request.Context(), userID(c),
		req.EntityID, req.EntityName, req.Type, req.Metadata, validFrom, validTo)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, event)
}

func (s *Server) Progression(c *gin.Context) {
	progression, err := s.engine.Temporal().Progression(c.Request.Context(), userID(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, progression)
}

// fail maps domain errors onto status codes. Ownership violations look
// identical to missing rows on purpose.
func (s *Server) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ledger.ErrNotFound), errors.Is(err, sql.ErrNoRows):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, ledger.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, resolver.ErrEmptyName):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		s.logger.Error("request failed",
			zap.String("path", c.Request.URL.Path), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func intQuery(c *gin.Context, key string) int {
	n, _ := strconv.Atoi(c.Query(key))
	return n
}

func timeRange(c *gin.Context) (*model.TimeRange, error) {
	start := c.Query("startDate")
	end := c.Query("endDate")
	if start == "" && end == "" {
		return nil, nil
	}

	rng := &model.TimeRange{Start: time.Time{}, End: time.Now().UTC()}
	if start != "" {
		t, err := parseTime(start)
		if err != nil {
			return nil, err
		}
		rng.Start = t
	}
	if end != "" {
		t, err := parseTime(end)
		if err != nil {
			return nil, err
		}
		rng.End = t
	}
	return rng, nil
}

func parseTime(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", v)
}
