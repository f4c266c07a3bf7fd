package core

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vitaegraph/vitae/internal/core/broadcast"
	"github.com/vitaegraph/vitae/internal/core/extraction"
	"github.com/vitaegraph/vitae/internal/core/graphsync"
	"github.com/vitaegraph/vitae/internal/core/ledger"
	"github.com/vitaegraph/vitae/internal/core/model"
	"github.com/vitaegraph/vitae/internal/core/resolver"
	"github.com/vitaegraph/vitae/internal/core/temporal"
	"github.com/vitaegraph/vitae/internal/logger"
)

// Engine ties the pipeline together: parse text into actions, record
// them as reviewable commits, and on commit apply them to the canonical
// store, the temporal log, the graph projection and live subscribers.
//
// Entity resolution and the temporal event each commit in their own
// transactions after the status change lands; a failure there leaves
// the commit marked committed and is returned to the caller. The graph
// resync and the broadcast are secondary effects: they run
// asynchronously and their failures are logged, never surfaced to the
// caller, because the relational store is the source of truth and the
// projection can always be rebuilt from it.
type Engine struct {
	extractor *extraction.Engine
	ledger    *ledger.Ledger
	resolver  *resolver.Resolver
	temporal  *temporal.Manager
	graph     *graphsync.Manager
	hub       *broadcast.Hub
	logger    *zap.Logger

	syncTimeout time.Duration
}

func NewEngine(l *ledger.Ledger, r *resolver.Resolver, t *temporal.Manager, g *graphsync.Manager, hub *broadcast.Hub) *Engine {
	return &Engine{
		extractor:   extraction.NewEngine(),
		ledger:      l,
		resolver:    r,
		temporal:    t,
		graph:       g,
		hub:         hub,
		logger:      logger.Get(),
		syncTimeout: 30 * time.Second,
	}
}

func (e *Engine) Ledger() *ledger.Ledger      { return e.ledger }
func (e *Engine) Temporal() *temporal.Manager { return e.temporal }
func (e *Engine) Graph() *graphsync.Manager   { return e.graph }
func (e *Engine) Hub() *broadcast.Hub         { return e.hub }

// ExtractionResult summarizes one processed message.
type ExtractionResult struct {
	BatchID       string                      `json:"batch_id,omitempty"`
	Commits       []*model.ConversationCommit `json:"commits"`
	Summary       map[string]int              `json:"summary"`
	AutoCommitted int                         `json:"auto_committed"`
	Failed        int                         `json:"failed"`
}

// ProcessMessage parses one conversation message and records a commit
// per extracted action. Commits land in the given batch, or a fresh one
// when batchID is empty. In auto mode an action whose confidence clears
// the floor is committed immediately instead of waiting for review. A
// failure on one action never discards the others.
func (e *Engine) ProcessMessage(ctx context.Context, userID, conversationID, batchID, text string, auto bool) (*ExtractionResult, error) {
	result := &ExtractionResult{
		Commits: []*model.ConversationCommit{},
		Summary: map[string]int{},
	}

	actions := e.extractor.Parse(text)

	var usable []model.ExtractedAction
	for _, a := range actions {
		if a.Type != model.ActionNone {
			usable = append(usable, a)
		}
	}
	if len(usable) == 0 {
		return result, nil
	}

	if batchID == "" {
		batch, err := e.ledger.CreateBatch(ctx, userID, conversationID)
		if err != nil {
			return nil, err
		}
		batchID = batch.ID
	}
	result.BatchID = batchID

	floor := e.ledger.Scoring().AutoCommitFloor()
	for _, action := range usable {
		initial := model.StatusPending
		if auto && e.ledger.Scoring().Score(action) >= floor {
			initial = model.StatusCommitted
		}

		commit, err := e.ledger.CreateCommit(ctx, userID, &batchID, action, text, initial)
		if err != nil {
			e.logger.Error("failed to record commit",
				zap.String("user_id", userID),
				zap.String("type", string(action.Type)),
				zap.Error(err))
			result.Failed++
			continue
		}

		if initial == model.StatusCommitted {
			if err := e.apply(ctx, commit); err != nil {
				e.logger.Error("failed to apply auto-committed action",
					zap.String("commit_id", commit.ID), zap.Error(err))
				result.Failed++
				continue
			}
			result.AutoCommitted++
		}

		result.Commits = append(result.Commits, commit)
		result.Summary[string(action.Type)]++
	}

	e.hub.Notify(userID, result)
	return result, nil
}

// ReviewCommit applies a reviewer decision. A transition into committed
// applies the commit's data to the canonical and temporal stores; the
// application failing rolls nothing back on the review itself, the
// status change has already happened and the error is returned.
func (e *Engine) ReviewCommit(ctx context.Context, userID, commitID string, update ledger.CommitUpdate) (*model.ConversationCommit, error) {
	current, err := e.ledger.GetCommit(ctx, userID, commitID)
	if err != nil {
		return nil, err
	}
	wasCommitted := current.Status == model.StatusCommitted

	updated, err := e.ledger.UpdateCommit(ctx, userID, commitID, update)
	if err != nil {
		return nil, err
	}

	if !wasCommitted && updated.Status == model.StatusCommitted {
		if err := e.apply(ctx, updated); err != nil {
			return updated, err
		}
	}
	return updated, nil
}

// AddTimelineEvent records a temporal event directly, bypassing the
// review ledger. The entity is addressed by id, or resolved by name so
// manual additions share the canonical namespace with extracted ones.
func (e *Engine) AddTimelineEvent(ctx context.Context, userID, entityID, entityName, relationType string, metadata map[string]interface{}, validFrom time.Time, validTo *time.Time) (*model.TemporalEvent, error) {
	var entity *model.CanonicalEntity
	var err error
	if entityID != "" {
		entity, err = e.resolver.Get(ctx, entityID)
	} else {
		kind, ok := model.KindForRelation(relationType)
		if !ok {
			return nil, fmt.Errorf("unknown relation type %q", relationType)
		}
		entity, err = e.resolver.Resolve(ctx, kind, entityName)
	}
	if err != nil {
		return nil, err
	}

	event, err := e.temporal.AddEvent(ctx, userID, entity.ID, relationType, metadata, validFrom, validTo)
	if err != nil {
		return nil, err
	}

	go e.afterApply(userID, entity, event)
	return event, nil
}

// AutoCommitPending promotes stale high-confidence pending commits.
// Used by the scheduled job. Returns how many were committed.
func (e *Engine) AutoCommitPending(ctx context.Context, minAge time.Duration) (int, error) {
	floor := e.ledger.Scoring().AutoCommitFloor()
	candidates, err := e.ledger.ListAutoCommittable(ctx, floor, minAge)
	if err != nil {
		return 0, err
	}

	committed := 0
	for _, c := range candidates {
		_, err := e.ReviewCommit(ctx, c.UserID, c.ID, ledger.CommitUpdate{
			Status:      model.StatusCommitted,
			ReviewNotes: "auto-committed: high confidence",
		})
		if err != nil {
			e.logger.Error("auto-commit failed",
				zap.String("commit_id", c.ID), zap.Error(err))
			continue
		}
		committed++
	}
	return committed, nil
}

// apply materializes a committed commit: resolve the canonical entity,
// append the temporal event, then kick off the secondary effects.
func (e *Engine) apply(ctx context.Context, commit *model.ConversationCommit) error {
	entity, err := e.resolver.Resolve(ctx, commit.ExtractionType.EntityKind(), commit.EntityName())
	if err != nil {
		return err
	}

	validFrom, validTo := eventWindow(commit.ExtractedData)
	event, err := e.temporal.AddEvent(ctx, commit.UserID, entity.ID,
		commit.ExtractionType.RelationType(), eventMetadata(commit.ExtractedData),
		validFrom, validTo)
	if err != nil {
		return err
	}

	e.logger.Info("commit applied",
		zap.String("commit_id", commit.ID),
		zap.String("entity_id", entity.ID),
		zap.String("relation", event.RelationType))

	go e.afterApply(commit.UserID, entity, event)
	return nil
}

// afterApply resyncs the graph projection and notifies subscribers.
// Best effort on both counts.
func (e *Engine) afterApply(userID string, entity *model.CanonicalEntity, event *model.TemporalEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), e.syncTimeout)
	defer cancel()

	snapshot, err := e.temporal.Snapshot(ctx, userID)
	if err != nil {
		e.logger.Error("failed to load snapshot for graph sync",
			zap.String("user_id", userID), zap.Error(err))
		return
	}
	if err := e.graph.SyncUserData(ctx, snapshot); err != nil {
		e.logger.Error("graph sync failed",
			zap.String("user_id", userID), zap.Error(err))
		return
	}

	e.hub.Publish(userID, model.GraphDelta{
		Type:   model.DeltaRelationshipAdded,
		UserID: userID,
		Payload: map[string]interface{}{
			"event_id":  event.ID,
			"entity_id": entity.ID,
			"entity":    entity.Name,
			"relation":  event.RelationType,
		},
	})
}

// eventWindow derives validity bounds from extracted year fields; a
// missing start means the fact is asserted as of now.
func eventWindow(data map[string]interface{}) (time.Time, *time.Time) {
	validFrom := time.Now().UTC()
	if y, ok := yearField(data, "start_year"); ok {
		validFrom = time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
	}

	var validTo *time.Time
	if y, ok := yearField(data, "end_year"); ok {
		t := time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
		validTo = &t
	}
	return validFrom, validTo
}

// yearField tolerates both int and the float64 that JSONB round-trips
// numbers into.
func yearField(data map[string]interface{}, key string) (int, bool) {
	switch v := data[key].(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	}
	return 0, false
}

// eventMetadata keeps the descriptive detail fields and drops the ones
// already modeled as columns.
func eventMetadata(data map[string]interface{}) map[string]interface{} {
	metadata := map[string]interface{}{}
	for k, v := range data {
		switch k {
		case "entity", "start_year", "end_year":
		default:
			metadata[k] = v
		}
	}
	return metadata
}
