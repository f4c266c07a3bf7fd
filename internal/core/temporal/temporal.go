package temporal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vitaegraph/vitae/internal/core/model"
	"github.com/vitaegraph/vitae/internal/logger"
	"github.com/vitaegraph/vitae/internal/store"
)

// Manager owns the bi-temporal event log. For any
// (user, entity, relation) at most one event is open; AddEvent closes
// the prior open event and inserts the new one in a single transaction,
// and a partial unique index backs the invariant at the schema level.
type Manager struct {
	db     *sql.DB
	logger *zap.Logger
}

func New(db *sql.DB) *Manager {
	return &Manager{db: db, logger: logger.Get()}
}

// AddEvent appends a validity event. An existing open event for the same
// relation is closed at the new event's valid-from time first.
func (m *Manager) AddEvent(ctx context.Context, userID, entityID, relationType string, metadata map[string]interface{}, validFrom time.Time, validTo *time.Time) (*model.TemporalEvent, error) {
	event := &model.TemporalEvent{
		ID:           uuid.New().String(),
		UserID:       userID,
		EntityID:     entityID,
		RelationType: relationType,
		Metadata:     metadata,
		ValidFrom:    validFrom.UTC(),
	}
	if validTo != nil {
		t := validTo.UTC()
		event.ValidTo = &t
	}

	err := store.WithTx(m.db, func(tx *sql.Tx) error {
		// Close-then-open: both writes or neither.
		res, err := tx.ExecContext(ctx, `
			UPDATE temporal_events
			SET valid_to = $1
			WHERE user_id = $2 AND entity_id = $3 AND relation_type = $4
			  AND valid_to IS NULL
		`, event.ValidFrom, userID, entityID, relationType)
		if err != nil {
			return fmt.Errorf("failed to close open event: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			m.logger.Debug("closed prior open event",
				zap.String("user_id", userID),
				zap.String("entity_id", entityID),
				zap.String("relation", relationType))
		}

		row := tx.QueryRowContext(ctx, `
			INSERT INTO temporal_events
				(id, user_id, entity_id, relation_type, metadata, valid_from, valid_to)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING created_at
		`, event.ID, event.UserID, event.EntityID, event.RelationType,
			store.JSONMap(event.Metadata), event.ValidFrom, event.ValidTo)

		if err := row.Scan(&event.CreatedAt); err != nil {
			return fmt.Errorf("failed to insert event: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}

// EventRecord is a temporal event joined with its entity.
type EventRecord struct {
	model.TemporalEvent
	EntityName string
	EntityKind model.EntityKind
}

// Events loads a user's event records, oldest first, optionally limited
// to those overlapping the window.
func (m *Manager) Events(ctx context.Context, userID string, rng *model.TimeRange) ([]EventRecord, error) {
	query := `
		SELECT e.id, e.user_id, e.entity_id, e.relation_type, e.metadata,
		       e.valid_from, e.valid_to, e.created_at, c.name, c.kind
		FROM temporal_events e
		JOIN canonical_entities c ON c.id = e.entity_id
		WHERE e.user_id = $1`
	args := []interface{}{userID}

	if rng != nil {
		args = append(args, rng.End, rng.Start)
		query += fmt.Sprintf(" AND e.valid_from <= $%d AND (e.valid_to IS NULL OR e.valid_to >= $%d)",
			len(args)-1, len(args))
	}
	query += " ORDER BY e.valid_from ASC, e.created_at ASC"

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var records []EventRecord
	for rows.Next() {
		var r EventRecord
		var metadata store.JSONMap
		err := rows.Scan(&r.ID, &r.UserID, &r.EntityID, &r.RelationType, &metadata,
			&r.ValidFrom, &r.ValidTo, &r.CreatedAt, &r.EntityName, &r.EntityKind)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		r.Metadata = metadata
		records = append(records, r)
	}
	return records, rows.Err()
}

// Timeline derives the node/link view for a user, optionally windowed.
func (m *Manager) Timeline(ctx context.Context, userID string, rng *model.TimeRange) (*model.Timeline, error) {
	records, err := m.Events(ctx, userID, rng)
	if err != nil {
		return nil, err
	}
	return BuildTimeline(records, rng, time.Now().UTC()), nil
}

// Progression derives the chronological career view for a user.
func (m *Manager) Progression(ctx context.Context, userID string) (*model.CareerProgression, error) {
	records, err := m.Events(ctx, userID, nil)
	if err != nil {
		return nil, err
	}
	return BuildProgression(records, time.Now().UTC()), nil
}

// Snapshot assembles the user's full canonical relational state for
// graph projection.
func (m *Manager) Snapshot(ctx context.Context, userID string) (*model.ProfessionalSnapshot, error) {
	records, err := m.Events(ctx, userID, nil)
	if err != nil {
		return nil, err
	}

	snapshot := &model.ProfessionalSnapshot{UserID: userID}
	for _, r := range records {
		snapshot.Relations = append(snapshot.Relations, model.EntityRelation{
			Event: r.TemporalEvent,
			Entity: model.CanonicalEntity{
				ID:   r.EntityID,
				Kind: r.EntityKind,
				Name: r.EntityName,
			},
		})
	}
	return snapshot, nil
}
