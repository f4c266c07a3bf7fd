package resolver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/vitaegraph/vitae/internal/core/model"
	"github.com/vitaegraph/vitae/internal/store"
)

// ErrEmptyName is returned when a name normalizes to nothing.
var ErrEmptyName = errors.New("entity name is empty")

// Querier is satisfied by *sql.DB and *sql.Tx so resolution can join a
// caller's transaction.
type Querier interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Resolver deduplicates canonical reference entities. The lookup key is
// the case-insensitive, whitespace-collapsed name; concurrent identical
// resolutions are closed by the unique constraint on
// (kind, normalized_name) plus upsert-on-conflict, not check-then-insert.
type Resolver struct {
	db *sql.DB
}

func New(db *sql.DB) *Resolver {
	return &Resolver{db: db}
}

// Normalize produces the dedup key for an entity name.
func Normalize(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// Resolve finds or creates the canonical entity for (kind, name).
func (r *Resolver) Resolve(ctx context.Context, kind model.EntityKind, name string) (*model.CanonicalEntity, error) {
	return r.ResolveIn(ctx, r.db, kind, name)
}

// ResolveIn is Resolve running against the given querier, typically a
// transaction owned by the caller.
func (r *Resolver) ResolveIn(ctx context.Context, q Querier, kind model.EntityKind, name string) (*model.CanonicalEntity, error) {
	normalized := Normalize(name)
	if normalized == "" {
		return nil, ErrEmptyName
	}

	entity := &model.CanonicalEntity{}
	var attributes store.JSONMap

	// The no-op DO UPDATE makes the RETURNING clause yield the existing
	// row on conflict; first writer wins the display name.
	row := q.QueryRowContext(ctx, `
		INSERT INTO canonical_entities (id, kind, name, normalized_name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (kind, normalized_name)
		DO UPDATE SET normalized_name = EXCLUDED.normalized_name
		RETURNING id, kind, name, normalized_name, attributes, verified, created_at
	`, uuid.New().String(), kind, strings.TrimSpace(name), normalized)

	err := row.Scan(&entity.ID, &entity.Kind, &entity.Name, &entity.NormalizedName,
		&attributes, &entity.Verified, &entity.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve entity %q: %w", normalized, err)
	}

	entity.Attributes = attributes
	return entity, nil
}

// Get loads a canonical entity by id.
func (r *Resolver) Get(ctx context.Context, id string) (*model.CanonicalEntity, error) {
	entity := &model.CanonicalEntity{}
	var attributes store.JSONMap

	row := r.db.QueryRowContext(ctx, `
		SELECT id, kind, name, normalized_name, attributes, verified, created_at
		FROM canonical_entities
		WHERE id = $1
	`, id)

	err := row.Scan(&entity.ID, &entity.Kind, &entity.Name, &entity.NormalizedName,
		&attributes, &entity.Verified, &entity.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("entity %s: %w", id, sql.ErrNoRows)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load entity: %w", err)
	}

	entity.Attributes = attributes
	return entity, nil
}
