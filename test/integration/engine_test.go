//go:build integration

package integration

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitaegraph/vitae/internal/core"
	"github.com/vitaegraph/vitae/internal/core/broadcast"
	"github.com/vitaegraph/vitae/internal/core/graphsync"
	"github.com/vitaegraph/vitae/internal/core/ledger"
	"github.com/vitaegraph/vitae/internal/core/model"
	"github.com/vitaegraph/vitae/internal/core/resolver"
	"github.com/vitaegraph/vitae/internal/core/temporal"
)

// noopDriver stands in for the graph store; projection writes are a
// secondary effect and not under test here.
type noopDriver struct{}

func (noopDriver) ExecuteQuery(context.Context, string, map[string]interface{}) (neo4j.EagerResult, error) {
	return neo4j.EagerResult{}, nil
}
func (noopDriver) BuildIndices(context.Context) error { return nil }
func (noopDriver) Close(context.Context) error        { return nil }

func newEngine() *core.Engine {
	return core.NewEngine(
		newLedger(),
		resolver.New(db),
		temporal.New(db),
		graphsync.New(noopDriver{}),
		broadcast.NewHub(),
	)
}

func TestProcessMessageRecordsPendingCommits(t *testing.T) {
	ctx := context.Background()
	engine := newEngine()
	user := uuid.New().String()

	result, err := engine.ProcessMessage(ctx, user, "conv-1", "",
		"I have 5 years of experience with Python and I'm an expert in machine learning", false)
	require.NoError(t, err)

	require.Len(t, result.Commits, 2)
	assert.Equal(t, 2, result.Summary["skill"])
	assert.NotEmpty(t, result.BatchID)
	for _, c := range result.Commits {
		assert.Equal(t, model.StatusPending, c.Status)
		assert.GreaterOrEqual(t, c.Confidence, 0.70)
	}

	batch, err := engine.Ledger().GetBatch(ctx, user, result.BatchID)
	require.NoError(t, err)
	assert.Equal(t, 2, batch.TotalCommits)
	assert.Equal(t, 2, batch.PendingCommits)
}

func TestProcessMessageWithNoFactsCreatesNothing(t *testing.T) {
	ctx := context.Background()
	engine := newEngine()
	user := uuid.New().String()

	result, err := engine.ProcessMessage(ctx, user, "conv-2", "", "nice weather today", false)
	require.NoError(t, err)

	assert.Empty(t, result.Commits)
	assert.Empty(t, result.BatchID)
}

func TestReviewToCommittedAppliesTemporalEvent(t *testing.T) {
	ctx := context.Background()
	engine := newEngine()
	user := uuid.New().String()

	result, err := engine.ProcessMessage(ctx, user, "conv-3", "",
		"I worked at Acme Corp as a backend engineer from 2019 to 2022", false)
	require.NoError(t, err)
	require.Len(t, result.Commits, 1)

	commit, err := engine.ReviewCommit(ctx, user, result.Commits[0].ID,
		ledger.CommitUpdate{Status: model.StatusCommitted})
	require.NoError(t, err)
	assert.Equal(t, model.StatusCommitted, commit.Status)

	records, err := engine.Temporal().Events(ctx, user, nil)
	require.NoError(t, err)
	require.Len(t, records, 1)

	event := records[0]
	assert.Equal(t, model.RelationWorkedAt, event.RelationType)
	assert.Equal(t, "Acme Corp", event.EntityName)
	assert.Equal(t, 2019, event.ValidFrom.Year())
	require.NotNil(t, event.ValidTo)
	assert.Equal(t, 2022, event.ValidTo.Year())
	assert.Equal(t, "backend engineer", event.Metadata["role"])
}

func TestAutoModeCommitsHighConfidenceActions(t *testing.T) {
	ctx := context.Background()
	engine := newEngine()
	user := uuid.New().String()

	// dated experience scores past the auto-commit floor
	result, err := engine.ProcessMessage(ctx, user, "conv-4", "",
		"I worked at Massive Dynamic as a staff engineer from 2015 to 2020", true)
	require.NoError(t, err)

	require.Len(t, result.Commits, 1)
	assert.Equal(t, 1, result.AutoCommitted)
	assert.Equal(t, model.StatusCommitted, result.Commits[0].Status)

	records, err := engine.Temporal().Events(ctx, user, nil)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
