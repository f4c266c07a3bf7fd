//go:build integration

package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitaegraph/vitae/internal/core/model"
	"github.com/vitaegraph/vitae/internal/core/resolver"
)

func TestResolveIsDeterministic(t *testing.T) {
	ctx := context.Background()
	r := resolver.New(db)

	first, err := r.Resolve(ctx, model.KindCompany, "Acme Corp")
	require.NoError(t, err)

	// case and whitespace variants hit the same canonical row
	second, err := r.Resolve(ctx, model.KindCompany, "  acme   CORP ")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Acme Corp", second.Name, "first writer keeps the display name")
	assert.Equal(t, "acme corp", second.NormalizedName)
}

func TestResolveSeparatesKinds(t *testing.T) {
	ctx := context.Background()
	r := resolver.New(db)

	skill, err := r.Resolve(ctx, model.KindSkill, "Design")
	require.NoError(t, err)
	company, err := r.Resolve(ctx, model.KindCompany, "Design")
	require.NoError(t, err)

	assert.NotEqual(t, skill.ID, company.ID)
}

func TestResolveRejectsEmptyName(t *testing.T) {
	r := resolver.New(db)
	_, err := r.Resolve(context.Background(), model.KindSkill, "   ")
	assert.ErrorIs(t, err, resolver.ErrEmptyName)
}

func TestResolveConcurrentIdenticalNames(t *testing.T) {
	ctx := context.Background()
	r := resolver.New(db)

	const n = 8
	ids := make(chan string, n)
	for i := 0; i < n; i++ {
		go func() {
			e, err := r.Resolve(ctx, model.KindSkill, "Concurrent Resolution")
			if err != nil {
				ids <- ""
				return
			}
			ids <- e.ID
		}()
	}

	first := <-ids
	require.NotEmpty(t, first)
	for i := 1; i < n; i++ {
		assert.Equal(t, first, <-ids)
	}
}
