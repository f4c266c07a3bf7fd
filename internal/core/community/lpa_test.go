package community

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitaegraph/vitae/internal/core/model"
)

func node(id, name string) model.TimelineNode {
	return model.TimelineNode{EntityID: id, EntityName: name}
}

func link(source, target string, months int) model.TimelineLink {
	return model.TimelineLink{SourceEntityID: source, TargetEntityID: target, OverlapMonths: months}
}

func memberNames(cluster []model.TimelineNode) []string {
	names := make([]string, len(cluster))
	for i, n := range cluster {
		names[i] = n.EntityName
	}
	return names
}

func TestLabelPropagationGroupsOverlappingEntities(t *testing.T) {
	// one job era: company + two skills used there; a later unrelated skill
	nodes := []model.TimelineNode{
		node("c1", "Acme Corp"),
		node("s1", "Python"),
		node("s2", "Postgres"),
		node("s3", "Rust"),
	}
	links := []model.TimelineLink{
		link("c1", "s1", 24),
		link("c1", "s2", 18),
		link("s1", "s2", 18),
	}

	clusters := NewLabelPropagation().Detect(nodes, links)

	require.Len(t, clusters, 1)
	assert.ElementsMatch(t, []string{"Acme Corp", "Python", "Postgres"}, memberNames(clusters[0]))
}

func TestLabelPropagationSeparatesEras(t *testing.T) {
	nodes := []model.TimelineNode{
		node("c1", "Acme Corp"), node("s1", "Python"),
		node("c2", "Globex"), node("s2", "Go"),
	}
	links := []model.TimelineLink{
		link("c1", "s1", 36),
		link("c2", "s2", 12),
	}

	clusters := NewLabelPropagation().Detect(nodes, links)

	require.Len(t, clusters, 2)
}

func TestLabelPropagationEmptyInput(t *testing.T) {
	assert.Nil(t, NewLabelPropagation().Detect(nil, nil))
}

func TestLabelPropagationIsDeterministic(t *testing.T) {
	nodes := []model.TimelineNode{
		node("a", "A"), node("b", "B"), node("c", "C"), node("d", "D"),
	}
	links := []model.TimelineLink{
		link("a", "b", 6), link("b", "c", 6), link("c", "d", 6),
	}

	first := NewLabelPropagation().Detect(nodes, links)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, NewLabelPropagation().Detect(nodes, links))
	}
}
