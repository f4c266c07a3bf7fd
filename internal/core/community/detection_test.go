package community

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitaegraph/vitae/internal/core/model"
)

func TestConnectedComponentsDropsSingletons(t *testing.T) {
	nodes := []model.TimelineNode{
		node("c1", "Acme Corp"),
		node("s1", "Python"),
		node("s2", "Rust"),
	}
	links := []model.TimelineLink{link("c1", "s1", 12)}

	clusters := NewConnectedComponents().Detect(nodes, links)

	require.Len(t, clusters, 1)
	assert.ElementsMatch(t, []string{"Acme Corp", "Python"}, memberNames(clusters[0]))
}

func TestConnectedComponentsChainsTransitively(t *testing.T) {
	nodes := []model.TimelineNode{
		node("a", "A"), node("b", "B"), node("c", "C"),
	}
	links := []model.TimelineLink{link("a", "b", 3), link("b", "c", 3)}

	clusters := NewConnectedComponents().Detect(nodes, links)

	require.Len(t, clusters, 1)
	assert.Len(t, clusters[0], 3)
}

func TestConnectedComponentsIgnoresUnknownEndpoints(t *testing.T) {
	nodes := []model.TimelineNode{node("a", "A"), node("b", "B")}
	links := []model.TimelineLink{
		link("a", "ghost", 3),
		link("a", "b", 3),
	}

	clusters := NewConnectedComponents().Detect(nodes, links)

	require.Len(t, clusters, 1)
	assert.Len(t, clusters[0], 2)
}
