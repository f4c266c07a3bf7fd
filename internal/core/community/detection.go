package community

import (
	"sort"

	"github.com/vitaegraph/vitae/internal/core/model"
)

// Detector groups timeline entities into clusters of related activity.
// The input is the derived timeline view: nodes are entities, links are
// temporal overlaps weighted by overlap months.
type Detector interface {
	Detect(nodes []model.TimelineNode, links []model.TimelineLink) [][]model.TimelineNode
}

// ConnectedComponents clusters by simple connectivity: two entities
// belong together when any overlap chain connects them. Singletons are
// not clusters and are dropped.
type ConnectedComponents struct{}

func NewConnectedComponents() *ConnectedComponents {
	return &ConnectedComponents{}
}

func (d *ConnectedComponents) Detect(nodes []model.TimelineNode, links []model.TimelineLink) [][]model.TimelineNode {
	nodeByID := make(map[string]model.TimelineNode, len(nodes))
	adj := make(map[string][]string)
	for _, n := range nodes {
		nodeByID[n.EntityID] = n
	}
	for _, l := range links {
		if _, ok := nodeByID[l.SourceEntityID]; !ok {
			continue
		}
		if _, ok := nodeByID[l.TargetEntityID]; !ok {
			continue
		}
		adj[l.SourceEntityID] = append(adj[l.SourceEntityID], l.TargetEntityID)
		adj[l.TargetEntityID] = append(adj[l.TargetEntityID], l.SourceEntityID)
	}

	visited := map[string]bool{}
	var clusters [][]model.TimelineNode

	for _, n := range nodes {
		if visited[n.EntityID] {
			continue
		}
		var ids []string
		walk(n.EntityID, adj, visited, &ids)
		if len(ids) < 2 {
			continue
		}

		sort.Strings(ids)
		cluster := make([]model.TimelineNode, 0, len(ids))
		for _, id := range ids {
			cluster = append(cluster, nodeByID[id])
		}
		clusters = append(clusters, cluster)
	}
	return clusters
}

func walk(id string, adj map[string][]string, visited map[string]bool, out *[]string) {
	visited[id] = true
	*out = append(*out, id)
	for _, next := range adj[id] {
		if !visited[next] {
			walk(next, adj, visited, out)
		}
	}
}
