package community

import (
	"sort"

	"github.com/vitaegraph/vitae/internal/core/model"
)

// LabelPropagation clusters timeline entities by propagating labels
// across overlap links, weighted by overlap months. Denser temporal
// co-occurrence pulls entities into the same cluster, so a long shared
// tenure outweighs a brief incidental overlap.
type LabelPropagation struct {
	MaxIterations int
}

func NewLabelPropagation() *LabelPropagation {
	return &LabelPropagation{MaxIterations: 20}
}

func (d *LabelPropagation) Detect(nodes []model.TimelineNode, links []model.TimelineLink) [][]model.TimelineNode {
	if len(nodes) == 0 {
		return nil
	}

	nodeByID := make(map[string]model.TimelineNode, len(nodes))
	weights := make(map[string]map[string]int)
	ids := make([]string, 0, len(nodes))
	for _, n := range nodes {
		nodeByID[n.EntityID] = n
		weights[n.EntityID] = map[string]int{}
		ids = append(ids, n.EntityID)
	}
	sort.Strings(ids)

	for _, l := range links {
		if _, ok := nodeByID[l.SourceEntityID]; !ok {
			continue
		}
		if _, ok := nodeByID[l.TargetEntityID]; !ok {
			continue
		}
		w := l.OverlapMonths
		if w < 1 {
			w = 1
		}
		weights[l.SourceEntityID][l.TargetEntityID] += w
		weights[l.TargetEntityID][l.SourceEntityID] += w
	}

	// every entity starts in its own cluster
	labels := make(map[string]string, len(ids))
	for _, id := range ids {
		labels[id] = id
	}

	for iter := 0; iter < d.MaxIterations; iter++ {
		changed := 0
		for _, id := range ids {
			neighbors := weights[id]
			if len(neighbors) == 0 {
				continue
			}

			counts := map[string]int{}
			max := 0
			for neighbor, w := range neighbors {
				label := labels[neighbor]
				counts[label] += w
				if counts[label] > max {
					max = counts[label]
				}
			}

			var best []string
			for label, count := range counts {
				if count == max {
					best = append(best, label)
				}
			}
			// deterministic tie break
			sort.Strings(best)
			winner := best[len(best)-1]

			if labels[id] != winner {
				labels[id] = winner
				changed++
			}
		}
		if changed == 0 {
			break
		}
	}

	grouped := map[string][]string{}
	for _, id := range ids {
		grouped[labels[id]] = append(grouped[labels[id]], id)
	}

	labelKeys := make([]string, 0, len(grouped))
	for label := range grouped {
		labelKeys = append(labelKeys, label)
	}
	sort.Strings(labelKeys)

	var clusters [][]model.TimelineNode
	for _, label := range labelKeys {
		members := grouped[label]
		if len(members) < 2 {
			continue
		}
		cluster := make([]model.TimelineNode, 0, len(members))
		for _, id := range members {
			cluster = append(cluster, nodeByID[id])
		}
		clusters = append(clusters, cluster)
	}
	return clusters
}
