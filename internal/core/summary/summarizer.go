package summary

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vitaegraph/vitae/internal/core/model"
)

// ClusterSummary is a compact description of one timeline cluster: the
// entities that were active together and for how long.
type ClusterSummary struct {
	Title       string   `json:"title"`
	EntityNames []string `json:"entities"`
	Relations   []string `json:"relations"`
	TotalMonths int      `json:"total_months"`
	Active      bool     `json:"active"`
}

// Summarize derives one summary per cluster. The title anchors on the
// longest-running company in the cluster, falling back to the
// longest-running entity of any kind.
func Summarize(clusters [][]model.TimelineNode) []ClusterSummary {
	summaries := make([]ClusterSummary, 0, len(clusters))
	for _, cluster := range clusters {
		summaries = append(summaries, summarizeOne(cluster))
	}
	return summaries
}

func summarizeOne(cluster []model.TimelineNode) ClusterSummary {
	s := ClusterSummary{}

	var anchor *model.TimelineNode
	relations := map[string]bool{}
	for i := range cluster {
		n := cluster[i]
		s.EntityNames = append(s.EntityNames, n.EntityName)
		s.TotalMonths += n.DurationMonths
		s.Active = s.Active || n.IsActive
		relations[n.RelationType] = true

		if anchor == nil || betterAnchor(n, *anchor) {
			anchor = &cluster[i]
		}
	}

	sort.Strings(s.EntityNames)
	for r := range relations {
		s.Relations = append(s.Relations, r)
	}
	sort.Strings(s.Relations)

	if anchor != nil {
		others := len(cluster) - 1
		switch {
		case others == 0:
			s.Title = anchor.EntityName
		case anchor.RelationType == model.RelationWorkedAt:
			s.Title = fmt.Sprintf("%s era (%s)", anchor.EntityName,
				pluralize(others, "related entity", "related entities"))
		default:
			s.Title = fmt.Sprintf("%s and %s", anchor.EntityName,
				pluralize(others, "other", "others"))
		}
	}
	return s
}

// betterAnchor prefers companies, then longer tenure.
func betterAnchor(candidate, current model.TimelineNode) bool {
	candidateJob := candidate.RelationType == model.RelationWorkedAt
	currentJob := current.RelationType == model.RelationWorkedAt
	if candidateJob != currentJob {
		return candidateJob
	}
	if candidate.DurationMonths != current.DurationMonths {
		return candidate.DurationMonths > current.DurationMonths
	}
	return strings.Compare(candidate.EntityName, current.EntityName) < 0
}

func pluralize(n int, singular, plural string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, singular)
	}
	return fmt.Sprintf("%d %s", n, plural)
}
