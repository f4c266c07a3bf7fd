package temporal

import (
	"math"
	"sort"
	"time"

	"github.com/vitaegraph/vitae/internal/core/model"
)

// strengthWindowMonths is the overlap at which a link saturates at 1.0.
const strengthWindowMonths = 12

// BuildTimeline folds event records into one node per entity plus links
// between temporally overlapping entities. Pure so the derivation is
// testable without a database; now anchors open intervals.
func BuildTimeline(records []EventRecord, rng *model.TimeRange, now time.Time) *model.Timeline {
	timeline := &model.Timeline{
		Nodes: []model.TimelineNode{},
		Links: []model.TimelineLink{},
	}
	if rng != nil {
		timeline.TimeRange = rng
	}

	byEntity := map[string]*model.TimelineNode{}
	var order []string

	for _, r := range records {
		node, ok := byEntity[r.EntityID]
		if !ok {
			node = &model.TimelineNode{
				EntityID:     r.EntityID,
				EntityName:   r.EntityName,
				RelationType: r.RelationType,
				ValidFrom:    r.ValidFrom,
				ValidTo:      r.ValidTo,
			}
			byEntity[r.EntityID] = node
			order = append(order, r.EntityID)
		}

		if r.ValidFrom.Before(node.ValidFrom) {
			node.ValidFrom = r.ValidFrom
		}
		if node.ValidTo != nil {
			if r.ValidTo == nil {
				node.ValidTo = nil
			} else if r.ValidTo.After(*node.ValidTo) {
				node.ValidTo = r.ValidTo
			}
		}
		node.IsActive = node.ValidTo == nil
		node.DurationMonths += monthsBetween(r.ValidFrom, endOrNow(r.ValidTo, now))
	}

	for _, id := range order {
		timeline.Nodes = append(timeline.Nodes, *byEntity[id])
	}

	// Pairwise links, keyed by entity pair, keeping the widest overlap.
	for i := 0; i < len(records); i++ {
		for j := i + 1; j < len(records); j++ {
			a, b := records[i], records[j]
			if a.EntityID == b.EntityID {
				continue
			}
			months := overlapMonths(a.TemporalEvent, b.TemporalEvent, now)
			if months <= 0 {
				continue
			}
			if existing := findLink(timeline.Links, a.EntityID, b.EntityID); existing != nil {
				if months > existing.OverlapMonths {
					existing.OverlapMonths = months
					existing.Strength = linkStrength(months)
				}
				continue
			}
			timeline.Links = append(timeline.Links, model.TimelineLink{
				SourceEntityID: a.EntityID,
				TargetEntityID: b.EntityID,
				OverlapMonths:  months,
				Strength:       linkStrength(months),
			})
		}
	}

	return timeline
}

// BuildProgression orders skill, job and education events
// chronologically and reports skill-to-job overlap strength.
func BuildProgression(records []EventRecord, now time.Time) *model.CareerProgression {
	progression := &model.CareerProgression{
		Steps:    []model.ProgressionStep{},
		Overlaps: []model.SkillJobOverlap{},
	}

	var steps []EventRecord
	for _, r := range records {
		switch r.RelationType {
		case model.RelationHasSkill, model.RelationWorkedAt, model.RelationStudiedAt:
			steps = append(steps, r)
		}
	}
	sort.SliceStable(steps, func(i, j int) bool {
		return steps[i].ValidFrom.Before(steps[j].ValidFrom)
	})

	for i, r := range steps {
		progression.Steps = append(progression.Steps, model.ProgressionStep{
			Order:        i + 1,
			RelationType: r.RelationType,
			EntityName:   r.EntityName,
			Metadata:     r.Metadata,
			ValidFrom:    r.ValidFrom,
			ValidTo:      r.ValidTo,
		})
	}

	for _, skill := range steps {
		if skill.RelationType != model.RelationHasSkill {
			continue
		}
		for _, job := range steps {
			if job.RelationType != model.RelationWorkedAt {
				continue
			}
			months := overlapMonths(skill.TemporalEvent, job.TemporalEvent, now)
			if months <= 0 {
				continue
			}
			progression.Overlaps = append(progression.Overlaps, model.SkillJobOverlap{
				Skill:         skill.EntityName,
				Company:       job.EntityName,
				OverlapMonths: months,
				Strength:      linkStrength(months),
			})
		}
	}

	return progression
}

// overlapMonths is min(endA, endB) - max(startA, startB) in months, open
// intervals anchored at now. Non-positive overlaps mean no link.
func overlapMonths(a, b model.TemporalEvent, now time.Time) int {
	start := a.ValidFrom
	if b.ValidFrom.After(start) {
		start = b.ValidFrom
	}
	end := endOrNow(a.ValidTo, now)
	if other := endOrNow(b.ValidTo, now); other.Before(end) {
		end = other
	}
	if !end.After(start) {
		return 0
	}
	return monthsBetween(start, end)
}

// linkStrength scales overlap into (0, 1], saturating at a year.
func linkStrength(months int) float64 {
	s := float64(months) / strengthWindowMonths
	if s > 1 {
		s = 1
	}
	return math.Round(s*100) / 100
}

func monthsBetween(start, end time.Time) int {
	if end.Before(start) {
		return 0
	}
	months := (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month())
	if end.Day() < start.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}

func endOrNow(t *time.Time, now time.Time) time.Time {
	if t == nil {
		return now
	}
	return *t
}

func findLink(links []model.TimelineLink, source, target string) *model.TimelineLink {
	for i := range links {
		l := &links[i]
		if (l.SourceEntityID == source && l.TargetEntityID == target) ||
			(l.SourceEntityID == target && l.TargetEntityID == source) {
			return l
		}
	}
	return nil
}
