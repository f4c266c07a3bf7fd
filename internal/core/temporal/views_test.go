package temporal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitaegraph/vitae/internal/core/model"
)

func date(y int, m time.Month) time.Time {
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

func record(entityID, name, relation string, from time.Time, to *time.Time) EventRecord {
	return EventRecord{
		TemporalEvent: model.TemporalEvent{
			ID:           entityID + "-event",
			UserID:       "u1",
			EntityID:     entityID,
			RelationType: relation,
			ValidFrom:    from,
			ValidTo:      to,
		},
		EntityName: name,
	}
}

func ptr(t time.Time) *time.Time { return &t }

func TestBuildTimelineNodes(t *testing.T) {
	now := date(2024, time.June)
	records := []EventRecord{
		record("c1", "Acme Corp", model.RelationWorkedAt, date(2019, time.January), ptr(date(2022, time.January))),
		record("s1", "Python", model.RelationHasSkill, date(2020, time.January), nil),
	}

	timeline := BuildTimeline(records, nil, now)

	require.Len(t, timeline.Nodes, 2)

	acme := timeline.Nodes[0]
	assert.Equal(t, "Acme Corp", acme.EntityName)
	assert.False(t, acme.IsActive)
	assert.Equal(t, 36, acme.DurationMonths)

	python := timeline.Nodes[1]
	assert.True(t, python.IsActive)
	assert.Nil(t, python.ValidTo)
	assert.Equal(t, 53, python.DurationMonths)
}

func TestBuildTimelineOverlapLink(t *testing.T) {
	now := date(2024, time.June)
	// job 2019-01..2020-01, skill 2019-07..2021-01: overlap of 6 months
	records := []EventRecord{
		record("c1", "Acme Corp", model.RelationWorkedAt, date(2019, time.January), ptr(date(2020, time.January))),
		record("s1", "Python", model.RelationHasSkill, date(2019, time.July), ptr(date(2021, time.January))),
	}

	timeline := BuildTimeline(records, nil, now)

	require.Len(t, timeline.Links, 1)
	link := timeline.Links[0]
	assert.Equal(t, 6, link.OverlapMonths)
	assert.Equal(t, 0.5, link.Strength)
}

func TestBuildTimelineNoLinkWithoutOverlap(t *testing.T) {
	now := date(2024, time.June)
	records := []EventRecord{
		record("c1", "Acme Corp", model.RelationWorkedAt, date(2015, time.January), ptr(date(2016, time.January))),
		record("s1", "Python", model.RelationHasSkill, date(2018, time.January), nil),
	}

	timeline := BuildTimeline(records, nil, now)
	assert.Empty(t, timeline.Links)
}

func TestBuildTimelineAggregatesEntityIntervals(t *testing.T) {
	now := date(2024, time.June)
	// rejoined the same company: two intervals, second still open
	records := []EventRecord{
		record("c1", "Acme Corp", model.RelationWorkedAt, date(2018, time.January), ptr(date(2019, time.January))),
		record("c1", "Acme Corp", model.RelationWorkedAt, date(2023, time.June), nil),
	}

	timeline := BuildTimeline(records, nil, now)

	require.Len(t, timeline.Nodes, 1)
	node := timeline.Nodes[0]
	assert.True(t, node.IsActive)
	assert.Equal(t, date(2018, time.January), node.ValidFrom)
	assert.Equal(t, 12+12, node.DurationMonths)
}

func TestBuildProgressionOrder(t *testing.T) {
	now := date(2024, time.June)
	records := []EventRecord{
		record("s1", "Python", model.RelationHasSkill, date(2020, time.March), nil),
		record("i1", "MIT", model.RelationStudiedAt, date(2014, time.September), ptr(date(2018, time.June))),
		record("c1", "Acme Corp", model.RelationWorkedAt, date(2018, time.July), nil),
		record("o1", "become a lead", model.RelationPursues, date(2023, time.January), nil),
	}

	progression := BuildProgression(records, now)

	require.Len(t, progression.Steps, 3)
	assert.Equal(t, "MIT", progression.Steps[0].EntityName)
	assert.Equal(t, "Acme Corp", progression.Steps[1].EntityName)
	assert.Equal(t, "Python", progression.Steps[2].EntityName)
	assert.Equal(t, 1, progression.Steps[0].Order)

	require.Len(t, progression.Overlaps, 1)
	overlap := progression.Overlaps[0]
	assert.Equal(t, "Python", overlap.Skill)
	assert.Equal(t, "Acme Corp", overlap.Company)
	assert.Greater(t, overlap.OverlapMonths, 0)
}

func TestMonthsBetween(t *testing.T) {
	assert.Equal(t, 6, monthsBetween(date(2019, time.July), date(2020, time.January)))
	assert.Equal(t, 0, monthsBetween(date(2020, time.January), date(2019, time.July)))
	assert.Equal(t, 12, monthsBetween(date(2019, time.January), date(2020, time.January)))
}

func TestLinkStrengthSaturates(t *testing.T) {
	assert.Equal(t, 0.5, linkStrength(6))
	assert.Equal(t, 1.0, linkStrength(12))
	assert.Equal(t, 1.0, linkStrength(36))
}
