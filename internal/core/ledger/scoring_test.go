package ledger

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vitaegraph/vitae/internal/config"
	"github.com/vitaegraph/vitae/internal/core/model"
)

func testPolicy() *ScoringPolicy {
	return NewScoringPolicy(config.DefaultScoring())
}

func TestScoreBase(t *testing.T) {
	p := testPolicy()

	score := p.Score(model.ExtractedAction{Type: model.ActionObjective, Entity: "grow"})
	assert.Equal(t, 0.70, score)
}

func TestScoreDetailBonus(t *testing.T) {
	p := testPolicy()

	a := model.ExtractedAction{
		Type:   model.ActionEducation,
		Entity: "MIT",
		Details: map[string]interface{}{
			"field":      "computer science",
			"start_year": 2014,
		},
	}
	assert.Equal(t, 0.80, p.Score(a))
}

func TestScoreDetailBonusCapped(t *testing.T) {
	p := testPolicy()

	details := map[string]interface{}{}
	for i := 0; i < 6; i++ {
		details[fmt.Sprintf("d%d", i)] = "x"
	}
	a := model.ExtractedAction{Type: model.ActionEducation, Entity: "MIT", Details: details}

	// base 0.70 + capped 0.20, short name, non-reliable type
	assert.Equal(t, 0.90, p.Score(a))
}

func TestScoreReliableTypeAndLongName(t *testing.T) {
	p := testPolicy()

	a := model.ExtractedAction{Type: model.ActionSkill, Entity: "machine learning"}
	// base 0.70 + long name 0.05 + reliable 0.05
	assert.Equal(t, 0.80, p.Score(a))
}

func TestScoreScenario(t *testing.T) {
	p := testPolicy()

	a := model.ExtractedAction{
		Type:    model.ActionSkill,
		Entity:  "Python",
		Details: map[string]interface{}{"years": 5},
	}
	// base 0.70 + one detail 0.05 + reliable 0.05
	assert.Equal(t, 0.80, p.Score(a))
}

func TestScoreBounds(t *testing.T) {
	p := testPolicy()

	details := map[string]interface{}{}
	for i := 0; i < 10; i++ {
		details[fmt.Sprintf("d%d", i)] = i + 1
	}
	high := model.ExtractedAction{Type: model.ActionExperience, Entity: "Very Long Company Name GmbH", Details: details}
	low := model.ExtractedAction{Type: model.ActionNone, Entity: ""}

	assert.Equal(t, 0.95, p.Score(high))
	assert.Equal(t, 0.70, p.Score(low))
}

func TestScoreIgnoresUnpopulatedDetails(t *testing.T) {
	p := testPolicy()

	a := model.ExtractedAction{
		Type:    model.ActionEducation,
		Entity:  "MIT",
		Details: map[string]interface{}{"field": "", "degree": nil},
	}
	assert.Equal(t, 0.70, p.Score(a))
}
