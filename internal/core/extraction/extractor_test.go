package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitaegraph/vitae/internal/core/model"
)

func TestParseSkillScenario(t *testing.T) {
	e := NewEngine()

	actions := e.Parse("I have 5 years of experience with Python and I'm an expert in machine learning")

	require.Len(t, actions, 2)

	assert.Equal(t, model.ActionSkill, actions[0].Type)
	assert.Equal(t, "Python", actions[0].Entity)
	assert.Equal(t, 5, actions[0].Details["years"])

	assert.Equal(t, model.ActionSkill, actions[1].Type)
	assert.Equal(t, "machine learning", actions[1].Entity)
	assert.Equal(t, "expert", actions[1].Details["proficiency"])
}

func TestParseExperienceWithDates(t *testing.T) {
	e := NewEngine()

	actions := e.Parse("I worked at Acme Corp as a backend engineer from 2019 to 2022.")

	require.Len(t, actions, 1)
	assert.Equal(t, model.ActionExperience, actions[0].Type)
	assert.Equal(t, "Acme Corp", actions[0].Entity)
	assert.Equal(t, "backend engineer", actions[0].Details["role"])
	assert.Equal(t, 2019, actions[0].Details["start_year"])
	assert.Equal(t, 2022, actions[0].Details["end_year"])
}

func TestParseExperienceOpenEnded(t *testing.T) {
	e := NewEngine()

	actions := e.Parse("I work at Globex as a data engineer from 2021 to present")

	require.Len(t, actions, 1)
	assert.Equal(t, "Globex", actions[0].Entity)
	assert.Equal(t, 2021, actions[0].Details["start_year"])
	assert.NotContains(t, actions[0].Details, "end_year")
}

func TestParseEducation(t *testing.T) {
	e := NewEngine()

	actions := e.Parse("I studied computer science at MIT from 2014 to 2018")

	require.Len(t, actions, 1)
	assert.Equal(t, model.ActionEducation, actions[0].Type)
	assert.Equal(t, "MIT", actions[0].Entity)
	assert.Equal(t, "computer science", actions[0].Details["field"])
	assert.Equal(t, 2014, actions[0].Details["start_year"])
	assert.Equal(t, 2018, actions[0].Details["end_year"])
}

func TestParseDegree(t *testing.T) {
	e := NewEngine()

	actions := e.Parse("I earned a master's degree in data science from Stanford")

	require.Len(t, actions, 1)
	assert.Equal(t, model.ActionEducation, actions[0].Type)
	assert.Equal(t, "Stanford", actions[0].Entity)
	assert.Equal(t, "master's", actions[0].Details["degree"])
	assert.Equal(t, "data science", actions[0].Details["field"])
}

func TestParseObjective(t *testing.T) {
	e := NewEngine()

	actions := e.Parse("My goal is to lead a platform team")

	require.Len(t, actions, 1)
	assert.Equal(t, model.ActionObjective, actions[0].Type)
	assert.Equal(t, "lead a platform team", actions[0].Entity)
	assert.Equal(t, "career", actions[0].Details["category"])
}

func TestParseKeyResultWithTarget(t *testing.T) {
	e := NewEngine()

	actions := e.Parse("key result: reduce error rate with a target of 99.9 percent")

	require.Len(t, actions, 1)
	assert.Equal(t, model.ActionKeyResult, actions[0].Type)
	assert.Equal(t, "reduce error rate", actions[0].Entity)
	assert.Equal(t, 99.9, actions[0].Details["target_value"])
	assert.Equal(t, "percent", actions[0].Details["target_unit"])
}

func TestParseUnmatchedTextYieldsNone(t *testing.T) {
	e := NewEngine()

	actions := e.Parse("the weather was nice yesterday")

	require.Len(t, actions, 1)
	assert.Equal(t, model.ActionNone, actions[0].Type)
	assert.Empty(t, actions[0].Entity)
}

func TestParseIsIdempotent(t *testing.T) {
	e := NewEngine()
	text := "I worked at Acme Corp as a backend engineer from 2019 to 2022 and I have 3 years of experience with Go. I studied physics at Caltech."

	first := e.Parse(text)
	second := e.Parse(text)

	assert.Equal(t, first, second)
	require.Len(t, first, 3)
	assert.Equal(t, model.ActionExperience, first[0].Type)
	assert.Equal(t, model.ActionSkill, first[1].Type)
	assert.Equal(t, "Go", first[1].Entity)
	assert.Equal(t, model.ActionEducation, first[2].Type)
	assert.Equal(t, "Caltech", first[2].Entity)
}

func TestParseOrderedByPosition(t *testing.T) {
	e := NewEngine()

	actions := e.Parse("I graduated from Berkeley. I am a staff engineer at Initech. I'm proficient in Rust.")

	require.Len(t, actions, 3)
	assert.Equal(t, model.ActionEducation, actions[0].Type)
	assert.Equal(t, model.ActionExperience, actions[1].Type)
	assert.Equal(t, "Initech", actions[1].Entity)
	assert.Equal(t, model.ActionSkill, actions[2].Type)
	assert.Equal(t, "Rust", actions[2].Entity)
}

func TestCutName(t *testing.T) {
	assert.Equal(t, "Python", cutName("Python and I'm an expert"))
	assert.Equal(t, "Acme Corp", cutName("Acme Corp, which I joined"))
	assert.Equal(t, "machine learning", cutName("machine learning."))
	assert.Equal(t, "Go", cutName("  Go  "))
}
