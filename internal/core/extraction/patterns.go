package extraction

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/vitaegraph/vitae/internal/core/model"
)

// pattern couples a compiled expression with a builder turning its
// submatches into a typed action. Order matters: dated variants come
// before their undated counterparts, and the extractor suppresses a match
// whose span overlaps an earlier-pattern match of the same type.
type pattern struct {
	re    *regexp.Regexp
	build func(groups []string) model.ExtractedAction
}

// name is the liberal entity capture. Go's RE2 has no lookahead, so the
// capture runs long and cutName trims it back at clause boundaries.
const name = `([A-Za-z][A-Za-z0-9+#&.'/ -]*)`

const dates = `\s+from\s+(\d{4})\s+(?:to|until)\s+(\d{4}|present)`

var patterns = []pattern{
	// "5 years of experience with Python"
	{
		re: regexp.MustCompile(`(?i)\b(\d+)\+?\s+years?\s+(?:of\s+)?experience\s+(?:with|in|using)\s+` + name),
		build: func(g []string) model.ExtractedAction {
			years, _ := strconv.Atoi(g[1])
			return skill(g[2], map[string]interface{}{"years": years})
		},
	},
	// "I'm an expert in machine learning", "proficient with Kubernetes"
	{
		re: regexp.MustCompile(`(?i)\b(expert|proficient|advanced|intermediate|beginner)\s+(?:in|with|at)\s+` + name),
		build: func(g []string) model.ExtractedAction {
			return skill(g[2], map[string]interface{}{"proficiency": strings.ToLower(g[1])})
		},
	},
	// "skilled in distributed systems"
	{
		re: regexp.MustCompile(`(?i)\bskilled\s+(?:in|with)\s+` + name),
		build: func(g []string) model.ExtractedAction {
			return skill(g[1], nil)
		},
	},
	// "worked at Acme Corp as a backend engineer from 2019 to 2022"
	{
		re: regexp.MustCompile(`(?i)\bwork(?:ed|ing)?\s+(?:at|for)\s+` + name + `\s+as\s+(?:an?\s+)?` + name + dates),
		build: func(g []string) model.ExtractedAction {
			details := map[string]interface{}{"role": cutName(g[2])}
			addDates(details, g[3], g[4])
			return experience(g[1], details)
		},
	},
	// "worked at Acme Corp as a backend engineer"
	{
		re: regexp.MustCompile(`(?i)\bwork(?:ed|ing)?\s+(?:at|for)\s+` + name + `\s+as\s+(?:an?\s+)?` + name),
		build: func(g []string) model.ExtractedAction {
			return experience(g[1], map[string]interface{}{"role": cutName(g[2])})
		},
	},
	// "worked at Globex in the logistics industry"
	{
		re: regexp.MustCompile(`(?i)\bwork(?:ed|ing)?\s+(?:at|for)\s+` + name + `\s+in\s+the\s+` + name + `\s+industry`),
		build: func(g []string) model.ExtractedAction {
			return experience(g[1], map[string]interface{}{"industry": cutName(g[2])})
		},
	},
	// "I was a data engineer at Initech from 2016 to 2019"
	{
		re: regexp.MustCompile(`(?i)\bi\s+(?:was|am)\s+(?:an?\s+)?` + name + `\s+at\s+` + name + dates),
		build: func(g []string) model.ExtractedAction {
			details := map[string]interface{}{"role": cutName(g[1])}
			addDates(details, g[3], g[4])
			return experience(g[2], details)
		},
	},
	// "I was a data engineer at Initech"
	{
		re: regexp.MustCompile(`(?i)\bi\s+(?:was|am)\s+(?:an?\s+)?` + name + `\s+at\s+` + name),
		build: func(g []string) model.ExtractedAction {
			return experience(g[2], map[string]interface{}{"role": cutName(g[1])})
		},
	},
	// "studied computer science at MIT from 2014 to 2018"
	{
		re: regexp.MustCompile(`(?i)\bstudied\s+` + name + `\s+at\s+` + name + dates),
		build: func(g []string) model.ExtractedAction {
			details := map[string]interface{}{"field": cutName(g[1])}
			addDates(details, g[3], g[4])
			return education(g[2], details)
		},
	},
	// "studied computer science at MIT"
	{
		re: regexp.MustCompile(`(?i)\bstudied\s+` + name + `\s+at\s+` + name),
		build: func(g []string) model.ExtractedAction {
			return education(g[2], map[string]interface{}{"field": cutName(g[1])})
		},
	},
	// "earned a master's degree in data science from Stanford"
	{
		re: regexp.MustCompile(`(?i)\b(?:earned|got|hold|have|completed)\s+(?:a|an|my)?\s*(bachelor(?:'s)?|master(?:'s)?|phd|doctorate|mba)\s*(?:degree)?\s*(?:in\s+` + name + `\s+)?(?:from|at)\s+` + name),
		build: func(g []string) model.ExtractedAction {
			details := map[string]interface{}{"degree": strings.ToLower(g[1])}
			if g[2] != "" {
				details["field"] = cutName(g[2])
			}
			return education(g[3], details)
		},
	},
	// "graduated from Berkeley"
	{
		re: regexp.MustCompile(`(?i)\bgraduated\s+from\s+` + name),
		build: func(g []string) model.ExtractedAction {
			return education(g[1], nil)
		},
	},
	// "my goal is to lead a platform team"
	{
		re: regexp.MustCompile(`(?i)\bmy\s+(?:goal|objective)\s+is\s+to\s+` + name),
		build: func(g []string) model.ExtractedAction {
			return action(model.ActionObjective, g[1], map[string]interface{}{"category": "career"})
		},
	},
	// "I want to become a staff engineer"
	{
		re: regexp.MustCompile(`(?i)\bi\s+want\s+to\s+(?:become|be)\s+(?:an?\s+)?` + name),
		build: func(g []string) model.ExtractedAction {
			return action(model.ActionObjective, g[1], map[string]interface{}{"category": "career"})
		},
	},
	// "key result: onboard 20 customers with a target of 99.9 percent"
	{
		re: regexp.MustCompile(`(?i)\bkey\s+result[:\s]\s*` + name + `\s+with\s+a\s+target\s+of\s+(\d+(?:\.\d+)?)\s*(%|percent|[A-Za-z]+)?`),
		build: func(g []string) model.ExtractedAction {
			details := map[string]interface{}{}
			if target, err := strconv.ParseFloat(g[2], 64); err == nil {
				details["target_value"] = target
			}
			if g[3] != "" {
				details["target_unit"] = strings.ToLower(g[3])
			}
			return action(model.ActionKeyResult, g[1], details)
		},
	},
	// "key result: ship the billing service"
	{
		re: regexp.MustCompile(`(?i)\bkey\s+result[:\s]\s*` + name),
		build: func(g []string) model.ExtractedAction {
			return action(model.ActionKeyResult, g[1], nil)
		},
	},
}

func skill(entity string, details map[string]interface{}) model.ExtractedAction {
	return action(model.ActionSkill, entity, details)
}

func experience(entity string, details map[string]interface{}) model.ExtractedAction {
	return action(model.ActionExperience, entity, details)
}

func education(entity string, details map[string]interface{}) model.ExtractedAction {
	return action(model.ActionEducation, entity, details)
}

func action(t model.ActionType, entity string, details map[string]interface{}) model.ExtractedAction {
	if details == nil {
		details = map[string]interface{}{}
	}
	return model.ExtractedAction{Type: t, Entity: cutName(entity), Details: details}
}

func addDates(details map[string]interface{}, start, end string) {
	if y, err := strconv.Atoi(start); err == nil {
		details["start_year"] = y
	}
	if !strings.EqualFold(end, "present") {
		if y, err := strconv.Atoi(end); err == nil {
			details["end_year"] = y
		}
	}
}

// clause boundaries at which a greedy entity capture is truncated.
var boundaries = []string{" and ", " but ", " where ", " which ", " with ", " from ", " since ", " as ", ", ", "; ", ". "}

// cutName trims a liberal capture back to the entity mention itself.
func cutName(s string) string {
	lower := strings.ToLower(s)
	cut := len(s)
	for _, b := range boundaries {
		if i := strings.Index(lower, b); i >= 0 && i < cut {
			cut = i
		}
	}
	return strings.Trim(strings.TrimSpace(s[:cut]), ".,;:'")
}
