package extraction

import (
	"sort"

	"github.com/vitaegraph/vitae/internal/core/model"
)

// Engine converts free conversation text into an ordered list of typed
// candidate actions. Parsing is pure pattern matching: no I/O, no state,
// identical input always yields identical output.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

type spanned struct {
	action model.ExtractedAction
	start  int
	end    int
	order  int
}

// Parse runs every pattern over the text and returns the matched actions
// ordered by position. A match is suppressed when an earlier pattern
// already claimed the same starting offset for the same action type (a
// dated variant outranks its undated counterpart); distinct overlapping
// mentions are kept, dedup happens at entity resolution. Text that
// matches nothing yields a single none action for the caller to drop.
func (e *Engine) Parse(text string) []model.ExtractedAction {
	var accepted []spanned

	for _, p := range patterns {
		matches := p.re.FindAllStringSubmatchIndex(text, -1)
		for _, m := range matches {
			groups := make([]string, len(m)/2)
			for i := range groups {
				if m[2*i] >= 0 {
					groups[i] = text[m[2*i]:m[2*i+1]]
				}
			}

			a := p.build(groups)
			if a.Entity == "" {
				continue
			}
			if claimed(accepted, a.Type, m[0]) {
				continue
			}
			accepted = append(accepted, spanned{action: a, start: m[0], end: m[1], order: len(accepted)})
		}
	}

	if len(accepted) == 0 {
		return []model.ExtractedAction{{Type: model.ActionNone, Entity: "", Details: map[string]interface{}{}}}
	}

	sort.SliceStable(accepted, func(i, j int) bool {
		if accepted[i].start != accepted[j].start {
			return accepted[i].start < accepted[j].start
		}
		return accepted[i].order < accepted[j].order
	})

	actions := make([]model.ExtractedAction, len(accepted))
	for i, s := range accepted {
		actions[i] = s.action
	}
	return actions
}

func claimed(accepted []spanned, t model.ActionType, start int) bool {
	for _, s := range accepted {
		if s.action.Type == t && s.start == start {
			return true
		}
	}
	return false
}
