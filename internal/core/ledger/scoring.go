package ledger

import (
	"math"

	"github.com/vitaegraph/vitae/internal/config"
	"github.com/vitaegraph/vitae/internal/core/model"
)

// ScoringPolicy derives a review confidence for an extracted action. The
// constants live in config so the policy can evolve without touching
// extraction code. Scores are deterministic and bounded to
// [Base, Max].
type ScoringPolicy struct {
	cfg config.ScoringConfig
}

func NewScoringPolicy(cfg config.ScoringConfig) *ScoringPolicy {
	return &ScoringPolicy{cfg: cfg}
}

// reliable action types carry a fixed bonus: their patterns misfire least.
func reliableType(t model.ActionType) bool {
	return t == model.ActionSkill || t == model.ActionExperience
}

// Score computes the confidence for one action.
func (p *ScoringPolicy) Score(a model.ExtractedAction) float64 {
	score := p.cfg.Base

	detail := 0.0
	for _, v := range a.Details {
		if populated(v) {
			detail += p.cfg.DetailBonus
		}
	}
	if detail > p.cfg.DetailBonusCap {
		detail = p.cfg.DetailBonusCap
	}
	score += detail

	if len(a.Entity) > p.cfg.LongNameMinLen {
		score += p.cfg.LongNameBonus
	}
	if reliableType(a.Type) {
		score += p.cfg.ReliableBonus
	}

	if score > p.cfg.Max {
		score = p.cfg.Max
	}
	if score < p.cfg.Base {
		score = p.cfg.Base
	}

	return math.Round(score*100) / 100
}

// AutoCommitFloor is the confidence at or above which automation may
// promote a pending commit directly to committed.
func (p *ScoringPolicy) AutoCommitFloor() float64 {
	return p.cfg.AutoCommitFloor
}

func populated(v interface{}) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return x != ""
	case int:
		return x != 0
	case float64:
		return x != 0
	default:
		return true
	}
}
