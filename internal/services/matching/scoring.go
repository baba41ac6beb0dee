package matching

import (
	"cash-application-engine/internal/config"
	"cash-application-engine/internal/models"
)

// Score runs all four rules for one pair and sums them. It has no side
// effects, so it can also explain a match created outside the engine.
func Score(p *models.Payment, r *models.RemittanceDocument, cfg config.MatchingConfig) models.MatchDetails {
	w := cfg.Weights
	rules := models.RuleBreakdown{
		Reference: ScoreReference(p, r, w.Reference),
		Amount:    ScoreAmount(p, r, w.Amount, cfg.AmountTolerance),
		Company:   ScoreCompany(p, r, w.Company),
		Date:      ScoreDate(p, r, w.Date, cfg.MaxDateGapDays),
	}

	var total, maxPossible float64
	for _, rs := range []models.RuleScore{rules.Reference, rules.Amount, rules.Company, rules.Date} {
		total += rs.Score
		maxPossible += rs.MaxScore
	}

	return models.MatchDetails{
		TotalScore:  round2(total),
		MaxPossible: round2(maxPossible),
		Rules:       rules,
	}
}
