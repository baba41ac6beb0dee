package matching

import (
	"fmt"
	"math"
	"strings"
	"time"

	"cash-application-engine/internal/models"

	"github.com/shopspring/decimal"
)

// MinCompanySimilarity is the similarity below which two names are treated
// as different companies.
const MinCompanySimilarity = 60.0

// FullCompanySimilarity earns the whole company weight.
const FullCompanySimilarity = 90.0

var (
	half = decimal.NewFromFloat(0.5)
	one  = decimal.NewFromInt(1)
)

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func normalizeReference(s string) string {
	return strings.ToLower(strings.TrimLeft(strings.TrimSpace(s), "0"))
}

// ScoreReference compares the payment's customer reference with the
// remittance document number.
func ScoreReference(p *models.Payment, r *models.RemittanceDocument, weight float64) models.RuleScore {
	refBank := normalizeReference(p.CustomerReference)
	refDoc := normalizeReference(r.DocumentNumber)

	if refBank == "" || refDoc == "" {
		return models.RuleScore{MaxScore: weight, Details: "Missing reference on one or both sides"}
	}

	if refBank == refDoc {
		return models.RuleScore{
			Score:    weight,
			MaxScore: weight,
			Details:  fmt.Sprintf("Exact reference match: '%s' == '%s'", p.CustomerReference, r.DocumentNumber),
		}
	}

	purpose := normalizeReference(p.Purpose)
	if purpose != "" && strings.Contains(purpose, refDoc) {
		return models.RuleScore{
			Score:    round2(weight * 0.75),
			MaxScore: weight,
			Details:  fmt.Sprintf("Reference '%s' found in purpose", r.DocumentNumber),
		}
	}

	if strings.Contains(refDoc, refBank) || strings.Contains(refBank, refDoc) {
		return models.RuleScore{
			Score:    round2(weight * 0.5),
			MaxScore: weight,
			Details:  fmt.Sprintf("Partial reference overlap: '%s' ~ '%s'", p.CustomerReference, r.DocumentNumber),
		}
	}

	return models.RuleScore{
		MaxScore: weight,
		Details:  fmt.Sprintf("No reference match: '%s' != '%s'", p.CustomerReference, r.DocumentNumber),
	}
}

// ScoreAmount compares absolute amounts. Inside the tolerance the score
// falls linearly from the full weight to half of it at the boundary.
func ScoreAmount(p *models.Payment, r *models.RemittanceDocument, weight, tolerance float64) models.RuleScore {
	bank := p.Amount.Abs()
	doc := r.NetAmount.Abs()

	if doc.IsZero() && bank.IsZero() {
		return models.RuleScore{Score: weight, MaxScore: weight, Details: "Both amounts are zero, exact match"}
	}
	if doc.IsZero() {
		return models.RuleScore{
			MaxScore: weight,
			Details:  fmt.Sprintf("Remittance amount is zero, bank amount is %s", bank.StringFixed(2)),
		}
	}

	diff := bank.Sub(doc).Abs()
	if diff.IsZero() {
		return models.RuleScore{
			Score:    weight,
			MaxScore: weight,
			Details:  fmt.Sprintf("Exact amount match: %s", bank.StringFixed(2)),
		}
	}

	pct := diff.Div(doc)
	tol := decimal.NewFromFloat(tolerance)
	if tolerance > 0 && pct.LessThanOrEqual(tol) {
		ratio := one.Sub(pct.Div(tol).Mul(half))
		score := decimal.NewFromFloat(weight).Mul(ratio).Round(2).InexactFloat64()
		return models.RuleScore{
			Score:    score,
			MaxScore: weight,
			Details: fmt.Sprintf("Amount within tolerance: |%s - %s| = %s (%s%% diff)",
				bank.StringFixed(2), doc.StringFixed(2), diff.StringFixed(2), pct.Mul(decimal.NewFromInt(100)).StringFixed(4)),
		}
	}

	return models.RuleScore{
		MaxScore: weight,
		Details: fmt.Sprintf("Amount mismatch: |%s - %s| = %s (%s%% diff, exceeds %s%% tolerance)",
			bank.StringFixed(2), doc.StringFixed(2), diff.StringFixed(2),
			pct.Mul(decimal.NewFromInt(100)).StringFixed(2), tol.Mul(decimal.NewFromInt(100)).String()),
	}
}

// ScoreCompany fuzzy-matches the payer name against the remittance sender.
func ScoreCompany(p *models.Payment, r *models.RemittanceDocument, weight float64) models.RuleScore {
	bankName := NormalizeCompanyName(p.Counterparty)
	docName := NormalizeCompanyName(r.SenderName)

	if bankName == "" || docName == "" {
		return models.RuleScore{MaxScore: weight, Details: "Missing company name on one or both sides"}
	}

	similarity := TokenSortRatio(bankName, docName)

	if similarity >= FullCompanySimilarity {
		return models.RuleScore{
			Score:    weight,
			MaxScore: weight,
			Details:  fmt.Sprintf("Strong company match: '%s' ~ '%s' (%.0f%% similar)", p.Counterparty, r.SenderName, similarity),
		}
	}

	if similarity >= MinCompanySimilarity {
		ratio := (similarity - MinCompanySimilarity) / (FullCompanySimilarity - MinCompanySimilarity)
		return models.RuleScore{
			Score:    round2(weight * ratio),
			MaxScore: weight,
			Details:  fmt.Sprintf("Partial company match: '%s' ~ '%s' (%.0f%% similar)", p.Counterparty, r.SenderName, similarity),
		}
	}

	return models.RuleScore{
		MaxScore: weight,
		Details:  fmt.Sprintf("Company mismatch: '%s' != '%s' (%.0f%% similar)", p.Counterparty, r.SenderName, similarity),
	}
}

func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween is the absolute number of calendar days between a and b.
func DaysBetween(a, b time.Time) int {
	hours := calendarDay(a).Sub(calendarDay(b)).Hours()
	return int(math.Abs(math.Round(hours / 24)))
}

// ScoreDate rewards a booking date close to the remittance document date.
// A document without a date gets half the weight.
func ScoreDate(p *models.Payment, r *models.RemittanceDocument, weight float64, maxGapDays int) models.RuleScore {
	if p.BookingDate.IsZero() {
		return models.RuleScore{MaxScore: weight, Details: "Missing booking date on payment"}
	}

	if r.DocumentDate == nil || r.DocumentDate.IsZero() {
		return models.RuleScore{
			Score:    round2(weight * 0.5),
			MaxScore: weight,
			Details:  "No date on remittance, partial credit given",
		}
	}

	bank := p.BookingDate.Format("2006-01-02")
	doc := r.DocumentDate.Format("2006-01-02")
	gap := DaysBetween(p.BookingDate, *r.DocumentDate)

	if gap == 0 {
		return models.RuleScore{Score: weight, MaxScore: weight, Details: fmt.Sprintf("Same date: %s", bank)}
	}

	if maxGapDays > 0 && gap <= maxGapDays {
		ratio := 1.0 - float64(gap)/float64(maxGapDays)
		return models.RuleScore{
			Score:    round2(weight * ratio),
			MaxScore: weight,
			Details:  fmt.Sprintf("Dates %d day(s) apart: bank=%s, remittance=%s", gap, bank, doc),
		}
	}

	return models.RuleScore{
		MaxScore: weight,
		Details:  fmt.Sprintf("Dates too far apart (%d days): bank=%s, remittance=%s", gap, bank, doc),
	}
}
