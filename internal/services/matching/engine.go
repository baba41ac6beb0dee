// Package matching scores payments against remittance documents and turns
// the best pairs into matches.
//
// A run loads every unmatched payment and remittance, scores the whole
// cross-product, ranks the candidates by score and assigns them greedily:
// the highest scoring pair wins and both sides leave the pool. The result is
// locally greedy, not a global optimum.
package matching

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"cash-application-engine/internal/config"
	"cash-application-engine/internal/models"
	"cash-application-engine/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ScoreFunc scores one pair. The engine recovers panics raised inside it.
type ScoreFunc func(p *models.Payment, r *models.RemittanceDocument, cfg config.MatchingConfig) (models.MatchDetails, error)

func defaultScore(p *models.Payment, r *models.RemittanceDocument, cfg config.MatchingConfig) (models.MatchDetails, error) {
	return Score(p, r, cfg), nil
}

// Candidate is a scored pair, alive only during one run.
type Candidate struct {
	Payment    *models.Payment
	Remittance *models.RemittanceDocument
	Details    models.MatchDetails
}

type Summary struct {
	TotalPayments    int         `json:"total_payments"`
	TotalRemittances int         `json:"total_remittances"`
	AutoMatched      int         `json:"auto_matched"`
	ManualReview     int         `json:"manual_review"`
	Unmatched        int         `json:"unmatched"`
	CreatedMatchIDs  []uuid.UUID `json:"created_match_ids"`
	Errors           []string    `json:"errors"`
}

// Assignment is the in-memory outcome of the greedy pass, not yet persisted.
type Assignment struct {
	Matches           []*models.Match
	MatchedPayments   []uuid.UUID
	ReviewPayments    []uuid.UUID
	MatchedRemittance []uuid.UUID
	// Errors lists pairs that won their slot but could not be stored.
	Errors []string
}

type Engine struct {
	db          *gorm.DB
	payments    *repository.PaymentRepository
	remittances *repository.RemittanceRepository
	matches     *repository.MatchRepository
	logger      *slog.Logger
	score       ScoreFunc
	now         func() time.Time
}

func NewEngine(db *gorm.DB, logger *slog.Logger) *Engine {
	return &Engine{
		db:          db,
		payments:    repository.NewPaymentRepository(db),
		remittances: repository.NewRemittanceRepository(db),
		matches:     repository.NewMatchRepository(db),
		logger:      logger.With("component", "matching"),
		score:       defaultScore,
		now:         time.Now,
	}
}

// WithScorer replaces the pair scorer.
func (e *Engine) WithScorer(fn ScoreFunc) *Engine {
	e.score = fn
	return e
}

// Run executes one matching cycle. Every match and status change is written
// in a single transaction at the end; if that fails nothing is kept and the
// error is returned.
func (e *Engine) Run(ctx context.Context, cfg config.MatchingConfig) (*Summary, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	payments, err := e.payments.FindByStatus(ctx, models.PaymentUnmatched)
	if err != nil {
		return nil, fmt.Errorf("load unmatched payments: %w", err)
	}
	remittances, err := e.remittances.FindByStatus(ctx, models.RemittanceUnmatched)
	if err != nil {
		return nil, fmt.Errorf("load unmatched remittances: %w", err)
	}

	summary := &Summary{
		TotalPayments:    len(payments),
		TotalRemittances: len(remittances),
		CreatedMatchIDs:  []uuid.UUID{},
		Errors:           []string{},
	}

	e.logger.Info("starting matching", "payments", len(payments), "remittances", len(remittances))

	if len(payments) == 0 || len(remittances) == 0 {
		e.logger.Info("nothing to match, no unmatched records on one or both sides")
		summary.Unmatched = len(payments)
		return summary, nil
	}

	candidates, scoreErrs := e.ScoreCandidates(payments, remittances, cfg)
	summary.Errors = append(summary.Errors, scoreErrs...)

	Rank(candidates)
	assignment := Assign(candidates, cfg, e.now())
	summary.Errors = append(summary.Errors, assignment.Errors...)

	if err := e.persist(ctx, assignment); err != nil {
		return nil, fmt.Errorf("commit matching results: %w", err)
	}

	for _, m := range assignment.Matches {
		summary.CreatedMatchIDs = append(summary.CreatedMatchIDs, m.ID)
	}
	summary.AutoMatched = len(assignment.MatchedPayments)
	summary.ManualReview = len(assignment.ReviewPayments)
	summary.Unmatched = len(payments) - summary.AutoMatched - summary.ManualReview

	e.logger.Info("matching complete",
		"auto_matched", summary.AutoMatched,
		"manual_review", summary.ManualReview,
		"unmatched", summary.Unmatched,
		"errors", len(summary.Errors),
	)
	return summary, nil
}

// ScoreCandidates scores every payment against every remittance. A pair whose
// scoring fails is left out and reported.
func (e *Engine) ScoreCandidates(
	payments []models.Payment,
	remittances []models.RemittanceDocument,
	cfg config.MatchingConfig,
) ([]Candidate, []string) {
	candidates := make([]Candidate, 0, len(payments)*len(remittances))
	var errs []string

	for i := range payments {
		p := &payments[i]
		for j := range remittances {
			r := &remittances[j]
			details, err := e.scorePair(p, r, cfg)
			if err != nil {
				e.logger.Error("error scoring pair", "payment_id", p.ID, "remittance_id", r.ID, "error", err)
				errs = append(errs, fmt.Sprintf("Scoring error for payment %s / remittance %s: %v", p.ID, r.ID, err))
				continue
			}
			candidates = append(candidates, Candidate{Payment: p, Remittance: r, Details: details})
		}
	}
	return candidates, errs
}

func (e *Engine) scorePair(p *models.Payment, r *models.RemittanceDocument, cfg config.MatchingConfig) (d models.MatchDetails, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic while scoring: %v", rec)
		}
	}()
	return e.score(p, r, cfg)
}

// Rank sorts candidates by total score, highest first. Equal scores fall
// back to the earlier booking date, then the lower document number, then ids,
// so a run over the same data always assigns the same way.
func Rank(candidates []Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Details.TotalScore != b.Details.TotalScore {
			return a.Details.TotalScore > b.Details.TotalScore
		}
		if !a.Payment.BookingDate.Equal(b.Payment.BookingDate) {
			return a.Payment.BookingDate.Before(b.Payment.BookingDate)
		}
		if a.Remittance.DocumentNumber != b.Remittance.DocumentNumber {
			return a.Remittance.DocumentNumber < b.Remittance.DocumentNumber
		}
		if a.Payment.ID != b.Payment.ID {
			return a.Payment.ID.String() < b.Payment.ID.String()
		}
		return a.Remittance.ID.String() < b.Remittance.ID.String()
	})
}

// Assign walks ranked candidates and claims pairs whose score clears a
// threshold. Each payment and remittance ends up in at most one match.
// Pairs sent to manual review claim both sides but only the payment changes
// status; the remittance waits for approval.
func Assign(ranked []Candidate, cfg config.MatchingConfig, now time.Time) Assignment {
	var out Assignment
	usedPayments := make(map[uuid.UUID]bool)
	usedRemittances := make(map[uuid.UUID]bool)

	for _, c := range ranked {
		if usedPayments[c.Payment.ID] || usedRemittances[c.Remittance.ID] {
			continue
		}

		score := c.Details.TotalScore
		auto := score >= cfg.AutoMatchThreshold
		if !auto && score < cfg.ManualReviewThreshold {
			continue
		}

		kind := models.MatchFuzzy
		if auto {
			kind = MatchKindFor(c.Details)
		}
		m := &models.Match{
			ID:              uuid.New(),
			PaymentID:       c.Payment.ID,
			RemittanceID:    c.Remittance.ID,
			ConfidenceScore: math.Round(score*10) / 10,
			Kind:            kind,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := m.SetDetails(c.Details); err != nil {
			out.Errors = append(out.Errors, fmt.Sprintf("Encoding error for payment %s / remittance %s: %v", c.Payment.ID, c.Remittance.ID, err))
			continue
		}
		out.Matches = append(out.Matches, m)

		if auto {
			out.MatchedPayments = append(out.MatchedPayments, c.Payment.ID)
			out.MatchedRemittance = append(out.MatchedRemittance, c.Remittance.ID)
			c.Payment.MatchStatus = models.PaymentMatched
			c.Remittance.MatchStatus = models.RemittanceMatched
		} else {
			out.ReviewPayments = append(out.ReviewPayments, c.Payment.ID)
			c.Payment.MatchStatus = models.PaymentManualReview
		}

		usedPayments[c.Payment.ID] = true
		usedRemittances[c.Remittance.ID] = true
	}
	return out
}

// MatchKindFor is exact when the reference rule awarded its full weight.
func MatchKindFor(d models.MatchDetails) models.MatchKind {
	if d.Rules.Reference.Full() {
		return models.MatchExact
	}
	return models.MatchFuzzy
}

func (e *Engine) persist(ctx context.Context, a Assignment) error {
	if len(a.Matches) == 0 {
		return nil
	}
	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := e.matches.WithTx(tx).Create(ctx, a.Matches...); err != nil {
			return fmt.Errorf("create matches: %w", err)
		}
		payments := e.payments.WithTx(tx)
		if err := payments.UpdateStatus(ctx, a.MatchedPayments, models.PaymentMatched); err != nil {
			return fmt.Errorf("mark payments matched: %w", err)
		}
		if err := payments.UpdateStatus(ctx, a.ReviewPayments, models.PaymentManualReview); err != nil {
			return fmt.Errorf("mark payments for review: %w", err)
		}
		if err := e.remittances.WithTx(tx).UpdateStatus(ctx, a.MatchedRemittance, models.RemittanceMatched); err != nil {
			return fmt.Errorf("mark remittances matched: %w", err)
		}
		return nil
	})
}
