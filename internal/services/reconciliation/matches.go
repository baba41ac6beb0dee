package reconciliation

import (
	"context"
	"fmt"
	"strings"

	"cash-application-engine/internal/models"
	"cash-application-engine/internal/repository"
	"cash-application-engine/internal/services/matching"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func (s *ReconciliationService) ListMatches(ctx context.Context, f repository.MatchFilter) ([]models.Match, error) {
	if f.Kind != "" && !f.Kind.Valid() {
		return nil, fmt.Errorf("%w: unknown match kind %q", ErrInvalidInput, f.Kind)
	}
	return s.matches.List(ctx, f)
}

// MatchView is a match with both sides and its audit trail.
type MatchView struct {
	Match      *models.Match              `json:"match"`
	Details    models.MatchDetails        `json:"details"`
	Payment    *models.Payment            `json:"payment,omitempty"`
	Remittance *models.RemittanceDocument `json:"remittance,omitempty"`
	AuditTrail []models.MatchAuditLog     `json:"audit_trail"`
}

func (s *ReconciliationService) GetMatch(ctx context.Context, id uuid.UUID) (*MatchView, error) {
	m, err := s.matches.GetByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "match", id)
	}
	details, err := m.Details()
	if err != nil {
		return nil, fmt.Errorf("decode match details: %w", err)
	}

	view := &MatchView{Match: m, Details: details}
	if view.Payment, err = s.payments.GetByID(ctx, m.PaymentID); err != nil {
		return nil, lookupErr(err, "payment", m.PaymentID)
	}
	if view.Remittance, err = s.remittances.GetByID(ctx, m.RemittanceID); err != nil {
		return nil, lookupErr(err, "remittance", m.RemittanceID)
	}
	if view.AuditTrail, err = s.runs.AuditTrail(ctx, m.ID); err != nil {
		return nil, fmt.Errorf("load audit trail: %w", err)
	}
	return view, nil
}

// ApproveMatch confirms a match and marks both of its sides matched.
func (s *ReconciliationService) ApproveMatch(ctx context.Context, id uuid.UUID, approvedBy string) (*models.Match, error) {
	approvedBy = strings.TrimSpace(approvedBy)
	if approvedBy == "" {
		return nil, fmt.Errorf("%w: approved_by is required", ErrInvalidInput)
	}

	var approved *models.Match
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := s.matches.WithTx(tx).GetByID(ctx, id)
		if err != nil {
			return lookupErr(err, "match", id)
		}
		if m.Approved {
			return fmt.Errorf("match %s: %w", id, ErrAlreadyApproved)
		}
		if err := s.checkUnclaimed(ctx, tx, m); err != nil {
			return err
		}

		now := s.now()
		m.Approved = true
		m.ApprovedBy = approvedBy
		m.ApprovedAt = &now
		if err := s.matches.WithTx(tx).Save(ctx, m); err != nil {
			return fmt.Errorf("save match: %w", err)
		}
		if err := s.markMatched(ctx, tx, m.PaymentID, m.RemittanceID); err != nil {
			return err
		}
		if err := s.runs.WithTx(tx).LogAudit(ctx, &models.MatchAuditLog{
			MatchID:      m.ID,
			PaymentID:    m.PaymentID,
			RemittanceID: m.RemittanceID,
			Action:       models.AuditApproved,
			PerformedBy:  approvedBy,
			CreatedAt:    now,
		}); err != nil {
			return fmt.Errorf("write audit log: %w", err)
		}
		approved = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("match approved", "match_id", approved.ID, "approved_by", approvedBy)
	return approved, nil
}

// CreateManualMatch links a payment and a remittance the engine did not
// pair. The pair is still scored so the breakdown shows why it was missed.
func (s *ReconciliationService) CreateManualMatch(ctx context.Context, paymentID, remittanceID uuid.UUID, approvedBy string) (*models.Match, error) {
	approvedBy = strings.TrimSpace(approvedBy)

	var created *models.Match
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := s.payments.WithTx(tx).GetByID(ctx, paymentID)
		if err != nil {
			return lookupErr(err, "payment", paymentID)
		}
		r, err := s.remittances.WithTx(tx).GetByID(ctx, remittanceID)
		if err != nil {
			return lookupErr(err, "remittance", remittanceID)
		}
		if p.MatchStatus == models.PaymentMatched {
			return fmt.Errorf("payment %s: %w", paymentID, ErrAlreadyMatched)
		}
		if r.MatchStatus == models.RemittanceMatched {
			return fmt.Errorf("remittance %s: %w", remittanceID, ErrAlreadyMatched)
		}
		replaced, err := s.dropReviewMatches(ctx, tx, p)
		if err != nil {
			return err
		}

		details := matching.Score(p, r, s.cfg.Matching)
		now := s.now()
		m := &models.Match{
			ID:              uuid.New(),
			PaymentID:       p.ID,
			RemittanceID:    r.ID,
			ConfidenceScore: roundConfidence(details.TotalScore),
			Kind:            models.MatchManual,
			Approved:        approvedBy != "",
			ApprovedBy:      approvedBy,
		}
		if m.Approved {
			m.ApprovedAt = &now
		}
		if err := m.SetDetails(details); err != nil {
			return fmt.Errorf("encode match details: %w", err)
		}
		if err := s.matches.WithTx(tx).Create(ctx, m); err != nil {
			return fmt.Errorf("create match: %w", err)
		}
		if err := s.markMatched(ctx, tx, p.ID, r.ID); err != nil {
			return err
		}
		reason := fmt.Sprintf("engine score %.2f", details.TotalScore)
		for _, id := range replaced {
			reason += fmt.Sprintf(", replaces review match %s", id)
		}
		if err := s.runs.WithTx(tx).LogAudit(ctx, &models.MatchAuditLog{
			MatchID:      m.ID,
			PaymentID:    p.ID,
			RemittanceID: r.ID,
			Action:       models.AuditManualMatched,
			PerformedBy:  approvedBy,
			Reason:       reason,
			CreatedAt:    now,
		}); err != nil {
			return fmt.Errorf("write audit log: %w", err)
		}
		created = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("manual match created", "match_id", created.ID, "payment_id", paymentID, "remittance_id", remittanceID)
	return created, nil
}

// checkUnclaimed rejects approving a match while another match already holds
// one of its sides. A match that claimed both sides itself, as auto and
// manual matches do, passes.
func (s *ReconciliationService) checkUnclaimed(ctx context.Context, tx *gorm.DB, m *models.Match) error {
	p, err := s.payments.WithTx(tx).GetByID(ctx, m.PaymentID)
	if err != nil {
		return lookupErr(err, "payment", m.PaymentID)
	}
	r, err := s.remittances.WithTx(tx).GetByID(ctx, m.RemittanceID)
	if err != nil {
		return lookupErr(err, "remittance", m.RemittanceID)
	}

	paymentTaken := p.MatchStatus == models.PaymentMatched
	remittanceTaken := r.MatchStatus == models.RemittanceMatched
	if paymentTaken && remittanceTaken {
		return nil
	}
	if paymentTaken {
		return fmt.Errorf("payment %s: %w", p.ID, ErrAlreadyMatched)
	}
	if remittanceTaken {
		return fmt.Errorf("remittance %s: %w", r.ID, ErrAlreadyMatched)
	}
	return nil
}

// dropReviewMatches deletes the pending review matches of a payment in
// manual review, so a manual match replaces them. A review match that is
// already posted cannot be replaced.
func (s *ReconciliationService) dropReviewMatches(ctx context.Context, tx *gorm.DB, p *models.Payment) ([]uuid.UUID, error) {
	if p.MatchStatus != models.PaymentManualReview {
		return nil, nil
	}
	existing, err := s.matches.WithTx(tx).FindByPayment(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("load review matches: %w", err)
	}
	var ids []uuid.UUID
	for _, m := range existing {
		if m.Approved {
			return nil, fmt.Errorf("payment %s has approved match %s: %w", p.ID, m.ID, ErrAlreadyMatched)
		}
		ids = append(ids, m.ID)
	}

	posted, err := s.postings.WithTx(tx).CountForMatches(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("count review postings: %w", err)
	}
	if posted > 0 {
		return nil, fmt.Errorf("payment %s review match already posted: %w", p.ID, ErrAlreadyMatched)
	}
	if err := s.matches.WithTx(tx).Delete(ctx, ids...); err != nil {
		return nil, fmt.Errorf("delete review matches: %w", err)
	}
	return ids, nil
}

func (s *ReconciliationService) markMatched(ctx context.Context, tx *gorm.DB, paymentID, remittanceID uuid.UUID) error {
	if err := s.payments.WithTx(tx).UpdateStatus(ctx, []uuid.UUID{paymentID}, models.PaymentMatched); err != nil {
		return fmt.Errorf("mark payment matched: %w", err)
	}
	if err := s.remittances.WithTx(tx).UpdateStatus(ctx, []uuid.UUID{remittanceID}, models.RemittanceMatched); err != nil {
		return fmt.Errorf("mark remittance matched: %w", err)
	}
	return nil
}

// Decision is what the engine would do with a pair.
type Decision string

const (
	DecisionAutoMatch    Decision = "auto_match"
	DecisionManualReview Decision = "manual_review"
	DecisionNoMatch      Decision = "no_match"
)

type Explanation struct {
	PaymentID    uuid.UUID           `json:"payment_id"`
	RemittanceID uuid.UUID           `json:"remittance_id"`
	Details      models.MatchDetails `json:"details"`
	Percentage   float64             `json:"percentage"`
	Decision     Decision            `json:"decision"`
}

// ExplainScore scores one pair without writing anything.
func (s *ReconciliationService) ExplainScore(ctx context.Context, paymentID, remittanceID uuid.UUID) (*Explanation, error) {
	p, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, lookupErr(err, "payment", paymentID)
	}
	r, err := s.remittances.GetByID(ctx, remittanceID)
	if err != nil {
		return nil, lookupErr(err, "remittance", remittanceID)
	}

	details := matching.Score(p, r, s.cfg.Matching)
	decision := DecisionNoMatch
	switch {
	case details.TotalScore >= s.cfg.Matching.AutoMatchThreshold:
		decision = DecisionAutoMatch
	case details.TotalScore >= s.cfg.Matching.ManualReviewThreshold:
		decision = DecisionManualReview
	}
	return &Explanation{
		PaymentID:    p.ID,
		RemittanceID: r.ID,
		Details:      details,
		Percentage:   details.Percentage(),
		Decision:     decision,
	}, nil
}
