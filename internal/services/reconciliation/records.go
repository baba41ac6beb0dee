package reconciliation

import (
	"context"
	"fmt"
	"strings"

	"cash-application-engine/internal/models"
	"cash-application-engine/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// CreatePayments stores payments already parsed by an upstream importer.
func (s *ReconciliationService) CreatePayments(ctx context.Context, payments []*models.Payment) error {
	if len(payments) == 0 {
		return fmt.Errorf("%w: no payments given", ErrInvalidInput)
	}
	for i, p := range payments {
		if p.MatchStatus != "" && !p.MatchStatus.Valid() {
			return fmt.Errorf("%w: payment %d has unknown status %q", ErrInvalidInput, i, p.MatchStatus)
		}
		if p.BookingDate.IsZero() {
			return fmt.Errorf("%w: payment %d has no booking date", ErrInvalidInput, i)
		}
		if p.Currency == "" {
			p.Currency = s.cfg.Journal.Currency
		}
	}
	if err := s.payments.Create(ctx, payments...); err != nil {
		return fmt.Errorf("create payments: %w", err)
	}
	s.logger.Info("payments stored", "count", len(payments))
	return nil
}

// CreateRemittances stores remittance documents with their line items.
func (s *ReconciliationService) CreateRemittances(ctx context.Context, docs []*models.RemittanceDocument) error {
	if len(docs) == 0 {
		return fmt.Errorf("%w: no remittances given", ErrInvalidInput)
	}
	for i, d := range docs {
		if strings.TrimSpace(d.DocumentNumber) == "" {
			return fmt.Errorf("%w: remittance %d has no document number", ErrInvalidInput, i)
		}
		if d.MatchStatus != "" && !d.MatchStatus.Valid() {
			return fmt.Errorf("%w: remittance %d has unknown status %q", ErrInvalidInput, i, d.MatchStatus)
		}
		if d.Currency == "" {
			d.Currency = s.cfg.Journal.Currency
		}
	}
	if err := s.remittances.Create(ctx, docs...); err != nil {
		return fmt.Errorf("create remittances: %w", err)
	}
	s.logger.Info("remittances stored", "count", len(docs))
	return nil
}

type PaymentQuery struct {
	Status string
	Cursor string
	Limit  int
	Search string
}

type PaymentPage struct {
	Payments   []models.Payment `json:"payments"`
	NextCursor string           `json:"next_cursor,omitempty"`
	HasMore    bool             `json:"has_more"`
}

func (s *ReconciliationService) ListPayments(ctx context.Context, q PaymentQuery) (*PaymentPage, error) {
	if q.Status != "" && q.Status != "all" && !models.PaymentStatus(q.Status).Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, q.Status)
	}
	if q.Cursor != "" {
		if _, err := uuid.Parse(q.Cursor); err != nil {
			return nil, fmt.Errorf("%w: bad cursor", ErrInvalidInput)
		}
	}
	limit := q.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	limit = min(limit, maxPageSize)

	payments, next, more, err := s.payments.List(ctx, q.Status, q.Cursor, limit, q.Search)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return &PaymentPage{Payments: payments, NextCursor: next, HasMore: more}, nil
}

type PaymentStats struct {
	Total       int64                          `json:"total"`
	TotalAmount float64                        `json:"total_amount"`
	ByStatus    []repository.StatusStat        `json:"by_status"`
	Counts      map[models.PaymentStatus]int64 `json:"counts"`
}

func (s *ReconciliationService) PaymentStats(ctx context.Context) (*PaymentStats, error) {
	rows, err := s.payments.StatsByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("payment stats: %w", err)
	}

	stats := &PaymentStats{
		ByStatus: rows,
		Counts: map[models.PaymentStatus]int64{
			models.PaymentUnmatched:    0,
			models.PaymentMatched:      0,
			models.PaymentManualReview: 0,
		},
	}
	for _, r := range rows {
		stats.Total += r.Count
		stats.TotalAmount += r.Sum
		stats.Counts[models.PaymentStatus(r.Status)] = r.Count
	}
	return stats, nil
}

type PostingList struct {
	Total       int                     `json:"total"`
	TotalDebit  decimal.Decimal         `json:"total_debit"`
	TotalCredit decimal.Decimal         `json:"total_credit"`
	Entries     []models.JournalPosting `json:"entries"`
}

func (s *ReconciliationService) ListPostings(ctx context.Context, matchID *uuid.UUID) (*PostingList, error) {
	postings, err := s.postings.List(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("list postings: %w", err)
	}

	out := &PostingList{Total: len(postings), Entries: postings}
	for _, p := range postings {
		if p.Debit.Valid {
			out.TotalDebit = out.TotalDebit.Add(p.Debit.Decimal)
		}
		if p.Credit.Valid {
			out.TotalCredit = out.TotalCredit.Add(p.Credit.Decimal)
		}
	}
	return out, nil
}
