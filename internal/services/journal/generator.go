// Package journal turns matches and leftover payments into general ledger
// postings.
package journal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cash-application-engine/internal/config"
	"cash-application-engine/internal/models"
	"cash-application-engine/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrMissingPayment    = errors.New("payment not found")
	ErrMissingRemittance = errors.New("remittance not found")
	ErrMissingLineAmount = errors.New("line item has no net payment amount")
)

type Summary struct {
	RunID              uuid.UUID `json:"run_id"`
	EntriesCreated     int       `json:"entries_created"`
	MatchesProcessed   int       `json:"matches_processed"`
	UnmatchedProcessed int       `json:"unmatched_processed"`
	Errors             []string  `json:"errors"`
}

type Generator struct {
	db          *gorm.DB
	matches     *repository.MatchRepository
	payments    *repository.PaymentRepository
	remittances *repository.RemittanceRepository
	postings    *repository.PostingRepository
	logger      *slog.Logger
	now         func() time.Time
}

func NewGenerator(db *gorm.DB, logger *slog.Logger) *Generator {
	return &Generator{
		db:          db,
		matches:     repository.NewMatchRepository(db),
		payments:    repository.NewPaymentRepository(db),
		remittances: repository.NewRemittanceRepository(db),
		postings:    repository.NewPostingRepository(db),
		logger:      logger.With("component", "journal"),
		now:         time.Now,
	}
}

// Generate posts every match that has no postings yet, one line per
// remittance line item, and optionally one line per unmatched payment that
// was not posted before. Line numbers run from 1 across both paths.
// Postings are committed together; a failed commit keeps nothing.
func (g *Generator) Generate(ctx context.Context, cfg config.JournalConfig, includeUnmatched bool) (*Summary, error) {
	summary := &Summary{RunID: uuid.New(), Errors: []string{}}
	b := &batch{cfg: cfg, runID: summary.RunID, createdAt: g.now(), line: 1}

	matches, err := g.matches.FindWithoutPostings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load unposted matches: %w", err)
	}

	if len(matches) > 0 {
		paymentIDs := make([]uuid.UUID, 0, len(matches))
		remittanceIDs := make([]uuid.UUID, 0, len(matches))
		for _, m := range matches {
			paymentIDs = append(paymentIDs, m.PaymentID)
			remittanceIDs = append(remittanceIDs, m.RemittanceID)
		}
		payments, err := g.payments.FindByIDs(ctx, paymentIDs)
		if err != nil {
			return nil, fmt.Errorf("load matched payments: %w", err)
		}
		remittances, err := g.remittances.FindByIDs(ctx, remittanceIDs)
		if err != nil {
			return nil, fmt.Errorf("load matched remittances: %w", err)
		}

		for i := range matches {
			m := &matches[i]
			entries, err := b.forMatch(m, payments[m.PaymentID], remittances[m.RemittanceID])
			if err != nil {
				g.logger.Error("error generating postings for match", "match_id", m.ID, "error", err)
				summary.Errors = append(summary.Errors, fmt.Sprintf("Match %s: %v", m.ID, err))
				continue
			}
			b.add(entries...)
			summary.MatchesProcessed++
			g.logger.Debug("generated postings for match", "match_id", m.ID, "entries", len(entries))
		}
	}

	if includeUnmatched {
		if err := g.unmatched(ctx, b, summary); err != nil {
			return nil, err
		}
	}

	if err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return g.postings.WithTx(tx).Create(ctx, b.postings...)
	}); err != nil {
		return nil, fmt.Errorf("commit journal postings: %w", err)
	}
	summary.EntriesCreated = len(b.postings)

	g.logger.Info("journal generation complete",
		"run_id", summary.RunID,
		"entries", summary.EntriesCreated,
		"matches", summary.MatchesProcessed,
		"unmatched", summary.UnmatchedProcessed,
		"errors", len(summary.Errors),
	)
	return summary, nil
}

func (g *Generator) unmatched(ctx context.Context, b *batch, summary *Summary) error {
	posted, err := g.postings.UnmatchedKeys(ctx)
	if err != nil {
		return fmt.Errorf("load unmatched postings: %w", err)
	}
	payments, err := g.payments.FindByStatus(ctx, models.PaymentUnmatched)
	if err != nil {
		return fmt.Errorf("load unmatched payments: %w", err)
	}

	for i := range payments {
		p := &payments[i]
		key := repository.NewUnmatchedKey(p.Description(), p.BookingDate)
		if _, ok := posted[key]; ok {
			continue
		}

		entry := b.forPayment(p)
		if err := entry.Validate(); err != nil {
			g.logger.Error("error generating posting for payment", "payment_id", p.ID, "error", err)
			summary.Errors = append(summary.Errors, fmt.Sprintf("Payment %s: %v", p.ID, err))
			continue
		}
		b.add(entry)
		posted[key] = struct{}{}
		summary.UnmatchedProcessed++
	}
	return nil
}

// batch accumulates the postings of one run and owns the line counter.
type batch struct {
	cfg       config.JournalConfig
	runID     uuid.UUID
	createdAt time.Time
	line      int
	postings  []*models.JournalPosting
}

func (b *batch) add(entries ...*models.JournalPosting) {
	for _, e := range entries {
		e.LineNumber = b.line
		b.line++
		b.postings = append(b.postings, e)
	}
}

// forMatch builds the postings of one match without numbering them, so a
// match that fails halfway leaves the counter untouched.
func (b *batch) forMatch(m *models.Match, p *models.Payment, r *models.RemittanceDocument) ([]*models.JournalPosting, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingPayment, m.PaymentID)
	}
	if r == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingRemittance, m.RemittanceID)
	}

	entries := make([]*models.JournalPosting, 0, len(r.LineItems))
	for i := range r.LineItems {
		li := &r.LineItems[i]
		if !li.NetPaymentAmount.Valid {
			return nil, fmt.Errorf("%w: position %d", ErrMissingLineAmount, li.Position)
		}

		e := b.posting(p, li.NetPaymentAmount.Decimal.Abs(), LineItemText(li, m.ID))
		matchID, lineID := m.ID, li.ID
		e.MatchID = &matchID
		e.LineItemID = &lineID
		if err := e.Validate(); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (b *batch) forPayment(p *models.Payment) *models.JournalPosting {
	e := b.posting(p, p.Amount.Abs(), p.Description())
	paymentID := p.ID
	e.PaymentID = &paymentID
	return e
}

func (b *batch) posting(p *models.Payment, amount decimal.Decimal, text string) *models.JournalPosting {
	debit, credit := DebitCredit(p.Amount, amount)
	currency := p.Currency
	if currency == "" {
		currency = b.cfg.Currency
	}
	return &models.JournalPosting{
		ID:           uuid.New(),
		CompanyCode:  b.cfg.CompanyCode,
		PostingDate:  p.BookingDate,
		DocumentDate: p.BookingDate,
		DocumentType: b.cfg.DocumentType,
		GLAccount:    b.cfg.GLAccount,
		Debit:        debit,
		Credit:       credit,
		Currency:     currency,
		ItemText:     text,
		RunID:        b.runID,
		CreatedAt:    b.createdAt,
	}
}

// LineItemText joins the invoice number and reference that are present with
// a slash, falling back to "Match-{id}".
func LineItemText(li *models.LineItem, matchID uuid.UUID) string {
	var parts []string
	if s := strings.TrimSpace(li.InvoiceNumber); s != "" {
		parts = append(parts, s)
	}
	if s := strings.TrimSpace(li.Reference); s != "" {
		parts = append(parts, s)
	}
	if len(parts) == 0 {
		return "Match-" + matchID.String()
	}
	return strings.Join(parts, "/")
}

// DebitCredit puts amount on the credit side for outgoing payments (negative
// signed amount) and on the debit side otherwise.
func DebitCredit(signed, amount decimal.Decimal) (debit, credit decimal.NullDecimal) {
	if signed.IsNegative() {
		return decimal.NullDecimal{}, decimal.NewNullDecimal(amount)
	}
	return decimal.NewNullDecimal(amount), decimal.NullDecimal{}
}
