package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrPostingSide = errors.New("posting must carry exactly one of debit or credit")
	ErrPostingLink = errors.New("posting must reference either a match line or a payment")
)

// JournalPosting is one general ledger line. The column order of the
// business fields follows the ledger import layout.
type JournalPosting struct {
	ID           uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	CompanyCode  string              `gorm:"size:10" json:"company_code"`
	PostingDate  time.Time           `gorm:"type:date;not null;index" json:"posting_date"`
	DocumentDate time.Time           `gorm:"type:date;not null" json:"document_date"`
	DocumentType string              `gorm:"size:10" json:"document_type"`
	LineNumber   int                 `gorm:"not null" json:"line_number"`
	GLAccount    string              `gorm:"size:20" json:"gl_account"`
	Debit        decimal.NullDecimal `gorm:"type:numeric(15,2)" json:"debit"`
	Credit       decimal.NullDecimal `gorm:"type:numeric(15,2)" json:"credit"`
	Currency     string              `gorm:"size:3" json:"currency"`
	ItemText     string              `gorm:"size:255;index" json:"item_text"`

	MatchID    *uuid.UUID `gorm:"type:uuid;index" json:"match_id,omitempty"`
	LineItemID *uuid.UUID `gorm:"type:uuid" json:"line_item_id,omitempty"`
	PaymentID  *uuid.UUID `gorm:"type:uuid;index" json:"payment_id,omitempty"`
	RunID      uuid.UUID  `gorm:"type:uuid;index" json:"run_id"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Validate enforces the one-sided amount and the exclusive link.
func (p *JournalPosting) Validate() error {
	if p.Debit.Valid == p.Credit.Valid {
		return ErrPostingSide
	}
	matched := p.MatchID != nil && p.LineItemID != nil
	unmatched := p.PaymentID != nil
	if matched == unmatched || (p.MatchID == nil) != (p.LineItemID == nil) {
		return ErrPostingLink
	}
	return nil
}

// Amount returns whichever side is populated.
func (p *JournalPosting) Amount() decimal.Decimal {
	if p.Debit.Valid {
		return p.Debit.Decimal
	}
	return p.Credit.Decimal
}
