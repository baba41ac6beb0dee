package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentUnmatched    PaymentStatus = "unmatched"
	PaymentMatched      PaymentStatus = "matched"
	PaymentManualReview PaymentStatus = "manual_review"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentUnmatched, PaymentMatched, PaymentManualReview:
		return true
	}
	return false
}

// Payment is one bank statement line. Amount is signed: negative amounts
// leave the account.
type Payment struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	BookingDate       time.Time       `gorm:"type:date;index" json:"booking_date"`
	ValueDate         *time.Time      `gorm:"type:date" json:"value_date,omitempty"`
	Amount            decimal.Decimal `gorm:"type:numeric(15,2);not null" json:"amount"`
	Counterparty      string          `gorm:"size:255" json:"counterparty"`
	CustomerReference string          `gorm:"size:255;index" json:"customer_reference"`
	Purpose           string          `gorm:"type:text" json:"purpose"`
	BookingText       string          `gorm:"size:255" json:"booking_text,omitempty"`
	IBAN              string          `gorm:"size:34" json:"iban,omitempty"`
	BIC               string          `gorm:"size:11" json:"bic,omitempty"`
	Currency          string          `gorm:"size:3" json:"currency"`
	MatchStatus       PaymentStatus   `gorm:"size:20;index" json:"match_status"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// Description is the free text used on ledger lines: the customer
// reference, then the purpose, then nothing.
func (p *Payment) Description() string {
	if p.CustomerReference != "" {
		return p.CustomerReference
	}
	return p.Purpose
}
