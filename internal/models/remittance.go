package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type RemittanceStatus string

const (
	RemittanceUnmatched RemittanceStatus = "unmatched"
	RemittanceMatched   RemittanceStatus = "matched"
	RemittancePartial   RemittanceStatus = "partial"
)

func (s RemittanceStatus) Valid() bool {
	switch s {
	case RemittanceUnmatched, RemittanceMatched, RemittancePartial:
		return true
	}
	return false
}

// RemittanceDocument is the header of a remittance advice. Its line items
// say which invoices the payment settles.
type RemittanceDocument struct {
	ID             uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	DocumentNumber string              `gorm:"size:50;not null;index" json:"document_number"`
	SenderName     string              `gorm:"size:255" json:"sender_name"`
	SenderAddress  string              `gorm:"type:text" json:"sender_address,omitempty"`
	DocumentDate   *time.Time          `gorm:"type:date" json:"document_date,omitempty"`
	GrossAmount    decimal.NullDecimal `gorm:"type:numeric(15,2)" json:"gross_amount"`
	Discount       decimal.NullDecimal `gorm:"type:numeric(15,2)" json:"discount"`
	NetAmount      decimal.Decimal     `gorm:"type:numeric(15,2);not null" json:"net_amount"`
	Currency       string              `gorm:"size:3" json:"currency"`
	MatchStatus    RemittanceStatus    `gorm:"size:20;index" json:"match_status"`
	SourceFile     string              `gorm:"size:255" json:"source_file,omitempty"`
	LineItems      []LineItem          `gorm:"foreignKey:RemittanceID" json:"line_items"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

func (RemittanceDocument) TableName() string {
	return "remittance_documents"
}

type LineItem struct {
	ID               uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	RemittanceID     uuid.UUID           `gorm:"type:uuid;index;not null" json:"remittance_id"`
	Position         int                 `gorm:"not null" json:"position"`
	InvoiceNumber    string              `gorm:"size:50" json:"invoice_number"`
	Reference        string              `gorm:"size:50" json:"reference"`
	GrossAmount      decimal.NullDecimal `gorm:"type:numeric(15,2)" json:"gross_amount"`
	Discount         decimal.NullDecimal `gorm:"type:numeric(15,2)" json:"discount"`
	NetPaymentAmount decimal.NullDecimal `gorm:"type:numeric(15,2)" json:"net_payment_amount"`
	CreatedAt        time.Time           `json:"created_at"`
}

func (LineItem) TableName() string {
	return "remittance_line_items"
}
