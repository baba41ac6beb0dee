package models

import (
	"time"

	"github.com/google/uuid"
)

type AuditAction string

const (
	AuditApproved      AuditAction = "approved"
	AuditManualMatched AuditAction = "manual_matched"
)

// MatchAuditLog records human decisions taken on matches.
type MatchAuditLog struct {
	ID           uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	MatchID      uuid.UUID   `gorm:"type:uuid;index" json:"match_id"`
	PaymentID    uuid.UUID   `gorm:"type:uuid;index" json:"payment_id"`
	RemittanceID uuid.UUID   `gorm:"type:uuid" json:"remittance_id"`
	Action       AuditAction `gorm:"size:30" json:"action"`
	PerformedBy  string      `gorm:"size:100" json:"performed_by"`
	Reason       string      `json:"reason,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}
