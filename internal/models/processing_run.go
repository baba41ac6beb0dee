package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type RunStatus string

const (
	RunProcessing RunStatus = "processing"
	RunCompleted  RunStatus = "completed"
	RunFailed     RunStatus = "failed"
)

// ProcessingRun is the header row of one pipeline cycle.
type ProcessingRun struct {
	ID                 uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Status             RunStatus      `gorm:"size:20;index" json:"status"`
	TotalPayments      int            `json:"total_payments"`
	TotalRemittances   int            `json:"total_remittances"`
	AutoMatchedCount   int            `json:"auto_matched_count"`
	ManualReviewCount  int            `json:"manual_review_count"`
	UnmatchedCount     int            `json:"unmatched_count"`
	EntriesCreated     int            `json:"entries_created"`
	MatchesProcessed   int            `json:"matches_processed"`
	UnmatchedProcessed int            `json:"unmatched_processed"`
	Errors             datatypes.JSON `json:"errors"`
	FailureReason      string         `json:"failure_reason,omitempty"`
	StartedAt          time.Time      `json:"started_at"`
	CompletedAt        *time.Time     `json:"completed_at,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
}

// All lists every persisted model, in migration order.
func All() []any {
	return []any{
		&Payment{},
		&RemittanceDocument{},
		&LineItem{},
		&Match{},
		&JournalPosting{},
		&MatchAuditLog{},
		&ProcessingRun{},
	}
}
