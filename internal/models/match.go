package models

import (
	"encoding/json"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type MatchKind string

const (
	MatchExact  MatchKind = "exact"
	MatchFuzzy  MatchKind = "fuzzy"
	MatchManual MatchKind = "manual"
)

func (k MatchKind) Valid() bool {
	switch k {
	case MatchExact, MatchFuzzy, MatchManual:
		return true
	}
	return false
}

// RuleScore is the outcome of one scoring rule for one pair.
type RuleScore struct {
	Score    float64 `json:"score"`
	MaxScore float64 `json:"max_score"`
	Details  string  `json:"details"`
}

// Full reports whether the rule awarded its whole, non-zero weight.
func (r RuleScore) Full() bool {
	return r.MaxScore > 0 && r.Score == r.MaxScore
}

type RuleBreakdown struct {
	Reference RuleScore `json:"reference"`
	Amount    RuleScore `json:"amount"`
	Company   RuleScore `json:"company"`
	Date      RuleScore `json:"date"`
}

// MatchDetails is the audit record stored with every match.
type MatchDetails struct {
	TotalScore  float64       `json:"total_score"`
	MaxPossible float64       `json:"max_possible"`
	Rules       RuleBreakdown `json:"rules"`
}

// Match pairs one payment with one remittance document. It references both
// by id only; deleting either side is not cascaded.
type Match struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	PaymentID       uuid.UUID      `gorm:"type:uuid;index;not null" json:"payment_id"`
	RemittanceID    uuid.UUID      `gorm:"type:uuid;index;not null" json:"remittance_id"`
	ConfidenceScore float64        `gorm:"type:numeric(5,1);not null" json:"confidence_score"`
	Kind            MatchKind      `gorm:"size:20;index;not null" json:"kind"`
	MatchDetails    datatypes.JSON `json:"match_details"`
	Approved        bool           `gorm:"default:false;index" json:"approved"`
	ApprovedBy      string         `gorm:"size:100" json:"approved_by,omitempty"`
	ApprovedAt      *time.Time     `json:"approved_at,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

func (m *Match) SetDetails(d MatchDetails) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return err
	}
	m.MatchDetails = datatypes.JSON(raw)
	return nil
}

func (m *Match) Details() (MatchDetails, error) {
	var d MatchDetails
	if len(m.MatchDetails) == 0 {
		return d, nil
	}
	err := json.Unmarshal(m.MatchDetails, &d)
	return d, err
}

// Percentage is TotalScore relative to MaxPossible, 0-100.
func (d MatchDetails) Percentage() float64 {
	if d.MaxPossible == 0 {
		return 0
	}
	return math.Round(d.TotalScore/d.MaxPossible*100*100) / 100
}
