// Package testutil provides a throwaway SQLite database and record builders
// for tests.
package testutil

import (
	"path/filepath"
	"testing"
	"time"

	"cash-application-engine/internal/config"
	"cash-application-engine/internal/models"
	"cash-application-engine/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// NewDB opens a migrated SQLite database in the test's temp dir.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := config.InitDB(config.DatabaseConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	require.NoError(t, repository.Migrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// Date returns midnight UTC of the given ISO date.
func Date(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func DatePtr(s string) *time.Time {
	d := Date(s)
	return &d
}

func Amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func NullAmount(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

// Payment builds an unmatched payment.
func Payment(amount, reference, bookingDate string) *models.Payment {
	p := &models.Payment{
		ID:                uuid.New(),
		Amount:            Amount(amount),
		CustomerReference: reference,
		Currency:          "EUR",
		MatchStatus:       models.PaymentUnmatched,
	}
	if bookingDate != "" {
		p.BookingDate = Date(bookingDate)
	}
	return p
}

// Remittance builds an unmatched document with one line item per amount.
func Remittance(netAmount, documentNumber, documentDate string, lineAmounts ...string) *models.RemittanceDocument {
	r := &models.RemittanceDocument{
		ID:             uuid.New(),
		DocumentNumber: documentNumber,
		NetAmount:      Amount(netAmount),
		Currency:       "EUR",
		MatchStatus:    models.RemittanceUnmatched,
	}
	if documentDate != "" {
		r.DocumentDate = DatePtr(documentDate)
	}
	for i, a := range lineAmounts {
		r.LineItems = append(r.LineItems, models.LineItem{
			ID:               uuid.New(),
			RemittanceID:     r.ID,
			Position:         i + 1,
			NetPaymentAmount: NullAmount(a),
		})
	}
	return r
}
