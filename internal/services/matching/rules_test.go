package matching

import (
	"testing"
	"time"

	"cash-application-engine/internal/models"
	"cash-application-engine/internal/testutil"

	"github.com/stretchr/testify/assert"
)

func TestScoreReference(t *testing.T) {
	tests := []struct {
		name     string
		bankRef  string
		purpose  string
		docNo    string
		expected float64
	}{
		{name: "leading zeros stripped", bankRef: "0038393", docNo: "38393", expected: 40},
		{name: "case and whitespace", bankRef: "  inv100 ", docNo: "INV100", expected: 40},
		{name: "document number in purpose", bankRef: "X-1", purpose: "Payment for RA 38393 thanks", docNo: "38393", expected: 30},
		{name: "substring overlap", bankRef: "INV100", docNo: "INV1005", expected: 20},
		{name: "no overlap", bankRef: "ABC", docNo: "XYZ", expected: 0},
		{name: "missing bank reference", bankRef: "", purpose: "38393", docNo: "38393", expected: 0},
		{name: "missing document number", bankRef: "38393", docNo: "", expected: 0},
		{name: "only zeros counts as missing", bankRef: "000", docNo: "0", expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &models.Payment{CustomerReference: tt.bankRef, Purpose: tt.purpose}
			r := &models.RemittanceDocument{DocumentNumber: tt.docNo}

			got := ScoreReference(p, r, 40)

			assert.Equal(t, tt.expected, got.Score)
			assert.Equal(t, 40.0, got.MaxScore)
			assert.NotEmpty(t, got.Details)
		})
	}
}

func TestScoreAmount(t *testing.T) {
	tests := []struct {
		name     string
		bank     string
		doc      string
		expected float64
	}{
		{name: "exact", bank: "1000.00", doc: "1000.00", expected: 35},
		{name: "half a percent off", bank: "1005.00", doc: "1000.00", expected: 26.25},
		{name: "at tolerance boundary", bank: "990.00", doc: "1000.00", expected: 17.5},
		{name: "twenty percent off", bank: "1200.00", doc: "1000.00", expected: 0},
		{name: "negative payment compared by magnitude", bank: "-1000.00", doc: "1000.00", expected: 35},
		{name: "both zero", bank: "0", doc: "0", expected: 35},
		{name: "remittance zero", bank: "10.00", doc: "0", expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &models.Payment{Amount: testutil.Amount(tt.bank)}
			r := &models.RemittanceDocument{NetAmount: testutil.Amount(tt.doc)}

			got := ScoreAmount(p, r, 35, 0.01)

			assert.Equal(t, tt.expected, got.Score)
			assert.Equal(t, 35.0, got.MaxScore)
		})
	}
}

func TestScoreCompany(t *testing.T) {
	tests := []struct {
		name     string
		bank     string
		doc      string
		expected float64
	}{
		{name: "legal suffix ignored", bank: "Bike Team GmbH", doc: "bike team", expected: 15},
		{name: "word order ignored", bank: "Team Bike", doc: "Bike Team AG", expected: 15},
		{name: "ocr typo scores partially", bank: "Blke Team", doc: "Bike Team", expected: 14.44},
		{name: "different companies", bank: "Acme Corp", doc: "Globex Industries", expected: 0},
		{name: "missing payer", bank: "", doc: "Bike Team", expected: 0},
		{name: "missing sender", bank: "Bike Team", doc: "   ", expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &models.Payment{Counterparty: tt.bank}
			r := &models.RemittanceDocument{SenderName: tt.doc}

			got := ScoreCompany(p, r, 15)

			assert.InDelta(t, tt.expected, got.Score, 0.001)
			assert.Equal(t, 15.0, got.MaxScore)
		})
	}
}

func TestScoreDate(t *testing.T) {
	tests := []struct {
		name     string
		bank     string
		doc      string
		expected float64
	}{
		{name: "same day", bank: "2026-01-10", doc: "2026-01-10", expected: 10},
		{name: "three days", bank: "2026-01-13", doc: "2026-01-10", expected: 7},
		{name: "payment before document", bank: "2026-01-08", doc: "2026-01-10", expected: 8},
		{name: "exactly max gap", bank: "2026-01-20", doc: "2026-01-10", expected: 0},
		{name: "beyond max gap", bank: "2026-02-10", doc: "2026-01-10", expected: 0},
		{name: "missing remittance date", bank: "2026-01-10", doc: "", expected: 5},
		{name: "missing booking date", bank: "", doc: "2026-01-10", expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &models.Payment{}
			if tt.bank != "" {
				p.BookingDate = testutil.Date(tt.bank)
			}
			r := &models.RemittanceDocument{}
			if tt.doc != "" {
				r.DocumentDate = testutil.DatePtr(tt.doc)
			}

			got := ScoreDate(p, r, 10, 10)

			assert.Equal(t, tt.expected, got.Score)
			assert.Equal(t, 10.0, got.MaxScore)
		})
	}
}

func TestDaysBetween_IgnoresTimeOfDay(t *testing.T) {
	a := testutil.Date("2026-01-10").Add(23 * time.Hour)
	b := testutil.Date("2026-01-11")

	assert.Equal(t, 1, DaysBetween(a, b))
	assert.Equal(t, 1, DaysBetween(b, a))
}
