package journal

import (
	"context"
	"strings"
	"testing"
	"time"

	"cash-application-engine/internal/config"
	"cash-application-engine/internal/logging"
	"cash-application-engine/internal/models"
	"cash-application-engine/internal/repository"
	"cash-application-engine/internal/services/matching"
	"cash-application-engine/internal/testutil"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func assertAmount(t *testing.T, want string, got decimal.NullDecimal) {
	t.Helper()
	require.True(t, got.Valid, "expected amount %s, side is empty", want)
	assert.True(t, testutil.Amount(want).Equal(got.Decimal), "want %s, got %s", want, got.Decimal)
}

// seedMatch stores the payment, the remittance and a match linking them.
func seedMatch(t *testing.T, db *gorm.DB, p *models.Payment, r *models.RemittanceDocument, createdAt time.Time) *models.Match {
	t.Helper()
	ctx := context.Background()
	p.MatchStatus = models.PaymentMatched
	r.MatchStatus = models.RemittanceMatched
	require.NoError(t, repository.NewPaymentRepository(db).Create(ctx, p))
	require.NoError(t, repository.NewRemittanceRepository(db).Create(ctx, r))

	m := &models.Match{
		ID:              uuid.New(),
		PaymentID:       p.ID,
		RemittanceID:    r.ID,
		ConfidenceScore: 90,
		Kind:            models.MatchFuzzy,
		CreatedAt:       createdAt,
	}
	require.NoError(t, m.SetDetails(models.MatchDetails{TotalScore: 90, MaxPossible: 100}))
	require.NoError(t, repository.NewMatchRepository(db).Create(ctx, m))
	return m
}

func listPostings(t *testing.T, db *gorm.DB) []models.JournalPosting {
	t.Helper()
	postings, err := repository.NewPostingRepository(db).List(context.Background(), nil)
	require.NoError(t, err)
	return postings
}

func TestGenerate_EndToEndAfterMatching(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	p := testutil.Payment("1000.00", "INV100", "2026-01-10")
	r := testutil.Remittance("1000.00", "INV100", "2026-01-10", "1000.00")
	require.NoError(t, repository.NewPaymentRepository(db).Create(ctx, p))
	require.NoError(t, repository.NewRemittanceRepository(db).Create(ctx, r))

	ms, err := matching.NewEngine(db, logging.Discard()).Run(ctx, config.DefaultMatching())
	require.NoError(t, err)
	require.Len(t, ms.CreatedMatchIDs, 1)

	gen := NewGenerator(db, logging.Discard())
	summary, err := gen.Generate(ctx, config.DefaultJournal(), true)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.EntriesCreated)
	assert.Equal(t, 1, summary.MatchesProcessed)
	assert.Equal(t, 0, summary.UnmatchedProcessed)
	assert.Empty(t, summary.Errors)

	postings := listPostings(t, db)
	require.Len(t, postings, 1)
	e := postings[0]
	assertAmount(t, "1000.00", e.Debit)
	assert.False(t, e.Credit.Valid)
	assert.Equal(t, 1, e.LineNumber)
	assert.Equal(t, "1000", e.CompanyCode)
	assert.Equal(t, "SA", e.DocumentType)
	assert.Equal(t, "100000", e.GLAccount)
	assert.Equal(t, "EUR", e.Currency)
	assert.Equal(t, "2026-01-10", e.PostingDate.Format("2006-01-02"))
	assert.Equal(t, "2026-01-10", e.DocumentDate.Format("2006-01-02"))
	assert.Equal(t, "Match-"+ms.CreatedMatchIDs[0].String(), e.ItemText)
	require.NotNil(t, e.MatchID)
	assert.Equal(t, ms.CreatedMatchIDs[0], *e.MatchID)
	assert.Nil(t, e.PaymentID)
	assert.Equal(t, summary.RunID, e.RunID)
}

func TestGenerate_IsIdempotent(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	seedMatch(t, db,
		testutil.Payment("1000.00", "INV100", "2026-01-10"),
		testutil.Remittance("1000.00", "INV100", "2026-01-10", "600.00", "400.00"),
		time.Now(),
	)
	unmatched := testutil.Payment("75.00", "REF-9", "2026-01-11")
	require.NoError(t, repository.NewPaymentRepository(db).Create(ctx, unmatched))

	gen := NewGenerator(db, logging.Discard())
	first, err := gen.Generate(ctx, config.DefaultJournal(), true)
	require.NoError(t, err)
	assert.Equal(t, 3, first.EntriesCreated)

	second, err := gen.Generate(ctx, config.DefaultJournal(), true)
	require.NoError(t, err)
	assert.Equal(t, 0, second.EntriesCreated)
	assert.Equal(t, 0, second.MatchesProcessed)
	assert.Equal(t, 0, second.UnmatchedProcessed)
	assert.NotEqual(t, first.RunID, second.RunID)

	assert.Len(t, listPostings(t, db), 3)
}

func TestGenerate_LineNumbersSharedAcrossPaths(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	r := testutil.Remittance("1000.00", "RA-1", "2026-01-10", "600.00", "400.00")
	r.LineItems[0].InvoiceNumber = "970003839"
	r.LineItems[0].Reference = "38000383"
	r.LineItems[1].InvoiceNumber = "970003840"
	seedMatch(t, db, testutil.Payment("1000.00", "RA-1", "2026-01-10"), r, time.Now())

	leftover := testutil.Payment("75.00", "", "2026-01-11")
	leftover.Purpose = "Membership fee"
	require.NoError(t, repository.NewPaymentRepository(db).Create(ctx, leftover))

	summary, err := NewGenerator(db, logging.Discard()).Generate(ctx, config.DefaultJournal(), true)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.EntriesCreated)
	assert.Equal(t, 1, summary.MatchesProcessed)
	assert.Equal(t, 1, summary.UnmatchedProcessed)

	postings := listPostings(t, db)
	require.Len(t, postings, 3)
	assert.Equal(t, 1, postings[0].LineNumber)
	assert.Equal(t, "970003839/38000383", postings[0].ItemText)
	assertAmount(t, "600.00", postings[0].Debit)
	assert.Equal(t, 2, postings[1].LineNumber)
	assert.Equal(t, "970003840", postings[1].ItemText)
	assertAmount(t, "400.00", postings[1].Debit)

	assert.Equal(t, 3, postings[2].LineNumber)
	assert.Equal(t, "Membership fee", postings[2].ItemText)
	assert.Nil(t, postings[2].MatchID)
	require.NotNil(t, postings[2].PaymentID)
	assert.Equal(t, leftover.ID, *postings[2].PaymentID)
	for _, e := range postings {
		assert.NoError(t, e.Validate())
	}
}

func TestGenerate_OutgoingPaymentIsCredit(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	seedMatch(t, db,
		testutil.Payment("-250.00", "RA-2", "2026-01-10"),
		testutil.Remittance("250.00", "RA-2", "2026-01-10", "-250.00"),
		time.Now(),
	)
	outgoing := testutil.Payment("-80.00", "FEE", "2026-01-12")
	require.NoError(t, repository.NewPaymentRepository(db).Create(ctx, outgoing))

	_, err := NewGenerator(db, logging.Discard()).Generate(ctx, config.DefaultJournal(), true)
	require.NoError(t, err)

	postings := listPostings(t, db)
	require.Len(t, postings, 2)
	assertAmount(t, "250.00", postings[0].Credit)
	assert.False(t, postings[0].Debit.Valid)
	assertAmount(t, "80.00", postings[1].Credit)
	assert.False(t, postings[1].Debit.Valid)
}

func TestGenerate_FailingMatchConsumesNoLines(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	broken := testutil.Remittance("500.00", "RA-BAD", "2026-01-10", "200.00", "300.00")
	broken.LineItems[1].NetPaymentAmount = decimal.NullDecimal{}
	bad := seedMatch(t, db, testutil.Payment("500.00", "RA-BAD", "2026-01-10"), broken, base)
	seedMatch(t, db,
		testutil.Payment("100.00", "RA-OK", "2026-01-10"),
		testutil.Remittance("100.00", "RA-OK", "2026-01-10", "100.00"),
		base.Add(time.Minute),
	)

	gen := NewGenerator(db, logging.Discard())
	summary, err := gen.Generate(ctx, config.DefaultJournal(), false)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.EntriesCreated)
	assert.Equal(t, 1, summary.MatchesProcessed)
	require.Len(t, summary.Errors, 1)
	assert.True(t, strings.HasPrefix(summary.Errors[0], "Match "+bad.ID.String()))

	postings := listPostings(t, db)
	require.Len(t, postings, 1)
	assert.Equal(t, 1, postings[0].LineNumber)
	assertAmount(t, "100.00", postings[0].Debit)

	// the broken match stays unposted and is retried
	again, err := gen.Generate(ctx, config.DefaultJournal(), false)
	require.NoError(t, err)
	assert.Len(t, again.Errors, 1)
	assert.Equal(t, 0, again.EntriesCreated)
}

func TestGenerate_UnmatchedGuard(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	payments := repository.NewPaymentRepository(db)

	twinA := testutil.Payment("50.00", "REF-1", "2026-01-10")
	twinB := testutil.Payment("60.00", "REF-1", "2026-01-10")
	otherDay := testutil.Payment("50.00", "REF-1", "2026-01-11")
	blank := testutil.Payment("10.00", "", "2026-01-10")
	review := testutil.Payment("99.00", "REF-2", "2026-01-10")
	review.MatchStatus = models.PaymentManualReview
	require.NoError(t, payments.Create(ctx, twinA, twinB, otherDay, blank, review))

	summary, err := NewGenerator(db, logging.Discard()).Generate(ctx, config.DefaultJournal(), true)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.UnmatchedProcessed)
	assert.Equal(t, 3, summary.EntriesCreated)

	texts := map[string]int{}
	for _, e := range listPostings(t, db) {
		texts[e.ItemText+"@"+e.PostingDate.Format("2006-01-02")]++
	}
	assert.Equal(t, map[string]int{
		"REF-1@2026-01-10": 1,
		"REF-1@2026-01-11": 1,
		"@2026-01-10":      1,
	}, texts)
}

func TestGenerate_WithoutUnmatched(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	require.NoError(t, repository.NewPaymentRepository(db).Create(ctx, testutil.Payment("50.00", "REF-1", "2026-01-10")))

	summary, err := NewGenerator(db, logging.Discard()).Generate(ctx, config.DefaultJournal(), false)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.EntriesCreated)
	assert.Empty(t, listPostings(t, db))
}

func TestGenerate_CurrencyFallsBackToDefault(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	p := testutil.Payment("50.00", "REF-1", "2026-01-10")
	p.Currency = ""
	require.NoError(t, repository.NewPaymentRepository(db).Create(ctx, p))

	cfg := config.DefaultJournal()
	cfg.Currency = "CHF"
	_, err := NewGenerator(db, logging.Discard()).Generate(ctx, cfg, true)
	require.NoError(t, err)

	postings := listPostings(t, db)
	require.Len(t, postings, 1)
	assert.Equal(t, "CHF", postings[0].Currency)
}

func TestDebitCredit(t *testing.T) {
	debit, credit := DebitCredit(testutil.Amount("-250.00"), testutil.Amount("250.00"))
	assert.False(t, debit.Valid)
	assertAmount(t, "250.00", credit)

	debit, credit = DebitCredit(testutil.Amount("0"), testutil.Amount("0"))
	assertAmount(t, "0", debit)
	assert.False(t, credit.Valid)
}

func TestLineItemText(t *testing.T) {
	id := uuid.MustParse("6f1c1a52-1d7e-4a51-9a3f-1f0b7c3f2a10")

	assert.Equal(t, "970003839/38000383", LineItemText(&models.LineItem{InvoiceNumber: "970003839", Reference: "38000383"}, id))
	assert.Equal(t, "38000383", LineItemText(&models.LineItem{Reference: "38000383"}, id))
	assert.Equal(t, "Match-6f1c1a52-1d7e-4a51-9a3f-1f0b7c3f2a10", LineItemText(&models.LineItem{}, id))
}
