package repository_test

import (
	"context"
	"testing"
	"time"

	"cash-application-engine/internal/models"
	"cash-application-engine/internal/repository"
	"cash-application-engine/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestPaymentRepository_CreateAndFind(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewPaymentRepository(db)
	ctx := context.Background()

	late := testutil.Payment("10.00", "B", "2026-01-12")
	early := testutil.Payment("20.00", "A", "2026-01-10")
	bare := &models.Payment{BookingDate: testutil.Date("2026-01-11"), Amount: testutil.Amount("5")}
	require.NoError(t, repo.Create(ctx, late, early, bare))

	assert.NotEqual(t, uuid.Nil, bare.ID)
	assert.Equal(t, models.PaymentUnmatched, bare.MatchStatus)

	got, err := repo.FindByStatus(ctx, models.PaymentUnmatched)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, early.ID, got[0].ID)
	assert.Equal(t, bare.ID, got[1].ID)
	assert.Equal(t, late.ID, got[2].ID)

	require.NoError(t, repo.UpdateStatus(ctx, []uuid.UUID{early.ID}, models.PaymentMatched))
	require.NoError(t, repo.UpdateStatus(ctx, nil, models.PaymentMatched))

	byID, err := repo.FindByIDs(ctx, []uuid.UUID{early.ID, late.ID, uuid.New()})
	require.NoError(t, err)
	assert.Len(t, byID, 2)
	assert.Equal(t, models.PaymentMatched, byID[early.ID].MatchStatus)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestPaymentRepository_StatsByStatus(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewPaymentRepository(db)
	ctx := context.Background()

	matched := testutil.Payment("100.00", "A", "2026-01-10")
	matched.MatchStatus = models.PaymentMatched
	require.NoError(t, repo.Create(ctx,
		matched,
		testutil.Payment("25.50", "B", "2026-01-10"),
		testutil.Payment("-5.50", "C", "2026-01-10"),
	))

	rows, err := repo.StatsByStatus(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "matched", rows[0].Status)
	assert.Equal(t, int64(1), rows[0].Count)
	assert.Equal(t, "unmatched", rows[1].Status)
	assert.Equal(t, int64(2), rows[1].Count)
	assert.InDelta(t, 20.0, rows[1].Sum, 0.001)
}

func TestRemittanceRepository_LineItemsInPositionOrder(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewRemittanceRepository(db)
	ctx := context.Background()

	doc := testutil.Remittance("300.00", "RA-1", "2026-01-10", "100.00", "200.00")
	doc.LineItems[0].Position = 2
	doc.LineItems[1].Position = 1
	second := testutil.Remittance("50.00", "RA-0", "")
	require.NoError(t, repo.Create(ctx, doc, second))

	got, err := repo.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, got.LineItems, 2)
	assert.Equal(t, 1, got.LineItems[0].Position)
	assert.True(t, testutil.Amount("200").Equal(got.LineItems[0].NetPaymentAmount.Decimal))
	assert.False(t, got.LineItems[0].GrossAmount.Valid)

	open, err := repo.FindByStatus(ctx, models.RemittanceUnmatched)
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, "RA-0", open[0].DocumentNumber)
	assert.Nil(t, open[0].DocumentDate)

	require.NoError(t, repo.UpdateStatus(ctx, []uuid.UUID{doc.ID}, models.RemittanceMatched))
	open, err = repo.FindByStatus(ctx, models.RemittanceUnmatched)
	require.NoError(t, err)
	assert.Len(t, open, 1)
}

func TestMatchRepository_FindWithoutPostings(t *testing.T) {
	db := testutil.NewDB(t)
	matches := repository.NewMatchRepository(db)
	postings := repository.NewPostingRepository(db)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	posted := &models.Match{ID: uuid.New(), PaymentID: uuid.New(), RemittanceID: uuid.New(), Kind: models.MatchExact, ConfidenceScore: 90, CreatedAt: base}
	older := &models.Match{ID: uuid.New(), PaymentID: uuid.New(), RemittanceID: uuid.New(), Kind: models.MatchFuzzy, ConfidenceScore: 70, CreatedAt: base.Add(time.Hour)}
	newer := &models.Match{ID: uuid.New(), PaymentID: uuid.New(), RemittanceID: uuid.New(), Kind: models.MatchFuzzy, ConfidenceScore: 65, CreatedAt: base.Add(2 * time.Hour)}
	require.NoError(t, matches.Create(ctx, newer, posted, older))

	lineID := uuid.New()
	require.NoError(t, postings.Create(ctx, &models.JournalPosting{
		ID:          uuid.New(),
		PostingDate: testutil.Date("2026-01-10"),
		LineNumber:  1,
		Debit:       testutil.NullAmount("10"),
		MatchID:     &posted.ID,
		LineItemID:  &lineID,
		RunID:       uuid.New(),
	}))

	pending, err := matches.FindWithoutPostings(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, older.ID, pending[0].ID)
	assert.Equal(t, newer.ID, pending[1].ID)

	fuzzy, err := matches.List(ctx, repository.MatchFilter{Kind: models.MatchFuzzy})
	require.NoError(t, err)
	require.Len(t, fuzzy, 2)
	assert.Equal(t, newer.ID, fuzzy[0].ID, "newest first")

	onlyPosted, err := postings.List(ctx, &posted.ID)
	require.NoError(t, err)
	assert.Len(t, onlyPosted, 1)
}

func TestPostingRepository_UnmatchedKeys(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewPostingRepository(db)
	ctx := context.Background()

	paymentID, matchID, lineID := uuid.New(), uuid.New(), uuid.New()
	require.NoError(t, repo.Create(ctx,
		&models.JournalPosting{
			ID: uuid.New(), PostingDate: testutil.Date("2026-01-10"), LineNumber: 1,
			Debit: testutil.NullAmount("10"), ItemText: "REF-1", PaymentID: &paymentID, RunID: uuid.New(),
		},
		&models.JournalPosting{
			ID: uuid.New(), PostingDate: testutil.Date("2026-01-10"), LineNumber: 2,
			Debit: testutil.NullAmount("10"), ItemText: "INV/1", MatchID: &matchID, LineItemID: &lineID, RunID: uuid.New(),
		},
	))

	keys, err := repo.UnmatchedKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[repository.UnmatchedKey]struct{}{
		repository.NewUnmatchedKey("REF-1", testutil.Date("2026-01-10")): {},
	}, keys)
}

func TestRunRepository_AuditTrail(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewRunRepository(db)
	ctx := context.Background()

	matchID := uuid.New()
	first := &models.MatchAuditLog{MatchID: matchID, Action: models.AuditManualMatched, PerformedBy: "alex", CreatedAt: time.Now().Add(-time.Minute)}
	second := &models.MatchAuditLog{MatchID: matchID, Action: models.AuditApproved, PerformedBy: "sam", CreatedAt: time.Now()}
	require.NoError(t, repo.LogAudit(ctx, second))
	require.NoError(t, repo.LogAudit(ctx, first))
	require.NoError(t, repo.LogAudit(ctx, &models.MatchAuditLog{MatchID: uuid.New(), Action: models.AuditApproved}))

	trail, err := repo.AuditTrail(ctx, matchID)
	require.NoError(t, err)
	require.Len(t, trail, 2)
	assert.Equal(t, models.AuditManualMatched, trail[0].Action)
	assert.Equal(t, models.AuditApproved, trail[1].Action)

	run := &models.ProcessingRun{ID: uuid.New(), Status: models.RunProcessing, StartedAt: time.Now()}
	require.NoError(t, repo.Create(ctx, run))
	run.Status = models.RunCompleted
	require.NoError(t, repo.Save(ctx, run))

	got, err := repo.GetByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunCompleted, got.Status)

	runs, err := repo.List(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
