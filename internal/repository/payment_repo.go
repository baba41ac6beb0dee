package repository

import (
	"context"
	"strings"

	"cash-application-engine/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *PaymentRepository) WithTx(tx *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: tx}
}

func (r *PaymentRepository) Create(ctx context.Context, payments ...*models.Payment) error {
	if len(payments) == 0 {
		return nil
	}
	for _, p := range payments {
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		if p.MatchStatus == "" {
			p.MatchStatus = models.PaymentUnmatched
		}
	}
	return r.db.WithContext(ctx).Create(payments).Error
}

func (r *PaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var p models.Payment
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// FindByIDs returns the payments keyed by id.
func (r *PaymentRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Payment, error) {
	out := make(map[uuid.UUID]*models.Payment, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var payments []models.Payment
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&payments).Error; err != nil {
		return nil, err
	}
	for i := range payments {
		out[payments[i].ID] = &payments[i]
	}
	return out, nil
}

// FindByStatus returns payments in a stable order: booking date, then id.
func (r *PaymentRepository) FindByStatus(ctx context.Context, status models.PaymentStatus) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.WithContext(ctx).
		Where("match_status = ?", status).
		Order("booking_date ASC").
		Order("id ASC").
		Find(&payments).Error
	return payments, err
}

func (r *PaymentRepository) UpdateStatus(ctx context.Context, ids []uuid.UUID, status models.PaymentStatus) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.Payment{}).
		Where("id IN ?", ids).
		Update("match_status", status).Error
}

// List pages through payments ordered by id. search matches the
// counterparty, reference or purpose case-insensitively.
func (r *PaymentRepository) List(
	ctx context.Context,
	status string,
	cursor string,
	limit int,
	search string,
) ([]models.Payment, string, bool, error) {
	var payments []models.Payment
	query := r.db.WithContext(ctx).
		Order("id ASC").
		Limit(limit + 1)

	if status != "" && status != "all" {
		query = query.Where("match_status = ?", status)
	}

	if cursor != "" {
		query = query.Where("id > ?", cursor)
	}

	if search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where(
			"LOWER(counterparty) LIKE ? OR LOWER(customer_reference) LIKE ? OR LOWER(purpose) LIKE ?",
			like, like, like,
		)
	}

	if err := query.Find(&payments).Error; err != nil {
		return nil, "", false, err
	}

	hasMore := false
	var nextCursor string
	if len(payments) > limit {
		hasMore = true
		nextCursor = payments[limit-1].ID.String()
		payments = payments[:limit]
	}

	return payments, nextCursor, hasMore, nil
}

type StatusStat struct {
	Status string  `json:"status"`
	Count  int64   `json:"count"`
	Sum    float64 `json:"sum"`
}

// StatsByStatus groups payments by match status with count and amount sum.
func (r *PaymentRepository) StatsByStatus(ctx context.Context) ([]StatusStat, error) {
	var rows []StatusStat
	err := r.db.WithContext(ctx).Model(&models.Payment{}).
		Select("match_status AS status, COUNT(*) AS count, COALESCE(SUM(amount),0) AS sum").
		Group("match_status").
		Order("match_status").
		Scan(&rows).Error
	return rows, err
}
