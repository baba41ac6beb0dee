package repository

import (
	"context"

	"cash-application-engine/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MatchRepository struct {
	db *gorm.DB
}

func NewMatchRepository(db *gorm.DB) *MatchRepository {
	return &MatchRepository{db: db}
}

func (r *MatchRepository) WithTx(tx *gorm.DB) *MatchRepository {
	return &MatchRepository{db: tx}
}

func (r *MatchRepository) Create(ctx context.Context, matches ...*models.Match) error {
	if len(matches) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(matches).Error
}

func (r *MatchRepository) Save(ctx context.Context, m *models.Match) error {
	return r.db.WithContext(ctx).Save(m).Error
}

func (r *MatchRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Match, error) {
	var m models.Match
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

type MatchFilter struct {
	Kind     models.MatchKind
	Approved *bool
}

// List returns matches newest first.
func (r *MatchRepository) List(ctx context.Context, f MatchFilter) ([]models.Match, error) {
	var matches []models.Match
	query := r.db.WithContext(ctx).Order("created_at DESC").Order("id ASC")
	if f.Kind != "" {
		query = query.Where("kind = ?", f.Kind)
	}
	if f.Approved != nil {
		query = query.Where("approved = ?", *f.Approved)
	}
	err := query.Find(&matches).Error
	return matches, err
}

// FindWithoutPostings returns matches that no journal posting references yet,
// oldest first.
func (r *MatchRepository) FindWithoutPostings(ctx context.Context) ([]models.Match, error) {
	var matches []models.Match
	err := r.db.WithContext(ctx).
		Where("NOT EXISTS (SELECT 1 FROM journal_postings jp WHERE jp.match_id = matches.id)").
		Order("created_at ASC").
		Order("id ASC").
		Find(&matches).Error
	return matches, err
}

// FindByPayment returns every match on a payment, oldest first.
func (r *MatchRepository) FindByPayment(ctx context.Context, paymentID uuid.UUID) ([]models.Match, error) {
	var matches []models.Match
	err := r.db.WithContext(ctx).
		Where("payment_id = ?", paymentID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&matches).Error
	return matches, err
}

func (r *MatchRepository) Delete(ctx context.Context, ids ...uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.Match{}).Error
}
