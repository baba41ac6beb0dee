package repository

import (
	"context"

	"cash-application-engine/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RunRepository stores processing run headers and the match audit trail.
type RunRepository struct {
	db *gorm.DB
}

func NewRunRepository(db *gorm.DB) *RunRepository {
	return &RunRepository{db: db}
}

func (r *RunRepository) WithTx(tx *gorm.DB) *RunRepository {
	return &RunRepository{db: tx}
}

func (r *RunRepository) Create(ctx context.Context, run *models.ProcessingRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

func (r *RunRepository) Save(ctx context.Context, run *models.ProcessingRun) error {
	return r.db.WithContext(ctx).Save(run).Error
}

func (r *RunRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ProcessingRun, error) {
	var run models.ProcessingRun
	if err := r.db.WithContext(ctx).First(&run, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

// List returns the most recent runs first.
func (r *RunRepository) List(ctx context.Context, limit int) ([]models.ProcessingRun, error) {
	var runs []models.ProcessingRun
	err := r.db.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&runs).Error
	return runs, err
}

func (r *RunRepository) LogAudit(ctx context.Context, entry *models.MatchAuditLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *RunRepository) AuditTrail(ctx context.Context, matchID uuid.UUID) ([]models.MatchAuditLog, error) {
	var entries []models.MatchAuditLog
	err := r.db.WithContext(ctx).
		Where("match_id = ?", matchID).
		Order("created_at ASC").
		Find(&entries).Error
	return entries, err
}
