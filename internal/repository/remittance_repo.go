package repository

import (
	"context"

	"cash-application-engine/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RemittanceRepository struct {
	db *gorm.DB
}

func NewRemittanceRepository(db *gorm.DB) *RemittanceRepository {
	return &RemittanceRepository{db: db}
}

func (r *RemittanceRepository) WithTx(tx *gorm.DB) *RemittanceRepository {
	return &RemittanceRepository{db: tx}
}

// Create inserts the documents together with their line items.
func (r *RemittanceRepository) Create(ctx context.Context, docs ...*models.RemittanceDocument) error {
	if len(docs) == 0 {
		return nil
	}
	for _, d := range docs {
		if d.ID == uuid.Nil {
			d.ID = uuid.New()
		}
		if d.MatchStatus == "" {
			d.MatchStatus = models.RemittanceUnmatched
		}
		for i := range d.LineItems {
			li := &d.LineItems[i]
			if li.ID == uuid.Nil {
				li.ID = uuid.New()
			}
			li.RemittanceID = d.ID
			if li.Position == 0 {
				li.Position = i + 1
			}
		}
	}
	return r.db.WithContext(ctx).Create(docs).Error
}

func orderedLineItems(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

// GetByID loads a document with its line items.
func (r *RemittanceRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.RemittanceDocument, error) {
	var doc models.RemittanceDocument
	err := r.db.WithContext(ctx).
		Preload("LineItems", orderedLineItems).
		First(&doc, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// FindByIDs loads documents with line items, keyed by id.
func (r *RemittanceRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.RemittanceDocument, error) {
	out := make(map[uuid.UUID]*models.RemittanceDocument, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var docs []models.RemittanceDocument
	err := r.db.WithContext(ctx).
		Preload("LineItems", orderedLineItems).
		Where("id IN ?", ids).
		Find(&docs).Error
	if err != nil {
		return nil, err
	}
	for i := range docs {
		out[docs[i].ID] = &docs[i]
	}
	return out, nil
}

// FindByStatus returns documents with line items, ordered by document number.
func (r *RemittanceRepository) FindByStatus(ctx context.Context, status models.RemittanceStatus) ([]models.RemittanceDocument, error) {
	var docs []models.RemittanceDocument
	err := r.db.WithContext(ctx).
		Preload("LineItems", orderedLineItems).
		Where("match_status = ?", status).
		Order("document_number ASC").
		Order("id ASC").
		Find(&docs).Error
	return docs, err
}

func (r *RemittanceRepository) UpdateStatus(ctx context.Context, ids []uuid.UUID, status models.RemittanceStatus) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.RemittanceDocument{}).
		Where("id IN ?", ids).
		Update("match_status", status).Error
}
