package repository

import (
	"context"
	"time"

	"cash-application-engine/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PostingRepository struct {
	db *gorm.DB
}

func NewPostingRepository(db *gorm.DB) *PostingRepository {
	return &PostingRepository{db: db}
}

func (r *PostingRepository) WithTx(tx *gorm.DB) *PostingRepository {
	return &PostingRepository{db: tx}
}

func (r *PostingRepository) Create(ctx context.Context, postings ...*models.JournalPosting) error {
	if len(postings) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(postings).Error
}

// List returns postings in ledger order, optionally only those of one match.
func (r *PostingRepository) List(ctx context.Context, matchID *uuid.UUID) ([]models.JournalPosting, error) {
	var postings []models.JournalPosting
	query := r.db.WithContext(ctx).
		Order("created_at ASC").
		Order("line_number ASC")
	if matchID != nil {
		query = query.Where("match_id = ?", *matchID)
	}
	err := query.Find(&postings).Error
	return postings, err
}

// CountForMatches counts the postings referencing any of the matches.
func (r *PostingRepository) CountForMatches(ctx context.Context, matchIDs []uuid.UUID) (int64, error) {
	if len(matchIDs) == 0 {
		return 0, nil
	}
	var n int64
	err := r.db.WithContext(ctx).Model(&models.JournalPosting{}).Where("match_id IN ?", matchIDs).Count(&n).Error
	return n, err
}

// UnmatchedKey identifies a posting made for a payment without a match.
type UnmatchedKey struct {
	ItemText    string
	PostingDate string
}

func NewUnmatchedKey(itemText string, postingDate time.Time) UnmatchedKey {
	return UnmatchedKey{ItemText: itemText, PostingDate: postingDate.Format("2006-01-02")}
}

// UnmatchedKeys collects the (item text, posting date) pairs of every
// posting that carries no match reference.
func (r *PostingRepository) UnmatchedKeys(ctx context.Context) (map[UnmatchedKey]struct{}, error) {
	var rows []models.JournalPosting
	err := r.db.WithContext(ctx).
		Select("item_text", "posting_date").
		Where("match_id IS NULL").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	keys := make(map[UnmatchedKey]struct{}, len(rows))
	for _, p := range rows {
		keys[NewUnmatchedKey(p.ItemText, p.PostingDate)] = struct{}{}
	}
	return keys, nil
}
