package repository

import (
	"context"
	"go_datachat_backend/models"
	"go_datachat_backend/pkg/logging"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type messageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Upsert(ctx context.Context, record *models.MessageRecord) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(record).Error
}

func (r *messageRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&models.MessageRecord{}, "id = ?", id).Error
}

func (r *messageRepository) SetBookmark(ctx context.Context, id string, bookmarked bool) error {
	return r.db.WithContext(ctx).Model(&models.MessageRecord{}).
		Where("id = ?", id).
		Update("bookmarked", bookmarked).Error
}

func (r *messageRepository) GetByID(ctx context.Context, id string) (*models.MessageRecord, error) {
	var res models.MessageRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&res).Error
	if err != nil {
		logging.Logger.Error("fail GetByID", "error", err)
		return nil, err
	}
	return &res, nil
}

func (r *messageRepository) ListByConversation(ctx context.Context, convoID string) ([]*models.MessageRecord, error) {
	var res []*models.MessageRecord
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", convoID).
		Order("created_at asc").
		Find(&res).Error
	if err != nil {
		logging.Logger.Error("fail ListByConversation", "error", err)
		return nil, err
	}
	return res, nil
}
