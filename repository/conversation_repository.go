package repository

import (
	"context"
	"go_datachat_backend/models"
	"go_datachat_backend/pkg/logging"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type conversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

func (r *conversationRepository) Create(ctx context.Context, record *models.ConversationRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *conversationRepository) Update(ctx context.Context, record *models.ConversationRecord) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(record).Error
}

func (r *conversationRepository) Rename(ctx context.Context, id string, name string) error {
	return r.db.WithContext(ctx).Model(&models.ConversationRecord{}).
		Where("id = ?", id).
		Update("name", name).Error
}

func (r *conversationRepository) Delete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Delete(&models.MessageRecord{}, "conversation_id = ?", id).Error; err != nil {
		logging.Logger.Error("fail Delete conversation messages", "error", err)
		return err
	}
	return r.db.WithContext(ctx).Delete(&models.ConversationRecord{}, "id = ?", id).Error
}

func (r *conversationRepository) GetByID(ctx context.Context, id string) (*models.ConversationRecord, error) {
	var res models.ConversationRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&res).Error
	if err != nil {
		logging.Logger.Error("fail GetByID", "error", err)
		return nil, err
	}
	return &res, nil
}

func (r *conversationRepository) List(ctx context.Context) ([]*models.ConversationRecord, error) {
	var res []*models.ConversationRecord
	err := r.db.WithContext(ctx).Order("updated_at desc").Find(&res).Error
	if err != nil {
		logging.Logger.Error("fail List", "error", err)
		return nil, err
	}
	return res, nil
}
