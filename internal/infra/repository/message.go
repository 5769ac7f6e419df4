package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yumeworks/agora/internal/domain"
	"github.com/yumeworks/agora/internal/infra/database"
	"github.com/yumeworks/agora/internal/infra/database/models"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) conn(ctx context.Context) *gorm.DB {
	return database.FromContext(ctx, r.db).WithContext(ctx)
}

func (r *MessageRepository) Create(ctx context.Context, message domain.Message) (domain.Message, error) {
	model := models.Message{
		ID:     uuid.NewString(),
		FromID: message.FromID,
		ToID:   message.ToID,
		Body:   message.Body,
	}
	if err := r.conn(ctx).Create(&model).Error; err != nil {
		return domain.Message{}, err
	}
	return messageFromModel(model), nil
}

// ListConversation returns live messages exchanged between two users,
// oldest first.
func (r *MessageRepository) ListConversation(ctx context.Context, userA string, userB string) ([]domain.Message, error) {
	var rows []models.Message
	err := r.conn(ctx).
		Where("deleted_at IS NULL").
		Where("(from_id = ? AND to_id = ?) OR (from_id = ? AND to_id = ?)", userA, userB, userB, userA).
		Order("c_date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	messages := make([]domain.Message, 0, len(rows))
	for _, row := range rows {
		messages = append(messages, messageFromModel(row))
	}
	return messages, nil
}

// SoftDeleteFrom stamps every live message the user has sent, part of
// the user-deletion cascade.
func (r *MessageRepository) SoftDeleteFrom(ctx context.Context, fromID string, at time.Time) error {
	return r.conn(ctx).Model(&models.Message{}).
		Where("from_id = ? AND deleted_at IS NULL", fromID).
		Update("deleted_at", at).Error
}

func messageFromModel(model models.Message) domain.Message {
	return domain.Message{
		ID:        model.ID,
		FromID:    model.FromID,
		ToID:      model.ToID,
		Body:      model.Body,
		CreatedAt: model.CDate,
		DeletedAt: model.DeletedAt,
	}
}
