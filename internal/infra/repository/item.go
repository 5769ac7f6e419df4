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

type ItemRepository struct {
	db *gorm.DB
}

func NewItemRepository(db *gorm.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

func (r *ItemRepository) conn(ctx context.Context) *gorm.DB {
	return database.FromContext(ctx, r.db).WithContext(ctx)
}

func (r *ItemRepository) Create(ctx context.Context, item domain.Item) (domain.Item, error) {
	model := models.Item{
		ID:          uuid.NewString(),
		Title:       item.Title,
		Description: item.Description,
		Price:       item.Price,
		Currency:    item.Currency,
		SellerID:    item.SellerID,
		GroupID:     item.GroupID,
	}
	if err := r.conn(ctx).Create(&model).Error; err != nil {
		return domain.Item{}, err
	}
	return itemFromModel(model), nil
}

// GetActiveInGroup finds a live item attached to the given group.
func (r *ItemRepository) GetActiveInGroup(ctx context.Context, itemID string, groupID string) (domain.Item, error) {
	var model models.Item
	err := r.conn(ctx).
		Take(&model, "id = ? AND group_id = ? AND deleted_at IS NULL", itemID, groupID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Item{}, domain.NotFoundError{Resource: "item"}
		}
		return domain.Item{}, err
	}
	return itemFromModel(model), nil
}

func (r *ItemRepository) ListByGroup(ctx context.Context, groupID string) ([]domain.Item, error) {
	var rows []models.Item
	err := r.conn(ctx).
		Where("group_id = ? AND deleted_at IS NULL", groupID).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	items := make([]domain.Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, itemFromModel(row))
	}
	return items, nil
}

// CountBySellerInGroup counts the contributor's live items inside the
// group, the number the per-role quota is checked against.
func (r *ItemRepository) CountBySellerInGroup(ctx context.Context, groupID string, sellerID string) (int64, error) {
	var count int64
	err := r.conn(ctx).Model(&models.Item{}).
		Where("group_id = ? AND seller_id = ? AND deleted_at IS NULL", groupID, sellerID).
		Count(&count).Error
	return count, err
}

// Detach clears the item's group reference without touching the item.
func (r *ItemRepository) Detach(ctx context.Context, itemID string) error {
	return r.conn(ctx).Model(&models.Item{}).
		Where("id = ?", itemID).
		Update("group_id", nil).Error
}

// DetachAllFromGroup clears the group reference on every attached item.
func (r *ItemRepository) DetachAllFromGroup(ctx context.Context, groupID string) error {
	return r.conn(ctx).Model(&models.Item{}).
		Where("group_id = ?", groupID).
		Update("group_id", nil).Error
}

func (r *ItemRepository) SoftDelete(ctx context.Context, itemID string, at time.Time) error {
	result := r.conn(ctx).Model(&models.Item{}).
		Where("id = ? AND deleted_at IS NULL", itemID).
		Update("deleted_at", at)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.NotFoundError{Resource: "item"}
	}
	return nil
}

// SoftDeleteBySeller stamps every live item of the seller, part of the
// user-deletion cascade.
func (r *ItemRepository) SoftDeleteBySeller(ctx context.Context, sellerID string, at time.Time) error {
	return r.conn(ctx).Model(&models.Item{}).
		Where("seller_id = ? AND deleted_at IS NULL", sellerID).
		Update("deleted_at", at).Error
}

func itemFromModel(model models.Item) domain.Item {
	return domain.Item{
		ID:          model.ID,
		Title:       model.Title,
		Description: model.Description,
		Price:       model.Price,
		Currency:    model.Currency,
		SellerID:    model.SellerID,
		GroupID:     model.GroupID,
		CreatedAt:   model.CDate,
		DeletedAt:   model.DeletedAt,
	}
}
