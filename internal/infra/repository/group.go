package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yumeworks/agora/internal/domain"
	"github.com/yumeworks/agora/internal/infra/database"
	"github.com/yumeworks/agora/internal/infra/database/models"
)

type GroupRepository struct {
	db *gorm.DB
}

func NewGroupRepository(db *gorm.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

func (r *GroupRepository) conn(ctx context.Context) *gorm.DB {
	return database.FromContext(ctx, r.db).WithContext(ctx)
}

func (r *GroupRepository) Create(ctx context.Context, group domain.Group) (domain.Group, error) {
	model := models.Group{
		ID:          uuid.NewString(),
		Name:        group.Name,
		Description: group.Description,
		ImageURL:    group.ImageURL,
		IsPublic:    group.IsPublic,
		OwnerID:     group.OwnerID,
	}
	if err := r.conn(ctx).Create(&model).Error; err != nil {
		return domain.Group{}, err
	}
	return groupFromModel(model), nil
}

// Get returns the group in any lifecycle state.
func (r *GroupRepository) Get(ctx context.Context, id string) (domain.Group, error) {
	var model models.Group
	err := r.conn(ctx).Take(&model, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Group{}, domain.NotFoundError{Resource: "group"}
		}
		return domain.Group{}, err
	}
	return groupFromModel(model), nil
}

// GetActive returns the group only while it has not been soft-deleted.
func (r *GroupRepository) GetActive(ctx context.Context, id string) (domain.Group, error) {
	var model models.Group
	err := r.conn(ctx).Take(&model, "id = ? AND deleted_at IS NULL", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Group{}, domain.NotFoundError{Resource: "group"}
		}
		return domain.Group{}, err
	}
	return groupFromModel(model), nil
}

// List returns active groups, optionally filtered by visibility.
func (r *GroupRepository) List(ctx context.Context, isPublic *bool) ([]domain.Group, error) {
	query := r.conn(ctx).Where("deleted_at IS NULL")
	if isPublic != nil {
		query = query.Where("is_public = ?", *isPublic)
	}

	var rows []models.Group
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	groups := make([]domain.Group, 0, len(rows))
	for _, row := range rows {
		groups = append(groups, groupFromModel(row))
	}
	return groups, nil
}

// CountActiveOwned counts the owner's live groups with the given
// visibility. The rows are locked so a concurrent create inside
// another transaction serializes behind this check.
func (r *GroupRepository) CountActiveOwned(ctx context.Context, ownerID string, isPublic bool) (int64, error) {
	var rows []models.Group
	err := r.conn(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("owner_id = ? AND is_public = ? AND deleted_at IS NULL", ownerID, isPublic).
		Find(&rows).Error
	if err != nil {
		return 0, err
	}
	return int64(len(rows)), nil
}

// CountActiveOwnedAll counts every live group the user owns, any
// visibility.
func (r *GroupRepository) CountActiveOwnedAll(ctx context.Context, ownerID string) (int64, error) {
	var count int64
	err := r.conn(ctx).Model(&models.Group{}).
		Where("owner_id = ? AND deleted_at IS NULL", ownerID).
		Count(&count).Error
	return count, err
}

func (r *GroupRepository) Update(ctx context.Context, id string, changes domain.GroupChanges) (domain.Group, error) {
	assignments := map[string]any{}
	if changes.Name != nil {
		assignments["name"] = *changes.Name
	}
	if changes.Description != nil {
		assignments["description"] = *changes.Description
	}
	if changes.ImageURL != nil {
		assignments["image_url"] = *changes.ImageURL
	}

	if len(assignments) > 0 {
		err := r.conn(ctx).Model(&models.Group{}).Where("id = ?", id).Updates(assignments).Error
		if err != nil {
			return domain.Group{}, err
		}
	}

	return r.Get(ctx, id)
}

func (r *GroupRepository) AddMember(ctx context.Context, groupID string, userID string) error {
	return r.conn(ctx).Clauses(clause.OnConflict{
		DoNothing: true,
	}).Table("group_members").Create(map[string]any{
		"group_id": groupID,
		"user_id":  userID,
	}).Error
}

func (r *GroupRepository) RemoveMember(ctx context.Context, groupID string, userID string) error {
	return r.conn(ctx).Table("group_members").
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Delete(nil).Error
}

func (r *GroupRepository) IsMember(ctx context.Context, groupID string, userID string) (bool, error) {
	var count int64
	err := r.conn(ctx).Table("group_members").
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Count(&count).Error
	return count > 0, err
}

// CountOtherMemberships counts the user's memberships in live groups
// other than the one being left.
func (r *GroupRepository) CountOtherMemberships(ctx context.Context, userID string, excludeGroupID string) (int64, error) {
	var count int64
	err := r.conn(ctx).Table("group_members").
		Joins("JOIN groups ON groups.id = group_members.group_id").
		Where("group_members.user_id = ? AND group_members.group_id <> ? AND groups.deleted_at IS NULL",
			userID, excludeGroupID).
		Count(&count).Error
	return count, err
}

// RemoveMemberEverywhere drops the user from every member set. Role
// cleanup is the caller's concern.
func (r *GroupRepository) RemoveMemberEverywhere(ctx context.Context, userID string) error {
	return r.conn(ctx).Table("group_members").
		Where("user_id = ?", userID).
		Delete(nil).Error
}

func (r *GroupRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	result := r.conn(ctx).Model(&models.Group{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Update("deleted_at", at)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.NotFoundError{Resource: "group"}
	}
	return nil
}

// SoftDeleteOwned bulk-deletes the user's groups. Attached items are
// left as-is, mirroring the cascade policy of user deletion.
func (r *GroupRepository) SoftDeleteOwned(ctx context.Context, ownerID string, at time.Time) error {
	return r.conn(ctx).Model(&models.Group{}).
		Where("owner_id = ? AND deleted_at IS NULL", ownerID).
		Update("deleted_at", at).Error
}

func groupFromModel(model models.Group) domain.Group {
	return domain.Group{
		ID:          model.ID,
		Name:        model.Name,
		Description: model.Description,
		ImageURL:    model.ImageURL,
		IsPublic:    model.IsPublic,
		OwnerID:     model.OwnerID,
		CreatedAt:   model.CDate,
		DeletedAt:   model.DeletedAt,
	}
}
