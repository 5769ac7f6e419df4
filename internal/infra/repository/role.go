package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yumeworks/agora/internal/domain"
	"github.com/yumeworks/agora/internal/infra/database"
	"github.com/yumeworks/agora/internal/infra/database/models"
)

type RoleRepository struct {
	db *gorm.DB
	// catalog rows are near-immutable, so name lookups sit in a small
	// in-process cache invalidated on every catalog mutation
	catalog *cache.Cache
}

func NewRoleRepository(db *gorm.DB) *RoleRepository {
	return &RoleRepository{
		db:      db,
		catalog: cache.New(10*time.Minute, 15*time.Minute),
	}
}

func (r *RoleRepository) conn(ctx context.Context) *gorm.DB {
	return database.FromContext(ctx, r.db).WithContext(ctx)
}

func (r *RoleRepository) Create(ctx context.Context, role domain.Role) (domain.Role, error) {
	model := models.Role{
		ID:          uuid.NewString(),
		Name:        string(role.Name),
		Description: role.Description,
	}
	if err := r.conn(ctx).Create(&model).Error; err != nil {
		return domain.Role{}, err
	}
	r.catalog.Delete(model.Name)
	return roleFromModel(model), nil
}

func (r *RoleRepository) GetByID(ctx context.Context, id string) (domain.Role, error) {
	var model models.Role
	err := r.conn(ctx).Take(&model, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Role{}, domain.NotFoundError{Resource: "role"}
		}
		return domain.Role{}, err
	}
	return roleFromModel(model), nil
}

func (r *RoleRepository) GetByName(ctx context.Context, name domain.RoleName) (domain.Role, error) {
	if cached, found := r.catalog.Get(string(name)); found {
		return cached.(domain.Role), nil
	}

	var model models.Role
	err := r.conn(ctx).Take(&model, "name = ?", string(name)).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Role{}, domain.NotFoundError{Resource: "role"}
		}
		return domain.Role{}, err
	}

	role := roleFromModel(model)
	r.catalog.Set(string(name), role, cache.DefaultExpiration)
	return role, nil
}

func (r *RoleRepository) Update(ctx context.Context, id string, description string) (domain.Role, error) {
	role, err := r.GetByID(ctx, id)
	if err != nil {
		return domain.Role{}, err
	}

	err = r.conn(ctx).Model(&models.Role{}).
		Where("id = ?", id).
		Update("description", description).Error
	if err != nil {
		return domain.Role{}, err
	}

	r.catalog.Delete(string(role.Name))
	return r.GetByID(ctx, id)
}

func (r *RoleRepository) Delete(ctx context.Context, id string) error {
	role, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}

	r.catalog.Delete(string(role.Name))
	return r.conn(ctx).Delete(&models.Role{}, "id = ?", id).Error
}

// AssignGlobal is an idempotent upsert on the (user, role) key.
func (r *RoleRepository) AssignGlobal(ctx context.Context, userID string, roleID string) error {
	return r.conn(ctx).Clauses(clause.OnConflict{
		DoNothing: true,
	}).Create(&models.UserRole{
		UserID: userID,
		RoleID: roleID,
	}).Error
}

// AssignScoped is an idempotent upsert on the (user, role, group) key.
func (r *RoleRepository) AssignScoped(ctx context.Context, userID string, roleID string, groupID string) error {
	return r.conn(ctx).Clauses(clause.OnConflict{
		DoNothing: true,
	}).Create(&models.GroupRole{
		UserID:  userID,
		RoleID:  roleID,
		GroupID: groupID,
	}).Error
}

// RevokeGlobal deletes the assignment; revoking an absent one is a no-op.
func (r *RoleRepository) RevokeGlobal(ctx context.Context, userID string, roleID string) error {
	return r.conn(ctx).
		Delete(&models.UserRole{}, "user_id = ? AND role_id = ?", userID, roleID).Error
}

func (r *RoleRepository) RevokeScoped(ctx context.Context, userID string, roleID string, groupID string) error {
	return r.conn(ctx).
		Delete(&models.GroupRole{}, "user_id = ? AND role_id = ? AND group_id = ?", userID, roleID, groupID).Error
}

// ClearGlobal removes every global assignment of the user. Used by the
// replace-all role update.
func (r *RoleRepository) ClearGlobal(ctx context.Context, userID string) error {
	return r.conn(ctx).Delete(&models.UserRole{}, "user_id = ?", userID).Error
}

func (r *RoleRepository) GlobalRolesOf(ctx context.Context, userID string) ([]domain.RoleName, error) {
	var rows []models.UserRole
	err := r.conn(ctx).Preload("Role").Find(&rows, "user_id = ?", userID).Error
	if err != nil {
		return nil, err
	}

	names := make([]domain.RoleName, 0, len(rows))
	for _, row := range rows {
		names = append(names, domain.RoleName(row.Role.Name))
	}
	return names, nil
}

// ScopedRolesOf returns role names the user holds across all groups,
// or within one group when groupID is non-empty.
func (r *RoleRepository) ScopedRolesOf(ctx context.Context, userID string, groupID string) ([]domain.RoleName, error) {
	query := r.conn(ctx).Preload("Role").Where("user_id = ?", userID)
	if groupID != "" {
		query = query.Where("group_id = ?", groupID)
	}

	var rows []models.GroupRole
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	names := make([]domain.RoleName, 0, len(rows))
	for _, row := range rows {
		names = append(names, domain.RoleName(row.Role.Name))
	}
	return names, nil
}

func roleFromModel(model models.Role) domain.Role {
	return domain.Role{
		ID:          model.ID,
		Name:        domain.RoleName(model.Name),
		Description: model.Description,
	}
}
