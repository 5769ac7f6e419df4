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

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) conn(ctx context.Context) *gorm.DB {
	return database.FromContext(ctx, r.db).WithContext(ctx)
}

func (r *UserRepository) Create(ctx context.Context, user domain.User) (domain.User, error) {
	model := models.User{
		ID:          uuid.NewString(),
		DisplayName: user.DisplayName,
		Email:       user.Email,
	}
	for _, w := range user.Wallets {
		model.Wallets = append(model.Wallets, models.Wallet{
			ID:      uuid.NewString(),
			Address: w.Address,
			Nonce:   w.Nonce,
		})
	}

	if err := r.conn(ctx).Create(&model).Error; err != nil {
		return domain.User{}, err
	}
	return userFromModel(model), nil
}

func (r *UserRepository) Get(ctx context.Context, id string) (domain.User, error) {
	var model models.User
	err := r.conn(ctx).Preload("Wallets").Take(&model, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, domain.NotFoundError{Resource: "user"}
		}
		return domain.User{}, err
	}
	return userFromModel(model), nil
}

// GetByWalletAddress finds the active user owning the given address.
func (r *UserRepository) GetByWalletAddress(ctx context.Context, address string) (domain.User, error) {
	var model models.User
	err := r.conn(ctx).
		Preload("Wallets").
		Joins("JOIN wallets ON wallets.user_id = users.id").
		Where("wallets.address = ? AND users.deleted_at IS NULL", address).
		Take(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, domain.NotFoundError{Resource: "user"}
		}
		return domain.User{}, err
	}
	return userFromModel(model), nil
}

func (r *UserRepository) ListActive(ctx context.Context) ([]domain.User, error) {
	var rows []models.User
	err := r.conn(ctx).
		Preload("Wallets", "deleted_at IS NULL").
		Where("deleted_at IS NULL").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	users := make([]domain.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, userFromModel(row))
	}
	return users, nil
}

func (r *UserRepository) Update(ctx context.Context, id string, changes domain.UserChanges) (domain.User, error) {
	assignments := map[string]any{}
	if changes.DisplayName != nil {
		assignments["display_name"] = *changes.DisplayName
	}
	if changes.Email != nil {
		assignments["email"] = *changes.Email
	}

	if len(assignments) > 0 {
		result := r.conn(ctx).Model(&models.User{}).Where("id = ?", id).Updates(assignments)
		if result.Error != nil {
			return domain.User{}, result.Error
		}
		if result.RowsAffected == 0 {
			return domain.User{}, domain.NotFoundError{Resource: "user"}
		}
	}

	return r.Get(ctx, id)
}

// SoftDelete stamps the user and its wallets. Items, messages and
// group edges are cascaded by their own repositories.
func (r *UserRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	result := r.conn(ctx).Model(&models.User{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Update("deleted_at", at)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.NotFoundError{Resource: "user"}
	}

	return r.conn(ctx).Model(&models.Wallet{}).
		Where("user_id = ? AND deleted_at IS NULL", id).
		Update("deleted_at", at).Error
}

func (r *UserRepository) GetWallet(ctx context.Context, address string) (domain.Wallet, error) {
	var model models.Wallet
	err := r.conn(ctx).Take(&model, "address = ? AND deleted_at IS NULL", address).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Wallet{}, domain.NotFoundError{Resource: "wallet"}
		}
		return domain.Wallet{}, err
	}
	return walletFromModel(model), nil
}

// UpsertWallet attaches an address to the user, reusing the row when it
// already exists.
func (r *UserRepository) UpsertWallet(ctx context.Context, userID string, address string) (domain.Wallet, error) {
	model := models.Wallet{
		ID:      uuid.NewString(),
		UserID:  userID,
		Address: address,
	}
	err := r.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "address"}},
		DoUpdates: clause.Assignments(map[string]any{"user_id": userID}),
	}).Create(&model).Error
	if err != nil {
		return domain.Wallet{}, err
	}
	return r.GetWallet(ctx, address)
}

func (r *UserRepository) SetWalletNonce(ctx context.Context, walletID string, nonce string) error {
	return r.conn(ctx).Model(&models.Wallet{}).
		Where("id = ?", walletID).
		Update("nonce", nonce).Error
}

func userFromModel(model models.User) domain.User {
	user := domain.User{
		ID:          model.ID,
		DisplayName: model.DisplayName,
		Email:       model.Email,
		CreatedAt:   model.CDate,
		DeletedAt:   model.DeletedAt,
	}
	for _, w := range model.Wallets {
		user.Wallets = append(user.Wallets, walletFromModel(w))
	}
	return user
}

func walletFromModel(model models.Wallet) domain.Wallet {
	return domain.Wallet{
		ID:        model.ID,
		UserID:    model.UserID,
		Address:   model.Address,
		Nonce:     model.Nonce,
		DeletedAt: model.DeletedAt,
	}
}
