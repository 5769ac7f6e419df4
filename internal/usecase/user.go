package usecase

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/yumeworks/agora/internal/domain"
)

// UserUsecase owns user creation, updates and the soft-deletion
// cascade into items, messages and group state.
type UserUsecase struct {
	users    UserRepository
	items    ItemRepository
	messages MessageRepository
	roles    *RoleUsecase
	groups   *GroupUsecase
	verifier AddressVerifier
	tx       Transactor
}

func NewUserUsecase(
	users UserRepository,
	items ItemRepository,
	messages MessageRepository,
	roles *RoleUsecase,
	groups *GroupUsecase,
	verifier AddressVerifier,
	tx Transactor,
) *UserUsecase {
	return &UserUsecase{
		users:    users,
		items:    items,
		messages: messages,
		roles:    roles,
		groups:   groups,
		verifier: verifier,
		tx:       tx,
	}
}

// CreateUserInput is the creation payload. Roles beyond the default
// may only be requested by an admin requestor.
type CreateUserInput struct {
	DisplayName   string
	Email         *string
	WalletAddress string
	Roles         []string
}

// Create makes a user and grants its global roles. Without a requestor
// the new user gets exactly [USER]; an admin requestor asking for
// ADMIN gets the requested set verbatim; a non-admin asking for ADMIN
// is rejected before any row is written.
func (uc *UserUsecase) Create(ctx context.Context, input CreateUserInput, requestorID *string) (domain.User, error) {
	ctx, span := tracer.Start(ctx, "User.Usecase.Create")
	defer span.End()

	requested := make([]domain.RoleName, 0, len(input.Roles))
	for _, raw := range input.Roles {
		name, ok := domain.ParseRoleName(raw)
		if !ok {
			return domain.User{}, domain.BadRequestError{Reason: "unknown role name: " + raw}
		}
		requested = append(requested, name)
	}

	grants := []domain.RoleName{domain.RoleUser}
	if requestorID != nil && len(requested) > 0 {
		isAdmin, err := uc.roles.IsAdmin(ctx, *requestorID)
		if err != nil {
			span.RecordError(err)
			return domain.User{}, err
		}
		wantsAdmin := containsRole(requested, domain.RoleAdmin)
		if wantsAdmin && !isAdmin {
			return domain.User{}, domain.ForbiddenError{Reason: "only admins can grant the admin role"}
		}
		if isAdmin {
			grants = requested
		}
	} else if containsRole(requested, domain.RoleAdmin) {
		return domain.User{}, domain.ForbiddenError{Reason: "only admins can grant the admin role"}
	}

	user := domain.User{
		DisplayName: input.DisplayName,
		Email:       input.Email,
	}
	if input.WalletAddress != "" {
		address, err := uc.verifier.NormalizeAddress(input.WalletAddress)
		if err != nil {
			return domain.User{}, domain.BadRequestError{Reason: err.Error()}
		}
		user.Wallets = []domain.Wallet{{Address: address}}
	}

	var created domain.User
	err := uc.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		created, err = uc.users.Create(ctx, user)
		if err != nil {
			return errors.Wrap(err, "create user")
		}
		for _, name := range grants {
			if err := uc.roles.AssignGlobal(ctx, created.ID, name); err != nil {
				return errors.Wrap(err, "assign role")
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return domain.User{}, err
	}
	return created, nil
}

// UpdateUserInput is the update payload; nil fields are untouched. A
// non-empty role list replaces the user's whole global role set.
type UpdateUserInput struct {
	DisplayName   *string
	Email         *string
	WalletAddress string
	Roles         []string
}

// Update applies profile fields, upserts a wallet address when given,
// and replaces global roles when the requestor is an admin. Everything
// runs in one transaction; a rejected role change rolls back the rest.
func (uc *UserUsecase) Update(ctx context.Context, userID string, input UpdateUserInput, requestorID string) (domain.User, error) {
	ctx, span := tracer.Start(ctx, "User.Usecase.Update")
	defer span.End()

	var updated domain.User
	err := uc.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		updated, err = uc.users.Update(ctx, userID, domain.UserChanges{
			DisplayName: input.DisplayName,
			Email:       input.Email,
		})
		if err != nil {
			return err
		}

		if input.WalletAddress != "" {
			address, err := uc.verifier.NormalizeAddress(input.WalletAddress)
			if err != nil {
				return domain.BadRequestError{Reason: err.Error()}
			}
			if _, err := uc.users.UpsertWallet(ctx, userID, address); err != nil {
				return errors.Wrap(err, "upsert wallet")
			}
		}

		if len(input.Roles) > 0 {
			isAdmin, err := uc.roles.IsAdmin(ctx, requestorID)
			if err != nil {
				return err
			}
			if !isAdmin {
				return domain.UnauthorizedError{Action: "update roles"}
			}

			names := make([]domain.RoleName, 0, len(input.Roles))
			for _, raw := range input.Roles {
				name, ok := domain.ParseRoleName(raw)
				if !ok {
					return domain.BadRequestError{Reason: "unknown role name: " + raw}
				}
				names = append(names, name)
			}
			if err := uc.roles.ReplaceGlobal(ctx, userID, names); err != nil {
				return errors.Wrap(err, "replace roles")
			}
		}

		updated, err = uc.users.Get(ctx, userID)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return domain.User{}, err
	}
	return updated, nil
}

// SoftDeleteAndCleanup stamps the user and cascades: wallets, items
// and sent messages get the same deletion timestamp, membership edges
// are dropped everywhere, and owned groups are soft-deleted. All five
// steps commit together or not at all.
func (uc *UserUsecase) SoftDeleteAndCleanup(ctx context.Context, userID string) error {
	ctx, span := tracer.Start(ctx, "User.Usecase.SoftDeleteAndCleanup")
	defer span.End()

	err := uc.tx.RunInTx(ctx, func(ctx context.Context) error {
		now := time.Now()
		if err := uc.users.SoftDelete(ctx, userID, now); err != nil {
			return err
		}
		if err := uc.items.SoftDeleteBySeller(ctx, userID, now); err != nil {
			return errors.Wrap(err, "cascade items")
		}
		if err := uc.messages.SoftDeleteFrom(ctx, userID, now); err != nil {
			return errors.Wrap(err, "cascade messages")
		}
		if err := uc.groups.RemoveUserFromAllGroupMemberships(ctx, userID); err != nil {
			return errors.Wrap(err, "drop memberships")
		}
		return uc.groups.MarkOwnedGroupsDeleted(ctx, userID)
	})
	if err != nil {
		span.RecordError(err)
	}
	return err
}

func (uc *UserUsecase) Get(ctx context.Context, userID string) (domain.User, error) {
	return uc.users.Get(ctx, userID)
}

func (uc *UserUsecase) GetByWallet(ctx context.Context, address string) (domain.User, error) {
	normalized, err := uc.verifier.NormalizeAddress(address)
	if err != nil {
		return domain.User{}, domain.BadRequestError{Reason: err.Error()}
	}
	return uc.users.GetByWalletAddress(ctx, normalized)
}

func (uc *UserUsecase) ListActive(ctx context.Context) ([]domain.User, error) {
	return uc.users.ListActive(ctx)
}

func containsRole(names []domain.RoleName, target domain.RoleName) bool {
	for _, name := range names {
		if name == target {
			return true
		}
	}
	return false
}
