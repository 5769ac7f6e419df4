package usecase

import (
	"context"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"

	"github.com/yumeworks/agora/internal/domain"
)

var tracer = otel.Tracer("usecase")

// RoleUsecase is the single authority over the role catalog and both
// assignment scopes. Assignment operations are idempotent: putting an
// assignment in the state it is already in is success, not an error.
type RoleUsecase struct {
	repo   RoleRepository
	groups GroupRepository
}

func NewRoleUsecase(repo RoleRepository, groups GroupRepository) *RoleUsecase {
	return &RoleUsecase{
		repo:   repo,
		groups: groups,
	}
}

// IsAdmin reports whether the user holds a global ADMIN assignment.
// Scoped roles never confer admin standing.
func (uc *RoleUsecase) IsAdmin(ctx context.Context, userID string) (bool, error) {
	names, err := uc.repo.GlobalRolesOf(ctx, userID)
	if err != nil {
		return false, errors.Wrap(err, "load global roles")
	}
	for _, name := range names {
		if name == domain.RoleAdmin {
			return true, nil
		}
	}
	return false, nil
}

func (uc *RoleUsecase) GlobalRolesOf(ctx context.Context, userID string) ([]domain.RoleName, error) {
	return uc.repo.GlobalRolesOf(ctx, userID)
}

// ScopedRolesOf returns roles held inside one group, or across all
// groups when groupID is empty.
func (uc *RoleUsecase) ScopedRolesOf(ctx context.Context, userID string, groupID string) ([]domain.RoleName, error) {
	return uc.repo.ScopedRolesOf(ctx, userID, groupID)
}

// RolesOf is the merged view of global and scoped role names. Most
// callers want one scope or the other; this exists for the profile
// surface that shows everything a user holds.
func (uc *RoleUsecase) RolesOf(ctx context.Context, userID string) ([]domain.RoleName, error) {
	global, err := uc.repo.GlobalRolesOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	scoped, err := uc.repo.ScopedRolesOf(ctx, userID, "")
	if err != nil {
		return nil, err
	}

	seen := map[domain.RoleName]struct{}{}
	merged := make([]domain.RoleName, 0, len(global)+len(scoped))
	for _, name := range append(global, scoped...) {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		merged = append(merged, name)
	}
	return merged, nil
}

func (uc *RoleUsecase) AssignGlobal(ctx context.Context, userID string, name domain.RoleName) error {
	role, err := uc.repo.GetByName(ctx, name)
	if err != nil {
		return err
	}
	return uc.repo.AssignGlobal(ctx, userID, role.ID)
}

func (uc *RoleUsecase) AssignScoped(ctx context.Context, userID string, name domain.RoleName, groupID string) error {
	role, err := uc.repo.GetByName(ctx, name)
	if err != nil {
		return err
	}
	return uc.repo.AssignScoped(ctx, userID, role.ID, groupID)
}

func (uc *RoleUsecase) RevokeGlobal(ctx context.Context, userID string, name domain.RoleName) error {
	role, err := uc.repo.GetByName(ctx, name)
	if err != nil {
		return err
	}
	return uc.repo.RevokeGlobal(ctx, userID, role.ID)
}

func (uc *RoleUsecase) RevokeScoped(ctx context.Context, userID string, name domain.RoleName, groupID string) error {
	role, err := uc.repo.GetByName(ctx, name)
	if err != nil {
		return err
	}
	return uc.repo.RevokeScoped(ctx, userID, role.ID, groupID)
}

// ReplaceGlobal swaps the user's entire global role set for the given
// one. The caller is responsible for the admin check; concurrent
// replaces last-write-win.
func (uc *RoleUsecase) ReplaceGlobal(ctx context.Context, userID string, names []domain.RoleName) error {
	if err := uc.repo.ClearGlobal(ctx, userID); err != nil {
		return err
	}
	for _, name := range names {
		if err := uc.AssignGlobal(ctx, userID, name); err != nil {
			return err
		}
	}
	return nil
}

// ReconcileOwnerRole revokes the scoped GROUP_OWNER role when the user
// no longer owns any live group.
func (uc *RoleUsecase) ReconcileOwnerRole(ctx context.Context, ownerID string, groupID string) error {
	owned, err := uc.groups.CountActiveOwnedAll(ctx, ownerID)
	if err != nil {
		return errors.Wrap(err, "count owned groups")
	}
	if owned > 0 {
		return nil
	}
	return uc.RevokeScoped(ctx, ownerID, domain.RoleGroupOwner, groupID)
}

// CreateRoleInput is the catalog-mutation payload.
type CreateRoleInput struct {
	Name        string
	Description string
}

func (uc *RoleUsecase) CreateRole(ctx context.Context, input CreateRoleInput, requestorID string) (domain.Role, error) {
	ctx, span := tracer.Start(ctx, "Role.Usecase.CreateRole")
	defer span.End()

	isAdmin, err := uc.IsAdmin(ctx, requestorID)
	if err != nil {
		span.RecordError(err)
		return domain.Role{}, err
	}
	if !isAdmin {
		return domain.Role{}, domain.ForbiddenError{Reason: "only admins can create roles"}
	}

	name, ok := domain.ParseRoleName(input.Name)
	if !ok {
		return domain.Role{}, domain.BadRequestError{Reason: "unknown role name: " + input.Name}
	}

	role, err := uc.repo.Create(ctx, domain.Role{
		Name:        name,
		Description: input.Description,
	})
	if err != nil {
		span.RecordError(errors.Wrap(err, "create role"))
		return domain.Role{}, err
	}
	return role, nil
}

func (uc *RoleUsecase) UpdateRole(ctx context.Context, roleID string, description string, requestorID string) (domain.Role, error) {
	ctx, span := tracer.Start(ctx, "Role.Usecase.UpdateRole")
	defer span.End()

	isAdmin, err := uc.IsAdmin(ctx, requestorID)
	if err != nil {
		span.RecordError(err)
		return domain.Role{}, err
	}
	if !isAdmin {
		return domain.Role{}, domain.ForbiddenError{Reason: "only admins can update roles"}
	}

	return uc.repo.Update(ctx, roleID, description)
}

func (uc *RoleUsecase) DeleteRole(ctx context.Context, roleID string, requestorID string) error {
	ctx, span := tracer.Start(ctx, "Role.Usecase.DeleteRole")
	defer span.End()

	isAdmin, err := uc.IsAdmin(ctx, requestorID)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if !isAdmin {
		return domain.ForbiddenError{Reason: "only admins can delete roles"}
	}

	return uc.repo.Delete(ctx, roleID)
}

func (uc *RoleUsecase) GetRole(ctx context.Context, roleID string) (domain.Role, error) {
	return uc.repo.GetByID(ctx, roleID)
}
