package usecase

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/yumeworks/agora/internal/domain"
)

// QuotaPolicy caps how many items a contributor may attach to a group,
// by their standing in it.
type QuotaPolicy struct {
	OwnerItems  int
	MemberItems int
}

// GroupUsecase owns the group lifecycle: creation, membership, item
// attachment and soft-deletion. Every privileged mutation consults the
// role authority, and membership/ownership changes feed role state
// back into it.
type GroupUsecase struct {
	groups GroupRepository
	items  ItemRepository
	roles  *RoleUsecase
	tx     Transactor
	signal EventPublisher
	quotas QuotaPolicy
}

func NewGroupUsecase(
	groups GroupRepository,
	items ItemRepository,
	roles *RoleUsecase,
	tx Transactor,
	signal EventPublisher,
	quotas QuotaPolicy,
) *GroupUsecase {
	return &GroupUsecase{
		groups: groups,
		items:  items,
		roles:  roles,
		tx:     tx,
		signal: signal,
		quotas: quotas,
	}
}

// CreateGroupInput is the creation payload. Visibility is fixed at
// creation time.
type CreateGroupInput struct {
	Name        string
	Description string
	ImageURL    string
	IsPublic    bool
}

// Create enforces the one-public-one-private rule per owner and grants
// the scoped GROUP_OWNER role. Check and insert run in one transaction
// with the owner's group rows locked, so two concurrent creates cannot
// both pass the count.
func (uc *GroupUsecase) Create(ctx context.Context, input CreateGroupInput, ownerID string) (domain.Group, error) {
	ctx, span := tracer.Start(ctx, "Group.Usecase.Create")
	defer span.End()

	var group domain.Group
	err := uc.tx.RunInTx(ctx, func(ctx context.Context) error {
		owned, err := uc.groups.CountActiveOwned(ctx, ownerID, input.IsPublic)
		if err != nil {
			return errors.Wrap(err, "count owned groups")
		}
		if owned >= 1 {
			visibility := "private"
			if input.IsPublic {
				visibility = "public"
			}
			return domain.QuotaError{Quota: "one " + visibility + " group per owner"}
		}

		group, err = uc.groups.Create(ctx, domain.Group{
			Name:        input.Name,
			Description: input.Description,
			ImageURL:    input.ImageURL,
			IsPublic:    input.IsPublic,
			OwnerID:     ownerID,
		})
		if err != nil {
			return errors.Wrap(err, "create group")
		}

		return uc.roles.AssignScoped(ctx, ownerID, domain.RoleGroupOwner, group.ID)
	})
	if err != nil {
		span.RecordError(err)
		return domain.Group{}, err
	}

	uc.publish(ctx, "group.created", group.ID, ownerID)
	return group, nil
}

// AddMember joins a user to a public group and grants the scoped
// GROUP_MEMBER role. Joining twice is harmless.
func (uc *GroupUsecase) AddMember(ctx context.Context, userID string, groupID string) error {
	ctx, span := tracer.Start(ctx, "Group.Usecase.AddMember")
	defer span.End()

	group, err := uc.groups.GetActive(ctx, groupID)
	if err != nil {
		return err
	}
	if !group.IsPublic {
		return domain.NotFoundError{Resource: "group"}
	}

	if err := uc.groups.AddMember(ctx, groupID, userID); err != nil {
		span.RecordError(errors.Wrap(err, "add member"))
		return err
	}

	if err := uc.roles.AssignScoped(ctx, userID, domain.RoleGroupMember, groupID); err != nil {
		span.RecordError(errors.Wrap(err, "assign member role"))
		return err
	}

	uc.publish(ctx, "group.member.joined", groupID, userID)
	return nil
}

// LeaveAsMember removes the caller's own membership. The scoped
// GROUP_MEMBER role is revoked only when no other live membership
// remains.
func (uc *GroupUsecase) LeaveAsMember(ctx context.Context, groupID string, userID string) error {
	ctx, span := tracer.Start(ctx, "Group.Usecase.LeaveAsMember")
	defer span.End()

	if _, err := uc.groups.GetActive(ctx, groupID); err != nil {
		return err
	}

	member, err := uc.groups.IsMember(ctx, groupID, userID)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if !member {
		return domain.BadRequestError{Reason: "user is not a member of this group"}
	}

	if err := uc.removeMembership(ctx, groupID, userID); err != nil {
		span.RecordError(err)
		return err
	}

	uc.publish(ctx, "group.member.left", groupID, userID)
	return nil
}

// RemoveMember is the owner/admin-initiated variant of LeaveAsMember;
// it does not require the member's consent. The same role-cleanup rule
// applies. Authorization sits at the controller boundary.
func (uc *GroupUsecase) RemoveMember(ctx context.Context, groupID string, memberID string) error {
	ctx, span := tracer.Start(ctx, "Group.Usecase.RemoveMember")
	defer span.End()

	if err := uc.removeMembership(ctx, groupID, memberID); err != nil {
		span.RecordError(err)
		return err
	}

	uc.publish(ctx, "group.member.removed", groupID, memberID)
	return nil
}

func (uc *GroupUsecase) removeMembership(ctx context.Context, groupID string, userID string) error {
	if err := uc.groups.RemoveMember(ctx, groupID, userID); err != nil {
		return errors.Wrap(err, "remove member")
	}

	remaining, err := uc.groups.CountOtherMemberships(ctx, userID, groupID)
	if err != nil {
		return errors.Wrap(err, "count memberships")
	}
	if remaining == 0 {
		return uc.roles.RevokeScoped(ctx, userID, domain.RoleGroupMember, groupID)
	}
	return nil
}

// CreateItemInput carries an item listing; the price arrives as a
// decimal string from the client.
type CreateItemInput struct {
	Title       string
	Description string
	Price       string
	Currency    string
}

// AddItem attaches a new item to a public group, enforcing the
// contributor's per-role quota.
func (uc *GroupUsecase) AddItem(ctx context.Context, userID string, groupID string, input CreateItemInput) (domain.Item, error) {
	ctx, span := tracer.Start(ctx, "Group.Usecase.AddItem")
	defer span.End()

	group, err := uc.groups.GetActive(ctx, groupID)
	if err != nil {
		return domain.Item{}, err
	}
	if !group.IsPublic {
		return domain.Item{}, domain.NotFoundError{Resource: "group"}
	}

	isOwner := group.OwnerID == userID
	if !isOwner {
		member, err := uc.groups.IsMember(ctx, groupID, userID)
		if err != nil {
			span.RecordError(err)
			return domain.Item{}, err
		}
		if !member {
			return domain.Item{}, domain.UnauthorizedError{Action: "add items to this group"}
		}
	}

	limit := uc.quotas.MemberItems
	if isOwner {
		limit = uc.quotas.OwnerItems
	}
	count, err := uc.items.CountBySellerInGroup(ctx, groupID, userID)
	if err != nil {
		span.RecordError(err)
		return domain.Item{}, err
	}
	if count >= int64(limit) {
		return domain.Item{}, domain.BadRequestError{Reason: "item limit reached for the user in this group"}
	}

	price, err := strconv.ParseFloat(input.Price, 64)
	if err != nil || math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
		return domain.Item{}, domain.BadRequestError{Reason: "invalid price: " + input.Price}
	}

	item, err := uc.items.Create(ctx, domain.Item{
		Title:       input.Title,
		Description: input.Description,
		Price:       price,
		Currency:    input.Currency,
		SellerID:    userID,
		GroupID:     &groupID,
	})
	if err != nil {
		span.RecordError(errors.Wrap(err, "create item"))
		return domain.Item{}, err
	}
	return item, nil
}

// RemoveItem detaches an item from the group without deleting it. Only
// the group owner or an admin may do this.
func (uc *GroupUsecase) RemoveItem(ctx context.Context, itemID string, groupID string, userID string) error {
	ctx, span := tracer.Start(ctx, "Group.Usecase.RemoveItem")
	defer span.End()

	group, err := uc.groups.GetActive(ctx, groupID)
	if err != nil {
		return err
	}

	if group.OwnerID != userID {
		isAdmin, err := uc.roles.IsAdmin(ctx, userID)
		if err != nil {
			span.RecordError(err)
			return err
		}
		if !isAdmin {
			return domain.UnauthorizedError{Action: "remove items from this group"}
		}
	}

	return uc.items.Detach(ctx, itemID)
}

// SoftDeleteItemFromGroup stamps the item's own deletion timestamp,
// distinct from mere detachment.
func (uc *GroupUsecase) SoftDeleteItemFromGroup(ctx context.Context, itemID string, groupID string) error {
	item, err := uc.items.GetActiveInGroup(ctx, itemID, groupID)
	if err != nil {
		return err
	}
	return uc.items.SoftDelete(ctx, item.ID, time.Now())
}

// Update applies owner-editable fields; visibility and ownership never
// change after creation.
func (uc *GroupUsecase) Update(ctx context.Context, groupID string, userID string, changes domain.GroupChanges) (domain.Group, error) {
	group, err := uc.groups.Get(ctx, groupID)
	if err != nil {
		return domain.Group{}, err
	}
	if group.OwnerID != userID {
		return domain.Group{}, domain.UnauthorizedError{Action: "update this group"}
	}

	return uc.groups.Update(ctx, groupID, changes)
}

// DeleteByOwner soft-deletes the group, detaches its items and
// reconciles the owner's GROUP_OWNER standing, all in one transaction.
func (uc *GroupUsecase) DeleteByOwner(ctx context.Context, groupID string, userID string) error {
	ctx, span := tracer.Start(ctx, "Group.Usecase.DeleteByOwner")
	defer span.End()

	group, err := uc.groups.Get(ctx, groupID)
	if err != nil {
		return err
	}
	if group.OwnerID != userID {
		return domain.UnauthorizedError{Action: "delete this group"}
	}

	err = uc.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := uc.groups.SoftDelete(ctx, groupID, time.Now()); err != nil {
			return err
		}
		if err := uc.items.DetachAllFromGroup(ctx, groupID); err != nil {
			return errors.Wrap(err, "detach items")
		}
		return uc.roles.ReconcileOwnerRole(ctx, userID, groupID)
	})
	if err != nil {
		span.RecordError(err)
		return err
	}

	uc.publish(ctx, "group.deleted", groupID, userID)
	return nil
}

// RemoveUserFromAllGroupMemberships bulk-disconnects the user from
// every member set. Role cleanup stays with the caller.
func (uc *GroupUsecase) RemoveUserFromAllGroupMemberships(ctx context.Context, userID string) error {
	return uc.groups.RemoveMemberEverywhere(ctx, userID)
}

// MarkOwnedGroupsDeleted bulk soft-deletes every group the user owns.
// Items attached to those groups are left untouched.
func (uc *GroupUsecase) MarkOwnedGroupsDeleted(ctx context.Context, ownerID string) error {
	return uc.groups.SoftDeleteOwned(ctx, ownerID, time.Now())
}

// ListGroups returns active groups; pass a visibility to filter.
func (uc *GroupUsecase) ListGroups(ctx context.Context, isPublic *bool) ([]domain.Group, error) {
	return uc.groups.List(ctx, isPublic)
}

// ItemsOfGroup lists the live items attached to an active group.
func (uc *GroupUsecase) ItemsOfGroup(ctx context.Context, groupID string) ([]domain.Item, error) {
	if _, err := uc.groups.GetActive(ctx, groupID); err != nil {
		return nil, err
	}
	return uc.items.ListByGroup(ctx, groupID)
}

func (uc *GroupUsecase) Get(ctx context.Context, groupID string) (domain.Group, error) {
	return uc.groups.GetActive(ctx, groupID)
}

// publish is best-effort: a realtime hiccup never fails a committed
// mutation.
func (uc *GroupUsecase) publish(ctx context.Context, eventType string, groupID string, userID string) {
	if uc.signal == nil {
		return
	}
	_ = uc.signal.Publish(ctx, domain.SignalGroupEvents, domain.GroupEvent{
		Type:    eventType,
		GroupID: groupID,
		UserID:  userID,
		At:      time.Now(),
	})
}
