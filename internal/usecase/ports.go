package usecase

import (
	"context"
	"time"

	"github.com/yumeworks/agora/internal/domain"
)

// Transactor runs fn with every enclosed repository call inside one
// all-or-nothing transaction.
type Transactor interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// UserRepository defines persistence/lookup for users and their wallets.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) (domain.User, error)
	Get(ctx context.Context, id string) (domain.User, error)
	GetByWalletAddress(ctx context.Context, address string) (domain.User, error)
	ListActive(ctx context.Context) ([]domain.User, error)
	Update(ctx context.Context, id string, changes domain.UserChanges) (domain.User, error)
	SoftDelete(ctx context.Context, id string, at time.Time) error
	GetWallet(ctx context.Context, address string) (domain.Wallet, error)
	UpsertWallet(ctx context.Context, userID string, address string) (domain.Wallet, error)
	SetWalletNonce(ctx context.Context, walletID string, nonce string) error
}

// RoleRepository defines the role catalog and both assignment pivots.
type RoleRepository interface {
	Create(ctx context.Context, role domain.Role) (domain.Role, error)
	GetByID(ctx context.Context, id string) (domain.Role, error)
	GetByName(ctx context.Context, name domain.RoleName) (domain.Role, error)
	Update(ctx context.Context, id string, description string) (domain.Role, error)
	Delete(ctx context.Context, id string) error
	AssignGlobal(ctx context.Context, userID string, roleID string) error
	AssignScoped(ctx context.Context, userID string, roleID string, groupID string) error
	RevokeGlobal(ctx context.Context, userID string, roleID string) error
	RevokeScoped(ctx context.Context, userID string, roleID string, groupID string) error
	ClearGlobal(ctx context.Context, userID string) error
	GlobalRolesOf(ctx context.Context, userID string) ([]domain.RoleName, error)
	ScopedRolesOf(ctx context.Context, userID string, groupID string) ([]domain.RoleName, error)
}

// GroupRepository defines persistence/lookup for groups and their
// membership edges.
type GroupRepository interface {
	Create(ctx context.Context, group domain.Group) (domain.Group, error)
	Get(ctx context.Context, id string) (domain.Group, error)
	GetActive(ctx context.Context, id string) (domain.Group, error)
	List(ctx context.Context, isPublic *bool) ([]domain.Group, error)
	CountActiveOwned(ctx context.Context, ownerID string, isPublic bool) (int64, error)
	CountActiveOwnedAll(ctx context.Context, ownerID string) (int64, error)
	Update(ctx context.Context, id string, changes domain.GroupChanges) (domain.Group, error)
	AddMember(ctx context.Context, groupID string, userID string) error
	RemoveMember(ctx context.Context, groupID string, userID string) error
	IsMember(ctx context.Context, groupID string, userID string) (bool, error)
	CountOtherMemberships(ctx context.Context, userID string, excludeGroupID string) (int64, error)
	RemoveMemberEverywhere(ctx context.Context, userID string) error
	SoftDelete(ctx context.Context, id string, at time.Time) error
	SoftDeleteOwned(ctx context.Context, ownerID string, at time.Time) error
}

// ItemRepository defines persistence/lookup for items.
type ItemRepository interface {
	Create(ctx context.Context, item domain.Item) (domain.Item, error)
	GetActiveInGroup(ctx context.Context, itemID string, groupID string) (domain.Item, error)
	ListByGroup(ctx context.Context, groupID string) ([]domain.Item, error)
	CountBySellerInGroup(ctx context.Context, groupID string, sellerID string) (int64, error)
	Detach(ctx context.Context, itemID string) error
	DetachAllFromGroup(ctx context.Context, groupID string) error
	SoftDelete(ctx context.Context, itemID string, at time.Time) error
	SoftDeleteBySeller(ctx context.Context, sellerID string, at time.Time) error
}

// MessageRepository defines persistence for direct messages.
type MessageRepository interface {
	Create(ctx context.Context, message domain.Message) (domain.Message, error)
	ListConversation(ctx context.Context, userA string, userB string) ([]domain.Message, error)
	SoftDeleteFrom(ctx context.Context, fromID string, at time.Time) error
}

// AddressVerifier normalizes wallet addresses and recovers the signer
// of a challenge message.
type AddressVerifier interface {
	NormalizeAddress(address string) (string, error)
	RecoverAddress(message string, signature string) (string, error)
}

// TokenIssuer turns an authenticated identity into an opaque,
// time-limited session token.
type TokenIssuer interface {
	Issue(userID string, walletAddress string) (string, error)
}

// EventPublisher fans domain events out to the realtime feed.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, event domain.GroupEvent) error
}
