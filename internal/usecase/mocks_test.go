package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yumeworks/agora/internal/domain"
)

// --- shared in-memory mocks ---

// mockTx mimics all-or-nothing semantics: when snapshot is wired it
// captures repository state on enter and restores it when the closure
// fails.
type mockTx struct {
	calls    int
	snapshot func() func()
}

func (m *mockTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	var restore func()
	if m.snapshot != nil {
		restore = m.snapshot()
	}
	if err := fn(ctx); err != nil {
		if restore != nil {
			restore()
		}
		return err
	}
	return nil
}

// transactionalTx snapshots every repo a fixture owns.
func transactionalTx(snapshots ...func() func()) *mockTx {
	tx := &mockTx{}
	tx.snapshot = func() func() {
		restores := make([]func(), 0, len(snapshots))
		for _, s := range snapshots {
			restores = append(restores, s())
		}
		return func() {
			for _, r := range restores {
				r()
			}
		}
	}
	return tx
}

type mockVerifier struct {
	recovered  string
	recoverErr error
	lastSigned string
}

func (m *mockVerifier) NormalizeAddress(address string) (string, error) {
	if !strings.HasPrefix(address, "0x") {
		return "", fmt.Errorf("invalid address: %s", address)
	}
	return strings.ToLower(address), nil
}

func (m *mockVerifier) RecoverAddress(message string, signature string) (string, error) {
	m.lastSigned = message
	return m.recovered, m.recoverErr
}

type mockTokens struct{}

func (m *mockTokens) Issue(userID string, walletAddress string) (string, error) {
	return "token-" + userID, nil
}

type mockPublisher struct {
	events []domain.GroupEvent
}

func (m *mockPublisher) Publish(ctx context.Context, channel string, event domain.GroupEvent) error {
	m.events = append(m.events, event)
	return nil
}

func (m *mockPublisher) last() domain.GroupEvent {
	if len(m.events) == 0 {
		return domain.GroupEvent{}
	}
	return m.events[len(m.events)-1]
}

type mockUserRepo struct {
	seq   int
	users map[string]*domain.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: map[string]*domain.User{}}
}

func (m *mockUserRepo) Create(ctx context.Context, user domain.User) (domain.User, error) {
	m.seq++
	user.ID = fmt.Sprintf("user-%d", m.seq)
	for i := range user.Wallets {
		user.Wallets[i].ID = fmt.Sprintf("wallet-%d-%d", m.seq, i)
		user.Wallets[i].UserID = user.ID
	}
	m.users[user.ID] = &user
	return user, nil
}

func (m *mockUserRepo) Get(ctx context.Context, id string) (domain.User, error) {
	user, ok := m.users[id]
	if !ok {
		return domain.User{}, domain.NotFoundError{Resource: "user"}
	}
	return *user, nil
}

func (m *mockUserRepo) GetByWalletAddress(ctx context.Context, address string) (domain.User, error) {
	for _, user := range m.users {
		if !user.Active() {
			continue
		}
		for _, w := range user.Wallets {
			if strings.EqualFold(w.Address, address) {
				return *user, nil
			}
		}
	}
	return domain.User{}, domain.NotFoundError{Resource: "user"}
}

func (m *mockUserRepo) ListActive(ctx context.Context) ([]domain.User, error) {
	var out []domain.User
	for _, user := range m.users {
		if user.Active() {
			out = append(out, *user)
		}
	}
	return out, nil
}

func (m *mockUserRepo) Update(ctx context.Context, id string, changes domain.UserChanges) (domain.User, error) {
	user, ok := m.users[id]
	if !ok || !user.Active() {
		return domain.User{}, domain.NotFoundError{Resource: "user"}
	}
	if changes.DisplayName != nil {
		user.DisplayName = *changes.DisplayName
	}
	if changes.Email != nil {
		user.Email = changes.Email
	}
	return *user, nil
}

func (m *mockUserRepo) SoftDelete(ctx context.Context, id string, at time.Time) error {
	user, ok := m.users[id]
	if !ok || !user.Active() {
		return domain.NotFoundError{Resource: "user"}
	}
	user.DeletedAt = &at
	for i := range user.Wallets {
		user.Wallets[i].DeletedAt = &at
	}
	return nil
}

func (m *mockUserRepo) GetWallet(ctx context.Context, address string) (domain.Wallet, error) {
	for _, user := range m.users {
		for _, w := range user.Wallets {
			if strings.EqualFold(w.Address, address) && w.DeletedAt == nil {
				return w, nil
			}
		}
	}
	return domain.Wallet{}, domain.NotFoundError{Resource: "wallet"}
}

func (m *mockUserRepo) UpsertWallet(ctx context.Context, userID string, address string) (domain.Wallet, error) {
	for _, user := range m.users {
		for i, w := range user.Wallets {
			if strings.EqualFold(w.Address, address) {
				user.Wallets[i].UserID = userID
				return user.Wallets[i], nil
			}
		}
	}
	user, ok := m.users[userID]
	if !ok {
		return domain.Wallet{}, domain.NotFoundError{Resource: "user"}
	}
	m.seq++
	wallet := domain.Wallet{
		ID:      fmt.Sprintf("wallet-%d", m.seq),
		UserID:  userID,
		Address: address,
	}
	user.Wallets = append(user.Wallets, wallet)
	return wallet, nil
}

func (m *mockUserRepo) SetWalletNonce(ctx context.Context, walletID string, nonce string) error {
	for _, user := range m.users {
		for i, w := range user.Wallets {
			if w.ID == walletID {
				user.Wallets[i].Nonce = nonce
				return nil
			}
		}
	}
	return domain.NotFoundError{Resource: "wallet"}
}

func (m *mockUserRepo) state() func() {
	saved := make(map[string]*domain.User, len(m.users))
	for id, user := range m.users {
		cp := *user
		cp.Wallets = append([]domain.Wallet(nil), user.Wallets...)
		saved[id] = &cp
	}
	seq := m.seq
	return func() {
		m.users = saved
		m.seq = seq
	}
}

func (m *mockUserRepo) walletOf(userID string) domain.Wallet {
	user, ok := m.users[userID]
	if !ok || len(user.Wallets) == 0 {
		return domain.Wallet{}
	}
	return user.Wallets[0]
}

type roleGrant struct {
	userID  string
	roleID  string
	groupID string
}

type mockRoleRepo struct {
	seq          int
	roles        map[string]domain.Role
	global       []roleGrant
	scoped       []roleGrant
	assignGlobal error
}

// newMockRoleRepo seeds the catalog with the built-in role names.
func newMockRoleRepo() *mockRoleRepo {
	m := &mockRoleRepo{roles: map[string]domain.Role{}}
	for _, name := range []domain.RoleName{domain.RoleAdmin, domain.RoleUser, domain.RoleGroupOwner, domain.RoleGroupMember} {
		id := "role-" + strings.ToLower(string(name))
		m.roles[id] = domain.Role{ID: id, Name: name}
	}
	return m
}

func (m *mockRoleRepo) Create(ctx context.Context, role domain.Role) (domain.Role, error) {
	m.seq++
	role.ID = fmt.Sprintf("role-new-%d", m.seq)
	m.roles[role.ID] = role
	return role, nil
}

func (m *mockRoleRepo) GetByID(ctx context.Context, id string) (domain.Role, error) {
	role, ok := m.roles[id]
	if !ok {
		return domain.Role{}, domain.NotFoundError{Resource: "role"}
	}
	return role, nil
}

func (m *mockRoleRepo) GetByName(ctx context.Context, name domain.RoleName) (domain.Role, error) {
	for _, role := range m.roles {
		if role.Name == name {
			return role, nil
		}
	}
	return domain.Role{}, domain.NotFoundError{Resource: "role"}
}

func (m *mockRoleRepo) Update(ctx context.Context, id string, description string) (domain.Role, error) {
	role, ok := m.roles[id]
	if !ok {
		return domain.Role{}, domain.NotFoundError{Resource: "role"}
	}
	role.Description = description
	m.roles[id] = role
	return role, nil
}

func (m *mockRoleRepo) Delete(ctx context.Context, id string) error {
	delete(m.roles, id)
	return nil
}

func (m *mockRoleRepo) AssignGlobal(ctx context.Context, userID string, roleID string) error {
	if m.assignGlobal != nil {
		return m.assignGlobal
	}
	for _, g := range m.global {
		if g.userID == userID && g.roleID == roleID {
			return nil
		}
	}
	m.global = append(m.global, roleGrant{userID: userID, roleID: roleID})
	return nil
}

func (m *mockRoleRepo) AssignScoped(ctx context.Context, userID string, roleID string, groupID string) error {
	for _, g := range m.scoped {
		if g.userID == userID && g.roleID == roleID && g.groupID == groupID {
			return nil
		}
	}
	m.scoped = append(m.scoped, roleGrant{userID: userID, roleID: roleID, groupID: groupID})
	return nil
}

func (m *mockRoleRepo) RevokeGlobal(ctx context.Context, userID string, roleID string) error {
	out := m.global[:0]
	for _, g := range m.global {
		if g.userID == userID && g.roleID == roleID {
			continue
		}
		out = append(out, g)
	}
	m.global = out
	return nil
}

func (m *mockRoleRepo) RevokeScoped(ctx context.Context, userID string, roleID string, groupID string) error {
	out := m.scoped[:0]
	for _, g := range m.scoped {
		if g.userID == userID && g.roleID == roleID && g.groupID == groupID {
			continue
		}
		out = append(out, g)
	}
	m.scoped = out
	return nil
}

func (m *mockRoleRepo) ClearGlobal(ctx context.Context, userID string) error {
	out := m.global[:0]
	for _, g := range m.global {
		if g.userID == userID {
			continue
		}
		out = append(out, g)
	}
	m.global = out
	return nil
}

func (m *mockRoleRepo) GlobalRolesOf(ctx context.Context, userID string) ([]domain.RoleName, error) {
	var out []domain.RoleName
	for _, g := range m.global {
		if g.userID == userID {
			out = append(out, m.roles[g.roleID].Name)
		}
	}
	return out, nil
}

func (m *mockRoleRepo) ScopedRolesOf(ctx context.Context, userID string, groupID string) ([]domain.RoleName, error) {
	var out []domain.RoleName
	for _, g := range m.scoped {
		if g.userID != userID {
			continue
		}
		if groupID != "" && g.groupID != groupID {
			continue
		}
		out = append(out, m.roles[g.roleID].Name)
	}
	return out, nil
}

func (m *mockRoleRepo) state() func() {
	roles := make(map[string]domain.Role, len(m.roles))
	for id, role := range m.roles {
		roles[id] = role
	}
	global := append([]roleGrant(nil), m.global...)
	scoped := append([]roleGrant(nil), m.scoped...)
	seq := m.seq
	return func() {
		m.roles = roles
		m.global = global
		m.scoped = scoped
		m.seq = seq
	}
}

func (m *mockRoleRepo) grantGlobal(userID string, name domain.RoleName) {
	role, _ := m.GetByName(context.Background(), name)
	_ = m.AssignGlobal(context.Background(), userID, role.ID)
}

func (m *mockRoleRepo) hasScoped(userID string, name domain.RoleName, groupID string) bool {
	names, _ := m.ScopedRolesOf(context.Background(), userID, groupID)
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

type mockGroupRepo struct {
	seq     int
	groups  map[string]*domain.Group
	members map[string]map[string]bool
}

func newMockGroupRepo() *mockGroupRepo {
	return &mockGroupRepo{
		groups:  map[string]*domain.Group{},
		members: map[string]map[string]bool{},
	}
}

func (m *mockGroupRepo) Create(ctx context.Context, group domain.Group) (domain.Group, error) {
	m.seq++
	group.ID = fmt.Sprintf("group-%d", m.seq)
	m.groups[group.ID] = &group
	m.members[group.ID] = map[string]bool{}
	return group, nil
}

func (m *mockGroupRepo) Get(ctx context.Context, id string) (domain.Group, error) {
	group, ok := m.groups[id]
	if !ok {
		return domain.Group{}, domain.NotFoundError{Resource: "group"}
	}
	return *group, nil
}

func (m *mockGroupRepo) GetActive(ctx context.Context, id string) (domain.Group, error) {
	group, ok := m.groups[id]
	if !ok || !group.Active() {
		return domain.Group{}, domain.NotFoundError{Resource: "group"}
	}
	return *group, nil
}

func (m *mockGroupRepo) List(ctx context.Context, isPublic *bool) ([]domain.Group, error) {
	var out []domain.Group
	for _, group := range m.groups {
		if !group.Active() {
			continue
		}
		if isPublic != nil && group.IsPublic != *isPublic {
			continue
		}
		out = append(out, *group)
	}
	return out, nil
}

func (m *mockGroupRepo) CountActiveOwned(ctx context.Context, ownerID string, isPublic bool) (int64, error) {
	var count int64
	for _, group := range m.groups {
		if group.Active() && group.OwnerID == ownerID && group.IsPublic == isPublic {
			count++
		}
	}
	return count, nil
}

func (m *mockGroupRepo) CountActiveOwnedAll(ctx context.Context, ownerID string) (int64, error) {
	var count int64
	for _, group := range m.groups {
		if group.Active() && group.OwnerID == ownerID {
			count++
		}
	}
	return count, nil
}

func (m *mockGroupRepo) Update(ctx context.Context, id string, changes domain.GroupChanges) (domain.Group, error) {
	group, ok := m.groups[id]
	if !ok || !group.Active() {
		return domain.Group{}, domain.NotFoundError{Resource: "group"}
	}
	if changes.Name != nil {
		group.Name = *changes.Name
	}
	if changes.Description != nil {
		group.Description = *changes.Description
	}
	if changes.ImageURL != nil {
		group.ImageURL = *changes.ImageURL
	}
	return *group, nil
}

func (m *mockGroupRepo) AddMember(ctx context.Context, groupID string, userID string) error {
	if m.members[groupID] == nil {
		m.members[groupID] = map[string]bool{}
	}
	m.members[groupID][userID] = true
	return nil
}

func (m *mockGroupRepo) RemoveMember(ctx context.Context, groupID string, userID string) error {
	delete(m.members[groupID], userID)
	return nil
}

func (m *mockGroupRepo) IsMember(ctx context.Context, groupID string, userID string) (bool, error) {
	return m.members[groupID][userID], nil
}

func (m *mockGroupRepo) CountOtherMemberships(ctx context.Context, userID string, excludeGroupID string) (int64, error) {
	var count int64
	for groupID, set := range m.members {
		if groupID == excludeGroupID {
			continue
		}
		group, ok := m.groups[groupID]
		if !ok || !group.Active() {
			continue
		}
		if set[userID] {
			count++
		}
	}
	return count, nil
}

func (m *mockGroupRepo) RemoveMemberEverywhere(ctx context.Context, userID string) error {
	for _, set := range m.members {
		delete(set, userID)
	}
	return nil
}

func (m *mockGroupRepo) SoftDelete(ctx context.Context, id string, at time.Time) error {
	group, ok := m.groups[id]
	if !ok || !group.Active() {
		return domain.NotFoundError{Resource: "group"}
	}
	group.DeletedAt = &at
	return nil
}

func (m *mockGroupRepo) SoftDeleteOwned(ctx context.Context, ownerID string, at time.Time) error {
	for _, group := range m.groups {
		if group.Active() && group.OwnerID == ownerID {
			group.DeletedAt = &at
		}
	}
	return nil
}

func (m *mockGroupRepo) state() func() {
	groups := make(map[string]*domain.Group, len(m.groups))
	for id, group := range m.groups {
		cp := *group
		groups[id] = &cp
	}
	members := make(map[string]map[string]bool, len(m.members))
	for id, set := range m.members {
		cp := make(map[string]bool, len(set))
		for userID, ok := range set {
			cp[userID] = ok
		}
		members[id] = cp
	}
	seq := m.seq
	return func() {
		m.groups = groups
		m.members = members
		m.seq = seq
	}
}

type mockItemRepo struct {
	seq   int
	items map[string]*domain.Item
}

func newMockItemRepo() *mockItemRepo {
	return &mockItemRepo{items: map[string]*domain.Item{}}
}

func (m *mockItemRepo) Create(ctx context.Context, item domain.Item) (domain.Item, error) {
	m.seq++
	item.ID = fmt.Sprintf("item-%d", m.seq)
	m.items[item.ID] = &item
	return item, nil
}

func (m *mockItemRepo) GetActiveInGroup(ctx context.Context, itemID string, groupID string) (domain.Item, error) {
	item, ok := m.items[itemID]
	if !ok || item.DeletedAt != nil || item.GroupID == nil || *item.GroupID != groupID {
		return domain.Item{}, domain.NotFoundError{Resource: "item"}
	}
	return *item, nil
}

func (m *mockItemRepo) ListByGroup(ctx context.Context, groupID string) ([]domain.Item, error) {
	var out []domain.Item
	for _, item := range m.items {
		if item.DeletedAt == nil && item.GroupID != nil && *item.GroupID == groupID {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (m *mockItemRepo) CountBySellerInGroup(ctx context.Context, groupID string, sellerID string) (int64, error) {
	var count int64
	for _, item := range m.items {
		if item.DeletedAt == nil && item.SellerID == sellerID && item.GroupID != nil && *item.GroupID == groupID {
			count++
		}
	}
	return count, nil
}

func (m *mockItemRepo) Detach(ctx context.Context, itemID string) error {
	item, ok := m.items[itemID]
	if !ok {
		return domain.NotFoundError{Resource: "item"}
	}
	item.GroupID = nil
	return nil
}

func (m *mockItemRepo) DetachAllFromGroup(ctx context.Context, groupID string) error {
	for _, item := range m.items {
		if item.GroupID != nil && *item.GroupID == groupID {
			item.GroupID = nil
		}
	}
	return nil
}

func (m *mockItemRepo) SoftDelete(ctx context.Context, itemID string, at time.Time) error {
	item, ok := m.items[itemID]
	if !ok {
		return domain.NotFoundError{Resource: "item"}
	}
	item.DeletedAt = &at
	return nil
}

func (m *mockItemRepo) SoftDeleteBySeller(ctx context.Context, sellerID string, at time.Time) error {
	for _, item := range m.items {
		if item.DeletedAt == nil && item.SellerID == sellerID {
			item.DeletedAt = &at
		}
	}
	return nil
}

func (m *mockItemRepo) state() func() {
	items := make(map[string]*domain.Item, len(m.items))
	for id, item := range m.items {
		cp := *item
		if item.GroupID != nil {
			groupID := *item.GroupID
			cp.GroupID = &groupID
		}
		items[id] = &cp
	}
	seq := m.seq
	return func() {
		m.items = items
		m.seq = seq
	}
}

type mockMessageRepo struct {
	seq        int
	messages   []*domain.Message
	softDelete error
}

func newMockMessageRepo() *mockMessageRepo {
	return &mockMessageRepo{}
}

func (m *mockMessageRepo) Create(ctx context.Context, message domain.Message) (domain.Message, error) {
	m.seq++
	message.ID = fmt.Sprintf("message-%d", m.seq)
	message.CreatedAt = time.Now()
	m.messages = append(m.messages, &message)
	return message, nil
}

func (m *mockMessageRepo) ListConversation(ctx context.Context, userA string, userB string) ([]domain.Message, error) {
	var out []domain.Message
	for _, msg := range m.messages {
		if msg.DeletedAt != nil {
			continue
		}
		if (msg.FromID == userA && msg.ToID == userB) || (msg.FromID == userB && msg.ToID == userA) {
			out = append(out, *msg)
		}
	}
	return out, nil
}

func (m *mockMessageRepo) state() func() {
	saved := make([]*domain.Message, len(m.messages))
	for i, msg := range m.messages {
		cp := *msg
		saved[i] = &cp
	}
	seq := m.seq
	return func() {
		m.messages = saved
		m.seq = seq
	}
}

func (m *mockMessageRepo) SoftDeleteFrom(ctx context.Context, fromID string, at time.Time) error {
	if m.softDelete != nil {
		return m.softDelete
	}
	for _, msg := range m.messages {
		if msg.DeletedAt == nil && msg.FromID == fromID {
			msg.DeletedAt = &at
		}
	}
	return nil
}
