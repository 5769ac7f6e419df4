package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yumeworks/agora/internal/domain"
	"github.com/yumeworks/agora/internal/infra/database"
)

const roleCacheTTL = 30 * time.Second

// CachedRoleRepository puts a redis cache in front of role-assignment
// reads. Every mutation path drops the affected keys after the write
// lands — deferred past commit inside a transaction, so a concurrent
// read can never re-cache the pre-mutation set. The short TTL is a
// backstop; per-group scoped queries bypass the cache so invalidation
// stays per-user.
type CachedRoleRepository struct {
	*RoleRepository
	rdb *redis.Client
}

func NewCachedRoleRepository(inner *RoleRepository, rdb *redis.Client) *CachedRoleRepository {
	return &CachedRoleRepository{
		RoleRepository: inner,
		rdb:            rdb,
	}
}

func globalKey(userID string) string { return "agora:roles:global:" + userID }
func scopedKey(userID string) string { return "agora:roles:scoped:" + userID }

func (r *CachedRoleRepository) GlobalRolesOf(ctx context.Context, userID string) ([]domain.RoleName, error) {
	if names, ok := r.cached(ctx, globalKey(userID)); ok {
		return names, nil
	}

	names, err := r.RoleRepository.GlobalRolesOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	r.store(ctx, globalKey(userID), names)
	return names, nil
}

func (r *CachedRoleRepository) ScopedRolesOf(ctx context.Context, userID string, groupID string) ([]domain.RoleName, error) {
	if groupID != "" {
		return r.RoleRepository.ScopedRolesOf(ctx, userID, groupID)
	}

	if names, ok := r.cached(ctx, scopedKey(userID)); ok {
		return names, nil
	}

	names, err := r.RoleRepository.ScopedRolesOf(ctx, userID, groupID)
	if err != nil {
		return nil, err
	}
	r.store(ctx, scopedKey(userID), names)
	return names, nil
}

func (r *CachedRoleRepository) AssignGlobal(ctx context.Context, userID string, roleID string) error {
	if err := r.RoleRepository.AssignGlobal(ctx, userID, roleID); err != nil {
		return err
	}
	r.invalidate(ctx, globalKey(userID))
	return nil
}

func (r *CachedRoleRepository) AssignScoped(ctx context.Context, userID string, roleID string, groupID string) error {
	if err := r.RoleRepository.AssignScoped(ctx, userID, roleID, groupID); err != nil {
		return err
	}
	r.invalidate(ctx, scopedKey(userID))
	return nil
}

func (r *CachedRoleRepository) RevokeGlobal(ctx context.Context, userID string, roleID string) error {
	if err := r.RoleRepository.RevokeGlobal(ctx, userID, roleID); err != nil {
		return err
	}
	r.invalidate(ctx, globalKey(userID))
	return nil
}

func (r *CachedRoleRepository) RevokeScoped(ctx context.Context, userID string, roleID string, groupID string) error {
	if err := r.RoleRepository.RevokeScoped(ctx, userID, roleID, groupID); err != nil {
		return err
	}
	r.invalidate(ctx, scopedKey(userID))
	return nil
}

func (r *CachedRoleRepository) ClearGlobal(ctx context.Context, userID string) error {
	if err := r.RoleRepository.ClearGlobal(ctx, userID); err != nil {
		return err
	}
	r.invalidate(ctx, globalKey(userID))
	return nil
}

func (r *CachedRoleRepository) cached(ctx context.Context, key string) ([]domain.RoleName, bool) {
	payload, err := r.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var names []domain.RoleName
	if err := json.Unmarshal(payload, &names); err != nil {
		return nil, false
	}
	return names, true
}

func (r *CachedRoleRepository) store(ctx context.Context, key string, names []domain.RoleName) {
	payload, err := json.Marshal(names)
	if err != nil {
		return
	}
	r.rdb.Set(ctx, key, payload, roleCacheTTL)
}

// invalidate drops a cache key once the write is visible to other
// readers: immediately outside a transaction, after commit inside one.
func (r *CachedRoleRepository) invalidate(ctx context.Context, key string) {
	database.AfterCommit(ctx, func() {
		r.rdb.Del(context.Background(), key)
	})
}
