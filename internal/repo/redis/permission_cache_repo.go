package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Nikhil-ig/group-assistant-v3-sub000/internal/domain/model"
)

const permissionTTL = 30 * time.Minute

// PermissionCacheRepo is the shared cache tier for permission snapshots.
// Keys follow the {entity}:{group}[:{user}] namespacing so a whole group's
// entries can be invalidated by prefix.
type PermissionCacheRepo struct {
	client *goredis.Client
}

func NewPermissionCacheRepo(client *goredis.Client) *PermissionCacheRepo {
	return &PermissionCacheRepo{client: client}
}

func (r *PermissionCacheRepo) Get(ctx context.Context, groupID, userID int64) (model.PermissionState, bool, error) {
	if r.client == nil {
		return model.PermissionState{}, false, fmt.Errorf("redis client is nil")
	}
	if groupID == 0 || userID <= 0 {
		return model.PermissionState{}, false, fmt.Errorf("invalid permission cache lookup")
	}

	raw, err := r.client.Get(ctx, permissionKey(groupID, userID)).Bytes()
	if err == goredis.Nil {
		return model.PermissionState{}, false, nil
	}
	if err != nil {
		return model.PermissionState{}, false, fmt.Errorf("get cached permission state: %w", err)
	}

	var state model.PermissionState
	if err := json.Unmarshal(raw, &state); err != nil {
		return model.PermissionState{}, false, fmt.Errorf("unmarshal cached permission state: %w", err)
	}

	return state, true, nil
}

func (r *PermissionCacheRepo) Set(ctx context.Context, state model.PermissionState) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if state.GroupID == 0 || state.UserID <= 0 {
		return fmt.Errorf("invalid permission cache payload")
	}

	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal permission state: %w", err)
	}

	if err := r.client.Set(ctx, permissionKey(state.GroupID, state.UserID), raw, permissionTTL).Err(); err != nil {
		return fmt.Errorf("set cached permission state: %w", err)
	}

	return nil
}

func (r *PermissionCacheRepo) Delete(ctx context.Context, groupID, userID int64) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if groupID == 0 || userID <= 0 {
		return fmt.Errorf("invalid permission cache lookup")
	}

	if err := r.client.Del(ctx, permissionKey(groupID, userID)).Err(); err != nil {
		return fmt.Errorf("delete cached permission state: %w", err)
	}

	return nil
}

// InvalidateGroup drops every cached permission snapshot under one group,
// used after bulk updates such as lockdown.
func (r *PermissionCacheRepo) InvalidateGroup(ctx context.Context, groupID int64) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if groupID == 0 {
		return fmt.Errorf("invalid group id")
	}

	pattern := groupPrefix(groupID) + "*"
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return fmt.Errorf("scan permission cache keys: %w", err)
		}
		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("delete permission cache keys: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

func permissionKey(groupID, userID int64) string {
	return groupPrefix(groupID) + strconv.FormatInt(userID, 10)
}

func groupPrefix(groupID int64) string {
	return "perm:" + strconv.FormatInt(groupID, 10) + ":"
}
