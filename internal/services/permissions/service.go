package permissions

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Nikhil-ig/group-assistant-v3-sub000/internal/domain/model"
	pgrepo "github.com/Nikhil-ig/group-assistant-v3-sub000/internal/repo/postgres"
)

// SharedCache is the cross-process cache tier.
type SharedCache interface {
	Get(ctx context.Context, groupID, userID int64) (model.PermissionState, bool, error)
	Set(ctx context.Context, state model.PermissionState) error
	Delete(ctx context.Context, groupID, userID int64) error
	InvalidateGroup(ctx context.Context, groupID int64) error
}

// DurableStore is the persistent tier.
type DurableStore interface {
	Get(ctx context.Context, groupID, userID int64) (model.PermissionState, error)
	Upsert(ctx context.Context, state model.PermissionState) error
}

// FallbackPolicy decides what a reader gets when every tier misses or is
// unreachable.
type FallbackPolicy int

const (
	// FallbackAllAllowed treats unknown members as unrestricted.
	FallbackAllAllowed FallbackPolicy = iota
	// FallbackRestricted treats unknown members as fully restricted.
	FallbackRestricted
)

// Service keeps permission snapshots in three tiers: an in-process mirror,
// a shared cache and a durable store. Reads fall through tier by tier and
// refresh the faster tiers on the way back; tier failures degrade to the
// next tier instead of surfacing.
type Service struct {
	mu     sync.RWMutex
	local  map[string]model.PermissionState
	cache  SharedCache
	store  DurableStore
	policy FallbackPolicy
	logger *zap.Logger
	now    func() time.Time
}

func NewService(cache SharedCache, store DurableStore, policy FallbackPolicy, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		local:  map[string]model.PermissionState{},
		cache:  cache,
		store:  store,
		policy: policy,
		logger: logger,
		now:    time.Now,
	}
}

func mirrorKey(groupID, userID int64) string {
	return fmt.Sprintf("%d:%d", groupID, userID)
}

// Get returns the member's permission snapshot. A member no tier knows
// about gets the policy default; the default is never persisted.
func (s *Service) Get(ctx context.Context, groupID, userID int64) model.PermissionState {
	s.mu.RLock()
	state, ok := s.local[mirrorKey(groupID, userID)]
	s.mu.RUnlock()
	if ok {
		return state
	}

	if s.cache != nil {
		state, found, err := s.cache.Get(ctx, groupID, userID)
		if err != nil {
			s.logger.Warn("permission cache read",
				zap.Int64("group_id", groupID),
				zap.Int64("user_id", userID),
				zap.Error(err),
			)
		} else if found {
			s.storeMirror(state)
			return state
		}
	}

	if s.store != nil {
		state, err := s.store.Get(ctx, groupID, userID)
		switch {
		case err == nil:
			s.storeMirror(state)
			s.writeCache(ctx, state)
			return state
		case errors.Is(err, pgrepo.ErrPermissionStateNotFound):
		default:
			s.logger.Warn("permission store read",
				zap.Int64("group_id", groupID),
				zap.Int64("user_id", userID),
				zap.Error(err),
			)
		}
	}

	return s.defaultState(groupID, userID)
}

// Save records a new snapshot for the member. The in-process mirror is
// updated first and stays authoritative when the slower tiers are down;
// their failures are logged, never returned.
func (s *Service) Save(ctx context.Context, groupID, userID int64, flags model.PermissionFlags, restrictedBy int64, reason string) model.PermissionState {
	now := s.now().UTC()
	state := model.PermissionState{
		GroupID:   groupID,
		UserID:    userID,
		Flags:     flags,
		UpdatedAt: now,
	}
	if flags.Restricted() {
		state.IsRestricted = true
		state.RestrictedAt = &now
		state.RestrictedBy = restrictedBy
		state.RestrictionReason = reason
	}

	s.storeMirror(state)
	if state.IsRestricted {
		s.writeCache(ctx, state)
	} else {
		// Lifting a restriction must evict the stale restricted entry
		// other instances may still read from the shared tier.
		s.dropCache(ctx, groupID, userID)
	}

	if s.store != nil {
		if err := s.store.Upsert(ctx, state); err != nil {
			s.logger.Error("permission store write",
				zap.Int64("group_id", groupID),
				zap.Int64("user_id", userID),
				zap.Error(err),
			)
		}
	}

	return state
}

// Toggle flips one named capability and saves the result.
func (s *Service) Toggle(ctx context.Context, groupID, userID int64, capability string, actor int64, reason string) (model.PermissionState, error) {
	current := s.Get(ctx, groupID, userID)

	flags, err := flipFlag(current.Flags, capability)
	if err != nil {
		return model.PermissionState{}, err
	}

	return s.Save(ctx, groupID, userID, flags, actor, reason), nil
}

// InvalidateGroup drops every tier's entries for the group, used after
// group-wide actions such as lockdown.
func (s *Service) InvalidateGroup(ctx context.Context, groupID int64) {
	prefix := fmt.Sprintf("%d:", groupID)
	s.mu.Lock()
	for key := range s.local {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			delete(s.local, key)
		}
	}
	s.mu.Unlock()

	if s.cache != nil {
		if err := s.cache.InvalidateGroup(ctx, groupID); err != nil {
			s.logger.Warn("permission cache invalidation",
				zap.Int64("group_id", groupID),
				zap.Error(err),
			)
		}
	}
}

func (s *Service) storeMirror(state model.PermissionState) {
	s.mu.Lock()
	s.local[mirrorKey(state.GroupID, state.UserID)] = state
	s.mu.Unlock()
}

func (s *Service) writeCache(ctx context.Context, state model.PermissionState) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, state); err != nil {
		s.logger.Warn("permission cache write",
			zap.Int64("group_id", state.GroupID),
			zap.Int64("user_id", state.UserID),
			zap.Error(err),
		)
	}
}

func (s *Service) dropCache(ctx context.Context, groupID, userID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, groupID, userID); err != nil {
		s.logger.Warn("permission cache delete",
			zap.Int64("group_id", groupID),
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
	}
}

func (s *Service) defaultState(groupID, userID int64) model.PermissionState {
	flags := model.AllAllowed()
	if s.policy == FallbackRestricted {
		flags = model.PermissionFlags{}
	}

	return model.PermissionState{
		GroupID:      groupID,
		UserID:       userID,
		Flags:        flags,
		IsRestricted: flags.Restricted(),
	}
}

func flipFlag(flags model.PermissionFlags, capability string) (model.PermissionFlags, error) {
	switch capability {
	case "can_send_messages":
		flags.CanSendMessages = !flags.CanSendMessages
	case "can_send_other":
		flags.CanSendOther = !flags.CanSendOther
	case "can_send_audios":
		flags.CanSendAudios = !flags.CanSendAudios
	case "can_send_documents":
		flags.CanSendDocuments = !flags.CanSendDocuments
	case "can_send_photos":
		flags.CanSendPhotos = !flags.CanSendPhotos
	case "can_send_videos":
		flags.CanSendVideos = !flags.CanSendVideos
	default:
		return model.PermissionFlags{}, fmt.Errorf("unknown capability %q", capability)
	}
	return flags, nil
}
