package permissions

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Nikhil-ig/group-assistant-v3-sub000/internal/domain/model"
	pgrepo "github.com/Nikhil-ig/group-assistant-v3-sub000/internal/repo/postgres"
	redrepo "github.com/Nikhil-ig/group-assistant-v3-sub000/internal/repo/redis"
)

func newTestCache(t *testing.T) (*redrepo.PermissionCacheRepo, *miniredis.Miniredis, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	cleanup := func() {
		_ = client.Close()
		mr.Close()
	}
	return redrepo.NewPermissionCacheRepo(client), mr, cleanup
}

type memDurableStore struct {
	mu        sync.Mutex
	states    map[string]model.PermissionState
	getErr    error
	upsertErr error
	upserts   int
}

func newMemDurableStore() *memDurableStore {
	return &memDurableStore{states: map[string]model.PermissionState{}}
}

func durableKey(groupID, userID int64) string {
	return fmt.Sprintf("%d:%d", groupID, userID)
}

func (s *memDurableStore) Get(_ context.Context, groupID, userID int64) (model.PermissionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.getErr != nil {
		return model.PermissionState{}, s.getErr
	}
	state, ok := s.states[durableKey(groupID, userID)]
	if !ok {
		return model.PermissionState{}, pgrepo.ErrPermissionStateNotFound
	}
	return state, nil
}

func (s *memDurableStore) Upsert(_ context.Context, state model.PermissionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.states[durableKey(state.GroupID, state.UserID)] = state
	s.upserts++
	return nil
}

func restrictedFlags() model.PermissionFlags {
	flags := model.AllAllowed()
	flags.CanSendMessages = false
	return flags
}

func TestGetDefaultsAllAllowed(t *testing.T) {
	cache, _, cleanup := newTestCache(t)
	defer cleanup()
	svc := NewService(cache, newMemDurableStore(), FallbackAllAllowed, zap.NewNop())

	state := svc.Get(context.Background(), -1, 42)

	if state.Flags != model.AllAllowed() || state.IsRestricted {
		t.Fatalf("expected the all-allowed default, got %+v", state)
	}

	// The default is synthesized, never written back.
	if _, found, err := cache.Get(context.Background(), -1, 42); err != nil || found {
		t.Fatalf("default state must not be cached: found=%v err=%v", found, err)
	}
}

func TestSaveThenGet(t *testing.T) {
	cache, _, cleanup := newTestCache(t)
	defer cleanup()
	store := newMemDurableStore()
	svc := NewService(cache, store, FallbackAllAllowed, zap.NewNop())

	saved := svc.Save(context.Background(), -1, 42, restrictedFlags(), 7, "spam")
	if !saved.IsRestricted || saved.RestrictedAt == nil || saved.RestrictedBy != 7 {
		t.Fatalf("expected a restricted snapshot, got %+v", saved)
	}

	got := svc.Get(context.Background(), -1, 42)
	if got.Flags != restrictedFlags() || got.RestrictionReason != "spam" {
		t.Fatalf("unexpected read-back: %+v", got)
	}

	if _, found, err := cache.Get(context.Background(), -1, 42); err != nil || !found {
		t.Fatalf("expected the shared tier to hold the snapshot: found=%v err=%v", found, err)
	}
	if store.upserts != 1 {
		t.Fatalf("expected one durable write, got %d", store.upserts)
	}
}

func TestSaveUnrestrictedEvictsSharedEntry(t *testing.T) {
	cache, _, cleanup := newTestCache(t)
	defer cleanup()
	store := newMemDurableStore()
	svc := NewService(cache, store, FallbackAllAllowed, zap.NewNop())

	svc.Save(context.Background(), -1, 42, restrictedFlags(), 7, "spam")
	if _, found, err := cache.Get(context.Background(), -1, 42); err != nil || !found {
		t.Fatalf("expected the shared tier to hold the restricted snapshot: found=%v err=%v", found, err)
	}

	lifted := svc.Save(context.Background(), -1, 42, model.AllAllowed(), 7, "appeal accepted")
	if lifted.IsRestricted {
		t.Fatalf("expected an unrestricted snapshot, got %+v", lifted)
	}

	if _, found, err := cache.Get(context.Background(), -1, 42); err != nil || found {
		t.Fatalf("expected the stale restricted entry to be evicted: found=%v err=%v", found, err)
	}

	got := svc.Get(context.Background(), -1, 42)
	if got.IsRestricted || !got.Flags.CanSendMessages {
		t.Fatalf("unexpected read-back: %+v", got)
	}
}

func TestGetFallsThroughToDurableStore(t *testing.T) {
	cache, _, cleanup := newTestCache(t)
	defer cleanup()
	store := newMemDurableStore()
	store.states[durableKey(-1, 42)] = model.PermissionState{
		GroupID:      -1,
		UserID:       42,
		Flags:        restrictedFlags(),
		IsRestricted: true,
	}
	svc := NewService(cache, store, FallbackAllAllowed, zap.NewNop())

	got := svc.Get(context.Background(), -1, 42)
	if !got.IsRestricted {
		t.Fatalf("expected the durable snapshot, got %+v", got)
	}

	// The read-through refreshed the faster tiers.
	if _, found, err := cache.Get(context.Background(), -1, 42); err != nil || !found {
		t.Fatalf("expected the shared tier to be refreshed: found=%v err=%v", found, err)
	}

	store.getErr = fmt.Errorf("store down")
	again := svc.Get(context.Background(), -1, 42)
	if !again.IsRestricted {
		t.Fatalf("mirror must keep serving when the store is down, got %+v", again)
	}
}

func TestSaveDegradesWhenDurableStoreDown(t *testing.T) {
	cache, _, cleanup := newTestCache(t)
	defer cleanup()
	store := newMemDurableStore()
	store.upsertErr = fmt.Errorf("store down")
	svc := NewService(cache, store, FallbackAllAllowed, zap.NewNop())

	svc.Save(context.Background(), -1, 42, restrictedFlags(), 7, "spam")

	got := svc.Get(context.Background(), -1, 42)
	if !got.IsRestricted {
		t.Fatalf("mirror must stay authoritative on durable failure, got %+v", got)
	}
}

func TestGetDegradesWhenCacheDown(t *testing.T) {
	cache, mr, cleanup := newTestCache(t)
	defer cleanup()
	store := newMemDurableStore()
	store.states[durableKey(-1, 42)] = model.PermissionState{
		GroupID:      -1,
		UserID:       42,
		Flags:        restrictedFlags(),
		IsRestricted: true,
	}
	svc := NewService(cache, store, FallbackAllAllowed, zap.NewNop())

	mr.Close()

	got := svc.Get(context.Background(), -1, 42)
	if !got.IsRestricted {
		t.Fatalf("expected fall-through past the dead cache, got %+v", got)
	}
}

func TestToggle(t *testing.T) {
	cache, _, cleanup := newTestCache(t)
	defer cleanup()
	svc := NewService(cache, newMemDurableStore(), FallbackAllAllowed, zap.NewNop())

	state, err := svc.Toggle(context.Background(), -1, 42, "can_send_photos", 7, "media ban")
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if state.Flags.CanSendPhotos || !state.IsRestricted {
		t.Fatalf("expected photos revoked, got %+v", state)
	}

	state, err = svc.Toggle(context.Background(), -1, 42, "can_send_photos", 7, "")
	if err != nil {
		t.Fatalf("toggle back: %v", err)
	}
	if state.Flags != model.AllAllowed() || state.IsRestricted {
		t.Fatalf("expected full restore, got %+v", state)
	}

	if _, err := svc.Toggle(context.Background(), -1, 42, "can_fly", 7, ""); err == nil {
		t.Fatalf("expected an error for an unknown capability")
	}
}

func TestInvalidateGroup(t *testing.T) {
	cache, _, cleanup := newTestCache(t)
	defer cleanup()
	store := newMemDurableStore()
	store.upsertErr = fmt.Errorf("store down") // keep state out of the durable tier
	svc := NewService(cache, store, FallbackAllAllowed, zap.NewNop())

	svc.Save(context.Background(), -1, 42, restrictedFlags(), 7, "spam")
	svc.Save(context.Background(), -2, 42, restrictedFlags(), 7, "spam")

	svc.InvalidateGroup(context.Background(), -1)

	if got := svc.Get(context.Background(), -1, 42); got.IsRestricted {
		t.Fatalf("expected group -1 entries dropped, got %+v", got)
	}
	if got := svc.Get(context.Background(), -2, 42); !got.IsRestricted {
		t.Fatalf("expected group -2 entries kept, got %+v", got)
	}
	if _, found, err := cache.Get(context.Background(), -1, 42); err != nil || found {
		t.Fatalf("expected the shared tier flushed for group -1: found=%v err=%v", found, err)
	}
}

func TestFallbackRestrictedPolicy(t *testing.T) {
	svc := NewService(nil, nil, FallbackRestricted, zap.NewNop())

	state := svc.Get(context.Background(), -1, 42)
	if !state.IsRestricted || state.Flags != (model.PermissionFlags{}) {
		t.Fatalf("expected the default-closed fallback, got %+v", state)
	}
}
