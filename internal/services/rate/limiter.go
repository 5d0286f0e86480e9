package rate

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// WindowRepo is the redis-backed fixed-window counter.
type WindowRepo interface {
	IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	WindowState(ctx context.Context, key string) (int64, time.Duration, error)
}

type Limits struct {
	ActionsPerMinute int
	ActionsPer10Sec  int
}

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Limiter admits enforcement submissions per group through two stacked
// fixed windows (burst and sustained). A counter failure fails open: losing
// redis must not stop moderation.
type Limiter struct {
	repo   WindowRepo
	limits Limits
	logger *zap.Logger
}

func NewLimiter(repo WindowRepo, limits Limits, logger *zap.Logger) *Limiter {
	if limits.ActionsPerMinute <= 0 {
		limits.ActionsPerMinute = 60
	}
	if limits.ActionsPer10Sec <= 0 {
		limits.ActionsPer10Sec = 20
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Limiter{repo: repo, limits: limits, logger: logger}
}

func minuteKey(groupID int64) string {
	return fmt.Sprintf("rate:enforce:min:%d", groupID)
}

func burstKey(groupID int64) string {
	return fmt.Sprintf("rate:enforce:10s:%d", groupID)
}

// Peek reports the group's admission state without consuming a slot, so a
// rejected caller can be told when to retry without extending its window.
func (l *Limiter) Peek(ctx context.Context, groupID int64) Decision {
	if l.repo == nil {
		return Decision{Allowed: true}
	}

	retryAfter := time.Duration(0)

	count, ttl, err := l.repo.WindowState(ctx, burstKey(groupID))
	if err != nil {
		l.logger.Warn("rate window read", zap.Int64("group_id", groupID), zap.Error(err))
		return Decision{Allowed: true}
	}
	if count >= int64(l.limits.ActionsPer10Sec) && ttl > retryAfter {
		retryAfter = ttl
	}

	count, ttl, err = l.repo.WindowState(ctx, minuteKey(groupID))
	if err != nil {
		l.logger.Warn("rate window read", zap.Int64("group_id", groupID), zap.Error(err))
		return Decision{Allowed: true}
	}
	if count >= int64(l.limits.ActionsPerMinute) && ttl > retryAfter {
		retryAfter = ttl
	}

	if retryAfter > 0 {
		return Decision{RetryAfter: retryAfter}
	}
	return Decision{Allowed: true}
}

// Allow consumes one admission slot for the group. A group already at a
// limit is rejected via Peek, so hammering a saturated group never pushes
// its windows further.
func (l *Limiter) Allow(ctx context.Context, groupID int64) Decision {
	if l.repo == nil {
		return Decision{Allowed: true}
	}

	if d := l.Peek(ctx, groupID); !d.Allowed {
		return d
	}

	burst, burstTTL, err := l.repo.IncrementWindow(ctx, burstKey(groupID), 10*time.Second)
	if err != nil {
		l.logger.Warn("rate window increment", zap.Int64("group_id", groupID), zap.Error(err))
		return Decision{Allowed: true}
	}
	if burst > int64(l.limits.ActionsPer10Sec) {
		return Decision{RetryAfter: burstTTL}
	}

	sustained, sustainedTTL, err := l.repo.IncrementWindow(ctx, minuteKey(groupID), time.Minute)
	if err != nil {
		l.logger.Warn("rate window increment", zap.Int64("group_id", groupID), zap.Error(err))
		return Decision{Allowed: true}
	}
	if sustained > int64(l.limits.ActionsPerMinute) {
		return Decision{RetryAfter: sustainedTTL}
	}

	return Decision{Allowed: true}
}
