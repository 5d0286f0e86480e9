package enforcement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Nikhil-ig/group-assistant-v3-sub000/internal/domain/enums"
	"github.com/Nikhil-ig/group-assistant-v3-sub000/internal/domain/model"
)

var (
	// ErrInvalidArgument marks a missing type-specific required field.
	// Never retried.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrRemoteUnavailable marks a missing remote client capability.
	// Never retried.
	ErrRemoteUnavailable = errors.New("remote client is not configured")
	// ErrUnsupportedAction marks an unknown action type tag. Never retried.
	ErrUnsupportedAction = errors.New("unsupported action type")
)

// RemoteClient executes one named administrative operation against a group.
// The engine only inspects the {payload, error} envelope.
type RemoteClient interface {
	BanMember(groupID, userID int64) (map[string]any, error)
	UnbanMember(groupID, userID int64) (map[string]any, error)
	RestrictMember(groupID, userID int64, flags model.PermissionFlags, until time.Time) (map[string]any, error)
	PromoteMember(groupID, userID int64, promote bool) (map[string]any, error)
	PinMessage(groupID, messageID int64) (map[string]any, error)
	UnpinMessage(groupID, messageID int64) (map[string]any, error)
	DeleteMessage(groupID, messageID int64) (map[string]any, error)
	SetGroupPermissions(groupID int64, flags model.PermissionFlags) (map[string]any, error)
	NotifyGroup(groupID int64, text string) error
}

type ActionLogStore interface {
	Insert(ctx context.Context, rec model.ActionLogRecord) error
	StatsWindow(ctx context.Context, groupID int64, since time.Time) (model.EnforcementStats, error)
}

type ViolationStore interface {
	RecordViolation(ctx context.Context, userID, groupID int64, entry model.ViolationEntry) (int, error)
	Get(ctx context.Context, userID, groupID int64) (model.ViolationRecord, error)
	SetLevel(ctx context.Context, userID, groupID int64, level enums.EnforcementLevel) error
}

type Config struct {
	MaxRetries         int
	BackoffBase        time.Duration
	MaxBackoff         time.Duration
	MuteDefaultMinutes int
	KickRevertDelay    time.Duration
}

type Engine struct {
	remote     RemoteClient
	logs       ActionLogStore
	violations ViolationStore
	cfg        Config
	logger     *zap.Logger
	now        func() time.Time
	sleep      func(ctx context.Context, d time.Duration) error
}

func NewEngine(remote RemoteClient, logs ActionLogStore, violations ViolationStore, cfg Config, logger *zap.Logger) *Engine {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 60 * time.Second
	}
	if cfg.MuteDefaultMinutes <= 0 {
		cfg.MuteDefaultMinutes = 3600
	}
	if cfg.KickRevertDelay <= 0 {
		cfg.KickRevertDelay = 500 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Engine{
		remote:     remote,
		logs:       logs,
		violations: violations,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
		sleep:      sleepContext,
	}
}

// ExecuteAction runs one enforcement attempt sequence. It never returns an
// error: every failure, including a panic escaping the dispatch path, is
// captured into the returned response.
func (e *Engine) ExecuteAction(ctx context.Context, action model.EnforcementAction) (resp model.ActionResponse) {
	actionID := uuid.NewString()
	start := e.now().UTC()

	defer func() {
		if rec := recover(); rec != nil {
			e.logger.Error("unexpected panic during action execution",
				zap.String("action_id", actionID),
				zap.Any("panic", rec),
			)
			resp = e.failedResponse(actionID, action, start, 0,
				fmt.Errorf("panic: %v", rec), "Unexpected error during action execution")
		}
	}()

	retryCount := 0
	var lastErr error

	for attempt := 0; attempt <= e.cfg.MaxRetries; attempt++ {
		payload, err := e.dispatch(ctx, action)
		if err == nil {
			return e.succeed(ctx, actionID, action, start, retryCount, payload)
		}

		lastErr = err
		if !retryable(err) {
			break
		}
		if attempt == e.cfg.MaxRetries {
			break
		}

		retryCount++
		backoff := e.backoffFor(retryCount)
		e.logger.Warn("action attempt failed, retrying",
			zap.String("action_id", actionID),
			zap.String("action_type", string(action.ActionType)),
			zap.Int("retry_count", retryCount),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)
		if sleepErr := e.sleep(ctx, backoff); sleepErr != nil {
			lastErr = sleepErr
			break
		}
	}

	e.logger.Error("action failed",
		zap.String("action_id", actionID),
		zap.String("action_type", string(action.ActionType)),
		zap.Int64("group_id", action.GroupID),
		zap.Int("retry_count", retryCount),
		zap.Error(lastErr),
	)

	failed := e.failedResponse(actionID, action, start, retryCount, lastErr,
		fmt.Sprintf("Action failed after %d retries", retryCount))
	if action.LogAction {
		e.logOutcome(ctx, action, failed)
	}
	return failed
}

func (e *Engine) succeed(ctx context.Context, actionID string, action model.EnforcementAction, start time.Time, retryCount int, payload map[string]any) model.ActionResponse {
	resp := model.ActionResponse{
		ActionID:        actionID,
		ActionType:      action.ActionType,
		GroupID:         action.GroupID,
		UserID:          action.UserID,
		Status:          enums.ActionStatusSuccess,
		Success:         true,
		Message:         fmt.Sprintf("Action %s executed successfully", action.ActionType),
		Timestamp:       start,
		ExecutionTimeMS: e.elapsedMS(start),
		RetryCount:      retryCount,
		APIResponse:     payload,
	}

	if action.LogAction {
		e.logOutcome(ctx, action, resp)
	}
	if action.NotifyUser {
		e.notify(action)
	}
	if action.ActionType.IsViolation() && action.UserID > 0 {
		e.TrackViolation(ctx, action.UserID, action.GroupID, action.ActionType, action.Reason, action.Escalate)
	}

	return resp
}

func (e *Engine) failedResponse(actionID string, action model.EnforcementAction, start time.Time, retryCount int, cause error, message string) model.ActionResponse {
	errText := ""
	if cause != nil {
		errText = cause.Error()
	}

	return model.ActionResponse{
		ActionID:        actionID,
		ActionType:      action.ActionType,
		GroupID:         action.GroupID,
		UserID:          action.UserID,
		Status:          enums.ActionStatusFailed,
		Success:         false,
		Message:         message,
		Error:           errText,
		Timestamp:       start,
		ExecutionTimeMS: e.elapsedMS(start),
		RetryCount:      retryCount,
	}
}

// logOutcome persists one ActionLogRecord per terminal outcome. Log write
// failures never affect the primary result.
func (e *Engine) logOutcome(ctx context.Context, action model.EnforcementAction, resp model.ActionResponse) {
	if e.logs == nil {
		return
	}

	rec := model.ActionLogRecord{
		ActionID:        resp.ActionID,
		ActionType:      resp.ActionType,
		GroupID:         resp.GroupID,
		UserID:          resp.UserID,
		InitiatedBy:     action.InitiatedBy,
		Status:          resp.Status,
		Success:         resp.Success,
		Message:         resp.Message,
		Error:           resp.Error,
		Reason:          action.Reason,
		ExecutedAt:      resp.Timestamp,
		ExecutionTimeMS: resp.ExecutionTimeMS,
		RetryCount:      resp.RetryCount,
		APIResponse:     resp.APIResponse,
		Metadata:        action.Metadata,
	}
	if err := e.logs.Insert(ctx, rec); err != nil {
		e.logger.Error("write action log",
			zap.String("action_id", resp.ActionID),
			zap.Error(err),
		)
	}
}

func (e *Engine) notify(action model.EnforcementAction) {
	if e.remote == nil || !action.ActionType.IsViolation() || action.UserID <= 0 {
		return
	}

	text := fmt.Sprintf("User %d: %s", action.UserID, action.ActionType)
	if action.Reason != "" {
		text = fmt.Sprintf("User %d: %s (%s)", action.UserID, action.ActionType, action.Reason)
	}
	if err := e.remote.NotifyGroup(action.GroupID, text); err != nil {
		e.logger.Warn("notify group",
			zap.Int64("group_id", action.GroupID),
			zap.Error(err),
		)
	}
}

func (e *Engine) backoffFor(retryCount int) time.Duration {
	if retryCount < 1 {
		retryCount = 1
	}

	backoff := e.cfg.BackoffBase
	for i := 1; i < retryCount; i++ {
		backoff *= 2
		if backoff >= e.cfg.MaxBackoff {
			return e.cfg.MaxBackoff
		}
	}
	if backoff > e.cfg.MaxBackoff {
		return e.cfg.MaxBackoff
	}
	return backoff
}

func (e *Engine) elapsedMS(start time.Time) float64 {
	return float64(e.now().UTC().Sub(start)) / float64(time.Millisecond)
}

func retryable(err error) bool {
	return !errors.Is(err, ErrInvalidArgument) &&
		!errors.Is(err, ErrRemoteUnavailable) &&
		!errors.Is(err, ErrUnsupportedAction)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
