package enforcement

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Nikhil-ig/group-assistant-v3-sub000/internal/domain/enums"
	"github.com/Nikhil-ig/group-assistant-v3-sub000/internal/domain/model"
	pgrepo "github.com/Nikhil-ig/group-assistant-v3-sub000/internal/repo/postgres"
)

// escalationInterval is the violation-count period at which escalation is
// considered. Counts past the last milestone never escalate again.
const escalationInterval = 3

const recentViolationLimit = 5

type escalationRule struct {
	actionType      enums.ActionType
	durationMinutes int
	level           enums.EnforcementLevel
}

var escalationRules = map[int]escalationRule{
	3: {actionType: enums.ActionMute, durationMinutes: 60, level: enums.LevelMuteShort},
	6: {actionType: enums.ActionMute, durationMinutes: 1440, level: enums.LevelMuteMedium},
	9: {actionType: enums.ActionBan, level: enums.LevelBanTemporary},
}

// TrackViolation appends one violation to the user's record and applies the
// escalation rule when the new count lands on a milestone. It never fails
// outward: store and escalation errors are logged and swallowed so the
// triggering action's outcome is unaffected.
func (e *Engine) TrackViolation(ctx context.Context, userID, groupID int64, violationType enums.ActionType, reason string, escalate bool) {
	if e.violations == nil || userID <= 0 || groupID == 0 {
		return
	}

	entry := model.ViolationEntry{
		Type:      violationType,
		Reason:    reason,
		Timestamp: e.now().UTC(),
	}
	count, err := e.violations.RecordViolation(ctx, userID, groupID, entry)
	if err != nil {
		e.logger.Error("record violation",
			zap.Int64("user_id", userID),
			zap.Int64("group_id", groupID),
			zap.Error(err),
		)
		return
	}

	e.logger.Info("violation tracked",
		zap.Int64("user_id", userID),
		zap.Int64("group_id", groupID),
		zap.String("violation_type", string(violationType)),
		zap.Int("violation_count", count),
	)

	if !escalate || count%escalationInterval != 0 {
		return
	}
	rule, ok := escalationRules[count]
	if !ok {
		return
	}
	e.applyEscalation(ctx, userID, groupID, count, rule)
}

func (e *Engine) applyEscalation(ctx context.Context, userID, groupID int64, count int, rule escalationRule) {
	action := model.EnforcementAction{
		ActionType:      rule.actionType,
		GroupID:         groupID,
		UserID:          userID,
		DurationMinutes: rule.durationMinutes,
		Reason:          fmt.Sprintf("Auto-escalation after %d violations", count),
		InitiatedBy:     0,
		Escalate:        false,
		NotifyUser:      true,
		LogAction:       true,
	}

	resp := e.ExecuteAction(ctx, action)
	if !resp.Success {
		e.logger.Warn("escalation action failed",
			zap.Int64("user_id", userID),
			zap.Int64("group_id", groupID),
			zap.Int("violation_count", count),
			zap.String("error", resp.Error),
		)
		return
	}

	if err := e.violations.SetLevel(ctx, userID, groupID, rule.level); err != nil {
		e.logger.Error("set enforcement level",
			zap.Int64("user_id", userID),
			zap.Int64("group_id", groupID),
			zap.Error(err),
		)
	}

	e.logger.Info("escalation applied",
		zap.Int64("user_id", userID),
		zap.Int64("group_id", groupID),
		zap.Int("violation_count", count),
		zap.String("action_type", string(rule.actionType)),
		zap.String("level", string(rule.level)),
	)
}

// GetUserViolations summarizes one user's standing in a group. A missing
// record is a clean history; a store failure degrades to the "error" status
// instead of propagating.
func (e *Engine) GetUserViolations(ctx context.Context, userID, groupID int64) model.UserEnforcementHistory {
	history := model.UserEnforcementHistory{
		UserID:           userID,
		GroupID:          groupID,
		RecentViolations: []model.ViolationEntry{},
		CurrentStatus:    "clean",
		EscalationLevel:  enums.LevelWarning,
	}
	if e.violations == nil {
		history.CurrentStatus = "error"
		return history
	}

	rec, err := e.violations.Get(ctx, userID, groupID)
	if errors.Is(err, pgrepo.ErrViolationRecordNotFound) {
		return history
	}
	if err != nil {
		e.logger.Error("get user violations",
			zap.Int64("user_id", userID),
			zap.Int64("group_id", groupID),
			zap.Error(err),
		)
		history.CurrentStatus = "error"
		return history
	}

	history.TotalViolations = rec.ViolationCount
	history.EscalationLevel = rec.CurrentLevel
	if rec.ViolationCount > 0 {
		history.CurrentStatus = "active"
	}
	recent := rec.Violations
	if len(recent) > recentViolationLimit {
		recent = recent[len(recent)-recentViolationLimit:]
	}
	history.RecentViolations = append(history.RecentViolations, recent...)

	return history
}
