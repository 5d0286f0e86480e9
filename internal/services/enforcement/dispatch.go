package enforcement

import (
	"context"
	"fmt"
	"time"

	"github.com/Nikhil-ig/group-assistant-v3-sub000/internal/domain/enums"
	"github.com/Nikhil-ig/group-assistant-v3-sub000/internal/domain/model"
)

// dispatch validates the action and executes exactly one remote attempt.
// Every supported action type has an explicit branch; there is no string
// fallthrough path.
func (e *Engine) dispatch(ctx context.Context, action model.EnforcementAction) (map[string]any, error) {
	if !action.ActionType.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAction, action.ActionType)
	}
	if action.GroupID == 0 {
		return nil, fmt.Errorf("%w: group_id is required", ErrInvalidArgument)
	}
	if action.ActionType.RequiresUser() && action.UserID <= 0 {
		return nil, fmt.Errorf("%w: user_id is required for %s", ErrInvalidArgument, action.ActionType)
	}
	if action.ActionType.RequiresMessage() && action.MessageID <= 0 {
		return nil, fmt.Errorf("%w: message_id is required for %s", ErrInvalidArgument, action.ActionType)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch action.ActionType {
	case enums.ActionWarn:
		// A warning has no remote side effect; the log and violation
		// records are the whole action.
		return map[string]any{
			"action":  string(enums.ActionWarn),
			"user_id": action.UserID,
			"reason":  action.Reason,
		}, nil

	case enums.ActionCleanupSpam:
		return map[string]any{
			"action":           string(enums.ActionCleanupSpam),
			"deleted_messages": 0,
		}, nil

	case enums.ActionDeleteUserMessages:
		return map[string]any{
			"action":           string(enums.ActionDeleteUserMessages),
			"user_id":          action.UserID,
			"deleted_messages": 0,
		}, nil
	}

	if e.remote == nil {
		return nil, fmt.Errorf("%w: %s", ErrRemoteUnavailable, action.ActionType)
	}

	switch action.ActionType {
	case enums.ActionBan:
		return e.remote.BanMember(action.GroupID, action.UserID)

	case enums.ActionUnban:
		return e.remote.UnbanMember(action.GroupID, action.UserID)

	case enums.ActionKick:
		return e.kick(ctx, action)

	case enums.ActionMute:
		return e.mute(action)

	case enums.ActionUnmute:
		return e.remote.RestrictMember(action.GroupID, action.UserID, model.AllAllowed(), time.Time{})

	case enums.ActionPromote:
		return e.remote.PromoteMember(action.GroupID, action.UserID, true)

	case enums.ActionDemote:
		return e.remote.PromoteMember(action.GroupID, action.UserID, false)

	case enums.ActionPin:
		return e.remote.PinMessage(action.GroupID, action.MessageID)

	case enums.ActionUnpin:
		return e.remote.UnpinMessage(action.GroupID, action.MessageID)

	case enums.ActionDeleteMessage:
		return e.remote.DeleteMessage(action.GroupID, action.MessageID)

	case enums.ActionLockdown:
		return e.remote.SetGroupPermissions(action.GroupID, model.PermissionFlags{})
	}

	return nil, fmt.Errorf("%w: %q", ErrUnsupportedAction, action.ActionType)
}

// kick is ban-then-unban with a short delay so the membership removal
// settles before the ban is lifted.
func (e *Engine) kick(ctx context.Context, action model.EnforcementAction) (map[string]any, error) {
	banResp, err := e.remote.BanMember(action.GroupID, action.UserID)
	if err != nil {
		return nil, fmt.Errorf("kick ban phase: %w", err)
	}
	if err := e.sleep(ctx, e.cfg.KickRevertDelay); err != nil {
		return nil, err
	}
	unbanResp, err := e.remote.UnbanMember(action.GroupID, action.UserID)
	if err != nil {
		return nil, fmt.Errorf("kick unban phase: %w", err)
	}

	return map[string]any{
		"ban":   banResp,
		"unban": unbanResp,
	}, nil
}

func (e *Engine) mute(action model.EnforcementAction) (map[string]any, error) {
	minutes := action.DurationMinutes
	if minutes <= 0 {
		minutes = e.cfg.MuteDefaultMinutes
	}
	until := e.now().UTC().Add(time.Duration(minutes) * time.Minute)

	return e.remote.RestrictMember(action.GroupID, action.UserID, model.PermissionFlags{}, until)
}
