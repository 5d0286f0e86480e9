package enums

import (
	"fmt"
	"strings"
)

type ActionType string

const (
	ActionBan                ActionType = "ban"
	ActionUnban              ActionType = "unban"
	ActionKick               ActionType = "kick"
	ActionMute               ActionType = "mute"
	ActionUnmute             ActionType = "unmute"
	ActionPromote            ActionType = "promote"
	ActionDemote             ActionType = "demote"
	ActionWarn               ActionType = "warn"
	ActionPin                ActionType = "pin"
	ActionUnpin              ActionType = "unpin"
	ActionDeleteMessage      ActionType = "delete_message"
	ActionLockdown           ActionType = "lockdown"
	ActionCleanupSpam        ActionType = "cleanup_spam"
	ActionDeleteUserMessages ActionType = "delete_user_messages"
)

func ParseActionType(raw string) (ActionType, error) {
	actionType := ActionType(strings.ToLower(strings.TrimSpace(raw)))
	if !actionType.Valid() {
		return "", fmt.Errorf("unknown action type %q", raw)
	}
	return actionType, nil
}

func (t ActionType) Valid() bool {
	switch t {
	case ActionBan, ActionUnban, ActionKick, ActionMute, ActionUnmute,
		ActionPromote, ActionDemote, ActionWarn, ActionPin, ActionUnpin,
		ActionDeleteMessage, ActionLockdown, ActionCleanupSpam, ActionDeleteUserMessages:
		return true
	}
	return false
}

// IsViolation reports whether a successfully executed action of this type
// counts against the user's violation record.
func (t ActionType) IsViolation() bool {
	switch t {
	case ActionWarn, ActionMute, ActionBan:
		return true
	}
	return false
}

// RequiresUser reports whether the type cannot execute without a target user.
func (t ActionType) RequiresUser() bool {
	switch t {
	case ActionBan, ActionUnban, ActionKick, ActionMute, ActionUnmute,
		ActionPromote, ActionDemote, ActionWarn, ActionDeleteUserMessages:
		return true
	}
	return false
}

// RequiresMessage reports whether the type cannot execute without a target message.
func (t ActionType) RequiresMessage() bool {
	switch t {
	case ActionPin, ActionUnpin, ActionDeleteMessage:
		return true
	}
	return false
}
