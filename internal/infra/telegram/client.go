package telegram

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Nikhil-ig/group-assistant-v3-sub000/internal/domain/model"
)

// Client executes single administrative operations against a group. The
// enforcement engine only ever sees the {payload, error} envelope returned
// here; transport detail stays inside this package.
type Client struct {
	api *tgbotapi.BotAPI
}

func NewClient(token string) (*Client, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("telegram bot token is empty")
	}

	api, err := tgbotapi.NewBotAPI(strings.TrimSpace(token))
	if err != nil {
		return nil, fmt.Errorf("create telegram bot api: %w", err)
	}

	return &Client{api: api}, nil
}

func (c *Client) BanMember(groupID, userID int64) (map[string]any, error) {
	return c.request(tgbotapi.BanChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{ChatID: groupID, UserID: userID},
	}, "ban chat member")
}

func (c *Client) UnbanMember(groupID, userID int64) (map[string]any, error) {
	return c.request(tgbotapi.UnbanChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{ChatID: groupID, UserID: userID},
		OnlyIfBanned:     true,
	}, "unban chat member")
}

func (c *Client) RestrictMember(groupID, userID int64, flags model.PermissionFlags, until time.Time) (map[string]any, error) {
	cfg := tgbotapi.RestrictChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{ChatID: groupID, UserID: userID},
		Permissions:      chatPermissions(flags),
	}
	if !until.IsZero() {
		cfg.UntilDate = until.Unix()
	}
	return c.request(cfg, "restrict chat member")
}

func (c *Client) PromoteMember(groupID, userID int64, promote bool) (map[string]any, error) {
	return c.request(tgbotapi.PromoteChatMemberConfig{
		ChatMemberConfig:   tgbotapi.ChatMemberConfig{ChatID: groupID, UserID: userID},
		CanChangeInfo:      promote,
		CanPostMessages:    promote,
		CanEditMessages:    promote,
		CanDeleteMessages:  promote,
		CanRestrictMembers: promote,
		CanPromoteMembers:  false,
	}, "promote chat member")
}

func (c *Client) PinMessage(groupID, messageID int64) (map[string]any, error) {
	return c.request(tgbotapi.PinChatMessageConfig{
		ChatID:              groupID,
		MessageID:           int(messageID),
		DisableNotification: true,
	}, "pin chat message")
}

func (c *Client) UnpinMessage(groupID, messageID int64) (map[string]any, error) {
	return c.request(tgbotapi.UnpinChatMessageConfig{
		ChatID:    groupID,
		MessageID: int(messageID),
	}, "unpin chat message")
}

func (c *Client) DeleteMessage(groupID, messageID int64) (map[string]any, error) {
	return c.request(tgbotapi.DeleteMessageConfig{
		ChatID:    groupID,
		MessageID: int(messageID),
	}, "delete message")
}

func (c *Client) SetGroupPermissions(groupID int64, flags model.PermissionFlags) (map[string]any, error) {
	return c.request(tgbotapi.SetChatPermissionsConfig{
		ChatConfig:  tgbotapi.ChatConfig{ChatID: groupID},
		Permissions: chatPermissions(flags),
	}, "set chat permissions")
}

func (c *Client) NotifyGroup(groupID int64, text string) error {
	if c == nil || c.api == nil {
		return fmt.Errorf("telegram client is not initialized")
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("notification text is empty")
	}

	if _, err := c.api.Send(tgbotapi.NewMessage(groupID, text)); err != nil {
		return fmt.Errorf("send group notification: %w", err)
	}
	return nil
}

func (c *Client) request(payload tgbotapi.Chattable, operation string) (map[string]any, error) {
	if c == nil || c.api == nil {
		return nil, fmt.Errorf("telegram client is not initialized")
	}

	resp, err := c.api.Request(payload)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	if !resp.Ok {
		return nil, fmt.Errorf("%s: telegram error %d: %s", operation, resp.ErrorCode, resp.Description)
	}

	return decodeResult(resp.Result), nil
}

// chatPermissions maps the six tracked capabilities onto the bot API
// permission set. The library models media as a single flag, so the four
// media capabilities collapse into it: media stays allowed while any of
// them is allowed.
func chatPermissions(flags model.PermissionFlags) *tgbotapi.ChatPermissions {
	media := flags.CanSendAudios || flags.CanSendDocuments || flags.CanSendPhotos || flags.CanSendVideos
	return &tgbotapi.ChatPermissions{
		CanSendMessages:       flags.CanSendMessages,
		CanSendMediaMessages:  media,
		CanSendOtherMessages:  flags.CanSendOther,
		CanSendPolls:          flags.CanSendOther,
		CanAddWebPagePreviews: flags.CanSendOther,
	}
}

func decodeResult(raw json.RawMessage) map[string]any {
	if len(raw) == 0 {
		return nil
	}

	payload := map[string]any{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		// Some methods return a bare boolean instead of an object.
		return map[string]any{"result": string(raw)}
	}
	return payload
}
