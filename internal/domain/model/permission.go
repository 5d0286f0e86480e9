package model

import "time"

// PermissionFlags are the six independent send capabilities tracked per
// group member.
type PermissionFlags struct {
	CanSendMessages  bool `json:"can_send_messages"`
	CanSendOther     bool `json:"can_send_other"`
	CanSendAudios    bool `json:"can_send_audios"`
	CanSendDocuments bool `json:"can_send_documents"`
	CanSendPhotos    bool `json:"can_send_photos"`
	CanSendVideos    bool `json:"can_send_videos"`
}

// AllAllowed is the default state for a member no tier has a record for.
func AllAllowed() PermissionFlags {
	return PermissionFlags{
		CanSendMessages:  true,
		CanSendOther:     true,
		CanSendAudios:    true,
		CanSendDocuments: true,
		CanSendPhotos:    true,
		CanSendVideos:    true,
	}
}

// Restricted reports whether any capability is revoked. PermissionState's
// IsRestricted is always derived through this and never set independently.
func (f PermissionFlags) Restricted() bool {
	return !f.CanSendMessages || !f.CanSendOther || !f.CanSendAudios ||
		!f.CanSendDocuments || !f.CanSendPhotos || !f.CanSendVideos
}

type PermissionState struct {
	GroupID           int64           `json:"group_id"`
	UserID            int64           `json:"user_id"`
	Flags             PermissionFlags `json:"flags"`
	IsRestricted      bool            `json:"is_restricted"`
	RestrictedAt      *time.Time      `json:"restricted_at,omitempty"`
	RestrictedBy      int64           `json:"restricted_by,omitempty"`
	RestrictionReason string          `json:"restriction_reason,omitempty"`
	UpdatedAt         time.Time       `json:"updated_at"`
}
