package dto

type PermissionsSetRequest struct {
	CanSendMessages  bool   `json:"can_send_messages"`
	CanSendOther     bool   `json:"can_send_other"`
	CanSendAudios    bool   `json:"can_send_audios"`
	CanSendDocuments bool   `json:"can_send_documents"`
	CanSendPhotos    bool   `json:"can_send_photos"`
	CanSendVideos    bool   `json:"can_send_videos"`
	Reason           string `json:"reason,omitempty"`
}

type PermissionsToggleRequest struct {
	Capability string `json:"capability"`
	Reason     string `json:"reason,omitempty"`
}
