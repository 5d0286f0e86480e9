package handlers

import (
	"net/http"

	"github.com/Nikhil-ig/group-assistant-v3-sub000/internal/domain/model"
	authsvc "github.com/Nikhil-ig/group-assistant-v3-sub000/internal/services/auth"
	permsvc "github.com/Nikhil-ig/group-assistant-v3-sub000/internal/services/permissions"
	"github.com/Nikhil-ig/group-assistant-v3-sub000/internal/transport/http/dto"
	httperrors "github.com/Nikhil-ig/group-assistant-v3-sub000/internal/transport/http/errors"
)

type PermissionsHandler struct {
	service *permsvc.Service
}

func NewPermissionsHandler(service *permsvc.Service) *PermissionsHandler {
	return &PermissionsHandler{service: service}
}

func (h *PermissionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "PERMISSIONS_UNAVAILABLE", "permission service is unavailable")
		return
	}

	groupID, userID, ok := h.memberIDs(w, r)
	if !ok {
		return
	}

	httperrors.Write(w, http.StatusOK, h.service.Get(r.Context(), groupID, userID))
}

func (h *PermissionsHandler) Set(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "PERMISSIONS_UNAVAILABLE", "permission service is unavailable")
		return
	}

	groupID, userID, ok := h.memberIDs(w, r)
	if !ok {
		return
	}

	var req dto.PermissionsSetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "request body is not valid json")
		return
	}

	flags := model.PermissionFlags{
		CanSendMessages:  req.CanSendMessages,
		CanSendOther:     req.CanSendOther,
		CanSendAudios:    req.CanSendAudios,
		CanSendDocuments: req.CanSendDocuments,
		CanSendPhotos:    req.CanSendPhotos,
		CanSendVideos:    req.CanSendVideos,
	}

	state := h.service.Save(r.Context(), groupID, userID, flags, h.actor(r), req.Reason)
	httperrors.Write(w, http.StatusOK, state)
}

func (h *PermissionsHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "PERMISSIONS_UNAVAILABLE", "permission service is unavailable")
		return
	}

	groupID, userID, ok := h.memberIDs(w, r)
	if !ok {
		return
	}

	var req dto.PermissionsToggleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "request body is not valid json")
		return
	}

	state, err := h.service.Toggle(r.Context(), groupID, userID, req.Capability, h.actor(r), req.Reason)
	if err != nil {
		writeBadRequest(w, "UNKNOWN_CAPABILITY", err.Error())
		return
	}

	httperrors.Write(w, http.StatusOK, state)
}

func (h *PermissionsHandler) memberIDs(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	groupID, err := pathID(r, "groupID")
	if err != nil {
		writeBadRequest(w, "INVALID_GROUP_ID", "group id must be an integer")
		return 0, 0, false
	}
	userID, err := pathID(r, "userID")
	if err != nil || userID <= 0 {
		writeBadRequest(w, "INVALID_USER_ID", "user id must be a positive integer")
		return 0, 0, false
	}
	return groupID, userID, true
}

func (h *PermissionsHandler) actor(r *http.Request) int64 {
	if identity, ok := authsvc.IdentityFromContext(r.Context()); ok {
		return identity.OperatorID
	}
	return 0
}
