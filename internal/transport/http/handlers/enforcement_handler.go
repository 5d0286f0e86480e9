package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/Nikhil-ig/group-assistant-v3-sub000/internal/domain/enums"
	"github.com/Nikhil-ig/group-assistant-v3-sub000/internal/domain/model"
	authsvc "github.com/Nikhil-ig/group-assistant-v3-sub000/internal/services/auth"
	enfsvc "github.com/Nikhil-ig/group-assistant-v3-sub000/internal/services/enforcement"
	permsvc "github.com/Nikhil-ig/group-assistant-v3-sub000/internal/services/permissions"
	"github.com/Nikhil-ig/group-assistant-v3-sub000/internal/transport/http/dto"
	httperrors "github.com/Nikhil-ig/group-assistant-v3-sub000/internal/transport/http/errors"
)

const maxBatchActions = 100

type EnforcementHandler struct {
	engine      *enfsvc.Engine
	permissions *permsvc.Service
}

func NewEnforcementHandler(engine *enfsvc.Engine, permissions *permsvc.Service) *EnforcementHandler {
	return &EnforcementHandler{engine: engine, permissions: permissions}
}

// Typed builds the handler for a route bound to one action type.
func (h *EnforcementHandler) Typed(actionType enums.ActionType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		groupID, err := pathID(r, "groupID")
		if err != nil {
			writeBadRequest(w, "INVALID_GROUP_ID", "group id must be an integer")
			return
		}

		var req dto.ActionRequest
		if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
			writeBadRequest(w, "INVALID_REQUEST", "request body is not valid json")
			return
		}

		h.execute(w, r, actionType, groupID, req)
	}
}

// Execute accepts the action type in the body.
func (h *EnforcementHandler) Execute(w http.ResponseWriter, r *http.Request) {
	groupID, err := pathID(r, "groupID")
	if err != nil {
		writeBadRequest(w, "INVALID_GROUP_ID", "group id must be an integer")
		return
	}

	var req dto.ExecuteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "request body is not valid json")
		return
	}

	actionType, err := enums.ParseActionType(req.ActionType)
	if err != nil {
		writeBadRequest(w, "UNKNOWN_ACTION_TYPE", err.Error())
		return
	}

	h.execute(w, r, actionType, groupID, req.ActionRequest)
}

func (h *EnforcementHandler) execute(w http.ResponseWriter, r *http.Request, actionType enums.ActionType, groupID int64, req dto.ActionRequest) {
	if h.engine == nil {
		writeInternal(w, "ENFORCEMENT_UNAVAILABLE", "enforcement engine is unavailable")
		return
	}

	action := h.buildAction(r.Context(), actionType, groupID, req)
	resp := h.engine.ExecuteAction(r.Context(), action)
	h.syncPermissions(r.Context(), action, resp)

	httperrors.Write(w, http.StatusOK, resp)
}

func (h *EnforcementHandler) Batch(w http.ResponseWriter, r *http.Request) {
	if h.engine == nil {
		writeInternal(w, "ENFORCEMENT_UNAVAILABLE", "enforcement engine is unavailable")
		return
	}

	groupID, err := pathID(r, "groupID")
	if err != nil {
		writeBadRequest(w, "INVALID_GROUP_ID", "group id must be an integer")
		return
	}

	var req dto.BatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "request body is not valid json")
		return
	}
	if len(req.Actions) == 0 {
		writeBadRequest(w, "EMPTY_BATCH", "batch contains no actions")
		return
	}
	if len(req.Actions) > maxBatchActions {
		writeBadRequest(w, "BATCH_TOO_LARGE", "batch exceeds "+strconv.Itoa(maxBatchActions)+" actions")
		return
	}

	actions := make([]model.EnforcementAction, 0, len(req.Actions))
	for _, item := range req.Actions {
		// Unknown types become per-action failures instead of
		// rejecting the whole batch.
		actionType := enums.ActionType(strings.ToLower(strings.TrimSpace(item.ActionType)))
		actions = append(actions, h.buildAction(r.Context(), actionType, groupID, item.ActionRequest))
	}

	resp := h.engine.ExecuteBatch(r.Context(), actions, boolOrDefault(req.Concurrent, true), req.StopOnError)
	httperrors.Write(w, http.StatusOK, resp)
}

func (h *EnforcementHandler) Violations(w http.ResponseWriter, r *http.Request) {
	if h.engine == nil {
		writeInternal(w, "ENFORCEMENT_UNAVAILABLE", "enforcement engine is unavailable")
		return
	}

	groupID, err := pathID(r, "groupID")
	if err != nil {
		writeBadRequest(w, "INVALID_GROUP_ID", "group id must be an integer")
		return
	}
	userID, err := pathID(r, "userID")
	if err != nil || userID <= 0 {
		writeBadRequest(w, "INVALID_USER_ID", "user id must be a positive integer")
		return
	}

	httperrors.Write(w, http.StatusOK, h.engine.GetUserViolations(r.Context(), userID, groupID))
}

func (h *EnforcementHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if h.engine == nil {
		writeInternal(w, "ENFORCEMENT_UNAVAILABLE", "enforcement engine is unavailable")
		return
	}

	groupID, err := pathID(r, "groupID")
	if err != nil {
		writeBadRequest(w, "INVALID_GROUP_ID", "group id must be an integer")
		return
	}

	windowHours := 0
	if raw := r.URL.Query().Get("window_hours"); raw != "" {
		windowHours, err = strconv.Atoi(raw)
		if err != nil || windowHours < 0 {
			writeBadRequest(w, "INVALID_WINDOW", "window_hours must be a non-negative integer")
			return
		}
	}

	stats, err := h.engine.GetEnforcementStats(r.Context(), groupID, windowHours)
	if err != nil {
		writeInternal(w, "STATS_UNAVAILABLE", "failed to aggregate enforcement stats")
		return
	}

	httperrors.Write(w, http.StatusOK, stats)
}

func (h *EnforcementHandler) buildAction(ctx context.Context, actionType enums.ActionType, groupID int64, req dto.ActionRequest) model.EnforcementAction {
	var initiatedBy int64
	if identity, ok := authsvc.IdentityFromContext(ctx); ok {
		initiatedBy = identity.OperatorID
	}

	return model.EnforcementAction{
		ActionType:      actionType,
		GroupID:         groupID,
		UserID:          req.UserID,
		MessageID:       req.MessageID,
		DurationMinutes: req.DurationMinutes,
		Reason:          req.Reason,
		InitiatedBy:     initiatedBy,
		Escalate:        boolOrDefault(req.Escalate, true),
		NotifyUser:      boolOrDefault(req.NotifyUser, true),
		LogAction:       boolOrDefault(req.LogAction, true),
		Metadata:        req.Metadata,
	}
}

// syncPermissions keeps the permission tiers aligned with actions that
// change member capabilities. The cache path never fails outward.
func (h *EnforcementHandler) syncPermissions(ctx context.Context, action model.EnforcementAction, resp model.ActionResponse) {
	if h.permissions == nil || !resp.Success {
		return
	}

	switch action.ActionType {
	case enums.ActionMute:
		h.permissions.Save(ctx, action.GroupID, action.UserID, model.PermissionFlags{}, action.InitiatedBy, action.Reason)
	case enums.ActionUnmute:
		h.permissions.Save(ctx, action.GroupID, action.UserID, model.AllAllowed(), action.InitiatedBy, action.Reason)
	case enums.ActionLockdown:
		h.permissions.InvalidateGroup(ctx, action.GroupID)
	}
}
