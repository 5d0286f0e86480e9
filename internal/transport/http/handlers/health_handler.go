package handlers

import (
	"net/http"

	httperrors "github.com/Nikhil-ig/group-assistant-v3-sub000/internal/transport/http/errors"
)

type HealthHandler struct{}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

func (h *HealthHandler) Get(w http.ResponseWriter, _ *http.Request) {
	httperrors.Write(w, http.StatusOK, map[string]string{"status": "ok"})
}
