package model

import (
	"time"

	"github.com/Nikhil-ig/group-assistant-v3-sub000/internal/domain/enums"
)

// EnforcementAction is a declarative moderation intent. It is immutable
// once constructed; the engine never writes back into it.
type EnforcementAction struct {
	ActionType      enums.ActionType `json:"action_type"`
	GroupID         int64            `json:"group_id"`
	UserID          int64            `json:"user_id,omitempty"`
	MessageID       int64            `json:"message_id,omitempty"`
	DurationMinutes int              `json:"duration_minutes,omitempty"`
	Reason          string           `json:"reason,omitempty"`
	InitiatedBy     int64            `json:"initiated_by"`
	Escalate        bool             `json:"escalate"`
	NotifyUser      bool             `json:"notify_user"`
	LogAction       bool             `json:"log_action"`
	Metadata        map[string]any   `json:"metadata,omitempty"`
}

// ActionResponse is the structured outcome of one ExecuteAction call.
// ActionID is fresh per call, not per logical action.
type ActionResponse struct {
	ActionID        string             `json:"action_id"`
	ActionType      enums.ActionType   `json:"action_type"`
	GroupID         int64              `json:"group_id"`
	UserID          int64              `json:"user_id,omitempty"`
	Status          enums.ActionStatus `json:"status"`
	Success         bool               `json:"success"`
	Message         string             `json:"message"`
	Error           string             `json:"error,omitempty"`
	Timestamp       time.Time          `json:"timestamp"`
	ExecutionTimeMS float64            `json:"execution_time_ms"`
	RetryCount      int                `json:"retry_count"`
	APIResponse     map[string]any     `json:"api_response,omitempty"`
}

// ActionLogRecord is the persisted, append-only form of an ActionResponse.
type ActionLogRecord struct {
	ActionID        string             `json:"action_id"`
	ActionType      enums.ActionType   `json:"action_type"`
	GroupID         int64              `json:"group_id"`
	UserID          int64              `json:"user_id,omitempty"`
	InitiatedBy     int64              `json:"initiated_by"`
	Status          enums.ActionStatus `json:"status"`
	Success         bool               `json:"success"`
	Message         string             `json:"message"`
	Error           string             `json:"error,omitempty"`
	Reason          string             `json:"reason,omitempty"`
	ExecutedAt      time.Time          `json:"executed_at"`
	ExecutionTimeMS float64            `json:"execution_time_ms"`
	RetryCount      int                `json:"retry_count"`
	APIResponse     map[string]any     `json:"api_response,omitempty"`
	Metadata        map[string]any     `json:"metadata,omitempty"`
}

type BatchActionResponse struct {
	BatchID         string           `json:"batch_id"`
	TotalActions    int              `json:"total_actions"`
	Successful      int              `json:"successful"`
	Failed          int              `json:"failed"`
	Results         []ActionResponse `json:"results"`
	ExecutionTimeMS float64          `json:"execution_time_ms"`
}

type EnforcementStats struct {
	GroupID                int64            `json:"group_id"`
	TotalActions           int              `json:"total_actions"`
	SuccessfulActions      int              `json:"successful_actions"`
	FailedActions          int              `json:"failed_actions"`
	ByType                 map[string]int   `json:"by_type"`
	ByStatus               map[string]int   `json:"by_status"`
	AverageExecutionTimeMS float64          `json:"average_execution_time_ms"`
	PeriodStart            time.Time        `json:"period_start"`
	PeriodEnd              time.Time        `json:"period_end"`
}
