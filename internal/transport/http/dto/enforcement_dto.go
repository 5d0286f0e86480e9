package dto

// ActionRequest is the body of the typed enforcement endpoints; the action
// type comes from the route. Escalate, NotifyUser and LogAction default to
// true when absent.
type ActionRequest struct {
	UserID          int64          `json:"user_id,omitempty"`
	MessageID       int64          `json:"message_id,omitempty"`
	DurationMinutes int            `json:"duration_minutes,omitempty"`
	Reason          string         `json:"reason,omitempty"`
	Escalate        *bool          `json:"escalate,omitempty"`
	NotifyUser      *bool          `json:"notify_user,omitempty"`
	LogAction       *bool          `json:"log_action,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// ExecuteRequest carries the action type in the body for the generic
// execute endpoint.
type ExecuteRequest struct {
	ActionType string `json:"action_type"`
	ActionRequest
}

type BatchRequest struct {
	Actions     []ExecuteRequest `json:"actions"`
	Concurrent  *bool            `json:"concurrent,omitempty"`
	StopOnError bool             `json:"stop_on_error,omitempty"`
}
