package model

import (
	"time"

	"github.com/Nikhil-ig/group-assistant-v3-sub000/internal/domain/enums"
)

type ViolationEntry struct {
	Type      enums.ActionType `json:"type"`
	Reason    string           `json:"reason,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// ViolationRecord is the single mutable record per (user, group) pair.
// ViolationCount always equals len(Violations).
type ViolationRecord struct {
	UserID            int64                  `json:"user_id"`
	GroupID           int64                  `json:"group_id"`
	ViolationCount    int                    `json:"violation_count"`
	Violations        []ViolationEntry       `json:"violations"`
	CurrentLevel      enums.EnforcementLevel `json:"current_level"`
	EscalationPolicy  enums.EscalationPolicy `json:"escalation_policy"`
	LastViolationTime time.Time              `json:"last_violation_time"`
	CreatedAt         time.Time              `json:"created_at"`
	UpdatedAt         time.Time              `json:"updated_at"`
}

type UserEnforcementHistory struct {
	UserID           int64                  `json:"user_id"`
	GroupID          int64                  `json:"group_id"`
	TotalViolations  int                    `json:"total_violations"`
	RecentViolations []ViolationEntry       `json:"recent_violations"`
	CurrentStatus    string                 `json:"current_status"`
	EscalationLevel  enums.EnforcementLevel `json:"escalation_level"`
	IsBanned         bool                   `json:"is_banned"`
}
