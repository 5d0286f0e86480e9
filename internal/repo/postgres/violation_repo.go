package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Nikhil-ig/group-assistant-v3-sub000/internal/domain/enums"
	"github.com/Nikhil-ig/group-assistant-v3-sub000/internal/domain/model"
)

var ErrViolationRecordNotFound = errors.New("violation record not found")

type ViolationRepo struct {
	pool *pgxpool.Pool
}

func NewViolationRepo(pool *pgxpool.Pool) *ViolationRepo {
	return &ViolationRepo{pool: pool}
}

// RecordViolation appends one violation entry and increments the counter in
// a single upsert, so concurrent batches cannot lose updates. It returns the
// new violation count.
func (r *ViolationRepo) RecordViolation(ctx context.Context, userID, groupID int64, entry model.ViolationEntry) (int, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}
	if userID <= 0 || groupID == 0 {
		return 0, fmt.Errorf("invalid violation payload")
	}
	if !entry.Type.Valid() {
		return 0, fmt.Errorf("invalid violation type %q", entry.Type)
	}

	entryJSON, err := json.Marshal(entry)
	if err != nil {
		return 0, fmt.Errorf("marshal violation entry: %w", err)
	}

	var count int
	if err := r.pool.QueryRow(ctx, `
INSERT INTO user_violations (
	user_id,
	group_id,
	violation_count,
	violations,
	current_level,
	escalation_policy,
	last_violation_time,
	created_at,
	updated_at
) VALUES ($1, $2, 1, jsonb_build_array($3::jsonb), $4, $5, $6, NOW(), NOW())
ON CONFLICT (user_id, group_id) DO UPDATE SET
	violation_count = user_violations.violation_count + 1,
	violations = user_violations.violations || $3::jsonb,
	last_violation_time = $6,
	updated_at = NOW()
RETURNING violation_count
`,
		userID,
		groupID,
		entryJSON,
		string(enums.LevelWarning),
		string(enums.EscalationAccumulate),
		entry.Timestamp,
	).Scan(&count); err != nil {
		return 0, fmt.Errorf("record violation: %w", err)
	}

	return count, nil
}

func (r *ViolationRepo) Get(ctx context.Context, userID, groupID int64) (model.ViolationRecord, error) {
	if r.pool == nil {
		return model.ViolationRecord{}, fmt.Errorf("postgres pool is nil")
	}
	if userID <= 0 || groupID == 0 {
		return model.ViolationRecord{}, fmt.Errorf("invalid violation lookup")
	}

	var rec model.ViolationRecord
	var level, policy string
	var violations []byte
	err := r.pool.QueryRow(ctx, `
SELECT user_id, group_id, violation_count, violations, current_level,
	escalation_policy, last_violation_time, created_at, updated_at
FROM user_violations
WHERE user_id = $1 AND group_id = $2
`, userID, groupID).Scan(
		&rec.UserID,
		&rec.GroupID,
		&rec.ViolationCount,
		&violations,
		&level,
		&policy,
		&rec.LastViolationTime,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.ViolationRecord{}, ErrViolationRecordNotFound
	}
	if err != nil {
		return model.ViolationRecord{}, fmt.Errorf("get violation record: %w", err)
	}

	rec.CurrentLevel = enums.EnforcementLevel(level)
	rec.EscalationPolicy = enums.EscalationPolicy(policy)
	if len(violations) > 0 {
		if err := json.Unmarshal(violations, &rec.Violations); err != nil {
			return model.ViolationRecord{}, fmt.Errorf("unmarshal violations: %w", err)
		}
	}

	return rec, nil
}

// SetLevel records the enforcement level reached by an escalation milestone.
func (r *ViolationRepo) SetLevel(ctx context.Context, userID, groupID int64, level enums.EnforcementLevel) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if userID <= 0 || groupID == 0 {
		return fmt.Errorf("invalid violation lookup")
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE user_violations
SET current_level = $3, updated_at = NOW()
WHERE user_id = $1 AND group_id = $2
`, userID, groupID, string(level))
	if err != nil {
		return fmt.Errorf("set enforcement level: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrViolationRecordNotFound
	}

	return nil
}
