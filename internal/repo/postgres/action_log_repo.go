package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Nikhil-ig/group-assistant-v3-sub000/internal/domain/enums"
	"github.com/Nikhil-ig/group-assistant-v3-sub000/internal/domain/model"
)

type ActionLogRepo struct {
	pool *pgxpool.Pool
}

func NewActionLogRepo(pool *pgxpool.Pool) *ActionLogRepo {
	return &ActionLogRepo{pool: pool}
}

func (r *ActionLogRepo) Insert(ctx context.Context, rec model.ActionLogRecord) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if rec.ActionID == "" || rec.GroupID == 0 {
		return fmt.Errorf("invalid action log payload")
	}

	apiResponse, err := marshalNullable(rec.APIResponse)
	if err != nil {
		return fmt.Errorf("marshal api response: %w", err)
	}
	metadata, err := marshalNullable(rec.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	if _, err := r.pool.Exec(ctx, `
INSERT INTO action_logs (
	action_id,
	action_type,
	group_id,
	user_id,
	initiated_by,
	status,
	success,
	message,
	error,
	reason,
	executed_at,
	execution_time_ms,
	retry_count,
	api_response,
	metadata,
	created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW())
`,
		rec.ActionID,
		string(rec.ActionType),
		rec.GroupID,
		nullableID(rec.UserID),
		rec.InitiatedBy,
		string(rec.Status),
		rec.Success,
		rec.Message,
		nullableText(rec.Error),
		nullableText(rec.Reason),
		rec.ExecutedAt,
		rec.ExecutionTimeMS,
		rec.RetryCount,
		apiResponse,
		metadata,
	); err != nil {
		return fmt.Errorf("insert action log: %w", err)
	}

	return nil
}

// StatsWindow aggregates the action log for one group within [since, now].
func (r *ActionLogRepo) StatsWindow(ctx context.Context, groupID int64, since time.Time) (model.EnforcementStats, error) {
	if r.pool == nil {
		return model.EnforcementStats{}, fmt.Errorf("postgres pool is nil")
	}
	if groupID == 0 {
		return model.EnforcementStats{}, fmt.Errorf("invalid group id")
	}

	stats := model.EnforcementStats{
		GroupID:  groupID,
		ByType:   map[string]int{},
		ByStatus: map[string]int{},
	}

	var avgMS *float64
	if err := r.pool.QueryRow(ctx, `
SELECT
	COUNT(*),
	COUNT(*) FILTER (WHERE success),
	COUNT(*) FILTER (WHERE NOT success),
	AVG(execution_time_ms)
FROM action_logs
WHERE group_id = $1 AND executed_at >= $2
`, groupID, since).Scan(
		&stats.TotalActions,
		&stats.SuccessfulActions,
		&stats.FailedActions,
		&avgMS,
	); err != nil {
		return model.EnforcementStats{}, fmt.Errorf("aggregate action logs: %w", err)
	}
	if avgMS != nil {
		stats.AverageExecutionTimeMS = *avgMS
	}

	rows, err := r.pool.Query(ctx, `
SELECT action_type, COUNT(*)
FROM action_logs
WHERE group_id = $1 AND executed_at >= $2
GROUP BY action_type
`, groupID, since)
	if err != nil {
		return model.EnforcementStats{}, fmt.Errorf("group action logs by type: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var actionType string
		var count int
		if err := rows.Scan(&actionType, &count); err != nil {
			return model.EnforcementStats{}, fmt.Errorf("scan by-type row: %w", err)
		}
		stats.ByType[actionType] = count
	}
	if err := rows.Err(); err != nil {
		return model.EnforcementStats{}, fmt.Errorf("iterate by-type rows: %w", err)
	}

	statusRows, err := r.pool.Query(ctx, `
SELECT status, COUNT(*)
FROM action_logs
WHERE group_id = $1 AND executed_at >= $2
GROUP BY status
`, groupID, since)
	if err != nil {
		return model.EnforcementStats{}, fmt.Errorf("group action logs by status: %w", err)
	}
	defer statusRows.Close()
	for statusRows.Next() {
		var status string
		var count int
		if err := statusRows.Scan(&status, &count); err != nil {
			return model.EnforcementStats{}, fmt.Errorf("scan by-status row: %w", err)
		}
		stats.ByStatus[status] = count
	}
	if err := statusRows.Err(); err != nil {
		return model.EnforcementStats{}, fmt.Errorf("iterate by-status rows: %w", err)
	}

	return stats, nil
}

// ListOlderThan returns aged rows for archival, oldest first.
func (r *ActionLogRepo) ListOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]model.ActionLogRecord, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if limit <= 0 {
		limit = 1000
	}

	rows, err := r.pool.Query(ctx, `
SELECT action_id, action_type, group_id, COALESCE(user_id, 0), initiated_by,
	status, success, message, COALESCE(error, ''), COALESCE(reason, ''),
	executed_at, execution_time_ms, retry_count, api_response, metadata
FROM action_logs
WHERE executed_at < $1
ORDER BY executed_at ASC
LIMIT $2
`, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("list aged action logs: %w", err)
	}
	defer rows.Close()

	var records []model.ActionLogRecord
	for rows.Next() {
		var rec model.ActionLogRecord
		var actionType, status string
		var apiResponse, metadata []byte
		if err := rows.Scan(
			&rec.ActionID, &actionType, &rec.GroupID, &rec.UserID, &rec.InitiatedBy,
			&status, &rec.Success, &rec.Message, &rec.Error, &rec.Reason,
			&rec.ExecutedAt, &rec.ExecutionTimeMS, &rec.RetryCount, &apiResponse, &metadata,
		); err != nil {
			return nil, fmt.Errorf("scan aged action log: %w", err)
		}
		rec.ActionType = enums.ActionType(actionType)
		rec.Status = enums.ActionStatus(status)
		if len(apiResponse) > 0 {
			_ = json.Unmarshal(apiResponse, &rec.APIResponse)
		}
		if len(metadata) > 0 {
			_ = json.Unmarshal(metadata, &rec.Metadata)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate aged action logs: %w", err)
	}

	return records, nil
}

func (r *ActionLogRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}

	tag, err := r.pool.Exec(ctx, `
DELETE FROM action_logs
WHERE executed_at < $1
`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete aged action logs: %w", err)
	}

	return tag.RowsAffected(), nil
}

func marshalNullable(value map[string]any) ([]byte, error) {
	if len(value) == 0 {
		return nil, nil
	}
	return json.Marshal(value)
}

func nullableID(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}

func nullableText(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
