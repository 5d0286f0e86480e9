package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Nikhil-ig/group-assistant-v3-sub000/internal/domain/model"
)

var ErrPermissionStateNotFound = errors.New("permission state not found")

type PermissionRepo struct {
	pool *pgxpool.Pool
}

func NewPermissionRepo(pool *pgxpool.Pool) *PermissionRepo {
	return &PermissionRepo{pool: pool}
}

func (r *PermissionRepo) Get(ctx context.Context, groupID, userID int64) (model.PermissionState, error) {
	if r.pool == nil {
		return model.PermissionState{}, fmt.Errorf("postgres pool is nil")
	}
	if groupID == 0 || userID <= 0 {
		return model.PermissionState{}, fmt.Errorf("invalid permission lookup")
	}

	var state model.PermissionState
	err := r.pool.QueryRow(ctx, `
SELECT group_id, user_id,
	can_send_messages, can_send_other, can_send_audios,
	can_send_documents, can_send_photos, can_send_videos,
	is_restricted, restricted_at, restricted_by,
	COALESCE(restriction_reason, ''), updated_at
FROM permission_states
WHERE group_id = $1 AND user_id = $2
`, groupID, userID).Scan(
		&state.GroupID,
		&state.UserID,
		&state.Flags.CanSendMessages,
		&state.Flags.CanSendOther,
		&state.Flags.CanSendAudios,
		&state.Flags.CanSendDocuments,
		&state.Flags.CanSendPhotos,
		&state.Flags.CanSendVideos,
		&state.IsRestricted,
		&state.RestrictedAt,
		&state.RestrictedBy,
		&state.RestrictionReason,
		&state.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.PermissionState{}, ErrPermissionStateNotFound
	}
	if err != nil {
		return model.PermissionState{}, fmt.Errorf("get permission state: %w", err)
	}

	return state, nil
}

// Upsert overwrites the full row. Merging happens in memory before the
// write; the storage layer never does partial updates.
func (r *PermissionRepo) Upsert(ctx context.Context, state model.PermissionState) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if state.GroupID == 0 || state.UserID <= 0 {
		return fmt.Errorf("invalid permission state payload")
	}

	if _, err := r.pool.Exec(ctx, `
INSERT INTO permission_states (
	group_id, user_id,
	can_send_messages, can_send_other, can_send_audios,
	can_send_documents, can_send_photos, can_send_videos,
	is_restricted, restricted_at, restricted_by, restriction_reason, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
ON CONFLICT (group_id, user_id) DO UPDATE SET
	can_send_messages = EXCLUDED.can_send_messages,
	can_send_other = EXCLUDED.can_send_other,
	can_send_audios = EXCLUDED.can_send_audios,
	can_send_documents = EXCLUDED.can_send_documents,
	can_send_photos = EXCLUDED.can_send_photos,
	can_send_videos = EXCLUDED.can_send_videos,
	is_restricted = EXCLUDED.is_restricted,
	restricted_at = EXCLUDED.restricted_at,
	restricted_by = EXCLUDED.restricted_by,
	restriction_reason = EXCLUDED.restriction_reason,
	updated_at = NOW()
`,
		state.GroupID,
		state.UserID,
		state.Flags.CanSendMessages,
		state.Flags.CanSendOther,
		state.Flags.CanSendAudios,
		state.Flags.CanSendDocuments,
		state.Flags.CanSendPhotos,
		state.Flags.CanSendVideos,
		state.IsRestricted,
		state.RestrictedAt,
		state.RestrictedBy,
		nullableText(state.RestrictionReason),
	); err != nil {
		return fmt.Errorf("upsert permission state: %w", err)
	}

	return nil
}
