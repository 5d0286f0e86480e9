package cleanup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/Nikhil-ig/group-assistant-v3-sub000/internal/domain/model"
)

const archiveBatchLimit = 1000

type actionLogStore interface {
	ListOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]model.ActionLogRecord, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type archiver interface {
	PutArchive(ctx context.Context, key string, body io.Reader, size int64) error
}

// Job removes action-log rows past the retention window. With an archiver
// attached, every batch is written out as a JSON-lines object before any
// row is deleted; an archive failure aborts the run so nothing is lost.
type Job struct {
	logs      actionLogStore
	archiver  archiver
	retention time.Duration
	limit     int
	now       func() time.Time
	logger    *zap.Logger
}

func NewRetentionJob(logs actionLogStore, retention time.Duration, logger *zap.Logger) *Job {
	if retention <= 0 {
		retention = 90 * 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Job{
		logs:      logs,
		retention: retention,
		limit:     archiveBatchLimit,
		now:       time.Now,
		logger:    logger,
	}
}

func (j *Job) AttachArchiver(a archiver) {
	j.archiver = a
}

func (j *Job) Run(ctx context.Context) error {
	if j.logs == nil {
		return nil
	}

	cutoff := j.now().UTC().Add(-j.retention)

	if j.archiver == nil {
		deleted, err := j.logs.DeleteOlderThan(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("delete aged action logs: %w", err)
		}
		if deleted > 0 {
			j.logger.Info("retention sweep completed", zap.Int64("deleted", deleted))
		}
		return nil
	}

	var totalDeleted int64
	var boundary map[string]struct{}
	for part := 1; ; part++ {
		listed, err := j.logs.ListOlderThan(ctx, cutoff, j.limit)
		if err != nil {
			return fmt.Errorf("list aged action logs: %w", err)
		}
		if len(listed) == 0 {
			break
		}

		// Rows sharing the previous page's boundary timestamp survive the
		// strict-cutoff delete and are listed again; skip the ones that
		// part already archived.
		records := listed
		if len(boundary) > 0 {
			records = make([]model.ActionLogRecord, 0, len(listed))
			for _, rec := range listed {
				if _, dup := boundary[rec.ActionID]; !dup {
					records = append(records, rec)
				}
			}
		}

		if len(records) > 0 {
			key := archiveKey(cutoff, part)
			if err := j.archive(ctx, key, records); err != nil {
				return fmt.Errorf("archive aged action logs: %w", err)
			}
		}

		// A full listing means more aged rows exist past the page; only
		// delete up to the last archived row so nothing unarchived goes.
		deleteCutoff := cutoff
		boundary = nil
		if len(listed) == j.limit {
			deleteCutoff = listed[len(listed)-1].ExecutedAt
			boundary = make(map[string]struct{})
			for _, rec := range listed {
				if rec.ExecutedAt.Equal(deleteCutoff) {
					boundary[rec.ActionID] = struct{}{}
				}
			}
		}
		deleted, err := j.logs.DeleteOlderThan(ctx, deleteCutoff)
		if err != nil {
			return fmt.Errorf("delete aged action logs: %w", err)
		}
		totalDeleted += deleted

		if len(listed) < j.limit || deleted == 0 {
			break
		}
	}

	if totalDeleted > 0 {
		j.logger.Info("retention sweep completed", zap.Int64("deleted", totalDeleted))
	}
	return nil
}

// RunEvery drives the sweep on a fixed interval until the context ends.
func (j *Job) RunEvery(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 6 * time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				j.logger.Error("retention sweep failed", zap.Error(err))
			}
		}
	}
}

func (j *Job) archive(ctx context.Context, key string, records []model.ActionLogRecord) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("encode action log %s: %w", rec.ActionID, err)
		}
	}

	return j.archiver.PutArchive(ctx, key, &buf, int64(buf.Len()))
}

func archiveKey(cutoff time.Time, part int) string {
	if part <= 1 {
		return fmt.Sprintf("action-logs/%s.jsonl", cutoff.Format("2006-01-02"))
	}
	return fmt.Sprintf("action-logs/%s-%03d.jsonl", cutoff.Format("2006-01-02"), part)
}
