package cleanup

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"testing"
	"time"

	"github.com/Nikhil-ig/group-assistant-v3-sub000/internal/domain/enums"
	"github.com/Nikhil-ig/group-assistant-v3-sub000/internal/domain/model"
)

var sweepNow = time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)

type fakeLogStore struct {
	records   []model.ActionLogRecord
	listErr   error
	deleteErr error
}

func (s *fakeLogStore) ListOlderThan(_ context.Context, cutoff time.Time, limit int) ([]model.ActionLogRecord, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var aged []model.ActionLogRecord
	for _, rec := range s.records {
		if rec.ExecutedAt.Before(cutoff) {
			aged = append(aged, rec)
		}
	}
	sort.Slice(aged, func(i, j int) bool { return aged[i].ExecutedAt.Before(aged[j].ExecutedAt) })
	if len(aged) > limit {
		aged = aged[:limit]
	}
	return aged, nil
}

func (s *fakeLogStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	if s.deleteErr != nil {
		return 0, s.deleteErr
	}
	var kept []model.ActionLogRecord
	var deleted int64
	for _, rec := range s.records {
		if rec.ExecutedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, rec)
	}
	s.records = kept
	return deleted, nil
}

type fakeArchiver struct {
	objects map[string][]byte
	putErr  error
}

func (a *fakeArchiver) PutArchive(_ context.Context, key string, body io.Reader, _ int64) error {
	if a.putErr != nil {
		return a.putErr
	}
	if a.objects == nil {
		a.objects = map[string][]byte{}
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	a.objects[key] = data
	return nil
}

func logRecord(id string, age time.Duration) model.ActionLogRecord {
	return model.ActionLogRecord{
		ActionID:   id,
		ActionType: enums.ActionBan,
		GroupID:    -1,
		Status:     enums.ActionStatusSuccess,
		Success:    true,
		ExecutedAt: sweepNow.Add(-age),
	}
}

func TestRunDeletesOnlyAgedRows(t *testing.T) {
	store := &fakeLogStore{records: []model.ActionLogRecord{
		logRecord("old-1", 91*24*time.Hour),
		logRecord("old-2", 100*24*time.Hour),
		logRecord("fresh", 10*24*time.Hour),
	}}

	job := NewRetentionJob(store, 90*24*time.Hour, nil)
	job.now = func() time.Time { return sweepNow }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run sweep: %v", err)
	}

	if len(store.records) != 1 || store.records[0].ActionID != "fresh" {
		t.Fatalf("expected only the fresh row to remain, got %+v", store.records)
	}
}

func TestRunArchivesBeforeDeleting(t *testing.T) {
	store := &fakeLogStore{records: []model.ActionLogRecord{
		logRecord("old-1", 91*24*time.Hour),
		logRecord("old-2", 100*24*time.Hour),
	}}
	arch := &fakeArchiver{}

	job := NewRetentionJob(store, 90*24*time.Hour, nil)
	job.now = func() time.Time { return sweepNow }
	job.AttachArchiver(arch)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run sweep: %v", err)
	}

	if len(store.records) != 0 {
		t.Fatalf("expected aged rows deleted, got %+v", store.records)
	}
	if len(arch.objects) != 1 {
		t.Fatalf("expected one archive object, got %d", len(arch.objects))
	}

	for key, data := range arch.objects {
		var ids []string
		scanner := bufio.NewScanner(bytes.NewReader(data))
		for scanner.Scan() {
			var rec model.ActionLogRecord
			if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
				t.Fatalf("archive line in %s is not valid json: %v", key, err)
			}
			ids = append(ids, rec.ActionID)
		}
		if len(ids) != 2 {
			t.Fatalf("expected 2 archived lines, got %v", ids)
		}
	}
}

func TestRunArchiveFailureAbortsDeletion(t *testing.T) {
	store := &fakeLogStore{records: []model.ActionLogRecord{
		logRecord("old-1", 91*24*time.Hour),
	}}
	arch := &fakeArchiver{putErr: fmt.Errorf("bucket unavailable")}

	job := NewRetentionJob(store, 90*24*time.Hour, nil)
	job.now = func() time.Time { return sweepNow }
	job.AttachArchiver(arch)

	if err := job.Run(context.Background()); err == nil {
		t.Fatalf("expected the sweep to fail")
	}
	if len(store.records) != 1 {
		t.Fatalf("no row may be deleted when archiving fails, got %+v", store.records)
	}
}

func TestRunDoesNotRearchiveBoundaryRows(t *testing.T) {
	store := &fakeLogStore{records: []model.ActionLogRecord{
		logRecord("old-a", 100*24*time.Hour),
		logRecord("old-b", 95*24*time.Hour),
		logRecord("old-c", 95*24*time.Hour),
		logRecord("old-d", 92*24*time.Hour),
	}}
	arch := &fakeArchiver{}

	job := NewRetentionJob(store, 90*24*time.Hour, nil)
	job.now = func() time.Time { return sweepNow }
	job.limit = 2
	job.AttachArchiver(arch)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run sweep: %v", err)
	}

	archived := map[string]int{}
	for key, data := range arch.objects {
		scanner := bufio.NewScanner(bytes.NewReader(data))
		for scanner.Scan() {
			var rec model.ActionLogRecord
			if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
				t.Fatalf("archive line in %s is not valid json: %v", key, err)
			}
			archived[rec.ActionID]++
		}
	}
	for id, n := range archived {
		if n > 1 {
			t.Fatalf("row %s archived %d times", id, n)
		}
	}
	for _, id := range []string{"old-a", "old-b", "old-c"} {
		if archived[id] != 1 {
			t.Fatalf("expected %s archived exactly once, got %v", id, archived)
		}
	}
}

func TestRunPagesThroughLargeBacklogs(t *testing.T) {
	store := &fakeLogStore{}
	for i := 0; i < 5; i++ {
		store.records = append(store.records, logRecord(
			fmt.Sprintf("old-%d", i),
			time.Duration(91+i)*24*time.Hour,
		))
	}
	arch := &fakeArchiver{}

	job := NewRetentionJob(store, 90*24*time.Hour, nil)
	job.now = func() time.Time { return sweepNow }
	job.limit = 2
	job.AttachArchiver(arch)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run sweep: %v", err)
	}

	if len(store.records) != 0 {
		t.Fatalf("expected the whole backlog deleted, got %+v", store.records)
	}
	if len(arch.objects) < 2 {
		t.Fatalf("expected multiple archive parts, got %v", len(arch.objects))
	}
}
