package enforcement

import (
	"context"
	"fmt"
	"time"

	"github.com/Nikhil-ig/group-assistant-v3-sub000/internal/domain/model"
)

const defaultStatsWindowHours = 24

// GetEnforcementStats aggregates the group's action log over a trailing
// window. An empty window is a valid all-zero result, not an error.
func (e *Engine) GetEnforcementStats(ctx context.Context, groupID int64, windowHours int) (model.EnforcementStats, error) {
	if e.logs == nil {
		return model.EnforcementStats{}, fmt.Errorf("action log store is nil")
	}
	if windowHours <= 0 {
		windowHours = defaultStatsWindowHours
	}

	end := e.now().UTC()
	since := end.Add(-time.Duration(windowHours) * time.Hour)

	stats, err := e.logs.StatsWindow(ctx, groupID, since)
	if err != nil {
		return model.EnforcementStats{}, fmt.Errorf("aggregate enforcement stats: %w", err)
	}

	stats.GroupID = groupID
	stats.PeriodStart = since
	stats.PeriodEnd = end
	if stats.ByType == nil {
		stats.ByType = map[string]int{}
	}
	if stats.ByStatus == nil {
		stats.ByStatus = map[string]int{}
	}

	return stats, nil
}
