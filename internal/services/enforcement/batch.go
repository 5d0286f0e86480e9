package enforcement

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/Nikhil-ig/group-assistant-v3-sub000/internal/domain/model"
)

// ExecuteBatch runs a set of independent actions and reports per-action
// results in input order. stopOnError only applies to sequential execution.
func (e *Engine) ExecuteBatch(ctx context.Context, actions []model.EnforcementAction, concurrently, stopOnError bool) model.BatchActionResponse {
	start := e.now().UTC()
	resp := model.BatchActionResponse{
		BatchID:      uuid.NewString(),
		TotalActions: len(actions),
		Results:      []model.ActionResponse{},
	}

	if concurrently {
		results := make([]model.ActionResponse, len(actions))
		var wg sync.WaitGroup
		for i, action := range actions {
			wg.Add(1)
			go func(i int, action model.EnforcementAction) {
				defer wg.Done()
				results[i] = e.ExecuteAction(ctx, action)
			}(i, action)
		}
		wg.Wait()
		resp.Results = results
	} else {
		for _, action := range actions {
			result := e.ExecuteAction(ctx, action)
			resp.Results = append(resp.Results, result)
			if stopOnError && !result.Success {
				break
			}
		}
	}

	for _, result := range resp.Results {
		if result.Success {
			resp.Successful++
		} else {
			resp.Failed++
		}
	}
	resp.ExecutionTimeMS = e.elapsedMS(start)

	return resp
}
