package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	formsapp "github.com/crmsync/backend/internal/application/forms"
	"github.com/crmsync/backend/internal/domain/mapping"
	"github.com/crmsync/backend/internal/domain/queue"
	"github.com/crmsync/backend/internal/domain/shared"
)

// listCounter counts List calls so the test can observe retry passes.
// All other repository methods are no-ops: an empty pending set means a
// pass completes without touching the CRM client.
type listCounter struct {
	calls atomic.Int64
}

func (r *listCounter) Save(context.Context, *queue.Item) error                 { return nil }
func (r *listCounter) Update(context.Context, *queue.Item, queue.Status) error { return nil }
func (r *listCounter) FindByID(context.Context, uuid.UUID) (*queue.Item, error) {
	return nil, shared.ErrNotFound
}
func (r *listCounter) List(context.Context, queue.Filter) ([]*queue.Item, error) {
	r.calls.Add(1)
	return nil, nil
}
func (r *listCounter) Stats(context.Context) (*queue.Stats, error) { return &queue.Stats{}, nil }
func (r *listCounter) Purge(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func TestQueueWorker_StartStop(t *testing.T) {
	repo := &listCounter{}
	formService := formsapp.NewFormService(formsapp.FormServiceConfig{
		Items:  repo,
		Engine: mapping.NewEngine(),
	})

	worker := NewQueueWorker(QueueWorkerConfig{
		RetryInterval:  10 * time.Millisecond,
		RetryBatchSize: 5,
	}, formService, nil)

	ctx := context.Background()
	require.NoError(t, worker.Start(ctx))
	// Starting twice is a no-op
	require.NoError(t, worker.Start(ctx))

	assert.Eventually(t, func() bool {
		return repo.calls.Load() >= 2
	}, time.Second, 5*time.Millisecond, "expected periodic retry passes")

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, worker.Stop(stopCtx))

	// No more passes after stop
	settled := repo.calls.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, settled, repo.calls.Load())

	// Stopping twice is a no-op
	require.NoError(t, worker.Stop(stopCtx))
}
