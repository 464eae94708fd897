package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	formsapp "github.com/crmsync/backend/internal/application/forms"
)

// ---------------------------------------------------------------------------
// QueueWorkerConfig
// ---------------------------------------------------------------------------

// QueueWorkerConfig holds configuration for the queue retry worker
type QueueWorkerConfig struct {
	// RetryInterval is how often pending queue items are re-driven
	RetryInterval time.Duration

	// RetryBatchSize bounds how many items one pass picks up
	RetryBatchSize int
}

// DefaultQueueWorkerConfig returns default configuration
func DefaultQueueWorkerConfig() QueueWorkerConfig {
	return QueueWorkerConfig{
		RetryInterval:  5 * time.Minute,
		RetryBatchSize: 50,
	}
}

// ---------------------------------------------------------------------------
// QueueWorker
// ---------------------------------------------------------------------------

// QueueWorker re-drives pending form queue items in the background.
// Items land in the queue when the synchronous delivery attempt at
// submission time could not complete, so the worker is what turns the
// queue into an actual retry mechanism. Purging stays operator-driven
// through the admin API.
type QueueWorker struct {
	config      QueueWorkerConfig
	formService *formsapp.FormService
	logger      *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewQueueWorker creates a new queue retry worker
func NewQueueWorker(config QueueWorkerConfig, formService *formsapp.FormService, logger *zap.Logger) *QueueWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueueWorker{
		config:      config,
		formService: formService,
		logger:      logger,
	}
}

// Start starts the background retry loop
func (w *QueueWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.isRunning {
		w.mu.Unlock()
		return nil
	}
	w.isRunning = true
	w.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.wg.Add(1)
	go w.retryLoop(ctx)

	w.logger.Info("queue worker started",
		zap.Duration("retry_interval", w.config.RetryInterval),
		zap.Int("retry_batch_size", w.config.RetryBatchSize),
	)
	return nil
}

// Stop stops the worker and waits for an in-flight pass to finish
func (w *QueueWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return nil
	}
	w.isRunning = false
	w.mu.Unlock()

	if w.cancel != nil {
		w.cancel()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("queue worker stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *QueueWorker) retryLoop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.RetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.retryPass(ctx)
		}
	}
}

func (w *QueueWorker) retryPass(ctx context.Context) {
	processed, err := w.formService.ProcessPending(ctx, w.config.RetryBatchSize)
	if err != nil {
		w.logger.Warn("queue retry pass failed", zap.Error(err))
		return
	}
	if processed > 0 {
		w.logger.Info("queue retry pass completed", zap.Int("processed", processed))
	}
}
