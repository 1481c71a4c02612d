package jobs

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"backend/internal/repository"
	"backend/internal/worker"
)

// Reconciler sweeps notifications whose delivery failed or was dropped
// under backpressure and re-queues them. Decisions commit before their
// notification goes out, so a crashed or overloaded dispatch path only
// delays delivery; this job closes that gap.
type Reconciler struct {
	repo    *repository.PostgresRepository
	pool    *worker.Pool
	stopCh  chan struct{}
	wg      sync.WaitGroup
	running atomic.Bool

	// Metrics
	sweeps    atomic.Int64
	requeued  atomic.Int64
	startTime time.Time

	// Configuration
	interval    time.Duration
	retryAfter  time.Duration
	maxAttempts int
	batchSize   int
}

// ReconcilerConfig holds configuration for the reconciler
type ReconcilerConfig struct {
	Interval    time.Duration // Default: 30s between sweeps
	RetryAfter  time.Duration // Default: 1m grace before a row is retried
	MaxAttempts int           // Default: 5 delivery attempts per row
	BatchSize   int           // Default: 100 rows per sweep
}

// NewReconciler creates a new notification reconciler
func NewReconciler(repo *repository.PostgresRepository, pool *worker.Pool, config ReconcilerConfig) *Reconciler {
	if config.Interval == 0 {
		config.Interval = 30 * time.Second
	}
	if config.RetryAfter == 0 {
		config.RetryAfter = time.Minute
	}
	if config.MaxAttempts == 0 {
		config.MaxAttempts = 5
	}
	if config.BatchSize == 0 {
		config.BatchSize = 100
	}

	return &Reconciler{
		repo:        repo,
		pool:        pool,
		stopCh:      make(chan struct{}),
		interval:    config.Interval,
		retryAfter:  config.RetryAfter,
		maxAttempts: config.MaxAttempts,
		batchSize:   config.BatchSize,
	}
}

// Start begins the sweep loop
func (rc *Reconciler) Start(ctx context.Context) error {
	if rc.running.Load() {
		return fmt.Errorf("reconciler already running")
	}
	rc.startTime = time.Now()
	rc.running.Store(true)

	log.Printf("Notification reconciler started (interval=%v retryAfter=%v maxAttempts=%d)",
		rc.interval, rc.retryAfter, rc.maxAttempts)

	rc.wg.Add(1)
	go rc.loop(ctx)
	return nil
}

// Stop gracefully stops the reconciler
func (rc *Reconciler) Stop() {
	if !rc.running.Load() {
		return
	}
	rc.running.Store(false)
	close(rc.stopCh)
	rc.wg.Wait()

	log.Printf("Notification reconciler stopped: sweeps=%d requeued=%d uptime=%v",
		rc.sweeps.Load(), rc.requeued.Load(), time.Since(rc.startTime).Round(time.Second))
}

// IsRunning returns whether the reconciler is currently running
func (rc *Reconciler) IsRunning() bool {
	return rc.running.Load()
}

// GetMetrics returns current reconciler metrics
func (rc *Reconciler) GetMetrics() map[string]interface{} {
	return map[string]interface{}{
		"running":  rc.running.Load(),
		"sweeps":   rc.sweeps.Load(),
		"requeued": rc.requeued.Load(),
		"uptime":   time.Since(rc.startTime).String(),
	}
}

// loop is the main sweep loop
func (rc *Reconciler) loop(ctx context.Context) {
	defer rc.wg.Done()

	ticker := time.NewTicker(rc.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-rc.stopCh:
			return
		case <-ticker.C:
			rc.Sweep(ctx)
		}
	}
}

// Sweep re-queues one batch of undelivered notifications. Exported so a
// sweep can also be triggered on demand.
func (rc *Reconciler) Sweep(ctx context.Context) {
	rc.sweeps.Add(1)

	rows, err := rc.repo.UndeliveredNotifications(ctx, rc.retryAfter, rc.maxAttempts, rc.batchSize)
	if err != nil {
		log.Printf("Reconciler sweep failed: %v", err)
		return
	}

	for _, n := range rows {
		if err := rc.pool.Submit(worker.NotificationTask{
			NotificationID: n.ID,
			UserID:         n.UserID,
		}); err != nil {
			// Queue still full; the row stays undelivered for the next sweep
			return
		}
		rc.requeued.Add(1)
	}

	if len(rows) > 0 {
		log.Printf("Reconciler re-queued %d undelivered notifications", len(rows))
	}
}
