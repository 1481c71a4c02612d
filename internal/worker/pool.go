package worker

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"backend/internal/repository"
)

// NotificationTask represents a pending push-notification delivery
type NotificationTask struct {
	NotificationID uint
	UserID         uint
}

// Pool manages a pool of workers delivering notifications asynchronously.
// State transitions commit first; delivery happens here afterwards, so a
// slow or failing delivery path never rolls back an approval.
type Pool struct {
	jobs         chan NotificationTask
	workerCount  int
	postgresRepo *repository.PostgresRepository
	redisRepo    *repository.RedisRepository
	wg           sync.WaitGroup
	ctx          context.Context
	cancel       context.CancelFunc
	metrics      *PoolMetrics

	// Guards jobs against a Submit racing the close in Shutdown: senders
	// hold the read lock, Shutdown closes under the write lock
	closeMu sync.RWMutex
	closed  bool
}

// PoolMetrics tracks worker pool performance
type PoolMetrics struct {
	mu              sync.RWMutex
	processed       int64
	failed          int64
	backpressure    int64
	totalProcessing time.Duration
}

// NewPool creates a new notification dispatch pool. redisRepo may be nil,
// in which case the unread/version bump is skipped.
func NewPool(workerCount, queueSize int, postgresRepo *repository.PostgresRepository, redisRepo *repository.RedisRepository) *Pool {
	ctx, cancel := context.WithCancel(context.Background())

	return &Pool{
		jobs:         make(chan NotificationTask, queueSize),
		workerCount:  workerCount,
		postgresRepo: postgresRepo,
		redisRepo:    redisRepo,
		ctx:          ctx,
		cancel:       cancel,
		metrics:      &PoolMetrics{},
	}
}

// Start initializes and starts all worker goroutines
func (p *Pool) Start() {
	log.Printf("Starting notification pool with %d workers and queue size %d", p.workerCount, cap(p.jobs))

	for i := 1; i <= p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// worker is the main worker loop that processes jobs
func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			log.Printf("Notification worker #%d shutting down", id)
			return

		case task, ok := <-p.jobs:
			if !ok {
				return
			}
			p.processTask(id, task)
		}
	}
}

// processTask delivers a single notification with error recovery
func (p *Pool) processTask(workerID int, task NotificationTask) {
	// Recover from panics to prevent worker crash
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Worker #%d PANIC recovered: %v (notification %d)", workerID, r, task.NotificationID)
			p.metrics.incrementFailed()
		}
	}()

	startTime := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if p.redisRepo != nil {
		if err := p.redisRepo.NotifyDelivered(ctx, task.UserID); err != nil {
			log.Printf("Worker #%d failed to push notification %d: %v", workerID, task.NotificationID, err)
			if markErr := p.postgresRepo.MarkNotificationFailed(ctx, task.NotificationID, err.Error()); markErr != nil {
				log.Printf("Worker #%d failed to record delivery failure for %d: %v", workerID, task.NotificationID, markErr)
			}
			p.metrics.incrementFailed()
			return
		}
	}

	if err := p.postgresRepo.MarkNotificationDelivered(ctx, task.NotificationID); err != nil {
		log.Printf("Worker #%d failed to mark notification %d delivered: %v", workerID, task.NotificationID, err)
		p.metrics.incrementFailed()
		return
	}

	p.metrics.recordSuccess(time.Since(startTime))
}

// Submit attempts to queue a task with backpressure handling. A full
// queue drops the task; the reconciler picks the row up later because it
// stays undelivered in the database. Submissions arriving after Shutdown
// started are rejected the same way.
func (p *Pool) Submit(task NotificationTask) error {
	p.closeMu.RLock()
	defer p.closeMu.RUnlock()

	if p.closed {
		return fmt.Errorf("notification pool is shut down")
	}

	select {
	case p.jobs <- task:
		return nil

	default:
		log.Printf("Backpressure: notification queue full, deferring notification %d to reconciler", task.NotificationID)
		p.metrics.incrementBackpressure()
		return fmt.Errorf("notification pool queue full (backpressure)")
	}
}

// Shutdown gracefully stops the worker pool, flushing queued deliveries
func (p *Pool) Shutdown(timeout time.Duration) error {
	log.Printf("Shutting down notification pool...")

	// Close the job channel to signal no more jobs will be added. The
	// write lock excludes in-flight Submits so none can send on the
	// closed channel.
	p.closeMu.Lock()
	p.closed = true
	close(p.jobs)
	p.closeMu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.printMetrics()
		return nil

	case <-time.After(timeout):
		p.cancel() // Force cancel remaining operations
		return fmt.Errorf("shutdown timeout exceeded")
	}
}

// GetMetrics returns a snapshot of the pool metrics
func (p *Pool) GetMetrics() map[string]interface{} {
	p.metrics.mu.RLock()
	defer p.metrics.mu.RUnlock()

	avgProcessing := time.Duration(0)
	if p.metrics.processed > 0 {
		avgProcessing = p.metrics.totalProcessing / time.Duration(p.metrics.processed)
	}

	return map[string]interface{}{
		"processed":           p.metrics.processed,
		"failed":              p.metrics.failed,
		"backpressure_events": p.metrics.backpressure,
		"avg_processing_time": avgProcessing.String(),
		"queue_utilization":   fmt.Sprintf("%d/%d", len(p.jobs), cap(p.jobs)),
	}
}

// printMetrics logs the final metrics
func (p *Pool) printMetrics() {
	metrics := p.GetMetrics()
	log.Printf("Notification pool metrics: processed=%v failed=%v backpressure=%v avg=%v",
		metrics["processed"], metrics["failed"], metrics["backpressure_events"], metrics["avg_processing_time"])
}

// Metrics helper methods
func (pm *PoolMetrics) recordSuccess(duration time.Duration) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.processed++
	pm.totalProcessing += duration
}

func (pm *PoolMetrics) incrementFailed() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.failed++
}

func (pm *PoolMetrics) incrementBackpressure() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.backpressure++
}
