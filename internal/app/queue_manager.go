package app

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/tubetrove-go/internal/domain"
	"github.com/yourusername/tubetrove-go/internal/metrics"
	"github.com/yourusername/tubetrove-go/pkg/logger"
)

// DownloadProcessor runs a single download to completion
type DownloadProcessor interface {
	ProcessDownload(ctx context.Context, download *domain.Download) error
	Announce(download *domain.Download)
}

// QueueManager admits download requests into a bounded queue served by a
// fixed number of workers.
type QueueManager struct {
	repo        domain.DownloadRepository
	processor   DownloadProcessor
	config      *domain.QueueConfig
	workers     int
	multiLogger *logger.MultiLogger

	mu      sync.RWMutex
	running bool
	jobs    chan *domain.Download
	cancel  context.CancelFunc
	group   *errgroup.Group
}

// NewQueueManager creates a new queue manager
func NewQueueManager(
	repo domain.DownloadRepository,
	processor DownloadProcessor,
	config *domain.QueueConfig,
	workers int,
	multiLogger *logger.MultiLogger,
) *QueueManager {
	if workers < 1 {
		workers = 1
	}
	return &QueueManager{
		repo:        repo,
		processor:   processor,
		config:      config,
		workers:     workers,
		multiLogger: multiLogger,
	}
}

// Start launches the workers. They stop when ctx is cancelled or Stop is called.
func (qm *QueueManager) Start(ctx context.Context) error {
	qm.mu.Lock()
	defer qm.mu.Unlock()

	if qm.running {
		return fmt.Errorf("queue manager already running")
	}

	size := qm.config.Size
	if size < 1 {
		size = 1
	}
	qm.jobs = make(chan *domain.Download, size)

	ctx, cancel := context.WithCancel(ctx)
	qm.cancel = cancel
	qm.group, ctx = errgroup.WithContext(ctx)
	for i := 0; i < qm.workers; i++ {
		jobs := qm.jobs
		qm.group.Go(func() error {
			qm.work(ctx, jobs)
			return nil
		})
	}
	qm.running = true

	qm.multiLogger.LogDownloadEvent("queue_started",
		zap.Int("workers", qm.workers),
		zap.Int("size", size))
	return nil
}

// Stop cancels in-flight downloads, waits for the workers and fails every
// request still waiting in the queue.
func (qm *QueueManager) Stop() error {
	qm.mu.Lock()
	if !qm.running {
		qm.mu.Unlock()
		return fmt.Errorf("queue manager not running")
	}
	qm.running = false
	jobs := qm.jobs
	close(jobs)
	qm.cancel()
	qm.mu.Unlock()

	err := qm.group.Wait()

	for d := range jobs {
		qm.abandon(d)
	}
	metrics.QueueDepth.Set(0)

	qm.multiLogger.LogDownloadEvent("queue_stopped")
	return err
}

// IsRunning returns whether the queue manager is running
func (qm *QueueManager) IsRunning() bool {
	qm.mu.RLock()
	defer qm.mu.RUnlock()
	return qm.running
}

// Submit validates a request, records it and puts it on the queue. A full
// queue rejects the request with ErrQueueFull instead of blocking.
func (qm *QueueManager) Submit(req domain.DownloadRequest) (*domain.Download, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	qm.mu.RLock()
	defer qm.mu.RUnlock()

	if !qm.running {
		return nil, domain.ErrQueueStopped
	}

	download := domain.NewDownload(req)
	if err := qm.repo.Create(download); err != nil {
		return nil, fmt.Errorf("failed to create download: %w", err)
	}

	// announce before the send; afterwards a worker owns the download
	qm.processor.Announce(download)

	// once sent, the worker mutates download; the caller gets a copy
	snapshot := *download

	select {
	case qm.jobs <- download:
	default:
		metrics.QueueRejectedTotal.Inc()
		download.MarkFailed(domain.ErrQueueFull)
		if err := qm.repo.Update(download); err != nil {
			qm.multiLogger.LogAppError("Failed to update rejected download", zap.String("id", download.ID), zap.Error(err))
		}
		qm.multiLogger.LogDownloadEvent("download_rejected",
			zap.String("id", download.ID),
			zap.String("url", download.URL))
		qm.processor.Announce(download)
		return download, domain.ErrQueueFull
	}
	metrics.QueueDepth.Set(float64(len(qm.jobs)))

	qm.multiLogger.LogDownloadEvent("download_added",
		zap.String("id", snapshot.ID),
		zap.String("url", snapshot.URL),
		zap.String("kind", string(snapshot.Kind)),
		zap.String("format", snapshot.Format))

	return &snapshot, nil
}

// GetDownload retrieves a download by ID
func (qm *QueueManager) GetDownload(id string) (*domain.Download, error) {
	return qm.repo.FindByID(id)
}

// ListDownloads lists all downloads with optional filters
func (qm *QueueManager) ListDownloads(filters map[string]interface{}) ([]*domain.Download, error) {
	return qm.repo.FindAll(filters)
}

// GetStats returns download statistics
func (qm *QueueManager) GetStats() (*domain.DownloadStats, error) {
	return qm.repo.GetStats()
}

func (qm *QueueManager) work(ctx context.Context, jobs <-chan *domain.Download) {
	for {
		select {
		case <-ctx.Done():
			return
		case download, ok := <-jobs:
			if !ok {
				return
			}
			if ctx.Err() != nil {
				qm.abandon(download)
				return
			}
			metrics.QueueDepth.Set(float64(len(jobs)))
			qm.multiLogger.LogDownloadEvent("download_started",
				zap.String("id", download.ID),
				zap.String("url", download.URL))

			// failures are recorded on the download itself
			_ = qm.processor.ProcessDownload(ctx, download)
		}
	}
}

// abandon fails a request that never reached a worker
func (qm *QueueManager) abandon(d *domain.Download) {
	d.MarkFailed(domain.ErrQueueStopped)
	if err := qm.repo.Update(d); err != nil {
		qm.multiLogger.LogAppError("Failed to update abandoned download", zap.String("id", d.ID), zap.Error(err))
	}
	qm.processor.Announce(d)
}
