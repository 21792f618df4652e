package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/careroute/careroute/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	recorderQueueSize = 256
	recordTimeout     = 5 * time.Second
)

// RepositoryRecorder persists routing records from a single background worker.
// Records arriving while the queue is full are dropped and logged.
type RepositoryRecorder struct {
	repo    models.RoutingRecordRepository
	logger  *logrus.Logger
	queue   chan models.RoutingRecord
	done    chan struct{}
	mu      sync.RWMutex
	closed  bool
	timeout time.Duration
}

func NewRepositoryRecorder(repo models.RoutingRecordRepository, logger *logrus.Logger) *RepositoryRecorder {
	r := &RepositoryRecorder{
		repo:    repo,
		logger:  logger,
		queue:   make(chan models.RoutingRecord, recorderQueueSize),
		done:    make(chan struct{}),
		timeout: recordTimeout,
	}
	go r.run()
	return r
}

func (r *RepositoryRecorder) Record(record models.RoutingRecord) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}

	select {
	case r.queue <- record:
	default:
		r.logger.WithField("request_id", record.RequestID).Warn("Routing record queue full, dropping record")
	}
}

// Close stops accepting records and waits for queued ones to be saved, or
// for ctx to end.
func (r *RepositoryRecorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *RepositoryRecorder) run() {
	defer close(r.done)
	for record := range r.queue {
		r.save(record)
	}
}

func (r *RepositoryRecorder) save(record models.RoutingRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.repo.Create(ctx, &record); err != nil {
		r.logger.WithError(err).WithField("request_id", record.RequestID).Warn("Failed to record routing decision")
	}
}
