package storage

import (
	"context"
	"log/slog"
	"time"

	"github.com/SammyTourani/Pulse-sub001/internal/core/domain"
)

const recorderQueueSize = 1024

// AsyncRecorder writes execution records off the request path. Records are
// queued and drained by one background writer; when the queue is full the
// record is dropped with a warning. The execution log is best effort and
// never fails a request.
type AsyncRecorder struct {
	repo  ExecutionRepository
	queue chan domain.Execution
	done  chan struct{}
	log   *slog.Logger
}

func NewAsyncRecorder(repo ExecutionRepository, log *slog.Logger) *AsyncRecorder {
	return &AsyncRecorder{
		repo:  repo,
		queue: make(chan domain.Execution, recorderQueueSize),
		done:  make(chan struct{}),
		log:   log.With("component", "recorder"),
	}
}

// Record queues one execution for persistence. It never blocks.
func (r *AsyncRecorder) Record(_ context.Context, ex domain.Execution) {
	select {
	case r.queue <- ex:
	default:
		r.log.Warn("execution log queue full, dropping record",
			"requestId", ex.RequestID, "brick", ex.Brick)
	}
}

// Start runs the writer until ctx is canceled, then drains what is queued.
func (r *AsyncRecorder) Start(ctx context.Context) {
	go func() {
		defer close(r.done)
		for {
			select {
			case ex := <-r.queue:
				r.save(ex)
			case <-ctx.Done():
				for {
					select {
					case ex := <-r.queue:
						r.save(ex)
					default:
						return
					}
				}
			}
		}
	}()
}

// Wait blocks until the writer has drained after Start's context ended.
func (r *AsyncRecorder) Wait() {
	<-r.done
}

func (r *AsyncRecorder) save(ex domain.Execution) {
	// The request is long gone; give the write its own deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.repo.Save(ctx, &ex); err != nil {
		r.log.Warn("execution log write failed", "requestId", ex.RequestID, "error", err)
	}
}
