// internal/common/camunda/worker.go
package camunda

import (
	"context"
	"time"

	"obsp-workers/internal/common/config"
	"obsp-workers/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// JobHandler is implemented by every scope worker.
type JobHandler interface {
	Handle(client worker.JobClient, job entities.Job)
}

// JobObserver is satisfied by observability.Observability.
type JobObserver interface {
	RecordJobProcessed(ctx context.Context, taskType string)
	RecordJobDuration(ctx context.Context, duration time.Duration, taskType string)
}

// Registry tracks opened job workers so they can be closed together.
type Registry struct {
	client   zbc.Client
	observer JobObserver
	logger   logger.Logger
	workers  map[string]worker.JobWorker
}

// NewRegistry creates a Registry. observer may be nil.
func NewRegistry(client zbc.Client, observer JobObserver, log logger.Logger) *Registry {
	return &Registry{
		client:   client,
		observer: observer,
		logger:   log,
		workers:  make(map[string]worker.JobWorker),
	}
}

// Start opens a job worker for taskType unless it is disabled.
func (r *Registry) Start(taskType string, wcfg config.WorkerConfig, handler JobHandler) bool {
	if !wcfg.Enabled {
		r.logger.Info("worker disabled", map[string]interface{}{"taskType": taskType})
		return false
	}

	r.workers[taskType] = r.client.NewJobWorker().
		JobType(taskType).
		Handler(r.observe(taskType, handler)).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(config.GetDuration(wcfg.Timeout)).
		Open()

	r.logger.Info("worker started", map[string]interface{}{
		"taskType":      taskType,
		"maxJobsActive": wcfg.MaxJobsActive,
		"timeout_ms":    wcfg.Timeout,
	})
	return true
}

func (r *Registry) observe(taskType string, handler JobHandler) worker.JobHandler {
	if r.observer == nil {
		return handler.Handle
	}
	return func(client worker.JobClient, job entities.Job) {
		start := time.Now()
		handler.Handle(client, job)
		ctx := context.Background()
		r.observer.RecordJobProcessed(ctx, taskType)
		r.observer.RecordJobDuration(ctx, time.Since(start), taskType)
	}
}

// TaskTypes lists the running workers.
func (r *Registry) TaskTypes() []string {
	types := make([]string, 0, len(r.workers))
	for t := range r.workers {
		types = append(types, t)
	}
	return types
}

// Stop closes every job worker and waits for in-flight jobs up to timeout.
func (r *Registry) Stop(timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		for taskType, w := range r.workers {
			w.Close()
			w.AwaitClose()
			r.logger.Info("worker stopped", map[string]interface{}{"taskType": taskType})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		r.logger.Warn("timed out waiting for workers to stop", nil)
	}
}
