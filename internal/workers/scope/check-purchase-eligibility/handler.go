// internal/workers/scope/check-purchase-eligibility/handler.go
package checkpurchaseeligibility

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	apperrors "obsp-workers/internal/common/errors"
	"obsp-workers/internal/common/logger"
	"obsp-workers/internal/common/metrics"
	"obsp-workers/internal/models"
	"obsp-workers/internal/scope/checkout"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "obsp-check-eligibility"

const warningActiveConflict = "another purchase of this package is still active"

type Handler struct {
	config      *Config
	eligibility checkout.EligibilityChecker
	cache       checkout.EligibilityStore
	errors      *apperrors.ErrorHandler
	logger      logger.Logger
}

// NewHandler builds the worker. cache may be nil.
func NewHandler(config *Config, eligibility checkout.EligibilityChecker, cache checkout.EligibilityStore, log logger.Logger) *Handler {
	if config == nil {
		config = LoadConfig()
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:      config,
		eligibility: eligibility,
		cache:       cache,
		errors:      apperrors.NewErrorHandler(log),
		logger:      log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	if result := validateInput(job.Variables); !result.Valid {
		h.fail(ctx, client, job, apperrors.NewValidationFailedError(strings.Join(result.GetErrorMessages(), "; ")))
		return
	}

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.fail(ctx, client, job, apperrors.NewParseError(err))
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	result, cached := h.lookup(ctx, input)
	if result == nil {
		fresh, err := h.eligibility.CheckEligibility(ctx, input.PackageID, input.LevelKey)
		if err != nil {
			return nil, apperrors.NewEligibilityCheckError(err)
		}
		result = fresh
		h.store(ctx, input, *result)
	}

	output := &Output{
		Eligible:            result.Eligible,
		Reason:              result.Reason,
		ExistingResponseRef: result.ExistingResponseRef,
		Cached:              cached,
	}

	switch {
	case result.Reason == models.ReasonAlreadyPurchasedSameLevel:
		output.CanPurchase = false
	case result.Reason == models.ReasonActivePurchaseConflict:
		output.CanPurchase = true
		output.Warning = warningActiveConflict
	default:
		output.CanPurchase = result.Eligible
	}

	h.logger.Info("eligibility resolved", map[string]interface{}{
		"packageId":   input.PackageID,
		"levelKey":    input.LevelKey,
		"reason":      string(output.Reason),
		"canPurchase": output.CanPurchase,
		"cached":      cached,
	})
	return output, nil
}

func (h *Handler) lookup(ctx context.Context, input *Input) (*models.EligibilityResult, bool) {
	if h.cache == nil || input.Refresh {
		return nil, false
	}
	result, ok, err := h.cache.Get(ctx, input.PackageID, input.LevelKey)
	if err != nil {
		h.logger.Warn("eligibility cache read failed", map[string]interface{}{"error": err.Error()})
		return nil, false
	}
	return result, ok
}

func (h *Handler) store(ctx context.Context, input *Input, result models.EligibilityResult) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Put(ctx, input.PackageID, input.LevelKey, result); err != nil {
		h.logger.Warn("failed to cache eligibility", map[string]interface{}{"error": err.Error()})
	}
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().JobKey(job.Key).VariablesFromObject(output)
	if err != nil {
		h.fail(ctx, client, job, apperrors.NewParseError(fmt.Errorf("encode output: %w", err)))
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{"jobKey": job.Key, "error": err.Error()})
		return
	}
	h.logger.Info("job completed", map[string]interface{}{"jobKey": job.Key})
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(apperrors.Normalize(err).Code)).Inc()
	h.errors.HandleJobError(ctx, client, job, err)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
