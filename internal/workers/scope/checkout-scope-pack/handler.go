// internal/workers/scope/checkout-scope-pack/handler.go
package checkoutscopepack

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

const TaskType = "obsp-checkout"

// SchemaLoader is satisfied by *schema.Loader.
type SchemaLoader interface {
	LoadSchema(ctx context.Context, packageID, levelKey string) (*models.Schema, error)
}

type Handler struct {
	config       *Config
	schemas      SchemaLoader
	orchestrator *checkout.Orchestrator
	errors       *apperrors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, schemas SchemaLoader, orchestrator *checkout.Orchestrator, log logger.Logger) *Handler {
	if config == nil {
		config = LoadConfig()
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		schemas:      schemas,
		orchestrator: orchestrator,
		errors:       apperrors.NewErrorHandler(log),
		logger:       log,
	}
}

// Handle completes the job for purchased, draft_saved and insufficient_funds.
// Blocked and aborted attempts are raised as BPMN errors.
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
	s, err := h.schemas.LoadSchema(ctx, input.PackageID, input.LevelKey)
	if err != nil {
		return nil, err
	}

	res := h.orchestrator.Checkout(ctx, checkout.Request{
		PackageID: input.PackageID,
		LevelKey:  input.LevelKey,
		BasePrice: input.BasePrice,
		Schema:    s,
		Responses: input.Responses,
		DraftID:   input.DraftID,
	})

	switch res.Outcome {
	case checkout.OutcomeBlocked, checkout.OutcomeAborted:
		stdErr := res.Err
		if stdErr == nil {
			stdErr = apperrors.NewCheckoutAbortedError(string(res.Outcome))
		}
		return nil, stdErr.WithMetadata("attemptId", res.AttemptID)
	}
	return outputFrom(res), nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().JobKey(job.Key).VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to encode checkout output", map[string]interface{}{
			"jobKey":    job.Key,
			"attemptId": output.AttemptID,
			"error":     err.Error(),
		})
		h.fail(ctx, client, job, apperrors.NewParseError(fmt.Errorf("encode output: %w", err)))
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{"jobKey": job.Key, "error": err.Error()})
		return
	}
	h.logger.Info("job completed", map[string]interface{}{
		"jobKey":  job.Key,
		"outcome": string(output.Outcome),
	})
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(apperrors.Normalize(err).Code)).Inc()
	h.errors.HandleJobError(ctx, client, job, err)
}

// Execute runs one checkout without a Zeebe job. Blocked and aborted
// attempts are returned as *errors.StandardError.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
