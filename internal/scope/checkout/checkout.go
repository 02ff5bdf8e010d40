// Package checkout runs a purchase attempt for a configured package level:
// eligibility, amount, authoritative balance, then purchase or draft.
package checkout

import (
	"context"
	"errors"
	"time"

	apperrors "obsp-workers/internal/common/errors"
	"obsp-workers/internal/common/logger"
	"obsp-workers/internal/common/metrics"
	"obsp-workers/internal/models"
	"obsp-workers/internal/scope/pricing"
	"obsp-workers/internal/scope/schema"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// WarningNotSaved is shown when payment went through but the configuration
// could not be persisted.
const WarningNotSaved = "configuration not saved, contact support"

const (
	warningActiveConflict = "another purchase of this package is still active"
	warningDraftNotSaved  = "insufficient funds and the draft could not be saved"
)

var (
	errEmptyEligibility = errors.New("eligibility check returned no result")
	errSubmitRejected   = errors.New("marketplace did not accept the submission")
)

// Outcome is the terminal state of one checkout attempt.
type Outcome string

const (
	OutcomePurchased         Outcome = "purchased"
	OutcomeDraftSaved        Outcome = "draft_saved"
	OutcomeInsufficientFunds Outcome = "insufficient_funds"
	OutcomeBlocked           Outcome = "blocked"
	OutcomeAborted           Outcome = "aborted"
)

type EligibilityChecker interface {
	CheckEligibility(ctx context.Context, packageID, levelKey string) (*models.EligibilityResult, error)
}

type WalletReader interface {
	GetBalance(ctx context.Context) (*models.WalletBalance, error)
}

type Submitter interface {
	SubmitConfiguration(ctx context.Context, packageID string, req models.SubmitRequest) (*models.SubmitResponse, error)
}

// ActivityGuard reports whether the buyer is still in the checkout flow.
type ActivityGuard interface {
	Active() bool
}

// EligibilityStore caches eligibility verdicts per level.
type EligibilityStore interface {
	Put(ctx context.Context, packageID, levelKey string, result models.EligibilityResult) error
	Get(ctx context.Context, packageID, levelKey string) (*models.EligibilityResult, bool, error)
	Invalidate(ctx context.Context, packageID, levelKey string) error
}

// AttemptRecorder persists every attempt.
type AttemptRecorder interface {
	RecordAttempt(ctx context.Context, attempt Attempt) error
}

// Alerter notifies support about soft completions.
type Alerter interface {
	SoftCompletion(ctx context.Context, attempt Attempt) error
}

// Telemetry is satisfied by observability.Observability.
type Telemetry interface {
	StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span)
	RecordCheckout(ctx context.Context, outcome string, duration time.Duration)
}

// Dependencies are the collaborators of an Orchestrator. Eligibility, Wallet
// and Submitter are required; the rest may be nil.
type Dependencies struct {
	Eligibility EligibilityChecker
	Wallet      WalletReader
	Submitter   Submitter
	Cache       EligibilityStore
	Recorder    AttemptRecorder
	Alerter     Alerter
	Telemetry   Telemetry
}

// Request is one checkout attempt.
type Request struct {
	PackageID string
	LevelKey  string
	BasePrice int64
	Schema    *models.Schema
	Responses models.Responses
	// DraftID is the known draft for this level; it is superseded or consumed.
	DraftID string
	Guard   ActivityGuard
}

// Result is what the caller shows the buyer.
type Result struct {
	AttemptID   string                    `json:"attemptId"`
	Outcome     Outcome                   `json:"outcome"`
	TotalAmount int64                     `json:"totalAmount"`
	Available   int64                     `json:"available"`
	Shortfall   int64                     `json:"shortfall,omitempty"`
	DraftID     string                    `json:"draftId,omitempty"`
	ResponseID  string                    `json:"responseId,omitempty"`
	Eligibility *models.EligibilityResult `json:"eligibility,omitempty"`
	Warnings    []string                  `json:"warnings,omitempty"`
	// DisplayBalance is an optimistic post-purchase balance for display only.
	DisplayBalance int64 `json:"displayBalance,omitempty"`
	SoftCompleted  bool  `json:"softCompleted,omitempty"`

	Err *apperrors.StandardError `json:"error,omitempty"`
}

type Orchestrator struct {
	deps   Dependencies
	logger logger.Logger
}

func NewOrchestrator(deps Dependencies, log logger.Logger) *Orchestrator {
	return &Orchestrator{
		deps:   deps,
		logger: log.WithFields(map[string]interface{}{"component": "checkout"}),
	}
}

// Checkout runs one attempt. It never returns nil; failures are reported
// through Result.Outcome and Result.Err.
func (o *Orchestrator) Checkout(ctx context.Context, req Request) *Result {
	start := time.Now()
	res := &Result{AttemptID: uuid.NewString()}

	ctx, span := o.startSpan(ctx, req, res.AttemptID)
	defer span.End()

	log := o.logger.WithFields(map[string]interface{}{
		"attemptId": res.AttemptID,
		"packageId": req.PackageID,
		"levelKey":  req.LevelKey,
	})

	o.run(ctx, req, res, log)

	if res.Err != nil {
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, string(res.Err.Code))
	}
	span.SetAttributes(attribute.String("outcome", string(res.Outcome)))

	o.finish(ctx, req, res, log, time.Since(start))
	return res
}

func (o *Orchestrator) run(ctx context.Context, req Request, res *Result, log logger.Logger) {
	if req.PackageID == "" || req.LevelKey == "" {
		o.abort(res, apperrors.NewValidationFailedError("packageId and levelKey are required"))
		return
	}

	// 1. Eligibility
	eligibility, err := o.deps.Eligibility.CheckEligibility(ctx, req.PackageID, req.LevelKey)
	if err == nil && eligibility == nil {
		err = errEmptyEligibility
	}
	if err != nil {
		log.Warn("eligibility check failed, treating as ineligible", map[string]interface{}{"error": err.Error()})
		o.block(res, apperrors.NewEligibilityCheckError(err))
		return
	}
	res.Eligibility = eligibility
	o.cacheEligibility(ctx, req, *eligibility, log)

	switch {
	case eligibility.Reason == models.ReasonAlreadyPurchasedSameLevel:
		o.block(res, apperrors.NewNotEligibleError(string(eligibility.Reason)).
			WithMetadata("existingResponseRef", eligibility.ExistingResponseRef))
		return
	case eligibility.Reason == models.ReasonActivePurchaseConflict:
		res.Warnings = append(res.Warnings, warningActiveConflict)
	case !eligibility.Eligible:
		o.block(res, apperrors.NewNotEligibleError(string(eligibility.Reason)))
		return
	}

	// 2. Amount
	if req.Schema == nil {
		o.abort(res, apperrors.NewInvalidResponsesError("schema unavailable"))
		return
	}
	if errs := schema.ValidateAll(req.Schema, req.Responses); len(errs) > 0 {
		o.abort(res, apperrors.NewInvalidResponsesError(schema.JoinFieldErrors(errs)).
			WithMetadata("invalidFields", len(errs)))
		return
	}
	res.TotalAmount = pricing.Amount(req.Schema, req.Responses, req.BasePrice)

	// 3. Authoritative balance, read once per attempt
	balance, err := o.deps.Wallet.GetBalance(ctx)
	if err != nil {
		log.Warn("balance fetch failed", map[string]interface{}{"error": err.Error()})
		o.block(res, apperrors.NewBalanceFetchError(err))
		return
	}
	res.Available = balance.Available()

	if !o.active(ctx, req) {
		o.abort(res, apperrors.NewCheckoutAbortedError("buyer left checkout before commit"))
		return
	}

	// 4. Branch
	if res.Available < res.TotalAmount {
		o.saveDraft(ctx, req, res, log)
		return
	}
	o.purchase(ctx, req, res, log)
}

func (o *Orchestrator) saveDraft(ctx context.Context, req Request, res *Result, log logger.Logger) {
	res.Shortfall = res.TotalAmount - res.Available
	res.Outcome = OutcomeInsufficientFunds
	res.DraftID = req.DraftID
	metrics.CheckoutShortfall.Observe(float64(res.Shortfall))

	resp, err := o.deps.Submitter.SubmitConfiguration(ctx, req.PackageID, models.SubmitRequest{
		LevelKey:   req.LevelKey,
		Responses:  req.Responses,
		TotalPrice: res.TotalAmount,
		Status:     models.DraftStatusDraft,
		DraftID:    req.DraftID,
	})
	if err == nil && resp != nil && resp.Blocked {
		o.block(res, apperrors.NewNotEligibleError("blocked by marketplace"))
		return
	}
	if err == nil && (resp == nil || !resp.Success) {
		err = errSubmitRejected
	}
	if err != nil {
		log.Warn("draft save failed", map[string]interface{}{"error": err.Error()})
		res.Warnings = append(res.Warnings, warningDraftNotSaved)
		res.Err = apperrors.NewDraftSaveError(err)
		return
	}

	res.Outcome = OutcomeDraftSaved
	if resp.ResponseID != "" {
		res.DraftID = resp.ResponseID
	}
	log.Info("insufficient funds, draft saved", map[string]interface{}{
		"shortfall": res.Shortfall,
		"draftId":   res.DraftID,
	})
}

func (o *Orchestrator) purchase(ctx context.Context, req Request, res *Result, log logger.Logger) {
	resp, err := o.deps.Submitter.SubmitConfiguration(ctx, req.PackageID, models.SubmitRequest{
		LevelKey:      req.LevelKey,
		Responses:     req.Responses,
		TotalPrice:    res.TotalAmount,
		Status:        models.DraftStatusSubmitted,
		DraftID:       req.DraftID,
		WalletPayment: true,
	})

	if err == nil && resp != nil && resp.Blocked {
		o.block(res, apperrors.NewNotEligibleError("blocked by marketplace"))
		return
	}
	if err == nil && (resp == nil || !resp.Success) {
		err = errSubmitRejected
	}

	res.Outcome = OutcomePurchased
	res.DisplayBalance = res.Available - res.TotalAmount

	if err != nil {
		// Payment authority is elsewhere; report completion and flag the gap.
		res.SoftCompleted = true
		res.DraftID = req.DraftID
		res.Warnings = append(res.Warnings, WarningNotSaved)
		res.Err = apperrors.NewSubmissionError(err)
		log.Error("submission failed after balance check, soft-completing", map[string]interface{}{
			"error":       err.Error(),
			"totalAmount": res.TotalAmount,
		})
		return
	}

	res.ResponseID = resp.ResponseID
	log.Info("purchase completed", map[string]interface{}{
		"responseId":  res.ResponseID,
		"totalAmount": res.TotalAmount,
	})
}

func (o *Orchestrator) finish(ctx context.Context, req Request, res *Result, log logger.Logger, elapsed time.Duration) {
	metrics.CheckoutOutcomes.WithLabelValues(string(res.Outcome)).Inc()
	if o.deps.Telemetry != nil {
		o.deps.Telemetry.RecordCheckout(ctx, string(res.Outcome), elapsed)
	}

	attempt := attemptFrom(req, res)

	// Persistence and alerting outlive a cancelled buyer request.
	bg := context.WithoutCancel(ctx)

	if o.deps.Recorder != nil {
		if err := o.deps.Recorder.RecordAttempt(bg, attempt); err != nil {
			log.Error("failed to record checkout attempt", map[string]interface{}{"error": err.Error()})
		}
	}

	if res.SoftCompleted {
		metrics.CheckoutSoftCompletions.Inc()
		if o.deps.Alerter != nil {
			if err := o.deps.Alerter.SoftCompletion(bg, attempt); err != nil {
				log.Error("failed to alert support about soft completion", map[string]interface{}{"error": err.Error()})
			}
		}
	}
}

func (o *Orchestrator) cacheEligibility(ctx context.Context, req Request, result models.EligibilityResult, log logger.Logger) {
	if o.deps.Cache == nil {
		return
	}
	if err := o.deps.Cache.Put(ctx, req.PackageID, req.LevelKey, result); err != nil {
		log.Warn("failed to cache eligibility", map[string]interface{}{"error": err.Error()})
	}
}

func (o *Orchestrator) active(ctx context.Context, req Request) bool {
	if ctx.Err() != nil {
		return false
	}
	return req.Guard == nil || req.Guard.Active()
}

func (o *Orchestrator) block(res *Result, err *apperrors.StandardError) {
	res.Outcome = OutcomeBlocked
	res.Err = err
}

func (o *Orchestrator) abort(res *Result, err *apperrors.StandardError) {
	res.Outcome = OutcomeAborted
	res.Err = err
}

func (o *Orchestrator) startSpan(ctx context.Context, req Request, attemptID string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("attemptId", attemptID),
		attribute.String("packageId", req.PackageID),
		attribute.String("levelKey", req.LevelKey),
	}
	if o.deps.Telemetry != nil {
		return o.deps.Telemetry.StartSpan(ctx, "checkout", attrs...)
	}
	return otel.Tracer("obsp-workers/checkout").Start(ctx, "checkout", trace.WithAttributes(attrs...))
}
