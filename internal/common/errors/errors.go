// Package errors provides standardized error handling for the scope engine and
// its BPMN workflow integration.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Load-time errors degrade the session instead of failing it.
	ErrCodeSchemaNotFound   ErrorCode = "SCHEMA_NOT_FOUND"
	ErrCodeSchemaLoadFailed ErrorCode = "SCHEMA_LOAD_FAILED"
	ErrCodeDraftLoadFailed  ErrorCode = "DRAFT_LOAD_FAILED"

	// Checkout-time errors are hard stops.
	ErrCodeEligibilityCheckFailed ErrorCode = "ELIGIBILITY_CHECK_FAILED"
	ErrCodePurchaseNotEligible    ErrorCode = "PURCHASE_NOT_ELIGIBLE"
	ErrCodeBalanceFetchFailed     ErrorCode = "BALANCE_FETCH_FAILED"
	ErrCodeCheckoutAborted        ErrorCode = "CHECKOUT_ABORTED"
	ErrCodeInvalidResponses       ErrorCode = "INVALID_RESPONSES"

	// Submission errors are soft-completed after a successful balance check.
	ErrCodeSubmissionFailed ErrorCode = "SUBMISSION_FAILED"
	ErrCodeDraftSaveFailed  ErrorCode = "DRAFT_SAVE_FAILED"

	ErrCodeDatabaseInsertFailed ErrorCode = "DATABASE_INSERT_FAILED"
	ErrCodeAlertSendFailed      ErrorCode = "ALERT_SEND_FAILED"

	ErrCodeParseError       ErrorCode = "PARSE_ERROR"
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeInternal         ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause to errors.Is / errors.As.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata attaches a key/value pair and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// AsStandardError extracts a *StandardError from an error chain.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code ErrorCode) bool {
	stdErr, ok := AsStandardError(err)
	return ok && stdErr != nil && stdErr.Code == code
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message string, cause error, retryable bool) *StandardError {
	details := ""
	if cause != nil {
		details = cause.Error()
	}
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// NewSchemaNotFoundError reports a package level without a schema.
func NewSchemaNotFoundError(packageID, levelKey string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSchemaNotFound,
		Message:   "Scope schema not found",
		Details:   fmt.Sprintf("packageId: %s, levelKey: %s", packageID, levelKey),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSchemaLoadError wraps a network or decode failure while fetching a schema.
func NewSchemaLoadError(err error) *StandardError {
	return newError(ErrCodeSchemaLoadFailed, "Failed to load scope schema", err, true)
}

// NewDraftLoadError is non-fatal; callers continue with an empty draft.
func NewDraftLoadError(err error) *StandardError {
	return newError(ErrCodeDraftLoadFailed, "Failed to load saved draft", err, true)
}

// NewEligibilityCheckError is treated as ineligible by the checkout orchestrator.
func NewEligibilityCheckError(err error) *StandardError {
	return newError(ErrCodeEligibilityCheckFailed, "Could not verify purchase eligibility", err, true)
}

// NewNotEligibleError blocks a checkout for a business reason.
func NewNotEligibleError(reason string) *StandardError {
	return &StandardError{
		Code:      ErrCodePurchaseNotEligible,
		Message:   "Package level cannot be purchased",
		Details:   fmt.Sprintf("reason: %s", reason),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewBalanceFetchError blocks checkout; sufficient funds are never assumed.
func NewBalanceFetchError(err error) *StandardError {
	return newError(ErrCodeBalanceFetchFailed, "Could not verify wallet balance", err, false)
}

// NewCheckoutAbortedError reports an attempt that stopped before any commit.
func NewCheckoutAbortedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeCheckoutAborted,
		Message:   "Checkout aborted",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidResponsesError reports responses that fail field validation.
func NewInvalidResponsesError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidResponses,
		Message:   "Configuration responses are invalid",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSubmissionError wraps a failed configuration submission.
func NewSubmissionError(err error) *StandardError {
	return newError(ErrCodeSubmissionFailed, "Configuration submission failed", err, false)
}

// NewDraftSaveError wraps a failed draft upsert.
func NewDraftSaveError(err error) *StandardError {
	return newError(ErrCodeDraftSaveFailed, "Failed to save configuration draft", err, true)
}

// NewDatabaseInsertFailedError creates a retryable insert error.
func NewDatabaseInsertFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseInsertFailed, "Database insert failed", err, true)
}

// NewAlertSendFailedError wraps a failed support alert.
func NewAlertSendFailedError(channel string, err error) *StandardError {
	return newError(ErrCodeAlertSendFailed, fmt.Sprintf("Failed to send %s alert", channel), err, true)
}

// NewParseError reports undecodable job variables.
func NewParseError(err error) *StandardError {
	return newError(ErrCodeParseError, "Failed to parse job variables", err, false)
}

// NewValidationFailedError reports job input that does not match its schema.
func NewValidationFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Input validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to BPMN error codes.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeSchemaNotFound:         "SCHEMA_NOT_FOUND",
	ErrCodeSchemaLoadFailed:       "SCHEMA_LOAD_FAILED",
	ErrCodeDraftLoadFailed:        "DRAFT_LOAD_FAILED",
	ErrCodeEligibilityCheckFailed: "ELIGIBILITY_CHECK_FAILED",
	ErrCodePurchaseNotEligible:    "PURCHASE_NOT_ELIGIBLE",
	ErrCodeBalanceFetchFailed:     "BALANCE_FETCH_FAILED",
	ErrCodeCheckoutAborted:        "CHECKOUT_ABORTED",
	ErrCodeInvalidResponses:       "INVALID_RESPONSES",
	ErrCodeSubmissionFailed:       "SUBMISSION_FAILED",
	ErrCodeDraftSaveFailed:        "DRAFT_SAVE_FAILED",
	ErrCodeDatabaseInsertFailed:   "DATABASE_INSERT_FAILED",
	ErrCodeAlertSendFailed:        "ALERT_SEND_FAILED",
	ErrCodeParseError:             "PARSE_ERROR",
	ErrCodeValidationFailed:       "VALIDATION_FAILED",
}

// GetRetryCount returns the recommended Zeebe retry count for a code.
// Balance fetch failures are deliberately not retried: a fresh user-initiated
// attempt is required.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeSchemaLoadFailed,
		ErrCodeDatabaseInsertFailed,
		ErrCodeAlertSendFailed:
		return 3

	case ErrCodeEligibilityCheckFailed,
		ErrCodeDraftLoadFailed,
		ErrCodeDraftSaveFailed:
		return 2

	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           bpmnCode,
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "SCHEMA") || strings.HasPrefix(codeStr, "DRAFT_LOAD"):
		return "LOAD"
	case strings.Contains(codeStr, "ELIGIB") || strings.Contains(codeStr, "BALANCE") || strings.Contains(codeStr, "CHECKOUT"):
		return "CHECKOUT"
	case strings.Contains(codeStr, "SUBMISSION") || strings.Contains(codeStr, "DRAFT_SAVE"):
		return "SUBMISSION"
	case strings.Contains(codeStr, "DATABASE"):
		return "DATABASE"
	case strings.Contains(codeStr, "ALERT"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "VALIDATION") || strings.Contains(codeStr, "PARSE"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
