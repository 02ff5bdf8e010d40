package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertToBPMNError(t *testing.T) {
	tests := []struct {
		name        string
		err         *StandardError
		wantCode    string
		wantRetries int
	}{
		{
			name:        "eligibility check failure is retried twice",
			err:         NewEligibilityCheckError(fmt.Errorf("connection reset")),
			wantCode:    "ELIGIBILITY_CHECK_FAILED",
			wantRetries: 2,
		},
		{
			name:        "balance fetch failure is never retried",
			err:         NewBalanceFetchError(fmt.Errorf("timeout")),
			wantCode:    "BALANCE_FETCH_FAILED",
			wantRetries: 0,
		},
		{
			name:        "not eligible is a business error",
			err:         NewNotEligibleError("already_purchased_same_level"),
			wantCode:    "PURCHASE_NOT_ELIGIBLE",
			wantRetries: 0,
		},
		{
			name:        "schema load failure is retried",
			err:         NewSchemaLoadError(fmt.Errorf("502")),
			wantCode:    "SCHEMA_LOAD_FAILED",
			wantRetries: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bpmn := ConvertToBPMNError(tt.err)
			assert.Equal(t, tt.wantCode, bpmn.Code)
			assert.Equal(t, tt.wantRetries, bpmn.Retries)
			assert.Equal(t, string(tt.err.Code), bpmn.ErrorVariables["originalErrorCode"])
		})
	}
}

func TestStandardError_UnwrapAndHasCode(t *testing.T) {
	cause := stderrors.New("dial tcp: refused")
	err := fmt.Errorf("checkout: %w", NewBalanceFetchError(cause))

	assert.True(t, stderrors.Is(err, cause))
	assert.True(t, HasCode(err, ErrCodeBalanceFetchFailed))
	assert.False(t, HasCode(err, ErrCodeSubmissionFailed))

	stdErr, ok := AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, "dial tcp: refused", stdErr.Details)
}

func TestNormalize_WrapsPlainErrors(t *testing.T) {
	stdErr := Normalize(stderrors.New("boom"))
	assert.Equal(t, ErrCodeInternal, stdErr.Code)
	assert.False(t, stdErr.Retryable)
}

func TestMetadataFlowsIntoErrorVariables(t *testing.T) {
	stdErr := NewNotEligibleError("already_purchased_same_level").
		WithMetadata("existingResponseRef", "resp-1")
	vars := ConvertToBPMNError(stdErr).ToErrorVariables()

	assert.Equal(t, "resp-1", vars["existingResponseRef"])
	assert.Equal(t, "PURCHASE_NOT_ELIGIBLE", vars["errorCode"])
	assert.Equal(t, false, vars["retryable"])
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "LOAD", GetErrorCategory(ErrCodeSchemaNotFound))
	assert.Equal(t, "CHECKOUT", GetErrorCategory(ErrCodeBalanceFetchFailed))
	assert.Equal(t, "SUBMISSION", GetErrorCategory(ErrCodeSubmissionFailed))
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeParseError))
	assert.True(t, IsRetryableErrorCode(ErrCodeDatabaseInsertFailed))
	assert.False(t, IsRetryableErrorCode(ErrCodeCheckoutAborted))
}
