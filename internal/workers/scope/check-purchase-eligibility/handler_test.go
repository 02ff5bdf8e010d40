// internal/workers/scope/check-purchase-eligibility/handler_test.go
package checkpurchaseeligibility

import (
	"context"
	"errors"
	"testing"
	"time"

	"obsp-workers/internal/common/database"
	apperrors "obsp-workers/internal/common/errors"
	"obsp-workers/internal/common/logger"
	"obsp-workers/internal/models"
	"obsp-workers/internal/scope/checkout"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mocks
// ==========================

type MockEligibility struct {
	mock.Mock
}

func (m *MockEligibility) CheckEligibility(ctx context.Context, packageID, levelKey string) (*models.EligibilityResult, error) {
	args := m.Called(ctx, packageID, levelKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EligibilityResult), args.Error(1)
}

func newCache(t *testing.T) *checkout.EligibilityCache {
	mr := miniredis.RunT(t)
	rdb := database.NewRedisFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	return checkout.NewEligibilityCache(rdb, time.Minute)
}

// ==========================
// Execute
// ==========================

func TestExecute_Reasons(t *testing.T) {
	tests := []struct {
		name        string
		result      models.EligibilityResult
		canPurchase bool
		warning     bool
	}{
		{"eligible", models.EligibilityResult{Eligible: true, Reason: models.ReasonNone}, true, false},
		{"already purchased", models.EligibilityResult{Eligible: false, Reason: models.ReasonAlreadyPurchasedSameLevel, ExistingResponseRef: "resp-9"}, false, false},
		{"active conflict", models.EligibilityResult{Eligible: false, Reason: models.ReasonActivePurchaseConflict}, true, true},
		{"other ineligible", models.EligibilityResult{Eligible: false, Reason: models.ReasonNone}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := new(MockEligibility)
			result := tt.result
			checker.On("CheckEligibility", mock.Anything, "pkg-1", "gold").Return(&result, nil)

			h := NewHandler(LoadConfig(), checker, nil, logger.NewTestLogger(t))
			out, err := h.Execute(context.Background(), &Input{PackageID: "pkg-1", LevelKey: "gold"})
			require.NoError(t, err)

			assert.Equal(t, tt.canPurchase, out.CanPurchase)
			assert.Equal(t, tt.warning, out.Warning != "")
			assert.Equal(t, tt.result.ExistingResponseRef, out.ExistingResponseRef)
			assert.False(t, out.Cached)
			checker.AssertExpectations(t)
		})
	}
}

func TestExecute_UsesCacheUntilRefresh(t *testing.T) {
	checker := new(MockEligibility)
	checker.On("CheckEligibility", mock.Anything, "pkg-1", "gold").
		Return(&models.EligibilityResult{Eligible: true, Reason: models.ReasonNone}, nil).Twice()

	h := NewHandler(LoadConfig(), checker, newCache(t), logger.NewTestLogger(t))
	ctx := context.Background()

	first, err := h.Execute(ctx, &Input{PackageID: "pkg-1", LevelKey: "gold"})
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := h.Execute(ctx, &Input{PackageID: "pkg-1", LevelKey: "gold"})
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.True(t, second.CanPurchase)

	third, err := h.Execute(ctx, &Input{PackageID: "pkg-1", LevelKey: "gold", Refresh: true})
	require.NoError(t, err)
	assert.False(t, third.Cached)

	checker.AssertNumberOfCalls(t, "CheckEligibility", 2)
}

func TestExecute_CheckFailure(t *testing.T) {
	checker := new(MockEligibility)
	checker.On("CheckEligibility", mock.Anything, "pkg-1", "gold").Return(nil, errors.New("502 bad gateway"))

	h := NewHandler(LoadConfig(), checker, nil, logger.NewTestLogger(t))
	out, err := h.Execute(context.Background(), &Input{PackageID: "pkg-1", LevelKey: "gold"})

	assert.Nil(t, out)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeEligibilityCheckFailed))
}

func TestValidateInput(t *testing.T) {
	assert.True(t, validateInput(`{"packageId":"pkg-1","levelKey":"gold","refresh":true}`).Valid)
	assert.False(t, validateInput(`{"packageId":"pkg-1"}`).Valid)
	assert.False(t, validateInput(`{"packageId":"pkg-1","levelKey":"gold","refresh":"yes"}`).Valid)
}
