// internal/workers/scope/check-purchase-eligibility/models.go
package checkpurchaseeligibility

import "obsp-workers/internal/models"

type Input struct {
	PackageID string `json:"packageId"`
	LevelKey  string `json:"levelKey"`
	// Refresh skips the cached verdict.
	Refresh bool `json:"refresh,omitempty"`
}

type Output struct {
	Eligible            bool                     `json:"eligible"`
	Reason              models.EligibilityReason `json:"reason"`
	ExistingResponseRef string                   `json:"existingResponseRef,omitempty"`
	CanPurchase         bool                     `json:"canPurchase"`
	Warning             string                   `json:"warning,omitempty"`
	Cached              bool                     `json:"cached"`
}
