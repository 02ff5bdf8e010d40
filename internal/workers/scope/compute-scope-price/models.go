// internal/workers/scope/compute-scope-price/models.go
package computescopeprice

import (
	"obsp-workers/internal/models"
	"obsp-workers/internal/scope/pricing"
	"obsp-workers/internal/scope/schema"
)

type Input struct {
	PackageID string           `json:"packageId"`
	LevelKey  string           `json:"levelKey"`
	BasePrice int64            `json:"basePrice"`
	Responses models.Responses `json:"responses"`
}

type Output struct {
	pricing.Breakdown
	Complete         bool                `json:"complete"`
	ValidationErrors []schema.FieldError `json:"validationErrors,omitempty"`
}
