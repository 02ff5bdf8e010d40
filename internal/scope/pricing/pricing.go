// Package pricing computes the price of a configured package level.
//
// The model is base price plus additive impacts. All amounts are int64 minor
// units and only ever added together.
package pricing

import (
	"obsp-workers/internal/models"
	"obsp-workers/internal/scope/schema"
)

// Breakdown is the derived price of one set of responses.
//
// Every field and phase of the schema has an entry, zero when it does not
// contribute. TotalImpact equals the sum of both maps.
type Breakdown struct {
	PerFieldImpact map[string]int64 `json:"perFieldImpact"`
	PerPhaseImpact map[string]int64 `json:"perPhaseImpact"`
	TotalImpact    int64            `json:"totalImpact"`
	BasePrice      int64            `json:"basePrice"`
	GrandTotal     int64            `json:"grandTotal"`
}

// ComputeBreakdown prices responses against s. It never fails: missing,
// mistyped or unknown values contribute nothing.
func ComputeBreakdown(s *models.Schema, responses models.Responses, basePrice int64) Breakdown {
	b := Breakdown{
		PerFieldImpact: make(map[string]int64),
		PerPhaseImpact: make(map[string]int64),
		BasePrice:      basePrice,
	}

	if s != nil {
		for _, phase := range s.Phases {
			var phaseTotal int64
			for _, field := range phase.Fields {
				impact := FieldImpact(field, responses)
				b.PerFieldImpact[field.ID] += impact
				phaseTotal += impact
			}
			b.PerPhaseImpact[phase.ID] += phaseTotal
			b.TotalImpact += phaseTotal
		}
	}

	b.GrandTotal = b.BasePrice + b.TotalImpact
	return b
}

// FieldImpact returns what a single field adds to the price.
func FieldImpact(field models.Field, responses models.Responses) int64 {
	value, ok := responses[field.ID]
	if !ok || value == nil {
		return 0
	}

	switch field.Type {
	case models.FieldRadio, models.FieldSelect:
		text, ok := schema.AsString(value)
		if !ok {
			return 0
		}
		opt, _ := schema.FindOption(field, text)
		return opt.Price

	case models.FieldCheckbox:
		selected, ok := schema.AsStringSlice(value)
		if !ok {
			return 0
		}
		seen := make(map[string]struct{}, len(selected))
		var total int64
		for _, text := range selected {
			if _, dup := seen[text]; dup {
				continue
			}
			seen[text] = struct{}{}
			if opt, found := schema.FindOption(field, text); found {
				total += opt.Price
			}
		}
		return total

	case models.FieldNumber:
		if !field.HasPriceImpact {
			return 0
		}
		if n, ok := schema.AsNumber(value); ok && n > 0 {
			return field.FlatPriceImpact
		}
		return 0

	default:
		return 0
	}
}

// Amount is the payable total for a checkout: base price plus every impact.
func Amount(s *models.Schema, responses models.Responses, basePrice int64) int64 {
	return ComputeBreakdown(s, responses, basePrice).GrandTotal
}
