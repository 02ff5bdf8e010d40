// internal/workers/scope/compute-scope-price/validation.go
package computescopeprice

import "obsp-workers/internal/common/validation"

var inputValidator = validation.MustValidator(`{
  "type": "object",
  "required": ["packageId", "levelKey"],
  "properties": {
    "packageId": {"type": "string", "minLength": 1, "maxLength": 128},
    "levelKey":  {"type": "string", "minLength": 1, "maxLength": 64},
    "basePrice": {"type": "integer", "minimum": 0},
    "responses": {"type": ["object", "null"]}
  }
}`)

func validateInput(raw string) *validation.ValidationResult {
	return inputValidator.ValidateBytes([]byte(raw))
}
