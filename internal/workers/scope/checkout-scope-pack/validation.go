// internal/workers/scope/checkout-scope-pack/validation.go
package checkoutscopepack

import "obsp-workers/internal/common/validation"

var inputValidator = validation.MustValidator(`{
  "type": "object",
  "required": ["packageId", "levelKey", "responses"],
  "properties": {
    "packageId": {"type": "string", "minLength": 1, "maxLength": 128},
    "levelKey":  {"type": "string", "minLength": 1, "maxLength": 64},
    "basePrice": {"type": "integer", "minimum": 0},
    "responses": {"type": "object"},
    "draftId":   {"type": "string", "maxLength": 128}
  }
}`)

func validateInput(raw string) *validation.ValidationResult {
	return inputValidator.ValidateBytes([]byte(raw))
}
