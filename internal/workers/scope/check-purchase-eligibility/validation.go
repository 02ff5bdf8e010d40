// internal/workers/scope/check-purchase-eligibility/validation.go
package checkpurchaseeligibility

import "obsp-workers/internal/common/validation"

var inputValidator = validation.MustValidator(`{
  "type": "object",
  "required": ["packageId", "levelKey"],
  "properties": {
    "packageId": {"type": "string", "minLength": 1, "maxLength": 128},
    "levelKey":  {"type": "string", "minLength": 1, "maxLength": 64},
    "refresh":   {"type": "boolean"}
  }
}`)

func validateInput(raw string) *validation.ValidationResult {
	return inputValidator.ValidateBytes([]byte(raw))
}
