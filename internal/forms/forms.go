// internal/forms/forms.go
//
// Shared form-validation vocabulary.
//
// Context
//   Every submission endpoint (quote, contact, careers) validates a typed
//   payload and reports failures field by field so the browser form can
//   highlight exact issues.  This package holds the tiny shared pieces:
//   the FieldError shape returned in the JSON envelope and the process-wide
//   validator instance, so rule behaviour never drifts between forms.
//
//------------------------------------------------------------------------------

package forms

import "github.com/go-playground/validator/v10"

// FieldError describes a single validation failure.  Name is the
// JSON-facing field path; Message is user-facing.
type FieldError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// Validator is the shared validator/v10 instance.  validator.Validate is
// safe for concurrent use; a single instance keeps its struct cache warm
// across all three forms.
var Validator = validator.New()
