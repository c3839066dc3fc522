// internal/quote/types.go
//
// Quote-request schema and server-side validation.
//
// Context
//   The quote form is a nested, dynamically-growable structure: the
//   submitter adds sample groups (one analytical category each), each group
//   holds one or more test rows, and each row selects a sample type, one or
//   more test parameters, an optional free-text specification, and a sample
//   quantity.  The browser validates the same shape before posting, but the
//   server re-validates every payload—client-side checks are a courtesy,
//   not a trust boundary.
//
// Workflow
//   •  The handler decodes the JSON payload into Request.
//   •  Validate runs the validator/v10 rules and converts failures into
//      []FieldError so the form can highlight exact issues.
//   •  On success the value flows into Flatten and the renderers unchanged;
//      the structs are plain values with no back-references.
//
//------------------------------------------------------------------------------

package quote

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/itestchem/labportal/internal/forms"
)

// -----------------------------------------------------------------------------
// Schema
// -----------------------------------------------------------------------------

// TestRow is one sample type plus its selected parameters and quantity.
//
// OtherSpecification is only meaningful when TestNames contains an entry
// matching "other analysis"; otherwise it is ignored downstream.  TestNames
// preserves the submitter's selection order, which in turn fixes the row
// order of the e-mail table and the CSV.
type TestRow struct {
	SampleType         string   `json:"sampleType"         validate:"required"`
	TestNames          []string `json:"testNames"          validate:"required,min=1,dive,required"`
	OtherSpecification string   `json:"otherSpecification"`
	Quantity           int      `json:"quantity"           validate:"required,min=1"`
}

// SampleGroup is one submitter-added category section.
type SampleGroup struct {
	Category string    `json:"category" validate:"required"`
	Tests    []TestRow `json:"tests"    validate:"required,min=1,dive"`
}

// Request is the unit of validation and submission.  It is constructed
// fresh per form session and discarded after the attempt; nothing is
// persisted.
type Request struct {
	FullName     string        `json:"fullName"     validate:"required,min=2,max=100"`
	CompanyName  string        `json:"companyName"  validate:"required,min=2,max=100"`
	Email        string        `json:"email"        validate:"required,email,max=150"`
	PhoneCode    string        `json:"phoneCode"    validate:"required"`
	PhoneNumber  string        `json:"phoneNumber"  validate:"required,min=5,max=20"`
	SampleGroups []SampleGroup `json:"sampleGroups" validate:"required,min=1,dive"`
}

// -----------------------------------------------------------------------------
// Validation
// -----------------------------------------------------------------------------

// Validate checks r against the schema and returns field-level errors.  An
// empty slice means the request is well-formed.
func Validate(r *Request) []forms.FieldError {
	err := forms.Validator.Struct(r)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		// InvalidValidationError only happens for non-struct input, which
		// would be a programming error upstream.
		return []forms.FieldError{{Name: "", Message: "Invalid form data structure."}}
	}

	out := make([]forms.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, forms.FieldError{
			Name:    fieldPath(fe.Namespace()),
			Message: fieldMessage(fe),
		})
	}
	return out
}

// fieldPath turns a validator namespace like
// "Request.SampleGroups[0].Tests[1].TestNames" into the JSON-facing path
// "sampleGroups[0].tests[1].testNames".
func fieldPath(ns string) string {
	ns = strings.TrimPrefix(ns, "Request.")
	return structToJSON.Replace(ns)
}

var structToJSON = strings.NewReplacer(
	"FullName", "fullName",
	"CompanyName", "companyName",
	"Email", "email",
	"PhoneCode", "phoneCode",
	"PhoneNumber", "phoneNumber",
	"SampleGroups", "sampleGroups",
	"Category", "category",
	"Tests", "tests",
	"SampleType", "sampleType",
	"TestNames", "testNames",
	"OtherSpecification", "otherSpecification",
	"Quantity", "quantity",
)

// fieldMessage maps a failed rule to the user-facing message the form
// shows next to the field.
func fieldMessage(fe validator.FieldError) string {
	switch fe.Field() {
	case "FullName":
		return "Full name must be at least 2 characters"
	case "CompanyName":
		return "Company name must be at least 2 characters"
	case "Email":
		return "Please enter a valid email address"
	case "PhoneCode":
		return "Country code is required"
	case "PhoneNumber":
		return "Phone number is required"
	case "SampleGroups":
		return "At least one analysis category must be added"
	case "Category":
		return "Category is required"
	case "Tests":
		return "Each category needs at least one test row"
	case "SampleType":
		return "Sample type is required"
	case "TestNames":
		return "Please select at least one test parameter"
	case "Quantity":
		return "At least 1 sample is required"
	}
	return "Invalid input"
}
