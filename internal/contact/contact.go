// internal/contact/contact.go
//
// Contact-inquiry schema, validation, and e-mail body.
//
// Context
//   The contact form is the simplest of the three submission types: a flat
//   set of identity fields, a fixed inquiry-type choice, and a free-text
//   message.  The whole payload is rendered into one HTML key/value table
//   and relayed to the operations inbox with reply-to set to the submitter.
//
//------------------------------------------------------------------------------

package contact

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/itestchem/labportal/internal/forms"
)

// InquiryTypes lists the accepted values for the inquiry dropdown.  The
// oneof rule below must stay in sync with this list.
var InquiryTypes = []string{
	"Request a Quote",
	"Technical Support",
	"Sample Tracking",
	"General Inquiry",
}

// Inquiry is one contact-form submission.
type Inquiry struct {
	FullName    string `json:"fullName"    validate:"required,min=2,max=100"`
	CompanyName string `json:"companyName" validate:"required,min=2,max=100"`
	Email       string `json:"email"       validate:"required,email,max=150"`
	InquiryType string `json:"inquiryType" validate:"required,oneof='Request a Quote' 'Technical Support' 'Sample Tracking' 'General Inquiry'"`
	Message     string `json:"message"     validate:"required,min=10,max=1000"`
}

// Validate checks the inquiry shape and returns field-level errors.
func Validate(q *Inquiry) []forms.FieldError {
	err := forms.Validator.Struct(q)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []forms.FieldError{{Name: "", Message: "Invalid form data structure."}}
	}
	out := make([]forms.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, forms.FieldError{Name: jsonName(fe.Field()), Message: message(fe.Field())})
	}
	return out
}

func jsonName(field string) string {
	if field == "" {
		return ""
	}
	return strings.ToLower(field[:1]) + field[1:]
}

func message(field string) string {
	switch field {
	case "FullName":
		return "Full name must be at least 2 characters"
	case "CompanyName":
		return "Company name must be at least 2 characters"
	case "Email":
		return "Please enter a valid email address"
	case "InquiryType":
		return "Please select an inquiry type"
	case "Message":
		return "Message must be between 10 and 1000 characters"
	}
	return "Invalid input"
}

// -----------------------------------------------------------------------------
// Mail rendering
// -----------------------------------------------------------------------------

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "'", "&#039;",
)

var headerSanitizer = strings.NewReplacer("\r", "", "\n", "")

// Subject derives the notification subject, with CR/LF stripped from the
// company name so it cannot inject mail headers.
func Subject(q *Inquiry) string {
	return fmt.Sprintf("[Web Portal] %s from %s",
		q.InquiryType, headerSanitizer.Replace(q.CompanyName))
}

// RenderHTML builds the notification body as one key/value table.  Every
// submitter-controlled value is entity-escaped.
func RenderHTML(q *Inquiry) string {
	row := func(label, value, extra string) string {
		return fmt.Sprintf(`
                    <tr>
                        <td style="padding: 10px; border: 1px solid #ddd; font-weight: bold;">%s</td>
                        <td style="padding: 10px; border: 1px solid #ddd;%s">%s</td>
                    </tr>`, label, extra, htmlEscaper.Replace(value))
	}

	var b strings.Builder
	b.WriteString(`
                <h2>New Contact Inquiry</h2>
                <table style="border-collapse: collapse; width: 100%; max-width: 600px;">`)
	b.WriteString(row("Full Name", q.FullName, ""))
	b.WriteString(row("Company Name", q.CompanyName, ""))
	b.WriteString(row("Work Email", q.Email, ""))
	b.WriteString(row("Inquiry Type", q.InquiryType, ""))
	b.WriteString(row("Message", q.Message, " white-space: pre-wrap;"))
	b.WriteString(`
                </table>`)
	return b.String()
}
