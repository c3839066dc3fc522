// internal/careers/careers.go
//
// Job-application schema, attachment checks, and e-mail body.
//
// Context
//   The careers form posts multipart data: identity fields plus a required
//   resume PDF and an optional cover-letter PDF.  Files are size- and
//   type-gated before any buffering reaches the mail layer, and their
//   names are sanitized so a crafted upload filename cannot smuggle path
//   separators or header syntax into the outbound message.
//
//------------------------------------------------------------------------------

package careers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/itestchem/labportal/internal/forms"
)

// MaxAttachmentBytes caps each uploaded PDF.
const MaxAttachmentBytes = 5 << 20 // 5 MiB

// PDFContentType is the only accepted upload type.
const PDFContentType = "application/pdf"

// Application is one careers-form submission.  Attachment contents are
// handled separately by the HTTP layer; only metadata-bearing fields live
// here.
type Application struct {
	FullName string `json:"fullName" validate:"required,min=2,max=100"`
	Email    string `json:"email"    validate:"required,email,max=150"`
	Position string `json:"position" validate:"required,min=2,max=100"`
}

// Validate checks the application fields and returns field-level errors.
func Validate(a *Application) []forms.FieldError {
	err := forms.Validator.Struct(a)
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
	case "Email":
		return "Please enter a valid email address"
	case "Position":
		return "Position is required"
	}
	return "Invalid input"
}

// -----------------------------------------------------------------------------
// Attachment gating
// -----------------------------------------------------------------------------

// CheckUpload validates one uploaded file's declared type and size.  label
// names the field in the returned message ("resume", "cover letter").
func CheckUpload(label, contentType string, size int64) error {
	if contentType != PDFContentType {
		return fmt.Errorf("Only PDF files are allowed for the %s.", label)
	}
	if size > MaxAttachmentBytes {
		return fmt.Errorf("%s file size exceeds the 5MB limit.", capitalize(label))
	}
	return nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// SafeFilename sanitizes an upload name for use as an attachment filename:
// anything outside [A-Za-z0-9._-] collapses to '_' and the extension is
// forced to .pdf.
func SafeFilename(name string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '_', r == '-':
			return r
		}
		return '_'
	}, name)
	if i := strings.LastIndexByte(safe, '.'); i > 0 {
		safe = safe[:i]
	}
	if safe == "" {
		safe = "attachment"
	}
	return safe + ".pdf"
}

// -----------------------------------------------------------------------------
// Mail rendering
// -----------------------------------------------------------------------------

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "'", "&#039;",
)

var headerSanitizer = strings.NewReplacer("\r", "", "\n", "")

// Subject derives the notification subject with header-safe fields.
func Subject(a *Application) string {
	return fmt.Sprintf("[Job Application] %s - %s",
		headerSanitizer.Replace(a.Position), headerSanitizer.Replace(a.FullName))
}

// RenderHTML builds the notification body.
func RenderHTML(a *Application) string {
	row := func(label, value string) string {
		return fmt.Sprintf(`
                    <tr>
                        <td style="padding: 10px; border: 1px solid #ddd; font-weight: bold;">%s</td>
                        <td style="padding: 10px; border: 1px solid #ddd;">%s</td>
                    </tr>`, label, htmlEscaper.Replace(value))
	}

	var b strings.Builder
	b.WriteString(`
                <h2>New Job Application Received</h2>
                <table style="border-collapse: collapse; width: 100%; max-width: 600px;">`)
	b.WriteString(row("Full Name", a.FullName))
	b.WriteString(row("Email", a.Email))
	b.WriteString(row("Position Applied", a.Position))
	b.WriteString(`
                </table>`)
	return b.String()
}
