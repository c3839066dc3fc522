// internal/web/submit.go
//
// Submission handlers: the gate sequence shared by all three forms.
//
// Context
//   Every submission walks the same gauntlet, each step a hard gate that
//   aborts the attempt with a user-facing message and performs no further
//   work:
//
//     1. best-effort per-IP rate limit,
//     2. CAPTCHA token present,
//     3. token confirmed by the verification service,
//     4. payload re-validated server-side (the client checked the same
//        shape, but the client is not a trust boundary),
//     5. domain processing (flatten + dual render for quotes),
//     6. single mail dispatch attempt.
//
//   Failures after the validation gate collapse into one generic message;
//   the diagnostic detail lands in the server log only.  Nothing is
//   retried, queued, or persisted—the submitter resubmits on failure.
//
//------------------------------------------------------------------------------

package web

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/itestchem/labportal/internal/careers"
	"github.com/itestchem/labportal/internal/contact"
	"github.com/itestchem/labportal/internal/mailer"
	"github.com/itestchem/labportal/internal/metrics"
	"github.com/itestchem/labportal/internal/quote"
	"github.com/itestchem/labportal/internal/requestinfo"
)

const (
	maxJSONBody      = 1 << 20  // quote and contact payloads
	maxMultipartBody = 12 << 20 // two 5 MiB PDFs plus fields

	msgTokenMissing  = "CAPTCHA token missing."
	msgBotDetected   = "Bot detected. CAPTCHA validation failed."
	msgInvalidShape  = "Invalid form data structure. Please check your inputs."
	msgTooMany       = "Too many submissions. Please try again later."
	msgQuoteFailed   = "Failed to submit quote request. Please try again later."
	msgContactFailed = "Failed to send your message. Please try again later."
	msgCareersFailed = "Failed to submit application. Please try again later."
)

// -----------------------------------------------------------------------------
// Shared gates
// -----------------------------------------------------------------------------

// gate runs the rate-limit and CAPTCHA gates.  It reports false after
// writing the refusal, in which case the handler must return immediately.
func (s *Server) gate(w http.ResponseWriter, r *http.Request, form, token string) bool {
	info := requestinfo.FromContext(r.Context())

	if ok, _ := s.limiter.Allow(form + ":" + info.ClientKey()); !ok {
		metrics.RateLimitedTotal.Inc()
		metrics.SubmissionsTotal.WithLabelValues(form, "rate_limited").Inc()
		s.writeError(w, msgTooMany)
		return false
	}

	if token == "" {
		metrics.SubmissionsTotal.WithLabelValues(form, "captcha").Inc()
		s.writeError(w, msgTokenMissing)
		return false
	}

	ok, err := s.verifier.Verify(r.Context(), token)
	if err != nil {
		metrics.TurnstileFailuresTotal.Inc()
		metrics.SubmissionsTotal.WithLabelValues(form, "error").Inc()
		s.log.Errorw("captcha verification call failed", "form", form, "err", err)
		s.writeError(w, genericFailure)
		return false
	}
	if !ok {
		metrics.TurnstileFailuresTotal.Inc()
		metrics.SubmissionsTotal.WithLabelValues(form, "captcha").Inc()
		s.writeError(w, msgBotDetected)
		return false
	}
	return true
}

// dispatch attempts the single mail send and writes the outcome.
func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, form, failMsg string, msg mailer.Message) {
	if err := s.mail.Send(r.Context(), msg); err != nil {
		metrics.MailDispatchErrorsTotal.Inc()
		metrics.SubmissionsTotal.WithLabelValues(form, "error").Inc()
		s.log.Errorw("mail dispatch failed", "form", form, "err", err)
		s.writeError(w, failMsg)
		return
	}

	info := requestinfo.FromContext(r.Context())
	s.log.Infow("submission relayed",
		"form", form,
		"subject", msg.Subject,
		"reply_to", msg.ReplyTo,
		"country", info.Geo.CountryISO,
		"browser", info.UA.Browser,
		"device", info.UA.Device,
	)
	metrics.SubmissionsTotal.WithLabelValues(form, "ok").Inc()
	s.writeSuccess(w)
}

// -----------------------------------------------------------------------------
// Quote
// -----------------------------------------------------------------------------

// quoteSubmission is the wire shape: the CAPTCHA token rides alongside the
// embedded request fields.
type quoteSubmission struct {
	TurnstileToken string `json:"turnstileToken"`
	quote.Request
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	var sub quoteSubmission
	if err := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody)).Decode(&sub); err != nil {
		metrics.SubmissionsTotal.WithLabelValues("quote", "invalid").Inc()
		s.writeError(w, msgInvalidShape)
		return
	}

	if !s.gate(w, r, "quote", sub.TurnstileToken) {
		return
	}

	if fields := quote.Validate(&sub.Request); len(fields) > 0 {
		metrics.SubmissionsTotal.WithLabelValues("quote", "invalid").Inc()
		s.writeFieldErrors(w, msgInvalidShape, fields)
		return
	}

	records := quote.Flatten(sub.SampleGroups)
	msg := mailer.Message{
		ReplyTo: sub.Email,
		Subject: quote.Subject(&sub.Request),
		HTML:    quote.RenderHTML(&sub.Request, records),
		Attachments: []mailer.Attachment{{
			Filename:    quote.AttachmentFilename(sub.CompanyName),
			ContentType: "text/csv",
			Content:     quote.RenderCSV(records),
		}},
	}
	s.dispatch(w, r, "quote", msgQuoteFailed, msg)
}

// -----------------------------------------------------------------------------
// Contact
// -----------------------------------------------------------------------------

type contactSubmission struct {
	TurnstileToken string `json:"turnstileToken"`
	contact.Inquiry
}

func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	var sub contactSubmission
	if err := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody)).Decode(&sub); err != nil {
		metrics.SubmissionsTotal.WithLabelValues("contact", "invalid").Inc()
		s.writeError(w, msgInvalidShape)
		return
	}

	if !s.gate(w, r, "contact", sub.TurnstileToken) {
		return
	}

	if fields := contact.Validate(&sub.Inquiry); len(fields) > 0 {
		metrics.SubmissionsTotal.WithLabelValues("contact", "invalid").Inc()
		s.writeFieldErrors(w, msgInvalidShape, fields)
		return
	}

	msg := mailer.Message{
		ReplyTo: sub.Email,
		Subject: contact.Subject(&sub.Inquiry),
		HTML:    contact.RenderHTML(&sub.Inquiry),
	}
	s.dispatch(w, r, "contact", msgContactFailed, msg)
}

// -----------------------------------------------------------------------------
// Careers
// -----------------------------------------------------------------------------

func (s *Server) handleApplication(w http.ResponseWriter, r *http.Request) {
	// MaxBytesReader caps the bytes read off the wire; ParseMultipartForm's
	// argument only bounds in-memory buffering before spilling to disk.
	r.Body = http.MaxBytesReader(w, r.Body, maxMultipartBody)
	if err := r.ParseMultipartForm(maxMultipartBody); err != nil {
		metrics.SubmissionsTotal.WithLabelValues("careers", "invalid").Inc()
		s.writeError(w, msgInvalidShape)
		return
	}

	if !s.gate(w, r, "careers", r.FormValue("turnstileToken")) {
		return
	}

	app := careers.Application{
		FullName: r.FormValue("fullName"),
		Email:    r.FormValue("email"),
		Position: r.FormValue("position"),
	}
	if fields := careers.Validate(&app); len(fields) > 0 {
		metrics.SubmissionsTotal.WithLabelValues("careers", "invalid").Inc()
		s.writeFieldErrors(w, msgInvalidShape, fields)
		return
	}

	resume, err := s.readUpload(r, "resume", "resume", true)
	if err != nil {
		metrics.SubmissionsTotal.WithLabelValues("careers", "invalid").Inc()
		s.writeError(w, err.Error())
		return
	}
	attachments := []mailer.Attachment{*resume}

	if cover, err := s.readUpload(r, "coverLetter", "cover letter", false); err != nil {
		metrics.SubmissionsTotal.WithLabelValues("careers", "invalid").Inc()
		s.writeError(w, err.Error())
		return
	} else if cover != nil {
		attachments = append(attachments, *cover)
	}

	msg := mailer.Message{
		ReplyTo:     app.Email,
		Subject:     careers.Subject(&app),
		HTML:        careers.RenderHTML(&app),
		Attachments: attachments,
	}
	s.dispatch(w, r, "careers", msgCareersFailed, msg)
}

// readUpload pulls one PDF out of the multipart form.  A missing optional
// file returns (nil, nil); a missing required one is an error.  The error
// text is user-facing, so it carries no transport detail.
func (s *Server) readUpload(r *http.Request, field, label string, required bool) (*mailer.Attachment, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if required {
			return nil, fmt.Errorf("%s file is required.", capitalizeFirst(label))
		}
		return nil, nil
	}
	defer file.Close()

	if header.Size == 0 && !required {
		return nil, nil
	}
	if err := careers.CheckUpload(label, header.Header.Get("Content-Type"), header.Size); err != nil {
		return nil, err
	}

	content, err := io.ReadAll(io.LimitReader(file, careers.MaxAttachmentBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%s upload could not be read.", capitalizeFirst(label))
	}
	if len(content) > careers.MaxAttachmentBytes {
		return nil, fmt.Errorf("%s file size exceeds the 5MB limit.", capitalizeFirst(label))
	}

	return &mailer.Attachment{
		Filename:    careers.SafeFilename(header.Filename),
		ContentType: careers.PDFContentType,
		Content:     content,
	}, nil
}

func capitalizeFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
