// internal/web/submit_test.go

package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/itestchem/labportal/internal/catalog"
	"github.com/itestchem/labportal/internal/config"
	"github.com/itestchem/labportal/internal/mailer"
	"github.com/itestchem/labportal/internal/ratelimit"
)

// -----------------------------------------------------------------------------
// Counting fakes
// -----------------------------------------------------------------------------

type fakeVerifier struct {
	ok    bool
	err   error
	calls int
	last  string
}

func (f *fakeVerifier) Verify(_ context.Context, token string) (bool, error) {
	f.calls++
	f.last = token
	return f.ok, f.err
}

type fakeMailer struct {
	err   error
	calls int
	last  mailer.Message
}

func (f *fakeMailer) Send(_ context.Context, msg mailer.Message) error {
	f.calls++
	f.last = msg
	return f.err
}

// -----------------------------------------------------------------------------
// Harness
// -----------------------------------------------------------------------------

type harness struct {
	srv  *Server
	vf   *fakeVerifier
	mail *fakeMailer
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	cat := &catalog.Catalog{
		Categories: []catalog.Category{
			{Name: "Agricultural", SampleTypes: []catalog.SampleType{
				{Name: "Soil", Parameters: []catalog.Parameter{{Name: "Nitrogen"}, {Name: "Organic Carbon"}}},
			}},
		},
		CountryCodes: []catalog.CountryCode{{Code: "+60", Country: "Malaysia"}},
	}

	vf := &fakeVerifier{ok: true}
	mail := &fakeMailer{}
	srv := New(&config.Config{}, zap.NewNop().Sugar(), cat, vf, mail,
		ratelimit.New(100, time.Minute))

	return &harness{srv: srv, vf: vf, mail: mail}
}

func (h *harness) do(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.srv.Routes().ServeHTTP(rec, req)

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("response is not JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return rec, env
}

func postJSON(t *testing.T, path string, payload any) *http.Request {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "203.0.113.9:51234"
	return req
}

func quotePayload() map[string]any {
	return map[string]any{
		"turnstileToken": "tok-ok",
		"fullName":       "Jane Tan",
		"companyName":    "Acme Plantations",
		"email":          "jane@acme.my",
		"phoneCode":      "+60",
		"phoneNumber":    "123456789",
		"sampleGroups": []map[string]any{
			{
				"category": "Agricultural",
				"tests": []map[string]any{
					{
						"sampleType": "Soil",
						"testNames":  []string{"Nitrogen", "Organic Carbon"},
						"quantity":   5,
					},
				},
			},
		},
	}
}

// -----------------------------------------------------------------------------
// Quote pipeline
// -----------------------------------------------------------------------------

func TestQuoteEndToEnd(t *testing.T) {
	h := newHarness(t)

	_, env := h.do(t, postJSON(t, "/api/quote", quotePayload()))

	if !env.Success || env.Error != "" {
		t.Fatalf("expected success envelope, got %+v", env)
	}
	if h.vf.calls != 1 || h.vf.last != "tok-ok" {
		t.Errorf("verifier calls=%d last=%q", h.vf.calls, h.vf.last)
	}
	if h.mail.calls != 1 {
		t.Fatalf("mailer calls = %d, want 1", h.mail.calls)
	}

	msg := h.mail.last
	if msg.ReplyTo != "jane@acme.my" {
		t.Errorf("ReplyTo = %q", msg.ReplyTo)
	}
	if msg.Subject != "[Quote Request] Acme Plantations - Jane Tan" {
		t.Errorf("Subject = %q", msg.Subject)
	}
	if len(msg.Attachments) != 1 {
		t.Fatalf("attachments = %d, want 1", len(msg.Attachments))
	}

	att := msg.Attachments[0]
	if att.Filename != "Quote_Request_Acme_Plantations.csv" || att.ContentType != "text/csv" {
		t.Errorf("attachment meta = %q %q", att.Filename, att.ContentType)
	}
	lines := strings.Split(strings.TrimRight(string(att.Content), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("CSV has %d lines, want header + 2 rows:\n%s", len(lines), att.Content)
	}
	if !strings.Contains(lines[1], "Nitrogen") || !strings.Contains(lines[2], "Organic Carbon") {
		t.Errorf("CSV rows out of order:\n%s", att.Content)
	}
	if !strings.Contains(msg.HTML, "Jane Tan") || !strings.Contains(msg.HTML, "Nitrogen") {
		t.Error("HTML body missing submitter or row data")
	}
}

func TestQuoteMissingTokenShortCircuits(t *testing.T) {
	h := newHarness(t)

	payload := quotePayload()
	payload["turnstileToken"] = ""
	_, env := h.do(t, postJSON(t, "/api/quote", payload))

	if env.Error != msgTokenMissing {
		t.Errorf("error = %q, want %q", env.Error, msgTokenMissing)
	}
	if h.vf.calls != 0 {
		t.Errorf("verifier called %d times before token check", h.vf.calls)
	}
	if h.mail.calls != 0 {
		t.Errorf("mailer called %d times on refused submission", h.mail.calls)
	}
}

func TestQuoteRejectedToken(t *testing.T) {
	h := newHarness(t)
	h.vf.ok = false

	_, env := h.do(t, postJSON(t, "/api/quote", quotePayload()))

	if env.Error != msgBotDetected {
		t.Errorf("error = %q, want %q", env.Error, msgBotDetected)
	}
	if h.mail.calls != 0 {
		t.Error("mail dispatched despite failed verification")
	}
}

func TestQuoteVerifierOutage(t *testing.T) {
	h := newHarness(t)
	h.vf.err = errors.New("siteverify unreachable")

	_, env := h.do(t, postJSON(t, "/api/quote", quotePayload()))

	if env.Error != genericFailure {
		t.Errorf("error = %q, want the generic failure", env.Error)
	}
	if h.mail.calls != 0 {
		t.Error("mail dispatched despite verifier outage")
	}
}

func TestQuoteMalformedJSON(t *testing.T) {
	h := newHarness(t)

	req := httptest.NewRequest(http.MethodPost, "/api/quote", strings.NewReader("{nope"))
	req.RemoteAddr = "203.0.113.9:51234"
	_, env := h.do(t, req)

	if env.Error != msgInvalidShape {
		t.Errorf("error = %q, want %q", env.Error, msgInvalidShape)
	}
	if h.vf.calls != 0 || h.mail.calls != 0 {
		t.Error("pipeline advanced past a malformed payload")
	}
}

func TestQuoteValidationFailureReportsFields(t *testing.T) {
	h := newHarness(t)

	payload := quotePayload()
	payload["email"] = "not-an-email"
	payload["sampleGroups"] = []map[string]any{}
	_, env := h.do(t, postJSON(t, "/api/quote", payload))

	if env.Error != msgInvalidShape {
		t.Errorf("error = %q", env.Error)
	}
	if len(env.Fields) == 0 {
		t.Fatal("expected field errors")
	}
	if h.mail.calls != 0 {
		t.Error("mail dispatched despite validation failure")
	}
}

func TestQuoteMailFailure(t *testing.T) {
	h := newHarness(t)
	h.mail.err = errors.New("smtp 451")

	_, env := h.do(t, postJSON(t, "/api/quote", quotePayload()))

	if env.Success {
		t.Fatal("success reported despite mail failure")
	}
	if env.Error != msgQuoteFailed {
		t.Errorf("error = %q, want %q", env.Error, msgQuoteFailed)
	}
	if h.mail.calls != 1 {
		t.Errorf("mailer calls = %d, want exactly one attempt", h.mail.calls)
	}
}

func TestQuoteRateLimit(t *testing.T) {
	h := newHarness(t)
	h.srv.limiter = ratelimit.New(1, time.Minute)

	if _, env := h.do(t, postJSON(t, "/api/quote", quotePayload())); !env.Success {
		t.Fatalf("first submission refused: %+v", env)
	}
	_, env := h.do(t, postJSON(t, "/api/quote", quotePayload()))
	if env.Error != msgTooMany {
		t.Errorf("error = %q, want %q", env.Error, msgTooMany)
	}
	if h.vf.calls != 1 {
		t.Errorf("verifier called %d times; rate limit should fire first", h.vf.calls)
	}
	if h.mail.calls != 1 {
		t.Errorf("mailer calls = %d, want 1", h.mail.calls)
	}
}

// -----------------------------------------------------------------------------
// Contact
// -----------------------------------------------------------------------------

func TestContactEndToEnd(t *testing.T) {
	h := newHarness(t)

	_, env := h.do(t, postJSON(t, "/api/contact", map[string]any{
		"turnstileToken": "tok-ok",
		"fullName":       "Lim Wei",
		"companyName":    "Delta Foods",
		"email":          "wei@deltafoods.my",
		"inquiryType":    "Sample Tracking",
		"message":        "Where is sample batch 42?  It was dropped off last Tuesday.",
	}))

	if !env.Success {
		t.Fatalf("expected success, got %+v", env)
	}
	msg := h.mail.last
	if msg.ReplyTo != "wei@deltafoods.my" {
		t.Errorf("ReplyTo = %q", msg.ReplyTo)
	}
	if msg.Subject != "[Web Portal] Sample Tracking from Delta Foods" {
		t.Errorf("Subject = %q", msg.Subject)
	}
	if len(msg.Attachments) != 0 {
		t.Errorf("contact mail should carry no attachments, got %d", len(msg.Attachments))
	}
}

func TestContactValidationFailure(t *testing.T) {
	h := newHarness(t)

	_, env := h.do(t, postJSON(t, "/api/contact", map[string]any{
		"turnstileToken": "tok-ok",
		"fullName":       "Lim Wei",
		"companyName":    "Delta Foods",
		"email":          "wei@deltafoods.my",
		"inquiryType":    "Not A Real Type",
		"message":        "short",
	}))

	if env.Success || len(env.Fields) < 2 {
		t.Fatalf("expected field errors for inquiryType and message, got %+v", env)
	}
	if h.mail.calls != 0 {
		t.Error("mail dispatched despite validation failure")
	}
}

// -----------------------------------------------------------------------------
// Careers (multipart)
// -----------------------------------------------------------------------------

func multipartApplication(t *testing.T, fields map[string]string, files map[string][]byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("write field %s: %v", k, err)
		}
	}
	for field, content := range files {
		hdr := textproto.MIMEHeader{}
		hdr.Set("Content-Disposition",
			fmt.Sprintf(`form-data; name=%q; filename=%q`, field, field+".pdf"))
		hdr.Set("Content-Type", "application/pdf")
		part, err := w.CreatePart(hdr)
		if err != nil {
			t.Fatalf("create part %s: %v", field, err)
		}
		part.Write(content)
	}
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/careers/apply", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.RemoteAddr = "203.0.113.9:51234"
	return req
}

func applicationFields() map[string]string {
	return map[string]string{
		"turnstileToken": "tok-ok",
		"fullName":       "Nur Aisyah",
		"email":          "aisyah@example.my",
		"position":       "Lab Analyst",
	}
}

func TestApplicationEndToEnd(t *testing.T) {
	h := newHarness(t)

	req := multipartApplication(t, applicationFields(), map[string][]byte{
		"resume":      []byte("%PDF-1.4 resume"),
		"coverLetter": []byte("%PDF-1.4 cover"),
	})
	_, env := h.do(t, req)

	if !env.Success {
		t.Fatalf("expected success, got %+v", env)
	}
	msg := h.mail.last
	if msg.Subject != "[Job Application] Lab Analyst - Nur Aisyah" {
		t.Errorf("Subject = %q", msg.Subject)
	}
	if len(msg.Attachments) != 2 {
		t.Fatalf("attachments = %d, want resume + cover letter", len(msg.Attachments))
	}
	if msg.Attachments[0].Filename != "resume.pdf" || msg.Attachments[0].ContentType != "application/pdf" {
		t.Errorf("resume attachment = %+v", msg.Attachments[0])
	}
}

func TestApplicationCoverLetterOptional(t *testing.T) {
	h := newHarness(t)

	req := multipartApplication(t, applicationFields(), map[string][]byte{
		"resume": []byte("%PDF-1.4 resume"),
	})
	_, env := h.do(t, req)

	if !env.Success {
		t.Fatalf("expected success without cover letter, got %+v", env)
	}
	if len(h.mail.last.Attachments) != 1 {
		t.Errorf("attachments = %d, want 1", len(h.mail.last.Attachments))
	}
}

func TestApplicationResumeRequired(t *testing.T) {
	h := newHarness(t)

	_, env := h.do(t, multipartApplication(t, applicationFields(), nil))

	if env.Success {
		t.Fatal("application accepted without a resume")
	}
	if !strings.Contains(env.Error, "Resume") {
		t.Errorf("error = %q, want a resume-specific message", env.Error)
	}
	if h.mail.calls != 0 {
		t.Error("mail dispatched despite missing resume")
	}
}

func TestApplicationRejectsNonPDF(t *testing.T) {
	h := newHarness(t)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range applicationFields() {
		w.WriteField(k, v)
	}
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="resume"; filename="resume.zip"`)
	hdr.Set("Content-Type", "application/zip")
	part, _ := w.CreatePart(hdr)
	part.Write([]byte("PK\x03\x04"))
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/careers/apply", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.RemoteAddr = "203.0.113.9:51234"

	_, env := h.do(t, req)
	if env.Success || !strings.Contains(env.Error, "Only PDF files") {
		t.Errorf("expected PDF-only refusal, got %+v", env)
	}
	if h.mail.calls != 0 {
		t.Error("mail dispatched despite bad upload type")
	}
}

func TestApplicationOversizedBodyRefusedAtTransport(t *testing.T) {
	h := newHarness(t)

	// A single part larger than the whole-request cap; the body must be cut
	// off at the transport, not buffered and then size-checked per file.
	req := multipartApplication(t, applicationFields(), map[string][]byte{
		"resume": bytes.Repeat([]byte("x"), maxMultipartBody+1),
	})
	_, env := h.do(t, req)

	if env.Success {
		t.Fatal("oversized request accepted")
	}
	if env.Error != msgInvalidShape {
		t.Errorf("error = %q, want %q", env.Error, msgInvalidShape)
	}
	if h.vf.calls != 0 || h.mail.calls != 0 {
		t.Error("pipeline advanced past an oversized request")
	}
}

// -----------------------------------------------------------------------------
// Static endpoints and guards
// -----------------------------------------------------------------------------

func TestCatalogEndpoint(t *testing.T) {
	h := newHarness(t)

	req := httptest.NewRequest(http.MethodGet, "/api/catalog", nil)
	rec := httptest.NewRecorder()
	h.srv.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if cc := rec.Header().Get("Cache-Control"); !strings.Contains(cc, "max-age=3600") {
		t.Errorf("Cache-Control = %q", cc)
	}

	var cat struct {
		Categories []struct {
			Name string `json:"name"`
		} `json:"categories"`
		CountryCodes []struct {
			Code string `json:"code"`
		} `json:"countryCodes"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &cat); err != nil {
		t.Fatalf("catalog is not JSON: %v", err)
	}
	if len(cat.Categories) != 1 || cat.Categories[0].Name != "Agricultural" {
		t.Errorf("categories = %+v", cat.Categories)
	}
	if len(cat.CountryCodes) != 1 || cat.CountryCodes[0].Code != "+60" {
		t.Errorf("country codes = %+v", cat.CountryCodes)
	}
}

func TestHealthEndpoint(t *testing.T) {
	h := newHarness(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.srv.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("health = %d %s", rec.Code, rec.Body.String())
	}
}

type panickyVerifier struct{}

func (panickyVerifier) Verify(context.Context, string) (bool, error) { panic("boom") }

func TestPanicRecoveredToGenericFailure(t *testing.T) {
	h := newHarness(t)
	h.srv.verifier = panickyVerifier{}

	_, env := h.do(t, postJSON(t, "/api/quote", quotePayload()))

	if env.Success {
		t.Fatal("success reported after a handler panic")
	}
	if env.Error != genericFailure {
		t.Errorf("error = %q, want the generic failure", env.Error)
	}
	if h.mail.calls != 0 {
		t.Error("mail dispatched after a panic")
	}
}
