// internal/contact/contact_test.go

package contact

import (
	"strings"
	"testing"
)

func validInquiry() *Inquiry {
	return &Inquiry{
		FullName:    "Lim Wei",
		CompanyName: "Delta Foods",
		Email:       "wei@deltafoods.my",
		InquiryType: "Technical Support",
		Message:     "Our last soil report seems to be missing page two.",
	}
}

func TestValidateAcceptsWellFormedInquiry(t *testing.T) {
	if fields := Validate(validInquiry()); len(fields) != 0 {
		t.Fatalf("unexpected field errors: %+v", fields)
	}
}

func TestValidateRejectsBrokenInquiries(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(q *Inquiry)
		wantField string
	}{
		{"short name", func(q *Inquiry) { q.FullName = "L" }, "fullName"},
		{"bad email", func(q *Inquiry) { q.Email = "nope" }, "email"},
		{"unknown inquiry type", func(q *Inquiry) { q.InquiryType = "Complaint" }, "inquiryType"},
		{"message too short", func(q *Inquiry) { q.Message = "hi" }, "message"},
		{"message too long", func(q *Inquiry) { q.Message = strings.Repeat("x", 1001) }, "message"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q := validInquiry()
			tc.mutate(q)

			fields := Validate(q)
			found := false
			for _, f := range fields {
				if f.Name == tc.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("no error for field %q; got %+v", tc.wantField, fields)
			}
		})
	}
}

func TestValidateAcceptsEveryListedInquiryType(t *testing.T) {
	for _, it := range InquiryTypes {
		q := validInquiry()
		q.InquiryType = it
		if fields := Validate(q); len(fields) != 0 {
			t.Errorf("inquiry type %q rejected: %+v", it, fields)
		}
	}
}

func TestSubject(t *testing.T) {
	q := validInquiry()
	if got := Subject(q); got != "[Web Portal] Technical Support from Delta Foods" {
		t.Errorf("Subject = %q", got)
	}

	q.CompanyName = "Delta\r\nBcc: spy@evil.example"
	if got := Subject(q); strings.ContainsAny(got, "\r\n") {
		t.Errorf("Subject still contains CR/LF: %q", got)
	}
}

func TestRenderHTMLEscapesAndPreservesMessage(t *testing.T) {
	q := validInquiry()
	q.Message = "line one\nline two <script>alert(1)</script>"

	html := RenderHTML(q)
	if strings.Contains(html, "<script>") {
		t.Error("raw <script> leaked into HTML")
	}
	if !strings.Contains(html, "&lt;script&gt;") {
		t.Error("message was not entity-escaped")
	}
	if !strings.Contains(html, "white-space: pre-wrap") {
		t.Error("message cell should preserve line breaks")
	}
	for _, want := range []string{"Lim Wei", "Delta Foods", "Technical Support"} {
		if !strings.Contains(html, want) {
			t.Errorf("HTML missing %q", want)
		}
	}
}
