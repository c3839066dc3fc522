// internal/quote/render.go
//
// Dual-format rendering: notification e-mail HTML and CSV attachment.
//
// Context
//   Both renderers consume the same FlatRecord sequence and must agree on
//   row count and row order—the commercial team reads the e-mail table and
//   fills prices into the attached CSV.  Free-text fields are escaped per
//   format: HTML entity escaping for the body, quote doubling plus a
//   formula-injection guard for the CSV (spreadsheet software executes
//   cells starting with '=', '+', '-', '@', tab, or CR unless neutralized).
//
//   Validation upstream guarantees at least one record, so an empty
//   sequence here is a programming error, not a user error.
//
//------------------------------------------------------------------------------

package quote

import (
	"fmt"
	"strconv"
	"strings"
)

// CSVHeader is the fixed attachment header row.  Price columns are left
// empty for staff to fill in before forwarding the sheet to the client.
const CSVHeader = "Category,Sample Type,Parameter / Test Name,Quantity,Unit Price (RM),Total Price (RM)"

// -----------------------------------------------------------------------------
// HTML
// -----------------------------------------------------------------------------

// htmlEscaper covers the five characters that break out of attribute or
// text context.  Quantity is numeric and is never escaped.
var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#039;",
)

func escapeHTML(s string) string { return htmlEscaper.Replace(s) }

const cellStyle = "padding: 10px; border: 1px solid #ddd;"
const headCellStyle = "padding: 12px 10px; border: 1px solid #ddd;"

// placeholder is the empty bracket staff type prices into when replying
// directly instead of using the CSV.
const placeholder = "[ &nbsp; &nbsp; &nbsp; &nbsp; ]"

// RenderHTML builds the notification e-mail body: the submitter's contact
// block followed by one table row per flat record.
func RenderHTML(r *Request, records []FlatRecord) string {
	if len(records) == 0 {
		panic("quote: RenderHTML called with no records")
	}

	var rows strings.Builder
	for i, rec := range records {
		fmt.Fprintf(&rows, `
            <tr>
                <td style="%[1]s text-align: center;">%[2]d</td>
                <td style="%[1]s">%[3]s</td>
                <td style="%[1]s">%[4]s</td>
                <td style="%[1]s">%[5]s</td>
                <td style="%[1]s text-align: center;">%[6]d</td>
                <td style="%[1]s text-align: center; color: #64748b; font-family: monospace;">%[7]s</td>
                <td style="%[1]s text-align: center; color: #64748b; font-family: monospace;">%[7]s</td>
            </tr>`,
			cellStyle, i+1,
			escapeHTML(rec.Category), escapeHTML(rec.SampleType), escapeHTML(rec.TestName),
			rec.Quantity, placeholder)
	}

	fullPhone := escapeHTML(r.PhoneCode + " " + r.PhoneNumber)

	var b strings.Builder
	fmt.Fprintf(&b, `
                <div style="font-family: Arial, sans-serif; color: #333; max-width: 900px; margin: 0 auto;">
                    <h2 style="color: #064E3B; border-bottom: 2px solid #059669; padding-bottom: 10px;">New Quote Request</h2>

                    <table style="border-collapse: collapse; width: 100%%; margin-bottom: 30px;">
                        <tr>
                            <td style="%[1]s font-weight: bold; width: 30%%; background-color: #f8fafc;">Client Name</td>
                            <td style="%[1]s">%[2]s</td>
                        </tr>
                        <tr>
                            <td style="%[1]s font-weight: bold; background-color: #f8fafc;">Company Name</td>
                            <td style="%[1]s">%[3]s</td>
                        </tr>
                        <tr>
                            <td style="%[1]s font-weight: bold; background-color: #f8fafc;">Email Address</td>
                            <td style="%[1]s"><a href="mailto:%[4]s">%[4]s</a></td>
                        </tr>
                        <tr>
                            <td style="%[1]s font-weight: bold; background-color: #f8fafc;">Phone Number</td>
                            <td style="%[1]s">%[5]s</td>
                        </tr>
                    </table>

                    <h3 style="color: #064E3B; margin-top: 30px; margin-bottom: 5px;">Requested Analysis Parameters</h3>
                    <p style="font-size: 13px; color: #64748b; margin-top: 0; margin-bottom: 15px;">
                        <em>Hit 'Reply' and type prices directly into the brackets below, or use the attached CSV framework.</em>
                    </p>
                    <table style="border-collapse: collapse; width: 100%%;">
                        <thead>
                            <tr style="background-color: #1a365d; color: white;">
                                <th style="%[6]s width: 5%%;">#</th>
                                <th style="%[6]s width: 15%%; text-align: left;">Category</th>
                                <th style="%[6]s width: 15%%; text-align: left;">Sample Type</th>
                                <th style="%[6]s width: 30%%; text-align: left;">Test / Parameter Name</th>
                                <th style="%[6]s width: 10%%;">Samples</th>
                                <th style="%[6]s width: 12%%;">Unit Price (RM)</th>
                                <th style="%[6]s width: 13%%;">Total Price (RM)</th>
                            </tr>
                        </thead>
                        <tbody>%[7]s
                        </tbody>
                    </table>

                    <p style="margin-top: 30px; font-size: 12px; color: #64748b;">
                        This quote request was submitted securely via the iTestchem web portal.
                    </p>
                </div>`,
		cellStyle,
		escapeHTML(r.FullName), escapeHTML(r.CompanyName), escapeHTML(r.Email),
		fullPhone, headCellStyle, rows.String())
	return b.String()
}

// -----------------------------------------------------------------------------
// CSV
// -----------------------------------------------------------------------------

// csvField quotes one free-text field: internal quotes are doubled, and
// values whose first character would be interpreted as a formula by
// spreadsheet software get a neutralizing leading apostrophe.
func csvField(s string) string {
	if s != "" {
		switch s[0] {
		case '=', '+', '-', '@', '\t', '\r':
			s = "'" + s
		}
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// RenderCSV builds the UTF-8 attachment: the fixed header plus one data
// row per flat record, price columns empty.
func RenderCSV(records []FlatRecord) []byte {
	if len(records) == 0 {
		panic("quote: RenderCSV called with no records")
	}

	var b strings.Builder
	b.WriteString(CSVHeader)
	b.WriteByte('\n')
	for _, rec := range records {
		b.WriteString(csvField(rec.Category))
		b.WriteByte(',')
		b.WriteString(csvField(rec.SampleType))
		b.WriteByte(',')
		b.WriteString(csvField(rec.TestName))
		b.WriteByte(',')
		b.WriteString(strconv.Itoa(rec.Quantity))
		b.WriteString(",,")
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

// -----------------------------------------------------------------------------
// Message metadata
// -----------------------------------------------------------------------------

var headerSanitizer = strings.NewReplacer("\r", "", "\n", "")

// Subject derives the notification subject.  CR and LF are stripped so
// submitter input can never inject extra mail headers.
func Subject(r *Request) string {
	return fmt.Sprintf("[Quote Request] %s - %s",
		headerSanitizer.Replace(r.CompanyName), headerSanitizer.Replace(r.FullName))
}

// AttachmentFilename derives the CSV filename from the company name, with
// anything outside [A-Za-z0-9_-] collapsed to underscores.
func AttachmentFilename(companyName string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		}
		return '_'
	}, companyName)
	return "Quote_Request_" + safe + ".csv"
}
