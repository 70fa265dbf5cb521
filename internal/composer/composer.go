// Package composer renders the two bodies of a resume update notification:
// an AMP for email document with an in-place form and a static HTML document
// that links to the hosted web form.
package composer

import (
	"bytes"
	"embed"
	"html/template"
	"net/url"
	"strings"
)

// Paths on the callback host that the rendered documents point at.
const (
	SubmitPath  = "/api/amp/submit"
	WebFormPath = "/api/form/resume-form"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Go template delimiters are swapped so the amp-mustache {{...}} blocks pass through untouched.
var (
	ampTemplate    = mustParse("templates/resume_update_amp.html")
	staticTemplate = mustParse("templates/resume_update_static.html")
)

func mustParse(name string) *template.Template {
	return template.Must(template.New(name[strings.LastIndex(name, "/")+1:]).
		Delims("[[", "]]").
		ParseFS(templatesFS, name))
}

// Context is the data substituted into both documents. Empty fields render as empty strings.
type Context struct {
	ApplicantName   string
	JobTitle        string
	CompanyName     string
	CallbackBaseURL string
	// Recipient pre-fills the email on both forms when set.
	Recipient string
}

// Documents holds both renderings of one notification.
type Documents struct {
	Interactive string
	Static      string
}

type view struct {
	Context
	SubmitURL string
	FormURL   string
}

// Compose renders both documents. It never fails: the templates are parsed at
// init and execution only reads string fields.
func Compose(c Context) Documents {
	base := strings.TrimRight(c.CallbackBaseURL, "/")
	v := view{
		Context:   c,
		SubmitURL: base + SubmitPath,
		FormURL:   FormURL(base, c),
	}

	return Documents{
		Interactive: render(ampTemplate, v),
		Static:      render(staticTemplate, v),
	}
}

// FormURL is the static call-to-action target carrying the applicant context.
func FormURL(base string, c Context) string {
	q := url.Values{}
	q.Set("email", c.Recipient)
	q.Set("name", c.ApplicantName)
	q.Set("job", c.JobTitle)
	q.Set("company", c.CompanyName)
	return strings.TrimRight(base, "/") + WebFormPath + "?" + q.Encode()
}

func render(t *template.Template, v view) string {
	var buf bytes.Buffer
	if err := t.Execute(&buf, v); err != nil {
		// unreachable with the embedded templates; keep the output non-empty anyway
		return "<!doctype html><html><body><p>" + template.HTMLEscapeString(v.FormURL) + "</p></body></html>"
	}
	return buf.String()
}
