package web

import (
	"bytes"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockedby/resume-refresh/internal/apperr"
)

func TestTemplateEngine_Render(t *testing.T) {
	fsys := fstest.MapFS{
		"layout.html":     {Data: []byte(`[[ define "layout" ]]<!DOCTYPE html><html><body>[[ template "content" . ]]</body></html>[[ end ]]`)},
		"pages/page.html": {Data: []byte(`[[ define "content" ]]<h1>[[ .Title ]]</h1>[[ end ]]`)},
	}

	engine := NewTemplateEngine(fsys)
	require.NoError(t, engine.Load())

	var buf bytes.Buffer
	require.NoError(t, engine.Render(&buf, "page", map[string]any{"Title": "<Resume>"}))

	html := buf.String()
	assert.Contains(t, html, "<!DOCTYPE html>")
	assert.Contains(t, html, "<h1>&lt;Resume&gt;</h1>")

	buf.Reset()
	require.NoError(t, engine.RenderContent(&buf, "page", map[string]any{"Title": "Only"}))
	assert.Equal(t, "<h1>Only</h1>", buf.String())
}

func TestTemplateEngine_Errors(t *testing.T) {
	assert.Error(t, NewTemplateEngine(fstest.MapFS{}).Load())

	engine := NewTemplateEngine(fstest.MapFS{
		"layout.html": {Data: []byte(`[[ define "layout" ]]x[[ end ]]`)},
	})
	var buf bytes.Buffer
	assert.Error(t, engine.Render(&buf, "page", nil), "render before load")

	require.NoError(t, engine.Load())
	assert.Error(t, engine.Render(&buf, "missing", nil))
}

func TestBundledTemplates(t *testing.T) {
	engine := NewTemplateEngine(Templates())
	require.NoError(t, engine.Load())

	t.Run("resume form", func(t *testing.T) {
		var buf bytes.Buffer
		err := engine.Render(&buf, "resume_form", map[string]any{
			"CompanyName":     "Acme",
			"ApplicantName":   "Jane",
			"JobTitle":        "Engineer",
			"Email":           "jane@example.com",
			"Token":           "tok",
			"SubmitURL":       "https://cb.test/api/form/resume-form",
			"ExperienceSlots": []map[string]string{{"Index": "0", "Number": "1"}, {"Index": "1", "Number": "2"}},
			"EducationSlots":  []map[string]string{{"Index": "0", "Number": "1"}},
			"SkillCategories": []string{"Technical", "Soft Skills"},
			"NewSlot":         map[string]string{"Index": "__i__", "Number": "__n__"},
		})
		require.NoError(t, err)

		html := buf.String()
		assert.Contains(t, html, `action="https://cb.test/api/form/resume-form"`)
		assert.Contains(t, html, `name="personalInfo[fullName]" value="Jane"`)
		assert.Contains(t, html, `name="experience[1][company]"`)
		assert.Contains(t, html, `name="education[0][degree]"`)
		assert.Contains(t, html, `name="skills[1][items]"`)
		assert.Contains(t, html, "Position 2")
		assert.Contains(t, html, `id="experienceContainer" data-next="2"`)
		assert.Contains(t, html, `id="educationContainer" data-next="1"`)
		assert.Contains(t, html, `name="experience[__i__][company]"`)
		assert.Contains(t, html, `name="education[__i__][institution]"`)
		assert.Contains(t, html, `data-add="experience"`)
		assert.Contains(t, html, `value="web_form"`)
		assert.Contains(t, html, "Update Your Resume - Acme")
	})

	t.Run("success page", func(t *testing.T) {
		var buf bytes.Buffer
		err := engine.Render(&buf, "submission_success", map[string]any{
			"FullName":     "Jane Doe",
			"Email":        "jane@example.com",
			"SubmissionID": "abc-123",
			"SubmittedAt":  time.Date(2026, 1, 2, 3, 4, 0, 0, time.UTC),
		})
		require.NoError(t, err)
		assert.Contains(t, buf.String(), "Resume Submitted Successfully!")
		assert.Contains(t, buf.String(), "abc-123")
	})

	t.Run("error page", func(t *testing.T) {
		var buf bytes.Buffer
		err := engine.Render(&buf, "submission_error", map[string]any{
			"Message": "Validation failed",
			"Fields":  apperr.FieldErrors{"email": {"required"}},
		})
		require.NoError(t, err)
		assert.Contains(t, buf.String(), "Submission Failed")
		assert.Contains(t, buf.String(), "email: required")
	})
}
