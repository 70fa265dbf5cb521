package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/blockedby/resume-refresh/internal/apperr"
	"github.com/blockedby/resume-refresh/internal/models"
)

func webFormRouter(t *testing.T, repo *MockSubmissions, events SubmissionEvents, base string) http.Handler {
	h := NewWebFormHandler(testTemplates(t), repo, events, base, "KLE")
	return newRouter(t, routes{webForm: h})
}

func postForm(values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/form/resume-form", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestWebForm_Show(t *testing.T) {
	router := webFormRouter(t, &MockSubmissions{}, nil, "https://cb.test")

	rec := do(router, httptest.NewRequest(http.MethodGet,
		"/api/form/resume-form?email=jane%40example.com&name=Jane&job=Engineer&company=Acme&token=t1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	html := rec.Body.String()
	assert.Contains(t, html, `action="https://cb.test/api/form/resume-form"`)
	assert.Contains(t, html, `value="jane@example.com"`)
	assert.Contains(t, html, `name="token" value="t1"`)
	assert.Contains(t, html, "Engineer")
	assert.Contains(t, html, "Acme")
	assert.Contains(t, html, `name="experience[1][company]"`)
	assert.Contains(t, html, `name="experience[__i__][company]"`, "blank entry for the add control")
	assert.Contains(t, html, `data-next="2"`)
}

func TestWebForm_ShowDefaults(t *testing.T) {
	router := webFormRouter(t, &MockSubmissions{}, nil, "")

	rec := do(router, httptest.NewRequest(http.MethodGet, "/api/form/resume-form", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	html := rec.Body.String()
	assert.Contains(t, html, "Update your information for KLE")
	assert.Contains(t, html, `action="http://example.com/api/form/resume-form"`)
}

func TestWebForm_Submit(t *testing.T) {
	repo := &MockSubmissions{}
	events := new(MockEvents)
	events.On("PublishSubmission", mock.Anything, mock.MatchedBy(func(ev models.SubmissionEvent) bool {
		return ev.Source == models.SourceWebForm && ev.Created
	})).Return(nil)

	req := postForm(url.Values{
		"email":                    {"Jane@Example.com"},
		"token":                    {"t1"},
		"source":                   {"web_form"},
		"personalInfo[fullName]":   {"Jane Doe"},
		"experience[0][company]":   {"Acme"},
		"experience[0][position]":  {"Engineer"},
		"experience[0][startDate]": {"2020-01"},
		"experience[1][company]":   {""},
		"skills[0][category]":      {"Technical"},
		"skills[0][items]":         {"Go, SQL"},
		"skills[1][category]":      {"Soft Skills"},
		"skills[1][items]":         {""},
	})
	req.Header.Set("Referer", "https://mail.example.com/inbox")

	rec := do(webFormRouter(t, repo, events, ""), req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, repo.upserted, 1)
	sub := repo.upserted[0]
	assert.Equal(t, "jane@example.com", sub.Email)
	assert.Equal(t, models.SourceWebForm, sub.Metadata.Source)
	assert.Equal(t, "https://mail.example.com/inbox", sub.Metadata.Referrer)
	assert.Len(t, sub.Experience, 1)
	assert.Len(t, sub.Skills, 1)

	html := rec.Body.String()
	assert.Contains(t, html, "Resume Submitted Successfully!")
	assert.Contains(t, html, "Jane Doe")
	for id := range repo.records {
		assert.Contains(t, html, id.String())
	}
	events.AssertExpectations(t)
}

func TestWebForm_SubmitAddedEntries(t *testing.T) {
	repo := &MockSubmissions{}

	rec := do(webFormRouter(t, repo, nil, ""), postForm(url.Values{
		"email":                        {"jane@example.com"},
		"personalInfo[fullName]":       {"Jane Doe"},
		"experience[0][company]":       {"Acme"},
		"experience[0][position]":      {"Engineer"},
		"experience[0][startDate]":     {"2020-01"},
		"experience[1][company]":       {""},
		"experience[2][company]":       {"Initech"},
		"experience[2][position]":      {"Lead"},
		"experience[2][startDate]":     {"2022-05"},
		"education[0][institution]":    {"State University"},
		"education[0][degree]":         {"BSc"},
		"education[1][institution]":    {"Night School"},
		"education[1][degree]":         {"Certificate"},
		"education[1][graduationYear]": {"2021"},
	}))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, repo.upserted, 1)
	sub := repo.upserted[0]
	require.Len(t, sub.Experience, 2)
	assert.Equal(t, "Initech", sub.Experience[1].Company)
	require.Len(t, sub.Education, 2)
	assert.Equal(t, "Night School", sub.Education[1].Institution)
}

func TestWebForm_SubmitErrors(t *testing.T) {
	t.Run("validation", func(t *testing.T) {
		repo := &MockSubmissions{}
		rec := do(webFormRouter(t, repo, nil, ""), postForm(url.Values{
			"email":                  {"nope"},
			"personalInfo[fullName]": {"Jane"},
		}))

		require.Equal(t, http.StatusBadRequest, rec.Code)
		html := rec.Body.String()
		assert.Contains(t, html, "Submission Failed")
		assert.Contains(t, html, "email: email")
		assert.Empty(t, repo.upserted)
	})

	t.Run("storage", func(t *testing.T) {
		repo := &MockSubmissions{upsertErr: apperr.Storage("upsert submission", errors.New("boom"))}
		rec := do(webFormRouter(t, repo, nil, ""), postForm(url.Values{
			"email":                  {"jane@example.com"},
			"personalInfo[fullName]": {"Jane"},
		}))

		require.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, rec.Body.String(), "Failed to process your submission. Please try again.")
	})
}
