package validation

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockedby/resume-refresh/internal/apperr"
	"github.com/blockedby/resume-refresh/internal/models"
)

func TestSendEmailInput_Defaults(t *testing.T) {
	in := SendEmailInput{To: "  jane@gmail.com "}
	require.NoError(t, in.Normalize())

	assert.Equal(t, "jane@gmail.com", in.To)
	assert.Equal(t, DefaultSubject, in.Subject)
	assert.Equal(t, DefaultApplicantName, in.ApplicantName)
	assert.Equal(t, DefaultJobTitle, in.JobTitle)
	assert.Equal(t, DefaultCompanyName, in.CompanyName)
}

func TestSendEmailInput_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input SendEmailInput
		field string
		tag   string
	}{
		{"missing to", SendEmailInput{}, "to", "required"},
		{"bad email", SendEmailInput{To: "not-an-email"}, "to", "email"},
		{"long subject", SendEmailInput{To: "a@b.com", Subject: strings.Repeat("s", 201)}, "subject", "max"},
		{"long company", SendEmailInput{To: "a@b.com", CompanyName: strings.Repeat("c", 101)}, "companyName", "max"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.input.Normalize()
			var ve *apperr.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Contains(t, ve.Fields[tt.field], tt.tag)
		})
	}
}

func validSubmission() ResumeSubmissionInput {
	return ResumeSubmissionInput{
		Email:        " Jane@Example.COM ",
		PersonalInfo: PersonalInfoInput{FullName: " Jane Doe "},
		Experience: []ExperienceInput{
			{Company: "Acme", Position: "Engineer", StartDate: "2020-01"},
		},
		Skills: []SkillInput{{Category: "Technical", Items: []string{" Go ", "SQL"}}},
	}
}

func TestResumeSubmissionInput_Normalize(t *testing.T) {
	in := validSubmission()
	require.NoError(t, in.Normalize())

	assert.Equal(t, "jane@example.com", in.Email)
	assert.Equal(t, "Jane Doe", in.PersonalInfo.FullName)
	assert.Equal(t, []string{"Go", "SQL"}, in.Skills[0].Items)
	assert.NotNil(t, in.Education)
	assert.Empty(t, in.Education)
}

func TestResumeSubmissionInput_FieldErrors(t *testing.T) {
	in := validSubmission()
	in.PersonalInfo.FullName = ""
	in.PersonalInfo.LinkedinURL = "not a url"
	in.Experience[0].Company = ""
	in.Skills[0].Items = append(in.Skills[0].Items, strings.Repeat("x", 51))
	in.Source = "fax"

	err := in.Normalize()
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)

	assert.Contains(t, ve.Fields, "personalInfo.fullName")
	assert.Contains(t, ve.Fields, "personalInfo.linkedinUrl")
	assert.Contains(t, ve.Fields, "experience[0].company")
	assert.Contains(t, ve.Fields, "skills[0].items[2]")
	assert.Contains(t, ve.Fields, "source")
}

func TestResumeSubmissionInput_ToSubmission(t *testing.T) {
	in := validSubmission()
	require.NoError(t, in.Normalize())

	sub := in.ToSubmission(models.SubmissionMetadata{Source: models.SourceAPI})

	assert.Equal(t, "jane@example.com", sub.Email)
	assert.Equal(t, "Jane Doe", sub.PersonalInfo.FullName)
	require.Len(t, sub.Experience, 1)
	assert.True(t, sub.Experience[0].Current())
	assert.Equal(t, "Go, SQL", sub.SkillsSummary())
	assert.Equal(t, models.SourceAPI, sub.Metadata.Source)
	assert.NotNil(t, sub.Education)
}

func TestNormalizeFormKey(t *testing.T) {
	tests := map[string]string{
		"email":                  "email",
		"personalInfo[fullName]": "personalInfo.fullName",
		"personalInfo.fullName":  "personalInfo.fullName",
		"experience[0][company]": "experience.0.company",
		"experience[0].company":  "experience.0.company",
		"skills[1][items]":       "skills.1.items",
		"education[10].degree":   "education.10.degree",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeFormKey(in), in)
	}
}

func TestDecodeForm_WebForm(t *testing.T) {
	values := url.Values{
		"email":                     {"Jane@Example.com"},
		"token":                     {"abc"},
		"source":                    {"web_form"},
		"personalInfo[fullName]":    {"Jane Doe"},
		"personalInfo[phone]":       {"+1 555 0100"},
		"professionalSummary":       {"Builder of things"},
		"experience[0][company]":    {"Acme"},
		"experience[0][position]":   {"Engineer"},
		"experience[0][startDate]":  {"2020-01"},
		"experience[0][endDate]":    {""},
		"education[0][institution]": {""},
		"education[0][degree]":      {""},
		"skills[0][items]":          {"Go, SQL , ,Kubernetes"},
		"skills[0][category]":       {"Technical"},
		"skills[1][items]":          {""},
		"skills[1][category]":       {"Soft Skills"},
		"unknown[field]":            {"ignored"},
	}

	in, err := DecodeForm(values)
	require.NoError(t, err)
	require.NoError(t, in.Normalize())

	assert.Equal(t, "jane@example.com", in.Email)
	assert.Equal(t, "Jane Doe", in.PersonalInfo.FullName)
	assert.Equal(t, "+1 555 0100", in.PersonalInfo.Phone)
	require.Len(t, in.Experience, 1)
	assert.Equal(t, "Acme", in.Experience[0].Company)
	assert.Empty(t, in.Education, "blank education entry should be dropped")
	require.Len(t, in.Skills, 1, "category without items should be dropped")
	assert.Equal(t, SkillInput{Category: "Technical", Items: []string{"Go", "SQL", "Kubernetes"}}, in.Skills[0])
}

func TestDecodeForm_AMPDottedNames(t *testing.T) {
	values := url.Values{
		"email":                   {"jane@gmail.com"},
		"personalInfo.fullName":   {"Jane"},
		"experience[0].company":   {"Acme"},
		"experience[0].position":  {"Engineer"},
		"experience[0].startDate": {"2021-03"},
		"experience[0].isCurrent": {"on"},
		"skills[0].items":         {"Go"},
		"skills[0].category":      {"Technical"},
	}

	in, err := DecodeForm(values)
	require.NoError(t, err)
	require.NoError(t, in.Normalize())

	require.Len(t, in.Experience, 1)
	assert.True(t, in.Experience[0].IsCurrent)
	assert.Equal(t, []string{"Go"}, in.Skills[0].Items)
}

func TestDecodeForm_BadBoolean(t *testing.T) {
	_, err := DecodeForm(url.Values{
		"email":                   {"jane@gmail.com"},
		"experience[0].isCurrent": {"maybe"},
	})

	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.NotEmpty(t, ve.Fields)
}

func TestDecodeJSON(t *testing.T) {
	var in SendEmailInput
	require.NoError(t, DecodeJSON(strings.NewReader(`{"to":"a@b.com"}`), &in))
	assert.Equal(t, "a@b.com", in.To)

	var ve *apperr.ValidationError
	assert.ErrorAs(t, DecodeJSON(strings.NewReader(`{"to":`), &in), &ve)
	assert.ErrorAs(t, DecodeJSON(strings.NewReader(``), &in), &ve)
}
