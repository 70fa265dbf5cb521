package validation

import (
	"strings"

	"github.com/blockedby/resume-refresh/internal/models"
)

// Defaults applied to send requests that omit a field.
const (
	DefaultSubject       = "Update Your Resume"
	DefaultApplicantName = "Applicant"
	DefaultJobTitle      = "Software Developer"
	DefaultCompanyName   = "Hirefy"
)

// SendEmailInput is the body of a single send and one entry of a bulk send.
type SendEmailInput struct {
	To            string `json:"to" validate:"required,email,max=254"`
	Subject       string `json:"subject" validate:"min=1,max=200"`
	ApplicantName string `json:"applicantName" validate:"min=1,max=100"`
	JobTitle      string `json:"jobTitle" validate:"min=1,max=200"`
	CompanyName   string `json:"companyName" validate:"min=1,max=100"`
}

// ApplyDefaults fills omitted or blank optional fields.
func (in *SendEmailInput) ApplyDefaults() {
	in.To = strings.TrimSpace(in.To)
	in.Subject = orDefault(in.Subject, DefaultSubject)
	in.ApplicantName = orDefault(in.ApplicantName, DefaultApplicantName)
	in.JobTitle = orDefault(in.JobTitle, DefaultJobTitle)
	in.CompanyName = orDefault(in.CompanyName, DefaultCompanyName)
}

// Normalize applies defaults and validates.
func (in *SendEmailInput) Normalize() error {
	in.ApplyDefaults()
	return Validate(in)
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}

// BulkSendInput is the body of a bulk send.
type BulkSendInput struct {
	Recipients []SendEmailInput `json:"recipients"`
}

// PersonalInfoInput mirrors models.PersonalInfo with its limits.
type PersonalInfoInput struct {
	FullName     string `json:"fullName" validate:"required,max=100"`
	Phone        string `json:"phone" validate:"max=20"`
	Location     string `json:"location" validate:"max=100"`
	LinkedinURL  string `json:"linkedinUrl" validate:"omitempty,url"`
	PortfolioURL string `json:"portfolioUrl" validate:"omitempty,url"`
}

// ExperienceInput is one submitted position.
type ExperienceInput struct {
	Company     string `json:"company" validate:"required,max=100"`
	Position    string `json:"position" validate:"required,max=100"`
	StartDate   string `json:"startDate" validate:"required"`
	EndDate     string `json:"endDate"`
	Description string `json:"description" validate:"max=500"`
	IsCurrent   bool   `json:"isCurrent"`
}

// EducationInput is one submitted degree.
type EducationInput struct {
	Institution    string `json:"institution" validate:"required,max=100"`
	Degree         string `json:"degree" validate:"required,max=100"`
	FieldOfStudy   string `json:"fieldOfStudy" validate:"max=100"`
	GraduationYear string `json:"graduationYear"`
	GPA            string `json:"gpa"`
}

// SkillInput is one submitted skill category.
type SkillInput struct {
	Category string   `json:"category" validate:"required,max=50"`
	Items    []string `json:"items" validate:"dive,max=50"`
}

// ResumeSubmissionInput is the body accepted from the AMP form, the web form and the API.
type ResumeSubmissionInput struct {
	Email               string            `json:"email" validate:"required,email,max=254"`
	PersonalInfo        PersonalInfoInput `json:"personalInfo"`
	ProfessionalSummary string            `json:"professionalSummary" validate:"max=1000"`
	Experience          []ExperienceInput `json:"experience" validate:"dive"`
	Education           []EducationInput  `json:"education" validate:"dive"`
	Skills              []SkillInput      `json:"skills" validate:"dive"`
	Token               string            `json:"token"`
	Source              string            `json:"source" validate:"omitempty,oneof=amp_email web_form api"`
}

// Normalize trims every string, validates, and defaults the lists to empty.
func (in *ResumeSubmissionInput) Normalize() error {
	in.Email = models.NormalizeEmail(in.Email)
	trimStrings(&in.PersonalInfo.FullName, &in.PersonalInfo.Phone, &in.PersonalInfo.Location,
		&in.PersonalInfo.LinkedinURL, &in.PersonalInfo.PortfolioURL, &in.ProfessionalSummary)
	for i := range in.Experience {
		e := &in.Experience[i]
		trimStrings(&e.Company, &e.Position, &e.StartDate, &e.EndDate, &e.Description)
	}
	for i := range in.Education {
		e := &in.Education[i]
		trimStrings(&e.Institution, &e.Degree, &e.FieldOfStudy, &e.GraduationYear, &e.GPA)
	}
	for i := range in.Skills {
		s := &in.Skills[i]
		trimStrings(&s.Category)
		for j := range s.Items {
			trimStrings(&s.Items[j])
		}
	}

	if in.Experience == nil {
		in.Experience = []ExperienceInput{}
	}
	if in.Education == nil {
		in.Education = []EducationInput{}
	}
	if in.Skills == nil {
		in.Skills = []SkillInput{}
	}

	return Validate(in)
}

func trimStrings(ss ...*string) {
	for _, s := range ss {
		*s = strings.TrimSpace(*s)
	}
}

// ToSubmission builds the domain record. Call Normalize first.
func (in *ResumeSubmissionInput) ToSubmission(meta models.SubmissionMetadata) *models.Submission {
	sub := &models.Submission{
		Email: in.Email,
		PersonalInfo: models.PersonalInfo{
			FullName:     in.PersonalInfo.FullName,
			Phone:        in.PersonalInfo.Phone,
			Location:     in.PersonalInfo.Location,
			LinkedinURL:  in.PersonalInfo.LinkedinURL,
			PortfolioURL: in.PersonalInfo.PortfolioURL,
		},
		ProfessionalSummary: in.ProfessionalSummary,
		Experience:          make([]models.ExperienceEntry, 0, len(in.Experience)),
		Education:           make([]models.EducationEntry, 0, len(in.Education)),
		Skills:              make([]models.SkillCategory, 0, len(in.Skills)),
		Metadata:            meta,
	}

	for _, e := range in.Experience {
		sub.Experience = append(sub.Experience, models.ExperienceEntry{
			Company:     e.Company,
			Position:    e.Position,
			StartDate:   e.StartDate,
			EndDate:     e.EndDate,
			Description: e.Description,
			IsCurrent:   e.IsCurrent,
		})
	}
	for _, e := range in.Education {
		sub.Education = append(sub.Education, models.EducationEntry{
			Institution:    e.Institution,
			Degree:         e.Degree,
			FieldOfStudy:   e.FieldOfStudy,
			GraduationYear: e.GraduationYear,
			GPA:            e.GPA,
		})
	}
	for _, s := range in.Skills {
		items := make([]string, 0, len(s.Items))
		items = append(items, s.Items...)
		sub.Skills = append(sub.Skills, models.SkillCategory{Category: s.Category, Items: items})
	}

	return sub
}
