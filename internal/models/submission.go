package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SubmissionStatus is the review state of a resume submission.
type SubmissionStatus string

// SubmissionStatus constants. New records always start as submitted.
const (
	SubmissionStatusSubmitted SubmissionStatus = "submitted"
	SubmissionStatusReviewed  SubmissionStatus = "reviewed"
	SubmissionStatusApproved  SubmissionStatus = "approved"
	SubmissionStatusRejected  SubmissionStatus = "rejected"
)

// IsValid reports whether s is a known submission status.
func (s SubmissionStatus) IsValid() bool {
	switch s {
	case SubmissionStatusSubmitted, SubmissionStatusReviewed, SubmissionStatusApproved, SubmissionStatusRejected:
		return true
	}
	return false
}

// SubmissionSource identifies where a submission came from.
type SubmissionSource string

// SubmissionSource constants.
const (
	SourceAMPEmail SubmissionSource = "amp_email"
	SourceWebForm  SubmissionSource = "web_form"
	SourceAPI      SubmissionSource = "api"
)

// PersonalInfo holds the applicant's contact details.
type PersonalInfo struct {
	FullName     string `json:"fullName"`
	Phone        string `json:"phone,omitempty"`
	Location     string `json:"location,omitempty"`
	LinkedinURL  string `json:"linkedinUrl,omitempty"`
	PortfolioURL string `json:"portfolioUrl,omitempty"`
}

// ExperienceEntry is one position in the applicant's work history.
type ExperienceEntry struct {
	Company     string `json:"company"`
	Position    string `json:"position"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate,omitempty"`
	Description string `json:"description,omitempty"`
	IsCurrent   bool   `json:"isCurrent"`
}

// Current reports whether the applicant still holds the position.
// An empty end date means current.
func (e ExperienceEntry) Current() bool {
	return e.IsCurrent || strings.TrimSpace(e.EndDate) == ""
}

// EducationEntry is one degree or course of study.
type EducationEntry struct {
	Institution    string `json:"institution"`
	Degree         string `json:"degree"`
	FieldOfStudy   string `json:"fieldOfStudy,omitempty"`
	GraduationYear string `json:"graduationYear,omitempty"`
	GPA            string `json:"gpa,omitempty"`
}

// SkillCategory groups skills under a heading such as "Technical".
type SkillCategory struct {
	Category string   `json:"category"`
	Items    []string `json:"items"`
}

// SubmissionMetadata records how and from where a submission arrived.
type SubmissionMetadata struct {
	UserAgent      string           `json:"userAgent,omitempty"`
	IPAddress      string           `json:"ipAddress,omitempty"`
	Source         SubmissionSource `json:"submissionSource"`
	EmailMessageID string           `json:"emailMessageId,omitempty"`
	Referrer       string           `json:"referrer,omitempty"`
}

// Submission is the stored resume for one applicant email.
// Nested lists are serialized as JSON documents.
type Submission struct {
	ID                  uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	Email               string             `gorm:"not null;index:idx_resume_submissions_email_created,priority:1" json:"email"`
	PersonalInfo        PersonalInfo       `gorm:"serializer:json;not null" json:"personalInfo"`
	ProfessionalSummary string             `json:"professionalSummary"`
	Experience          []ExperienceEntry  `gorm:"serializer:json;not null" json:"experience"`
	Education           []EducationEntry   `gorm:"serializer:json;not null" json:"education"`
	Skills              []SkillCategory    `gorm:"serializer:json;not null" json:"skills"`
	Metadata            SubmissionMetadata `gorm:"column:submission_metadata;serializer:json;not null" json:"submissionMetadata"`
	Status              SubmissionStatus   `gorm:"not null;default:'submitted'" json:"status"`
	LastUpdated         time.Time          `gorm:"not null" json:"lastUpdated"`
	CreatedAt           time.Time          `gorm:"index:idx_resume_submissions_email_created,priority:2" json:"createdAt"`
	UpdatedAt           time.Time          `json:"updatedAt"`
}

// TableName maps Submission to the resume_submissions table.
func (Submission) TableName() string {
	return "resume_submissions"
}

// BeforeCreate assigns an id to new records.
func (s *Submission) BeforeCreate(_ *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.Status == "" {
		s.Status = SubmissionStatusSubmitted
	}
	return nil
}

// BeforeSave normalizes the email, stamps LastUpdated and keeps lists non-nil.
func (s *Submission) BeforeSave(_ *gorm.DB) error {
	s.Email = NormalizeEmail(s.Email)
	s.LastUpdated = time.Now().UTC()
	s.ensureLists()
	return nil
}

// AfterFind keeps lists non-nil for rows written before they were required.
func (s *Submission) AfterFind(_ *gorm.DB) error {
	s.ensureLists()
	return nil
}

func (s *Submission) ensureLists() {
	if s.Experience == nil {
		s.Experience = []ExperienceEntry{}
	}
	if s.Education == nil {
		s.Education = []EducationEntry{}
	}
	if s.Skills == nil {
		s.Skills = []SkillCategory{}
	}
	for i := range s.Skills {
		if s.Skills[i].Items == nil {
			s.Skills[i].Items = []string{}
		}
	}
}

// ExperienceSummary renders the work history as one line in submitted order.
func (s *Submission) ExperienceSummary() string {
	if len(s.Experience) == 0 {
		return ""
	}
	parts := make([]string, 0, len(s.Experience))
	for _, e := range s.Experience {
		end := e.EndDate
		if e.Current() {
			end = "present"
		}
		parts = append(parts, fmt.Sprintf("%s at %s (%s - %s)", e.Position, e.Company, e.StartDate, end))
	}
	return strings.Join(parts, "; ")
}

// SkillsSummary flattens every skill item into a comma separated list.
func (s *Submission) SkillsSummary() string {
	var items []string
	for _, c := range s.Skills {
		items = append(items, c.Items...)
	}
	return strings.Join(items, ", ")
}

// Apply replaces every applicant-supplied field with the values from in.
// Identity, status and creation time are kept.
func (s *Submission) Apply(in *Submission) {
	s.Email = in.Email
	s.PersonalInfo = in.PersonalInfo
	s.ProfessionalSummary = in.ProfessionalSummary
	s.Experience = in.Experience
	s.Education = in.Education
	s.Skills = in.Skills
	s.Metadata = in.Metadata
}
