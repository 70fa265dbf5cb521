package validation

import (
	"errors"
	"net/url"
	"reflect"
	"sort"
	"strings"

	"github.com/gorilla/schema"

	"github.com/blockedby/resume-refresh/internal/apperr"
)

// formSubmission is the form-encoded shape of ResumeSubmissionInput.
// Skill items arrive as one comma separated string per category.
type formSubmission struct {
	Email               string            `json:"email"`
	PersonalInfo        PersonalInfoInput `json:"personalInfo"`
	ProfessionalSummary string            `json:"professionalSummary"`
	Experience          []ExperienceInput `json:"experience"`
	Education           []EducationInput  `json:"education"`
	Skills              []formSkill       `json:"skills"`
	Token               string            `json:"token"`
	Source              string            `json:"source"`
}

type formSkill struct {
	Category string `json:"category"`
	Items    string `json:"items"`
}

// maxFormEntries bounds list indexes such as experience[999].
const maxFormEntries = 50

var formDecoder = newFormDecoder()

func newFormDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.SetAliasTag("json")
	d.IgnoreUnknownKeys(true)
	d.MaxSize(maxFormEntries)
	d.RegisterConverter(false, func(s string) reflect.Value {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "1", "true", "on", "yes":
			return reflect.ValueOf(true)
		case "", "0", "false", "off", "no":
			return reflect.ValueOf(false)
		}
		return reflect.Value{}
	})
	return d
}

// NormalizeFormKey rewrites bracketed and dotted field names to the dotted
// path the decoder expects: "experience[0][company]" and "experience[0].company"
// both become "experience.0.company".
func NormalizeFormKey(key string) string {
	r := strings.NewReplacer("][", ".", "[", ".", "]", "")
	key = r.Replace(key)
	for strings.Contains(key, "..") {
		key = strings.ReplaceAll(key, "..", ".")
	}
	return strings.Trim(key, ".")
}

// DecodeForm converts posted form values into a ResumeSubmissionInput.
// Entries whose fields are all blank are dropped, so untouched optional
// sections of the form do not fail validation.
func DecodeForm(values url.Values) (*ResumeSubmissionInput, error) {
	normalized := make(map[string][]string, len(values))
	for k, v := range values {
		nk := NormalizeFormKey(k)
		normalized[nk] = append(normalized[nk], v...)
	}

	var f formSubmission
	if err := formDecoder.Decode(&f, normalized); err != nil {
		return nil, formError(err)
	}

	in := &ResumeSubmissionInput{
		Email:               f.Email,
		PersonalInfo:        f.PersonalInfo,
		ProfessionalSummary: f.ProfessionalSummary,
		Experience:          []ExperienceInput{},
		Education:           []EducationInput{},
		Skills:              []SkillInput{},
		Token:               f.Token,
		Source:              f.Source,
	}

	for _, e := range f.Experience {
		if blank(e.Company, e.Position, e.StartDate, e.EndDate, e.Description) {
			continue
		}
		in.Experience = append(in.Experience, e)
	}
	for _, e := range f.Education {
		if blank(e.Institution, e.Degree, e.FieldOfStudy, e.GraduationYear, e.GPA) {
			continue
		}
		in.Education = append(in.Education, e)
	}
	for _, s := range f.Skills {
		items := SplitSkills(s.Items)
		if len(items) == 0 {
			continue
		}
		in.Skills = append(in.Skills, SkillInput{Category: s.Category, Items: items})
	}

	return in, nil
}

// SplitSkills splits a comma separated list, dropping empty items.
func SplitSkills(s string) []string {
	items := []string{}
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func blank(ss ...string) bool {
	for _, s := range ss {
		if strings.TrimSpace(s) != "" {
			return false
		}
	}
	return true
}

func formError(err error) error {
	var multi schema.MultiError
	if !errors.As(err, &multi) {
		return apperr.NewValidation("invalid form data: %v", err)
	}

	fields := apperr.FieldErrors{}
	keys := make([]string, 0, len(multi))
	for k := range multi {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fields[k] = append(fields[k], "invalid")
	}
	return &apperr.ValidationError{Fields: fields}
}
