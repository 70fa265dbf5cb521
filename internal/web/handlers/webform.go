package handlers

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/blockedby/resume-refresh/internal/apperr"
	"github.com/blockedby/resume-refresh/internal/composer"
	"github.com/blockedby/resume-refresh/internal/logger"
	"github.com/blockedby/resume-refresh/internal/models"
	"github.com/blockedby/resume-refresh/internal/validation"
	"github.com/blockedby/resume-refresh/internal/web"
)

// formSlot addresses one repeated entry on the fallback form.
type formSlot struct {
	Index  string
	Number string
}

// newSlot is cloned client side; the placeholders are replaced with the next free index.
var newSlot = formSlot{Index: "__i__", Number: "__n__"}

func formSlots(n int) []formSlot {
	slots := make([]formSlot, n)
	for i := range slots {
		slots[i] = formSlot{Index: strconv.Itoa(i), Number: strconv.Itoa(i + 1)}
	}
	return slots
}

// Entries rendered up front. More can be added in the browser; blank ones are dropped on submit.
var (
	experienceSlots = formSlots(2)
	educationSlots  = formSlots(1)
	skillCategories = []string{"Technical", "Soft Skills"}
)

// WebFormHandler serves the static fallback form linked from non-interactive emails.
type WebFormHandler struct {
	templates      *web.TemplateEngine
	store          submissionStore
	publicBaseURL  string
	defaultCompany string
	log            *logger.Logger
}

// NewWebFormHandler creates a WebFormHandler. events may be nil.
func NewWebFormHandler(templates *web.TemplateEngine, repo SubmissionsRepository, events SubmissionEvents, publicBaseURL, defaultCompany string) *WebFormHandler {
	log := logger.Get()
	return &WebFormHandler{
		templates:      templates,
		store:          submissionStore{repo: repo, events: events, log: log, now: time.Now},
		publicBaseURL:  publicBaseURL,
		defaultCompany: defaultCompany,
		log:            log,
	}
}

func (h *WebFormHandler) render(w http.ResponseWriter, status int, page string, data map[string]any) {
	var buf bytes.Buffer
	if err := h.templates.Render(&buf, page, data); err != nil {
		h.log.Error().Err(err).Str("page", page).Msg("render page")
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		_ = err // Client disconnected
	}
}

// Show renders the form pre-filled from the query string.
// GET /api/form/resume-form?email=&name=&job=&company=&token=
func (h *WebFormHandler) Show(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	company := q.Get("company")
	if company == "" {
		company = h.defaultCompany
	}

	h.render(w, http.StatusOK, "resume_form", map[string]any{
		"Email":           q.Get("email"),
		"ApplicantName":   q.Get("name"),
		"JobTitle":        q.Get("job"),
		"CompanyName":     company,
		"Token":           q.Get("token"),
		"SubmitURL":       requestBaseURL(r, h.publicBaseURL) + composer.WebFormPath,
		"ExperienceSlots": experienceSlots,
		"EducationSlots":  educationSlots,
		"SkillCategories": skillCategories,
		"NewSlot":         newSlot,
	})
}

// Submit stores the posted form and renders the outcome page.
// POST /api/form/resume-form
func (h *WebFormHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderError(w, apperr.NewValidation("invalid form body: %v", err))
		return
	}

	in, err := validation.DecodeForm(r.PostForm)
	if err == nil {
		err = in.Normalize()
	}
	if err != nil {
		h.renderError(w, err)
		return
	}

	sub := in.ToSubmission(models.SubmissionMetadata{
		UserAgent: r.UserAgent(),
		IPAddress: web.ClientIP(r),
		Source:    models.SourceWebForm,
		Referrer:  r.Referer(),
	})

	stored, err := h.store.save(r.Context(), sub)
	if err != nil {
		h.log.Error().Err(err).Str("email", in.Email).Msg("store web form submission")
		h.renderError(w, err)
		return
	}

	h.render(w, http.StatusOK, "submission_success", map[string]any{
		"FullName":     stored.PersonalInfo.FullName,
		"Email":        stored.Email,
		"SubmissionID": stored.ID.String(),
		"SubmittedAt":  stored.LastUpdated,
	})
}

func (h *WebFormHandler) renderError(w http.ResponseWriter, err error) {
	var ve *apperr.ValidationError
	if errors.As(err, &ve) {
		msg := ve.Message
		if msg == "" {
			msg = "Validation failed"
		}
		h.render(w, http.StatusBadRequest, "submission_error", map[string]any{
			"Message": msg,
			"Fields":  ve.Fields,
		})
		return
	}

	h.render(w, http.StatusInternalServerError, "submission_error", map[string]any{
		"Message": "Failed to process your submission. Please try again.",
	})
}
