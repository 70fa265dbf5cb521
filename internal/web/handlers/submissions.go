package handlers

import (
	"mime"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/blockedby/resume-refresh/internal/apperr"
	"github.com/blockedby/resume-refresh/internal/logger"
	"github.com/blockedby/resume-refresh/internal/models"
	"github.com/blockedby/resume-refresh/internal/repository"
	"github.com/blockedby/resume-refresh/internal/validation"
	"github.com/blockedby/resume-refresh/internal/web"
)

// maxMultipartMemory bounds the in-memory part of a multipart form.
const maxMultipartMemory = 10 << 20

// SubmissionsHandler serves the /api/amp endpoints.
type SubmissionsHandler struct {
	store submissionStore
	repo  SubmissionsRepository
	log   *logger.Logger
	now   func() time.Time
}

// NewSubmissionsHandler creates a SubmissionsHandler. events may be nil.
func NewSubmissionsHandler(repo SubmissionsRepository, events SubmissionEvents) *SubmissionsHandler {
	log := logger.Get()
	return &SubmissionsHandler{
		store: submissionStore{repo: repo, events: events, log: log, now: time.Now},
		repo:  repo,
		log:   log,
		now:   time.Now,
	}
}

// setAMPHeaders answers the AMP for Email CORS handshake. Both the current
// sender header and the older source-origin query parameter are honored.
func setAMPHeaders(w http.ResponseWriter, r *http.Request) {
	if sender := r.Header.Get("AMP-Email-Sender"); sender != "" {
		w.Header().Set("AMP-Email-Allow-Sender", sender)
	}
	if origin := r.URL.Query().Get("__amp_source_origin"); origin != "" {
		w.Header().Set("AMP-Access-Control-Allow-Source-Origin", origin)
		w.Header().Set("Access-Control-Expose-Headers", "AMP-Access-Control-Allow-Source-Origin")
	}
}

// decodeSubmission reads a JSON, urlencoded or multipart body.
func decodeSubmission(r *http.Request) (*validation.ResumeSubmissionInput, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch mediaType {
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return nil, apperr.NewValidation("invalid form body: %v", err)
		}
		return validation.DecodeForm(r.PostForm)
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
			return nil, apperr.NewValidation("invalid form body: %v", err)
		}
		return validation.DecodeForm(url.Values(r.MultipartForm.Value))
	default:
		var in validation.ResumeSubmissionInput
		if err := validation.DecodeJSON(r.Body, &in); err != nil {
			return nil, err
		}
		return &in, nil
	}
}

// submissionSource keeps an explicit api source and labels everything else as the AMP form.
func submissionSource(declared string) models.SubmissionSource {
	if models.SubmissionSource(declared) == models.SourceAPI {
		return models.SourceAPI
	}
	return models.SourceAMPEmail
}

func messageIDHeader(r *http.Request) string {
	if id := r.Header.Get("AMP-Email-Message-Id"); id != "" {
		return id
	}
	return r.Header.Get("Message-Id")
}

type submitResponse struct {
	SubmissionID uuid.UUID               `json:"submissionId"`
	Email        string                  `json:"email"`
	FullName     string                  `json:"fullName"`
	SubmittedAt  time.Time               `json:"submittedAt"`
	Status       models.SubmissionStatus `json:"status"`
}

// Submit stores a resume posted from the interactive email.
// POST /api/amp/submit
func (h *SubmissionsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	setAMPHeaders(w, r)

	in, err := decodeSubmission(r)
	if err == nil {
		err = in.Normalize()
	}
	if err != nil {
		respondErr(w, err, "Failed to process submission")
		return
	}

	sub := in.ToSubmission(models.SubmissionMetadata{
		UserAgent:      r.UserAgent(),
		IPAddress:      web.ClientIP(r),
		Source:         submissionSource(in.Source),
		EmailMessageID: messageIDHeader(r),
	})

	stored, err := h.store.save(r.Context(), sub)
	if err != nil {
		h.log.Error().Err(err).Str("email", in.Email).Msg("store amp submission")
		respondErr(w, err, "Failed to process submission")
		return
	}

	respondOK(w, "Resume updated successfully!", submitResponse{
		SubmissionID: stored.ID,
		Email:        stored.Email,
		FullName:     stored.PersonalInfo.FullName,
		SubmittedAt:  stored.CreatedAt,
		Status:       stored.Status,
	})
}

// Proxy is polled by the AMP runtime to check the endpoint is reachable.
// GET|POST /api/amp/proxy
func (h *SubmissionsHandler) Proxy(w http.ResponseWriter, r *http.Request) {
	setAMPHeaders(w, r)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "AMP proxy endpoint active",
		"timestamp": h.now().UTC(),
	})
}

// submissionView adds the derived summaries to a stored submission.
type submissionView struct {
	*models.Submission
	ExperienceSummary string `json:"experienceSummary"`
	SkillsSummary     string `json:"skillsSummary"`
}

func newSubmissionView(sub *models.Submission) submissionView {
	return submissionView{
		Submission:        sub,
		ExperienceSummary: sub.ExperienceSummary(),
		SkillsSummary:     sub.SkillsSummary(),
	}
}

type submissionsResponse struct {
	Submissions []submissionView `json:"submissions"`
	Pagination  pagination       `json:"pagination"`
}

// List returns submissions, newest first.
// GET /api/amp/submissions?email=&status=&page=&limit=
func (h *SubmissionsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status := models.SubmissionStatus(q.Get("status"))
	if status != "" && !status.IsValid() {
		respondError(w, http.StatusBadRequest, "Validation failed",
			apperr.FieldErrors{"status": {"oneof"}})
		return
	}

	page := pageFromQuery(r)
	subs, total, err := h.repo.List(r.Context(), repository.SubmissionFilter{
		Email:  q.Get("email"),
		Status: status,
		Page:   page,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("list submissions")
		respondErr(w, err, "Failed to fetch submissions")
		return
	}

	views := make([]submissionView, 0, len(subs))
	for _, sub := range subs {
		views = append(views, newSubmissionView(sub))
	}
	respondOK(w, "", submissionsResponse{Submissions: views, Pagination: newPagination(page, total)})
}

// GetByID returns one submission.
// GET /api/amp/submissions/{id}
func (h *SubmissionsHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid ID format", nil)
		return
	}

	sub, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.log.Error().Err(err).Str("submission_id", id.String()).Msg("get submission")
		respondErr(w, err, "Failed to fetch submission")
		return
	}
	if sub == nil {
		respondError(w, http.StatusNotFound, "Submission not found", nil)
		return
	}

	respondOK(w, "", newSubmissionView(sub))
}
