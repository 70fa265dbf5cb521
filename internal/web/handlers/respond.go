package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/blockedby/resume-refresh/internal/apperr"
	"github.com/blockedby/resume-refresh/internal/repository"
)

// envelope is the JSON body shape shared by every API response.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Details any    `json:"details,omitempty"`
}

// pagination describes the page a listing returned.
type pagination struct {
	Current int `json:"current"`
	Pages   int `json:"pages"`
	Total   int `json:"total"`
}

func newPagination(p repository.Page, total int) pagination {
	p = p.Normalize()
	return pagination{Current: p.Page, Pages: p.Pages(total), Total: total}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		_ = err // Client disconnected
	}
}

func respondOK(w http.ResponseWriter, message string, data any) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: message, Data: data})
}

func respondError(w http.ResponseWriter, status int, msg string, details any) {
	writeJSON(w, status, envelope{Success: false, Error: msg, Details: details})
}

// respondErr maps err through the apperr taxonomy. Validation failures
// answer 400 "Validation failed"; everything else uses fallback.
func respondErr(w http.ResponseWriter, err error, fallback string) {
	status := apperr.HTTPStatus(err)
	msg := fallback
	var ve *apperr.ValidationError
	if errors.As(err, &ve) {
		msg = "Validation failed"
	}
	respondError(w, status, msg, apperr.Details(err))
}

// pageFromQuery reads page and limit. Missing or malformed values fall back to the defaults.
func pageFromQuery(r *http.Request) repository.Page {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	return repository.Page{Page: page, Limit: limit}.Normalize()
}

// requestBaseURL returns configured when set, otherwise the scheme and host the request arrived on.
func requestBaseURL(r *http.Request, configured string) string {
	if configured != "" {
		return strings.TrimRight(configured, "/")
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
	}
	return scheme + "://" + r.Host
}
