package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/blockedby/resume-refresh/internal/apperr"
	"github.com/blockedby/resume-refresh/internal/logger"
	"github.com/blockedby/resume-refresh/internal/models"
)

// SubmissionFilter narrows a submission listing. Empty fields match everything.
type SubmissionFilter struct {
	Email  string
	Status models.SubmissionStatus
	Page   Page
}

// SubmissionsRepository stores resume submissions through GORM.
type SubmissionsRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewSubmissionsRepository creates a new submissions repository
func NewSubmissionsRepository(db *gorm.DB, log *logger.Logger) *SubmissionsRepository {
	return &SubmissionsRepository{
		db:  db,
		log: log,
	}
}

// UpsertByEmail stores sub as the applicant's current resume.
//
// The most recently created record for the normalized email is overwritten
// field by field (lists are replaced, never merged); its id, status and
// creation time are kept. Without one, a new record is created as submitted.
// The read and the write share a transaction but the lookup takes no lock, so
// two concurrent first submissions for one email can still both insert.
// The returned bool is true when a record was created.
func (r *SubmissionsRepository) UpsertByEmail(ctx context.Context, sub *models.Submission) (*models.Submission, bool, error) {
	sub.Email = models.NormalizeEmail(sub.Email)

	var (
		result  models.Submission
		created bool
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("email = ?", sub.Email).Order("created_at DESC").First(&result).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			result = *sub
			result.ID = uuid.Nil
			result.Status = models.SubmissionStatusSubmitted
			created = true
			return tx.Create(&result).Error
		case err != nil:
			return err
		}

		result.Apply(sub)
		return tx.Save(&result).Error
	})
	if err != nil {
		return nil, false, apperr.Storage("upsert submission", err)
	}

	msg := "updated existing resume submission"
	if created {
		msg = "created resume submission"
	}
	r.log.Info().
		Str("submission_id", result.ID.String()).
		Str("email", result.Email).
		Str("source", string(result.Metadata.Source)).
		Msg(msg)

	return &result, created, nil
}

// GetByID returns a submission, or nil when it does not exist.
func (r *SubmissionsRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Submission, error) {
	var sub models.Submission
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperr.Storage("get submission", err)
	}
	return &sub, nil
}

// List returns one page of submissions, newest first, and the total matching count.
func (r *SubmissionsRepository) List(ctx context.Context, f SubmissionFilter) ([]*models.Submission, int, error) {
	q := r.db.WithContext(ctx).Model(&models.Submission{})
	if f.Email != "" {
		q = q.Where("email = ?", models.NormalizeEmail(f.Email))
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, apperr.Storage("count submissions", err)
	}

	page := f.Page.Normalize()
	subs := []*models.Submission{}
	if err := q.Session(&gorm.Session{}).Order("created_at DESC").Limit(page.Limit).Offset(page.Offset()).Find(&subs).Error; err != nil {
		return nil, 0, apperr.Storage("list submissions", err)
	}

	return subs, int(total), nil
}
