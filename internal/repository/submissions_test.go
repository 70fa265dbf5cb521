package repository

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/blockedby/resume-refresh/internal/logger"
	"github.com/blockedby/resume-refresh/internal/models"
)

func setupSubmissionsDB(t *testing.T) *SubmissionsRepository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	// every pooled connection would open its own in-memory database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.Submission{}))
	return NewSubmissionsRepository(db, logger.Get())
}

func newSubmission(email, name string, skills ...string) *models.Submission {
	return &models.Submission{
		Email:        email,
		PersonalInfo: models.PersonalInfo{FullName: name},
		Experience: []models.ExperienceEntry{
			{Company: "Acme", Position: "Engineer", StartDate: "2020-01"},
		},
		Skills:   []models.SkillCategory{{Category: "Technical", Items: skills}},
		Metadata: models.SubmissionMetadata{Source: models.SourceAMPEmail},
	}
}

func TestSubmissionsRepository_UpsertCreates(t *testing.T) {
	repo := setupSubmissionsDB(t)
	ctx := context.Background()

	sub, created, err := repo.UpsertByEmail(ctx, newSubmission("Jane@Example.COM ", "Jane", "Go"))
	require.NoError(t, err)

	assert.True(t, created)
	assert.NotEqual(t, uuid.Nil, sub.ID)
	assert.Equal(t, "jane@example.com", sub.Email)
	assert.Equal(t, models.SubmissionStatusSubmitted, sub.Status)
	assert.False(t, sub.LastUpdated.IsZero())
	assert.NotNil(t, sub.Education)
}

func TestSubmissionsRepository_UpsertReplacesWholesale(t *testing.T) {
	repo := setupSubmissionsDB(t)
	ctx := context.Background()

	first, _, err := repo.UpsertByEmail(ctx, newSubmission("Jane@Example.COM ", "Jane", "Go", "SQL"))
	require.NoError(t, err)

	second := newSubmission("jane@example.com", "Jane Doe", "Rust")
	second.Experience = nil
	second.Metadata.Source = models.SourceWebForm

	updated, created, err := repo.UpsertByEmail(ctx, second)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, updated.ID)

	got, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Jane Doe", got.PersonalInfo.FullName)
	assert.Empty(t, got.Experience, "lists are replaced, not merged")
	assert.Equal(t, "Rust", got.SkillsSummary())
	assert.Equal(t, models.SourceWebForm, got.Metadata.Source)
	assert.Equal(t, models.SubmissionStatusSubmitted, got.Status)

	_, total, err := repo.List(ctx, SubmissionFilter{Email: "JANE@example.com"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestSubmissionsRepository_GetMissing(t *testing.T) {
	repo := setupSubmissionsDB(t)
	ctx := context.Background()

	got, err := repo.GetByID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSubmissionsRepository_List(t *testing.T) {
	repo := setupSubmissionsDB(t)
	ctx := context.Background()

	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		_, _, err := repo.UpsertByEmail(ctx, newSubmission(email, "Someone", "Go"))
		require.NoError(t, err)
	}

	subs, total, err := repo.List(ctx, SubmissionFilter{Page: Page{Page: 1, Limit: 2}})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, subs, 2)

	subs, total, err = repo.List(ctx, SubmissionFilter{Page: Page{Page: 2, Limit: 2}})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, subs, 1)

	subs, total, err = repo.List(ctx, SubmissionFilter{Status: models.SubmissionStatusApproved})
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.Empty(t, subs)

	subs, total, err = repo.List(ctx, SubmissionFilter{Email: " B@example.com"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, subs, 1)
	assert.Equal(t, "b@example.com", subs[0].Email)
}
