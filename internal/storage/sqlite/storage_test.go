package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aptihub/chatetl/internal/common"
	"github.com/aptihub/chatetl/internal/models"
)

func newTestDB(t *testing.T) *SQLiteDB {
	t.Helper()
	db, err := NewSQLiteDB(common.GetLogger(), &common.SQLiteConfig{
		Path:               ":memory:",
		CacheSizeMB:        8,
		BusyTimeoutMS:      1000,
		EmbeddingDimension: 4,
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testDocument(userID string, docType models.DocType, subType string) *models.Document {
	return &models.Document{
		ID:          common.NewDocumentID(),
		UserID:      userID,
		DocType:     docType,
		Content:     map[string]interface{}{"key": "value"},
		SummaryText: "요약 텍스트입니다. " + subType,
		Metadata: models.DocumentMetadata{
			SubType:         subType,
			CompletionLevel: models.CompletionComplete,
			CreatedAt:       time.Now().UTC(),
		},
		Embedding: []float32{0.1, 0.2, 0.3, 0.4},
	}
}

func TestEnsureUserCreatesMinimalRow(t *testing.T) {
	db := newTestDB(t)
	users := NewUserStorage(db, common.GetLogger())
	ctx := context.Background()

	user, created, err := users.EnsureUser(ctx, "user-1", 12345)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 12345, user.AnpSeq)

	again, created, err := users.EnsureUser(ctx, "user-1", 12345)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, user.ID, again.ID)
}

func TestCreateJobEnsuresUser(t *testing.T) {
	db := newTestDB(t)
	users := NewUserStorage(db, common.GetLogger())
	jobs := NewJobStorage(db, users, common.GetLogger())
	ctx := context.Background()

	job := &models.ETLJob{
		ID:     common.NewJobID(),
		UserID: "unknown-user",
		AnpSeq: 777,
		Status: models.JobStatusPending,
	}
	require.NoError(t, jobs.CreateJob(ctx, job))

	user, err := users.GetUser(ctx, "unknown-user")
	require.NoError(t, err)
	assert.Equal(t, 777, user.AnpSeq)

	stored, err := jobs.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusPending, stored.Status)
	assert.Equal(t, models.ETLJobTotalSteps, stored.TotalSteps)
}

func TestTerminalJobsAreImmutable(t *testing.T) {
	db := newTestDB(t)
	users := NewUserStorage(db, common.GetLogger())
	jobs := NewJobStorage(db, users, common.GetLogger())
	ctx := context.Background()

	job := &models.ETLJob{
		ID:     common.NewJobID(),
		UserID: "u1",
		AnpSeq: 1,
		Status: models.JobStatusPending,
	}
	require.NoError(t, jobs.CreateJob(ctx, job))

	failed := models.JobStatusFailure
	msg := "stage blew up"
	require.NoError(t, jobs.UpdateJob(ctx, job.ID, &models.JobUpdate{
		Status:       &failed,
		ErrorMessage: &msg,
	}))

	// terminal rows reject further mutation
	started := models.JobStatusStarted
	err := jobs.UpdateJob(ctx, job.ID, &models.JobUpdate{Status: &started})
	assert.Error(t, err)

	stored, err := jobs.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailure, stored.Status)
	assert.Equal(t, "stage blew up", stored.ErrorMessage)
}

func TestListJobsByUserMostRecentFirst(t *testing.T) {
	db := newTestDB(t)
	users := NewUserStorage(db, common.GetLogger())
	jobs := NewJobStorage(db, users, common.GetLogger())
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		job := &models.ETLJob{
			ID:        common.NewJobID(),
			UserID:    "u1",
			AnpSeq:    1,
			Status:    models.JobStatusPending,
			StartedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, jobs.CreateJob(ctx, job))
	}

	listed, err := jobs.ListJobsByUser(ctx, "u1", 2)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.True(t, listed[0].StartedAt.After(listed[1].StartedAt))
}

func TestGetJobNotFound(t *testing.T) {
	db := newTestDB(t)
	users := NewUserStorage(db, common.GetLogger())
	jobs := NewJobStorage(db, users, common.GetLogger())

	_, err := jobs.GetJob(context.Background(), "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestReplaceUserDocuments(t *testing.T) {
	db := newTestDB(t)
	users := NewUserStorage(db, common.GetLogger())
	docs := NewDocumentStorage(db, common.GetLogger())
	ctx := context.Background()

	_, _, err := users.EnsureUser(ctx, "u1", 1)
	require.NoError(t, err)

	first := []*models.Document{
		testDocument("u1", models.DocTypePersonalityProfile, "primary_tendency"),
		testDocument("u1", models.DocTypeThinkingSkills, "top_skills"),
	}
	require.NoError(t, docs.ReplaceUserDocuments(ctx, "u1", first))

	second := []*models.Document{
		testDocument("u1", models.DocTypePreferenceAnalysis, "completion_summary"),
	}
	require.NoError(t, docs.ReplaceUserDocuments(ctx, "u1", second))

	stored, err := docs.GetUserDocuments(ctx, "u1", nil)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, models.DocTypePreferenceAnalysis, stored[0].DocType)
	assert.Equal(t, "completion_summary", stored[0].Metadata.SubType)
	assert.Equal(t, []float32{0.1, 0.2, 0.3, 0.4}, stored[0].Embedding)
}

func TestReplaceUserDocumentsRollsBackOnFailure(t *testing.T) {
	db := newTestDB(t)
	users := NewUserStorage(db, common.GetLogger())
	docs := NewDocumentStorage(db, common.GetLogger())
	ctx := context.Background()

	_, _, err := users.EnsureUser(ctx, "u1", 1)
	require.NoError(t, err)

	original := []*models.Document{
		testDocument("u1", models.DocTypePersonalityProfile, "primary_tendency"),
	}
	require.NoError(t, docs.ReplaceUserDocuments(ctx, "u1", original))

	// duplicate doc_id violates the primary key mid-transaction
	dup := testDocument("u1", models.DocTypeThinkingSkills, "top_skills")
	bad := []*models.Document{dup, dup}
	err = docs.ReplaceUserDocuments(ctx, "u1", bad)
	require.Error(t, err)

	stored, err := docs.GetUserDocuments(ctx, "u1", nil)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, original[0].ID, stored[0].ID)
}

func TestEmbeddingRoundTrip(t *testing.T) {
	vec := []float32{-1.5, 0, 3.25, 0.001}
	data := serializeEmbedding(vec)
	out, err := deserializeEmbedding(data)
	require.NoError(t, err)
	assert.Equal(t, vec, out)

	_, err = deserializeEmbedding([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestGetUserDocumentsTypeFilter(t *testing.T) {
	db := newTestDB(t)
	users := NewUserStorage(db, common.GetLogger())
	docs := NewDocumentStorage(db, common.GetLogger())
	ctx := context.Background()

	_, _, err := users.EnsureUser(ctx, "u1", 1)
	require.NoError(t, err)

	all := []*models.Document{
		testDocument("u1", models.DocTypePersonalityProfile, "primary_tendency"),
		testDocument("u1", models.DocTypeThinkingSkills, "top_skills"),
		testDocument("u1", models.DocTypePreferenceAnalysis, "preferences_overview"),
	}
	require.NoError(t, docs.ReplaceUserDocuments(ctx, "u1", all))

	filtered, err := docs.GetUserDocuments(ctx, "u1", []models.DocType{
		models.DocTypePersonalityProfile,
		models.DocTypeThinkingSkills,
	})
	require.NoError(t, err)
	assert.Len(t, filtered, 2)
}
