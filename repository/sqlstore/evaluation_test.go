package sqlstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nijaru/yt-summary/errors"
	"github.com/nijaru/yt-summary/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDB *DB

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "yt-summary-db-")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create temp dir: %v\n", err)
		os.Exit(1)
	}

	cfg := DefaultDBConfig()
	cfg.DSN = filepath.Join(dir, "test.db")
	cfg.RetryDelay = 10 * time.Millisecond

	testDB, err = Open(context.Background(), cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open test database: %v\n", err)
		os.RemoveAll(dir)
		os.Exit(1)
	}

	code := m.Run()

	testDB.Close()
	os.RemoveAll(dir)
	os.Exit(code)
}

func newEvaluation(videoID string) *models.Evaluation {
	now := time.Now().UTC().Truncate(time.Second)
	return &models.Evaluation{
		VideoID:          videoID,
		URL:              "https://youtu.be/" + videoID,
		Status:           models.StatusCompleted,
		Transcript:       "[00:00:12] intro",
		TranscriptSource: models.SourceCaptions,
		Summary:          "An intro.",
		SummaryModel:     "gemini-2.5-flash",
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func TestSaveAndFind(t *testing.T) {
	repo := NewRepository(testDB)
	ctx := context.Background()

	want := newEvaluation("ABCDEFGHIJK")
	require.NoError(t, repo.Save(ctx, want))

	got, err := repo.Find(ctx, "ABCDEFGHIJK")
	require.NoError(t, err)

	assert.Equal(t, want.VideoID, got.VideoID)
	assert.Equal(t, want.URL, got.URL)
	assert.Equal(t, models.StatusCompleted, got.Status)
	assert.Equal(t, want.Transcript, got.Transcript)
	assert.Equal(t, models.SourceCaptions, got.TranscriptSource)
	assert.Equal(t, want.Summary, got.Summary)
	assert.Equal(t, want.SummaryModel, got.SummaryModel)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt), "created_at %v != %v", want.CreatedAt, got.CreatedAt)
}

func TestSaveUpserts(t *testing.T) {
	repo := NewRepository(testDB)
	ctx := context.Background()

	e := newEvaluation("dQw4w9WgXcQ")
	e.Status = models.StatusProcessing
	e.Summary = ""
	require.NoError(t, repo.Save(ctx, e))

	e.Status = models.StatusFailed
	e.Stage = string(errors.StageDownloadFailed)
	e.Error = "failed to download media"
	e.UpdatedAt = e.UpdatedAt.Add(time.Minute)
	require.NoError(t, repo.Save(ctx, e))

	got, err := repo.Find(ctx, "dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, got.Status)
	assert.Equal(t, "download_failed", got.Stage)
	assert.Equal(t, "failed to download media", got.Error)
	assert.Empty(t, got.Summary)
}

func TestFindNotFound(t *testing.T) {
	repo := NewRepository(testDB)

	_, err := repo.Find(context.Background(), "missing0000")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestDelete(t *testing.T) {
	repo := NewRepository(testDB)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, newEvaluation("toDelete000")))
	require.NoError(t, repo.Delete(ctx, "toDelete000"))

	_, err := repo.Find(ctx, "toDelete000")
	assert.True(t, errors.IsNotFound(err))
	assert.True(t, errors.IsNotFound(repo.Delete(ctx, "toDelete000")))
}

func TestRebind(t *testing.T) {
	pg := &DB{driver: DriverPostgres}
	lite := &DB{driver: DriverSQLite}

	query := "SELECT * FROM evaluations WHERE video_id = ? AND status = ?"
	assert.Equal(t, "SELECT * FROM evaluations WHERE video_id = $1 AND status = $2", pg.Rebind(query))
	assert.Equal(t, query, lite.Rebind(query))
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	cfg := DefaultDBConfig()
	cfg.Driver = "mysql"
	_, err := Open(context.Background(), cfg)
	assert.Error(t, err)
}

func TestOpenInMemory(t *testing.T) {
	cfg := DefaultDBConfig()
	cfg.DSN = ":memory:"

	db, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	require.NoError(t, repo.Save(context.Background(), newEvaluation("memory00000")))
	_, err = repo.Find(context.Background(), "memory00000")
	assert.NoError(t, err)
}
