package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/portfoyapp/portfoy/internal/domain"
	"github.com/portfoyapp/portfoy/internal/modules/snapshots"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

type fakeJob struct {
	runs int
	err  error
}

func (f *fakeJob) Name() string { return "weekly_snapshot" }

func (f *fakeJob) Run() error {
	f.runs++
	return f.err
}

func setupRouter(t *testing.T, job *fakeJob) (*chi.Mux, *snapshots.Repository) {
	t.Helper()

	logger := zerolog.New(nil).Level(zerolog.Disabled)

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(snapshots.Schema)
	require.NoError(t, err)

	repo := snapshots.NewRepository(db, logger)
	h := NewHandler(repo, job, logger)

	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r, repo
}

func TestHandleList(t *testing.T) {
	router, repo := setupRouter(t, &fakeJob{})

	_, err := repo.Upsert(&domain.Snapshot{Owner: "default", WeekNumber: 35, TotalValueTRY: 50000, Positions: []domain.SnapshotPosition{}})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/snapshots", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data []domain.Snapshot `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, 50000.0, body.Data[0].TotalValueTRY)
}

func TestHandleListEmpty(t *testing.T) {
	router, _ := setupRouter(t, &fakeJob{})

	req := httptest.NewRequest(http.MethodGet, "/snapshots?owner=nobody", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data []domain.Snapshot `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.NotNil(t, body.Data)
	assert.Empty(t, body.Data)
}

func TestHandleRun(t *testing.T) {
	job := &fakeJob{}
	router, _ := setupRouter(t, job)

	req := httptest.NewRequest(http.MethodPost, "/snapshots/run", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, job.runs)
}

func TestHandleRunFailure(t *testing.T) {
	job := &fakeJob{err: errors.New("rate source down")}
	router, _ := setupRouter(t, job)

	req := httptest.NewRequest(http.MethodPost, "/snapshots/run", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
