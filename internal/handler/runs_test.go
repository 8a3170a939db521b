package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/cpp-engine/internal/apperror"
	"github.com/sakif/cpp-engine/internal/handler"
	"github.com/sakif/cpp-engine/internal/model"
	"github.com/sakif/cpp-engine/internal/repository"
)

type fakeRunRepo struct {
	runs         []model.RunRecord
	capturedOpts repository.ListOptions
}

func (f *fakeRunRepo) Create(ctx context.Context, run *model.RunRecord) error { return nil }

func (f *fakeRunRepo) GetByID(ctx context.Context, id string) (*model.RunRecord, error) {
	for i := range f.runs {
		if f.runs[i].ID == id {
			return &f.runs[i], nil
		}
	}
	return nil, apperror.NotFound("run", id)
}

func (f *fakeRunRepo) List(ctx context.Context, opts repository.ListOptions) ([]model.RunRecord, error) {
	f.capturedOpts = opts
	return f.runs, nil
}

func TestHandleListRuns(t *testing.T) {
	repo := &fakeRunRepo{runs: []model.RunRecord{
		{ID: "b", Kind: model.RunKindExecute, Success: true, CreatedAt: time.Now()},
		{ID: "a", Kind: model.RunKindCompile, Success: false, CreatedAt: time.Now().Add(-time.Minute)},
	}}
	h := handler.NewRunsHandler(repo, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/runs?limit=5&offset=10", nil)
	rr := httptest.NewRecorder()
	h.HandleList(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 5, repo.capturedOpts.Limit)
	assert.Equal(t, 10, repo.capturedOpts.Offset)

	var res struct {
		Runs []model.RunRecord `json:"runs"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
	assert.Len(t, res.Runs, 2)
}

func TestHandleGetRunByID(t *testing.T) {
	repo := &fakeRunRepo{runs: []model.RunRecord{{ID: "abc", Kind: model.RunKindExecute}}}
	h := handler.NewRunsHandler(repo, testLogger())

	router := chi.NewRouter()
	router.Get("/api/runs/{id}", h.HandleGetByID)

	t.Run("found", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/runs/abc", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		var run model.RunRecord
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&run))
		assert.Equal(t, "abc", run.ID)
	})

	t.Run("missing", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/runs/nope", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}
