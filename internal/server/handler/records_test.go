package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/ci-warden/internal/core"
	"github.com/sevigo/ci-warden/internal/jobs"
	"github.com/sevigo/ci-warden/internal/queue"
)

func recordsRouter(h *RecordsHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/records/{sha}", h.GetRecord)
	r.Get("/logs/{sha}", h.GetLog)
	r.Get("/queue", h.ListQueue)
	return r
}

func serve(h http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestRecordsHandler_GetRecord(t *testing.T) {
	h := recordsRouter(NewRecordsHandler(testStore(), queue.New(10, discardLogger()), t.TempDir(), discardLogger()))

	rec := serve(h, "/records/"+failedSHA)
	require.Equal(t, http.StatusOK, rec.Code)
	var got core.TestRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, failedSHA, got.Commit)
	assert.Equal(t, core.StatusFailure, got.Status)
	require.NotNil(t, got.Coverage)
	assert.InDelta(t, 22.2, *got.Coverage, 0.001)

	rec = serve(h, "/records/3f4ac7d7fc0983748702e10738ba4382f347fa38")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecordsHandler_GetLog(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, headSHA+".log"), []byte("ok\tpkg\tcoverage: 75.77%\n"), 0o644))
	h := recordsRouter(NewRecordsHandler(testStore(), queue.New(10, discardLogger()), dir, discardLogger()))

	tests := []struct {
		name       string
		sha        string
		wantStatus int
		wantBody   string
	}{
		{name: "captured log", sha: headSHA, wantStatus: http.StatusOK, wantBody: "ok\tpkg\tcoverage: 75.77%\n"},
		{name: "no log for commit", sha: failedSHA, wantStatus: http.StatusNotFound},
		{name: "malformed sha", sha: "..%2F..%2Fetc", wantStatus: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(h, "/logs/"+tt.sha)
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
				assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
			}
		})
	}
}

func TestRecordsHandler_ListQueue(t *testing.T) {
	q := queue.New(10, discardLogger())
	_, err := q.Enqueue(context.Background(), &core.JobData{SHA: headSHA, Owner: "sevigo", Repo: "ci-warden", Branch: "main"})
	require.NoError(t, err)
	_, err = q.Enqueue(context.Background(), &core.JobData{SHA: failedSHA, Force: ptr(true)})
	require.NoError(t, err)

	rec := serve(recordsRouter(NewRecordsHandler(testStore(), q, "", discardLogger())), "/queue")
	require.Equal(t, http.StatusOK, rec.Code)

	var got []pendingJob
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, headSHA, got[0].SHA)
	assert.Equal(t, "main", got[0].Branch)
	assert.False(t, got[0].Force)
	assert.Equal(t, failedSHA, got[1].SHA)
	assert.True(t, got[1].Force)
	assert.NotEmpty(t, got[1].ID)
}

func TestRecordsHandler_ListQueueWhileJobsAreHandled(t *testing.T) {
	ctx := context.Background()
	q := queue.New(100, discardLogger())
	for range 20 {
		_, err := q.Enqueue(ctx, &core.JobData{SHA: headSHA, Force: ptr(true)})
		require.NoError(t, err)
	}
	sc := jobs.NewShortCircuit(testStore(), q, discardLogger())
	h := recordsRouter(NewRecordsHandler(testStore(), q, "", discardLogger()))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := range 200 {
			job := core.NewJob(fmt.Sprintf("job-%d", i), &core.JobData{SHA: headSHA, Force: ptr(true)}, nil)
			sc.Handle(ctx, job, func(_ context.Context, job *core.Job) { job.Done(nil) })
		}
	}()
	go func() {
		defer wg.Done()
		for range 200 {
			assert.Equal(t, http.StatusOK, serve(h, "/queue").Code)
		}
	}()
	wg.Wait()

	var got []pendingJob
	require.NoError(t, json.Unmarshal(serve(h, "/queue").Body.Bytes(), &got))
	require.Len(t, got, 20)
	for _, p := range got {
		assert.False(t, p.Force)
	}
}
