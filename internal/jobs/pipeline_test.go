package jobs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/ci-warden/internal/core"
)

func TestPipeline_Handle(t *testing.T) {
	store := recordStore()
	runner := NewTestRunner(runnerConfig(t, `sh -c "echo 'coverage: 33.3%'"`), store, nil, nil, nil, discardLogger())
	pipeline := NewPipeline(NewShortCircuit(store, nil, discardLogger()), runner)

	t.Run("cached commit", func(t *testing.T) {
		job := core.NewJob("job-1", &core.JobData{SHA: failedSHA}, nil)
		pipeline.Handle(context.Background(), job)

		require.True(t, isDone(job))
		outcome, _ := job.Result()
		assert.Equal(t, core.StatusFailure, outcome.Status)
		assert.Equal(t, "1 failed", outcome.Description)
	})

	t.Run("new commit is tested and recorded", func(t *testing.T) {
		job := core.NewJob("job-2", &core.JobData{SHA: unknownSHA}, nil)
		pipeline.Handle(context.Background(), job)

		require.True(t, isDone(job))
		rec, err := store.LoadRecord(context.Background(), unknownSHA)
		require.NoError(t, err)
		assert.Equal(t, core.StatusSuccess, rec.Status)

		// a second job for the same commit is served from the record
		again := core.NewJob("job-3", &core.JobData{SHA: unknownSHA}, nil)
		pipeline.Handle(context.Background(), again)
		outcome, ok := again.Result()
		require.True(t, ok)
		assert.Equal(t, rec.Description, outcome.Description)
	})
}
