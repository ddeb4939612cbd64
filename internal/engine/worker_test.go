package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"threadscout/backend/internal/logging"
	"threadscout/backend/internal/services"
	"threadscout/backend/pkg/models"
)

func waitForTerminal(t *testing.T, runs *memRunStore, runID string) *models.Run {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		run, err := runs.GetRun(context.Background(), runID)
		require.NoError(t, err)
		if run.Status != models.RunRunning {
			return run
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("run %s never reached a terminal state", runID)
	return nil
}

func TestPoolSubmitReturnsImmediatelyAndCompletes(t *testing.T) {
	release := make(chan struct{})
	source := &fakeSource{candidates: []models.Candidate{testCandidate("p1", "deploy a", "")}}
	scorer := &fakeScorer{fn: func(cand models.Candidate) (*services.ScoreResult, error) {
		<-release
		return &services.ScoreResult{Overall: 9.0, Recommend: true, Rationale: "ok"}, nil
	}}

	exec, runs, _ := newTestExecutor(source, scorer, draftOK(), Options{})
	pool := NewPool(exec, 1, 8, logging.NewLogger())

	runID, err := pool.Submit(context.Background(), testDefinition(), testWorkspace(), false)
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	// The trigger got its id back while the run is still in flight.
	run, err := runs.GetRun(context.Background(), runID)
	require.NoError(t, err)
	assert.Equal(t, models.RunRunning, run.Status)

	close(release)
	final := waitForTerminal(t, runs, runID)
	assert.Equal(t, models.RunCompleted, final.Status)
	require.NotNil(t, final.Summary)
	assert.Equal(t, 1, final.Summary.Found)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, pool.Shutdown(ctx))
}

func TestPoolRejectsSubmitAfterShutdown(t *testing.T) {
	source := &fakeSource{candidates: nil}
	exec, _, _ := newTestExecutor(source, recommendAll(9.0), draftOK(), Options{})
	pool := NewPool(exec, 1, 8, logging.NewLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, pool.Shutdown(ctx))

	_, err := pool.Submit(context.Background(), testDefinition(), testWorkspace(), false)
	require.Error(t, err)
}

func TestPoolSubmitShutdownRace(t *testing.T) {
	source := &fakeSource{candidates: []models.Candidate{testCandidate("p1", "deploy a", "")}}

	for i := 0; i < 50; i++ {
		exec, runs, _ := newTestExecutor(source, recommendAll(9.0), draftOK(), Options{})
		pool := NewPool(exec, 2, 4, logging.NewLogger())

		accepted := make(chan string, 8)
		var wg sync.WaitGroup
		for g := 0; g < 4; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				id, err := pool.Submit(context.Background(), testDefinition(), testWorkspace(), true)
				if err == nil {
					accepted <- id
				}
			}()
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		require.NoError(t, pool.Shutdown(ctx))
		cancel()
		wg.Wait()
		close(accepted)

		// Every accepted run must reach a terminal state; a submit racing
		// the shutdown must never strand a run in running.
		for id := range accepted {
			run := waitForTerminal(t, runs, id)
			assert.NotEqual(t, models.RunRunning, run.Status)
		}
	}
}

func TestPoolShutdownDrainsQueuedRuns(t *testing.T) {
	source := &fakeSource{candidates: []models.Candidate{testCandidate("p1", "deploy a", "")}}
	exec, runs, _ := newTestExecutor(source, recommendAll(9.0), draftOK(), Options{})
	pool := NewPool(exec, 1, 8, logging.NewLogger())

	var ids []string
	for i := 0; i < 3; i++ {
		id, err := pool.Submit(context.Background(), testDefinition(), testWorkspace(), true)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, pool.Shutdown(ctx))

	for _, id := range ids {
		run, err := runs.GetRun(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, models.RunCompleted, run.Status)
	}
}
