package pipeline

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockTimeProvider struct {
	currentTime time.Time
	mutex       sync.Mutex
}

func (mtp *mockTimeProvider) Now() time.Time {
	mtp.mutex.Lock()
	defer mtp.mutex.Unlock()
	return mtp.currentTime
}

func (mtp *mockTimeProvider) Add(d time.Duration) {
	mtp.mutex.Lock()
	mtp.currentTime = mtp.currentTime.Add(d)
	mtp.mutex.Unlock()
}

func newTestStore(now time.Time) (*ExecutionStore, *mockTimeProvider) {
	mtp := &mockTimeProvider{currentTime: now}
	store := NewExecutionStore(slog.New(slog.NewTextHandler(io.Discard, nil)))
	store.timeProvider = mtp
	return store, mtp
}

func TestExecutionStore_Lifecycle(t *testing.T) {
	store, _ := newTestStore(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))

	started := store.Start("ingestion", "run-1", 42)
	assert.Equal(t, StatusStarted, started.Status)

	store.Complete("run-1", []string{"extract"}, "summarize", errors.New("quota exceeded"))

	latest, ok := store.LatestForDocument(42)
	require.True(t, ok)
	assert.Equal(t, StatusFailed, latest.Status)
	assert.Equal(t, "summarize", latest.FailedStep)
	assert.Equal(t, []string{"extract"}, latest.CompletedSteps)
	assert.Equal(t, "quota exceeded", latest.ErrorMessage)

	// Mutating a snapshot leaves the stored result alone.
	latest.CompletedSteps[0] = "mutated"
	again, _ := store.GetExecution("run-1")
	assert.Equal(t, "extract", again.CompletedSteps[0])
}

func TestExecutionStore_LatestRunWins(t *testing.T) {
	store, _ := newTestStore(time.Now())

	store.Start("ingestion", "run-1", 7)
	store.Complete("run-1", []string{"extract", "summarize", "synthesize_audio"}, "", nil)
	store.Start("ingestion", "run-2", 7)

	latest, ok := store.LatestForDocument(7)
	require.True(t, ok)
	assert.Equal(t, "run-2", latest.ExecutionID)
	assert.Equal(t, StatusStarted, latest.Status)

	_, ok = store.LatestForDocument(8)
	assert.False(t, ok)
}

func TestExecutionStore_CleanupDropsExpiredRuns(t *testing.T) {
	store, mtp := newTestStore(time.Now())

	store.Start("ingestion", "old", 1)
	store.Complete("old", nil, "", nil)
	store.Start("ingestion", "running", 2)

	mtp.Add(2 * time.Hour)
	store.Start("ingestion", "fresh", 3)
	store.Complete("fresh", nil, "", nil)

	store.performCleanup(time.Hour)

	_, ok := store.GetExecution("old")
	assert.False(t, ok, "expired run should be removed")
	_, ok = store.LatestForDocument(1)
	assert.False(t, ok)
	_, ok = store.GetExecution("running")
	assert.True(t, ok, "unfinished runs are never expired")
	_, ok = store.GetExecution("fresh")
	assert.True(t, ok)
}

func TestExecutionStore_ConcurrentOperations(t *testing.T) {
	store, mtp := newTestStore(time.Now())

	store.StartCleanup(5*time.Minute, 10*time.Millisecond)
	defer store.StopCleanup()

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			execID := fmt.Sprintf("run-%d", i)
			store.Start("ingestion", execID, int64(i%10)+1)
			store.Complete(execID, []string{"extract"}, "", nil)
			store.GetExecution(execID)
			store.LatestForDocument(int64(i%10) + 1)
		}(i)
	}
	wg.Wait()

	mtp.Add(10 * time.Minute)
	assert.Eventually(t, func() bool {
		store.mu.RLock()
		defer store.mu.RUnlock()
		return len(store.executions) == 0
	}, time.Second, 10*time.Millisecond)

	store.StopCleanup()
}
