package progress

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgress_Update(t *testing.T) {
	var changes []Counters
	mux := sync.Mutex{}
	tracker := New("exec-1", "sales-approval:1", func(c Counters) {
		mux.Lock()
		changes = append(changes, c)
		mux.Unlock()
	})
	ctx := WithTracker(context.Background(), tracker)

	wg := sync.WaitGroup{}
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			UpdateCtx(ctx, Delta{Steps: 1, Running: 1})
			UpdateCtx(ctx, Delta{Running: -1, Completed: 1})
		}()
	}
	wg.Wait()
	UpdateCtx(ctx, Delta{PendingCallbacks: 1})

	snapshot := tracker.Snapshot()
	assert.Equal(t, "exec-1", snapshot.ExecutionID)
	assert.Equal(t, 10, snapshot.TotalSteps)
	assert.Equal(t, 10, snapshot.CompletedSteps)
	assert.Equal(t, 0, snapshot.RunningSteps)
	assert.Equal(t, 1, snapshot.PendingCallbacks)
	assert.Len(t, changes, 21)
}

func TestProgress_Nil(t *testing.T) {
	var tracker *Progress
	tracker.Update(Delta{Steps: 1})
	assert.Equal(t, Counters{}, tracker.Snapshot())
	UpdateCtx(context.Background(), Delta{Steps: 1})
	_, ok := FromContext(context.Background())
	assert.False(t, ok)
}
