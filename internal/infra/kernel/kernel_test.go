package kernel

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/runoshun/rtcheck/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestKernel(t *testing.T) *Kernel {
	t.Helper()
	k := New(Options{Tick: 100 * time.Microsecond, HeapSize: 8 * 1024, MinStack: 128, MaxPriorities: 4, Preemptive: true})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = k.Shutdown(ctx)
	})
	return k
}

// sleeper delays forever; it only stops when deleted.
func sleeper(t domain.Task) {
	for {
		t.Delay(10)
	}
}

func TestKernel_CreateTask_CountsPopulation(t *testing.T) {
	k := newTestKernel(t)

	for i := 0; i < 3; i++ {
		_, err := k.CreateTask(domain.TaskSpec{Entry: sleeper, Name: "sleep", Priority: 1})
		require.NoError(t, err)
	}

	assert.Equal(t, 3, k.TaskCount())
	assert.Len(t, k.Tasks(), 3)
	assert.Equal(t, uint64(3), k.Stats().TasksCreated)
	assert.Equal(t, 3*128, k.Stats().HeapInUse)
}

func TestKernel_CreateTask_Validation(t *testing.T) {
	k := newTestKernel(t)

	tests := []struct {
		name    string
		spec    domain.TaskSpec
		wantErr error
	}{
		{"no entry", domain.TaskSpec{Name: "x"}, domain.ErrNoEntry},
		{"priority too high", domain.TaskSpec{Entry: sleeper, Name: "x", Priority: 4}, domain.ErrInvalidPriority},
		{"stack too large", domain.TaskSpec{Entry: sleeper, Name: "x", StackSize: 64 * 1024}, domain.ErrOutOfMemory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := k.CreateTask(tt.spec)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	assert.Equal(t, 0, k.TaskCount())
	assert.Equal(t, uint64(1), k.Stats().CreateFailures)
}

func TestKernel_DeleteTask_UnwindsAndFreesStack(t *testing.T) {
	k := newTestKernel(t)
	var cleaned atomic.Bool

	h, err := k.CreateTask(domain.TaskSpec{
		Name: "victim",
		Entry: func(task domain.Task) {
			defer cleaned.Store(true)
			sleeper(task)
		},
	})
	require.NoError(t, err)
	require.Eventually(t, h.HasRun, time.Second, time.Millisecond)

	require.NoError(t, k.DeleteTask(h))
	assert.Equal(t, 0, k.TaskCount(), "population drops at deletion time")

	require.Eventually(t, cleaned.Load, time.Second, time.Millisecond, "deferred calls run on unwind")
	require.Eventually(t, func() bool { return k.Stats().HeapInUse == 0 }, time.Second, time.Millisecond)
	assert.Equal(t, domain.TaskTerminated, h.State())
}

func TestKernel_DeleteTask_Twice(t *testing.T) {
	k := newTestKernel(t)
	h, err := k.CreateTask(domain.TaskSpec{Entry: sleeper, Name: "victim"})
	require.NoError(t, err)

	require.NoError(t, k.DeleteTask(h))
	assert.ErrorIs(t, k.DeleteTask(h), domain.ErrTaskDeleted)
	assert.ErrorIs(t, k.DeleteTask(nil), domain.ErrTaskNotFound)
}

func TestKernel_DeleteSelf_RunsNoFurtherCode(t *testing.T) {
	k := newTestKernel(t)
	var after atomic.Bool
	var deferred atomic.Int32

	h, err := k.CreateTask(domain.TaskSpec{
		Name: "suicide",
		Entry: func(task domain.Task) {
			defer deferred.Add(1)
			task.DeleteSelf()
			after.Store(true)
		},
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return h.State() == domain.TaskTerminated }, time.Second, time.Millisecond)
	assert.False(t, after.Load())
	assert.Equal(t, int32(1), deferred.Load())
	assert.Equal(t, 0, k.TaskCount())
	assert.Equal(t, uint64(1), k.Stats().TasksDeleted)
}

func TestKernel_EntryReturn_TerminatesTask(t *testing.T) {
	k := newTestKernel(t)
	h, err := k.CreateTask(domain.TaskSpec{Name: "once", Entry: func(domain.Task) {}})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return h.State() == domain.TaskTerminated }, time.Second, time.Millisecond)
	assert.Equal(t, 0, k.TaskCount())
}

func TestKernel_EntryPanic_DoesNotCrash(t *testing.T) {
	k := newTestKernel(t)
	h, err := k.CreateTask(domain.TaskSpec{Name: "bad", Entry: func(domain.Task) { panic("boom") }})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return h.State() == domain.TaskTerminated }, time.Second, time.Millisecond)
	assert.Equal(t, 0, k.TaskCount())
}

func TestKernel_DeleteRacingStartup_FreesEveryStack(t *testing.T) {
	k := newTestKernel(t)
	var ran atomic.Int32

	// Deletion races with start-up; either side may win.
	for i := 0; i < 50; i++ {
		h, err := k.CreateTask(domain.TaskSpec{Name: "short", Entry: func(domain.Task) { ran.Add(1) }})
		require.NoError(t, err)
		if err := k.DeleteTask(h); err != nil {
			// Entry already finished and the task removed itself.
			assert.ErrorIs(t, err, domain.ErrTaskDeleted)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, k.Shutdown(ctx))
	assert.Equal(t, 0, k.Stats().HeapInUse)
	assert.LessOrEqual(t, ran.Load(), int32(50))
}

func TestKernel_Shutdown_StopsCreation(t *testing.T) {
	k := newTestKernel(t)
	_, err := k.CreateTask(domain.TaskSpec{Entry: sleeper, Name: "s"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, k.Shutdown(ctx))

	assert.Equal(t, 0, k.TaskCount())
	assert.Empty(t, k.Tasks())
	_, err = k.CreateTask(domain.TaskSpec{Entry: sleeper, Name: "late"})
	assert.ErrorIs(t, err, domain.ErrSchedulerStopped)
}

func TestKernel_TaskContextCarriesPriority(t *testing.T) {
	k := newTestKernel(t)
	got := make(chan domain.Priority, 1)

	_, err := k.CreateTask(domain.TaskSpec{Name: "p", Priority: 3, Entry: func(task domain.Task) {
		got <- domain.PriorityFromContext(task.Context())
	}})
	require.NoError(t, err)

	select {
	case p := <-got:
		assert.Equal(t, domain.Priority(3), p)
	case <-time.After(time.Second):
		t.Fatal("task did not run")
	}
}

func TestKernel_CriticalSection_Nests(t *testing.T) {
	k := newTestKernel(t)
	done := make(chan struct{})
	var counter int

	for i := 0; i < 4; i++ {
		_, err := k.CreateTask(domain.TaskSpec{Name: "inc", Entry: func(task domain.Task) {
			for j := 0; j < 1000; j++ {
				task.EnterCritical()
				task.EnterCritical()
				counter++
				task.ExitCritical()
				task.ExitCritical()
			}
			done <- struct{}{}
		}})
		require.NoError(t, err)
	}
	for i := 0; i < 4; i++ {
		<-done
	}

	k.Critical(func() {
		assert.Equal(t, 4000, counter)
	})
}

func TestKernel_DeleteWhileInCritical_ReleasesSection(t *testing.T) {
	k := newTestKernel(t)
	h, err := k.CreateTask(domain.TaskSpec{Name: "holder", Entry: func(task domain.Task) {
		task.EnterCritical()
		task.DeleteSelf()
	}})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return h.State() == domain.TaskTerminated }, time.Second, time.Millisecond)

	entered := make(chan struct{})
	go k.Critical(func() { close(entered) })
	select {
	case <-entered:
	case <-time.After(time.Second):
		t.Fatal("critical section still held by a terminated task")
	}
}

func TestNesting_ExitWithoutEnterPanics(t *testing.T) {
	var cs CriticalSection
	n := NewNesting(&cs)
	assert.Panics(t, func() { n.Exit() })
}

func TestHeap_AllocFree(t *testing.T) {
	h := NewHeap(100)

	assert.True(t, h.Alloc(60))
	assert.False(t, h.Alloc(50))
	assert.True(t, h.Alloc(40))
	assert.Equal(t, 100, h.InUse())
	h.Free(60)
	assert.Equal(t, 40, h.InUse())
	assert.Equal(t, 0, h.MinimumEverFree())
}

func TestKernel_YieldFromISR_Counts(t *testing.T) {
	k := newTestKernel(t)
	k.YieldFromISR()
	k.YieldFromISR()
	assert.Equal(t, uint64(2), k.Stats().YieldsFromISR)
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := domain.NewDefaultConfig().Kernel
	opts, err := OptionsFromConfig(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, time.Millisecond, opts.Tick)
	assert.Equal(t, 4, opts.MaxPriorities)

	cfg.Tick = "soon"
	_, err = OptionsFromConfig(cfg, nil)
	assert.Error(t, err)
}
