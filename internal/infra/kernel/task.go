package kernel

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/runoshun/rtcheck/internal/domain"
)

// Ensure task implements both task views.
var (
	_ domain.Task       = (*task)(nil)
	_ domain.TaskHandle = (*task)(nil)
)

// task is a kernel task. Fields other than state are immutable after
// creation or owned by the task's goroutine.
type task struct {
	created time.Time
	k       *Kernel
	ctx     context.Context
	cancel  context.CancelFunc
	spec    domain.TaskSpec
	state   domain.TaskState // protected by k.mu
	crit    Nesting          // owned by the task goroutine
	id      int
	hasRun  atomic.Bool
}

func newTask(k *Kernel, id int, spec domain.TaskSpec, created time.Time) *task {
	ctx, cancel := context.WithCancel(domain.WithPriority(context.Background(), spec.Priority))
	return &task{
		created: created,
		k:       k,
		ctx:     ctx,
		cancel:  cancel,
		spec:    spec,
		state:   domain.TaskCreated,
		crit:    NewNesting(&k.crit),
		id:      id,
	}
}

// run is the task goroutine.
func (t *task) run() {
	defer t.k.reap(t)
	defer t.crit.release()
	defer func() {
		if r := recover(); r != nil {
			t.k.logger.Error(t.id, logCategory, fmt.Sprintf("%s panicked: %v", t.spec.Name, r))
		}
	}()

	if !t.k.markRunning(t) {
		return
	}
	t.hasRun.Store(true)
	t.spec.Entry(t)

	// Returning from the entry function is treated as deleting itself.
	t.k.deleteSelf(t)
}

// ID returns the task ID.
func (t *task) ID() int { return t.id }

// Name returns the task name.
func (t *task) Name() string { return t.spec.Name }

// Priority returns the task priority.
func (t *task) Priority() domain.Priority { return t.spec.Priority }

// Param returns the creation parameter.
func (t *task) Param() any { return t.spec.Param }

// Context returns a context cancelled when the task is deleted.
func (t *task) Context() context.Context { return t.ctx }

// HasRun reports whether the task entry has started.
func (t *task) HasRun() bool { return t.hasRun.Load() }

// State returns the lifecycle state.
func (t *task) State() domain.TaskState {
	t.k.mu.Lock()
	defer t.k.mu.Unlock()
	return t.state
}

// Delay suspends the task for ticks. A zero delay yields.
func (t *task) Delay(ticks domain.Ticks) {
	t.exitIfDeleted()
	if ticks == 0 {
		t.Yield()
		return
	}

	timer := time.NewTimer(t.k.Duration(ticks))
	select {
	case <-timer.C:
	case <-t.ctx.Done():
		timer.Stop()
		runtime.Goexit()
	}
}

// Yield lets other goroutines run.
func (t *task) Yield() {
	t.exitIfDeleted()
	runtime.Gosched()
	t.exitIfDeleted()
}

// DeleteSelf terminates the calling task.
func (t *task) DeleteSelf() {
	t.k.deleteSelf(t)
	runtime.Goexit()
}

// EnterCritical enters the kernel critical section.
func (t *task) EnterCritical() {
	if t.crit.Depth() == 0 {
		t.exitIfDeleted()
	}
	t.crit.Enter()
}

// ExitCritical leaves the kernel critical section.
func (t *task) ExitCritical() {
	t.crit.Exit()
	if t.crit.Depth() == 0 {
		t.exitIfDeleted()
	}
}

// exitIfDeleted unwinds the goroutine if the task has been deleted.
func (t *task) exitIfDeleted() {
	if t.ctx.Err() != nil {
		runtime.Goexit()
	}
}

// infoLocked returns a snapshot. t.k.mu must be held.
func (t *task) infoLocked() domain.TaskInfo {
	return domain.TaskInfo{
		Created:   t.created,
		Name:      t.spec.Name,
		State:     t.state,
		ID:        t.id,
		StackSize: t.spec.StackSize,
		Priority:  t.spec.Priority,
	}
}
