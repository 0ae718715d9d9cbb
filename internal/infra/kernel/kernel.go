// Package kernel provides a goroutine-backed implementation of the scheduler
// contract consumed by the self-test harness.
//
// Every task runs on its own goroutine. Deleting a task cancels its context;
// the task unwinds (via runtime.Goexit) at its next kernel interaction, which
// runs its deferred calls and returns its stack to the heap. A deleted task
// stops counting towards the population the moment it is deleted.
package kernel

import (
	"context"
	"fmt"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/runoshun/rtcheck/internal/domain"
)

// Ensure Kernel implements domain.Scheduler interface.
var _ domain.Scheduler = (*Kernel)(nil)

const logCategory = "kernel"

// Options configures a Kernel.
// Fields are ordered to minimize memory padding.
type Options struct {
	Logger        domain.Logger
	Clock         domain.Clock
	Tick          time.Duration
	HeapSize      int
	MinStack      int
	MaxPriorities int
	Preemptive    bool
}

// OptionsFromConfig builds Options from the [kernel] config section.
func OptionsFromConfig(cfg domain.KernelConfig, logger domain.Logger) (Options, error) {
	tick, err := cfg.TickDuration()
	if err != nil {
		return Options{}, err
	}
	return Options{
		Logger:        logger,
		Clock:         domain.RealClock{},
		Tick:          tick,
		HeapSize:      cfg.HeapSize,
		MinStack:      cfg.MinStack,
		MaxPriorities: cfg.MaxPriorities,
		Preemptive:    cfg.Preemptive,
	}, nil
}

// Kernel schedules tasks on goroutines.
type Kernel struct {
	logger domain.Logger
	clock  domain.Clock
	heap   *Heap
	tasks  map[int]*task
	crit   CriticalSection
	opts   Options
	wg     sync.WaitGroup
	mu     sync.Mutex // protects tasks, nextID, live, stopped

	nextID  int
	live    int
	stopped bool

	created        atomic.Uint64
	deleted        atomic.Uint64
	createFailures atomic.Uint64
	isrYields      atomic.Uint64
}

// New creates a Kernel. Zero-valued options fall back to defaults.
func New(opts Options) *Kernel {
	if opts.Tick <= 0 {
		opts.Tick = time.Millisecond
	}
	if opts.MaxPriorities <= 0 {
		opts.MaxPriorities = 4
	}
	if opts.HeapSize <= 0 {
		opts.HeapSize = 32 * 1024
	}
	if opts.MinStack <= 0 {
		opts.MinStack = 128
	}
	if opts.Clock == nil {
		opts.Clock = domain.RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = nopLogger{}
	}
	return &Kernel{
		logger: opts.Logger,
		clock:  opts.Clock,
		heap:   NewHeap(opts.HeapSize),
		tasks:  make(map[int]*task),
		opts:   opts,
		nextID: 1,
	}
}

// CreateTask creates a task and starts it.
func (k *Kernel) CreateTask(spec domain.TaskSpec) (domain.TaskHandle, error) {
	if spec.Entry == nil {
		return nil, fmt.Errorf("create task %q: %w", spec.Name, domain.ErrNoEntry)
	}
	if int(spec.Priority) >= k.opts.MaxPriorities {
		return nil, fmt.Errorf("create task %q: priority %d: %w", spec.Name, spec.Priority, domain.ErrInvalidPriority)
	}
	if spec.StackSize < k.opts.MinStack {
		spec.StackSize = k.opts.MinStack
	}

	k.mu.Lock()
	if k.stopped {
		k.mu.Unlock()
		return nil, fmt.Errorf("create task %q: %w", spec.Name, domain.ErrSchedulerStopped)
	}
	if !k.heap.Alloc(spec.StackSize) {
		k.mu.Unlock()
		k.createFailures.Add(1)
		k.logger.Warn(0, logCategory, fmt.Sprintf("create %s: no heap for %d byte stack", spec.Name, spec.StackSize))
		return nil, fmt.Errorf("create task %q: %w", spec.Name, domain.ErrOutOfMemory)
	}

	t := newTask(k, k.nextID, spec, k.clock.Now())
	k.nextID++
	k.tasks[t.id] = t
	k.live++
	k.wg.Add(1)
	k.mu.Unlock()

	k.created.Add(1)
	k.logger.Debug(t.id, logCategory, fmt.Sprintf("created %s priority=%d stack=%d", spec.Name, spec.Priority, spec.StackSize))

	go t.run()
	return t, nil
}

// DeleteTask deletes another task.
func (k *Kernel) DeleteTask(h domain.TaskHandle) error {
	t, ok := h.(*task)
	if !ok || t == nil || t.k != k {
		return domain.ErrTaskNotFound
	}

	k.mu.Lock()
	if !t.state.IsLive() {
		k.mu.Unlock()
		return fmt.Errorf("delete task %d: %w", t.id, domain.ErrTaskDeleted)
	}
	k.transitionLocked(t, domain.TaskDeleted)
	k.mu.Unlock()

	t.cancel()
	k.deleted.Add(1)
	k.logger.Debug(t.id, logCategory, "deleted "+t.spec.Name)
	return nil
}

// deleteSelf removes the calling task from the population. The caller must
// unwind immediately afterwards.
func (k *Kernel) deleteSelf(t *task) {
	k.mu.Lock()
	wasLive := t.state.IsLive()
	if wasLive {
		k.transitionLocked(t, domain.TaskSelfTerminating)
	}
	k.mu.Unlock()

	t.cancel()
	if wasLive {
		k.deleted.Add(1)
		k.logger.Debug(t.id, logCategory, "self-deleted "+t.spec.Name)
	}
}

// markRunning moves a freshly created task to running. It returns false if
// the task was deleted before it got to run.
func (k *Kernel) markRunning(t *task) bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	if t.state != domain.TaskCreated {
		return false
	}
	t.state = domain.TaskRunning
	return true
}

// reap removes an unwound task and frees its stack.
func (k *Kernel) reap(t *task) {
	k.mu.Lock()
	if t.state.IsLive() {
		// Unwound without going through a delete (entry panicked).
		k.live--
		k.deleted.Add(1)
	}
	t.state = domain.TaskTerminated
	delete(k.tasks, t.id)
	k.mu.Unlock()

	k.heap.Free(t.spec.StackSize)
	k.wg.Done()
}

// transitionLocked changes a live task's state and keeps the live count in
// step. k.mu must be held.
func (k *Kernel) transitionLocked(t *task, to domain.TaskState) {
	if !t.state.CanTransitionTo(to) {
		return
	}
	if t.state.IsLive() && !to.IsLive() {
		k.live--
	}
	t.state = to
}

// TaskCount returns the number of live tasks.
func (k *Kernel) TaskCount() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.live
}

// Tasks returns a snapshot of all tasks that have not yet terminated, ordered by ID.
func (k *Kernel) Tasks() []domain.TaskInfo {
	k.mu.Lock()
	infos := make([]domain.TaskInfo, 0, len(k.tasks))
	for _, t := range k.tasks {
		infos = append(infos, t.infoLocked())
	}
	k.mu.Unlock()

	slices.SortFunc(infos, func(a, b domain.TaskInfo) int {
		return a.ID - b.ID
	})
	return infos
}

// Critical runs fn inside the critical section.
func (k *Kernel) Critical(fn func()) {
	k.crit.Lock()
	defer k.crit.Unlock()
	fn()
}

// YieldFromISR records a reschedule request made by an interrupt handler.
func (k *Kernel) YieldFromISR() {
	k.isrYields.Add(1)
	runtime.Gosched()
}

// TickDuration returns the wall-clock length of one tick.
func (k *Kernel) TickDuration() time.Duration {
	return k.opts.Tick
}

// Duration converts ticks to wall-clock time.
func (k *Kernel) Duration(ticks domain.Ticks) time.Duration {
	return time.Duration(ticks) * k.opts.Tick
}

// Preemptive reports whether the kernel was configured as preemptive.
func (k *Kernel) Preemptive() bool {
	return k.opts.Preemptive
}

// Stats returns kernel counters.
func (k *Kernel) Stats() domain.KernelStats {
	return domain.KernelStats{
		TasksCreated:     k.created.Load(),
		TasksDeleted:     k.deleted.Load(),
		CreateFailures:   k.createFailures.Load(),
		YieldsFromISR:    k.isrYields.Load(),
		TaskCount:        k.TaskCount(),
		HeapSize:         k.heap.Size(),
		HeapInUse:        k.heap.InUse(),
		HeapLowWatermark: k.heap.MinimumEverFree(),
	}
}

// Shutdown stops task creation, deletes every live task and waits for all
// tasks to unwind or ctx to be done.
func (k *Kernel) Shutdown(ctx context.Context) error {
	k.mu.Lock()
	k.stopped = true
	var victims []*task
	for _, t := range k.tasks {
		if t.state.IsLive() {
			k.transitionLocked(t, domain.TaskDeleted)
			victims = append(victims, t)
		}
	}
	k.mu.Unlock()

	for _, t := range victims {
		t.cancel()
		k.deleted.Add(1)
	}
	k.logger.Info(0, logCategory, fmt.Sprintf("shutdown: deleted %d tasks", len(victims)))

	done := make(chan struct{})
	go func() {
		k.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for tasks to unwind: %w", ctx.Err())
	}
}

type nopLogger struct{}

func (nopLogger) Debug(int, string, string) {}
func (nopLogger) Info(int, string, string)  {}
func (nopLogger) Warn(int, string, string)  {}
func (nopLogger) Error(int, string, string) {}
