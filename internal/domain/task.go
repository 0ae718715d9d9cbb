// Package domain contains the core types and ports of the self-test harness.
package domain

import (
	"context"
	"time"
)

// Ticks is a duration measured in scheduler ticks.
type Ticks uint32

// Priority is a task priority. Higher values preempt lower ones.
type Priority uint8

// IdlePriority is the lowest priority a task can run at.
const IdlePriority Priority = 0

// BlockForever used as a block time waits without a timeout.
const BlockForever = ^Ticks(0)

// TaskFunc is the entry point of a task. Returning from it terminates the task.
type TaskFunc func(t Task)

// TaskSpec describes a task to create.
// Fields are ordered to minimize memory padding.
type TaskSpec struct {
	Entry     TaskFunc // Entry point (required)
	Param     any      // Opaque parameter available through Task.Param
	Name      string   // Short name used in logs and listings
	StackSize int      // Bytes reserved from the kernel heap
	Priority  Priority // Scheduling priority
}

// Task is the view a running task has of itself. It is only valid inside the
// task's own entry function.
type Task interface {
	// ID returns the kernel-assigned task ID.
	ID() int

	// Name returns the task name.
	Name() string

	// Priority returns the task priority.
	Priority() Priority

	// Param returns the parameter passed at creation.
	Param() any

	// Context returns a context cancelled when the task is deleted.
	// Blocking queue operations should be given this context.
	Context() context.Context

	// Delay suspends the task for the given number of ticks.
	// If the task is deleted while delayed it never returns.
	Delay(ticks Ticks)

	// Yield gives other tasks a chance to run.
	Yield()

	// DeleteSelf terminates the calling task. It never returns.
	DeleteSelf()

	// EnterCritical enters the kernel critical section. Calls nest per task
	// and must be matched by ExitCritical.
	EnterCritical()

	// ExitCritical leaves the kernel critical section.
	ExitCritical()
}

// TaskHandle is a reference to a task held by another task.
type TaskHandle interface {
	// ID returns the kernel-assigned task ID.
	ID() int

	// Name returns the task name.
	Name() string

	// State returns the current lifecycle state.
	State() TaskState

	// HasRun reports whether the task has executed at least once.
	HasRun() bool
}

// TaskInfo is a point-in-time snapshot of a task.
// Fields are ordered to minimize memory padding.
type TaskInfo struct {
	Created   time.Time `json:"created" yaml:"created"`
	Name      string    `json:"name" yaml:"name"`
	State     TaskState `json:"state" yaml:"state"`
	ID        int       `json:"id" yaml:"id"`
	StackSize int       `json:"stackSize" yaml:"stack_size"`
	Priority  Priority  `json:"priority" yaml:"priority"`
}
